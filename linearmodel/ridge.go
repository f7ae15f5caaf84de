// Package linearmodel fits regularized linear models
package linearmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// RidgeOptions represents input options to run the ridge regression
type RidgeOptions struct {
	// Lambda is the L2 penalty applied to every coefficient except the intercept. The penalty
	// is scaled by the number of observations.
	Lambda float64

	// FitIntercept adds an unpenalized constant feature as the first column if set to true
	FitIntercept bool
}

// Validate runs basic validation on ridge options
func (o *RidgeOptions) Validate() (*RidgeOptions, error) {
	if o == nil {
		o = NewDefaultRidgeOptions()
	}
	if o.Lambda < 0 || math.IsNaN(o.Lambda) {
		return nil, fmt.Errorf("lambda %f, %w", o.Lambda, ErrNegativeLambda)
	}
	return o, nil
}

// NewDefaultRidgeOptions returns a default set of ridge regression options
func NewDefaultRidgeOptions() *RidgeOptions {
	return &RidgeOptions{
		Lambda:       0.0,
		FitIntercept: true,
	}
}

// RidgeRegression computes the minimum norm ridge regularized least squares solution using
// a singular value decomposition of the penalty augmented design matrix. Rank deficient
// designs such as all zero columns are solved without error.
type RidgeRegression struct {
	opt       *RidgeOptions
	coef      []float64
	intercept float64
	rank      int
}

// NewRidgeRegression initializes a ridge regression model ready for fitting
func NewRidgeRegression(opt *RidgeOptions) (*RidgeRegression, error) {
	opt, err := opt.Validate()
	if err != nil {
		return nil, err
	}
	return &RidgeRegression{opt: opt}, nil
}

// Fit the model according to the given training data. x may be nil when fitting only the
// intercept. y must be a single column with one row per observation.
func (r *RidgeRegression) Fit(x, y mat.Matrix) error {
	if r.opt == nil {
		return ErrNoOptions
	}
	if y == nil {
		return ErrNoTargetMatrix
	}
	m, _ := y.Dims()

	var n int
	if x != nil {
		var xm int
		xm, n = x.Dims()
		if xm != m {
			return fmt.Errorf("training data has %d rows and target has %d rows, %w", xm, m, ErrTargetLenMismatch)
		}
	}
	for i := 0; i < m; i++ {
		if val := y.At(i, 0); math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("row %d, %w", i, ErrNonFiniteTarget)
		}
	}

	offset := 0
	if r.opt.FitIntercept {
		offset = 1
	}
	p := n + offset
	if p == 0 {
		r.coef = nil
		r.intercept = 0
		return nil
	}

	rows := m
	if r.opt.Lambda > 0 {
		rows += n
	}

	a := mat.NewDense(rows, p, nil)
	b := make([]float64, rows)
	for i := 0; i < m; i++ {
		if r.opt.FitIntercept {
			a.Set(i, 0, 1.0)
		}
		for j := 0; j < n; j++ {
			a.Set(i, offset+j, x.At(i, j))
		}
		b[i] = y.At(i, 0)
	}
	if r.opt.Lambda > 0 {
		penalty := math.Sqrt(r.opt.Lambda * float64(m))
		for j := 0; j < n; j++ {
			a.Set(m+j, offset+j, penalty)
		}
	}

	c, rank, err := minNormSolve(a, b)
	if err != nil {
		return err
	}
	r.rank = rank

	if r.opt.FitIntercept {
		r.intercept = c[0]
		r.coef = c[1:]
	} else {
		r.intercept = 0
		r.coef = c
	}
	return nil
}

// minNormSolve returns the minimum norm least squares solution of a*c = b along with the
// numerical rank of a
func minNormSolve(a *mat.Dense, b []float64) ([]float64, int, error) {
	rows, p := a.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(a, mat.SVDThin); !ok {
		return nil, 0, ErrSVDFactorize
	}
	values := svd.Values(nil)

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	c := make([]float64, p)
	if len(values) == 0 || values[0] == 0 {
		return c, 0, nil
	}

	tol := values[0] * float64(max(rows, p)) * 2.220446049250313e-16
	var rank int
	ucol := make([]float64, rows)
	vcol := make([]float64, p)
	for k, s := range values {
		if s <= tol {
			continue
		}
		rank++
		mat.Col(ucol, k, &u)
		mat.Col(vcol, k, &v)
		floats.AddScaled(c, floats.Dot(ucol, b)/s, vcol)
	}
	return c, rank, nil
}

// Predict using the ridge model. x may be nil for an intercept only model in which case n
// predictions of the intercept are returned.
func (r *RidgeRegression) Predict(x mat.Matrix, n int) ([]float64, error) {
	if r.opt == nil {
		return nil, ErrNoOptions
	}
	if x == nil {
		if len(r.coef) > 0 {
			return nil, ErrNoDesignMatrix
		}
		out := make([]float64, n)
		floats.AddConst(r.intercept, out)
		return out, nil
	}

	m, xn := x.Dims()
	if xn != len(r.coef) {
		return nil, fmt.Errorf("got %d features in design matrix, but expected %d, %w", xn, len(r.coef), ErrFeatureLenMismatch)
	}

	res := mat.NewVecDense(m, nil)
	res.MulVec(x, mat.NewVecDense(len(r.coef), r.Coef()))

	out := make([]float64, m)
	for i := range out {
		out[i] = res.AtVec(i) + r.intercept
	}
	return out, nil
}

// Score computes the coefficient of determination of the prediction
func (r *RidgeRegression) Score(x, y mat.Matrix) (float64, error) {
	if y == nil {
		return 0.0, ErrNoTargetMatrix
	}
	m, _ := y.Dims()
	res, err := r.Predict(x, m)
	if err != nil {
		return 0.0, err
	}
	if len(res) != m {
		return 0.0, fmt.Errorf("design matrix has %d rows and target has %d rows, %w", len(res), m, ErrTargetLenMismatch)
	}
	return stat.RSquaredFrom(res, mat.Col(nil, 0, y), nil), nil
}

// Intercept returns the computed intercept if FitIntercept is set to true. Defaults to 0.0 if not set.
func (r *RidgeRegression) Intercept() float64 {
	return r.intercept
}

// Coef returns a slice of the trained coefficients in the same order of the training feature Matrix by column.
func (r *RidgeRegression) Coef() []float64 {
	c := make([]float64, len(r.coef))
	copy(c, r.coef)
	return c
}

// Rank returns the numerical rank of the penalty augmented design matrix from the last fit
func (r *RidgeRegression) Rank() int {
	return r.rank
}
