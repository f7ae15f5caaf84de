package linearmodel

import "errors"

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrNoTargetMatrix     = errors.New("no target matrix for fitting")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrTargetLenMismatch  = errors.New("target length does not match design matrix rows")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrNegativeLambda     = errors.New("regularization must be non-negative")
	ErrNonFiniteTarget    = errors.New("target contains NaN or Inf")
	ErrSVDFactorize       = errors.New("unable to factorize design matrix")
)
