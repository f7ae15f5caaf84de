package preparer

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInsufficientData  = errors.New("insufficient data to forecast")
	ErrForecastFit       = errors.New("forecast fit failed")
	ErrPredictionShape   = errors.New("prediction length does not match requested times")
	ErrNonFinitePredict  = errors.New("prediction contains NaN or infinite values")
	ErrNoProcedure       = errors.New("no forecasting procedure configured")
	ErrProcedurePanicked = errors.New("forecasting procedure panicked")
)

// InsufficientDataError is returned when a series has fewer than two distinct dates
type InsufficientDataError struct {
	Points int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s, got %d distinct dates but need at least %d", ErrInsufficientData, e.Points, MinPoints)
}

func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// ForecastFitError wraps any failure of the forecasting procedure while fitting or
// predicting, including timeouts and recovered panics
type ForecastFitError struct {
	Cause error
}

func (e *ForecastFitError) Error() string {
	if e.Cause == nil {
		return ErrForecastFit.Error()
	}
	return fmt.Sprintf("%s, %s", ErrForecastFit, e.Cause)
}

func (e *ForecastFitError) Unwrap() error {
	return e.Cause
}

func (e *ForecastFitError) Is(target error) bool {
	return target == ErrForecastFit
}

func fitError(format string, args ...any) error {
	return &ForecastFitError{Cause: fmt.Errorf(format, args...)}
}
