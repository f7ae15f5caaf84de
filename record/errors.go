package record

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDataLoad       = errors.New("unable to load demand records")
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoSheet        = errors.New("no sheet with the required columns")
	ErrUnknownFormat  = errors.New("unknown source format")
)

// DataLoadError is returned when a source cannot be read or does not carry the required
// columns. No records are returned alongside it.
type DataLoadError struct {
	Source  string
	Missing []string
	Err     error
}

func (e *DataLoadError) Error() string {
	msg := "unable to load demand records"
	if e.Source != "" {
		msg += " from " + e.Source
	}
	if len(e.Missing) > 0 {
		msg += fmt.Sprintf(", missing columns [%s]", strings.Join(e.Missing, ", "))
	}
	if e.Err != nil {
		msg += ", " + e.Err.Error()
	}
	return msg
}

func (e *DataLoadError) Unwrap() error {
	return e.Err
}

// Is lets callers match any load failure with errors.Is(err, ErrDataLoad)
func (e *DataLoadError) Is(target error) bool {
	return target == ErrDataLoad
}

func newDataLoadError(source string, err error) *DataLoadError {
	return &DataLoadError{Source: source, Err: err}
}
