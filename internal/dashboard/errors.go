package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/aouyang1/go-demand-forecaster/preparer"
	"github.com/aouyang1/go-demand-forecaster/series"
)

var (
	ErrUnknownWarehouse = errors.New("unknown warehouse")
	ErrUnknownProduct   = errors.New("unknown product")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrRateLimited      = errors.New("rate limit exceeded, retry later")
	ErrNoSession        = errors.New("no session attached to request")
)

// FieldError describes one rejected query parameter
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
}

// Problem is the json error body returned by the api
type Problem struct {
	Status    int          `json:"status"`
	Title     string       `json:"title"`
	Detail    string       `json:"detail"`
	Instance  string       `json:"instance"`
	RequestID string       `json:"request_id,omitempty"`
	Errors    []FieldError `json:"errors,omitempty"`
}

func (p *Problem) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, p.Status)
	return nil
}

// statusOf maps an error onto its http status
func statusOf(err error) int {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs),
		errors.Is(err, ErrInvalidQuery),
		errors.Is(err, preparer.ErrInvalidArgument),
		errors.Is(err, series.ErrUnknownFrequency):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownWarehouse), errors.Is(err, ErrUnknownProduct):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, preparer.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func newProblem(r *http.Request, err error) *Problem {
	status := statusOf(err)
	p := &Problem{
		Status:    status,
		Title:     http.StatusText(status),
		Detail:    err.Error(),
		Instance:  r.URL.Path,
		RequestID: middleware.GetReqID(r.Context()),
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		p.Detail = ErrInvalidQuery.Error()
		for _, fe := range verrs {
			p.Errors = append(p.Errors, FieldError{
				Field: fe.Field(),
				Rule:  fe.Tag(),
				Param: fe.Param(),
			})
		}
	}
	if status == http.StatusInternalServerError {
		// fit failures can carry solver internals
		p.Detail = preparer.ErrForecastFit.Error()
		if !errors.Is(err, preparer.ErrForecastFit) {
			p.Detail = http.StatusText(status)
		}
	}
	return p
}

func (s *Server) logFailure(r *http.Request, status int, err error) {
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.LogAttrs(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", status),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)
}

// fail writes err as a json problem
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	p := newProblem(r, err)
	s.logFailure(r, p.Status, err)
	if p.Status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "1")
	}
	render.Render(w, r, p)
}

// failPage writes err as plain text for the html dashboard
func (s *Server) failPage(w http.ResponseWriter, r *http.Request, err error) {
	p := newProblem(r, err)
	s.logFailure(r, p.Status, err)
	http.Error(w, p.Detail, p.Status)
}
