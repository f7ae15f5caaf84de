package dashboard

import (
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aouyang1/go-demand-forecaster/series"
)

const (
	ModeView     = "view"
	ModeForecast = "forecast"
)

// Selection picks one warehouse and product series
type Selection struct {
	Warehouse string `json:"warehouse" validate:"required"`
	Product   string `json:"product" validate:"required"`
	Frequency string `json:"frequency" validate:"required,frequency"`
}

// Freq returns the parsed frequency of a validated selection
func (s Selection) Freq() series.Frequency {
	freq, _ := series.ParseFrequency(s.Frequency)
	return freq
}

// ForecastQuery is a selection plus the forecast settings
type ForecastQuery struct {
	Selection
	Confidence float64 `json:"confidence" validate:"gte=0,lte=1"`
	Periods    int     `json:"periods" validate:"min=1,max=3650"`
}

// PageQuery is the state of the html dashboard form
type PageQuery struct {
	ForecastQuery
	Mode string `json:"mode" validate:"oneof=view forecast"`
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("frequency", func(fl validator.FieldLevel) bool {
		_, err := series.ParseFrequency(fl.Field().String())
		return err == nil
	})
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type defaults struct {
	frequency  string
	confidence float64
	periods    int
}

func parseSelection(q url.Values, d defaults) Selection {
	sel := Selection{
		Warehouse: strings.TrimSpace(q.Get("warehouse")),
		Product:   strings.TrimSpace(q.Get("product")),
		Frequency: strings.TrimSpace(q.Get("frequency")),
	}
	if sel.Frequency == "" {
		sel.Frequency = d.frequency
	}
	return sel
}

func parseForecastQuery(q url.Values, d defaults) (ForecastQuery, error) {
	fq := ForecastQuery{
		Selection:  parseSelection(q, d),
		Confidence: d.confidence,
		Periods:    d.periods,
	}
	if raw := strings.TrimSpace(q.Get("confidence")); raw != "" {
		conf, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fq, fmt.Errorf("%w, confidence %q is not a number", ErrInvalidQuery, raw)
		}
		fq.Confidence = conf
	}
	if raw := strings.TrimSpace(q.Get("periods")); raw != "" {
		periods, err := strconv.Atoi(raw)
		if err != nil {
			return fq, fmt.Errorf("%w, periods %q is not an integer", ErrInvalidQuery, raw)
		}
		fq.Periods = periods
	}
	return fq, nil
}

func parsePageQuery(q url.Values, d defaults) (PageQuery, error) {
	fq, err := parseForecastQuery(q, d)
	pq := PageQuery{ForecastQuery: fq, Mode: strings.ToLower(strings.TrimSpace(q.Get("mode")))}
	if pq.Mode == "" {
		pq.Mode = ModeView
	}
	return pq, err
}
