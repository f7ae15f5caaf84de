package dashboard

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/components"

	"github.com/aouyang1/go-demand-forecaster/chart"
	"github.com/aouyang1/go-demand-forecaster/series"
)

const pageTitle = "Demand Forecast"

var formTmpl = template.Must(template.New("form").Parse(`<form method="get" action="/" style="font-family:sans-serif;margin:16px">
  <label>Warehouse
    <select name="warehouse">
      <option value=""></option>
      {{- range .Warehouses}}
      <option value="{{.}}"{{if eq . $.Query.Warehouse}} selected{{end}}>{{.}}</option>
      {{- end}}
    </select>
  </label>
  <label>Product
    <input name="product" list="products" value="{{.Query.Product}}">
    <datalist id="products">
      {{- range .Products}}
      <option value="{{.}}">
      {{- end}}
    </datalist>
  </label>
  <label>Frequency
    <select name="frequency">
      {{- range .Frequencies}}
      <option value="{{.}}"{{if eq . $.Frequency}} selected{{end}}>{{.}}</option>
      {{- end}}
    </select>
  </label>
  <label><input type="radio" name="mode" value="view"{{if ne .Query.Mode "forecast"}} checked{{end}}> View</label>
  <label><input type="radio" name="mode" value="forecast"{{if eq .Query.Mode "forecast"}} checked{{end}}> Forecast</label>
  <label>Confidence <input name="confidence" type="number" min="0" max="1" step="0.01" value="{{.Query.Confidence}}"></label>
  <label>Periods <input name="periods" type="number" min="1" value="{{.Query.Periods}}"></label>
  <button type="submit">Show</button>
  {{- with .Message}}
  <p>{{.}}</p>
  {{- end}}
</form>
`))

type formData struct {
	Query       PageQuery
	Warehouses  []string
	Products    []string
	Frequencies []string
	Frequency   string
	Message     string
}

// index renders the selection form and, once a warehouse and product are chosen, the chart of
// the view or forecast mode
func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	pq, err := parsePageQuery(r.URL.Query(), s.defaults)
	if err != nil {
		s.failPage(w, r, err)
		return
	}

	catalog := s.catalog(r)
	data := formData{
		Query:      pq,
		Warehouses: catalog.Warehouses(),
		Products:   catalog.Products(pq.Warehouse),
	}
	for _, freq := range series.Frequencies {
		data.Frequencies = append(data.Frequencies, freq.String())
	}
	if freq, err := series.ParseFrequency(pq.Frequency); err == nil {
		data.Frequency = freq.String()
	}

	var charts []components.Charter
	if pq.Warehouse != "" && pq.Product != "" {
		if err := s.validate.Struct(pq); err != nil {
			s.failPage(w, r, err)
			return
		}
		store, err := s.store(r)
		if err != nil {
			s.failPage(w, r, err)
			return
		}

		switch pq.Mode {
		case ModeForecast:
			if !s.allow() {
				s.failPage(w, r, ErrRateLimited)
				return
			}
			ser, out, err := s.runForecast(r.Context(), store, pq.ForecastQuery)
			if err != nil {
				s.failPage(w, r, err)
				return
			}
			charts = append(charts, chart.Forecast(ser, out, pq.Confidence))
		default:
			ser, err := s.aggregate(r.Context(), store, pq.Selection)
			if err != nil {
				s.failPage(w, r, err)
				return
			}
			if ser.Empty() {
				data.Message = "No demand recorded for this warehouse and product."
			} else {
				charts = append(charts, chart.View(ser))
			}
		}
	}

	var form bytes.Buffer
	if err := formTmpl.Execute(&form, data); err != nil {
		s.failPage(w, r, err)
		return
	}
	var page bytes.Buffer
	if err := chart.Render(&page, pageTitle, charts...); err != nil {
		s.failPage(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(injectForm(page.Bytes(), form.Bytes()))
}

// injectForm places the form at the top of the rendered chart page body
func injectForm(page, form []byte) []byte {
	marker := []byte("<body>")
	i := bytes.Index(page, marker)
	if i < 0 {
		return append(form, page...)
	}
	i += len(marker)
	out := make([]byte, 0, len(page)+len(form))
	out = append(out, page[:i]...)
	out = append(out, form...)
	return append(out, page[i:]...)
}
