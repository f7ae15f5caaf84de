package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forecaster "github.com/aouyang1/go-demand-forecaster"
	"github.com/aouyang1/go-demand-forecaster/holiday"
	"github.com/aouyang1/go-demand-forecaster/internal/config"
	"github.com/aouyang1/go-demand-forecaster/internal/dashboard"
	"github.com/aouyang1/go-demand-forecaster/preparer"
	"github.com/aouyang1/go-demand-forecaster/series"
)

// writeData writes 60 days of constant demand for Whse_A/P1 and a single order of Whse_A/P2
func writeData(t *testing.T) string {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("Product_Code,Warehouse,Product_Category,Date,Order_Demand\n")
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range 60 {
		fmt.Fprintf(&sb, "P1,Whse_A,C1,%s,10\n", start.AddDate(0, 0, i).Format("2006/1/2"))
	}
	sb.WriteString("P2,Whse_A,C1,2023/1/5,(3)\n")
	sb.WriteString("P9,Whse_B,C2,2023/1/5,4\n")

	path := filepath.Join(t.TempDir(), "demand.csv")
	require.Nil(t, os.WriteFile(path, []byte(sb.String()), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, "")

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), err
}

func TestList(t *testing.T) {
	data := writeData(t)

	out, err := run(t, "list", "--data", data)
	require.Nil(t, err)
	var whs dashboard.WarehousesResponse
	require.Nil(t, json.Unmarshal([]byte(out), &whs))
	assert.Equal(t, []string{"Whse_A", "Whse_B"}, whs.Warehouses)

	out, err = run(t, "list", "Whse_A", "--data", data)
	require.Nil(t, err)
	var prods dashboard.ProductsResponse
	require.Nil(t, json.Unmarshal([]byte(out), &prods))
	assert.Equal(t, []string{"P1", "P2"}, prods.Products)

	_, err = run(t, "list", "Whse_Z", "--data", data)
	assert.ErrorIs(t, err, dashboard.ErrUnknownWarehouse)
}

func TestView(t *testing.T) {
	data := writeData(t)

	out, err := run(t, "view", "--data", data, "-w", "Whse_A", "-p", "P1", "-f", "Monthly")
	require.Nil(t, err)
	var s series.Series
	require.Nil(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, series.Monthly, s.Frequency)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, []float64{310, 280, 10}, s.Values())

	html := filepath.Join(t.TempDir(), "view.html")
	_, err = run(t, "view", "--data", data, "-w", "Whse_A", "-p", "P1", "--out", html)
	require.Nil(t, err)
	page, err := os.ReadFile(html)
	require.Nil(t, err)
	assert.Contains(t, string(page), "Demand for P1 at Whse_A")

	_, err = run(t, "view", "--data", data, "-w", "Whse_A", "-p", "P1", "-f", "hourly")
	assert.ErrorIs(t, err, series.ErrUnknownFrequency)
}

func TestForecast(t *testing.T) {
	data := writeData(t)
	dir := t.TempDir()
	modelOut := filepath.Join(dir, "model.json")
	fitOut := filepath.Join(dir, "fit.html")

	out, err := run(t, "forecast", "--data", data, "-w", "Whse_A", "-p", "P1",
		"--periods", "7", "--confidence", "0.9", "--model-out", modelOut, "--fit-out", fitOut)
	require.Nil(t, err)

	var rows preparer.Output
	require.Nil(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 67)
	assert.Equal(t, time.Date(2023, 3, 8, 0, 0, 0, 0, time.UTC), rows[66].Date)
	for _, row := range rows {
		assert.InDelta(t, 10.0, row.Yhat, 1e-3)
		assert.GreaterOrEqual(t, row.YhatLower, 0.0)
		assert.GreaterOrEqual(t, row.YhatUpper, row.YhatLower)
	}

	raw, err := os.ReadFile(modelOut)
	require.Nil(t, err)
	var model forecaster.Model
	require.Nil(t, json.Unmarshal(raw, &model))
	f, err := forecaster.NewFromModel(model)
	require.Nil(t, err)
	res, err := f.Predict([]time.Time{time.Date(2023, 3, 2, 0, 0, 0, 0, time.UTC)})
	require.Nil(t, err)
	assert.InDelta(t, 10.0, res.Forecast[0], 1e-3)

	page, err := os.ReadFile(fitOut)
	require.Nil(t, err)
	assert.Contains(t, string(page), "echarts")
}

func TestForecastAll(t *testing.T) {
	data := writeData(t)

	out, err := run(t, "forecast", "--data", data, "-w", "Whse_A", "--all", "--periods", "3")
	require.Nil(t, err)

	var results []ProductForecast
	require.Nil(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "P1", results[0].Product)
	assert.Len(t, results[0].Output, 63)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, "P2", results[1].Product)
	assert.Empty(t, results[1].Output)
	assert.Contains(t, results[1].Error, "insufficient data")
}

func TestForecastErrors(t *testing.T) {
	data := writeData(t)

	testData := map[string]struct {
		args []string
		err  error
	}{
		"no product":         {args: []string{"-w", "Whse_A"}, err: preparer.ErrInvalidArgument},
		"single point":       {args: []string{"-w", "Whse_A", "-p", "P2"}, err: preparer.ErrInsufficientData},
		"empty intersection": {args: []string{"-w", "Whse_B", "-p", "P1"}, err: preparer.ErrInsufficientData},
		"bad confidence":     {args: []string{"-w", "Whse_A", "-p", "P1", "--confidence=2"}, err: preparer.ErrInvalidArgument},
		"bad periods":        {args: []string{"-w", "Whse_A", "-p", "P1", "--periods=-1"}, err: preparer.ErrInvalidArgument},
		"unknown profile":    {args: []string{"-w", "Whse_A", "-p", "P1", "--profile", "block"}, err: ErrUnknownProfile},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			args := append([]string{"forecast", "--data", data}, td.args...)
			_, err := run(t, args...)
			assert.ErrorIs(t, err, td.err)
		})
	}
}

func TestHolidays(t *testing.T) {
	out, err := run(t, "holidays", "--from", "2021", "--to", "2021")
	require.Nil(t, err)

	var tbl holiday.Table
	require.Nil(t, json.Unmarshal([]byte(out), &tbl))
	require.NotEmpty(t, tbl)
	assert.Contains(t, tbl.Names(), "Independence Day (observed)")
	for _, h := range tbl {
		assert.Equal(t, 2021, h.Date.Year())
		assert.Equal(t, 0, h.LowerWindow)
		assert.Equal(t, 1, h.UpperWindow)
	}

	_, err = run(t, "holidays", "--region", "atlantis")
	assert.ErrorIs(t, err, holiday.ErrUnknownRegion)
}

func TestMissingData(t *testing.T) {
	_, err := run(t, "list", "--data", filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}
