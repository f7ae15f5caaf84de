// Package record loads raw order demand rows into consolidated demand records, one per
// warehouse, product, category and date.
package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	ColWarehouse       = "Warehouse"
	ColProductCode     = "Product_Code"
	ColProductCategory = "Product_Category"
	ColDate            = "Date"
	ColOrderDemand     = "Order_Demand"
)

// RequiredColumns lists the header names every source must carry
var RequiredColumns = []string{
	ColWarehouse,
	ColProductCode,
	ColProductCategory,
	ColDate,
	ColOrderDemand,
}

var (
	digitRun = regexp.MustCompile(`[0-9]+`)

	dateLayouts = []string{
		"2006/1/2",
		"2006-1-2",
		"1/2/2006",
		"2006-01-02 15:04:05",
		time.RFC3339,
	}
)

// DemandRecord is one consolidated row of order demand
type DemandRecord struct {
	WarehouseID     string    `json:"warehouse"`
	ProductCode     string    `json:"product_code"`
	ProductCategory string    `json:"product_category"`
	Date            time.Time `json:"date"`
	OrderDemand     int64     `json:"order_demand"`
}

type key struct {
	warehouse string
	product   string
	category  string
	date      time.Time
}

func (r DemandRecord) key() key {
	return key{r.WarehouseID, r.ProductCode, r.ProductCategory, Day(r.Date)}
}

// Day truncates t to midnight UTC of its calendar date
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LoadFile reads demand records from a csv or xlsx file based on its extension
func LoadFile(path string) ([]DemandRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newDataLoadError(path, err)
	}
	defer f.Close()

	var records []DemandRecord
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", "":
		records, err = Load(f)
	case ".xlsx":
		records, err = LoadXLSX(f)
	default:
		return nil, newDataLoadError(path, fmt.Errorf("%q, %w", filepath.Ext(path), ErrUnknownFormat))
	}
	if err != nil {
		var loadErr *DataLoadError
		if errors.As(err, &loadErr) && loadErr.Source == "" {
			loadErr.Source = path
		}
		return nil, err
	}
	return records, nil
}

// Load reads delimited rows with a header line, drops incomplete rows, extracts the
// demand quantity and consolidates duplicate keys by summing their demand.
func Load(r io.Reader) ([]DemandRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, newDataLoadError("", err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]DemandRecord, error) {
	if len(rows) == 0 {
		return nil, &DataLoadError{Missing: RequiredColumns, Err: ErrMissingColumns}
	}

	idx, missing := columnIndex(rows[0])
	if len(missing) > 0 {
		return nil, &DataLoadError{Missing: missing, Err: ErrMissingColumns}
	}

	parsed := make([]DemandRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec, ok := parseRow(row, idx)
		if !ok {
			continue
		}
		parsed = append(parsed, rec)
	}
	return Consolidate(parsed), nil
}

func columnIndex(header []string) (map[string]int, []string) {
	idx := make(map[string]int, len(RequiredColumns))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		for _, col := range RequiredColumns {
			if _, seen := idx[col]; seen {
				continue
			}
			if strings.EqualFold(name, col) {
				idx[col] = i
			}
		}
	}

	var missing []string
	for _, col := range RequiredColumns {
		if _, exists := idx[col]; !exists {
			missing = append(missing, col)
		}
	}
	return idx, missing
}

func parseRow(row []string, idx map[string]int) (DemandRecord, bool) {
	fields := make(map[string]string, len(idx))
	for col, i := range idx {
		if i >= len(row) {
			return DemandRecord{}, false
		}
		val := strings.TrimSpace(row[i])
		if val == "" {
			return DemandRecord{}, false
		}
		fields[col] = val
	}

	demand, ok := ParseDemand(fields[ColOrderDemand])
	if !ok {
		return DemandRecord{}, false
	}
	date, ok := ParseDate(fields[ColDate])
	if !ok {
		return DemandRecord{}, false
	}

	return DemandRecord{
		WarehouseID:     fields[ColWarehouse],
		ProductCode:     fields[ColProductCode],
		ProductCategory: fields[ColProductCategory],
		Date:            date,
		OrderDemand:     demand,
	}, true
}

// ParseDemand extracts the first run of decimal digits from free text, e.g. "(100)" or
// "12 units". Text without a digit run, or a run that does not fit an int64, is rejected.
func ParseDemand(raw string) (int64, bool) {
	run := digitRun.FindString(raw)
	if run == "" {
		return 0, false
	}
	val, err := strconv.ParseInt(run, 10, 64)
	if err != nil {
		return 0, false
	}
	return val, true
}

// ParseDate parses a calendar date and truncates it to midnight UTC
func ParseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		return Day(t), true
	}
	return time.Time{}, false
}

// Consolidate sums the demand of records sharing a warehouse, product, category and date
// and returns one record per key sorted by that key. A sum that would overflow int64
// saturates at math.MaxInt64.
func Consolidate(records []DemandRecord) []DemandRecord {
	sums := make(map[key]int64, len(records))
	for _, rec := range records {
		k := rec.key()
		sums[k] = addDemand(sums[k], rec.OrderDemand)
	}

	out := make([]DemandRecord, 0, len(sums))
	for k, demand := range sums {
		out = append(out, DemandRecord{
			WarehouseID:     k.warehouse,
			ProductCode:     k.product,
			ProductCategory: k.category,
			Date:            k.date,
			OrderDemand:     demand,
		})
	}
	sortRecords(out)
	return out
}

// addDemand adds non negative demands, saturating instead of wrapping
func addDemand(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

func sortRecords(records []DemandRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.WarehouseID != b.WarehouseID {
			return a.WarehouseID < b.WarehouseID
		}
		if a.ProductCode != b.ProductCode {
			return a.ProductCode < b.ProductCode
		}
		if a.ProductCategory != b.ProductCategory {
			return a.ProductCategory < b.ProductCategory
		}
		return a.Date.Before(b.Date)
	})
}
