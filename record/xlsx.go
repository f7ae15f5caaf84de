package record

import (
	"io"

	"github.com/xuri/excelize/v2"
)

// LoadXLSX reads demand records from the first worksheet whose header row carries all of
// the required columns. Row handling matches Load.
func LoadXLSX(r io.Reader) ([]DemandRecord, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, newDataLoadError("", err)
	}
	defer f.Close()

	var lastMissing []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, newDataLoadError("", err)
		}
		if len(rows) == 0 {
			continue
		}
		if _, missing := columnIndex(rows[0]); len(missing) > 0 {
			lastMissing = missing
			continue
		}
		return fromRows(rows)
	}

	if lastMissing == nil {
		lastMissing = RequiredColumns
	}
	return nil, &DataLoadError{Missing: lastMissing, Err: ErrNoSheet}
}
