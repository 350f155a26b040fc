// Package catalog reads tabular entity lists (CSV or XLSX) for the trip
// planner. Headers are matched case-insensitively against a small set of
// aliases, so "Latitude", "lat" and "LAT" all land in the same column.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/cases"
)

var (
	// ErrEmpty is returned for a table with no data rows.
	ErrEmpty = errors.New("catalog: no rows")
	// ErrFormat is returned for a file extension the reader does not know.
	ErrFormat = errors.New("catalog: unsupported file format")
)

// Entity is one row of the trip planner's input.
type Entity struct {
	Name      string
	Latitude  float64
	Longitude float64
	Units     int // resource units the entity contributes
	Priority  int
}

type column int

const (
	colName column = iota
	colLat
	colLon
	colUnits
	colPriority
	numColumns
)

var aliases = map[string]column{
	"name": colName, "village": colName, "entity": colName, "id": colName,
	"lat": colLat, "latitude": colLat,
	"lon": colLon, "lng": colLon, "long": colLon, "longitude": colLon,
	"units": colUnits, "resourceunits": colUnits, "resource_units": colUnits,
	"crew": colUnits, "workers": colUnits,
	"priority": colPriority, "weight": colPriority,
}

var headerStrip = strings.NewReplacer(" ", "", "-", "", "\ufeff", "")

// normalizeHeader folds case; a Caser is stateful, so one per call.
func normalizeHeader(h string) string {
	return headerStrip.Replace(cases.Fold().String(strings.TrimSpace(h)))
}

// Load reads entities from a .csv or .xlsx file.
func Load(path string) ([]Entity, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("catalog: open %s: %w", path, err)
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, "")
	}
	return nil, fmt.Errorf("%w: %s", ErrFormat, path)
}

// ReadCSV reads a header row followed by entity rows.
func ReadCSV(r io.Reader) ([]Entity, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("catalog: read csv: %w", err)
	}
	return FromRows(rows)
}

// ReadXLSX reads the named sheet, or the first sheet when sheet is empty.
func ReadXLSX(path, sheet string) ([]Entity, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrEmpty
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("catalog: read sheet %q: %w", sheet, err)
	}
	return FromRows(rows)
}

// FromRows maps a header row plus data rows to entities. name and units
// columns are required; coordinates default to 0 and priority to 1.
// Blank rows are skipped.
func FromRows(rows [][]string) ([]Entity, error) {
	if len(rows) < 2 {
		return nil, ErrEmpty
	}
	idx := [numColumns]int{-1, -1, -1, -1, -1}
	for i, h := range rows[0] {
		if c, ok := aliases[normalizeHeader(h)]; ok && idx[c] < 0 {
			idx[c] = i
		}
	}
	if idx[colName] < 0 {
		return nil, fmt.Errorf("catalog: no name column in header %q", rows[0])
	}
	if idx[colUnits] < 0 {
		return nil, fmt.Errorf("catalog: no units column in header %q", rows[0])
	}

	var out []Entity
	for r, row := range rows[1:] {
		if blank(row) {
			continue
		}
		line := r + 2
		cell := func(c column) string {
			if i := idx[c]; i >= 0 && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		e := Entity{Name: cell(colName), Priority: 1}
		if e.Name == "" {
			return nil, fmt.Errorf("catalog: row %d: empty name", line)
		}
		var err error
		if e.Units, err = intCell(cell(colUnits), 0); err != nil {
			return nil, fmt.Errorf("catalog: row %d: units: %w", line, err)
		}
		if e.Priority, err = intCell(cell(colPriority), 1); err != nil {
			return nil, fmt.Errorf("catalog: row %d: priority: %w", line, err)
		}
		if e.Latitude, err = floatCell(cell(colLat)); err != nil {
			return nil, fmt.Errorf("catalog: row %d: latitude: %w", line, err)
		}
		if e.Longitude, err = floatCell(cell(colLon)); err != nil {
			return nil, fmt.Errorf("catalog: row %d: longitude: %w", line, err)
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, ErrEmpty
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// intCell accepts integers and integral decimals ("12", "12.0").
func intCell(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%q is not a whole number", s)
	}
	return int(f), nil
}

func floatCell(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
