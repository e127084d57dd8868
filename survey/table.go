package survey

import (
	"math"
	"strconv"
	"strings"
)

// Table is the raw, column-named table consumed by the mapper.
type Table interface {
	// Len returns the number of data rows.
	Len() int
	// Columns returns the column names in file order.
	Columns() []string
	// HasColumn reports whether the named column exists.
	HasColumn(name string) bool
	// Cell returns the raw value as read and whether it is present (non-missing).
	Cell(column string, row int) (string, bool)
	// Float returns the numeric value of a cell, NaN when missing, non-numeric or infinite.
	Float(column string, row int) float64
}

// missingTokens are the raw spellings of a missing cell.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"-nan": {},
	"NULL": {},
	"null": {},
	"None": {},
	"<NA>": {},
	"#N/A": {},
}

// IsMissing reports whether a raw cell value denotes a missing value.
func IsMissing(raw string) bool {
	_, ok := missingTokens[strings.TrimSpace(raw)]
	return ok
}

// ParseFloat converts a raw cell to a float. Missing, non-numeric and infinite
// cells become NaN; ok is false only for present cells that failed to parse.
func ParseFloat(raw string) (v float64, ok bool) {
	s := strings.TrimSpace(raw)
	if IsMissing(s) {
		return math.NaN(), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN(), false
	}
	if math.IsInf(f, 0) {
		return math.NaN(), true
	}
	return f, true
}

// RawTable is an in-memory Table built from a header and string rows.
// Short rows are padded with missing cells.
type RawTable struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// NewRawTable creates a table. Duplicate header names resolve to the first
// occurrence. rows is not copied.
func NewRawTable(header []string, rows [][]string) *RawTable {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return &RawTable{
		header: append([]string(nil), header...),
		index:  index,
		rows:   rows,
	}
}

func (t *RawTable) Len() int {
	return len(t.rows)
}

func (t *RawTable) Columns() []string {
	return append([]string(nil), t.header...)
}

func (t *RawTable) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *RawTable) Cell(column string, row int) (string, bool) {
	j, ok := t.index[column]
	if !ok || row < 0 || row >= len(t.rows) || j >= len(t.rows[row]) {
		return "", false
	}
	v := t.rows[row][j]
	if IsMissing(v) {
		return "", false
	}
	return v, true
}

func (t *RawTable) Float(column string, row int) float64 {
	v, present := t.Cell(column, row)
	if !present {
		return math.NaN()
	}
	f, _ := ParseFloat(v)
	return f
}

// Row returns the raw cells of one row.
func (t *RawTable) Row(i int) []string {
	return t.rows[i]
}
