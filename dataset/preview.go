package dataset

import "github.com/YuminosukeSato/exoplanet/survey"

// Preview returns a copy of table without the rows and columns whose cells
// are all missing.
func Preview(table *survey.RawTable) *survey.RawTable {
	columns := table.Columns()
	keepCol := make([]bool, len(columns))
	for j, c := range columns {
		for i := 0; i < table.Len(); i++ {
			if _, ok := table.Cell(c, i); ok {
				keepCol[j] = true
				break
			}
		}
	}

	var header []string
	for j, c := range columns {
		if keepCol[j] {
			header = append(header, c)
		}
	}

	var rows [][]string
	for i := 0; i < table.Len(); i++ {
		row := make([]string, 0, len(header))
		empty := true
		for j, c := range columns {
			if !keepCol[j] {
				continue
			}
			v, ok := table.Cell(c, i)
			if ok {
				empty = false
			}
			row = append(row, v)
		}
		if !empty {
			rows = append(rows, row)
		}
	}
	return survey.NewRawTable(header, rows)
}
