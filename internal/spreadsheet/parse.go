package spreadsheet

import (
	"strings"

	"schoolattend/internal/importer"
)

// ParseStudents maps the header row through the alias table and turns each
// data row into an import row. Rows without an admission number are skipped.
func ParseStudents(rows [][]string) ([]importer.Row, error) {
	if len(rows) < 2 {
		return nil, importer.ErrNoRows
	}
	idx := importer.HeaderIndex(rows[0])
	if _, ok := idx[importer.FieldAdmissionNo]; !ok {
		return nil, importer.ErrNoRows
	}

	var out []importer.Row
	for i, cells := range rows[1:] {
		row := importer.Row{Line: i + 2}
		for f, col := range idx {
			row.Set(f, cellValue(cells, col))
		}
		if row.AdmissionNo == "" {
			continue
		}
		out = append(out, row)
	}
	if len(out) == 0 {
		return nil, importer.ErrNoRows
	}
	return out, nil
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
