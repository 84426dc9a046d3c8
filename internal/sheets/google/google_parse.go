package google

import (
	"strings"

	"caja/internal/export"
	ports "caja/internal/sheets"
)

// tableValues converts a table into the values matrix the Sheets API
// expects: the header row first, blank rows kept as empty lines.
func tableValues(t export.Table) [][]interface{} {
	values := make([][]interface{}, 0, len(t.Rows)+1)
	header := make([]interface{}, len(t.Headers))
	for i, h := range t.Headers {
		header[i] = h
	}
	values = append(values, header)
	for _, row := range t.Rows {
		line := make([]interface{}, len(row))
		copy(line, row)
		values = append(values, line)
	}
	return values
}

// valuesToCells converts an unformatted values matrix (as returned by the
// Sheets API) into text cells comparable with ports.Cells.
func valuesToCells(values [][]interface{}) [][]string {
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = toStrings(row)
	}
	return out
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = ports.CellString(v)
	}
	return out
}

// quoteSheet quotes a tab name for use in A1 notation.
func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
