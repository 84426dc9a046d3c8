package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"caja/internal/export"
)

// Cells renders the header and rows of t as text, one slice per line.
func Cells(t export.Table) [][]string {
	out := make([][]string, 0, len(t.Rows)+1)
	header := make([]string, len(t.Headers))
	copy(header, t.Headers)
	out = append(out, header)
	for _, row := range t.Rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = CellString(v)
		}
		out = append(out, line)
	}
	return out
}

// CellString formats a cell the way an unformatted spreadsheet read returns it.
func CellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}

// Equal reports whether current holds exactly the content of t. Trailing
// empty cells and rows are ignored since spreadsheets drop them on read.
func Equal(current [][]string, t export.Table) bool {
	a, b := trim(current), trim(Cells(t))
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				return false
			}
		}
	}
	return true
}

func trim(rows [][]string) [][]string {
	out := make([][]string, len(rows))
	for i, row := range rows {
		n := len(row)
		for n > 0 && strings.TrimSpace(row[n-1]) == "" {
			n--
		}
		out[i] = row[:n]
	}
	n := len(out)
	for n > 0 && len(out[n-1]) == 0 {
		n--
	}
	return out[:n]
}
