package google

import (
	"testing"

	"caja/internal/export"
	ports "caja/internal/sheets"
)

func TestTableValues(t *testing.T) {
	tbl := export.Table{
		Headers: []string{"Tipo", "Total"},
		Rows:    [][]any{{"Egreso", 12.5}, {}},
	}
	values := tableValues(tbl)
	if len(values) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(values))
	}
	if values[0][0] != "Tipo" || values[1][1] != 12.5 || len(values[2]) != 0 {
		t.Fatalf("unexpected values: %v", values)
	}
}

func TestValuesToCellsRoundTrip(t *testing.T) {
	tbl := export.Table{
		Headers: []string{"Tipo", "Categoría", "Total"},
		Rows:    [][]any{{"Egreso", "RRHH", 1577666.0}, {}, {"BALANCE", "DIFERENCIA", -40.5}},
	}
	// The API returns JSON numbers as float64 and drops trailing blanks.
	read := [][]interface{}{
		{"Tipo", "Categoría", "Total"},
		{"Egreso", "RRHH", float64(1577666)},
		{},
		{"BALANCE", "DIFERENCIA", -40.5},
	}
	if !ports.Equal(valuesToCells(read), tbl) {
		t.Fatalf("read back values must match table: %v", valuesToCells(read))
	}
}

func TestQuoteSheet(t *testing.T) {
	cases := map[string]string{
		"Resumen_2025": "'Resumen_2025'",
		"Caja's":       "'Caja''s'",
	}
	for in, want := range cases {
		if got := quoteSheet(in); got != want {
			t.Fatalf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
