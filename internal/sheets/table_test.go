package sheets

import (
	"testing"

	"caja/internal/export"
)

func sampleTable() export.Table {
	return export.Table{
		Sheet:   "Resumen_2025",
		Headers: []string{"Tipo", "Categoría", "Total"},
		Rows: [][]any{
			{"Egreso", "RRHH", 1577666.0},
			{},
			{"BALANCE", "DIFERENCIA", -40.5},
		},
	}
}

func TestCells(t *testing.T) {
	cells := Cells(sampleTable())
	if len(cells) != 4 {
		t.Fatalf("expected 4 lines, got %d", len(cells))
	}
	if cells[1][2] != "1577666" || cells[3][2] != "-40.5" {
		t.Fatalf("unexpected number rendering: %v", cells)
	}
	if len(cells[2]) != 0 {
		t.Fatalf("blank row must stay empty: %v", cells[2])
	}
}

func TestEqual(t *testing.T) {
	tbl := sampleTable()
	cases := []struct {
		name    string
		current [][]string
		want    bool
	}{
		{"identical", Cells(tbl), true},
		{"trailing blanks", append(Cells(tbl), []string{"", ""}, nil), true},
		{"missing tab", nil, false},
		{"changed value", [][]string{
			{"Tipo", "Categoría", "Total"},
			{"Egreso", "RRHH", "1"},
			{},
			{"BALANCE", "DIFERENCIA", "-40.5"},
		}, false},
		{"trailing empty cell", [][]string{
			{"Tipo", "Categoría", "Total", ""},
			{"Egreso", "RRHH", "1577666"},
			{},
			{"BALANCE", "DIFERENCIA", "-40.5"},
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Equal(tc.current, tbl); got != tc.want {
				t.Fatalf("Equal = %v, want %v", got, tc.want)
			}
		})
	}
}
