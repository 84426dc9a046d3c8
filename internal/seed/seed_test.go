package seed

import (
	"strings"
	"testing"

	"caja/internal/core"
)

func TestGenerateDefaultHistory(t *testing.T) {
	tax := core.DefaultTaxonomy()
	entries := Generate(DefaultHistory(), tax, 2025)
	if len(entries) != 118 {
		t.Fatalf("expected 118 seed entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Date != "2025-01-01" || first.Type != core.Egreso || first.Category != "SEDE - Gastos Fijos" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
	if first.Subcategory != "Alquiler" || first.Concept != "Importación 2025" {
		t.Fatalf("unexpected first entry labels: %+v", first)
	}
	if first.Amount.Cents != 157766600 {
		t.Fatalf("unexpected first amount: %d", first.Amount.Cents)
	}

	seen := map[string]bool{}
	for _, e := range entries {
		if !strings.HasPrefix(e.ID, LocalIDPrefix) {
			t.Fatalf("entry id %q lacks local prefix", e.ID)
		}
		if seen[e.ID] {
			t.Fatalf("duplicate id %q", e.ID)
		}
		seen[e.ID] = true
		if e.Amount.Cents <= 0 {
			t.Fatalf("zero amounts must be skipped: %+v", e)
		}
		if err := e.Validate(tax); err != nil {
			t.Fatalf("seed entry does not validate: %+v: %v", e, err)
		}
	}

	p := core.ComputePivot(entries, tax, "2025")
	if got := p.Cell(core.Ingreso, "SEMAS", "02"); got != 4900000 {
		t.Fatalf("unexpected SEMAS/02: %d", got)
	}
	if got := p.Cell(core.Ingreso, "INGRESOS POR VENTAS", "12"); got != 0 {
		t.Fatalf("unexpected VENTAS/12: %d", got)
	}
}

func TestGenerateIsDeterministicOnValues(t *testing.T) {
	tax := core.DefaultTaxonomy()
	a := Generate(DefaultHistory(), tax, 2025)
	b := Generate(DefaultHistory(), tax, 2025)
	if len(a) != len(b) {
		t.Fatalf("length mismatch %d vs %d", len(a), len(b))
	}
	for i := range a {
		x, y := a[i], b[i]
		x.ID, y.ID = "", ""
		if x != y {
			t.Fatalf("entry %d differs: %+v vs %+v", i, x, y)
		}
	}
}

func TestGenerateFallbackSubcategory(t *testing.T) {
	tax, err := core.NewTaxonomy([]core.TypeGroup{
		{Type: core.Egreso, Categories: []core.CategoryNode{{Name: "SIN SUBS"}}},
		{Type: core.Ingreso, Categories: []core.CategoryNode{{Name: "CUOTAS", Subcategories: []string{"Mensual"}}}},
	})
	if err != nil {
		t.Fatalf("NewTaxonomy: %v", err)
	}
	table := HistoricalTable{
		{Type: core.Egreso, Category: "SIN SUBS", Amounts: [12]int64{0, 0, 5}},
		{Type: core.Ingreso, Category: "NO EXISTE", Amounts: [12]int64{7}},
		{Type: core.Ingreso, Category: "CUOTAS", Amounts: [12]int64{11: 3}},
	}
	entries := Generate(table, tax, 2024)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Subcategory != FallbackSubcategory || entries[0].Date != "2024-03-01" {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
	if entries[1].Subcategory != FallbackSubcategory {
		t.Fatalf("unknown category must use fallback: %+v", entries[1])
	}
	if entries[2].Subcategory != "Mensual" || entries[2].Date != "2024-12-01" || entries[2].Concept != "Importación 2024" {
		t.Fatalf("unexpected entry: %+v", entries[2])
	}
}
