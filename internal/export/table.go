// Package export turns ledger entries and annual summaries into tables and
// writes them as spreadsheets. It only works on entries already loaded.
package export

import (
	"errors"
	"sort"
	"strings"

	"caja/internal/core"
)

// ErrNoMovements is returned instead of an empty movements export.
var ErrNoMovements = errors.New("no movements in date range")

// MsgNoMovements is shown when a movements export is refused.
const MsgNoMovements = "No se encontraron movimientos registrados en ese rango de fechas exacto."

var (
	MovementsHeaders = []string{"Fecha", "Tipo", "Categoría", "Subcategoría", "Concepto", "Monto"}
	MovementsSheet   = "Movimientos"
)

const (
	BalanceLabel    = "BALANCE"
	DifferenceLabel = "DIFERENCIA"
)

// Table is a named sheet with a header row. Rows may be shorter than the
// header; an empty row is a blank spacer line. Cells are strings or float64.
type Table struct {
	Sheet    string
	Filename string
	Headers  []string
	Rows     [][]any
}

// DateRange bounds a movements export; empty ends are open.
type DateRange struct {
	From core.Date
	To   core.Date
}

func (r DateRange) contains(d core.Date) bool {
	if r.From != "" && d < r.From {
		return false
	}
	if r.To != "" && d > r.To {
		return false
	}
	return true
}

// MovementsTable lists the entries within rng, oldest first.
func MovementsTable(entries []core.Entry, rng DateRange, today core.Date) (Table, error) {
	var picked []core.Entry
	for _, e := range entries {
		if rng.contains(e.Date) {
			picked = append(picked, e)
		}
	}
	if len(picked) == 0 {
		return Table{}, ErrNoMovements
	}
	sort.SliceStable(picked, func(i, j int) bool { return picked[i].Date < picked[j].Date })

	t := Table{
		Sheet:    MovementsSheet,
		Filename: "caja_movimientos_" + today.String() + ".xlsx",
		Headers:  MovementsHeaders,
		Rows:     make([][]any, 0, len(picked)),
	}
	for _, e := range picked {
		t.Rows = append(t.Rows, []any{
			e.Date.String(),
			e.Type.String(),
			e.Category,
			e.Subcategory,
			e.Concept,
			units(e.Amount.Cents),
		})
	}
	return t, nil
}

// SummaryHeaders returns the annual summary columns.
func SummaryHeaders() []string {
	h := []string{"Tipo", "Categoría"}
	h = append(h, core.MonthCodes[:]...)
	return append(h, "Total")
}

// SummarySheetName is the tab name of a year's summary.
func SummarySheetName(year string) string {
	return "Resumen_" + year
}

// SummaryTable renders the pivot in taxonomy order: for each type its
// category rows, a subtotal row and a blank spacer; then the balance row.
func SummaryTable(p core.Pivot, tax core.Taxonomy) Table {
	t := Table{
		Sheet:    SummarySheetName(p.Year),
		Filename: "resumen_anual_" + p.Year + ".xlsx",
		Headers:  SummaryHeaders(),
	}
	for _, typ := range core.EntryTypes() {
		for _, cat := range tax.Categories(typ) {
			t.Rows = append(t.Rows, monthRow(typ.String(), cat, p.Row(typ, cat)))
		}
		t.Rows = append(t.Rows, monthRow(typ.String(), "TOTAL "+strings.ToUpper(typ.String()), p.Subtotal(typ)))
		t.Rows = append(t.Rows, []any{})
	}
	t.Rows = append(t.Rows, monthRow(BalanceLabel, DifferenceLabel, p.Difference()))
	return t
}

func monthRow(label, category string, v core.MonthValues) []any {
	row := make([]any, 0, 15)
	row = append(row, label, category)
	for _, cents := range v {
		row = append(row, units(cents))
	}
	return append(row, units(v.Sum()))
}

func units(cents int64) float64 {
	return core.Money{Cents: cents}.Decimal().InexactFloat64()
}
