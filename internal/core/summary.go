package core

import (
	"sort"
	"strconv"
	"time"
)

// ReferenceYear is always offered in the year selector; it is the year of
// the historical seed data.
const ReferenceYear = "2025"

// MonthCodes are the pivot column keys in calendar order.
var MonthCodes = [12]string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}

// MonthLabels are the short display names matching MonthCodes.
var MonthLabels = [12]string{"Ene", "Feb", "Mar", "Abr", "May", "Jun", "Jul", "Ago", "Sep", "Oct", "Nov", "Dic"}

// Totals is the all-time running balance over every entry.
type Totals struct {
	Balance Money // may be negative
	Income  Money
	Expense Money
}

// MonthValues holds one amount per calendar month, index 0 = January.
type MonthValues [12]int64

// Pivot is the category x month matrix of a single year.
type Pivot struct {
	Year      string
	Matrix    map[EntryType]map[string]*MonthValues
	Subtotals map[EntryType]*MonthValues
}

// ComputeTotals folds every entry regardless of date.
func ComputeTotals(entries []Entry) Totals {
	var t Totals
	for _, e := range entries {
		if e.Type == Ingreso {
			t.Income.Cents += e.Amount.Cents
		} else {
			t.Expense.Cents += e.Amount.Cents
		}
		t.Balance.Cents += e.Amount.Signed(e.Type)
	}
	return t
}

// ComputePivot builds the year-scoped matrix. Every taxonomy row is present
// with zero values; entries whose (type, category) is not in the taxonomy
// or whose month code is unrecognised are left out.
func ComputePivot(entries []Entry, tax Taxonomy, year string) Pivot {
	p := Pivot{
		Year:      year,
		Matrix:    make(map[EntryType]map[string]*MonthValues),
		Subtotals: make(map[EntryType]*MonthValues),
	}
	for _, typ := range tax.Types() {
		rows := make(map[string]*MonthValues)
		for _, cat := range tax.Categories(typ) {
			rows[cat] = &MonthValues{}
		}
		p.Matrix[typ] = rows
		p.Subtotals[typ] = &MonthValues{}
	}

	for _, e := range entries {
		if e.Date.Year() != year {
			continue
		}
		idx := monthIndex(e.Date.Month())
		if idx < 0 {
			continue
		}
		row, ok := p.Matrix[e.Type][e.Category]
		if !ok {
			continue
		}
		row[idx] += e.Amount.Cents
		p.Subtotals[e.Type][idx] += e.Amount.Cents
	}
	return p
}

// Cell returns the amount for (type, category, month code).
func (p Pivot) Cell(typ EntryType, category, month string) int64 {
	row, ok := p.Matrix[typ][category]
	idx := monthIndex(month)
	if !ok || idx < 0 {
		return 0
	}
	return row[idx]
}

// Row returns a copy of a category row; zero values for unknown rows.
func (p Pivot) Row(typ EntryType, category string) MonthValues {
	if row, ok := p.Matrix[typ][category]; ok {
		return *row
	}
	return MonthValues{}
}

// Subtotal returns the per-month subtotal row of a type.
func (p Pivot) Subtotal(typ EntryType) MonthValues {
	if row, ok := p.Subtotals[typ]; ok {
		return *row
	}
	return MonthValues{}
}

// RowTotal is the yearly total of a category row.
func (p Pivot) RowTotal(typ EntryType, category string) int64 {
	return p.Row(typ, category).Sum()
}

// TypeTotal is the yearly total of a type's subtotal row.
func (p Pivot) TypeTotal(typ EntryType) int64 {
	return p.Subtotal(typ).Sum()
}

// Difference is income minus expense for each month.
func (p Pivot) Difference() MonthValues {
	var out MonthValues
	in, eg := p.Subtotal(Ingreso), p.Subtotal(Egreso)
	for i := range out {
		out[i] = in[i] - eg[i]
	}
	return out
}

// DifferenceTotal is the sum of the monthly differences.
func (p Pivot) DifferenceTotal() int64 {
	return p.Difference().Sum()
}

func (v MonthValues) Sum() int64 {
	var total int64
	for _, x := range v {
		total += x
	}
	return total
}

// AvailableYears returns the distinct entry years plus the current year and
// ReferenceYear, most recent first.
func AvailableYears(entries []Entry, now time.Time) []string {
	seen := map[string]struct{}{
		strconv.Itoa(now.Year()): {},
		ReferenceYear:            {},
	}
	for _, e := range entries {
		if y := e.Date.Year(); y != "" {
			seen[y] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out
}

// SortEntries orders entries by date descending; same-day entries are
// ordered by creation time descending when both carry one.
func SortEntries(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Date != b.Date {
			return a.Date > b.Date
		}
		if a.CreatedAt != "" && b.CreatedAt != "" {
			return a.CreatedAt > b.CreatedAt
		}
		return false
	})
}

func monthIndex(code string) int {
	for i, m := range MonthCodes {
		if m == code {
			return i
		}
	}
	return -1
}
