// Package seed builds the historical entries used to bootstrap an empty ledger.
package seed

import (
	"fmt"

	"github.com/google/uuid"

	"caja/internal/core"
)

// FallbackSubcategory is used when a seeded category has no subcategories
// in the taxonomy.
const FallbackSubcategory = "Otros"

// LocalIDPrefix marks identifiers that only live in memory; they are
// stripped before entries are persisted.
const LocalIDPrefix = "seed-"

// Row is one category's monthly amounts, in whole currency units, index 0 = January.
type Row struct {
	Type     core.EntryType
	Category string
	Amounts  [12]int64
}

// HistoricalTable is an ordered list of rows. Row order drives entry order.
type HistoricalTable []Row

// Generate expands the table into one entry per (category, month) with a
// positive amount, dated on the first day of the month of year.
func Generate(table HistoricalTable, tax core.Taxonomy, year int) []core.Entry {
	concept := fmt.Sprintf("Importación %d", year)
	var out []core.Entry
	for _, row := range table {
		sub := FallbackSubcategory
		if tax.Has(row.Type, row.Category) {
			if first := tax.FirstSubcategory(row.Type, row.Category); first != "" {
				sub = first
			}
		}
		for i, amt := range row.Amounts {
			if amt <= 0 {
				continue
			}
			out = append(out, core.Entry{
				ID:          LocalIDPrefix + uuid.NewString(),
				Date:        core.NewDate(year, i+1, 1),
				Type:        row.Type,
				Category:    row.Category,
				Subcategory: sub,
				Concept:     concept,
				Amount:      core.MoneyFromUnits(amt),
			})
		}
	}
	return out
}

// DefaultHistory returns the organization's 2025 monthly figures.
func DefaultHistory() HistoricalTable {
	return HistoricalTable{
		{core.Egreso, "SEDE - Gastos Fijos", [12]int64{1577666, 1888340, 986513, 1815000, 1815000, 1815000, 1935471, 1935471, 1935471, 2049888, 2049888, 2049888}},
		{core.Egreso, "SEDE - Servicios", [12]int64{799844, 475622, 4823848, 932071, 2805113, 1209385, 2357515, 4155143, 4035129, 2985993, 9404795, 10739299}},
		{core.Egreso, "RRHH", [12]int64{3045004, 2681245, 3382081, 3980672, 4559879, 3879415, 3657101, 4082980, 2906761, 4053573, 3033474, 5203891}},
		{core.Ingreso, "INGRESOS POR TALLERES", [12]int64{0, 0, 0, 0, 10000, 75000, 0, 105000, 0, 0, 0, 180000}},
		{core.Ingreso, "INGRESOS POR ECOs", [12]int64{0, 90000, 90000, 123000, 50000, 200000, 0, 0, 0, 0, 180000, 0}},
		{core.Ingreso, "INGRESOS POR CUOTA CLUB", [12]int64{770800, 676400, 874970, 835870, 926620, 858500, 898420, 1003670, 825240, 866240, 738440, 1189145}},
		{core.Ingreso, "INGRESOS POR U.V", [12]int64{1485000, 1203000, 1400000, 3350400, 2020000, 1714160, 2149000, 1417000, 1986000, 2288000, 2486000, 2007000}},
		{core.Ingreso, "DISPENSARIO", [12]int64{2180000, 5300000, 4545000, 3567000, 2211500, 2320000, 3403000, 3246000, 4045000, 4795000, 5730000, 13325000}},
		{core.Ingreso, "DONACIONES", [12]int64{202800, 195840, 215390, 189740, 236950, 238790, 237800, 267450, 767580, 818920, 216970, 326170}},
		{core.Ingreso, "CAPACITA/UNPAZ", [12]int64{156834, 0, 1786100, 484000, 571500, 208500, 1419500, 1352500, 667500, 1293000, 672000, 406500}},
		{core.Ingreso, "INGRESOS POR VENTAS", [12]int64{383500, 117600, 950100, 518900, 305800, 232390, 16000, 123500, 169000, 16628341, 442777, 0}},
		{core.Ingreso, "SEMAS", [12]int64{37200, 49000, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
	}
}
