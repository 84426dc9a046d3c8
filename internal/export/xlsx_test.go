package export

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"caja/internal/core"
)

func TestWriteXLSX(t *testing.T) {
	tax := core.DefaultTaxonomy()
	tbl := SummaryTable(core.ComputePivot(entries(), tax, "2025"), tax)

	var buf bytes.Buffer
	if err := WriteXLSX(&buf, tbl); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "Resumen_2025" {
		t.Fatalf("unexpected sheets: %v", sheets)
	}
	header, err := f.GetCellValue("Resumen_2025", "A1")
	if err != nil || header != "Tipo" {
		t.Fatalf("unexpected header %q (err=%v)", header, err)
	}
	rows, err := f.GetRows("Resumen_2025")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	last := rows[len(rows)-1]
	if last[0] != "BALANCE" || last[1] != "DIFERENCIA" {
		t.Fatalf("unexpected last row: %v", last)
	}
}

func TestWriteXLSXMovements(t *testing.T) {
	tbl, err := MovementsTable(entries(), DateRange{}, "2025-06-01")
	if err != nil {
		t.Fatalf("MovementsTable: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteXLSX(&buf, tbl); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	v, err := f.GetCellValue("Movimientos", "F4")
	if err != nil || v != "40.5" {
		t.Fatalf("unexpected amount cell %q (err=%v)", v, err)
	}
}
