package http

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"caja/internal/auth"
	"caja/internal/core"
	"caja/internal/export"
	clog "caja/internal/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type summaryRow struct {
	Label  string
	Months core.MonthValues
	Total  int64
}

type summaryBlock struct {
	Type     core.EntryType
	Rows     []summaryRow
	Subtotal summaryRow
}

type summaryPage struct {
	User       auth.Principal
	Year       string
	Years      []string
	Months     [12]string
	Blocks     []summaryBlock
	Difference summaryRow
	From, To   string
	Error      string
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	if auth.ResolveView(p, auth.ViewSummary) != auth.ViewSummary {
		NewResponse().Redirect("/").Write(w)
		return
	}
	s.renderSummary(w, r, http.StatusOK, p, "")
}

func (s *Server) renderSummary(w http.ResponseWriter, r *http.Request, status int, p auth.Principal, errMsg string) {
	q := r.URL.Query()
	years := s.feed.AvailableYears()
	year := ParseYear(q, years)
	s.render(w, r, status, "summary.html", buildSummaryPage(p, s.feed.Pivot(year), s.feed.Taxonomy(), years, q.Get("from"), q.Get("to"), errMsg))
}

func buildSummaryPage(p auth.Principal, pivot core.Pivot, tax core.Taxonomy, years []string, from, to, errMsg string) summaryPage {
	page := summaryPage{
		User:   p,
		Year:   pivot.Year,
		Years:  years,
		Months: core.MonthLabels,
		From:   from,
		To:     to,
		Error:  errMsg,
	}
	for _, typ := range core.EntryTypes() {
		block := summaryBlock{Type: typ}
		for _, cat := range tax.Categories(typ) {
			block.Rows = append(block.Rows, summaryRow{
				Label:  cat,
				Months: pivot.Row(typ, cat),
				Total:  pivot.RowTotal(typ, cat),
			})
		}
		block.Subtotal = summaryRow{
			Label:  "TOTAL " + strings.ToUpper(string(typ)),
			Months: pivot.Subtotal(typ),
			Total:  pivot.TypeTotal(typ),
		}
		page.Blocks = append(page.Blocks, block)
	}
	page.Difference = summaryRow{
		Label:  export.DifferenceLabel,
		Months: pivot.Difference(),
		Total:  pivot.DifferenceTotal(),
	}
	return page
}

// handleExportMovements streams the raw movements of the requested range.
// Only already-loaded feed entries are read.
func (s *Server) handleExportMovements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := principalFrom(ctx)
	if err := auth.Authorize(p, auth.ActionExport); err != nil {
		ForbiddenError("No tenés permisos para exportar.").Write(w)
		return
	}

	rng, err := ParseDateRange(r.URL.Query())
	if err != nil {
		s.renderSummary(w, r, http.StatusBadRequest, p, msgInvalidRange)
		return
	}
	table, err := export.MovementsTable(s.feed.Entries(), rng, core.DateOf(s.now()))
	if errors.Is(err, export.ErrNoMovements) {
		s.renderSummary(w, r, http.StatusUnprocessableEntity, p, export.MsgNoMovements)
		return
	}
	if err != nil {
		clog.FromContext(ctx).WithComponent(clog.ComponentExport).ErrorContext(ctx, "Movements export failed", clog.FieldError, err, clog.FieldOperation, clog.OpExport)
		InternalServerError("No se pudo generar el archivo.").Write(w)
		return
	}
	s.writeTable(w, r, table)
}

func (s *Server) handleExportSummary(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	if err := auth.Authorize(p, auth.ActionExport); err != nil {
		ForbiddenError("No tenés permisos para exportar.").Write(w)
		return
	}
	year := ParseYear(r.URL.Query(), s.feed.AvailableYears())
	s.writeTable(w, r, export.SummaryTable(s.feed.Pivot(year), s.feed.Taxonomy()))
}

// writeTable renders the workbook fully before sending headers, so a
// failure never leaves a truncated download.
func (s *Server) writeTable(w http.ResponseWriter, r *http.Request, t export.Table) {
	ctx := r.Context()
	logger := clog.FromContext(ctx).WithComponent(clog.ComponentExport)
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, t); err != nil {
		logger.ErrorContext(ctx, "Workbook rendering failed", clog.FieldError, err, clog.FieldOperation, clog.OpExport)
		InternalServerError("No se pudo generar el archivo.").Write(w)
		return
	}
	logger.InfoContext(ctx, "Export generated",
		clog.FieldOperation, clog.OpExport,
		"file", t.Filename,
		"rows", len(t.Rows))
	NewResponse().Attachment(t.Filename, xlsxContentType).Body(buf.Bytes()).Write(w)
}
