package http

import (
	"context"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"caja/internal/auth"
	"caja/internal/core"
	clog "caja/internal/log"
	"caja/internal/services"
)

type entryForm struct {
	Date        string
	Type        core.EntryType
	Category    string
	Subcategory string
	Concept     string
	Amount      string
}

type dashboardPage struct {
	User          auth.Principal
	Ready         bool
	StoreError    string
	Totals        core.Totals
	Types         []core.EntryType
	Categories    []string
	Subcategories []string
	Form          entryForm
	Entries       []core.Entry
	Flash         string
	Error         string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p, _ := principalFrom(r.Context())
	q := r.URL.Query()

	sel := ParseSelection(q, s.feed.Taxonomy())
	date := core.Date(strings.TrimSpace(q.Get("date")))
	if date.Validate() != nil {
		date = core.DateOf(s.now())
	}
	form := entryForm{
		Date:        string(date),
		Type:        sel.Type,
		Category:    sel.Category,
		Subcategory: sel.Subcategory,
	}
	s.renderDashboard(w, r, http.StatusOK, p, form, flashMessages[q.Get("flash")], "")
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, p auth.Principal, form entryForm, flash, errMsg string) {
	tax := s.feed.Taxonomy()
	page := dashboardPage{
		User:          p,
		Ready:         s.feed.Ready(),
		Totals:        s.feed.Totals(),
		Types:         tax.Types(),
		Categories:    tax.Categories(form.Type),
		Subcategories: tax.Subcategories(form.Type, form.Category),
		Form:          form,
		Entries:       s.feed.Latest(latestEntries),
		Flash:         flash,
		Error:         errMsg,
	}
	if err := s.feed.LastError(); err != nil {
		page.StoreError = "Se perdió la conexión con la base de datos. Los datos mostrados pueden estar desactualizados."
	}
	s.render(w, r, status, "dashboard.html", page)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := principalFrom(ctx)

	body := NewRequestBodyParser(r)
	if err := body.Parse(); err != nil {
		BadRequestError("Formato de solicitud inválido.").Write(w)
		return
	}
	in := ParseEntryForm(body)

	id, err := s.ledger.Submit(ctx, p, in)
	if err != nil {
		status := http.StatusInternalServerError
		if services.IsInvalidInput(err) {
			status = http.StatusUnprocessableEntity
		}
		form := entryForm{
			Date:        in.Date,
			Type:        core.EntryType(in.Type),
			Category:    in.Category,
			Subcategory: in.Subcategory,
			Concept:     in.Concept,
			Amount:      in.Amount,
		}
		if !form.Type.Valid() {
			form.Type = s.feed.Taxonomy().Default().Type
		}
		s.renderDashboard(w, r, status, p, form, "", services.UserMessage(err, "No se pudo guardar el movimiento."))
		return
	}

	s.awaitConfirmation(ctx, services.HasEntry(id))

	// Date, type and category stay selected; concept and amount reset.
	sel := core.Selection{Type: core.EntryType(in.Type), Category: in.Category, Subcategory: in.Subcategory}
	NewResponse().Redirect(dashboardURL(sel, core.Date(in.Date), flashCreated)).Write(w)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p, _ := principalFrom(ctx)
	if err := auth.Authorize(p, auth.ActionDeleteEntry); err != nil {
		ForbiddenError("No tenés permisos para eliminar registros.").Write(w)
		return
	}

	id := r.PathValue("id")
	entry, ok := s.findEntry(id)
	if !ok {
		NotFoundError("El registro ya no existe.").Write(w)
		return
	}

	if err := s.ledger.Delete(ctx, p, id, entry.Date.Year()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, auth.ErrForbidden) {
			status = http.StatusForbidden
		}
		s.renderDashboard(w, r, status, p, s.defaultForm(), "", services.UserMessage(err, "No se pudo eliminar el registro."))
		return
	}

	s.awaitConfirmation(ctx, func(entries []core.Entry) bool { return !services.HasEntry(id)(entries) })
	NewResponse().Redirect(dashboardURL(core.Selection{}, "", flashDeleted)).Write(w)
}

// awaitConfirmation waits briefly for the store to deliver a write back
// through the feed, so the redirected page shows it. A timeout is logged;
// the write itself already succeeded.
func (s *Server) awaitConfirmation(ctx context.Context, cond func([]core.Entry) bool) {
	ctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()
	if err := s.feed.WaitFor(ctx, cond); err != nil {
		clog.FromContext(ctx).WarnContext(ctx, "Write not yet visible in the ledger feed", clog.FieldError, err)
	}
}

func (s *Server) findEntry(id string) (core.Entry, bool) {
	for _, e := range s.feed.Entries() {
		if e.ID == id {
			return e, true
		}
	}
	return core.Entry{}, false
}

func (s *Server) defaultForm() entryForm {
	sel := s.feed.Taxonomy().Default()
	return entryForm{
		Date:        string(core.DateOf(s.now())),
		Type:        sel.Type,
		Category:    sel.Category,
		Subcategory: sel.Subcategory,
	}
}

// handleCategoryOptions returns the category options of ?type= with the
// first one selected.
func (s *Server) handleCategoryOptions(w http.ResponseWriter, r *http.Request) {
	sel := ParseSelection(r.URL.Query(), s.feed.Taxonomy())
	writeOptions(w, s.feed.Taxonomy().Categories(sel.Type), sel.Category)
}

// handleSubcategoryOptions returns the subcategory options of
// ?type=&category=; an empty list yields a single empty option.
func (s *Server) handleSubcategoryOptions(w http.ResponseWriter, r *http.Request) {
	sel := ParseSelection(r.URL.Query(), s.feed.Taxonomy())
	writeOptions(w, s.feed.Taxonomy().Subcategories(sel.Type, sel.Category), sel.Subcategory)
}

func writeOptions(w http.ResponseWriter, values []string, selected string) {
	var b strings.Builder
	if len(values) == 0 {
		b.WriteString(`<option value="">(sin subcategoría)</option>`)
	}
	for _, v := range values {
		esc := template.HTMLEscapeString(v)
		b.WriteString(`<option value="` + esc + `"`)
		if v == selected {
			b.WriteString(` selected`)
		}
		b.WriteString(`>` + esc + `</option>`)
	}
	NewResponse().BodyHTML(b.String()).Header("Cache-Control", "no-store").Write(w)
}
