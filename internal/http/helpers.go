package http

import (
	"context"
	"html/template"
	"net/url"
	"strings"

	"caja/internal/auth"
	"caja/internal/core"
)

type principalKey struct{}

func withPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// principalFrom returns the session principal set by requireSession.
func principalFrom(ctx context.Context) (auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(auth.Principal)
	return p, ok
}

var templateFuncs = template.FuncMap{
	"money":     core.FormatCurrency,
	"monthName": monthName,
	"roleLabel": roleLabel,
	"isIncome":  func(t core.EntryType) bool { return t == core.Ingreso },
}

func monthName(i int) string {
	if i < 0 || i >= len(core.MonthLabels) {
		return ""
	}
	return core.MonthLabels[i]
}

func roleLabel(r auth.Role) string {
	if r == auth.RoleAdmin {
		return "Administrador"
	}
	return "Operador"
}

// sanitizeInput drops control characters other than tab and newlines and
// trims surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// originMatchesHost reports whether an Origin header names host.
func originMatchesHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}

// dashboardURL returns the dashboard location that keeps the sticky form
// fields of sel and date, plus an optional flash code.
func dashboardURL(sel core.Selection, date core.Date, flash string) string {
	q := url.Values{}
	if date != "" {
		q.Set("date", string(date))
	}
	if sel.Type != "" {
		q.Set("type", string(sel.Type))
	}
	if sel.Category != "" {
		q.Set("category", sel.Category)
	}
	if sel.Subcategory != "" {
		q.Set("subcategory", sel.Subcategory)
	}
	if flash != "" {
		q.Set("flash", flash)
	}
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

const (
	flashCreated = "created"
	flashDeleted = "deleted"
)

var flashMessages = map[string]string{
	flashCreated: "Movimiento registrado.",
	flashDeleted: "Registro eliminado.",
}
