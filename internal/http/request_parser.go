package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"caja/internal/core"
	"caja/internal/export"
	"caja/internal/services"
)

const maxBodyBytes = 64 << 10

var errInvalidRange = errors.New("invalid date range")

const msgInvalidRange = "Rango de fechas inválido."

// RequestBodyParser reads a form-encoded or JSON body once and serves its
// fields as sanitized strings.
type RequestBodyParser struct {
	body        []byte
	contentType string
	jsonData    map[string]interface{}
	formData    url.Values
	parsed      bool
	err         error
}

// NewRequestBodyParser reads at most 64 KiB of the request body.
func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{
		contentType: r.Header.Get("Content-Type"),
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body as JSON when it looks like a JSON object and as
// form values otherwise.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	if len(p.body) == 0 {
		p.formData = url.Values{}
		return nil
	}

	if p.body[0] == '{' {
		p.jsonData = make(map[string]interface{})
		if err := json.Unmarshal(p.body, &p.jsonData); err != nil {
			p.err = err
			return err
		}
		return nil
	}

	p.formData, p.err = url.ParseQuery(string(p.body))
	return p.err
}

// Get returns the trimmed, sanitized value of key.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(val))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON reports whether the body was parsed as JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

func stringValue(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// ParseEntryForm maps the new-entry body fields onto an EntryForm.
func ParseEntryForm(p *RequestBodyParser) services.EntryForm {
	return services.EntryForm{
		Date:        p.Get("date"),
		Type:        p.Get("type"),
		Category:    p.Get("category"),
		Subcategory: p.Get("subcategory"),
		Concept:     p.Get("concept"),
		Amount:      p.Get("amount"),
	}
}

// ParseDateRange reads the inclusive from/to export bounds. Missing bounds
// leave that side open.
func ParseDateRange(q url.Values) (export.DateRange, error) {
	rng := export.DateRange{
		From: core.Date(strings.TrimSpace(q.Get("from"))),
		To:   core.Date(strings.TrimSpace(q.Get("to"))),
	}
	for _, d := range []core.Date{rng.From, rng.To} {
		if d != "" && d.Validate() != nil {
			return export.DateRange{}, errInvalidRange
		}
	}
	if rng.From != "" && rng.To != "" && rng.To < rng.From {
		return export.DateRange{}, errInvalidRange
	}
	return rng, nil
}

// ParseYear returns the requested year when it is one of years, otherwise
// the first (most recent) of years.
func ParseYear(q url.Values, years []string) string {
	if y := strings.TrimSpace(q.Get("year")); y != "" && slices.Contains(years, y) {
		return y
	}
	if len(years) == 0 {
		return ""
	}
	return years[0]
}

// ParseSelection applies ?type=&category=&subcategory= to the taxonomy
// defaults with the same rules as the form: a type change resets the
// category, a category change resets the subcategory.
func ParseSelection(q url.Values, tax core.Taxonomy) core.Selection {
	sel := tax.Default()
	typ := core.EntryType(strings.TrimSpace(q.Get("type")))
	if !typ.Valid() {
		return sel
	}
	sel = sel.WithType(tax, typ)

	cat := strings.TrimSpace(q.Get("category"))
	if cat == "" || !tax.Has(typ, cat) {
		return sel
	}
	sel = sel.WithCategory(tax, cat)

	if sub := strings.TrimSpace(q.Get("subcategory")); sub != "" && slices.Contains(tax.Subcategories(typ, cat), sub) {
		sel.Subcategory = sub
	}
	return sel
}
