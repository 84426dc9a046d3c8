package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"caja/internal/core"
)

func TestRequestBodyParser_JSON(t *testing.T) {
	body := `{"amount": 100.5, "concept": "  Café\u0007 ", "type": "Egreso"}`
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !parser.IsJSON() {
		t.Error("Expected IsJSON() to be true")
	}
	if got := parser.Get("amount"); got != "100.5" {
		t.Errorf("Get('amount') = %q, want '100.5'", got)
	}
	if got := parser.Get("concept"); got != "Café" {
		t.Errorf("Get('concept') = %q, want sanitized 'Café'", got)
	}
	if got := parser.Get("missing"); got != "" {
		t.Errorf("Get('missing') = %q, want empty", got)
	}
}

func TestRequestBodyParser_Form(t *testing.T) {
	form := url.Values{"date": {"2025-01-15"}, "category": {"TARJETAS"}}
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if parser.IsJSON() {
		t.Error("Expected IsJSON() to be false for form data")
	}
	f := ParseEntryForm(parser)
	if f.Date != "2025-01-15" || f.Category != "TARJETAS" || f.Amount != "" {
		t.Errorf("unexpected form %+v", f)
	}
}

func TestRequestBodyParser_EmptyAndInvalid(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(""))
	parser := NewRequestBodyParser(req)
	if err := parser.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if val := parser.Get("anything"); val != "" {
		t.Errorf("Get on empty body = %q", val)
	}

	req = httptest.NewRequest(http.MethodPost, "/entries", strings.NewReader(`{"broken"`))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Error("expected malformed JSON to fail")
	}
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name    string
		query   url.Values
		want    string
		wantErr bool
	}{
		{"open", url.Values{}, "-", false},
		{"from only", url.Values{"from": {"2025-01-01"}}, "2025-01-01-", false},
		{"both", url.Values{"from": {"2025-01-01"}, "to": {"2025-01-31"}}, "2025-01-01-2025-01-31", false},
		{"same day", url.Values{"from": {"2025-01-15"}, "to": {"2025-01-15"}}, "2025-01-15-2025-01-15", false},
		{"reversed", url.Values{"from": {"2025-02-01"}, "to": {"2025-01-01"}}, "", true},
		{"malformed", url.Values{"from": {"1/2/2025"}}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng, err := ParseDateRange(tt.query)
			if tt.wantErr {
				if !errors.Is(err, errInvalidRange) {
					t.Fatalf("expected errInvalidRange, got %+v (err=%v)", rng, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDateRange: %v", err)
			}
			if got := string(rng.From) + "-" + string(rng.To); got != tt.want {
				t.Errorf("range = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseYear(t *testing.T) {
	years := []string{"2026", "2025", "2024"}
	tests := []struct {
		query url.Values
		want  string
	}{
		{url.Values{"year": {"2025"}}, "2025"},
		{url.Values{"year": {"1999"}}, "2026"},
		{url.Values{}, "2026"},
	}
	for _, tt := range tests {
		if got := ParseYear(tt.query, years); got != tt.want {
			t.Errorf("ParseYear(%v) = %q, want %q", tt.query, got, tt.want)
		}
	}
	if got := ParseYear(url.Values{}, nil); got != "" {
		t.Errorf("ParseYear with no years = %q", got)
	}
}

func TestParseSelection(t *testing.T) {
	tax := core.DefaultTaxonomy()
	def := tax.Default()

	tests := []struct {
		name  string
		query url.Values
		want  core.Selection
	}{
		{"defaults", url.Values{}, def},
		{"unknown type", url.Values{"type": {"Otro"}}, def},
		{"type resets category", url.Values{"type": {"Ingreso"}}, tax.Select(core.Ingreso)},
		{
			"category keeps type",
			url.Values{"type": {"Egreso"}, "category": {"TARJETAS"}},
			tax.Select(core.Egreso).WithCategory(tax, "TARJETAS"),
		},
		{
			"category of other type ignored",
			url.Values{"type": {"Ingreso"}, "category": {"TARJETAS"}},
			tax.Select(core.Ingreso),
		},
		{
			"explicit subcategory",
			url.Values{"type": {"Egreso"}, "category": {"TARJETAS"}, "subcategory": {"Visa"}},
			core.Selection{Type: core.Egreso, Category: "TARJETAS", Subcategory: "Visa"},
		},
		{
			"unknown subcategory resets",
			url.Values{"type": {"Egreso"}, "category": {"TARJETAS"}, "subcategory": {"Amex"}},
			tax.Select(core.Egreso).WithCategory(tax, "TARJETAS"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseSelection(tt.query, tax); got != tt.want {
				t.Errorf("ParseSelection = %+v, want %+v", got, tt.want)
			}
		})
	}
}
