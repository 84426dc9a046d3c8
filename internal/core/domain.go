package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Egreso  EntryType = "Egreso"
	Ingreso EntryType = "Ingreso"
)

const (
	// DateLayout is the fixed-width layout every Date must follow.
	DateLayout = "2006-01-02"
	// CreatedAtLayout keeps timestamps fixed-width so they order as strings.
	CreatedAtLayout = "2006-01-02T15:04:05.000Z"
	// MaxConceptLength bounds the concept in characters, matching the form.
	MaxConceptLength = 200
)

type (
	EntryType string

	// Date is a zero-padded YYYY-MM-DD calendar day. Year and month are
	// extracted by position, so the string must always be 10 characters.
	Date string

	Money struct {
		Cents int64
	}

	Entry struct {
		ID          string // Assigned by the store, empty before insert
		Date        Date
		Type        EntryType
		Category    string
		Subcategory string
		Concept     string // Optional annotation
		Amount      Money
		CreatedAt   string // RFC3339, tie-breaker for same-day ordering
	}
)

var (
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidType        = errors.New("invalid entry type")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnknownCategory    = errors.New("unknown category")
	ErrUnknownSubcategory = errors.New("unknown subcategory")
	ErrConceptTooLong     = errors.New("concept too long")
)

// EntryTypes lists the types in the order they are presented and exported.
func EntryTypes() []EntryType {
	return []EntryType{Egreso, Ingreso}
}

func (t EntryType) Valid() bool {
	return t == Egreso || t == Ingreso
}

func (t EntryType) String() string {
	return string(t)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date(fmt.Sprintf("%04d-%02d-%02d", year, month, day))
}

// DateOf returns the calendar day of t in its own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Timestamp formats a creation time in UTC using CreatedAtLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(CreatedAtLayout)
}

func (d Date) Validate() error {
	if len(d) != len(DateLayout) {
		return ErrInvalidDate
	}
	if _, err := time.Parse(DateLayout, string(d)); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Year returns the 4-character year prefix, or "" for malformed dates.
func (d Date) Year() string {
	if len(d) < 4 {
		return ""
	}
	return string(d[:4])
}

// Month returns the 2-character month code ("01".."12"), or "" for malformed dates.
func (d Date) Month() string {
	if len(d) < 7 {
		return ""
	}
	return string(d[5:7])
}

func (d Date) String() string {
	return string(d)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Signed returns the balance contribution of an amount of the given type.
func (m Money) Signed(t EntryType) int64 {
	if t == Ingreso {
		return m.Cents
	}
	return -m.Cents
}

// Validate checks the entry against the taxonomy it is being recorded under.
func (e Entry) Validate(tax Taxonomy) error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if !e.Type.Valid() {
		return ErrInvalidType
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if utf8.RuneCountInString(e.Concept) > MaxConceptLength {
		return ErrConceptTooLong
	}
	if !tax.Has(e.Type, e.Category) {
		return fmt.Errorf("%w: %s/%s", ErrUnknownCategory, e.Type, e.Category)
	}
	subs := tax.Subcategories(e.Type, e.Category)
	if len(subs) == 0 {
		if strings.TrimSpace(e.Subcategory) != "" {
			return fmt.Errorf("%w: %s", ErrUnknownSubcategory, e.Subcategory)
		}
		return nil
	}
	for _, s := range subs {
		if s == e.Subcategory {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownSubcategory, e.Subcategory)
}

// Fields returns a copy of the entry without its identifier, ready for insertion.
func (e Entry) Fields() Entry {
	e.ID = ""
	return e
}
