package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"caja/internal/amqp"
	"caja/internal/auth"
	"caja/internal/core"
	clog "caja/internal/log"
	"caja/internal/store"
)

// UserError carries a message that can be shown to the user as is.
type UserError struct {
	Msg string
	Err error
}

func (e *UserError) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *UserError) Unwrap() error { return e.Err }

// UserMessage returns the user-facing text of err, or fallback.
func UserMessage(err error, fallback string) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Msg
	}
	return fallback
}

var inputErrors = []error{
	core.ErrInvalidDate,
	core.ErrInvalidType,
	core.ErrInvalidAmount,
	core.ErrConceptTooLong,
	core.ErrUnknownCategory,
	core.ErrUnknownSubcategory,
}

// IsInvalidInput reports whether err was caused by the submitted form
// rather than by the store or by permissions.
func IsInvalidInput(err error) bool {
	var ue *UserError
	if !errors.As(err, &ue) {
		return false
	}
	if ue.Err == nil {
		return true
	}
	for _, target := range inputErrors {
		if errors.Is(ue.Err, target) {
			return true
		}
	}
	return false
}

const msgInvalidAmount = "Monto inválido. Ingresá solo números, con coma o punto para los centavos (1500 o 1500,50)."

// EntryForm is the raw new-entry form input.
type EntryForm struct {
	Date        string
	Type        string
	Category    string
	Subcategory string
	Concept     string
	Amount      string
}

// LedgerService performs ledger writes. It never touches feed state: the
// effect of a write becomes visible through the store subscription.
type LedgerService struct {
	inserter  store.Inserter
	deleter   store.Deleter
	tax       core.Taxonomy
	publisher ChangePublisher
	now       func() time.Time
}

func NewLedgerService(inserter store.Inserter, deleter store.Deleter, tax core.Taxonomy, publisher ChangePublisher) *LedgerService {
	return &LedgerService{
		inserter:  inserter,
		deleter:   deleter,
		tax:       tax,
		publisher: publisher,
		now:       time.Now,
	}
}

// ParseForm turns form input into a validated entry stamped with the
// creation time.
func (s *LedgerService) ParseForm(form EntryForm) (core.Entry, error) {
	if strings.TrimSpace(form.Amount) == "" || strings.TrimSpace(form.Category) == "" {
		return core.Entry{}, &UserError{Msg: "Completá el monto y la categoría."}
	}
	cents, err := core.ParseDecimalToCents(form.Amount)
	if err != nil {
		return core.Entry{}, &UserError{Msg: msgInvalidAmount, Err: err}
	}
	e := core.Entry{
		Date:        core.Date(strings.TrimSpace(form.Date)),
		Type:        core.EntryType(form.Type),
		Category:    form.Category,
		Subcategory: form.Subcategory,
		Concept:     strings.TrimSpace(form.Concept),
		Amount:      core.Money{Cents: cents},
		CreatedAt:   core.Timestamp(s.now()),
	}
	if err := e.Validate(s.tax); err != nil {
		return core.Entry{}, &UserError{Msg: validationMessage(err), Err: err}
	}
	return e, nil
}

// Submit records a new entry and returns its store id.
func (s *LedgerService) Submit(ctx context.Context, p auth.Principal, form EntryForm) (string, error) {
	e, err := s.ParseForm(form)
	if err != nil {
		return "", err
	}
	sl := clog.NewStructuredLogger(clog.FromContext(ctx))
	id, err := s.inserter.Insert(ctx, e)
	if err != nil {
		sl.LogError(ctx, "Failed to save entry", err, clog.ComponentLedger, clog.OpCreate,
			clog.NewFields().WithEntry("", e.Type.String(), e.Date.String(), e.Amount.Cents, e.Category, e.Subcategory))
		return "", &UserError{Msg: "Error al guardar en la nube: " + err.Error(), Err: err}
	}
	sl.LogEntryCreated(ctx, id, e.Type.String(), e.Date.String(), e.Amount.Cents, e.Category, e.Subcategory)

	s.publish(ctx, e.Date.Year(), amqp.OpCreate, id)
	return id, nil
}

// Delete removes an entry. Only admins may delete.
func (s *LedgerService) Delete(ctx context.Context, p auth.Principal, id string, year string) error {
	if err := auth.Authorize(p, auth.ActionDeleteEntry); err != nil {
		return &UserError{Msg: "No tenés permisos para eliminar registros.", Err: err}
	}
	sl := clog.NewStructuredLogger(clog.FromContext(ctx))
	if err := s.deleter.Delete(ctx, id); err != nil {
		f := clog.NewFields()
		f[clog.FieldEntryID] = id
		sl.LogError(ctx, "Failed to delete entry", err, clog.ComponentLedger, clog.OpDelete, f)
		return &UserError{Msg: "Error al eliminar: " + err.Error(), Err: err}
	}
	sl.LogEntryDeleted(ctx, id, year)

	s.publish(ctx, year, amqp.OpDelete, id)
	return nil
}

func (s *LedgerService) publish(ctx context.Context, year, op, id string) {
	if s.publisher == nil || year == "" {
		return
	}
	// The write already succeeded; a lost notification only delays the mirror.
	if err := s.publisher.PublishLedgerChange(ctx, year, op, id); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ledger change",
			clog.FieldComponent, clog.ComponentLedger,
			clog.FieldEntryID, id,
			clog.FieldYear, year,
			clog.FieldError, err)
	}
}

func validationMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		return "Fecha inválida."
	case errors.Is(err, core.ErrInvalidType):
		return "Tipo de movimiento inválido."
	case errors.Is(err, core.ErrInvalidAmount):
		return msgInvalidAmount
	case errors.Is(err, core.ErrConceptTooLong):
		return fmt.Sprintf("El concepto no puede superar los %d caracteres.", core.MaxConceptLength)
	case errors.Is(err, core.ErrUnknownCategory):
		return "Categoría desconocida."
	case errors.Is(err, core.ErrUnknownSubcategory):
		return "Subcategoría desconocida."
	}
	return fmt.Sprintf("Datos inválidos: %v", err)
}
