package services

import (
	"context"
	"sync"

	"caja/internal/core"
)

type fakeLegacy struct {
	mu       sync.Mutex
	entries  []core.Entry
	loadErr  error
	clearErr error
	cleared  bool
}

func (f *fakeLegacy) Load(context.Context) ([]core.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return append([]core.Entry(nil), f.entries...), nil
}

func (f *fakeLegacy) Clear(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.clearErr != nil {
		return f.clearErr
	}
	f.entries = nil
	f.cleared = true
	return nil
}

func (f *fakeLegacy) isCleared() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

type publishedChange struct {
	year, op, id string
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []publishedChange
	err  error
}

func (p *fakePublisher) PublishLedgerChange(_ context.Context, year, op, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, publishedChange{year, op, id})
	return p.err
}

func (p *fakePublisher) published() []publishedChange {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedChange(nil), p.msgs...)
}

func legacyEntries() []core.Entry {
	return []core.Entry{
		{ID: "1699999999001", Date: "2024-10-05", Type: core.Egreso, Category: "TARJETAS", Subcategory: "Visa", Amount: core.MoneyFromUnits(100)},
		{ID: "1699999999002", Date: "2024-11-07", Type: core.Ingreso, Category: "DONACIONES", Subcategory: "Mensual", Amount: core.MoneyFromUnits(250)},
	}
}

func seedTwo() []core.Entry {
	return []core.Entry{
		{ID: "seed-a", Date: "2025-01-01", Type: core.Egreso, Category: "RRHH", Subcategory: "Sueldos", Concept: "Importación 2025", Amount: core.MoneyFromUnits(10)},
		{ID: "seed-b", Date: "2025-02-01", Type: core.Ingreso, Category: "SEMAS", Subcategory: "Semas", Concept: "Importación 2025", Amount: core.MoneyFromUnits(20)},
	}
}
