package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"caja/internal/amqp"
	"caja/internal/core"
	"caja/internal/legacy"
	clog "caja/internal/log"
	"caja/internal/store"
)

// Outcome reports what the reconciler did with a snapshot.
type Outcome int

const (
	// OutcomeSkipped: the reconciler already ran in this process.
	OutcomeSkipped Outcome = iota
	// OutcomeExisting: the store had entries; they are canonical.
	OutcomeExisting
	// OutcomeMigrated: legacy entries were inserted and the cache cleared.
	OutcomeMigrated
	// OutcomeSeeded: seed entries were inserted.
	OutcomeSeeded
	// OutcomeFailed: the insert failed; the store is still empty.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeExisting:
		return "existing"
	case OutcomeMigrated:
		return "migrated"
	case OutcomeSeeded:
		return "seeded"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Inserted reports whether the outcome wrote to the store; the snapshot that
// triggered it is then stale and must not be rendered.
func (o Outcome) Inserted() bool {
	return o == OutcomeMigrated || o == OutcomeSeeded
}

// Reconciler decides, on the first snapshot of a process, whether the store
// keeps its contents, receives the legacy cache or receives seed data. It
// runs at most once: every later snapshot is canonical.
type Reconciler struct {
	batch     store.BatchInserter
	legacy    legacy.Cache
	seed      func() []core.Entry
	publisher ChangePublisher

	mu   sync.Mutex
	done bool
	last Outcome
}

// ChangePublisher announces ledger changes to other processes.
type ChangePublisher interface {
	PublishLedgerChange(ctx context.Context, year, operation, entryID string) error
}

func NewReconciler(batch store.BatchInserter, cache legacy.Cache, seed func() []core.Entry) *Reconciler {
	if cache == nil {
		cache = legacy.Empty{}
	}
	return &Reconciler{batch: batch, legacy: cache, seed: seed}
}

// WithPublisher announces imported years after a migration or seed.
func (r *Reconciler) WithPublisher(p ChangePublisher) *Reconciler {
	r.publisher = p
	return r
}

// Done reports whether the reconciler has already handled a snapshot.
func (r *Reconciler) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}

// Last returns the outcome of the run, or OutcomeSkipped before it.
func (r *Reconciler) Last() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Reconcile handles snap. Only the first call in the process does any work;
// the flag is set before the insert, so a failed run is not retried until
// the next process start.
func (r *Reconciler) Reconcile(ctx context.Context, snap store.Snapshot) Outcome {
	r.mu.Lock()
	if r.done {
		r.mu.Unlock()
		return OutcomeSkipped
	}
	r.done = true
	r.mu.Unlock()

	out := r.run(ctx, snap)

	r.mu.Lock()
	r.last = out
	r.mu.Unlock()
	return out
}

func (r *Reconciler) run(ctx context.Context, snap store.Snapshot) Outcome {
	cached, err := r.legacy.Load(ctx)
	if err != nil {
		if len(snap.Entries) > 0 {
			return OutcomeExisting
		}
		slog.ErrorContext(ctx, "Failed to read legacy cache", clog.FieldComponent, clog.ComponentReconciler, clog.FieldError, err)
		return OutcomeFailed
	}

	if len(snap.Entries) > 0 {
		if len(cached) > 0 {
			slog.WarnContext(ctx, "Store already has entries, legacy cache left untouched",
				clog.FieldComponent, clog.ComponentReconciler,
				"store_entries", len(snap.Entries),
				"legacy_entries", len(cached))
		}
		return OutcomeExisting
	}

	if len(cached) > 0 {
		if err := r.batch.BatchInsert(ctx, stripIDs(cached)); err != nil {
			slog.ErrorContext(ctx, "Legacy migration failed, cache kept for next start",
				clog.FieldComponent, clog.ComponentReconciler, "entries", len(cached), clog.FieldError, err)
			return OutcomeFailed
		}
		slog.InfoContext(ctx, "Legacy entries migrated", clog.FieldComponent, clog.ComponentReconciler, "entries", len(cached))
		if err := r.legacy.Clear(ctx); err != nil {
			// Entries are committed; a stale cache is ignored once the store is non-empty.
			slog.ErrorContext(ctx, "Failed to clear legacy cache", clog.FieldComponent, clog.ComponentReconciler, clog.FieldError, err)
		}
		r.announce(ctx, cached)
		return OutcomeMigrated
	}

	var seeds []core.Entry
	if r.seed != nil {
		seeds = r.seed()
	}
	if len(seeds) == 0 {
		slog.InfoContext(ctx, "Store empty and no seed configured", clog.FieldComponent, clog.ComponentReconciler)
		return OutcomeExisting
	}
	if err := r.batch.BatchInsert(ctx, stripIDs(seeds)); err != nil {
		slog.ErrorContext(ctx, "Seeding failed", clog.FieldComponent, clog.ComponentReconciler, "entries", len(seeds), clog.FieldError, err)
		return OutcomeFailed
	}
	slog.InfoContext(ctx, "Seed entries inserted", clog.FieldComponent, clog.ComponentReconciler, "entries", len(seeds))
	r.announce(ctx, seeds)
	return OutcomeSeeded
}

func (r *Reconciler) announce(ctx context.Context, entries []core.Entry) {
	if r.publisher == nil {
		return
	}
	years := map[string]struct{}{}
	for _, e := range entries {
		if y := e.Date.Year(); y != "" {
			years[y] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(years))
	for y := range years {
		sorted = append(sorted, y)
	}
	sort.Strings(sorted)
	for _, y := range sorted {
		if err := r.publisher.PublishLedgerChange(ctx, y, amqp.OpImport, ""); err != nil {
			slog.ErrorContext(ctx, "Failed to publish import message", clog.FieldComponent, clog.ComponentReconciler, "year", y, clog.FieldError, err)
		}
	}
}

func stripIDs(entries []core.Entry) []core.Entry {
	out := make([]core.Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Fields()
	}
	return out
}
