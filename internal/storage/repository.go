package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"caja/internal/core"
	clog "caja/internal/log"
	"caja/internal/store"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the durable ledger store. Snapshots are fanned out to
// in-process subscribers only.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries

	mu       sync.Mutex // serializes writes with their snapshot reads
	revision uint64
	hub      *store.Hub
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite has a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		hub:     store.NewHub(),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	r.hub.Close()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Insert implements store.Inserter.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Entry) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := toRow(e)
	if err := r.queries.InsertEntry(ctx, row); err != nil {
		return "", fmt.Errorf("insert entry: %w", err)
	}

	slog.DebugContext(ctx, "Entry saved to SQLite",
		clog.FieldComponent, clog.ComponentStorage,
		clog.FieldEntryID, row.ID,
		clog.FieldEntryDate, row.Date,
		clog.FieldEntryType, row.Type,
		clog.FieldCategory, row.Category,
		clog.FieldAmountCents, row.AmountCents)

	r.publishLocked(ctx)
	return row.ID, nil
}

// BatchInsert implements store.BatchInserter in a single transaction.
func (r *SQLiteRepository) BatchInsert(ctx context.Context, entries []core.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	q := r.queries.WithTx(tx)
	for i, e := range entries {
		if err := q.InsertEntry(ctx, toRow(e)); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert batch entry %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	slog.InfoContext(ctx, "Entries batch saved to SQLite",
		clog.FieldComponent, clog.ComponentStorage,
		clog.FieldOperation, clog.OpImport,
		"count", len(entries))
	r.publishLocked(ctx)
	return nil
}

// Delete implements store.Deleter.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, err := r.queries.DeleteEntry(ctx, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete entry %s: %w", id, store.ErrNotFound)
	}

	slog.DebugContext(ctx, "Entry deleted from SQLite",
		clog.FieldComponent, clog.ComponentStorage,
		clog.FieldEntryID, id)
	r.publishLocked(ctx)
	return nil
}

// Subscribe implements store.Subscriber.
func (r *SQLiteRepository) Subscribe(obs store.Observer) store.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap, err := r.snapshotLocked(context.Background())
	if err != nil {
		return r.hub.AddErr(obs, err)
	}
	return r.hub.Add(obs, snap)
}

// ListEntries returns every entry ordered as in snapshots.
func (r *SQLiteRepository) ListEntries(ctx context.Context) ([]core.Entry, error) {
	rows, err := r.queries.ListEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return fromRows(rows), nil
}

// ListEntriesByYear returns the entries whose date falls in year.
func (r *SQLiteRepository) ListEntriesByYear(ctx context.Context, year string) ([]core.Entry, error) {
	rows, err := r.queries.ListEntriesByYear(ctx, year)
	if err != nil {
		return nil, fmt.Errorf("list entries for %s: %w", year, err)
	}
	return fromRows(rows), nil
}

// Years returns the distinct entry years, most recent first.
func (r *SQLiteRepository) Years(ctx context.Context) ([]string, error) {
	years, err := r.queries.ListYears(ctx)
	if err != nil {
		return nil, fmt.Errorf("list years: %w", err)
	}
	return years, nil
}

// Count returns the number of stored entries.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountEntries(ctx)
	if err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return n, nil
}

// publishLocked bumps the revision after a committed write and notifies
// subscribers. A failed re-read is reported to them as a subscription error;
// the write itself already succeeded.
func (r *SQLiteRepository) publishLocked(ctx context.Context) {
	r.revision++
	snap, err := r.snapshotLocked(context.WithoutCancel(ctx))
	if err != nil {
		slog.ErrorContext(ctx, "Failed to read ledger snapshot",
			clog.FieldComponent, clog.ComponentStorage,
			clog.FieldRevision, r.revision,
			clog.FieldError, err)
		r.hub.PublishError(err)
		return
	}
	r.hub.Publish(snap)
}

func (r *SQLiteRepository) snapshotLocked(ctx context.Context) (store.Snapshot, error) {
	rows, err := r.queries.ListEntries(ctx)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read snapshot: %w", err)
	}
	return store.Snapshot{Revision: r.revision, Entries: fromRows(rows)}, nil
}

func toRow(e core.Entry) EntryRow {
	return EntryRow{
		ID:          uuid.NewString(),
		Date:        e.Date.String(),
		Type:        e.Type.String(),
		Category:    e.Category,
		Subcategory: e.Subcategory,
		Concept:     e.Concept,
		AmountCents: e.Amount.Cents,
		CreatedAt:   e.CreatedAt,
	}
}

func fromRows(rows []EntryRow) []core.Entry {
	out := make([]core.Entry, len(rows))
	for i, row := range rows {
		out[i] = core.Entry{
			ID:          row.ID,
			Date:        core.Date(row.Date),
			Type:        core.EntryType(row.Type),
			Category:    row.Category,
			Subcategory: row.Subcategory,
			Concept:     row.Concept,
			Amount:      core.Money{Cents: row.AmountCents},
			CreatedAt:   row.CreatedAt,
		}
	}
	core.SortEntries(out)
	return out
}
