package worker

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"caja/internal/amqp"
	"caja/internal/core"
	"caja/internal/export"
	clog "caja/internal/log"
	"caja/internal/sheets"
)

// EntrySource is the read side of the ledger the worker rebuilds from.
type EntrySource interface {
	ListEntriesByYear(ctx context.Context, year string) ([]core.Entry, error)
	Years(ctx context.Context) ([]string, error)
}

// SummaryWorker keeps one "Resumen_<year>" tab per ledger year in sync
// with the entries stored in SQLite.
type SummaryWorker struct {
	source      EntrySource
	mirror      sheets.Mirror
	tax         core.Taxonomy
	concurrency int
}

func NewSummaryWorker(source EntrySource, mirror sheets.Mirror, tax core.Taxonomy, concurrency int) *SummaryWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &SummaryWorker{
		source:      source,
		mirror:      mirror,
		tax:         tax,
		concurrency: concurrency,
	}
}

// HandleLedgerChange rebuilds the summary of the year a change touched.
func (w *SummaryWorker) HandleLedgerChange(ctx context.Context, msg *amqp.LedgerChangeMessage) error {
	slog.InfoContext(ctx, "Processing ledger change",
		clog.FieldComponent, clog.ComponentWorker,
		"year", msg.Year,
		"operation", msg.Operation,
		"entry_id", msg.EntryID)

	if _, err := w.SyncYear(ctx, msg.Year); err != nil {
		return fmt.Errorf("sync year %s: %w", msg.Year, err)
	}
	return nil
}

// SyncYear writes the summary of year unless the tab already holds the
// same content. It reports whether a write happened.
func (w *SummaryWorker) SyncYear(ctx context.Context, year string) (bool, error) {
	entries, err := w.source.ListEntriesByYear(ctx, year)
	if err != nil {
		return false, fmt.Errorf("list entries: %w", err)
	}
	table := export.SummaryTable(core.ComputePivot(entries, w.tax, year), w.tax)

	current, err := w.mirror.ReadTable(ctx, table.Sheet)
	if err != nil {
		slog.WarnContext(ctx, "Could not read current summary, rewriting",
			clog.FieldComponent, clog.ComponentWorker, "sheet", table.Sheet, clog.FieldError, err)
	} else if sheets.Equal(current, table) {
		slog.DebugContext(ctx, "Summary up to date", clog.FieldComponent, clog.ComponentWorker, "sheet", table.Sheet)
		return false, nil
	}

	if err := w.mirror.WriteTable(ctx, table); err != nil {
		return false, fmt.Errorf("write %s: %w", table.Sheet, err)
	}
	slog.InfoContext(ctx, "Summary written",
		clog.FieldComponent, clog.ComponentWorker,
		"sheet", table.Sheet,
		"entries", len(entries))
	return true, nil
}

// SyncAll rebuilds every year present in the ledger. It recovers from
// messages missed while the worker was down.
func (w *SummaryWorker) SyncAll(ctx context.Context) error {
	years, err := w.source.Years(ctx)
	if err != nil {
		return fmt.Errorf("list years: %w", err)
	}
	if len(years) == 0 {
		slog.InfoContext(ctx, "No ledger years to sync", clog.FieldComponent, clog.ComponentWorker)
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	written := make([]bool, len(years))
	for i, year := range years {
		g.Go(func() error {
			ok, err := w.SyncYear(gctx, year)
			if err != nil {
				return fmt.Errorf("sync year %s: %w", year, err)
			}
			written[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	n := 0
	for _, ok := range written {
		if ok {
			n++
		}
	}
	slog.InfoContext(ctx, "Summary sync completed",
		clog.FieldComponent, clog.ComponentWorker,
		"years", len(years),
		"written", n)
	return nil
}
