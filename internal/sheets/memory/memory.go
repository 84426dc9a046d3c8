package memory

import (
	"context"
	"sync"

	"caja/internal/export"
	"caja/internal/sheets"
)

var _ sheets.Mirror = (*Workbook)(nil)

// Workbook is an in-memory spreadsheet used when no remote mirror is
// configured and in tests.
type Workbook struct {
	mu      sync.Mutex
	tabs    map[string][][]string
	writes  int
	failErr error
}

func New() *Workbook {
	return &Workbook{tabs: map[string][][]string{}}
}

// FailWrites makes every following WriteTable return err; nil restores writes.
func (w *Workbook) FailWrites(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failErr = err
}

func (w *Workbook) WriteTable(_ context.Context, t export.Table) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failErr != nil {
		return w.failErr
	}
	w.tabs[t.Sheet] = sheets.Cells(t)
	w.writes++
	return nil
}

func (w *Workbook) ReadTable(_ context.Context, sheet string) ([][]string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cells, ok := w.tabs[sheet]
	if !ok {
		return nil, nil
	}
	out := make([][]string, len(cells))
	for i, row := range cells {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

// Writes counts successful WriteTable calls.
func (w *Workbook) Writes() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writes
}

// Sheets lists the tabs written so far.
func (w *Workbook) Sheets() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.tabs))
	for name := range w.tabs {
		out = append(out, name)
	}
	return out
}
