package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"caja/internal/cache"
	"caja/internal/core"
	clog "caja/internal/log"
	"caja/internal/store"
)

// Feed is the read side of the ledger: the latest confirmed snapshot and the
// summaries derived from it. The subscription callback is its only writer.
type Feed struct {
	source store.Subscriber
	rec    *Reconciler
	tax    core.Taxonomy
	now    func() time.Time

	mu       sync.RWMutex
	entries  []core.Entry
	totals   core.Totals
	revision uint64
	ready    bool
	lastErr  error
	changed  chan struct{} // closed and replaced on every update
	sub      store.Subscription

	pivots *cache.LRUCache[core.Pivot]
	group  singleflight.Group
}

func NewFeed(source store.Subscriber, rec *Reconciler, tax core.Taxonomy) *Feed {
	return &Feed{
		source:  source,
		rec:     rec,
		tax:     tax,
		now:     time.Now,
		changed: make(chan struct{}),
		pivots:  cache.NewLRUCache[core.Pivot](32, time.Hour),
	}
}

// Start subscribes to the store. Calling it on a started feed is a no-op.
func (f *Feed) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sub != nil {
		return
	}
	f.sub = f.source.Subscribe(store.Observer{
		Snapshot: f.onSnapshot,
		Error:    f.onError,
	})
}

// Stop cancels the subscription; the last snapshot stays readable.
func (f *Feed) Stop() {
	f.mu.Lock()
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Restart re-subscribes, e.g. after a subscription error. The reconciler
// does not run again.
func (f *Feed) Restart() {
	f.Stop()
	f.Start()
}

func (f *Feed) onSnapshot(snap store.Snapshot) {
	if f.rec != nil {
		out := f.rec.Reconcile(context.Background(), snap)
		if out.Inserted() {
			// The store will redeliver with the inserted entries.
			return
		}
	}
	f.apply(snap)
}

func (f *Feed) onError(err error) {
	slog.Error("Ledger subscription error", clog.FieldComponent, clog.ComponentFeed, clog.FieldError, err)
	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()
}

func (f *Feed) apply(snap store.Snapshot) {
	entries := append([]core.Entry(nil), snap.Entries...)
	core.SortEntries(entries)
	totals := core.ComputeTotals(entries)

	f.mu.Lock()
	f.entries = entries
	f.totals = totals
	f.revision = snap.Revision
	f.ready = true
	f.lastErr = nil
	close(f.changed)
	f.changed = make(chan struct{})
	f.mu.Unlock()

	slog.Debug("Ledger snapshot applied",
		clog.FieldComponent, clog.ComponentFeed,
		clog.FieldRevision, snap.Revision,
		"entries", len(entries))
}

// Ready reports whether a snapshot has been rendered.
func (f *Feed) Ready() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.ready
}

func (f *Feed) Revision() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.revision
}

// LastError returns the subscription error seen since the last snapshot.
func (f *Feed) LastError() error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.lastErr
}

// Entries returns a copy of the current collection, newest first.
func (f *Feed) Entries() []core.Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]core.Entry(nil), f.entries...)
}

// Latest returns at most n entries, newest first.
func (f *Feed) Latest(n int) []core.Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if n > len(f.entries) {
		n = len(f.entries)
	}
	return append([]core.Entry(nil), f.entries[:n]...)
}

// Len returns the number of entries in the current collection.
func (f *Feed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

func (f *Feed) Totals() core.Totals {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.totals
}

func (f *Feed) Taxonomy() core.Taxonomy {
	return f.tax
}

// Pivot returns the annual summary of year, memoised per revision.
func (f *Feed) Pivot(year string) core.Pivot {
	f.mu.RLock()
	rev, entries := f.revision, f.entries
	f.mu.RUnlock()

	key := fmt.Sprintf("%d:%s", rev, year)
	if p, ok := f.pivots.Get(key); ok {
		return p
	}
	v, _, _ := f.group.Do(key, func() (interface{}, error) {
		p := core.ComputePivot(entries, f.tax, year)
		f.pivots.Set(key, p)
		return p, nil
	})
	return v.(core.Pivot)
}

// AvailableYears lists the selectable summary years, most recent first.
func (f *Feed) AvailableYears() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return core.AvailableYears(f.entries, f.now())
}

// WaitFor blocks until cond holds for the current entries or ctx is done.
func (f *Feed) WaitFor(ctx context.Context, cond func(entries []core.Entry) bool) error {
	for {
		f.mu.RLock()
		ok := f.ready && cond(f.entries)
		ch := f.changed
		f.mu.RUnlock()
		if ok {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitRevision blocks until a snapshot with at least rev has been rendered.
func (f *Feed) WaitRevision(ctx context.Context, rev uint64) error {
	for {
		f.mu.RLock()
		ok := f.ready && f.revision >= rev
		ch := f.changed
		f.mu.RUnlock()
		if ok {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// HasEntry reports whether id is in entries.
func HasEntry(id string) func([]core.Entry) bool {
	return func(entries []core.Entry) bool {
		for _, e := range entries {
			if e.ID == id {
				return true
			}
		}
		return false
	}
}
