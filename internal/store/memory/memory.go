// Package memory is an in-process ledger store used for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"caja/internal/core"
	"caja/internal/store"
)

type Store struct {
	mu       sync.Mutex
	items    map[string]core.Entry
	order    []string // insertion order
	revision uint64
	failErr  error
	closed   bool
	hub      *store.Hub
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{items: make(map[string]core.Entry), hub: store.NewHub()}
}

// NewWithEntries returns a store preloaded with entries. Entries keep their
// ids when set, otherwise one is assigned.
func NewWithEntries(entries []core.Entry) *Store {
	s := New()
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		s.items[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	return s
}

// FailWrites makes every following write return err; nil restores normal behaviour.
func (s *Store) FailWrites(err error) {
	s.mu.Lock()
	s.failErr = err
	s.mu.Unlock()
}

// InjectError delivers err to every subscriber as a subscription error.
func (s *Store) InjectError(err error) {
	s.hub.PublishError(err)
}

func (s *Store) Insert(_ context.Context, e core.Entry) (string, error) {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return "", err
	}
	e.ID = uuid.NewString()
	s.items[e.ID] = e
	s.order = append(s.order, e.ID)
	snap := s.commitLocked()
	s.mu.Unlock()

	s.hub.Publish(snap)
	return e.ID, nil
}

func (s *Store) BatchInsert(_ context.Context, entries []core.Entry) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if len(entries) == 0 {
		s.mu.Unlock()
		return nil
	}
	for _, e := range entries {
		e.ID = uuid.NewString()
		s.items[e.ID] = e
		s.order = append(s.order, e.ID)
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.hub.Publish(snap)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.items[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, store.ErrNotFound)
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	snap := s.commitLocked()
	s.mu.Unlock()

	s.hub.Publish(snap)
	return nil
}

func (s *Store) Subscribe(obs store.Observer) store.Subscription {
	s.mu.Lock()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return s.hub.Add(obs, snap)
}

// Entries returns the current collection, ordered as in snapshots.
func (s *Store) Entries() []core.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked().Entries
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}

func (s *Store) writableLocked() error {
	if s.closed {
		return store.ErrClosed
	}
	return s.failErr
}

func (s *Store) commitLocked() store.Snapshot {
	s.revision++
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() store.Snapshot {
	entries := make([]core.Entry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.items[id])
	}
	core.SortEntries(entries)
	return store.Snapshot{Revision: s.revision, Entries: entries}
}
