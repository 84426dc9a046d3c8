// Package legacy reads the entry list cached locally before the ledger had a
// shared store. The cache is consumed once, by the migration reconciler.
package legacy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	bolt "go.etcd.io/bbolt"

	"caja/internal/core"
	clog "caja/internal/log"
)

const (
	Bucket = "legacy"
	Key    = "finanzasRecords"
)

var ErrMalformed = errors.New("malformed legacy records")

// Cache is the legacy key-value collaborator.
type Cache interface {
	// Load returns the cached entries without their local ids; an absent
	// key yields no entries and no error.
	Load(ctx context.Context) ([]core.Entry, error)
	// Clear removes the cached list.
	Clear(ctx context.Context) error
}

// Record is the serialized shape of a cached entry.
type Record struct {
	ID          string `json:"id,omitempty"`
	Date        string `json:"date"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Concept     string `json:"concept"`
	Amount      Amount `json:"amount"`
	CreatedAt   string `json:"createdAt,omitempty"`
}

// Amount accepts a JSON number or string of currency units. A value that
// does not parse as a non-negative amount is kept as Invalid so the record
// can be skipped without failing the whole list.
type Amount struct {
	Cents   int64
	Invalid string
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	*a = Amount{}
	if s == "null" {
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	cents, err := core.DecimalToCents(s)
	if err != nil {
		a.Invalid = s
		return nil
	}
	a.Cents = cents
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(core.Money{Cents: a.Cents}.Decimal().String()), nil
}

// BoltCache keeps the legacy list in a bbolt file.
type BoltCache struct {
	db *bolt.DB
}

var _ Cache = (*BoltCache)(nil)

func Open(path string) (*BoltCache, error) {
	db, err := bolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open legacy cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(Bucket))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create legacy bucket: %w", err)
	}
	return &BoltCache{db: db}, nil
}

func (c *BoltCache) Close() error {
	return c.db.Close()
}

// Put stores a raw JSON list, replacing any previous one. The payload must
// decode as legacy records.
func (c *BoltCache) Put(raw []byte) error {
	if _, err := decode(raw); err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(Bucket)).Put([]byte(Key), raw)
	})
}

// Save serializes entries in the legacy format.
func (c *BoltCache) Save(entries []core.Entry) error {
	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = Record{
			ID:          e.ID,
			Date:        e.Date.String(),
			Type:        e.Type.String(),
			Category:    e.Category,
			Subcategory: e.Subcategory,
			Concept:     e.Concept,
			Amount:      Amount{Cents: e.Amount.Cents},
			CreatedAt:   e.CreatedAt,
		}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("marshal legacy records: %w", err)
	}
	return c.Put(raw)
}

func (c *BoltCache) Load(ctx context.Context) ([]core.Entry, error) {
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket([]byte(Bucket)).Get([]byte(Key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read legacy cache: %w", err)
	}
	if raw == nil {
		return nil, nil
	}
	records, err := decode(raw)
	if err != nil {
		return nil, err
	}

	out := make([]core.Entry, 0, len(records))
	for _, r := range records {
		e := core.Entry{
			Date:        core.Date(r.Date),
			Type:        core.EntryType(r.Type),
			Category:    r.Category,
			Subcategory: r.Subcategory,
			Concept:     r.Concept,
			Amount:      core.Money{Cents: r.Amount.Cents},
			CreatedAt:   r.CreatedAt,
		}
		if e.Date.Validate() != nil || !e.Type.Valid() || r.Amount.Invalid != "" {
			slog.WarnContext(ctx, "Skipping unreadable legacy record",
				clog.FieldComponent, clog.ComponentReconciler,
				"local_id", r.ID,
				"date", r.Date,
				"type", r.Type,
				"amount", r.Amount.Invalid)
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (c *BoltCache) Clear(_ context.Context) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(Bucket)).Delete([]byte(Key))
	})
	if err != nil {
		return fmt.Errorf("clear legacy cache: %w", err)
	}
	return nil
}

// Empty is a Cache with nothing in it.
type Empty struct{}

func (Empty) Load(context.Context) ([]core.Entry, error) { return nil, nil }
func (Empty) Clear(context.Context) error                { return nil }

func decode(raw []byte) ([]Record, error) {
	var records []Record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return records, nil
}
