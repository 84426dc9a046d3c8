package legacy

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	bolt "go.etcd.io/bbolt"

	"caja/internal/core"
)

func openTestCache(t *testing.T) *BoltCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "legacy.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLoadAbsentKey(t *testing.T) {
	c := openTestCache(t)
	got, err := c.Load(context.Background())
	if err != nil || len(got) != 0 {
		t.Fatalf("expected no entries, got %v (err=%v)", got, err)
	}
}

func TestPutLoadStripsLocalIDs(t *testing.T) {
	c := openTestCache(t)
	raw := `[
		{"id":"1700000000000","date":"2024-11-03","type":"Egreso","category":"TARJETAS","subcategory":"Visa","concept":"Cuota","amount":1500},
		{"id":"1700000000001","date":"2024-11-04","type":"Ingreso","category":"DONACIONES","subcategory":"Mensual","concept":"","amount":"250.5"},
		{"id":"broken","date":"04/11/2024","type":"Ingreso","category":"DONACIONES","amount":1}
	]`
	if err := c.Put([]byte(raw)); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 readable entries, got %d", len(got))
	}
	for _, e := range got {
		if e.ID != "" {
			t.Fatalf("local id must be stripped: %+v", e)
		}
	}
	if got[0].Amount.Cents != 150000 || got[1].Amount.Cents != 25050 {
		t.Fatalf("unexpected amounts: %d %d", got[0].Amount.Cents, got[1].Amount.Cents)
	}
}

func TestClear(t *testing.T) {
	c := openTestCache(t)
	if err := c.Save([]core.Entry{{ID: "x", Date: "2024-01-01", Type: core.Egreso, Category: "RRHH", Amount: core.MoneyFromUnits(3)}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, _ := c.Load(context.Background())
	if len(got) != 1 || got[0].Amount.Cents != 300 {
		t.Fatalf("unexpected round trip: %+v", got)
	}
	if err := c.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := c.Load(context.Background()); len(got) != 0 {
		t.Fatalf("cache not cleared: %+v", got)
	}
}

func TestPutRejectsMalformed(t *testing.T) {
	c := openTestCache(t)
	cases := []string{`{"not":"a list"}`, `[{"date":2024}]`, `not json`}
	for _, raw := range cases {
		if err := c.Put([]byte(raw)); err == nil || !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", raw, err)
		}
	}
}

func TestLoadSkipsBadAmounts(t *testing.T) {
	c := openTestCache(t)
	raw := `[
		{"date":"2024-11-03","type":"Egreso","category":"TARJETAS","subcategory":"Visa","amount":"-3"},
		{"date":"2024-11-04","type":"Egreso","category":"TARJETAS","subcategory":"Visa","amount":"abc"},
		{"date":"2024-11-05","type":"Egreso","category":"TARJETAS","subcategory":"Visa","amount":-12.5},
		{"date":"2024-11-06","type":"Ingreso","category":"DONACIONES","subcategory":"Mensual","amount":12.345},
		{"date":"2024-11-07","type":"Ingreso","category":"DONACIONES","subcategory":"Mensual","amount":null}
	]`
	// Written straight to the bucket, as a file filled by another tool would be.
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(Bucket)).Put([]byte(Key), []byte(raw))
	})
	if err != nil {
		t.Fatalf("seed bucket: %v", err)
	}

	got, err := c.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected the 2 readable records, got %+v", got)
	}
	if got[0].Date != "2024-11-06" || got[0].Amount.Cents != 1235 {
		t.Fatalf("unexpected first entry %+v", got[0])
	}
	if got[1].Date != "2024-11-07" || got[1].Amount.Cents != 0 {
		t.Fatalf("unexpected second entry %+v", got[1])
	}
}
