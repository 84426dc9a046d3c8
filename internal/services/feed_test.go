package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"caja/internal/core"
	"caja/internal/seed"
	"caja/internal/store/memory"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestFeed_SeedsThenRendersRedelivery(t *testing.T) {
	st := memory.New()
	defer st.Close()
	tax := core.DefaultTaxonomy()
	rec := NewReconciler(st, nil, func() []core.Entry {
		return seed.Generate(seed.DefaultHistory(), tax, 2025)
	})
	feed := NewFeed(st, rec, tax)
	feed.Start()
	defer feed.Stop()

	if err := feed.WaitFor(waitCtx(t), func(e []core.Entry) bool { return len(e) > 0 }); err != nil {
		t.Fatalf("feed never rendered seeded entries: %v", err)
	}
	if feed.Len() != 118 {
		t.Fatalf("expected 118 entries, got %d", feed.Len())
	}
	if rec.Last() != OutcomeSeeded {
		t.Fatalf("unexpected outcome %s", rec.Last())
	}

	p := feed.Pivot("2025")
	if p.Cell(core.Egreso, "SEDE - Gastos Fijos", "01") != 157766600 {
		t.Fatalf("unexpected pivot cell %d", p.Cell(core.Egreso, "SEDE - Gastos Fijos", "01"))
	}
	totals := feed.Totals()
	if totals.Balance.Cents != totals.Income.Cents-totals.Expense.Cents {
		t.Fatalf("balance invariant broken: %+v", totals)
	}
}

func TestFeed_ExistingStoreRendersImmediately(t *testing.T) {
	st := memory.NewWithEntries([]core.Entry{
		{Date: "2025-01-15", Type: core.Egreso, Category: "TARJETAS", Subcategory: "Visa", Amount: core.MoneyFromUnits(100)},
		{Date: "2025-01-20", Type: core.Ingreso, Category: "DONACIONES", Subcategory: "Mensual", Amount: core.MoneyFromUnits(250)},
	})
	defer st.Close()
	tax := core.DefaultTaxonomy()
	feed := NewFeed(st, NewReconciler(st, nil, seedTwo), tax)
	feed.Start()
	defer feed.Stop()

	if err := feed.WaitRevision(waitCtx(t), 0); err != nil {
		t.Fatalf("WaitRevision: %v", err)
	}
	if got := feed.Totals().Balance.Cents; got != 15000 {
		t.Fatalf("expected balance 15000, got %d", got)
	}
	if d := feed.Pivot("2025").Difference(); d[0] != 15000 {
		t.Fatalf("expected January difference 15000, got %d", d[0])
	}
	latest := feed.Latest(1)
	if len(latest) != 1 || latest[0].Date != "2025-01-20" {
		t.Fatalf("unexpected latest %+v", latest)
	}
}

func TestFeed_FailedSeedShowsEmptyLedger(t *testing.T) {
	st := memory.New()
	defer st.Close()
	st.FailWrites(errors.New("offline"))
	feed := NewFeed(st, NewReconciler(st, nil, seedTwo), core.DefaultTaxonomy())
	feed.Start()
	defer feed.Stop()

	if err := feed.WaitRevision(waitCtx(t), 0); err != nil {
		t.Fatalf("feed not ready after failed seed: %v", err)
	}
	if feed.Len() != 0 {
		t.Fatalf("expected empty ledger, got %d", feed.Len())
	}
}

func TestFeed_RestartDoesNotReseed(t *testing.T) {
	st := memory.New()
	defer st.Close()
	rec := NewReconciler(st, nil, seedTwo)
	feed := NewFeed(st, rec, core.DefaultTaxonomy())
	feed.Start()
	defer feed.Stop()

	ctx := waitCtx(t)
	if err := feed.WaitFor(ctx, func(e []core.Entry) bool { return len(e) == 2 }); err != nil {
		t.Fatalf("seed not rendered: %v", err)
	}
	for _, e := range feed.Entries() {
		if err := st.Delete(ctx, e.ID); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	}
	if err := feed.WaitFor(ctx, func(e []core.Entry) bool { return len(e) == 0 }); err != nil {
		t.Fatalf("deletes not rendered: %v", err)
	}

	rev := feed.Revision()
	feed.Restart()
	if err := feed.WaitRevision(ctx, rev); err != nil {
		t.Fatalf("WaitRevision after restart: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if n := len(st.Entries()); n != 0 {
		t.Fatalf("restart re-seeded the store: %d entries", n)
	}
}

func TestFeed_SubscriptionErrorIsRecorded(t *testing.T) {
	st := memory.New()
	defer st.Close()
	feed := NewFeed(st, nil, core.DefaultTaxonomy())
	feed.Start()
	defer feed.Stop()

	ctx := waitCtx(t)
	if err := feed.WaitRevision(ctx, 0); err != nil {
		t.Fatalf("WaitRevision: %v", err)
	}
	st.InjectError(errors.New("listener lost"))
	deadline := time.Now().Add(2 * time.Second)
	for feed.LastError() == nil {
		if time.Now().After(deadline) {
			t.Fatalf("subscription error not recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFeed_AvailableYears(t *testing.T) {
	st := memory.NewWithEntries([]core.Entry{{Date: "2023-04-01", Type: core.Egreso, Category: "RRHH"}})
	defer st.Close()
	feed := NewFeed(st, nil, core.DefaultTaxonomy())
	feed.now = func() time.Time { return time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC) }
	feed.Start()
	defer feed.Stop()

	if err := feed.WaitRevision(waitCtx(t), 0); err != nil {
		t.Fatalf("WaitRevision: %v", err)
	}
	years := feed.AvailableYears()
	if len(years) != 3 || years[0] != "2026" || years[1] != "2025" || years[2] != "2023" {
		t.Fatalf("unexpected years %v", years)
	}
}
