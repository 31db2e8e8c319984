package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"moomoney/internal/amqp"
	"moomoney/internal/core"
	"moomoney/internal/ledger"
	"moomoney/internal/sheets/memory"
)

type memStore struct {
	m map[string][]byte
}

func newMemStore() *memStore { return &memStore{m: map[string][]byte{}} }

func (s *memStore) Load(_ context.Context, key string, v any) (bool, error) {
	b, ok := s.m[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

func (s *memStore) Save(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.m[key] = b
	return nil
}

func seed(t *testing.T, s *memStore, key string, v any) {
	t.Helper()
	if err := s.Save(context.Background(), key, v); err != nil {
		t.Fatalf("seed %s: %v", key, err)
	}
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func TestHandleEventMirrorsActiveMonth(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	seed(t, store, ledger.KeyLastActiveMonth, core.MonthKey("2025-03"))
	seed(t, store, ledger.KeyBudget, core.Money(500000))
	seed(t, store, ledger.KeyExpenses, []core.Expense{
		{ID: 1, Date: mustDate(t, "2025-03-02"), Item: "Beras", Amount: 70000, Qty: 5, Unit: "kg"},
		{ID: 2, Date: mustDate(t, "2024-11-01"), Item: "Stale", Amount: 99999, Qty: 1, Unit: "-"},
	})

	mirror := memory.New()
	w := NewMirrorWorker(store, mirror)
	w.now = func() time.Time { return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) }

	if err := w.HandleEvent(ctx, amqp.NewBucketChangedMessage("2025-03")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	report, ok := mirror.Report("2025-03")
	if !ok {
		t.Fatal("active month not mirrored")
	}
	if len(report.Expenses) != 1 {
		t.Fatalf("mirrored rows = %d, want period-filtered 1", len(report.Expenses))
	}
	if report.TotalSpent != 70000 || report.Balance != 430000 {
		t.Fatalf("totals = %d/%d, want 70000/430000", report.TotalSpent, report.Balance)
	}
}

func TestHandleEventMirrorsArchive(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	seed(t, store, ledger.KeyLastActiveMonth, core.MonthKey("2025-03"))
	seed(t, store, ledger.KeyArchives, []ledger.Archive{{
		ID: 1, ISODate: "2025-01", Period: "January 2025", Budget: 400000,
		TotalExpenses: 150000, Balance: 250000,
		Expenses: []core.Expense{{ID: 1, Date: mustDate(t, "2025-01-10"), Item: "Listrik", Amount: 150000, Qty: 1, Unit: "-"}},
	}})

	mirror := memory.New()
	w := NewMirrorWorker(store, mirror)

	if err := w.HandleEvent(ctx, amqp.NewArchiveCreatedMessage("2025-01", "rollover")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	report, ok := mirror.Report("2025-01")
	if !ok {
		t.Fatal("archive month not mirrored")
	}
	if report.Budget != 400000 || report.TotalSpent != 150000 {
		t.Fatalf("report = %+v", report)
	}
}

func TestHandleEventSkipsMissingMonth(t *testing.T) {
	store := newMemStore()
	seed(t, store, ledger.KeyLastActiveMonth, core.MonthKey("2025-03"))

	mirror := memory.New()
	w := NewMirrorWorker(store, mirror)

	// Deleted archive: the event must be dropped, not requeued.
	if err := w.HandleEvent(context.Background(), amqp.NewArchiveCreatedMessage("2020-01", "rollover")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if mirror.Writes() != 0 {
		t.Fatalf("writes = %d, want none for missing month", mirror.Writes())
	}
}

func TestHandleEventSkipsMalformedMonth(t *testing.T) {
	store := newMemStore()
	seed(t, store, ledger.KeyLastActiveMonth, core.MonthKey("2025-03"))

	mirror := memory.New()
	w := NewMirrorWorker(store, mirror)

	if err := w.HandleEvent(context.Background(), amqp.NewBucketChangedMessage("not-a-month")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	if mirror.Writes() != 0 {
		t.Fatalf("writes = %d, want none for malformed month", mirror.Writes())
	}
}

func TestMirrorAll(t *testing.T) {
	store := newMemStore()
	seed(t, store, ledger.KeyLastActiveMonth, core.MonthKey("2025-03"))
	seed(t, store, ledger.KeyBudget, core.Money(500000))
	seed(t, store, ledger.KeyExpenses, []core.Expense{})
	seed(t, store, ledger.KeyArchives, []ledger.Archive{
		{ID: 1, ISODate: "2025-01"},
		{ID: 2, ISODate: "2025-02"},
	})

	mirror := memory.New()
	w := NewMirrorWorker(store, mirror)
	w.now = func() time.Time { return time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC) }

	if err := w.MirrorAll(context.Background()); err != nil {
		t.Fatalf("MirrorAll: %v", err)
	}
	if mirror.Writes() != 3 {
		t.Fatalf("writes = %d, want active + 2 archives", mirror.Writes())
	}
}
