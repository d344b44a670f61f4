package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/IvanDeyter/EmailBot/internal/checkpoint"
	"github.com/IvanDeyter/EmailBot/internal/model"
	"github.com/IvanDeyter/EmailBot/internal/notify"
	"github.com/IvanDeyter/EmailBot/internal/store"
	"github.com/IvanDeyter/EmailBot/tests/testutil"
)

var (
	_ checkpoint.Store = (*store.SQLiteStore)(nil)
	_ notify.Ledger    = (*store.SQLiteStore)(nil)
)

func TestCheckpointRoundTrip(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	cp, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("Load on empty db: %v", err)
	}
	if cp != nil {
		t.Fatalf("expected no checkpoint, got %+v", cp)
	}

	first := time.Date(2025, 6, 26, 10, 0, 0, 0, time.Local)
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	second := first.Add(30 * time.Minute)
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	cp, err = s.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cp.LastCheckTime.Equal(second) {
		t.Fatalf("last check = %v, want %v", cp.LastCheckTime, second)
	}
	if cp.LastCheckTime.Location() != time.Local {
		t.Fatalf("checkpoint not in local time: %v", cp.LastCheckTime.Location())
	}
}

func TestLedgerCapAndOrder(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 101; i++ {
		if err := s.Add(ctx, fmt.Sprintf("h%03d", i)); err != nil {
			t.Fatalf("Add %d: %v", i, err)
		}
	}

	hashes, err := s.Hashes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 100 {
		t.Fatalf("len = %d, want 100", len(hashes))
	}
	if hashes[0] != "h002" || hashes[99] != "h101" {
		t.Fatalf("oldest = %s newest = %s", hashes[0], hashes[99])
	}

	if ok, _ := s.Contains(ctx, "h001"); ok {
		t.Fatal("h001 should have been evicted")
	}
	if ok, _ := s.Contains(ctx, "h050"); !ok {
		t.Fatal("h050 should still be present")
	}
}

func TestLedgerReAddMovesToNewest(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for _, h := range []string{"a", "b", "a"} {
		if err := s.Add(ctx, h); err != nil {
			t.Fatalf("Add %s: %v", h, err)
		}
	}
	hashes, err := s.Hashes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(hashes) != 2 || hashes[0] != "b" || hashes[1] != "a" {
		t.Fatalf("hashes = %v, want [b a]", hashes)
	}
}

func TestDeliveries(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 26, 19, 0, 0, 0, time.UTC)
	for i, op := range []string{"МТС", "Билайн", "Devino Telecom"} {
		err := s.RecordDelivery(ctx, model.Delivery{
			Subject:   "notice " + op,
			Operator:  op,
			StartTime: "26.06.2025 19:00",
			SentAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("RecordDelivery: %v", err)
		}
	}

	got, err := s.RecentDeliveries(ctx, 2)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d deliveries, want 2", len(got))
	}
	if got[0].Operator != "Devino Telecom" || got[1].Operator != "Билайн" {
		t.Fatalf("unexpected order: %s, %s", got[0].Operator, got[1].Operator)
	}
	if got[0].ID == "" || got[0].ID == got[1].ID {
		t.Fatalf("ids not assigned: %q %q", got[0].ID, got[1].ID)
	}
	if !got[0].SentAt.Equal(base.Add(2 * time.Minute)) {
		t.Fatalf("sent at = %v", got[0].SentAt)
	}
}
