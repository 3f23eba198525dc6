package quote

import (
	"context"
	"errors"
	"testing"
	"time"

	"coachquote/internal/testutil"
)

func TestStore_Lifecycle(t *testing.T) {
	store := NewStore(testutil.DB(t, "quote_events", "quotes"))
	svc := NewService(store, &fakePricer{}, nil, Config{Validity: time.Hour}, nil, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateCommand{ClientID: "c1", CreatedBy: "s1", Request: dayTrip()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := store.Get(ctx, q.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusDraft || got.Request.PassengerCount != 45 || got.Fleet.VehicleClass != "standard" {
		t.Fatalf("unexpected stored quote: %+v", got)
	}
	if !got.Pricing.TotalTTC.Equal(q.Pricing.TotalTTC) {
		t.Fatalf("total = %s, want %s", got.Pricing.TotalTTC, q.Pricing.TotalTTC)
	}

	if _, err := svc.Send(ctx, SendCommand{QuoteID: q.ID, ActorID: "s1"}); err != nil {
		t.Fatalf("send: %v", err)
	}

	// A stale version loses the race.
	ok, err := store.UpdateStatus(ctx, q.ID, StatusSent, StatusAccepted, 0)
	if err != nil || ok {
		t.Fatalf("stale update = %v, %v", ok, err)
	}

	if _, err := svc.Decline(ctx, DecideCommand{QuoteID: q.ID, ActorID: "c1"}); err != nil {
		t.Fatalf("decline: %v", err)
	}
	got, _ = store.Get(ctx, q.ID)
	if got.Status != StatusDeclined || got.SentAt == nil || got.DecidedAt == nil {
		t.Fatalf("unexpected final quote: %+v", got)
	}

	events, err := store.Events(ctx, q.ID)
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 3 || events[2].ToStatus != StatusDeclined {
		t.Fatalf("events = %+v", events)
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListExpired(t *testing.T) {
	store := NewStore(testutil.DB(t, "quote_events", "quotes"))
	svc := NewService(store, &fakePricer{}, nil, Config{Validity: time.Hour}, nil, nil)
	ctx := context.Background()

	q, err := svc.Create(ctx, CreateCommand{ClientID: "c1", Request: dayTrip()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	due, err := store.ListExpired(ctx, time.Now(), 10)
	if err != nil || len(due) != 0 {
		t.Fatalf("fresh quote listed as expired: %v %v", due, err)
	}
	due, err = store.ListExpired(ctx, time.Now().Add(2*time.Hour), 10)
	if err != nil || len(due) != 1 || due[0].ID != q.ID {
		t.Fatalf("ListExpired = %v, %v", due, err)
	}
}
