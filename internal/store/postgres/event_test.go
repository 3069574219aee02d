package postgres_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/kssmani94-hub/CPL6/internal/event"
	"github.com/kssmani94-hub/CPL6/internal/store/postgres"
)

func TestEventStore_AppendAndLoad(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)
	ctx := context.Background()

	soldData, _ := json.Marshal(event.PlayerSoldData{
		PlayerName: "M S DHONI", TeamName: "SMASHERS", Price: 2500, Round: 1, Actor: "admin",
	})
	unsoldData, _ := json.Marshal(event.PlayerUnsoldData{
		PlayerName: "PASSED OVER", Round: 1, Actor: "admin",
	})

	err := es.Append(ctx,
		event.Event{AggregateID: "auction-1", Type: event.PlayerSold, Data: soldData, Version: 1},
		event.Event{AggregateID: "auction-1", Type: event.PlayerUnsold, Data: unsoldData, Version: 2},
		event.Event{AggregateID: "auction-2", Type: event.RoundStarted, Data: json.RawMessage(`{"round":2}`), Version: 1},
	)
	if err != nil {
		t.Fatalf("Append() error: %v", err)
	}

	events, err := es.Load(ctx, "auction-1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Load() returned %d events, want 2", len(events))
	}
	if events[0].Type != event.PlayerSold || events[1].Type != event.PlayerUnsold {
		t.Errorf("event order: %s, %s", events[0].Type, events[1].Type)
	}

	var got event.PlayerSoldData
	if err := json.Unmarshal(events[0].Data, &got); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	if got.PlayerName != "M S DHONI" || got.Price != 2500 {
		t.Errorf("payload = %+v", got)
	}

	byType, err := es.LoadByType(ctx, event.RoundStarted)
	if err != nil {
		t.Fatalf("LoadByType() error: %v", err)
	}
	if len(byType) != 1 || byType[0].AggregateID != "auction-2" {
		t.Errorf("LoadByType() = %+v", byType)
	}
}

func TestEventStore_LoadEmpty(t *testing.T) {
	db := newTestDB(t)
	es := postgres.NewEventStore(db)

	events, err := es.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Load(missing) = %d events, want 0", len(events))
	}
}
