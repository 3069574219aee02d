package memstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/kssmani94-hub/CPL6/internal/clock"
	"github.com/kssmani94-hub/CPL6/internal/domain"
	"github.com/kssmani94-hub/CPL6/internal/store"
	"github.com/kssmani94-hub/CPL6/internal/store/memstore"
)

var testClk = &clock.Mock{T: time.Date(2025, 11, 2, 10, 0, 0, 0, time.UTC)}

func newStore(t *testing.T) *memstore.Store {
	t.Helper()
	return memstore.New(testClk)
}

func seedTeam(t *testing.T, s *memstore.Store, name string, purse, slots int) *store.Team {
	t.Helper()
	tm := &store.Team{Name: name, CaptainName: "TBA", Purse: purse, SlotsRemaining: slots}
	if err := s.CreateTeam(context.Background(), tm); err != nil {
		t.Fatalf("creating team: %v", err)
	}
	return tm
}

func seedPlayer(t *testing.T, s *memstore.Store, name string, status domain.Status) *store.Player {
	t.Helper()
	p := &store.Player{Name: name, Status: status}
	if err := s.Create(context.Background(), p); err != nil {
		t.Fatalf("creating player: %v", err)
	}
	return p
}

func seedRetained(t *testing.T, s *memstore.Store, name, teamID string, cost int) *store.Player {
	t.Helper()
	p := &store.Player{Name: name, Retained: true, Status: domain.Retained, SoldPrice: cost, TeamID: &teamID}
	if err := s.Create(context.Background(), p); err != nil {
		t.Fatalf("creating retained player: %v", err)
	}
	return p
}

func TestSellPlayer(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		setup    func(s *memstore.Store) (playerID, teamID string)
		price    int
		wantCode string
	}{
		{
			name: "successful sale",
			setup: func(s *memstore.Store) (string, string) {
				p := seedPlayer(t, s, "V KOHLI", domain.Unsold)
				tm := seedTeam(t, s, "APJ TAMIZHAN", 10000, 15)
				return p.ID, tm.ID
			},
			price: 500,
		},
		{
			name: "unknown player",
			setup: func(s *memstore.Store) (string, string) {
				tm := seedTeam(t, s, "CRAZY 11", 10000, 15)
				return "no-such-player", tm.ID
			},
			price:    500,
			wantCode: domain.CodeNotFound,
		},
		{
			name: "unknown team",
			setup: func(s *memstore.Store) (string, string) {
				p := seedPlayer(t, s, "R SHARMA", domain.Unsold)
				return p.ID, "no-such-team"
			},
			price:    500,
			wantCode: domain.CodeNotFound,
		},
		{
			name: "already sold",
			setup: func(s *memstore.Store) (string, string) {
				p := seedPlayer(t, s, "S IYER", domain.Unsold)
				tm := seedTeam(t, s, "JOLLY PLAYERS", 10000, 15)
				if _, _, err := s.SellPlayer(ctx, p.ID, tm.ID, 100); err != nil {
					t.Fatalf("first sale: %v", err)
				}
				return p.ID, tm.ID
			},
			price:    200,
			wantCode: domain.CodeConflict,
		},
		{
			name: "retained player",
			setup: func(s *memstore.Store) (string, string) {
				tm := seedTeam(t, s, "DADA WARRIORS", 10000, 15)
				p := seedRetained(t, s, "M DHONI", tm.ID, 1000)
				return p.ID, tm.ID
			},
			price:    500,
			wantCode: domain.CodeConflict,
		},
		{
			name: "no slots",
			setup: func(s *memstore.Store) (string, string) {
				p := seedPlayer(t, s, "J BUMRAH", domain.Unsold)
				tm := seedTeam(t, s, "SPARK 11", 10000, 0)
				return p.ID, tm.ID
			},
			price:    500,
			wantCode: domain.CodeCapacity,
		},
		{
			name: "insufficient purse",
			setup: func(s *memstore.Store) (string, string) {
				p := seedPlayer(t, s, "K RAHUL", domain.Unsold)
				tm := seedTeam(t, s, "THUNDER STRIKERS", 300, 15)
				return p.ID, tm.ID
			},
			price:    500,
			wantCode: domain.CodeBudget,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			playerID, teamID := tt.setup(s)

			p, tm, err := s.SellPlayer(ctx, playerID, teamID, tt.price)
			if tt.wantCode != "" {
				if !domain.IsCode(err, tt.wantCode) {
					t.Fatalf("SellPlayer() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("SellPlayer() error: %v", err)
			}
			if p.Status != domain.Sold || p.SoldPrice != tt.price || p.TeamID == nil || *p.TeamID != teamID {
				t.Errorf("player after sale = %+v", p)
			}
			if tm.Purse != 10000-tt.price || tm.PurseSpent != tt.price || tm.PlayersTaken != 1 || tm.SlotsRemaining != 14 {
				t.Errorf("team after sale = %+v", tm)
			}
		})
	}
}

func TestSellPlayer_NoPartialMutationOnFailure(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p := seedPlayer(t, s, "H PANDYA", domain.Unsold)
	tm := seedTeam(t, s, "SPARTEN ROCKERZ", 400, 15)

	if _, _, err := s.SellPlayer(ctx, p.ID, tm.ID, 900); !domain.IsCode(err, domain.CodeBudget) {
		t.Fatalf("expected budget error, got %v", err)
	}

	gotP, _ := s.GetByID(ctx, p.ID)
	gotT, _ := s.GetTeamByID(ctx, tm.ID)
	if gotP.Status != domain.Unsold || gotP.TeamID != nil || gotP.SoldPrice != 0 {
		t.Errorf("player mutated on failed sale: %+v", gotP)
	}
	if gotT.Purse != 400 || gotT.PurseSpent != 0 || gotT.SlotsRemaining != 15 {
		t.Errorf("team mutated on failed sale: %+v", gotT)
	}
}

func TestMarkPlayerUnsoldAndReopenRound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	p1 := seedPlayer(t, s, "A RAHANE", domain.Unsold)
	p2 := seedPlayer(t, s, "I KISHAN", domain.Unsold)
	seedPlayer(t, s, "D KARTHIK", domain.Sold)

	for _, p := range []*store.Player{p1, p2} {
		got, err := s.MarkPlayerUnsold(ctx, p.ID, 1)
		if err != nil {
			t.Fatalf("MarkPlayerUnsold: %v", err)
		}
		if got.Status != domain.PendingRound(1) {
			t.Errorf("status = %v, want Round 1 Unsold", got.Status)
		}
	}

	// Second attempt on the same player conflicts.
	if _, err := s.MarkPlayerUnsold(ctx, p1.ID, 1); !domain.IsCode(err, domain.CodeConflict) {
		t.Errorf("expected conflict on double unsold, got %v", err)
	}

	n, err := s.ReopenRound(ctx, 1)
	if err != nil {
		t.Fatalf("ReopenRound: %v", err)
	}
	if n != 2 {
		t.Errorf("ReopenRound moved %d players, want 2", n)
	}
	pool, _ := s.ListPool(ctx)
	if len(pool) != 2 {
		t.Errorf("pool size after reopen = %d, want 2", len(pool))
	}
}

func TestResetAuction(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	teamA := seedTeam(t, s, "APJ TAMIZHAN", 10000, 15)
	teamB := seedTeam(t, s, "CRAZY 11", 10000, 15)
	seedRetained(t, s, "M DHONI", teamB.ID, 1000)

	p := seedPlayer(t, s, "V KOHLI", domain.Unsold)
	if _, _, err := s.SellPlayer(ctx, p.ID, teamA.ID, 2500); err != nil {
		t.Fatalf("selling: %v", err)
	}
	seedPlayer(t, s, "R JADEJA", domain.PendingRound(2))

	if err := s.ResetAuction(ctx, 10000, 15); err != nil {
		t.Fatalf("ResetAuction: %v", err)
	}

	players, _ := s.ListFiltered(ctx, store.FilterAuction)
	for _, pl := range players {
		if pl.Status != domain.Unsold || pl.SoldPrice != 0 || pl.TeamID != nil {
			t.Errorf("player %s not reset: %+v", pl.Name, pl)
		}
	}

	gotA, _ := s.GetTeamByID(ctx, teamA.ID)
	if gotA.Purse != 10000 || gotA.PurseSpent != 0 || gotA.PlayersTaken != 0 || gotA.SlotsRemaining != 15 {
		t.Errorf("team A after reset = %+v", gotA)
	}
	gotB, _ := s.GetTeamByID(ctx, teamB.ID)
	if gotB.Purse != 9000 || gotB.PurseSpent != 1000 || gotB.PlayersTaken != 1 || gotB.SlotsRemaining != 14 {
		t.Errorf("team B after reset = %+v", gotB)
	}

	retained, _ := s.ListFiltered(ctx, store.FilterRetained)
	if len(retained) != 1 || retained[0].Status != domain.Retained {
		t.Errorf("retained players disturbed by reset: %+v", retained)
	}
}

func TestCountsAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	tm := seedTeam(t, s, "JOLLY PLAYERS", 10000, 15)
	seedRetained(t, s, "M DHONI", tm.ID, 1000)
	seedPlayer(t, s, "A PLAYER", domain.Unsold)
	sold := seedPlayer(t, s, "B PLAYER", domain.Unsold)
	if _, _, err := s.SellPlayer(ctx, sold.ID, tm.ID, 100); err != nil {
		t.Fatalf("selling: %v", err)
	}
	seedPlayer(t, s, "C PLAYER", domain.PendingRound(1))
	seedPlayer(t, s, "D PLAYER", domain.FinalUnsold)

	c, err := s.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	want := store.PoolCounts{Total: 4, Sold: 1, Unsold: 1, Pending: 2}
	if c != want {
		t.Errorf("Counts = %+v, want %+v", c, want)
	}

	unsold, _ := s.ListFiltered(ctx, store.FilterUnsold)
	if len(unsold) != 3 {
		t.Errorf("FilterUnsold returned %d players, want 3 (pool + pending + final)", len(unsold))
	}
	auction, _ := s.ListFiltered(ctx, store.FilterAuction)
	if len(auction) != 4 {
		t.Errorf("FilterAuction returned %d players, want 4", len(auction))
	}
}

func TestDeletePool_KeepsRetained(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	tm := seedTeam(t, s, "SPARK 11", 10000, 15)
	seedRetained(t, s, "M DHONI", tm.ID, 1000)
	seedPlayer(t, s, "A PLAYER", domain.Unsold)
	seedPlayer(t, s, "B PLAYER", domain.Sold)

	if err := s.DeletePool(ctx); err != nil {
		t.Fatalf("DeletePool: %v", err)
	}
	all, _ := s.List(ctx)
	if len(all) != 1 || !all[0].Retained {
		t.Errorf("DeletePool left %+v", all)
	}
}
