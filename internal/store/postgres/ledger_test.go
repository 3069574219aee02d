package postgres_test

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/kssmani94-hub/CPL6/internal/clock"
	"github.com/kssmani94-hub/CPL6/internal/domain"
	"github.com/kssmani94-hub/CPL6/internal/store"
	"github.com/kssmani94-hub/CPL6/internal/store/postgres"
)

type ledgerFixture struct {
	players *postgres.PlayerRepo
	teams   *postgres.TeamRepo
	ledger  *postgres.LedgerRepo
}

func newLedgerFixture(t *testing.T) (*ledgerFixture, *sqlx.DB) {
	t.Helper()
	db := newTestDB(t)
	clk := clock.Real{}
	return &ledgerFixture{
		players: postgres.NewPlayerRepo(db, clk),
		teams:   postgres.NewTeamRepo(db, clk),
		ledger:  postgres.NewLedgerRepo(db, clk),
	}, db
}

func (f *ledgerFixture) seedTeam(t *testing.T, name string, purse, slots int) *store.Team {
	t.Helper()
	tm := &store.Team{
		Name:           name,
		CaptainName:    "CAPTAIN " + name,
		Purse:          purse,
		PurseSpent:     10000 - purse,
		PlayersTaken:   15 - slots,
		SlotsRemaining: slots,
	}
	if err := f.teams.Create(context.Background(), tm); err != nil {
		t.Fatalf("seeding team %s: %v", name, err)
	}
	return tm
}

func (f *ledgerFixture) seedPlayer(t *testing.T, name string, status domain.Status) *store.Player {
	t.Helper()
	p := &store.Player{Name: name, Status: status, BestBowling: "-"}
	if err := f.players.Create(context.Background(), p); err != nil {
		t.Fatalf("seeding player %s: %v", name, err)
	}
	return p
}

func TestLedgerRepo_SellPlayer(t *testing.T) {
	f, _ := newLedgerFixture(t)
	ctx := context.Background()

	tm := f.seedTeam(t, "SMASHERS", 10000, 15)
	p := f.seedPlayer(t, "M S DHONI", domain.Unsold)

	gotP, gotT, err := f.ledger.SellPlayer(ctx, p.ID, tm.ID, 2500)
	if err != nil {
		t.Fatalf("SellPlayer() error: %v", err)
	}
	if gotP.Status != domain.Sold || gotP.SoldPrice != 2500 {
		t.Errorf("player after sale: status=%v price=%d", gotP.Status, gotP.SoldPrice)
	}
	if gotP.TeamID == nil || *gotP.TeamID != tm.ID {
		t.Errorf("player team ref = %v, want %s", gotP.TeamID, tm.ID)
	}
	if gotT.Purse != 7500 || gotT.PurseSpent != 2500 {
		t.Errorf("team purse after sale: purse=%d spent=%d", gotT.Purse, gotT.PurseSpent)
	}
	if gotT.PlayersTaken != 1 || gotT.SlotsRemaining != 14 {
		t.Errorf("team slots after sale: taken=%d remaining=%d", gotT.PlayersTaken, gotT.SlotsRemaining)
	}
	if gotT.Purse+gotT.PurseSpent != 10000 {
		t.Errorf("purse invariant broken: %d + %d", gotT.Purse, gotT.PurseSpent)
	}
	if gotT.PlayersTaken+gotT.SlotsRemaining != 15 {
		t.Errorf("slot invariant broken: %d + %d", gotT.PlayersTaken, gotT.SlotsRemaining)
	}
}

func TestLedgerRepo_SellPlayer_Errors(t *testing.T) {
	f, _ := newLedgerFixture(t)
	ctx := context.Background()

	full := f.seedTeam(t, "FULL SQUAD", 4000, 0)
	broke := f.seedTeam(t, "EMPTY POCKETS", 100, 5)
	open := f.seedTeam(t, "OPEN", 10000, 15)

	pool := f.seedPlayer(t, "AVAILABLE", domain.Unsold)
	sold := f.seedPlayer(t, "ALREADY SOLD", domain.Sold)

	tests := []struct {
		name     string
		playerID string
		teamID   string
		price    int
		wantCode string
	}{
		{"unknown player", "00000000-0000-0000-0000-000000000000", open.ID, 100, domain.CodeNotFound},
		{"already sold", sold.ID, open.ID, 100, domain.CodeConflict},
		{"unknown team", pool.ID, "00000000-0000-0000-0000-000000000000", 100, domain.CodeNotFound},
		{"no slots", pool.ID, full.ID, 100, domain.CodeCapacity},
		{"insufficient purse", pool.ID, broke.ID, 500, domain.CodeBudget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.ledger.SellPlayer(ctx, tt.playerID, tt.teamID, tt.price)
			if !domain.IsCode(err, tt.wantCode) {
				t.Errorf("SellPlayer() error = %v, want code %s", err, tt.wantCode)
			}
		})
	}

	// Rejected sales must leave both ledgers untouched.
	gotP, err := f.players.GetByID(ctx, pool.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gotP.Status != domain.Unsold || gotP.TeamID != nil {
		t.Errorf("player mutated by failed sale: %+v", gotP)
	}
	gotT, err := f.teams.GetByID(ctx, broke.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gotT.Purse != 100 || gotT.SlotsRemaining != 5 {
		t.Errorf("team mutated by failed sale: %+v", gotT)
	}
}

func TestLedgerRepo_MarkPlayerUnsold(t *testing.T) {
	f, _ := newLedgerFixture(t)
	ctx := context.Background()

	p := f.seedPlayer(t, "PASSED OVER", domain.Unsold)

	got, err := f.ledger.MarkPlayerUnsold(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("MarkPlayerUnsold() error: %v", err)
	}
	if got.Status != domain.PendingRound(2) {
		t.Errorf("status = %v, want %v", got.Status, domain.PendingRound(2))
	}

	// The same player cannot be passed over twice in one round.
	if _, err := f.ledger.MarkPlayerUnsold(ctx, p.ID, 2); !domain.IsCode(err, domain.CodeConflict) {
		t.Errorf("second MarkPlayerUnsold() error = %v, want CONFLICT", err)
	}
}

func TestLedgerRepo_ReopenRound(t *testing.T) {
	f, _ := newLedgerFixture(t)
	ctx := context.Background()

	f.seedPlayer(t, "PENDING A", domain.PendingRound(1))
	f.seedPlayer(t, "PENDING B", domain.PendingRound(1))
	f.seedPlayer(t, "OLD ROUND", domain.PendingRound(2))
	f.seedPlayer(t, "SOLD", domain.Sold)

	n, err := f.ledger.ReopenRound(ctx, 1)
	if err != nil {
		t.Fatalf("ReopenRound() error: %v", err)
	}
	if n != 2 {
		t.Errorf("ReopenRound(1) = %d, want 2", n)
	}

	pool, err := f.players.ListPool(ctx)
	if err != nil {
		t.Fatalf("ListPool: %v", err)
	}
	if len(pool) != 2 {
		t.Errorf("pool after reopen = %d, want 2", len(pool))
	}

	n, err = f.ledger.ReopenRound(ctx, 3)
	if err != nil {
		t.Fatalf("ReopenRound(3) error: %v", err)
	}
	if n != 0 {
		t.Errorf("ReopenRound(3) = %d, want 0", n)
	}
}

func TestLedgerRepo_ResetAuction(t *testing.T) {
	f, _ := newLedgerFixture(t)
	ctx := context.Background()

	tm := f.seedTeam(t, "REBUILDERS", 6000, 12)

	retained := &store.Player{
		Name: "KEPT ONE", Retained: true, Status: domain.Retained,
		SoldPrice: 1000, TeamID: &tm.ID, BestBowling: "-",
	}
	if err := f.players.Create(ctx, retained); err != nil {
		t.Fatalf("seeding retained: %v", err)
	}

	soldP := f.seedPlayer(t, "BOUGHT ONE", domain.Unsold)
	if _, _, err := f.ledger.SellPlayer(ctx, soldP.ID, tm.ID, 2000); err != nil {
		t.Fatalf("SellPlayer: %v", err)
	}
	f.seedPlayer(t, "STILL PENDING", domain.PendingRound(2))

	if err := f.ledger.ResetAuction(ctx, 10000, 15); err != nil {
		t.Fatalf("ResetAuction() error: %v", err)
	}

	gotSold, err := f.players.GetByID(ctx, soldP.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gotSold.Status != domain.Unsold || gotSold.SoldPrice != 0 || gotSold.TeamID != nil {
		t.Errorf("sold player not reset: %+v", gotSold)
	}

	gotKept, err := f.players.GetByID(ctx, retained.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gotKept.Status != domain.Retained || gotKept.SoldPrice != 1000 {
		t.Errorf("retained player was reset: %+v", gotKept)
	}

	gotTeam, err := f.teams.GetByID(ctx, tm.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if gotTeam.Purse != 9000 || gotTeam.PurseSpent != 1000 {
		t.Errorf("team purse after reset: purse=%d spent=%d, want 9000/1000", gotTeam.Purse, gotTeam.PurseSpent)
	}
	if gotTeam.PlayersTaken != 1 || gotTeam.SlotsRemaining != 14 {
		t.Errorf("team slots after reset: taken=%d remaining=%d, want 1/14", gotTeam.PlayersTaken, gotTeam.SlotsRemaining)
	}
}

func TestLedgerRepo_RecomputeTeamStats(t *testing.T) {
	f, _ := newLedgerFixture(t)
	ctx := context.Background()

	tm := f.seedTeam(t, "FRESH", 1, 1) // deliberately wrong bookkeeping
	for i, price := range []int{800, 1200} {
		p := &store.Player{
			Name: "RETAINED " + string(rune('A'+i)), Retained: true,
			Status: domain.Retained, SoldPrice: price, TeamID: &tm.ID, BestBowling: "-",
		}
		if err := f.players.Create(ctx, p); err != nil {
			t.Fatalf("seeding retained: %v", err)
		}
	}

	if err := f.ledger.RecomputeTeamStats(ctx, 10000, 15); err != nil {
		t.Fatalf("RecomputeTeamStats() error: %v", err)
	}

	got, err := f.teams.GetByID(ctx, tm.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Purse != 8000 || got.PurseSpent != 2000 || got.PlayersTaken != 2 || got.SlotsRemaining != 13 {
		t.Errorf("recomputed team = %+v", got)
	}
}
