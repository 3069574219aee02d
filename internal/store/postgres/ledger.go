package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/kssmani94-hub/CPL6/internal/clock"
	"github.com/kssmani94-hub/CPL6/internal/domain"
	"github.com/kssmani94-hub/CPL6/internal/store"
)

// LedgerRepo implements store.Ledger. Every operation runs in a single
// transaction with row-level locks, so concurrent admin submissions for
// the same player or team serialize at the database and the loser gets
// a domain error instead of a double-spend.
type LedgerRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewLedgerRepo returns a new LedgerRepo.
func NewLedgerRepo(db *sqlx.DB, clk clock.Clock) *LedgerRepo {
	return &LedgerRepo{db: db, clock: clk}
}

func (r *LedgerRepo) SellPlayer(ctx context.Context, playerID, teamID string, price int) (*store.Player, *store.Team, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, domain.ErrInternal("beginning sale transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var p store.Player
	err = tx.GetContext(ctx, &p,
		`SELECT `+playerColumns+` FROM players WHERE id = $1 FOR UPDATE`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.ErrNotFound("player", playerID)
	}
	if err != nil {
		return nil, nil, domain.ErrInternal("locking player row", err)
	}
	if p.Retained || p.Status != domain.Unsold {
		return nil, nil, domain.ErrConflict("player is not currently up for auction or action already taken")
	}

	var t store.Team
	err = tx.GetContext(ctx, &t, `SELECT * FROM teams WHERE id = $1 FOR UPDATE`, teamID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.ErrNotFound("team", teamID)
	}
	if err != nil {
		return nil, nil, domain.ErrInternal("locking team row", err)
	}
	if t.SlotsRemaining <= 0 {
		return nil, nil, domain.ErrCapacity(t.Name)
	}
	if t.Purse < price {
		return nil, nil, domain.ErrBudget(t.Name, t.Purse)
	}

	now := r.clock.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE players SET status = 'Sold', sold_price = $1, team_id = $2, updated_at = $3 WHERE id = $4`,
		price, t.ID, now, p.ID,
	); err != nil {
		return nil, nil, domain.ErrInternal("recording sale on player", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE teams SET purse = purse - $1, purse_spent = purse_spent + $1,
		   players_taken_count = players_taken_count + 1, slots_remaining = slots_remaining - 1,
		   updated_at = $2
		 WHERE id = $3`,
		price, now, t.ID,
	); err != nil {
		return nil, nil, domain.ErrInternal("recording sale on team", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, domain.ErrInternal("committing sale", err)
	}

	p.Status = domain.Sold
	p.SoldPrice = price
	tid := t.ID
	p.TeamID = &tid
	p.UpdatedAt = now
	t.Purse -= price
	t.PurseSpent += price
	t.PlayersTaken++
	t.SlotsRemaining--
	t.UpdatedAt = now
	return &p, &t, nil
}

func (r *LedgerRepo) MarkPlayerUnsold(ctx context.Context, playerID string, round int) (*store.Player, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, domain.ErrInternal("beginning unsold transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var p store.Player
	err = tx.GetContext(ctx, &p,
		`SELECT `+playerColumns+` FROM players WHERE id = $1 FOR UPDATE`, playerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("player", playerID)
	}
	if err != nil {
		return nil, domain.ErrInternal("locking player row", err)
	}
	if p.Retained || p.Status != domain.Unsold {
		return nil, domain.ErrConflict("player is not currently up for auction or action already taken")
	}

	now := r.clock.Now().UTC()
	tag := domain.PendingRound(round)
	if _, err := tx.ExecContext(ctx,
		`UPDATE players SET status = $1, updated_at = $2 WHERE id = $3`, tag, now, p.ID,
	); err != nil {
		return nil, domain.ErrInternal("tagging player unsold", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, domain.ErrInternal("committing unsold tag", err)
	}

	p.Status = tag
	p.UpdatedAt = now
	return &p, nil
}

func (r *LedgerRepo) ReopenRound(ctx context.Context, round int) (int, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET status = 'Unsold', updated_at = $1
		 WHERE NOT is_retained AND status = $2`,
		r.clock.Now().UTC(), domain.PendingRound(round),
	)
	if err != nil {
		return 0, domain.ErrInternal(fmt.Sprintf("reopening round %d", round), err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

func (r *LedgerRepo) ResetAuction(ctx context.Context, initialPurse, slotCap int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.ErrInternal("beginning reset transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := r.clock.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`UPDATE players SET status = 'Unsold', sold_price = 0, team_id = NULL, updated_at = $1
		 WHERE NOT is_retained`, now,
	); err != nil {
		return domain.ErrInternal("resetting auction pool", err)
	}
	if err := recomputeTeams(ctx, tx, initialPurse, slotCap, now); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrInternal("committing reset", err)
	}
	return nil
}

func (r *LedgerRepo) RecomputeTeamStats(ctx context.Context, initialPurse, slotCap int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.ErrInternal("beginning recompute transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := recomputeTeams(ctx, tx, initialPurse, slotCap, r.clock.Now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return domain.ErrInternal("committing recompute", err)
	}
	return nil
}

// recomputeTeams rebuilds every team's bookkeeping from its retained
// players: taken = retained count, spent = retained cost, and the purse
// and slot columns are the configured allocations minus those.
func recomputeTeams(ctx context.Context, tx *sqlx.Tx, initialPurse, slotCap int, now any) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE teams SET
		  players_taken_count = r.cnt,
		  slots_remaining = $1 - r.cnt,
		  purse_spent = r.cost,
		  purse = $2 - r.cost,
		  updated_at = $3
		FROM (
		  SELECT t.id, COUNT(p.id) AS cnt, COALESCE(SUM(p.sold_price), 0) AS cost
		  FROM teams t
		  LEFT JOIN players p ON p.team_id = t.id AND p.is_retained
		  GROUP BY t.id
		) r
		WHERE teams.id = r.id`,
		slotCap, initialPurse, now,
	)
	if err != nil {
		return domain.ErrInternal("recomputing team stats", err)
	}
	return nil
}
