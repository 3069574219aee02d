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

// playerColumns is the select list shared by the player queries.
const playerColumns = `id, player_name, image_filename, is_retained, role,
	overall_matches, overall_runs, overall_wickets, overall_sr, overall_hs,
	batting_inn, batting_avg, bowling_inn, bowling_avg, econ, bbi,
	status, sold_price, team_id, created_at, updated_at`

// PlayerRepo implements store.PlayerRepository with sqlx.
type PlayerRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewPlayerRepo returns a new PlayerRepo.
func NewPlayerRepo(db *sqlx.DB, clk clock.Clock) *PlayerRepo {
	return &PlayerRepo{db: db, clock: clk}
}

func (r *PlayerRepo) Create(ctx context.Context, p *store.Player) error {
	query := `INSERT INTO players (player_name, image_filename, is_retained, role,
	            overall_matches, overall_runs, overall_wickets, overall_sr, overall_hs,
	            batting_inn, batting_avg, bowling_inn, bowling_avg, econ, bbi,
	            status, sold_price, team_id, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	          RETURNING id`
	now := r.clock.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	err := r.db.QueryRowContext(ctx, query,
		p.Name, p.ImageFilename, p.Retained, p.Role,
		p.Matches, p.Runs, p.Wickets, p.StrikeRate, p.HighScore,
		p.BattingInn, p.BattingAvg, p.BowlingInn, p.BowlingAvg, p.Economy, p.BestBowling,
		p.Status, p.SoldPrice, p.TeamID, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("creating player: %w", err)
	}
	return nil
}

func (r *PlayerRepo) Update(ctx context.Context, p *store.Player) error {
	p.UpdatedAt = r.clock.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE players SET player_name = $1, image_filename = $2, is_retained = $3, role = $4,
		   overall_matches = $5, overall_runs = $6, overall_wickets = $7, overall_sr = $8, overall_hs = $9,
		   batting_inn = $10, batting_avg = $11, bowling_inn = $12, bowling_avg = $13, econ = $14, bbi = $15,
		   status = $16, sold_price = $17, team_id = $18, updated_at = $19
		 WHERE id = $20`,
		p.Name, p.ImageFilename, p.Retained, p.Role,
		p.Matches, p.Runs, p.Wickets, p.StrikeRate, p.HighScore,
		p.BattingInn, p.BattingAvg, p.BowlingInn, p.BowlingAvg, p.Economy, p.BestBowling,
		p.Status, p.SoldPrice, p.TeamID, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating player: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return domain.ErrNotFound("player", p.ID)
	}
	return nil
}

func (r *PlayerRepo) GetByID(ctx context.Context, id string) (*store.Player, error) {
	var p store.Player
	err := r.db.GetContext(ctx, &p,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("player", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting player by id: %w", err)
	}
	return &p, nil
}

func (r *PlayerRepo) GetByName(ctx context.Context, name string) (*store.Player, error) {
	var p store.Player
	err := r.db.GetContext(ctx, &p,
		`SELECT `+playerColumns+` FROM players WHERE player_name = $1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("player", name)
	}
	if err != nil {
		return nil, fmt.Errorf("getting player by name: %w", err)
	}
	return &p, nil
}

func (r *PlayerRepo) List(ctx context.Context) ([]store.Player, error) {
	var players []store.Player
	err := r.db.SelectContext(ctx, &players,
		`SELECT `+playerColumns+` FROM players ORDER BY is_retained DESC, player_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	return players, nil
}

func (r *PlayerRepo) ListFiltered(ctx context.Context, f store.Filter) ([]store.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players`
	switch f {
	case store.FilterRetained:
		query += ` WHERE is_retained`
	case store.FilterAuction:
		query += ` WHERE NOT is_retained`
	case store.FilterSold:
		query += ` WHERE NOT is_retained AND status = 'Sold'`
	case store.FilterUnsold:
		query += ` WHERE NOT is_retained
		  AND (status = 'Unsold' OR status LIKE 'Round % Unsold' OR status = 'Unsold Final')`
	}
	query += ` ORDER BY player_name ASC`

	var players []store.Player
	if err := r.db.SelectContext(ctx, &players, query); err != nil {
		return nil, fmt.Errorf("listing players (filter=%s): %w", f, err)
	}
	return players, nil
}

func (r *PlayerRepo) ListPool(ctx context.Context) ([]store.Player, error) {
	var players []store.Player
	err := r.db.SelectContext(ctx, &players,
		`SELECT `+playerColumns+` FROM players
		 WHERE NOT is_retained AND status = 'Unsold' ORDER BY player_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing pool: %w", err)
	}
	return players, nil
}

func (r *PlayerRepo) ListByTeam(ctx context.Context, teamID string) ([]store.Player, error) {
	var players []store.Player
	err := r.db.SelectContext(ctx, &players,
		`SELECT `+playerColumns+` FROM players
		 WHERE team_id = $1 ORDER BY is_retained DESC, player_name ASC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing team players: %w", err)
	}
	return players, nil
}

func (r *PlayerRepo) CountPendingRound(ctx context.Context, round int) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM players WHERE NOT is_retained AND status = $1`,
		domain.PendingRound(round))
	if err != nil {
		return 0, fmt.Errorf("counting pending round %d: %w", round, err)
	}
	return n, nil
}

func (r *PlayerRepo) Counts(ctx context.Context) (store.PoolCounts, error) {
	var c store.PoolCounts
	err := r.db.GetContext(ctx, &c, `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE status = 'Sold') AS sold,
		       COUNT(*) FILTER (WHERE status = 'Unsold') AS unsold,
		       COUNT(*) FILTER (WHERE status LIKE 'Round % Unsold' OR status = 'Unsold Final') AS pending
		FROM players WHERE NOT is_retained`)
	if err != nil {
		return store.PoolCounts{}, fmt.Errorf("counting pool: %w", err)
	}
	return c, nil
}

func (r *PlayerRepo) DeletePool(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM players WHERE NOT is_retained`); err != nil {
		return fmt.Errorf("deleting auction pool: %w", err)
	}
	return nil
}
