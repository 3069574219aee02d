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

// TeamRepo implements store.TeamRepository with sqlx.
type TeamRepo struct {
	db    *sqlx.DB
	clock clock.Clock
}

// NewTeamRepo returns a new TeamRepo.
func NewTeamRepo(db *sqlx.DB, clk clock.Clock) *TeamRepo {
	return &TeamRepo{db: db, clock: clk}
}

func (r *TeamRepo) Create(ctx context.Context, t *store.Team) error {
	query := `INSERT INTO teams (team_name, captain_name, purse, purse_spent,
	            players_taken_count, slots_remaining, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	now := r.clock.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.CaptainName, t.Purse, t.PurseSpent,
		t.PlayersTaken, t.SlotsRemaining, t.CreatedAt, t.UpdatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("creating team: %w", err)
	}
	return nil
}

func (r *TeamRepo) GetByID(ctx context.Context, id string) (*store.Team, error) {
	var t store.Team
	err := r.db.GetContext(ctx, &t, `SELECT * FROM teams WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("team", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting team by id: %w", err)
	}
	return &t, nil
}

func (r *TeamRepo) GetByName(ctx context.Context, name string) (*store.Team, error) {
	var t store.Team
	err := r.db.GetContext(ctx, &t, `SELECT * FROM teams WHERE LOWER(team_name) = LOWER($1)`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound("team", name)
	}
	if err != nil {
		return nil, fmt.Errorf("getting team by name: %w", err)
	}
	return &t, nil
}

func (r *TeamRepo) List(ctx context.Context) ([]store.Team, error) {
	var teams []store.Team
	err := r.db.SelectContext(ctx, &teams, `SELECT * FROM teams ORDER BY team_name ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	return teams, nil
}
