// Package roster handles team administration: seeding teams, listing
// them with their squads, and rebuilding purse and slot bookkeeping
// from retained players.
package roster

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kssmani94-hub/CPL6/internal/config"
	"github.com/kssmani94-hub/CPL6/internal/domain"
	"github.com/kssmani94-hub/CPL6/internal/store"
)

// TeamSquad is a team with its current players, retained first.
type TeamSquad struct {
	Team    store.Team     `json:"team"`
	Players []store.Player `json:"players"`
}

// Manager provides team administration on top of the store.
type Manager struct {
	repos  *store.Repositories
	log    *slog.Logger
	tracer trace.Tracer

	initialPurse int
	slotCap      int
}

// NewManager creates a roster manager.
func NewManager(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider, cfg config.AuctionConfig) *Manager {
	return &Manager{
		repos:        repos,
		log:          logger,
		tracer:       tp.Tracer("github.com/kssmani94-hub/CPL6/internal/roster"),
		initialPurse: cfg.InitialPurse,
		slotCap:      cfg.SlotCap,
	}
}

// CreateTeam registers a new team with a full purse and all slots
// open. Team names are unique, case-insensitively.
func (m *Manager) CreateTeam(ctx context.Context, name, captainName string) (*store.Team, error) {
	ctx, span := m.tracer.Start(ctx, "roster.CreateTeam",
		trace.WithAttributes(attribute.String("team.name", name)))
	defer span.End()

	name = strings.TrimSpace(name)
	captainName = strings.TrimSpace(captainName)
	if name == "" {
		return nil, domain.ErrValidation("team name must not be empty")
	}
	if captainName == "" {
		return nil, domain.ErrValidation("captain name must not be empty")
	}
	if _, err := m.repos.Teams.GetByName(ctx, name); err == nil {
		return nil, domain.ErrConflict("team " + name + " already exists")
	} else if !domain.IsCode(err, domain.CodeNotFound) {
		return nil, err
	}

	t := &store.Team{
		Name:           name,
		CaptainName:    captainName,
		Purse:          m.initialPurse,
		SlotsRemaining: m.slotCap,
	}
	if err := m.repos.Teams.Create(ctx, t); err != nil {
		return nil, err
	}
	m.log.InfoContext(ctx, "team created",
		slog.String("team", t.Name), slog.String("captain", t.CaptainName))
	return t, nil
}

// Teams lists all teams.
func (m *Manager) Teams(ctx context.Context) ([]store.Team, error) {
	return m.repos.Teams.List(ctx)
}

// Squad returns a team and its players.
func (m *Manager) Squad(ctx context.Context, teamID string) (*TeamSquad, error) {
	ctx, span := m.tracer.Start(ctx, "roster.Squad")
	defer span.End()

	t, err := m.repos.Teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	players, err := m.repos.Players.ListByTeam(ctx, t.ID)
	if err != nil {
		return nil, err
	}
	return &TeamSquad{Team: *t, Players: players}, nil
}

// SquadByName returns a team and its players, looked up by team name.
func (m *Manager) SquadByName(ctx context.Context, name string) (*TeamSquad, error) {
	t, err := m.repos.Teams.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return m.Squad(ctx, t.ID)
}

// Recompute rebuilds every team's purse and slot counters from their
// retained players. Run after a bulk import changes retentions.
func (m *Manager) Recompute(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "roster.Recompute")
	defer span.End()

	if err := m.repos.Ledger.RecomputeTeamStats(ctx, m.initialPurse, m.slotCap); err != nil {
		return err
	}
	m.log.InfoContext(ctx, "team stats recomputed")
	return nil
}
