// Package memstore provides an in-process store.Driver. It backs unit
// tests and local onboarding; the postgres driver is the production
// path. Both drivers share the registry in the store package, so the
// engine is exercised identically against either.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kssmani94-hub/CPL6/internal/clock"
	"github.com/kssmani94-hub/CPL6/internal/config"
	"github.com/kssmani94-hub/CPL6/internal/domain"
	"github.com/kssmani94-hub/CPL6/internal/event"
	"github.com/kssmani94-hub/CPL6/internal/store"
)

func init() {
	store.Register("memory", open)
}

// closerFunc adapts a func() error into an io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func open(_ context.Context, _ config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	s := New(clk)
	return &store.Repositories{
		Players: s,
		Teams:   s.Teams(),
		Ledger:  s,
		Events:  s,
		Closer:  closerFunc(func() error { return nil }),
		Ping:    func(context.Context) error { return nil },
	}, nil
}

// Store holds both ledgers and the audit trail behind one mutex, which
// gives the ledger operations the same all-or-nothing semantics the
// postgres driver gets from transactions.
type Store struct {
	mu      sync.RWMutex
	players map[string]*store.Player
	teams   map[string]*store.Team
	events  []event.Event
	clock   clock.Clock
}

// New returns an empty in-memory store.
func New(clk clock.Clock) *Store {
	return &Store{
		players: make(map[string]*store.Player),
		teams:   make(map[string]*store.Team),
		clock:   clk,
	}
}

// --- PlayerRepository ---

func (s *Store) Create(_ context.Context, p *store.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.clock.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *Store) Update(_ context.Context, p *store.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.players[p.ID]
	if !ok {
		return domain.ErrNotFound("player", p.ID)
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = s.clock.Now().UTC()
	cp := *p
	s.players[p.ID] = &cp
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*store.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return nil, domain.ErrNotFound("player", id)
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetByName(_ context.Context, name string) (*store.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.Name == name {
			cp := *p
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound("player", name)
}

func (s *Store) List(_ context.Context) ([]store.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Player, 0, len(s.players))
	for _, p := range s.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Retained != out[j].Retained {
			return out[i].Retained
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) ListFiltered(_ context.Context, f store.Filter) ([]store.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Player
	for _, p := range s.players {
		if matchFilter(p, f) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func matchFilter(p *store.Player, f store.Filter) bool {
	switch f {
	case store.FilterRetained:
		return p.Retained
	case store.FilterAuction:
		return !p.Retained
	case store.FilterSold:
		return !p.Retained && p.Status.Kind == domain.StatusSold
	case store.FilterUnsold:
		return !p.Retained && (p.Status.Kind == domain.StatusUnsold || p.Status.Pending())
	default:
		return true
	}
}

func (s *Store) ListPool(_ context.Context) ([]store.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Player
	for _, p := range s.players {
		if !p.Retained && p.Status == domain.Unsold {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ListByTeam(_ context.Context, teamID string) ([]store.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []store.Player
	for _, p := range s.players {
		if p.TeamID != nil && *p.TeamID == teamID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Retained != out[j].Retained {
			return out[i].Retained
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (s *Store) CountPendingRound(_ context.Context, round int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, p := range s.players {
		if !p.Retained && p.Status == domain.PendingRound(round) {
			n++
		}
	}
	return n, nil
}

func (s *Store) Counts(_ context.Context) (store.PoolCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c store.PoolCounts
	for _, p := range s.players {
		if p.Retained {
			continue
		}
		c.Total++
		switch {
		case p.Status.Kind == domain.StatusSold:
			c.Sold++
		case p.Status.Kind == domain.StatusUnsold:
			c.Unsold++
		case p.Status.Pending():
			c.Pending++
		}
	}
	return c, nil
}

func (s *Store) DeletePool(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.players {
		if !p.Retained {
			delete(s.players, id)
		}
	}
	return nil
}

// --- TeamRepository ---

// teamsView adapts Store to store.TeamRepository; the player methods
// already claim the Create/GetByID names on Store itself.
type teamsView struct{ s *Store }

// Teams returns the store's TeamRepository view.
func (s *Store) Teams() store.TeamRepository { return teamsView{s} }

func (v teamsView) Create(ctx context.Context, t *store.Team) error { return v.s.CreateTeam(ctx, t) }

func (v teamsView) GetByID(ctx context.Context, id string) (*store.Team, error) {
	return v.s.GetTeamByID(ctx, id)
}

func (v teamsView) GetByName(ctx context.Context, name string) (*store.Team, error) {
	return v.s.GetTeamByName(ctx, name)
}

func (v teamsView) List(ctx context.Context) ([]store.Team, error) { return v.s.ListTeams(ctx) }

func (s *Store) CreateTeam(_ context.Context, t *store.Team) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	now := s.clock.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	s.teams[t.ID] = &cp
	return nil
}

func (s *Store) GetTeamByID(_ context.Context, id string) (*store.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	if !ok {
		return nil, domain.ErrNotFound("team", id)
	}
	cp := *t
	return &cp, nil
}

func (s *Store) GetTeamByName(_ context.Context, name string) (*store.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.teams {
		if strings.EqualFold(t.Name, name) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound("team", name)
}

func (s *Store) ListTeams(_ context.Context) ([]store.Team, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Team, 0, len(s.teams))
	for _, t := range s.teams {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// --- Ledger ---

func (s *Store) SellPlayer(_ context.Context, playerID, teamID string, price int) (*store.Player, *store.Team, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return nil, nil, domain.ErrNotFound("player", playerID)
	}
	if p.Retained || p.Status != domain.Unsold {
		return nil, nil, domain.ErrConflict("player is not currently up for auction or action already taken")
	}
	t, ok := s.teams[teamID]
	if !ok {
		return nil, nil, domain.ErrNotFound("team", teamID)
	}
	if t.SlotsRemaining <= 0 {
		return nil, nil, domain.ErrCapacity(t.Name)
	}
	if t.Purse < price {
		return nil, nil, domain.ErrBudget(t.Name, t.Purse)
	}

	now := s.clock.Now().UTC()
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

	cp, ct := *p, *t
	return &cp, &ct, nil
}

func (s *Store) MarkPlayerUnsold(_ context.Context, playerID string, round int) (*store.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return nil, domain.ErrNotFound("player", playerID)
	}
	if p.Retained || p.Status != domain.Unsold {
		return nil, domain.ErrConflict("player is not currently up for auction or action already taken")
	}
	p.Status = domain.PendingRound(round)
	p.UpdatedAt = s.clock.Now().UTC()
	cp := *p
	return &cp, nil
}

func (s *Store) ReopenRound(_ context.Context, round int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := domain.PendingRound(round)
	n := 0
	now := s.clock.Now().UTC()
	for _, p := range s.players {
		if !p.Retained && p.Status == tag {
			p.Status = domain.Unsold
			p.UpdatedAt = now
			n++
		}
	}
	return n, nil
}

func (s *Store) ResetAuction(_ context.Context, initialPurse, slotCap int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now().UTC()
	for _, p := range s.players {
		if p.Retained {
			continue
		}
		p.Status = domain.Unsold
		p.SoldPrice = 0
		p.TeamID = nil
		p.UpdatedAt = now
	}
	s.recomputeLocked(initialPurse, slotCap)
	return nil
}

func (s *Store) RecomputeTeamStats(_ context.Context, initialPurse, slotCap int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recomputeLocked(initialPurse, slotCap)
	return nil
}

// recomputeLocked rebuilds every team's stats from its retained
// players. Callers hold the write lock.
func (s *Store) recomputeLocked(initialPurse, slotCap int) {
	type agg struct{ count, cost int }
	byTeam := make(map[string]agg)
	for _, p := range s.players {
		if p.Retained && p.TeamID != nil {
			a := byTeam[*p.TeamID]
			a.count++
			a.cost += p.SoldPrice
			byTeam[*p.TeamID] = a
		}
	}
	for _, t := range s.teams {
		a := byTeam[t.ID]
		t.PlayersTaken = a.count
		t.SlotsRemaining = slotCap - a.count
		t.PurseSpent = a.cost
		t.Purse = initialPurse - a.cost
		t.UpdatedAt = s.clock.Now().UTC()
	}
}

// --- event.Store ---

func (s *Store) Append(_ context.Context, events ...event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now().UTC()
	for _, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		e.CreatedAt = now
		s.events = append(s.events, e)
	}
	return nil
}

func (s *Store) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []event.Event
	for _, e := range s.events {
		if e.AggregateID == aggregateID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Store) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []event.Event
	for _, e := range s.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out, nil
}
