package auction

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/rand/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kssmani94-hub/CPL6/internal/clock"
	"github.com/kssmani94-hub/CPL6/internal/config"
	"github.com/kssmani94-hub/CPL6/internal/domain"
	"github.com/kssmani94-hub/CPL6/internal/event"
	"github.com/kssmani94-hub/CPL6/internal/store"
)

// auctionAggregate is the event-trail aggregate id for the single
// running auction.
const auctionAggregate = "auction"

// Engine drives the auction flow: offering players, recording sales,
// rolling rounds, and pausing. All ledger mutations go through the
// store's atomic operations; the engine itself only holds flow state
// in sessions, so a crashed or restarted engine resumes from the
// ledger without repair.
type Engine struct {
	repos    *store.Repositories
	sessions *Sessions
	log      *slog.Logger
	tracer   trace.Tracer
	clock    clock.Clock

	initialPurse int
	slotCap      int

	// pick selects an index into the current pool. Swappable in tests.
	pick func(n int) int
}

// NewEngine creates an auction engine on top of the given repositories.
func NewEngine(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock, cfg config.AuctionConfig) *Engine {
	return &Engine{
		repos:        repos,
		sessions:     NewSessions(),
		log:          logger,
		tracer:       tp.Tracer("github.com/kssmani94-hub/CPL6/internal/auction"),
		clock:        clk,
		initialPurse: cfg.InitialPurse,
		slotCap:      cfg.SlotCap,
		pick:         rand.IntN,
	}
}

// Session returns the session for the given actor.
func (e *Engine) Session(actor string) *Session {
	return e.sessions.Get(actor)
}

// SelectNext offers a random player from the open pool. When the pool
// is empty the round is complete and (nil, nil) is returned; callers
// check the session's RoundComplete flag.
func (e *Engine) SelectNext(ctx context.Context, s *Session) (*store.Player, error) {
	ctx, span := e.tracer.Start(ctx, "auction.SelectNext")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	return e.selectNextLocked(ctx, s)
}

func (e *Engine) selectNextLocked(ctx context.Context, s *Session) (*store.Player, error) {
	if s.Paused {
		return nil, domain.ErrConflict("auction is paused")
	}
	if s.Complete {
		return nil, domain.ErrConflict("auction is complete")
	}

	pool, err := e.repos.Players.ListPool(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		s.CurrentPlayerID = ""
		pending, err := e.repos.Players.CountPendingRound(ctx, s.Round)
		if err != nil {
			return nil, err
		}
		if pending == 0 {
			s.Complete = true
			s.RoundComplete = false
			e.appendEvent(ctx, event.AuctionCompleted, event.AuctionStateData{Round: s.Round, Actor: s.Actor})
			e.log.InfoContext(ctx, "auction complete", slog.Int("final_round", s.Round))
			return nil, nil
		}
		s.RoundComplete = true
		e.log.InfoContext(ctx, "round complete, awaiting next round",
			slog.Int("round", s.Round), slog.Int("pending", pending), slog.String("actor", s.Actor))
		return nil, nil
	}

	p := pool[e.pick(len(pool))]
	s.Started = true
	s.CurrentPlayerID = p.ID
	s.RoundComplete = false

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("auction.player", p.Name),
		attribute.Int("auction.round", s.Round),
	)
	e.appendEvent(ctx, event.PlayerOffered, event.PlayerOfferedData{
		PlayerName: p.Name, Round: s.Round, Actor: s.Actor,
	})
	e.log.InfoContext(ctx, "player offered",
		slog.String("player", p.Name), slog.Int("round", s.Round), slog.Int("pool", len(pool)))
	return &p, nil
}

// MarkSold records the sale of the currently offered player to a team
// at the given price. The ledger rejects the sale atomically if the
// team is out of slots or purse, or if the player was already resolved
// by a concurrent submission.
func (e *Engine) MarkSold(ctx context.Context, s *Session, playerID, teamID string, price int) (*store.Player, *store.Team, error) {
	ctx, span := e.tracer.Start(ctx, "auction.MarkSold",
		trace.WithAttributes(attribute.Int("auction.price", price)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Paused {
		return nil, nil, domain.ErrConflict("auction is paused")
	}
	if price < 0 {
		return nil, nil, domain.ErrValidation("price must not be negative")
	}
	if !s.Started || s.CurrentPlayerID == "" {
		return nil, nil, domain.ErrConflict("no player is currently offered")
	}
	if playerID != s.CurrentPlayerID {
		return nil, nil, domain.ErrConflict("player is not the one currently offered")
	}

	p, tm, err := e.repos.Ledger.SellPlayer(ctx, playerID, teamID, price)
	if err != nil {
		return nil, nil, err
	}
	s.CurrentPlayerID = ""

	e.appendEvent(ctx, event.PlayerSold, event.PlayerSoldData{
		PlayerName: p.Name, TeamID: tm.ID, TeamName: tm.Name,
		Price: price, Round: s.Round, Actor: s.Actor,
	})
	e.log.InfoContext(ctx, "player sold",
		slog.String("player", p.Name), slog.String("team", tm.Name),
		slog.Int("price", price), slog.Int("purse_remaining", tm.Purse))
	return p, tm, nil
}

// MarkUnsold passes over the currently offered player, tagging them
// for the next round.
func (e *Engine) MarkUnsold(ctx context.Context, s *Session, playerID string) (*store.Player, error) {
	ctx, span := e.tracer.Start(ctx, "auction.MarkUnsold")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Paused {
		return nil, domain.ErrConflict("auction is paused")
	}
	if !s.Started || s.CurrentPlayerID == "" {
		return nil, domain.ErrConflict("no player is currently offered")
	}
	if playerID != s.CurrentPlayerID {
		return nil, domain.ErrConflict("player is not the one currently offered")
	}

	p, err := e.repos.Ledger.MarkPlayerUnsold(ctx, playerID, s.Round)
	if err != nil {
		return nil, err
	}
	s.CurrentPlayerID = ""

	e.appendEvent(ctx, event.PlayerUnsold, event.PlayerUnsoldData{
		PlayerName: p.Name, Round: s.Round, Actor: s.Actor,
	})
	e.log.InfoContext(ctx, "player unsold",
		slog.String("player", p.Name), slog.Int("round", s.Round))
	return p, nil
}

// StartNextRound reopens the players passed over in the finished round
// and offers the first player of the new round, lifting any pause. When
// no players are waiting the auction is complete and (nil, nil) is
// returned.
func (e *Engine) StartNextRound(ctx context.Context, s *Session) (*store.Player, error) {
	ctx, span := e.tracer.Start(ctx, "auction.StartNextRound")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Complete {
		return nil, domain.ErrConflict("auction is complete")
	}
	if !s.RoundComplete {
		return nil, domain.ErrConflict("current round still has players in the pool")
	}

	reopened, err := e.repos.Ledger.ReopenRound(ctx, s.Round)
	if err != nil {
		return nil, err
	}
	if reopened == 0 {
		s.Complete = true
		s.CurrentPlayerID = ""
		e.appendEvent(ctx, event.AuctionCompleted, event.AuctionStateData{Round: s.Round, Actor: s.Actor})
		e.log.InfoContext(ctx, "auction complete", slog.Int("final_round", s.Round))
		return nil, nil
	}

	s.Round++
	s.RoundComplete = false
	s.Paused = false
	e.appendEvent(ctx, event.RoundStarted, event.RoundStartedData{
		Round: s.Round, Reopened: reopened, Actor: s.Actor,
	})
	e.log.InfoContext(ctx, "round started",
		slog.Int("round", s.Round), slog.Int("reopened", reopened))
	return e.selectNextLocked(ctx, s)
}

// Pause suspends the auction flow. Sales and offers are rejected until
// Resume is called.
func (e *Engine) Pause(ctx context.Context, s *Session) error {
	ctx, span := e.tracer.Start(ctx, "auction.Pause")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Started {
		return domain.ErrConflict("auction has not started")
	}
	if s.Complete {
		return domain.ErrConflict("auction is complete")
	}
	if s.Paused {
		return domain.ErrConflict("auction is already paused")
	}
	s.Paused = true

	e.appendEvent(ctx, event.AuctionPaused, event.AuctionStateData{Round: s.Round, Actor: s.Actor})
	e.log.InfoContext(ctx, "auction paused", slog.String("actor", s.Actor))
	return nil
}

// Resume lifts a pause. If a player was on the block when the auction
// paused the same player is re-offered; otherwise a new one is drawn.
func (e *Engine) Resume(ctx context.Context, s *Session) (*store.Player, error) {
	ctx, span := e.tracer.Start(ctx, "auction.Resume")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Paused {
		return nil, domain.ErrConflict("auction is not paused")
	}
	s.Paused = false

	e.appendEvent(ctx, event.AuctionResumed, event.AuctionStateData{Round: s.Round, Actor: s.Actor})
	e.log.InfoContext(ctx, "auction resumed", slog.String("actor", s.Actor))

	if s.CurrentPlayerID != "" {
		return e.repos.Players.GetByID(ctx, s.CurrentPlayerID)
	}
	return e.selectNextLocked(ctx, s)
}

// Reset returns every non-retained player to the pool, rebuilds team
// purses and slots from retained players, and clears all sessions.
func (e *Engine) Reset(ctx context.Context, actor string) error {
	ctx, span := e.tracer.Start(ctx, "auction.Reset")
	defer span.End()

	if err := e.repos.Ledger.ResetAuction(ctx, e.initialPurse, e.slotCap); err != nil {
		return err
	}
	e.sessions.ResetAll()

	e.appendEvent(ctx, event.AuctionReset, event.AuctionStateData{Round: 1, Actor: actor})
	e.log.InfoContext(ctx, "auction reset", slog.String("actor", actor))
	return nil
}

// Summary reports the auction's standing. Completion is derived from
// the ledger counts, never stored: the auction is done when every
// pooled player has been resolved and no pending round remains.
type Summary struct {
	Session State            `json:"session"`
	Counts  store.PoolCounts `json:"counts"`
	Teams   []store.Team     `json:"teams"`
	// Done is true when no unresolved pool players remain.
	Done bool `json:"done"`
}

// Summarize returns the current auction summary for the actor's
// session. It never mutates state.
func (e *Engine) Summarize(ctx context.Context, s *Session) (*Summary, error) {
	ctx, span := e.tracer.Start(ctx, "auction.Summarize")
	defer span.End()

	counts, err := e.repos.Players.Counts(ctx)
	if err != nil {
		return nil, err
	}
	teams, err := e.repos.Teams.List(ctx)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Session: s.Snapshot(),
		Counts:  counts,
		Teams:   teams,
		Done:    counts.Total > 0 && counts.Unsold == 0 && counts.Pending == 0,
	}, nil
}

func (e *Engine) appendEvent(ctx context.Context, typ event.Type, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		e.log.ErrorContext(ctx, "marshaling event payload", slog.String("type", string(typ)), slog.Any("error", err))
		return
	}
	evt := event.Event{
		AggregateID: auctionAggregate,
		Type:        typ,
		Data:        data,
		CreatedAt:   e.clock.Now().UTC(),
	}
	if err := e.repos.Events.Append(ctx, evt); err != nil {
		// The audit trail is best effort; the ledger stays correct
		// even when an append is lost.
		e.log.ErrorContext(ctx, "appending event", slog.String("type", string(typ)), slog.Any("error", err))
	}
}
