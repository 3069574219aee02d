package auction

import "sync"

// Session tracks one admin's live auction console: which player is on
// the block, which round is running, and whether the flow is paused.
// Ledger state (statuses, purses, slots) lives in the store; a session
// holds only flow control, so losing it never corrupts the auction.
type Session struct {
	mu sync.Mutex

	Actor           string
	Started         bool
	Paused          bool
	Round           int
	CurrentPlayerID string
	RoundComplete   bool
	Complete        bool
}

// State is a copyable snapshot of a session for responses and logs.
type State struct {
	Actor           string `json:"actor"`
	Started         bool   `json:"started"`
	Paused          bool   `json:"paused"`
	Round           int    `json:"round"`
	CurrentPlayerID string `json:"current_player_id,omitempty"`
	RoundComplete   bool   `json:"round_complete"`
	Complete        bool   `json:"complete"`
}

// Snapshot returns the session's current state.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		Actor:           s.Actor,
		Started:         s.Started,
		Paused:          s.Paused,
		Round:           s.Round,
		CurrentPlayerID: s.CurrentPlayerID,
		RoundComplete:   s.RoundComplete,
		Complete:        s.Complete,
	}
}

func (s *Session) resetLocked() {
	s.Started = false
	s.Paused = false
	s.Round = 1
	s.CurrentPlayerID = ""
	s.RoundComplete = false
	s.Complete = false
}

// Sessions is an in-memory registry of per-actor sessions.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessions returns an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Get returns the session for actor, creating a fresh round-one
// session on first use.
func (r *Sessions) Get(actor string) *Session {
	r.mu.RLock()
	s, ok := r.sessions[actor]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[actor]; ok {
		return s
	}
	s = &Session{Actor: actor, Round: 1}
	r.sessions[actor] = s
	return s
}

// ResetAll returns every session to its initial state. Called when the
// auction itself is reset so stale consoles cannot act on old rounds.
func (r *Sessions) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sessions {
		s.mu.Lock()
		s.resetLocked()
		s.mu.Unlock()
	}
}
