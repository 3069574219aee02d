package store

import (
	"context"
	"time"

	"github.com/kssmani94-hub/CPL6/internal/domain"
)

// Player is one entry in the player ledger. Name and the career stats
// are set at import time; status, sold price and team ref are owned by
// the auction engine.
type Player struct {
	ID            string  `db:"id" json:"id"`
	Name          string  `db:"player_name" json:"name"`
	ImageFilename string  `db:"image_filename" json:"image_filename"`
	Retained      bool    `db:"is_retained" json:"is_retained"`
	Role          string  `db:"role" json:"role"`
	Matches       int     `db:"overall_matches" json:"overall_matches"`
	Runs          int     `db:"overall_runs" json:"overall_runs"`
	Wickets       int     `db:"overall_wickets" json:"overall_wickets"`
	StrikeRate    float64 `db:"overall_sr" json:"overall_sr"`
	HighScore     int     `db:"overall_hs" json:"overall_hs"`
	BattingInn    int     `db:"batting_inn" json:"batting_inn"`
	BattingAvg    float64 `db:"batting_avg" json:"batting_avg"`
	BowlingInn    int     `db:"bowling_inn" json:"bowling_inn"`
	BowlingAvg    float64 `db:"bowling_avg" json:"bowling_avg"`
	Economy       float64 `db:"econ" json:"econ"`
	BestBowling   string  `db:"bbi" json:"bbi"`

	Status    domain.Status `db:"status" json:"status"`
	SoldPrice int           `db:"sold_price" json:"sold_price"`
	TeamID    *string       `db:"team_id" json:"team_id"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Team is one entry in the team ledger. purse + purse_spent and
// players_taken + slots_remaining are complementary pairs maintained
// transactionally by the ledger operations.
type Team struct {
	ID             string `db:"id" json:"id"`
	Name           string `db:"team_name" json:"name"`
	CaptainName    string `db:"captain_name" json:"captain_name"`
	Purse          int    `db:"purse" json:"purse"`
	PurseSpent     int    `db:"purse_spent" json:"purse_spent"`
	PlayersTaken   int    `db:"players_taken_count" json:"players_taken_count"`
	SlotsRemaining int    `db:"slots_remaining" json:"slots_remaining"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PoolCounts summarizes the non-retained player pool.
type PoolCounts struct {
	Total   int `json:"total" db:"total"`
	Sold    int `json:"sold" db:"sold"`
	Unsold  int `json:"unsold" db:"unsold"`
	Pending int `json:"pending" db:"pending"`
}

// Remaining returns how many pool players are still unresolved.
func (c PoolCounts) Remaining() int { return c.Unsold + c.Pending }

// Filter selects a slice of the player ledger for listings and exports.
type Filter string

const (
	FilterAll      Filter = "all"
	FilterRetained Filter = "retained"
	// FilterAuction selects every non-retained player.
	FilterAuction Filter = "auction"
	FilterSold    Filter = "sold"
	// FilterUnsold selects non-retained players still unresolved:
	// status Unsold, any "Round N Unsold" tag, or "Unsold Final".
	FilterUnsold Filter = "unsold"
)

// PlayerRepository defines player ledger persistence operations.
type PlayerRepository interface {
	Create(ctx context.Context, p *Player) error
	Update(ctx context.Context, p *Player) error
	GetByID(ctx context.Context, id string) (*Player, error)
	GetByName(ctx context.Context, name string) (*Player, error)
	// List returns all players, retained first then by name.
	List(ctx context.Context) ([]Player, error)
	// ListFiltered returns players matching the filter, ordered by name.
	ListFiltered(ctx context.Context, f Filter) ([]Player, error)
	// ListPool returns the non-retained players with status Unsold.
	ListPool(ctx context.Context) ([]Player, error)
	ListByTeam(ctx context.Context, teamID string) ([]Player, error)
	// CountPendingRound counts non-retained players tagged
	// "Round <round> Unsold".
	CountPendingRound(ctx context.Context, round int) (int, error)
	// Counts summarizes the non-retained pool; Pending matches the
	// "Round % Unsold" pattern plus "Unsold Final".
	Counts(ctx context.Context) (PoolCounts, error)
	// DeletePool removes all non-retained players. Used by the bulk
	// import's fresh-seed path; retained players are untouched.
	DeletePool(ctx context.Context) error
}

// TeamRepository defines team ledger persistence operations.
type TeamRepository interface {
	Create(ctx context.Context, t *Team) error
	GetByID(ctx context.Context, id string) (*Team, error)
	GetByName(ctx context.Context, name string) (*Team, error)
	List(ctx context.Context) ([]Team, error)
}

// Ledger groups the operations that mutate players and teams together.
// Every method is a single atomic transaction: on any failure neither
// ledger is changed. Conflicts with concurrent submissions are detected
// here, at commit time, not from session state.
type Ledger interface {
	// SellPlayer records a sale: the player must be non-retained with
	// status exactly Unsold, the team must have a free slot and purse
	// covering price. Returns the updated rows.
	SellPlayer(ctx context.Context, playerID, teamID string, price int) (*Player, *Team, error)
	// MarkPlayerUnsold tags an Unsold player for the next round.
	MarkPlayerUnsold(ctx context.Context, playerID string, round int) (*Player, error)
	// ReopenRound moves every "Round <round> Unsold" player back to
	// Unsold and returns how many were moved.
	ReopenRound(ctx context.Context, round int) (int, error)
	// ResetAuction returns all non-retained players to Unsold with no
	// price or team, and recomputes every team's stats from its
	// retained players.
	ResetAuction(ctx context.Context, initialPurse, slotCap int) error
	// RecomputeTeamStats rebuilds every team's purse/slot bookkeeping
	// from its retained players. Same formula as ResetAuction's team
	// pass; used after bulk import.
	RecomputeTeamStats(ctx context.Context, initialPurse, slotCap int) error
}
