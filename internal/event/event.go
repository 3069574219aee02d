package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	PlayerOffered Type = "player.offered"
	PlayerSold    Type = "player.sold"
	PlayerUnsold  Type = "player.unsold"

	RoundStarted Type = "round.started"

	AuctionPaused    Type = "auction.paused"
	AuctionResumed   Type = "auction.resumed"
	AuctionReset     Type = "auction.reset"
	AuctionCompleted Type = "auction.completed"

	PlayersImported Type = "players.imported"
)

// Event is a single entry in the auction audit trail.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int             `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// PlayerOfferedData is the payload for PlayerOffered events.
type PlayerOfferedData struct {
	PlayerName string `json:"player_name"`
	Round      int    `json:"round"`
	Actor      string `json:"actor"`
}

// PlayerSoldData is the payload for PlayerSold events.
type PlayerSoldData struct {
	PlayerName string `json:"player_name"`
	TeamID     string `json:"team_id"`
	TeamName   string `json:"team_name"`
	Price      int    `json:"price"`
	Round      int    `json:"round"`
	Actor      string `json:"actor"`
}

// PlayerUnsoldData is the payload for PlayerUnsold events.
type PlayerUnsoldData struct {
	PlayerName string `json:"player_name"`
	Round      int    `json:"round"`
	Actor      string `json:"actor"`
}

// RoundStartedData is the payload for RoundStarted events.
type RoundStartedData struct {
	Round    int    `json:"round"`
	Reopened int    `json:"reopened"`
	Actor    string `json:"actor"`
}

// AuctionStateData is the payload for pause/resume/reset/complete events.
type AuctionStateData struct {
	Round int    `json:"round"`
	Actor string `json:"actor"`
}

// PlayersImportedData is the payload for PlayersImported events.
type PlayersImportedData struct {
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Source  string `json:"source"`
}
