package domain

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
)

// StatusKind enumerates the auction lifecycle states a player can hold.
type StatusKind int

const (
	// StatusUnsold marks a player still in the active round's pool.
	StatusUnsold StatusKind = iota
	// StatusSold marks a player bought by a team.
	StatusSold
	// StatusRetained marks a player pre-assigned to a team before the
	// auction; never enters the pool.
	StatusRetained
	// StatusPendingRound marks a player passed over in round N, queued
	// for reconsideration when round N+1 starts.
	StatusPendingRound
	// StatusFinalUnsold marks a player left unsold after the last round.
	StatusFinalUnsold
)

// Status is a tagged variant over StatusKind. Round is meaningful only
// when Kind is StatusPendingRound.
type Status struct {
	Kind  StatusKind
	Round int
}

var (
	Unsold      = Status{Kind: StatusUnsold}
	Sold        = Status{Kind: StatusSold}
	Retained    = Status{Kind: StatusRetained}
	FinalUnsold = Status{Kind: StatusFinalUnsold}
)

// PendingRound returns the status tagging a player as unsold in round n.
func PendingRound(n int) Status {
	return Status{Kind: StatusPendingRound, Round: n}
}

// String renders the stored form. The pending form is "Round N Unsold",
// kept byte-compatible with the historical data.
func (s Status) String() string {
	switch s.Kind {
	case StatusUnsold:
		return "Unsold"
	case StatusSold:
		return "Sold"
	case StatusRetained:
		return "Retained"
	case StatusPendingRound:
		return fmt.Sprintf("Round %d Unsold", s.Round)
	case StatusFinalUnsold:
		return "Unsold Final"
	}
	return "Unsold"
}

// ParseStatus parses a stored status string.
func ParseStatus(raw string) (Status, error) {
	switch raw {
	case "Unsold":
		return Unsold, nil
	case "Sold":
		return Sold, nil
	case "Retained":
		return Retained, nil
	case "Unsold Final":
		return FinalUnsold, nil
	}
	if rest, ok := strings.CutPrefix(raw, "Round "); ok {
		if num, ok := strings.CutSuffix(rest, " Unsold"); ok {
			n, err := strconv.Atoi(num)
			if err != nil || n < 1 {
				return Status{}, fmt.Errorf("invalid round in status %q", raw)
			}
			return PendingRound(n), nil
		}
	}
	return Status{}, fmt.Errorf("unknown player status %q", raw)
}

// Pending reports whether the player is waiting for a later round,
// which includes the terminal "Unsold Final" tag.
func (s Status) Pending() bool {
	return s.Kind == StatusPendingRound || s.Kind == StatusFinalUnsold
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Status", src)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON renders the status as its stored string form.
func (s Status) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON parses the stored string form.
func (s *Status) UnmarshalJSON(data []byte) error {
	raw, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("status must be a JSON string: %w", err)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
