// Package importer seeds the player ledger from CSV files.
package importer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/kssmani94-hub/CPL6/internal/config"
	"github.com/kssmani94-hub/CPL6/internal/domain"
	"github.com/kssmani94-hub/CPL6/internal/event"
	"github.com/kssmani94-hub/CPL6/internal/store"
)

// Result summarizes one import run.
type Result struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Importer loads player records from CSV into the store.
type Importer struct {
	repos  *store.Repositories
	log    *slog.Logger
	tracer trace.Tracer

	initialPurse int
	slotCap      int
}

// New creates an Importer.
func New(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider, cfg config.AuctionConfig) *Importer {
	return &Importer{
		repos:        repos,
		log:          logger,
		tracer:       tp.Tracer("github.com/kssmani94-hub/CPL6/internal/importer"),
		initialPurse: cfg.InitialPurse,
		slotCap:      cfg.SlotCap,
	}
}

// truthy values accepted for the is_retained column.
var truthy = map[string]bool{"true": true, "1": true, "yes": true, "t": true}

// Run reads CSV rows from r and upserts players by name. Retained
// players are linked to their retaining team with their retention
// price; everyone else enters the pool as Unsold. Team purse and slot
// counters are recomputed afterwards. The source label is recorded in
// the audit trail.
func (i *Importer) Run(ctx context.Context, r io.Reader, source string) (*Result, error) {
	ctx, span := i.tracer.Start(ctx, "importer.Run")
	defer span.End()

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, domain.ErrValidation("reading CSV header: " + err.Error())
	}
	cols := make(map[string]int, len(header))
	for idx, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	if _, ok := cols["player_name"]; !ok {
		return nil, domain.ErrValidation("CSV is missing the player_name column")
	}

	res := &Result{}
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.ErrValidation(fmt.Sprintf("reading CSV line %d: %v", line+1, err))
		}
		line++

		get := func(col string) string {
			idx, ok := cols[col]
			if !ok || idx >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[idx])
		}

		name := get("player_name")
		if name == "" {
			res.Skipped++
			continue
		}

		p := store.Player{
			Name:          name,
			ImageFilename: get("image_filename"),
			Role:          get("role"),
			Matches:       safeInt(get("overall_matches")),
			Runs:          safeInt(get("overall_runs")),
			Wickets:       safeInt(get("overall_wickets")),
			StrikeRate:    safeFloat(get("overall_sr")),
			HighScore:     safeInt(get("overall_hs")),
			BattingInn:    safeInt(get("batting_inn")),
			BattingAvg:    safeFloat(get("batting_avg")),
			BowlingInn:    safeInt(get("bowling_inn")),
			BowlingAvg:    safeFloat(get("bowling_avg")),
			Economy:       safeFloat(get("econ")),
			BestBowling:   safeStr(get("bbi")),
			Status:        domain.Unsold,
		}

		if truthy[strings.ToLower(get("is_retained"))] {
			teamName := get("retaining_team_name")
			team, err := i.repos.Teams.GetByName(ctx, teamName)
			if err != nil {
				i.log.WarnContext(ctx, "retained player references unknown team, importing into pool",
					slog.String("player", name), slog.String("team", teamName))
			} else {
				p.Retained = true
				p.Status = domain.Retained
				p.TeamID = &team.ID
				p.SoldPrice = safeInt(get("last_year_price"))
			}
		}

		existing, err := i.repos.Players.GetByName(ctx, name)
		switch {
		case err == nil:
			p.ID = existing.ID
			p.CreatedAt = existing.CreatedAt
			if err := i.repos.Players.Update(ctx, &p); err != nil {
				return nil, err
			}
			res.Updated++
		case domain.IsCode(err, domain.CodeNotFound):
			if err := i.repos.Players.Create(ctx, &p); err != nil {
				return nil, err
			}
			res.Created++
		default:
			return nil, err
		}
	}

	if err := i.repos.Ledger.RecomputeTeamStats(ctx, i.initialPurse, i.slotCap); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(event.PlayersImportedData{
		Created: res.Created, Updated: res.Updated, Source: source,
	}); err == nil {
		if err := i.repos.Events.Append(ctx, event.Event{
			AggregateID: "auction", Type: event.PlayersImported, Data: data,
		}); err != nil {
			i.log.ErrorContext(ctx, "appending import event", slog.Any("error", err))
		}
	}

	i.log.InfoContext(ctx, "player import finished",
		slog.String("source", source),
		slog.Int("created", res.Created), slog.Int("updated", res.Updated), slog.Int("skipped", res.Skipped))
	return res, nil
}

// safeInt coerces ints the way the source sheets need: blanks, dashes
// and junk become zero, decimal strings are truncated.
func safeInt(s string) int {
	if s == "" || s == "-" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int(f)
	}
	return 0
}

func safeFloat(s string) float64 {
	if s == "" || s == "-" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// safeStr normalizes blank cells to the dash placeholder.
func safeStr(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
