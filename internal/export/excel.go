// Package export renders the player and team ledgers as spreadsheets.
package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kssmani94-hub/CPL6/internal/store"
)

// playerColumns is the header row shared by both workbook kinds.
var playerColumns = []string{
	"Player Name", "Status", "Price (Points)", "Team", "Role",
	"Matches", "Runs", "Wickets", "Strike Rate", "High Score",
	"Batting Inn", "Batting Avg", "Bowling Inn", "Bowling Avg",
	"Economy", "Best Bowling",
}

// Exporter writes xlsx workbooks from the store.
type Exporter struct {
	repos  *store.Repositories
	log    *slog.Logger
	tracer trace.Tracer
}

// New creates an Exporter.
func New(repos *store.Repositories, logger *slog.Logger, tp trace.TracerProvider) *Exporter {
	return &Exporter{
		repos:  repos,
		log:    logger,
		tracer: tp.Tracer("github.com/kssmani94-hub/CPL6/internal/export"),
	}
}

// TeamWorkbook writes a single-sheet workbook for one team, retained
// players first, and returns the team for filename purposes.
func (e *Exporter) TeamWorkbook(ctx context.Context, w io.Writer, teamID string) (*store.Team, error) {
	ctx, span := e.tracer.Start(ctx, "export.TeamWorkbook")
	defer span.End()

	team, err := e.repos.Teams.GetByID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	players, err := e.repos.Players.ListByTeam(ctx, team.ID)
	if err != nil {
		return nil, err
	}

	teamNames := map[string]string{team.ID: team.Name}
	if err := e.writeWorkbook(w, team.Name, players, teamNames); err != nil {
		return nil, err
	}
	e.log.InfoContext(ctx, "team workbook exported",
		slog.String("team", team.Name), slog.Int("players", len(players)))
	return team, nil
}

// PlayersWorkbook writes a workbook of all players matching the filter.
func (e *Exporter) PlayersWorkbook(ctx context.Context, w io.Writer, f store.Filter) error {
	ctx, span := e.tracer.Start(ctx, "export.PlayersWorkbook",
		trace.WithAttributes(attribute.String("export.filter", string(f))))
	defer span.End()

	players, err := e.repos.Players.ListFiltered(ctx, f)
	if err != nil {
		return err
	}
	teams, err := e.repos.Teams.List(ctx)
	if err != nil {
		return err
	}
	teamNames := make(map[string]string, len(teams))
	for _, t := range teams {
		teamNames[t.ID] = t.Name
	}

	sheet := "Players"
	if f != store.FilterAll && f != "" {
		sheet = "Players (" + string(f) + ")"
	}
	if err := e.writeWorkbook(w, sheet, players, teamNames); err != nil {
		return err
	}
	e.log.InfoContext(ctx, "players workbook exported",
		slog.String("filter", string(f)), slog.Int("players", len(players)))
	return nil
}

func (e *Exporter) writeWorkbook(w io.Writer, sheet string, players []store.Player, teamNames map[string]string) error {
	book := excelize.NewFile()
	defer book.Close()

	if err := book.SetSheetName(book.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for col, name := range playerColumns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return err
		}
		if err := book.SetCellValue(sheet, cell, name); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for rowIdx, p := range players {
		teamName := ""
		if p.TeamID != nil {
			teamName = teamNames[*p.TeamID]
		}
		row := []any{
			p.Name, p.Status.String(), p.SoldPrice, teamName, p.Role,
			p.Matches, p.Runs, p.Wickets, p.StrikeRate, p.HighScore,
			p.BattingInn, p.BattingAvg, p.BowlingInn, p.BowlingAvg,
			p.Economy, p.BestBowling,
		}
		start, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return err
		}
		if err := book.SetSheetRow(sheet, start, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", rowIdx+2, err)
		}
	}

	if err := book.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
