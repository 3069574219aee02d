// Package api exposes the auction over JSON/HTTP.
package api

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kssmani94-hub/CPL6/internal/auction"
	"github.com/kssmani94-hub/CPL6/internal/auth"
	"github.com/kssmani94-hub/CPL6/internal/domain"
	"github.com/kssmani94-hub/CPL6/internal/export"
	"github.com/kssmani94-hub/CPL6/internal/importer"
	"github.com/kssmani94-hub/CPL6/internal/roster"
	"github.com/kssmani94-hub/CPL6/internal/store"
)

// Server wires the auction services into an HTTP router.
type Server struct {
	engine   *auction.Engine
	roster   *roster.Manager
	exporter *export.Exporter
	importer *importer.Importer
	users    *auth.Registry
	repos    *store.Repositories
	log      *slog.Logger
}

// New creates a Server.
func New(engine *auction.Engine, rosterMgr *roster.Manager, exporter *export.Exporter, imp *importer.Importer, users *auth.Registry, repos *store.Repositories, logger *slog.Logger) *Server {
	return &Server{
		engine:   engine,
		roster:   rosterMgr,
		exporter: exporter,
		importer: imp,
		users:    users,
		repos:    repos,
		log:      logger,
	}
}

// Routes builds the API router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleCaptain))
			r.Get("/auction", s.handleSummary)
			r.Get("/teams", s.handleListTeams)
			r.Get("/teams/{teamID}", s.handleSquad)
			r.Get("/teams/{teamID}/export", s.handleExportTeam)
			r.Get("/players", s.handleListPlayers)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleAdmin))
			r.Post("/auction/next", s.handleNextPlayer)
			r.Post("/auction/sold", s.handleSold)
			r.Post("/auction/unsold", s.handleUnsold)
			r.Post("/auction/next-round", s.handleNextRound)
			r.Post("/auction/pause", s.handlePause)
			r.Post("/auction/resume", s.handleResume)
			r.Get("/players/export", s.handleExportPlayers)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireRole(auth.RoleSuperAdmin))
			r.Post("/auction/reset", s.handleReset)
			r.Post("/teams", s.handleCreateTeam)
			r.Post("/players/import", s.handleImport)
		})
	})
	return r
}

// offerResponse pairs the offered player with the session state.
type offerResponse struct {
	Player  *store.Player `json:"player,omitempty"`
	Session auction.State `json:"session"`
}

func (s *Server) session(r *http.Request) *auction.Session {
	return s.engine.Session(actorFrom(r.Context()))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.engine.Summarize(r.Context(), s.session(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sum)
}

func (s *Server) handleNextPlayer(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	p, err := s.engine.SelectNext(r.Context(), sess)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, offerResponse{Player: p, Session: sess.Snapshot()})
}

func (s *Server) handleSold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
		TeamID   string `json:"team_id"`
		Price    int    `json:"price"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	p, tm, err := s.engine.MarkSold(r.Context(), s.session(r), req.PlayerID, req.TeamID, req.Price)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"player": p, "team": tm})
}

func (s *Server) handleUnsold(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	p, err := s.engine.MarkUnsold(r.Context(), s.session(r), req.PlayerID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"player": p})
}

func (s *Server) handleNextRound(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	p, err := s.engine.StartNextRound(r.Context(), sess)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, offerResponse{Player: p, Session: sess.Snapshot()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	if err := s.engine.Pause(r.Context(), sess); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"session": sess.Snapshot()})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.reauthenticate(r, req.Password); err != nil {
		s.respondError(w, r, err)
		return
	}

	sess := s.session(r)
	p, err := s.engine.Resume(r.Context(), sess)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, offerResponse{Player: p, Session: sess.Snapshot()})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.reauthenticate(r, req.Password); err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.engine.Reset(r.Context(), actorFrom(r.Context())); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.roster.Teams(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"teams": teams})
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		CaptainName string `json:"captain_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	tm, err := s.roster.CreateTeam(r.Context(), req.Name, req.CaptainName)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, tm)
}

func (s *Server) handleSquad(w http.ResponseWriter, r *http.Request) {
	squad, err := s.roster.Squad(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, squad)
}

func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	players, err := s.repos.Players.ListFiltered(r.Context(), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"players": players})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleExportTeam(w http.ResponseWriter, r *http.Request) {
	// Workbooks are buffered so a failed export still yields a clean
	// JSON error instead of a truncated file.
	var buf bytes.Buffer
	team, err := s.exporter.TeamWorkbook(r.Context(), &buf, chi.URLParam(r, "teamID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", team.Name+".xlsx"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.ErrorContext(r.Context(), "writing workbook response", slog.Any("error", err))
	}
}

func (s *Server) handleExportPlayers(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := s.exporter.PlayersWorkbook(r.Context(), &buf, f); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "players_"+string(f)+".xlsx"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.log.ErrorContext(r.Context(), "writing workbook response", slog.Any("error", err))
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	res, err := s.importer.Run(r.Context(), r.Body, r.Header.Get("X-Import-Source"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, res)
}

func parseFilter(raw string) (store.Filter, error) {
	if raw == "" {
		return store.FilterAll, nil
	}
	switch f := store.Filter(strings.ToLower(raw)); f {
	case store.FilterAll, store.FilterRetained, store.FilterAuction, store.FilterSold, store.FilterUnsold:
		return f, nil
	}
	return "", domain.ErrValidation("unknown filter: " + raw)
}
