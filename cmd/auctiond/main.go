package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kssmani94-hub/CPL6/internal/api"
	"github.com/kssmani94-hub/CPL6/internal/auction"
	"github.com/kssmani94-hub/CPL6/internal/auth"
	"github.com/kssmani94-hub/CPL6/internal/clock"
	"github.com/kssmani94-hub/CPL6/internal/config"
	"github.com/kssmani94-hub/CPL6/internal/export"
	"github.com/kssmani94-hub/CPL6/internal/health"
	"github.com/kssmani94-hub/CPL6/internal/importer"
	"github.com/kssmani94-hub/CPL6/internal/leader"
	"github.com/kssmani94-hub/CPL6/internal/roster"
	"github.com/kssmani94-hub/CPL6/internal/store"
	"github.com/kssmani94-hub/CPL6/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/kssmani94-hub/CPL6/internal/store/memstore"
	_ "github.com/kssmani94-hub/CPL6/internal/store/postgres"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		slog.Error("fatal error", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		slog.Warn("telemetry setup failed, continuing without OTEL export", slog.Any("error", err))
		tp = telemetry.NewNopProvider()
	}
	defer func() {
		if shutdownErr := tp.Shutdown(context.Background()); shutdownErr != nil {
			slog.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	logger := tp.Logger
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	logger.InfoContext(ctx, "connected to store", slog.String("driver", cfg.Database.Driver))

	users := auth.NewRegistry()
	for _, u := range cfg.Users {
		role, roleErr := auth.ParseRole(u.Role)
		if roleErr != nil {
			return fmt.Errorf("seeding user %s: %w", u.Username, roleErr)
		}
		if addErr := users.Add(u.Username, u.Password, role); addErr != nil {
			return fmt.Errorf("seeding user %s: %w", u.Username, addErr)
		}
	}

	engine := auction.NewEngine(repos, logger, tp.TracerProvider, clk, cfg.Auction)
	rosterMgr := roster.NewManager(repos, logger, tp.TracerProvider, cfg.Auction)
	exporter := export.New(repos, logger, tp.TracerProvider)
	imp := importer.New(repos, logger, tp.TracerProvider, cfg.Auction)
	apiServer := api.New(engine, rosterMgr, exporter, imp, users, repos, logger)

	healthHandler := health.NewHandler(clk,
		health.Checker{
			Name:  "database",
			Check: repos.Ping,
		},
	)

	router := chi.NewRouter()
	router.Get("/healthz", healthHandler.LivenessHandler())
	router.Get("/readyz", healthHandler.ReadinessHandler())
	router.Mount("/", apiServer.Routes())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoContext(ctx, "starting http server", slog.Int("port", cfg.Server.Port))
		if listenErr := httpServer.ListenAndServe(); listenErr != nil && listenErr != http.ErrServerClosed {
			logger.ErrorContext(ctx, "http server error", slog.Any("error", listenErr))
		}
	}()

	// serve is the active phase; only the leader accepts auction traffic.
	serve := func(ctx context.Context) {
		healthHandler.SetReady(true)
		logger.InfoContext(ctx, "auctiond is running", slog.String("version", version))

		<-ctx.Done()

		healthHandler.SetReady(false)
	}

	if cfg.LeaderElection.Enabled {
		logger.InfoContext(ctx, "leader election enabled, waiting for leadership...")

		if leaderErr := leader.Run(ctx, cfg.LeaderElection, logger, serve, func() {
			logger.Info("lost leadership, shutting down...")
			cancel()
		}); leaderErr != nil {
			return fmt.Errorf("leader election: %w", leaderErr)
		}
	} else {
		serve(ctx)
		logger.Info("shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}
