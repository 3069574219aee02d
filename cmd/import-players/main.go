// Command import-players seeds the player ledger from a CSV file.
// It is meant to be run once before the auction, or again to refresh
// stats; players are matched by name so reruns update in place.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/kssmani94-hub/CPL6/internal/clock"
	"github.com/kssmani94-hub/CPL6/internal/config"
	"github.com/kssmani94-hub/CPL6/internal/importer"
	"github.com/kssmani94-hub/CPL6/internal/store"
	"github.com/kssmani94-hub/CPL6/internal/telemetry"

	// Register store drivers so they are available via store.Open.
	_ "github.com/kssmani94-hub/CPL6/internal/store/memstore"
	_ "github.com/kssmani94-hub/CPL6/internal/store/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	csvPath := flag.String("csv", "", "path to the players CSV file")
	flag.Parse()

	if *csvPath == "" {
		fmt.Fprintln(os.Stderr, "usage: import-players -csv players.csv [-config config.yaml]")
		os.Exit(2)
	}

	if err := run(*configPath, *csvPath); err != nil {
		slog.Error("import failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath, csvPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	tp := telemetry.NewNopProvider()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	clk := clock.Real{}

	repos, err := store.Open(ctx, cfg.Database, clk)
	if err != nil {
		return fmt.Errorf("opening store (driver=%s): %w", cfg.Database.Driver, err)
	}
	defer repos.Closer.Close()

	f, err := os.Open(filepath.Clean(csvPath))
	if err != nil {
		return fmt.Errorf("opening CSV: %w", err)
	}
	defer f.Close()

	imp := importer.New(repos, logger, tp.TracerProvider, cfg.Auction)
	res, err := imp.Run(ctx, f, filepath.Base(csvPath))
	if err != nil {
		return err
	}

	fmt.Printf("imported players: %d created, %d updated, %d skipped\n", res.Created, res.Updated, res.Skipped)
	return nil
}
