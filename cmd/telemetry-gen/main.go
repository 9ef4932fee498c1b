// Package main implements the telemetry-gen CLI for seeding a synthetic
// fleet and backfilling 15-minute telemetry.
//
// This tool exists for local development and demos: it creates customers with
// realistic Portuguese contract profiles and walks them backwards-dated
// through the consumption simulator so that training and forecasting have
// data to work with immediately.
//
// Usage:
//
//	go run ./cmd/telemetry-gen --seed-fleet
//	go run ./cmd/telemetry-gen --backfill-days=14
//	go run ./cmd/telemetry-gen --seed-fleet --fleet-size=50 --backfill-days=30
//
// The tool reads DATABASE_URL from environment variables (or a .env file via
// godotenv). The generator seed comes from SIM_SEED so repeated runs against
// a fresh database reproduce the same fleet and readings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"kynex/internal/config"
	"kynex/internal/db"
	"kynex/internal/simulate"
)

func main() {
	seedFleetFlag := flag.Bool("seed-fleet", false, "Insert a synthetic customer fleet before generating")
	fleetSizeFlag := flag.Int("fleet-size", 0, "Fleet size when seeding (default: configured SIM_FLEET_SIZE)")
	backfillDaysFlag := flag.Int("backfill-days", 0, "Generate this many days of telemetry ending now")
	timeoutFlag := flag.Duration("timeout", 30*time.Minute, "Overall run deadline")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: telemetry-gen [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Seed a synthetic fleet and backfill 15-minute telemetry.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if !*seedFleetFlag && *backfillDaysFlag <= 0 {
		fmt.Fprintf(os.Stderr, "error: nothing to do; pass --seed-fleet and/or --backfill-days\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*seedFleetFlag, *fleetSizeFlag, *backfillDaysFlag, *timeoutFlag); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(seedFleet bool, fleetSize, backfillDays int, timeout time.Duration) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()

	customerRepo := db.NewCustomerRepo(pool)
	telemetryRepo := db.NewTelemetryRepo(pool)

	if seedFleet {
		n := fleetSize
		if n <= 0 {
			n = cfg.Simulation.FleetSize
		}
		rng := rand.New(rand.NewPCG(cfg.Simulation.Seed, cfg.Simulation.Seed))
		fleet := simulate.NewFleet(n, rng)
		for i := range fleet {
			if err := customerRepo.Insert(ctx, &fleet[i]); err != nil {
				return fmt.Errorf("inserting customer %s: %w", fleet[i].ID, err)
			}
		}
		logger.Info("fleet seeded", "customers", len(fleet), "seed", cfg.Simulation.Seed)
	}

	if backfillDays <= 0 {
		return nil
	}

	customers, err := customerRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("listing customers: %w", err)
	}
	if len(customers) == 0 {
		return fmt.Errorf("no customers to generate for; run with --seed-fleet first")
	}

	steps := backfillDays * 24 * 60 / simulate.IntervalMinutes
	start := time.Now().UTC().AddDate(0, 0, -backfillDays)

	generator := simulate.NewGenerator(cfg.Simulation.Seed, logger)
	if err := generator.GenerateSteps(ctx, telemetryRepo, customers, start, steps); err != nil {
		return fmt.Errorf("generating telemetry: %w", err)
	}
	logger.Info("backfill complete", "customers", len(customers), "days", backfillDays, "steps", steps)
	return nil
}
