// Package main implements the trainer CLI for running a training pass
// directly, outside the API server's retraining loop.
//
// This tool is intended for local development, manual retraining after a
// backfill, and operational debugging. It wires the repositories against
// DATABASE_URL, runs the interval trainer (and optionally the contracted-power
// advisor), and prints a JSON summary of the resulting artifact.
//
// Usage:
//
//	go run ./cmd/trainer
//	go run ./cmd/trainer --days-back=30 --l2=0.5
//	go run ./cmd/trainer --power
//
// The tool reads DATABASE_URL from environment variables (or a .env file via
// godotenv). Flags override the configured training defaults.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"kynex/internal/config"
	"kynex/internal/db"
	"kynex/internal/forecast"
	"kynex/internal/power"
	"kynex/internal/training"
)

func main() {
	daysBackFlag := flag.Int("days-back", 0, "Telemetry window in days (default: configured TRAINING_DAYS_BACK)")
	l2Flag := flag.Float64("l2", 0, "Ridge regularization strength (default: configured TRAINING_L2)")
	seedFlag := flag.Uint("seed", 0, "Train/test split seed (default: configured TRAINING_SEED)")
	minSamplesFlag := flag.Int("min-samples", 0, "Minimum usable samples (default: configured TRAINING_MIN_SAMPLES)")
	powerFlag := flag.Bool("power", false, "Also fit the contracted-power advisor after the interval model")
	timeoutFlag := flag.Duration("timeout", 10*time.Minute, "Overall run deadline")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: trainer [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Run a training pass against the configured database.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if err := run(*daysBackFlag, *l2Flag, uint32(*seedFlag), *minSamplesFlag, *powerFlag, *timeoutFlag); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(daysBack int, l2 float64, seed uint32, minSamples int, fitPower bool, timeout time.Duration) error {
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
	modelRepo := db.NewModelRepo(pool)
	encoder := forecast.NewEncoder(forecast.StandardProfileDefaults())

	trainCfg := training.Config{
		DaysBack:   cfg.Training.DaysBack,
		L2:         cfg.Training.L2,
		Seed:       cfg.Training.Seed,
		MinSamples: cfg.Training.MinSamples,
	}
	trainer := training.NewService(customerRepo, telemetryRepo, modelRepo, encoder, trainCfg, logger, nil)

	var req training.TrainRequest
	if daysBack > 0 {
		req.DaysBack = &daysBack
	}
	if l2 > 0 {
		req.L2 = &l2
	}
	if seed > 0 {
		req.Seed = &seed
	}
	if minSamples > 0 {
		req.MinSamples = &minSamples
	}

	result, err := trainer.Train(ctx, req)
	if err != nil {
		return fmt.Errorf("training interval model: %w", err)
	}
	printSummary("interval", map[string]any{
		"model_id":     result.Artifact.ID,
		"variant":      result.Artifact.Variant(),
		"sample_count": result.SampleCount,
		"train_count":  result.TrainCount,
		"test_count":   result.TestCount,
	})

	if !fitPower {
		return nil
	}

	advisor := power.NewAdvisor(customerRepo, telemetryRepo, modelRepo, forecast.StandardProfileDefaults(), logger, nil)
	powerResult, err := advisor.Train(ctx, power.DefaultL2)
	if err != nil {
		return fmt.Errorf("training power advisor: %w", err)
	}
	printSummary("power_advisor", map[string]any{
		"model_id":       powerResult.Artifact.ID,
		"customer_count": powerResult.CustomerCount,
	})
	return nil
}

func printSummary(kind string, fields map[string]any) {
	fields["kind"] = kind
	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not render %s summary: %v\n", kind, err)
		return
	}
	fmt.Println(string(out))
}
