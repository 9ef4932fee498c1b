package scheduler

import (
	"context"
	"log/slog"
	"time"

	"kynex/internal/simulate"
	"kynex/internal/types"
)

// GenerationService drives the synthetic telemetry generator on 15-minute
// boundaries. It exists for development and demo environments only; the
// production ingestion path receives telemetry from real meters.
type GenerationService struct {
	generator *simulate.Generator
	customers types.CustomerRepository
	telemetry types.TelemetryRepository
	logger    *slog.Logger
}

// NewGenerationService creates a GenerationService.
func NewGenerationService(
	generator *simulate.Generator,
	customers types.CustomerRepository,
	telemetry types.TelemetryRepository,
	logger *slog.Logger,
) *GenerationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationService{
		generator: generator,
		customers: customers,
		telemetry: telemetry,
		logger:    logger,
	}
}

// Run generates one reading per customer for the interval containing now.
func (s *GenerationService) Run(ctx context.Context, now time.Time) error {
	fleet, err := s.customers.List(ctx)
	if err != nil {
		return err
	}
	if len(fleet) == 0 {
		s.logger.Warn("no customers to generate telemetry for")
		return nil
	}
	return s.generator.GenerateSteps(ctx, s.telemetry, fleet, now, 1)
}

// Start primes the generator from the latest stored readings, then emits one
// batch per 15-minute boundary until ctx is cancelled.
func (s *GenerationService) Start(ctx context.Context) {
	latest, err := s.telemetry.LatestByCustomer(ctx)
	if err != nil {
		s.logger.Error("failed to prime generator from stored telemetry", "error", err)
	} else {
		s.generator.Prime(latest)
	}

	for {
		next := simulate.NextBoundary(time.Now().UTC().Add(time.Second))
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
			if err := s.Run(ctx, next); err != nil {
				s.logger.Error("telemetry generation failed", "error", err)
			}
		}
	}
}
