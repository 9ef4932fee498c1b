// Package scheduler implements the periodic background jobs of the Kynex
// platform: model retraining and synthetic telemetry generation. Services
// expose a single Run method taking an explicit `now` so tests and manual
// backfills control time, plus a Start loop for production use.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kynex/internal/training"
	"kynex/internal/types"
)

// Trainer is the subset of the training service used by the retraining job.
type Trainer interface {
	Train(ctx context.Context, req training.TrainRequest) (*training.TrainResult, error)
	TrainHourlyProfile(ctx context.Context, daysBack int) (*training.TrainResult, error)
}

// RetrainingService retrains the interval model on a fixed schedule. A failed
// retrain is logged and skipped; the previously active model keeps serving
// until a later run succeeds.
type RetrainingService struct {
	trainer  Trainer
	interval time.Duration
	daysBack int
	logger   *slog.Logger
}

// NewRetrainingService creates a RetrainingService.
func NewRetrainingService(trainer Trainer, interval time.Duration, daysBack int, logger *slog.Logger) *RetrainingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrainingService{
		trainer:  trainer,
		interval: interval,
		daysBack: daysBack,
		logger:   logger,
	}
}

// Run executes one retraining cycle. When the ridge trainer reports
// insufficient data, it falls back to fitting the hourly profile so a fresh
// deployment still gets a servable model. A concurrent manual training run
// (training_busy) is not an error; the cycle simply yields.
func (s *RetrainingService) Run(ctx context.Context, now time.Time) error {
	result, err := s.trainer.Train(ctx, training.TrainRequest{DaysBack: &s.daysBack})
	if err == nil {
		s.logger.Info("scheduled retrain complete",
			"variant", result.Artifact.Variant(),
			"samples", result.SampleCount,
			"at", now.UTC())
		return nil
	}

	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		s.logger.Error("scheduled retrain failed", "error", err)
		return err
	}

	switch appErr.Code {
	case types.ErrCodeTrainingBusy:
		s.logger.Info("retrain skipped, trainer busy", "at", now.UTC())
		return nil
	case types.ErrCodeTrainingInsufficientData:
		s.logger.Warn("insufficient data for ridge fit, fitting hourly profile",
			"details", appErr.Details)
		result, profileErr := s.trainer.TrainHourlyProfile(ctx, s.daysBack)
		if profileErr != nil {
			s.logger.Error("hourly profile fallback failed", "error", profileErr)
			return profileErr
		}
		s.logger.Info("hourly profile trained",
			"variant", result.Artifact.Variant(),
			"samples", result.SampleCount)
		return nil
	default:
		s.logger.Error("scheduled retrain failed", "error", err)
		return err
	}
}

// Start runs retraining cycles until ctx is cancelled. The first cycle fires
// immediately so a fresh deployment does not wait a full interval for its
// first model.
func (s *RetrainingService) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	_ = s.Run(ctx, time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			_ = s.Run(ctx, t)
		}
	}
}
