package vehicles

import (
	"context"
	"errors"
	"log/slog"

	"github.com/garage-labs/garage-api/internal/platform/metrics"
	"github.com/garage-labs/garage-api/internal/ports/out/vehiclerepo"
)

// Sweep releases every in-use vehicle system-wide in one batch and returns
// how many were released. Running it again right away returns 0.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	attempts := s.maxAttempts()
	for attempt := 1; ; attempt++ {
		inUse, err := s.repo.ListInUse(ctx)
		if err != nil {
			return 0, err
		}
		if len(inUse) == 0 {
			return 0, nil
		}
		for i := range inUse {
			inUse[i].InUse = false
		}
		err = s.repo.SaveAll(ctx, inUse)
		if err == nil {
			return len(inUse), nil
		}
		if (errors.Is(err, vehiclerepo.ErrVersionConflict) || errors.Is(err, vehiclerepo.ErrNotFound)) && attempt < attempts {
			retryConflict()
			continue
		}
		return 0, err
	}
}

// Sweeper runs Sweep on behalf of the daily schedule and the CLI.
type Sweeper struct {
	svc    *Service
	logger *slog.Logger
}

func NewSweeper(svc *Service, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{svc: svc, logger: logger}
}

// RunDailySweep sweeps once, logging and recording the result.
func (s *Sweeper) RunDailySweep(ctx context.Context) (int, error) {
	released, err := s.svc.Sweep(ctx)
	if err != nil {
		metrics.RecordSweep(0, false)
		s.logger.Error("usage sweep failed", "error", err)
		return 0, err
	}
	metrics.RecordSweep(released, true)
	s.logger.Info("usage sweep finished", "released", released)
	return released, nil
}

// Job is the schedule entry point. Errors are already logged.
func (s *Sweeper) Job(ctx context.Context) {
	_, _ = s.RunDailySweep(ctx)
}
