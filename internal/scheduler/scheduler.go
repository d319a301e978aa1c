package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/smallbiznis/gglounge/internal/clock"
	obsmetrics "github.com/smallbiznis/gglounge/internal/observability/metrics"
	"github.com/smallbiznis/gglounge/internal/saga"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	JobSagaSweep = "saga_sweep"

	sessionSagaPrefix = "session:"
	lockKeyPrefix     = "gglounge:scheduler:"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Saga       *saga.Runner
	Locker     JobLocker
	Config     Config              `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// Scheduler runs periodic maintenance jobs. Its only job today re-applies
// dependent writes that neither the recording call nor a manual retry finished.
type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	clock      clock.Clock
	saga       *saga.Runner
	locker     JobLocker
	obsMetrics *obsmetrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.Saga == nil || p.Locker == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		clock:      p.Clock,
		saga:       p.Saga,
		locker:     p.Locker,
		obsMetrics: p.ObsMetrics,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))

	lockKey := lockKeyPrefix + name
	token, ok, err := s.locker.TryLock(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		s.obsMetrics.RecordJobRun(ctx, name, "error", 0)
		return fmt.Errorf("%s: acquire lock: %w", name, err)
	}
	if !ok {
		log.Debug("job skipped, lock held elsewhere")
		s.obsMetrics.RecordJobRun(ctx, name, "skipped", 0)
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
			log.Warn("failed to release job lock", zap.Error(err))
		}
	}()

	err = fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	if err == nil {
		s.obsMetrics.RecordJobRun(ctx, name, "ok", elapsed)
		return nil
	}

	// deadline is a soft timeout; the next tick continues where this one stopped
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.obsMetrics.RecordJobRun(ctx, name, "timeout", elapsed)
		log.Warn("job timed out", zap.Duration("timeout", s.cfg.JobTimeout), zap.Error(err))
		return nil
	}

	s.obsMetrics.RecordJobRun(ctx, name, "error", elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runJob(ctx, JobSagaSweep, s.SagaSweepJob)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// SagaSweepJob applies session saga steps untouched for longer than the grace period.
func (s *Scheduler) SagaSweepJob(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.SagaGrace)
	result, err := s.saga.Sweep(ctx, sessionSagaPrefix, cutoff, s.cfg.SagaBatchSize)
	if err != nil {
		return err
	}

	if len(result.Applied) > 0 || len(result.Failed) > 0 {
		s.log.Info("saga sweep finished",
			zap.Int("applied", len(result.Applied)),
			zap.Int("failed", len(result.Failed)),
			zap.Strings("warnings", result.Warnings()),
		)
	}
	return nil
}
