// Package scheduler drives the periodic background work: freezing weekly
// report snapshots once a week closes, and sweeping cached account balances
// back to their transaction history.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/credia/internal/calendar"
	"github.com/smallbiznis/credia/internal/clock"
	ledgerdomain "github.com/smallbiznis/credia/internal/ledger/domain"
	"github.com/smallbiznis/credia/internal/observability/metrics"
	reportdomain "github.com/smallbiznis/credia/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler_invalid_config")

type Params struct {
	fx.In

	Log       *zap.Logger
	ReportSvc reportdomain.Service
	LedgerSvc ledgerdomain.Service
	Clock     clock.Clock
	Metrics   *metrics.Metrics `optional:"true"`
	Config    Config           `optional:"true"`
}

type Scheduler struct {
	log       *zap.Logger
	cfg       Config
	clock     clock.Clock
	reportSvc reportdomain.Service
	ledgerSvc ledgerdomain.Service
	metrics   *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.ReportSvc == nil || p.LedgerSvc == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:       p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:       p.Config.withDefaults(),
		clock:     p.Clock,
		reportSvc: p.ReportSvc,
		ledgerSvc: p.LedgerSvc,
		metrics:   p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	log := s.log.With(zap.String("job", name))
	log.Info("job started")

	err := fn(ctx)
	log.Info("job finished", zap.Duration("elapsed", time.Since(start)))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{"weekly_snapshot", s.isJobEnabled("weekly_snapshot"), func(ctx context.Context) error {
			return s.runJob(ctx, "weekly_snapshot", s.cfg.SnapshotTimeout, s.WeeklySnapshotJob)
		}},
		{"balance_sweep", s.isJobEnabled("balance_sweep"), func(ctx context.Context) error {
			return s.runJob(ctx, "balance_sweep", s.cfg.SweepTimeout, s.BalanceSweepJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
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

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// Empty list means all jobs run (monolith mode).
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// WeeklySnapshotJob freezes the report for the most recently completed week.
// The snapshot insert is idempotent per period, so rerunning after a restart
// or a missed tick is harmless, and the snapshot of an already frozen week is
// simply returned.
func (s *Scheduler) WeeklySnapshotJob(ctx context.Context) error {
	week := calendar.Previous(calendar.Current(s.clock.Now()))

	snapshot, err := s.reportSvc.SnapshotWeek(ctx, week.Year, week.WeekNumber)
	if err != nil {
		s.log.Error("weekly snapshot failed",
			zap.Int("year", week.Year),
			zap.Int("week", week.WeekNumber),
			zap.Error(err),
		)
		return err
	}

	s.log.Info("weekly snapshot frozen",
		zap.String("period", snapshot.PeriodKey),
		zap.String("snapshot_id", snapshot.ID.String()),
	)
	return nil
}

// BalanceSweepJob replays every account's transaction history and rewrites
// the cached balance. Balances are already recalculated inline after each
// mutation; the sweep catches drift from manual data fixes.
func (s *Scheduler) BalanceSweepJob(ctx context.Context) error {
	accounts, err := s.ledgerSvc.ListAccounts(ctx)
	if err != nil {
		return err
	}

	var jobErr error
	for _, account := range accounts {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		before := account.Amount
		recalculated, err := s.ledgerSvc.RecalculateAccount(ctx, account.ID)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			s.log.Error("balance sweep failed for account",
				zap.String("account_id", account.ID.String()),
				zap.Error(err),
			)
			continue
		}

		if s.metrics != nil {
			s.metrics.RecordBalanceRecalculation(ctx, string(account.Type))
		}
		if !recalculated.Amount.Equal(before) {
			s.log.Warn("balance drift corrected",
				zap.String("account_id", account.ID.String()),
				zap.String("cached", before.String()),
				zap.String("recalculated", recalculated.Amount.String()),
			)
		}
	}

	return jobErr
}
