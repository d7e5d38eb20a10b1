package sweeper

import (
	"context"
	"log/slog"
	"time"

	"packsend-service/internal/pkg/errs"
	"packsend-service/internal/usecase/commands"

	"github.com/robfig/cron/v3"
)

const (
	defaultInterval      = 15 * time.Second
	defaultPurgeSchedule = "@hourly"
)

type Option func(*Sweeper)

// WithPurgeSchedule overrides the idempotency purge cron spec. Blank keeps the default.
func WithPurgeSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.purgeSchedule = spec
		}
	}
}

type LeaseSweeper interface {
	Sweep(ctx context.Context) (*commands.SweepResult, error)
}

type IdempotencyPurger interface {
	Purge(ctx context.Context) (int64, error)
}

// Sweeper runs the periodic lease sweep and the hourly idempotency purge.
// SkipIfStillRunning keeps at most one run of each job active.
type Sweeper struct {
	cron          *cron.Cron
	locks         LeaseSweeper
	purger        IdempotencyPurger
	interval      time.Duration
	purgeSchedule string
	logger        *slog.Logger
}

func New(locks LeaseSweeper, purger IdempotencyPurger, interval time.Duration, logger *slog.Logger, opts ...Option) (*Sweeper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = defaultInterval
	}
	cl := cronLogger{logger: logger}
	s := &Sweeper{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		locks:         locks,
		purger:        purger,
		interval:      interval,
		purgeSchedule: defaultPurgeSchedule,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, err := s.cron.AddFunc("@every "+interval.String(), func() {
		_ = s.SweepLeases(context.Background())
	}); err != nil {
		return nil, errs.Wrap(err, "schedule lease sweep")
	}
	if purger != nil {
		if _, err := s.cron.AddFunc(s.purgeSchedule, func() {
			_ = s.PurgeIdempotency(context.Background())
		}); err != nil {
			return nil, errs.Wrapf(err, "schedule idempotency purge %q", s.purgeSchedule)
		}
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.logger.Info("sweeper started", "interval", s.interval.String())
	s.cron.Start()
}

// Stop waits for running jobs until ctx is done.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.logger.Info("sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SweepLeases runs one sweep bounded by the sweep interval.
func (s *Sweeper) SweepLeases(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	result, err := s.locks.Sweep(ctx)
	if err != nil {
		s.logger.Error("lease sweep failed", "error", err.Error())
		return err
	}
	if result.ExpiredTakeovers > 0 || result.PurgedLeases > 0 {
		s.logger.Info("lease sweep",
			"expired_takeovers", result.ExpiredTakeovers,
			"transferred_leases", result.TransferredLeases,
			"purged_leases", result.PurgedLeases,
		)
	}
	return nil
}

func (s *Sweeper) PurgeIdempotency(ctx context.Context) error {
	if s.purger == nil {
		return nil
	}
	n, err := s.purger.Purge(ctx)
	if err != nil {
		s.logger.Error("idempotency purge failed", "error", err.Error())
		return err
	}
	if n > 0 {
		s.logger.Info("idempotency purge", "deleted", n)
	}
	return nil
}

// cronLogger adapts slog to cron's logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
