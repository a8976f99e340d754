package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = time.Minute

// Sweep purges listings whose deadline is at or before now.
type Sweep interface {
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper runs Sweep on a cron schedule. A failed run is logged and the next
// one proceeds as usual.
type Sweeper struct {
	cron  *cron.Cron
	sweep Sweep
	now   func() time.Time
	log   *zap.Logger
}

func NewSweeper(sweep Sweep, schedule string, log *zap.Logger) (*Sweeper, error) {
	log = log.Named("sweeper")
	cl := cronLogger{log: log}
	s := &Sweeper{
		cron:  cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl))),
		sweep: sweep,
		now:   time.Now,
		log:   log,
	}
	if _, err := s.cron.AddFunc(schedule, func() { _, _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", schedule, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop waits for a running sweep to finish or ctx to expire.
func (s *Sweeper) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	n, err := s.sweep.SweepExpired(ctx, s.now())
	if err != nil {
		s.log.Error("sweep failed", zap.Error(err))
		return 0, err
	}
	s.log.Info("expired internships removed", zap.Int64("count", n))
	return n, nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
