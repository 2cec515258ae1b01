// Package scheduler runs the ledger's time-driven jobs on a cron: the
// eager release of locked balances and periodic snapshots.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/xraph/issuance"
	"github.com/xraph/issuance/journal"
)

// Ledger is the part of the engine the scheduler drives.
type Ledger interface {
	LockedRelease() time.Time
	ReleaseAll(ctx context.Context) (int, error)
	Snapshot(ctx context.Context) (*journal.Snapshot, error)
}

var _ Ledger = (*issuance.Ledger)(nil)

// Scheduler manages the ledger's cron jobs.
type Scheduler struct {
	cron   *cron.Cron
	ledger Ledger
	logger *slog.Logger
	ctx    context.Context

	releaseSpec  string
	snapshotSpec string
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// WithReleaseSpec replaces the one-shot release at the unlock time with a
// recurring job on spec. Runs before the unlock time do nothing.
func WithReleaseSpec(spec string) Option {
	return func(s *Scheduler) { s.releaseSpec = spec }
}

// WithSnapshotSpec adds a snapshot job on spec.
func WithSnapshotSpec(spec string) Option {
	return func(s *Scheduler) { s.snapshotSpec = spec }
}

// WithLocation evaluates cron specs in loc instead of the local zone.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		s.cron = cron.New(cron.WithSeconds(), cron.WithLocation(loc))
	}
}

// New creates a Scheduler and registers its jobs. Specs use the
// six-field format with seconds, or descriptors such as "@every 1h".
func New(ctx context.Context, l Ledger, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		ledger: l,
		logger: slog.Default(),
		ctx:    ctx,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.releaseSpec != "" {
		if _, err := s.cron.AddFunc(s.releaseSpec, s.releaseTask); err != nil {
			return nil, fmt.Errorf("register release task: %w", err)
		}
	} else {
		s.cron.Schedule(Once(l.LockedRelease()), cron.FuncJob(s.releaseTask))
	}

	if s.snapshotSpec != "" {
		if _, err := s.cron.AddFunc(s.snapshotSpec, s.snapshotTask); err != nil {
			return nil, fmt.Errorf("register snapshot task: %w", err)
		}
	}
	return s, nil
}

// Start starts the cron scheduler. Without a recurring release job, a
// start after the unlock time releases immediately since the one-shot
// job can no longer fire.
func (s *Scheduler) Start() {
	if s.releaseSpec == "" && !time.Now().Before(s.ledger.LockedRelease()) {
		s.releaseTask()
	}
	s.cron.Start()
	s.logger.Info("issuance scheduler started",
		"locked_release", s.ledger.LockedRelease(),
		"jobs", len(s.cron.Entries()),
	)
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("issuance scheduler stopped")
}

// RunReleaseNow executes the release job immediately.
func (s *Scheduler) RunReleaseNow() { s.releaseTask() }

func (s *Scheduler) releaseTask() {
	n, err := s.ledger.ReleaseAll(s.ctx)
	switch {
	case errors.Is(err, issuance.ErrTooEarly):
		s.logger.Debug("locked release not due yet")
	case err != nil:
		s.logger.Error("locked release failed", "error", err)
	default:
		s.logger.Info("locked balances released", "accounts", n)
	}
}

func (s *Scheduler) snapshotTask() {
	snap, err := s.ledger.Snapshot(s.ctx)
	if err != nil {
		s.logger.Error("scheduled snapshot failed", "error", err)
		return
	}
	s.logger.Debug("scheduled snapshot written", "sequence", snap.Sequence)
}

// Once is a cron.Schedule that fires a single time.
type Once time.Time

// Next implements cron.Schedule. It returns the zero time, which cron
// treats as never, once the moment has passed.
func (o Once) Next(t time.Time) time.Time {
	at := time.Time(o)
	if t.Before(at) {
		return at
	}
	return time.Time{}
}
