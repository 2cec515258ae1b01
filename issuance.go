package issuance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/petermattis/goid"
	"github.com/sasha-s/go-deadlock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/issuance/account"
	"github.com/xraph/issuance/custody"
	"github.com/xraph/issuance/dualcontrol"
	"github.com/xraph/issuance/id"
	"github.com/xraph/issuance/journal"
	"github.com/xraph/issuance/lifecycle"
	"github.com/xraph/issuance/plugin"
	"github.com/xraph/issuance/registry"
	"github.com/xraph/issuance/sale"
	"github.com/xraph/issuance/store"
	"github.com/xraph/issuance/types"
)

const (
	tracerName = "github.com/xraph/issuance"
	replayPage = 500
)

// Disburser pays native currency out of the ledger: refusal refunds and
// treasury withdrawals.
type Disburser interface {
	Pay(ctx context.Context, to common.Address, amount types.Amount) error
}

// DisburserFunc adapts a function to Disburser.
type DisburserFunc func(ctx context.Context, to common.Address, amount types.Amount) error

// Pay implements Disburser.
func (f DisburserFunc) Pay(ctx context.Context, to common.Address, amount types.Amount) error {
	return f(ctx, to, amount)
}

// Ledger is the issuance engine. Operations run one at a time; each one
// either commits exactly one journal entry or leaves state untouched.
type Ledger struct {
	mu deadlock.RWMutex
	// owner is the goroutine holding mu for writing, 0 when none.
	owner atomic.Int64

	cfg     Config
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	tracer  trace.Tracer
	clock   func() time.Time

	disburser     Disburser
	funds         custody.Directory
	snapshotEvery uint64

	accounts *account.Book
	gate     *dualcontrol.Gate
	members  *registry.Registry
	sale     *sale.Sale
	custody  *custody.Book
	phase    *lifecycle.Machine
	states   map[journal.Kind]journal.State

	seq     uint64
	started bool
}

// New creates a ledger for cfg backed by s. The ledger is usable after
// Start has replayed the store.
func New(cfg Config, s store.Store, opts ...Option) (*Ledger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := &Ledger{
		cfg:           cfg,
		store:         s,
		plugins:       plugin.NewRegistry(),
		logger:        slog.Default(),
		tracer:        otel.Tracer(tracerName),
		clock:         time.Now,
		snapshotEvery: cfg.SnapshotEvery,
	}

	for _, opt := range opts {
		opt(l)
	}

	if err := l.reset(true); err != nil {
		return nil, err
	}
	return l, nil
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock sets the source of the ambient transaction time.
func WithClock(clock func() time.Time) Option {
	return func(l *Ledger) {
		l.clock = clock
	}
}

// WithDisburser sets the collaborator that pays native currency out.
func WithDisburser(d Disburser) Option {
	return func(l *Ledger) {
		l.disburser = d
	}
}

// WithFundDirectory sets how registered fund addresses resolve to their
// custody programs. Without a directory, custody notifications are
// skipped.
func WithFundDirectory(dir custody.Directory) Option {
	return func(l *Ledger) {
		l.funds = dir
	}
}

// WithSnapshotEvery overrides the configured snapshot interval.
func WithSnapshotEvery(n uint64) Option {
	return func(l *Ledger) {
		l.snapshotEvery = n
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(l *Ledger) {
		l.tracer = t
	}
}

// reset builds empty components. Seeding installs the configured
// registry members; it only matters for a store without a snapshot,
// since the first start of an empty store writes one.
func (l *Ledger) reset(seed bool) error {
	gate, err := dualcontrol.New(l.cfg.Admins[0], l.cfg.Admins[1])
	if err != nil {
		return err
	}
	s, err := sale.New(l.cfg.Schedule, l.cfg.Tariff)
	if err != nil {
		return err
	}

	members := registry.New()
	if seed {
		if err := members.Seed(registry.Vendor, l.cfg.Vendors...); err != nil {
			return err
		}
		if err := members.Seed(registry.KYCOfficer, l.cfg.KYCOfficers...); err != nil {
			return err
		}
		if err := members.Seed(registry.Fund, l.cfg.Funds...); err != nil {
			return err
		}
	}

	l.accounts = account.NewBook()
	l.gate = gate
	l.members = members
	l.sale = s
	l.custody = custody.NewBook()
	l.phase = lifecycle.NewMachine(l.cfg.Schedule.FundingEnd)

	l.states = make(map[journal.Kind]journal.State)
	for _, st := range l.components() {
		for _, k := range st.Kinds() {
			l.states[k] = st
		}
	}
	return nil
}

// components lists the state components in snapshot order.
func (l *Ledger) components() []journal.State {
	return []journal.State{l.accounts, l.gate, l.members, l.sale, l.custody, l.phase}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Start migrates the store, restores the latest snapshot, replays every
// later entry and notifies plugins. The first start on an empty store
// writes the genesis snapshot.
func (l *Ledger) Start(ctx context.Context) error {
	if l.reentrant() {
		return fmt.Errorf("%w: start", ErrReentrant)
	}
	if err := l.open(ctx); err != nil {
		return err
	}
	l.plugins.EmitInit(ctx, l)
	return nil
}

// open restores state from the store under the write lock.
func (l *Ledger) open(ctx context.Context) error {
	defer l.lock()()

	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	genesis := false
	snap, err := l.store.LatestSnapshot(ctx)
	switch {
	case err == nil:
		if err := l.restore(snap); err != nil {
			return err
		}
	case errors.Is(err, ErrNotFound):
		last, err := l.store.LastSequence(ctx)
		if err != nil {
			return err
		}
		genesis = last == 0
	default:
		return err
	}

	replayed, err := l.replay(ctx)
	if err != nil {
		return err
	}
	if err := l.accounts.Check(); err != nil {
		return fmt.Errorf("%w: %w", ErrReplay, publicError(err))
	}

	// An empty store gets the seeded registries as its first snapshot;
	// later starts restore it instead of reading the config again.
	if genesis {
		if _, err := l.snapshot(ctx); err != nil {
			return fmt.Errorf("issuance: genesis snapshot: %w", err)
		}
	}

	l.started = true
	l.logger.Info("issuance ledger started",
		"sequence", l.seq,
		"replayed", replayed,
		"phase", l.phase.Phase().String(),
		"accounts", l.accounts.Len(),
	)
	return nil
}

// Stop notifies plugins and closes the store.
func (l *Ledger) Stop() error {
	if l.reentrant() {
		return fmt.Errorf("%w: stop", ErrReentrant)
	}
	unlock := l.lock()
	l.started = false
	unlock()

	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

func (l *Ledger) restore(snap *journal.Snapshot) error {
	if err := l.reset(false); err != nil {
		return err
	}
	if err := l.applyAll(snap.Changes); err != nil {
		return fmt.Errorf("%w: snapshot %s: %w", ErrReplay, snap.ID, err)
	}
	l.seq = snap.Sequence
	return nil
}

func (l *Ledger) replay(ctx context.Context) (int, error) {
	replayed := 0
	for {
		entries, err := l.store.ListEntries(ctx, journal.ListOpts{After: l.seq, Limit: replayPage})
		if err != nil {
			return replayed, err
		}
		for _, e := range entries {
			if e.Sequence != l.seq+1 {
				return replayed, fmt.Errorf("%w: expected sequence %d, found %d", ErrReplay, l.seq+1, e.Sequence)
			}
			if err := l.applyAll(e.Changes); err != nil {
				return replayed, fmt.Errorf("%w: entry %d: %w", ErrReplay, e.Sequence, err)
			}
			l.seq = e.Sequence
			replayed++
		}
		if len(entries) < replayPage {
			return replayed, nil
		}
	}
}

func (l *Ledger) applyAll(changes []journal.Change) error {
	for _, c := range changes {
		st, ok := l.states[c.Kind]
		if !ok {
			return fmt.Errorf("unknown change kind %q", c.Kind)
		}
		if err := st.Apply(c); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot writes the complete state at the current sequence.
func (l *Ledger) Snapshot(ctx context.Context) (*journal.Snapshot, error) {
	if l.reentrant() {
		return nil, fmt.Errorf("%w: snapshot", ErrReentrant)
	}
	defer l.lock()()

	if !l.started {
		return nil, ErrNotStarted
	}
	return l.snapshot(ctx)
}

func (l *Ledger) snapshot(ctx context.Context) (*journal.Snapshot, error) {
	var changes []journal.Change
	for _, st := range l.components() {
		dump, err := st.Dump()
		if err != nil {
			return nil, err
		}
		changes = append(changes, dump...)
	}

	snap := &journal.Snapshot{
		ID:        id.NewSnapshotID(),
		Sequence:  l.seq,
		Timestamp: l.clock().UTC(),
		Changes:   changes,
	}
	if err := l.store.SaveSnapshot(ctx, snap); err != nil {
		return nil, err
	}

	l.logger.Info("snapshot written", "sequence", snap.Sequence, "changes", len(changes))
	return snap, nil
}

// ──────────────────────────────────────────────────
// Commit pipeline
// ──────────────────────────────────────────────────

// opFunc mutates state through tx on behalf of caller.
type opFunc func(ctx context.Context, tx *journal.Txn, caller common.Address) error

// execute runs fn as one atomic operation named op. Operations that
// write nothing commit no entry and return a nil entry.
func (l *Ledger) execute(ctx context.Context, op string, fn opFunc) (*journal.Entry, error) {
	if l.reentrant() {
		return nil, fmt.Errorf("%w: %s", ErrReentrant, op)
	}
	caller, _ := CallerFrom(ctx)

	ctx, span := l.tracer.Start(ctx, "issuance."+op,
		trace.WithAttributes(attribute.String("issuance.caller", caller.Hex())),
	)
	defer span.End()

	entry, err := l.commit(ctx, op, caller, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	span.SetAttributes(attribute.Int64("issuance.sequence", int64(entry.Sequence))) //nolint:gosec // sequence fits int64
	l.plugins.EmitEntry(ctx, entry)
	return entry, nil
}

func (l *Ledger) commit(ctx context.Context, op string, caller common.Address, fn opFunc) (*journal.Entry, error) {
	defer l.lock()()

	if !l.started {
		return nil, ErrNotStarted
	}

	tx := journal.Begin(l.clock())
	if err := fn(ctx, tx, caller); err != nil {
		tx.Rollback()
		return nil, publicError(err)
	}
	if tx.Empty() {
		tx.Commit()
		return nil, nil
	}

	entry := &journal.Entry{
		ID:        id.NewEntryID(),
		Sequence:  l.seq + 1,
		Operation: op,
		Caller:    caller,
		Timestamp: tx.Time(),
		Changes:   tx.Changes(),
		Records:   tx.Records(),
	}
	if err := l.store.AppendEntry(ctx, entry); err != nil {
		tx.Rollback()
		l.logger.Error("persisting entry failed, rolled back",
			"operation", op,
			"sequence", entry.Sequence,
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrPersist, err)
	}
	tx.Commit()
	l.seq = entry.Sequence

	l.logger.Debug("entry committed",
		"operation", op,
		"sequence", entry.Sequence,
		"caller", caller.Hex(),
		"changes", len(entry.Changes),
	)

	if l.snapshotEvery > 0 && l.seq%l.snapshotEvery == 0 {
		if _, err := l.snapshot(ctx); err != nil {
			l.logger.Warn("automatic snapshot failed", "sequence", l.seq, "error", err)
		}
	}
	return entry, nil
}

// lock takes the write lock and records the calling goroutine as its
// owner so that collaborators called during an operation can still read.
func (l *Ledger) lock() (unlock func()) {
	l.mu.Lock()
	l.owner.Store(goid.Get())
	return func() {
		l.owner.Store(0)
		l.mu.Unlock()
	}
}

// rlock read-locks the ledger. A goroutine that already owns the write
// lock reads without locking again and sees its operation in progress.
func (l *Ledger) rlock() (unlock func()) {
	if l.reentrant() {
		return func() {}
	}
	l.mu.RLock()
	return l.mu.RUnlock
}

// reentrant reports whether the calling goroutine is inside an operation.
func (l *Ledger) reentrant() bool {
	return l.owner.Load() == goid.Get()
}

// requireCaller returns ErrUnauthorized for an anonymous context.
func requireCaller(caller common.Address) error {
	if caller == (common.Address{}) {
		return fmt.Errorf("%w: no caller in context", ErrUnauthorized)
	}
	return nil
}

// requireRole checks caller's membership in role.
func (l *Ledger) requireRole(caller common.Address, role registry.Role) error {
	if err := requireCaller(caller); err != nil {
		return err
	}
	if !l.members.Has(role, caller) {
		return fmt.Errorf("%w: %s is not a %s", ErrUnauthorized, caller.Hex(), role)
	}
	return nil
}

// unlocked reports whether locked balances may be released at t.
func (l *Ledger) unlocked(t time.Time) bool {
	return !t.Before(l.cfg.LockedRelease)
}

// releaseIfDue frees addr's locked balance when the unlock time has
// passed.
func (l *Ledger) releaseIfDue(tx *journal.Txn, addr common.Address) error {
	if !l.unlocked(tx.Time()) {
		return nil
	}
	_, err := l.accounts.Release(tx, addr)
	return err
}

func positive(name string, amount types.Amount) error {
	if amount.IsZero() {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidInput, name)
	}
	return nil
}
