package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/issuance/journal"
)

// callTimeout bounds every hook call.
const callTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	onInit             []OnInit
	onShutdown         []OnShutdown
	onEntryCommitted   []OnEntryCommitted
	onTransfer         []OnTransfer
	onPurchase         []OnPurchase
	onDelivery         []OnDelivery
	onDeliveryCanceled []OnDeliveryCanceled
	onLockedReleased   []OnLockedReleased
	onKYCApproved      []OnKYCApproved
	onKYCRefused       []OnKYCRefused
	onCustodyMoved     []OnCustodyMoved
	onCustodyReturned  []OnCustodyReturned
	onRateUpdated      []OnRateUpdated
	onRequestPending   []OnRequestPending
	onRequestExecuted  []OnRequestExecuted
	onPhaseChanged     []OnPhaseChanged
	onWithdrawal       []OnWithdrawal
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnEntryCommitted); ok {
		r.onEntryCommitted = append(r.onEntryCommitted, v)
	}
	if v, ok := p.(OnTransfer); ok {
		r.onTransfer = append(r.onTransfer, v)
	}
	if v, ok := p.(OnPurchase); ok {
		r.onPurchase = append(r.onPurchase, v)
	}
	if v, ok := p.(OnDelivery); ok {
		r.onDelivery = append(r.onDelivery, v)
	}
	if v, ok := p.(OnDeliveryCanceled); ok {
		r.onDeliveryCanceled = append(r.onDeliveryCanceled, v)
	}
	if v, ok := p.(OnLockedReleased); ok {
		r.onLockedReleased = append(r.onLockedReleased, v)
	}
	if v, ok := p.(OnKYCApproved); ok {
		r.onKYCApproved = append(r.onKYCApproved, v)
	}
	if v, ok := p.(OnKYCRefused); ok {
		r.onKYCRefused = append(r.onKYCRefused, v)
	}
	if v, ok := p.(OnCustodyMoved); ok {
		r.onCustodyMoved = append(r.onCustodyMoved, v)
	}
	if v, ok := p.(OnCustodyReturned); ok {
		r.onCustodyReturned = append(r.onCustodyReturned, v)
	}
	if v, ok := p.(OnRateUpdated); ok {
		r.onRateUpdated = append(r.onRateUpdated, v)
	}
	if v, ok := p.(OnRequestPending); ok {
		r.onRequestPending = append(r.onRequestPending, v)
	}
	if v, ok := p.(OnRequestExecuted); ok {
		r.onRequestExecuted = append(r.onRequestExecuted, v)
	}
	if v, ok := p.(OnPhaseChanged); ok {
		r.onPhaseChanged = append(r.onPhaseChanged, v)
	}
	if v, ok := p.(OnWithdrawal); ok {
		r.onWithdrawal = append(r.onWithdrawal, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	t    reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnEntryCommitted", reflect.TypeFor[OnEntryCommitted]()},
	{"OnTransfer", reflect.TypeFor[OnTransfer]()},
	{"OnPurchase", reflect.TypeFor[OnPurchase]()},
	{"OnDelivery", reflect.TypeFor[OnDelivery]()},
	{"OnDeliveryCanceled", reflect.TypeFor[OnDeliveryCanceled]()},
	{"OnLockedReleased", reflect.TypeFor[OnLockedReleased]()},
	{"OnKYCApproved", reflect.TypeFor[OnKYCApproved]()},
	{"OnKYCRefused", reflect.TypeFor[OnKYCRefused]()},
	{"OnCustodyMoved", reflect.TypeFor[OnCustodyMoved]()},
	{"OnCustodyReturned", reflect.TypeFor[OnCustodyReturned]()},
	{"OnRateUpdated", reflect.TypeFor[OnRateUpdated]()},
	{"OnRequestPending", reflect.TypeFor[OnRequestPending]()},
	{"OnRequestExecuted", reflect.TypeFor[OnRequestExecuted]()},
	{"OnPhaseChanged", reflect.TypeFor[OnPhaseChanged]()},
	{"OnWithdrawal", reflect.TypeFor[OnWithdrawal]()},
}

func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.t) {
			names = append(names, h.name)
		}
	}
	return names
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, l any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, l)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitEntry notifies OnEntryCommitted plugins of e, then dispatches each
// of its records to the matching record hook.
func (r *Registry) EmitEntry(ctx context.Context, e *journal.Entry) {
	r.mu.RLock()
	plugins := r.onEntryCommitted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEntryCommitted(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnEntryCommitted failed", "plugin", p.Name(), "error", err)
		}
	}

	for i := range e.Records {
		r.EmitRecord(ctx, e, &e.Records[i])
	}
}

// EmitRecord dispatches one record of e to the hook for its kind.
// Records without a dedicated hook are only seen via OnEntryCommitted.
func (r *Registry) EmitRecord(ctx context.Context, e *journal.Entry, rec *journal.Record) {
	switch rec.Kind {
	case journal.RecordTransfer:
		dispatch(r, ctx, "OnTransfer", hooksOf(r, &r.onTransfer), func(p OnTransfer) error { return p.OnTransfer(ctx, e, rec) })
	case journal.RecordPurchase:
		dispatch(r, ctx, "OnPurchase", hooksOf(r, &r.onPurchase), func(p OnPurchase) error { return p.OnPurchase(ctx, e, rec) })
	case journal.RecordDelivery:
		dispatch(r, ctx, "OnDelivery", hooksOf(r, &r.onDelivery), func(p OnDelivery) error { return p.OnDelivery(ctx, e, rec) })
	case journal.RecordDeliveryCanceled:
		dispatch(r, ctx, "OnDeliveryCanceled", hooksOf(r, &r.onDeliveryCanceled), func(p OnDeliveryCanceled) error { return p.OnDeliveryCanceled(ctx, e, rec) })
	case journal.RecordLockedReleased:
		dispatch(r, ctx, "OnLockedReleased", hooksOf(r, &r.onLockedReleased), func(p OnLockedReleased) error { return p.OnLockedReleased(ctx, e, rec) })
	case journal.RecordKYCApproved:
		dispatch(r, ctx, "OnKYCApproved", hooksOf(r, &r.onKYCApproved), func(p OnKYCApproved) error { return p.OnKYCApproved(ctx, e, rec) })
	case journal.RecordKYCRefused:
		dispatch(r, ctx, "OnKYCRefused", hooksOf(r, &r.onKYCRefused), func(p OnKYCRefused) error { return p.OnKYCRefused(ctx, e, rec) })
	case journal.RecordCustodyMoved:
		dispatch(r, ctx, "OnCustodyMoved", hooksOf(r, &r.onCustodyMoved), func(p OnCustodyMoved) error { return p.OnCustodyMoved(ctx, e, rec) })
	case journal.RecordCustodyReturned:
		dispatch(r, ctx, "OnCustodyReturned", hooksOf(r, &r.onCustodyReturned), func(p OnCustodyReturned) error { return p.OnCustodyReturned(ctx, e, rec) })
	case journal.RecordRateUpdated:
		dispatch(r, ctx, "OnRateUpdated", hooksOf(r, &r.onRateUpdated), func(p OnRateUpdated) error { return p.OnRateUpdated(ctx, e, rec) })
	case journal.RecordRequestPending:
		dispatch(r, ctx, "OnRequestPending", hooksOf(r, &r.onRequestPending), func(p OnRequestPending) error { return p.OnRequestPending(ctx, e, rec) })
	case journal.RecordRequestExecuted:
		dispatch(r, ctx, "OnRequestExecuted", hooksOf(r, &r.onRequestExecuted), func(p OnRequestExecuted) error { return p.OnRequestExecuted(ctx, e, rec) })
	case journal.RecordPhaseChanged:
		dispatch(r, ctx, "OnPhaseChanged", hooksOf(r, &r.onPhaseChanged), func(p OnPhaseChanged) error { return p.OnPhaseChanged(ctx, e, rec) })
	case journal.RecordWithdrawal:
		dispatch(r, ctx, "OnWithdrawal", hooksOf(r, &r.onWithdrawal), func(p OnWithdrawal) error { return p.OnWithdrawal(ctx, e, rec) })
	}
}

// hooksOf reads one cached hook slice under the registry lock.
func hooksOf[H Plugin](r *Registry, hooks *[]H) []H {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return *hooks
}

// dispatch calls fn for every plugin in hooks.
func dispatch[H Plugin](r *Registry, ctx context.Context, hook string, hooks []H, fn func(H) error) { //nolint:revive // registry first reads better at call sites
	for _, p := range hooks {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed", "plugin", p.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the commit pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(callTimeout):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
