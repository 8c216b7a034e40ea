package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/types"
)

// DefaultTimeout bounds each hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit                    []OnInit
	onShutdown                []OnShutdown
	onCollectionCreated       []OnCollectionCreated
	onCollectionDeleted       []OnCollectionDeleted
	onSubscriptionStarted     []OnSubscriptionStarted
	onSubscriptionRenewed     []OnSubscriptionRenewed
	onSubscriptionEnded       []OnSubscriptionEnded
	onSubscriptionTransferred []OnSubscriptionTransferred
	onTransferApproved        []OnTransferApproved
	onMerchantChanged         []OnMerchantChanged
	onSaleChanged             []OnSaleChanged
	onTiersChanged            []OnTiersChanged
	onTreasuryWithdrawn       []OnTreasuryWithdrawn
	onOperationRejected       []OnOperationRejected
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-call hook timeout. Non-positive values are ignored.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
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
	if v, ok := p.(OnCollectionCreated); ok {
		r.onCollectionCreated = append(r.onCollectionCreated, v)
	}
	if v, ok := p.(OnCollectionDeleted); ok {
		r.onCollectionDeleted = append(r.onCollectionDeleted, v)
	}
	if v, ok := p.(OnSubscriptionStarted); ok {
		r.onSubscriptionStarted = append(r.onSubscriptionStarted, v)
	}
	if v, ok := p.(OnSubscriptionRenewed); ok {
		r.onSubscriptionRenewed = append(r.onSubscriptionRenewed, v)
	}
	if v, ok := p.(OnSubscriptionEnded); ok {
		r.onSubscriptionEnded = append(r.onSubscriptionEnded, v)
	}
	if v, ok := p.(OnSubscriptionTransferred); ok {
		r.onSubscriptionTransferred = append(r.onSubscriptionTransferred, v)
	}
	if v, ok := p.(OnTransferApproved); ok {
		r.onTransferApproved = append(r.onTransferApproved, v)
	}
	if v, ok := p.(OnMerchantChanged); ok {
		r.onMerchantChanged = append(r.onMerchantChanged, v)
	}
	if v, ok := p.(OnSaleChanged); ok {
		r.onSaleChanged = append(r.onSaleChanged, v)
	}
	if v, ok := p.(OnTiersChanged); ok {
		r.onTiersChanged = append(r.onTiersChanged, v)
	}
	if v, ok := p.(OnTreasuryWithdrawn); ok {
		r.onTreasuryWithdrawn = append(r.onTreasuryWithdrawn, v)
	}
	if v, ok := p.(OnOperationRejected); ok {
		r.onOperationRejected = append(r.onOperationRejected, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", implementedInterfaces(p),
	)

	return nil
}

var hookTypes = []struct {
	name string
	typ  reflect.Type
}{
	{"OnInit", reflect.TypeFor[OnInit]()},
	{"OnShutdown", reflect.TypeFor[OnShutdown]()},
	{"OnCollectionCreated", reflect.TypeFor[OnCollectionCreated]()},
	{"OnCollectionDeleted", reflect.TypeFor[OnCollectionDeleted]()},
	{"OnSubscriptionStarted", reflect.TypeFor[OnSubscriptionStarted]()},
	{"OnSubscriptionRenewed", reflect.TypeFor[OnSubscriptionRenewed]()},
	{"OnSubscriptionEnded", reflect.TypeFor[OnSubscriptionEnded]()},
	{"OnSubscriptionTransferred", reflect.TypeFor[OnSubscriptionTransferred]()},
	{"OnTransferApproved", reflect.TypeFor[OnTransferApproved]()},
	{"OnMerchantChanged", reflect.TypeFor[OnMerchantChanged]()},
	{"OnSaleChanged", reflect.TypeFor[OnSaleChanged]()},
	{"OnTiersChanged", reflect.TypeFor[OnTiersChanged]()},
	{"OnTreasuryWithdrawn", reflect.TypeFor[OnTreasuryWithdrawn]()},
	{"OnOperationRejected", reflect.TypeFor[OnOperationRejected]()},
}

// implementedInterfaces lists the hook interfaces a plugin implements.
func implementedInterfaces(p Plugin) []string {
	var names []string
	v := reflect.TypeOf(p)
	for _, h := range hookTypes {
		if v.Implements(h.typ) {
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
func (r *Registry) EmitInit(ctx context.Context, factory any) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	dispatch(ctx, r, "OnInit", plugins, func(p OnInit) error { return p.OnInit(ctx, factory) })
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	dispatch(ctx, r, "OnShutdown", plugins, func(p OnShutdown) error { return p.OnShutdown(ctx) })
}

// EmitCollectionCreated emits a collection created event.
func (r *Registry) EmitCollectionCreated(ctx context.Context, c *collection.State) {
	r.mu.RLock()
	plugins := r.onCollectionCreated
	r.mu.RUnlock()

	dispatch(ctx, r, "OnCollectionCreated", plugins, func(p OnCollectionCreated) error {
		return p.OnCollectionCreated(ctx, c)
	})
}

// EmitCollectionDeleted emits a collection deleted event.
func (r *Registry) EmitCollectionDeleted(ctx context.Context, collectionID id.CollectionID, caller types.Address) {
	r.mu.RLock()
	plugins := r.onCollectionDeleted
	r.mu.RUnlock()

	dispatch(ctx, r, "OnCollectionDeleted", plugins, func(p OnCollectionDeleted) error {
		return p.OnCollectionDeleted(ctx, collectionID, caller)
	})
}

// EmitSubscriptionStarted emits a subscription started event.
func (r *Registry) EmitSubscriptionStarted(ctx context.Context, evt SubscriptionEvent) {
	r.mu.RLock()
	plugins := r.onSubscriptionStarted
	r.mu.RUnlock()

	dispatch(ctx, r, "OnSubscriptionStarted", plugins, func(p OnSubscriptionStarted) error {
		return p.OnSubscriptionStarted(ctx, evt)
	})
}

// EmitSubscriptionRenewed emits a subscription renewed event.
func (r *Registry) EmitSubscriptionRenewed(ctx context.Context, evt SubscriptionEvent) {
	r.mu.RLock()
	plugins := r.onSubscriptionRenewed
	r.mu.RUnlock()

	dispatch(ctx, r, "OnSubscriptionRenewed", plugins, func(p OnSubscriptionRenewed) error {
		return p.OnSubscriptionRenewed(ctx, evt)
	})
}

// EmitSubscriptionEnded emits a subscription ended event.
func (r *Registry) EmitSubscriptionEnded(ctx context.Context, evt SubscriptionEvent) {
	r.mu.RLock()
	plugins := r.onSubscriptionEnded
	r.mu.RUnlock()

	dispatch(ctx, r, "OnSubscriptionEnded", plugins, func(p OnSubscriptionEnded) error {
		return p.OnSubscriptionEnded(ctx, evt)
	})
}

// EmitSubscriptionTransferred emits a subscription transferred event.
func (r *Registry) EmitSubscriptionTransferred(ctx context.Context, evt SubscriptionEvent) {
	r.mu.RLock()
	plugins := r.onSubscriptionTransferred
	r.mu.RUnlock()

	dispatch(ctx, r, "OnSubscriptionTransferred", plugins, func(p OnSubscriptionTransferred) error {
		return p.OnSubscriptionTransferred(ctx, evt)
	})
}

// EmitTransferApproved emits a transfer approved event.
func (r *Registry) EmitTransferApproved(ctx context.Context, evt SubscriptionEvent) {
	r.mu.RLock()
	plugins := r.onTransferApproved
	r.mu.RUnlock()

	dispatch(ctx, r, "OnTransferApproved", plugins, func(p OnTransferApproved) error {
		return p.OnTransferApproved(ctx, evt)
	})
}

// EmitMerchantChanged emits a merchant changed event.
func (r *Registry) EmitMerchantChanged(ctx context.Context, evt MerchantEvent) {
	r.mu.RLock()
	plugins := r.onMerchantChanged
	r.mu.RUnlock()

	dispatch(ctx, r, "OnMerchantChanged", plugins, func(p OnMerchantChanged) error {
		return p.OnMerchantChanged(ctx, evt)
	})
}

// EmitSaleChanged emits a sale changed event.
func (r *Registry) EmitSaleChanged(ctx context.Context, evt SaleEvent) {
	r.mu.RLock()
	plugins := r.onSaleChanged
	r.mu.RUnlock()

	dispatch(ctx, r, "OnSaleChanged", plugins, func(p OnSaleChanged) error {
		return p.OnSaleChanged(ctx, evt)
	})
}

// EmitTiersChanged emits a tiers changed event.
func (r *Registry) EmitTiersChanged(ctx context.Context, evt TiersEvent) {
	r.mu.RLock()
	plugins := r.onTiersChanged
	r.mu.RUnlock()

	dispatch(ctx, r, "OnTiersChanged", plugins, func(p OnTiersChanged) error {
		return p.OnTiersChanged(ctx, evt)
	})
}

// EmitTreasuryWithdrawn emits a treasury withdrawn event.
func (r *Registry) EmitTreasuryWithdrawn(ctx context.Context, evt WithdrawalEvent) {
	r.mu.RLock()
	plugins := r.onTreasuryWithdrawn
	r.mu.RUnlock()

	dispatch(ctx, r, "OnTreasuryWithdrawn", plugins, func(p OnTreasuryWithdrawn) error {
		return p.OnTreasuryWithdrawn(ctx, evt)
	})
}

// EmitOperationRejected emits an operation rejected event.
func (r *Registry) EmitOperationRejected(ctx context.Context, evt RejectedEvent) {
	r.mu.RLock()
	plugins := r.onOperationRejected
	r.mu.RUnlock()

	dispatch(ctx, r, "OnOperationRejected", plugins, func(p OnOperationRejected) error {
		return p.OnOperationRejected(ctx, evt)
	})
}

// dispatch calls fn for every plugin, logging failures.
func dispatch[T Plugin](ctx context.Context, r *Registry, hook string, plugins []T, fn func(T) error) {
	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error { return fn(p) }); err != nil {
			r.logger.Warn("plugin "+hook+" failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins must never block a collection commit.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
