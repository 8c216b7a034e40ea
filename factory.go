package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/plugin"
	"github.com/xraph/subscriptions/store"
	"github.com/xraph/subscriptions/types"
)

// restorePageSize is the page size used when loading collections at start.
const restorePageSize = 100

// Factory creates, indexes and deletes subscription collections.
type Factory struct {
	store    store.Store
	plugins  *plugin.Registry
	logger   *slog.Logger
	now      func() time.Time
	currency string
	migrate  bool

	mu          sync.RWMutex
	collections map[id.CollectionID]*Collection
}

// New creates a new Factory backed by s.
func New(s store.Store, opts ...Option) *Factory {
	f := &Factory{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
		currency:    types.DefaultCurrency,
		migrate:     true,
		collections: make(map[id.CollectionID]*Collection),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Option configures a Factory instance.
type Option func(*Factory)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Factory) {
		f.logger = logger
		f.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(f *Factory) {
		_ = f.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPluginTimeout bounds every hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(f *Factory) {
		f.plugins.WithTimeout(d)
	}
}

// WithNow replaces the clock used for deadlines and timestamps.
func WithNow(now func() time.Time) Option {
	return func(f *Factory) {
		if now != nil {
			f.now = now
		}
	}
}

// WithCurrency sets the currency of collections created without one.
func WithCurrency(currency string) Option {
	return func(f *Factory) {
		if currency != "" {
			f.currency = types.Zero(currency).Currency
		}
	}
}

// WithAutoMigrate controls whether Start migrates the store.
func WithAutoMigrate(enabled bool) Option {
	return func(f *Factory) {
		f.migrate = enabled
	}
}

// Plugins returns the plugin registry.
func (f *Factory) Plugins() *plugin.Registry { return f.plugins }

// Store returns the underlying store.
func (f *Factory) Store() store.Store { return f.store }

// Start migrates the store and loads every persisted collection.
func (f *Factory) Start(ctx context.Context) error {
	if f.migrate {
		if err := f.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	restored := 0
	for offset := 0; ; offset += restorePageSize {
		page, err := f.store.ListCollections(ctx, collection.ListOpts{Limit: restorePageSize, Offset: offset})
		if err != nil {
			return fmt.Errorf("subscriptions: restore collections: %w", err)
		}

		f.mu.Lock()
		for _, s := range page {
			f.collections[s.ID] = newCollection(f, s)
		}
		f.mu.Unlock()

		restored += len(page)
		if len(page) < restorePageSize {
			break
		}
	}

	f.plugins.EmitInit(ctx, f)

	f.logger.Info("subscriptions factory started",
		"collections", restored,
		"plugins", f.plugins.Count(),
		"currency", f.currency,
	)

	return nil
}

// Stop shuts down the Factory and closes the store.
func (f *Factory) Stop() error {
	f.plugins.EmitShutdown(context.Background())
	return f.store.Close()
}

// ──────────────────────────────────────────────────
// Collection lifecycle
// ──────────────────────────────────────────────────

// CreateParams describes a new collection.
type CreateParams struct {
	Name        string
	Description string
	MetadataURI string

	// Prices and Periods describe the initial tiers. Periods are seconds.
	Prices  []int64
	Periods []int64

	// Capacity applies to every tier of the collection. Unlimited disables
	// the cap.
	Capacity int64

	Merchant types.Address

	// StartTimestamp is a unix time in seconds used as the deadline baseline
	// while it lies in the future. Zero means execution time.
	StartTimestamp int64

	// Currency overrides the factory default.
	Currency string
}

// CreateCollection builds, persists and registers a new collection.
func (f *Factory) CreateCollection(ctx context.Context, p CreateParams) (*Collection, error) {
	currency := p.Currency
	if currency == "" {
		currency = f.currency
	}

	cfg := collection.Config{
		Name:        p.Name,
		URI:         p.MetadataURI,
		Description: p.Description,
		Currency:    currency,
		Merchant:    p.Merchant,
		Prices:      p.Prices,
		Periods:     p.Periods,
		Capacity:    p.Capacity,
	}
	if p.StartTimestamp != 0 {
		cfg.StartTime = time.Unix(p.StartTimestamp, 0).UTC()
	}

	s, err := collection.New(cfg, f.now())
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	if _, exists := f.collections[s.ID]; exists {
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrCollectionExists, s.ID)
	}
	if err := f.store.CreateCollection(ctx, s); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	c := newCollection(f, s)
	f.collections[s.ID] = c
	f.mu.Unlock()

	f.logger.Info("collection created",
		"collection_id", s.ID.String(),
		"merchant", s.Merchant.Hex(),
		"tiers", s.Tiers.Len(),
		"capacity", s.DefaultCapacity,
	)
	f.plugins.EmitCollectionCreated(ctx, s.Clone())

	return c, nil
}

// DeleteCollection removes a collection on behalf of caller. Only the
// collection's merchant may delete it; any other caller gets false and the
// collection stays in place. Collections with active subscriptions cannot
// be deleted.
func (f *Factory) DeleteCollection(ctx context.Context, caller types.Address, collectionID id.CollectionID) (bool, error) {
	f.mu.Lock()
	c, ok := f.collections[collectionID]
	if !ok {
		f.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
	}

	deleted, err := c.markDeleted(ctx, caller)
	if deleted {
		delete(f.collections, collectionID)
	}
	f.mu.Unlock()

	if err != nil {
		f.plugins.EmitOperationRejected(ctx, plugin.RejectedEvent{
			CollectionID: collectionID,
			Operation:    OpDeleteCollection,
			Caller:       caller,
			Err:          err,
		})
		return false, err
	}
	if !deleted {
		f.logger.Warn("collection delete ignored: caller is not the merchant",
			"collection_id", collectionID.String(),
			"caller", caller.Hex(),
		)
		return false, nil
	}

	f.logger.Info("collection deleted",
		"collection_id", collectionID.String(),
		"caller", caller.Hex(),
	)
	f.plugins.EmitCollectionDeleted(ctx, collectionID, caller)

	return true, nil
}

// Collection returns the live handle for collectionID.
func (f *Factory) Collection(collectionID id.CollectionID) (*Collection, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	c, ok := f.collections[collectionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collectionID)
	}
	return c, nil
}

// Collections returns every live collection ordered by creation time.
func (f *Factory) Collections() []*Collection {
	f.mu.RLock()
	out := make([]*Collection, 0, len(f.collections))
	for _, c := range f.collections {
		out = append(out, c)
	}
	f.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].createdAt(), out[j].createdAt()
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].id.String() < out[j].id.String()
	})
	return out
}

// Count returns the number of live collections.
func (f *Factory) Count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.collections)
}
