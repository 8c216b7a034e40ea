package subscriptions_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/plugin"
	"github.com/xraph/subscriptions/store/memory"
	"github.com/xraph/subscriptions/types"
)

var (
	merchant = types.BytesToAddress([]byte{0xee})
	alice    = types.BytesToAddress([]byte{0xa1})
	bob      = types.BytesToAddress([]byte{0xb0})
	carol    = types.BytesToAddress([]byte{0xc0})

	t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

// clock is a manually advanced time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: t0} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recorder captures hook calls by name.
type recorder struct {
	mu       sync.Mutex
	events   []string
	rejected []plugin.RejectedEvent
	created  []*collection.State
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) add(name string) {
	r.mu.Lock()
	r.events = append(r.events, name)
	r.mu.Unlock()
}

func (r *recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) Rejected() []plugin.RejectedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]plugin.RejectedEvent(nil), r.rejected...)
}

func (r *recorder) OnInit(context.Context, any) error { r.add("init"); return nil }
func (r *recorder) OnShutdown(context.Context) error  { r.add("shutdown"); return nil }

func (r *recorder) OnCollectionCreated(_ context.Context, s *collection.State) error {
	r.mu.Lock()
	r.created = append(r.created, s)
	r.mu.Unlock()
	r.add("collection.created")
	return nil
}

func (r *recorder) OnCollectionDeleted(context.Context, id.CollectionID, types.Address) error {
	r.add("collection.deleted")
	return nil
}

func (r *recorder) OnSubscriptionStarted(context.Context, plugin.SubscriptionEvent) error {
	r.add("subscription.started")
	return nil
}

func (r *recorder) OnSubscriptionRenewed(context.Context, plugin.SubscriptionEvent) error {
	r.add("subscription.renewed")
	return nil
}

func (r *recorder) OnSubscriptionEnded(context.Context, plugin.SubscriptionEvent) error {
	r.add("subscription.ended")
	return nil
}

func (r *recorder) OnSubscriptionTransferred(context.Context, plugin.SubscriptionEvent) error {
	r.add("subscription.transferred")
	return nil
}

func (r *recorder) OnTransferApproved(context.Context, plugin.SubscriptionEvent) error {
	r.add("subscription.approved")
	return nil
}

func (r *recorder) OnMerchantChanged(context.Context, plugin.MerchantEvent) error {
	r.add("merchant.changed")
	return nil
}

func (r *recorder) OnSaleChanged(context.Context, plugin.SaleEvent) error {
	r.add("sale.changed")
	return nil
}

func (r *recorder) OnTiersChanged(context.Context, plugin.TiersEvent) error {
	r.add("tiers.changed")
	return nil
}

func (r *recorder) OnTreasuryWithdrawn(context.Context, plugin.WithdrawalEvent) error {
	r.add("treasury.withdrawn")
	return nil
}

func (r *recorder) OnOperationRejected(_ context.Context, evt plugin.RejectedEvent) error {
	r.mu.Lock()
	r.rejected = append(r.rejected, evt)
	r.mu.Unlock()
	r.add("operation.rejected")
	return nil
}

// flakyStore fails updates while failUpdates is set.
type flakyStore struct {
	*memory.Store

	mu          sync.Mutex
	failUpdates bool
}

var errStoreDown = errors.New("store down")

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	s.failUpdates = v
	s.mu.Unlock()
}

func (s *flakyStore) UpdateCollection(ctx context.Context, c *collection.State) error {
	s.mu.Lock()
	fail := s.failUpdates
	s.mu.Unlock()
	if fail {
		return errStoreDown
	}
	return s.Store.UpdateCollection(ctx, c)
}

func newFactory(t *testing.T, opts ...subscriptions.Option) (*subscriptions.Factory, *clock) {
	t.Helper()
	clk := newClock()
	opts = append([]subscriptions.Option{subscriptions.WithNow(clk.Now)}, opts...)
	f := subscriptions.New(memory.New(), opts...)
	require.NoError(t, f.Start(context.Background()))
	return f, clk
}

func defaultParams() subscriptions.CreateParams {
	return subscriptions.CreateParams{
		Name:        "Gym",
		MetadataURI: "ipfs://gym/{id}.json",
		Prices:      []int64{10, 20},
		Periods:     []int64{300, 3600},
		Capacity:    subscriptions.Unlimited,
		Merchant:    merchant,
	}
}

func TestFactoryCreateCollection(t *testing.T) {
	rec := &recorder{}
	f, _ := newFactory(t, subscriptions.WithPlugin(rec))
	ctx := context.Background()

	c, err := f.CreateCollection(ctx, defaultParams())
	require.NoError(t, err)

	assert.Equal(t, "Gym", c.Name())
	assert.Equal(t, "ipfs://gym/{id}.json", c.URI())
	assert.Equal(t, merchant, c.GetMerchant())
	assert.True(t, c.IsMerchant(merchant))
	assert.False(t, c.IsMerchant(alice))
	assert.Len(t, c.Tiers(), 2)
	assert.Equal(t, 1, f.Count())

	got, err := f.Collection(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	stored, err := f.Store().GetCollection(ctx, c.ID())
	require.NoError(t, err)
	assert.Equal(t, "Gym", stored.Name)
	assert.Equal(t, 2, stored.Tiers.Len())

	assert.Contains(t, rec.Events(), "collection.created")
}

func TestFactoryCreateCollectionValidation(t *testing.T) {
	f, _ := newFactory(t)
	ctx := context.Background()

	p := defaultParams()
	p.Merchant = types.ZeroAddress
	_, err := f.CreateCollection(ctx, p)
	assert.ErrorIs(t, err, subscriptions.ErrZeroAddress)

	p = defaultParams()
	p.Periods = []int64{300}
	_, err = f.CreateCollection(ctx, p)
	assert.ErrorIs(t, err, subscriptions.ErrInvalidInput)
	assert.True(t, subscriptions.IsInputError(err))

	p = defaultParams()
	p.Capacity = -2
	_, err = f.CreateCollection(ctx, p)
	assert.ErrorIs(t, err, subscriptions.ErrInvalidInput)

	assert.Equal(t, 0, f.Count())
}

func TestFactoryCurrency(t *testing.T) {
	f, _ := newFactory(t, subscriptions.WithCurrency("USD"))
	ctx := context.Background()

	c, err := f.CreateCollection(ctx, defaultParams())
	require.NoError(t, err)
	tier, err := c.Tier(0)
	require.NoError(t, err)
	assert.Equal(t, types.USD(10), tier.Price)

	p := defaultParams()
	p.Currency = "eur"
	c, err = f.CreateCollection(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "eur", c.Snapshot().Currency)
}

func TestFactoryCollectionsOrdered(t *testing.T) {
	f, clk := newFactory(t)
	ctx := context.Background()

	first, err := f.CreateCollection(ctx, defaultParams())
	require.NoError(t, err)
	clk.Advance(time.Second)
	second, err := f.CreateCollection(ctx, defaultParams())
	require.NoError(t, err)

	all := f.Collections()
	require.Len(t, all, 2)
	assert.Equal(t, first.ID(), all[0].ID())
	assert.Equal(t, second.ID(), all[1].ID())
}

func TestFactoryCollectionNotFound(t *testing.T) {
	f, _ := newFactory(t)

	_, err := f.Collection(id.NewCollectionID())
	assert.ErrorIs(t, err, subscriptions.ErrCollectionNotFound)
	assert.True(t, subscriptions.IsNotFound(err))
}

func TestFactoryDeleteCollection(t *testing.T) {
	rec := &recorder{}
	f, clk := newFactory(t, subscriptions.WithPlugin(rec))
	ctx := context.Background()

	c, err := f.CreateCollection(ctx, defaultParams())
	require.NoError(t, err)

	t.Run("non-merchant is ignored", func(t *testing.T) {
		ok, err := f.DeleteCollection(ctx, alice, c.ID())
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, f.Count())
		assert.False(t, c.Deleted())
	})

	t.Run("active subscriptions block deletion", func(t *testing.T) {
		_, err := c.Mint(ctx, alice, alice, 0, types.Wei(10))
		require.NoError(t, err)

		ok, err := f.DeleteCollection(ctx, merchant, c.ID())
		assert.ErrorIs(t, err, subscriptions.ErrCollectionInUse)
		assert.False(t, ok)
		assert.Equal(t, 1, f.Count())

		clk.Advance(300 * time.Second)
		require.NoError(t, c.EndSubscription(ctx, bob, 0, alice))
	})

	t.Run("merchant deletes", func(t *testing.T) {
		ok, err := f.DeleteCollection(ctx, merchant, c.ID())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 0, f.Count())
		assert.True(t, c.Deleted())

		_, err = f.Collection(c.ID())
		assert.ErrorIs(t, err, subscriptions.ErrCollectionNotFound)

		_, err = f.Store().GetCollection(ctx, c.ID())
		assert.ErrorIs(t, err, subscriptions.ErrCollectionNotFound)

		assert.Contains(t, rec.Events(), "collection.deleted")
	})

	t.Run("deleted handle rejects operations", func(t *testing.T) {
		_, err := c.Mint(ctx, alice, alice, 0, types.Wei(10))
		assert.ErrorIs(t, err, subscriptions.ErrCollectionDeleted)
		assert.True(t, subscriptions.IsUnavailable(err))

		_, err = f.DeleteCollection(ctx, merchant, c.ID())
		assert.ErrorIs(t, err, subscriptions.ErrCollectionNotFound)
	})
}

func TestFactoryRestoresOnStart(t *testing.T) {
	ctx := context.Background()
	clk := newClock()
	s := memory.New()

	f := subscriptions.New(s, subscriptions.WithNow(clk.Now))
	require.NoError(t, f.Start(ctx))

	c, err := f.CreateCollection(ctx, defaultParams())
	require.NoError(t, err)
	_, err = c.Mint(ctx, alice, alice, 1, types.Wei(20))
	require.NoError(t, err)

	restarted := subscriptions.New(s, subscriptions.WithNow(clk.Now))
	require.NoError(t, restarted.Start(ctx))
	require.Equal(t, 1, restarted.Count())

	again, err := restarted.Collection(c.ID())
	require.NoError(t, err)
	assert.True(t, again.IsExistentSubscription(1, alice))
	assert.Equal(t, c.Snapshot().Treasury, again.Snapshot().Treasury)

	deadline, err := again.GetSubscriptionDeadline(1, alice)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), deadline)
}

func TestFactoryStartRestoreFailure(t *testing.T) {
	s := memory.New()
	require.NoError(t, s.Close())

	f := subscriptions.New(s, subscriptions.WithAutoMigrate(false))
	err := f.Start(context.Background())
	assert.ErrorIs(t, err, subscriptions.ErrStoreClosed)
}

func TestFactoryLifecycleHooks(t *testing.T) {
	rec := &recorder{}
	f := subscriptions.New(memory.New(), subscriptions.WithPlugin(rec))
	require.NoError(t, f.Start(context.Background()))
	require.NoError(t, f.Stop())

	assert.Equal(t, []string{"init", "shutdown"}, rec.Events())
	assert.Equal(t, 1, f.Plugins().Count())
}
