package audithook_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subscriptions "github.com/xraph/subscriptions"
	audithook "github.com/xraph/subscriptions/audit_hook"
	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/plugin"
	"github.com/xraph/subscriptions/store/memory"
	"github.com/xraph/subscriptions/types"
)

var (
	merchant = types.BytesToAddress([]byte{0xee})
	alice    = types.BytesToAddress([]byte{0xa1})
	t0       = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
)

type memRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (r *memRecorder) Record(_ context.Context, evt *audithook.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *memRecorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Action
	}
	return out
}

func (r *memRecorder) last() *audithook.AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func TestExtensionRecordsLifecycle(t *testing.T) {
	ctx := context.Background()
	rec := &memRecorder{}
	ext := audithook.New(rec, audithook.WithNow(func() time.Time { return t0 }))

	f := subscriptions.New(memory.New(),
		subscriptions.WithPlugin(ext),
		subscriptions.WithNow(func() time.Time { return t0 }),
	)
	require.NoError(t, f.Start(ctx))

	c, err := f.CreateCollection(ctx, subscriptions.CreateParams{
		Name:     "Gym",
		Prices:   []int64{10},
		Periods:  []int64{60},
		Capacity: subscriptions.Unlimited,
		Merchant: merchant,
	})
	require.NoError(t, err)

	_, err = c.Mint(ctx, alice, alice, 0, types.Wei(10))
	require.NoError(t, err)
	require.NoError(t, c.SetMerchantPrice(ctx, merchant, types.Wei(500)))
	require.NoError(t, c.BuyMerchantRights(ctx, alice, types.Wei(500)))
	_, err = c.Withdraw(ctx, alice)
	require.NoError(t, err)

	assert.Equal(t, []string{
		audithook.ActionCollectionCreated,
		audithook.ActionSubscriptionStarted,
		audithook.ActionSaleOpened,
		audithook.ActionMerchantSold,
		audithook.ActionTreasuryWithdrawn,
	}, rec.actions())

	last := rec.last()
	require.NotNil(t, last)
	assert.Equal(t, c.ID().String(), last.ResourceID)
	assert.Equal(t, alice.Hex(), last.Actor)
	assert.Equal(t, audithook.OutcomeSuccess, last.Outcome)
	assert.Equal(t, t0, last.Timestamp)
	assert.Equal(t, "10 wei", last.Metadata["amount"])
	assert.Equal(t, id.PrefixAuditEvent, last.ID.Prefix())
}

func TestExtensionRejectedSeverity(t *testing.T) {
	ctx := context.Background()
	rec := &memRecorder{}
	ext := audithook.New(rec)
	collectionID := id.NewCollectionID()

	require.NoError(t, ext.OnOperationRejected(ctx, plugin.RejectedEvent{
		CollectionID: collectionID,
		Operation:    subscriptions.OpWithdraw,
		Caller:       alice,
		Err:          fmt.Errorf("%w: not the merchant", collection.ErrUnauthorized),
	}))
	evt := rec.last()
	require.NotNil(t, evt)
	assert.Equal(t, audithook.ActionOperationRejected, evt.Action)
	assert.Equal(t, audithook.SeverityWarning, evt.Severity)
	assert.Equal(t, audithook.CategoryAccess, evt.Category)
	assert.Equal(t, audithook.OutcomeFailure, evt.Outcome)
	assert.Contains(t, evt.Reason, "unauthorized")
	assert.Equal(t, subscriptions.OpWithdraw, evt.Metadata["operation"])

	require.NoError(t, ext.OnOperationRejected(ctx, plugin.RejectedEvent{
		CollectionID: collectionID,
		Operation:    subscriptions.OpMint,
		Err:          collection.ErrIncorrectPayment,
	}))
	evt = rec.last()
	assert.Equal(t, audithook.SeverityInfo, evt.Severity)
	assert.Empty(t, evt.Actor)
}

func TestExtensionActionFilters(t *testing.T) {
	ctx := context.Background()
	collectionID := id.NewCollectionID()
	sale := plugin.SaleEvent{CollectionID: collectionID, Caller: merchant, Price: types.Wei(5)}
	closed := plugin.SaleEvent{CollectionID: collectionID, Caller: merchant, Price: types.Wei(0)}

	rec := &memRecorder{}
	ext := audithook.New(rec, audithook.WithEnabledActions(audithook.ActionSaleClosed))
	require.NoError(t, ext.OnSaleChanged(ctx, sale))
	require.NoError(t, ext.OnSaleChanged(ctx, closed))
	assert.Equal(t, []string{audithook.ActionSaleClosed}, rec.actions())

	rec = &memRecorder{}
	ext = audithook.New(rec, audithook.WithDisabledActions(audithook.ActionSaleClosed))
	require.NoError(t, ext.OnSaleChanged(ctx, sale))
	require.NoError(t, ext.OnSaleChanged(ctx, closed))
	assert.Equal(t, []string{audithook.ActionSaleOpened}, rec.actions())
}

func TestExtensionRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}))

	err := ext.OnCollectionDeleted(context.Background(), id.NewCollectionID(), merchant)
	assert.NoError(t, err)
}
