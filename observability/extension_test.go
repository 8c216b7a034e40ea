package observability_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/observability"
	"github.com/xraph/subscriptions/plugin"
	"github.com/xraph/subscriptions/store/memory"
	"github.com/xraph/subscriptions/types"
)

var (
	merchant = types.BytesToAddress([]byte{0xee})
	alice    = types.BytesToAddress([]byte{0xa1})
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.Len(t, mf.GetMetric(), 1)
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}

func TestMetricsThroughFactory(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))

	t0 := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	f := subscriptions.New(memory.New(),
		subscriptions.WithPlugin(metrics),
		subscriptions.WithNow(func() time.Time { return t0 }),
	)
	require.NoError(t, f.Start(ctx))

	c, err := f.CreateCollection(ctx, subscriptions.CreateParams{
		Prices:   []int64{10, 20},
		Periods:  []int64{60, 120},
		Capacity: subscriptions.Unlimited,
		Merchant: merchant,
	})
	require.NoError(t, err)

	_, err = c.Mint(ctx, alice, alice, 0, types.Wei(10))
	require.NoError(t, err)
	_, err = c.Mint(ctx, alice, alice, 1, types.Wei(1))
	require.Error(t, err)
	_, err = c.Withdraw(ctx, alice)
	require.Error(t, err)

	assert.InDelta(t, 1, counterValue(t, reg, "subscriptions_collection_created_total"), 0)
	assert.InDelta(t, 2, counterValue(t, reg, "subscriptions_tiers_added_total"), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "subscriptions_subscription_started_total"), 0)
	assert.InDelta(t, 2, counterValue(t, reg, "subscriptions_operation_rejected_total"), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "subscriptions_operation_rejected_payment_total"), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "subscriptions_operation_rejected_unauthorized_total"), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["subscriptions_collection_created_total"])
	assert.True(t, names["subscriptions_payment_amount"])
}

func TestMetricsGovernance(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := observability.NewMetricsExtension(observability.NewPrometheusFactory(reg))

	require.NoError(t, m.OnMerchantChanged(ctx, plugin.MerchantEvent{Current: alice}))
	require.NoError(t, m.OnMerchantChanged(ctx, plugin.MerchantEvent{Current: alice, Price: types.Wei(9)}))
	require.NoError(t, m.OnSaleChanged(ctx, plugin.SaleEvent{Price: types.Wei(9)}))
	require.NoError(t, m.OnSaleChanged(ctx, plugin.SaleEvent{Price: types.Wei(0)}))
	require.NoError(t, m.OnTiersChanged(ctx, plugin.TiersEvent{Disabled: []int{0, 1}}))
	require.NoError(t, m.OnOperationRejected(ctx, plugin.RejectedEvent{
		Err: fmt.Errorf("%w: closed", collection.ErrTierUnavailable),
	}))

	assert.InDelta(t, 1, counterValue(t, reg, "subscriptions_merchant_transferred_total"), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "subscriptions_merchant_sold_total"), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "subscriptions_sale_opened_total"), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "subscriptions_sale_closed_total"), 0)
	assert.InDelta(t, 2, counterValue(t, reg, "subscriptions_tiers_disabled_total"), 0)
	assert.InDelta(t, 1, counterValue(t, reg, "subscriptions_operation_rejected_unavailable_total"), 0)
}

func TestPrometheusFactoryMemoizes(t *testing.T) {
	f := observability.NewPrometheusFactory(prometheus.NewRegistry())

	a := f.Counter("subscriptions.test-metric")
	b := f.Counter("subscriptions.test-metric")
	assert.Same(t, a.(prometheus.Counter), b.(prometheus.Counter))

	h1 := f.Histogram("subscriptions.test.amount")
	h2 := f.Histogram("subscriptions.test.amount")
	assert.Equal(t, h1, h2)
}
