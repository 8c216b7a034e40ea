// Package observability provides a metrics extension for subscription
// collections that records lifecycle event counts via a MetricFactory.
package observability

import (
	"context"
	"errors"

	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/plugin"
	"github.com/xraph/subscriptions/types"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                    = (*MetricsExtension)(nil)
	_ plugin.OnInit                    = (*MetricsExtension)(nil)
	_ plugin.OnCollectionCreated       = (*MetricsExtension)(nil)
	_ plugin.OnCollectionDeleted       = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionStarted     = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionRenewed     = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionEnded       = (*MetricsExtension)(nil)
	_ plugin.OnSubscriptionTransferred = (*MetricsExtension)(nil)
	_ plugin.OnTransferApproved        = (*MetricsExtension)(nil)
	_ plugin.OnMerchantChanged         = (*MetricsExtension)(nil)
	_ plugin.OnSaleChanged             = (*MetricsExtension)(nil)
	_ plugin.OnTiersChanged            = (*MetricsExtension)(nil)
	_ plugin.OnTreasuryWithdrawn       = (*MetricsExtension)(nil)
	_ plugin.OnOperationRejected       = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a factory plugin to track collection activity.
type MetricsExtension struct {
	factory MetricFactory

	// Collection metrics
	CollectionCreated Counter
	CollectionDeleted Counter

	// Subscription metrics
	SubscriptionStarted     Counter
	SubscriptionRenewed     Counter
	SubscriptionEnded       Counter
	SubscriptionTransferred Counter
	TransferApproved        Counter
	PaymentAmount           Histogram

	// Governance metrics
	MerchantTransferred Counter
	MerchantSold        Counter
	SaleOpened          Counter
	SaleClosed          Counter
	TiersAdded          Counter
	TiersDisabled       Counter
	TreasuryWithdrawn   Counter
	WithdrawalAmount    Histogram

	// Rejection metrics
	Rejected             Counter
	RejectedPayment      Counter
	RejectedUnauthorized Counter
	RejectedUnavailable  Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CollectionCreated: factory.Counter("subscriptions.collection.created"),
		CollectionDeleted: factory.Counter("subscriptions.collection.deleted"),

		SubscriptionStarted:     factory.Counter("subscriptions.subscription.started"),
		SubscriptionRenewed:     factory.Counter("subscriptions.subscription.renewed"),
		SubscriptionEnded:       factory.Counter("subscriptions.subscription.ended"),
		SubscriptionTransferred: factory.Counter("subscriptions.subscription.transferred"),
		TransferApproved:        factory.Counter("subscriptions.subscription.transfer_approved"),
		PaymentAmount:           factory.Histogram("subscriptions.payment.amount"),

		MerchantTransferred: factory.Counter("subscriptions.merchant.transferred"),
		MerchantSold:        factory.Counter("subscriptions.merchant.sold"),
		SaleOpened:          factory.Counter("subscriptions.sale.opened"),
		SaleClosed:          factory.Counter("subscriptions.sale.closed"),
		TiersAdded:          factory.Counter("subscriptions.tiers.added"),
		TiersDisabled:       factory.Counter("subscriptions.tiers.disabled"),
		TreasuryWithdrawn:   factory.Counter("subscriptions.treasury.withdrawn"),
		WithdrawalAmount:    factory.Histogram("subscriptions.treasury.withdrawal_amount"),

		Rejected:             factory.Counter("subscriptions.operation.rejected"),
		RejectedPayment:      factory.Counter("subscriptions.operation.rejected.payment"),
		RejectedUnauthorized: factory.Counter("subscriptions.operation.rejected.unauthorized"),
		RejectedUnavailable:  factory.Counter("subscriptions.operation.rejected.unavailable"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// ──────────────────────────────────────────────────
// Collection lifecycle hooks
// ──────────────────────────────────────────────────

// OnCollectionCreated implements plugin.OnCollectionCreated.
func (m *MetricsExtension) OnCollectionCreated(_ context.Context, c *collection.State) error {
	m.CollectionCreated.Inc()
	m.TiersAdded.Add(float64(c.Tiers.Len()))
	return nil
}

// OnCollectionDeleted implements plugin.OnCollectionDeleted.
func (m *MetricsExtension) OnCollectionDeleted(_ context.Context, _ id.CollectionID, _ types.Address) error {
	m.CollectionDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionStarted implements plugin.OnSubscriptionStarted.
func (m *MetricsExtension) OnSubscriptionStarted(_ context.Context, evt plugin.SubscriptionEvent) error {
	m.SubscriptionStarted.Inc()
	m.PaymentAmount.Observe(float64(evt.Payment.Amount))
	return nil
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (m *MetricsExtension) OnSubscriptionRenewed(_ context.Context, evt plugin.SubscriptionEvent) error {
	m.SubscriptionRenewed.Inc()
	m.PaymentAmount.Observe(float64(evt.Payment.Amount))
	return nil
}

// OnSubscriptionEnded implements plugin.OnSubscriptionEnded.
func (m *MetricsExtension) OnSubscriptionEnded(_ context.Context, _ plugin.SubscriptionEvent) error {
	m.SubscriptionEnded.Inc()
	return nil
}

// OnSubscriptionTransferred implements plugin.OnSubscriptionTransferred.
func (m *MetricsExtension) OnSubscriptionTransferred(_ context.Context, _ plugin.SubscriptionEvent) error {
	m.SubscriptionTransferred.Inc()
	return nil
}

// OnTransferApproved implements plugin.OnTransferApproved.
func (m *MetricsExtension) OnTransferApproved(_ context.Context, _ plugin.SubscriptionEvent) error {
	m.TransferApproved.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnMerchantChanged implements plugin.OnMerchantChanged.
func (m *MetricsExtension) OnMerchantChanged(_ context.Context, evt plugin.MerchantEvent) error {
	if evt.Price.IsZero() {
		m.MerchantTransferred.Inc()
	} else {
		m.MerchantSold.Inc()
	}
	return nil
}

// OnSaleChanged implements plugin.OnSaleChanged.
func (m *MetricsExtension) OnSaleChanged(_ context.Context, evt plugin.SaleEvent) error {
	if evt.Price.IsZero() {
		m.SaleClosed.Inc()
	} else {
		m.SaleOpened.Inc()
	}
	return nil
}

// OnTiersChanged implements plugin.OnTiersChanged.
func (m *MetricsExtension) OnTiersChanged(_ context.Context, evt plugin.TiersEvent) error {
	if n := len(evt.Added); n > 0 {
		m.TiersAdded.Add(float64(n))
	}
	if n := len(evt.Disabled); n > 0 {
		m.TiersDisabled.Add(float64(n))
	}
	return nil
}

// OnTreasuryWithdrawn implements plugin.OnTreasuryWithdrawn.
func (m *MetricsExtension) OnTreasuryWithdrawn(_ context.Context, evt plugin.WithdrawalEvent) error {
	m.TreasuryWithdrawn.Inc()
	m.WithdrawalAmount.Observe(float64(evt.Amount.Amount))
	return nil
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationRejected implements plugin.OnOperationRejected.
func (m *MetricsExtension) OnOperationRejected(_ context.Context, evt plugin.RejectedEvent) error {
	m.Rejected.Inc()
	switch {
	case errors.Is(evt.Err, collection.ErrIncorrectPayment):
		m.RejectedPayment.Inc()
	case errors.Is(evt.Err, collection.ErrUnauthorized), errors.Is(evt.Err, collection.ErrRestrictedTransfer):
		m.RejectedUnauthorized.Inc()
	case errors.Is(evt.Err, collection.ErrTierUnavailable), errors.Is(evt.Err, collection.ErrSaleDisabled):
		m.RejectedUnavailable.Inc()
	}
	return nil
}
