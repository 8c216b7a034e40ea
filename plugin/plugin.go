// Package plugin provides the hook system for subscription collections.
// Plugins implement any subset of the hook interfaces below; the Registry
// discovers them at registration and calls them after each committed change.
// Hooks observe; they cannot veto or alter an operation.
package plugin

import (
	"context"

	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Event payloads
// ──────────────────────────────────────────────────

// SubscriptionEvent describes a change to one ledger entry. Entry is the
// entry after the change (or the removed entry for an end).
type SubscriptionEvent struct {
	CollectionID id.CollectionID
	Caller       types.Address
	Entry        collection.Entry
	Payment      types.Money
	From         types.Address
}

// MerchantEvent describes a change of merchant. Price is the amount paid for
// a purchase and zero for a direct transfer.
type MerchantEvent struct {
	CollectionID id.CollectionID
	Caller       types.Address
	Previous     types.Address
	Current      types.Address
	Price        types.Money
}

// SaleEvent describes the merchant opening, repricing or closing a sale.
type SaleEvent struct {
	CollectionID id.CollectionID
	Caller       types.Address
	Price        types.Money
}

// TiersEvent describes tiers being added or disabled.
type TiersEvent struct {
	CollectionID id.CollectionID
	Caller       types.Address
	Added        []collection.Tier
	Disabled     []int
}

// WithdrawalEvent describes the merchant taking out the treasury.
type WithdrawalEvent struct {
	CollectionID id.CollectionID
	Caller       types.Address
	Amount       types.Money
}

// RejectedEvent describes an operation that failed and changed nothing.
type RejectedEvent struct {
	CollectionID id.CollectionID
	Operation    string
	Caller       types.Address
	Err          error
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the factory starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, factory any) error
}

// OnShutdown is called when the factory stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Collection hooks
// ──────────────────────────────────────────────────

// OnCollectionCreated is called with a snapshot of each new collection.
type OnCollectionCreated interface {
	Plugin
	OnCollectionCreated(ctx context.Context, c *collection.State) error
}

// OnCollectionDeleted is called after a merchant deletes a collection.
type OnCollectionDeleted interface {
	Plugin
	OnCollectionDeleted(ctx context.Context, collectionID id.CollectionID, caller types.Address) error
}

// ──────────────────────────────────────────────────
// Subscription hooks
// ──────────────────────────────────────────────────

// OnSubscriptionStarted is called after a mint.
type OnSubscriptionStarted interface {
	Plugin
	OnSubscriptionStarted(ctx context.Context, evt SubscriptionEvent) error
}

// OnSubscriptionRenewed is called after a renewal.
type OnSubscriptionRenewed interface {
	Plugin
	OnSubscriptionRenewed(ctx context.Context, evt SubscriptionEvent) error
}

// OnSubscriptionEnded is called after an expired entry is removed.
type OnSubscriptionEnded interface {
	Plugin
	OnSubscriptionEnded(ctx context.Context, evt SubscriptionEvent) error
}

// OnSubscriptionTransferred is called after an entry changes holder.
type OnSubscriptionTransferred interface {
	Plugin
	OnSubscriptionTransferred(ctx context.Context, evt SubscriptionEvent) error
}

// OnTransferApproved is called after a holder approves an operator.
type OnTransferApproved interface {
	Plugin
	OnTransferApproved(ctx context.Context, evt SubscriptionEvent) error
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnMerchantChanged is called after merchant rights move.
type OnMerchantChanged interface {
	Plugin
	OnMerchantChanged(ctx context.Context, evt MerchantEvent) error
}

// OnSaleChanged is called after the sale price is set or cleared.
type OnSaleChanged interface {
	Plugin
	OnSaleChanged(ctx context.Context, evt SaleEvent) error
}

// OnTiersChanged is called after tiers are added or disabled.
type OnTiersChanged interface {
	Plugin
	OnTiersChanged(ctx context.Context, evt TiersEvent) error
}

// OnTreasuryWithdrawn is called after the merchant withdraws.
type OnTreasuryWithdrawn interface {
	Plugin
	OnTreasuryWithdrawn(ctx context.Context, evt WithdrawalEvent) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationRejected is called when an operation fails.
type OnOperationRejected interface {
	Plugin
	OnOperationRejected(ctx context.Context, evt RejectedEvent) error
}
