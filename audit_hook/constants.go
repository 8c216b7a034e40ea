package audithook

// Action constants for audit events.
const (
	// Collection actions
	ActionCollectionCreated = "collection.created"
	ActionCollectionDeleted = "collection.deleted"

	// Subscription actions
	ActionSubscriptionStarted     = "subscription.started"
	ActionSubscriptionRenewed     = "subscription.renewed"
	ActionSubscriptionEnded       = "subscription.ended"
	ActionSubscriptionTransferred = "subscription.transferred"
	ActionTransferApproved        = "subscription.transfer_approved"

	// Governance actions
	ActionMerchantTransferred = "merchant.transferred"
	ActionMerchantSold        = "merchant.sold"
	ActionSaleOpened          = "sale.opened"
	ActionSaleClosed          = "sale.closed"
	ActionTiersAdded          = "tiers.added"
	ActionTiersDisabled       = "tiers.disabled"
	ActionTreasuryWithdrawn   = "treasury.withdrawn"

	// Failures
	ActionOperationRejected = "operation.rejected"
)

// Resource constants for audit events.
const (
	ResourceCollection   = "collection"
	ResourceSubscription = "subscription"
	ResourceMerchant     = "merchant"
	ResourceTier         = "tier"
	ResourceTreasury     = "treasury"
)

// Category constants for audit events.
const (
	CategoryCollection   = "collection"
	CategorySubscription = "subscription"
	CategoryGovernance   = "governance"
	CategoryPayment      = "payment"
	CategoryAccess       = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
