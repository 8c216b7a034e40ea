// Package audithook bridges collection lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on any
// particular audit backend. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/plugin"
	"github.com/xraph/subscriptions/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                    = (*Extension)(nil)
	_ plugin.OnCollectionCreated       = (*Extension)(nil)
	_ plugin.OnCollectionDeleted       = (*Extension)(nil)
	_ plugin.OnSubscriptionStarted     = (*Extension)(nil)
	_ plugin.OnSubscriptionRenewed     = (*Extension)(nil)
	_ plugin.OnSubscriptionEnded       = (*Extension)(nil)
	_ plugin.OnSubscriptionTransferred = (*Extension)(nil)
	_ plugin.OnTransferApproved        = (*Extension)(nil)
	_ plugin.OnMerchantChanged         = (*Extension)(nil)
	_ plugin.OnSaleChanged             = (*Extension)(nil)
	_ plugin.OnTiersChanged            = (*Extension)(nil)
	_ plugin.OnTreasuryWithdrawn       = (*Extension)(nil)
	_ plugin.OnOperationRejected       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	ID         id.AuditEventID `json:"id"`
	Timestamp  time.Time       `json:"timestamp"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	Category   string          `json:"category"`
	ResourceID string          `json:"resource_id,omitempty"`
	Actor      string          `json:"actor,omitempty"`
	Metadata   map[string]any  `json:"metadata,omitempty"`
	Outcome    string          `json:"outcome"`
	Severity   string          `json:"severity"`
	Reason     string          `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges collection lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Collection lifecycle hooks
// ──────────────────────────────────────────────────

// OnCollectionCreated implements plugin.OnCollectionCreated.
func (e *Extension) OnCollectionCreated(ctx context.Context, c *collection.State) error {
	return e.record(ctx, ActionCollectionCreated, SeverityInfo, OutcomeSuccess,
		ResourceCollection, c.ID.String(), CategoryCollection, c.Merchant, nil,
		"name", c.Name,
		"uri", c.URI,
		"tiers", c.Tiers.Len(),
		"capacity", c.DefaultCapacity,
		"currency", c.Currency,
	)
}

// OnCollectionDeleted implements plugin.OnCollectionDeleted.
func (e *Extension) OnCollectionDeleted(ctx context.Context, collectionID id.CollectionID, caller types.Address) error {
	return e.record(ctx, ActionCollectionDeleted, SeverityWarning, OutcomeSuccess,
		ResourceCollection, collectionID.String(), CategoryCollection, caller, nil,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscriptionStarted implements plugin.OnSubscriptionStarted.
func (e *Extension) OnSubscriptionStarted(ctx context.Context, evt plugin.SubscriptionEvent) error {
	return e.record(ctx, ActionSubscriptionStarted, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.CollectionID.String(), CategorySubscription, evt.Caller, nil,
		"tier", evt.Entry.Tier,
		"holder", evt.Entry.Holder.Hex(),
		"deadline", evt.Entry.Deadline,
		"payment", evt.Payment.String(),
	)
}

// OnSubscriptionRenewed implements plugin.OnSubscriptionRenewed.
func (e *Extension) OnSubscriptionRenewed(ctx context.Context, evt plugin.SubscriptionEvent) error {
	return e.record(ctx, ActionSubscriptionRenewed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.CollectionID.String(), CategorySubscription, evt.Caller, nil,
		"tier", evt.Entry.Tier,
		"holder", evt.Entry.Holder.Hex(),
		"deadline", evt.Entry.Deadline,
		"renewals", evt.Entry.Renewals,
		"payment", evt.Payment.String(),
	)
}

// OnSubscriptionEnded implements plugin.OnSubscriptionEnded.
func (e *Extension) OnSubscriptionEnded(ctx context.Context, evt plugin.SubscriptionEvent) error {
	return e.record(ctx, ActionSubscriptionEnded, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.CollectionID.String(), CategorySubscription, evt.Caller, nil,
		"tier", evt.Entry.Tier,
		"holder", evt.Entry.Holder.Hex(),
		"deadline", evt.Entry.Deadline,
	)
}

// OnSubscriptionTransferred implements plugin.OnSubscriptionTransferred.
func (e *Extension) OnSubscriptionTransferred(ctx context.Context, evt plugin.SubscriptionEvent) error {
	return e.record(ctx, ActionSubscriptionTransferred, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.CollectionID.String(), CategorySubscription, evt.Caller, nil,
		"tier", evt.Entry.Tier,
		"from", evt.From.Hex(),
		"to", evt.Entry.Holder.Hex(),
	)
}

// OnTransferApproved implements plugin.OnTransferApproved.
func (e *Extension) OnTransferApproved(ctx context.Context, evt plugin.SubscriptionEvent) error {
	return e.record(ctx, ActionTransferApproved, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, evt.CollectionID.String(), CategoryAccess, evt.Caller, nil,
		"tier", evt.Entry.Tier,
		"operator", evt.Entry.Operator.Hex(),
	)
}

// ──────────────────────────────────────────────────
// Governance hooks
// ──────────────────────────────────────────────────

// OnMerchantChanged implements plugin.OnMerchantChanged.
func (e *Extension) OnMerchantChanged(ctx context.Context, evt plugin.MerchantEvent) error {
	action := ActionMerchantTransferred
	if !evt.Price.IsZero() {
		action = ActionMerchantSold
	}
	return e.record(ctx, action, SeverityWarning, OutcomeSuccess,
		ResourceMerchant, evt.CollectionID.String(), CategoryGovernance, evt.Caller, nil,
		"previous", evt.Previous.Hex(),
		"merchant", evt.Current.Hex(),
		"price", evt.Price.String(),
	)
}

// OnSaleChanged implements plugin.OnSaleChanged.
func (e *Extension) OnSaleChanged(ctx context.Context, evt plugin.SaleEvent) error {
	action := ActionSaleOpened
	if evt.Price.IsZero() {
		action = ActionSaleClosed
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceMerchant, evt.CollectionID.String(), CategoryGovernance, evt.Caller, nil,
		"price", evt.Price.String(),
	)
}

// OnTiersChanged implements plugin.OnTiersChanged.
func (e *Extension) OnTiersChanged(ctx context.Context, evt plugin.TiersEvent) error {
	if len(evt.Added) > 0 {
		indices := make([]int, len(evt.Added))
		for i, t := range evt.Added {
			indices[i] = t.Index
		}
		if err := e.record(ctx, ActionTiersAdded, SeverityInfo, OutcomeSuccess,
			ResourceTier, evt.CollectionID.String(), CategoryGovernance, evt.Caller, nil,
			"indices", indices,
		); err != nil {
			return err
		}
	}
	if len(evt.Disabled) > 0 {
		return e.record(ctx, ActionTiersDisabled, SeverityInfo, OutcomeSuccess,
			ResourceTier, evt.CollectionID.String(), CategoryGovernance, evt.Caller, nil,
			"indices", evt.Disabled,
		)
	}
	return nil
}

// OnTreasuryWithdrawn implements plugin.OnTreasuryWithdrawn.
func (e *Extension) OnTreasuryWithdrawn(ctx context.Context, evt plugin.WithdrawalEvent) error {
	return e.record(ctx, ActionTreasuryWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceTreasury, evt.CollectionID.String(), CategoryPayment, evt.Caller, nil,
		"amount", evt.Amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationRejected implements plugin.OnOperationRejected. Authorization
// failures are reported as warnings; everything else as plain failures.
func (e *Extension) OnOperationRejected(ctx context.Context, evt plugin.RejectedEvent) error {
	severity := SeverityInfo
	category := CategoryCollection
	if errors.Is(evt.Err, collection.ErrUnauthorized) || errors.Is(evt.Err, collection.ErrRestrictedTransfer) {
		severity = SeverityWarning
		category = CategoryAccess
	}
	return e.record(ctx, ActionOperationRejected, severity, OutcomeFailure,
		ResourceCollection, evt.CollectionID.String(), category, evt.Caller, evt.Err,
		"operation", evt.Operation,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	actor types.Address,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		ID:         id.NewAuditEventID(),
		Timestamp:  e.now(),
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}
	if !actor.IsZero() {
		evt.Actor = actor.Hex()
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
