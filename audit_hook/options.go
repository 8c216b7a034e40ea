package audithook

import (
	"log/slog"
	"time"
)

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithNow sets the clock used to timestamp events.
func WithNow(now func() time.Time) Option {
	return func(e *Extension) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEnabledActions sets which actions to audit.
// If not called, all actions are audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) {
		e.enabled = make(map[string]bool)
		for _, action := range actions {
			e.enabled[action] = true
		}
	}
}

// WithDisabledActions sets which actions to skip.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = make(map[string]bool)
			for _, action := range allActions() {
				e.enabled[action] = true
			}
		}
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

// allActions returns all known audit actions.
func allActions() []string {
	return []string{
		ActionCollectionCreated,
		ActionCollectionDeleted,
		ActionSubscriptionStarted,
		ActionSubscriptionRenewed,
		ActionSubscriptionEnded,
		ActionSubscriptionTransferred,
		ActionTransferApproved,
		ActionMerchantTransferred,
		ActionMerchantSold,
		ActionSaleOpened,
		ActionSaleClosed,
		ActionTiersAdded,
		ActionTiersDisabled,
		ActionTreasuryWithdrawn,
		ActionOperationRejected,
	}
}
