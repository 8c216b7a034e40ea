package subscriptions

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/plugin"
	"github.com/xraph/subscriptions/types"
)

// Operation names reported to OnOperationRejected and used in logs.
const (
	OpMint                   = "mint"
	OpRenew                  = "renew_subscription"
	OpEnd                    = "end_subscription"
	OpApprove                = "approve_subscription_transfer"
	OpTransfer               = "transfer_subscription_token"
	OpSafeTransferFrom       = "safe_transfer_from"
	OpTransferMerchantRights = "transfer_merchant_rights"
	OpSetMerchantPrice       = "set_merchant_price"
	OpBuyMerchantRights      = "buy_merchant_rights"
	OpDisableSale            = "disable_sale"
	OpAddTiers               = "add_tiers"
	OpDisableTiers           = "disable_tiers"
	OpWithdraw               = "withdraw"
	OpDeleteCollection       = "delete_collection"
)

// Collection is the live handle of one subscription collection. Mutations
// are serialised per collection and commit copy-on-write: the operation runs
// against a clone, the clone is persisted, and only then does it replace the
// committed state. A failed operation leaves no trace.
type Collection struct {
	id      id.CollectionID
	factory *Factory
	logger  *slog.Logger

	mu      sync.RWMutex
	state   *collection.State
	deleted bool
}

func newCollection(f *Factory, s *collection.State) *Collection {
	return &Collection{
		id:      s.ID,
		factory: f,
		logger:  f.logger.With("collection_id", s.ID.String()),
		state:   s,
	}
}

// ──────────────────────────────────────────────────
// Commit pipeline
// ──────────────────────────────────────────────────

// apply runs op against a clone of the committed state and commits it.
func (c *Collection) apply(ctx context.Context, op string, caller types.Address, fn func(s *collection.State, now time.Time) error) error {
	err := c.commit(ctx, fn)
	if err != nil {
		c.logger.Debug("operation rejected",
			"operation", op,
			"caller", caller.Hex(),
			"error", err,
		)
		c.factory.plugins.EmitOperationRejected(ctx, plugin.RejectedEvent{
			CollectionID: c.id,
			Operation:    op,
			Caller:       caller,
			Err:          err,
		})
	}
	return err
}

func (c *Collection) commit(ctx context.Context, fn func(s *collection.State, now time.Time) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleted {
		return fmt.Errorf("%w: %s", ErrCollectionDeleted, c.id)
	}

	now := c.factory.now()
	next := c.state.Clone()
	if err := fn(next, now); err != nil {
		return err
	}

	next.Version++
	next.TouchAt(now)
	if err := c.factory.store.UpdateCollection(ctx, next); err != nil {
		return fmt.Errorf("subscriptions: persist collection %s: %w", c.id, err)
	}

	c.state = next
	return nil
}

// markDeleted removes the collection from the store when caller is the
// merchant and no subscription is active. It reports false with a nil error
// when caller is not the merchant.
func (c *Collection) markDeleted(ctx context.Context, caller types.Address) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleted {
		return false, fmt.Errorf("%w: %s", ErrCollectionDeleted, c.id)
	}
	if !c.state.IsMerchant(caller) {
		return false, nil
	}
	if n := c.state.ActiveSubscriptions(); n > 0 {
		return false, fmt.Errorf("%w: %d active subscriptions remain", ErrCollectionInUse, n)
	}
	if err := c.factory.store.DeleteCollection(ctx, c.id); err != nil {
		return false, err
	}

	c.deleted = true
	return true, nil
}

func (c *Collection) read() *collection.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Collection) createdAt() time.Time {
	return c.read().CreatedAt
}

// ──────────────────────────────────────────────────
// Subscription lifecycle
// ──────────────────────────────────────────────────

// Mint starts a subscription for to in tier. Anyone may pay for anyone; the
// payment must equal the tier price exactly.
func (c *Collection) Mint(ctx context.Context, caller, to types.Address, tier int, payment types.Money) (Entry, error) {
	var e collection.Entry
	err := c.apply(ctx, OpMint, caller, func(s *collection.State, now time.Time) (err error) {
		e, err = s.Mint(caller, to, tier, payment, now)
		return err
	})
	if err != nil {
		return Entry{}, err
	}

	c.logger.Info("subscription started",
		"tier", tier,
		"holder", to.Hex(),
		"deadline", e.Deadline,
	)
	c.factory.plugins.EmitSubscriptionStarted(ctx, plugin.SubscriptionEvent{
		CollectionID: c.id,
		Caller:       caller,
		Entry:        e,
		Payment:      payment,
	})
	return e, nil
}

// RenewSubscription extends the caller's subscription in tier by one period.
func (c *Collection) RenewSubscription(ctx context.Context, caller types.Address, tier int, payment types.Money) (Entry, error) {
	var e collection.Entry
	err := c.apply(ctx, OpRenew, caller, func(s *collection.State, now time.Time) (err error) {
		e, err = s.Renew(caller, tier, payment, now)
		return err
	})
	if err != nil {
		return Entry{}, err
	}

	c.logger.Info("subscription renewed",
		"tier", tier,
		"holder", caller.Hex(),
		"deadline", e.Deadline,
		"renewals", e.Renewals,
	)
	c.factory.plugins.EmitSubscriptionRenewed(ctx, plugin.SubscriptionEvent{
		CollectionID: c.id,
		Caller:       caller,
		Entry:        e,
		Payment:      payment,
	})
	return e, nil
}

// EndSubscription removes holder's lapsed subscription and frees its slot.
// Anyone may call it once the deadline has passed.
func (c *Collection) EndSubscription(ctx context.Context, caller types.Address, tier int, holder types.Address) error {
	var e collection.Entry
	err := c.apply(ctx, OpEnd, caller, func(s *collection.State, now time.Time) (err error) {
		e, err = s.End(caller, tier, holder, now)
		return err
	})
	if err != nil {
		return err
	}

	c.logger.Info("subscription ended",
		"tier", tier,
		"holder", holder.Hex(),
		"caller", caller.Hex(),
	)
	c.factory.plugins.EmitSubscriptionEnded(ctx, plugin.SubscriptionEvent{
		CollectionID: c.id,
		Caller:       caller,
		Entry:        e,
	})
	return nil
}

// ApproveSubscriptionTransfer lets operator move the caller's entry in tier
// once. Approving the zero address revokes a previous approval.
func (c *Collection) ApproveSubscriptionTransfer(ctx context.Context, caller, operator types.Address, tier int) error {
	var e collection.Entry
	err := c.apply(ctx, OpApprove, caller, func(s *collection.State, _ time.Time) (err error) {
		e, err = s.Approve(caller, operator, tier)
		return err
	})
	if err != nil {
		return err
	}

	c.factory.plugins.EmitTransferApproved(ctx, plugin.SubscriptionEvent{
		CollectionID: c.id,
		Caller:       caller,
		Entry:        e,
	})
	return nil
}

// TransferSubscriptionToken moves from's entry in tier to to. The caller must
// be from or its approved operator.
func (c *Collection) TransferSubscriptionToken(ctx context.Context, caller, to types.Address, tier int, from types.Address) error {
	var e collection.Entry
	err := c.apply(ctx, OpTransfer, caller, func(s *collection.State, _ time.Time) (err error) {
		e, err = s.Transfer(caller, to, tier, from)
		return err
	})
	if err != nil {
		return err
	}

	c.logger.Info("subscription transferred",
		"tier", tier,
		"from", from.Hex(),
		"to", to.Hex(),
	)
	c.factory.plugins.EmitSubscriptionTransferred(ctx, plugin.SubscriptionEvent{
		CollectionID: c.id,
		Caller:       caller,
		Entry:        e,
		From:         from,
	})
	return nil
}

// SafeTransferFrom is the generic balance transfer path. Subscription entries
// never move through it.
func (c *Collection) SafeTransferFrom(ctx context.Context, caller, from, to types.Address, tier int, amount int64) error {
	return c.apply(ctx, OpSafeTransferFrom, caller, func(s *collection.State, _ time.Time) error {
		return s.SafeTransferFrom(caller, from, to, tier, amount)
	})
}

// ──────────────────────────────────────────────────
// Merchant governance
// ──────────────────────────────────────────────────

// TransferMerchantRights hands merchant rights to to.
func (c *Collection) TransferMerchantRights(ctx context.Context, caller, to types.Address) error {
	var prev types.Address
	err := c.apply(ctx, OpTransferMerchantRights, caller, func(s *collection.State, _ time.Time) (err error) {
		prev, err = s.TransferMerchantRights(caller, to)
		return err
	})
	if err != nil {
		return err
	}

	c.logger.Info("merchant rights transferred",
		"previous", prev.Hex(),
		"merchant", to.Hex(),
	)
	c.factory.plugins.EmitMerchantChanged(ctx, plugin.MerchantEvent{
		CollectionID: c.id,
		Caller:       caller,
		Previous:     prev,
		Current:      to,
	})
	return nil
}

// SetMerchantPrice opens merchant rights for sale. A zero price closes it.
func (c *Collection) SetMerchantPrice(ctx context.Context, caller types.Address, price types.Money) error {
	var set types.Money
	err := c.apply(ctx, OpSetMerchantPrice, caller, func(s *collection.State, _ time.Time) error {
		if err := s.SetMerchantPrice(caller, price); err != nil {
			return err
		}
		set = s.SalePrice
		return nil
	})
	if err != nil {
		return err
	}

	c.logger.Info("merchant sale price set", "price", set.String())
	c.factory.plugins.EmitSaleChanged(ctx, plugin.SaleEvent{
		CollectionID: c.id,
		Caller:       caller,
		Price:        set,
	})
	return nil
}

// BuyMerchantRights makes caller the merchant for exactly the sale price.
func (c *Collection) BuyMerchantRights(ctx context.Context, caller types.Address, payment types.Money) error {
	var prev types.Address
	err := c.apply(ctx, OpBuyMerchantRights, caller, func(s *collection.State, _ time.Time) (err error) {
		prev, err = s.BuyMerchantRights(caller, payment)
		return err
	})
	if err != nil {
		return err
	}

	c.logger.Info("merchant rights bought",
		"previous", prev.Hex(),
		"merchant", caller.Hex(),
		"price", payment.String(),
	)
	c.factory.plugins.EmitMerchantChanged(ctx, plugin.MerchantEvent{
		CollectionID: c.id,
		Caller:       caller,
		Previous:     prev,
		Current:      caller,
		Price:        payment,
	})
	return nil
}

// DisableSale closes a pending merchant sale.
func (c *Collection) DisableSale(ctx context.Context, caller types.Address) error {
	var cleared types.Money
	err := c.apply(ctx, OpDisableSale, caller, func(s *collection.State, _ time.Time) error {
		if err := s.DisableSale(caller); err != nil {
			return err
		}
		cleared = s.SalePrice
		return nil
	})
	if err != nil {
		return err
	}

	c.factory.plugins.EmitSaleChanged(ctx, plugin.SaleEvent{
		CollectionID: c.id,
		Caller:       caller,
		Price:        cleared,
	})
	return nil
}

// AddTiers appends tiers with prices in the collection currency and periods
// in seconds.
func (c *Collection) AddTiers(ctx context.Context, caller types.Address, prices, periods []int64) ([]Tier, error) {
	var added []collection.Tier
	err := c.apply(ctx, OpAddTiers, caller, func(s *collection.State, _ time.Time) (err error) {
		added, err = s.AddTiers(caller, prices, periods)
		return err
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("tiers added", "count", len(added))
	c.factory.plugins.EmitTiersChanged(ctx, plugin.TiersEvent{
		CollectionID: c.id,
		Caller:       caller,
		Added:        added,
	})
	return added, nil
}

// DisableTiers closes the listed tiers to new subscriptions. Active entries
// in those tiers are unaffected.
func (c *Collection) DisableTiers(ctx context.Context, caller types.Address, indices []int) error {
	err := c.apply(ctx, OpDisableTiers, caller, func(s *collection.State, _ time.Time) error {
		return s.DisableTiers(caller, indices)
	})
	if err != nil {
		return err
	}

	c.logger.Info("tiers disabled", "indices", indices)
	c.factory.plugins.EmitTiersChanged(ctx, plugin.TiersEvent{
		CollectionID: c.id,
		Caller:       caller,
		Disabled:     append([]int(nil), indices...),
	})
	return nil
}

// Withdraw pays the collected treasury out to the merchant.
func (c *Collection) Withdraw(ctx context.Context, caller types.Address) (types.Money, error) {
	var out types.Money
	err := c.apply(ctx, OpWithdraw, caller, func(s *collection.State, _ time.Time) (err error) {
		out, err = s.Withdraw(caller)
		return err
	})
	if err != nil {
		return types.Money{}, err
	}

	c.logger.Info("treasury withdrawn", "amount", out.String())
	c.factory.plugins.EmitTreasuryWithdrawn(ctx, plugin.WithdrawalEvent{
		CollectionID: c.id,
		Caller:       caller,
		Amount:       out,
	})
	return out, nil
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// ID returns the collection ID.
func (c *Collection) ID() id.CollectionID { return c.id }

// Name returns the collection name.
func (c *Collection) Name() string { return c.read().Name }

// URI returns the metadata URI.
func (c *Collection) URI() string { return c.read().URI }

// GetMerchant returns the current merchant.
func (c *Collection) GetMerchant() types.Address { return c.read().Merchant }

// IsMerchant reports whether addr is the current merchant.
func (c *Collection) IsMerchant(addr types.Address) bool { return c.read().IsMerchant(addr) }

// MerchantSalePrice returns the sale price and whether a sale is open.
func (c *Collection) MerchantSalePrice() (types.Money, bool) {
	s := c.read()
	return s.SalePrice, s.ForSale()
}

// GetSubscriptionDeadline returns holder's deadline in tier.
func (c *Collection) GetSubscriptionDeadline(tier int, holder types.Address) (time.Time, error) {
	return c.read().Deadline(tier, holder)
}

// IsExistentSubscription reports whether holder has an active entry in tier.
func (c *Collection) IsExistentSubscription(tier int, holder types.Address) bool {
	return c.read().IsExistent(tier, holder)
}

// BalanceOf returns 1 when holder has an entry in tier and 0 otherwise.
func (c *Collection) BalanceOf(holder types.Address, tier int) int {
	return c.read().BalanceOf(holder, tier)
}

// Tiers returns every tier in index order.
func (c *Collection) Tiers() []Tier { return c.read().Tiers.All() }

// Tier returns one tier.
func (c *Collection) Tier(index int) (Tier, error) { return c.read().Tiers.Get(index) }

// Deleted reports whether the collection has been deleted.
func (c *Collection) Deleted() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deleted
}

// Snapshot returns a deep copy of the committed state.
func (c *Collection) Snapshot() *collection.State {
	return c.read().Clone()
}
