// Package collection implements the subscription collection state machine:
// the tier registry, the ledger of active entries, and merchant governance.
//
// State is a plain value. Every operation takes the caller and the current
// time explicitly and either applies completely or returns an error; callers
// that need all-or-nothing commits run operations against a Clone and keep
// the original on failure.
package collection

import (
	"fmt"
	"time"

	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/types"
)

// Config describes a new collection.
type Config struct {
	ID          id.CollectionID
	Name        string
	URI         string
	Currency    string
	Merchant    types.Address
	Prices      []int64
	Periods     []int64
	Capacity    int64
	StartTime   time.Time
	Description string
}

// State is the full state of one subscription collection.
type State struct {
	types.Entity

	ID          id.CollectionID `json:"id"`
	Name        string          `json:"name"`
	URI         string          `json:"uri"`
	Description string          `json:"description,omitempty"`
	Currency    string          `json:"currency"`

	Merchant  types.Address `json:"merchant"`
	SalePrice types.Money   `json:"sale_price"`

	// DefaultCapacity applies to every tier added after creation.
	DefaultCapacity int64 `json:"default_capacity"`

	// StartTime, when later than the mint time, is the baseline for the
	// first deadline of a subscription.
	StartTime time.Time `json:"start_time"`

	Treasury types.Money `json:"treasury"`

	Tiers  TierRegistry `json:"-"`
	Ledger Ledger       `json:"-"`

	Version int64 `json:"version"`
}

// New builds the state of a freshly created collection.
func New(cfg Config, now time.Time) (*State, error) {
	if cfg.Merchant.IsZero() {
		return nil, fmt.Errorf("%w: merchant must not be the zero address", ErrZeroAddress)
	}
	if cfg.Capacity < Unlimited {
		return nil, ValidationError{Field: "capacity", Message: fmt.Sprintf("capacity %d is negative", cfg.Capacity)}
	}

	currency := cfg.Currency
	if currency == "" {
		currency = types.DefaultCurrency
	}
	collectionID := cfg.ID
	if collectionID.IsNil() {
		collectionID = id.NewCollectionID()
	}

	s := &State{
		Entity:          types.NewEntityAt(now),
		ID:              collectionID,
		Name:            cfg.Name,
		URI:             cfg.URI,
		Description:     cfg.Description,
		Currency:        types.Zero(currency).Currency,
		Merchant:        cfg.Merchant,
		DefaultCapacity: cfg.Capacity,
		Version:         1,
	}
	if !cfg.StartTime.IsZero() {
		s.StartTime = cfg.StartTime.UTC()
	}
	s.SalePrice = types.Zero(s.Currency)
	s.Treasury = types.Zero(s.Currency)

	if _, err := s.addTiers(cfg.Prices, cfg.Periods); err != nil {
		return nil, err
	}
	return s, nil
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.Tiers = s.Tiers.clone()
	c.Ledger = s.Ledger.clone()
	return &c
}

// ──────────────────────────────────────────────────
// Subscription lifecycle
// ──────────────────────────────────────────────────

// Mint starts a subscription for to. Anyone may pay for anyone.
func (s *State) Mint(_ types.Address, to types.Address, tier int, payment types.Money, now time.Time) (Entry, error) {
	t, err := s.Tiers.Get(tier)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrTierUnavailable, err)
	}
	if !t.Enabled {
		return Entry{}, fmt.Errorf("%w: specified subscription tier does not exist or is not active anymore", ErrTierUnavailable)
	}
	if !t.HasRoom() {
		return Entry{}, fmt.Errorf("%w: no more subscriptions available in this tier", ErrTierUnavailable)
	}
	if !payment.Equal(t.Price) {
		return Entry{}, fmt.Errorf("%w: you must make the first payment to start a subscription (paid %s, price %s)",
			ErrIncorrectPayment, payment, t.Price)
	}

	treasury, err := s.credit(payment)
	if err != nil {
		return Entry{}, err
	}

	base := now
	if s.StartTime.After(now) {
		base = s.StartTime
	}

	e, err := s.Ledger.Start(tier, to, base.Add(t.Period), now)
	if err != nil {
		return Entry{}, err
	}
	s.Tiers.occupy(tier)
	s.Treasury = treasury
	return e, nil
}

// Renew extends the caller's own subscription by one period.
func (s *State) Renew(caller types.Address, tier int, payment types.Money, now time.Time) (Entry, error) {
	t, err := s.Tiers.Get(tier)
	if err != nil {
		return Entry{}, err
	}
	if !s.Ledger.Exists(tier, caller) {
		return Entry{}, fmt.Errorf("%w: %s holds no subscription in tier %d", ErrNotSubscribed, caller, tier)
	}
	if !payment.Equal(t.Price) {
		return Entry{}, fmt.Errorf("%w: you must pay the subscription price to renew your subscription (paid %s, price %s)",
			ErrIncorrectPayment, payment, t.Price)
	}

	treasury, err := s.credit(payment)
	if err != nil {
		return Entry{}, err
	}

	e, err := s.Ledger.Extend(tier, caller, t.Period, now)
	if err != nil {
		return Entry{}, err
	}
	s.Treasury = treasury
	return e, nil
}

// End removes holder's expired subscription. Anyone may call it.
func (s *State) End(_ types.Address, tier int, holder types.Address, now time.Time) (Entry, error) {
	if _, err := s.Tiers.Get(tier); err != nil {
		return Entry{}, err
	}
	e, err := s.Ledger.End(tier, holder, now)
	if err != nil {
		return Entry{}, err
	}
	s.Tiers.release(tier)
	return e, nil
}

// Approve lets operator transfer the caller's entry once.
func (s *State) Approve(caller, operator types.Address, tier int) (Entry, error) {
	if _, err := s.Tiers.Get(tier); err != nil {
		return Entry{}, err
	}
	return s.Ledger.Approve(tier, caller, operator)
}

// Transfer moves from's entry to to on behalf of caller.
func (s *State) Transfer(caller, to types.Address, tier int, from types.Address) (Entry, error) {
	if _, err := s.Tiers.Get(tier); err != nil {
		return Entry{}, err
	}
	return s.Ledger.Transfer(tier, from, to, caller)
}

// SafeTransferFrom is the generic balance transfer primitive. Subscription
// entries can only move through Transfer, so it always fails.
func (s *State) SafeTransferFrom(_, _, _ types.Address, tier int, _ int64) error {
	if _, err := s.Tiers.Get(tier); err != nil {
		return err
	}
	return fmt.Errorf("%w: cannot arbitrarily transfer subscription tokens; use TransferSubscriptionToken instead",
		ErrRestrictedTransfer)
}

// ──────────────────────────────────────────────────
// Merchant governance
// ──────────────────────────────────────────────────

// IsMerchant reports whether addr holds merchant rights.
func (s *State) IsMerchant(addr types.Address) bool {
	return !addr.IsZero() && addr == s.Merchant
}

// ForSale reports whether merchant rights can currently be bought.
func (s *State) ForSale() bool { return s.SalePrice.Amount > 0 }

// TransferMerchantRights hands merchant rights to to and returns the
// previous merchant. A pending sale is cancelled.
func (s *State) TransferMerchantRights(caller, to types.Address) (types.Address, error) {
	if err := s.requireMerchant(caller); err != nil {
		return types.ZeroAddress, err
	}
	if to.IsZero() {
		return types.ZeroAddress, fmt.Errorf("%w: merchant must not be the zero address", ErrZeroAddress)
	}

	prev := s.Merchant
	s.Merchant = to
	s.SalePrice = types.Zero(s.Currency)
	return prev, nil
}

// SetMerchantPrice opens merchant rights for sale at price. A zero price
// closes the sale.
func (s *State) SetMerchantPrice(caller types.Address, price types.Money) error {
	if err := s.requireMerchant(caller); err != nil {
		return err
	}
	if price.IsNegative() {
		return ValidationError{Field: "price", Message: "sale price is negative"}
	}
	if price.Currency == "" {
		price.Currency = s.Currency
	}
	if price.Currency != s.Currency {
		return ValidationError{Field: "price", Message: fmt.Sprintf("currency %q differs from collection currency %q", price.Currency, s.Currency)}
	}

	s.SalePrice = price
	return nil
}

// BuyMerchantRights transfers merchant rights to caller for exactly the sale
// price, then closes the sale. It returns the previous merchant.
func (s *State) BuyMerchantRights(caller types.Address, payment types.Money) (types.Address, error) {
	if !s.ForSale() {
		return types.ZeroAddress, fmt.Errorf("%w: merchant is not selling the collection", ErrSaleDisabled)
	}
	if caller.IsZero() {
		return types.ZeroAddress, fmt.Errorf("%w: buyer must not be the zero address", ErrZeroAddress)
	}
	if !payment.Equal(s.SalePrice) {
		return types.ZeroAddress, fmt.Errorf("%w: paid %s, sale price %s", ErrIncorrectPayment, payment, s.SalePrice)
	}

	prev := s.Merchant
	s.Merchant = caller
	s.SalePrice = types.Zero(s.Currency)
	return prev, nil
}

// DisableSale closes a pending sale.
func (s *State) DisableSale(caller types.Address) error {
	if err := s.requireMerchant(caller); err != nil {
		return err
	}
	s.SalePrice = types.Zero(s.Currency)
	return nil
}

// AddTiers appends tiers priced in the collection currency with periods in
// seconds. New tiers get the collection's default capacity.
func (s *State) AddTiers(caller types.Address, prices, periods []int64) ([]Tier, error) {
	if err := s.requireMerchant(caller); err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, ValidationError{Field: "prices", Message: "at least one tier is required"}
	}
	return s.addTiers(prices, periods)
}

// DisableTiers closes the listed tiers to new mints.
func (s *State) DisableTiers(caller types.Address, indices []int) error {
	if err := s.requireMerchant(caller); err != nil {
		return err
	}
	if len(indices) == 0 {
		return ValidationError{Field: "indices", Message: "at least one tier index is required"}
	}
	return s.Tiers.Disable(indices)
}

// Withdraw pays out the collected treasury to the merchant.
func (s *State) Withdraw(caller types.Address) (types.Money, error) {
	if err := s.requireMerchant(caller); err != nil {
		return types.Money{}, err
	}
	out := s.Treasury
	s.Treasury = types.Zero(s.Currency)
	return out, nil
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// Deadline returns holder's deadline in tier.
func (s *State) Deadline(tier int, holder types.Address) (time.Time, error) {
	return s.Ledger.Deadline(tier, holder)
}

// IsExistent reports whether holder has an active entry in tier.
func (s *State) IsExistent(tier int, holder types.Address) bool {
	return s.Ledger.Exists(tier, holder)
}

// BalanceOf returns 1 when holder has an entry in tier and 0 otherwise.
func (s *State) BalanceOf(holder types.Address, tier int) int {
	return s.Ledger.BalanceOf(holder, tier)
}

// ActiveSubscriptions returns the number of entries across all tiers.
func (s *State) ActiveSubscriptions() int { return s.Ledger.Len() }

func (s *State) requireMerchant(caller types.Address) error {
	if !s.IsMerchant(caller) {
		return fmt.Errorf("%w: %s is not the merchant", ErrUnauthorized, caller)
	}
	return nil
}

func (s *State) addTiers(prices, periods []int64) ([]Tier, error) {
	if len(prices) != len(periods) {
		return nil, ValidationError{
			Field:   "periods",
			Message: fmt.Sprintf("got %d prices and %d periods", len(prices), len(periods)),
		}
	}

	money := make([]types.Money, len(prices))
	durations := make([]time.Duration, len(periods))
	var errs MultiError
	for i := range prices {
		money[i] = types.NewMoney(prices[i], s.Currency)
		d, err := PeriodFromSeconds(periods[i])
		if err != nil {
			errs.Add(err)
			continue
		}
		durations[i] = d
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	return s.Tiers.Add(money, durations, s.DefaultCapacity)
}

// credit returns the treasury after receiving payment, without applying it.
func (s *State) credit(payment types.Money) (types.Money, error) {
	treasury := s.Treasury
	if treasury.Currency == "" {
		treasury = types.Zero(payment.Currency)
	}
	sum, ok := treasury.CheckedAdd(payment)
	if !ok {
		return treasury, fmt.Errorf("%w: treasury of %s cannot hold another %s", ErrInvalidInput, treasury, payment)
	}
	return sum, nil
}
