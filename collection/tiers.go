package collection

import (
	"fmt"
	"math"
	"time"

	"github.com/xraph/subscriptions/types"
)

// Unlimited is the capacity value for tiers without a cap on active entries.
const Unlimited int64 = -1

// maxPeriodSeconds bounds periods so they fit in a time.Duration.
const maxPeriodSeconds = math.MaxInt64 / int64(time.Second)

// Tier is one priced subscription class. Index is its permanent position in
// the collection.
type Tier struct {
	Index    int           `json:"index"`
	Price    types.Money   `json:"price"`
	Period   time.Duration `json:"period"`
	Capacity int64         `json:"capacity"`
	Active   int64         `json:"active"`
	Enabled  bool          `json:"enabled"`
}

// HasRoom reports whether another entry fits under the capacity.
func (t Tier) HasRoom() bool {
	return t.Capacity == Unlimited || t.Active < t.Capacity
}

// Available reports whether the tier accepts new mints.
func (t Tier) Available() bool { return t.Enabled && t.HasRoom() }

// Remaining returns the number of free slots, or Unlimited.
func (t Tier) Remaining() int64 {
	if t.Capacity == Unlimited {
		return Unlimited
	}
	return t.Capacity - t.Active
}

// TierRegistry is the append-only tier list of one collection. Tiers are
// never removed; Disable only stops new mints.
type TierRegistry struct {
	tiers []Tier
}

// RestoreTiers rebuilds a registry from persisted tiers. Indices are
// reassigned from slice position.
func RestoreTiers(tiers []Tier) TierRegistry {
	r := TierRegistry{tiers: make([]Tier, len(tiers))}
	copy(r.tiers, tiers)
	for i := range r.tiers {
		r.tiers[i].Index = i
	}
	return r
}

// PeriodFromSeconds converts a signed number of seconds into a Duration.
// Negative values are kept as they are.
func PeriodFromSeconds(sec int64) (time.Duration, error) {
	if sec > maxPeriodSeconds || sec < -maxPeriodSeconds {
		return 0, ValidationError{Field: "periods", Message: fmt.Sprintf("period %ds out of range", sec)}
	}
	return time.Duration(sec) * time.Second, nil
}

// Add appends one tier per price/period pair, all with the given capacity.
// It validates the whole batch before appending anything and returns the
// new tiers.
func (r *TierRegistry) Add(prices []types.Money, periods []time.Duration, capacity int64) ([]Tier, error) {
	if len(prices) != len(periods) {
		return nil, ValidationError{
			Field:   "periods",
			Message: fmt.Sprintf("got %d prices and %d periods", len(prices), len(periods)),
		}
	}
	if capacity < Unlimited {
		return nil, ValidationError{Field: "capacity", Message: fmt.Sprintf("capacity %d is negative", capacity)}
	}

	var errs MultiError
	for i, p := range prices {
		if p.IsNegative() {
			errs.Add(ValidationError{Field: fmt.Sprintf("prices[%d]", i), Message: "price is negative"})
		}
	}
	if err := errs.ErrOrNil(); err != nil {
		return nil, err
	}

	added := make([]Tier, 0, len(prices))
	for i := range prices {
		t := Tier{
			Index:    len(r.tiers),
			Price:    prices[i],
			Period:   periods[i],
			Capacity: capacity,
			Enabled:  true,
		}
		r.tiers = append(r.tiers, t)
		added = append(added, t)
	}
	return added, nil
}

// Disable marks the listed tiers as closed to new mints. An out-of-range
// index fails the whole call.
func (r *TierRegistry) Disable(indices []int) error {
	for _, i := range indices {
		if !r.exists(i) {
			return fmt.Errorf("%w: index %d (collection has %d tiers)", ErrTierNotFound, i, len(r.tiers))
		}
	}
	for _, i := range indices {
		r.tiers[i].Enabled = false
	}
	return nil
}

// IsActive reports whether tier i exists and is enabled.
func (r *TierRegistry) IsActive(i int) bool {
	return r.exists(i) && r.tiers[i].Enabled
}

// HasCapacity reports whether tier i exists and has a free slot.
func (r *TierRegistry) HasCapacity(i int) bool {
	return r.exists(i) && r.tiers[i].HasRoom()
}

// Get returns a copy of tier i.
func (r *TierRegistry) Get(i int) (Tier, error) {
	if !r.exists(i) {
		return Tier{}, fmt.Errorf("%w: index %d", ErrTierNotFound, i)
	}
	return r.tiers[i], nil
}

// Len returns the number of tiers ever added.
func (r *TierRegistry) Len() int { return len(r.tiers) }

// All returns a copy of every tier in index order.
func (r *TierRegistry) All() []Tier {
	out := make([]Tier, len(r.tiers))
	copy(out, r.tiers)
	return out
}

func (r *TierRegistry) exists(i int) bool { return i >= 0 && i < len(r.tiers) }

func (r *TierRegistry) occupy(i int) {
	r.tiers[i].Active++
}

func (r *TierRegistry) release(i int) {
	if r.tiers[i].Active > 0 {
		r.tiers[i].Active--
	}
}

func (r *TierRegistry) clone() TierRegistry {
	return RestoreTiers(r.tiers)
}
