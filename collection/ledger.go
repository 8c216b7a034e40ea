package collection

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/xraph/subscriptions/types"
)

// Entry is one active subscription. It exists only between mint and end.
type Entry struct {
	Tier      int           `json:"tier"`
	Holder    types.Address `json:"holder"`
	Deadline  time.Time     `json:"deadline"`
	Operator  types.Address `json:"operator"`
	StartedAt time.Time     `json:"started_at"`
	Renewals  int           `json:"renewals"`
}

// Expired reports whether the entry may be ended at now.
func (e Entry) Expired(now time.Time) bool { return !now.Before(e.Deadline) }

// HasOperator reports whether a transfer delegate is approved.
func (e Entry) HasOperator() bool { return !e.Operator.IsZero() }

type entryKey struct {
	tier   int
	holder types.Address
}

// Ledger maps (tier, holder) to the active entry. A holder has at most one
// entry per tier.
type Ledger struct {
	entries map[entryKey]Entry
}

// RestoreLedger rebuilds a ledger from persisted entries. Later duplicates of
// a (tier, holder) pair replace earlier ones.
func RestoreLedger(entries []Entry) Ledger {
	l := Ledger{entries: make(map[entryKey]Entry, len(entries))}
	for _, e := range entries {
		l.entries[entryKey{e.Tier, e.Holder}] = e
	}
	return l
}

// Start creates a new entry for holder.
func (l *Ledger) Start(tier int, holder types.Address, deadline, now time.Time) (Entry, error) {
	if holder.IsZero() {
		return Entry{}, fmt.Errorf("%w: cannot start subscription towards the zero address", ErrZeroAddress)
	}
	k := entryKey{tier, holder}
	if _, ok := l.entries[k]; ok {
		return Entry{}, fmt.Errorf("%w: %s already holds tier %d", ErrAlreadySubscribed, holder, tier)
	}

	if l.entries == nil {
		l.entries = make(map[entryKey]Entry)
	}
	e := Entry{Tier: tier, Holder: holder, Deadline: deadline.UTC(), StartedAt: now.UTC()}
	l.entries[k] = e
	return e, nil
}

// Extend pushes the deadline to max(deadline, now) + period.
func (l *Ledger) Extend(tier int, holder types.Address, period time.Duration, now time.Time) (Entry, error) {
	k := entryKey{tier, holder}
	e, ok := l.entries[k]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s holds no subscription in tier %d", ErrNotSubscribed, holder, tier)
	}

	base := e.Deadline
	if now.After(base) {
		base = now
	}
	e.Deadline = base.Add(period).UTC()
	e.Renewals++
	l.entries[k] = e
	return e, nil
}

// End removes an expired entry and returns it.
func (l *Ledger) End(tier int, holder types.Address, now time.Time) (Entry, error) {
	k := entryKey{tier, holder}
	e, ok := l.entries[k]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s holds no subscription in tier %d", ErrNotSubscribed, holder, tier)
	}
	if !e.Expired(now) {
		return Entry{}, fmt.Errorf("%w: deadline is %s", ErrSubscriptionNotExpired, e.Deadline.Format(time.RFC3339))
	}

	delete(l.entries, k)
	return e, nil
}

// Transfer reassigns from's entry to to. The actor must be from or the
// approved operator. The deadline is kept and the approval cleared.
func (l *Ledger) Transfer(tier int, from, to, actor types.Address) (Entry, error) {
	src := entryKey{tier, from}
	e, ok := l.entries[src]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s holds no subscription in tier %d", ErrNotSubscribed, from, tier)
	}
	if actor != from && (!e.HasOperator() || actor != e.Operator) {
		return Entry{}, fmt.Errorf("%w: %s is neither the holder nor the approved operator", ErrUnauthorized, actor)
	}
	if to.IsZero() {
		return Entry{}, fmt.Errorf("%w: cannot transfer to the zero address", ErrZeroAddress)
	}
	dst := entryKey{tier, to}
	if _, taken := l.entries[dst]; taken {
		return Entry{}, fmt.Errorf("%w: %s already holds tier %d", ErrAlreadySubscribed, to, tier)
	}

	delete(l.entries, src)
	e.Holder = to
	e.Operator = types.ZeroAddress
	l.entries[dst] = e
	return e, nil
}

// Approve records operator as the transfer delegate of holder's entry. The
// zero address revokes the approval.
func (l *Ledger) Approve(tier int, holder, operator types.Address) (Entry, error) {
	k := entryKey{tier, holder}
	e, ok := l.entries[k]
	if !ok {
		return Entry{}, fmt.Errorf("%w: specified token must be an active subscription token", ErrNotSubscribed)
	}
	e.Operator = operator
	l.entries[k] = e
	return e, nil
}

// Get returns holder's entry in tier.
func (l *Ledger) Get(tier int, holder types.Address) (Entry, bool) {
	e, ok := l.entries[entryKey{tier, holder}]
	return e, ok
}

// Exists reports whether holder has an active entry in tier.
func (l *Ledger) Exists(tier int, holder types.Address) bool {
	_, ok := l.entries[entryKey{tier, holder}]
	return ok
}

// BalanceOf is 1 when holder has an entry in tier and 0 otherwise.
func (l *Ledger) BalanceOf(holder types.Address, tier int) int {
	if l.Exists(tier, holder) {
		return 1
	}
	return 0
}

// Deadline returns the deadline of holder's entry.
func (l *Ledger) Deadline(tier int, holder types.Address) (time.Time, error) {
	e, ok := l.Get(tier, holder)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: %s holds no subscription in tier %d", ErrNotSubscribed, holder, tier)
	}
	return e.Deadline, nil
}

// Len returns the number of active entries across all tiers.
func (l *Ledger) Len() int { return len(l.entries) }

// CountTier returns the number of active entries in tier.
func (l *Ledger) CountTier(tier int) int64 {
	var n int64
	for k := range l.entries {
		if k.tier == tier {
			n++
		}
	}
	return n
}

// Entries returns every entry ordered by tier, then holder.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int {
		if a.Tier != b.Tier {
			return a.Tier - b.Tier
		}
		return bytes.Compare(a.Holder[:], b.Holder[:])
	})
	return out
}

func (l *Ledger) clone() Ledger {
	c := Ledger{entries: make(map[entryKey]Entry, len(l.entries))}
	for k, e := range l.entries {
		c.entries[k] = e
	}
	return c
}
