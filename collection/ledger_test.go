package collection_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/types"
)

var (
	alice = types.BytesToAddress([]byte{0xa1})
	bob   = types.BytesToAddress([]byte{0xb0})
	carol = types.BytesToAddress([]byte{0xc0})
	dave  = types.BytesToAddress([]byte{0xd0})
	t0    = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestLedgerStart(t *testing.T) {
	var l collection.Ledger

	e, err := l.Start(0, alice, t0.Add(time.Hour), t0)
	require.NoError(t, err)
	assert.Equal(t, t0.Add(time.Hour), e.Deadline)
	assert.Equal(t, 1, l.BalanceOf(alice, 0))
	assert.Equal(t, 0, l.BalanceOf(alice, 1))

	_, err = l.Start(0, alice, t0, t0)
	assert.ErrorIs(t, err, collection.ErrAlreadySubscribed)

	_, err = l.Start(0, types.ZeroAddress, t0, t0)
	assert.ErrorIs(t, err, collection.ErrZeroAddress)
}

func TestLedgerExtend(t *testing.T) {
	tests := []struct {
		name     string
		deadline time.Time
		now      time.Time
		want     time.Time
	}{
		{"early renewal stacks on deadline", t0.Add(time.Hour), t0, t0.Add(2 * time.Hour)},
		{"late renewal starts from now", t0, t0.Add(3 * time.Hour), t0.Add(4 * time.Hour)},
		{"renewal at deadline", t0, t0, t0.Add(time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var l collection.Ledger
			_, err := l.Start(0, alice, tt.deadline, t0)
			require.NoError(t, err)

			e, err := l.Extend(0, alice, time.Hour, tt.now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Deadline)
			assert.Equal(t, 1, e.Renewals)
			assert.False(t, e.Deadline.Before(tt.deadline), "renewal never decreases a deadline")
		})
	}

	var l collection.Ledger
	_, err := l.Extend(0, bob, time.Hour, t0)
	assert.ErrorIs(t, err, collection.ErrNotSubscribed)
}

func TestLedgerEnd(t *testing.T) {
	var l collection.Ledger
	_, err := l.Start(0, alice, t0.Add(time.Minute), t0)
	require.NoError(t, err)

	_, err = l.End(0, alice, t0.Add(59*time.Second))
	require.ErrorIs(t, err, collection.ErrSubscriptionNotExpired)
	assert.True(t, l.Exists(0, alice))

	_, err = l.End(0, alice, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, l.Exists(0, alice))

	_, err = l.End(0, alice, t0.Add(time.Hour))
	assert.ErrorIs(t, err, collection.ErrNotSubscribed)
}

func TestLedgerTransfer(t *testing.T) {
	setup := func(t *testing.T) *collection.Ledger {
		t.Helper()
		var l collection.Ledger
		_, err := l.Start(0, alice, t0.Add(time.Hour), t0)
		require.NoError(t, err)
		_, err = l.Start(0, dave, t0.Add(time.Hour), t0)
		require.NoError(t, err)
		return &l
	}

	t.Run("holder transfers", func(t *testing.T) {
		l := setup(t)
		e, err := l.Transfer(0, alice, bob, alice)
		require.NoError(t, err)
		assert.Equal(t, bob, e.Holder)
		assert.Equal(t, t0.Add(time.Hour), e.Deadline, "deadline is preserved")
		assert.False(t, l.Exists(0, alice))
		assert.True(t, l.Exists(0, bob))
	})

	t.Run("approved operator transfers once", func(t *testing.T) {
		l := setup(t)
		_, err := l.Approve(0, alice, carol)
		require.NoError(t, err)

		e, err := l.Transfer(0, alice, bob, carol)
		require.NoError(t, err)
		assert.False(t, e.HasOperator(), "approval is cleared by the transfer")

		_, err = l.Transfer(0, bob, alice, carol)
		assert.ErrorIs(t, err, collection.ErrUnauthorized, "approval must be re-granted")
	})

	t.Run("third party is rejected", func(t *testing.T) {
		l := setup(t)
		_, err := l.Transfer(0, alice, bob, carol)
		assert.ErrorIs(t, err, collection.ErrUnauthorized)
		assert.True(t, l.Exists(0, alice))
	})

	t.Run("destination already subscribed", func(t *testing.T) {
		l := setup(t)
		_, err := l.Transfer(0, alice, dave, alice)
		assert.ErrorIs(t, err, collection.ErrAlreadySubscribed)
	})

	t.Run("zero destination", func(t *testing.T) {
		l := setup(t)
		_, err := l.Transfer(0, alice, types.ZeroAddress, alice)
		assert.ErrorIs(t, err, collection.ErrZeroAddress)
	})

	t.Run("missing source", func(t *testing.T) {
		l := setup(t)
		_, err := l.Transfer(0, bob, carol, bob)
		assert.ErrorIs(t, err, collection.ErrNotSubscribed)
	})
}

func TestLedgerApproveRequiresEntry(t *testing.T) {
	var l collection.Ledger
	_, err := l.Approve(0, alice, bob)
	assert.ErrorIs(t, err, collection.ErrNotSubscribed)
}

func TestLedgerEntriesOrdered(t *testing.T) {
	l := collection.RestoreLedger([]collection.Entry{
		{Tier: 1, Holder: alice},
		{Tier: 0, Holder: bob},
		{Tier: 0, Holder: alice},
	})

	entries := l.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, alice, entries[0].Holder)
	assert.Equal(t, 0, entries[0].Tier)
	assert.Equal(t, bob, entries[1].Holder)
	assert.Equal(t, 1, entries[2].Tier)
	assert.Equal(t, int64(2), l.CountTier(0))
}
