// Package subscriptions provides recurring subscription collections for Go
// applications.
//
// A Factory creates independent collections. Each collection owns an
// append-only list of priced tiers, a ledger of active subscriptions (one per
// holder per tier), and a merchant who governs tiers, the treasury and the
// sale of merchant rights. Every operation takes the calling address
// explicitly and checks it before touching state; there is no ambient
// identity.
//
// # Quick Start
//
//	f := subscriptions.New(memory.New())
//	if err := f.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer f.Stop()
//
//	c, err := f.CreateCollection(ctx, subscriptions.CreateParams{
//	    Name:     "Pro",
//	    Prices:   []int64{10, 20},
//	    Periods:  []int64{30 * 24 * 3600, 365 * 24 * 3600},
//	    Capacity: 100,
//	    Merchant: merchant,
//	})
//
//	// Anyone may pay for a subscription on behalf of anyone.
//	entry, err := c.Mint(ctx, payer, holder, 0, subscriptions.Wei(10))
//
// # Payments
//
// Mint, renewal and the purchase of merchant rights all require the payment
// to equal the price exactly, amount and currency both. Amounts are integers
// in the smallest unit of the collection currency (wei by default).
//
// # Deadlines
//
// A new subscription's deadline is one period after the mint, or after the
// collection start time when that is still in the future. Renewal pushes the
// deadline one period past whichever is later, the current deadline or now.
// Once the deadline has passed anyone may end the subscription, which frees
// its slot in the tier.
//
// # Atomicity
//
// Each collection serialises its mutations and commits copy-on-write: a
// failed operation, including a failed write to the store, leaves the
// committed state untouched.
//
// # TypeID
//
// Collections are identified by TypeIDs:
//
//	col_01h2xcejqtf2nbrexx3vqjhp41
package subscriptions
