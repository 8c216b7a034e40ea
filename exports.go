package subscriptions

import (
	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/types"
)

// Re-export common types so callers rarely need the sub-packages.

// Money is re-exported from types package.
type Money = types.Money

// Address is re-exported from types package.
type Address = types.Address

// Tier is re-exported from collection package.
type Tier = collection.Tier

// Entry is re-exported from collection package.
type Entry = collection.Entry

// CollectionID identifies a collection.
type CollectionID = id.CollectionID

// Unlimited is the capacity of tiers without a cap.
const Unlimited = collection.Unlimited

// Re-export constructors
var (
	Wei              = types.Wei
	NewMoney         = types.NewMoney
	ParseMoney       = types.ParseMoney
	ParseAddress     = types.ParseAddress
	MustParseAddress = types.MustParseAddress
	ZeroAddress      = types.ZeroAddress
)
