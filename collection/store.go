package collection

import "github.com/xraph/subscriptions/types"

// ListOpts filters and pages collection listings. Results are ordered by
// creation time.
type ListOpts struct {
	Merchant types.Address
	Limit    int
	Offset   int
}
