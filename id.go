package subscriptions

import "github.com/xraph/subscriptions/id"

// ID is the identifier type for collections and audit events.
type ID = id.ID

// ParseCollectionID parses a "col_" prefixed collection ID.
var ParseCollectionID = id.ParseCollectionID
