package store

import (
	"context"

	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
)

// Store is the unified storage interface for subscription collections.
// Methods are declared explicitly rather than by embedding collection.Store
// so that every backend exposes one flat, prefixed surface.
type Store interface {
	// Collection methods
	CreateCollection(ctx context.Context, s *collection.State) error
	GetCollection(ctx context.Context, collectionID id.CollectionID) (*collection.State, error)
	ListCollections(ctx context.Context, opts collection.ListOpts) ([]*collection.State, error)
	UpdateCollection(ctx context.Context, s *collection.State) error
	DeleteCollection(ctx context.Context, collectionID id.CollectionID) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
