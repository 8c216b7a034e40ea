// Package mongo implements store.Store on MongoDB through grove. Each
// collection is one document with its tiers and ledger entries embedded.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	substore "github.com/xraph/subscriptions/store"
)

// Collection name constants.
const (
	colCollections = "sub_collections"
)

// compile-time interface check
var _ substore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all subscription collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("subscriptions/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Collection Store ====================

func (s *Store) CreateCollection(ctx context.Context, c *collection.State) error {
	m := toCollectionModel(c)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", subscriptions.ErrCollectionExists, c.ID)
		}
		return fmt.Errorf("subscriptions/mongo: create collection: %w", err)
	}
	return nil
}

func (s *Store) GetCollection(ctx context.Context, collectionID id.CollectionID) (*collection.State, error) {
	var m collectionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": collectionID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("%w: %s", subscriptions.ErrCollectionNotFound, collectionID)
		}
		return nil, fmt.Errorf("subscriptions/mongo: get collection: %w", err)
	}
	return fromCollectionModel(&m)
}

func (s *Store) ListCollections(ctx context.Context, opts collection.ListOpts) ([]*collection.State, error) {
	var models []collectionModel

	filter := bson.M{}
	if !opts.Merchant.IsZero() {
		filter["merchant"] = opts.Merchant.Hex()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("subscriptions/mongo: list collections: %w", err)
	}

	result := make([]*collection.State, len(models))
	for i := range models {
		c, err := fromCollectionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = c
	}
	return result, nil
}

func (s *Store) UpdateCollection(ctx context.Context, c *collection.State) error {
	m := toCollectionModel(c)

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("subscriptions/mongo: update collection: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("%w: %s", subscriptions.ErrCollectionNotFound, c.ID)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, collectionID id.CollectionID) error {
	res, err := s.mdb.NewDelete((*collectionModel)(nil)).
		Filter(bson.M{"_id": collectionID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("subscriptions/mongo: delete collection: %w", err)
	}
	if res.DeletedCount() == 0 {
		return fmt.Errorf("%w: %s", subscriptions.ErrCollectionNotFound, collectionID)
	}
	return nil
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all subscription collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCollections: {
			{Keys: bson.D{{Key: "merchant", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
			{
				Keys:    bson.D{{Key: "entries.holder", Value: 1}, {Key: "entries.tier", Value: 1}},
				Options: options.Index().SetName("idx_sub_entries_holder"),
			},
		},
	}
}
