// Package postgres implements store.Store on PostgreSQL through grove. Each
// collection is one row; tiers and ledger entries live in jsonb columns so a
// commit is a single-row update.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	_ "github.com/xraph/grove/drivers/pgdriver/pgmigrate"
	"github.com/xraph/grove/migrate"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	substore "github.com/xraph/subscriptions/store"
)

// compile-time interface check
var _ substore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("subscriptions/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("subscriptions/postgres: migration failed: %w", err)
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
	existing := new(collectionModel)
	err := s.pg.NewSelect(existing).
		Where("id = $1", c.ID.String()).
		Scan(ctx)
	if err == nil {
		return fmt.Errorf("%w: %s", subscriptions.ErrCollectionExists, c.ID)
	}
	if !isNoRows(err) {
		return err
	}

	m, err := toCollectionModel(c)
	if err != nil {
		return err
	}
	_, err = s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCollection(ctx context.Context, collectionID id.CollectionID) (*collection.State, error) {
	m := new(collectionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", collectionID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("%w: %s", subscriptions.ErrCollectionNotFound, collectionID)
		}
		return nil, err
	}
	return fromCollectionModel(m)
}

func (s *Store) ListCollections(ctx context.Context, opts collection.ListOpts) ([]*collection.State, error) {
	var models []collectionModel
	q := s.pg.NewSelect(&models)

	if !opts.Merchant.IsZero() {
		q = q.Where("merchant = $1", opts.Merchant.Hex())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	m, err := toCollectionModel(c)
	if err != nil {
		return err
	}
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", subscriptions.ErrCollectionNotFound, c.ID)
	}
	return nil
}

func (s *Store) DeleteCollection(ctx context.Context, collectionID id.CollectionID) error {
	res, err := s.pg.NewDelete((*collectionModel)(nil)).
		Where("id = $1", collectionID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", subscriptions.ErrCollectionNotFound, collectionID)
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
