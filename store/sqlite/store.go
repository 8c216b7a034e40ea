// Package sqlite implements store.Store on a single SQLite file through
// grove's sqlitedriver. Each collection is one row; tiers and ledger
// entries are JSON text columns so a commit is a single-row update.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/url"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	substore "github.com/xraph/subscriptions/store"
)

// compile-time interface check
var _ substore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// Open opens (or creates) the SQLite database at path and wraps it in a
// grove handle. Use ":memory:" for a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path + "?" + url.Values{
		"_pragma": []string{
			"busy_timeout(30000)",
			"synchronous(NORMAL)",
		},
	}.Encode()

	// A single connection serialises writers and keeps ":memory:" databases
	// alive for the lifetime of the store.
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, dsn, driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("subscriptions/sqlite: open %s: %w", path, err)
	}

	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("subscriptions/sqlite: %w", err)
	}
	return New(db), nil
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("subscriptions/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("subscriptions/sqlite: migration failed: %w", err)
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
	err := s.sdb.NewSelect(existing).
		Where("id = ?", c.ID.String()).
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
	_, err = s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetCollection(ctx context.Context, collectionID id.CollectionID) (*collection.State, error) {
	m := new(collectionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", collectionID.String()).
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
	q := s.sdb.NewSelect(&models)

	if !opts.Merchant.IsZero() {
		q = q.Where("merchant = ?", opts.Merchant.Hex())
	}
	switch {
	case opts.Limit > 0:
		q = q.Limit(opts.Limit)
	case opts.Offset > 0:
		// SQLite only accepts OFFSET after a LIMIT.
		q = q.Limit(math.MaxInt32)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_sec ASC, created_nsec ASC, id ASC")

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
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
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
	res, err := s.sdb.NewDelete((*collectionModel)(nil)).
		Where("id = ?", collectionID.String()).
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
