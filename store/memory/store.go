// Package memory provides an in-memory store for tests and single-process use.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	subscriptions "github.com/xraph/subscriptions"
	"github.com/xraph/subscriptions/collection"
	"github.com/xraph/subscriptions/id"
	"github.com/xraph/subscriptions/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store keeps deep copies of every collection so callers can never mutate
// stored state through a pointer they handed in or got back.
type Store struct {
	mu          sync.RWMutex
	collections map[id.CollectionID]*collection.State
	closed      bool
}

func New() *Store {
	return &Store{
		collections: make(map[id.CollectionID]*collection.State),
	}
}

// Collection Store implementation
func (s *Store) CreateCollection(_ context.Context, c *collection.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return subscriptions.ErrStoreClosed
	}
	if _, exists := s.collections[c.ID]; exists {
		return fmt.Errorf("%w: %s", subscriptions.ErrCollectionExists, c.ID)
	}
	s.collections[c.ID] = c.Clone()
	return nil
}

func (s *Store) GetCollection(_ context.Context, collectionID id.CollectionID) (*collection.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, subscriptions.ErrStoreClosed
	}
	if c, ok := s.collections[collectionID]; ok {
		return c.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %s", subscriptions.ErrCollectionNotFound, collectionID)
}

func (s *Store) ListCollections(_ context.Context, opts collection.ListOpts) ([]*collection.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, subscriptions.ErrStoreClosed
	}

	result := make([]*collection.State, 0, len(s.collections))
	for _, c := range s.collections {
		if !opts.Merchant.IsZero() && c.Merchant != opts.Merchant {
			continue
		}
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	// Apply limit/offset
	start := opts.Offset
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}

	out := make([]*collection.State, 0, end-start)
	for _, c := range result[start:end] {
		out = append(out, c.Clone())
	}
	return out, nil
}

func (s *Store) UpdateCollection(_ context.Context, c *collection.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return subscriptions.ErrStoreClosed
	}
	if _, exists := s.collections[c.ID]; !exists {
		return fmt.Errorf("%w: %s", subscriptions.ErrCollectionNotFound, c.ID)
	}
	s.collections[c.ID] = c.Clone()
	return nil
}

func (s *Store) DeleteCollection(_ context.Context, collectionID id.CollectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return subscriptions.ErrStoreClosed
	}
	if _, exists := s.collections[collectionID]; !exists {
		return fmt.Errorf("%w: %s", subscriptions.ErrCollectionNotFound, collectionID)
	}
	delete(s.collections, collectionID)
	return nil
}

// Core methods
func (s *Store) Migrate(_ context.Context) error {
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return subscriptions.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
