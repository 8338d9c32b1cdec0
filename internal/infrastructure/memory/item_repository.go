// Package memory holds the in-process reference implementations of the
// repository interfaces. Snapshots are deep-copied on the way in and out, so
// the only shared mutable state is behind the mutex.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"auction-house/internal/domain"
)

type ItemRepository struct {
	mu    sync.RWMutex
	items map[string]*domain.AuctionItem
}

func NewItemRepository() *ItemRepository {
	return &ItemRepository{
		items: make(map[string]*domain.AuctionItem),
	}
}

func (r *ItemRepository) CreateItem(ctx context.Context, item *domain.AuctionItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[item.ID]; exists {
		return fmt.Errorf("item %s already exists", item.ID)
	}
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *ItemRepository) GetItem(ctx context.Context, itemID string) (*domain.AuctionItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.items[itemID]
	if !exists {
		return nil, domain.ErrNotFound
	}
	return item.Clone(), nil
}

// UpdateItem applies the write only if the stored version still matches
// expectedVersion. The check and the swap happen under one lock, which is
// the serialization point for concurrent bids on the same item.
func (r *ItemRepository) UpdateItem(ctx context.Context, item *domain.AuctionItem, expectedVersion int64, appended *domain.BidRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, exists := r.items[item.ID]
	if !exists {
		return domain.ErrNotFound
	}
	if current.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *ItemRepository) ListItems(ctx context.Context) ([]*domain.AuctionItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*domain.AuctionItem, 0, len(r.items))
	for _, item := range r.items {
		items = append(items, item.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}
