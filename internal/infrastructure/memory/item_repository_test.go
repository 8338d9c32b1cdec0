package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"auction-house/internal/domain"
)

func testItem(id string) *domain.AuctionItem {
	return &domain.AuctionItem{
		ID:          id,
		ItemName:    "Lamp",
		Description: "Art deco",
		CurrentBid:  25,
		ClosingTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		BidHistory:  []domain.BidRecord{},
		Version:     1,
		CreatedAt:   time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestItemRepository_CreateAndGet(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()

	if err := repo.CreateItem(ctx, testItem("item-1")); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	got, err := repo.GetItem(ctx, "item-1")
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	check.Equal(t, "item-1", got.ID)
	check.Equal(t, 25.0, got.CurrentBid)
	check.Equal(t, int64(1), got.Version)
}

func TestItemRepository_GetUnknown(t *testing.T) {
	repo := NewItemRepository()

	_, err := repo.GetItem(context.Background(), "nope")
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestItemRepository_CreateDuplicate(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()

	repo.CreateItem(ctx, testItem("item-1"))
	err := repo.CreateItem(ctx, testItem("item-1"))
	check.NotNil(t, err)
}

func TestItemRepository_ConditionalUpdate(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()
	repo.CreateItem(ctx, testItem("item-1"))

	snapshot, _ := repo.GetItem(ctx, "item-1")
	updated := snapshot.Clone()
	updated.CurrentBid = 40
	updated.Version++

	if err := repo.UpdateItem(ctx, updated, snapshot.Version, nil); err != nil {
		t.Fatalf("UpdateItem: %v", err)
	}

	// A write against the old version now loses.
	stale := snapshot.Clone()
	stale.CurrentBid = 30
	stale.Version++
	err := repo.UpdateItem(ctx, stale, snapshot.Version, nil)
	check.True(t, errors.Is(err, domain.ErrVersionConflict))

	got, _ := repo.GetItem(ctx, "item-1")
	check.Equal(t, 40.0, got.CurrentBid)
	check.Equal(t, int64(2), got.Version)
}

func TestItemRepository_UpdateUnknown(t *testing.T) {
	repo := NewItemRepository()

	err := repo.UpdateItem(context.Background(), testItem("ghost"), 1, nil)
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestItemRepository_SnapshotIsolation(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()
	repo.CreateItem(ctx, testItem("item-1"))

	snapshot, _ := repo.GetItem(ctx, "item-1")
	snapshot.CurrentBid = 9999
	snapshot.BidHistory = append(snapshot.BidHistory, domain.BidRecord{Bidder: "mallory", BidAmount: 9999})

	got, _ := repo.GetItem(ctx, "item-1")
	check.Equal(t, 25.0, got.CurrentBid)
	check.Equal(t, 0, len(got.BidHistory))
}

func TestItemRepository_ListOrdersByCreation(t *testing.T) {
	repo := NewItemRepository()
	ctx := context.Background()

	first := testItem("item-b")
	second := testItem("item-a")
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	repo.CreateItem(ctx, second)
	repo.CreateItem(ctx, first)

	items, err := repo.ListItems(ctx)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	check.Equal(t, 2, len(items))
	check.Equal(t, "item-b", items[0].ID)
	check.Equal(t, "item-a", items[1].ID)
}
