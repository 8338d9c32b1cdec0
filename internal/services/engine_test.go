package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"auction-house/internal/domain"
	"auction-house/internal/infrastructure/memory"
	"auction-house/pkg/logger"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []*domain.BidEvent
}

func (p *capturingPublisher) PublishBidEvent(ctx context.Context, event *domain.BidEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) Events() []*domain.BidEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.BidEvent{}, p.events...)
}

var (
	admin   = domain.Identity{UserID: "u-admin", Username: "admin", Role: domain.RoleAdmin}
	bidderA = domain.Identity{UserID: "u-a", Username: "alice", Role: domain.RoleUser}
	bidderB = domain.Identity{UserID: "u-b", Username: "bob", Role: domain.RoleUser}
	bidderC = domain.Identity{UserID: "u-c", Username: "carol", Role: domain.RoleUser}
)

func newTestEngine(t *testing.T) (*AuctionEngine, *fakeClock, *capturingPublisher) {
	t.Helper()
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	pub := &capturingPublisher{}
	engine := NewAuctionEngine(memory.NewItemRepository(), clock, pub, logger.NewNop())
	return engine, clock, pub
}

func mustCreateItem(t *testing.T, engine *AuctionEngine, clock *fakeClock, startingBid float64, openFor time.Duration) *domain.AuctionItem {
	t.Helper()
	item, err := engine.CreateItem(context.Background(),
		"Painting", "Oil on canvas", startingBid, clock.Now().Add(openFor), admin)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	return item
}

func TestCreateItem_Validation(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()
	closing := clock.Now().Add(time.Hour)

	var validationErr *domain.ValidationError

	_, err := engine.CreateItem(ctx, "", "desc", 100, closing, admin)
	check.True(t, errors.As(err, &validationErr))

	_, err = engine.CreateItem(ctx, "name", "", 100, closing, admin)
	check.True(t, errors.As(err, &validationErr))

	_, err = engine.CreateItem(ctx, "name", "desc", 0, closing, admin)
	check.True(t, errors.As(err, &validationErr))

	_, err = engine.CreateItem(ctx, "name", "desc", -10, closing, admin)
	check.True(t, errors.As(err, &validationErr))

	// Closing time strictly in the future at creation time.
	_, err = engine.CreateItem(ctx, "name", "desc", 100, clock.Now(), admin)
	check.True(t, errors.As(err, &validationErr))

	_, err = engine.CreateItem(ctx, "name", "desc", 100, clock.Now().Add(-time.Hour), admin)
	check.True(t, errors.As(err, &validationErr))
}

func TestCreateItem_RequiresAdmin(t *testing.T) {
	engine, clock, _ := newTestEngine(t)

	_, err := engine.CreateItem(context.Background(),
		"name", "desc", 100, clock.Now().Add(time.Hour), bidderA)
	check.True(t, errors.Is(err, domain.ErrNotAuthorized))
}

func TestCreateItem_InitialState(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	item := mustCreateItem(t, engine, clock, 100, time.Hour)

	check.Equal(t, 100.0, item.CurrentBid)
	check.Equal(t, "", item.HighestBidder)
	check.False(t, item.IsClosed)
	check.Equal(t, 0, len(item.BidHistory))
}

func TestPlaceBid_Scenario(t *testing.T) {
	// Item at 100 closing in 1h. A bids 150 -> accepted. B bids 120 ->
	// too low, state unchanged. Clock passes closing. C bids 200 ->
	// auction closed, winner A, history still length 1.
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()
	item := mustCreateItem(t, engine, clock, 100, time.Hour)

	result, err := engine.PlaceBid(ctx, item.ID, 150, bidderA)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	check.Equal(t, domain.OutcomeBidAccepted, result.Outcome)
	check.Equal(t, 150.0, result.Item.CurrentBid)
	check.Equal(t, "alice", result.Item.HighestBidder)

	result, err = engine.PlaceBid(ctx, item.ID, 120, bidderB)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	check.Equal(t, domain.OutcomeBidTooLow, result.Outcome)

	current, err := engine.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	check.Equal(t, 150.0, current.CurrentBid)
	check.Equal(t, "alice", current.HighestBidder)

	clock.Advance(2 * time.Hour)

	result, err = engine.PlaceBid(ctx, item.ID, 200, bidderC)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	check.Equal(t, domain.OutcomeAuctionClosed, result.Outcome)
	check.Equal(t, "alice", result.Winner)

	history, err := engine.GetBidHistory(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetBidHistory: %v", err)
	}
	check.Equal(t, 1, len(history))
	check.Equal(t, "alice", history[0].Bidder)
	check.Equal(t, 150.0, history[0].BidAmount)
}

func TestPlaceBid_HistoryMonotonic(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()
	item := mustCreateItem(t, engine, clock, 10, time.Hour)

	bidders := []domain.Identity{bidderA, bidderB, bidderA, bidderC}
	amounts := []float64{15, 20, 33.5, 100}
	for i, amount := range amounts {
		result, err := engine.PlaceBid(ctx, item.ID, amount, bidders[i])
		if err != nil {
			t.Fatalf("PlaceBid(%v): %v", amount, err)
		}
		check.Equal(t, domain.OutcomeBidAccepted, result.Outcome)
		// Each history entry's amount equals CurrentBid right after it
		// was applied.
		check.Equal(t, amount, result.Item.CurrentBid)
		check.Equal(t, amount, result.Item.BidHistory[len(result.Item.BidHistory)-1].BidAmount)
	}

	history, err := engine.GetBidHistory(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetBidHistory: %v", err)
	}
	check.Equal(t, len(amounts), len(history))
	for i := 1; i < len(history); i++ {
		check.True(t, history[i].BidAmount > history[i-1].BidAmount)
	}
}

func TestPlaceBid_TieRejected(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()
	item := mustCreateItem(t, engine, clock, 100, time.Hour)

	result, err := engine.PlaceBid(ctx, item.ID, 100, bidderA)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	check.Equal(t, domain.OutcomeBidTooLow, result.Outcome)

	history, _ := engine.GetBidHistory(ctx, item.ID)
	check.Equal(t, 0, len(history))
}

func TestPlaceBid_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.PlaceBid(context.Background(), "item-missing", 100, bidderA)
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPlaceBid_LatchIdempotent(t *testing.T) {
	engine, clock, pub := newTestEngine(t)
	ctx := context.Background()
	item := mustCreateItem(t, engine, clock, 100, time.Hour)

	if _, err := engine.PlaceBid(ctx, item.ID, 150, bidderA); err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}

	clock.Advance(2 * time.Hour)

	first, err := engine.PlaceBid(ctx, item.ID, 200, bidderB)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}
	second, err := engine.PlaceBid(ctx, item.ID, 300, bidderC)
	if err != nil {
		t.Fatalf("PlaceBid: %v", err)
	}

	check.Equal(t, domain.OutcomeAuctionClosed, first.Outcome)
	check.Equal(t, domain.OutcomeAuctionClosed, second.Outcome)
	check.Equal(t, first.Winner, second.Winner)
	check.Equal(t, "alice", first.Winner)

	// The latch wrote exactly once: one accepted event, one closed event.
	var closedEvents int
	for _, event := range pub.Events() {
		if event.Type == domain.EventAuctionClosed {
			closedEvents++
		}
	}
	check.Equal(t, 1, closedEvents)

	history, _ := engine.GetBidHistory(ctx, item.ID)
	check.Equal(t, 1, len(history))
}

func TestPlaceBid_ClosedIsTerminal(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()
	item := mustCreateItem(t, engine, clock, 100, time.Hour)

	engine.PlaceBid(ctx, item.ID, 150, bidderA)
	clock.Advance(2 * time.Hour)
	engine.PlaceBid(ctx, item.ID, 200, bidderB) // latches

	before, _ := engine.GetItem(ctx, item.ID)
	check.True(t, before.IsClosed)

	for i := 0; i < 3; i++ {
		result, err := engine.PlaceBid(ctx, item.ID, 1000+float64(i), bidderC)
		if err != nil {
			t.Fatalf("PlaceBid: %v", err)
		}
		check.Equal(t, domain.OutcomeAuctionClosed, result.Outcome)
	}

	after, _ := engine.GetItem(ctx, item.ID)
	check.Equal(t, before.CurrentBid, after.CurrentBid)
	check.Equal(t, before.HighestBidder, after.HighestBidder)
	check.Equal(t, len(before.BidHistory), len(after.BidHistory))
}

func TestPlaceBid_ConcurrentBids(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()
	item := mustCreateItem(t, engine, clock, 1, time.Hour)

	const k = 50
	var wg sync.WaitGroup
	for i := 1; i <= k; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			bidder := domain.Identity{
				UserID:   fmt.Sprintf("u-%d", i),
				Username: fmt.Sprintf("bidder-%d", i),
				Role:     domain.RoleUser,
			}
			// Distinct, strictly increasing amounts b1 < b2 < ... < bK.
			if _, err := engine.PlaceBid(ctx, item.ID, float64(1+i), bidder); err != nil {
				t.Errorf("PlaceBid(%d): %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	final, err := engine.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	check.Equal(t, float64(1+k), final.CurrentBid)
	check.Equal(t, fmt.Sprintf("bidder-%d", k), final.HighestBidder)

	history, _ := engine.GetBidHistory(ctx, item.ID)
	check.True(t, len(history) >= 1)
	check.True(t, len(history) <= k)
	for i := 1; i < len(history); i++ {
		check.True(t, history[i].BidAmount > history[i-1].BidAmount)
	}
	check.Equal(t, float64(1+k), history[len(history)-1].BidAmount)
}

func TestGetBidHistory_NotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.GetBidHistory(context.Background(), "item-missing")
	check.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCloseExpired(t *testing.T) {
	engine, clock, _ := newTestEngine(t)
	ctx := context.Background()

	expiring := mustCreateItem(t, engine, clock, 100, time.Hour)
	open, err := engine.CreateItem(ctx, "Sculpture", "Bronze", 50, clock.Now().Add(24*time.Hour), admin)
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	engine.PlaceBid(ctx, expiring.ID, 150, bidderA)

	clock.Advance(2 * time.Hour)

	closed, err := engine.CloseExpired(ctx)
	if err != nil {
		t.Fatalf("CloseExpired: %v", err)
	}
	check.Equal(t, 1, closed)

	got, _ := engine.GetItem(ctx, expiring.ID)
	check.True(t, got.IsClosed)
	check.Equal(t, "alice", got.HighestBidder)

	stillOpen, _ := engine.GetItem(ctx, open.ID)
	check.False(t, stillOpen.IsClosed)

	// Idempotent: nothing left to close.
	closed, err = engine.CloseExpired(ctx)
	if err != nil {
		t.Fatalf("CloseExpired: %v", err)
	}
	check.Equal(t, 0, closed)
}

// conflictRepo always loses the conditional write, to exercise the retry
// budget.
type conflictRepo struct {
	domain.ItemRepository
}

func (r *conflictRepo) UpdateItem(ctx context.Context, item *domain.AuctionItem, expectedVersion int64, appended *domain.BidRecord) error {
	return domain.ErrVersionConflict
}

func TestPlaceBid_RetryExhausted(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	repo := memory.NewItemRepository()
	seed := NewAuctionEngine(repo, clock, nil, logger.NewNop())
	item := mustCreateItem(t, seed, clock, 100, time.Hour)

	engine := NewAuctionEngine(&conflictRepo{ItemRepository: repo}, clock, nil, logger.NewNop())
	_, err := engine.PlaceBid(context.Background(), item.ID, 150, bidderA)
	check.True(t, errors.Is(err, domain.ErrConflictRetryExhausted))

	// The prior snapshot is fully intact.
	got, _ := seed.GetItem(context.Background(), item.ID)
	check.Equal(t, 100.0, got.CurrentBid)
	check.Equal(t, 0, len(got.BidHistory))
}
