package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
	"auction-house/pkg/utils"
)

// maxBidAttempts bounds the conditional-write retry loop. Every retry
// re-fetches the item and re-runs the validator against the fresh snapshot.
const maxBidAttempts = 5

// AuctionEngine owns auction item state transitions. All writes go through
// the repository's conditional update, so concurrent bids on one item are
// serialized at the version check while different items proceed in parallel.
type AuctionEngine struct {
	items    domain.ItemRepository
	clock    domain.Clock
	eventPub domain.EventPublisher
	log      logger.Logger
}

func NewAuctionEngine(
	items domain.ItemRepository,
	clock domain.Clock,
	eventPub domain.EventPublisher,
	log logger.Logger,
) *AuctionEngine {
	return &AuctionEngine{
		items:    items,
		clock:    clock,
		eventPub: eventPub,
		log:      log,
	}
}

func (e *AuctionEngine) CreateItem(ctx context.Context, itemName, description string, startingBid float64, closingTime time.Time, caller domain.Identity) (*domain.AuctionItem, error) {
	if !caller.IsAdmin() {
		return nil, domain.ErrNotAuthorized
	}

	switch {
	case strings.TrimSpace(itemName) == "":
		return nil, &domain.ValidationError{Field: "item_name", Reason: "required"}
	case strings.TrimSpace(description) == "":
		return nil, &domain.ValidationError{Field: "description", Reason: "required"}
	case startingBid <= 0:
		return nil, &domain.ValidationError{Field: "starting_bid", Reason: "must be positive"}
	case !closingTime.After(e.clock.Now()):
		return nil, &domain.ValidationError{Field: "closing_time", Reason: "must be in the future"}
	}

	item := &domain.AuctionItem{
		ID:            utils.GenerateID("item"),
		ItemName:      itemName,
		Description:   description,
		CurrentBid:    startingBid,
		HighestBidder: "",
		ClosingTime:   closingTime,
		IsClosed:      false,
		BidHistory:    []domain.BidRecord{},
		Version:       1,
		CreatedAt:     e.clock.Now(),
	}

	if err := e.items.CreateItem(ctx, item); err != nil {
		return nil, err
	}

	e.log.Info("Auction item created",
		"item_id", item.ID,
		"item_name", item.ItemName,
		"starting_bid", item.CurrentBid,
		"closing_time", item.ClosingTime,
		"created_by", caller.Username)
	return item, nil
}

// PlaceBid runs the fetch-validate-write sequence under optimistic
// concurrency control. A snapshot that went stale between the fetch and the
// write loses the version check and the whole sequence reruns, so no accept
// is ever applied against a stale snapshot.
func (e *AuctionEngine) PlaceBid(ctx context.Context, itemID string, amount float64, caller domain.Identity) (*domain.BidResult, error) {
	for attempt := 0; attempt < maxBidAttempts; attempt++ {
		item, err := e.items.GetItem(ctx, itemID)
		if err != nil {
			return nil, err
		}

		// Closed is terminal: read the winner, write nothing.
		if item.IsClosed {
			return &domain.BidResult{Outcome: domain.OutcomeAuctionClosed, Winner: item.HighestBidder}, nil
		}

		now := e.clock.Now()

		switch DecideBid(item, amount, now) {
		case DecisionRejectClosed:
			// Closing time passed: latch the item shut. Lazy expiry means
			// this is detected here, on access, not by a timer.
			closed := item.Clone()
			closed.IsClosed = true
			closed.Version++
			if err := e.items.UpdateItem(ctx, closed, item.Version, nil); err != nil {
				if errors.Is(err, domain.ErrVersionConflict) {
					// Another caller already latched it (or landed a final
					// bid); re-read and report whatever they left behind.
					continue
				}
				return nil, err
			}
			e.publish(ctx, &domain.BidEvent{
				Type:      domain.EventAuctionClosed,
				ItemID:    closed.ID,
				Bidder:    closed.HighestBidder,
				Amount:    closed.CurrentBid,
				Timestamp: now,
			})
			e.log.Info("Auction closed", "item_id", closed.ID, "winner", closed.HighestBidder)
			return &domain.BidResult{Outcome: domain.OutcomeAuctionClosed, Winner: closed.HighestBidder}, nil

		case DecisionRejectTooLow:
			return &domain.BidResult{Outcome: domain.OutcomeBidTooLow, Item: item}, nil
		}

		record := domain.BidRecord{Bidder: caller.Username, BidAmount: amount, Timestamp: now}
		updated := item.Clone()
		updated.CurrentBid = amount
		updated.HighestBidder = caller.Username
		updated.BidHistory = append(updated.BidHistory, record)
		updated.Version++

		if err := e.items.UpdateItem(ctx, updated, item.Version, &record); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				continue
			}
			return nil, err
		}

		e.publish(ctx, &domain.BidEvent{
			Type:      domain.EventBidAccepted,
			ItemID:    updated.ID,
			Bidder:    caller.Username,
			Amount:    amount,
			Timestamp: now,
		})
		e.log.Info("Bid accepted",
			"item_id", updated.ID,
			"bidder", caller.Username,
			"amount", amount)
		return &domain.BidResult{Outcome: domain.OutcomeBidAccepted, Item: updated}, nil
	}

	return nil, domain.ErrConflictRetryExhausted
}

func (e *AuctionEngine) GetItem(ctx context.Context, itemID string) (*domain.AuctionItem, error) {
	return e.items.GetItem(ctx, itemID)
}

func (e *AuctionEngine) ListItems(ctx context.Context) ([]*domain.AuctionItem, error) {
	return e.items.ListItems(ctx)
}

func (e *AuctionEngine) GetBidHistory(ctx context.Context, itemID string) ([]domain.BidRecord, error) {
	item, err := e.items.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return item.BidHistory, nil
}

// CloseExpired latches every overdue open item shut and returns how many it
// closed. Items that lose the version check are left for the next sweep; a
// bidder touching them first latches them through PlaceBid anyway.
func (e *AuctionEngine) CloseExpired(ctx context.Context) (int, error) {
	items, err := e.items.ListItems(ctx)
	if err != nil {
		return 0, err
	}

	now := e.clock.Now()
	closed := 0
	for _, item := range items {
		if item.IsClosed || !now.After(item.ClosingTime) {
			continue
		}

		latched := item.Clone()
		latched.IsClosed = true
		latched.Version++
		if err := e.items.UpdateItem(ctx, latched, item.Version, nil); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				continue
			}
			return closed, err
		}

		e.publish(ctx, &domain.BidEvent{
			Type:      domain.EventAuctionClosed,
			ItemID:    latched.ID,
			Bidder:    latched.HighestBidder,
			Amount:    latched.CurrentBid,
			Timestamp: now,
		})
		e.log.Info("Auction closed by sweep", "item_id", latched.ID, "winner", latched.HighestBidder)
		closed++
	}

	return closed, nil
}

// publish is best effort: the bid already committed, a lost event must not
// fail it.
func (e *AuctionEngine) publish(ctx context.Context, event *domain.BidEvent) {
	if e.eventPub == nil {
		return
	}
	if err := e.eventPub.PublishBidEvent(ctx, event); err != nil {
		e.log.Error("Failed to publish bid event", "item_id", event.ItemID, "type", event.Type, "error", err)
	}
}
