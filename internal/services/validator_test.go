package services

import (
	"testing"
	"time"

	"github.com/peterldowns/testy/check"

	"auction-house/internal/domain"
)

func openItem(currentBid float64, closingTime time.Time) *domain.AuctionItem {
	return &domain.AuctionItem{
		ID:          "item-1",
		ItemName:    "Vintage clock",
		Description: "Keeps almost perfect time",
		CurrentBid:  currentBid,
		ClosingTime: closingTime,
		Version:     1,
	}
}

func TestDecideBid_AcceptsHigherBid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := openItem(100, now.Add(time.Hour))

	check.Equal(t, DecisionAccept, DecideBid(item, 150, now))
}

func TestDecideBid_RejectsTie(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := openItem(100, now.Add(time.Hour))

	check.Equal(t, DecisionRejectTooLow, DecideBid(item, 100, now))
}

func TestDecideBid_RejectsLowerBid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := openItem(100, now.Add(time.Hour))

	check.Equal(t, DecisionRejectTooLow, DecideBid(item, 99.99, now))
}

func TestDecideBid_RejectsNonPositiveBid(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := openItem(0, now.Add(time.Hour))

	check.Equal(t, DecisionRejectTooLow, DecideBid(item, 0, now))
	check.Equal(t, DecisionRejectTooLow, DecideBid(item, -5, now))
}

func TestDecideBid_AcceptsAtClosingInstant(t *testing.T) {
	// now == closingTime is still open; only now > closingTime closes.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := openItem(100, now)

	check.Equal(t, DecisionAccept, DecideBid(item, 150, now))
}

func TestDecideBid_RejectsAfterClosingTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := openItem(100, now.Add(-time.Second))

	check.Equal(t, DecisionRejectClosed, DecideBid(item, 150, now))
}

func TestDecideBid_RejectsClosedItem(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := openItem(100, now.Add(time.Hour))
	item.IsClosed = true

	check.Equal(t, DecisionRejectClosed, DecideBid(item, 150, now))
}

func TestDecideBid_ClosedWinsOverTooLow(t *testing.T) {
	// A late and low bid reports closed, not too-low.
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	item := openItem(100, now.Add(-time.Minute))

	check.Equal(t, DecisionRejectClosed, DecideBid(item, 50, now))
}
