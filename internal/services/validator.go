package services

import (
	"time"

	"auction-house/internal/domain"
)

type BidDecision int

const (
	DecisionAccept BidDecision = iota
	DecisionRejectTooLow
	DecisionRejectClosed
)

func (d BidDecision) String() string {
	switch d {
	case DecisionAccept:
		return "accept"
	case DecisionRejectTooLow:
		return "reject_too_low"
	case DecisionRejectClosed:
		return "reject_closed"
	default:
		return "unknown"
	}
}

// DecideBid is the pure bid validator: it inspects a snapshot and an instant
// and never mutates anything.
//
// A bid is accepted only when the item is open, now has not passed the
// closing time, and the amount is strictly greater than the current bid.
// Ties lose. Non-positive amounts are rejected as too low even though the
// transport layer should never let them through.
func DecideBid(item *domain.AuctionItem, amount float64, now time.Time) BidDecision {
	if item.IsClosed || now.After(item.ClosingTime) {
		return DecisionRejectClosed
	}
	if amount <= 0 || amount <= item.CurrentBid {
		return DecisionRejectTooLow
	}
	return DecisionAccept
}
