package domain

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Identity is a validated caller identity, produced by the session gate.
type Identity struct {
	UserID   string
	Username string
	Role     Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// AuctionItem is a single biddable listing. Version supports conditional
// writes: every accepted mutation increments it by one.
type AuctionItem struct {
	ID            string      `json:"id"`
	ItemName      string      `json:"item_name"`
	Description   string      `json:"description"`
	CurrentBid    float64     `json:"current_bid"`
	HighestBidder string      `json:"highest_bidder"`
	ClosingTime   time.Time   `json:"closing_time"`
	IsClosed      bool        `json:"is_closed"`
	BidHistory    []BidRecord `json:"bid_history"`
	Version       int64       `json:"-"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Clone returns a deep copy, so callers can mutate snapshots freely.
func (a *AuctionItem) Clone() *AuctionItem {
	c := *a
	c.BidHistory = make([]BidRecord, len(a.BidHistory))
	copy(c.BidHistory, a.BidHistory)
	return &c
}

type BidRecord struct {
	Bidder    string    `json:"bidder"`
	BidAmount float64   `json:"bid_amount"`
	Timestamp time.Time `json:"timestamp"`
}

type BidOutcome int

const (
	OutcomeBidAccepted BidOutcome = iota
	OutcomeBidTooLow
	OutcomeAuctionClosed
)

func (o BidOutcome) String() string {
	switch o {
	case OutcomeBidAccepted:
		return "bid_accepted"
	case OutcomeBidTooLow:
		return "bid_too_low"
	case OutcomeAuctionClosed:
		return "auction_closed"
	default:
		return "unknown"
	}
}

// BidResult is the outcome of a PlaceBid call. Item is the post-bid snapshot
// for accepted bids; Winner is the recorded leader for closed auctions.
type BidResult struct {
	Outcome BidOutcome
	Item    *AuctionItem
	Winner  string
}

type BidEvent struct {
	Type      BidEventType `json:"type"`
	ItemID    string       `json:"item_id"`
	Bidder    string       `json:"bidder"`
	Amount    float64      `json:"amount"`
	Timestamp time.Time    `json:"timestamp"`
}

type BidEventType string

const (
	EventBidAccepted   BidEventType = "bid_accepted"
	EventAuctionClosed BidEventType = "auction_closed"
)
