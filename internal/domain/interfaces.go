package domain

import (
	"context"
	"time"
)

// Clock supplies the current instant, so closing-time checks are
// deterministic in tests.
type Clock interface {
	Now() time.Time
}

// Repository interfaces
type ItemRepository interface {
	CreateItem(ctx context.Context, item *AuctionItem) error

	// GetItem returns a snapshot of the item, or ErrNotFound.
	GetItem(ctx context.Context, itemID string) (*AuctionItem, error)

	// UpdateItem is a conditional write: it applies item only if the stored
	// version still equals expectedVersion, and returns ErrVersionConflict
	// otherwise. appended, when non-nil, is the bid record this update adds
	// to the item's history; it commits atomically with the item itself.
	UpdateItem(ctx context.Context, item *AuctionItem, expectedVersion int64, appended *BidRecord) error

	ListItems(ctx context.Context) ([]*AuctionItem, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// SessionGate issues and validates opaque bearer credentials. The auction
// engine never touches tokens; it only sees the Identity the gate resolved.
type SessionGate interface {
	Issue(ctx context.Context, identity Identity) (string, error)
	Validate(ctx context.Context, token string) (Identity, error)
	Revoke(ctx context.Context, token string) error
}

// TokenStore is the revocable active-token set backing a SessionGate.
type TokenStore interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
	Remove(ctx context.Context, token string) error
}

// SweepLock keeps the expiry sweep from running on several instances at
// once. The latch itself is idempotent, so losing the lock only saves work.
type SweepLock interface {
	TryAcquire(ctx context.Context, holder string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, holder string) error
}

// Event interfaces
type EventPublisher interface {
	PublishBidEvent(ctx context.Context, event *BidEvent) error
}

type EventSubscriber interface {
	SubscribeToBidEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *BidEvent) error

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	ItemID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, itemID string, conn WebSocketConnection) error
	UnregisterConnection(userID, itemID string) error
	BroadcastToItem(itemID string, message interface{}) error
	CloseItemConnections(itemID string) error
}
