package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"auction-house/internal/domain"
)

type ItemRepository struct {
	db *sql.DB
}

func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// EnsureSchema creates the item tables if they do not exist yet.
func (r *ItemRepository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS auction_items (
			id VARCHAR(64) PRIMARY KEY,
			item_name VARCHAR(255) NOT NULL,
			description TEXT NOT NULL,
			current_bid DOUBLE NOT NULL,
			highest_bidder VARCHAR(255) NOT NULL DEFAULT '',
			closing_time DATETIME(6) NOT NULL,
			is_closed BOOLEAN NOT NULL DEFAULT FALSE,
			version BIGINT NOT NULL,
			created_at DATETIME(6) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bid_history (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			item_id VARCHAR(64) NOT NULL,
			bidder VARCHAR(255) NOT NULL,
			bid_amount DOUBLE NOT NULL,
			timestamp DATETIME(6) NOT NULL,
			INDEX idx_bid_history_item (item_id)
		)`,
	}
	for _, stmt := range statements {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return storeErr(err)
		}
	}
	return nil
}

func (r *ItemRepository) CreateItem(ctx context.Context, item *domain.AuctionItem) error {
	query := `
        INSERT INTO auction_items (id, item_name, description, current_bid, highest_bidder, closing_time, is_closed, version, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.ItemName, item.Description, item.CurrentBid,
		item.HighestBidder, item.ClosingTime, item.IsClosed,
		item.Version, item.CreatedAt)
	if err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *ItemRepository) GetItem(ctx context.Context, itemID string) (*domain.AuctionItem, error) {
	query := `
        SELECT id, item_name, description, current_bid, highest_bidder, closing_time, is_closed, version, created_at
        FROM auction_items WHERE id = ?
    `

	var item domain.AuctionItem
	err := r.db.QueryRowContext(ctx, query, itemID).Scan(
		&item.ID, &item.ItemName, &item.Description, &item.CurrentBid,
		&item.HighestBidder, &item.ClosingTime, &item.IsClosed,
		&item.Version, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, storeErr(err)
	}

	history, err := r.loadHistory(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item.BidHistory = history
	return &item, nil
}

// UpdateItem runs the conditional write in one transaction: the version
// check is the WHERE clause of the UPDATE, and the history append commits
// with it or not at all.
func (r *ItemRepository) UpdateItem(ctx context.Context, item *domain.AuctionItem, expectedVersion int64, appended *domain.BidRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
        UPDATE auction_items
        SET current_bid = ?, highest_bidder = ?, is_closed = ?, version = ?
        WHERE id = ? AND version = ?
    `, item.CurrentBid, item.HighestBidder, item.IsClosed, item.Version,
		item.ID, expectedVersion)
	if err != nil {
		return storeErr(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return storeErr(err)
	}
	if affected == 0 {
		// Stale snapshot, or the item vanished; the caller re-fetches and
		// finds out which.
		return domain.ErrVersionConflict
	}

	if appended != nil {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO bid_history (item_id, bidder, bid_amount, timestamp)
            VALUES (?, ?, ?, ?)
        `, item.ID, appended.Bidder, appended.BidAmount, appended.Timestamp)
		if err != nil {
			return storeErr(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return storeErr(err)
	}
	return nil
}

func (r *ItemRepository) ListItems(ctx context.Context) ([]*domain.AuctionItem, error) {
	query := `
        SELECT id, item_name, description, current_bid, highest_bidder, closing_time, is_closed, version, created_at
        FROM auction_items ORDER BY created_at ASC, id ASC
    `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	var items []*domain.AuctionItem
	for rows.Next() {
		var item domain.AuctionItem
		err := rows.Scan(&item.ID, &item.ItemName, &item.Description,
			&item.CurrentBid, &item.HighestBidder, &item.ClosingTime,
			&item.IsClosed, &item.Version, &item.CreatedAt)
		if err != nil {
			return nil, storeErr(err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}

	for _, item := range items {
		history, err := r.loadHistory(ctx, item.ID)
		if err != nil {
			return nil, err
		}
		item.BidHistory = history
	}
	return items, nil
}

func (r *ItemRepository) loadHistory(ctx context.Context, itemID string) ([]domain.BidRecord, error) {
	query := `
        SELECT bidder, bid_amount, timestamp
        FROM bid_history
        WHERE item_id = ?
        ORDER BY id ASC
    `

	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, storeErr(err)
	}
	defer rows.Close()

	history := []domain.BidRecord{}
	for rows.Next() {
		var record domain.BidRecord
		if err := rows.Scan(&record.Bidder, &record.BidAmount, &record.Timestamp); err != nil {
			return nil, storeErr(err)
		}
		history = append(history, record)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err)
	}
	return history, nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
