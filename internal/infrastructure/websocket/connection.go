package websocket

import (
	"sync"

	"github.com/gorilla/websocket"

	"auction-house/pkg/logger"
)

// Connection wraps a gorilla conn with a write lock; gorilla allows only one
// concurrent writer.
type Connection struct {
	conn   *websocket.Conn
	userID string
	itemID string
	mu     sync.Mutex
	log    logger.Logger
}

func NewConnection(conn *websocket.Conn, userID, itemID string, log logger.Logger) *Connection {
	return &Connection{
		conn:   conn,
		userID: userID,
		itemID: itemID,
		log:    log,
	}
}

func (c *Connection) Send(message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

func (c *Connection) UserID() string {
	return c.userID
}

func (c *Connection) ItemID() string {
	return c.itemID
}
