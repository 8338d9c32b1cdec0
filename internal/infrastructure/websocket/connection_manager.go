package websocket

import (
	"sync"

	"auction-house/internal/domain"
	"auction-house/pkg/logger"
)

// ConnectionManager tracks live feed subscribers per item.
type ConnectionManager struct {
	connections map[string]map[string]domain.WebSocketConnection // itemID -> userID -> connection
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[string]domain.WebSocketConnection),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(userID, itemID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[itemID] == nil {
		cm.connections[itemID] = make(map[string]domain.WebSocketConnection)
	}
	cm.connections[itemID][userID] = conn

	cm.log.Info("Feed connection registered", "user_id", userID, "item_id", itemID)
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(userID, itemID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if itemConns, exists := cm.connections[itemID]; exists {
		delete(itemConns, userID)
		if len(itemConns) == 0 {
			delete(cm.connections, itemID)
		}
	}

	cm.log.Info("Feed connection unregistered", "user_id", userID, "item_id", itemID)
	return nil
}

func (cm *ConnectionManager) BroadcastToItem(itemID string, message interface{}) error {
	cm.mutex.RLock()
	var conns []domain.WebSocketConnection
	for _, conn := range cm.connections[itemID] {
		conns = append(conns, conn)
	}
	cm.mutex.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(message); err != nil {
			cm.log.Error("Failed to send to feed connection",
				"user_id", conn.UserID(), "item_id", itemID, "error", err)
		}
	}
	return nil
}

func (cm *ConnectionManager) CloseItemConnections(itemID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if itemConns, exists := cm.connections[itemID]; exists {
		for userID, conn := range itemConns {
			if err := conn.Close(); err != nil {
				cm.log.Error("Failed to close feed connection",
					"user_id", userID, "item_id", itemID, "error", err)
			}
		}
		delete(cm.connections, itemID)
	}

	cm.log.Info("Feed connections closed", "item_id", itemID)
	return nil
}
