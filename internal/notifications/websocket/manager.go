package websocket

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"carbon-scribe/onboarding-tracker/internal/notifications"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256
)

// ErrClosed is returned by Publish after Close
var ErrClosed = errors.New("websocket manager closed")

// Manager handles WebSocket connections and fans tracker messages out to them
type Manager struct {
	hub       *Hub
	upgrader  websocket.Upgrader
	logger    *zap.Logger
	onConnect func() (notifications.WebSocketMessage, error)
	closeOnce sync.Once
}

// Connection represents a WebSocket client connection
type Connection struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan notifications.WebSocketMessage
	ConnectedAt time.Time
	RemoteAddr  string
}

// Hub manages the broadcast of messages to connections. Only the hub
// goroutine closes a connection's Send channel.
type Hub struct {
	connections map[*Connection]bool
	broadcast   chan notifications.WebSocketMessage
	register    chan *Connection
	unregister  chan *Connection
	stop        chan struct{}
	stopped     chan struct{}

	mu   sync.RWMutex
	size int
}

// NewManager creates a new WebSocket manager. onConnect, when set, builds the
// first message each new client receives.
func NewManager(logger *zap.Logger, onConnect func() (notifications.WebSocketMessage, error)) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	hub := &Hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan notifications.WebSocketMessage, sendBuffer),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	go hub.run(logger)

	return &Manager{
		hub:       hub,
		logger:    logger,
		onConnect: onConnect,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed is read-only and carries no credentials.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades the request and starts the connection pumps
func (m *Manager) HandleConnection(w http.ResponseWriter, r *http.Request) (*Connection, error) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		Conn:        conn,
		Send:        make(chan notifications.WebSocketMessage, sendBuffer),
		ConnectedAt: time.Now(),
		RemoteAddr:  r.RemoteAddr,
	}

	if m.onConnect != nil {
		msg, err := m.onConnect()
		if err != nil {
			m.logger.Warn("Failed to build initial message", zap.Error(err))
		} else {
			connection.Send <- msg
		}
	}

	select {
	case m.hub.register <- connection:
	case <-m.hub.stopped:
		conn.Close()
		return nil, ErrClosed
	}

	go m.readPump(connection)
	go m.writePump(connection)

	return connection, nil
}

// readPump only watches for close and pong frames; clients send nothing else.
func (m *Manager) readPump(conn *Connection) {
	defer func() {
		select {
		case m.hub.unregister <- conn:
		case <-m.hub.stopped:
		}
		conn.Conn.Close()
	}()

	conn.Conn.SetReadLimit(512)
	conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.Conn.SetPongHandler(func(string) error {
		conn.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := conn.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				m.logger.Debug("WebSocket read error", zap.String("connection_id", conn.ID), zap.Error(err))
			}
			return
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (m *Manager) writePump(conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.Conn.WriteJSON(message); err != nil {
				return
			}

		case <-ticker.C:
			conn.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// run runs the hub in its own goroutine
func (h *Hub) run(logger *zap.Logger) {
	defer close(h.stopped)

	for {
		select {
		case conn := <-h.register:
			h.connections[conn] = true
			h.setSize()
			logger.Debug("Connection registered", zap.String("connection_id", conn.ID))

		case conn := <-h.unregister:
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.Send)
				h.setSize()
				logger.Debug("Connection unregistered", zap.String("connection_id", conn.ID))
			}

		case message := <-h.broadcast:
			for conn := range h.connections {
				select {
				case conn.Send <- message:
				default:
					// slow client: drop it rather than stall everyone else
					close(conn.Send)
					delete(h.connections, conn)
					logger.Warn("Dropping slow connection", zap.String("connection_id", conn.ID))
				}
			}
			h.setSize()

		case <-h.stop:
			for conn := range h.connections {
				close(conn.Send)
				delete(h.connections, conn)
			}
			h.setSize()
			return
		}
	}
}

func (h *Hub) setSize() {
	h.mu.Lock()
	h.size = len(h.connections)
	h.mu.Unlock()
}

// Publish queues a message for every connected client without blocking
func (m *Manager) Publish(message notifications.WebSocketMessage) error {
	select {
	case <-m.hub.stopped:
		return ErrClosed
	default:
	}

	select {
	case m.hub.broadcast <- message:
		return nil
	default:
		return fmt.Errorf("broadcast channel full")
	}
}

// GetConnectionCount returns the number of active connections
func (m *Manager) GetConnectionCount() int {
	m.hub.mu.RLock()
	defer m.hub.mu.RUnlock()
	return m.hub.size
}

// Close stops the hub; every connection receives a close frame.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		close(m.hub.stop)
		<-m.hub.stopped
	})
}
