package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/llmscope/llmscope/pkg/metrics"
)

// sendBufferSize bounds the per-viewer outbound queue. A viewer that
// falls this far behind is disconnected rather than allowed to stall the
// broadcast path.
const sendBufferSize = 16

// ConnectionManager tracks the WebSocket viewers of one API process and
// fans tick frames out to them. Each process has one instance.
type ConnectionManager struct {
	// Active connections: connection_id → *Connection
	connections map[string]*Connection
	mu          sync.RWMutex

	// Write timeout for WebSocket sends
	writeTimeout time.Duration
}

// Connection represents a single WebSocket viewer. Frames are enqueued on
// sendCh and drained by a dedicated writer goroutine, so Conn.Write never
// needs external synchronization.
type Connection struct {
	ID     string
	Conn   *websocket.Conn
	sendCh chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// NewConnectionManager creates a new ConnectionManager.
func NewConnectionManager(writeTimeout time.Duration) *ConnectionManager {
	return &ConnectionManager{
		connections:  make(map[string]*Connection),
		writeTimeout: writeTimeout,
	}
}

// HandleConnection manages the lifecycle of a single WebSocket viewer.
// Called by the WebSocket HTTP handler after upgrade. Blocks until the
// connection closes.
func (m *ConnectionManager) HandleConnection(parentCtx context.Context, conn *websocket.Conn) {
	connID := uuid.New().String()
	ctx, cancel := context.WithCancel(parentCtx)

	c := &Connection{
		ID:     connID,
		Conn:   conn,
		sendCh: make(chan []byte, sendBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	m.registerConnection(c)
	defer m.unregisterConnection(c)

	go m.writePump(c)

	m.enqueue(c, connectedFrame)

	// Read loop. Viewers only ever send pings; anything else is logged
	// and dropped.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("Invalid WebSocket message",
				"connection_id", connID, "error", err)
			continue
		}
		if msg.Action == "ping" {
			m.enqueue(c, pongFrame)
		}
	}
}

// Broadcast fans a frame out to every viewer. Sends never block: a viewer
// whose queue is full is cut loose so one slow consumer cannot hold back
// the rest.
func (m *ConnectionManager) Broadcast(frame []byte) {
	// Snapshot connection pointers under the lock, then release before
	// enqueueing, so register/unregister are never stalled.
	m.mu.RLock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, c := range m.connections {
		conns = append(conns, c)
	}
	m.mu.RUnlock()

	for _, c := range conns {
		if !m.enqueue(c, frame) {
			slog.Warn("Disconnecting slow WebSocket viewer", "connection_id", c.ID)
			c.cancel()
		}
	}
}

// ActiveConnections returns the count of connected viewers.
func (m *ConnectionManager) ActiveConnections() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// enqueue hands a frame to one viewer without blocking. It reports false
// when the viewer's queue is full.
func (m *ConnectionManager) enqueue(c *Connection, frame []byte) bool {
	select {
	case c.sendCh <- frame:
		return true
	default:
		return false
	}
}

// writePump drains a viewer's send queue onto the socket. On write error
// the connection context is cancelled, which unwinds the read loop in
// HandleConnection.
func (m *ConnectionManager) writePump(c *Connection) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case frame := <-c.sendCh:
			writeCtx, cancel := context.WithTimeout(c.ctx, m.writeTimeout)
			err := c.Conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				slog.Warn("Failed to send to WebSocket viewer",
					"connection_id", c.ID, "error", err)
				c.cancel()
				return
			}
		}
	}
}

// registerConnection adds a connection to the tracking map.
func (m *ConnectionManager) registerConnection(c *Connection) {
	m.mu.Lock()
	m.connections[c.ID] = c
	m.mu.Unlock()
	metrics.WSConnections.Inc()
}

// unregisterConnection removes a connection and closes the socket.
func (m *ConnectionManager) unregisterConnection(c *Connection) {
	m.mu.Lock()
	delete(m.connections, c.ID)
	m.mu.Unlock()
	metrics.WSConnections.Dec()

	c.cancel()
	_ = c.Conn.Close(websocket.StatusNormalClosure, "")
}
