package handlers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/finvox/tuneloop/internal/ports"
)

// WebSocketBroadcaster fans tuning progress out to the WebSocket connections
// watching each run. Events are msgpack-encoded binary frames.
type WebSocketBroadcaster struct {
	connections map[string]map[*websocket.Conn]struct{}
	mu          sync.RWMutex
}

// Compile-time interface check
var _ ports.TuningProgressBroadcaster = (*WebSocketBroadcaster)(nil)

func NewWebSocketBroadcaster() *WebSocketBroadcaster {
	return &WebSocketBroadcaster{
		connections: make(map[string]map[*websocket.Conn]struct{}),
	}
}

func (b *WebSocketBroadcaster) Subscribe(runID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connections[runID] == nil {
		b.connections[runID] = make(map[*websocket.Conn]struct{})
	}

	b.connections[runID][conn] = struct{}{}
	slog.Debug("websocket subscribed", "run_id", runID, "total", len(b.connections[runID]))
}

func (b *WebSocketBroadcaster) Unsubscribe(runID string, conn *websocket.Conn) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if conns, ok := b.connections[runID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(b.connections, runID)
		}
	}
}

// BroadcastTuningProgress encodes the event and pushes it to every
// connection watching the run. Write failures drop the connection.
func (b *WebSocketBroadcaster) BroadcastTuningProgress(runID string, event ports.TuningProgressEvent) {
	data, err := msgpack.Marshal(event)
	if err != nil {
		slog.Error("failed to encode progress event", "run_id", runID, "error", err)
		return
	}

	b.broadcastBinary(runID, data)
}

func (b *WebSocketBroadcaster) broadcastBinary(runID string, data []byte) {
	b.mu.RLock()
	conns, ok := b.connections[runID]
	if !ok || len(conns) == 0 {
		b.mu.RUnlock()
		return
	}
	targets := make([]*websocket.Conn, 0, len(conns))
	for conn := range conns {
		targets = append(targets, conn)
	}
	b.mu.RUnlock()

	for _, conn := range targets {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			slog.Warn("failed to broadcast to websocket connection", "run_id", runID, "error", err)
			b.Unsubscribe(runID, conn)
		}
	}
}

func (b *WebSocketBroadcaster) GetSubscriberCount(runID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if conns, ok := b.connections[runID]; ok {
		return len(conns)
	}
	return 0
}
