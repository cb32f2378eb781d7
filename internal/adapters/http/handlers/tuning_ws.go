package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/finvox/tuneloop/internal/domain/models"
	"github.com/finvox/tuneloop/internal/ports"
)

// TuningWebSocketHandler streams progress events for a single tuning run.
// On connect it sends a snapshot of the run's current state, then forwards
// live events until the client disconnects.
type TuningWebSocketHandler struct {
	upgrader      websocket.Upgrader
	tuningService ports.TuningService
	broadcaster   *WebSocketBroadcaster
}

func NewTuningWebSocketHandler(
	tuningService ports.TuningService,
	broadcaster *WebSocketBroadcaster,
	allowedOrigins []string,
) *TuningWebSocketHandler {
	allowedOriginsMap := make(map[string]bool)
	for _, origin := range allowedOrigins {
		allowedOriginsMap[origin] = true
	}

	return &TuningWebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return allowedOriginsMap[origin]
			},
		},
		tuningService: tuningService,
		broadcaster:   broadcaster,
	}
}

// Handle handles GET /api/v1/tuning-runs/{id}/ws
func (h *TuningWebSocketHandler) Handle(w http.ResponseWriter, r *http.Request) {
	runID, ok := validateURLParam(r, w, "id", "Tuning run ID")
	if !ok {
		return
	}

	run, err := h.tuningService.GetRun(r.Context(), runID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("failed to upgrade websocket connection", "run_id", runID, "error", err)
		return
	}
	defer conn.Close()

	// Snapshot first so late subscribers see where the run stands.
	snapshot := ports.TuningProgressEvent{
		Type:          snapshotEventType(run.Status),
		RunID:         run.ID,
		Iteration:     len(run.Iterations),
		MaxIterations: run.Config.MaxIterations,
		TargetScore:   run.Config.TargetScore,
		PromptID:      run.FinalPromptID,
		Status:        string(run.Status),
		Message:       run.ErrorMessage,
		Timestamp:     time.Now().UnixMilli(),
	}
	if latest := run.LatestIteration(); latest != nil {
		snapshot.WeightedScore = latest.WeightedScore
		if snapshot.PromptID == "" {
			snapshot.PromptID = latest.PromptID
		}
	}
	if data, err := msgpack.Marshal(snapshot); err == nil {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
			return
		}
	}

	h.broadcaster.Subscribe(runID, conn)
	defer h.broadcaster.Unsubscribe(runID, conn)

	// Read pump: we never expect client frames, but reading detects the
	// close handshake and keeps ping/pong processing alive.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func snapshotEventType(status models.TuningStatus) string {
	switch status {
	case models.TuningStatusCompleted:
		return ports.TuningEventCompleted
	case models.TuningStatusFailed:
		return ports.TuningEventFailed
	case models.TuningStatusRunning:
		return ports.TuningEventIteration
	default:
		return ports.TuningEventStarted
	}
}
