package handlers

import (
	"log"
	"net/http"
	"time"

	"trip-planner/internal/api/dto"
	"trip-planner/internal/domain"
	"trip-planner/internal/progress"

	"github.com/gorilla/websocket"
)

// ProgressSource is the read side of a running plan.
type ProgressSource interface {
	Snapshot() progress.Snapshot
	Subscribe() chan domain.ProgressEvent
	Unsubscribe(ch chan domain.ProgressEvent)
	Plan() (*domain.Plan, bool)
}

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 20 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

type ProgressHandler struct {
	Source ProgressSource
}

// Get returns the latest progress snapshot.
func (h *ProgressHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, r, http.StatusOK, toProgressResponse(h.Source.Snapshot()))
}

// Stream upgrades to a websocket and pushes every progress event as JSON
// until the client goes away or the run finishes.
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("progress stream upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	events := h.Source.Subscribe()
	defer h.Source.Unsubscribe(events)

	// Read loop only services control frames and notices disconnects.
	closed := make(chan struct{})
	conn.SetReadLimit(1 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(wsPongWait)) })
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	write := func(v any) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(v)
	}

	if err := write(toProgressResponse(h.Source.Snapshot())); err != nil {
		return
	}

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := write(e); err != nil {
				return
			}
			if e.Kind == domain.ProgressDone {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "plan done"),
					time.Now().Add(wsWriteWait))
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

func toProgressResponse(s progress.Snapshot) dto.ProgressResponse {
	return dto.ProgressResponse{
		Round:           s.Round,
		RoundPercent:    s.RoundPercent,
		CommittedPoints: s.CommittedPoints,
		TotalPoints:     s.TotalPoints,
		Trips:           s.Trips,
		TotalDistanceKm: s.TotalDistance,
		Requeued:        s.Requeued,
		Done:            s.Done,
		UpdatedAt:       s.UpdatedAt,
	}
}
