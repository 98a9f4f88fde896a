package countdown

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xinzuo/storefront-services/pkg/logging"
)

const writeWait = 5 * time.Second

// Handler serves countdown snapshots over HTTP and a ticking WebSocket.
type Handler struct {
	countdown *Countdown
	logger    *logging.Logger
	upgrader  websocket.Upgrader
	interval  time.Duration
	now       func() time.Time
}

// NewHandler creates a handler. allowOrigin decides which browser origins may
// open the stream; nil allows all.
func NewHandler(c *Countdown, allowOrigin func(origin string) bool, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		countdown: c,
		logger:    logger,
		interval:  time.Second,
		now:       time.Now,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  256,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowOrigin == nil {
				return true
			}
			return allowOrigin(origin)
		},
	}
	return h
}

// Snapshot handles GET /api/v1/countdown.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(h.countdown.Snapshot(h.now()))
}

// Stream handles GET /ws/countdown, pushing a snapshot every tick until the
// client disconnects.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("countdown: upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// The client never sends anything meaningful; reading surfaces the close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.countdown.Snapshot(h.now())); err != nil {
			h.logger.Debug("countdown: write failed", "error", err)
			return
		}
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
