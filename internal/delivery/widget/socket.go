package widget

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/xinzuo/storefront-services/internal/delivery/locate"
)

// InboundMessage is what the widget sends over the socket.
type InboundMessage struct {
	Type      string  `json:"type"` // "input", "key", "check", "detect", "locate", "ping"
	Text      string  `json:"text,omitempty"`
	Key       string  `json:"key,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
	Error     string  `json:"error,omitempty"`
}

// OutboundMessage is what the server pushes to the widget.
type OutboundMessage struct {
	Type        string       `json:"type"` // "session", "suggestions", "prefill", "estimate", "error", "dismiss", "pong"
	SessionID   string       `json:"session_id,omitempty"`
	Suggestions []suggestion `json:"suggestions,omitempty"`
	Highlight   *int         `json:"highlight,omitempty"`
	Value       string       `json:"value,omitempty"`
	Result      *Result      `json:"result,omitempty"`
	Text        string       `json:"text,omitempty"`
}

// HandleWebSocket upgrades to a WebSocket widget session. The server keeps
// the suggestion list and keyboard highlight for the connection.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

type widgetSession struct {
	h         *Handler
	conn      *websocket.Conn
	sessionID string
	clientIP  string
	nav       *Navigator
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
			sessionID = c.Value
		} else {
			sessionID = uuid.New().String()
		}
	}

	s := &widgetSession{
		h:         h,
		conn:      conn,
		sessionID: sessionID,
		clientIP:  clientIP(r),
		nav:       NewNavigator(),
	}
	s.send(OutboundMessage{Type: "session", SessionID: sessionID})
	h.logger.Debug("delivery widget: connection opened", "session_id", sessionID)

	ctx := r.Context()
	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("delivery widget: connection closed", "session_id", sessionID, "error", err)
			return
		}
		s.handle(ctx, msg)
	}
}

func (s *widgetSession) handle(ctx context.Context, msg InboundMessage) {
	switch msg.Type {
	case "ping":
		s.send(OutboundMessage{Type: "pong"})
	case "input":
		s.nav.SetItems(s.h.service.Suggest(ctx, msg.Text))
		if !s.nav.Open() {
			s.send(OutboundMessage{Type: "dismiss"})
			return
		}
		s.sendSuggestions()
	case "key":
		s.handleKey(ctx, msg)
	case "check":
		s.nav.Dismiss()
		s.check(ctx, msg.Text)
	case "detect":
		res, err := s.h.service.AutoDetect(ctx, s.sessionID, s.clientIP)
		s.sendDetection(res, err)
	case "locate":
		res, err := s.h.service.Locate(ctx, s.sessionID, DeviceLocation{
			Latitude:  msg.Latitude,
			Longitude: msg.Longitude,
			Error:     msg.Error,
		})
		s.sendDetection(res, err)
	default:
		s.send(OutboundMessage{Type: "error", Text: "unknown message type"})
	}
}

func (s *widgetSession) handleKey(ctx context.Context, msg InboundMessage) {
	res := s.nav.HandleKey(msg.Key)
	switch {
	case res.Selected != nil:
		value := FormatSelection(*res.Selected)
		s.send(OutboundMessage{Type: "prefill", Value: value})
		s.check(ctx, value)
	case res.Dismissed:
		s.send(OutboundMessage{Type: "dismiss"})
	case res.Handled:
		s.sendSuggestions()
	case msg.Key == KeyEnter:
		s.check(ctx, msg.Text)
	}
}

func (s *widgetSession) check(ctx context.Context, text string) {
	res, err := s.h.service.Check(ctx, text)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.send(OutboundMessage{Type: "error", Text: verr.Message})
			return
		}
		s.h.logger.Error("delivery widget: check failed", "error", err)
		s.send(OutboundMessage{Type: "error", Text: "Something went wrong. Please try again."})
		return
	}
	s.send(OutboundMessage{Type: "estimate", Result: &res})
}

func (s *widgetSession) sendDetection(res Result, err error) {
	if err != nil {
		s.send(OutboundMessage{Type: "error", Text: locate.FriendlyMessage(err)})
		return
	}
	s.send(OutboundMessage{Type: "prefill", Value: res.Display})
	s.send(OutboundMessage{Type: "estimate", Result: &res})
}

func (s *widgetSession) sendSuggestions() {
	highlight := s.nav.Highlighted()
	s.send(OutboundMessage{
		Type:        "suggestions",
		Suggestions: toSuggestions(s.nav.Items()),
		Highlight:   &highlight,
	})
}

func (s *widgetSession) send(msg OutboundMessage) {
	if err := websocket.JSON.Send(s.conn, msg); err != nil {
		s.h.logger.Debug("delivery widget: send failed", "session_id", s.sessionID, "error", err)
	}
}
