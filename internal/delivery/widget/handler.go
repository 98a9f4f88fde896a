package widget

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/xinzuo/storefront-services/internal/delivery/locate"
	"github.com/xinzuo/storefront-services/internal/delivery/postcode"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

// SessionHeader and SessionCookie carry the browsing session used to cache
// detections.
const (
	SessionHeader = "X-Session-Id"
	SessionCookie = "delivery_session"
)

// Handler exposes the widget service over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type errorResponse struct {
	Error string `json:"error"`
}

type suggestionsResponse struct {
	Query       string       `json:"query"`
	Suggestions []suggestion `json:"suggestions"`
}

type suggestion struct {
	postcode.Entry
	Label string `json:"label"`
}

func toSuggestions(entries []postcode.Entry) []suggestion {
	out := make([]suggestion, 0, len(entries))
	for _, e := range entries {
		out = append(out, suggestion{Entry: e, Label: FormatSelection(e)})
	}
	return out
}

// Estimate handles GET /api/v1/delivery/estimate?q=.
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.Check(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.writeCheckError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Postcodes handles GET /api/v1/delivery/postcodes?q=&limit=.
func (h *Handler) Postcodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries := h.service.SuggestN(r.Context(), q, limit)
	writeJSON(w, http.StatusOK, suggestionsResponse{Query: q, Suggestions: toSuggestions(entries)})
}

// Detect handles POST /api/v1/delivery/detect.
func (h *Handler) Detect(w http.ResponseWriter, r *http.Request) {
	sessionID := h.session(w, r)
	res, err := h.service.AutoDetect(r.Context(), sessionID, clientIP(r))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: locate.FriendlyMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Locate handles POST /api/v1/delivery/locate.
func (h *Handler) Locate(w http.ResponseWriter, r *http.Request) {
	var req DeviceLocation
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	sessionID := h.session(w, r)
	res, err := h.service.Locate(r.Context(), sessionID, req)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: locate.FriendlyMessage(err)})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeCheckError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message})
		return
	}
	h.logger.Error("delivery estimate failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}

// session returns the caller's session ID, issuing a cookie for new visitors.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if id := r.Header.Get(SessionHeader); id != "" {
		return id
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.Header().Set(SessionHeader, id)
	return id
}

// clientIP strips the port from RemoteAddr, which the RealIP middleware has
// already rewritten from forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
