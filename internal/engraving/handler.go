package engraving

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xinzuo/storefront-services/internal/storefront"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

// Messages shown when the cart API fails; the control is re-enabled so the
// customer can retry.
const (
	MsgApplyFailed = "Sorry, there was an error adding engraving. Please try again."
	MsgAddFailed   = "Sorry, there was an error adding this item to your cart. Please try again."
)

// CartCookie is the storefront's cart token cookie, forwarded to the cart API.
const CartCookie = "cart"

// Handler exposes the engraving flows over HTTP.
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
	Field string `json:"field,omitempty"`
}

// Apply handles POST /api/v1/cart/engraving.
func (h *Handler) Apply(w http.ResponseWriter, r *http.Request) {
	var req LineItemRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.Apply(withCartToken(r), req)
	if err != nil {
		h.writeError(w, err, MsgApplyFailed)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Add handles POST /api/v1/cart/add.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	var req ProductAddRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.service.AddToCart(withCartToken(r), req)
	if err != nil {
		h.writeError(w, err, MsgAddFailed)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Reconcile handles POST /api/v1/cart/engraving/reconcile.
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ReconcileFees(withCartToken(r))
	if err != nil {
		// Reconciliation is a safety net; the page keeps working without it.
		h.logger.Warn("engraving fee reconcile failed", "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "cart unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, cartMsg string) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
		return
	}
	h.logger.Error("cart flow failed", "error", err)
	writeJSON(w, http.StatusBadGateway, errorResponse{Error: cartMsg})
}

func withCartToken(r *http.Request) context.Context {
	ctx := r.Context()
	if c, err := r.Cookie(CartCookie); err == nil && c.Value != "" {
		ctx = storefront.WithCartToken(ctx, c.Value)
	}
	return ctx
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
