package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/xinzuo/storefront-services/internal/countdown"
	"github.com/xinzuo/storefront-services/internal/delivery/postcode"
	"github.com/xinzuo/storefront-services/internal/delivery/widget"
	"github.com/xinzuo/storefront-services/internal/engraving"
	httpmiddleware "github.com/xinzuo/storefront-services/internal/http/middleware"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	DeliveryHandler    *widget.Handler
	CountdownHandler   *countdown.Handler
	EngravingHandler   *engraving.Handler
	Directory          *postcode.Directory
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck(cfg.Directory))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Compress(5))
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}

		if h := cfg.DeliveryHandler; h != nil {
			api.Route("/delivery", func(r chi.Router) {
				r.Get("/estimate", h.Estimate)
				r.Get("/postcodes", h.Postcodes)
				r.Post("/detect", h.Detect)
				r.Post("/locate", h.Locate)
			})
		}
		if h := cfg.CountdownHandler; h != nil {
			api.Get("/countdown", h.Snapshot)
		}
		if h := cfg.EngravingHandler; h != nil {
			api.Route("/cart", func(r chi.Router) {
				r.Post("/add", h.Add)
				r.Post("/engraving", h.Apply)
				r.Post("/engraving/reconcile", h.Reconcile)
			})
		}
	})

	// Long-lived sockets stay outside compression and rate limiting.
	r.Route("/ws", func(ws chi.Router) {
		if h := cfg.DeliveryHandler; h != nil {
			ws.Get("/delivery", h.HandleWebSocket)
		}
		if h := cfg.CountdownHandler; h != nil {
			ws.Get("/countdown", h.Stream)
		}
	})

	return r
}

type healthResponse struct {
	Status    string `json:"status"`
	Postcodes int    `json:"postcodes"`
}

// healthCheck reports liveness plus how many postcodes are loaded. An
// unloaded directory is not a failure; it loads on first use.
func healthCheck(dir *postcode.Directory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		if dir != nil {
			resp.Postcodes = dir.Len()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
