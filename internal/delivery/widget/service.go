package widget

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/xinzuo/storefront-services/internal/delivery/calendar"
	"github.com/xinzuo/storefront-services/internal/delivery/estimate"
	"github.com/xinzuo/storefront-services/internal/delivery/locate"
	"github.com/xinzuo/storefront-services/internal/delivery/postcode"
	"github.com/xinzuo/storefront-services/internal/observability/metrics"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

// Settings holds the estimate knobs exposed as configuration.
type Settings struct {
	Cutoff          calendar.Cutoff
	ObserveHolidays bool
	SuggestionLimit int
}

// Result is a rendered estimate for one destination.
type Result struct {
	Selection Selection         `json:"selection"`
	Display   string            `json:"display"`
	Estimate  estimate.Estimate `json:"estimate"`
	Message   string            `json:"message"`
	Detection *locate.Detection `json:"detection,omitempty"`
}

// DeviceLocation is what the browser reports after asking for device
// coordinates. Error carries the browser's failure code when it has no fix.
type DeviceLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Error     string  `json:"error,omitempty"`
}

// Service runs the widget flows against the directory, engine and detector.
type Service struct {
	directory *postcode.Directory
	engine    *estimate.Engine
	detector  *locate.Detector
	settings  Settings
	logger    *logging.Logger
	metrics   *metrics.StorefrontMetrics
	now       func() time.Time
}

// NewService builds a widget service. detector may be nil, which disables
// auto-detection.
func NewService(dir *postcode.Directory, engine *estimate.Engine, detector *locate.Detector, settings Settings, logger *logging.Logger, m *metrics.StorefrontMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if settings.SuggestionLimit <= 0 {
		settings.SuggestionLimit = 10
	}
	return &Service{
		directory: dir,
		engine:    engine,
		detector:  detector,
		settings:  settings,
		logger:    logger,
		metrics:   m,
		now:       time.Now,
	}
}

// Suggest returns autocomplete entries for q. Short queries return nothing
// without touching the directory.
func (s *Service) Suggest(ctx context.Context, q string) []postcode.Entry {
	return s.SuggestN(ctx, q, s.settings.SuggestionLimit)
}

// SuggestN is Suggest with an explicit limit, capped at the configured one.
func (s *Service) SuggestN(ctx context.Context, q string, limit int) []postcode.Entry {
	if utf8.RuneCountInString(strings.TrimSpace(q)) < postcode.MinQueryLength {
		return nil
	}
	if limit <= 0 || limit > s.settings.SuggestionLimit {
		limit = s.settings.SuggestionLimit
	}
	if s.lookup(ctx) == nil {
		return nil
	}
	return s.directory.Search(q, limit)
}

// Check parses raw input and estimates delivery to it.
func (s *Service) Check(ctx context.Context, raw string) (Result, error) {
	sel, err := ParseInput(raw, s.lookup(ctx))
	if err != nil {
		return Result{}, err
	}
	return s.estimate(sel), nil
}

// AutoDetect estimates for the session's detected postcode, using the cached
// detection when there is one.
func (s *Service) AutoDetect(ctx context.Context, sessionID, clientIP string) (Result, error) {
	if s.detector == nil {
		return Result{}, locate.ErrUnavailable
	}
	det, err := s.detector.DetectByIP(ctx, sessionID, clientIP)
	if err != nil {
		return Result{}, err
	}
	return s.fromDetection(ctx, sessionID, det)
}

// Locate estimates for device coordinates and replaces the session's cached
// detection.
func (s *Service) Locate(ctx context.Context, sessionID string, loc DeviceLocation) (Result, error) {
	if s.detector == nil {
		return Result{}, locate.ErrUnavailable
	}
	switch strings.ToLower(strings.TrimSpace(loc.Error)) {
	case "":
	case "permission_denied", "denied":
		return Result{}, locate.ErrPermissionDenied
	default:
		return Result{}, locate.ErrUnavailable
	}
	det, err := s.detector.DetectByCoordinates(ctx, sessionID, loc.Latitude, loc.Longitude)
	if err != nil {
		return Result{}, err
	}
	return s.fromDetection(ctx, sessionID, det)
}

func (s *Service) fromDetection(ctx context.Context, sessionID string, det locate.Detection) (Result, error) {
	res, err := s.Check(ctx, det.Postcode)
	if err != nil {
		// Providers only return four-digit codes, but the range check can
		// still reject them.
		return Result{}, locate.ErrNoPostcode
	}
	if det.Locality == "" && res.Selection.Locality != "" && det.Source != locate.SourceCache {
		det.Locality = res.Selection.Locality
		s.detector.Remember(ctx, sessionID, det)
	}
	res.Detection = &det
	return res, nil
}

func (s *Service) estimate(sel Selection) Result {
	est := s.engine.Estimate(sel.Number, s.now(), s.settings.Cutoff, s.settings.ObserveHolidays)
	s.metrics.ObserveEstimate(string(est.Kind))

	display := sel.Postcode
	if sel.Locality != "" {
		display = FormatSelection(postcode.Entry{Postcode: sel.Postcode, Locality: sel.Locality})
	}
	return Result{
		Selection: sel,
		Display:   display,
		Estimate:  est,
		Message:   estimate.Message(est),
	}
}

// lookup loads the directory on first use. A failed load degrades to
// postcode-only parsing.
func (s *Service) lookup(ctx context.Context) Lookup {
	if s.directory == nil {
		return nil
	}
	if err := s.directory.Ensure(ctx); err != nil {
		s.logger.Warn("postcode directory unavailable", "error", err)
		return nil
	}
	return s.directory
}
