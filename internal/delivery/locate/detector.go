package locate

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/xinzuo/storefront-services/internal/delivery/zone"
	"github.com/xinzuo/storefront-services/internal/observability/metrics"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

// Detection sources.
const (
	SourceCache  = "cache"
	SourceIP     = "ip"
	SourceDevice = "device"
)

// PostcodeLookup resolves a client IP to a postcode.
type PostcodeLookup interface {
	Lookup(ctx context.Context, clientIP string) (string, error)
}

// CoordinateLookup resolves coordinates to a postcode.
type CoordinateLookup interface {
	Lookup(ctx context.Context, lat, lon float64) (string, error)
}

// Detector runs the session-cached detection flows.
type Detector struct {
	ip       PostcodeLookup
	geo      CoordinateLookup
	sessions SessionStore
	logger   *logging.Logger
	metrics  *metrics.StorefrontMetrics
	now      func() time.Time
}

// NewDetector wires the providers to a session store. A nil store falls
// back to an in-memory store with no expiry.
func NewDetector(ip PostcodeLookup, geo CoordinateLookup, sessions SessionStore, logger *logging.Logger, m *metrics.StorefrontMetrics) *Detector {
	if sessions == nil {
		sessions = NewMemorySessionStore(0)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Detector{
		ip:       ip,
		geo:      geo,
		sessions: sessions,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// Cached returns the session's last detection without any network call.
func (d *Detector) Cached(ctx context.Context, sessionID string) (Detection, bool) {
	if sessionID == "" {
		return Detection{}, false
	}
	det, err := d.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			d.logger.Warn("detection cache read failed", "session_id", sessionID, "error", err)
		}
		return Detection{}, false
	}
	if !usablePostcode(det.Postcode) {
		return Detection{}, false
	}
	return det, true
}

// DetectByIP returns the cached detection for the session, or asks the IP
// provider and caches a successful answer.
func (d *Detector) DetectByIP(ctx context.Context, sessionID, clientIP string) (Detection, error) {
	if det, ok := d.Cached(ctx, sessionID); ok {
		d.metrics.ObserveGeolocation(SourceCache, nil)
		det.Source = SourceCache
		return det, nil
	}
	if d.ip == nil {
		return Detection{}, ErrUnavailable
	}

	postcode, err := d.ip.Lookup(ctx, clientIP)
	if err == nil && !usablePostcode(postcode) {
		err = ErrNoPostcode
	}
	d.metrics.ObserveGeolocation(SourceIP, err)
	if err != nil {
		d.logger.Debug("ip postcode detection unavailable", "error", err)
		return Detection{}, err
	}
	return d.remember(ctx, sessionID, postcode, SourceIP), nil
}

// DetectByCoordinates reverse-geocodes device coordinates and caches the
// result, replacing any earlier detection for the session.
func (d *Detector) DetectByCoordinates(ctx context.Context, sessionID string, lat, lon float64) (Detection, error) {
	if d.geo == nil {
		return Detection{}, ErrUnavailable
	}
	postcode, err := d.geo.Lookup(ctx, lat, lon)
	if err == nil && !usablePostcode(postcode) {
		err = ErrNoPostcode
	}
	d.metrics.ObserveGeolocation(SourceDevice, err)
	if err != nil {
		d.logger.Debug("device postcode detection failed", "error", err)
		return Detection{}, err
	}
	return d.remember(ctx, sessionID, postcode, SourceDevice), nil
}

// Remember stores a detection for the session, e.g. after a locality was
// resolved for it.
func (d *Detector) Remember(ctx context.Context, sessionID string, det Detection) {
	if sessionID == "" {
		return
	}
	if err := d.sessions.Set(ctx, sessionID, det); err != nil {
		d.logger.Warn("detection cache write failed", "session_id", sessionID, "error", err)
	}
}

func (d *Detector) remember(ctx context.Context, sessionID, postcode, source string) Detection {
	det := Detection{Postcode: postcode, Source: source, DetectedAt: d.now().UTC()}
	d.Remember(ctx, sessionID, det)
	return det
}

// usablePostcode reports whether a provider answer can be estimated: four
// digits within the Australian postcode range. Anything else is never cached.
func usablePostcode(code string) bool {
	if !isFourDigits(code) {
		return false
	}
	n, _ := strconv.Atoi(code)
	return zone.ValidPostcode(n)
}
