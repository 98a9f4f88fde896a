package bootstrap

import (
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/xinzuo/storefront-services/internal/config"
	"github.com/xinzuo/storefront-services/internal/delivery/calendar"
	"github.com/xinzuo/storefront-services/internal/delivery/estimate"
	"github.com/xinzuo/storefront-services/internal/delivery/locate"
	"github.com/xinzuo/storefront-services/internal/delivery/postcode"
	"github.com/xinzuo/storefront-services/internal/delivery/widget"
	"github.com/xinzuo/storefront-services/internal/observability/metrics"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

// Delivery bundles the delivery-estimate components built from config.
type Delivery struct {
	Calendar  *calendar.Calendar
	Cutoff    calendar.Cutoff
	Directory *postcode.Directory
	Sessions  locate.SessionStore
	Detector  *locate.Detector
	Service   *widget.Service
}

// BuildCalendar loads the home timezone and holiday table.
func BuildCalendar(cfg *appconfig.Config) (*calendar.Calendar, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	loc, err := calendar.LoadLocation(cfg.DeliveryTimezone)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	holidays, err := calendar.LoadHolidays(cfg.HolidaysFile)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return calendar.New(loc, holidays), nil
}

// BuildPostcodeLoader prefers a local dataset file over the remote URL.
// It returns nil when neither is configured; lookups then degrade to
// postcode-only input.
func BuildPostcodeLoader(cfg *appconfig.Config) postcode.Loader {
	if cfg == nil {
		return nil
	}
	if path := strings.TrimSpace(cfg.PostcodeDatasetFile); path != "" {
		return postcode.NewFileLoader(path)
	}
	if url := strings.TrimSpace(cfg.PostcodeDatasetURL); url != "" {
		return postcode.NewHTTPLoader(url, nil)
	}
	return nil
}

// BuildDelivery wires the calendar, directory, detector and widget service.
func BuildDelivery(cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger, m *metrics.StorefrontMetrics) (*Delivery, error) {
	if logger == nil {
		logger = logging.Default()
	}
	cal, err := BuildCalendar(cfg)
	if err != nil {
		return nil, err
	}
	cutoff, err := calendar.ParseCutoff(cfg.CutoffTime)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	loader := BuildPostcodeLoader(cfg)
	if loader == nil {
		logger.Warn("no postcode dataset configured; locality search disabled")
	}
	dir := postcode.NewDirectory(loader,
		postcode.WithLogger(logger.Component("postcode-directory")),
		postcode.WithMetrics(m),
	)

	var ipLookup locate.PostcodeLookup
	if url := strings.TrimSpace(cfg.IPGeolocationURL); url != "" {
		ipLookup = locate.NewIPLocator(url, cfg.IPLookupTimeout)
	}
	var geoLookup locate.CoordinateLookup
	if url := strings.TrimSpace(cfg.ReverseGeocodeURL); url != "" {
		geoLookup = locate.NewReverseGeocoder(url, cfg.DeviceLookupTimeout)
	}
	sessions := BuildSessionStore(redisClient, cfg, logger)
	detector := locate.NewDetector(ipLookup, geoLookup, sessions,
		logger.Component("delivery-locate"), m)

	svc := widget.NewService(dir, estimate.NewEngine(cal), detector, widget.Settings{
		Cutoff:          cutoff,
		ObserveHolidays: cfg.EnableHolidays,
		SuggestionLimit: cfg.SuggestionLimit,
	}, logger.Component("delivery-widget"), m)

	logger.Info("delivery estimates configured",
		"timezone", cal.Location().String(),
		"cutoff", cutoff.String(),
		"holidays", cfg.EnableHolidays,
		"holiday_count", cal.Holidays().Len(),
	)

	return &Delivery{
		Calendar:  cal,
		Cutoff:    cutoff,
		Directory: dir,
		Sessions:  sessions,
		Detector:  detector,
		Service:   svc,
	}, nil
}
