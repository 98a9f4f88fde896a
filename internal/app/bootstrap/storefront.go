package bootstrap

import (
	appconfig "github.com/xinzuo/storefront-services/internal/config"
	"github.com/xinzuo/storefront-services/internal/engraving"
	"github.com/xinzuo/storefront-services/internal/observability/metrics"
	"github.com/xinzuo/storefront-services/internal/storefront"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

// BuildEngraving returns the engraving cart service, or nil when no
// storefront base URL is configured.
func BuildEngraving(cfg *appconfig.Config, logger *logging.Logger, m *metrics.StorefrontMetrics) *engraving.Service {
	if cfg == nil || cfg.StorefrontBaseURL == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	client := storefront.NewClient(cfg.StorefrontBaseURL, cfg.StorefrontTimeout, logger.Component("storefront-client"), m)
	fees := engraving.FeeVariants{
		OneLine:  cfg.EngravingFeeOneLine,
		TwoLines: cfg.EngravingFeeTwoLines,
	}
	return engraving.NewService(client, fees, logger.Component("engraving"))
}
