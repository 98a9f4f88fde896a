package metrics

import "github.com/prometheus/client_golang/prometheus"

// StorefrontMetrics exposes counters/histograms for delivery and cart flows.
type StorefrontMetrics struct {
	estimatesTotal     *prometheus.CounterVec
	directoryLoads     *prometheus.CounterVec
	directoryLatency   prometheus.Histogram
	geolocationTotal   *prometheus.CounterVec
	cartRequestsTotal  *prometheus.CounterVec
	cartRequestLatency *prometheus.HistogramVec
}

func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	m := &StorefrontMetrics{
		estimatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "delivery",
			Name:      "estimates_total",
			Help:      "Delivery estimates served by kind",
		}, []string{"kind"}),
		directoryLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "delivery",
			Name:      "directory_loads_total",
			Help:      "Postcode directory load attempts",
		}, []string{"status"}),
		directoryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "delivery",
			Name:      "directory_load_seconds",
			Help:      "Latency of postcode directory loads",
			Buckets:   prometheus.DefBuckets,
		}),
		geolocationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "delivery",
			Name:      "geolocation_total",
			Help:      "Postcode detection attempts by source",
		}, []string{"source", "status"}),
		cartRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Subsystem: "cart",
			Name:      "requests_total",
			Help:      "Calls to the storefront cart API",
		}, []string{"op", "status"}),
		cartRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Subsystem: "cart",
			Name:      "request_seconds",
			Help:      "Latency of storefront cart API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.estimatesTotal, m.directoryLoads, m.directoryLatency,
		m.geolocationTotal, m.cartRequestsTotal, m.cartRequestLatency)
	return m
}

func (m *StorefrontMetrics) ObserveEstimate(kind string) {
	if m == nil {
		return
	}
	m.estimatesTotal.WithLabelValues(kind).Inc()
}

func (m *StorefrontMetrics) ObserveDirectoryLoad(err error, seconds float64) {
	if m == nil {
		return
	}
	m.directoryLoads.WithLabelValues(statusLabel(err)).Inc()
	m.directoryLatency.Observe(seconds)
}

// ObserveGeolocation records a detection attempt. source is "cache", "ip" or
// "device".
func (m *StorefrontMetrics) ObserveGeolocation(source string, err error) {
	if m == nil {
		return
	}
	m.geolocationTotal.WithLabelValues(source, statusLabel(err)).Inc()
}

func (m *StorefrontMetrics) ObserveCartRequest(op string, err error, seconds float64) {
	if m == nil {
		return
	}
	m.cartRequestsTotal.WithLabelValues(op, statusLabel(err)).Inc()
	m.cartRequestLatency.WithLabelValues(op).Observe(seconds)
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
