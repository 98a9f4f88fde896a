package locate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var locateTracer = otel.Tracer("storefront.internal.delivery.locate")

// IPLocator resolves a client IP to a postcode via an ipapi-compatible
// endpoint returning {"country_code": "AU", "postal": "4000"}.
type IPLocator struct {
	baseURL    string
	httpClient *http.Client
}

// NewIPLocator builds a locator. A zero timeout defaults to 3s.
func NewIPLocator(baseURL string, timeout time.Duration) *IPLocator {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &IPLocator{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup returns the Australian postcode for clientIP. An empty clientIP
// asks the provider about the caller's own address.
func (l *IPLocator) Lookup(ctx context.Context, clientIP string) (string, error) {
	ctx, span := locateTracer.Start(ctx, "locate.ip.lookup")
	defer span.End()

	endpoint := l.baseURL + "/json/"
	if clientIP != "" {
		endpoint = l.baseURL + "/" + url.PathEscape(clientIP) + "/json/"
	}

	var payload struct {
		CountryCode string `json:"country_code"`
		Postal      string `json:"postal"`
	}
	if err := getJSON(ctx, l.httpClient, endpoint, &payload); err != nil {
		span.RecordError(err)
		return "", err
	}
	span.SetAttributes(attribute.String("storefront.locate.country", payload.CountryCode))

	postal := strings.TrimSpace(payload.Postal)
	if payload.CountryCode != "AU" || !isFourDigits(postal) {
		return "", ErrNoPostcode
	}
	return postal, nil
}

// ReverseGeocoder resolves coordinates to a postcode via an endpoint that
// accepts latitude/longitude query parameters and returns {"postcode": "..."}.
type ReverseGeocoder struct {
	baseURL    string
	httpClient *http.Client
}

// NewReverseGeocoder builds a geocoder. A zero timeout defaults to 10s.
func NewReverseGeocoder(baseURL string, timeout time.Duration) *ReverseGeocoder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ReverseGeocoder{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Lookup returns the postcode at the given coordinates.
func (g *ReverseGeocoder) Lookup(ctx context.Context, lat, lon float64) (string, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return "", ErrInvalidCoordinates
	}

	ctx, span := locateTracer.Start(ctx, "locate.reverse_geocode")
	defer span.End()

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("localityLanguage", "en")

	var payload struct {
		Postcode string `json:"postcode"`
	}
	if err := getJSON(ctx, g.httpClient, g.baseURL+"?"+q.Encode(), &payload); err != nil {
		span.RecordError(err)
		return "", err
	}

	postcode := strings.TrimSpace(payload.Postcode)
	if !isFourDigits(postcode) {
		return "", ErrNoPostcode
	}
	return postcode, nil
}

func getJSON(ctx context.Context, client *http.Client, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("locate: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return nil
}

func isFourDigits(s string) bool {
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
