// Package storefront is a client for the storefront's AJAX cart API.
package storefront

import (
	"bytes"
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
	"go.opentelemetry.io/otel/codes"

	"github.com/xinzuo/storefront-services/internal/observability/metrics"
	"github.com/xinzuo/storefront-services/pkg/logging"
)

var cartTracer = otel.Tracer("storefront.internal.storefront.cart")

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// StatusError is a non-2xx answer from the cart API.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("storefront: %s: status %d: %s", e.Op, e.Code, e.Body)
}

type cartTokenKey struct{}

// WithCartToken attaches the visitor's cart token so calls act on their cart.
func WithCartToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, cartTokenKey{}, token)
}

// CartToken returns the token set by WithCartToken.
func CartToken(ctx context.Context) string {
	token, _ := ctx.Value(cartTokenKey{}).(string)
	return token
}

// Client calls the cart endpoints under baseURL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
	metrics    *metrics.StorefrontMetrics
}

// NewClient creates a cart client. timeout <= 0 uses 10s.
func NewClient(baseURL string, timeout time.Duration, logger *logging.Logger, m *metrics.StorefrontMetrics) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		metrics:    m,
	}
}

// Add posts one item to /cart/add.js.
func (c *Client) Add(ctx context.Context, item AddItem) error {
	return c.do(ctx, "add", http.MethodPost, "/cart/add.js", item, nil)
}

// Change sets the quantity of the line identified by key. Zero removes it.
func (c *Client) Change(ctx context.Context, key string, quantity int) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, "change", http.MethodPost, "/cart/change.js", changeRequest{ID: key, Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Update sets absolute quantities per variant.
func (c *Client) Update(ctx context.Context, updates map[int64]int) (*Cart, error) {
	body := updateRequest{Updates: make(map[string]int, len(updates))}
	for id, qty := range updates {
		body.Updates[strconv.FormatInt(id, 10)] = qty
	}
	var cart Cart
	if err := c.do(ctx, "update", http.MethodPost, "/cart/update.js", body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Cart fetches the current cart snapshot.
func (c *Client) Cart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, "cart", http.MethodGet, "/cart.js", nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// Sections renders the named theme sections, keyed by section name.
func (c *Client) Sections(ctx context.Context, names ...string) (map[string]string, error) {
	q := url.Values{}
	q.Set("sections", strings.Join(names, ","))
	out := map[string]string{}
	if err := c.do(ctx, "sections", http.MethodGet, "/?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) (err error) {
	ctx, span := cartTracer.Start(ctx, "storefront.cart."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("storefront.cart.op", op),
		attribute.String("http.method", method),
	)

	start := time.Now()
	defer func() {
		c.metrics.ObserveCartRequest(op, err, time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, op+" failed")
		}
	}()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("storefront: marshal %s request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("storefront: create %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := CartToken(ctx); token != "" {
		req.AddCookie(&http.Cookie{Name: "cart", Value: token})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storefront: %s request: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("storefront: read %s response: %w", op, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		c.logger.Warn("storefront cart call failed", "op", op, "status", resp.StatusCode)
		return &StatusError{Op: op, Code: resp.StatusCode, Body: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("storefront: unmarshal %s response: %w", op, err)
	}
	return nil
}
