package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinzuo/storefront-services/internal/observability/metrics"
)

func TestAddSendsItemWithPropertiesAndCartCookie(t *testing.T) {
	var got map[string]any
	var cookie string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/add.js", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		if c, err := r.Cookie("cart"); err == nil {
			cookie = c.Value
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL+"/", 0, nil, nil)
	ctx := WithCartToken(context.Background(), "tok-123")
	err := c.Add(ctx, AddItem{ID: 111, Quantity: 2, Properties: Properties{"Engraving Text": "ANNA", "Knife Quantity": 1}})
	require.NoError(t, err)

	assert.Equal(t, "tok-123", cookie)
	assert.Equal(t, float64(111), got["id"])
	assert.Equal(t, float64(2), got["quantity"])
	props := got["properties"].(map[string]any)
	assert.Equal(t, "ANNA", props["Engraving Text"])
	assert.Equal(t, float64(1), props["Knife Quantity"])
}

func TestChangeUpdateAndCart(t *testing.T) {
	var paths []string
	var update map[string]map[string]int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/cart/change.js":
			var body changeRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "111:abc", body.ID)
			assert.Equal(t, 0, body.Quantity)
			_, _ = w.Write([]byte(`{"item_count": 0, "items": []}`))
		case "/cart/update.js":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
			_, _ = w.Write([]byte(`{"item_count": 1, "items": [{"key": "k", "variant_id": 43781283217459, "quantity": 1}]}`))
		case "/cart.js":
			_, _ = w.Write([]byte(`{"token": "tok", "item_count": 3, "items": [
				{"key": "a", "variant_id": 111, "quantity": 2, "properties": {"Engraving Text": "ANNA", "Knife Quantity": "2"}},
				{"key": "b", "variant_id": 43781283217459, "quantity": 1, "properties": null}
			]}`))
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL, 0, nil, nil)
	ctx := context.Background()

	cart, err := c.Change(ctx, "111:abc", 0)
	require.NoError(t, err)
	assert.Equal(t, 0, cart.ItemCount)

	cart, err = c.Update(ctx, map[int64]int{43781283217459: 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]map[string]int{"updates": {"43781283217459": 1}}, update)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(43781283217459), cart.Items[0].VariantID)
	assert.Equal(t, 1, cart.Items[0].Quantity)

	cart, err = c.Cart(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, cart.ItemCount)
	require.Len(t, cart.Items, 2)
	assert.Equal(t, "ANNA", cart.Items[0].Properties.String("Engraving Text"))
	assert.Equal(t, 2, cart.Items[0].Properties.Int("Knife Quantity", 1))
	assert.Equal(t, 1, cart.Items[1].Properties.Int("Knife Quantity", 1))

	assert.Equal(t, []string{"POST /cart/change.js", "POST /cart/update.js", "GET /cart.js"}, paths)
}

func TestSections(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "cart-drawer,cart-icon-bubble", r.URL.Query().Get("sections"))
		_, _ = w.Write([]byte(`{"cart-drawer": "<div>drawer</div>", "cart-icon-bubble": "<span>3</span>"}`))
	}))
	defer ts.Close()

	sections, err := NewClient(ts.URL, 0, nil, nil).Sections(context.Background(), "cart-drawer", "cart-icon-bubble")
	require.NoError(t, err)
	assert.Equal(t, "<span>3</span>", sections["cart-icon-bubble"])
}

func TestStatusErrorTruncatesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(strings.Repeat("x", 500)))
	}))
	defer ts.Close()

	reg := prometheus.NewRegistry()
	c := NewClient(ts.URL, 0, nil, metrics.NewStorefrontMetrics(reg))
	err := c.Add(context.Background(), AddItem{ID: 1, Quantity: 1})

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, "add", statusErr.Op)
	assert.Equal(t, http.StatusUnprocessableEntity, statusErr.Code)
	assert.Len(t, statusErr.Body, 300)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() == "storefront_cart_requests_total" {
			found = true
			assert.Equal(t, "error", f.GetMetric()[0].GetLabel()[1].GetValue())
		}
	}
	assert.True(t, found)
}

func TestUnreachableStorefront(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := NewClient(url, 0, nil, nil).Cart(context.Background())
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

func TestCartTokenAbsent(t *testing.T) {
	assert.Empty(t, CartToken(context.Background()))
}
