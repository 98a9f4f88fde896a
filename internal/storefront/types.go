package storefront

import (
	"fmt"
	"strconv"
	"strings"
)

// Properties are the custom key/value pairs attached to a cart line.
// Values arrive from the cart API as strings or numbers.
type Properties map[string]interface{}

// String returns the property as text, or "" when absent.
func (p Properties) String(name string) string {
	v, ok := p[name]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

// Int returns the property as an integer, or def when absent or not numeric.
func (p Properties) Int(name string, def int) int {
	v, ok := p[name]
	if !ok || v == nil {
		return def
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return n
	}
	return def
}

// LineItem is one line of the cart snapshot.
type LineItem struct {
	Key        string     `json:"key"`
	VariantID  int64      `json:"variant_id"`
	Quantity   int        `json:"quantity"`
	Properties Properties `json:"properties"`
}

// Cart is the snapshot returned by /cart.js and the mutation endpoints.
type Cart struct {
	Token     string     `json:"token,omitempty"`
	ItemCount int        `json:"item_count"`
	Items     []LineItem `json:"items"`
}

// AddItem is the body of an add-to-cart call.
type AddItem struct {
	ID         int64      `json:"id"`
	Quantity   int        `json:"quantity"`
	Properties Properties `json:"properties,omitempty"`
}

type changeRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type updateRequest struct {
	Updates map[string]int `json:"updates"`
}
