// Package widget is the server side of the delivery-estimate widget: input
// parsing, suggestion navigation and the HTTP/WebSocket surface the theme
// calls.
package widget

import (
	"strconv"
	"strings"

	"github.com/xinzuo/storefront-services/internal/delivery/postcode"
	"github.com/xinzuo/storefront-services/internal/delivery/zone"
)

// Validation messages shown inline beside the input.
const (
	MsgEmpty         = "Please enter a postcode"
	MsgNotFourDigits = "Please enter a valid 4-digit Australian postcode"
	MsgOutOfRange    = "Please enter a valid Australian postcode"
	MsgSelectOrEnter = "Please select a suburb from the dropdown or enter a postcode"
)

// ValidationError is a user-correctable input problem.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Selection is a parsed, validated destination.
type Selection struct {
	Postcode string `json:"postcode"`
	Number   int    `json:"-"`
	Locality string `json:"locality,omitempty"`
}

// Lookup is the subset of the postcode directory input parsing needs.
type Lookup interface {
	FindByPostcode(code string) (postcode.Entry, bool)
	FindByLocality(name string) (postcode.Entry, bool)
}

// ParseInput interprets free text typed into the widget. Rules apply in
// order: "Locality, 4000", then a bare four-digit postcode, then an exact
// locality name. dir may be nil when the directory is unavailable, in which
// case only postcode forms are accepted.
func ParseInput(raw string, dir Lookup) (Selection, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return Selection{}, &ValidationError{Message: MsgEmpty}
	}

	if i := strings.LastIndex(input, ","); i >= 0 {
		sel, err := parsePostcode(strings.TrimSpace(input[i+1:]))
		if err != nil {
			return Selection{}, err
		}
		sel.Locality = strings.TrimSpace(input[:i])
		if sel.Locality == "" && dir != nil {
			if e, ok := dir.FindByPostcode(sel.Postcode); ok {
				sel.Locality = e.Locality
			}
		}
		return sel, nil
	}

	if isDigits(input) {
		sel, err := parsePostcode(input)
		if err != nil {
			return Selection{}, err
		}
		if dir != nil {
			if e, ok := dir.FindByPostcode(sel.Postcode); ok {
				sel.Locality = e.Locality
			}
		}
		return sel, nil
	}

	if dir != nil {
		if e, ok := dir.FindByLocality(input); ok {
			return parseEntry(e)
		}
	}
	return Selection{}, &ValidationError{Message: MsgSelectOrEnter}
}

// FormatSelection renders an entry the way the suggestion list fills the
// input, e.g. "Sydney, 2000".
func FormatSelection(e postcode.Entry) string {
	return e.Locality + ", " + e.Postcode
}

func parseEntry(e postcode.Entry) (Selection, error) {
	sel, err := parsePostcode(e.Postcode)
	if err != nil {
		return Selection{}, err
	}
	sel.Locality = e.Locality
	return sel, nil
}

func parsePostcode(code string) (Selection, error) {
	if !postcode.IsPostcode(code) {
		return Selection{}, &ValidationError{Message: MsgNotFourDigits}
	}
	n, _ := strconv.Atoi(code)
	if !zone.ValidPostcode(n) {
		return Selection{}, &ValidationError{Message: MsgOutOfRange}
	}
	return Selection{Postcode: code, Number: n}, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
