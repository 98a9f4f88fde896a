// Package engraving runs the cart flows that attach engraving text to a knife
// line and keep the matching engraving fee lines in step.
package engraving

import (
	"strings"
	"unicode/utf8"

	"github.com/xinzuo/storefront-services/internal/storefront"
)

// MaxTextLength is the longest engraving line the workshop accepts.
const MaxTextLength = 20

// Line property names read by the storefront theme and the workshop.
const (
	PropText          = "Engraving Text"
	PropText2         = "Engraving Text2"
	PropKnifeQuantity = "Knife Quantity"
)

// ValidationError reports a bad engraving selection.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "engraving: " + e.Field + ": " + e.Message
}

// Selection is the engraving chosen for a line. Lines is 1 or 2.
type Selection struct {
	Lines int    `json:"lines"`
	Text1 string `json:"text1"`
	Text2 string `json:"text2,omitempty"`
}

// Normalize trims both texts and drops the second line when one line is
// chosen.
func (s Selection) Normalize() Selection {
	s.Text1 = strings.TrimSpace(s.Text1)
	s.Text2 = strings.TrimSpace(s.Text2)
	if s.Lines != 2 {
		s.Lines = 1
		s.Text2 = ""
	}
	return s
}

// Validate checks a normalized selection.
func (s Selection) Validate() error {
	if s.Text1 == "" {
		return &ValidationError{Field: "text1", Message: "engraving text is required"}
	}
	if utf8.RuneCountInString(s.Text1) > MaxTextLength {
		return &ValidationError{Field: "text1", Message: "engraving text must be 20 characters or fewer"}
	}
	if s.Lines == 2 {
		if s.Text2 == "" {
			return &ValidationError{Field: "text2", Message: "second line text is required"}
		}
		if utf8.RuneCountInString(s.Text2) > MaxTextLength {
			return &ValidationError{Field: "text2", Message: "second line must be 20 characters or fewer"}
		}
	}
	return nil
}

// TwoLines reports whether the selection carries a second line.
func (s Selection) TwoLines() bool {
	return s.Lines == 2 && s.Text2 != ""
}

// Properties returns the line properties for this selection with the given
// knife count.
func (s Selection) Properties(knives int) storefront.Properties {
	props := storefront.Properties{
		PropText:          s.Text1,
		PropKnifeQuantity: knives,
	}
	if s.TwoLines() {
		props[PropText2] = s.Text2
	}
	return props
}

// FeeVariants are the product variants charged per engraved knife.
type FeeVariants struct {
	OneLine  int64
	TwoLines int64
}

// DefaultFeeVariants are the live storefront's fee products.
var DefaultFeeVariants = FeeVariants{OneLine: 43781283217459, TwoLines: 43781283250227}

// For returns the fee variant matching s.
func (f FeeVariants) For(s Selection) int64 {
	if s.TwoLines() {
		return f.TwoLines
	}
	return f.OneLine
}
