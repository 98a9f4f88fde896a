package estimate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xinzuo/storefront-services/internal/delivery/calendar"
)

func TestFormatRemaining(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{180, "3hrs"},
		{135, "2hrs 15min"},
		{45, "45min"},
		{1, "1min"},
		{0, "0min"},
		{-5, "0min"},
		{61, "1hrs 1min"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatRemaining(tt.minutes), "minutes %d", tt.minutes)
	}
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "Wed, 15 Oct", FormatDate(calendar.NewDate(2025, 10, 15)))
	assert.Equal(t, "Thu, 1 Jan", FormatDate(calendar.NewDate(2026, 1, 1)))
}

func TestMessagePadsShortPostcodes(t *testing.T) {
	mins := 30
	e := Estimate{
		Kind:               KindExpress,
		Postcode:           200,
		MinutesUntilCutoff: &mins,
		Express:            &Express{Zone: "Canberra", DeliveryDate: calendar.NewDate(2025, 10, 15)},
	}
	assert.Equal(t, "Order within 30min to receive it by Wed, 15 Oct to 0200", Message(e))
}

func TestMessageEmptyEstimate(t *testing.T) {
	assert.Empty(t, Message(Estimate{}))
}
