package estimate

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xinzuo/storefront-services/internal/delivery/calendar"
)

// FormatRemaining renders minutes as "2hrs 15min", "3hrs" or "45min".
func FormatRemaining(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	hours, mins := minutes/60, minutes%60
	switch {
	case hours > 0 && mins > 0:
		return fmt.Sprintf("%dhrs %dmin", hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dhrs", hours)
	default:
		return fmt.Sprintf("%dmin", mins)
	}
}

// FormatDate renders d the way Australian English short dates read, e.g.
// "Wed, 15 Oct".
func FormatDate(d calendar.Date) string {
	return d.Time(time.UTC).Format("Mon, 2 Jan")
}

// Message renders the customer-facing estimate line.
func Message(e Estimate) string {
	postcode := formatPostcode(e.Postcode)
	var window string
	switch {
	case e.IsExpress():
		window = "by " + FormatDate(e.Express.DeliveryDate)
	case e.Standard != nil:
		window = "between " + FormatDate(e.Standard.EarliestDate) + " - " + FormatDate(e.Standard.LatestDate)
	default:
		return ""
	}

	if e.MinutesUntilCutoff != nil {
		return fmt.Sprintf("Order within %s to receive it %s to %s", FormatRemaining(*e.MinutesUntilCutoff), window, postcode)
	}
	return fmt.Sprintf("Get it %s to %s", window, postcode)
}

// formatPostcode pads to four digits so 0200 renders as typed.
func formatPostcode(p int) string {
	s := strconv.Itoa(p)
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}
