package pricing

import (
	"time"

	"marquee/internal/calendar"
	"marquee/types"
)

// CloseMarket identifies the market snapshot used for a valuation: official
// closing data for a location on a date.
type CloseMarket struct {
	Date     time.Time
	Location types.PricingLocation
}

func NewCloseMarket(date time.Time, location types.PricingLocation) CloseMarket {
	return CloseMarket{Date: calendar.Date(date), Location: location}
}

func (m CloseMarket) IsZero() bool {
	return m.Date.IsZero() && m.Location == ""
}

func (m CloseMarket) Equal(other CloseMarket) bool {
	return m.Date.Equal(other.Date) && m.Location == other.Location
}

// closeMarketDate picks the close date for pricing a given date in a
// location: never later than today there, rolled back to a business day.
func closeMarketDate(location types.PricingLocation, pricingDate time.Time, cal calendar.Calendar, now time.Time) time.Time {
	d := calendar.Date(pricingDate)
	today := calendar.Date(now.In(location.Timezone()))
	if d.After(today) {
		d = today
	}
	return calendar.RollPreceding(d, cal)
}
