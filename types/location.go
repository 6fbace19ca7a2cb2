package types

import "time"

type PricingLocation string

const (
	LocationLDN PricingLocation = "LDN"
	LocationNYC PricingLocation = "NYC"
	LocationHKG PricingLocation = "HKG"
	LocationTKO PricingLocation = "TKO"
)

// DefaultLocation is used whenever no context on the stack supplies one.
const DefaultLocation = LocationLDN

var locationToTimezone = map[PricingLocation]string{
	LocationLDN: "Europe/London",
	LocationNYC: "America/New_York",
	LocationHKG: "Asia/Hong_Kong",
	LocationTKO: "Asia/Tokyo",
}

// Timezone returns the IANA timezone for the location, falling back to UTC
// for locations we do not know about.
func (l PricingLocation) Timezone() *time.Location {
	name, ok := locationToTimezone[l]
	if !ok {
		return time.UTC
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return tz
}

func (l PricingLocation) IsValid() bool {
	_, ok := locationToTimezone[l]
	return ok
}
