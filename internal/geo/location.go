// Package geo resolves IP addresses to coarse locations, consulting a
// time-bounded cache before any external source.
package geo

// Location is the (country, city) pair attached to request log rows.
type Location struct {
	Country string `json:"country"`
	City    string `json:"city"`
}

// Sentinel locations for addresses that never reach an external source.
var (
	LocationLocal   = Location{Country: "Local", City: "Local"}
	LocationPrivate = Location{Country: "Private", City: "Private"}
	LocationUnknown = Location{Country: "Unknown", City: "Unknown"}
)
