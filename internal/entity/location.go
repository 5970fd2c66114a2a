package entity

import "time"

// Location is a sales location bucket. Every order belongs to exactly one.
type Location string

const (
	LocationCharleston Location = "charleston"
	LocationBoston     Location = "boston"
	LocationOnline     Location = "online"
)

// Locations returns every location bucket.
func Locations() []Location {
	return []Location{LocationCharleston, LocationBoston, LocationOnline}
}

// StoreLocations returns the physical stores, the ones with sales goals.
func StoreLocations() []Location {
	return []Location{LocationCharleston, LocationBoston}
}

// storeOpenings records opening dates for stores that did not exist for the
// whole reporting history. Locations absent from the map are assumed to
// predate any reporting window.
var storeOpenings = map[Location]time.Time{
	LocationBoston: time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
}

// OpenedBy reports whether the location was trading at t. A false result
// means a period ending at t has no valid comparison data for this location.
func (l Location) OpenedBy(t time.Time) bool {
	opened, ok := storeOpenings[l]
	if !ok {
		return true
	}
	return !opened.After(t)
}

func (l Location) String() string {
	return string(l)
}
