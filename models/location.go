package models

// GeoLocation is the structured location form.
type GeoLocation struct {
	Latitude  float64 `mapstructure:"latitude" json:"latitude"`
	Longitude float64 `mapstructure:"longitude" json:"longitude"`
	Address   string  `mapstructure:"address" json:"address,omitempty"`
}

// ResolveLocation prefers the structured form and falls back to the flat
// latitude/longitude pair. Records written before and after the schema
// change are read the same way.
func ResolveLocation(structured *GeoLocation, lat, lng *float64) (GeoLocation, bool) {
	if structured != nil && (structured.Latitude != 0 || structured.Longitude != 0) {
		return *structured, true
	}
	if lat != nil && lng != nil {
		return GeoLocation{Latitude: *lat, Longitude: *lng}, true
	}
	return GeoLocation{}, false
}
