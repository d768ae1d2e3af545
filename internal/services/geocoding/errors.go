package geocoding

import "fmt"

// GeocodeError reports a failed reverse lookup for a coordinate pair.
type GeocodeError struct {
	Latitude   float64
	Longitude  float64
	StatusCode int
	Err        error
}

func (e *GeocodeError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("reverse geocode %.5f,%.5f: status %d: %v", e.Latitude, e.Longitude, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("reverse geocode %.5f,%.5f: %v", e.Latitude, e.Longitude, e.Err)
}

func (e *GeocodeError) Unwrap() error {
	return e.Err
}
