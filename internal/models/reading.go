package models

const (
	ReadingSource = "open-meteo"
	SchemaVersion = "1.0"

	// Unknown fills address fields that could not be resolved.
	Unknown = "Unknown"
)

type ReadingLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Country   string  `json:"country"`
}

type Measurements struct {
	Temperature              float64 `json:"temperature"`
	Humidity                 float64 `json:"humidity"`
	WindSpeed                float64 `json:"wind_speed"`
	WeatherCode              int     `json:"weather_code"`
	WeatherCondition         string  `json:"weather_condition"`
	PrecipitationProbability float64 `json:"precipitation_probability"`
}

// Reading is one normalized observation. The JSON keys are the wire
// contract with the downstream worker, which expects "data" and "version".
type Reading struct {
	Timestamp     string          `json:"timestamp"`
	Location      ReadingLocation `json:"location"`
	Measurements  Measurements    `json:"data"`
	Source        string          `json:"source"`
	SchemaVersion string          `json:"version"`
}
