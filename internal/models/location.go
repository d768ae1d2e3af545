package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Location is a named or anonymous point the collector polls.
// State and Country are optional; when Name is empty the reading's
// address is resolved through reverse geocoding.
type Location struct {
	Name      string  `json:"name,omitempty"`
	State     string  `json:"state,omitempty"`
	Country   string  `json:"country,omitempty"`
	Latitude  float64 `json:"latitude"  validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// Validate checks the coordinate ranges.
func (l Location) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("invalid location %s: %w", l.Label(), err)
	}
	return nil
}

// Label is used in logs: the name if there is one, otherwise the coordinates.
func (l Location) Label() string {
	if l.Name != "" {
		return l.Name
	}
	return fmt.Sprintf("%.5f,%.5f", l.Latitude, l.Longitude)
}

// Address is the result of a reverse geocoding lookup.
type Address struct {
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
}
