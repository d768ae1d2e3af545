package weather

import (
	"fmt"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

// FetchError is returned for any failed weather fetch: transport errors,
// timeouts, non-2xx answers and bodies that do not match the schema.
type FetchError struct {
	Location   models.Location
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch weather for %s: status %d: %v", e.Location.Label(), e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch weather for %s: %v", e.Location.Label(), e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
