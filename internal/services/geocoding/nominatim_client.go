package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type NominatimConfig struct {
	URL       string
	Language  string
	UserAgent string
	Timeout   time.Duration
}

type nominatimAddress struct {
	City         string `json:"city"`
	Town         string `json:"town"`
	Village      string `json:"village"`
	Municipality string `json:"municipality"`
	State        string `json:"state"`
	Country      string `json:"country"`
}

type nominatimResponse struct {
	Address nominatimAddress `json:"address"`
}

// ClientNominatim resolves coordinates into a city, state and country using
// the Nominatim reverse endpoint.
type ClientNominatim struct {
	cfg      NominatimConfig
	client   HTTPClient
	logger   zerolog.Logger
	onLookup func(err error)
}

func NewClientNominatim(cfg NominatimConfig, httpClient HTTPClient, logger zerolog.Logger) *ClientNominatim {
	return &ClientNominatim{
		cfg:      cfg,
		client:   httpClient,
		logger:   logger.With().Str("component", "ClientNominatim").Logger(),
		onLookup: func(error) {},
	}
}

// OnLookup registers a hook called after every upstream lookup.
func (c *ClientNominatim) OnLookup(fn func(err error)) {
	c.onLookup = fn
}

func (c *ClientNominatim) Reverse(ctx context.Context, latitude, longitude float64) (models.Address, error) {
	addr, err := c.reverse(ctx, latitude, longitude)
	c.onLookup(err)
	return addr, err
}

func (c *ClientNominatim) reverse(ctx context.Context, latitude, longitude float64) (models.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	values.Set("format", "json")
	if c.cfg.Language != "" {
		values.Set("accept-language", c.cfg.Language)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.URL+"?"+values.Encode(), nil)
	if err != nil {
		return models.Address{}, &GeocodeError{Latitude: latitude, Longitude: longitude, Err: err}
	}
	// Nominatim rejects requests without an identifying agent.
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Address{}, &GeocodeError{Latitude: latitude, Longitude: longitude, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error().Err(cerr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return models.Address{}, &GeocodeError{
			Latitude:   latitude,
			Longitude:  longitude,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("nominatim error: status %s", resp.Status),
		}
	}

	var body nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Address{}, &GeocodeError{
			Latitude:   latitude,
			Longitude:  longitude,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("decode: %w", err),
		}
	}

	addr := models.Address{
		City:    firstNonEmpty(body.Address.City, body.Address.Town, body.Address.Village, body.Address.Municipality),
		State:   body.Address.State,
		Country: body.Address.Country,
	}

	c.logger.Debug().
		Float64("lat", latitude).
		Float64("lon", longitude).
		Str("city", addr.City).
		Msg("reverse geocoded coordinates")

	return addr, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
