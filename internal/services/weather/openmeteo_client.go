package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

const (
	currentFields = "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code"
	hourlyFields  = "precipitation_probability"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type geocoder interface {
	Reverse(ctx context.Context, latitude, longitude float64) (models.Address, error)
}

type currentBlock struct {
	Temperature *float64 `json:"temperature_2m"       validate:"required"`
	Humidity    *float64 `json:"relative_humidity_2m"`
	WindSpeed   *float64 `json:"wind_speed_10m"`
	WeatherCode *int     `json:"weather_code"`
}

type hourlyBlock struct {
	PrecipitationProbability []float64 `json:"precipitation_probability"`
}

type apiResponse struct {
	Current *currentBlock `json:"current" validate:"required"`
	Hourly  hourlyBlock   `json:"hourly"`
}

// OpenMeteoConfig holds the request parameters of the forecast endpoint.
type OpenMeteoConfig struct {
	APIURL   string
	Timezone string
	Timeout  time.Duration
}

// ClientOpenMeteo fetches current conditions from Open-Meteo and normalizes
// them into a Reading.
type ClientOpenMeteo struct {
	cfg      OpenMeteoConfig
	client   HTTPClient
	geocoder geocoder
	validate *validator.Validate
	now      func() time.Time
	logger   zerolog.Logger
}

// NewClientOpenMeteo constructs a new Open-Meteo client. geo is only consulted
// for locations without a name.
func NewClientOpenMeteo(
	cfg OpenMeteoConfig,
	httpClient HTTPClient,
	geo geocoder,
	logger zerolog.Logger,
) *ClientOpenMeteo {
	return &ClientOpenMeteo{
		cfg:      cfg,
		client:   httpClient,
		geocoder: geo,
		validate: validator.New(),
		now:      time.Now,
		logger:   logger.With().Str("component", "ClientOpenMeteo").Logger(),
	}
}

// SetClock replaces the clock used for reading timestamps.
func (c *ClientOpenMeteo) SetClock(now func() time.Time) {
	c.now = now
}

// Fetch retrieves and normalizes the current weather for loc. All failures
// are *FetchError; there is no retry.
func (c *ClientOpenMeteo) Fetch(ctx context.Context, loc models.Location) (models.Reading, error) {
	start := time.Now()

	raw, err := c.request(ctx, loc)
	if err != nil {
		return models.Reading{}, err
	}

	reading := c.normalize(ctx, loc, raw)

	c.logger.Info().
		Str("location", loc.Label()).
		Float64("temperature", reading.Measurements.Temperature).
		Dur("duration", time.Since(start)).
		Msg("successfully fetched weather data")

	return reading, nil
}

func (c *ClientOpenMeteo) request(ctx context.Context, loc models.Location) (apiResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	reqURL := c.buildURL(loc)

	c.logger.Debug().
		Str("location", loc.Label()).
		Str("url", reqURL).
		Msg("starting Open-Meteo request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return apiResponse{}, &FetchError{Location: loc, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("location", loc.Label()).
			Msg("error sending HTTP request to Open-Meteo")
		return apiResponse{}, &FetchError{Location: loc, Err: err}
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error().Err(cerr).Str("location", loc.Label()).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		c.logger.Error().
			Str("location", loc.Label()).
			Str("status", resp.Status).
			Msg("Open-Meteo returned non-2xx status")
		return apiResponse{}, &FetchError{
			Location:   loc,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("open-meteo error: status %s", resp.Status),
		}
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		c.logger.Error().Err(err).Str("location", loc.Label()).Msg("failed to decode Open-Meteo response")
		return apiResponse{}, &FetchError{Location: loc, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode: %w", err)}
	}

	if err := c.validate.Struct(raw); err != nil {
		c.logger.Error().Err(err).Str("location", loc.Label()).Msg("Open-Meteo response failed validation")
		return apiResponse{}, &FetchError{Location: loc, StatusCode: resp.StatusCode, Err: fmt.Errorf("validate: %w", err)}
	}

	return raw, nil
}

func (c *ClientOpenMeteo) buildURL(loc models.Location) string {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	values.Set("current", currentFields)
	values.Set("hourly", hourlyFields)
	if c.cfg.Timezone != "" {
		values.Set("timezone", c.cfg.Timezone)
	}
	return c.cfg.APIURL + "?" + values.Encode()
}

func (c *ClientOpenMeteo) normalize(ctx context.Context, loc models.Location, raw apiResponse) models.Reading {
	code := valueOr(raw.Current.WeatherCode, 0)

	// next-hour probability
	var precipitation float64
	if len(raw.Hourly.PrecipitationProbability) > 0 {
		precipitation = raw.Hourly.PrecipitationProbability[0]
	}

	addr := c.resolveAddress(ctx, loc)

	return models.Reading{
		Timestamp: c.now().UTC().Format(time.RFC3339),
		Location: models.ReadingLocation{
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			City:      orUnknown(addr.City),
			State:     orUnknown(addr.State),
			Country:   orUnknown(addr.Country),
		},
		Measurements: models.Measurements{
			Temperature:              *raw.Current.Temperature,
			Humidity:                 valueOr(raw.Current.Humidity, 0),
			WindSpeed:                valueOr(raw.Current.WindSpeed, 0),
			WeatherCode:              code,
			WeatherCondition:         Condition(code),
			PrecipitationProbability: precipitation,
		},
		Source:        models.ReadingSource,
		SchemaVersion: models.SchemaVersion,
	}
}

// resolveAddress never fails: a geocoding error leaves the fields empty and
// they are reported as Unknown.
func (c *ClientOpenMeteo) resolveAddress(ctx context.Context, loc models.Location) models.Address {
	if loc.Name != "" || c.geocoder == nil {
		return models.Address{City: loc.Name, State: loc.State, Country: loc.Country}
	}

	addr, err := c.geocoder.Reverse(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("location", loc.Label()).
			Msg("reverse geocoding failed, address set to Unknown")
		return models.Address{}
	}
	return addr
}

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}

func orUnknown(s string) string {
	if s == "" {
		return models.Unknown
	}
	return s
}
