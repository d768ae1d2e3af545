package httplog_test

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Nazarious-ucu/weather-collector/internal/services/httplog"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestRoundTripper_LogsAndPreservesBody(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rt := httplog.NewRoundTripper(zap.New(core))
	rt.Proxy = roundTripFunc(func(_ *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"current":{}}`)),
		}, nil
	})

	req, err := http.NewRequest(http.MethodGet, "https://api.open-meteo.com/v1/forecast?latitude=1", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"current":{}}`, string(body))

	entries := logs.FilterMessage("HTTP request completed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "api.open-meteo.com", fields["host"])
	assert.EqualValues(t, 200, fields["status_code"])
	assert.EqualValues(t, 14, fields["body_bytes"])
}

func TestRoundTripper_TransportError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rt := httplog.NewRoundTripper(zap.New(core))
	rt.Proxy = roundTripFunc(func(_ *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	})

	req, err := http.NewRequest(http.MethodGet, "https://nominatim.openstreetmap.org/reverse", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	assert.Nil(t, resp)
	assert.EqualError(t, err, "connection refused")
	assert.Equal(t, 1, logs.FilterMessage("HTTP request failed").Len())
}
