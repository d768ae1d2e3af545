package locations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-collector/internal/locations"
	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

func TestRegistry_Single(t *testing.T) {
	loc := models.Location{Latitude: -23.5, Longitude: -46.6}

	r, err := locations.NewSingle(loc)
	require.NoError(t, err)

	assert.False(t, r.MultiLocation())
	assert.Equal(t, []models.Location{loc}, r.List())
}

func TestRegistry_SingleInvalid(t *testing.T) {
	_, err := locations.NewSingle(models.Location{Latitude: -91, Longitude: 0})
	assert.Error(t, err)
}

func TestRegistry_SaoPaulo(t *testing.T) {
	r, err := locations.NewMulti(locations.SaoPaulo())
	require.NoError(t, err)

	assert.True(t, r.MultiLocation())
	assert.Equal(t, 14, r.Len())

	list := r.List()
	require.Len(t, list, 14)
	assert.Equal(t, "São Paulo", list[0].Name)
	for _, loc := range list {
		assert.Equal(t, "São Paulo", loc.State)
		assert.Equal(t, "Brazil", loc.Country)
	}
}

func TestRegistry_ListIsRestartable(t *testing.T) {
	r, err := locations.NewMulti(locations.SaoPaulo())
	require.NoError(t, err)

	first := r.List()
	first[0].Name = "mutated"

	assert.Equal(t, "São Paulo", r.List()[0].Name)
	assert.Equal(t, r.List(), r.List())
}

func TestRegistry_ByCity(t *testing.T) {
	r, err := locations.NewMulti(locations.SaoPaulo())
	require.NoError(t, err)

	loc, ok := r.ByCity("santos")
	require.True(t, ok)
	assert.InDelta(t, -23.9608, loc.Latitude, 1e-9)

	_, ok = r.ByCity("Lviv")
	assert.False(t, ok)
}

func TestRegistry_EmptyMulti(t *testing.T) {
	_, err := locations.NewMulti(nil)
	assert.ErrorIs(t, err, locations.ErrEmptyRegistry)
}
