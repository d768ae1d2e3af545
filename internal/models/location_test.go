package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

func TestLocation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		loc     models.Location
		wantErr bool
	}{
		{name: "SaoPaulo", loc: models.Location{Name: "São Paulo", Latitude: -23.5505, Longitude: -46.6333}},
		{name: "Bounds", loc: models.Location{Latitude: 90, Longitude: -180}},
		{name: "LatitudeTooLow", loc: models.Location{Latitude: -90.1, Longitude: 0}, wantErr: true},
		{name: "LongitudeTooHigh", loc: models.Location{Latitude: 0, Longitude: 180.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.loc.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLocation_Label(t *testing.T) {
	assert.Equal(t, "Santos", models.Location{Name: "Santos"}.Label())
	assert.Equal(t, "-23.50000,-46.60000", models.Location{Latitude: -23.5, Longitude: -46.6}.Label())
}
