package locations

import (
	"errors"
	"strings"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

const (
	saoPauloState = "São Paulo"
	brazil        = "Brazil"
)

// saoPauloCities covers the main regions of São Paulo state.
var saoPauloCities = []models.Location{
	// Região Metropolitana de São Paulo
	{Name: "São Paulo", Latitude: -23.5505, Longitude: -46.6333},
	{Name: "Guarulhos", Latitude: -23.4538, Longitude: -46.5333},

	// Região Metropolitana de Campinas
	{Name: "Campinas", Latitude: -22.9099, Longitude: -47.0626},
	{Name: "Jundiaí", Latitude: -23.1864, Longitude: -46.8842},

	// Litoral
	{Name: "Santos", Latitude: -23.9608, Longitude: -46.3336},

	// Vale do Paraíba
	{Name: "São José dos Campos", Latitude: -23.1790, Longitude: -45.8869},

	// Interior
	{Name: "Ribeirão Preto", Latitude: -21.1704, Longitude: -47.8103},
	{Name: "Araraquara", Latitude: -21.7947, Longitude: -48.1758},
	{Name: "Piracicaba", Latitude: -22.7253, Longitude: -47.6491},
	{Name: "Sorocaba", Latitude: -23.5015, Longitude: -47.4526},
	{Name: "Bauru", Latitude: -22.3147, Longitude: -49.0608},
	{Name: "Marília", Latitude: -22.2139, Longitude: -49.9458},
	{Name: "Presidente Prudente", Latitude: -22.1256, Longitude: -51.3888},
	{Name: "São José do Rio Preto", Latitude: -20.8197, Longitude: -49.3794},
}

var ErrEmptyRegistry = errors.New("location registry is empty")

// Registry is a fixed, ordered list of locations. It never changes after
// construction.
type Registry struct {
	multi     bool
	locations []models.Location
}

// NewSingle returns a registry holding one location.
func NewSingle(loc models.Location) (*Registry, error) {
	if err := loc.Validate(); err != nil {
		return nil, err
	}
	return &Registry{locations: []models.Location{loc}}, nil
}

// NewMulti returns a multi-location registry over locs.
func NewMulti(locs []models.Location) (*Registry, error) {
	if len(locs) == 0 {
		return nil, ErrEmptyRegistry
	}
	for _, loc := range locs {
		if err := loc.Validate(); err != nil {
			return nil, err
		}
	}
	return &Registry{multi: true, locations: append([]models.Location(nil), locs...)}, nil
}

// SaoPaulo returns the cities of São Paulo state with state and country set.
func SaoPaulo() []models.Location {
	out := make([]models.Location, len(saoPauloCities))
	for i, loc := range saoPauloCities {
		loc.State = saoPauloState
		loc.Country = brazil
		out[i] = loc
	}
	return out
}

// List returns the locations in registry order. The slice is a copy.
func (r *Registry) List() []models.Location {
	return append([]models.Location(nil), r.locations...)
}

func (r *Registry) MultiLocation() bool {
	return r.multi
}

func (r *Registry) Len() int {
	return len(r.locations)
}

// ByCity finds a location by name, ignoring case.
func (r *Registry) ByCity(name string) (models.Location, bool) {
	for _, loc := range r.locations {
		if strings.EqualFold(loc.Name, name) {
			return loc, true
		}
	}
	return models.Location{}, false
}
