// Package clinics finds clinics near a location.
package clinics

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
)

// DefaultRadiusKm is the search radius when none is given
const DefaultRadiusKm = 10

const searchPath = "/clinics/emergency"

// Clinic is a healthcare facility
type Clinic struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Phone       string   `json:"phone"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Distance    *float64 `json:"distance,omitempty"`
	IsEmergency bool     `json:"is_emergency"`
	Hours       string   `json:"hours"`
	Services    []string `json:"services"`
	Rating      *float64 `json:"rating,omitempty"`
}

// SearchParams describes a clinic search
type SearchParams struct {
	Latitude      float64
	Longitude     float64
	RadiusKm      float64
	EmergencyOnly bool
}

func (p SearchParams) radius() float64 {
	if p.RadiusKm <= 0 {
		return DefaultRadiusKm
	}
	return p.RadiusKm
}

// Query encodes the params as the search query string
func (p SearchParams) Query() url.Values {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(p.Latitude, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(p.Longitude, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(p.radius(), 'f', -1, 64))
	if p.EmergencyOnly {
		q.Set("emergency_only", "true")
	}
	return q
}

// ParseQuery reads search params from a query string
func ParseQuery(q url.Values) (SearchParams, error) {
	var p SearchParams
	var err error

	if p.Latitude, err = strconv.ParseFloat(q.Get("lat"), 64); err != nil {
		return p, fmt.Errorf("invalid lat: %w", err)
	}
	if p.Longitude, err = strconv.ParseFloat(q.Get("lng"), 64); err != nil {
		return p, fmt.Errorf("invalid lng: %w", err)
	}
	if r := q.Get("radius"); r != "" {
		if p.RadiusKm, err = strconv.ParseFloat(r, 64); err != nil {
			return p, fmt.Errorf("invalid radius: %w", err)
		}
	}
	p.EmergencyOnly = q.Get("emergency_only") == "true"

	return p, nil
}

// Nearby computes the distance of every clinic from the search point and
// returns those within the radius, nearest first
func Nearby(all []Clinic, p SearchParams) []Clinic {
	radius := p.radius()

	out := make([]Clinic, 0, len(all))
	for _, c := range all {
		d := Distance(p.Latitude, p.Longitude, c.Latitude, c.Longitude)
		if d > radius {
			continue
		}
		if p.EmergencyOnly && !c.IsEmergency {
			continue
		}
		c.Distance = &d
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].Distance < *out[j].Distance
	})
	return out
}

// Getter performs a GET and decodes the JSON response. *client.Client implements it.
type Getter interface {
	Get(ctx context.Context, path string, out interface{}) error
}

// ModeSource tells whether mock data replaces failed calls. *demo.Service implements it.
type ModeSource interface {
	UseMockData() bool
}

// Service searches clinics through the API
type Service struct {
	api    Getter
	mode   ModeSource
	logger zerolog.Logger
}

// NewService creates a clinic search service. mode may be nil.
func NewService(api Getter, mode ModeSource, logger zerolog.Logger) *Service {
	return &Service{api: api, mode: mode, logger: logger}
}

type searchResponse struct {
	Clinics []Clinic `json:"clinics"`
}

// Search returns clinics around the given point. When mock data is enabled a
// failed call falls back to the built-in clinic list.
func (s *Service) Search(ctx context.Context, p SearchParams) ([]Clinic, bool, error) {
	var resp searchResponse
	err := s.api.Get(ctx, searchPath+"?"+p.Query().Encode(), &resp)
	if err == nil {
		if resp.Clinics == nil {
			resp.Clinics = []Clinic{}
		}
		return resp.Clinics, false, nil
	}

	if s.mode != nil && s.mode.UseMockData() {
		s.logger.Warn().Err(err).Msg("Clinic search failed, using demo clinics")
		return Nearby(MockClinics, p), true, nil
	}

	return nil, false, fmt.Errorf("clinic search failed: %w", err)
}

// SearchAddress geocodes the address and searches around it
func (s *Service) SearchAddress(ctx context.Context, address string, radiusKm float64, emergencyOnly bool) ([]Clinic, bool, error) {
	coords := Geocode(address)
	return s.Search(ctx, SearchParams{
		Latitude:      coords.Latitude,
		Longitude:     coords.Longitude,
		RadiusKm:      radiusKm,
		EmergencyOnly: emergencyOnly,
	})
}
