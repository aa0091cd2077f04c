package clinics

import (
	"math"
	"strings"
)

const earthRadiusKm = 6371

// Coordinates is a latitude/longitude pair in degrees
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance returns the great-circle distance between two points in
// kilometres, rounded to one decimal place
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := deg2rad(lat2 - lat1)
	dLon := deg2rad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(deg2rad(lat1))*math.Cos(deg2rad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusKm*c*10) / 10
}

func deg2rad(deg float64) float64 {
	return deg * (math.Pi / 180)
}

type city struct {
	name   string
	coords Coordinates
}

// cities is checked in order; the first name contained in the address wins
var cities = []city{
	{"lagos", Coordinates{6.5244, 3.3792}},
	{"abuja", Coordinates{9.0765, 7.3986}},
	{"kano", Coordinates{12.0022, 8.5920}},
	{"port harcourt", Coordinates{4.8156, 7.0498}},
	{"ibadan", Coordinates{7.3775, 3.9470}},
	{"enugu", Coordinates{6.5244, 7.5112}},
	{"nsukka", Coordinates{6.8567, 7.3958}},
	{"awka", Coordinates{6.2107, 7.0719}},
	{"onitsha", Coordinates{6.1667, 6.7833}},
	{"aba", Coordinates{5.1066, 7.3667}},
	{"umuahia", Coordinates{5.5251, 7.4951}},
	{"owerri", Coordinates{5.4840, 7.0351}},
	{"abakaliki", Coordinates{6.3248, 8.1137}},
	{"agbor", Coordinates{6.2570, 6.1914}},
	{"asaba", Coordinates{6.1951, 6.6999}},
}

// Geocode resolves an address to coordinates using the built-in city
// table. Unknown addresses resolve to Lagos.
func Geocode(address string) Coordinates {
	normalized := strings.ToLower(address)
	for _, c := range cities {
		if strings.Contains(normalized, c.name) {
			return c.coords
		}
	}
	return cities[0].coords
}
