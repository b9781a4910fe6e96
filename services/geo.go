package services

import (
	"math"
	"strings"

	"support_directory_go/models"
)

// DistanceUnit selects the Earth radius used for great-circle distances
type DistanceUnit string

const (
	UnitKilometres DistanceUnit = "km"
	UnitMiles      DistanceUnit = "mi"
)

const (
	earthRadiusKm    = 6371.0
	earthRadiusMiles = 3958.8
)

// EarthRadius returns the Earth radius expressed in the unit
func (u DistanceUnit) EarthRadius() float64 {
	if u == UnitMiles {
		return earthRadiusMiles
	}
	return earthRadiusKm
}

// ParseDistanceUnit accepts km/mi (and their long forms); empty means km
func ParseDistanceUnit(raw string) (DistanceUnit, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "km", "kilometres", "kilometers":
		return UnitKilometres, nil
	case "mi", "mile", "miles":
		return UnitMiles, nil
	}
	return "", NewValidationError("unknown distance unit %q", raw)
}

// Distance is the Haversine great-circle distance between a and b in unit.
// Malformed coordinates propagate as NaN; callers validate ranges first.
func Distance(a, b models.Location, unit DistanceUnit) float64 {
	lat1 := toRadians(a.Latitude)
	lat2 := toRadians(b.Latitude)
	dLat := toRadians(b.Latitude - a.Latitude)
	dLng := toRadians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return unit.EarthRadius() * c
}

// DistanceKm is Distance in kilometres
func DistanceKm(a, b models.Location) float64 {
	return Distance(a, b, UnitKilometres)
}

// ValidateLocation rejects coordinates outside WGS84 ranges
func ValidateLocation(loc models.Location) error {
	if math.IsNaN(loc.Latitude) || loc.Latitude < -90 || loc.Latitude > 90 {
		return NewValidationError("latitude must be between -90 and 90")
	}
	if math.IsNaN(loc.Longitude) || loc.Longitude < -180 || loc.Longitude > 180 {
		return NewValidationError("longitude must be between -180 and 180")
	}
	return nil
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDegrees(rad float64) float64 {
	return rad * 180 / math.Pi
}

// boxMargin widens bounding boxes slightly so rounding never drops a point
// the exact distance check would keep
const boxMargin = 1e-6

// BoundingBox is a latitude/longitude rectangle enclosing a search circle.
// HasLongitude is false when the circle reaches a pole or crosses the
// antimeridian, in which case only latitude is bounded.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
	HasLongitude   bool
}

// BoundingBoxFor returns a box containing every point closer than radius to
// origin. ok is false when the circle covers the whole globe.
func BoundingBoxFor(origin models.Location, radius float64, unit DistanceUnit) (box BoundingBox, ok bool) {
	angular := radius / unit.EarthRadius()
	if math.IsNaN(angular) || angular >= math.Pi {
		return BoundingBox{}, false
	}

	dLat := toDegrees(angular)
	box.MinLat = math.Max(origin.Latitude-dLat, -90) - boxMargin
	box.MaxLat = math.Min(origin.Latitude+dLat, 90) + boxMargin

	cosLat := math.Cos(toRadians(origin.Latitude))
	sinAngular := math.Sin(angular)
	if angular < math.Pi/2 && sinAngular < cosLat {
		dLng := toDegrees(math.Asin(sinAngular / cosLat))
		if origin.Longitude-dLng >= -180 && origin.Longitude+dLng <= 180 {
			box.MinLng = origin.Longitude - dLng - boxMargin
			box.MaxLng = origin.Longitude + dLng + boxMargin
			box.HasLongitude = true
		}
	}
	return box, true
}

// Contains reports whether loc lies inside the box
func (b BoundingBox) Contains(loc models.Location) bool {
	if loc.Latitude < b.MinLat || loc.Latitude > b.MaxLat {
		return false
	}
	if b.HasLongitude && (loc.Longitude < b.MinLng || loc.Longitude > b.MaxLng) {
		return false
	}
	return true
}

// lessByName orders by display name (case-insensitive), then id
func lessByName(a, b *models.ResourceBase) bool {
	an, bn := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if an != bn {
		return an < bn
	}
	return a.ID < b.ID
}
