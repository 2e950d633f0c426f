package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/geo/s2"
)

const earthRadiusKm = 6371.0088

// Row is one delivery record of a driver report, already mapped from the
// backend's field names to the names the dashboard displays.
type Row struct {
	Barcode          string `json:"barcode"`
	Address          string `json:"address"`
	LastGPSLocation  string `json:"lastGpsLocation"`
	ExpectedLocation string `json:"expectedLocation"`
	DistanceKm       string `json:"distanceKm"`
	Status           string `json:"status"`
	MapsURL          string `json:"mapsUrl"`
	ProofImage       string `json:"proofImage"`
}

// IsMatch reports whether the backend status means the delivery location
// matched the expected address. Nothing but Status is consulted.
func (r Row) IsMatch() bool {
	switch strings.ToLower(r.Status) {
	case "match", "matched":
		return true
	default:
		return false
	}
}

func (r Row) Badge() string {
	if r.IsMatch() {
		return "Match"
	}
	return "Mismatch"
}

// Contains does a case-insensitive substring search over the searchable
// columns. needle must already be lower-cased.
func (r Row) Contains(needle string) bool {
	if needle == "" {
		return true
	}
	for _, field := range []string{
		r.Barcode,
		r.Address,
		r.LastGPSLocation,
		r.ExpectedLocation,
		r.Status,
		r.DistanceKm,
		r.MapsURL,
	} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Distance is the display value of the distance column. When the backend
// sent nothing and both locations are coordinate pairs, the great-circle
// distance is computed and marked as approximate.
func (r Row) Distance() string {
	if strings.TrimSpace(r.DistanceKm) != "" {
		return r.DistanceKm
	}
	from, ok := ParseLatLng(r.LastGPSLocation)
	if !ok {
		return ""
	}
	to, ok := ParseLatLng(r.ExpectedLocation)
	if !ok {
		return ""
	}
	km := from.Distance(to).Radians() * earthRadiusKm
	return fmt.Sprintf("≈ %.2f", km)
}

// ExpectedFrom builds the expected location column from an optional
// latitude/longitude pair. Either side missing yields an empty string.
func ExpectedFrom(lat, lng string) string {
	lat = strings.TrimSpace(lat)
	lng = strings.TrimSpace(lng)
	if lat == "" || lng == "" {
		return ""
	}
	return lat + ", " + lng
}

// ParseLatLng accepts "lat, lng" (comma separated, optional spaces).
func ParseLatLng(value string) (s2.LatLng, bool) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return s2.LatLng{}, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return s2.LatLng{}, false
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || lng < -180 || lng > 180 {
		return s2.LatLng{}, false
	}
	return s2.LatLngFromDegrees(lat, lng), true
}

// DriverOption is one entry of the driver picker.
type DriverOption struct {
	ID    int64
	Label string
}

func NewDriverOption(id int64, fullName string) DriverOption {
	return DriverOption{ID: id, Label: fmt.Sprintf("%s (%d)", strings.TrimSpace(fullName), id)}
}

// Name strips the trailing " (id)" from the label.
func (o DriverOption) Name() string {
	idx := strings.LastIndex(o.Label, " (")
	if idx > 0 {
		return o.Label[:idx]
	}
	return o.Label
}
