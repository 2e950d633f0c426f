package report

import (
	"net/url"
	"strings"
)

// DefaultEmbedURL is shown when nothing better can be built, so the panel
// never renders without a map.
const DefaultEmbedURL = "https://www.google.com/maps/embed?pb=!1m14!1m12!1m3!1d14473.199485265202!2d67.1298786!3d24.921852400000002!2m3!1f0!2f0!3f0!3m2!1i1024!2i768!4f13.1!5e0!3m2!1sen!2s!4v1755878790281!5m2!1sen!2s"

const (
	directionsEmbedBase = "https://www.google.com/maps/embed/v1/directions"
	placeEmbedBase      = "https://www.google.com/maps/embed/v1/place"
)

// EmbedURL picks the iframe source for a row: a stored embed link wins,
// then directions from the GPS fix to the address, then a single place,
// then the default map. The last two synthesized forms need apiKey.
func EmbedURL(r Row, apiKey string) string {
	raw := strings.TrimSpace(r.MapsURL)
	if raw != "" && strings.Contains(strings.ToLower(raw), "/maps/embed") {
		return raw
	}

	apiKey = strings.TrimSpace(apiKey)
	origin := strings.TrimSpace(r.LastGPSLocation)
	destination := strings.TrimSpace(r.Address)
	if destination == "" {
		destination = strings.TrimSpace(r.ExpectedLocation)
	}

	if apiKey != "" && origin != "" && destination != "" {
		q := url.Values{}
		q.Set("key", apiKey)
		q.Set("origin", origin)
		q.Set("destination", destination)
		q.Set("mode", "driving")
		return directionsEmbedBase + "?" + q.Encode()
	}

	single := destination
	if single == "" {
		single = origin
	}
	if apiKey != "" && single != "" {
		q := url.Values{}
		q.Set("key", apiKey)
		q.Set("q", single)
		return placeEmbedBase + "?" + q.Encode()
	}

	return DefaultEmbedURL
}
