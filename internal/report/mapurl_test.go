package report

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedURLKeepsStoredEmbed(t *testing.T) {
	stored := "https://www.google.com/Maps/Embed?pb=abc"
	r := Row{MapsURL: "  " + stored + " ", LastGPSLocation: "1, 2", Address: "x"}
	assert.Equal(t, stored, EmbedURL(r, "key"))
	assert.Equal(t, stored, EmbedURL(r, ""))
}

func TestEmbedURLDirections(t *testing.T) {
	r := Row{LastGPSLocation: "24.9, 67.1", Address: "12 Harbour Road", MapsURL: "https://maps.google.com/?q=1"}
	got := EmbedURL(r, "k123")
	require.True(t, strings.HasPrefix(got, "https://www.google.com/maps/embed/v1/directions?"), got)

	u, err := url.Parse(got)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "k123", q.Get("key"))
	assert.Equal(t, "24.9, 67.1", q.Get("origin"))
	assert.Equal(t, "12 Harbour Road", q.Get("destination"))
	assert.Equal(t, "driving", q.Get("mode"))
}

func TestEmbedURLDirectionsFallsBackToExpectedLocation(t *testing.T) {
	r := Row{LastGPSLocation: "24.9, 67.1", ExpectedLocation: "24.8, 67.0"}
	u, err := url.Parse(EmbedURL(r, "k"))
	require.NoError(t, err)
	assert.Equal(t, "24.8, 67.0", u.Query().Get("destination"))
}

func TestEmbedURLPlace(t *testing.T) {
	r := Row{LastGPSLocation: "24.9, 67.1"}
	got := EmbedURL(r, "k")
	require.True(t, strings.HasPrefix(got, "https://www.google.com/maps/embed/v1/place?"), got)
	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "24.9, 67.1", u.Query().Get("q"))
}

func TestEmbedURLDefaultWithoutKey(t *testing.T) {
	assert.Equal(t, DefaultEmbedURL, EmbedURL(Row{LastGPSLocation: "24.9, 67.1"}, ""))
	assert.Equal(t, DefaultEmbedURL, EmbedURL(Row{Address: "x", LastGPSLocation: "y"}, " "))
	assert.Equal(t, DefaultEmbedURL, EmbedURL(Row{}, "k"))
}
