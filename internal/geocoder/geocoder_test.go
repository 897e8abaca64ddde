package geocoder

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const jaipurReply = `{
  "status": "OK",
  "results": [{
    "formatted_address": "MI Road, C-Scheme, Jaipur, Rajasthan 302001, India",
    "address_components": [
      {"long_name": "MI Road", "types": ["route"]},
      {"long_name": "C-Scheme", "types": ["sublocality_level_1", "sublocality", "political"]},
      {"long_name": "Jaipur", "types": ["locality", "political"]},
      {"long_name": "Jaipur District", "types": ["administrative_area_level_2", "political"]},
      {"long_name": "Rajasthan", "types": ["administrative_area_level_1", "political"]},
      {"long_name": "India", "types": ["country", "political"]},
      {"long_name": "302001", "types": ["postal_code"]}
    ]
  }]
}`

func TestGoogleResolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "26.900000,75.800000", r.URL.Query().Get("latlng"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jaipurReply))
	}))
	defer srv.Close()

	loc, err := NewGoogle(srv.URL, "key").Resolve(context.Background(), 26.9, 75.8)
	require.NoError(t, err)
	assert.Equal(t, "Jaipur", loc.City)
	assert.Equal(t, "Jaipur District", loc.District)
	assert.Equal(t, "Rajasthan", loc.State)
	assert.Equal(t, "MI Road", loc.Street)
	assert.Equal(t, "C-Scheme", loc.Sublocality1)
	assert.Equal(t, "302001", loc.PostalCode)
}

func TestGoogleZeroResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	}))
	defer srv.Close()

	_, err := NewGoogle(srv.URL, "key").Resolve(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestNearest(t *testing.T) {
	loc, err := Nearest{}.Resolve(context.Background(), 26.9, 75.8)
	require.NoError(t, err)
	assert.Equal(t, "Jaipur", loc.City)
	assert.Equal(t, "Rajasthan", loc.State)

	loc, _ = Nearest{}.Resolve(context.Background(), 19.1, 72.9)
	assert.Equal(t, "Mumbai", loc.City)
}

type failing struct{}

func (failing) Resolve(context.Context, float64, float64) (*models.Location, error) {
	return nil, errors.New("boom")
}

type partial struct{}

func (partial) Resolve(_ context.Context, lat, lng float64) (*models.Location, error) {
	return &models.Location{Lat: lat, Lng: lng, Street: "Tonk Road", State: "Rajasthan"}, nil
}

func TestWithFallback(t *testing.T) {
	logger := zap.NewNop().Sugar()

	loc, err := NewWithFallback(failing{}, logger).Resolve(context.Background(), 26.9, 75.8)
	require.NoError(t, err)
	assert.Equal(t, "Jaipur", loc.City)

	loc, err = NewWithFallback(partial{}, logger).Resolve(context.Background(), 26.9, 75.8)
	require.NoError(t, err)
	assert.Equal(t, "Jaipur", loc.City)
	assert.Equal(t, "Tonk Road", loc.Street)

	loc, err = NewWithFallback(nil, logger).Resolve(context.Background(), 28.6, 77.2)
	require.NoError(t, err)
	assert.Equal(t, "Delhi", loc.City)
}
