// Package geocoder turns coordinates into address fields. The Google
// client is preferred; a nearest-city table is used when it is not
// configured or fails.
package geocoder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/aawaaz/complaint-server/internal/models"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Geocoder resolves a coordinate to an address
type Geocoder interface {
	Resolve(ctx context.Context, lat, lng float64) (*models.Location, error)
}

// ErrNoResult is returned when the provider knows nothing about a point
var ErrNoResult = errors.New("no geocoding result")

type googleComponent struct {
	LongName string   `json:"long_name"`
	Types    []string `json:"types"`
}

type googleResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress  string            `json:"formatted_address"`
		AddressComponents []googleComponent `json:"address_components"`
	} `json:"results"`
}

// Google calls the Geocoding API reverse lookup
type Google struct {
	http   *resty.Client
	apiKey string
}

// NewGoogle creates the client. baseURL is normally https://maps.googleapis.com.
func NewGoogle(baseURL, apiKey string) *Google {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(8 * time.Second).
		SetRetryCount(1).
		SetHeader("Accept", "application/json")
	return &Google{http: client, apiKey: apiKey}
}

// Resolve performs a reverse geocode
func (g *Google) Resolve(ctx context.Context, lat, lng float64) (*models.Location, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("geocoder not configured")
	}

	var out googleResponse
	resp, err := g.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"latlng": strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lng, 'f', 6, 64),
			"key":    g.apiKey,
		}).
		SetResult(&out).
		Get("/maps/api/geocode/json")
	if err != nil {
		return nil, fmt.Errorf("geocode request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("geocode: status %d", resp.StatusCode())
	}
	if out.Status == "ZERO_RESULTS" || (out.Status == "OK" && len(out.Results) == 0) {
		return nil, ErrNoResult
	}
	if out.Status != "OK" {
		return nil, fmt.Errorf("geocode: %s %s", out.Status, out.ErrorMessage)
	}

	first := out.Results[0]
	loc := &models.Location{Lat: lat, Lng: lng, FormattedAddress: first.FormattedAddress}
	var adminLevel2, adminLevel3 string
	for _, c := range first.AddressComponents {
		for _, typ := range c.Types {
			switch typ {
			case "route":
				loc.Street = c.LongName
			case "sublocality_level_1":
				loc.Sublocality1 = c.LongName
			case "sublocality_level_2":
				loc.Sublocality2 = c.LongName
			case "sublocality_level_3":
				loc.Sublocality3 = c.LongName
			case "locality":
				loc.City = c.LongName
			case "administrative_area_level_3":
				adminLevel3 = c.LongName
			case "administrative_area_level_2":
				adminLevel2 = c.LongName
			case "administrative_area_level_1":
				loc.State = c.LongName
			case "postal_code":
				loc.PostalCode = c.LongName
			case "country":
				loc.Country = c.LongName
			}
		}
	}
	loc.District = adminLevel2
	if loc.District == "" {
		loc.District = adminLevel3
	}
	if loc.City == "" {
		loc.City = loc.District
	}
	return loc, nil
}

type city struct {
	Name     string
	District string
	State    string
	Lat, Lng float64
}

var cities = []city{
	{"Jaipur", "Jaipur", "Rajasthan", 26.9124, 75.7873},
	{"Jodhpur", "Jodhpur", "Rajasthan", 26.2389, 73.0243},
	{"Udaipur", "Udaipur", "Rajasthan", 24.5854, 73.7125},
	{"Kota", "Kota", "Rajasthan", 25.2138, 75.8648},
	{"Delhi", "New Delhi", "Delhi", 28.6139, 77.2090},
	{"Mumbai", "Mumbai", "Maharashtra", 19.0760, 72.8777},
	{"Pune", "Pune", "Maharashtra", 18.5204, 73.8567},
	{"Bengaluru", "Bengaluru Urban", "Karnataka", 12.9716, 77.5946},
	{"Chennai", "Chennai", "Tamil Nadu", 13.0827, 80.2707},
	{"Kolkata", "Kolkata", "West Bengal", 22.5726, 88.3639},
	{"Hyderabad", "Hyderabad", "Telangana", 17.3850, 78.4867},
	{"Ahmedabad", "Ahmedabad", "Gujarat", 23.0225, 72.5714},
	{"Lucknow", "Lucknow", "Uttar Pradesh", 26.8467, 80.9462},
	{"Bhopal", "Bhopal", "Madhya Pradesh", 23.2599, 77.4126},
	{"Patna", "Patna", "Bihar", 25.5941, 85.1376},
	{"Chandigarh", "Chandigarh", "Chandigarh", 30.7333, 76.7794},
}

// Nearest resolves to the closest known city. It never fails.
type Nearest struct{}

// Resolve picks the city with the smallest great-circle distance
func (Nearest) Resolve(_ context.Context, lat, lng float64) (*models.Location, error) {
	best := cities[0]
	bestDist := math.Inf(1)
	for _, c := range cities {
		if d := haversineKm(lat, lng, c.Lat, c.Lng); d < bestDist {
			best, bestDist = c, d
		}
	}
	return &models.Location{
		Lat:              lat,
		Lng:              lng,
		City:             best.Name,
		District:         best.District,
		State:            best.State,
		Country:          "India",
		FormattedAddress: fmt.Sprintf("Near %s, %s, India", best.Name, best.State),
	}, nil
}

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371.0
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// WithFallback tries primary first and falls back to Nearest when it fails
// or does not name a city
type WithFallback struct {
	primary Geocoder
	logger  *zap.SugaredLogger
}

// NewWithFallback wraps primary; a nil primary always uses the table
func NewWithFallback(primary Geocoder, logger *zap.SugaredLogger) *WithFallback {
	return &WithFallback{primary: primary, logger: logger}
}

// Resolve never returns an error
func (w *WithFallback) Resolve(ctx context.Context, lat, lng float64) (*models.Location, error) {
	if w.primary != nil {
		loc, err := w.primary.Resolve(ctx, lat, lng)
		if err == nil && loc.City != "" && loc.State != "" {
			return loc, nil
		}
		if err != nil {
			w.logger.Warnw("Geocoder failed, using nearest city", "lat", lat, "lng", lng, "error", err)
		}
		if err == nil {
			fallback, _ := Nearest{}.Resolve(ctx, lat, lng)
			if loc.City == "" {
				loc.City = fallback.City
			}
			if loc.State == "" {
				loc.State = fallback.State
			}
			if loc.District == "" {
				loc.District = fallback.District
			}
			return loc, nil
		}
	}
	return Nearest{}.Resolve(ctx, lat, lng)
}
