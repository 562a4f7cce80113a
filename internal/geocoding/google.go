package geocoding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/UnknownOlympus/rdgeo/internal/models"
	"googlemaps.github.io/maps"
)

// GoogleProvider is a struct that holds the client for Google Maps API
// and a logger for logging purposes. Google answers in WGS84, which is
// converted to RD.
type GoogleProvider struct {
	client GoogleAPIClient // client is the Google Maps API client
	log    *slog.Logger    // log is the logger for logging operations
}

type GoogleAPIClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// ErrEmptyResponse is returned when the Google Maps API responds with an empty result.
var ErrEmptyResponse = errors.New("get empty response from Google Maps API")

// NewGoogleProvider initializes a new GoogleProvider with the given client and logger.
func NewGoogleProvider(client GoogleAPIClient, log *slog.Logger) *GoogleProvider {
	return &GoogleProvider{client: client, log: log}
}

// Geocode resolves an address through the Google Maps Geocoding API, restricted to
// the Netherlands, and returns the location in WGS84 and RD.
func (gp *GoogleProvider) Geocode(ctx context.Context, address models.Address) (*models.Location, error) {
	address, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	gp.log.DebugContext(ctx, "Geocoding using Google Maps", "address", address.String())

	req := googleRequest(address)
	geocodeResponse, err := gp.client.Geocode(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode address: %w", err)
	}

	if len(geocodeResponse) == 0 {
		return nil, ErrEmptyResponse
	}
	coords := geocodeResponse[0].Geometry.Location

	loc := models.LocationFromWGS84(models.Coordinates{Latitude: coords.Lat, Longitude: coords.Lng})

	return &loc, nil
}

func googleRequest(address models.Address) *maps.GeocodingRequest {
	return &maps.GeocodingRequest{
		Address: address.String(),
		Components: map[maps.Component]string{
			maps.ComponentPostalCode: address.Postcode,
			maps.ComponentCountry:    "NL",
		},
	}
}
