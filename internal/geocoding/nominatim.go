package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/rdgeo/internal/models"
)

const (
	nominatimBaseURL   = "https://nominatim.openstreetmap.org/search"
	nominatimUserAgent = "rdgeo/1.0 (https://github.com/UnknownOlympus/rdgeo)"
)

// NominatimProvider implements the Provider interface using OpenStreetMap's Nominatim API.
// This is a free geocoding service with usage limits (1 request/second for fair use).
type NominatimProvider struct {
	client  HTTPClient   // HTTP client for making requests
	baseURL string       // Base URL for the Nominatim API
	log     *slog.Logger // Logger for logging operations
	// userAgent is required by Nominatim usage policy
	userAgent string
}

// nominatimResponse represents the JSON response from Nominatim API.
type nominatimResponse struct {
	Lat string `json:"lat"` // Latitude as string
	Lon string `json:"lon"` // Longitude as string
}

// Common errors for Nominatim provider.
var (
	ErrNominatimEmptyResponse = errors.New("nominatim API returned empty response")
	ErrNominatimInvalidCoords = errors.New("nominatim API returned invalid coordinates")
)

// NewNominatimProvider creates a new Nominatim geocoding provider.
// Uses the public Nominatim API endpoint by default.
func NewNominatimProvider(log *slog.Logger) *NominatimProvider {
	const timeout = 10
	return NewNominatimProviderWithClient(&http.Client{Timeout: timeout * time.Second}, log)
}

// NewNominatimProviderWithClient creates a Nominatim provider with a custom HTTP client.
// Useful for testing with mocked HTTP clients.
func NewNominatimProviderWithClient(client HTTPClient, log *slog.Logger) *NominatimProvider {
	return &NominatimProvider{
		client:    client,
		baseURL:   nominatimBaseURL,
		log:       log,
		userAgent: nominatimUserAgent,
	}
}

// Geocode converts an address to a location using the Nominatim API.
//
// OSM does not carry every house number, so the lookup falls back from the
// free-text address to a structured search on the postcode alone.
func (np *NominatimProvider) Geocode(ctx context.Context, address models.Address) (*models.Location, error) {
	address, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	np.log.DebugContext(ctx, "Geocoding using Nominatim", "address", address.String())

	searches := np.generateFallbacks(address)

	for idx, search := range searches {
		coords, err := np.search(ctx, search)
		if err == nil {
			if idx > 0 {
				np.log.InfoContext(ctx, "Geocoded using fallback search",
					"address", address.String(),
					"fallback_level", idx)
			}
			loc := models.LocationFromWGS84(*coords)
			return &loc, nil
		}

		if !errors.Is(err, ErrNominatimEmptyResponse) {
			return nil, err
		}

		np.log.DebugContext(ctx, "Search returned no results, trying fallback", "fallback_level", idx)
	}

	np.log.WarnContext(ctx, "All fallbacks exhausted", "address", address.String(), "variations_tried", len(searches))
	return nil, ErrNominatimEmptyResponse
}

// generateFallbacks returns the query parameter sets to try, most specific first.
func (np *NominatimProvider) generateFallbacks(address models.Address) []url.Values {
	full := url.Values{}
	full.Set("q", address.Query())

	postcode := url.Values{}
	postcode.Set("postalcode", address.Postcode)
	postcode.Set("country", "Netherlands")

	return []url.Values{full, postcode}
}

// search performs a single Nominatim request.
func (np *NominatimProvider) search(ctx context.Context, params url.Values) (*models.Coordinates, error) {
	reqURL, err := url.Parse(np.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	for key, values := range params {
		query[key] = values
	}
	query.Set("format", "json")
	query.Set("limit", "1")
	query.Set("countrycodes", "nl")
	query.Set("accept-language", "nl,en")
	reqURL.RawQuery = query.Encode()

	np.log.DebugContext(ctx, "Nominatim request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", np.userAgent)

	resp, err := np.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		np.log.ErrorContext(ctx, "Nominatim API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("nominatim API returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []nominatimResponse
	if err = json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode nominatim response: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNominatimEmptyResponse
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil || math.IsNaN(lat) || math.IsInf(lat, 0) {
		return nil, fmt.Errorf("%w: invalid latitude: %s", ErrNominatimInvalidCoords, results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return nil, fmt.Errorf("%w: invalid longitude: %s", ErrNominatimInvalidCoords, results[0].Lon)
	}

	return &models.Coordinates{Latitude: lat, Longitude: lon}, nil
}
