package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/UnknownOlympus/rdgeo/internal/models"
	"github.com/UnknownOlympus/rdgeo/internal/rd"
	"golang.org/x/time/rate"
)

// BAGBaseURL is the query endpoint of the BAG address layer on the ArcGIS MapServer.
const BAGBaseURL = "https://basisregistraties.arcgisonline.nl/arcgis/rest/services/BAG/BAGv2/MapServer/0/query"

// BAGProvider implements the Provider interface using the Dutch BAG (Basisregistratie
// Adressen en Gebouwen) MapServer. BAG answers in RD, which is converted to WGS84.
type BAGProvider struct {
	client  HTTPClient    // HTTP client for making requests
	baseURL string        // Base URL for the MapServer query endpoint
	log     *slog.Logger  // Logger for logging operations
	limiter *rate.Limiter // Rate limiter
}

// Common errors for BAG provider.
var (
	ErrBAGNotFound     = errors.New("BAG returned no address for postcode and house number")
	ErrBAGServiceError = errors.New("BAG MapServer returned an error")
	ErrBAGInvalidPoint = errors.New("BAG MapServer returned a feature without point geometry")
)

// bagResponse is the subset of the ArcGIS query response that carries point geometry.
type bagResponse struct {
	Features []struct {
		Geometry *struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		} `json:"geometry"`
	} `json:"features"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewBAGProvider creates a new BAG geocoding provider against baseURL.
// An empty baseURL selects BAGBaseURL.
func NewBAGProvider(baseURL string, rateLimit int, log *slog.Logger) *BAGProvider {
	const timeout = 10

	return NewBAGProviderWithClient(
		&http.Client{Timeout: timeout * time.Second},
		baseURL,
		rate.NewLimiter(rate.Limit(rateLimit), rateLimit),
		log,
	)
}

// NewBAGProviderWithClient allows injecting a custom HTTP client and limiter.
func NewBAGProviderWithClient(
	client HTTPClient,
	baseURL string,
	limiter *rate.Limiter,
	log *slog.Logger,
) *BAGProvider {
	if baseURL == "" {
		baseURL = BAGBaseURL
	}

	return &BAGProvider{
		client:  client,
		baseURL: baseURL,
		log:     log,
		limiter: limiter,
	}
}

// Geocode looks up the RD position of an address in BAG and returns it together with
// the derived WGS84 coordinates.
func (bp *BAGProvider) Geocode(ctx context.Context, address models.Address) (*models.Location, error) {
	address, err := normalizeAddress(address)
	if err != nil {
		return nil, err
	}

	if err = bp.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit exceeded: %w", err)
	}

	bp.log.DebugContext(ctx, "Geocoding using BAG", "address", address.String())

	reqURL, err := url.Parse(bp.baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse base URL: %w", err)
	}

	query := reqURL.Query()
	query.Set("where", fmt.Sprintf("huisnummer='%d' AND postcode='%s'", address.HouseNumber, address.Postcode))
	query.Set("outFields", "")
	query.Set("returnGeometry", "true")
	query.Set("outSR", strconv.Itoa(rd.EPSGRD))
	query.Set("spatialRel", "esriSpatialRelIntersects")
	query.Set("featureEncoding", "esriDefault")
	query.Set("f", "pjson")
	reqURL.RawQuery = query.Encode()

	bp.log.DebugContext(ctx, "BAG request URL", "url", reqURL.String())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := bp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute geocoding request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bp.log.ErrorContext(ctx, "BAG API error", "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("BAG API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result bagResponse
	if err = json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode BAG response: %w", err)
	}

	// ArcGIS reports query errors in a 200 response.
	if result.Error != nil {
		return nil, fmt.Errorf("%w: %d %s", ErrBAGServiceError, result.Error.Code, result.Error.Message)
	}

	if len(result.Features) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrBAGNotFound, address.String())
	}

	geom := result.Features[0].Geometry
	if geom == nil || geom.X == nil || geom.Y == nil {
		return nil, ErrBAGInvalidPoint
	}

	loc := models.LocationFromRD(models.RDPoint{X: *geom.X, Y: *geom.Y})

	bp.log.DebugContext(ctx, "BAG found result",
		"address", address.String(),
		"rd_x", loc.RD.X, "rd_y", loc.RD.Y,
		"lat", loc.WGS84.Latitude, "lon", loc.WGS84.Longitude)

	return &loc, nil
}
