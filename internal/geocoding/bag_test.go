package geocoding_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/UnknownOlympus/rdgeo/internal/geocoding"
	"github.com/UnknownOlympus/rdgeo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func bagResponse(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(_ *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: status,
			Body:       io.NopCloser(bytes.NewBufferString(body)),
		}, nil
	}
}

func TestBAGProvider_Geocode(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	defaultRL := rate.NewLimiter(rate.Inf, 0)
	address := models.Address{Postcode: "1012 ab", HouseNumber: 1}

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, http.MethodGet, req.Method)
				assert.Contains(t, req.URL.String(), geocoding.BAGBaseURL)
				assert.Equal(t, "huisnummer='1' AND postcode='1012AB'", req.URL.Query().Get("where"))
				assert.Equal(t, "28992", req.URL.Query().Get("outSR"))
				assert.Equal(t, "true", req.URL.Query().Get("returnGeometry"))
				assert.Equal(t, "pjson", req.URL.Query().Get("f"))

				return bagResponse(http.StatusOK,
					`{"features":[{"attributes":{},"geometry":{"x":121397.0,"y":487314.0}}]}`)(req)
			},
		}

		provider := geocoding.NewBAGProviderWithClient(mockClient, "", defaultRL, logger)
		loc, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.InDelta(t, 121397.0, loc.RD.X, 0)
		assert.InDelta(t, 487314.0, loc.RD.Y, 0)
		assert.InDelta(t, 52.3726747, loc.WGS84.Latitude, 1e-6)
		assert.InDelta(t, 4.8937711, loc.WGS84.Longitude, 1e-6)
	})

	t.Run("custom base URL", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, "bag.internal", req.URL.Host)
				return bagResponse(http.StatusOK, `{"features":[{"geometry":{"x":155000,"y":463000}}]}`)(req)
			},
		}

		provider := geocoding.NewBAGProviderWithClient(mockClient, "http://bag.internal/query", defaultRL, logger)
		loc, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		assert.InDelta(t, 52.15517440, loc.WGS84.Latitude, 1e-6)
	})

	t.Run("no features", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: bagResponse(http.StatusOK, `{"features":[]}`)}

		provider := geocoding.NewBAGProviderWithClient(mockClient, "", defaultRL, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Nil(t, loc)
		require.ErrorIs(t, err, geocoding.ErrBAGNotFound)
		assert.Contains(t, err.Error(), "1012AB 1")
	})

	t.Run("feature without geometry", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: bagResponse(http.StatusOK, `{"features":[{"attributes":{}}]}`)}

		provider := geocoding.NewBAGProviderWithClient(mockClient, "", defaultRL, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Nil(t, loc)
		require.ErrorIs(t, err, geocoding.ErrBAGInvalidPoint)
	})

	t.Run("service error in body", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: bagResponse(http.StatusOK, `{"error":{"code":400,"message":"Unable to complete operation."}}`),
		}

		provider := geocoding.NewBAGProviderWithClient(mockClient, "", defaultRL, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Nil(t, loc)
		require.ErrorIs(t, err, geocoding.ErrBAGServiceError)
		assert.Contains(t, err.Error(), "Unable to complete operation.")
	})

	t.Run("HTTP error status", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: bagResponse(http.StatusBadGateway, "upstream down")}

		provider := geocoding.NewBAGProviderWithClient(mockClient, "", defaultRL, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Nil(t, loc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BAG API returned status 502")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{doFunc: bagResponse(http.StatusOK, "invalid json")}

		provider := geocoding.NewBAGProviderWithClient(mockClient, "", defaultRL, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Nil(t, loc)
		assert.ErrorContains(t, err, "failed to decode BAG response")
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewBAGProviderWithClient(mockClient, "", defaultRL, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Nil(t, loc)
		require.ErrorIs(t, err, assert.AnError)
		assert.Contains(t, err.Error(), "failed to execute geocoding request")
	})

	t.Run("invalid address never reaches the API", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("unexpected request")
				return nil, assert.AnError
			},
		}
		provider := geocoding.NewBAGProviderWithClient(mockClient, "", defaultRL, logger)

		_, err := provider.Geocode(ctx, models.Address{Postcode: "nope", HouseNumber: 1})
		require.ErrorIs(t, err, geocoding.ErrInvalidPostcode)

		_, err = provider.Geocode(ctx, models.Address{Postcode: "1012AB", HouseNumber: 0})
		require.ErrorIs(t, err, geocoding.ErrInvalidHouseNumber)
	})

	t.Run("rate limiter respects cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		mockClient := &mockHTTPClient{doFunc: bagResponse(http.StatusOK, `{"features":[]}`)}
		provider := geocoding.NewBAGProviderWithClient(mockClient, "", rate.NewLimiter(1, 1), logger)

		loc, err := provider.Geocode(cctx, address)

		require.Nil(t, loc)
		assert.ErrorContains(t, err, "rate limit exceeded")
	})
}

func TestNewBAGProvider(t *testing.T) {
	provider := geocoding.NewBAGProvider("", 5, slog.Default())

	require.NotNil(t, provider)
}
