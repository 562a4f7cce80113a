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
)

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestNominatimProvider_Geocode(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()
	address := models.Address{Postcode: "1012AB", HouseNumber: 1}

	t.Run("successful geocoding", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				assert.Equal(t, "GET", req.Method)
				assert.Contains(t, req.URL.String(), "nominatim.openstreetmap.org")
				assert.Equal(t, "1012AB 1, Netherlands", req.URL.Query().Get("q"))
				assert.Equal(t, "json", req.URL.Query().Get("format"))
				assert.Equal(t, "1", req.URL.Query().Get("limit"))
				assert.Equal(t, "nl", req.URL.Query().Get("countrycodes"))
				assert.Equal(
					t,
					"rdgeo/1.0 (https://github.com/UnknownOlympus/rdgeo)",
					req.Header.Get("User-Agent"),
				)

				return jsonResponse(http.StatusOK, `[{"lat":"52.3791","lon":"4.8993"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, address)

		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.InEpsilon(t, 52.3791, loc.WGS84.Latitude, 0.0001)
		assert.InEpsilon(t, 4.8993, loc.WGS84.Longitude, 0.0001)
		assert.InDelta(t, 121778.325, loc.RD.X, 0.001)
		assert.InDelta(t, 488026.344, loc.RD.Y, 0.001)
	})

	t.Run("empty response from API", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.Nil(t, loc)
		assert.ErrorIs(t, err, geocoding.ErrNominatimEmptyResponse)
	})

	t.Run("HTTP error status", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusTooManyRequests, `{"error":"Rate limit exceeded"}`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.Nil(t, loc)
		assert.Contains(t, err.Error(), "nominatim API returned status 429")
	})

	t.Run("invalid JSON response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `invalid json`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.Nil(t, loc)
		assert.Contains(t, err.Error(), "failed to decode nominatim response")
	})

	t.Run("invalid latitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"lat":"invalid","lon":"4.8993"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Nil(t, loc)
		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.Contains(t, err.Error(), "invalid latitude")
	})

	t.Run("invalid longitude in response", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return jsonResponse(http.StatusOK, `[{"lat":"52.3791","lon":"invalid"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Nil(t, loc)
		require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
		assert.Contains(t, err.Error(), "invalid longitude")
	})

	t.Run("non-finite coordinates in response", func(t *testing.T) {
		bodies := map[string]string{
			"invalid latitude":  `[{"lat":"NaN","lon":"4.8993"}]`,
			"invalid longitude": `[{"lat":"52.3791","lon":"+Inf"}]`,
		}
		for want, body := range bodies {
			mockClient := &mockHTTPClient{
				doFunc: func(_ *http.Request) (*http.Response, error) {
					return jsonResponse(http.StatusOK, body), nil
				},
			}

			provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
			loc, err := provider.Geocode(ctx, address)

			require.Nil(t, loc)
			require.ErrorIs(t, err, geocoding.ErrNominatimInvalidCoords)
			assert.Contains(t, err.Error(), want)
		}
	})

	t.Run("HTTP client returns error", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, address)

		require.Error(t, err)
		require.Nil(t, loc)
		assert.Contains(t, err.Error(), "failed to execute geocoding request")
	})

	t.Run("context cancellation", func(t *testing.T) {
		newCtx, cancel := context.WithCancel(context.Background())
		cancel()

		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, req.Context().Err()
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(newCtx, address)

		require.ErrorIs(t, err, context.Canceled)
		require.Nil(t, loc)
	})
}

func TestNominatimProvider_PostcodeFallback(t *testing.T) {
	ctx := context.Background()
	logger := slog.Default()

	t.Run("fallback to postcode when full address fails", func(t *testing.T) {
		requestCount := 0
		mockClient := &mockHTTPClient{
			doFunc: func(req *http.Request) (*http.Response, error) {
				requestCount++
				query := req.URL.Query()

				if query.Get("q") == "3511LX 999, Netherlands" {
					return jsonResponse(http.StatusOK, `[]`), nil
				}

				if query.Get("postalcode") == "3511LX" && query.Get("country") == "Netherlands" {
					return jsonResponse(http.StatusOK, `[{"lat":"52.0907","lon":"5.1214"}]`), nil
				}

				t.Fatalf("Unexpected query: %s", req.URL.RawQuery)
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, models.Address{Postcode: "3511 lx", HouseNumber: 999})

		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.InEpsilon(t, 52.0907, loc.WGS84.Latitude, 0.0001)
		assert.InEpsilon(t, 5.1214, loc.WGS84.Longitude, 0.0001)
		assert.Equal(t, 2, requestCount, "should try both fallback levels")
	})

	t.Run("success on first try with full address", func(t *testing.T) {
		requestCount := 0
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				requestCount++
				return jsonResponse(http.StatusOK, `[{"lat":"52.0907","lon":"5.1214"}]`), nil
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, models.Address{Postcode: "3511LX", HouseNumber: 1})

		require.NoError(t, err)
		require.NotNil(t, loc)
		assert.Equal(t, 1, requestCount, "should succeed on first try")
	})

	t.Run("invalid address never reaches the API", func(t *testing.T) {
		mockClient := &mockHTTPClient{
			doFunc: func(_ *http.Request) (*http.Response, error) {
				t.Fatal("unexpected request")
				return nil, assert.AnError
			},
		}

		provider := geocoding.NewNominatimProviderWithClient(mockClient, logger)
		loc, err := provider.Geocode(ctx, models.Address{Postcode: "3511LX", HouseNumber: -1})

		require.Nil(t, loc)
		require.ErrorIs(t, err, geocoding.ErrInvalidHouseNumber)
	})
}

func TestNewNominatimProvider(t *testing.T) {
	provider := geocoding.NewNominatimProvider(slog.Default())

	require.NotNil(t, provider)
}
