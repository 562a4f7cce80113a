package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/UnknownOlympus/rdgeo/internal/models"
)

// Provider is an interface that defines a method for geocoding a Dutch address.
// The Geocode method takes a context and an address as input,
// and returns the location in both RD and WGS84, or an error if any occurs.
type Provider interface {
	Geocode(ctx context.Context, address models.Address) (*models.Location, error)
}

// HTTPClient defines the interface for making HTTP requests.
// This allows for easy mocking in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Address validation errors shared by all providers.
var (
	ErrInvalidPostcode    = errors.New("invalid postcode")
	ErrInvalidHouseNumber = errors.New("invalid house number")
)

var postcodePattern = regexp.MustCompile(`^[1-9][0-9]{3}[A-Z]{2}$`)

// NormalizePostcode strips whitespace from a Dutch postcode and upper-cases it,
// so that "1012 ab" becomes "1012AB".
func NormalizePostcode(postcode string) (string, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(postcode), ""))
	if !postcodePattern.MatchString(norm) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPostcode, postcode)
	}

	return norm, nil
}

// normalizeAddress validates the address and returns it with a normalized postcode.
func normalizeAddress(address models.Address) (models.Address, error) {
	postcode, err := NormalizePostcode(address.Postcode)
	if err != nil {
		return models.Address{}, err
	}
	if address.HouseNumber <= 0 {
		return models.Address{}, fmt.Errorf("%w: %d", ErrInvalidHouseNumber, address.HouseNumber)
	}

	return models.Address{Postcode: postcode, HouseNumber: address.HouseNumber}, nil
}
