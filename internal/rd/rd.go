// Package rd converts between the Dutch Rijksdriehoek grid (EPSG:28992) and WGS84
// latitude/longitude (EPSG:4326).
//
// The conversion uses the polynomial approximation published by F.H. Schreutelkamp and
// G.L. Strang van Hees. Both directions are fitted independently, so they are not exact
// inverses of each other: a round trip inside the Netherlands drifts by well under a
// centimetre, and accuracy degrades outside the country. Inputs are never validated;
// points far from the origin simply extrapolate the polynomial.
package rd

import "math"

// EPSG codes of the two reference systems handled by this package.
const (
	EPSGRD    = 28992
	EPSGWGS84 = 4326
)

// Origin of the transformation (Amersfoort), in RD metres and WGS84 degrees.
const (
	X0   = 155000.0
	Y0   = 463000.0
	Phi0 = 52.15517440
	Lam0 = 5.38720621
)

// Term is a single coefficient * a^P * b^Q term of a conversion polynomial.
type Term struct {
	P    int
	Q    int
	Coef float64
}

// Eval returns the value of the term at (a, b). Zero powers evaluate to 1, including 0^0.
func (t Term) Eval(a, b float64) float64 {
	return t.Coef * math.Pow(a, float64(t.P)) * math.Pow(b, float64(t.Q))
}

// Sum evaluates terms at (a, b) and adds them up in slice order.
func Sum(terms []Term, a, b float64) float64 {
	var sum float64
	for _, t := range terms {
		sum += t.Eval(a, b)
	}

	return sum
}

// RD to WGS84, in arc seconds.
var (
	latTerms = []Term{
		{0, 1, 3235.65389},
		{2, 0, -32.58297},
		{0, 2, -0.24750},
		{2, 1, -0.84978},
		{0, 3, -0.06550},
		{2, 2, -0.01709},
		{1, 0, -0.00738},
		{4, 0, 0.00530},
		{2, 3, -0.00039},
		{4, 1, 0.00033},
		{1, 1, -0.00012},
	}
	lonTerms = []Term{
		{1, 0, 5260.52916},
		{1, 1, 105.94684},
		{1, 2, 2.45656},
		{3, 0, -0.81885},
		{1, 3, 0.05594},
		{3, 1, -0.05607},
		{0, 1, 0.01199},
		{3, 2, -0.00256},
		{1, 4, 0.00128},
		{0, 2, 0.00022},
		{2, 0, -0.00022},
		{5, 0, 0.00026},
	}
)

// WGS84 to RD, in metres.
var (
	xTerms = []Term{
		{0, 1, 190094.945},
		{1, 1, -11832.228},
		{2, 1, -114.221},
		{0, 3, -32.391},
		{1, 0, -0.705},
		{3, 1, -2.340},
		{1, 3, -0.608},
		{0, 2, -0.008},
		{2, 3, 0.148},
	}
	yTerms = []Term{
		{1, 0, 309056.544},
		{0, 2, 3638.893},
		{2, 0, 73.077},
		{1, 2, -157.984},
		{3, 0, 59.788},
		{0, 1, 0.433},
		{2, 2, -6.439},
		{1, 1, -0.032},
		{0, 4, 0.092},
		{1, 4, -0.054},
	}
)

// FromRD converts RD coordinates in metres to WGS84 latitude and longitude in degrees.
func FromRD(x, y float64) (lat, lon float64) {
	dx := 1e-5 * (x - X0)
	dy := 1e-5 * (y - Y0)

	lat = Phi0 + Sum(latTerms, dx, dy)/3600
	lon = Lam0 + Sum(lonTerms, dx, dy)/3600

	return lat, lon
}

// FromWGS84 converts WGS84 latitude and longitude in degrees to RD coordinates in metres.
func FromWGS84(lat, lon float64) (x, y float64) {
	dlat := 0.36 * (lat - Phi0)
	dlon := 0.36 * (lon - Lam0)

	x = X0 + Sum(xTerms, dlat, dlon)
	y = Y0 + Sum(yTerms, dlat, dlon)

	return x, y
}
