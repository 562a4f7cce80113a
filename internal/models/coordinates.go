package models

import "github.com/UnknownOlympus/rdgeo/internal/rd"

// Coordinates represents a WGS84 point defined by its latitude and longitude in degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`  // Latitude of the geographical point.
	Longitude float64 `json:"longitude"` // Longitude of the geographical point.
}

// RDPoint represents a point on the Dutch Rijksdriehoek grid, in metres.
type RDPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Location is a geocoded address expressed in both reference systems.
type Location struct {
	RD    RDPoint     `json:"rd"`
	WGS84 Coordinates `json:"wgs84"`
}

// ToRD converts the WGS84 point to the RD grid.
func (c Coordinates) ToRD() RDPoint {
	x, y := rd.FromWGS84(c.Latitude, c.Longitude)
	return RDPoint{X: x, Y: y}
}

// ToWGS84 converts the RD point to WGS84.
func (p RDPoint) ToWGS84() Coordinates {
	lat, lon := rd.FromRD(p.X, p.Y)
	return Coordinates{Latitude: lat, Longitude: lon}
}

// LocationFromRD builds a Location from an RD point, deriving the WGS84 pair.
func LocationFromRD(p RDPoint) Location {
	return Location{RD: p, WGS84: p.ToWGS84()}
}

// LocationFromWGS84 builds a Location from a WGS84 point, deriving the RD pair.
func LocationFromWGS84(c Coordinates) Location {
	return Location{RD: c.ToRD(), WGS84: c}
}
