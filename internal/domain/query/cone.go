package query

import (
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/bson"
)

// Unit is the angular unit of a cone-search radius.
type Unit string

// Angular units accepted on the wire.
const (
	Degrees    Unit = "Degrees"
	Radians    Unit = "Radians"
	Arcseconds Unit = "Arcseconds"
	Arcminutes Unit = "Arcminutes"
)

// ParseUnit validates a wire-format unit string.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(s); u {
	case Degrees, Radians, Arcseconds, Arcminutes:
		return u, nil
	default:
		return "", fmt.Errorf("unknown unit %q", s)
	}
}

// ConeSearchTarget is one named center to search around. Target names must be
// unique within a request; each target yields one independent result set.
type ConeSearchTarget struct {
	Name string
	RA   float64
	Dec  float64
}

// RadiusToRadians normalizes a radius to radians.
func RadiusToRadians(radius float64, unit Unit) float64 {
	switch unit {
	case Degrees:
		return radius * math.Pi / 180
	case Arcseconds:
		return radius * math.Pi / 180 / 3600
	case Arcminutes:
		return radius * math.Pi / 180 / 60
	default:
		return radius
	}
}

// ConeSearchFilter returns a copy of base augmented with a spherical-cap
// predicate under coordinates.radec_geojson. The stored longitude convention
// is offset by 180 degrees relative to conventional right ascension, hence
// the ra-180 shift. base is never mutated.
func ConeSearchFilter(base bson.D, ra, dec, radius float64, unit Unit) bson.D {
	r := RadiusToRadians(radius, unit)
	centerSphere := bson.D{{Key: "$centerSphere", Value: bson.A{bson.A{ra - 180, dec}, r}}}
	geoWithin := bson.D{{Key: "$geoWithin", Value: centerSphere}}

	out := make(bson.D, 0, len(base)+1)
	out = append(out, base...)
	out = append(out, bson.E{Key: "coordinates.radec_geojson", Value: geoWithin})
	return out
}
