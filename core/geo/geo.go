// Package geo holds the planar distance and stepping primitives shared by
// dispatch and the simulation clock. Coordinates are treated as a flat (lng,lat)
// plane: distances are Euclidean in degrees, not geodesic.
package geo

import (
	"math"
	"math/rand"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether both coordinates are finite numbers.
func (p Point) Valid() bool {
	return finite(p.Lat) && finite(p.Lng)
}

// Orb converts p to an orb point (x = lng, y = lat).
func (p Point) Orb() orb.Point { return orb.Point{p.Lng, p.Lat} }

func (p Point) vec() r2.Vec { return r2.Vec{X: p.Lng, Y: p.Lat} }

func fromVec(v r2.Vec) Point { return Point{Lat: v.Y, Lng: v.X} }

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

// Distance returns the straight-line distance between a and b.
func Distance(a, b Point) float64 {
	return planar.Distance(a.Orb(), b.Orb())
}

// StepToward moves from one step length toward to. When the remaining
// distance is shorter than step the result snaps to the destination and
// arrived is true.
func StepToward(from, to Point, step float64) (Point, bool) {
	delta := r2.Sub(to.vec(), from.vec())
	dist := r2.Norm(delta)
	if dist < step {
		return to, true
	}
	next := r2.Add(from.vec(), r2.Scale(step, r2.Unit(delta)))
	return fromVec(next), false
}

// Jitter offsets p by a uniform amount in [-spread/2, spread/2) on each axis.
func Jitter(p Point, spread float64, rng *rand.Rand) Point {
	return Point{
		Lat: p.Lat + (rng.Float64()-0.5)*spread,
		Lng: p.Lng + (rng.Float64()-0.5)*spread,
	}
}
