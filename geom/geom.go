// Package geom has the small amount of vector maths the tracker and
// renderers need, on top of gonum's r2.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

func Diff(p, q r2.Vec) r2.Vec { return r2.Sub(p, q) }

func Add(p, q r2.Vec) r2.Vec { return r2.Add(p, q) }

func Len(p r2.Vec) float64 { return r2.Norm(p) }

func Distance(p, q r2.Vec) float64 { return r2.Norm(r2.Sub(p, q)) }

func Scale(f float64, p r2.Vec) r2.Vec { return r2.Scale(f, p) }

func Dot(p, q r2.Vec) float64 { return r2.Dot(p, q) }

// Unit returns the unit vector in the direction of p.
// ok is false for the zero vector and for non-finite p; r2.Unit would
// return NaNs there.
func Unit(p r2.Vec) (u r2.Vec, ok bool) {
	if !Finite(p) || (p.X == 0 && p.Y == 0) {
		return r2.Vec{}, false
	}
	u = r2.Unit(p)
	return u, Finite(u)
}

// Angle returns atan2(p.Y, p.X) in degrees.
func Angle(p r2.Vec) float64 {
	return math.Atan2(p.Y, p.X) / math.Pi * 180
}

func Finite(p r2.Vec) bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}
