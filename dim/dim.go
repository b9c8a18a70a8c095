// Package dim converts between display pixels and physical millimetres.
package dim

import (
	"errors"
	"fmt"
	"math"

	"nyiyui.ca/hato/tegata"
)

var ErrInvalidDotPitch = errors.New("dot pitch must be positive and finite")

// PixelPoint is a raw contact position in display pixels.
type PixelPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Dimensions knows the physical size of one pixel.
type Dimensions struct {
	dotPitch float64
}

// New takes the dot pitch in mm per pixel.
func New(dotPitch float64) (Dimensions, error) {
	if !(dotPitch > 0) || math.IsInf(dotPitch, 0) {
		return Dimensions{}, fmt.Errorf("%w: %v", ErrInvalidDotPitch, dotPitch)
	}
	return Dimensions{dotPitch: dotPitch}, nil
}

func (d Dimensions) DotPitch() float64 { return d.dotPitch }

func (d Dimensions) PxToMm(px float64) float64 { return px * d.dotPitch }

func (d Dimensions) MmToPx(mm float64) float64 { return mm / d.dotPitch }

func (d Dimensions) Point(p PixelPoint) tegata.Point {
	return tegata.Point{X: d.PxToMm(p.X), Y: d.PxToMm(p.Y)}
}

// Points converts a whole contact list, keeping its order.
func (d Dimensions) Points(ps []PixelPoint) []tegata.Point {
	out := make([]tegata.Point, len(ps))
	for i, p := range ps {
		out[i] = d.Point(p)
	}
	return out
}
