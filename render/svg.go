// Package render draws a calibration state as SVG, in mm.
package render

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r2"
	"nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/geom"
)

const (
	HomeColour  = "#0000ff"
	RingColour  = "#0000ff80"
	TouchColour = "#ff000080"
	// TouchRadius is the radius of the live touch markers.
	TouchRadius = 4
)

type Style struct {
	// Pitch is the key pitch (cy).
	Pitch float64
	// KeyWidth is the horizontal key pitch (cx).
	KeyWidth float64
	// Cap is the keycap size.
	Cap float64
}

func DefaultStyle() Style {
	return Style{Pitch: 17, KeyWidth: 18, Cap: 16}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SVG returns the SVG elements (without the root element) for s.
func SVG(s tegata.State, st Style) string {
	b := new(strings.Builder)
	for _, h := range s.Homes {
		home(b, h, st)
	}
	for _, t := range s.Touches {
		fmt.Fprintf(b, `<circle r="%s" cx="%s" cy="%s" fill="%s"/>`, num(TouchRadius), num(t.X), num(t.Y), TouchColour)
	}
	return b.String()
}

func home(b *strings.Builder, h tegata.HomePoint, st Style) {
	if h.Adj == nil {
		fmt.Fprintf(b, `<circle r="%s" cx="%s" cy="%s" fill="%s"/>`, num(st.Pitch/2), num(h.X), num(h.Y), HomeColour)
	} else {
		angle := geom.Angle(h.Adj.Vec())
		rect := fmt.Sprintf(`<rect width="%s" height="%s" transform="rotate(%s, %s, %s)"/>`,
			num(st.Cap), num(st.Cap), num(angle), num(st.Cap/2), num(st.Cap/2))
		fmt.Fprintf(b, `<g transform="translate(%s, %s)">`, num(h.X-st.KeyWidth/2), num(h.Y-st.Pitch/2))
		b.WriteString(rect)
		fmt.Fprintf(b, `<g transform="translate(%s, %s)">%s</g>`, num(h.Adj.X), num(h.Adj.Y), rect)
		fmt.Fprintf(b, `<g transform="translate(%s, %s)">%s</g>`, num(-h.Adj.X), num(-h.Adj.Y), rect)
		b.WriteString(`</g>`)
	}
	fmt.Fprintf(b, `<circle r="%s" cx="%s" cy="%s" fill="%s"/>`, num(st.Pitch), num(h.X), num(h.Y), RingColour)
}

// Document wraps SVG in a root element with a viewBox of width×height mm.
func Document(s tegata.State, st Style, width, height float64) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %s %s">%s</svg>`, num(width), num(height), SVG(s, st))
}

// KeyQuads returns the corners (clockwise, in mm) of the three keycaps drawn
// for an adjusted home point: the key itself, then the ones at +Adj and -Adj.
// It returns nil when Adj is unset.
func KeyQuads(h tegata.HomePoint, st Style) [][4]tegata.Point {
	if h.Adj == nil {
		return nil
	}
	alpha := geom.Angle(h.Adj.Vec()) / 180 * math.Pi
	centre := r2.Vec{X: h.X - st.KeyWidth/2 + st.Cap/2, Y: h.Y - st.Pitch/2 + st.Cap/2}
	half := st.Cap / 2
	quads := make([][4]tegata.Point, 0, 3)
	for _, k := range []float64{0, 1, -1} {
		c := geom.Add(centre, geom.Scale(k, h.Adj.Vec()))
		var q [4]tegata.Point
		for i, corner := range [4]r2.Vec{{X: -half, Y: -half}, {X: half, Y: -half}, {X: half, Y: half}, {X: -half, Y: half}} {
			q[i] = tegata.FromVec(r2.Rotate(geom.Add(c, corner), alpha, c))
		}
		quads = append(quads, q)
	}
	return quads
}
