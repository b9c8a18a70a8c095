package tegata

import (
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/spatial/r2"
)

// Point is a position on the touch surface in mm.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Vec() r2.Vec { return r2.Vec{X: p.X, Y: p.Y} }

func FromVec(v r2.Vec) Point { return Point{X: v.X, Y: v.Y} }

func (p Point) String() string {
	return fmt.Sprintf("(%.2f, %.2f)", p.X, p.Y)
}

// HomePoint is a reference point fixed when the layout was homed.
type HomePoint struct {
	Point
	// Adj is the displacement the nearest live touch dragged this point by.
	// nil means unset.
	Adj *Point `json:"adj,omitempty"`
}

func (h HomePoint) clone() HomePoint {
	if h.Adj != nil {
		adj := *h.Adj
		h.Adj = &adj
	}
	return h
}

func (h HomePoint) equal(h2 HomePoint) bool {
	if h.Point != h2.Point {
		return false
	}
	if (h.Adj == nil) != (h2.Adj == nil) {
		return false
	}
	return h.Adj == nil || *h.Adj == *h2.Adj
}

type Phase int

const (
	PhaseSetup Phase = iota
	PhaseHomed
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseHomed:
		return "homed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	switch string(text) {
	case "setup":
		*p = PhaseSetup
	case "homed":
		*p = PhaseHomed
	default:
		return fmt.Errorf("unknown phase %q", text)
	}
	return nil
}

// State is the whole calibration state.
// In PhaseSetup, Homes is nil and Session is uuid.Nil.
// In PhaseHomed, Homes is fixed (in position and count) until the next reset.
//
// State values are treated as immutable; every operation returns a copy.
type State struct {
	Phase   Phase       `json:"phase"`
	Homes   []HomePoint `json:"homes,omitempty"`
	Touches []Point     `json:"touches"`
	// Session identifies one homing; a new one is made every time the layout is homed.
	Session uuid.UUID `json:"session"`
}

// Setup returns the initial (and post-reset) state.
func Setup() State {
	return State{Phase: PhaseSetup, Touches: []Point{}}
}

func (s State) Homed() bool { return s.Phase == PhaseHomed }

func (s State) Clone() State {
	s2 := State{
		Phase:   s.Phase,
		Touches: slices.Clone(s.Touches),
		Session: s.Session,
	}
	if s2.Touches == nil {
		s2.Touches = []Point{}
	}
	if s.Homes != nil {
		s2.Homes = make([]HomePoint, len(s.Homes))
		for i, h := range s.Homes {
			s2.Homes[i] = h.clone()
		}
	}
	return s2
}

// WithTouches returns a copy of s with the live touches replaced.
func (s State) WithTouches(touches []Point) State {
	s2 := s.Clone()
	s2.Touches = slices.Clone(touches)
	if s2.Touches == nil {
		s2.Touches = []Point{}
	}
	return s2
}

// Home promotes the current touches to home points.
// Both Homes and Touches are set from the same touch list.
// Homing an already homed state returns it unchanged.
func (s State) Home(session uuid.UUID) State {
	if s.Phase == PhaseHomed {
		return s
	}
	homes := make([]HomePoint, len(s.Touches))
	for i, t := range s.Touches {
		homes[i] = HomePoint{Point: t}
	}
	return State{
		Phase:   PhaseHomed,
		Homes:   homes,
		Touches: s.Clone().Touches,
		Session: session,
	}
}

func (s State) Equal(s2 State) bool {
	if s.Phase != s2.Phase || s.Session != s2.Session {
		return false
	}
	if !slices.Equal(s.Touches, s2.Touches) {
		return false
	}
	return slices.EqualFunc(s.Homes, s2.Homes, HomePoint.equal)
}

func (s State) String() string {
	return fmt.Sprintf("%s homes%d touches%v", s.Phase, len(s.Homes), s.Touches)
}
