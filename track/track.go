// Package track associates live touches with home points and derives each
// home point's displacement.
package track

import (
	"fmt"
	"math"

	"nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/geom"
)

// DeadZone decides what happens to a home point's Adj when its nearest
// touch sits within half a pitch of it.
type DeadZone int

const (
	// DeadZonePreserve leaves Adj as it was.
	DeadZonePreserve DeadZone = iota
	// DeadZoneClear unsets Adj.
	DeadZoneClear
)

func (dz DeadZone) String() string {
	switch dz {
	case DeadZonePreserve:
		return "preserve"
	case DeadZoneClear:
		return "clear"
	default:
		return fmt.Sprintf("DeadZone(%d)", int(dz))
	}
}

func ParseDeadZone(s string) (DeadZone, error) {
	switch s {
	case "", "preserve":
		return DeadZonePreserve, nil
	case "clear":
		return DeadZoneClear, nil
	default:
		return 0, fmt.Errorf("unknown dead zone policy %q (want preserve or clear)", s)
	}
}

type Conf struct {
	// Pitch is the key pitch (cy) in mm.
	Pitch float64
	// Reject is the rejection radius as a multiple of Pitch.
	Reject   float64
	DeadZone DeadZone
}

func DefaultConf() Conf {
	return Conf{Pitch: 17, Reject: 1.5, DeadZone: DeadZonePreserve}
}

type Result int

const (
	Adjusted Result = iota
	InDeadZone
	// Skipped means the direction to the touch was degenerate.
	Skipped
)

func (r Result) String() string {
	switch r {
	case Adjusted:
		return "adjusted"
	case InDeadZone:
		return "dead-zone"
	case Skipped:
		return "skipped"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Association is one touch matched to one home point during a tick.
type Association struct {
	Touch    int
	Home     int
	Distance float64
	Result   Result
}

type Tracker struct {
	conf Conf
}

func New(conf Conf) *Tracker {
	return &Tracker{conf: conf}
}

func (t *Tracker) Conf() Conf { return t.conf }

// Nearest returns the home point nearest to touch, ignoring any farther
// than Reject×Pitch. On equal distances the earlier home wins.
func (t *Tracker) Nearest(touch tegata.Point, homes []tegata.HomePoint) (i int, d float64, ok bool) {
	limit := t.conf.Pitch * t.conf.Reject
	i = -1
	for j, home := range homes {
		d2 := geom.Distance(touch.Vec(), home.Vec())
		if math.IsNaN(d2) || d2 > limit {
			continue
		}
		if i == -1 || d2 < d {
			i, d = j, d2
		}
	}
	return i, d, i != -1
}

// Tick runs one association pass over s and returns the new state.
// s is not modified. Setup states are returned as-is.
//
// Touches are processed in the order of s.Touches. When several touches
// match the same home point, the last one in that order decides its Adj.
func (t *Tracker) Tick(s tegata.State) (tegata.State, []Association) {
	if !s.Homed() {
		return s, nil
	}
	s2 := s.Clone()
	var assocs []Association
	for ti, touch := range s2.Touches {
		hi, d, ok := t.Nearest(touch, s2.Homes)
		if !ok {
			continue
		}
		a := Association{Touch: ti, Home: hi, Distance: d}
		home := &s2.Homes[hi]
		if d > t.conf.Pitch/2 {
			u, ok := geom.Unit(geom.Diff(touch.Vec(), home.Vec()))
			if ok {
				adj := tegata.FromVec(geom.Scale(t.conf.Pitch, u))
				home.Adj = &adj
				a.Result = Adjusted
			} else {
				a.Result = Skipped
			}
		} else {
			a.Result = InDeadZone
			if t.conf.DeadZone == DeadZoneClear {
				home.Adj = nil
			}
		}
		assocs = append(assocs, a)
	}
	return s2, assocs
}
