// Package homing detects the homing gesture: a steady set of touches (five
// fingers by default) held in the setup phase for a debounce delay.
package homing

import (
	"time"

	"nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/clock"
)

type Conf struct {
	// Count is the number of touches that make up the gesture.
	Count int
	Delay time.Duration
}

func DefaultConf() Conf {
	return Conf{Count: 5, Delay: 500 * time.Millisecond}
}

// Detector owns at most one pending debounce timer.
//
// A Detector is not safe for concurrent use. The clock must run callbacks
// on the same goroutine that calls Observe/Cancel/Close (e.g. clock.Poster
// feeding an event loop, or clock.Manual).
type Detector struct {
	conf    Conf
	clock   clock.Clock
	onHome  func()
	pending clock.Timer
	// gen is bumped every time a timer is started or cancelled; a callback
	// only fires if its gen is still current.
	gen    uint64
	closed bool
}

// New makes a Detector. onHome is called once per completed debounce.
func New(conf Conf, c clock.Clock, onHome func()) *Detector {
	return &Detector{conf: conf, clock: c, onHome: onHome}
}

// Qualifies reports whether s is a state the gesture can start from.
func (d *Detector) Qualifies(s tegata.State) bool {
	return s.Phase == tegata.PhaseSetup && len(s.Touches) == d.conf.Count
}

// Observe must be called with every new state.
func (d *Detector) Observe(s tegata.State) {
	if d.closed {
		return
	}
	if !d.Qualifies(s) {
		d.Cancel()
		return
	}
	if d.pending != nil {
		return
	}
	d.gen++
	gen := d.gen
	d.pending = d.clock.AfterFunc(d.conf.Delay, func() { d.fire(gen) })
}

func (d *Detector) fire(gen uint64) {
	if d.closed || d.pending == nil || gen != d.gen {
		return
	}
	d.pending = nil
	d.onHome()
}

// Cancel drops the pending timer, if any.
func (d *Detector) Cancel() {
	if d.pending == nil {
		return
	}
	d.pending.Stop()
	d.pending = nil
	d.gen++
}

func (d *Detector) Pending() bool { return d.pending != nil }

// Close cancels the pending timer; the Detector ignores everything afterwards.
func (d *Detector) Close() {
	d.Cancel()
	d.closed = true
}
