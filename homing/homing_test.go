package homing

import (
	"testing"
	"time"

	"nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/clock"
)

func touches(n int) tegata.State {
	ts := make([]tegata.Point, n)
	for i := range ts {
		ts[i] = tegata.Point{X: float64(i) * 19, Y: 40}
	}
	return tegata.Setup().WithTouches(ts)
}

func newDetector() (*Detector, *clock.Manual, *int) {
	m := clock.NewManual()
	fired := new(int)
	d := New(DefaultConf(), m, func() { *fired++ })
	return d, m, fired
}

func TestHomingSteady(t *testing.T) {
	d, m, fired := newDetector()
	d.Observe(touches(5))
	m.Advance(499 * time.Millisecond)
	if *fired != 0 {
		t.Fatal("fired before the delay")
	}
	// moving fingers keeps the count at 5; no second timer
	d.Observe(touches(5))
	d.Observe(touches(5))
	if m.Pending() != 1 {
		t.Fatalf("pending timers = %d", m.Pending())
	}
	m.Advance(time.Millisecond)
	if *fired != 1 {
		t.Fatalf("fired %d times", *fired)
	}
	if d.Pending() {
		t.Fatal("still pending after firing")
	}
	m.Advance(time.Second)
	if *fired != 1 {
		t.Fatalf("fired %d times", *fired)
	}
}

func TestHomingWrongCount(t *testing.T) {
	for _, n := range []int{0, 1, 4, 6, 10} {
		d, m, fired := newDetector()
		d.Observe(touches(n))
		m.Advance(time.Second)
		if *fired != 0 || d.Pending() {
			t.Fatalf("%d touches: fired=%d pending=%t", n, *fired, d.Pending())
		}
	}
}

func TestHomingInterrupted(t *testing.T) {
	d, m, fired := newDetector()
	d.Observe(touches(5))
	m.Advance(300 * time.Millisecond)
	d.Observe(touches(4))
	if d.Pending() || m.Pending() != 0 {
		t.Fatal("timer not cancelled")
	}
	d.Observe(touches(5))
	// the first timer would have fired at 500ms
	m.Advance(300 * time.Millisecond)
	if *fired != 0 {
		t.Fatal("partial debounce carried over")
	}
	m.Advance(200 * time.Millisecond)
	if *fired != 1 {
		t.Fatalf("fired %d times", *fired)
	}
}

func TestHomingNotInSetup(t *testing.T) {
	d, m, fired := newDetector()
	s := touches(5).Home(tegata.Setup().Session)
	d.Observe(s)
	m.Advance(time.Second)
	if *fired != 0 {
		t.Fatal("fired while homed")
	}
}

func TestHomingClose(t *testing.T) {
	d, m, fired := newDetector()
	d.Observe(touches(5))
	d.Close()
	if m.Pending() != 0 {
		t.Fatal("timer left pending after Close")
	}
	d.Observe(touches(5))
	m.Advance(time.Second)
	if *fired != 0 {
		t.Fatal("fired after Close")
	}
}

// stuckTimer models a timer whose callback was already queued when Stop was called.
type stuckClock struct{ fs []func() }

type stuckTimer struct{}

func (stuckTimer) Stop() bool { return false }

func (c *stuckClock) AfterFunc(_ time.Duration, f func()) clock.Timer {
	c.fs = append(c.fs, f)
	return stuckTimer{}
}

func TestHomingStaleCallback(t *testing.T) {
	c := new(stuckClock)
	fired := 0
	d := New(DefaultConf(), c, func() { fired++ })
	d.Observe(touches(5))
	d.Observe(touches(3))
	d.Observe(touches(5))
	if len(c.fs) != 2 {
		t.Fatalf("timers = %d", len(c.fs))
	}
	c.fs[0]()
	if fired != 0 {
		t.Fatal("stale callback fired")
	}
	c.fs[1]()
	if fired != 1 {
		t.Fatalf("fired %d times", fired)
	}
}
