// Package clock abstracts delayed callbacks so that the homing debounce can
// run on wall-clock time, on an event loop, or on virtual time.
package clock

import (
	"sort"
	"sync"
	"time"
)

type Timer interface {
	// Stop prevents the callback from running.
	// It returns false if the callback already ran or was already stopped.
	Stop() bool
}

type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Real runs callbacks on their own goroutine via time.AfterFunc.
type Real struct{}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Poster runs callbacks through post, e.g. by sending them to an event loop.
type Poster struct {
	Post func(f func())
}

func (p Poster) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, func() { p.Post(f) })
}

// Manual is a virtual clock. Callbacks only run inside Advance/AdvanceTo,
// on the caller's goroutine.
type Manual struct {
	lock    sync.Mutex
	now     time.Duration
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	m       *Manual
	at      time.Duration
	seq     int
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	t.m.lock.Lock()
	defer t.m.lock.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func NewManual() *Manual {
	return &Manual{}
}

// Now returns the virtual time elapsed since the clock was made.
func (m *Manual) Now() time.Duration {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.now
}

func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (m *Manual) Advance(d time.Duration) {
	m.AdvanceTo(m.Now() + d)
}

// AdvanceTo moves virtual time forward to at, running due callbacks in
// deadline order (ties in creation order). Callbacks may create new timers;
// those also run if they fall due by at. Moving backwards does nothing.
func (m *Manual) AdvanceTo(at time.Duration) {
	for {
		t := m.next(at)
		if t == nil {
			break
		}
		t.f()
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	if at > m.now {
		m.now = at
	}
}

func (m *Manual) next(at time.Duration) *manualTimer {
	m.lock.Lock()
	defer m.lock.Unlock()
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.stopped {
			live = append(live, t)
		}
	}
	m.pending = live
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].at != m.pending[j].at {
			return m.pending[i].at < m.pending[j].at
		}
		return m.pending[i].seq < m.pending[j].seq
	})
	if len(m.pending) == 0 || m.pending[0].at > at {
		return nil
	}
	t := m.pending[0]
	t.stopped = true
	m.pending = m.pending[1:]
	if t.at > m.now {
		m.now = t.at
	}
	return t
}
