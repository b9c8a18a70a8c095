// Package session ties the homing detector and the tracker to one
// calibration state.
package session

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
	. "nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/clock"
	"nyiyui.ca/hato/tegata/homing"
	"nyiyui.ca/hato/tegata/track"
)

type Conf struct {
	Homing homing.Conf
	Track  track.Conf
}

func DefaultConf() Conf {
	return Conf{
		Homing: homing.DefaultConf(),
		Track:  track.DefaultConf(),
	}
}

type Option func(s *Session)

// WithOnChange sets a callback run after every state change.
func WithOnChange(f func(State)) Option {
	return func(s *Session) { s.onChange = f }
}

func WithLogger(l *zap.SugaredLogger) Option {
	return func(s *Session) { s.log = l }
}

// WithSessionID replaces the generator of homing session IDs.
func WithSessionID(f func() uuid.UUID) Option {
	return func(s *Session) { s.newID = f }
}

// Session is the single-threaded core: every method must be called from the
// same goroutine, which must also be where the clock runs callbacks.
type Session struct {
	state    State
	assocs   []track.Association
	detector *homing.Detector
	tracker  *track.Tracker
	onChange func(State)
	newID    func() uuid.UUID
	log      *zap.SugaredLogger
	closed   bool
}

func New(conf Conf, c clock.Clock, opts ...Option) *Session {
	s := &Session{
		state:   Setup(),
		tracker: track.New(conf.Track),
		newID:   uuid.New,
		log:     zap.S(),
	}
	s.detector = homing.New(conf.Homing, c, s.home)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) State() State { return s.state }

// Associations returns what the last tick matched.
func (s *Session) Associations() []track.Association { return s.assocs }

// HomingPending reports whether the homing debounce is running.
func (s *Session) HomingPending() bool { return s.detector.Pending() }

func (s *Session) set(s2 State) {
	if s2.Equal(s.state) {
		return
	}
	s.state = s2
	if s.onChange != nil {
		s.onChange(s2)
	}
}

// SetTouches replaces the live touches.
func (s *Session) SetTouches(touches []Point) {
	if s.closed {
		return
	}
	s.set(s.state.WithTouches(touches))
	s.detector.Observe(s.state)
}

func (s *Session) home() {
	s2 := s.state.Home(s.newID())
	s.log.Infow("homed", "session", s2.Session, "homes", s2.Homes)
	s.set(s2)
}

// Reset discards everything and goes back to setup.
func (s *Session) Reset() {
	if s.closed {
		return
	}
	s.detector.Cancel()
	s.assocs = nil
	if s.state.Homed() {
		s.log.Infow("reset", "session", s.state.Session)
	}
	s.set(Setup())
}

// Tick runs the tracker once.
func (s *Session) Tick() {
	if s.closed || !s.state.Homed() {
		return
	}
	s2, assocs := s.tracker.Tick(s.state)
	s.assocs = assocs
	s.set(s2)
}

// Close cancels the homing debounce. The Session ignores all calls afterwards.
func (s *Session) Close() {
	if s.closed {
		return
	}
	s.detector.Close()
	s.closed = true
}
