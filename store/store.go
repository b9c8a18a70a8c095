// Package store runs a calibration session on a single event loop.
//
// Input, homing debounce callbacks, and tracker ticks are all serialised
// through one goroutine and never overlap, the way a UI thread would run
// them.
package store

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	. "nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/clock"
	"nyiyui.ca/hato/tegata/notify"
	"nyiyui.ca/hato/tegata/session"
	"nyiyui.ca/hato/tegata/trace"
	"nyiyui.ca/hato/tegata/track"
)

var ErrClosed = errors.New("store: closed")

type Conf struct {
	Session session.Conf
	// Tick is the tracker interval.
	Tick time.Duration
	// Recorder, if not nil, records every input event.
	Recorder *trace.Recorder
}

func DefaultConf() Conf {
	return Conf{
		Session: session.DefaultConf(),
		Tick:    10 * time.Millisecond,
	}
}

type Store struct {
	conf    Conf
	events  chan func(*session.Session)
	done    chan struct{}
	started chan struct{}
	mux     *notify.Multiplexer[State]
}

func New(conf Conf) *Store {
	if conf.Tick <= 0 {
		conf.Tick = DefaultConf().Tick
	}
	return &Store{
		conf:    conf,
		events:  make(chan func(*session.Session)),
		done:    make(chan struct{}),
		started: make(chan struct{}),
		mux:     notify.NewMultiplexer[State]("store"),
	}
}

// Subscribe adds c to the receivers of every new state.
// c should be buffered; values a full channel can't take are dropped.
func (st *Store) Subscribe(comment string, c chan State) { st.mux.Subscribe(comment, c) }

func (st *Store) Unsubscribe(c chan State) { st.mux.Unsubscribe(c) }

// Run runs the event loop until ctx is done.
// On return the homing debounce and the ticker are stopped.
func (st *Store) Run(ctx context.Context) error {
	select {
	case <-st.started:
		return errors.New("store: already running")
	default:
		close(st.started)
	}
	defer close(st.done)

	post := func(f func()) {
		select {
		case st.events <- func(*session.Session) { f() }:
		case <-st.done:
		case <-ctx.Done():
		}
	}
	s := session.New(st.conf.Session, clock.Poster{Post: post},
		session.WithOnChange(st.mux.Send),
		session.WithLogger(zap.S().With("component", "store")),
	)
	defer s.Close()
	st.mux.Send(s.State())

	ticker := time.NewTicker(st.conf.Tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-st.events:
			f(s)
		case <-ticker.C:
			s.Tick()
		}
	}
}

func (st *Store) do(ctx context.Context, f func(*session.Session)) error {
	finished := make(chan struct{})
	g := func(s *session.Session) {
		defer close(finished)
		f(s)
	}
	select {
	case st.events <- g:
	case <-st.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// SetTouches replaces the live touches. Input events are recorded on the
// loop goroutine, so the trace keeps the order they were applied in.
func (st *Store) SetTouches(ctx context.Context, touches []Point) error {
	return st.do(ctx, func(s *session.Session) {
		if st.conf.Recorder != nil {
			if err := st.conf.Recorder.Touches(touches); err != nil {
				zap.S().Warnw("record touches", "err", err)
			}
		}
		s.SetTouches(touches)
	})
}

// Reset goes back to setup from any phase.
func (st *Store) Reset(ctx context.Context) error {
	return st.do(ctx, func(s *session.Session) {
		if st.conf.Recorder != nil {
			if err := st.conf.Recorder.Reset(); err != nil {
				zap.S().Warnw("record reset", "err", err)
			}
		}
		s.Reset()
	})
}

func (st *Store) Snapshot(ctx context.Context) (State, error) {
	var state State
	err := st.do(ctx, func(s *session.Session) { state = s.State().Clone() })
	return state, err
}

// Associations returns what the last tracker tick matched.
func (st *Store) Associations(ctx context.Context) ([]track.Association, error) {
	var assocs []track.Association
	err := st.do(ctx, func(s *session.Session) {
		assocs = append(assocs, s.Associations()...)
	})
	return assocs, err
}

// HomingPending reports whether the homing debounce is running.
func (st *Store) HomingPending(ctx context.Context) (bool, error) {
	var pending bool
	err := st.do(ctx, func(s *session.Session) { pending = s.HomingPending() })
	return pending, err
}
