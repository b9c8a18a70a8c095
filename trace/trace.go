// Package trace records the input events of a calibration and replays them
// offline on virtual time.
package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/clock"
	"nyiyui.ca/hato/tegata/session"
)

type Kind string

const (
	KindTouches Kind = "touches"
	KindReset   Kind = "reset"
)

// Record is one input event. At is the time since recording started.
type Record struct {
	At      time.Duration  `json:"at"`
	Kind    Kind           `json:"kind"`
	Touches []tegata.Point `json:"touches,omitempty"`
}

// Recorder writes one JSON Record per line.
type Recorder struct {
	lock  sync.Mutex
	enc   *json.Encoder
	start time.Time
	now   func() time.Time
}

func NewRecorder(w io.Writer) *Recorder {
	r := &Recorder{enc: json.NewEncoder(w), now: time.Now}
	r.start = r.now()
	return r
}

func (r *Recorder) record(rec Record) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	rec.At = r.now().Sub(r.start)
	if err := r.enc.Encode(rec); err != nil {
		return fmt.Errorf("trace: record %s: %w", rec.Kind, err)
	}
	return nil
}

func (r *Recorder) Touches(touches []tegata.Point) error {
	return r.record(Record{Kind: KindTouches, Touches: touches})
}

func (r *Recorder) Reset() error {
	return r.record(Record{Kind: KindReset})
}

func Read(r io.Reader) ([]Record, error) {
	var recs []Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		switch rec.Kind {
		case KindTouches, KindReset:
		default:
			return nil, fmt.Errorf("line %d: unknown kind %q", line, rec.Kind)
		}
		if len(recs) > 0 && rec.At < recs[len(recs)-1].At {
			return nil, fmt.Errorf("line %d: time goes backwards (%s after %s)", line, rec.At, recs[len(recs)-1].At)
		}
		recs = append(recs, rec)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}

// Replay feeds recs into a fresh session on virtual time and returns the
// final state. Homing debounces that are still pending at the end are
// allowed to complete. Session IDs are derived from the homing order so the
// result only depends on recs.
func Replay(recs []Record, conf session.Conf) tegata.State {
	m := clock.NewManual()
	homings := 0
	s := session.New(conf, m, session.WithSessionID(func() uuid.UUID {
		homings++
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("tegata-replay-%d", homings)))
	}))
	defer s.Close()
	for _, rec := range recs {
		m.AdvanceTo(rec.At)
		s.Tick()
		switch rec.Kind {
		case KindTouches:
			s.SetTouches(rec.Touches)
		case KindReset:
			s.Reset()
		}
		s.Tick()
	}
	m.Advance(conf.Homing.Delay)
	s.Tick()
	return s.State()
}
