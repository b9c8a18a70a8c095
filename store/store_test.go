package store

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
	. "nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/trace"
)

func hand() []Point {
	return []Point{
		{X: 20, Y: 60},
		{X: 39, Y: 45},
		{X: 58, Y: 40},
		{X: 77, Y: 45},
		{X: 100, Y: 80},
	}
}

func testConf() Conf {
	conf := DefaultConf()
	conf.Session.Homing.Delay = 20 * time.Millisecond
	conf.Tick = time.Millisecond
	return conf
}

func start(t *testing.T, conf Conf) (*Store, context.CancelFunc, chan error) {
	st := New(conf)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- st.Run(ctx) }()
	return st, cancel, errCh
}

func waitFor(t *testing.T, c chan State, f func(State) bool) State {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case s := <-c:
			if f(s) {
				return s
			}
		case <-timeout:
			t.Fatal("timed out")
		}
	}
}

func TestStoreHomeAndDrag(t *testing.T) {
	defer goleak.VerifyNone(t)
	conf := testConf()
	st := New(conf)
	c := make(chan State, 100)
	st.Subscribe("test", c)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- st.Run(ctx) }()

	ctx2 := context.Background()
	if err := st.SetTouches(ctx2, hand()); err != nil {
		t.Fatal(err)
	}
	homed := waitFor(t, c, State.Homed)
	if diff := cmp.Diff(hand(), homed.Touches); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	h := hand()
	if err := st.SetTouches(ctx2, []Point{{X: h[2].X, Y: h[2].Y + 20}}); err != nil {
		t.Fatal(err)
	}
	adjusted := waitFor(t, c, func(s State) bool { return s.Homed() && s.Homes[2].Adj != nil })
	if diff := cmp.Diff(&Point{X: 0, Y: 17}, adjusted.Homes[2].Adj); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	assocs, err := st.Associations(ctx2)
	if err != nil {
		t.Fatal(err)
	}
	if len(assocs) != 1 || assocs[0].Home != 2 {
		t.Fatalf("associations %#v", assocs)
	}

	if err := st.Reset(ctx2); err != nil {
		t.Fatal(err)
	}
	snap, err := st.Snapshot(ctx2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Setup(), snap); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Fatalf("run: %v", err)
	}
	if err := st.SetTouches(ctx2, nil); !errors.Is(err, ErrClosed) {
		t.Fatalf("after close: %v", err)
	}
}

func TestStoreTeardownCancelsDebounce(t *testing.T) {
	defer goleak.VerifyNone(t)
	conf := testConf()
	conf.Session.Homing.Delay = time.Hour
	st, cancel, errCh := start(t, conf)
	if err := st.SetTouches(context.Background(), hand()); err != nil {
		t.Fatal(err)
	}
	pending, err := st.HomingPending(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !pending {
		t.Fatal("debounce not pending")
	}
	cancel()
	<-errCh
}

func TestStoreInterruptedGesture(t *testing.T) {
	defer goleak.VerifyNone(t)
	conf := testConf()
	conf.Session.Homing.Delay = 200 * time.Millisecond
	st, cancel, errCh := start(t, conf)
	defer func() {
		cancel()
		<-errCh
	}()
	ctx := context.Background()
	if err := st.SetTouches(ctx, hand()); err != nil {
		t.Fatal(err)
	}
	if err := st.SetTouches(ctx, hand()[:4]); err != nil {
		t.Fatal(err)
	}
	pending, err := st.HomingPending(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if pending {
		t.Fatal("debounce survived a count change")
	}
	time.Sleep(300 * time.Millisecond)
	snap, err := st.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Homed() {
		t.Fatal("homed after interrupted gesture")
	}
}

func TestStoreRecorder(t *testing.T) {
	defer goleak.VerifyNone(t)
	buf := new(bytes.Buffer)
	conf := testConf()
	conf.Recorder = trace.NewRecorder(buf)
	st, cancel, errCh := start(t, conf)
	ctx := context.Background()
	if err := st.SetTouches(ctx, hand()[:2]); err != nil {
		t.Fatal(err)
	}
	if err := st.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	cancel()
	<-errCh
	recs, err := trace.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Kind != trace.KindTouches || recs[1].Kind != trace.KindReset {
		t.Fatalf("records %#v", recs)
	}
}

func TestStoreRecorderConcurrent(t *testing.T) {
	defer goleak.VerifyNone(t)
	buf := new(bytes.Buffer)
	conf := testConf()
	conf.Recorder = trace.NewRecorder(buf)
	st, cancel, errCh := start(t, conf)
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := st.SetTouches(ctx, []Point{{X: float64(i), Y: 1}}); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()
	final, err := st.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	<-errCh
	recs, err := trace.Read(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 20 {
		t.Fatalf("%d records", len(recs))
	}
	// the last record is the one applied last
	if diff := cmp.Diff(final.Touches, recs[len(recs)-1].Touches); diff != "" {
		t.Fatalf("(-applied +recorded):\n%s", diff)
	}
	replayed := trace.Replay(recs, conf.Session)
	if diff := cmp.Diff(final.Touches, replayed.Touches); diff != "" {
		t.Fatalf("(-applied +replayed):\n%s", diff)
	}
}

func TestStoreRunTwice(t *testing.T) {
	defer goleak.VerifyNone(t)
	st, cancel, errCh := start(t, testConf())
	// wait until the first Run owns the loop
	if _, err := st.Snapshot(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := st.Run(context.Background()); err == nil {
		t.Fatal("second Run succeeded")
	}
	cancel()
	<-errCh
}
