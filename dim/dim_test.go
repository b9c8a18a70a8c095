package dim

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"nyiyui.ca/hato/tegata"
)

func TestPoints(t *testing.T) {
	d, err := New(0.25)
	if err != nil {
		t.Fatal(err)
	}
	got := d.Points([]PixelPoint{{X: 4, Y: 8}, {X: 0, Y: 100}})
	want := []tegata.Point{{X: 1, Y: 2}, {X: 0, Y: 25}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if px := d.MmToPx(d.PxToMm(123)); px != 123 {
		t.Fatalf("round trip: %v", px)
	}
}

func TestNewInvalid(t *testing.T) {
	for _, dp := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if _, err := New(dp); !errors.Is(err, ErrInvalidDotPitch) {
			t.Fatalf("%v: %v", dp, err)
		}
	}
}
