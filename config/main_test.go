package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"nyiyui.ca/hato/tegata/track"
)

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMissing(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(Default(), c); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tegata.yml")
	err := os.WriteFile(path, []byte("dot-pitch: 0.1\npitch: 19\ndead-zone: clear\ndebounce: 750ms\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	want.DotPitch = 0.1
	want.Pitch = 19
	want.DeadZone = "clear"
	want.Debounce = 750 * time.Millisecond
	if diff := cmp.Diff(want, c); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if c.Track().DeadZone != track.DeadZoneClear {
		t.Fatalf("dead zone %s", c.Track().DeadZone)
	}
	if c.Session().Homing.Delay != 750*time.Millisecond {
		t.Fatalf("delay %s", c.Session().Homing.Delay)
	}
}

func TestValidate(t *testing.T) {
	c := Default()
	c.Pitch = 0
	c.DeadZone = "maybe"
	c.HomingCount = 0
	err := c.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, field := range []string{"pitch", "dead-zone", "homing-count"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error does not mention %s: %s", field, err)
		}
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tegata.yml")
	if err := os.WriteFile(path, []byte("tick: 0s\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error")
	}
}
