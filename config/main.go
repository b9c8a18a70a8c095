package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"nyiyui.ca/hato/tegata/dim"
	"nyiyui.ca/hato/tegata/export"
	"nyiyui.ca/hato/tegata/homing"
	"nyiyui.ca/hato/tegata/render"
	"nyiyui.ca/hato/tegata/session"
	"nyiyui.ca/hato/tegata/store"
	"nyiyui.ca/hato/tegata/track"
)

type Config struct {
	Listen string `yaml:"listen" json:"listen"`
	// DotPitch is mm per display pixel.
	DotPitch float64 `yaml:"dot-pitch" json:"dot-pitch"`
	// Pitch is the vertical key pitch (cy) in mm.
	Pitch float64 `yaml:"pitch" json:"pitch"`
	// KeyWidth is the horizontal key pitch (cx) in mm.
	KeyWidth float64 `yaml:"key-width" json:"key-width"`
	Cap      float64 `yaml:"cap" json:"cap"`
	// Reject is the association radius as a multiple of Pitch.
	Reject      float64       `yaml:"reject" json:"reject"`
	DeadZone    string        `yaml:"dead-zone" json:"dead-zone"`
	HomingCount int           `yaml:"homing-count" json:"homing-count"`
	Debounce    time.Duration `yaml:"debounce" json:"debounce"`
	Tick        time.Duration `yaml:"tick" json:"tick"`
	ExportPath  string        `yaml:"export-path" json:"export-path"`
	// TracePath, if set, is where input events are recorded.
	TracePath string `yaml:"trace-path" json:"trace-path"`
}

func Default() Config {
	return Config{
		Listen:      "0.0.0.0:8001",
		DotPitch:    0.2646, // 96 dpi
		Pitch:       17,
		KeyWidth:    18,
		Cap:         16,
		Reject:      1.5,
		DeadZone:    "preserve",
		HomingCount: 5,
		Debounce:    500 * time.Millisecond,
		Tick:        10 * time.Millisecond,
		ExportPath:  export.Filename,
	}
}

// Load reads path over the defaults. A missing file gives the defaults.
func Load(path string) (Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func positive(name string, f float64) error {
	if !(f > 0) || math.IsInf(f, 0) {
		return fmt.Errorf("%s: must be positive, got %v", name, f)
	}
	return nil
}

func (c Config) Validate() error {
	errs := []error{
		positive("dot-pitch", c.DotPitch),
		positive("pitch", c.Pitch),
		positive("key-width", c.KeyWidth),
		positive("cap", c.Cap),
		positive("reject", c.Reject),
	}
	if _, err := track.ParseDeadZone(c.DeadZone); err != nil {
		errs = append(errs, fmt.Errorf("dead-zone: %w", err))
	}
	if c.HomingCount < 1 {
		errs = append(errs, fmt.Errorf("homing-count: must be at least 1, got %d", c.HomingCount))
	}
	if c.Debounce < 0 {
		errs = append(errs, fmt.Errorf("debounce: must not be negative, got %s", c.Debounce))
	}
	if c.Tick <= 0 {
		errs = append(errs, fmt.Errorf("tick: must be positive, got %s", c.Tick))
	}
	return errors.Join(errs...)
}

func (c Config) Track() track.Conf {
	dz, _ := track.ParseDeadZone(c.DeadZone)
	return track.Conf{Pitch: c.Pitch, Reject: c.Reject, DeadZone: dz}
}

func (c Config) Session() session.Conf {
	return session.Conf{
		Homing: homing.Conf{Count: c.HomingCount, Delay: c.Debounce},
		Track:  c.Track(),
	}
}

func (c Config) Store() store.Conf {
	return store.Conf{Session: c.Session(), Tick: c.Tick}
}

func (c Config) Export() export.Conf {
	return export.Conf{Pitch: c.Pitch}
}

func (c Config) Style() render.Style {
	return render.Style{Pitch: c.Pitch, KeyWidth: c.KeyWidth, Cap: c.Cap}
}

func (c Config) Dimensions() (dim.Dimensions, error) {
	return dim.New(c.DotPitch)
}
