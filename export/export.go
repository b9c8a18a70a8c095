// Package export projects a homed layout onto an Ergogen points config.
package export

import (
	"bytes"
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
	"nyiyui.ca/hato/tegata"
	"nyiyui.ca/hato/tegata/geom"
)

// Filename is the name the export is offered for download as.
const Filename = "ergogen.yml"

type Document struct {
	Points *Points `yaml:"points,omitempty"`
}

type Points struct {
	Key   GlobalKey `yaml:"key"`
	Zones Zones     `yaml:"zones"`
}

type GlobalKey struct {
	Padding float64 `yaml:"padding"`
	Stagger float64 `yaml:"stagger"`
}

type Zone struct {
	Key     ZoneKey         `yaml:"key"`
	Columns map[string]*Nil `yaml:"columns"`
	Rows    map[string]*Nil `yaml:"rows"`
}

// Nil is always encoded as null; Ergogen only looks at the keys.
type Nil struct{}

type ZoneKey struct {
	Adjust Adjust `yaml:"adjust"`
	// Splay is in degrees.
	Splay  float64    `yaml:"splay"`
	Origin [2]float64 `yaml:"origin"`
}

type Adjust struct {
	Shift [2]float64 `yaml:"shift"`
}

// MarshalYAML writes a negative zero shift as -0.0, the way Ergogen configs
// written by other tools spell it.
func (a Adjust) MarshalYAML() (interface{}, error) {
	shift := new(yaml.Node)
	if err := shift.Encode(a.Shift); err != nil {
		return nil, fmt.Errorf("shift: %w", err)
	}
	for i, f := range a.Shift {
		if f == 0 && math.Signbit(f) {
			shift.Content[i].Tag = "!!float"
			shift.Content[i].Value = "-0.0"
		}
	}
	return &yaml.Node{Kind: yaml.MappingNode, Content: []*yaml.Node{
		{Kind: yaml.ScalarNode, Tag: "!!str", Value: "shift"},
		shift,
	}}, nil
}

type NamedZone struct {
	Name string
	Zone Zone
}

// Zones is an ordered mapping; it encodes in slice order.
type Zones []NamedZone

func (zs Zones) MarshalYAML() (interface{}, error) {
	n := &yaml.Node{Kind: yaml.MappingNode}
	for _, z := range zs {
		v := new(yaml.Node)
		if err := v.Encode(z.Zone); err != nil {
			return nil, fmt.Errorf("zone %s: %w", z.Name, err)
		}
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: z.Name}, v)
	}
	return n, nil
}

func (zs *Zones) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: zones must be a mapping", n.Line)
	}
	zs2 := make(Zones, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var z Zone
		if err := n.Content[i+1].Decode(&z); err != nil {
			return fmt.Errorf("zone %s: %w", n.Content[i].Value, err)
		}
		zs2 = append(zs2, NamedZone{Name: n.Content[i].Value, Zone: z})
	}
	*zs = zs2
	return nil
}

type Conf struct {
	// Pitch is the key pitch (cy) in mm.
	Pitch float64
}

// Splay returns the zone rotation for a home point, in degrees.
func Splay(h tegata.HomePoint) float64 {
	if h.Adj == nil {
		return 0
	}
	return -(geom.Angle(h.Adj.Vec()) + 90)
}

// Project builds the document for s. Setup states give an empty document.
func Project(s tegata.State, conf Conf) Document {
	if !s.Homed() {
		return Document{}
	}
	zones := make(Zones, len(s.Homes))
	for i, h := range s.Homes {
		zones[i] = NamedZone{
			Name: fmt.Sprintf("zone%d", i),
			Zone: Zone{
				Key: ZoneKey{
					Adjust: Adjust{Shift: [2]float64{h.X, -h.Y}},
					Splay:  Splay(h),
					Origin: [2]float64{h.X, conf.Pitch - h.Y},
				},
				Columns: map[string]*Nil{"col": nil},
				Rows:    map[string]*Nil{"bottom": nil, "home": nil, "top": nil},
			},
		}
	}
	return Document{Points: &Points{
		Key:   GlobalKey{Padding: conf.Pitch, Stagger: 0},
		Zones: zones,
	}}
}

func Encode(d Document) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := yaml.NewEncoder(buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	return buf.Bytes(), nil
}

func Marshal(s tegata.State, conf Conf) ([]byte, error) {
	return Encode(Project(s, conf))
}

func Decode(data []byte) (Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Document{}, fmt.Errorf("decode: %w", err)
	}
	return d, nil
}
