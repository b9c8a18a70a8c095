package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nyiyui.ca/hato/tegata/config"
	"nyiyui.ca/hato/tegata/export"
)

const handTrace = `{"at":0,"kind":"touches","touches":[{"x":20,"y":60},{"x":39,"y":45},{"x":58,"y":40},{"x":77,"y":45},{"x":100,"y":80}]}
{"at":600000000,"kind":"touches","touches":[{"x":0,"y":60}]}
`

func TestReplay(t *testing.T) {
	conf = config.Default()
	dir := t.TempDir()
	in := filepath.Join(dir, "trace.jsonl")
	out := filepath.Join(dir, export.Filename)
	require.NoError(t, os.WriteFile(in, []byte(handTrace), 0o644))

	require.NoError(t, replay(in, out))
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	d, err := export.Decode(data)
	require.NoError(t, err)
	require.NotNil(t, d.Points)
	require.Len(t, d.Points.Zones, 5)
	assert.Equal(t, "zone0", d.Points.Zones[0].Name)
	assert.InDelta(t, -270, d.Points.Zones[0].Zone.Key.Splay, 1e-9)
	assert.Equal(t, [2]float64{20, -43}, d.Points.Zones[0].Zone.Key.Origin)
}

func TestReplayMissing(t *testing.T) {
	conf = config.Default()
	assert.Error(t, replay(filepath.Join(t.TempDir(), "nope"), ""))
}
