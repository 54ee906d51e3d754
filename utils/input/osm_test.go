package input_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/input"
)

const sample = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6" generator="test">
  <node id="1" lat="39.9000" lon="116.4000"/>
  <node id="2" lat="39.9000" lon="116.4030">
    <tag k="highway" v="traffic_signals"/>
  </node>
  <node id="3" lat="39.9000" lon="116.4060"/>
  <node id="4" lat="39.9030" lon="116.4030">
    <tag k="highway" v="stop"/>
  </node>
  <node id="5" lat="39.8970" lon="116.4030"/>
  <node id="9" lat="39.8000" lon="116.3000"/>
  <way id="100">
    <nd ref="1"/><nd ref="2"/><nd ref="3"/>
    <tag k="highway" v="primary"/>
    <tag k="lanes" v="4"/>
    <tag k="maxspeed" v="60"/>
    <tag k="turn:lanes:forward" v="left|through"/>
    <tag k="width" v="14"/>
  </way>
  <way id="101">
    <nd ref="2"/><nd ref="4"/>
    <tag k="highway" v="residential"/>
    <tag k="oneway" v="-1"/>
    <tag k="maxspeed" v="20 mph"/>
  </way>
  <way id="102">
    <nd ref="2"/><nd ref="5"/>
    <tag k="highway" v="footway"/>
  </way>
  <way id="103">
    <nd ref="3"/><nd ref="404"/>
    <tag k="highway" v="primary"/>
  </way>
  <relation id="7">
    <member type="way" ref="100" role=""/>
    <tag k="type" v="route"/>
  </relation>
</osm>`

func TestParseOSM(t *testing.T) {
	seg, err := input.ParseOSM(context.Background(), strings.NewReader(sample), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, seg.ID)
	require.Len(t, seg.Ways(), 2, "footway and broken way dropped")
	assert.Nil(t, seg.Node(5), "node only used by a footway")
	assert.Nil(t, seg.Node(9), "unreferenced node")

	main := seg.Way(100)
	require.NotNil(t, main)
	assert.Equal(t, roadnet.RoadPrimary, main.Type)
	assert.False(t, main.Oneway)
	assert.Equal(t, 2, main.LanesForward)
	assert.Equal(t, 2, main.LanesBackward)
	assert.InDelta(t, 60/3.6, main.MaxSpeed, 1e-9)
	assert.InDelta(t, 3.5, main.LaneWidth, 1e-9)
	assert.Equal(t, []roadnet.TurnDirection{roadnet.TurnLeft, roadnet.TurnStraight}, main.TurnLanesForward)

	side := seg.Way(101)
	require.NotNil(t, side)
	assert.True(t, side.Oneway)
	assert.Equal(t, int64(4), side.Nodes[0].ID, "oneway=-1 reverses node order")
	assert.Equal(t, int64(2), side.Nodes[1].ID)
	assert.InDelta(t, 20*0.44704, side.MaxSpeed, 1e-9)

	assert.True(t, seg.Node(2).Tags.Has(roadnet.TagTrafficLight))
	assert.True(t, seg.Node(4).Tags.Has(roadnet.TagStopSign))
	assert.Len(t, seg.Node(2).Ways, 2)
	require.NoError(t, seg.Preprocess())
}

func TestParseOSMWithoutRoads(t *testing.T) {
	_, err := input.ParseOSM(context.Background(), strings.NewReader(`<osm version="0.6"><node id="1" lat="0" lon="0"/></osm>`), 0)
	assert.Error(t, err)
}

func TestLoadOSMFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.osm")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	seg, err := input.LoadOSM(context.Background(), path, 0)
	require.NoError(t, err)
	assert.Len(t, seg.Ways(), 2)

	_, err = input.LoadOSM(context.Background(), filepath.Join(t.TempDir(), "missing.osm"), 0)
	assert.Error(t, err)
}

func TestParseMaxSpeed(t *testing.T) {
	cases := map[string]float64{
		"50":       50 / 3.6,
		"50 km/h":  50 / 3.6,
		"30 mph":   30 * 0.44704,
		"none":     0,
		"signals":  0,
		"":         0,
		"-10":      0,
	}
	for in, want := range cases {
		assert.InDelta(t, want, input.ParseMaxSpeed(in), 1e-9, in)
	}
}
