package task

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/agent"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/roadnettest"
	"github.com/tsinghua-fib-lab/lanesim/output"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
	"github.com/tsinghua-fib-lab/lanesim/utils/dispatcher"
)

func newTask(t *testing.T, c config.Config, seg *roadnet.WorldSegment) *Context {
	t.Helper()
	require.NoError(t, c.Validate())
	ctx := NewContext(c, nil)
	require.NoError(t, ctx.InitSegment(seg))
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestBulkGridKeepsInvariants(t *testing.T) {
	c := config.Default()
	c.Simulation.Vehicles = 20
	c.Control.Step.Total = 300
	ctx := newTask(t, c, roadnettest.Grid(3, 150, 2))

	moved := false
	for !ctx.clock.Finished() {
		ctx.Step()
		require.NoError(t, ctx.vehicles.CheckInvariants(), "step %d", ctx.clock.InternalStep)
		for _, v := range ctx.Vehicles() {
			if v.V > 0 {
				moved = true
			}
		}
	}
	assert.True(t, moved)
	assert.Equal(t, agent.GeneratorCompleted, ctx.Generator().State)
	assert.Len(t, ctx.Vehicles(), 20)
	assert.Len(t, ctx.Agents(), 20)
	assert.Equal(t, int32(300), ctx.clock.Ticks())
}

func TestFlowCommutersArriveAndAreRemoved(t *testing.T) {
	lane, goal := int32(0), int64(2)
	c := config.Default()
	c.Simulation.Generator = config.GeneratorFlow
	c.Simulation.Vehicles = 5
	c.Simulation.Flows = []config.FlowSpawn{{Lane: &lane, Rate: 3600, Goal: &goal}}
	c.Control.Step.Total = 1200
	ctx := newTask(t, c, roadnettest.StraightRoad(500, 1, true, 15))

	require.NoError(t, ctx.Run(context.Background()))
	assert.Equal(t, 5, ctx.Generator().Generated())
	assert.Empty(t, ctx.Vehicles())
	assert.Empty(t, ctx.Agents())
}

func TestFlowResolvesNearestLane(t *testing.T) {
	lat, lon := roadnettest.LatLon(100, 2)
	c := config.Default()
	c.Simulation.Generator = config.GeneratorFlow
	c.Simulation.Flows = []config.FlowSpawn{{Lat: &lat, Lon: &lon, Rate: 600}}
	ctx := newTask(t, c, roadnettest.StraightRoad(300, 1, true, 15))
	assert.Equal(t, config.GeneratorFlow, ctx.Generator().Kind)

	nearLat, nearLon := roadnettest.LatLon(100, 150)
	c.Simulation.Flows[0].Lat, c.Simulation.Flows[0].Lon = &nearLat, &nearLon
	near := newTask(t, c, roadnettest.StraightRoad(300, 1, true, 15))
	assert.Equal(t, config.GeneratorFlow, near.Generator().Kind)

	far, _ := roadnettest.LatLon(100, 5000)
	c.Simulation.Flows[0].Lon = &lon
	c.Simulation.Flows[0].Lat = &far
	bad := NewContext(c, nil)
	assert.Error(t, bad.InitSegment(roadnettest.StraightRoad(300, 1, true, 15)))

	missing := int32(99)
	c.Simulation.Flows = []config.FlowSpawn{{Lane: &missing, Rate: 600}}
	bad = NewContext(c, nil)
	assert.Error(t, bad.InitSegment(roadnettest.StraightRoad(300, 1, true, 15)))
}

func TestSignalsController(t *testing.T) {
	c := config.Default()
	c.Simulation.Vehicles = 0
	ctx := newTask(t, c, roadnettest.Crossroad(200, true))
	require.NotNil(t, ctx.Signals())
	assert.Equal(t, []int64{5}, ctx.JunctionManager().Nodes())

	c.Junction.Signals = false
	off := newTask(t, c, roadnettest.Crossroad(200, true))
	assert.Nil(t, off.Signals())

	plain := newTask(t, config.Default(), roadnettest.Crossroad(200, false))
	assert.Nil(t, plain.Signals())
}

func TestSignalizedCrossroadRuns(t *testing.T) {
	c := config.Default()
	c.Simulation.Vehicles = 12
	c.Junction.Green = 10
	c.Control.Step.Total = 600
	ctx := newTask(t, c, roadnettest.Crossroad(200, true))
	for !ctx.clock.Finished() {
		ctx.Step()
		require.NoError(t, ctx.vehicles.CheckInvariants())
	}
	assert.Len(t, ctx.Vehicles(), 12)
}

func TestTickCompletedAndRecorder(t *testing.T) {
	c := config.Default()
	c.Simulation.Vehicles = 4
	c.Control.Step.Total = 50
	c.Output.Interval = 10
	c.Output.SQLite = filepath.Join(t.TempDir(), "out.db")

	d := dispatcher.New()
	ticks := 0
	d.Register(entity.EventTickCompleted, func(_ string, e dispatcher.Event) {
		ticks++
		assert.Len(t, e.(entity.TickCompleted).Vehicles, 4)
	})
	var initialized *entity.SimulationInitialized
	d.Register(entity.EventSimulationInitialized, func(_ string, e dispatcher.Event) {
		ev := e.(entity.SimulationInitialized)
		initialized = &ev
	})

	ctx := NewContext(c, d)
	require.NoError(t, ctx.InitSegment(roadnettest.Grid(2, 200, 1)))
	require.NotNil(t, initialized)
	assert.Equal(t, ctx.Network().NumLanes(), initialized.Lanes)
	require.NoError(t, ctx.Run(context.Background()))
	assert.Equal(t, 5, ticks)

	ctx.recorder.Detach()
	var rows int64
	require.NoError(t, ctx.recorder.DB().Model(&output.VehicleState{}).Count(&rows).Error)
	assert.Equal(t, int64(20), rows)
	var pops int64
	require.NoError(t, ctx.recorder.DB().Model(&output.Population{}).Count(&pops).Error)
	assert.Positive(t, pops)
	assert.NoError(t, ctx.Close())
}

func TestRunStops(t *testing.T) {
	c := config.Default()
	c.Simulation.Vehicles = 2
	ctx := newTask(t, c, roadnettest.StraightRoad(300, 2, false, 15))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ctx.Run(cancelled), context.Canceled)
	assert.Equal(t, int32(0), ctx.clock.Ticks())

	ctx.Step()
	ctx.Stop()
	assert.NoError(t, ctx.Run(context.Background()))
	assert.Equal(t, int32(1), ctx.clock.Ticks())
}

const crossingOSM = `<?xml version="1.0" encoding="UTF-8"?>
<osm version="0.6">
  <node id="1" lat="39.9000" lon="116.4000"/>
  <node id="2" lat="39.9000" lon="116.4040"><tag k="highway" v="traffic_signals"/></node>
  <node id="3" lat="39.9000" lon="116.4080"/>
  <node id="4" lat="39.9030" lon="116.4040"/>
  <node id="5" lat="39.8970" lon="116.4040"/>
  <way id="1"><nd ref="1"/><nd ref="2"/><nd ref="3"/><tag k="highway" v="secondary"/><tag k="lanes" v="4"/></way>
  <way id="2"><nd ref="4"/><nd ref="2"/><nd ref="5"/><tag k="highway" v="tertiary"/></way>
</osm>`

func TestInitFromOSM(t *testing.T) {
	c := config.Default()
	assert.Error(t, NewContext(c, nil).Init(context.Background()), "no osm path")

	c.Input.OSM = filepath.Join(t.TempDir(), "map.osm")
	require.NoError(t, os.WriteFile(c.Input.OSM, []byte(crossingOSM), 0o644))
	c.Simulation.Vehicles = 10
	c.Control.Step.Total = 200
	ctx := NewContext(c, nil)
	defer ctx.Close()
	require.NoError(t, ctx.Init(context.Background()))
	assert.NotNil(t, ctx.Signals())
	assert.Positive(t, ctx.Network().NumLanes())
	require.NoError(t, ctx.Run(context.Background()))
	assert.NoError(t, ctx.vehicles.CheckInvariants())
}
