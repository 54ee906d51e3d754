package junction_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/junction"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/builder"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/roadnettest"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

type crossroad struct {
	net *roadnet.RoadNetwork
	vs  *vehicle.System
}

func newCrossroad(t *testing.T, signal bool) *crossroad {
	t.Helper()
	net, err := builder.Build(roadnettest.Crossroad(200, signal))
	require.NoError(t, err)
	return &crossroad{net: net, vs: vehicle.NewSystem(net, vehicle.DefaultMinSpawnGap)}
}

// into 从节点from驶入中心节点的边
func (c *crossroad) into(t *testing.T, from int64) roadnet.EdgeID {
	t.Helper()
	for _, id := range c.net.InEdges(5) {
		if c.net.Edge(id).Start.ID == from {
			return id
		}
	}
	t.Fatalf("no edge %d->5", from)
	return roadnet.NoEdge
}

func fixedConfig() config.Junction {
	c := config.Default().Junction
	c.Policy = config.SignalFixed
	c.Green, c.Yellow = 10, 2
	return c
}

func TestFixedTimeTwoAxes(t *testing.T) {
	c := newCrossroad(t, true)
	m, err := junction.NewManager(c.net, c.vs, fixedConfig())
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	assert.Equal(t, []int64{5}, m.Nodes())

	west, east, north, south := c.into(t, 1), c.into(t, 2), c.into(t, 3), c.into(t, 4)
	light := func(e roadnet.EdgeID) entity.LightState {
		s, _ := m.Light(e)
		return s
	}
	// 第一个进口道所在轴向先放行
	first := c.net.InEdges(5)[0]
	sameAxis, otherAxis := []roadnet.EdgeID{west, east}, []roadnet.EdgeID{north, south}
	if first == north || first == south {
		sameAxis, otherAxis = otherAxis, sameAxis
	}

	m.Prepare()
	for _, e := range sameAxis {
		assert.Equal(t, entity.LightGreen, light(e))
	}
	for _, e := range otherAxis {
		assert.Equal(t, entity.LightRed, light(e))
	}
	_, remaining := m.Light(sameAxis[0])
	assert.InDelta(t, 10, remaining, 1e-9)
	// 红灯持续到对向绿灯和黄灯结束
	_, redRemaining := m.Light(otherAxis[0])
	assert.InDelta(t, 12, redRemaining, 1e-9)

	m.Update(10)
	m.Prepare()
	assert.Equal(t, entity.LightYellow, light(sameAxis[1]))
	assert.Equal(t, entity.LightRed, light(otherAxis[1]))

	m.Update(2)
	m.Prepare()
	assert.Equal(t, entity.LightRed, light(sameAxis[0]))
	assert.Equal(t, entity.LightGreen, light(otherAxis[0]))

	// 非进口道的边没有信号
	out := c.net.OutEdges(5)[0]
	s, r := m.Light(out)
	assert.Equal(t, entity.LightGreen, s)
	assert.True(t, math.IsInf(r, 1))
}

func TestSignalsDisabled(t *testing.T) {
	c := newCrossroad(t, true)
	cfg := fixedConfig()
	cfg.Signals = false
	m, err := junction.NewManager(c.net, c.vs, cfg)
	require.NoError(t, err)
	assert.Zero(t, m.Len())

	c = newCrossroad(t, false)
	m, err = junction.NewManager(c.net, c.vs, fixedConfig())
	require.NoError(t, err)
	assert.Zero(t, m.Len(), "untagged junction")
}

func TestSetOkTurnsAllGreen(t *testing.T) {
	c := newCrossroad(t, true)
	m, err := junction.NewManager(c.net, c.vs, fixedConfig())
	require.NoError(t, err)
	require.NoError(t, m.SetOk(5, false))
	assert.Error(t, m.SetOk(1, false))
	m.Prepare()
	for _, e := range c.net.InEdges(5) {
		s, r := m.Light(e)
		assert.Equal(t, entity.LightGreen, s)
		assert.True(t, math.IsInf(r, 1))
	}
	assert.False(t, m.Get(5).TrafficLight().Ok())
}

func TestMaxPressureServesLoadedAxis(t *testing.T) {
	c := newCrossroad(t, true)
	cfg := config.Default().Junction
	cfg.Policy = config.SignalMaxPressure
	cfg.Green, cfg.Yellow, cfg.AllRed, cfg.MaxRepeat = 10, 2, 1, 3
	m, err := junction.NewManager(c.net, c.vs, cfg)
	require.NoError(t, err)

	first := c.net.InEdges(5)[0]
	var other roadnet.EdgeID
	for _, e := range c.net.InEdges(5) {
		h0, h := c.net.Edge(first).Heading, c.net.Edge(e).Heading
		if d := math.Abs(math.Remainder(h-h0, math.Pi)); d > math.Pi/4 {
			other = e
			break
		}
	}
	vt := config.Default().VehicleTypes[0]
	lane := c.net.Edge(other).Lanes[0]
	for _, pos := range []float64{20, 60, 100} {
		_, err := c.vs.Spawn(lane, pos, vt)
		require.NoError(t, err)
	}

	state := func(e roadnet.EdgeID) entity.LightState {
		s, _ := m.Light(e)
		return s
	}
	m.Prepare()
	assert.Equal(t, entity.LightGreen, state(first))
	assert.Equal(t, entity.LightRed, state(other))
	assert.Equal(t, int32(-1), m.Get(5).TrafficLight().Step())

	m.Update(10)
	m.Prepare()
	assert.Equal(t, entity.LightYellow, state(first))
	assert.Equal(t, entity.LightRed, state(other))

	m.Update(2)
	m.Prepare()
	assert.Equal(t, entity.LightRed, state(first), "all red")
	assert.Equal(t, entity.LightRed, state(other), "all red")

	m.Update(1)
	m.Prepare()
	assert.Equal(t, entity.LightRed, state(first))
	assert.Equal(t, entity.LightGreen, state(other))
}

func TestMaxPressureRepeatLimit(t *testing.T) {
	c := newCrossroad(t, true)
	cfg := config.Default().Junction
	cfg.Policy = config.SignalMaxPressure
	cfg.Green, cfg.Yellow, cfg.AllRed, cfg.MaxRepeat = 10, 2, 0, 2
	m, err := junction.NewManager(c.net, c.vs, cfg)
	require.NoError(t, err)

	first := c.net.InEdges(5)[0]
	vt := config.Default().VehicleTypes[0]
	_, err = c.vs.Spawn(c.net.Edge(first).Lanes[0], 50, vt)
	require.NoError(t, err)

	state := func() entity.LightState {
		s, _ := m.Light(first)
		return s
	}
	m.Prepare()
	require.Equal(t, entity.LightGreen, state())
	// 压力最大的相位延长一次
	m.Update(10)
	m.Prepare()
	assert.Equal(t, entity.LightGreen, state())
	// 达到重复上限后强制切换
	m.Update(10)
	m.Prepare()
	assert.Equal(t, entity.LightYellow, state())
	m.Update(2)
	m.Prepare()
	assert.Equal(t, entity.LightRed, state())
}
