package spatial_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/builder"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/roadnettest"
	"github.com/tsinghua-fib-lab/lanesim/entity/spatial"
	"github.com/tsinghua-fib-lab/lanesim/utils/randengine"
)

func TestGridCellsCoverWays(t *testing.T) {
	seg := roadnettest.Grid(4, 100, 1)
	_, err := builder.Build(seg)
	require.NoError(t, err)
	g := spatial.NewGrid(seg, 0)
	assert.InDelta(t, 60, g.CellSize, 1)
	for _, w := range seg.Ways() {
		for _, n := range w.Nodes {
			assert.Contains(t, g.Ways(g.CellOf(n.XY.X, n.XY.Y)), w)
		}
	}
	for _, n := range seg.Nodes() {
		ways := g.Ways(g.CellOf(n.XY.X, n.XY.Y))
		seen := map[*roadnet.WayInfo]bool{}
		for _, w := range ways {
			assert.False(t, seen[w], "duplicated way %d", w.ID)
			seen[w] = true
		}
	}
	assert.Greater(t, g.NumCells(), 10)
}

func TestGridSkipsNonCarWays(t *testing.T) {
	b := roadnettest.New().Node(1, 0, 0).Node(2, 500, 0).Node(3, 0, 500)
	b.Way(&roadnet.WayInfo{ID: 1, Lanes: 2}, 1, 2)
	b.Way(&roadnet.WayInfo{ID: 2, Type: roadnet.RoadFootway}, 1, 3)
	require.NoError(t, b.Seg.Preprocess())
	g := spatial.NewGrid(b.Seg, 50)
	n3 := b.Seg.Node(3)
	assert.Empty(t, g.Ways(g.CellOf(n3.XY.X, n3.XY.Y)))
}

func TestFindRandomGoal(t *testing.T) {
	seg := roadnettest.Grid(4, 100, 1)
	_, err := builder.Build(seg)
	require.NoError(t, err)
	g := spatial.NewGrid(seg, 0)
	rng := randengine.New(7)
	origin := seg.Node(6).XY
	found := 0
	for i := 0; i < 20; i++ {
		n := spatial.FindRandomGoal(g, origin, 50, 250, rng)
		if n == nil {
			continue
		}
		found++
		assert.Same(t, seg.Node(n.ID), n)
	}
	assert.Positive(t, found)

	assert.Panics(t, func() { spatial.FindRandomGoal(g, origin, 10, 5, rng) })
}

func TestFindRandomGoalExhausted(t *testing.T) {
	seg := roadnettest.StraightRoad(200, 2, false, 10)
	require.NoError(t, seg.Preprocess())
	g := spatial.NewGrid(seg, 0)
	assert.Nil(t, spatial.FindRandomGoal(g, seg.Node(1).XY, 1e5, 2e5, randengine.New(1)))
}

func TestNearestLane(t *testing.T) {
	seg := roadnettest.StraightRoad(300, 4, false, 15)
	net, err := builder.Build(seg)
	require.NoError(t, err)
	idx := spatial.NewLaneIndex(net, seg.Bound)

	for i := 0; i < net.NumLanes(); i++ {
		l := net.Lane(roadnet.LaneID(i))
		p := l.GetPositionByS(100)
		hit, ok := idx.NearestLane(p, 0)
		require.True(t, ok)
		assert.Equal(t, l.ID, hit.Lane)
		assert.InDelta(t, 100, hit.S, 1e-6)
		assert.InDelta(t, 0, hit.Distance, 1e-6)
	}

	far := net.Lane(0).GetPositionByS(100)
	far.Y += 40
	_, ok := idx.NearestLane(far, 10)
	assert.False(t, ok)
}
