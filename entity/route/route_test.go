package route_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/builder"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/roadnettest"
	"github.com/tsinghua-fib-lab/lanesim/entity/route"
)

func build(t *testing.T, seg *roadnet.WorldSegment) *roadnet.RoadNetwork {
	t.Helper()
	net, err := builder.Build(seg)
	require.NoError(t, err)
	return net
}

func TestNodeAStarRoundTrip(t *testing.T) {
	net := build(t, roadnettest.Grid(4, 100, 1))
	g := route.NewNodeGraph(net)
	for _, src := range []int64{1, 6, 16} {
		for _, dst := range []int64{1, 4, 11, 13} {
			p := g.FindPath(src, dst)
			require.NotEmpty(t, p, "%d->%d", src, dst)
			assert.Equal(t, src, p[0])
			assert.Equal(t, dst, p[len(p)-1])
			for i := 1; i < len(p); i++ {
				assert.Contains(t, net.Adjacent(p[i-1]), p[i])
			}
		}
	}
	assert.Equal(t, []int64{7}, g.FindPath(7, 7))
	// 曼哈顿距离
	assert.Len(t, g.FindPath(1, 16), 7)
}

func TestNodeAStarUnreachable(t *testing.T) {
	net := build(t, roadnettest.Isolated(200))
	g := route.NewNodeGraph(net)
	assert.Empty(t, g.FindPath(1, 4))
	assert.Empty(t, g.FindPath(2, 1), "oneway")
	assert.Empty(t, g.FindPath(1, 999))
	assert.ElementsMatch(t, []int64{1, 2}, g.Reachable(1))
	assert.ElementsMatch(t, []int64{4}, g.Reachable(4))
	assert.Nil(t, g.Reachable(999))

	assert.True(t, g.Connected(1, 2))
	assert.True(t, g.Connected(2, 2))
	assert.False(t, g.Connected(2, 1))
	assert.False(t, g.Connected(1, 4))
	assert.False(t, g.Connected(1, 999))
}

func TestReachableGrid(t *testing.T) {
	net := build(t, roadnettest.Grid(3, 100, 1))
	g := route.NewNodeGraph(net)
	assert.Len(t, g.Reachable(5), 9)
	assert.True(t, g.Connected(1, 9))
	assert.True(t, g.Connected(9, 1))
}

func TestFindEdgePath(t *testing.T) {
	net := build(t, roadnettest.Grid(3, 100, 1))
	p := route.FindEdgePath(net, 1, 9)
	require.Len(t, p, 4)
	assert.Equal(t, int64(1), net.Edge(p[0]).Start.ID)
	assert.Equal(t, int64(9), net.Edge(p[len(p)-1]).End.ID)
	for i := 1; i < len(p); i++ {
		assert.Same(t, net.Edge(p[i-1]).End, net.Edge(p[i]).Start)
	}
	assert.Empty(t, route.FindEdgePath(net, 3, 3))

	iso := build(t, roadnettest.Isolated(100))
	assert.Empty(t, route.FindEdgePath(iso, 1, 4))
}

func TestFindLanePathFollowsLinks(t *testing.T) {
	net := build(t, roadnettest.Grid(3, 100, 2))
	start := net.OutEdges(1)[0]
	lane := net.Edge(start).Lanes[0]
	p := route.FindLanePath(net, lane, 0, 9)
	require.NotEmpty(t, p)
	assert.Equal(t, start, p[0])
	assert.Equal(t, int64(9), net.Edge(p[len(p)-1]).End.ID)
	for i := 1; i < len(p); i++ {
		assert.Contains(t, net.EdgeSuccessors(p[i-1]), p[i])
	}

	// 当前边终点即为目标
	end := net.Edge(start).End.ID
	assert.Equal(t, []roadnet.EdgeID{start}, route.FindLanePath(net, lane, 0, end))
}

func TestFindLanePathAdjacentLanesOnlyFarFromEnd(t *testing.T) {
	b := roadnettest.New().
		Node(1, -200, 0).Node(2, 0, 0).Node(3, 200, 0).Node(4, 0, 200)
	b.Way(&roadnet.WayInfo{
		ID: 1, Oneway: true, Lanes: 2,
		TurnLanesForward: roadnet.ParseTurnLanes("left|through"),
	}, 1, 2)
	b.Way(&roadnet.WayInfo{ID: 2, Oneway: true, Lanes: 1}, 2, 3)
	b.Way(&roadnet.WayInfo{ID: 3, Oneway: true, Lanes: 1}, 2, 4)
	net := build(t, b.Seg)

	in := net.Edge(net.OutEdges(1)[0])
	straight := in.Lanes[1]
	far := route.FindLanePath(net, straight, 10, 4)
	require.Len(t, far, 2)
	assert.Equal(t, int64(4), net.Edge(far[1]).End.ID)

	near := route.FindLanePath(net, straight, net.Lane(straight).Length-1, 4)
	assert.Empty(t, near)

	assert.NotEmpty(t, route.FindLanePath(net, in.Lanes[0], net.Lane(straight).Length-1, 4))
}
