package planning_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/agent"
	"github.com/tsinghua-fib-lab/lanesim/entity/planning"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/builder"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/roadnettest"
	"github.com/tsinghua-fib-lab/lanesim/entity/route"
	"github.com/tsinghua-fib-lab/lanesim/entity/spatial"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
	"github.com/tsinghua-fib-lab/lanesim/utils/dispatcher"
	"github.com/tsinghua-fib-lab/lanesim/utils/randengine"
)

var car = config.VehicleType{Name: "car", Length: 4.5, Width: 1.8, DesiredSpeed: 20}

type fixture struct {
	seg    *roadnet.WorldSegment
	net    *roadnet.RoadNetwork
	agents *agent.Manager
}

func newFixture(t *testing.T, seg *roadnet.WorldSegment) *fixture {
	t.Helper()
	net, err := builder.Build(seg)
	require.NoError(t, err)
	return &fixture{
		seg:    seg,
		net:    net,
		agents: agent.NewManager(vehicle.NewSystem(net, vehicle.DefaultMinSpawnGap)),
	}
}

func (f *fixture) spawn(t *testing.T, lane roadnet.LaneID, pos float64, goal *roadnet.Node) *agent.Agent {
	t.Helper()
	a, err := f.agents.Spawn(lane, pos, car, agent.BehaviorWander, goal)
	require.NoError(t, err)
	f.agents.Prepare()
	f.agents.Vehicles().CommitWorld()
	return a
}

type stuckRecorder struct{ stuck []entity.AgentStuck }

func (r *stuckRecorder) Emit(_ string, e dispatcher.Event) {
	if s, ok := e.(entity.AgentStuck); ok {
		r.stuck = append(r.stuck, s)
	}
}

func TestTacticalBuildsPath(t *testing.T) {
	f := newFixture(t, roadnettest.Grid(3, 100, 1))
	start := f.net.OutEdges(1)[0]
	a := f.spawn(t, f.net.Edge(start).Lanes[0], 10, f.net.Node(9))
	planning.NewTactical(f.agents, f.net, nil, nil).Update(0.1)

	require.True(t, a.HasPath())
	assert.Equal(t, start, a.Path[0])
	assert.Equal(t, 0, a.PathOffset)
	assert.Equal(t, f.net.ExitMask(a.Path[0], a.Path[1]), a.LaneExitMask)
	assert.True(t, a.Vehicle.State.IsFollowing())
}

func TestStuckDetection(t *testing.T) {
	f := newFixture(t, roadnettest.Isolated(200))
	lane := f.net.Edge(f.net.OutEdges(1)[0]).Lanes[0]
	unreachable := f.net.Node(4)
	a := f.spawn(t, lane, 10, nil)
	rec := &stuckRecorder{}
	tactical := planning.NewTactical(f.agents, f.net, route.NewNodeGraph(f.net), rec)

	for i := 0; i < agent.StuckThreshold; i++ {
		assert.False(t, a.Stuck, "attempt %d", i)
		a.Goal = unreachable
		tactical.Update(0.1)
		assert.Nil(t, a.Goal)
	}
	assert.True(t, a.Stuck)
	assert.GreaterOrEqual(t, a.GoalFailCount, agent.StuckThreshold)
	require.Len(t, rec.stuck, 1)
	assert.Equal(t, a.ID, rec.stuck[0].Agent)

	grid := spatial.NewGrid(f.seg, 0)
	strategic := planning.NewStrategic(f.agents, grid, nil, randengine.New(1), 0, 300)
	for i := 0; i < 10; i++ {
		strategic.Update(0.1)
		assert.Nil(t, a.Goal)
	}

	a.Unstick()
	strategic.Update(0.1)
	assert.NotNil(t, a.Goal)
}

func TestTacticalErrorHandling(t *testing.T) {
	f := newFixture(t, roadnettest.Grid(3, 100, 1))
	lane := f.net.Edge(f.net.OutEdges(1)[0]).Lanes[0]
	a := f.spawn(t, lane, 10, f.net.Node(9))
	tactical := planning.NewTactical(f.agents, f.net, nil, nil)
	v := a.Vehicle

	// 路径不同步：只清空路径并立即重建，不计失败
	tactical.Update(0.1)
	v.Stop(vehicle.MoveIncorrectEdge)
	a.GoalFailCount = 2
	tactical.Update(0.1)
	assert.True(t, a.HasPath())
	assert.Equal(t, 0, a.GoalFailCount, "success resets the counter")
	assert.True(t, v.State.IsFollowing())
	assert.False(t, v.State.HasError())

	// 到达
	v.Stop(vehicle.MoveNoPath)
	tactical.Update(0.1)
	assert.Nil(t, a.Goal)
	assert.False(t, a.HasPath())
	assert.Equal(t, vehicle.MoveOK, v.Err)

	// 无出口
	a.Goal = f.net.Node(9)
	tactical.Update(0.1)
	v.Stop(vehicle.MoveNoOutgoingConnection)
	tactical.Update(0.1)
	assert.Equal(t, 1, a.GoalFailCount)
	assert.Nil(t, a.Goal)
}

func TestStrategicClearsReachedGoal(t *testing.T) {
	f := newFixture(t, roadnettest.StraightRoad(300, 1, true, 10))
	lane := f.net.Edge(0).Lanes[0]
	a := f.spawn(t, lane, f.net.Lane(lane).Length-2.5, nil)
	a.Behavior = agent.BehaviorCommute
	a.Goal = f.net.Node(2)
	grid := spatial.NewGrid(f.seg, 0)
	planning.NewStrategic(f.agents, grid, nil, randengine.New(1), 100, 200).Update(0.1)
	assert.Nil(t, a.Goal)
	assert.True(t, a.Arrived)
}

func TestStrategicSamplesGoalForWanderers(t *testing.T) {
	f := newFixture(t, roadnettest.Grid(4, 100, 1))
	lane := f.net.Edge(f.net.OutEdges(6)[0]).Lanes[0]
	a := f.spawn(t, lane, 10, nil)
	grid := spatial.NewGrid(f.seg, 0)
	s := planning.NewStrategic(f.agents, grid, nil, randengine.New(5), 50, 250)
	for i := 0; i < 10 && a.Goal == nil; i++ {
		s.Update(0.1)
	}
	assert.NotNil(t, a.Goal)
}

func TestStrategicSkipsUnreachableGoals(t *testing.T) {
	f := newFixture(t, roadnettest.Isolated(200))
	lane := f.net.Edge(f.net.OutEdges(1)[0]).Lanes[0]
	a := f.spawn(t, lane, 10, nil)
	grid := spatial.NewGrid(f.seg, 0)

	// 节点2没有出边，任何其他节点都不可达
	s := planning.NewStrategic(f.agents, grid, route.NewNodeGraph(f.net), randengine.New(1), 0, 300)
	for i := 0; i < 10; i++ {
		s.Update(0.1)
		assert.Nil(t, a.Goal)
	}
	planning.NewStrategic(f.agents, grid, nil, randengine.New(1), 0, 300).Update(0.1)
	assert.NotNil(t, a.Goal)
}

func TestStrategicPlansFromSpawnPosition(t *testing.T) {
	f := newFixture(t, roadnettest.Chain(12, 300, 1, 15))
	lane := f.net.Edge(f.net.OutEdges(1)[0]).Lanes[0]
	// 生成后不调用CommitWorld，同一步内直接规划
	a, err := f.agents.Spawn(lane, 10, car, agent.BehaviorWander, nil)
	require.NoError(t, err)
	f.agents.Prepare()

	want := f.net.Lane(lane).GetPositionByS(10)
	v := a.Vehicle
	assert.InDelta(t, want.X, v.X, 1e-6)
	assert.InDelta(t, want.Y, v.Y, 1e-6)
	require.Less(t, v.X, -1000.0, "chain starts far from the origin")

	grid := spatial.NewGrid(f.seg, 100)
	planning.NewStrategic(f.agents, grid, nil, randengine.New(3), 0, 300).Update(0.1)
	require.NotNil(t, a.Goal)
	// 采样半径+格对角+一段道路长度
	assert.Less(t, math.Hypot(a.Goal.XY.X-v.X, a.Goal.XY.Y-v.Y), 800.0)
}
