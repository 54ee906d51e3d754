package vehicle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/builder"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/roadnettest"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

var car = config.VehicleType{Name: "car", Length: 4, Width: 2, DesiredSpeed: 20}

func newSystem(t *testing.T) (*vehicle.System, *roadnet.RoadNetwork) {
	t.Helper()
	net, err := builder.Build(roadnettest.StraightRoad(200, 2, true, 15))
	require.NoError(t, err)
	return vehicle.NewSystem(net, vehicle.DefaultMinSpawnGap), net
}

func positions(r *vehicle.LaneRuntime) []float64 {
	var res []float64
	for _, v := range r.Vehicles() {
		res = append(res, v.S)
	}
	return res
}

func TestSpawnKeepsLaneSorted(t *testing.T) {
	s, _ := newSystem(t)
	for _, pos := range []float64{50, 150, 2, 100, 120} {
		_, err := s.Spawn(0, pos, car)
		require.NoError(t, err, pos)
	}
	assert.Equal(t, []float64{150, 120, 100, 50, 2}, positions(s.Runtime(0)))
	assert.Equal(t, 150.0, s.Runtime(0).Front().S)
	assert.Equal(t, 2.0, s.Runtime(0).Rear().S)
	require.NoError(t, s.CheckInvariants())
}

func TestSpawnRejectsTightGap(t *testing.T) {
	s, _ := newSystem(t)
	_, err := s.Spawn(0, 50, car)
	require.NoError(t, err)
	// 净间距 = 8 - 4 = 4 < 5
	_, err = s.Spawn(0, 58, car)
	assert.ErrorIs(t, err, vehicle.ErrNoRoom)
	_, err = s.Spawn(0, 60, car)
	assert.NoError(t, err)
	_, err = s.Spawn(0, 1, car)
	assert.ErrorIs(t, err, vehicle.ErrNoRoom, "rear bumper before lane start")
	_, err = s.Spawn(99, 10, car)
	assert.ErrorIs(t, err, vehicle.ErrUnknownLane)
	// 另一条车道不受影响
	_, err = s.Spawn(1, 58, car)
	assert.NoError(t, err)
}

func TestRemoveSwapAndResort(t *testing.T) {
	s, _ := newSystem(t)
	vs := make([]*vehicle.Vehicle, 0)
	for _, pos := range []float64{10, 30, 50, 70, 90} {
		v, err := s.Spawn(0, pos, car)
		require.NoError(t, err)
		vs = append(vs, v)
	}
	s.Remove(vs[3])
	assert.Equal(t, []float64{90, 50, 30, 10}, positions(s.Runtime(0)))
	// Remove之后对象被对象池清零
	id := vs[4].ID
	s.Remove(vs[4])
	assert.Equal(t, []float64{50, 30, 10}, positions(s.Runtime(0)))
	assert.Nil(t, s.Get(id))
	assert.Same(t, vs[0], s.Get(0))
	assert.Equal(t, 3, s.Len())
	require.NoError(t, s.CheckInvariants())
}

func TestPointerStabilityAcrossGrowth(t *testing.T) {
	net, err := builder.Build(roadnettest.StraightRoad(5000, 4, true, 15))
	require.NoError(t, err)
	s := vehicle.NewSystem(net, 1)
	first, err := s.Spawn(0, 2, car)
	require.NoError(t, err)
	id := first.ID
	for lane := roadnet.LaneID(0); lane < 4; lane++ {
		for pos := 10.0; pos < 4990; pos += 6 {
			_, _ = s.Spawn(lane, pos, car)
		}
	}
	assert.Greater(t, s.Len(), 256*2)
	assert.Same(t, first, s.Get(id))
	assert.Equal(t, 2.0, first.S)
	require.NoError(t, s.CheckInvariants())
}

func TestMoveToLaneAndNeighbors(t *testing.T) {
	s, _ := newSystem(t)
	a, _ := s.Spawn(0, 40, car)
	b, _ := s.Spawn(1, 20, car)
	c, _ := s.Spawn(1, 80, car)
	s.MoveToLane(a, 1, 40)
	assert.Equal(t, roadnet.LaneID(1), a.Lane)
	assert.Equal(t, 0, s.Runtime(0).Len())
	assert.Equal(t, []float64{80, 40, 20}, positions(s.Runtime(1)))

	leader, follower := s.Runtime(1).Neighbors(40, a)
	assert.Same(t, c, leader)
	assert.Same(t, b, follower)
	r := s.Runtime(1)
	i := r.Index(a)
	assert.Same(t, c, r.LeaderAt(i))
	assert.Same(t, b, r.FollowerAt(i))
	assert.Nil(t, r.LeaderAt(0))
	require.NoError(t, s.CheckInvariants())
}

func TestCheckInvariantsDetectsDisorder(t *testing.T) {
	s, _ := newSystem(t)
	a, _ := s.Spawn(0, 40, car)
	_, _ = s.Spawn(0, 80, car)
	a.S = 100
	assert.Error(t, s.CheckInvariants())
	s.Resort(0)
	assert.NoError(t, s.CheckInvariants())
}

func TestStateTransitions(t *testing.T) {
	s, _ := newSystem(t)
	v, _ := s.Spawn(0, 40, car)
	assert.True(t, v.State.IsStopped())
	assert.Equal(t, roadnet.NoLane, v.LCTarget)

	v.Start()
	assert.True(t, v.State.IsFollowing())
	v.State.Phase = vehicle.PhasePrepare
	v.LCTarget = 1
	assert.True(t, v.State.InManeuver())

	v.Stop(vehicle.MoveIncorrectLane)
	assert.True(t, v.State.IsStopped())
	assert.True(t, v.State.HasError())
	assert.Equal(t, roadnet.NoLane, v.LCTarget)

	v.Start()
	v.Stop(vehicle.MoveNoPath)
	assert.False(t, v.State.HasError())

	v.StartCooldown(1)
	assert.True(t, v.State.InCooldown())
	v.TickCooldown(0.6)
	assert.True(t, v.State.InCooldown())
	v.TickCooldown(0.6)
	assert.False(t, v.State.InCooldown())
}

func TestCrossOffsetAndGap(t *testing.T) {
	assert.InDelta(t, 0, vehicle.CrossOffset(0, 3.5, 1), 1e-9)
	assert.InDelta(t, 1.75, vehicle.CrossOffset(0.5, 3.5, 1), 1e-9)
	assert.InDelta(t, -3.5, vehicle.CrossOffset(1, 3.5, -1), 1e-9)
	assert.InDelta(t, 3.5, vehicle.CrossOffset(2, 3.5, 1), 1e-9)

	assert.InDelta(t, 6, vehicle.Gap(20, 4, 10, 4), 1e-9)
	assert.Equal(t, 0.0, vehicle.Gap(12, 4, 10, 4))
}

func TestCommitWorld(t *testing.T) {
	s, net := newSystem(t)
	v, _ := s.Spawn(1, 100, car)
	s.CommitWorld()
	p := net.Lane(1).GetPositionByS(100)
	assert.InDelta(t, p.X, v.X, 1e-6)
	assert.InDelta(t, p.Y, v.Y, 1e-6)
	assert.InDelta(t, net.Edge(0).Heading, v.Heading, 1e-6)
	snap := s.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, v.ID, snap[0].ID)
}
