package movement

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/agent"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

// ahead 前方约束：前车或停车线
type ahead struct {
	V        float64
	Gap      float64
	StopLine bool
}

var freeRoad = ahead{V: mathutil.INF, Gap: mathutil.INF}

// computeLane 第一阶段：计算一条车道上所有车辆的加速度与下一步状态
// 说明：只写本车道车辆的VNext/SNext/A与变道意愿，不修改任何车道运行时
func (e *Engine) computeLane(r *vehicle.LaneRuntime, dt float64) {
	for i, v := range r.Vehicles() {
		if !v.State.Moving() {
			v.VNext, v.SNext, v.A = 0, v.S, 0
			continue
		}
		a := e.agents.ByVehicle(v.ID)
		desired := math.Min(v.DesiredSpeed, r.MaxSpeed)
		front := e.aheadOf(r, i, v, a)
		acc := e.acceleration(v, desired, front, dt)
		if e.algorithm == config.MovementIDM && v.State.InManeuver() && v.LCTarget != roadnet.NoLane {
			// 变道中同时跟随目标车道前车
			if l, _ := e.vs.Runtime(v.LCTarget).Neighbors(v.S, v); l != nil {
				acc = math.Min(acc, Follow(&e.idm, v.V, desired, l.V, vehicle.Gap(l.S, l.Length, v.S, v.Length)))
			}
		}
		v.A = acc
		var ds float64
		v.VNext, ds = integrate(v.V, acc, dt, r.MaxSpeed)
		v.SNext = v.S + ds
		if e.algorithm == config.MovementIDM {
			e.laneChangeDesire(r, v, a, acc, desired, r.LeaderAt(i) != nil)
		}
	}
}

func (e *Engine) acceleration(v *vehicle.Vehicle, desired float64, front ahead, dt float64) float64 {
	if e.algorithm == config.MovementLegacy {
		return legacyAcceleration(&e.idm, v.V, desired, front.Gap, dt)
	}
	if front.StopLine {
		return StopAt(&e.idm, v.V, desired, front.Gap, dt)
	}
	return Follow(&e.idm, v.V, desired, front.V, front.Gap)
}

// aheadOf 同车道前车，没有时向下一条路径边前瞻；正在横穿进入本车道且更近的车辆优先
func (e *Engine) aheadOf(r *vehicle.LaneRuntime, i int, v *vehicle.Vehicle, a *agent.Agent) ahead {
	var front ahead
	if l := r.LeaderAt(i); l != nil {
		front = ahead{V: l.V, Gap: vehicle.Gap(l.S, l.Length, v.S, v.Length)}
	} else {
		front = e.lookahead(r, v, a)
	}
	if int(r.Lane.ID) < len(e.crossing) {
		for _, c := range e.crossing[r.Lane.ID] {
			if c == v || c.S < v.S {
				continue
			}
			if gap := vehicle.Gap(c.S, c.Length, v.S, v.Length); gap < front.Gap {
				front = ahead{V: c.V, Gap: gap}
			}
		}
	}
	return front
}

// lookahead 车道最前方车辆的前方约束
// 算法说明：
// 1. 没有路径或路径已到最后一条边时为自由道路（到达末端后停车）
// 2. 横穿中的车辆被固定在车道末端，车道末端视为停车线
// 3. 当前车道不能驶入下一条边而本边有车道可以时，视为停车线，等待强制变道
// 4. 红灯，或无法在剩余时间内通过且还能停下的黄灯，视为停车线
// 5. 否则跟随预期驶入车道上的最后一辆车
func (e *Engine) lookahead(r *vehicle.LaneRuntime, v *vehicle.Vehicle, a *agent.Agent) ahead {
	if a == nil || a.CurrentEdge() != r.Lane.Edge {
		return freeRoad
	}
	next := a.NextEdge()
	if next == roadnet.NoEdge {
		return freeRoad
	}
	toEnd := r.Length - v.Front()
	stop := ahead{V: 0, Gap: toEnd, StopLine: true}
	if v.State.IsCrossing() {
		return stop
	}
	if a.LaneExitMask&(1<<r.Lane.IndexInEdge) == 0 {
		if a.LaneExitMask != 0 {
			return stop
		}
		return freeRoad
	}
	switch state, remaining := e.light(r.Lane.Edge); state {
	case entity.LightRed:
		return stop
	case entity.LightYellow:
		if v.V*remaining < toEnd && toEnd > v.V*v.V/(2*e.idm.HardDecel) {
			return stop
		}
	}
	entry, err := ChooseEntryLane(e.net, r.Lane.ID, next)
	if err != vehicle.MoveOK {
		return freeRoad
	}
	if rear := e.vs.Runtime(entry).Rear(); rear != nil {
		return ahead{V: rear.V, Gap: math.Max(toEnd+rear.Rear(), 0)}
	}
	return freeRoad
}
