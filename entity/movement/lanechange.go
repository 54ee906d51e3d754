package movement

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/lanesim/entity/agent"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
)

// NearestPermittedLane 掩码允许的车道中与index横向距离最近的车道下标，距离相同取左侧
// 返回：掩码为空时返回-1
func NearestPermittedLane(mask uint64, index, count int) int {
	best := -1
	for i := 0; i < count && i < roadnet.MaxLanesPerEdge; i++ {
		if mask&(1<<i) == 0 {
			continue
		}
		if best < 0 || abs(i-index) < abs(best-index) {
			best = i
		}
	}
	return best
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

// laneChangeDesire 第一阶段的变道意愿
// 算法说明：
// 1. 只有跟驰状态且不在冷却中的车辆才评估
// 2. 当前车道不在驶出掩码内时，取最近的允许车道；距车道末端不超过 基础准备距离+每车道附加距离*|车道差| 时进入强制变道准备
// 3. 否则在启用自主变道、距末端较远且本车道有前车时，比较左右相邻允许车道的预期加速度，
// 收益超过礼让阈值时进入自主变道准备
func (e *Engine) laneChangeDesire(r *vehicle.LaneRuntime, v *vehicle.Vehicle, a *agent.Agent, acc, desired float64, hasLeader bool) {
	if a == nil || !v.State.IsFollowing() || v.State.InCooldown() || a.CurrentEdge() != r.Lane.Edge {
		return
	}
	lane := r.Lane
	count := len(e.net.Edge(lane.Edge).Lanes)
	idx := lane.IndexInEdge
	mask := a.LaneExitMask
	toEnd := r.Length - v.S

	if mask != 0 && mask&(1<<idx) == 0 {
		target := NearestPermittedLane(mask, idx, count)
		delta := target - idx
		if toEnd <= e.lc.PrepDistance+e.lc.PrepDistancePerLane*float64(abs(delta)) {
			dir := sign(delta)
			beginPrepare(v, e.net.Sibling(lane.ID, dir), dir, true)
		}
		return
	}

	if !e.lc.Discretionary || !hasLeader || toEnd <= e.lc.PrepDistance {
		return
	}
	bestGain, bestDir := e.lc.Politeness, 0
	for _, dir := range [2]int{-1, 1} {
		sib := e.net.Sibling(lane.ID, dir)
		if sib == roadnet.NoLane {
			continue
		}
		// 已在允许车道内时不变道到允许车道之外
		if mask != 0 && mask&(1<<(idx+dir)) == 0 {
			continue
		}
		leader, follower := e.vs.Runtime(sib).Neighbors(v.S, v)
		if follower != nil && vehicle.Gap(v.S, v.Length, follower.S, follower.Length) < requiredGap(&e.lc, follower.V) {
			continue
		}
		aTarget := Follow(&e.idm, v.V, desired, mathutil.INF, mathutil.INF)
		if leader != nil {
			aTarget = Follow(&e.idm, v.V, desired, leader.V, vehicle.Gap(leader.S, leader.Length, v.S, v.Length))
		}
		if gain := aTarget - acc; gain > bestGain {
			bestGain, bestDir = gain, dir
		}
	}
	if bestDir != 0 {
		beginPrepare(v, e.net.Sibling(lane.ID, bestDir), bestDir, false)
	}
}

func beginPrepare(v *vehicle.Vehicle, target roadnet.LaneID, dir int, mandatory bool) {
	if target == roadnet.NoLane || dir == 0 {
		return
	}
	v.LCTarget = target
	v.LCDir = dir
	v.LCMandatory = mandatory
	v.LCTimer = 0
	v.State.Phase = vehicle.PhasePrepare
}

// advanceLaneChanges 第二阶段的变道状态机
// 算法说明：
//   - Prepare：计时超过最短准备时间后检查目标车道前后车的安全间隙（强制与自主变道都要求），
//     自主变道还要求目标车道的预期加速度不比当前车道差礼让阈值以上；安全检查失败则下一步重试，收益检查失败则放弃
//   - Cross：每步重新检查目标车道的安全间隙，不满足时放弃变道、回到原车道中心并开始冷却；
//     否则按半正弦缓动更新横向偏移，持续CrossDuration后把车辆移入目标车道，进入Align。
//     横穿因此最多持续CrossDuration
//   - Align：保持一段时间后回到跟驰并开始冷却
func (e *Engine) advanceLaneChanges(dt float64) {
	for _, v := range e.vs.Vehicles() {
		switch v.State.Phase {
		case vehicle.PhasePrepare:
			v.LCTimer += dt
			if v.LCTarget == roadnet.NoLane || e.net.Lane(v.LCTarget).Edge != e.net.Lane(v.Lane).Edge {
				v.ResetLaneChange()
				continue
			}
			if v.LCTimer < e.lc.MinPrepTime || !e.safeToChange(v) {
				continue
			}
			if !v.LCMandatory && !e.beneficial(v) {
				v.ResetLaneChange()
				continue
			}
			v.State.Phase = vehicle.PhaseCross
			v.LCTimer = 0
			e.debug.check(DebugLaneChange, v.Lane, e.agentID(v))
		case vehicle.PhaseCross:
			v.LCTimer += dt
			if !e.safeToChange(v) {
				e.abortCross(v)
				continue
			}
			progress := v.LCTimer / e.lc.CrossDuration
			v.Offset = vehicle.CrossOffset(progress, e.net.Lane(v.Lane).Width, v.LCDir)
			if progress >= 1 {
				e.vs.MoveToLane(v, v.LCTarget, v.S)
				v.Offset = 0
				v.State.Phase = vehicle.PhaseAlign
				v.LCTimer = 0
				e.debug.check(DebugLaneChange, v.Lane, e.agentID(v))
			}
		case vehicle.PhaseAlign:
			v.LCTimer += dt
			if v.LCTimer >= e.lc.AlignDuration {
				v.ResetLaneChange()
				v.StartCooldown(e.lc.Cooldown)
			}
		}
	}
}

// safeToChange 目标车道前后车的净间距均不小于安全间隙
func (e *Engine) safeToChange(v *vehicle.Vehicle) bool {
	leader, follower := e.vs.Runtime(v.LCTarget).Neighbors(v.S, v)
	if leader != nil && vehicle.Gap(leader.S, leader.Length, v.S, v.Length) < requiredGap(&e.lc, v.V) {
		return false
	}
	if follower != nil && vehicle.Gap(v.S, v.Length, follower.S, follower.Length) < requiredGap(&e.lc, follower.V) {
		return false
	}
	return true
}

// abortCross 放弃横穿，留在原车道
func (e *Engine) abortCross(v *vehicle.Vehicle) {
	log.Debugf("vehicle %d aborts lane change %d -> %d", v.ID, v.Lane, v.LCTarget)
	v.ResetLaneChange()
	v.StartCooldown(e.lc.Cooldown)
	e.debug.check(DebugLaneChange, v.Lane, e.agentID(v))
}

// beneficial 目标车道的预期加速度不比当前车道差礼让阈值以上
func (e *Engine) beneficial(v *vehicle.Vehicle) bool {
	cur := e.vs.Runtime(v.Lane)
	desired := math.Min(v.DesiredSpeed, cur.MaxSpeed)
	aCur := Follow(&e.idm, v.V, desired, mathutil.INF, mathutil.INF)
	if l := cur.LeaderAt(cur.Index(v)); l != nil {
		aCur = Follow(&e.idm, v.V, desired, l.V, vehicle.Gap(l.S, l.Length, v.S, v.Length))
	}
	aTarget := Follow(&e.idm, v.V, desired, mathutil.INF, mathutil.INF)
	if l, _ := e.vs.Runtime(v.LCTarget).Neighbors(v.S, v); l != nil {
		aTarget = Follow(&e.idm, v.V, desired, l.V, vehicle.Gap(l.S, l.Length, v.S, v.Length))
	}
	return aTarget >= aCur-e.lc.Politeness
}
