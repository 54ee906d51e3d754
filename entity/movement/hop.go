package movement

import (
	"math"

	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
)

// ChooseEntryLane 从车道from驶入边next时的目标车道
// 返回：目标车道与错误码
// 算法说明：
// 1. 车道没有任何连接：NoOutgoingConnection
// 2. 车道没有驶入next的连接：本边其他车道有时为IncorrectLane，否则为IncorrectEdge
// 3. 多个候选时优先非让行连接，其次横向下标变化最小，再次下标最小
func ChooseEntryLane(net *roadnet.RoadNetwork, from roadnet.LaneID, next roadnet.EdgeID) (roadnet.LaneID, vehicle.MoveError) {
	lane := net.Lane(from)
	if len(lane.Outgoing) == 0 {
		return roadnet.NoLane, vehicle.MoveNoOutgoingConnection
	}
	best := roadnet.NoLane
	var bestLink *roadnet.LaneLink
	better := func(k *roadnet.LaneLink) bool {
		if bestLink == nil {
			return true
		}
		if k.Yield != bestLink.Yield {
			return !k.Yield
		}
		ki, bi := net.Lane(k.To).IndexInEdge, net.Lane(bestLink.To).IndexInEdge
		if dk, db := abs(ki-lane.IndexInEdge), abs(bi-lane.IndexInEdge); dk != db {
			return dk < db
		}
		return ki < bi
	}
	for _, id := range lane.Outgoing {
		k := net.Link(id)
		if net.Lane(k.To).Edge != next {
			continue
		}
		if better(k) {
			best, bestLink = k.To, k
		}
	}
	if best != roadnet.NoLane {
		return best, vehicle.MoveOK
	}
	for _, sib := range net.Edge(lane.Edge).Lanes {
		if sib != from && net.ConnectsTo(sib, next) {
			return roadnet.NoLane, vehicle.MoveIncorrectLane
		}
	}
	return roadnet.NoLane, vehicle.MoveIncorrectEdge
}

// hop 处理驶过车道末端的车辆
// 说明：按车道从前到后收集，保证同一车道上的前车先于后车处理
func (e *Engine) hop() {
	var over []*vehicle.Vehicle
	for _, r := range e.vs.Runtimes() {
		for _, v := range r.Vehicles() {
			if v.S <= r.Length {
				break
			}
			if v.State.Moving() {
				over = append(over, v)
			}
		}
	}
	touched := make(map[roadnet.LaneID]struct{})
	for _, v := range over {
		if lane := e.hopVehicle(v); lane != roadnet.NoLane {
			touched[lane] = struct{}{}
		}
	}
	for lane := range touched {
		e.vs.Resort(lane)
	}
}

// hopVehicle 单辆车的跨边
// 返回：车辆被固定在末端的车道，需要重排；否则返回NoLane
// 算法说明：
// 1. 横穿中的车辆不跨边，固定在车道末端；准备中的变道取消
// 2. 没有下一条路径边：以NoPath停车（到达）
// 3. 选择驶入车道，失败时以相应错误码停车
// 4. 红灯或驶入位置与目标车道最后一辆车重叠时固定在车道末端，下一步重试
// 5. 成功后移入目标车道，推进路径并限制驶入速度
func (e *Engine) hopVehicle(v *vehicle.Vehicle) roadnet.LaneID {
	a := e.agents.ByVehicle(v.ID)
	for {
		lane := e.net.Lane(v.Lane)
		if v.S <= lane.Length {
			return roadnet.NoLane
		}
		if v.State.IsCrossing() {
			e.pin(v)
			return v.Lane
		}
		if v.State.IsPreparing() {
			v.ResetLaneChange()
		}
		if a == nil || !a.HasPath() {
			e.pin(v)
			v.Stop(vehicle.MoveNoPath)
			return v.Lane
		}
		if a.CurrentEdge() != lane.Edge {
			e.pin(v)
			v.Stop(vehicle.MoveIncorrectEdge)
			return v.Lane
		}
		next := a.NextEdge()
		if next == roadnet.NoEdge {
			e.pin(v)
			v.Stop(vehicle.MoveNoPath)
			return v.Lane
		}
		entry, err := ChooseEntryLane(e.net, v.Lane, next)
		if err != vehicle.MoveOK {
			e.pin(v)
			v.Stop(err)
			return v.Lane
		}
		if state, _ := e.light(lane.Edge); state == entity.LightRed {
			e.pin(v)
			return v.Lane
		}
		pos := v.S - lane.Length
		rear := e.vs.Runtime(entry).Rear()
		if rear != nil && rear.Rear() <= pos+v.Length/2 {
			e.pin(v)
			return v.Lane
		}
		e.vs.MoveToLane(v, entry, pos)
		a.AdvancePath(e.net)
		e.clampEntrySpeed(v, rear)
		e.debug.check(DebugHop, v.Lane, a.ID)
	}
}

// pin 把车辆固定在车道末端（不超过同车道前车允许的位置）并停住
func (e *Engine) pin(v *vehicle.Vehicle) {
	r := e.vs.Runtime(v.Lane)
	s := r.Length
	if l := r.LeaderAt(r.Index(v)); l != nil {
		s = math.Min(s, l.S-(l.Length+v.Length)/2)
	}
	v.S, v.SNext = s, s
	v.V, v.VNext = 0, 0
}

// clampEntrySpeed 驶入速度不超过车道限速，也不超过能在前车后方以舒适减速度减速的速度
func (e *Engine) clampEntrySpeed(v *vehicle.Vehicle, leader *vehicle.Vehicle) {
	limit := e.vs.Runtime(v.Lane).MaxSpeed
	if leader != nil {
		limit = math.Min(limit, safeEntrySpeed(&e.idm, leader.V, vehicle.Gap(leader.S, leader.Length, v.S, v.Length)))
	}
	v.V = math.Min(v.V, limit)
	v.VNext = v.V
}

