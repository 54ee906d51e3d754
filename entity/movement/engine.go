// 车辆运动：两阶段IDM跟驰、变道状态机、跨边与简单运动学模型
package movement

import (
	"git.fiblab.net/general/common/v2/mathutil"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/agent"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

var log = logrus.WithField("module", "movement")

// Engine 车辆运动模块
// 功能：每步推进所有车辆
// 算法说明：
// 1. 第一阶段（按车道并行）：只读当前状态，计算加速度并写入VNext/SNext，同时生成变道意愿；
// 横穿中的车辆同时作为目标车道后车的前车
// 2. 第二阶段（串行）：提交位置并恢复车道排序，推进变道状态机，处理驶过车道末端的车辆
type Engine struct {
	agents  *agent.Manager
	vs      *vehicle.System
	net     *roadnet.RoadNetwork
	signals entity.ISignalController

	algorithm config.MovementAlgorithm
	idm       config.IDM
	lc        config.LaneChange
	debug     *debugger

	crossing [][]*vehicle.Vehicle // 目标车道 -> 正在横穿进入该车道的车辆
}

// NewEngine 创建运动模块
// 参数：signals-信号控制，可以为nil（无信号）
func NewEngine(agents *agent.Manager, signals entity.ISignalController, emitter entity.IEmitter, cfg *config.Config) *Engine {
	vs := agents.Vehicles()
	return &Engine{
		agents:    agents,
		vs:        vs,
		net:       vs.Network(),
		signals:   signals,
		algorithm: cfg.Simulation.Movement,
		idm:       cfg.IDM,
		lc:        cfg.LaneChange,
		debug:     newDebugger(cfg.Debug, emitter),
	}
}

func (e *Engine) Name() string { return "movement" }

// Update 推进一步
func (e *Engine) Update(dt float64) {
	e.indexCrossing()
	parallel.GoFor(e.vs.Runtimes(), func(r *vehicle.LaneRuntime) {
		e.computeLane(r, dt)
	})
	if e.debug.watching(DebugCompute) {
		for _, v := range e.vs.Vehicles() {
			e.debug.check(DebugCompute, v.Lane, e.agentID(v))
		}
	}
	e.commit(dt)
	if e.algorithm == config.MovementIDM {
		e.advanceLaneChanges(dt)
	}
	e.hop()
}

// commit 提交下一步速度与位置，恢复车道排序
func (e *Engine) commit(dt float64) {
	for _, v := range e.vs.Vehicles() {
		if v.State.Moving() {
			v.V, v.S = v.VNext, v.SNext
		}
		v.TickCooldown(dt)
		e.debug.check(DebugCommit, v.Lane, e.agentID(v))
	}
	for i := range e.vs.Runtimes() {
		e.vs.Resort(roadnet.LaneID(i))
	}
}

// indexCrossing 按目标车道索引横穿中的车辆，供第一阶段只读使用
func (e *Engine) indexCrossing() {
	n := len(e.vs.Runtimes())
	if len(e.crossing) != n {
		e.crossing = make([][]*vehicle.Vehicle, n)
	}
	for i := range e.crossing {
		e.crossing[i] = e.crossing[i][:0]
	}
	if e.algorithm != config.MovementIDM {
		return
	}
	for _, v := range e.vs.Vehicles() {
		if v.State.IsCrossing() && v.LCTarget != roadnet.NoLane {
			e.crossing[v.LCTarget] = append(e.crossing[v.LCTarget], v)
		}
	}
}

func (e *Engine) agentID(v *vehicle.Vehicle) int32 {
	if a := e.agents.ByVehicle(v.ID); a != nil {
		return a.ID
	}
	return -1
}

// light 沿边到达终点时的信号
func (e *Engine) light(edge roadnet.EdgeID) (entity.LightState, float64) {
	if e.signals == nil {
		return entity.LightGreen, mathutil.INF
	}
	return e.signals.Light(edge)
}
