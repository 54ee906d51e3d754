package planning

import (
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/agent"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/route"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
)

// Tactical 战术规划模块
// 功能：处理运动引擎报告的停车错误，并为有目标、无路径、已停车的智能体构建车道感知的边路径
type Tactical struct {
	agents  *agent.Manager
	net     *roadnet.RoadNetwork
	graph   *route.NodeGraph
	emitter entity.IEmitter
}

// NewTactical 创建战术规划模块
// 参数：graph-节点图，规划失败时用于区分目标不可达与车道连接不满足，可以为nil
func NewTactical(agents *agent.Manager, net *roadnet.RoadNetwork, graph *route.NodeGraph, emitter entity.IEmitter) *Tactical {
	return &Tactical{agents: agents, net: net, graph: graph, emitter: emitter}
}

func (m *Tactical) Name() string { return "tactical" }

// Update 逐个智能体处理
// 算法说明：
// 1. 停车错误处理：
//   - NoPath：路径走完，视为到达目标
//   - NoOutgoingConnection：车道无出口，视为一次规划失败
//   - IncorrectEdge/IncorrectLane：路径与位置不同步，只清空路径，不计失败
//
// 2. 有目标、无路径且已停车时运行车道感知A*，成功则设置路径并恢复跟驰，失败则清空目标并累计失败次数
func (m *Tactical) Update(dt float64) {
	for _, a := range m.agents.Agents() {
		v := a.Vehicle
		if v == nil || !v.State.IsStopped() {
			continue
		}
		switch v.Err {
		case vehicle.MoveNoPath:
			a.GoalReached()
		case vehicle.MoveNoOutgoingConnection:
			m.failed(a)
		case vehicle.MoveIncorrectEdge, vehicle.MoveIncorrectLane:
			a.ClearPath()
		}
		v.Err = vehicle.MoveOK

		if a.Goal == nil || a.HasPath() {
			continue
		}
		path := route.FindLanePath(m.net, v.Lane, v.S, a.Goal.ID)
		if len(path) == 0 {
			log.Debugf("agent %d: no path from lane %d to node %d (%s)", a.ID, v.Lane, a.Goal.ID, m.diagnose(v, a.Goal.ID))
			m.failed(a)
			continue
		}
		a.SetPath(m.net, path)
		a.PlanSucceeded()
		v.Start()
	}
}

// diagnose 车道感知规划失败的原因
func (m *Tactical) diagnose(v *vehicle.Vehicle, goal int64) string {
	if m.graph == nil {
		return "unknown"
	}
	from := m.net.Edge(m.net.Lane(v.Lane).Edge).End.ID
	if len(m.graph.FindPath(from, goal)) == 0 {
		return "goal unreachable"
	}
	return "lane connections"
}

func (m *Tactical) failed(a *agent.Agent) {
	if !a.PlanFailed() {
		return
	}
	log.Warnf("agent %d is stuck after %d failed plans", a.ID, a.GoalFailCount)
	if m.emitter != nil {
		m.emitter.Emit(entity.PublisherSimulation, entity.AgentStuck{
			Agent:     a.ID,
			Vehicle:   a.Vehicle.ID,
			FailCount: a.GoalFailCount,
		})
	}
}
