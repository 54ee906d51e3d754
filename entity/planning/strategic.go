// 战略规划（目标选取）与战术规划（车道感知的路径构建与失败处理）
package planning

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity/agent"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/route"
	"github.com/tsinghua-fib-lab/lanesim/entity/spatial"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/randengine"
)

var log = logrus.WithField("module", "planning")

// GoalReachedEpsilon 车辆与目标节点距离小于该值（米）时视为到达
const GoalReachedEpsilon = 3.0

// goalRounds 每步为一个智能体随机选取可达目标的最大轮数
const goalRounds = 3

// Strategic 战略规划模块
// 功能：清除已到达的目标，为没有目标且未卡死的游走型智能体随机选取新目标
type Strategic struct {
	agents *agent.Manager
	grid   *spatial.Grid
	graph  *route.NodeGraph
	rng    *randengine.Engine

	MinRadius, MaxRadius float64
}

// NewStrategic 创建战略规划模块
// 参数：graph-节点图，用于剔除不可达的随机目标，可以为nil（不检查）
func NewStrategic(agents *agent.Manager, grid *spatial.Grid, graph *route.NodeGraph, rng *randengine.Engine, minRadius, maxRadius float64) *Strategic {
	return &Strategic{
		agents:    agents,
		grid:      grid,
		graph:     graph,
		rng:       rng,
		MinRadius: minRadius,
		MaxRadius: maxRadius,
	}
}

func (m *Strategic) Name() string { return "strategic" }

// Update 逐个智能体检查目标
// 说明：卡死的智能体整体跳过，直到被外部解除
func (m *Strategic) Update(dt float64) {
	for _, a := range m.agents.Agents() {
		v := a.Vehicle
		if v == nil || a.Stuck || a.Arrived {
			continue
		}
		pos := geometry.Point{X: v.X, Y: v.Y}
		if a.Goal != nil && math.Hypot(a.Goal.XY.X-pos.X, a.Goal.XY.Y-pos.Y) <= GoalReachedEpsilon {
			log.Debugf("agent %d reached goal %d", a.ID, a.Goal.ID)
			a.GoalReached()
			if a.Arrived {
				continue
			}
		}
		if a.Goal == nil && a.Behavior == agent.BehaviorWander {
			a.Goal = m.randomGoal(v, pos)
		}
	}
}

// randomGoal 随机选取从车辆当前边终点可达的目标节点，goalRounds轮均失败时返回nil
func (m *Strategic) randomGoal(v *vehicle.Vehicle, pos geometry.Point) *roadnet.Node {
	for i := 0; i < goalRounds; i++ {
		n := spatial.FindRandomGoal(m.grid, pos, m.MinRadius, m.MaxRadius, m.rng)
		if n == nil {
			return nil
		}
		if m.graph == nil {
			return n
		}
		net := m.agents.Vehicles().Network()
		if from := net.Edge(net.Lane(v.Lane).Edge).End.ID; m.graph.Connected(from, n.ID) {
			return n
		}
	}
	return nil
}
