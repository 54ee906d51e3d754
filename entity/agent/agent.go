// 智能体：车辆的目标、路径与卡死状态，以及车辆生成器
package agent

import (
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/container"
)

var log = logrus.WithField("module", "agent")

// StuckThreshold 连续规划失败达到该次数后标记为卡死
const StuckThreshold = 5

// Behavior 智能体行为类型
type Behavior uint8

const (
	BehaviorWander  Behavior = iota // 到达后由战略规划重新随机选取目标
	BehaviorCommute                 // 只前往给定目标，到达后移除
)

func (b Behavior) String() string {
	switch b {
	case BehaviorWander:
		return "wander"
	case BehaviorCommute:
		return "commute"
	}
	return "unknown"
}

// Agent 智能体
// 功能：包装一辆车，保存战略目标、边路径与当前边上允许驶出的车道掩码
// 说明：Path[0]是规划时车辆所在的边，PathOffset为当前正在行驶的边在Path中的下标
type Agent struct {
	container.IncrementalItemBase

	ID       int32
	Behavior Behavior
	Vehicle  *vehicle.Vehicle

	Goal         *roadnet.Node
	Path         []roadnet.EdgeID
	PathOffset   int
	LaneExitMask uint64 // 当前边上可驶入下一条边的车道横向下标掩码

	Stuck         bool
	GoalFailCount int
	Arrived       bool // 通勤型智能体已到达目标
}

// HasPath 是否有未走完的路径
func (a *Agent) HasPath() bool {
	return len(a.Path) > 0
}

// CurrentEdge 当前正在行驶的路径边，无路径时返回NoEdge
func (a *Agent) CurrentEdge() roadnet.EdgeID {
	if a.PathOffset < len(a.Path) {
		return a.Path[a.PathOffset]
	}
	return roadnet.NoEdge
}

// NextEdge 路径上的下一条边，已是最后一条时返回NoEdge
func (a *Agent) NextEdge() roadnet.EdgeID {
	if a.PathOffset+1 < len(a.Path) {
		return a.Path[a.PathOffset+1]
	}
	return roadnet.NoEdge
}

// SetPath 设置新路径并计算第一跳的车道掩码
func (a *Agent) SetPath(net *roadnet.RoadNetwork, path []roadnet.EdgeID) {
	a.Path = path
	a.PathOffset = 0
	a.updateExitMask(net)
}

// AdvancePath 驶入路径上的下一条边
// 返回：路径已耗尽时返回false
func (a *Agent) AdvancePath(net *roadnet.RoadNetwork) bool {
	if a.PathOffset+1 >= len(a.Path) {
		return false
	}
	a.PathOffset++
	a.updateExitMask(net)
	return true
}

func (a *Agent) updateExitMask(net *roadnet.RoadNetwork) {
	if cur := a.CurrentEdge(); cur != roadnet.NoEdge {
		a.LaneExitMask = net.ExitMask(cur, a.NextEdge())
	} else {
		a.LaneExitMask = 0
	}
}

// ClearPath 清空路径，下一步由战术规划重建
func (a *Agent) ClearPath() {
	a.Path = nil
	a.PathOffset = 0
	a.LaneExitMask = 0
}

// ClearGoal 清空目标与路径
func (a *Agent) ClearGoal() {
	a.Goal = nil
	a.ClearPath()
}

// PlanFailed 记录一次规划失败
// 返回：本次失败是否使智能体进入卡死状态
func (a *Agent) PlanFailed() bool {
	a.ClearGoal()
	a.GoalFailCount++
	if !a.Stuck && a.GoalFailCount >= StuckThreshold {
		a.Stuck = true
		return true
	}
	return false
}

// PlanSucceeded 规划成功，清除失败计数与卡死标记
func (a *Agent) PlanSucceeded() {
	a.GoalFailCount = 0
	a.Stuck = false
}

// GoalReached 到达目标：清空目标与路径，通勤型智能体标记为已到达
func (a *Agent) GoalReached() {
	a.ClearGoal()
	a.GoalFailCount = 0
	if a.Behavior == BehaviorCommute {
		a.Arrived = true
	}
}

// Unstick 外部解除卡死
func (a *Agent) Unstick() {
	a.Stuck = false
	a.GoalFailCount = 0
}

// Snapshot 智能体对外状态（调试用）
type Snapshot struct {
	ID            int32
	Vehicle       int32
	Behavior      Behavior
	Goal          int64 // 无目标时为-1
	Path          []roadnet.EdgeID
	PathOffset    int
	LaneExitMask  uint64
	Stuck         bool
	GoalFailCount int
}

func (a *Agent) Snapshot() Snapshot {
	s := Snapshot{
		ID:            a.ID,
		Vehicle:       -1,
		Behavior:      a.Behavior,
		Goal:          -1,
		Path:          append([]roadnet.EdgeID(nil), a.Path...),
		PathOffset:    a.PathOffset,
		LaneExitMask:  a.LaneExitMask,
		Stuck:         a.Stuck,
		GoalFailCount: a.GoalFailCount,
	}
	if a.Vehicle != nil {
		s.Vehicle = a.Vehicle.ID
	}
	if a.Goal != nil {
		s.Goal = a.Goal.ID
	}
	return s
}
