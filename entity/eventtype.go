package entity

import "github.com/tsinghua-fib-lab/lanesim/entity/vehicle"

// 事件名
const (
	EventSimulationInitialized = "simulation_initialized"
	EventVehiclesPopulated     = "vehicles_populated"
	EventTickCompleted         = "tick_completed"
	EventAgentStuck            = "agent_stuck"
	EventDebugSelection        = "debug_selection"
)

// PublisherSimulation 仿真核心发布事件时使用的发布者名
const PublisherSimulation = "simulation"

// SimulationInitialized 路网构建与生成器初始化完成
type SimulationInitialized struct {
	Nodes, Edges, Lanes, Links int
	Generator                  string
	Movement                   string
}

func (SimulationInitialized) EventName() string { return EventSimulationInitialized }

// VehiclesPopulated 生成器进度
type VehiclesPopulated struct {
	Generated int  // 本步生成数
	Current   int  // 累计生成数
	Total     int  // 目标数，流量生成器不限量时为0
	Ticks     int  // 生成器已运行步数
	Error     bool // 生成器进入错误状态（超出预算）
}

func (VehiclesPopulated) EventName() string { return EventVehiclesPopulated }

// TickCompleted 按输出间隔发布的车辆状态
type TickCompleted struct {
	Step     int32
	T        float64
	Vehicles []vehicle.Snapshot
}

func (TickCompleted) EventName() string { return EventTickCompleted }

// AgentStuck 智能体连续规划失败被标记为卡死
type AgentStuck struct {
	Agent     int32
	Vehicle   int32
	FailCount int
}

func (AgentStuck) EventName() string { return EventAgentStuck }

// DebugSelection 调试断点命中
type DebugSelection struct {
	Lane  int32
	Agent int32
	Phase string
}

func (DebugSelection) EventName() string { return EventDebugSelection }
