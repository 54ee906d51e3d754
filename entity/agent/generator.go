package agent

import (
	"errors"
	"fmt"

	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
	"github.com/tsinghua-fib-lab/lanesim/utils/randengine"
)

// GeneratorState 生成器状态
type GeneratorState uint8

const (
	GeneratorIdle       GeneratorState = iota // 尚未开始
	GeneratorPopulating                       // 生成中
	GeneratorCompleted                        // 已达到目标数量
	GeneratorFailed                           // 超出尝试预算仍未达到目标
)

func (s GeneratorState) String() string {
	switch s {
	case GeneratorIdle:
		return "idle"
	case GeneratorPopulating:
		return "populating"
	case GeneratorCompleted:
		return "completed"
	case GeneratorFailed:
		return "failed"
	}
	return "unknown"
}

// FlowSource 流量生成点
type FlowSource struct {
	Lane roadnet.LaneID
	Rate float64       // 车辆/小时
	Goal *roadnet.Node // 为nil时车辆随机游走
	Type config.VehicleType

	acc float64 // 累计的小数车辆数
}

// Generator 车辆生成器
// 功能：按Kind选择批量（Bulk）或流量（Flow）策略生成智能体
// 说明：两种策略的接口相同：StartPopulating、Populate、IsDone
type Generator struct {
	Kind  config.GeneratorKind
	State GeneratorState

	agents  *Manager
	emitter entity.IEmitter

	// bulk
	rng    *randengine.Engine
	types  []config.VehicleType
	budget config.Bulk

	// flow
	sources []*FlowSource

	target    int // 目标数量，流量生成器为0表示不限
	generated int
	ticks     int
}

// NewBulkGenerator 创建批量生成器
// 参数：target-目标车辆数，budget-步数与每步尝试次数预算，types-车型（均匀随机选取）
func NewBulkGenerator(
	agents *Manager, emitter entity.IEmitter, rng *randengine.Engine,
	types []config.VehicleType, target int, budget config.Bulk,
) *Generator {
	if len(types) == 0 {
		log.Panic("bulk generator needs at least one vehicle type")
	}
	return &Generator{
		Kind:    config.GeneratorBulk,
		agents:  agents,
		emitter: emitter,
		rng:     rng,
		types:   types,
		budget:  budget,
		target:  target,
	}
}

// NewFlowGenerator 创建流量生成器
// 参数：limit-累计生成上限，0为不限
func NewFlowGenerator(agents *Manager, emitter entity.IEmitter, sources []*FlowSource, limit int) *Generator {
	for _, s := range sources {
		if s.Rate < 0 {
			log.Panicf("negative flow rate %v on lane %d", s.Rate, s.Lane)
		}
	}
	return &Generator{
		Kind:    config.GeneratorFlow,
		agents:  agents,
		emitter: emitter,
		sources: sources,
		target:  limit,
	}
}

// StartPopulating 开始生成
func (g *Generator) StartPopulating() {
	g.State = GeneratorPopulating
	g.generated = 0
	g.ticks = 0
	for _, s := range g.sources {
		s.acc = 0
	}
	if g.Kind == config.GeneratorBulk && g.target == 0 {
		g.State = GeneratorCompleted
	}
	log.Infof("%s generator started, target %d", g.Kind, g.target)
}

// IsDone 是否已结束（完成或失败）
func (g *Generator) IsDone() bool {
	return g.State == GeneratorCompleted || g.State == GeneratorFailed
}

// Failed 是否处于错误状态
func (g *Generator) Failed() bool {
	return g.State == GeneratorFailed
}

// Generated 累计生成数
func (g *Generator) Generated() int {
	return g.generated
}

// Ticks 已运行步数
func (g *Generator) Ticks() int {
	return g.ticks
}

// Populate 推进一步
// 返回：本步生成的车辆数
func (g *Generator) Populate(dt float64) int {
	if g.State != GeneratorPopulating {
		return 0
	}
	g.ticks++
	var n int
	switch g.Kind {
	case config.GeneratorBulk:
		n = g.populateBulk()
	case config.GeneratorFlow:
		n = g.populateFlow(dt)
	default:
		log.Panicf("unknown generator kind %q", g.Kind)
	}
	g.generated += n
	if n > 0 || g.IsDone() {
		g.emit(n)
	}
	return n
}

func (g *Generator) emit(n int) {
	if g.emitter == nil {
		return
	}
	g.emitter.Emit(entity.PublisherSimulation, entity.VehiclesPopulated{
		Generated: n,
		Current:   g.generated,
		Total:     g.target,
		Ticks:     g.ticks,
		Error:     g.Failed(),
	})
}

// populateBulk 批量生成
// 算法说明：
// 1. 每步最多尝试AttemptsPerTick次：均匀随机选取车道与车型
// 2. 优先放在车道起点，起点没有空间时在车道上随机选一个位置再试一次
// 3. 达到目标数量后完成；运行MaxTicks步仍未完成则进入错误状态
func (g *Generator) populateBulk() int {
	vs := g.agents.Vehicles()
	numLanes := vs.Network().NumLanes()
	n := 0
	for attempt := 0; attempt < g.budget.AttemptsPerTick && g.generated+n < g.target && numLanes > 0; attempt++ {
		lane := roadnet.LaneID(g.rng.Intn(numLanes))
		vt := g.types[g.rng.Intn(len(g.types))]
		length := vs.Runtime(lane).Length
		if length < vt.Length {
			continue
		}
		pos := vehicle.SpawnPosition(vt)
		if !vs.CanSpawn(lane, pos, vt.Length) {
			pos = g.rng.Uniform(vt.Length/2, length-vt.Length/2)
		}
		if _, err := g.agents.Spawn(lane, pos, vt, BehaviorWander, nil); err != nil {
			if !errors.Is(err, vehicle.ErrNoRoom) {
				log.Panicf("bulk spawn: %v", err)
			}
			continue
		}
		n++
	}
	switch {
	case g.generated+n >= g.target:
		g.State = GeneratorCompleted
		log.Infof("bulk generator completed: %d vehicles in %d ticks", g.generated+n, g.ticks)
	case g.budget.MaxTicks > 0 && g.ticks >= int(g.budget.MaxTicks):
		g.State = GeneratorFailed
		log.Warnf("bulk generator failed: %d/%d vehicles after %d ticks", g.generated+n, g.target, g.ticks)
	}
	return n
}

// populateFlow 流量生成
// 算法说明：每个生成点累计rate*dt/3600，累计值不小于1时在车道起点生成一辆车；
// 起点没有空间时保留累计值，下一步再试
func (g *Generator) populateFlow(dt float64) int {
	n := 0
	for _, s := range g.sources {
		s.acc += s.Rate * dt / 3600
		for s.acc >= 1 {
			if g.target > 0 && g.generated+n >= g.target {
				break
			}
			behavior := BehaviorWander
			if s.Goal != nil {
				behavior = BehaviorCommute
			}
			_, err := g.agents.Spawn(s.Lane, vehicle.SpawnPosition(s.Type), s.Type, behavior, s.Goal)
			if errors.Is(err, vehicle.ErrNoRoom) {
				break
			}
			if err != nil {
				log.Panicf("flow spawn: %v", err)
			}
			s.acc--
			n++
		}
	}
	if g.target > 0 && g.generated+n >= g.target {
		g.State = GeneratorCompleted
		log.Infof("flow generator reached limit %d in %d ticks", g.target, g.ticks)
	}
	return n
}

// String 进度描述
func (g *Generator) String() string {
	return fmt.Sprintf("%s generator [%s] %d/%d in %d ticks", g.Kind, g.State, g.generated, g.target, g.ticks)
}
