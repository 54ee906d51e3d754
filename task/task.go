package task

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/clock"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/agent"
	"github.com/tsinghua-fib-lab/lanesim/entity/junction"
	"github.com/tsinghua-fib-lab/lanesim/entity/movement"
	"github.com/tsinghua-fib-lab/lanesim/entity/planning"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet/builder"
	"github.com/tsinghua-fib-lab/lanesim/entity/route"
	"github.com/tsinghua-fib-lab/lanesim/entity/spatial"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/output"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
	"github.com/tsinghua-fib-lab/lanesim/utils/dispatcher"
	"github.com/tsinghua-fib-lab/lanesim/utils/geoutil"
	"github.com/tsinghua-fib-lab/lanesim/utils/input"
	"github.com/tsinghua-fib-lab/lanesim/utils/randengine"
)

var log = logrus.WithField("module", "task")

// FlowSnapDistance 按坐标给出的流量生成点到最近车道的最大距离（米）
const FlowSnapDistance = 200.0

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有变量和状态
// 说明：由NewContext创建，Init（或InitSegment）构建路网与各模块，之后由Run或Step推进
type Context struct {
	// 关闭指令
	closed atomic.Bool

	config config.Config
	clock  *clock.Clock
	// 事件分发，记录器等外部协作者在此订阅
	dispatcher *dispatcher.Dispatcher
	rng        *randengine.Engine

	segment   *roadnet.WorldSegment
	network   *roadnet.RoadNetwork
	grid      *spatial.Grid
	laneIndex *spatial.LaneIndex
	graph     *route.NodeGraph

	vehicles  *vehicle.System
	agents    *agent.Manager
	generator *agent.Generator
	junctions *junction.Manager
	// 每步按顺序执行：战略规划、战术规划、运动
	modules []entity.IModule

	recorder *output.Recorder
}

// NewContext 创建仿真任务上下文
// 参数：c-已校验的配置，d-事件分发器，为nil时内部创建
func NewContext(c config.Config, d *dispatcher.Dispatcher) *Context {
	if d == nil {
		d = dispatcher.New()
	}
	return &Context{
		config:     c,
		clock:      clock.New(c.Control.Step),
		dispatcher: d,
		rng:        randengine.NewFromSettings(c.Simulation.Seed.Value, c.Simulation.Seed.Random),
	}
}

func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

func (ctx *Context) Config() *config.Config {
	return &ctx.config
}

func (ctx *Context) Segment() *roadnet.WorldSegment {
	return ctx.segment
}

func (ctx *Context) Network() *roadnet.RoadNetwork {
	return ctx.network
}

func (ctx *Context) Emitter() entity.IEmitter {
	return ctx.dispatcher
}

// Dispatcher 事件分发器
func (ctx *Context) Dispatcher() *dispatcher.Dispatcher {
	return ctx.dispatcher
}

// Signals 信号控制，未启用信号或没有信号路口时返回nil
func (ctx *Context) Signals() entity.ISignalController {
	if ctx.junctions == nil || ctx.junctions.Len() == 0 {
		return nil
	}
	return ctx.junctions
}

// JunctionManager 信号路口管理器
func (ctx *Context) JunctionManager() *junction.Manager {
	return ctx.junctions
}

// Generator 车辆生成器
func (ctx *Context) Generator() *agent.Generator {
	return ctx.generator
}

// AgentManager 智能体管理器
func (ctx *Context) AgentManager() *agent.Manager {
	return ctx.agents
}

// Init 读取配置中的OSM文件并初始化
func (ctx *Context) Init(c context.Context) error {
	if ctx.config.Input.OSM == "" {
		return errors.New("task: input.osm is empty")
	}
	seg, err := input.LoadOSM(c, ctx.config.Input.OSM, 0)
	if err != nil {
		return err
	}
	return ctx.InitSegment(seg)
}

// InitSegment 在给定地图区域上初始化
// 算法说明：
// 1. 预处理地图区域，依次执行收缩构建与车道连接构建
// 2. 构建道路网格、车道空间索引与节点图
// 3. 创建车辆系统、智能体管理器、信号路口与生成器（流量生成点按车道ID或最近车道解析）
// 4. 按战略规划、战术规划、运动的顺序登记模块
// 5. 配置了SQLite输出时打开记录器并订阅事件
// 6. 发布SimulationInitialized并开始生成
func (ctx *Context) InitSegment(seg *roadnet.WorldSegment) error {
	ctx.clock.Init()
	c := &ctx.config

	net, err := builder.Build(seg)
	if err != nil {
		return fmt.Errorf("task: build network: %w", err)
	}
	ctx.segment = seg
	ctx.network = net
	ctx.grid = spatial.NewGrid(seg, 0)
	ctx.laneIndex = spatial.NewLaneIndex(net, seg.Bound)
	ctx.graph = route.NewNodeGraph(net)

	ctx.vehicles = vehicle.NewSystem(net, vehicle.DefaultMinSpawnGap)
	ctx.agents = agent.NewManager(ctx.vehicles)
	if ctx.junctions, err = junction.NewManager(net, ctx.vehicles, c.Junction); err != nil {
		return fmt.Errorf("task: junctions: %w", err)
	}

	switch c.Simulation.Generator {
	case config.GeneratorBulk:
		ctx.generator = agent.NewBulkGenerator(
			ctx.agents, ctx.Emitter(), ctx.rng.Fork(),
			c.VehicleTypes, c.Simulation.Vehicles, c.Simulation.Bulk,
		)
	case config.GeneratorFlow:
		sources, err := ctx.resolveFlows()
		if err != nil {
			return err
		}
		ctx.generator = agent.NewFlowGenerator(ctx.agents, ctx.Emitter(), sources, c.Simulation.Vehicles)
	default:
		return fmt.Errorf("task: unknown generator %q", c.Simulation.Generator)
	}

	ctx.modules = []entity.IModule{
		planning.NewStrategic(ctx.agents, ctx.grid, ctx.graph, ctx.rng.Fork(), c.Simulation.GoalMinRadius, c.Simulation.GoalMaxRadius),
		planning.NewTactical(ctx.agents, net, ctx.graph, ctx.Emitter()),
		movement.NewEngine(ctx.agents, ctx.Signals(), ctx.Emitter(), c),
	}

	if c.Output.SQLite != "" {
		if ctx.recorder, err = output.Open(c.Output.SQLite); err != nil {
			return err
		}
		ctx.recorder.Attach(ctx.dispatcher)
	}

	ctx.dispatcher.Emit(entity.PublisherSimulation, entity.SimulationInitialized{
		Nodes:     len(net.Nodes()),
		Edges:     net.NumEdges(),
		Lanes:     net.NumLanes(),
		Links:     net.NumLinks(),
		Generator: string(c.Simulation.Generator),
		Movement:  string(c.Simulation.Movement),
	})
	log.Infof("Node: %d, Edge: %d, Lane: %d, Link: %d, Junction: %d",
		len(net.Nodes()), net.NumEdges(), net.NumLanes(), net.NumLinks(), ctx.junctions.Len())
	ctx.generator.StartPopulating()
	return nil
}

// resolveFlows 将配置中的流量生成点解析为车道
func (ctx *Context) resolveFlows() ([]*agent.FlowSource, error) {
	c := &ctx.config
	var errs []error
	sources := make([]*agent.FlowSource, 0, len(c.Simulation.Flows))
	for i, f := range c.Simulation.Flows {
		vt, ok := c.VehicleType(f.VehicleType)
		if !ok {
			errs = append(errs, fmt.Errorf("flows[%d]: unknown vehicle type %q", i, f.VehicleType))
			continue
		}
		src := &agent.FlowSource{Rate: f.Rate, Type: vt}
		switch {
		case f.Lane != nil:
			if *f.Lane < 0 || int(*f.Lane) >= ctx.network.NumLanes() {
				errs = append(errs, fmt.Errorf("flows[%d]: lane %d out of range", i, *f.Lane))
				continue
			}
			src.Lane = roadnet.LaneID(*f.Lane)
		default:
			hit, ok := ctx.snapFlow(i, *f.Lat, *f.Lon)
			if !ok {
				errs = append(errs, fmt.Errorf("flows[%d]: no lane within %vm of (%v, %v)", i, FlowSnapDistance, *f.Lat, *f.Lon))
				continue
			}
			src.Lane = hit.Lane
		}
		if f.Goal != nil {
			if src.Goal = ctx.network.Node(*f.Goal); src.Goal == nil {
				errs = append(errs, fmt.Errorf("flows[%d]: unknown goal node %d", i, *f.Goal))
				continue
			}
		}
		if src.Goal != nil {
			from := ctx.network.Edge(ctx.network.Lane(src.Lane).Edge).End.ID
			if from != src.Goal.ID && len(route.FindEdgePath(ctx.network, from, src.Goal.ID)) == 0 {
				log.Warnf("flows[%d]: goal node %d is unreachable from lane %d", i, src.Goal.ID, src.Lane)
			}
		}
		sources = append(sources, src)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("task: %w", err)
	}
	return sources, nil
}

// snapFlow 第i个流量生成点由经纬度吸附到最近车道
// 算法说明：先在平面车道索引中取最近车道，再把吸附点反投影为经纬度，按大圆距离与FlowSnapDistance比较
func (ctx *Context) snapFlow(i int, lat, lon float64) (spatial.LaneHit, bool) {
	pr := ctx.segment.Projector
	hit, ok := ctx.laneIndex.NearestLane(pr.Project(lat, lon), 0)
	if !ok {
		return hit, false
	}
	sLat, sLon := pr.Unproject(ctx.network.Lane(hit.Lane).GetPositionByS(hit.S))
	d := geoutil.Haversine(lat, lon, sLat, sLon)
	if d > FlowSnapDistance {
		return hit, false
	}
	if d > 0 {
		log.Debugf("flows[%d]: snapped to lane %d, %.1fm at bearing %.0f", i, hit.Lane, d, geoutil.Bearing(lat, lon, sLat, sLon))
	}
	return hit, true
}

// Vehicles 全部车辆的对外状态
func (ctx *Context) Vehicles() []vehicle.Snapshot {
	return ctx.vehicles.Snapshot()
}

// Agents 全部智能体的对外状态
func (ctx *Context) Agents() []agent.Snapshot {
	return ctx.agents.Snapshot()
}

// Stop 请求Run在当前步结束后退出
func (ctx *Context) Stop() {
	ctx.closed.Store(true)
}

// Close 关闭记录器，分发器中剩余的异步订阅者一并关闭
func (ctx *Context) Close() error {
	ctx.closed.Store(true)
	var err error
	if ctx.recorder != nil {
		err = ctx.recorder.Close()
		ctx.recorder = nil
	}
	ctx.dispatcher.Close()
	return err
}
