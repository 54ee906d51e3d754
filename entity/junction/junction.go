package junction

import (
	"math"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/samber/lo"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/junction/trafficlight"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

// axisTolerance 与第一个进口道方向夹角（模π）不超过该值的进口道归为同一轴向
const axisTolerance = math.Pi / 4

// approach 进口道：一条驶入路口的边
// 实现trafficlight.IApproach，信号状态在Prepare阶段写入，在运动阶段只读
type approach struct {
	edge     roadnet.EdgeID
	runtimes []*vehicle.LaneRuntime

	state     entity.LightState
	totalTime float64
	remaining float64
}

func (a *approach) SetLight(state entity.LightState, totalTime, remainingTime float64) {
	a.state = state
	a.totalTime = totalTime
	a.remaining = remainingTime
}

// Pressure 进口道上所有车道的车辆数
func (a *approach) Pressure() float64 {
	return float64(lo.SumBy(a.runtimes, func(r *vehicle.LaneRuntime) int { return r.Len() }))
}

// Junction 信号路口
type Junction struct {
	node         *roadnet.Node
	approaches   []*approach
	groupA       []bool // 进口道是否属于第一轴向
	trafficLight ITrafficLight
}

// newJunction 创建信号路口
// 功能：把驶入边按轴向分为两组，依据配置生成固定配时或最大压力信控
// 参数：index-路口序号，用于错开各路口固定配时的起始相位
func newJunction(
	rec *roadnet.Junction,
	net *roadnet.RoadNetwork,
	vs *vehicle.System,
	cfg config.Junction,
	index int,
) (*Junction, error) {
	j := &Junction{node: rec.Node}
	for _, id := range rec.Incoming {
		edge := net.Edge(id)
		j.approaches = append(j.approaches, &approach{
			edge: id,
			runtimes: lo.Map(edge.Lanes, func(l roadnet.LaneID, _ int) *vehicle.LaneRuntime {
				return vs.Runtime(l)
			}),
			state:     entity.LightGreen,
			totalTime: mathutil.INF,
			remaining: mathutil.INF,
		})
	}
	j.groupA = groupByAxis(lo.Map(rec.Incoming, func(id roadnet.EdgeID, _ int) float64 {
		return net.Edge(id).Heading
	}))
	approaches := lo.Map(j.approaches, func(a *approach, _ int) trafficlight.IApproach { return a })

	switch cfg.Policy {
	case config.SignalMaxPressure:
		j.trafficLight = trafficlight.NewMaxPressure(j.pressurePhases(), approaches, trafficlight.MaxPressureTiming{
			Phase:     cfg.Green,
			Yellow:    cfg.Yellow,
			AllRed:    cfg.AllRed,
			MaxRepeat: cfg.MaxRepeat,
		})
	default:
		program := j.fixedProgram(cfg.Green, cfg.Yellow)
		tl, err := trafficlight.NewFixedTime(program, approaches, index%len(program.Phases))
		if err != nil {
			return nil, err
		}
		j.trafficLight = tl
	}
	return j, nil
}

// groupByAxis 轴向分组
// 算法说明：方向角对π取模后与第一个进口道比较，夹角不超过axisTolerance的为第一组（true）
func groupByAxis(headings []float64) []bool {
	res := make([]bool, len(headings))
	if len(headings) == 0 {
		return res
	}
	axis := func(h float64) float64 {
		h = math.Mod(h, math.Pi)
		if h < 0 {
			h += math.Pi
		}
		return h
	}
	first := axis(headings[0])
	for i, h := range headings {
		d := math.Abs(axis(h) - first)
		d = math.Min(d, math.Pi-d)
		res[i] = d <= axisTolerance+1e-9
	}
	return res
}

func (j *Junction) hasGroupB() bool {
	return lo.Contains(j.groupA, false)
}

// statesFor 第一组取a，第二组取b
func (j *Junction) statesFor(a, b entity.LightState) []entity.LightState {
	return lo.Map(j.groupA, func(inA bool, _ int) entity.LightState {
		if inA {
			return a
		}
		return b
	})
}

// fixedProgram 两相位固定配时
// 说明：只有一个轴向时退化为绿-黄-红循环
func (j *Junction) fixedProgram(green, yellow float64) *trafficlight.Program {
	G, Y, R := entity.LightGreen, entity.LightYellow, entity.LightRed
	if !j.hasGroupB() {
		return &trafficlight.Program{Phases: []trafficlight.Phase{
			{States: j.statesFor(G, G), Duration: green},
			{States: j.statesFor(Y, Y), Duration: yellow},
			{States: j.statesFor(R, R), Duration: green},
		}}
	}
	return &trafficlight.Program{Phases: []trafficlight.Phase{
		{States: j.statesFor(G, R), Duration: green},
		{States: j.statesFor(Y, R), Duration: yellow},
		{States: j.statesFor(R, G), Duration: green},
		{States: j.statesFor(R, Y), Duration: yellow},
	}}
}

// pressurePhases 最大压力的可选相位，只有一个轴向时只有一个相位（不信控）
func (j *Junction) pressurePhases() [][]entity.LightState {
	G, R := entity.LightGreen, entity.LightRed
	if !j.hasGroupB() {
		return [][]entity.LightState{j.statesFor(G, G)}
	}
	return [][]entity.LightState{j.statesFor(G, R), j.statesFor(R, G)}
}

func (j *Junction) prepare() {
	j.trafficLight.Prepare()
}

func (j *Junction) update(dt float64) {
	j.trafficLight.Update(dt)
}

// ID 路口所在节点ID
func (j *Junction) ID() int64 {
	return j.node.ID
}

// TrafficLight 路口信号灯
func (j *Junction) TrafficLight() ITrafficLight {
	return j.trafficLight
}
