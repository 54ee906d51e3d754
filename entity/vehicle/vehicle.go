// 车辆运行时：车辆对象池、按车道排序的占用索引
package vehicle

import (
	"math"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

var log = logrus.WithField("module", "vehicle")

// Vehicle 车辆
// 功能：保存车辆的运动学状态与变道状态，对象由System的对象池分配，指针在车辆存活期间保持不变
type Vehicle struct {
	ID   int32
	Type string

	Length       float64
	Width        float64
	DesiredSpeed float64

	V, VNext float64 // 当前/下一步速度
	S, SNext float64 // 当前/下一步车辆中心在车道上的s坐标
	A        float64 // 本步加速度
	Offset   float64 // 相对车道中心线的横向偏移，沿行驶方向右侧为正

	Lane roadnet.LaneID

	// 变道
	LCTarget    roadnet.LaneID // 目标车道，无变道时为NoLane
	LCTimer     float64        // 当前变道阶段已持续的时间
	LCDir       int            // -1向左，+1向右
	LCMandatory bool           // 强制变道（为满足路径要求）
	Cooldown    float64        // 剩余冷却时间

	State State
	Err   MoveError

	// 世界坐标，生成时与每次CommitWorld时计算
	X, Y, Heading float64
}

func (v *Vehicle) init(id int32, vt config.VehicleType, lane roadnet.LaneID, s float64) {
	v.ID = id
	v.Type = vt.Name
	v.Length = vt.Length
	v.Width = vt.Width
	v.DesiredSpeed = vt.DesiredSpeed
	v.Lane = lane
	v.S, v.SNext = s, s
	v.LCTarget = roadnet.NoLane
	v.State = State{Phase: PhaseStopped}
}

// Front 车头s坐标
func (v *Vehicle) Front() float64 { return v.S + v.Length/2 }

// Rear 车尾s坐标
func (v *Vehicle) Rear() float64 { return v.S - v.Length/2 }

// Gap 车辆与前车的净间距（保险杠到保险杠），不小于0
func Gap(leaderS, leaderLength, followerS, followerLength float64) float64 {
	return max(leaderS-followerS-(leaderLength+followerLength)/2, 0)
}

// Stop 以错误码e停车
// 说明：MoveNoPath表示正常到达，不置错误标志
func (v *Vehicle) Stop(e MoveError) {
	v.V, v.VNext, v.A = 0, 0, 0
	v.Err = e
	v.ResetLaneChange()
	v.State.Phase = PhaseStopped
	if e != MoveOK && e != MoveNoPath {
		v.State.Set(FlagError)
	}
	if e != MoveOK {
		log.Debugf("vehicle %d stopped on lane %d: %v", v.ID, v.Lane, e)
	}
}

// Start 由战术规划调用：清除错误并进入跟驰
func (v *Vehicle) Start() {
	v.Err = MoveOK
	v.State.Clear(FlagError)
	v.State.Phase = PhaseFollow
}

// ResetLaneChange 放弃当前变道
func (v *Vehicle) ResetLaneChange() {
	v.LCTarget = roadnet.NoLane
	v.LCTimer = 0
	v.LCDir = 0
	v.LCMandatory = false
	v.Offset = 0
	if v.State.InManeuver() {
		v.State.Phase = PhaseFollow
	}
}

// StartCooldown 开始变道冷却
func (v *Vehicle) StartCooldown(d float64) {
	v.Cooldown = d
	if d > 0 {
		v.State.Set(FlagCooldown)
	}
}

// TickCooldown 推进冷却计时
func (v *Vehicle) TickCooldown(dt float64) {
	if !v.State.InCooldown() {
		return
	}
	v.Cooldown -= dt
	if v.Cooldown <= 0 {
		v.Cooldown = 0
		v.State.Clear(FlagCooldown)
	}
}

// Snapshot 车辆对外状态
type Snapshot struct {
	ID      int32
	Type    string
	X, Y    float64
	Heading float64
	V       float64
	Lane    roadnet.LaneID
	S       float64
	Phase   Phase
	Err     MoveError
}

func (v *Vehicle) Snapshot() Snapshot {
	return Snapshot{
		ID:      v.ID,
		Type:    v.Type,
		X:       v.X,
		Y:       v.Y,
		Heading: v.Heading,
		V:       v.V,
		Lane:    v.Lane,
		S:       v.S,
		Phase:   v.State.Phase,
		Err:     v.Err,
	}
}

// CrossOffset 横穿进度progress∈[0,1]时的横向偏移（半正弦缓动）
func CrossOffset(progress, width float64, dir int) float64 {
	progress = lo.Clamp(progress, 0, 1)
	return float64(dir) * width * (1 - math.Cos(math.Pi*progress)) / 2
}
