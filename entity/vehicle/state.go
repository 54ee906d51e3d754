package vehicle

// Phase 车辆运动阶段
// 说明：Stopped → Follow ⇄ Prepare → Cross → Align → Follow，任意阶段都可能因路径耗尽或错误回到Stopped
type Phase uint8

const (
	PhaseStopped Phase = iota // 静止，等待战术规划分配路径
	PhaseFollow               // 跟驰
	PhasePrepare              // 变道准备：已选定目标车道，等待安全间隙
	PhaseCross                // 横向移动中
	PhaseAlign                // 已进入目标车道，对正
)

func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhaseFollow:
		return "follow"
	case PhasePrepare:
		return "prepare"
	case PhaseCross:
		return "cross"
	case PhaseAlign:
		return "align"
	}
	return "unknown"
}

// Flags 状态附加标志
type Flags uint8

const (
	FlagError    Flags = 1 << iota // 存在未被战术规划处理的运动错误
	FlagCooldown                   // 变道冷却中
)

// MoveError 运动错误码
type MoveError uint8

const (
	MoveOK                   MoveError = iota
	MoveNoOutgoingConnection           // 车道没有任何出口连接
	MoveIncorrectLane                  // 当前车道不能驶入下一条边，但同边其他车道可以
	MoveIncorrectEdge                  // 路径与实际位置不一致
	MoveNoPath                         // 路径已走完（到达）
)

func (e MoveError) String() string {
	switch e {
	case MoveOK:
		return "ok"
	case MoveNoOutgoingConnection:
		return "no_outgoing_connection"
	case MoveIncorrectLane:
		return "incorrect_lane"
	case MoveIncorrectEdge:
		return "incorrect_edge"
	case MoveNoPath:
		return "no_path"
	}
	return "unknown"
}

// State 车辆状态：阶段+标志
type State struct {
	Phase Phase
	Flags Flags
}

func (s State) IsStopped() bool   { return s.Phase == PhaseStopped }
func (s State) IsFollowing() bool { return s.Phase == PhaseFollow }
func (s State) IsPreparing() bool { return s.Phase == PhasePrepare }
func (s State) IsCrossing() bool  { return s.Phase == PhaseCross }
func (s State) IsAligning() bool  { return s.Phase == PhaseAlign }

// InManeuver 是否处于变道过程中（准备、横穿或对正）
func (s State) InManeuver() bool {
	return s.Phase == PhasePrepare || s.Phase == PhaseCross || s.Phase == PhaseAlign
}

// Moving 是否参与运动计算
func (s State) Moving() bool { return s.Phase != PhaseStopped }

func (s State) HasError() bool   { return s.Flags&FlagError != 0 }
func (s State) InCooldown() bool { return s.Flags&FlagCooldown != 0 }

func (s *State) Set(f Flags)   { s.Flags |= f }
func (s *State) Clear(f Flags) { s.Flags &^= f }
