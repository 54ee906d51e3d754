package entity

import "github.com/tsinghua-fib-lab/lanesim/entity/roadnet"

// LightState 信号灯状态
type LightState uint8

const (
	LightGreen LightState = iota
	LightYellow
	LightRed
)

func (s LightState) String() string {
	switch s {
	case LightGreen:
		return "green"
	case LightYellow:
		return "yellow"
	case LightRed:
		return "red"
	}
	return "unknown"
}

// ISignalController entity/junction的依赖倒置
type ISignalController interface {
	// Light 沿边from到达其终点时面对的信号状态与该状态的剩余时间（秒）
	// 终点没有信号灯时返回LightGreen与+Inf
	Light(from roadnet.EdgeID) (LightState, float64)
}
