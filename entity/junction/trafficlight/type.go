// 信号灯控制算法：固定配时与最大压力
package trafficlight

import (
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity"
)

var log = logrus.WithField("module", "trafficlight")

// IApproach 路口进口道（一条驶入边）
type IApproach interface {
	// SetLight 写入信号状态、该状态的总时长与剩余时长
	SetLight(state entity.LightState, totalTime, remainingTime float64)
	// Pressure 进口道压力（排队车辆数）
	Pressure() float64
}

// Phase 相位：每个进口道的信号状态
type Phase struct {
	States   []entity.LightState
	Duration float64
}

// Program 固定配时程序
type Program struct {
	Phases []Phase
}
