package clock

import (
	"fmt"

	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

// Clock 仿真时钟
// 功能：管理仿真时间的推进
// 说明：维护当前仿真时间与步数，模拟区间为[START_STEP, END_STEP)
type Clock struct {
	DT         float64 // 每步时间间隔（秒）
	START_STEP int32   // 起始步
	END_STEP   int32   // 结束步

	T            float64 // 当前时间（秒）
	InternalStep int32   // 当前步数
}

// New 根据配置创建时钟
// 说明：时间间隔必须为正，否则panic
func New(stepConfig config.ControlStep) *Clock {
	if stepConfig.Interval <= 0 {
		panic(fmt.Sprintf("clock: non-positive interval %v", stepConfig.Interval))
	}
	c := &Clock{
		DT:         stepConfig.Interval,
		START_STEP: stepConfig.Start,
		END_STEP:   stepConfig.Start + stepConfig.Total,
	}
	c.Init()
	return c
}

// Init 重置到起始步
func (c *Clock) Init() {
	c.InternalStep = c.START_STEP
	c.T = float64(c.InternalStep) * c.DT
}

// Advance 前进一步
func (c *Clock) Advance() {
	c.InternalStep++
	c.T = float64(c.InternalStep) * c.DT
}

// Ticks 自起始步以来经过的步数
func (c *Clock) Ticks() int32 {
	return c.InternalStep - c.START_STEP
}

// Finished 是否已到达结束步
func (c *Clock) Finished() bool {
	return c.InternalStep >= c.END_STEP
}

// String 格式化为HH:MM:SS
func (c *Clock) String() string {
	t := c.T
	h := int(t / 3600)
	t -= float64(h * 3600)
	m := int(t / 60)
	t -= float64(m * 60)
	s := int(t)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// GetHourMinuteSecond 获取当前时间的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	hour := int(c.T) / 3600
	minute := int(c.T) % 3600 / 60
	second := c.T - float64(hour*3600+minute*60)
	return hour, minute, second
}
