package entity

import (
	"github.com/tsinghua-fib-lab/lanesim/clock"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
	"github.com/tsinghua-fib-lab/lanesim/utils/dispatcher"
)

// IEmitter 事件发布能力，仿真核心只依赖该接口
type IEmitter interface {
	Emit(publisher string, e dispatcher.Event)
}

// ITaskContext 仿真任务上下文，供各模块获取共享对象
type ITaskContext interface {
	Clock() *clock.Clock
	Config() *config.Config
	Segment() *roadnet.WorldSegment
	Network() *roadnet.RoadNetwork
	Emitter() IEmitter
	Signals() ISignalController // 未启用信号时返回nil
}
