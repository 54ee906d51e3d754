package movement

import (
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

// 调试断点可选的运动阶段
const (
	DebugCompute    = "compute"
	DebugCommit     = "commit"
	DebugLaneChange = "lane_change"
	DebugHop        = "hop"
)

// debugger 调试断点：车道、智能体与阶段都匹配时发布DebugSelection事件并触发断点
// 说明：只有使用debugbreak构建标签编译时才会真正中断
type debugger struct {
	cfg     config.Debug
	emitter entity.IEmitter
}

func newDebugger(cfg config.Debug, emitter entity.IEmitter) *debugger {
	return &debugger{cfg: cfg, emitter: emitter}
}

func (d *debugger) watching(phase string) bool {
	return d.cfg.Phase != "" && d.cfg.Phase == phase
}

func (d *debugger) check(phase string, lane roadnet.LaneID, agentID int32) {
	if !d.watching(phase) {
		return
	}
	if d.cfg.Lane >= 0 && int32(lane) != d.cfg.Lane {
		return
	}
	if d.cfg.Agent >= 0 && agentID != d.cfg.Agent {
		return
	}
	log.Debugf("debug selection: lane %d agent %d phase %s", lane, agentID, phase)
	if d.emitter != nil {
		d.emitter.Emit(entity.PublisherSimulation, entity.DebugSelection{Lane: int32(lane), Agent: agentID, Phase: phase})
	}
	breakpoint()
}
