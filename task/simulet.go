// 仿真任务：初始化路网与各模块，按固定顺序推进每一步
package task

import (
	"context"
	"flag"
	"time"

	"github.com/tsinghua-fib-lab/lanesim/entity"
)

var (
	heartBeatInterval = flag.Int("log.heartbeat_interval", 100, "心跳日志间隔步数")
)

// prepare 准备阶段，每步执行一次
// 算法说明：
// 1. 更新时钟
// 2. 心跳日志
// 3. 信号路口写出本步信号状态并推进信号灯
func (ctx *Context) prepare() {
	ctx.clock.Advance()
	if n := int32(*heartBeatInterval); n > 0 && ctx.clock.InternalStep%n == 0 {
		hour, minute, second := ctx.clock.GetHourMinuteSecond()
		log.Infof(
			"STEP: %d(%d:%d:%.2f) vehicles: %d, %s",
			ctx.clock.InternalStep,
			hour, minute, second,
			ctx.vehicles.Len(), ctx.generator,
		)
	}
	ctx.junctions.Prepare()
	ctx.junctions.Update(ctx.clock.DT)
}

// update 更新阶段，每步执行一次
// 算法说明：
// 1. 生成器生成车辆，随后新增的智能体生效
// 2. 依次执行战略规划、战术规划、运动
// 3. 计算车辆世界坐标
// 4. 清理已到达的通勤智能体（以及配置要求时卡死的智能体）
// 5. 按输出间隔发布TickCompleted
func (ctx *Context) update() {
	dt := ctx.clock.DT
	ctx.generator.Populate(dt)
	ctx.agents.Prepare()
	for _, m := range ctx.modules {
		m.Update(dt)
	}
	ctx.vehicles.CommitWorld()
	ctx.cleanup()

	if ctx.clock.Ticks()%ctx.config.Output.Interval == 0 && ctx.dispatcher.HasHandler(entity.EventTickCompleted) {
		ctx.dispatcher.Emit(entity.PublisherSimulation, entity.TickCompleted{
			Step:     ctx.clock.InternalStep,
			T:        ctx.clock.T,
			Vehicles: ctx.vehicles.Snapshot(),
		})
	}
}

// cleanup 移除已到达或卡死的智能体，返回移除数量
func (ctx *Context) cleanup() int {
	removed := 0
	for _, a := range ctx.agents.Agents() {
		if a.Vehicle == nil {
			continue
		}
		if a.Arrived || (a.Stuck && ctx.config.Simulation.RemoveStuck) {
			log.Debugf("remove agent %d (arrived=%v stuck=%v)", a.ID, a.Arrived, a.Stuck)
			ctx.agents.Remove(a)
			removed++
		}
	}
	return removed
}

// Step 推进一步
func (ctx *Context) Step() {
	ctx.prepare()
	ctx.update()
}

// Run 运行到结束步、上下文取消或Stop
func (ctx *Context) Run(c context.Context) error {
	start := time.Now()
	for !ctx.clock.Finished() && !ctx.closed.Load() {
		select {
		case <-c.Done():
			log.Warnf("interrupted at step %d: %v", ctx.clock.InternalStep, c.Err())
			return c.Err()
		default:
		}
		ctx.Step()
	}
	log.Infof("engine complete: %d steps in %v, %d vehicles alive, %s",
		ctx.clock.Ticks(), time.Since(start).Round(time.Millisecond), ctx.vehicles.Len(), ctx.generator)
	return nil
}
