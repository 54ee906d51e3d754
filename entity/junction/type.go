package junction

// ITrafficLight 信号灯接口
type ITrafficLight interface {
	Prepare()          // 准备阶段，将信控结果写入各进口道
	Update(dt float64) // 更新阶段，推进相位

	Step() int32            // 当前相位，动态相位返回-1
	RemainingTime() float64 // 当前相位剩余时长
	Ok() bool               // 当前信控开关情况
	SetOk(ok bool)          // 设置信控开关（false为失效，全绿）
}
