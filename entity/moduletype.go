package entity

// IModule 每步按固定顺序执行的仿真模块
type IModule interface {
	Name() string
	// Update 推进一步，dt为步长（秒）
	Update(dt float64)
}
