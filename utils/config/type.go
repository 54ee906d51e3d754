package config

// Input 输入数据配置
type Input struct {
	OSM string `yaml:"osm"` // OSM XML路网文件路径
}

// ControlStep 指定模拟器模拟时间范围和间隔的配置项
type ControlStep struct {
	Start    int32   `yaml:"start"`    // 开始步数
	Total    int32   `yaml:"total"`    // 总步数
	Interval float64 `yaml:"interval"` // 每步的时间间隔（秒）
}

// Control 模拟器控制配置
type Control struct {
	Step ControlStep `yaml:"step"`
}

// MovementAlgorithm 车辆运动算法
type MovementAlgorithm string

const (
	MovementIDM    MovementAlgorithm = "idm"    // 两阶段IDM跟驰+变道状态机
	MovementLegacy MovementAlgorithm = "legacy" // 简单运动学模型，无变道
)

// GeneratorKind 车辆生成器类型
type GeneratorKind string

const (
	GeneratorBulk GeneratorKind = "bulk" // 一次性生成固定数量
	GeneratorFlow GeneratorKind = "flow" // 按小时流量持续生成
)

// Seed 随机种子
type Seed struct {
	Value  uint64 `yaml:"value"`
	Random bool   `yaml:"random,omitempty"` // 为true时忽略value，使用时间作为种子
}

// Bulk 批量生成器配置
type Bulk struct {
	MaxTicks        int32 `yaml:"max_ticks"`         // 尝试的最大步数，超过后进入错误状态
	AttemptsPerTick int   `yaml:"attempts_per_tick"` // 每步最多尝试放置的次数
}

// FlowSpawn 流量生成点
// 说明：Lane与(Lat, Lon)二选一，给出坐标时取最近的车道
type FlowSpawn struct {
	Lane        *int32   `yaml:"lane,omitempty"`
	Lat         *float64 `yaml:"lat,omitempty"`
	Lon         *float64 `yaml:"lon,omitempty"`
	Rate        float64  `yaml:"rate"`                   // 车辆/小时
	Goal        *int64   `yaml:"goal,omitempty"`         // 目的地节点ID
	VehicleType string   `yaml:"vehicle_type,omitempty"` // 为空时使用第一个车型
}

// Simulation 仿真行为配置
type Simulation struct {
	Seed          Seed              `yaml:"seed"`
	Movement      MovementAlgorithm `yaml:"movement"`
	Generator     GeneratorKind     `yaml:"generator"`
	Vehicles      int               `yaml:"vehicles"` // 批量生成目标数量，或流量生成的上限（0为不限）
	Bulk          Bulk              `yaml:"bulk"`
	Flows         []FlowSpawn       `yaml:"flows,omitempty"`
	RemoveStuck   bool              `yaml:"remove_stuck,omitempty"` // 移除卡死的智能体
	GoalMinRadius float64           `yaml:"goal_min_radius"`        // 随机目标采样的最小半径（米）
	GoalMaxRadius float64           `yaml:"goal_max_radius"`        // 随机目标采样的最大半径（米）
}

// IDM 跟驰模型参数
type IDM struct {
	MinGap       float64 `yaml:"min_gap"`       // s0，静止最小车距（米）
	Headway      float64 `yaml:"headway"`       // T，安全车头时距（秒）
	MaxAcc       float64 `yaml:"max_acc"`       // a_max（米/秒²）
	ComfortDecel float64 `yaml:"comfort_decel"` // b，舒适减速度（正数）
	HardDecel    float64 `yaml:"hard_decel"`    // b_hard，最大减速度（正数）
	Delta        float64 `yaml:"delta"`         // 速度指数
}

// LaneChange 变道参数
type LaneChange struct {
	PrepDistance        float64 `yaml:"prep_distance"`          // 强制变道的基础准备距离（米）
	PrepDistancePerLane float64 `yaml:"prep_distance_per_lane"` // 每多跨一条车道增加的准备距离（米）
	MinPrepTime         float64 `yaml:"min_prep_time"`          // 进入横穿前的最短准备时间（秒）
	CrossDuration       float64 `yaml:"cross_duration"`         // 横向移动时长（秒）
	AlignDuration       float64 `yaml:"align_duration"`         // 对正时长（秒）
	Cooldown            float64 `yaml:"cooldown"`               // 变道冷却（秒）
	SafeHeadway         float64 `yaml:"safe_headway"`           // 安全间隙中的时距项τ（秒）
	SafeDistance        float64 `yaml:"safe_distance"`          // 安全间隙中的常数项δ（米）
	SafeMinGap          float64 `yaml:"safe_min_gap"`           // 安全间隙下限（米）
	Politeness          float64 `yaml:"politeness"`             // 自主变道收益阈值（米/秒²）
	Discretionary       bool    `yaml:"discretionary"`          // 是否启用自主变道
}

// VehicleType 车型
type VehicleType struct {
	Name         string  `yaml:"name"`
	Length       float64 `yaml:"length"`
	Width        float64 `yaml:"width"`
	DesiredSpeed float64 `yaml:"desired_speed"` // 米/秒
}

// SignalPolicy 信控策略
type SignalPolicy string

const (
	SignalFixed       SignalPolicy = "fixed"        // 固定配时
	SignalMaxPressure SignalPolicy = "max_pressure" // 最大压力
)

// Junction 信号路口配置
type Junction struct {
	Signals   bool         `yaml:"signals"`    // 是否在带信号灯标签的节点启用信号
	Policy    SignalPolicy `yaml:"policy"`     // 信控策略
	Green     float64      `yaml:"green"`      // 绿灯时长（秒），最大压力下为单个相位时长
	Yellow    float64      `yaml:"yellow"`     // 黄灯时长（秒）
	AllRed    float64      `yaml:"all_red"`    // 最大压力切换时的全红时长（秒）
	MaxRepeat int          `yaml:"max_repeat"` // 最大压力下同一相位最多连续重复次数
}

// Output 输出配置
type Output struct {
	SQLite   string `yaml:"sqlite,omitempty"` // 为空则不记录
	Interval int32  `yaml:"interval"`         // 每多少步输出一次车辆状态
	WKT      string `yaml:"wkt,omitempty"`    // 路网WKT导出路径
}

// Debug 调试断点描述
type Debug struct {
	Lane  int32  `yaml:"lane"`  // -1为任意
	Agent int32  `yaml:"agent"` // -1为任意
	Phase string `yaml:"phase"` // compute / commit / lane_change / hop，为空则关闭
}

// Config YAML配置文件的根结构
type Config struct {
	Input        Input         `yaml:"input"`
	Control      Control       `yaml:"control"`
	Simulation   Simulation    `yaml:"simulation"`
	IDM          IDM           `yaml:"idm"`
	LaneChange   LaneChange    `yaml:"lane_change"`
	VehicleTypes []VehicleType `yaml:"vehicle_types"`
	Junction     Junction      `yaml:"junction"`
	Output       Output        `yaml:"output"`
	Debug        Debug         `yaml:"debug"`
}
