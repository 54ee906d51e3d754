package vehicle

import (
	"errors"
	"fmt"
	"slices"

	"git.fiblab.net/general/common/v2/parallel"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
	"github.com/tsinghua-fib-lab/lanesim/utils/container"
)

const (
	DefaultMinSpawnGap = 5.0 // 生成车辆与同车道前后车的最小净间距（米）
	poolBlockSize      = 256
)

var (
	ErrNoRoom      = errors.New("vehicle: no room on lane")
	ErrUnknownLane = errors.New("vehicle: unknown lane")
)

// System 车辆系统
// 功能：管理车辆对象池与每条车道的运行时占用索引
// 说明：所有修改操作只能在单个协程中调用；运动计算阶段可以并发读取
type System struct {
	net *roadnet.RoadNetwork

	pool     *container.Pool[Vehicle]
	lanes    []LaneRuntime
	runtimes []*LaneRuntime // 与lanes同序，便于并行遍历
	vehicles []*Vehicle     // 按生成顺序
	byID     map[int32]*Vehicle
	nextID   int32

	MinSpawnGap float64
}

// NewSystem 为路网创建车辆系统
func NewSystem(net *roadnet.RoadNetwork, minSpawnGap float64) *System {
	s := &System{
		net:         net,
		pool:        container.NewPool[Vehicle](poolBlockSize),
		lanes:       make([]LaneRuntime, net.NumLanes()),
		runtimes:    make([]*LaneRuntime, net.NumLanes()),
		byID:        make(map[int32]*Vehicle),
		MinSpawnGap: minSpawnGap,
	}
	for i := range s.lanes {
		l := net.Lane(roadnet.LaneID(i))
		s.lanes[i] = LaneRuntime{Lane: l, Length: l.Length, MaxSpeed: l.MaxSpeed}
		s.runtimes[i] = &s.lanes[i]
	}
	return s
}

func (s *System) Network() *roadnet.RoadNetwork { return s.net }

// Runtime 车道运行时
func (s *System) Runtime(l roadnet.LaneID) *LaneRuntime {
	return &s.lanes[l]
}

// Runtimes 全部车道运行时，按LaneID排列
func (s *System) Runtimes() []*LaneRuntime {
	return s.runtimes
}

// Vehicles 存活车辆，按生成顺序（只读）
func (s *System) Vehicles() []*Vehicle {
	return s.vehicles
}

// Get 按ID查找车辆
func (s *System) Get(id int32) *Vehicle {
	return s.byID[id]
}

func (s *System) Len() int {
	return len(s.vehicles)
}

// SpawnPosition 车型在车道起点生成时的s坐标（车尾位于车道起点）
func SpawnPosition(vt config.VehicleType) float64 {
	return vt.Length / 2
}

// CanSpawn 检查在lane的pos处放置长度为length的车辆是否与前后车保持MinSpawnGap
func (s *System) CanSpawn(lane roadnet.LaneID, pos, length float64) bool {
	if lane < 0 || int(lane) >= len(s.lanes) {
		return false
	}
	r := &s.lanes[lane]
	if pos-length/2 < 0 || pos+length/2 > r.Length {
		return false
	}
	leader, follower := r.Neighbors(pos, nil)
	if leader != nil && Gap(leader.S, leader.Length, pos, length) < s.MinSpawnGap {
		return false
	}
	if follower != nil && Gap(pos, length, follower.S, follower.Length) < s.MinSpawnGap {
		return false
	}
	if leader != nil && leader.S-pos < length/2+leader.Length/2 {
		return false
	}
	if follower != nil && pos-follower.S < length/2+follower.Length/2 {
		return false
	}
	return true
}

// Spawn 在车道上生成一辆静止车辆
// 返回：车道不存在时返回ErrUnknownLane，空间不足时返回ErrNoRoom
func (s *System) Spawn(lane roadnet.LaneID, pos float64, vt config.VehicleType) (*Vehicle, error) {
	if lane < 0 || int(lane) >= len(s.lanes) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownLane, lane)
	}
	if !s.CanSpawn(lane, pos, vt.Length) {
		return nil, ErrNoRoom
	}
	v := s.pool.Get()
	v.init(s.nextID, vt, lane, pos)
	s.place(v)
	s.nextID++
	s.lanes[lane].insert(v)
	s.vehicles = append(s.vehicles, v)
	s.byID[v.ID] = v
	return v, nil
}

// Remove 移除车辆并归还对象池，之后v不可再使用
func (s *System) Remove(v *Vehicle) {
	if s.byID[v.ID] != v {
		log.Panicf("remove unknown vehicle %d", v.ID)
	}
	if !s.lanes[v.Lane].remove(v) {
		log.Panicf("vehicle %d not found on lane %d", v.ID, v.Lane)
	}
	if i := slices.Index(s.vehicles, v); i >= 0 {
		s.vehicles = slices.Delete(s.vehicles, i, i+1)
	}
	delete(s.byID, v.ID)
	s.pool.Put(v)
}

// MoveToLane 将车辆移动到lane的pos处
func (s *System) MoveToLane(v *Vehicle, lane roadnet.LaneID, pos float64) {
	if !s.lanes[v.Lane].remove(v) {
		log.Panicf("vehicle %d not found on lane %d", v.ID, v.Lane)
	}
	v.Lane = lane
	v.S, v.SNext = pos, pos
	s.lanes[lane].insert(v)
}

// Resort 恢复单条车道的排序
func (s *System) Resort(lane roadnet.LaneID) {
	s.lanes[lane].resort()
}

// CommitWorld 根据车道、s坐标与横向偏移计算车辆的世界坐标和朝向
// 说明：Spawn时已计算一次，新生成的车辆在同一步内即可用于规划
func (s *System) CommitWorld() {
	parallel.GoFor(s.vehicles, s.place)
}

func (s *System) place(v *Vehicle) {
	l := s.net.Lane(v.Lane)
	p := l.GetOffsetPositionByS(v.S, v.Offset)
	v.X, v.Y = p.X, p.Y
	v.Heading = l.GetDirectionByS(v.S).Direction
}

// Snapshot 全部车辆的对外状态
func (s *System) Snapshot() []Snapshot {
	res := make([]Snapshot, len(s.vehicles))
	for i, v := range s.vehicles {
		res[i] = v.Snapshot()
	}
	return res
}

// CheckInvariants 校验车道运行时
// 1. 每条车道上的车辆严格按s降序排列，且车辆的Lane指向该车道
// 2. 所有车道上的车辆集合恰好等于存活车辆集合
func (s *System) CheckInvariants() error {
	var errs []error
	total := 0
	for i := range s.lanes {
		if err := s.lanes[i].check(); err != nil {
			errs = append(errs, err)
		}
		total += s.lanes[i].Len()
	}
	if total != len(s.vehicles) {
		errs = append(errs, fmt.Errorf("lanes hold %d vehicles, %d alive", total, len(s.vehicles)))
	}
	for _, v := range s.vehicles {
		if s.lanes[v.Lane].Index(v) < 0 {
			errs = append(errs, fmt.Errorf("vehicle %d missing from lane %d", v.ID, v.Lane))
		}
	}
	if s.pool.Len() != len(s.vehicles) {
		errs = append(errs, fmt.Errorf("pool has %d live objects, %d vehicles", s.pool.Len(), len(s.vehicles)))
	}
	return errors.Join(errs...)
}
