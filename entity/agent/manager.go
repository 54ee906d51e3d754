package agent

import (
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
	"github.com/tsinghua-fib-lab/lanesim/utils/container"
)

// Manager 智能体管理器
// 功能：生成与移除智能体（同时生成/移除其车辆）
// 说明：新增与移除在Prepare时对Agents()生效，车辆则立即生成/移除
type Manager struct {
	vehicles  *vehicle.System
	agents    *container.IncrementalArray[*Agent]
	byVehicle map[int32]*Agent
	nextID    int32
}

func NewManager(vehicles *vehicle.System) *Manager {
	return &Manager{
		vehicles:  vehicles,
		agents:    container.NewIncrementalArray[*Agent](),
		byVehicle: make(map[int32]*Agent),
	}
}

// Vehicles 车辆系统
func (m *Manager) Vehicles() *vehicle.System {
	return m.vehicles
}

// Spawn 在车道上生成车辆与智能体
func (m *Manager) Spawn(lane roadnet.LaneID, pos float64, vt config.VehicleType, behavior Behavior, goal *roadnet.Node) (*Agent, error) {
	v, err := m.vehicles.Spawn(lane, pos, vt)
	if err != nil {
		return nil, err
	}
	a := &Agent{
		ID:       m.nextID,
		Behavior: behavior,
		Vehicle:  v,
		Goal:     goal,
	}
	m.nextID++
	m.agents.Add(a)
	m.byVehicle[v.ID] = a
	log.Debugf("agent %d spawned with vehicle %d on lane %d at %.1f", a.ID, v.ID, lane, pos)
	return a, nil
}

// Remove 移除智能体及其车辆
func (m *Manager) Remove(a *Agent) {
	if a.Vehicle == nil {
		return
	}
	delete(m.byVehicle, a.Vehicle.ID)
	m.vehicles.Remove(a.Vehicle)
	a.Vehicle = nil
	m.agents.Remove(a)
}

// Prepare 使新增与移除生效
func (m *Manager) Prepare() {
	m.agents.Prepare()
}

// Agents 已生效的智能体（只读）
func (m *Manager) Agents() []*Agent {
	return m.agents.Data()
}

// Len 已生效的智能体数量
func (m *Manager) Len() int {
	return m.agents.Len()
}

// ByVehicle 按车辆ID查找智能体
func (m *Manager) ByVehicle(id int32) *Agent {
	return m.byVehicle[id]
}

// Snapshot 全部智能体的对外状态
func (m *Manager) Snapshot() []Snapshot {
	res := make([]Snapshot, 0, m.agents.Len())
	for _, a := range m.agents.Data() {
		res = append(res, a.Snapshot())
	}
	return res
}
