package junction

import (
	"errors"
	"fmt"

	"git.fiblab.net/general/common/v2/mathutil"
	"git.fiblab.net/general/common/v2/parallel"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/entity/vehicle"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

var log = logrus.WithField("module", "junction")

// Manager 信号路口管理器
// 功能：管理全部信号路口，在每步开始推进信号灯，并向运动模块提供边末端的信号状态
type Manager struct {
	data      map[int64]*Junction
	junctions []*Junction
	byEdge    []*approach // 驶入边 -> 进口道，无信号为nil
}

// NewManager 为带信号灯标签且至少有两条驶入边的路口创建信控
func NewManager(net *roadnet.RoadNetwork, vs *vehicle.System, cfg config.Junction) (*Manager, error) {
	m := &Manager{
		data:   make(map[int64]*Junction),
		byEdge: make([]*approach, net.NumEdges()),
	}
	if !cfg.Signals {
		return m, nil
	}
	var errs []error
	for _, rec := range net.Junctions() {
		if !rec.Node.Tags.Has(roadnet.TagTrafficLight) || len(rec.Incoming) < 2 {
			continue
		}
		j, err := newJunction(rec, net, vs, cfg, len(m.junctions))
		if err != nil {
			errs = append(errs, fmt.Errorf("junction %d: %w", rec.Node.ID, err))
			continue
		}
		m.junctions = append(m.junctions, j)
		m.data[j.ID()] = j
		for _, a := range j.approaches {
			m.byEdge[a.edge] = a
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	log.Infof("%d signalized junctions (%s)", len(m.junctions), cfg.Policy)
	return m, nil
}

// Get 根据节点ID获取路口，不存在时返回nil
func (m *Manager) Get(node int64) *Junction {
	return m.data[node]
}

// Len 信号路口数量
func (m *Manager) Len() int {
	return len(m.junctions)
}

// Light 实现entity.ISignalController
func (m *Manager) Light(from roadnet.EdgeID) (entity.LightState, float64) {
	if from < 0 || int(from) >= len(m.byEdge) || m.byEdge[from] == nil {
		return entity.LightGreen, mathutil.INF
	}
	a := m.byEdge[from]
	return a.state, a.remaining
}

// SetOk 打开或关闭指定路口的信控，关闭后该路口全绿
func (m *Manager) SetOk(node int64, ok bool) error {
	j, found := m.data[node]
	if !found {
		return fmt.Errorf("no signalized junction at node %d", node)
	}
	j.trafficLight.SetOk(ok)
	return nil
}

// Prepare 将各路口的信号状态写入进口道
func (m *Manager) Prepare() {
	parallel.GoFor(m.junctions, func(j *Junction) { j.prepare() })
}

// Update 推进各路口的信号灯
func (m *Manager) Update(dt float64) {
	parallel.GoFor(m.junctions, func(j *Junction) { j.update(dt) })
}

// Name 实现entity.IModule
func (m *Manager) Name() string {
	return "junction"
}

// Nodes 全部信号路口的节点ID
func (m *Manager) Nodes() []int64 {
	return lo.Map(m.junctions, func(j *Junction, _ int) int64 { return j.ID() })
}
