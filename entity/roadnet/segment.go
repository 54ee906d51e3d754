package roadnet

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/lanesim/utils/geoutil"
)

// Bound 平面包围盒
type Bound struct {
	Min, Max geometry.Point
}

func (b Bound) Width() float64  { return b.Max.X - b.Min.X }
func (b Bound) Height() float64 { return b.Max.Y - b.Min.Y }

// Contains 点是否在包围盒内
func (b Bound) Contains(p geometry.Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// WorldSegment 一块地图区域：节点、道路及在其上构建的路网
type WorldSegment struct {
	ID int

	nodes    map[int64]*Node
	nodeList []*Node
	ways     map[int64]*WayInfo
	wayList  []*WayInfo

	Projector *geoutil.Projector
	Bound     Bound
	Network   *RoadNetwork

	preprocessed bool
}

// NewWorldSegment 创建空的地图区域
func NewWorldSegment(id int) *WorldSegment {
	return &WorldSegment{
		ID:    id,
		nodes: make(map[int64]*Node),
		ways:  make(map[int64]*WayInfo),
	}
}

// AddNode 添加节点，ID重复时返回错误
func (s *WorldSegment) AddNode(n *Node) error {
	if _, ok := s.nodes[n.ID]; ok {
		return fmt.Errorf("duplicated node %d", n.ID)
	}
	s.nodes[n.ID] = n
	s.nodeList = append(s.nodeList, n)
	return nil
}

// AddWay 添加道路
// 参数：w-道路，nodeIDs-按顺序排列的节点ID（必须已添加）
// 说明：会调用WayInfo.Normalize补全车道信息，并在节点上登记道路
func (s *WorldSegment) AddWay(w *WayInfo, nodeIDs []int64) error {
	if _, ok := s.ways[w.ID]; ok {
		return fmt.Errorf("duplicated way %d", w.ID)
	}
	w.Nodes = w.Nodes[:0]
	for _, id := range nodeIDs {
		n, ok := s.nodes[id]
		if !ok {
			return fmt.Errorf("way %d references unknown node %d", w.ID, id)
		}
		w.Nodes = append(w.Nodes, n)
	}
	if err := w.Normalize(); err != nil {
		return err
	}
	s.ways[w.ID] = w
	s.wayList = append(s.wayList, w)
	for _, n := range w.Nodes {
		n.Tags |= TagWayNode
		if len(n.Ways) == 0 || n.Ways[len(n.Ways)-1] != w {
			n.Ways = append(n.Ways, w)
		}
	}
	return nil
}

func (s *WorldSegment) Node(id int64) *Node   { return s.nodes[id] }
func (s *WorldSegment) Way(id int64) *WayInfo { return s.ways[id] }

// Nodes 按加入顺序排列的节点
func (s *WorldSegment) Nodes() []*Node { return s.nodeList }

// Ways 按加入顺序排列的道路
func (s *WorldSegment) Ways() []*WayInfo { return s.wayList }

// Preprocess 投影与包围盒计算
// 算法说明：
// 1. 以全部节点经纬度包围盒的中心为原点建立投影
// 2. 计算每个节点的平面坐标
// 3. 计算平面包围盒
func (s *WorldSegment) Preprocess() error {
	if len(s.nodeList) == 0 {
		return fmt.Errorf("segment %d has no nodes", s.ID)
	}
	minLat, minLon := math.Inf(1), math.Inf(1)
	maxLat, maxLon := math.Inf(-1), math.Inf(-1)
	for _, n := range s.nodeList {
		minLat, maxLat = min(minLat, n.Lat), max(maxLat, n.Lat)
		minLon, maxLon = min(minLon, n.Lon), max(maxLon, n.Lon)
	}
	s.Projector = geoutil.NewProjector((minLat+maxLat)/2, (minLon+maxLon)/2)
	s.Bound = Bound{
		Min: geometry.Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: geometry.Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
	for _, n := range s.nodeList {
		n.XY = s.Projector.Project(n.Lat, n.Lon)
		s.Bound.Min.X, s.Bound.Min.Y = min(s.Bound.Min.X, n.XY.X), min(s.Bound.Min.Y, n.XY.Y)
		s.Bound.Max.X, s.Bound.Max.Y = max(s.Bound.Max.X, n.XY.X), max(s.Bound.Max.Y, n.XY.Y)
	}
	s.preprocessed = true
	log.Infof("segment %d: %d nodes, %d ways, bound %.0fm x %.0fm",
		s.ID, len(s.nodeList), len(s.wayList), s.Bound.Width(), s.Bound.Height())
	return nil
}

func (s *WorldSegment) Preprocessed() bool { return s.preprocessed }
