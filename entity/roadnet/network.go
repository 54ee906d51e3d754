package roadnet

import (
	"slices"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/lanesim/utils/geoutil"
)

const MaxLanesPerEdge = 64 // 车道掩码使用uint64

// LaneLink 车道连接：车辆可从From车道末端驶入To车道起点
type LaneLink struct {
	ID    LinkID
	From  LaneID
	To    LaneID
	Yield bool // 驶入时需让行（来自匝道/连接道）
	Turn  TurnDirection
}

// Junction 路口记录
type Junction struct {
	Node     *Node
	Incoming []EdgeID
	Outgoing []EdgeID
}

// RoadNetwork 路网
// 功能：以数组保存边、车道、连接，所有跨对象引用均使用下标，重建连接不会使已有下标失效
// 说明：构建阶段通过AddEdge/AddLane/AddLink写入，Freeze之后只读，可被多个协程并发读取
type RoadNetwork struct {
	nodes    map[int64]*Node
	nodeList []*Node

	edges []Edge
	lanes []Lane
	links []LaneLink

	outEdges  map[int64][]EdgeID // 以节点为起点的边
	inEdges   map[int64][]EdgeID // 以节点为终点的边
	adjacency map[int64][]int64  // 节点的后继节点（去重，按加入顺序）

	successors [][]EdgeID // 每条边经车道连接可达的下游边
	linkIndex  map[[2]LaneID]LinkID
	junctions  map[int64]*Junction

	frozen bool
}

// NewRoadNetwork 基于节点集合创建空路网
// 参数：nodes-按稳定顺序排列的节点
func NewRoadNetwork(nodes []*Node) *RoadNetwork {
	n := &RoadNetwork{
		nodes:     make(map[int64]*Node, len(nodes)),
		nodeList:  nodes,
		outEdges:  make(map[int64][]EdgeID),
		inEdges:   make(map[int64][]EdgeID),
		adjacency: make(map[int64][]int64),
		linkIndex: make(map[[2]LaneID]LinkID),
		junctions: make(map[int64]*Junction),
	}
	for _, node := range nodes {
		n.nodes[node.ID] = node
	}
	return n
}

func (n *RoadNetwork) mustNotFrozen() {
	if n.frozen {
		log.Panic("modify frozen road network")
	}
}

// AddEdge 添加一条边，长度与朝向由端点平面坐标计算
func (n *RoadNetwork) AddEdge(start, end *Node, way *WayInfo, o Orientation) EdgeID {
	n.mustNotFrozen()
	id := EdgeID(len(n.edges))
	n.edges = append(n.edges, Edge{
		ID:          id,
		Start:       start,
		End:         end,
		Way:         way,
		Orientation: o,
		Length:      geoutil.Distance2D(start.XY, end.XY),
		Heading:     geoutil.Heading(start.XY, end.XY),
		MaxSpeed:    way.MaxSpeed,
	})
	n.outEdges[start.ID] = append(n.outEdges[start.ID], id)
	n.inEdges[end.ID] = append(n.inEdges[end.ID], id)
	if !slices.Contains(n.adjacency[start.ID], end.ID) {
		n.adjacency[start.ID] = append(n.adjacency[start.ID], end.ID)
	}
	way.Edges = append(way.Edges, id)
	return id
}

// AddLane 为边添加车道，车道按调用顺序获得边内下标
func (n *RoadNetwork) AddLane(edge EdgeID, turn TurnDirection, width float64, line []geometry.Point) LaneID {
	n.mustNotFrozen()
	e := &n.edges[edge]
	if len(e.Lanes) >= MaxLanesPerEdge {
		log.Panicf("edge %d has more than %d lanes", edge, MaxLanesPerEdge)
	}
	id := LaneID(len(n.lanes))
	n.lanes = append(n.lanes, newLane(id, e, len(e.Lanes), turn, width, line))
	e.Lanes = append(e.Lanes, id)
	return id
}

// ClearLinks 删除全部车道连接与路口记录
func (n *RoadNetwork) ClearLinks() {
	n.mustNotFrozen()
	n.links = n.links[:0]
	clear(n.linkIndex)
	clear(n.junctions)
	n.successors = nil
	for i := range n.lanes {
		n.lanes[i].Outgoing = nil
		n.lanes[i].Incoming = nil
	}
}

// AddLink 添加车道连接，重复的连接返回已有ID
func (n *RoadNetwork) AddLink(from, to LaneID, yield bool, turn TurnDirection) LinkID {
	n.mustNotFrozen()
	key := [2]LaneID{from, to}
	if id, ok := n.linkIndex[key]; ok {
		return id
	}
	id := LinkID(len(n.links))
	n.links = append(n.links, LaneLink{ID: id, From: from, To: to, Yield: yield, Turn: turn})
	n.linkIndex[key] = id
	n.lanes[from].Outgoing = append(n.lanes[from].Outgoing, id)
	n.lanes[to].Incoming = append(n.lanes[to].Incoming, id)
	return id
}

// SetJunction 记录路口
func (n *RoadNetwork) SetJunction(j *Junction) {
	n.mustNotFrozen()
	n.junctions[j.Node.ID] = j
}

// Freeze 结束构建：计算边的下游关系，之后路网只读
func (n *RoadNetwork) Freeze() {
	n.successors = make([][]EdgeID, len(n.edges))
	for i := range n.edges {
		var next []EdgeID
		for _, lid := range n.edges[i].Lanes {
			for _, k := range n.lanes[lid].Outgoing {
				to := n.lanes[n.links[k].To].Edge
				if !slices.Contains(next, to) {
					next = append(next, to)
				}
			}
		}
		n.successors[i] = next
	}
	n.frozen = true
}

// Unfreeze 允许重新构建（例如重建车道连接）
func (n *RoadNetwork) Unfreeze() {
	n.frozen = false
}

func (n *RoadNetwork) Frozen() bool { return n.frozen }

func (n *RoadNetwork) Node(id int64) *Node { return n.nodes[id] }

// Nodes 按稳定顺序排列的节点
func (n *RoadNetwork) Nodes() []*Node { return n.nodeList }

func (n *RoadNetwork) Edge(id EdgeID) *Edge { return &n.edges[id] }

func (n *RoadNetwork) Lane(id LaneID) *Lane { return &n.lanes[id] }

func (n *RoadNetwork) Link(id LinkID) *LaneLink { return &n.links[id] }

func (n *RoadNetwork) NumEdges() int { return len(n.edges) }

func (n *RoadNetwork) NumLanes() int { return len(n.lanes) }

func (n *RoadNetwork) NumLinks() int { return len(n.links) }

// OutEdges 以节点为起点的边（edge graph）
func (n *RoadNetwork) OutEdges(node int64) []EdgeID { return n.outEdges[node] }

// InEdges 以节点为终点的边
func (n *RoadNetwork) InEdges(node int64) []EdgeID { return n.inEdges[node] }

// Adjacent 节点的后继节点
func (n *RoadNetwork) Adjacent(node int64) []int64 { return n.adjacency[node] }

// Junction 节点上的路口记录，不存在时返回nil
func (n *RoadNetwork) Junction(node int64) *Junction { return n.junctions[node] }

// Junctions 全部路口，按节点稳定顺序
func (n *RoadNetwork) Junctions() []*Junction {
	res := make([]*Junction, 0, len(n.junctions))
	for _, node := range n.nodeList {
		if j, ok := n.junctions[node.ID]; ok {
			res = append(res, j)
		}
	}
	return res
}

// EdgeSuccessors 经车道连接可从边e驶入的边，需在Freeze之后调用
func (n *RoadNetwork) EdgeSuccessors(e EdgeID) []EdgeID {
	if n.successors == nil {
		log.Panic("EdgeSuccessors called before Freeze")
	}
	return n.successors[e]
}

// LaneSuccessorEdges 从单条车道经连接可驶入的边
func (n *RoadNetwork) LaneSuccessorEdges(l LaneID) []EdgeID {
	var res []EdgeID
	for _, k := range n.lanes[l].Outgoing {
		to := n.lanes[n.links[k].To].Edge
		if !slices.Contains(res, to) {
			res = append(res, to)
		}
	}
	return res
}

// ConnectsTo 车道是否有连接驶入边next
func (n *RoadNetwork) ConnectsTo(l LaneID, next EdgeID) bool {
	for _, k := range n.lanes[l].Outgoing {
		if n.lanes[n.links[k].To].Edge == next {
			return true
		}
	}
	return false
}

// ExitMask 边e上可驶入边next的车道横向下标掩码
// 说明：next为NoEdge时（路径终点）所有车道均可
func (n *RoadNetwork) ExitMask(e, next EdgeID) uint64 {
	edge := &n.edges[e]
	if next == NoEdge {
		return AllLanesMask(len(edge.Lanes))
	}
	var mask uint64
	for i, lid := range edge.Lanes {
		if n.ConnectsTo(lid, next) {
			mask |= 1 << i
		}
	}
	return mask
}

// AllLanesMask 前count条车道全部置位的掩码
func AllLanesMask(count int) uint64 {
	if count >= MaxLanesPerEdge {
		return ^uint64(0)
	}
	return 1<<count - 1
}

// Sibling 同一边上横向相邻的车道，delta为-1表示左侧，+1表示右侧；不存在时返回NoLane
func (n *RoadNetwork) Sibling(l LaneID, delta int) LaneID {
	lane := &n.lanes[l]
	edge := &n.edges[lane.Edge]
	i := lane.IndexInEdge + delta
	if i < 0 || i >= len(edge.Lanes) {
		return NoLane
	}
	return edge.Lanes[i]
}
