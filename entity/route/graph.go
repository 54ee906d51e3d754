// 路径规划：节点级A*与可达性（基于gonum图），边级A*与车道感知的边级A*
package route

import (
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/geoutil"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

var log = logrus.WithField("module", "route")

// NodeGraph 节点邻接关系的加权有向图，权重为边长
type NodeGraph struct {
	net *roadnet.RoadNetwork
	g   *simple.WeightedDirectedGraph
}

// NewNodeGraph 由路网构建节点图，同一对节点间有多条边时取最短
func NewNodeGraph(net *roadnet.RoadNetwork) *NodeGraph {
	g := simple.NewWeightedDirectedGraph(0, 0)
	for _, n := range net.Nodes() {
		g.AddNode(simple.Node(n.ID))
	}
	for i := 0; i < net.NumEdges(); i++ {
		e := net.Edge(roadnet.EdgeID(i))
		from, to := e.Start.ID, e.End.ID
		if old := g.WeightedEdge(from, to); old != nil && old.Weight() <= e.Length {
			continue
		}
		g.SetWeightedEdge(g.NewWeightedEdge(simple.Node(from), simple.Node(to), e.Length))
	}
	log.Debugf("node graph: %d nodes, %d edges", g.Nodes().Len(), g.Edges().Len())
	return &NodeGraph{net: net, g: g}
}

func (ng *NodeGraph) heuristic(x, y graph.Node) float64 {
	a, b := ng.net.Node(x.ID()), ng.net.Node(y.ID())
	if a == nil || b == nil {
		return 0
	}
	return geoutil.Distance2D(a.XY, b.XY)
}

// FindPath 节点级A*，返回包含起终点的节点序列
// 说明：起终点相同时返回[src]，不可达或节点不存在时返回空
func (ng *NodeGraph) FindPath(src, dst int64) []int64 {
	if ng.g.Node(src) == nil || ng.g.Node(dst) == nil {
		return nil
	}
	if src == dst {
		return []int64{src}
	}
	shortest, _ := path.AStar(simple.Node(src), simple.Node(dst), ng.g, ng.heuristic)
	nodes, _ := shortest.To(dst)
	if len(nodes) == 0 {
		return nil
	}
	res := make([]int64, len(nodes))
	for i, n := range nodes {
		res[i] = n.ID()
	}
	return res
}

// Reachable 从src出发可达的全部节点（含src），按广度优先顺序
func (ng *NodeGraph) Reachable(src int64) []int64 {
	if ng.g.Node(src) == nil {
		return nil
	}
	var res []int64
	bfs := traverse.BreadthFirst{
		Visit: func(n graph.Node) { res = append(res, n.ID()) },
	}
	bfs.Walk(ng.g, simple.Node(src), nil)
	return res
}

// Connected 沿有向边能否从src到达dst
// 说明：广度优先搜索，找到dst即停止
func (ng *NodeGraph) Connected(src, dst int64) bool {
	if ng.g.Node(src) == nil || ng.g.Node(dst) == nil {
		return false
	}
	if src == dst {
		return true
	}
	var bfs traverse.BreadthFirst
	return bfs.Walk(ng.g, simple.Node(src), func(n graph.Node, _ int) bool { return n.ID() == dst }) != nil
}
