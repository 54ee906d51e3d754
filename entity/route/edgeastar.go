package route

import (
	"slices"

	"git.fiblab.net/general/common/v2/mathutil"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/container"
	"github.com/tsinghua-fib-lab/lanesim/utils/geoutil"
)

// AdjacentLaneThreshold 距车道末端超过该距离（米）时，路径搜索可以从本边任意车道的后继出发
const AdjacentLaneThreshold = 2.0

type searchState struct {
	g      []float64
	parent []roadnet.EdgeID
}

// searchEdges 边级A*
// 参数：starts-初始边（代价为自身长度），dst-目标节点，next-后继函数
// 返回：以某条初始边开头、以终点为dst的边结尾的边序列，失败返回空
func searchEdges(
	net *roadnet.RoadNetwork,
	starts []roadnet.EdgeID,
	dst *roadnet.Node,
	next func(roadnet.EdgeID) []roadnet.EdgeID,
) []roadnet.EdgeID {
	st := searchState{
		g:      make([]float64, net.NumEdges()),
		parent: make([]roadnet.EdgeID, net.NumEdges()),
	}
	for i := range st.g {
		st.g[i] = mathutil.INF
		st.parent[i] = roadnet.NoEdge
	}
	h := func(e roadnet.EdgeID) float64 {
		return geoutil.Distance2D(net.Edge(e).End.XY, dst.XY)
	}
	pq := container.NewPriorityQueue[roadnet.EdgeID]()
	for _, s := range starts {
		g := net.Edge(s).Length
		if g < st.g[s] {
			st.g[s] = g
			pq.Push(s, g+h(s))
		}
	}
	pq.Heapify()
	for !pq.Empty() {
		e, f := pq.HeapPop()
		if f > st.g[e]+h(e)+1e-9 {
			continue // 过期条目
		}
		if net.Edge(e).End == dst {
			return st.reconstruct(e)
		}
		for _, n := range next(e) {
			g := st.g[e] + net.Edge(n).Length
			if g < st.g[n] {
				st.g[n] = g
				st.parent[n] = e
				pq.HeapPush(n, g+h(n))
			}
		}
	}
	return nil
}

func (st *searchState) reconstruct(e roadnet.EdgeID) []roadnet.EdgeID {
	var res []roadnet.EdgeID
	for ; e != roadnet.NoEdge; e = st.parent[e] {
		res = append(res, e)
	}
	slices.Reverse(res)
	return res
}

// FindEdgePath 沿边图的节点间边级A*，不考虑车道连接
// 说明：起终点相同或不可达时返回空
func FindEdgePath(net *roadnet.RoadNetwork, src, dst int64) []roadnet.EdgeID {
	d := net.Node(dst)
	if d == nil || net.Node(src) == nil || src == dst {
		return nil
	}
	return searchEdges(net, net.OutEdges(src), d, func(e roadnet.EdgeID) []roadnet.EdgeID {
		return net.OutEdges(net.Edge(e).End.ID)
	})
}

// FindLanePath 车道感知的边级A*
// 参数：lane-车辆当前车道，s-车辆在车道上的位置，dst-目标节点
// 返回：第0个元素为当前车道所在边，之后每条边都可经车道连接从前一条边驶入；失败返回空
// 算法说明：
// 1. 当前边的终点即为目标时直接返回[当前边]
// 2. 距车道末端超过AdjacentLaneThreshold时，第一跳可经本边任意车道的连接（车辆还来得及变道），
// 否则只能经当前车道自身的连接
// 3. 之后的扩展使用由车道连接导出的边后继关系
func FindLanePath(net *roadnet.RoadNetwork, lane roadnet.LaneID, s float64, dst int64) []roadnet.EdgeID {
	d := net.Node(dst)
	if d == nil {
		return nil
	}
	l := net.Lane(lane)
	cur := l.Edge
	if net.Edge(cur).End == d {
		return []roadnet.EdgeID{cur}
	}
	var starts []roadnet.EdgeID
	if l.Length-s > AdjacentLaneThreshold {
		starts = net.EdgeSuccessors(cur)
	} else {
		starts = net.LaneSuccessorEdges(lane)
	}
	rest := searchEdges(net, starts, d, net.EdgeSuccessors)
	if len(rest) == 0 {
		return nil
	}
	return append([]roadnet.EdgeID{cur}, rest...)
}
