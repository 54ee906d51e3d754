package builder

import (
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/geoutil"
)

// LaneConnectorBuilder 在节点处生成车道连接
type LaneConnectorBuilder struct{}

// Build 生成全部车道连接，已有连接会先被清空，因此重复调用结果一致
// 算法说明：
//  1. 只有一条驶入边和一条驶出边且两者都是单行道时，按下标一一连接，
//     驶入车道多于驶出车道时多出的车道连接到驶出边的最后一条车道
//  2. 否则对每对(驶入边, 驶出边)按转角分类转向（掉头只在唯一出口时保留），
//     驶入车道的转向标记与之兼容时生成连接：
//     右转/右汇入连到最后一条车道，左转/左汇入/掉头连到第一条车道，
//     其他情况在整个节点范围内轮流分配：第k条这样处理的驶入车道连到驶出边的第k%驶出车道数条车道
//  3. 来自匝道/连接道的连接标记为让行
func (LaneConnectorBuilder) Build(net *roadnet.RoadNetwork) {
	net.Unfreeze()
	net.ClearLinks()
	for _, node := range net.Nodes() {
		in, out := net.InEdges(node.ID), net.OutEdges(node.ID)
		if len(in) == 0 || len(out) == 0 {
			continue
		}
		if len(in)+len(out) > 2 || node.IsJunction() {
			net.SetJunction(&roadnet.Junction{Node: node, Incoming: in, Outgoing: out})
		}
		if len(in) == 1 && len(out) == 1 {
			ei, eo := net.Edge(in[0]), net.Edge(out[0])
			if ei.Way.Oneway && eo.Way.Oneway {
				connectOneToOne(net, ei, eo)
				continue
			}
		}
		k := 0
		for _, i := range in {
			ei := net.Edge(i)
			for _, o := range out {
				eo := net.Edge(o)
				if eo.IsTwinOf(ei) && len(out) > 1 {
					continue
				}
				connectPair(net, ei, eo, &k)
			}
		}
	}
	net.Freeze()
	log.Infof("connector: %d links, %d junctions", net.NumLinks(), len(net.Junctions()))
}

func connectOneToOne(net *roadnet.RoadNetwork, ei, eo *roadnet.Edge) {
	turn := roadnet.ClassifyTurn(geoutil.SignedAngle(ei.Heading, eo.Heading))
	yield := ei.Way.Type.IsLink()
	for i, from := range ei.Lanes {
		to := eo.LastLane()
		if i < len(eo.Lanes) {
			to = eo.Lanes[i]
		}
		net.AddLink(from, to, yield, turn)
	}
}

// connectPair 连接一对驶入、驶出边
// 参数：k-节点范围内的轮流分配计数
func connectPair(net *roadnet.RoadNetwork, ei, eo *roadnet.Edge, k *int) {
	turn := roadnet.ClassifyTurn(geoutil.SignedAngle(ei.Heading, eo.Heading))
	yield := ei.Way.Type.IsLink()
	n := len(eo.Lanes)
	for _, from := range ei.Lanes {
		if !net.Lane(from).Turn.Accepts(turn) {
			continue
		}
		var target int
		switch turn {
		case roadnet.TurnRight, roadnet.TurnMergeRight:
			target = n - 1
		case roadnet.TurnLeft, roadnet.TurnMergeLeft, roadnet.TurnUTurn:
			target = 0
		default:
			target = *k % n
			*k++
		}
		net.AddLink(from, eo.Lanes[target], yield, turn)
	}
}

// Build 预处理地图区域并依次执行两个构建器，结果写入seg.Network
func Build(seg *roadnet.WorldSegment) (*roadnet.RoadNetwork, error) {
	if !seg.Preprocessed() {
		if err := seg.Preprocess(); err != nil {
			return nil, err
		}
	}
	net, err := ContractionBuilder{}.Build(seg)
	if err != nil {
		return nil, err
	}
	LaneConnectorBuilder{}.Build(net)
	seg.Network = net
	return net, nil
}
