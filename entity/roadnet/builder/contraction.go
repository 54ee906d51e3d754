// 路网构建：由道路生成有向边与车道（ContractionBuilder），再在节点处生成车道连接（LaneConnectorBuilder）
package builder

import (
	"fmt"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/geoutil"
)

var log = logrus.WithField("module", "builder")

const minEdgeLength = 0.1 // 短于该长度（米）的路段被忽略

// ContractionBuilder 将道路拆分为相邻节点之间的有向边，并按道路车道信息生成车道
type ContractionBuilder struct{}

// Build 构建边与车道
// 算法说明：
// 1. 按加入顺序遍历机动车可通行的道路，对每对相邻节点(a, b)：
//   - 正向车道数>0时生成a→b的正向边
//   - 非单行且反向车道数>0时生成b→a的反向边
//
// 2. 每条车道的中心线由道路中心线沿正向右侧法向平移得到，
// 偏移量=(槽位-(总车道数-1)/2)*车道宽，两向车道共享一排槽位因而互不重叠
// 3. 车道转向取自道路对应方向的turn:lanes序列（按车道下标）
func (ContractionBuilder) Build(seg *roadnet.WorldSegment) (*roadnet.RoadNetwork, error) {
	if !seg.Preprocessed() {
		return nil, fmt.Errorf("segment %d is not preprocessed", seg.ID)
	}
	net := roadnet.NewRoadNetwork(seg.Nodes())
	for _, w := range seg.Ways() {
		if !w.Type.IsCarAccessible() {
			continue
		}
		w.Edges = w.Edges[:0]
		for i := 0; i+1 < len(w.Nodes); i++ {
			a, b := w.Nodes[i], w.Nodes[i+1]
			if a == b || a.DistanceTo(b) < minEdgeLength {
				continue
			}
			heading := geoutil.Heading(a.XY, b.XY)
			if w.LanesForward > 0 {
				e := net.AddEdge(a, b, w, roadnet.Forward)
				addLanes(net, e, w, roadnet.Forward, a.XY, b.XY, heading)
			}
			if !w.Oneway && w.LanesBackward > 0 {
				e := net.AddEdge(b, a, w, roadnet.Backward)
				addLanes(net, e, w, roadnet.Backward, a.XY, b.XY, heading)
			}
		}
	}
	log.Infof("contraction: %d edges, %d lanes", net.NumEdges(), net.NumLanes())
	return net, nil
}

func addLanes(net *roadnet.RoadNetwork, e roadnet.EdgeID, w *roadnet.WayInfo, o roadnet.Orientation, a, b geometry.Point, heading float64) {
	turns := w.TurnLanes(o)
	for i := 0; i < w.LaneCount(o); i++ {
		off := w.LateralOffset(w.LateralSlot(o, i))
		pa, pb := geoutil.Offset(a, heading, off), geoutil.Offset(b, heading, off)
		line := []geometry.Point{pa, pb}
		if o == roadnet.Backward {
			line = []geometry.Point{pb, pa}
		}
		turn := roadnet.TurnNone
		if i < len(turns) {
			turn = turns[i]
		}
		net.AddLane(e, turn, w.LaneWidth, line)
	}
}
