package spatial

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/quadtree"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
)

const (
	sampleStep   = 5.0  // 车道中心线采样间距（米）
	boundPadding = 50.0 // 四叉树范围相对路网包围盒的外扩（米）
	candidateK   = 16   // 最近邻候选采样点数
)

// lanePoint 车道中心线上的一个采样点
type lanePoint struct {
	p    orb.Point
	lane roadnet.LaneID
}

func (p *lanePoint) Point() orb.Point { return p.p }

// LaneIndex 车道空间索引
// 功能：以车道中心线采样点构建四叉树，用于查询距离某点最近的车道
type LaneIndex struct {
	net  *roadnet.RoadNetwork
	tree *quadtree.Quadtree
}

// LaneHit 最近车道查询结果
type LaneHit struct {
	Lane     roadnet.LaneID
	S        float64 // 投影到车道上的s坐标
	Distance float64 // 到车道中心线的距离
}

// NewLaneIndex 构建车道空间索引
func NewLaneIndex(net *roadnet.RoadNetwork, bound roadnet.Bound) *LaneIndex {
	b := orb.Bound{
		Min: orb.Point{bound.Min.X - boundPadding, bound.Min.Y - boundPadding},
		Max: orb.Point{bound.Max.X + boundPadding, bound.Max.Y + boundPadding},
	}
	idx := &LaneIndex{net: net, tree: quadtree.New(b)}
	count := 0
	for i := 0; i < net.NumLanes(); i++ {
		l := net.Lane(roadnet.LaneID(i))
		n := max(int(math.Ceil(l.Length/sampleStep)), 1)
		for k := 0; k <= n; k++ {
			pos := l.GetPositionByS(l.Length * float64(k) / float64(n))
			if err := idx.tree.Add(&lanePoint{p: orb.Point{pos.X, pos.Y}, lane: l.ID}); err != nil {
				log.Warnf("lane %d sample outside index bound: %v", l.ID, err)
				continue
			}
			count++
		}
	}
	log.Debugf("lane index: %d samples for %d lanes", count, net.NumLanes())
	return idx
}

// NearestLane 距pos最近的车道
// 参数：maxDistance-最大搜索距离（米），不大于0时不限制
// 返回：未找到时ok为false
// 算法说明：先由四叉树取最近的若干采样点得到候选车道，再对候选车道做精确投影
func (idx *LaneIndex) NearestLane(pos geometry.Point, maxDistance float64) (hit LaneHit, ok bool) {
	var (
		pts []orb.Pointer
		p   = orb.Point{pos.X, pos.Y}
	)
	if maxDistance > 0 {
		pts = idx.tree.KNearest(nil, p, candidateK, maxDistance+sampleStep)
	} else {
		pts = idx.tree.KNearest(nil, p, candidateK)
	}
	hit.Distance = math.Inf(1)
	seen := make(map[roadnet.LaneID]struct{}, len(pts))
	for _, ptr := range pts {
		id := ptr.(*lanePoint).lane
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		l := idx.net.Lane(id)
		s := l.ProjectToLane(pos)
		q := l.GetPositionByS(s)
		d := math.Hypot(q.X-pos.X, q.Y-pos.Y)
		if d < hit.Distance || (d == hit.Distance && id < hit.Lane) {
			hit = LaneHit{Lane: id, S: s, Distance: d}
		}
	}
	if len(seen) == 0 || (maxDistance > 0 && hit.Distance > maxDistance) {
		return LaneHit{Lane: roadnet.NoLane}, false
	}
	return hit, true
}
