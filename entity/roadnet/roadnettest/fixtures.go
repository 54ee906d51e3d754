// 测试用路网夹具：以米为单位摆放节点，生成未预处理的地图区域
package roadnettest

import (
	"math"

	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
)

const (
	OriginLat       = 39.9
	OriginLon       = 116.4
	metersPerDegree = 111195.0
)

// LatLon 距原点east米、north米处的经纬度
func LatLon(east, north float64) (float64, float64) {
	lat := OriginLat + north/metersPerDegree
	lon := OriginLon + east/(metersPerDegree*math.Cos(OriginLat*math.Pi/180))
	return lat, lon
}

// Builder 夹具构造器
type Builder struct {
	Seg *roadnet.WorldSegment
}

func New() *Builder {
	return &Builder{Seg: roadnet.NewWorldSegment(0)}
}

// Node 在(east, north)处添加节点
func (b *Builder) Node(id int64, east, north float64, tags ...roadnet.NodeTag) *Builder {
	lat, lon := LatLon(east, north)
	var t roadnet.NodeTag
	for _, tag := range tags {
		t |= tag
	}
	if err := b.Seg.AddNode(roadnet.NewNode(id, lat, lon, t)); err != nil {
		panic(err)
	}
	return b
}

// Way 添加道路
func (b *Builder) Way(w *roadnet.WayInfo, nodes ...int64) *Builder {
	if w.Type == roadnet.RoadUnknown {
		w.Type = roadnet.RoadPrimary
	}
	if err := b.Seg.AddWay(w, nodes); err != nil {
		panic(err)
	}
	return b
}

// StraightRoad 东西向直路，节点1在西、节点2在东
func StraightRoad(length float64, lanes int, oneway bool, speed float64) *roadnet.WorldSegment {
	return New().
		Node(1, 0, 0).
		Node(2, length, 0).
		Way(&roadnet.WayInfo{ID: 10, Oneway: oneway, Lanes: lanes, MaxSpeed: speed}, 1, 2).
		Seg
}

// Chain 东西向的多段单行直路：节点1..n+1，相邻节点之间为一条独立道路
func Chain(segments int, segLength float64, lanes int, speed float64) *roadnet.WorldSegment {
	b := New()
	for i := 0; i <= segments; i++ {
		b.Node(int64(i+1), float64(i)*segLength, 0)
	}
	for i := 0; i < segments; i++ {
		b.Way(&roadnet.WayInfo{ID: int64(100 + i), Oneway: true, Lanes: lanes, MaxSpeed: speed}, int64(i+1), int64(i+2))
	}
	return b.Seg
}

// Grid n×n的双向网格，节点ID为row*n+col+1，行沿东西向，列沿南北向
func Grid(n int, spacing float64, lanesPerDirection int) *roadnet.WorldSegment {
	b := New()
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			b.Node(int64(r*n+c+1), float64(c)*spacing, float64(r)*spacing)
		}
	}
	wayID := int64(1000)
	for r := 0; r < n; r++ {
		ids := make([]int64, n)
		for c := 0; c < n; c++ {
			ids[c] = int64(r*n + c + 1)
		}
		b.Way(&roadnet.WayInfo{ID: wayID, LanesForward: lanesPerDirection, LanesBackward: lanesPerDirection}, ids...)
		wayID++
	}
	for c := 0; c < n; c++ {
		ids := make([]int64, n)
		for r := 0; r < n; r++ {
			ids[r] = int64(r*n + c + 1)
		}
		b.Way(&roadnet.WayInfo{ID: wayID, LanesForward: lanesPerDirection, LanesBackward: lanesPerDirection}, ids...)
		wayID++
	}
	return b.Seg
}

// TJunction 东西向双向主路1-2-3，节点2向南接双向支路2-4
func TJunction(armLength float64) *roadnet.WorldSegment {
	return New().
		Node(1, -armLength, 0).
		Node(2, 0, 0).
		Node(3, armLength, 0).
		Node(4, 0, -armLength).
		Way(&roadnet.WayInfo{ID: 20, LanesForward: 2, LanesBackward: 2}, 1, 2, 3).
		Way(&roadnet.WayInfo{ID: 21, LanesForward: 1, LanesBackward: 1}, 2, 4).
		Seg
}

// Merge 单行道4车道1→2接3车道2→3
func Merge(length float64) *roadnet.WorldSegment {
	return New().
		Node(1, 0, 0).
		Node(2, length, 0).
		Node(3, 2*length, 0).
		Way(&roadnet.WayInfo{ID: 30, Oneway: true, Lanes: 4}, 1, 2).
		Way(&roadnet.WayInfo{ID: 31, Oneway: true, Lanes: 3}, 2, 3).
		Seg
}

// Isolated 两条互不连通的单行道：1→2与3→4
func Isolated(length float64) *roadnet.WorldSegment {
	return New().
		Node(1, 0, 0).
		Node(2, length, 0).
		Node(3, 0, 500).
		Node(4, length, 500).
		Way(&roadnet.WayInfo{ID: 40, Oneway: true, Lanes: 1}, 1, 2).
		Way(&roadnet.WayInfo{ID: 41, Oneway: true, Lanes: 1}, 3, 4).
		Seg
}

// Crossroad 十字路口：中心节点5，西1、东2、北3、南4四条双向单车道支路
// 参数：signal-中心节点是否带信号灯标签
func Crossroad(armLength float64, signal bool) *roadnet.WorldSegment {
	var tags []roadnet.NodeTag
	if signal {
		tags = append(tags, roadnet.TagTrafficLight)
	}
	return New().
		Node(1, -armLength, 0).
		Node(2, armLength, 0).
		Node(3, 0, armLength).
		Node(4, 0, -armLength).
		Node(5, 0, 0, tags...).
		Way(&roadnet.WayInfo{ID: 50, Lanes: 2}, 1, 5).
		Way(&roadnet.WayInfo{ID: 51, Lanes: 2}, 5, 2).
		Way(&roadnet.WayInfo{ID: 52, Lanes: 2}, 3, 5).
		Way(&roadnet.WayInfo{ID: 53, Lanes: 2}, 5, 4).
		Seg
}
