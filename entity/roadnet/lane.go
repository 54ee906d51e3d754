package roadnet

import (
	"math"
	"sort"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/samber/lo"
)

// Lane 车道
// 功能：保存车道几何与拓扑，车道上的车辆由vehicle包中以LaneID为下标的运行时数据维护
type Lane struct {
	ID          LaneID
	Edge        EdgeID
	Orientation Orientation
	IndexInEdge int // 在边中的横向下标，0为行驶方向最左侧
	Turn        TurnDirection
	Width       float64
	Length      float64
	MaxSpeed    float64

	Outgoing []LinkID // 从本车道出发的连接
	Incoming []LinkID // 到达本车道的连接

	line           []geometry.Point             // 中心线
	lineLengths    []float64                    // 中心线各点对应的累计长度
	lineDirections []geometry.PolylineDirection // 中心线各段方向
}

func newLane(id LaneID, edge *Edge, index int, turn TurnDirection, width float64, line []geometry.Point) Lane {
	l := Lane{
		ID:          id,
		Edge:        edge.ID,
		Orientation: edge.Orientation,
		IndexInEdge: index,
		Turn:        turn,
		Width:       width,
		MaxSpeed:    edge.MaxSpeed,
		line:        line,
	}
	l.lineLengths = geometry.GetPolylineLengths2D(l.line)
	l.Length = l.lineLengths[len(l.lineLengths)-1]
	l.lineDirections = geometry.GetPolylineDirections(l.line)
	return l
}

// Line 中心线（只读）
func (l *Lane) Line() []geometry.Point {
	return l.line
}

// GetDirectionByS 根据s坐标计算切向角度
func (l *Lane) GetDirectionByS(s float64) geometry.PolylineDirection {
	s = lo.Clamp(s, 0, l.Length)
	if i := sort.SearchFloat64s(l.lineLengths, s); i == 0 {
		return l.lineDirections[0]
	} else {
		return l.lineDirections[i-1]
	}
}

// GetPositionByS 将s坐标转换为平面坐标，超出范围时截断到车道端点
func (l *Lane) GetPositionByS(s float64) geometry.Point {
	s = lo.Clamp(s, 0, l.Length)
	i := sort.SearchFloat64s(l.lineLengths, s)
	if i == 0 {
		return l.line[0]
	}
	sHigh, sLow := l.lineLengths[i], l.lineLengths[i-1]
	if sHigh == sLow {
		return l.line[i]
	}
	return geometry.Blend(l.line[i-1], l.line[i], (s-sLow)/(sHigh-sLow))
}

// GetOffsetPositionByS 带横向偏移的位置，offset沿行驶方向右侧为正
func (l *Lane) GetOffsetPositionByS(s, offset float64) geometry.Point {
	p := l.GetPositionByS(s)
	d := l.GetDirectionByS(s).Direction
	return geometry.Point{X: p.X + math.Cos(d-math.Pi/2)*offset, Y: p.Y + math.Sin(d-math.Pi/2)*offset, Z: p.Z}
}

// ProjectToLane 将平面坐标投影为本车道的s坐标
func (l *Lane) ProjectToLane(pos geometry.Point) float64 {
	return lo.Clamp(geometry.GetClosestPolylineSToPoint2D(l.line, l.lineLengths, pos), 0, l.Length)
}
