// 空间索引：道路均匀网格、车道四叉树与随机目标采样
package spatial

import (
	"math"

	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
)

var log = logrus.WithField("module", "spatial")

const (
	DefaultCellsPerSide = 5   // 默认网格边长为区域最大边长的1/5
	minCellSize         = 1.0 // 米
)

// Cell 网格坐标
type Cell struct {
	X, Y int
}

// Grid 道路均匀网格
// 功能：以(floor(x/cellSize), floor(y/cellSize))为键，记录经过该格的全部机动车道路
// 说明：同一格内的道路按加入顺序排列且不重复
type Grid struct {
	CellSize float64
	Bound    roadnet.Bound

	cells map[Cell][]*roadnet.WayInfo
}

// NewGrid 在已预处理的地图区域上构建网格
// 参数：seg-地图区域，cellSize-格边长（米），不大于0时取区域最大边长/DefaultCellsPerSide
// 算法说明：沿每条道路的每段以cellSize/2为步长采样，将采样点所在格登记该道路
func NewGrid(seg *roadnet.WorldSegment, cellSize float64) *Grid {
	if !seg.Preprocessed() {
		log.Panicf("segment %d is not preprocessed", seg.ID)
	}
	if cellSize <= 0 {
		cellSize = max(seg.Bound.Width(), seg.Bound.Height()) / DefaultCellsPerSide
	}
	cellSize = max(cellSize, minCellSize)
	g := &Grid{
		CellSize: cellSize,
		Bound:    seg.Bound,
		cells:    make(map[Cell][]*roadnet.WayInfo),
	}
	for _, w := range seg.Ways() {
		if !w.Type.IsCarAccessible() {
			continue
		}
		g.rasterize(w)
	}
	log.Debugf("grid: cell %.1fm, %d non-empty cells", g.CellSize, len(g.cells))
	return g
}

func (g *Grid) rasterize(w *roadnet.WayInfo) {
	step := g.CellSize / 2
	for i := 1; i < len(w.Nodes); i++ {
		a, b := w.Nodes[i-1].XY, w.Nodes[i].XY
		length := math.Hypot(b.X-a.X, b.Y-a.Y)
		n := int(math.Ceil(length / step))
		for k := 0; k < n; k++ {
			t := float64(k) / float64(n)
			g.add(g.CellOf(a.X+(b.X-a.X)*t, a.Y+(b.Y-a.Y)*t), w)
		}
		g.add(g.CellOf(b.X, b.Y), w)
	}
}

func (g *Grid) add(c Cell, w *roadnet.WayInfo) {
	ways := g.cells[c]
	for _, o := range ways {
		if o == w {
			return
		}
	}
	g.cells[c] = append(ways, w)
}

// CellOf 平面坐标所在格
func (g *Grid) CellOf(x, y float64) Cell {
	return Cell{X: int(math.Floor(x / g.CellSize)), Y: int(math.Floor(y / g.CellSize))}
}

// Ways 格内的道路，空格返回nil
func (g *Grid) Ways(c Cell) []*roadnet.WayInfo {
	return g.cells[c]
}

// NumCells 非空格数量
func (g *Grid) NumCells() int {
	return len(g.cells)
}
