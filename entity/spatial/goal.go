package spatial

import (
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
	"github.com/tsinghua-fib-lab/lanesim/utils/randengine"
)

// GoalAttempts 随机目标的最大采样次数
const GoalAttempts = 100

// FindRandomGoal 在origin周围[minRadius, maxRadius]米的环形范围内随机选取目标节点
// 算法说明：
// 1. 将半径换算为格数
// 2. 随机角度与随机格半径得到一个格，格非空时返回其第一条道路的第一个节点
// 3. GoalAttempts次均落在空格时返回nil
// 说明：这是尽力而为的非均匀采样，经过格数越多的道路被选中的概率越高，
// 返回的节点也不保证可达
func FindRandomGoal(g *Grid, origin geometry.Point, minRadius, maxRadius float64, rng *randengine.Engine) *roadnet.Node {
	if maxRadius < minRadius {
		log.Panicf("FindRandomGoal: maxRadius %v < minRadius %v", maxRadius, minRadius)
	}
	minCells := minRadius / g.CellSize
	maxCells := max(maxRadius/g.CellSize, minCells)
	center := g.CellOf(origin.X, origin.Y)
	for i := 0; i < GoalAttempts; i++ {
		angle := rng.Uniform(-math.Pi, math.Pi)
		r := rng.Uniform(minCells, maxCells)
		c := Cell{
			X: center.X + int(math.Round(r*math.Cos(angle))),
			Y: center.Y + int(math.Round(r*math.Sin(angle))),
		}
		if ways := g.cells[c]; len(ways) > 0 {
			return ways[0].Nodes[0]
		}
	}
	return nil
}
