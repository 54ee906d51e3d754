package roadnet

// Edge 有向边：同一道路相邻两节点之间的一个行驶方向
type Edge struct {
	ID          EdgeID
	Start       *Node
	End         *Node
	Way         *WayInfo
	Orientation Orientation
	Length      float64
	Heading     float64 // 起点指向终点的方向角（弧度）
	MaxSpeed    float64
	Lanes       []LaneID // 按横向下标排列
}

// IsTwinOf 两条边是否为同一道路同一路段的相反方向
func (e *Edge) IsTwinOf(o *Edge) bool {
	return e.Way == o.Way && e.Start == o.End && e.End == o.Start
}

// LastLane 最右侧车道
func (e *Edge) LastLane() LaneID {
	return e.Lanes[len(e.Lanes)-1]
}
