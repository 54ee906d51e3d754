package roadnet

import "fmt"

const DefaultLaneWidth = 3.5 // 默认车道宽度（米）

// WayInfo 道路（OSM way）属性
type WayInfo struct {
	ID            int64
	Type          RoadType
	Nodes         []*Node
	Oneway        bool
	Lanes         int     // 总车道数
	LanesForward  int     // 沿节点顺序方向的车道数
	LanesBackward int     // 逆节点顺序方向的车道数
	LaneWidth     float64 // 米
	MaxSpeed      float64 // 米/秒

	TurnLanesForward  []TurnDirection // 正向车道转向，从左到右
	TurnLanesBackward []TurnDirection // 反向车道转向，从左到右

	Edges []EdgeID // 由该道路生成的边
}

// Normalize 补全车道数、宽度和限速
// 算法说明：
// 1. 单行道：正向车道数=总车道数，反向为0
// 2. 双向道路：缺少分向车道数时，正向取总数的上半、反向取下半，两向至少各1条
// 3. 总车道数始终等于两向之和
func (w *WayInfo) Normalize() error {
	if len(w.Nodes) < 2 {
		return fmt.Errorf("way %d has %d nodes", w.ID, len(w.Nodes))
	}
	if w.LaneWidth <= 0 {
		w.LaneWidth = DefaultLaneWidth
	}
	if w.MaxSpeed <= 0 {
		w.MaxSpeed = w.Type.DefaultSpeed()
	}
	if w.Oneway {
		if w.LanesForward <= 0 {
			w.LanesForward = w.Lanes
		}
		if w.LanesForward <= 0 {
			w.LanesForward = w.Type.DefaultLanes()
		}
		w.LanesBackward = 0
	} else {
		switch {
		case w.LanesForward > 0 && w.LanesBackward <= 0:
			w.LanesBackward = max(w.Lanes-w.LanesForward, 1)
		case w.LanesBackward > 0 && w.LanesForward <= 0:
			w.LanesForward = max(w.Lanes-w.LanesBackward, 1)
		case w.LanesForward <= 0 && w.LanesBackward <= 0:
			if w.Lanes >= 2 {
				w.LanesForward = (w.Lanes + 1) / 2
				w.LanesBackward = w.Lanes / 2
			} else {
				w.LanesForward = w.Type.DefaultLanes()
				w.LanesBackward = w.Type.DefaultLanes()
			}
		}
	}
	w.Lanes = w.LanesForward + w.LanesBackward
	return nil
}

// TurnLanes 指定方向的车道转向序列
func (w *WayInfo) TurnLanes(o Orientation) []TurnDirection {
	if o == Forward {
		return w.TurnLanesForward
	}
	return w.TurnLanesBackward
}

// LaneCount 指定方向的车道数
func (w *WayInfo) LaneCount(o Orientation) int {
	if o == Forward {
		return w.LanesForward
	}
	return w.LanesBackward
}

// LateralSlot 车道在整条道路横断面上的槽位序号
// 说明：槽位从道路正向的左侧开始编号，反向车道位于正向左侧（右侧通行），
// 车道在边内的下标0为行驶方向最左侧车道
func (w *WayInfo) LateralSlot(o Orientation, index int) int {
	if o == Forward {
		return w.LanesBackward + index
	}
	return w.LanesBackward - 1 - index
}

// LateralOffset 槽位中心相对道路中心线的横向偏移（沿正向右侧为正）
func (w *WayInfo) LateralOffset(slot int) float64 {
	return (float64(slot) - float64(w.Lanes-1)/2) * w.LaneWidth
}
