package roadnet

import (
	"math"
	"strings"
)

// TurnDirection 转向
type TurnDirection uint8

const (
	TurnNone TurnDirection = iota // 车道无转向限制
	TurnStraight
	TurnLeft
	TurnRight
	TurnMergeLeft
	TurnMergeRight
	TurnUTurn
)

var turnNames = [...]string{"none", "straight", "left", "right", "merge_left", "merge_right", "uturn"}

func (t TurnDirection) String() string {
	if int(t) < len(turnNames) {
		return turnNames[t]
	}
	return "unknown"
}

// 转向分类阈值（弧度）
var (
	straightThreshold = 15 * math.Pi / 180
	mergeThreshold    = 45 * math.Pi / 180
	uTurnThreshold    = 150 * math.Pi / 180
)

// ClassifyTurn 根据有符号转角分类转向
// 参数：delta-驶出方向相对驶入方向的转角（弧度，逆时针为正即左转）
func ClassifyTurn(delta float64) TurnDirection {
	a := math.Abs(delta)
	switch {
	case a <= straightThreshold:
		return TurnStraight
	case a <= mergeThreshold:
		if delta > 0 {
			return TurnMergeLeft
		}
		return TurnMergeRight
	case a <= uTurnThreshold:
		if delta > 0 {
			return TurnLeft
		}
		return TurnRight
	default:
		return TurnUTurn
	}
}

// Accepts 车道转向标记是否允许实际转向turn
// 说明：无标记车道允许任意转向；直行车道允许直行与同侧汇入；左右转车道允许本向转弯与同侧汇入
func (lane TurnDirection) Accepts(turn TurnDirection) bool {
	switch lane {
	case TurnNone:
		return true
	case TurnStraight:
		return turn == TurnStraight || turn == TurnMergeLeft || turn == TurnMergeRight
	case TurnLeft:
		return turn == TurnLeft || turn == TurnMergeLeft || turn == TurnUTurn
	case TurnRight:
		return turn == TurnRight || turn == TurnMergeRight
	case TurnMergeLeft:
		return turn == TurnMergeLeft || turn == TurnStraight
	case TurnMergeRight:
		return turn == TurnMergeRight || turn == TurnStraight
	case TurnUTurn:
		return turn == TurnUTurn
	}
	return false
}

// ParseTurnLanes 解析OSM turn:lanes标签，例如"left|through;right|right"
// 说明：按从左到右的顺序返回每条车道的转向；一条车道有多个取值时取第一个可识别的取值，
// 同时含左右两向时视为无限制
func ParseTurnLanes(v string) []TurnDirection {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, "|")
	res := make([]TurnDirection, len(parts))
	for i, p := range parts {
		var left, right, straight, merge bool
		for _, t := range strings.Split(p, ";") {
			switch strings.TrimSpace(t) {
			case "left", "sharp_left", "slight_left":
				left = true
			case "right", "sharp_right", "slight_right":
				right = true
			case "through":
				straight = true
			case "merge_to_left":
				merge, left = true, true
			case "merge_to_right":
				merge, right = true, true
			case "reverse":
				if !left && !right && !straight {
					res[i] = TurnUTurn
				}
			}
		}
		switch {
		case left && right:
			res[i] = TurnNone
		case merge && left:
			res[i] = TurnMergeLeft
		case merge && right:
			res[i] = TurnMergeRight
		case left && straight:
			res[i] = TurnNone
		case right && straight:
			res[i] = TurnNone
		case left:
			res[i] = TurnLeft
		case right:
			res[i] = TurnRight
		case straight:
			res[i] = TurnStraight
		}
	}
	return res
}
