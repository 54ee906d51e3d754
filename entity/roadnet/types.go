package roadnet

import (
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "roadnet")

// EdgeID 边在路网边数组中的下标，构建完成后保持稳定
type EdgeID int32

// LaneID 车道在路网车道数组中的下标
type LaneID int32

// LinkID 车道连接在连接数组中的下标
type LinkID int32

const (
	NoEdge EdgeID = -1
	NoLane LaneID = -1
)

// NodeTag 节点标签位集合
type NodeTag uint8

const (
	TagTrafficLight NodeTag = 1 << iota // 信号灯
	TagStopSign                         // 停车让行
	TagCrosswalk                        // 人行横道
	TagWayNode                          // 属于至少一条道路
)

func (t NodeTag) Has(tag NodeTag) bool { return t&tag != 0 }

// Orientation 边相对道路几何方向的朝向
type Orientation uint8

const (
	Forward  Orientation = iota // 与道路节点顺序一致
	Backward                    // 与道路节点顺序相反
)

func (o Orientation) String() string {
	if o == Forward {
		return "forward"
	}
	return "backward"
}

// RoadType 道路等级
type RoadType uint8

const (
	RoadUnknown RoadType = iota
	RoadMotorway
	RoadTrunk
	RoadPrimary
	RoadSecondary
	RoadTertiary
	RoadUnclassified
	RoadResidential
	RoadLivingStreet
	RoadService
	RoadMotorwayLink
	RoadTrunkLink
	RoadPrimaryLink
	RoadSecondaryLink
	RoadTertiaryLink
	RoadFootway // 以下为机动车不可通行
	RoadCycleway
	RoadPath
)

var roadTypeNames = map[string]RoadType{
	"motorway":       RoadMotorway,
	"trunk":          RoadTrunk,
	"primary":        RoadPrimary,
	"secondary":      RoadSecondary,
	"tertiary":       RoadTertiary,
	"unclassified":   RoadUnclassified,
	"residential":    RoadResidential,
	"living_street":  RoadLivingStreet,
	"service":        RoadService,
	"motorway_link":  RoadMotorwayLink,
	"trunk_link":     RoadTrunkLink,
	"primary_link":   RoadPrimaryLink,
	"secondary_link": RoadSecondaryLink,
	"tertiary_link":  RoadTertiaryLink,
	"footway":        RoadFootway,
	"pedestrian":     RoadFootway,
	"steps":          RoadFootway,
	"cycleway":       RoadCycleway,
	"path":           RoadPath,
	"track":          RoadPath,
}

// ParseRoadType 解析OSM highway标签
func ParseRoadType(highway string) RoadType {
	return roadTypeNames[strings.ToLower(strings.TrimSpace(highway))]
}

// IsLink 匝道/连接道
func (t RoadType) IsLink() bool {
	return t >= RoadMotorwayLink && t <= RoadTertiaryLink
}

// IsCarAccessible 机动车是否可以通行
func (t RoadType) IsCarAccessible() bool {
	return t >= RoadMotorway && t <= RoadTertiaryLink
}

// DefaultSpeed 道路等级的默认限速（米/秒）
func (t RoadType) DefaultSpeed() float64 {
	switch t {
	case RoadMotorway:
		return 120 / 3.6
	case RoadTrunk:
		return 90 / 3.6
	case RoadPrimary, RoadMotorwayLink, RoadTrunkLink:
		return 60 / 3.6
	case RoadSecondary, RoadTertiary, RoadPrimaryLink, RoadSecondaryLink, RoadTertiaryLink:
		return 50 / 3.6
	case RoadLivingStreet:
		return 10 / 3.6
	case RoadService:
		return 20 / 3.6
	default:
		return 40 / 3.6
	}
}

// DefaultLanes 道路等级的默认单向车道数
func (t RoadType) DefaultLanes() int {
	switch t {
	case RoadMotorway, RoadTrunk:
		return 2
	default:
		return 1
	}
}
