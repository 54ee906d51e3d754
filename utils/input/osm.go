// 输入数据：从OSM XML构建地图区域
package input

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmxml"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
)

var log = logrus.WithField("module", "input")

const (
	kmhToMs  = 1 / 3.6
	mphToMs  = 0.44704
	minWidth = 2.0 // 由道路总宽推算出的车道宽度下限（米），低于该值时使用默认宽度
)

// LoadOSM 读取OSM XML文件
// 参数：ctx-上下文，path-文件路径，segmentID-地图区域编号
// 返回：未预处理的地图区域
func LoadOSM(ctx context.Context, path string, segmentID int) (*roadnet.WorldSegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open osm file: %w", err)
	}
	defer f.Close()
	return ParseOSM(ctx, f, segmentID)
}

// ParseOSM 解析OSM XML
// 算法说明：
// 1. 扫描全部节点与道路，忽略关系
// 2. 只保留机动车可通行的道路（highway标签），解析车道数、单行、限速、转向车道与宽度
// 3. 只保留被保留道路引用的节点，解析信号灯、停车让行与人行横道标签
// 4. 引用了缺失节点的道路整条丢弃并记录警告
func ParseOSM(ctx context.Context, r io.Reader, segmentID int) (*roadnet.WorldSegment, error) {
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()

	nodes := make(map[osm.NodeID]*osm.Node)
	var ways []*osm.Way
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			nodes[o.ID] = o
		case *osm.Way:
			ways = append(ways, o)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan osm: %w", err)
	}

	seg := roadnet.NewWorldSegment(segmentID)
	added := make(map[osm.NodeID]struct{})
	skipped := 0
	for _, w := range ways {
		info, reverse, ok := parseWay(w)
		if !ok {
			continue
		}
		ids := make([]int64, 0, len(w.Nodes))
		missing := false
		for _, wn := range w.Nodes {
			if _, found := nodes[wn.ID]; !found {
				missing = true
				break
			}
			ids = append(ids, int64(wn.ID))
		}
		if missing || len(ids) < 2 {
			skipped++
			continue
		}
		if reverse {
			for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
				ids[i], ids[j] = ids[j], ids[i]
			}
		}
		for _, id := range ids {
			nid := osm.NodeID(id)
			if _, ok := added[nid]; ok {
				continue
			}
			n := nodes[nid]
			if err := seg.AddNode(roadnet.NewNode(id, n.Lat, n.Lon, parseNodeTags(n.Tags))); err != nil {
				return nil, err
			}
			added[nid] = struct{}{}
		}
		if err := seg.AddWay(info, ids); err != nil {
			return nil, err
		}
	}
	if skipped > 0 {
		log.Warnf("skipped %d ways referencing missing nodes", skipped)
	}
	if len(seg.Ways()) == 0 {
		return nil, fmt.Errorf("no car accessible ways in osm data")
	}
	log.Infof("osm: %d nodes, %d ways", len(seg.Nodes()), len(seg.Ways()))
	return seg, nil
}

// parseWay 解析道路标签
// 返回：道路属性，节点顺序是否需要反转（oneway=-1），是否保留
func parseWay(w *osm.Way) (*roadnet.WayInfo, bool, bool) {
	tags := w.Tags
	typ := roadnet.ParseRoadType(tags.Find("highway"))
	if !typ.IsCarAccessible() {
		return nil, false, false
	}
	info := &roadnet.WayInfo{
		ID:            int64(w.ID),
		Type:          typ,
		Lanes:         parseInt(tags.Find("lanes")),
		LanesForward:  parseInt(tags.Find("lanes:forward")),
		LanesBackward: parseInt(tags.Find("lanes:backward")),
		MaxSpeed:      ParseMaxSpeed(tags.Find("maxspeed")),
	}
	reverse := false
	switch strings.ToLower(tags.Find("oneway")) {
	case "yes", "1", "true", "reversible":
		info.Oneway = true
	case "-1", "reverse":
		info.Oneway = true
		reverse = true
	case "no", "0", "false":
	default:
		info.Oneway = typ == roadnet.RoadMotorway || tags.Find("junction") == "roundabout"
	}
	if info.Oneway {
		info.TurnLanesForward = roadnet.ParseTurnLanes(tags.Find("turn:lanes"))
		if info.Lanes <= 0 && reverse {
			info.Lanes = info.LanesBackward
		}
	} else {
		info.TurnLanesForward = roadnet.ParseTurnLanes(tags.Find("turn:lanes:forward"))
		info.TurnLanesBackward = roadnet.ParseTurnLanes(tags.Find("turn:lanes:backward"))
	}
	if width, err := strconv.ParseFloat(strings.TrimSuffix(tags.Find("width"), " m"), 64); err == nil && info.Lanes > 0 {
		if lw := width / float64(info.Lanes); lw >= minWidth {
			info.LaneWidth = lw
		}
	}
	return info, reverse, true
}

// parseNodeTags 解析节点标签
func parseNodeTags(tags osm.Tags) roadnet.NodeTag {
	var t roadnet.NodeTag
	switch tags.Find("highway") {
	case "traffic_signals":
		t |= roadnet.TagTrafficLight
	case "stop":
		t |= roadnet.TagStopSign
	case "crossing":
		t |= roadnet.TagCrosswalk
	}
	return t
}

func parseInt(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseMaxSpeed 解析maxspeed标签为米/秒
// 说明：默认单位km/h，支持"mph"后缀；无法解析（如none、signals）时返回0，由道路等级决定默认限速
func ParseMaxSpeed(v string) float64 {
	v = strings.ToLower(strings.TrimSpace(v))
	factor := kmhToMs
	switch {
	case strings.HasSuffix(v, "mph"):
		factor = mphToMs
		v = strings.TrimSpace(strings.TrimSuffix(v, "mph"))
	case strings.HasSuffix(v, "km/h"):
		v = strings.TrimSpace(strings.TrimSuffix(v, "km/h"))
	}
	speed, err := strconv.ParseFloat(v, 64)
	if err != nil || speed <= 0 {
		return 0
	}
	return speed * factor
}
