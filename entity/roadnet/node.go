package roadnet

import (
	"git.fiblab.net/general/common/v2/geometry"
	"github.com/tsinghua-fib-lab/lanesim/utils/geoutil"
)

// Node 路网节点（OSM节点）
type Node struct {
	ID   int64          // 外部唯一ID
	Lat  float64        // 纬度
	Lon  float64        // 经度
	XY   geometry.Point // 预处理后的平面坐标（米）
	Tags NodeTag
	Ways []*WayInfo // 经过该节点的道路
}

// NewNode 创建节点，经纬度非法时panic
func NewNode(id int64, lat, lon float64, tags NodeTag) *Node {
	geoutil.ValidateLatLon(lat, lon)
	return &Node{ID: id, Lat: lat, Lon: lon, Tags: tags}
}

// IsJunction 是否为路口：被三条以上道路共享或带信号灯标签
func (n *Node) IsJunction() bool {
	return len(n.Ways) >= 3 || n.Tags.Has(TagTrafficLight)
}

// DistanceTo 到另一个节点的平面距离
func (n *Node) DistanceTo(o *Node) float64 {
	return geoutil.Distance2D(n.XY, o.XY)
}
