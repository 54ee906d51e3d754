// 地理与几何工具：经纬度校验、大圆距离、方位角、平面投影与角度运算
package geoutil

import (
	"fmt"
	"math"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/wroge/wgs84"
)

const (
	EPSG_WGS84          = 4326 // 经纬度坐标系
	EPSG_PseudoMercator = 3857 // 网络墨卡托投影
)

// ValidateLatLon 检查经纬度是否合法，不合法时panic
func ValidateLatLon(lat, lon float64) {
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		panic(fmt.Sprintf("geoutil: invalid coordinate lat=%v lon=%v", lat, lon))
	}
}

// Haversine 大圆距离（米）
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	ValidateLatLon(lat1, lon1)
	ValidateLatLon(lat2, lon2)
	return geo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// Bearing 初始方位角（度，正北为0，顺时针）
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	ValidateLatLon(lat1, lon1)
	ValidateLatLon(lat2, lon2)
	return geo.Bearing(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
}

// NormalizeAngle 将弧度角归一化到(-π, π]
func NormalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a <= -math.Pi {
		a += 2 * math.Pi
	} else if a > math.Pi {
		a -= 2 * math.Pi
	}
	return a
}

// SignedAngle 从方向from转到方向to的有符号角度（弧度，逆时针为正）
func SignedAngle(from, to float64) float64 {
	return NormalizeAngle(to - from)
}

// Heading 平面上从a指向b的方向角（atan2，弧度）
func Heading(a, b geometry.Point) float64 {
	return math.Atan2(b.Y-a.Y, b.X-a.X)
}

// Distance2D 平面距离
func Distance2D(a, b geometry.Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Offset 将点沿heading方向的右侧法向平移offset米（offset为负时向左）
func Offset(p geometry.Point, heading, offset float64) geometry.Point {
	return geometry.Point{
		X: p.X + math.Cos(heading-math.Pi/2)*offset,
		Y: p.Y + math.Sin(heading-math.Pi/2)*offset,
		Z: p.Z,
	}
}

// Projector 经纬度到局部平面坐标（米）的投影器
// 功能：以网络墨卡托为基础，减去原点并按原点纬度缩放，得到近似等距的局部坐标
type Projector struct {
	forward wgs84.Func
	inverse wgs84.Func
	originX float64
	originY float64
	scale   float64
}

// NewProjector 以给定经纬度为原点创建投影器
func NewProjector(originLat, originLon float64) *Projector {
	ValidateLatLon(originLat, originLon)
	epsg := wgs84.EPSG()
	p := &Projector{
		forward: epsg.Transform(EPSG_WGS84, EPSG_PseudoMercator),
		inverse: epsg.Transform(EPSG_PseudoMercator, EPSG_WGS84),
		scale:   math.Cos(originLat * math.Pi / 180),
	}
	p.originX, p.originY, _ = p.forward(originLon, originLat, 0)
	return p
}

// Project 经纬度转局部平面坐标
func (p *Projector) Project(lat, lon float64) geometry.Point {
	ValidateLatLon(lat, lon)
	x, y, _ := p.forward(lon, lat, 0)
	return geometry.Point{X: (x - p.originX) * p.scale, Y: (y - p.originY) * p.scale}
}

// Unproject 局部平面坐标转经纬度
func (p *Projector) Unproject(pos geometry.Point) (lat, lon float64) {
	lon, lat, _ = p.inverse(pos.X/p.scale+p.originX, pos.Y/p.scale+p.originY, 0)
	return lat, lon
}
