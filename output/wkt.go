package output

import (
	"fmt"
	"os"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/tsinghua-fib-lab/lanesim/entity/roadnet"
)

// LaneCenterlines 全部车道中心线，按车道ID顺序
// 返回：某条车道的折线无法构成合法LineString时返回错误
func LaneCenterlines(net *roadnet.RoadNetwork) (geom.MultiLineString, error) {
	lss := make([]geom.LineString, 0, net.NumLanes())
	for i := 0; i < net.NumLanes(); i++ {
		line := net.Lane(roadnet.LaneID(i)).Line()
		coords := make([]float64, 0, len(line)*2)
		for _, p := range line {
			coords = append(coords, p.X, p.Y)
		}
		ls, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
		if err != nil {
			return geom.MultiLineString{}, fmt.Errorf("output: lane %d centerline: %w", i, err)
		}
		lss = append(lss, ls)
	}
	return geom.NewMultiLineString(lss), nil
}

// WriteWKT 将车道中心线以MULTILINESTRING写入文件（平面坐标，米）
func WriteWKT(net *roadnet.RoadNetwork, path string) error {
	mls, err := LaneCenterlines(net)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(mls.AsText()+"\n"), 0o644); err != nil {
		return fmt.Errorf("output: write wkt: %w", err)
	}
	log.Infof("wrote %d lane centerlines to %s", net.NumLanes(), path)
	return nil
}
