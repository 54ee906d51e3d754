package geoutil_test

import (
	"math"
	"testing"

	"git.fiblab.net/general/common/v2/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/lanesim/utils/geoutil"
)

func TestValidateLatLonPanics(t *testing.T) {
	assert.Panics(t, func() { geoutil.ValidateLatLon(91, 0) })
	assert.Panics(t, func() { geoutil.ValidateLatLon(0, -181) })
	assert.Panics(t, func() { geoutil.ValidateLatLon(math.NaN(), 0) })
	assert.NotPanics(t, func() { geoutil.ValidateLatLon(39.9, 116.4) })
}

func TestHaversineOneDegreeLatitude(t *testing.T) {
	d := geoutil.Haversine(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 200)
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, geoutil.Bearing(0, 0, 1, 0), 1e-6)
	assert.InDelta(t, 90, geoutil.Bearing(0, 0, 0, 1), 1e-6)
	assert.InDelta(t, 180, math.Abs(geoutil.Bearing(1, 0, 0, 0)), 1e-6)
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, math.Pi, geoutil.NormalizeAngle(-math.Pi), 1e-9)
	assert.InDelta(t, -math.Pi/2, geoutil.NormalizeAngle(3*math.Pi/2), 1e-9)
	assert.InDelta(t, math.Pi/2, geoutil.SignedAngle(0, math.Pi/2), 1e-9)
	assert.InDelta(t, -math.Pi/2, geoutil.SignedAngle(math.Pi, math.Pi/2), 1e-9)
}

func TestOffsetIsRightHandNormal(t *testing.T) {
	p := geoutil.Offset(geometry.Point{}, 0, 2)
	assert.InDelta(t, 0, p.X, 1e-9)
	assert.InDelta(t, -2, p.Y, 1e-9)
}

func TestProjectorRoundTrip(t *testing.T) {
	pr := geoutil.NewProjector(39.9, 116.4)
	origin := pr.Project(39.9, 116.4)
	assert.InDelta(t, 0, origin.X, 1e-6)
	assert.InDelta(t, 0, origin.Y, 1e-6)

	p := pr.Project(39.901, 116.401)
	d := math.Hypot(p.X, p.Y)
	assert.InDelta(t, geoutil.Haversine(39.9, 116.4, 39.901, 116.401), d, 2)

	lat, lon := pr.Unproject(p)
	assert.InDelta(t, 39.901, lat, 1e-7)
	assert.InDelta(t, 116.401, lon, 1e-7)
}
