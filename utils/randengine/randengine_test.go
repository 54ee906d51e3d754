package randengine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/lanesim/utils/randengine"
)

func TestSameSeedSameSequence(t *testing.T) {
	a := randengine.New(42)
	b := randengine.New(42)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
	fa, fb := a.Fork(), b.Fork()
	assert.Equal(t, fa.Intn(1000), fb.Intn(1000))
}

func TestDiscreteDistribution(t *testing.T) {
	e := randengine.New(1)
	for i := 0; i < 100; i++ {
		assert.Equal(t, int32(1), e.DiscreteDistribution([]float64{0, 1, 0}))
	}
	assert.Panics(t, func() { e.DiscreteDistribution([]float64{0, 0}) })
	assert.Panics(t, func() { e.DiscreteDistribution([]float64{1, -1}) })
}

func TestPTrueValidatesProbability(t *testing.T) {
	e := randengine.New(1)
	assert.True(t, e.PTrue(1))
	assert.False(t, e.PTrue(0))
	assert.Panics(t, func() { e.PTrue(1.5) })
	assert.Panics(t, func() { e.PTrueSafe(-0.1) })
}

func TestUniform(t *testing.T) {
	e := randengine.New(7)
	for i := 0; i < 100; i++ {
		x := e.Uniform(2, 3)
		assert.GreaterOrEqual(t, x, 2.0)
		assert.Less(t, x, 3.0)
	}
	assert.Panics(t, func() { e.Uniform(3, 2) })
}
