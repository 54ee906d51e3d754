package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

func TestClockAdvance(t *testing.T) {
	c := New(config.ControlStep{Start: 10, Total: 3, Interval: 0.5})
	assert.Equal(t, 5.0, c.T)
	assert.Equal(t, int32(0), c.Ticks())
	c.Advance()
	c.Advance()
	assert.Equal(t, 6.0, c.T)
	assert.False(t, c.Finished())
	c.Advance()
	assert.True(t, c.Finished())
	assert.Equal(t, int32(3), c.Ticks())
}

func TestClockFormat(t *testing.T) {
	c := New(config.ControlStep{Start: 3725, Total: 1, Interval: 1})
	assert.Equal(t, "01:02:05", c.String())
	h, m, s := c.GetHourMinuteSecond()
	assert.Equal(t, 1, h)
	assert.Equal(t, 2, m)
	assert.InDelta(t, 5, s, 1e-9)
}

func TestClockRejectsBadInterval(t *testing.T) {
	assert.Panics(t, func() { New(config.ControlStep{Interval: 0}) })
}
