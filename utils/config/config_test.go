package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/lanesim/utils/config"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	c, err := config.Load([]byte(`
control:
  step:
    start: 0
    total: 100
    interval: 0.5
simulation:
  generator: flow
  flows:
    - lane: 3
      rate: 600
idm:
  max_acc: 2.0
`))
	require.NoError(t, err)
	assert.Equal(t, 0.5, c.Control.Step.Interval)
	assert.Equal(t, config.GeneratorFlow, c.Simulation.Generator)
	assert.Equal(t, config.MovementIDM, c.Simulation.Movement)
	assert.Equal(t, 2.0, c.IDM.MaxAcc)
	assert.Equal(t, 8.0, c.IDM.HardDecel)
	require.Len(t, c.Simulation.Flows, 1)
	assert.Equal(t, int32(3), *c.Simulation.Flows[0].Lane)
	assert.Equal(t, int32(-1), c.Debug.Lane)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	_, err := config.Load([]byte("simulation:\n  unknown: 1\n"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		edit func(c *config.Config)
	}{
		{"zero interval", func(c *config.Config) { c.Control.Step.Interval = 0 }},
		{"bad movement", func(c *config.Config) { c.Simulation.Movement = "teleport" }},
		{"bad generator", func(c *config.Config) { c.Simulation.Generator = "magic" }},
		{"flow without lane", func(c *config.Config) {
			c.Simulation.Flows = []config.FlowSpawn{{Rate: 10}}
		}},
		{"no vehicle types", func(c *config.Config) { c.VehicleTypes = nil }},
		{"bad radius", func(c *config.Config) { c.Simulation.GoalMaxRadius = 1 }},
		{"bad signal policy", func(c *config.Config) { c.Junction.Policy = "adaptive" }},
		{"zero max repeat", func(c *config.Config) { c.Junction.MaxRepeat = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := config.Default()
			tc.edit(&c)
			assert.Error(t, c.Validate())
		})
	}
	c := config.Default()
	assert.NoError(t, c.Validate())
}

func TestVehicleTypeLookup(t *testing.T) {
	c := config.Default()
	vt, ok := c.VehicleType("")
	require.True(t, ok)
	assert.Equal(t, "car", vt.Name)
	_, ok = c.VehicleType("truck")
	assert.False(t, ok)
}
