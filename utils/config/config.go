package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v2"
)

// Default 默认配置
// 说明：Load会先填入默认值再用YAML覆盖，因此配置文件只需写出与默认不同的部分
func Default() Config {
	return Config{
		Control: Control{Step: ControlStep{Start: 0, Total: 3600, Interval: 0.1}},
		Simulation: Simulation{
			Seed:          Seed{Value: 42},
			Movement:      MovementIDM,
			Generator:     GeneratorBulk,
			Vehicles:      100,
			Bulk:          Bulk{MaxTicks: 600, AttemptsPerTick: 20},
			GoalMinRadius: 200,
			GoalMaxRadius: 2000,
		},
		IDM: IDM{
			MinGap:       2,
			Headway:      1.5,
			MaxAcc:       1.5,
			ComfortDecel: 2,
			HardDecel:    8,
			Delta:        4,
		},
		LaneChange: LaneChange{
			PrepDistance:        60,
			PrepDistancePerLane: 40,
			MinPrepTime:         1,
			CrossDuration:       3,
			AlignDuration:       0.5,
			Cooldown:            3,
			SafeHeadway:         1,
			SafeDistance:        2,
			SafeMinGap:          3,
			Politeness:          0.5,
			Discretionary:       true,
		},
		VehicleTypes: []VehicleType{
			{Name: "car", Length: 4.5, Width: 1.8, DesiredSpeed: 20},
		},
		Junction: Junction{Signals: true, Policy: SignalFixed, Green: 30, Yellow: 3, AllRed: 2, MaxRepeat: 3},
		Output:   Output{Interval: 10},
		Debug:    Debug{Lane: -1, Agent: -1},
	}
}

// Load 解析YAML配置并校验
func Load(data []byte) (Config, error) {
	c := Default()
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return c, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate 检查配置合法性
func (c *Config) Validate() error {
	var errs []error
	if c.Control.Step.Interval <= 0 {
		errs = append(errs, fmt.Errorf("control.step.interval must be positive, got %v", c.Control.Step.Interval))
	}
	if c.Control.Step.Total < 0 {
		errs = append(errs, fmt.Errorf("control.step.total must not be negative, got %v", c.Control.Step.Total))
	}
	switch c.Simulation.Movement {
	case MovementIDM, MovementLegacy:
	default:
		errs = append(errs, fmt.Errorf("unknown simulation.movement %q", c.Simulation.Movement))
	}
	switch c.Simulation.Generator {
	case GeneratorBulk, GeneratorFlow:
	default:
		errs = append(errs, fmt.Errorf("unknown simulation.generator %q", c.Simulation.Generator))
	}
	if c.Simulation.Vehicles < 0 {
		errs = append(errs, fmt.Errorf("simulation.vehicles must not be negative"))
	}
	if c.Simulation.GoalMinRadius < 0 || c.Simulation.GoalMaxRadius < c.Simulation.GoalMinRadius {
		errs = append(errs, fmt.Errorf("bad goal radius range [%v, %v]", c.Simulation.GoalMinRadius, c.Simulation.GoalMaxRadius))
	}
	for i, f := range c.Simulation.Flows {
		if f.Rate < 0 {
			errs = append(errs, fmt.Errorf("simulation.flows[%d].rate must not be negative", i))
		}
		if f.Lane == nil && (f.Lat == nil || f.Lon == nil) {
			errs = append(errs, fmt.Errorf("simulation.flows[%d] needs lane or lat/lon", i))
		}
	}
	if c.IDM.MaxAcc <= 0 || c.IDM.ComfortDecel <= 0 || c.IDM.HardDecel <= 0 {
		errs = append(errs, fmt.Errorf("idm accelerations must be positive"))
	}
	switch c.Junction.Policy {
	case SignalFixed, SignalMaxPressure:
	default:
		errs = append(errs, fmt.Errorf("unknown junction.policy %q", c.Junction.Policy))
	}
	if c.Junction.Signals && (c.Junction.Green <= 0 || c.Junction.Yellow <= 0) {
		errs = append(errs, fmt.Errorf("junction green and yellow must be positive"))
	}
	if c.Junction.AllRed < 0 || c.Junction.MaxRepeat < 1 {
		errs = append(errs, fmt.Errorf("junction.all_red must not be negative and junction.max_repeat must be at least 1"))
	}
	if c.LaneChange.CrossDuration <= 0 || c.LaneChange.MinPrepTime < 0 || c.LaneChange.AlignDuration < 0 {
		errs = append(errs, fmt.Errorf("lane_change durations must not be negative and cross_duration must be positive"))
	}
	switch c.Debug.Phase {
	case "", "compute", "commit", "lane_change", "hop":
	default:
		errs = append(errs, fmt.Errorf("unknown debug.phase %q", c.Debug.Phase))
	}
	if c.Output.Interval <= 0 {
		errs = append(errs, fmt.Errorf("output.interval must be positive"))
	}
	if len(c.VehicleTypes) == 0 {
		errs = append(errs, fmt.Errorf("at least one vehicle type is required"))
	}
	for _, vt := range c.VehicleTypes {
		if vt.Length <= 0 || vt.DesiredSpeed <= 0 {
			errs = append(errs, fmt.Errorf("vehicle type %q needs positive length and desired speed", vt.Name))
		}
	}
	return errors.Join(errs...)
}

// VehicleType 按名称查找车型，名称为空时返回第一个
func (c *Config) VehicleType(name string) (VehicleType, bool) {
	if name == "" && len(c.VehicleTypes) > 0 {
		return c.VehicleTypes[0], true
	}
	for _, vt := range c.VehicleTypes {
		if vt.Name == name {
			return vt, true
		}
	}
	return VehicleType{}, false
}
