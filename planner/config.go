package planner

import "time"

// Config tunes objective scoring and the time boxes of the steps the
// planner emits.
type Config struct {
	CaptureBasePriority float64 `mapstructure:"capture_base_priority" yaml:"capture_base_priority"`
	DefendBasePriority  float64 `mapstructure:"defend_base_priority" yaml:"defend_base_priority"`
	CriticalBonus       float64 `mapstructure:"critical_bonus" yaml:"critical_bonus"`
	// DistancePenalty is subtracted per world unit between bot and target.
	DistancePenalty float64 `mapstructure:"distance_penalty" yaml:"distance_penalty"`
	PriorityFloor   float64 `mapstructure:"priority_floor" yaml:"priority_floor"`

	SecureDuration  time.Duration `mapstructure:"secure_duration" yaml:"secure_duration"`
	StandDuration   time.Duration `mapstructure:"stand_duration" yaml:"stand_duration"`
	HoldDuration    time.Duration `mapstructure:"hold_duration" yaml:"hold_duration"`
	AbilityDuration time.Duration `mapstructure:"ability_duration" yaml:"ability_duration"`

	// SupportRadius is how close a teammate must be to an objective for
	// support classes to plan around them.
	SupportRadius float64 `mapstructure:"support_radius" yaml:"support_radius"`
	DoctrineFile  string  `mapstructure:"doctrine_file" yaml:"doctrine_file"`
}

func DefaultConfig() Config {
	return Config{
		CaptureBasePriority: 100,
		DefendBasePriority:  80,
		CriticalBonus:       50,
		DistancePenalty:     0.01,
		PriorityFloor:       1,
		SecureDuration:      3 * time.Second,
		StandDuration:       20 * time.Second,
		HoldDuration:        15 * time.Second,
		AbilityDuration:     4 * time.Second,
		SupportRadius:       800,
	}
}
