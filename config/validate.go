package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Validate reports every problem at once, wrapped in ErrInvalid.
func (c *Config) Validate() error {
	var problems []string
	bad := func(field, format string, args ...any) {
		problems = append(problems, field+": "+fmt.Sprintf(format, args...))
	}
	nonNegative := func(field string, v float64) {
		if v < 0 {
			bad(field, "must not be negative, got %g", v)
		}
	}

	if strings.TrimSpace(c.Socket.Path) == "" {
		bad("socket.path", "must not be empty")
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		bad("log.level", "%v", err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		bad("log.format", "must be text or json, got %q", c.Log.Format)
	}

	nonNegative("nav.crouch_penalty", c.Nav.CrouchPenalty)
	nonNegative("nav.jump_penalty", c.Nav.JumpPenalty)
	nonNegative("nav.danger_penalty", c.Nav.DangerPenalty)
	nonNegative("nav.threat_per_enemy", c.Nav.ThreatPerEnemy)

	nonNegative("planner.capture_base_priority", c.Planner.CaptureBasePriority)
	nonNegative("planner.defend_base_priority", c.Planner.DefendBasePriority)
	nonNegative("planner.critical_bonus", c.Planner.CriticalBonus)
	nonNegative("planner.distance_penalty", c.Planner.DistancePenalty)
	nonNegative("planner.support_radius", c.Planner.SupportRadius)
	nonNegative("planner.secure_duration", c.Planner.SecureDuration.Seconds())
	nonNegative("planner.stand_duration", c.Planner.StandDuration.Seconds())
	nonNegative("planner.hold_duration", c.Planner.HoldDuration.Seconds())
	nonNegative("planner.ability_duration", c.Planner.AbilityDuration.Seconds())

	nonNegative("executor.reach_radius", c.Executor.ReachRadius)
	nonNegative("executor.repath_tolerance_sqr", c.Executor.RepathToleranceSqr)
	nonNegative("executor.capture_radius", c.Executor.CaptureRadius)
	nonNegative("executor.search_radius", c.Executor.SearchRadius)
	if c.Executor.IdleLogInterval < 0 {
		bad("executor.idle_log_interval", "must not be negative, got %d", c.Executor.IdleLogInterval)
	}

	if c.Outcome.BufferSize < 0 {
		bad("outcome.buffer_size", "must not be negative, got %d", c.Outcome.BufferSize)
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// ParseLevel maps a config level name onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}
