// Package config loads the sidecar's settings from YAML with FFBOT_
// environment overrides layered on top of the built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ffbot/ffbot-core/executor"
	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
	"github.com/ffbot/ffbot-core/planner"
)

// EnvPrefix prefixes every environment override, e.g. FFBOT_SOCKET_PATH.
const EnvPrefix = "FFBOT"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	Socket   SocketConfig    `mapstructure:"socket" yaml:"socket"`
	Log      LogConfig       `mapstructure:"log" yaml:"log"`
	Nav      NavConfig       `mapstructure:"nav" yaml:"nav"`
	Planner  planner.Config  `mapstructure:"planner" yaml:"planner"`
	Executor executor.Config `mapstructure:"executor" yaml:"executor"`
	Outcome  OutcomeConfig   `mapstructure:"outcome" yaml:"outcome"`
	Data     DataConfig      `mapstructure:"data" yaml:"data"`
}

type SocketConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type NavConfig struct {
	CrouchPenalty float64 `mapstructure:"crouch_penalty" yaml:"crouch_penalty"`
	JumpPenalty   float64 `mapstructure:"jump_penalty" yaml:"jump_penalty"`
	DangerPenalty float64 `mapstructure:"danger_penalty" yaml:"danger_penalty"`
	// ThreatPerEnemy is the path cost a visible enemy paints on its area.
	ThreatPerEnemy float64 `mapstructure:"threat_per_enemy" yaml:"threat_per_enemy"`
}

func (n NavConfig) Costs() nav.CostConfig {
	return nav.CostConfig{
		CrouchPenalty: n.CrouchPenalty,
		JumpPenalty:   n.JumpPenalty,
		DangerPenalty: n.DangerPenalty,
	}
}

type OutcomeConfig struct {
	// JSONPath receives one finalized task log per line. Empty disables it.
	JSONPath      string        `mapstructure:"json_path" yaml:"json_path"`
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval"`
	// WebSocketAddr serves live task logs at /outcomes. Empty disables it.
	WebSocketAddr string `mapstructure:"websocket_addr" yaml:"websocket_addr"`
	BufferSize    int    `mapstructure:"buffer_size" yaml:"buffer_size"`
}

type DataConfig struct {
	MeshDir   string `mapstructure:"mesh_dir" yaml:"mesh_dir"`
	ClassFile string `mapstructure:"class_file" yaml:"class_file"`
}

func Default() Config {
	costs := nav.DefaultCosts()
	return Config{
		Socket: SocketConfig{Path: "/tmp/ffbot.sock"},
		Log:    LogConfig{Level: "info", Format: "text"},
		Nav: NavConfig{
			CrouchPenalty:  costs.CrouchPenalty,
			JumpPenalty:    costs.JumpPenalty,
			DangerPenalty:  costs.DangerPenalty,
			ThreatPerEnemy: model.DefaultThreatPerEnemy,
		},
		Planner:  planner.DefaultConfig(),
		Executor: executor.DefaultConfig(),
		Outcome: OutcomeConfig{
			FlushInterval: time.Second,
			BufferSize:    256,
		},
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// the file does not mention.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("socket.path", d.Socket.Path)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("nav.crouch_penalty", d.Nav.CrouchPenalty)
	v.SetDefault("nav.jump_penalty", d.Nav.JumpPenalty)
	v.SetDefault("nav.danger_penalty", d.Nav.DangerPenalty)
	v.SetDefault("nav.threat_per_enemy", d.Nav.ThreatPerEnemy)

	p := d.Planner
	v.SetDefault("planner.capture_base_priority", p.CaptureBasePriority)
	v.SetDefault("planner.defend_base_priority", p.DefendBasePriority)
	v.SetDefault("planner.critical_bonus", p.CriticalBonus)
	v.SetDefault("planner.distance_penalty", p.DistancePenalty)
	v.SetDefault("planner.priority_floor", p.PriorityFloor)
	v.SetDefault("planner.secure_duration", p.SecureDuration)
	v.SetDefault("planner.stand_duration", p.StandDuration)
	v.SetDefault("planner.hold_duration", p.HoldDuration)
	v.SetDefault("planner.ability_duration", p.AbilityDuration)
	v.SetDefault("planner.support_radius", p.SupportRadius)
	v.SetDefault("planner.doctrine_file", p.DoctrineFile)

	e := d.Executor
	v.SetDefault("executor.reach_radius", e.ReachRadius)
	v.SetDefault("executor.repath_tolerance_sqr", e.RepathToleranceSqr)
	v.SetDefault("executor.capture_radius", e.CaptureRadius)
	v.SetDefault("executor.search_radius", e.SearchRadius)
	v.SetDefault("executor.idle_log_interval", e.IdleLogInterval)

	v.SetDefault("outcome.json_path", d.Outcome.JSONPath)
	v.SetDefault("outcome.flush_interval", d.Outcome.FlushInterval)
	v.SetDefault("outcome.websocket_addr", d.Outcome.WebSocketAddr)
	v.SetDefault("outcome.buffer_size", d.Outcome.BufferSize)

	v.SetDefault("data.mesh_dir", d.Data.MeshDir)
	v.SetDefault("data.class_file", d.Data.ClassFile)
}
