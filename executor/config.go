package executor

type Config struct {
	// ReachRadius is how close the bot must get to a waypoint to consume it.
	ReachRadius float64 `mapstructure:"reach_radius" yaml:"reach_radius"`
	// RepathToleranceSqr is the squared distance a move target may drift
	// before the path is recomputed.
	RepathToleranceSqr float64 `mapstructure:"repath_tolerance_sqr" yaml:"repath_tolerance_sqr"`
	// CaptureRadius is used for points that do not report their own.
	CaptureRadius float64 `mapstructure:"capture_radius" yaml:"capture_radius"`
	// SearchRadius bounds the nearest-area lookup for positions. A value <= 0
	// is passed through to nav.Graph.FindNearestNodeID, which then searches
	// the whole mesh.
	SearchRadius    float64 `mapstructure:"search_radius" yaml:"search_radius"`
	IdleLogInterval int     `mapstructure:"idle_log_interval" yaml:"idle_log_interval"`
}

func DefaultConfig() Config {
	return Config{
		ReachRadius:        50,
		RepathToleranceSqr: 25,
		CaptureRadius:      128,
		SearchRadius:       1024,
		IdleLogInterval:    300,
	}
}
