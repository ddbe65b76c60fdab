package rules

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Doctrine is a team-wide posture. Weights are 0.0–1.0; the compiler maps
// them to concrete rule thresholds and bonuses.
type Doctrine struct {
	Name             string  `json:"name" yaml:"name"`
	Rationale        string  `json:"rationale,omitempty" yaml:"rationale,omitempty"`
	Aggression       float64 `json:"aggression" yaml:"aggression"`
	DefenseBias      float64 `json:"defense_bias" yaml:"defense_bias"`
	ObjectiveFocus   float64 `json:"objective_focus" yaml:"objective_focus"`
	SelfPreservation float64 `json:"self_preservation" yaml:"self_preservation"`
	// ThreatRadius is how close to an objective an enemy must be to count.
	ThreatRadius int `json:"threat_radius" yaml:"threat_radius"`
}

// DefaultDoctrine returns a balanced baseline doctrine.
func DefaultDoctrine() Doctrine {
	return Doctrine{
		Name:             "Balanced",
		Rationale:        "Default balanced posture",
		Aggression:       0.5,
		DefenseBias:      0.5,
		ObjectiveFocus:   0.5,
		SelfPreservation: 0.5,
		ThreatRadius:     800,
	}
}

// Validate clamps all weights to their valid ranges.
func (d *Doctrine) Validate() {
	d.Aggression = clamp(d.Aggression, 0, 1)
	d.DefenseBias = clamp(d.DefenseBias, 0, 1)
	d.ObjectiveFocus = clamp(d.ObjectiveFocus, 0, 1)
	d.SelfPreservation = clamp(d.SelfPreservation, 0, 1)
	if d.ThreatRadius == 0 {
		d.ThreatRadius = 800
	}
	d.ThreatRadius = clampInt(d.ThreatRadius, 128, 4096)
}

// LoadDoctrine reads a doctrine from a YAML file and clamps it.
func LoadDoctrine(path string) (Doctrine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Doctrine{}, fmt.Errorf("rules: reading doctrine %s: %w", path, err)
	}
	d := DefaultDoctrine()
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Doctrine{}, fmt.Errorf("rules: parsing doctrine %s: %w", path, err)
	}
	d.Validate()
	return d, nil
}

// clampInt restricts v to [min, max].
func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// lerp linearly interpolates between min and max by t (0–1), returning an int.
func lerp(min, max int, t float64) int {
	return min + int(math.Round(float64(max-min)*t))
}

// lerpf linearly interpolates between min and max by t (0–1), returning a float64.
func lerpf(min, max, t float64) float64 {
	return min + (max-min)*t
}

// clamp restricts v to [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
