package rules

import "fmt"

// CompileDoctrine generates a complete rule set from a doctrine's weights.
// All conditions are built via fmt.Sprintf with interpolated values so the
// compiler never generates invalid expr.
func CompileDoctrine(d Doctrine) []*Rule {
	d.Validate()
	r := d.ThreatRadius
	var rules []*Rule

	// --- Threat (exclusive: only the strongest penalty applies) ---

	rules = append(rules, &Rule{
		Name:         "outnumbered",
		Priority:     950,
		Category:     "threat",
		Exclusive:    true,
		ConditionSrc: fmt.Sprintf(`IsCapture() && EnemiesNear(%d) > AlliesNear(%d) + %d`, r, r, lerp(0, 3, d.Aggression)),
		Bonus:        -lerpf(5, 50, d.SelfPreservation),
	})

	rules = append(rules, &Rule{
		Name:         "hurt-and-far",
		Priority:     900,
		Category:     "threat",
		Exclusive:    true,
		ConditionSrc: fmt.Sprintf(`HealthFraction() < %.2f && Distance() > %.0f`, lerpf(0.2, 0.6, d.SelfPreservation), lerpf(3000, 1000, d.SelfPreservation)),
		Bonus:        -lerpf(5, 40, d.SelfPreservation),
	})

	// --- Defense ---

	rules = append(rules, &Rule{
		Name:         "defend-contested",
		Priority:     850,
		Category:     "defense",
		Exclusive:    true,
		ConditionSrc: `IsDefend() && PointContested()`,
		Bonus:        lerpf(10, 60, d.DefenseBias),
	})

	rules = append(rules, &Rule{
		Name:         "defend-threatened",
		Priority:     840,
		Category:     "defense",
		Exclusive:    true,
		ConditionSrc: fmt.Sprintf(`IsDefend() && EnemiesNear(%d) > 0`, r),
		Bonus:        lerpf(5, 30, d.DefenseBias),
	})

	// --- Objective push ---

	rules = append(rules, &Rule{
		Name:         "push-critical",
		Priority:     800,
		Category:     "objective",
		ConditionSrc: `IsCapture() && Critical()`,
		Bonus:        lerpf(0, 40, d.ObjectiveFocus),
	})

	rules = append(rules, &Rule{
		Name:         "aggressive-capture",
		Priority:     700,
		Category:     "objective",
		ConditionSrc: fmt.Sprintf(`IsCapture() && EnemiesNear(%d) <= AlliesNear(%d)`, r, r),
		Bonus:        lerpf(-10, 30, d.Aggression),
	})

	rules = append(rules, &Rule{
		Name:         "last-point",
		Priority:     650,
		Category:     "objective",
		ConditionSrc: `IsDefend() && OwnedPoints() == 1 && EnemyPoints() > 0`,
		Bonus:        lerpf(0, 25, d.DefenseBias),
	})

	// --- Class roles ---

	rules = append(rules, &Rule{
		Name:         "builder-holds",
		Priority:     500,
		Category:     "class",
		ConditionSrc: fmt.Sprintf(`IsDefend() && HasRole(%q)`, RoleBuilder),
		Bonus:        lerpf(5, 25, d.DefenseBias),
	})

	rules = append(rules, &Rule{
		Name:         "healer-follows-team",
		Priority:     490,
		Category:     "class",
		ConditionSrc: fmt.Sprintf(`IsCapture() && HasRole(%q) && AlliesNear(%d) > 0`, RoleHealer, r),
		Bonus:        15,
	})

	rules = append(rules, &Rule{
		Name:         "skirmisher-flank",
		Priority:     480,
		Category:     "class",
		ConditionSrc: fmt.Sprintf(`IsCapture() && HasRole(%q) && !PointContested()`, RoleSkirmisher),
		Bonus:        lerpf(0, 20, d.Aggression),
	})

	return rules
}

// DefaultRules is the rule set compiled from DefaultDoctrine.
func DefaultRules() []*Rule {
	return CompileDoctrine(DefaultDoctrine())
}
