package rules

import (
	"github.com/expr-lang/expr/vm"
)

// Rule is the atomic unit of planner tuning: a condition → priority bonus
// pair evaluated against each candidate task. The engine evaluates rules by
// priority and uses Category + Exclusive so that only the strongest of a
// family of competing adjustments applies.
type Rule struct {
	Name         string      `yaml:"name"`
	Priority     int         `yaml:"priority"`  // higher = evaluated first
	Category     string      `yaml:"category"`  // grouping for exclusive semantics
	Exclusive    bool        `yaml:"exclusive"` // if true, blocks lower-priority rules in same category
	ConditionSrc string      `yaml:"when"`      // expr source
	Bonus        float64     `yaml:"bonus"`     // added to the task priority; may be negative
	program      *vm.Program // compiled bytecode
}
