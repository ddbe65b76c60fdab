package rules

import (
	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
	"github.com/ffbot/ffbot-core/task"
)

// TaskEnv describes one candidate task from the deciding bot's point of view
// and exposes helper methods callable from expr expressions.
type TaskEnv struct {
	Kind        task.HLTType
	TargetPos   nav.Vec3
	Origin      nav.Vec3
	Point       model.ControlPointInfo
	HasPoint    bool
	Class       string
	Health      float64
	Team        int
	CurrentTick uint64
	Enemies     []model.TrackedEntityInfo
	Allies      []model.TrackedEntityInfo
	Points      []model.ControlPointInfo
}

func (e TaskEnv) IsCapture() bool { return e.Kind == task.HLTCapturePoint }

func (e TaskEnv) IsDefend() bool { return e.Kind == task.HLTDefendPoint }

// Distance is the straight-line distance from the bot to the task target.
func (e TaskEnv) Distance() float64 { return e.Origin.Dist(e.TargetPos) }

func (e TaskEnv) Critical() bool { return e.HasPoint && e.Point.Critical }

func (e TaskEnv) PointContested() bool { return e.HasPoint && e.Point.Contested() }

func (e TaskEnv) HealthFraction() float64 { return e.Health }

func (e TaskEnv) ClassName() string { return e.Class }

func (e TaskEnv) Tick() int { return int(e.CurrentTick) }

// EnemiesNear counts living enemies within r units of the task target.
func (e TaskEnv) EnemiesNear(r int) int {
	return model.CountNear(e.Enemies, e.TargetPos, float64(r))
}

// AlliesNear counts living teammates within r units of the task target.
func (e TaskEnv) AlliesNear(r int) int {
	return model.CountNear(e.Allies, e.TargetPos, float64(r))
}

func (e TaskEnv) OwnedPoints() int {
	n := 0
	for _, cp := range e.Points {
		if cp.Owner == e.Team && e.Team != model.TeamNone {
			n++
		}
	}
	return n
}

// EnemyPoints counts points held by any team other than ours.
func (e TaskEnv) EnemyPoints() int {
	n := 0
	for _, cp := range e.Points {
		if cp.Owner != e.Team && cp.Owner != model.TeamNone {
			n++
		}
	}
	return n
}

// HasRole reports whether the bot's class fills the logical role.
func (e TaskEnv) HasRole(role string) bool {
	return classHasRole(e.Class, role)
}
