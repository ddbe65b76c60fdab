// Package executor runs a bot's current subtask each tick and turns it into
// an Intent, reporting completion and failure back to the planner.
package executor

import (
	"log/slog"
	"time"

	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
	"github.com/ffbot/ffbot-core/planner"
	"github.com/ffbot/ffbot-core/task"
)

const (
	reasonNoPath      = "no path"
	reasonTargetLost  = "target lost"
	reasonUnsupported = "unsupported subtask"
)

type Executor struct {
	botID    uint32
	planner  *planner.Planner
	kb       *model.KnowledgeBase
	movement *Movement
	combat   CombatBehavior
	cfg      Config
	clock    planner.Clock

	idleTicks int
}

// New wires one bot's executor. A nil combat behavior selects IdleCombat and
// a nil clock reads wall time.
func New(p *planner.Planner, kb *model.KnowledgeBase, m *Movement, combat CombatBehavior, cfg Config, clock planner.Clock) *Executor {
	if combat == nil {
		combat = IdleCombat{}
	}
	if clock == nil {
		clock = planner.ClockFunc(time.Now)
	}
	return &Executor{
		botID:    p.BotID(),
		planner:  p,
		kb:       kb,
		movement: m,
		combat:   combat,
		cfg:      cfg,
		clock:    clock,
	}
}

func (e *Executor) Planner() *planner.Planner { return e.planner }

func (e *Executor) Movement() *Movement { return e.movement }

// Tick plans and executes one frame for the bot. Dead bots and bots with
// nothing to do get an idle intent.
func (e *Executor) Tick(owner *model.BotState) Intent {
	intent := Intent{BotID: e.botID}
	if owner == nil || !owner.Alive {
		e.movement.Clear()
		return intent
	}

	e.planner.SetOwner(owner)
	e.planner.EvaluateAndSelectTask()

	st := e.planner.GetCurrentSubTaskMutable()
	if st == nil || st.Completed {
		e.idle()
		return intent
	}
	e.idleTicks = 0

	ongoing, reason, out := e.ExecuteSubTask(st, owner)
	out.BotID = e.botID
	if h := e.planner.GetCurrentHighLevelTask(); h != nil {
		out.Task = h.Type.String()
	}
	out.SubTask = st.Type.String()

	if !ongoing {
		e.movement.Clear()
		if st.Completed {
			e.planner.OnSubTaskOutcomeReported(true, "")
		} else {
			e.planner.OnSubTaskOutcomeReported(false, reason)
		}
	}
	return out
}

func (e *Executor) idle() {
	e.movement.Clear()
	e.idleTicks++
	if e.cfg.IdleLogInterval > 0 && e.idleTicks%e.cfg.IdleLogInterval == 0 {
		slog.Info("bot idle", "bot", e.botID, "ticks", e.idleTicks)
	}
}

// ExecuteSubTask performs one frame of st. ongoing is false when the step
// is finished: completed steps have Completed set, anything else failed for
// the returned reason.
func (e *Executor) ExecuteSubTask(st *task.SubTask, owner *model.BotState) (ongoing bool, reason string, intent Intent) {
	switch st.Type {
	case task.SubTaskMoveToPosition:
		return e.moveTo(st, owner, st.TargetPos)

	case task.SubTaskMoveToEntity:
		target, ok := e.entity(st.Target)
		if !ok {
			return false, reasonTargetLost, intent
		}
		return e.moveTo(st, owner, target.Position)

	case task.SubTaskAttackTarget,
		task.SubTaskUseAbilityOnTarget,
		task.SubTaskUseAbilityAtPosition,
		task.SubTaskHealAlly,
		task.SubTaskPlaceSentry,
		task.SubTaskDeployDispenser,
		task.SubTaskSabotage:
		ongoing, intent = e.combat.Execute(st, owner, e.kb)
		if !ongoing || st.Expired(e.clock.Now()) {
			st.Completed = true
			return false, "", intent
		}
		return true, "", intent

	case task.SubTaskCaptureObjective:
		inside, ok, out := e.approach(owner, st.TargetPos)
		if !ok {
			return false, reasonNoPath, out
		}
		if inside {
			st.Completed = true
			return false, "", out
		}
		return true, "", out

	// Standing only ends on its time box. A capture is confirmed by the
	// planner's ownership check before the step runs, which finalizes the
	// whole task.
	case task.SubTaskStandOnPoint:
		inside, ok, out := e.approach(owner, st.TargetPos)
		if !ok {
			return false, reasonNoPath, out
		}
		if inside && st.Expired(e.clock.Now()) {
			st.Completed = true
			return false, "", out
		}
		return true, "", out

	case task.SubTaskDefendPosition, task.SubTaskHoldPosition, task.SubTaskSecureArea:
		inside, ok, out := e.approach(owner, st.TargetPos)
		if !ok {
			return false, reasonNoPath, out
		}
		if inside && st.Expired(e.clock.Now()) {
			st.Completed = true
			return false, "", out
		}
		return true, "", out

	default:
		slog.Warn("unsupported subtask", "bot", e.botID, "subtask", st.Type)
		return false, reasonUnsupported, intent
	}
}

// moveTo walks toward target and completes st on arrival.
func (e *Executor) moveTo(st *task.SubTask, owner *model.BotState, target nav.Vec3) (bool, string, Intent) {
	var intent Intent
	if e.movement.NeedsRepath(target, e.cfg.RepathToleranceSqr) {
		if !e.movement.MoveTo(owner.Position, target) {
			slog.Debug("no path", "bot", e.botID, "from", owner.Position, "to", target)
			return false, reasonNoPath, intent
		}
		slog.Debug("path found", "bot", e.botID, "areas", len(e.movement.Path()))
	}
	wp, arrived := e.movement.FollowPath(owner.Position)
	if arrived {
		st.Completed = true
		return false, "", intent
	}
	steer(&intent, wp)
	return true, "", intent
}

// approach moves the bot until it is inside the capture radius around
// target, then holds there looking at it. ok is false when no path exists.
func (e *Executor) approach(owner *model.BotState, target nav.Vec3) (inside, ok bool, intent Intent) {
	radius := e.captureRadius()
	if owner.Position.DistSqr(target) <= radius*radius {
		e.movement.Clear()
		intent.Look = vecPtr(target)
		return true, true, intent
	}
	if e.movement.NeedsRepath(target, e.cfg.RepathToleranceSqr) {
		if !e.movement.MoveTo(owner.Position, target) {
			return false, false, intent
		}
	}
	wp, arrived := e.movement.FollowPath(owner.Position)
	if arrived {
		// The reach radius can exceed a small capture radius, so close the
		// last stretch in a straight line.
		intent.Move = vecPtr(target)
		intent.Look = vecPtr(target)
		return false, true, intent
	}
	steer(&intent, wp)
	return false, true, intent
}

func steer(intent *Intent, wp Waypoint) {
	intent.Move = vecPtr(wp.Pos)
	intent.Crouch = wp.Attrs.Has(nav.AttrCrouch)
	intent.Jump = wp.Attrs.Has(nav.AttrJump)
}

func (e *Executor) entity(ref task.EntityRef) (model.TrackedEntityInfo, bool) {
	if e.kb == nil {
		return model.TrackedEntityInfo{}, false
	}
	ent, ok := e.kb.Entity(ref)
	if !ok || !ent.Alive {
		return model.TrackedEntityInfo{}, false
	}
	return ent, true
}

func (e *Executor) currentPoint() (model.ControlPointInfo, bool) {
	h := e.planner.GetCurrentHighLevelTask()
	if h == nil || h.PointID == 0 || e.kb == nil {
		return model.ControlPointInfo{}, false
	}
	for _, cp := range e.kb.GetControlPoints() {
		if cp.ID == h.PointID {
			return cp, true
		}
	}
	return model.ControlPointInfo{}, false
}

func (e *Executor) captureRadius() float64 {
	if cp, ok := e.currentPoint(); ok && cp.CaptureRadius > 0 {
		return cp.CaptureRadius
	}
	return e.cfg.CaptureRadius
}

