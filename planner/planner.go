// Package planner picks a bot's high-level objective, breaks it into steps
// and drives the step cursor as the executor reports progress. Each bot owns
// one Planner; a Planner is not safe for concurrent use.
package planner

import (
	"log/slog"
	"sort"
	"time"

	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
	"github.com/ffbot/ffbot-core/outcome"
	"github.com/ffbot/ffbot-core/rules"
	"github.com/ffbot/ffbot-core/task"
)

type Clock interface {
	Now() time.Time
}

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time {
	return f()
}

type Planner struct {
	botID uint32
	kb    *model.KnowledgeBase
	store outcome.Store
	rules *rules.Engine
	cfg   Config
	clock Clock

	owner      *model.BotState
	current    task.HighLevelTask
	candidates []task.HighLevelTask
	log        *task.TaskOutcomeLog
}

// New builds a planner for one bot. A nil store discards outcome logs, a
// nil engine leaves priorities untuned and a nil clock reads wall time.
func New(botID uint32, kb *model.KnowledgeBase, store outcome.Store, engine *rules.Engine, cfg Config, clock Clock) *Planner {
	if store == nil {
		store = outcome.NopStore()
	}
	if clock == nil {
		clock = ClockFunc(time.Now)
	}
	p := &Planner{
		botID: botID,
		kb:    kb,
		store: store,
		rules: engine,
		cfg:   cfg,
		clock: clock,
	}
	p.current.Reset()
	return p
}

func (p *Planner) BotID() uint32 { return p.botID }

// SetOwner attaches the bot's body for this tick. A nil owner idles the planner.
func (p *Planner) SetOwner(owner *model.BotState) { p.owner = owner }

func (p *Planner) Owner() *model.BotState { return p.owner }

// EvaluateAndSelectTask runs once per tick. It leaves a running step alone,
// finalizes an exhausted plan as a success and, when the bot has no
// objective, generates, scores and decomposes a new one.
func (p *Planner) EvaluateAndSelectTask() {
	if p.kb == nil || p.owner == nil {
		return
	}
	now := p.clock.Now()

	if p.current.Type != task.HLTNone {
		if !p.current.IsValid() {
			p.finalize(task.OutcomeFailure, "invalid task", now)
		} else if p.checkObjective(now) {
			st := p.current.CurrentSubTaskMutable()
			if st != nil && st.Completed {
				p.completeCurrent(now)
				st = p.current.CurrentSubTaskMutable()
			}
			if st != nil {
				return
			}
			if p.current.Cursor() < 0 {
				p.current.StartFirstSubTask(now)
				return
			}
			p.finalize(task.OutcomeSuccess, "", now)
		}
	}

	p.selectNew(now)
}

// checkObjective finalizes the current task when the world has made it moot.
// It reports whether the task is still worth pursuing.
func (p *Planner) checkObjective(now time.Time) bool {
	if p.current.PointID == 0 {
		return true
	}
	cp, ok := p.findPoint(p.current.PointID)
	switch p.current.Type {
	case task.HLTCapturePoint:
		switch {
		case ok && cp.Owner == p.kb.Team:
			p.finalize(task.OutcomeSuccess, "point captured", now)
			return false
		case !ok || cp.Locked:
			return p.interrupt("point unavailable", now)
		}
	case task.HLTDefendPoint:
		switch {
		case !ok:
			return p.interrupt("point unavailable", now)
		case cp.Owner != p.kb.Team:
			p.finalize(task.OutcomeFailure, "point lost", now)
			return false
		}
	}
	return true
}

// interrupt abandons the task unless the running step is uninterruptible and
// still inside its time box. It reports whether the task carries on.
func (p *Planner) interrupt(reason string, now time.Time) bool {
	if st := p.current.CurrentSubTaskMutable(); st != nil && !st.Interruptible && !st.Completed && !st.Expired(now) {
		return true
	}
	p.finalizeInterrupted(reason, now)
	return false
}

func (p *Planner) finalizeInterrupted(reason string, now time.Time) {
	if p.current.CompletedCount() > 0 {
		p.finalize(task.OutcomePartialSuccess, reason, now)
		return
	}
	p.finalize(task.OutcomeAborted, reason, now)
}

func (p *Planner) findPoint(id int) (model.ControlPointInfo, bool) {
	for _, cp := range p.kb.GetControlPoints() {
		if cp.ID == id {
			return cp, true
		}
	}
	return model.ControlPointInfo{}, false
}

func (p *Planner) selectNew(now time.Time) {
	p.candidates = p.GenerateAvailableTasks()
	if len(p.candidates) == 0 {
		return
	}
	p.PrioritizeTasks(p.candidates)
	chosen, ok := p.SelectTaskFromList(p.candidates)
	if !ok {
		return
	}
	p.current = chosen
	p.log = task.NewTaskOutcomeLog(p.botID, &p.current, p.CreateGameStateSnapshot(), now)

	if !p.DecomposeTask(&p.current) {
		slog.Warn("task produced no subtasks", "bot", p.botID, "task", p.current.Type)
		p.finalize(task.OutcomeFailure, "decomposition produced no subtasks", now)
		return
	}
	p.current.StartFirstSubTask(now)
	slog.Debug("task selected",
		"bot", p.botID,
		"task", p.current.Type,
		"priority", p.current.Priority,
		"point", p.current.PointID,
		"steps", len(p.current.SubTasks),
		"candidates", len(p.candidates),
	)
}

// GenerateAvailableTasks emits one task per control point: DEFEND for points
// we own and CAPTURE for every other unlocked point. Without a knowledge base
// or owner the pool is empty.
func (p *Planner) GenerateAvailableTasks() []task.HighLevelTask {
	if p.kb == nil || p.owner == nil {
		return nil
	}
	points := p.kb.GetControlPoints()
	out := make([]task.HighLevelTask, 0, len(points))
	for _, cp := range points {
		var h task.HighLevelTask
		switch {
		case cp.Owner == p.kb.Team:
			h = task.NewHighLevelTask(task.HLTDefendPoint, p.CalculateDefensePriority(cp), cp.Position, task.EntityRef{})
		case !cp.Locked:
			h = task.NewHighLevelTask(task.HLTCapturePoint, p.CalculateCapturePriority(cp), cp.Position, task.EntityRef{})
		default:
			continue
		}
		h.PointID = cp.ID
		out = append(out, h)
	}
	return out
}

// PrioritizeTasks sorts by descending priority, keeping generation order
// among equals.
func (p *Planner) PrioritizeTasks(tasks []task.HighLevelTask) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority > tasks[j].Priority
	})
}

// SelectTaskFromList takes the head of an already prioritized list.
func (p *Planner) SelectTaskFromList(tasks []task.HighLevelTask) (task.HighLevelTask, bool) {
	if len(tasks) == 0 {
		return task.HighLevelTask{}, false
	}
	return tasks[0], true
}

func (p *Planner) CalculateCapturePriority(cp model.ControlPointInfo) float64 {
	return p.score(task.HLTCapturePoint, p.cfg.CaptureBasePriority, cp)
}

func (p *Planner) CalculateDefensePriority(cp model.ControlPointInfo) float64 {
	return p.score(task.HLTDefendPoint, p.cfg.DefendBasePriority, cp)
}

func (p *Planner) score(kind task.HLTType, base float64, cp model.ControlPointInfo) float64 {
	priority := base
	if cp.Critical {
		priority += p.cfg.CriticalBonus
	}
	if p.owner != nil {
		priority -= p.owner.Position.Dist(cp.Position) * p.cfg.DistancePenalty
	}
	priority += p.rules.Score(p.taskEnv(kind, cp))
	if priority < p.cfg.PriorityFloor {
		priority = p.cfg.PriorityFloor
	}
	return priority
}

func (p *Planner) taskEnv(kind task.HLTType, cp model.ControlPointInfo) rules.TaskEnv {
	env := rules.TaskEnv{
		Kind:      kind,
		TargetPos: cp.Position,
		Point:     cp,
		HasPoint:  true,
	}
	if p.kb != nil {
		env.Team = p.kb.Team
		env.CurrentTick = p.kb.Tick()
		env.Enemies = p.kb.GetTrackedEnemies()
		env.Allies = p.kb.GetTrackedAllies()
		env.Points = p.kb.GetControlPoints()
	}
	if p.owner != nil {
		env.Origin = p.owner.Position
		env.Health = p.owner.HealthFraction()
		if p.kb != nil {
			if c, ok := p.kb.GetClassConfigByID(p.owner.ClassID); ok {
				env.Class = c.Name
			}
		}
	}
	return env
}

// DecomposeTask fills in the step list for h. It returns false when the
// task type has no plan.
func (p *Planner) DecomposeTask(h *task.HighLevelTask) bool {
	h.SubTasks = h.SubTasks[:0]
	step := func(typ task.SubTaskType, d time.Duration) {
		h.SubTasks = append(h.SubTasks, task.SubTask{Type: typ, TargetPos: h.TargetPos, Duration: d, Interruptible: true})
	}

	switch h.Type {
	case task.HLTCapturePoint:
		step(task.SubTaskMoveToPosition, 0)
		step(task.SubTaskSecureArea, p.cfg.SecureDuration)
		if ally, ok := p.supportTarget(h.TargetPos); ok {
			step(task.SubTaskHealAlly, p.cfg.AbilityDuration)
			h.SubTasks[len(h.SubTasks)-1].Target = ally
		}
		step(task.SubTaskStandOnPoint, p.cfg.StandDuration)
		h.SubTasks[len(h.SubTasks)-1].Interruptible = false
	case task.HLTDefendPoint:
		step(task.SubTaskMoveToPosition, 0)
		step(task.SubTaskSecureArea, p.cfg.SecureDuration)
		if p.ownerClass() == model.ClassEngineer {
			step(task.SubTaskPlaceSentry, p.cfg.AbilityDuration)
		}
		step(task.SubTaskHoldPosition, p.cfg.HoldDuration)
	}
	return len(h.SubTasks) > 0
}

func (p *Planner) ownerClass() int {
	if p.owner == nil {
		return 0
	}
	return p.owner.ClassID
}

// supportTarget picks the teammate closest to pos for a medic to tend, if
// one is within the support radius.
func (p *Planner) supportTarget(pos nav.Vec3) (task.EntityRef, bool) {
	if p.ownerClass() != model.ClassMedic || p.kb == nil {
		return task.EntityRef{}, false
	}
	best := task.EntityRef{}
	bestDist := p.cfg.SupportRadius * p.cfg.SupportRadius
	for _, a := range p.kb.GetTrackedAllies() {
		if a.ID == p.owner.ID {
			continue
		}
		if d := a.Position.DistSqr(pos); d <= bestDist {
			best, bestDist = task.EntityRef{ID: a.ID}, d
		}
	}
	return best, best.Valid()
}

// OnSubTaskOutcomeReported is the executor's verdict on the current step.
// Success advances the cursor; failure abandons the whole task.
func (p *Planner) OnSubTaskOutcomeReported(success bool, reason string) {
	now := p.clock.Now()
	st := p.current.CurrentSubTaskMutable()
	if st == nil {
		return
	}
	if success {
		st.Completed = true
		p.completeCurrent(now)
		return
	}
	if p.log != nil {
		p.log.AppendSubTask(p.current.Cursor(), st, task.OutcomeFailure, reason, now)
	}
	slog.Debug("subtask failed", "bot", p.botID, "subtask", st.Type, "reason", reason)
	p.finalize(task.OutcomeFailure, reason, now)
}

func (p *Planner) completeCurrent(now time.Time) {
	st := p.current.CurrentSubTaskMutable()
	if st == nil {
		return
	}
	if p.log != nil {
		p.log.AppendSubTask(p.current.Cursor(), st, task.OutcomeSuccess, "", now)
	}
	prev := st.Type
	if p.current.AdvanceToNextSubTask(now) {
		next, _ := p.current.CurrentSubTask()
		slog.Debug("subtask advanced", "bot", p.botID, "from", prev, "to", next.Type)
	}
}

// OnBotKilled aborts whatever the bot was doing.
func (p *Planner) OnBotKilled() {
	if p.current.Type == task.HLTNone {
		return
	}
	now := p.clock.Now()
	if st := p.current.CurrentSubTaskMutable(); st != nil && p.log != nil {
		p.log.AppendSubTask(p.current.Cursor(), st, task.OutcomeAborted, "bot killed", now)
	}
	p.finalize(task.OutcomeAborted, "bot killed", now)
}

func (p *Planner) finalize(o task.Outcome, reason string, now time.Time) {
	score := finalScore(o, &p.current)
	if p.log != nil {
		p.log.Finalize(o, score, reason, p.CreateGameStateSnapshot(), now)
		p.store.StoreTaskLog(*p.log)
		p.log = nil
	}
	slog.Info("task finalized",
		"bot", p.botID,
		"task", p.current.Type,
		"outcome", o,
		"score", score,
		"reason", reason,
	)
	p.current.Reset()
}

func finalScore(o task.Outcome, h *task.HighLevelTask) float64 {
	switch o {
	case task.OutcomeSuccess:
		return h.Priority
	case task.OutcomePartialSuccess:
		if len(h.SubTasks) == 0 {
			return 0
		}
		return h.Priority * float64(h.CompletedCount()) / float64(len(h.SubTasks))
	case task.OutcomeAborted:
		return -1
	default:
		return 0
	}
}

// CreateGameStateSnapshot records the bot's body and the team's view of the
// objectives.
func (p *Planner) CreateGameStateSnapshot() task.GameStateSnapshot {
	var snap task.GameStateSnapshot
	if p.owner != nil {
		snap.Alive = p.owner.Alive
		snap.Health = p.owner.Health
		snap.MaxHealth = p.owner.MaxHealth
		snap.Position = p.owner.Position
	}
	if p.kb == nil {
		return snap
	}
	snap.Tick = p.kb.Tick()
	for _, cp := range p.kb.GetControlPoints() {
		switch cp.Owner {
		case p.kb.Team:
			snap.OwnedPoints++
		case model.TeamNone:
			snap.NeutralPoints++
		default:
			snap.EnemyPoints++
		}
	}
	for _, e := range p.kb.GetTrackedEnemies() {
		if e.Visible {
			snap.VisibleEnemies++
		}
	}
	for _, a := range p.kb.GetTrackedAllies() {
		if a.Visible {
			snap.VisibleAllies++
		}
	}
	return snap
}

// GetCurrentHighLevelTask returns nil when the bot has no objective.
func (p *Planner) GetCurrentHighLevelTask() *task.HighLevelTask {
	if p.current.Type == task.HLTNone {
		return nil
	}
	return &p.current
}

func (p *Planner) GetCurrentSubTask() (task.SubTask, bool) {
	return p.current.CurrentSubTask()
}

func (p *Planner) GetCurrentSubTaskMutable() *task.SubTask {
	return p.current.CurrentSubTaskMutable()
}

// CandidateTasks is the scored pool from the last time a task was chosen.
func (p *Planner) CandidateTasks() []task.HighLevelTask {
	return append([]task.HighLevelTask(nil), p.candidates...)
}
