package task

import (
	"time"

	"github.com/ffbot/ffbot-core/nav"
)

// SubTask is one step of a HighLevelTask. The executor sets Completed; the
// planner reads it. StartedAt is stamped each time the step becomes current,
// so timing never leaks between bots or between plans. A step that is not
// Interruptible runs out its time box before an unavailable objective can
// abandon the task.
type SubTask struct {
	Type          SubTaskType   `json:"type"`
	TargetPos     nav.Vec3      `json:"targetPos"`
	Target        EntityRef     `json:"target"`
	AbilitySlot   int           `json:"abilitySlot,omitempty"`
	Duration      time.Duration `json:"duration,omitempty"`
	Completed     bool          `json:"completed"`
	Interruptible bool          `json:"interruptible"`
	StartedAt     time.Time     `json:"startedAt"`
}

func (s *SubTask) begin(now time.Time) {
	s.Completed = false
	s.StartedAt = now
}

// Elapsed is the time spent on the step since it became current.
func (s *SubTask) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// Expired reports whether a time-boxed step has run its course. Steps with
// no Duration never expire.
func (s *SubTask) Expired(now time.Time) bool {
	return s.Duration > 0 && s.Elapsed(now) >= s.Duration
}

// HighLevelTask is a bot's current objective and the cursor over its plan.
// A cursor of -1 means the plan has not started; len(SubTasks) means every
// step has been consumed.
type HighLevelTask struct {
	Type      HLTType   `json:"type"`
	Priority  float64   `json:"priority"`
	TargetPos nav.Vec3  `json:"targetPos"`
	Target    EntityRef `json:"target"`
	// PointID names the control point for point objectives, zero otherwise.
	PointID  int       `json:"pointId,omitempty"`
	SubTasks []SubTask `json:"subTasks"`
	cursor   int
}

func NewHighLevelTask(typ HLTType, priority float64, pos nav.Vec3, target EntityRef) HighLevelTask {
	return HighLevelTask{Type: typ, Priority: priority, TargetPos: pos, Target: target, cursor: -1}
}

func (h *HighLevelTask) Cursor() int { return h.cursor }

// StartFirstSubTask points the cursor at the first step. With no steps the
// cursor stays at -1 and false is returned.
func (h *HighLevelTask) StartFirstSubTask(now time.Time) bool {
	if len(h.SubTasks) == 0 {
		h.cursor = -1
		return false
	}
	h.cursor = 0
	h.SubTasks[0].begin(now)
	return true
}

// AdvanceToNextSubTask moves the cursor forward one step. It returns false
// once the plan is exhausted; the cursor never moves backwards and never
// runs past len(SubTasks).
func (h *HighLevelTask) AdvanceToNextSubTask(now time.Time) bool {
	if h.cursor >= len(h.SubTasks) {
		return false
	}
	h.cursor++
	if h.cursor >= len(h.SubTasks) {
		return false
	}
	h.SubTasks[h.cursor].begin(now)
	return true
}

// CurrentSubTask returns a copy of the step under the cursor.
func (h *HighLevelTask) CurrentSubTask() (SubTask, bool) {
	if st := h.CurrentSubTaskMutable(); st != nil {
		return *st, true
	}
	return SubTask{}, false
}

// CurrentSubTaskMutable returns the step under the cursor, or nil before the
// plan starts and after it is exhausted.
func (h *HighLevelTask) CurrentSubTaskMutable() *SubTask {
	if h.cursor < 0 || h.cursor >= len(h.SubTasks) {
		return nil
	}
	return &h.SubTasks[h.cursor]
}

// IsValid requires a real objective with a plan and a cursor that is either
// unstarted, on a step, or just past the last one.
func (h *HighLevelTask) IsValid() bool {
	return h.Type != HLTNone && len(h.SubTasks) > 0 && h.cursor >= -1 && h.cursor <= len(h.SubTasks)
}

func (h *HighLevelTask) AllSubTasksDone() bool {
	return len(h.SubTasks) > 0 && h.cursor >= len(h.SubTasks)
}

// CompletedCount is the number of steps the executor flagged as completed.
func (h *HighLevelTask) CompletedCount() int {
	n := 0
	for i := range h.SubTasks {
		if h.SubTasks[i].Completed {
			n++
		}
	}
	return n
}

// Reset returns the task to the empty NONE state, keeping the subtask
// storage for the next plan.
func (h *HighLevelTask) Reset() {
	subs := h.SubTasks[:0]
	*h = HighLevelTask{SubTasks: subs, cursor: -1}
}
