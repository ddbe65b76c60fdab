package task

import (
	"time"

	"github.com/google/uuid"

	"github.com/ffbot/ffbot-core/nav"
)

// GameStateSnapshot is the slice of world state recorded when a task starts
// and when it ends, so offline analysis can judge what the task achieved.
type GameStateSnapshot struct {
	Tick           uint64   `json:"tick"`
	Alive          bool     `json:"alive"`
	Health         int      `json:"health"`
	MaxHealth      int      `json:"maxHealth"`
	Position       nav.Vec3 `json:"position"`
	OwnedPoints    int      `json:"ownedPoints"`
	EnemyPoints    int      `json:"enemyPoints"`
	NeutralPoints  int      `json:"neutralPoints"`
	VisibleEnemies int      `json:"visibleEnemies"`
	VisibleAllies  int      `json:"visibleAllies"`
}

type SubTaskOutcomeLog struct {
	Index     int           `json:"index"`
	Type      SubTaskType   `json:"type"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
	Duration  time.Duration `json:"duration"`
	Outcome   Outcome       `json:"outcome"`
	Reason    string        `json:"reason,omitempty"`
}

// TaskOutcomeLog records one high-level task from selection to finalization.
// It is append-only until Finalize stamps the end state.
type TaskOutcomeLog struct {
	ID         string              `json:"id"`
	BotID      uint32              `json:"botId"`
	Type       HLTType             `json:"type"`
	Priority   float64             `json:"priority"`
	TargetPos  nav.Vec3            `json:"targetPos"`
	Target     EntityRef           `json:"target"`
	StartedAt  time.Time           `json:"startedAt"`
	EndedAt    time.Time           `json:"endedAt"`
	Duration   time.Duration       `json:"duration"`
	Outcome    Outcome             `json:"outcome"`
	FinalScore float64             `json:"finalScore"`
	Reason     string              `json:"reason,omitempty"`
	Start      GameStateSnapshot   `json:"start"`
	End        GameStateSnapshot   `json:"end"`
	SubTasks   []SubTaskOutcomeLog `json:"subTasks,omitempty"`
}

func NewTaskOutcomeLog(botID uint32, h *HighLevelTask, start GameStateSnapshot, now time.Time) *TaskOutcomeLog {
	return &TaskOutcomeLog{
		ID:        uuid.New().String(),
		BotID:     botID,
		Type:      h.Type,
		Priority:  h.Priority,
		TargetPos: h.TargetPos,
		Target:    h.Target,
		StartedAt: now,
		Outcome:   OutcomePending,
		Start:     start,
	}
}

// AppendSubTask records the end of one step.
func (l *TaskOutcomeLog) AppendSubTask(index int, st *SubTask, outcome Outcome, reason string, now time.Time) {
	l.SubTasks = append(l.SubTasks, SubTaskOutcomeLog{
		Index:     index,
		Type:      st.Type,
		StartedAt: st.StartedAt,
		EndedAt:   now,
		Duration:  st.Elapsed(now),
		Outcome:   outcome,
		Reason:    reason,
	})
}

func (l *TaskOutcomeLog) Finalize(outcome Outcome, score float64, reason string, end GameStateSnapshot, now time.Time) {
	l.EndedAt = now
	l.Duration = now.Sub(l.StartedAt)
	l.Outcome = outcome
	l.FinalScore = score
	l.Reason = reason
	l.End = end
}
