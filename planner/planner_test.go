package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
	"github.com/ffbot/ffbot-core/outcome"
	"github.com/ffbot/ffbot-core/rules"
	"github.com/ffbot/ffbot-core/task"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type fixture struct {
	p     *Planner
	kb    *model.KnowledgeBase
	store *outcome.MemorySink
	clock *fakeClock
	owner *model.BotState
}

func newFixture(t *testing.T, classID int, points ...model.ControlPointInfo) *fixture {
	t.Helper()
	kb := model.NewKnowledgeBase(model.TeamBlue, nil)
	kb.ReplaceDynamic(1, points, nil)
	f := &fixture{
		kb:    kb,
		store: outcome.NewMemorySink(),
		clock: &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)},
		owner: &model.BotState{ID: 7, Team: model.TeamBlue, ClassID: classID, Health: 100, MaxHealth: 100, Alive: true},
	}
	f.p = New(f.owner.ID, kb, f.store, nil, DefaultConfig(), f.clock)
	f.p.SetOwner(f.owner)
	return f
}

func enemyPoint(id int, x float64) model.ControlPointInfo {
	return model.ControlPointInfo{ID: id, Owner: model.TeamRed, Position: nav.Vec3{X: x}}
}

func ownPoint(id int, x float64) model.ControlPointInfo {
	return model.ControlPointInfo{ID: id, Owner: model.TeamBlue, Position: nav.Vec3{X: x}}
}

func stepTypes(h *task.HighLevelTask) []task.SubTaskType {
	out := make([]task.SubTaskType, len(h.SubTasks))
	for i, st := range h.SubTasks {
		out[i] = st.Type
	}
	return out
}

func TestGenerateAvailableTasks(t *testing.T) {
	tests := []struct {
		name   string
		points []model.ControlPointInfo
		want   []task.HLTType
	}{
		{"enemy unlocked point", []model.ControlPointInfo{enemyPoint(1, 500)}, []task.HLTType{task.HLTCapturePoint}},
		{"own point", []model.ControlPointInfo{ownPoint(1, 500)}, []task.HLTType{task.HLTDefendPoint}},
		{"neutral point", []model.ControlPointInfo{{ID: 1}}, []task.HLTType{task.HLTCapturePoint}},
		{"enemy locked point", []model.ControlPointInfo{{ID: 1, Owner: model.TeamRed, Locked: true}}, []task.HLTType{}},
		{"own locked point still defended", []model.ControlPointInfo{{ID: 1, Owner: model.TeamBlue, Locked: true}}, []task.HLTType{task.HLTDefendPoint}},
		{"no points", nil, []task.HLTType{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, model.ClassSoldier, tt.points...)
			got := f.p.GenerateAvailableTasks()
			types := make([]task.HLTType, 0, len(got))
			for _, h := range got {
				types = append(types, h.Type)
				assert.NotZero(t, h.PointID)
			}
			assert.Equal(t, tt.want, types)
		})
	}
}

func TestNoPointsLeavesBotIdle(t *testing.T) {
	f := newFixture(t, model.ClassSoldier)
	f.p.EvaluateAndSelectTask()
	assert.Nil(t, f.p.GetCurrentHighLevelTask())
	assert.Empty(t, f.p.CandidateTasks())
	assert.Zero(t, f.store.Len())
}

func TestMissingOwnerOrKnowledgeIdles(t *testing.T) {
	p := New(1, nil, nil, nil, DefaultConfig(), nil)
	p.SetOwner(&model.BotState{ID: 1, Alive: true})
	p.EvaluateAndSelectTask()
	assert.Nil(t, p.GetCurrentHighLevelTask())
	assert.Nil(t, p.GenerateAvailableTasks())

	f := newFixture(t, model.ClassSoldier, enemyPoint(1, 100))
	f.p.SetOwner(nil)
	f.p.EvaluateAndSelectTask()
	assert.Nil(t, f.p.GetCurrentHighLevelTask())
	assert.Nil(t, f.p.GenerateAvailableTasks())
}

func TestNearerPointRanksHigher(t *testing.T) {
	f := newFixture(t, model.ClassSoldier)
	near := model.ControlPointInfo{ID: 1, Owner: model.TeamRed, Critical: true, Position: nav.Vec3{X: 500}}
	far := model.ControlPointInfo{ID: 2, Owner: model.TeamRed, Critical: true, Position: nav.Vec3{X: 2000}}

	assert.InDelta(t, 145.0, f.p.CalculateCapturePriority(near), 1e-9)
	assert.InDelta(t, 130.0, f.p.CalculateCapturePriority(far), 1e-9)

	f.kb.ReplaceDynamic(2, []model.ControlPointInfo{far, near}, nil)
	f.p.EvaluateAndSelectTask()
	h := f.p.GetCurrentHighLevelTask()
	require.NotNil(t, h)
	assert.Equal(t, 1, h.PointID)

	cands := f.p.CandidateTasks()
	require.Len(t, cands, 2)
	assert.Greater(t, cands[0].Priority, cands[1].Priority)
}

func TestPriorityBonusesAndFloor(t *testing.T) {
	f := newFixture(t, model.ClassSoldier)
	cp := ownPoint(1, 1000)
	assert.InDelta(t, 70.0, f.p.CalculateDefensePriority(cp), 1e-9)

	cp.Critical = true
	assert.InDelta(t, 120.0, f.p.CalculateDefensePriority(cp), 1e-9)

	remote := enemyPoint(2, 1e6)
	assert.Equal(t, 1.0, f.p.CalculateCapturePriority(remote))
}

func TestRuleBonusAppliedBeforeFloor(t *testing.T) {
	engine, err := rules.NewEngine([]*rules.Rule{
		{Name: "hold-the-line", ConditionSrc: "IsDefend()", Bonus: 100},
		{Name: "never-attack", ConditionSrc: "IsCapture()", Bonus: -1000},
	})
	require.NoError(t, err)

	f := newFixture(t, model.ClassSoldier)
	f.p = New(7, f.kb, f.store, engine, DefaultConfig(), f.clock)
	f.p.SetOwner(f.owner)

	assert.InDelta(t, 170.0, f.p.CalculateDefensePriority(ownPoint(1, 1000)), 1e-9)
	assert.Equal(t, 1.0, f.p.CalculateCapturePriority(enemyPoint(2, 0)))
}

func TestDecomposeTask(t *testing.T) {
	f := newFixture(t, model.ClassSoldier)

	capture := task.NewHighLevelTask(task.HLTCapturePoint, 10, nav.Vec3{X: 5}, task.EntityRef{})
	require.True(t, f.p.DecomposeTask(&capture))
	assert.Equal(t, []task.SubTaskType{task.SubTaskMoveToPosition, task.SubTaskSecureArea, task.SubTaskStandOnPoint}, stepTypes(&capture))
	for _, st := range capture.SubTasks {
		assert.Equal(t, nav.Vec3{X: 5}, st.TargetPos)
	}
	assert.Equal(t, DefaultConfig().SecureDuration, capture.SubTasks[1].Duration)

	defend := task.NewHighLevelTask(task.HLTDefendPoint, 10, nav.Vec3{}, task.EntityRef{})
	require.True(t, f.p.DecomposeTask(&defend))
	assert.Equal(t, []task.SubTaskType{task.SubTaskMoveToPosition, task.SubTaskSecureArea, task.SubTaskHoldPosition}, stepTypes(&defend))

	unsupported := task.NewHighLevelTask(task.HLTSeekHealth, 10, nav.Vec3{}, task.EntityRef{})
	assert.False(t, f.p.DecomposeTask(&unsupported))
	assert.Empty(t, unsupported.SubTasks)
}

func TestEngineerDefendPlacesSentry(t *testing.T) {
	f := newFixture(t, model.ClassEngineer, ownPoint(1, 300))
	f.p.EvaluateAndSelectTask()
	h := f.p.GetCurrentHighLevelTask()
	require.NotNil(t, h)
	assert.Equal(t, []task.SubTaskType{
		task.SubTaskMoveToPosition, task.SubTaskSecureArea, task.SubTaskPlaceSentry, task.SubTaskHoldPosition,
	}, stepTypes(h))
}

func TestMedicCaptureHealsNearbyAlly(t *testing.T) {
	f := newFixture(t, model.ClassMedic)
	f.kb.ReplaceDynamic(2, []model.ControlPointInfo{enemyPoint(1, 1000)}, []model.TrackedEntityInfo{
		{ID: 7, Team: model.TeamBlue, Alive: true, Position: nav.Vec3{X: 1000}},
		{ID: 50, Team: model.TeamBlue, Alive: true, Position: nav.Vec3{X: 1200}},
		{ID: 51, Team: model.TeamBlue, Alive: true, Position: nav.Vec3{X: 5000}},
	})
	f.p.EvaluateAndSelectTask()
	h := f.p.GetCurrentHighLevelTask()
	require.NotNil(t, h)
	require.Equal(t, []task.SubTaskType{
		task.SubTaskMoveToPosition, task.SubTaskSecureArea, task.SubTaskHealAlly, task.SubTaskStandOnPoint,
	}, stepTypes(h))
	assert.Equal(t, task.EntityRef{ID: 50}, h.SubTasks[2].Target)

	alone := newFixture(t, model.ClassMedic, enemyPoint(1, 1000))
	alone.p.EvaluateAndSelectTask()
	assert.Len(t, alone.p.GetCurrentHighLevelTask().SubTasks, 3)
}

func TestSuccessfulTaskLifecycle(t *testing.T) {
	f := newFixture(t, model.ClassSoldier, enemyPoint(1, 1000))
	f.p.EvaluateAndSelectTask()

	h := f.p.GetCurrentHighLevelTask()
	require.NotNil(t, h)
	assert.Equal(t, task.HLTCapturePoint, h.Type)
	assert.InDelta(t, 90.0, h.Priority, 1e-9)
	st, ok := f.p.GetCurrentSubTask()
	require.True(t, ok)
	assert.Equal(t, task.SubTaskMoveToPosition, st.Type)
	assert.Equal(t, f.clock.now, st.StartedAt)

	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Second)
		f.p.EvaluateAndSelectTask()
		require.NotNil(t, f.p.GetCurrentSubTaskMutable(), "running step is left alone")
		f.p.OnSubTaskOutcomeReported(true, "")
	}
	_, ok = f.p.GetCurrentSubTask()
	assert.False(t, ok, "plan exhausted")
	assert.Zero(t, f.store.Len(), "not finalized until the next evaluation")

	f.clock.Advance(time.Second)
	f.p.EvaluateAndSelectTask()

	logs := f.store.Logs()
	require.Len(t, logs, 1)
	l := logs[0]
	assert.Equal(t, task.OutcomeSuccess, l.Outcome)
	assert.InDelta(t, 90.0, l.FinalScore, 1e-9)
	assert.Equal(t, 4*time.Second, l.Duration)
	require.Len(t, l.SubTasks, 3)
	for _, s := range l.SubTasks {
		assert.Equal(t, task.OutcomeSuccess, s.Outcome)
		assert.Equal(t, time.Second, s.Duration)
	}
	assert.Equal(t, 1, l.Start.EnemyPoints)

	next := f.p.GetCurrentHighLevelTask()
	require.NotNil(t, next, "point still enemy held, a fresh task is chosen in the same tick")
	assert.Equal(t, 0, next.Cursor())
}

func TestExternallyCompletedStepAdvances(t *testing.T) {
	f := newFixture(t, model.ClassSoldier, enemyPoint(1, 100))
	f.p.EvaluateAndSelectTask()
	f.p.GetCurrentSubTaskMutable().Completed = true

	f.p.EvaluateAndSelectTask()
	st, ok := f.p.GetCurrentSubTask()
	require.True(t, ok)
	assert.Equal(t, task.SubTaskSecureArea, st.Type)
	assert.False(t, st.Completed)
}

func TestSubTaskFailureAbandonsTask(t *testing.T) {
	f := newFixture(t, model.ClassSoldier, enemyPoint(1, 1000))
	f.p.EvaluateAndSelectTask()
	f.p.OnSubTaskOutcomeReported(true, "")
	f.p.OnSubTaskOutcomeReported(false, "no path")

	assert.Nil(t, f.p.GetCurrentHighLevelTask())
	logs := f.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, task.OutcomeFailure, logs[0].Outcome)
	assert.Equal(t, "no path", logs[0].Reason)
	assert.Zero(t, logs[0].FinalScore)
	require.Len(t, logs[0].SubTasks, 2)
	assert.Equal(t, task.OutcomeFailure, logs[0].SubTasks[1].Outcome)

	f.kb.ReplaceDynamic(2, nil, nil)
	f.p.EvaluateAndSelectTask()
	assert.Nil(t, f.p.GetCurrentHighLevelTask())
	assert.Equal(t, 1, f.store.Len())

	f.p.OnSubTaskOutcomeReported(false, "stale report")
	assert.Equal(t, 1, f.store.Len(), "reports without a task are ignored")
}

func TestBotKilledAborts(t *testing.T) {
	f := newFixture(t, model.ClassSoldier, ownPoint(1, 0))
	f.p.OnBotKilled()
	assert.Zero(t, f.store.Len(), "nothing to abort")

	f.p.EvaluateAndSelectTask()
	f.p.OnBotKilled()

	assert.Nil(t, f.p.GetCurrentHighLevelTask())
	logs := f.store.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, task.OutcomeAborted, logs[0].Outcome)
	assert.Equal(t, -1.0, logs[0].FinalScore)
	require.Len(t, logs[0].SubTasks, 1)
	assert.Equal(t, task.OutcomeAborted, logs[0].SubTasks[0].Outcome)
}

func TestObjectiveChangesFinalizeTask(t *testing.T) {
	t.Run("locked after progress is partial", func(t *testing.T) {
		f := newFixture(t, model.ClassSoldier, enemyPoint(1, 1000))
		f.p.EvaluateAndSelectTask()
		f.p.OnSubTaskOutcomeReported(true, "")

		locked := enemyPoint(1, 1000)
		locked.Locked = true
		f.kb.ReplaceDynamic(2, []model.ControlPointInfo{locked}, nil)
		f.p.EvaluateAndSelectTask()

		logs := f.store.Logs()
		require.Len(t, logs, 1)
		assert.Equal(t, task.OutcomePartialSuccess, logs[0].Outcome)
		assert.InDelta(t, 30.0, logs[0].FinalScore, 1e-9)
		assert.Nil(t, f.p.GetCurrentHighLevelTask())
	})

	t.Run("uninterruptible stand finishes its time box", func(t *testing.T) {
		f := newFixture(t, model.ClassSoldier, enemyPoint(1, 1000))
		f.p.EvaluateAndSelectTask()
		f.p.OnSubTaskOutcomeReported(true, "")
		f.p.OnSubTaskOutcomeReported(true, "")
		st, ok := f.p.GetCurrentSubTask()
		require.True(t, ok)
		require.Equal(t, task.SubTaskStandOnPoint, st.Type)
		require.False(t, st.Interruptible)

		locked := enemyPoint(1, 1000)
		locked.Locked = true
		f.kb.ReplaceDynamic(2, []model.ControlPointInfo{locked}, nil)
		f.p.EvaluateAndSelectTask()
		assert.Zero(t, f.store.Len(), "standing is not cut short")
		st, ok = f.p.GetCurrentSubTask()
		require.True(t, ok)
		assert.Equal(t, task.SubTaskStandOnPoint, st.Type)

		f.clock.Advance(DefaultConfig().StandDuration)
		f.p.EvaluateAndSelectTask()
		logs := f.store.Logs()
		require.Len(t, logs, 1)
		assert.Equal(t, task.OutcomePartialSuccess, logs[0].Outcome)
		assert.Equal(t, "point unavailable", logs[0].Reason)
	})

	t.Run("vanished before progress is aborted", func(t *testing.T) {
		f := newFixture(t, model.ClassSoldier, enemyPoint(1, 1000))
		f.p.EvaluateAndSelectTask()
		f.kb.ReplaceDynamic(2, nil, nil)
		f.p.EvaluateAndSelectTask()

		logs := f.store.Logs()
		require.Len(t, logs, 1)
		assert.Equal(t, task.OutcomeAborted, logs[0].Outcome)
	})

	t.Run("captured by the team succeeds and flips to defense", func(t *testing.T) {
		f := newFixture(t, model.ClassSoldier, enemyPoint(1, 1000))
		f.p.EvaluateAndSelectTask()
		f.kb.ReplaceDynamic(2, []model.ControlPointInfo{ownPoint(1, 1000)}, nil)
		f.p.EvaluateAndSelectTask()

		logs := f.store.Logs()
		require.Len(t, logs, 1)
		assert.Equal(t, task.OutcomeSuccess, logs[0].Outcome)
		assert.Equal(t, "point captured", logs[0].Reason)
		require.NotNil(t, f.p.GetCurrentHighLevelTask())
		assert.Equal(t, task.HLTDefendPoint, f.p.GetCurrentHighLevelTask().Type)
	})

	t.Run("defended point lost fails", func(t *testing.T) {
		f := newFixture(t, model.ClassSoldier, ownPoint(1, 1000))
		f.p.EvaluateAndSelectTask()
		f.kb.ReplaceDynamic(2, []model.ControlPointInfo{enemyPoint(1, 1000)}, nil)
		f.p.EvaluateAndSelectTask()

		logs := f.store.Logs()
		require.Len(t, logs, 1)
		assert.Equal(t, task.OutcomeFailure, logs[0].Outcome)
		assert.Equal(t, "point lost", logs[0].Reason)
		assert.Equal(t, task.HLTCapturePoint, f.p.GetCurrentHighLevelTask().Type)
	})
}

func TestCreateGameStateSnapshot(t *testing.T) {
	f := newFixture(t, model.ClassSoldier)
	f.kb.ReplaceDynamic(9, []model.ControlPointInfo{ownPoint(1, 0), enemyPoint(2, 0), {ID: 3}}, []model.TrackedEntityInfo{
		{ID: 20, Team: model.TeamRed, Alive: true, Visible: true},
		{ID: 21, Team: model.TeamRed, Alive: true},
		{ID: 22, Team: model.TeamBlue, Alive: true, Visible: true},
	})
	f.owner.Health = 40
	f.owner.Position = nav.Vec3{X: 1, Y: 2}

	snap := f.p.CreateGameStateSnapshot()
	assert.Equal(t, task.GameStateSnapshot{
		Tick: 9, Alive: true, Health: 40, MaxHealth: 100, Position: nav.Vec3{X: 1, Y: 2},
		OwnedPoints: 1, EnemyPoints: 1, NeutralPoints: 1, VisibleEnemies: 1, VisibleAllies: 1,
	}, snap)
}
