package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ffbot/ffbot-core/model"
)

func baseSnapshot(tick uint64) model.Snapshot {
	return model.Snapshot{
		Tick: tick,
		ControlPoints: []model.ControlPointInfo{
			{ID: 1, Owner: model.TeamBlue},
			{ID: 2, Owner: model.TeamRed},
			{ID: 3, Owner: model.TeamNone, Locked: true},
		},
		Bots: []model.BotState{
			{ID: 5, Team: model.TeamBlue, Alive: true},
			{ID: 6, Team: model.TeamBlue, Alive: true},
		},
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, e := range events {
		out = append(out, e.Kind)
	}
	return out
}

func TestDetectEvents_NilPrev(t *testing.T) {
	assert.Nil(t, detectEvents(baseSnapshot(1), model.TeamBlue, nil))
}

func TestDetectEvents_NoChange(t *testing.T) {
	prev := takeSnapshot(baseSnapshot(1), model.TeamBlue)
	assert.Empty(t, detectEvents(baseSnapshot(2), model.TeamBlue, &prev))
}

func TestDetectEvents(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Snapshot)
		want   []EventKind
	}{
		{
			name:   "bot died",
			mutate: func(s *model.Snapshot) { s.Bots[1].Alive = false },
			want:   []EventKind{EventBotDied},
		},
		{
			name:   "point captured",
			mutate: func(s *model.Snapshot) { s.ControlPoints[1].Owner = model.TeamBlue },
			want:   []EventKind{EventPointCaptured},
		},
		{
			name:   "point lost",
			mutate: func(s *model.Snapshot) { s.ControlPoints[0].Owner = model.TeamRed },
			want:   []EventKind{EventPointLost},
		},
		{
			name:   "ownership change between other teams",
			mutate: func(s *model.Snapshot) { s.ControlPoints[1].Owner = model.TeamYellow },
			want:   nil,
		},
		{
			name:   "point unlocked",
			mutate: func(s *model.Snapshot) { s.ControlPoints[2].Locked = false },
			want:   []EventKind{EventPointUnlocked},
		},
		{
			name: "our point contested",
			mutate: func(s *model.Snapshot) {
				s.ControlPoints[0].CappingTeam = model.TeamRed
				s.ControlPoints[0].CaptureProgress = 0.2
			},
			want: []EventKind{EventPointContested},
		},
		{
			name: "first contact",
			mutate: func(s *model.Snapshot) {
				s.Entities = []model.TrackedEntityInfo{{ID: 40, Team: model.TeamRed, Alive: true, Visible: true}}
			},
			want: []EventKind{EventFirstContact},
		},
		{
			name: "hidden enemy is not contact",
			mutate: func(s *model.Snapshot) {
				s.Entities = []model.TrackedEntityInfo{{ID: 40, Team: model.TeamRed, Alive: true}}
			},
			want: nil,
		},
		{
			name: "bots before points",
			mutate: func(s *model.Snapshot) {
				s.ControlPoints[0].Owner = model.TeamRed
				s.Bots[0].Alive = false
				s.Bots[1].Alive = false
			},
			want: []EventKind{EventBotDied, EventBotDied, EventPointLost},
		},
		{
			name:   "new bot is not an event",
			mutate: func(s *model.Snapshot) { s.Bots = append(s.Bots, model.BotState{ID: 9, Alive: false}) },
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := takeSnapshot(baseSnapshot(1), model.TeamBlue)
			cur := baseSnapshot(2)
			tt.mutate(&cur)
			got := detectEvents(cur, model.TeamBlue, &prev)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, kinds(got))
		})
	}
}

func TestDetectEvents_Respawn(t *testing.T) {
	dead := baseSnapshot(1)
	dead.Bots[0].Alive = false
	prev := takeSnapshot(dead, model.TeamBlue)

	events := detectEvents(baseSnapshot(2), model.TeamBlue, &prev)
	if assert.Len(t, events, 1) {
		assert.Equal(t, EventBotRespawned, events[0].Kind)
		assert.Equal(t, uint32(5), events[0].BotID)
		assert.Equal(t, uint64(2), events[0].Tick)
		assert.Equal(t, "[tick 2] bot_respawned: bot 5 respawned", events[0].String())
	}
}

func TestDetectEvents_ContestedOnlyOnce(t *testing.T) {
	s := baseSnapshot(1)
	s.ControlPoints[0].CappingTeam = model.TeamRed
	s.ControlPoints[0].CaptureProgress = 0.2
	prev := takeSnapshot(s, model.TeamBlue)

	s.Tick = 2
	s.ControlPoints[0].CaptureProgress = 0.4
	assert.Empty(t, detectEvents(s, model.TeamBlue, &prev))
}
