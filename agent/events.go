package agent

import (
	"fmt"
	"slices"

	"github.com/ffbot/ffbot-core/model"
)

// EventKind identifies a change between consecutive snapshots worth
// reacting to outside the normal per-bot planning tick.
type EventKind string

const (
	EventBotDied        EventKind = "bot_died"
	EventBotRespawned   EventKind = "bot_respawned"
	EventPointCaptured  EventKind = "point_captured"
	EventPointLost      EventKind = "point_lost"
	EventPointContested EventKind = "point_contested"
	EventPointUnlocked  EventKind = "point_unlocked"
	EventFirstContact   EventKind = "first_contact"
)

// Event is a significant change detected by diffing consecutive snapshots.
type Event struct {
	Kind    EventKind
	Tick    uint64
	BotID   uint32
	PointID int
	Detail  string
}

func (e Event) String() string {
	return fmt.Sprintf("[tick %d] %s: %s", e.Tick, e.Kind, e.Detail)
}

// stateSnapshot captures the diffable fields of one tick.
type stateSnapshot struct {
	botAlive    map[uint32]bool
	pointOwner  map[int]int
	pointLocked map[int]bool
	contested   map[int]bool
	enemiesSeen bool
}

func takeSnapshot(snap model.Snapshot, team int) stateSnapshot {
	s := stateSnapshot{
		botAlive:    make(map[uint32]bool, len(snap.Bots)),
		pointOwner:  make(map[int]int, len(snap.ControlPoints)),
		pointLocked: make(map[int]bool, len(snap.ControlPoints)),
		contested:   make(map[int]bool),
	}
	for _, b := range snap.Bots {
		s.botAlive[b.ID] = b.Alive
	}
	for _, cp := range snap.ControlPoints {
		s.pointOwner[cp.ID] = cp.Owner
		s.pointLocked[cp.ID] = cp.Locked
		if cp.Owner == team && cp.Contested() {
			s.contested[cp.ID] = true
		}
	}
	for _, e := range snap.Entities {
		if e.Alive && e.Visible && e.Team != team && e.Team != model.TeamNone {
			s.enemiesSeen = true
			break
		}
	}
	return s
}

// detectEvents compares snap against the previous snapshot and returns the
// triggered events in a stable order: bots by id, then points by id.
// Returns nil when prev is nil (first tick).
func detectEvents(snap model.Snapshot, team int, prev *stateSnapshot) []Event {
	if prev == nil {
		return nil
	}
	cur := takeSnapshot(snap, team)
	var events []Event

	for _, id := range sortedKeys(cur.botAlive) {
		alive := cur.botAlive[id]
		was, known := prev.botAlive[id]
		if !known {
			continue
		}
		switch {
		case was && !alive:
			events = append(events, Event{Kind: EventBotDied, Tick: snap.Tick, BotID: id,
				Detail: fmt.Sprintf("bot %d died", id)})
		case !was && alive:
			events = append(events, Event{Kind: EventBotRespawned, Tick: snap.Tick, BotID: id,
				Detail: fmt.Sprintf("bot %d respawned", id)})
		}
	}

	for _, id := range sortedKeys(cur.pointOwner) {
		owner := cur.pointOwner[id]
		before, known := prev.pointOwner[id]
		if !known {
			continue
		}
		if owner != before {
			switch {
			case owner == team:
				events = append(events, Event{Kind: EventPointCaptured, Tick: snap.Tick, PointID: id,
					Detail: fmt.Sprintf("point %d captured from team %d", id, before)})
			case before == team:
				events = append(events, Event{Kind: EventPointLost, Tick: snap.Tick, PointID: id,
					Detail: fmt.Sprintf("point %d lost to team %d", id, owner)})
			}
		}
		if prev.pointLocked[id] && !cur.pointLocked[id] {
			events = append(events, Event{Kind: EventPointUnlocked, Tick: snap.Tick, PointID: id,
				Detail: fmt.Sprintf("point %d unlocked", id)})
		}
		if cur.contested[id] && !prev.contested[id] {
			events = append(events, Event{Kind: EventPointContested, Tick: snap.Tick, PointID: id,
				Detail: fmt.Sprintf("point %d under attack", id)})
		}
	}

	if !prev.enemiesSeen && cur.enemiesSeen {
		events = append(events, Event{Kind: EventFirstContact, Tick: snap.Tick,
			Detail: "enemies visible"})
	}

	return events
}

func sortedKeys[K uint32 | int, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
