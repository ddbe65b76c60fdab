package model

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ffbot/ffbot-core/nav"
	"github.com/ffbot/ffbot-core/task"
)

const (
	// DefaultThreatPerEnemy is the extra path cost a visible enemy adds to
	// the area it stands in. Neighbouring areas get half.
	DefaultThreatPerEnemy = 50.0
	threatSearchRadius    = 512.0
)

// KnowledgeBase is one team's view of the world for the current tick. The
// dynamic collections are replaced wholesale once per tick before any bot
// plans, so every bot on the team sees the same snapshot.
type KnowledgeBase struct {
	MapName string
	Team    int

	graph *nav.Graph
	tick  uint64

	points   []ControlPointInfo
	enemies  []TrackedEntityInfo
	allies   []TrackedEntityInfo
	entities map[uint32]TrackedEntityInfo

	classesByID   map[int]ClassConfigInfo
	classesByName map[string]ClassConfigInfo

	threat         map[nav.AreaID]float64
	threatPerEnemy float64
}

func NewKnowledgeBase(team int, graph *nav.Graph) *KnowledgeBase {
	kb := &KnowledgeBase{
		Team:           team,
		graph:          graph,
		entities:       make(map[uint32]TrackedEntityInfo),
		threat:         make(map[nav.AreaID]float64),
		threatPerEnemy: DefaultThreatPerEnemy,
	}
	kb.SetClassConfigs(DefaultClassConfigs())
	return kb
}

// SetThreatPerEnemy tunes the area threat painted by visible enemies.
// Zero disables threat-aware routing.
func (kb *KnowledgeBase) SetThreatPerEnemy(v float64) {
	if v < 0 {
		v = 0
	}
	kb.threatPerEnemy = v
}

func (kb *KnowledgeBase) SetClassConfigs(classes []ClassConfigInfo) {
	kb.classesByID = make(map[int]ClassConfigInfo, len(classes))
	kb.classesByName = make(map[string]ClassConfigInfo, len(classes))
	for _, c := range classes {
		kb.classesByID[c.ID] = c
		kb.classesByName[strings.ToLower(c.Name)] = c
	}
}

// ReplaceDynamic swaps in the tick's control points and tracked entities and
// recomputes area threat from the enemies that are visible right now.
func (kb *KnowledgeBase) ReplaceDynamic(tick uint64, points []ControlPointInfo, entities []TrackedEntityInfo) {
	kb.tick = tick
	kb.points = append(kb.points[:0], points...)
	kb.enemies = kb.enemies[:0]
	kb.allies = kb.allies[:0]
	clear(kb.entities)
	for _, e := range entities {
		kb.entities[e.ID] = e
		if !e.Alive {
			continue
		}
		if e.Team == kb.Team {
			kb.allies = append(kb.allies, e)
		} else if e.Team != TeamNone {
			kb.enemies = append(kb.enemies, e)
		}
	}
	kb.rebuildThreat()
}

func (kb *KnowledgeBase) rebuildThreat() {
	clear(kb.threat)
	if kb.graph == nil || kb.threatPerEnemy == 0 {
		return
	}
	for _, e := range kb.enemies {
		if !e.Visible {
			continue
		}
		id := kb.graph.FindNearestNodeID(e.Position, threatSearchRadius)
		if id == nav.InvalidAreaID {
			continue
		}
		kb.threat[id] += kb.threatPerEnemy
		area, _ := kb.graph.Node(id)
		for _, c := range area.Connections {
			kb.threat[c.To] += kb.threatPerEnemy / 2
		}
	}
}

func (kb *KnowledgeBase) Tick() uint64 { return kb.tick }

func (kb *KnowledgeBase) GetControlPoints() []ControlPointInfo { return kb.points }

func (kb *KnowledgeBase) GetNavGraph() *nav.Graph { return kb.graph }

func (kb *KnowledgeBase) GetTrackedEnemies() []TrackedEntityInfo { return kb.enemies }

func (kb *KnowledgeBase) GetTrackedAllies() []TrackedEntityInfo { return kb.allies }

func (kb *KnowledgeBase) GetClassConfigByID(id int) (ClassConfigInfo, bool) {
	c, ok := kb.classesByID[id]
	return c, ok
}

func (kb *KnowledgeBase) GetClassConfigByName(name string) (ClassConfigInfo, bool) {
	c, ok := kb.classesByName[strings.ToLower(name)]
	return c, ok
}

// Entity resolves a weak reference against this tick's snapshot.
func (kb *KnowledgeBase) Entity(ref task.EntityRef) (TrackedEntityInfo, bool) {
	if !ref.Valid() {
		return TrackedEntityInfo{}, false
	}
	e, ok := kb.entities[ref.ID]
	return e, ok
}

// EntityAlive is the liveness query behind every weak entity reference.
func (kb *KnowledgeBase) EntityAlive(ref task.EntityRef) bool {
	e, ok := kb.Entity(ref)
	return ok && e.Alive
}

// AreaThreat implements nav.ThreatProvider.
func (kb *KnowledgeBase) AreaThreat(id nav.AreaID) float64 {
	return kb.threat[id]
}

// CountNear counts living entities within radius of pos.
func CountNear(entities []TrackedEntityInfo, pos nav.Vec3, radius float64) int {
	r2 := radius * radius
	n := 0
	for _, e := range entities {
		if e.Alive && e.Position.DistSqr(pos) <= r2 {
			n++
		}
	}
	return n
}

type classFile struct {
	Classes []ClassConfigInfo `yaml:"classes"`
}

// LoadClassConfigs reads a YAML class table.
func LoadClassConfigs(path string) ([]ClassConfigInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: reading %s: %w", path, err)
	}
	var f classFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("model: parsing %s: %w", path, err)
	}
	seen := make(map[int]struct{}, len(f.Classes))
	for _, c := range f.Classes {
		if c.ID <= 0 || c.Name == "" {
			return nil, fmt.Errorf("model: %s: class needs a positive id and a name", path)
		}
		if _, dup := seen[c.ID]; dup {
			return nil, fmt.Errorf("model: %s: duplicate class id %d", path, c.ID)
		}
		seen[c.ID] = struct{}{}
	}
	return f.Classes, nil
}
