package executor

import (
	"github.com/ffbot/ffbot-core/nav"
)

// Waypoint is the next point the bot should walk to and the attributes of
// the area it lies in.
type Waypoint struct {
	Pos   nav.Vec3
	Area  nav.AreaID
	Attrs nav.AreaAttr
}

// Movement turns a target position into a path over the nav graph and
// walks it waypoint by waypoint. Waypoints are the centers of the areas
// after the start area, followed by the exact target.
type Movement struct {
	pf           *nav.PathFinder
	threat       nav.ThreatProvider
	reachRadius  float64
	searchRadius float64

	path      []nav.AreaID
	waypoints []Waypoint
	cursor    int
	target    nav.Vec3
	active    bool
}

func NewMovement(pf *nav.PathFinder, threat nav.ThreatProvider, reachRadius, searchRadius float64) *Movement {
	return &Movement{
		pf:           pf,
		threat:       threat,
		reachRadius:  reachRadius,
		searchRadius: searchRadius,
	}
}

// MoveTo plans a path from the bot's position to target. It returns false
// and clears any previous path when either end is off the mesh or no route
// exists.
func (m *Movement) MoveTo(from, target nav.Vec3) bool {
	m.Clear()
	if m.pf == nil || m.pf.Graph() == nil {
		return false
	}
	g := m.pf.Graph()
	start := g.FindNearestNodeID(from, m.searchRadius)
	goal := g.FindNearestNodeID(target, m.searchRadius)
	if start == nav.InvalidAreaID || goal == nav.InvalidAreaID {
		return false
	}
	path := m.pf.FindPath(start, goal, m.threat)
	if len(path) == 0 {
		return false
	}

	m.path = path
	for _, id := range path[1:] {
		a, ok := g.Node(id)
		if !ok {
			continue
		}
		m.waypoints = append(m.waypoints, Waypoint{Pos: a.Center, Area: id, Attrs: a.Attrs})
	}
	last, _ := g.Node(goal)
	m.waypoints = append(m.waypoints, Waypoint{Pos: target, Area: goal, Attrs: last.Attrs})
	m.target = target
	m.active = true
	return true
}

// FollowPath consumes every waypoint within reach of pos and returns the
// next one. arrived is true once the final waypoint has been reached.
func (m *Movement) FollowPath(pos nav.Vec3) (next Waypoint, arrived bool) {
	if !m.active {
		return Waypoint{}, false
	}
	reach := m.reachRadius * m.reachRadius
	for m.cursor < len(m.waypoints) && m.waypoints[m.cursor].Pos.DistSqr(pos) <= reach {
		m.cursor++
	}
	if m.cursor >= len(m.waypoints) {
		m.active = false
		return Waypoint{}, true
	}
	return m.waypoints[m.cursor], false
}

// NeedsRepath reports whether target is new or has drifted beyond tolSqr
// from the target of the active path.
func (m *Movement) NeedsRepath(target nav.Vec3, tolSqr float64) bool {
	return !m.active || m.target.DistSqr(target) > tolSqr
}

// Path returns the area ids of the active path.
func (m *Movement) Path() []nav.AreaID {
	if !m.active {
		return nil
	}
	return append([]nav.AreaID(nil), m.path...)
}

func (m *Movement) Active() bool { return m.active }

func (m *Movement) Clear() {
	m.path = m.path[:0]
	m.waypoints = m.waypoints[:0]
	m.cursor = 0
	m.target = nav.Vec3{}
	m.active = false
}
