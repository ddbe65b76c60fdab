package nav

import (
	"errors"
	"log/slog"
	"slices"
)

var ErrUnknownArea = errors.New("unknown nav area")

// Graph maps area ids to areas. It is built once per map load and cleared on
// level shutdown; within a tick it is read-only and shared by every bot.
type Graph struct {
	areas map[AreaID]*Area
	order []AreaID // ascending ids, for deterministic scans
}

func NewGraph() *Graph {
	return &Graph{areas: make(map[AreaID]*Area)}
}

// AddNode inserts the area or overwrites the existing one with the same id.
func (g *Graph) AddNode(a Area) {
	if a.ID == InvalidAreaID {
		slog.Warn("nav: refusing area with invalid id")
		return
	}
	if _, exists := g.areas[a.ID]; !exists {
		i, _ := slices.BinarySearch(g.order, a.ID)
		g.order = slices.Insert(g.order, i, a.ID)
	}
	stored := a
	stored.Connections = slices.Clone(a.Connections)
	g.areas[a.ID] = &stored
}

// AddConnection links from → to. When twoWay is set the mirror record is
// added to the target with the endpoints swapped, so drop-downs and other
// asymmetric crossings keep their direction-specific points. Either override
// may be nil, in which case the matching area center is used.
func (g *Graph) AddConnection(from, to AreaID, typ ConnType, costMultiplier float64, twoWay bool, fromPos, toPos *Vec3) error {
	src, ok := g.areas[from]
	if !ok {
		slog.Warn("nav: connection source missing", "from", from, "to", to)
		return ErrUnknownArea
	}
	dst, ok := g.areas[to]
	if !ok {
		slog.Warn("nav: connection target missing", "from", from, "to", to)
		return ErrUnknownArea
	}
	if costMultiplier < 0 {
		slog.Warn("nav: negative cost multiplier clamped", "from", from, "to", to, "cost", costMultiplier)
		costMultiplier = 0
	}

	c := Connection{To: to, Type: typ, CostMultiplier: costMultiplier, FromPoint: src.Center, ToPoint: dst.Center}
	if fromPos != nil || toPos != nil {
		c.Explicit = true
		if fromPos != nil {
			c.FromPoint = *fromPos
		}
		if toPos != nil {
			c.ToPoint = *toPos
		}
	}
	src.Connections = append(src.Connections, c)

	if twoWay {
		dst.Connections = append(dst.Connections, Connection{
			To:             from,
			Type:           typ,
			CostMultiplier: costMultiplier,
			FromPoint:      c.ToPoint,
			ToPoint:        c.FromPoint,
			Explicit:       c.Explicit,
		})
	}
	return nil
}

// Node returns a read-only view of the area. The Connections slice is shared
// with the graph and must not be modified.
func (g *Graph) Node(id AreaID) (Area, bool) {
	a, ok := g.areas[id]
	if !ok {
		return Area{}, false
	}
	return *a, true
}

// NodeMutable returns the stored area for runtime edits (blocking,
// attribute repainting), or nil.
func (g *Graph) NodeMutable(id AreaID) *Area {
	return g.areas[id]
}

// SetBlocked toggles the runtime block flag. Reports false for unknown ids.
func (g *Graph) SetBlocked(id AreaID, blocked bool) bool {
	a, ok := g.areas[id]
	if !ok {
		return false
	}
	a.Blocked = blocked
	return true
}

func (g *Graph) Clear() {
	clear(g.areas)
	g.order = g.order[:0]
}

func (g *Graph) Len() int { return len(g.areas) }

// IDs returns all area ids in ascending order.
func (g *Graph) IDs() []AreaID {
	return slices.Clone(g.order)
}

// FindNearestNodeID returns the area whose center is closest to pos, provided
// it lies within maxDist. A maxDist <= 0 disables the limit. Ties go to the
// lowest id.
func (g *Graph) FindNearestNodeID(pos Vec3, maxDist float64) AreaID {
	best := InvalidAreaID
	bestDist := maxDist * maxDist
	limited := maxDist > 0
	for _, id := range g.order {
		d := g.areas[id].Center.DistSqr(pos)
		if limited && d > bestDist {
			continue
		}
		if best == InvalidAreaID || d < bestDist {
			best = id
			bestDist = d
			limited = true
		}
	}
	return best
}
