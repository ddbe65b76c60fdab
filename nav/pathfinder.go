package nav

import (
	"container/heap"
	"log/slog"
)

// CostConfig holds the flat surcharges added when entering an area with the
// matching attribute. They only need to make discomfort and danger lose to a
// cheaper detour.
type CostConfig struct {
	CrouchPenalty float64 `mapstructure:"crouch_penalty" yaml:"crouch_penalty"`
	JumpPenalty   float64 `mapstructure:"jump_penalty" yaml:"jump_penalty"`
	DangerPenalty float64 `mapstructure:"danger_penalty" yaml:"danger_penalty"`
}

func DefaultCosts() CostConfig {
	return CostConfig{CrouchPenalty: 20, JumpPenalty: 30, DangerPenalty: 100}
}

// ThreatProvider supplies extra traversal cost for an area. It is queried on
// every edge relaxation and never cached, since threat moves frame to frame.
type ThreatProvider interface {
	AreaThreat(id AreaID) float64
}

// ThreatFunc adapts a plain function to ThreatProvider.
type ThreatFunc func(id AreaID) float64

func (f ThreatFunc) AreaThreat(id AreaID) float64 { return f(id) }

// PathFinder runs A* over a Graph. The heuristic is the straight-line distance
// between area centers, which stays admissible as long as no connection
// multiplier drops below 1.
type PathFinder struct {
	graph *Graph
	costs CostConfig

	onStale func(AreaID)
}

func NewPathFinder(g *Graph, costs CostConfig) *PathFinder {
	return &PathFinder{graph: g, costs: costs}
}

func (p *PathFinder) Graph() *Graph { return p.graph }

// EdgeCost is the price of moving from one area into the next over c.
func (p *PathFinder) EdgeCost(from *Area, c Connection, to *Area, threat ThreatProvider) float64 {
	a, b := from.Center, to.Center
	if c.Explicit {
		a, b = c.FromPoint, c.ToPoint
	}
	cost := a.Dist(b) * c.CostMultiplier
	if to.Attrs.Has(AttrCrouch) {
		cost += p.costs.CrouchPenalty
	}
	if to.Attrs.Has(AttrJump) {
		cost += p.costs.JumpPenalty
	}
	if to.Attrs.Has(AttrDanger) {
		cost += p.costs.DangerPenalty
	}
	if threat != nil {
		if t := threat.AreaThreat(to.ID); t > 0 {
			cost += t
		}
	}
	return cost
}

// FindPath returns the least-cost sequence of area ids from start to target,
// both inclusive. It returns nil when either id is unknown or no route exists.
func (p *PathFinder) FindPath(start, target AreaID, threat ThreatProvider) []AreaID {
	path, _ := p.FindPathCost(start, target, threat)
	return path
}

type searchRecord struct {
	g      float64
	h      float64
	parent AreaID
	open   bool
	closed bool
}

// FindPathCost is FindPath plus the accumulated cost of the returned route.
func (p *PathFinder) FindPathCost(start, target AreaID, threat ThreatProvider) ([]AreaID, float64) {
	if p == nil || p.graph == nil || p.graph.Len() == 0 {
		return nil, 0
	}
	areas := p.graph.areas
	startArea, ok := areas[start]
	if !ok {
		slog.Debug("nav: path start unknown", "start", start)
		return nil, 0
	}
	goal, ok := areas[target]
	if !ok {
		slog.Debug("nav: path target unknown", "target", target)
		return nil, 0
	}
	if start == target {
		return []AreaID{start}, 0
	}

	records := map[AreaID]*searchRecord{
		start: {g: 0, h: startArea.Center.Dist(goal.Center), parent: InvalidAreaID, open: true},
	}
	open := &openQueue{}
	heap.Push(open, &openEntry{id: start, g: 0, h: records[start].h, f: records[start].h})

	for open.Len() > 0 {
		cur := heap.Pop(open).(*openEntry)
		rec := records[cur.id]
		// The record map always holds the best known g; an entry that is
		// closed or costlier than it was superseded by a later push.
		if rec.closed || cur.g > rec.g {
			if p.onStale != nil {
				p.onStale(cur.id)
			}
			continue
		}
		if cur.id == target {
			return p.reconstruct(records, start, target), rec.g
		}
		rec.open = false
		rec.closed = true

		area := areas[cur.id]
		for _, c := range area.Connections {
			next, ok := areas[c.To]
			if !ok || next.IsBlocked() {
				continue
			}
			nrec := records[c.To]
			if nrec != nil && nrec.closed {
				continue
			}
			g := rec.g + p.EdgeCost(area, c, next, threat)
			if nrec != nil && g >= nrec.g {
				continue
			}
			if nrec == nil {
				nrec = &searchRecord{h: next.Center.Dist(goal.Center)}
				records[c.To] = nrec
			}
			nrec.g = g
			nrec.parent = cur.id
			nrec.open = true
			heap.Push(open, &openEntry{id: c.To, g: g, h: nrec.h, f: g + nrec.h})
		}
	}
	return nil, 0
}

func (p *PathFinder) reconstruct(records map[AreaID]*searchRecord, start, target AreaID) []AreaID {
	var path []AreaID
	for id := target; id != InvalidAreaID; id = records[id].parent {
		path = append(path, id)
		if id == start || len(path) > len(records) {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

type openEntry struct {
	id    AreaID
	g     float64
	h     float64
	f     float64
	index int
}

// openQueue is a min-heap on f. Ties prefer the entry nearer the goal, then
// the lower id, so equal-cost searches are reproducible.
type openQueue []*openEntry

func (q openQueue) Len() int { return len(q) }

func (q openQueue) Less(i, j int) bool {
	if q[i].f != q[j].f {
		return q[i].f < q[j].f
	}
	if q[i].h != q[j].h {
		return q[i].h < q[j].h
	}
	return q[i].id < q[j].id
}

func (q openQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *openQueue) Push(x any) {
	item := x.(*openEntry)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *openQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}
