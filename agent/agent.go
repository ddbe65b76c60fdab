// Package agent runs one game server session: it turns the plugin's hello
// and per-tick snapshots into planner and executor calls and answers with
// intents.
package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/ffbot/ffbot-core/executor"
	"github.com/ffbot/ffbot-core/ipc"
	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
	"github.com/ffbot/ffbot-core/outcome"
	"github.com/ffbot/ffbot-core/planner"
	"github.com/ffbot/ffbot-core/rules"
)

const maxRecentEvents = 32

// Options carries everything an Agent needs that does not come over the wire.
type Options struct {
	Costs          nav.CostConfig
	ThreatPerEnemy float64
	Planner        planner.Config
	Executor       executor.Config
	MeshDir        string
	ClassFile      string
	Store          outcome.Store
	Engine         *rules.Engine
	Clock          planner.Clock
	Combat         executor.CombatBehavior
}

// DefaultOptions matches the defaults of the planner and executor packages.
func DefaultOptions() Options {
	return Options{
		Costs:          nav.DefaultCosts(),
		ThreatPerEnemy: model.DefaultThreatPerEnemy,
		Planner:        planner.DefaultConfig(),
		Executor:       executor.DefaultConfig(),
	}
}

// Bot is one controlled player: its planner, movement and executor.
type Bot struct {
	ID       uint32
	Planner  *planner.Planner
	Executor *executor.Executor

	state model.BotState
}

// Agent owns the decision-making for a single game server connection.
type Agent struct {
	Session string
	Map     string
	Team    int

	opts  Options
	graph *nav.Graph
	pf    *nav.PathFinder
	kb    *model.KnowledgeBase
	bots  map[uint32]*Bot
	order []uint32

	prev   *stateSnapshot
	events []Event
}

func New(opts Options) *Agent {
	if opts.Store == nil {
		opts.Store = outcome.NopStore()
	}
	g := nav.NewGraph()
	return &Agent{
		Session: uuid.NewString(),
		opts:    opts,
		graph:   g,
		pf:      nav.NewPathFinder(g, opts.Costs),
		bots:    make(map[uint32]*Bot),
	}
}

// Register installs the agent's handlers on c.
func (a *Agent) Register(c *ipc.Connection) {
	c.Session = a.Session
	c.RegisterHandler(ipc.TypeHello, a.HandleHello)
	c.RegisterHandler(ipc.TypeSnapshot, a.HandleSnapshot)
	c.RegisterHandler(ipc.TypeBotKilled, a.HandleBotKilled)
}

// HandleHello loads the map's nav mesh and class table and creates one bot
// per roster entry. Setup problems are reported in the ack rather than as
// handler errors so the plugin always gets an answer.
func (a *Agent) HandleHello(env ipc.Envelope) (*ipc.Envelope, error) {
	var hello ipc.HelloMessage
	if err := env.Decode(&hello); err != nil {
		return nil, err
	}

	a.Map = hello.Map
	a.Team = hello.Team
	a.kb = model.NewKnowledgeBase(hello.Team, a.graph)
	a.kb.MapName = hello.Map
	a.kb.SetThreatPerEnemy(a.opts.ThreatPerEnemy)
	a.bots = make(map[uint32]*Bot)
	a.order = a.order[:0]
	a.prev = nil
	a.events = nil

	ack := ipc.AckMessage{Status: "ok", Session: a.Session}
	if err := a.loadMesh(hello); err != nil {
		slog.Error("nav mesh unavailable", "session", a.Session, "map", a.Map, "error", err)
		ack.Status = "error"
		ack.Error = err.Error()
	}
	if err := a.loadClasses(hello); err != nil {
		slog.Warn("class table unavailable, using defaults", "session", a.Session, "error", err)
	}

	for _, b := range hello.Bots {
		a.ensureBot(b.ID)
	}
	ack.Areas = a.graph.Len()
	ack.Bots = len(a.bots)

	slog.Info("session started",
		"session", a.Session,
		"map", a.Map,
		"team", a.Team,
		"areas", ack.Areas,
		"bots", ack.Bots,
	)

	out, err := ipc.NewEnvelope(ipc.TypeAck, ack)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *Agent) loadMesh(hello ipc.HelloMessage) error {
	var mesh nav.MeshFile
	switch {
	case hello.NavMesh != nil:
		mesh = *hello.NavMesh
	case a.opts.MeshDir != "":
		m, err := nav.ReadMeshFile(MeshPath(a.opts.MeshDir, hello.Map))
		if err != nil {
			a.graph.Clear()
			return err
		}
		mesh = m
	default:
		a.graph.Clear()
		return errors.New("no nav mesh in hello and no mesh directory configured")
	}
	skipped, err := nav.LoadNavMesh(a.graph, mesh)
	if err != nil {
		a.graph.Clear()
		return err
	}
	if skipped > 0 {
		slog.Warn("nav mesh connections skipped", "map", hello.Map, "count", skipped)
	}
	return nil
}

func (a *Agent) loadClasses(hello ipc.HelloMessage) error {
	if len(hello.Classes) > 0 {
		a.kb.SetClassConfigs(hello.Classes)
		return nil
	}
	if a.opts.ClassFile == "" {
		return nil
	}
	classes, err := model.LoadClassConfigs(a.opts.ClassFile)
	if err != nil {
		return err
	}
	a.kb.SetClassConfigs(classes)
	return nil
}

func (a *Agent) ensureBot(id uint32) *Bot {
	if b, ok := a.bots[id]; ok {
		return b
	}
	p := planner.New(id, a.kb, a.opts.Store, a.opts.Engine, a.opts.Planner, a.opts.Clock)
	m := executor.NewMovement(a.pf, a.kb, a.opts.Executor.ReachRadius, a.opts.Executor.SearchRadius)
	b := &Bot{
		ID:       id,
		Planner:  p,
		Executor: executor.New(p, a.kb, m, a.opts.Combat, a.opts.Executor, a.opts.Clock),
	}
	a.bots[id] = b
	i, _ := slices.BinarySearch(a.order, id)
	a.order = slices.Insert(a.order, i, id)
	return b
}

// HandleSnapshot refreshes the knowledge base, reacts to deaths, then ticks
// every bot in ascending id order and replies with their intents.
func (a *Agent) HandleSnapshot(env ipc.Envelope) (*ipc.Envelope, error) {
	if a.kb == nil {
		return nil, errors.New("snapshot before hello")
	}
	var snap ipc.SnapshotMessage
	if err := env.Decode(&snap); err != nil {
		return nil, err
	}

	msg := a.Step(snap)
	out, err := ipc.NewEnvelope(ipc.TypeIntents, msg)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Step runs one tick against snap without touching the wire.
func (a *Agent) Step(snap model.Snapshot) ipc.IntentsMessage {
	a.kb.ReplaceDynamic(snap.Tick, snap.ControlPoints, snap.Entities)

	events := detectEvents(snap, a.Team, a.prev)
	cur := takeSnapshot(snap, a.Team)
	a.prev = &cur
	for _, ev := range events {
		a.record(ev)
		if ev.Kind == EventBotDied {
			if b, ok := a.bots[ev.BotID]; ok {
				b.Planner.OnBotKilled()
			}
		}
	}

	seen := make(map[uint32]bool, len(snap.Bots))
	for _, s := range snap.Bots {
		if s.Team != a.Team && a.Team != model.TeamNone {
			continue
		}
		a.ensureBot(s.ID).state = s
		seen[s.ID] = true
	}

	msg := ipc.IntentsMessage{Tick: snap.Tick, Intents: make([]executor.Intent, 0, len(a.order))}
	for _, id := range a.order {
		b := a.bots[id]
		if !seen[id] {
			continue
		}
		msg.Intents = append(msg.Intents, b.Executor.Tick(&b.state))
	}
	return msg
}

func (a *Agent) record(ev Event) {
	slog.Info("game event", "session", a.Session, "kind", ev.Kind, "tick", ev.Tick, "detail", ev.Detail)
	a.events = append(a.events, ev)
	if n := len(a.events); n > maxRecentEvents {
		a.events = slices.Delete(a.events, 0, n-maxRecentEvents)
	}
}

// HandleBotKilled is the plugin's explicit death notice. It never replies.
func (a *Agent) HandleBotKilled(env ipc.Envelope) (*ipc.Envelope, error) {
	var msg ipc.BotKilledMessage
	if err := env.Decode(&msg); err != nil {
		return nil, err
	}
	b, ok := a.bots[msg.BotID]
	if !ok {
		return nil, fmt.Errorf("bot_killed for unknown bot %d", msg.BotID)
	}
	b.Planner.OnBotKilled()
	b.Executor.Movement().Clear()
	return nil, nil
}

// Bots returns the controlled bots in ascending id order.
func (a *Agent) Bots() []*Bot {
	out := make([]*Bot, 0, len(a.order))
	for _, id := range a.order {
		out = append(out, a.bots[id])
	}
	return out
}

func (a *Agent) Bot(id uint32) (*Bot, bool) {
	b, ok := a.bots[id]
	return b, ok
}

// RecentEvents returns a copy of the last events seen, oldest first.
func (a *Agent) RecentEvents() []Event {
	return slices.Clone(a.events)
}

func (a *Agent) KnowledgeBase() *model.KnowledgeBase { return a.kb }

func (a *Agent) Graph() *nav.Graph { return a.graph }

// MeshPath is where the agent looks for a map's mesh when the hello carries none.
func MeshPath(dir, mapName string) string {
	return filepath.Join(dir, mapName+".yaml")
}
