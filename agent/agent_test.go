package agent

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffbot/ffbot-core/ipc"
	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
	"github.com/ffbot/ffbot-core/outcome"
	"github.com/ffbot/ffbot-core/planner"
	"github.com/ffbot/ffbot-core/task"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func corridorMesh() *nav.MeshFile {
	mesh := &nav.MeshFile{Map: "ff_corridor"}
	for i := 1; i <= 4; i++ {
		a := nav.MeshArea{ID: nav.AreaID(i), Center: nav.Vec3{X: float64(i-1) * 100}}
		if i < 4 {
			a.Connections = []nav.MeshConnection{{To: nav.AreaID(i + 1), TwoWay: true}}
		}
		mesh.Areas = append(mesh.Areas, a)
	}
	return mesh
}

type fixture struct {
	agent *Agent
	sink  *outcome.MemorySink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sink := outcome.NewMemorySink()
	opts := DefaultOptions()
	opts.Store = sink
	opts.Clock = planner.ClockFunc(func() time.Time { return epoch })
	return &fixture{agent: New(opts), sink: sink}
}

func envelope(t *testing.T, typ string, v any) ipc.Envelope {
	t.Helper()
	env, err := ipc.NewEnvelope(typ, v)
	require.NoError(t, err)
	return env
}

func (f *fixture) hello(t *testing.T, msg ipc.HelloMessage) ipc.AckMessage {
	t.Helper()
	resp, err := f.agent.HandleHello(envelope(t, ipc.TypeHello, msg))
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, ipc.TypeAck, resp.Type)
	var ack ipc.AckMessage
	require.NoError(t, resp.Decode(&ack))
	return ack
}

func (f *fixture) snapshot(t *testing.T, snap model.Snapshot) ipc.IntentsMessage {
	t.Helper()
	resp, err := f.agent.HandleSnapshot(envelope(t, ipc.TypeSnapshot, snap))
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.Equal(t, ipc.TypeIntents, resp.Type)
	var msg ipc.IntentsMessage
	require.NoError(t, resp.Decode(&msg))
	return msg
}

func standardHello() ipc.HelloMessage {
	return ipc.HelloMessage{
		Map:     "ff_corridor",
		Team:    model.TeamBlue,
		NavMesh: corridorMesh(),
		Bots: []model.BotState{
			{ID: 7, Team: model.TeamBlue},
			{ID: 3, Team: model.TeamBlue},
		},
	}
}

func tickSnapshot(tick uint64, alive7 bool) model.Snapshot {
	return model.Snapshot{
		Tick: tick,
		ControlPoints: []model.ControlPointInfo{
			{ID: 1, Position: nav.Vec3{X: 300}, Owner: model.TeamRed, CaptureRadius: 64},
		},
		Bots: []model.BotState{
			{ID: 7, Team: model.TeamBlue, ClassID: model.ClassSoldier, Health: 100, MaxHealth: 100, Alive: alive7},
			{ID: 3, Team: model.TeamBlue, ClassID: model.ClassSoldier, Health: 100, MaxHealth: 100, Alive: true},
			{ID: 40, Team: model.TeamRed, ClassID: model.ClassScout, Alive: true},
		},
	}
}

func TestHelloBuildsSession(t *testing.T) {
	f := newFixture(t)
	ack := f.hello(t, standardHello())

	assert.Equal(t, "ok", ack.Status)
	assert.Equal(t, f.agent.Session, ack.Session)
	assert.NotEmpty(t, ack.Session)
	assert.Equal(t, 4, ack.Areas)
	assert.Equal(t, 2, ack.Bots)

	bots := f.agent.Bots()
	require.Len(t, bots, 2)
	assert.Equal(t, uint32(3), bots[0].ID)
	assert.Equal(t, uint32(7), bots[1].ID)
	assert.Equal(t, "ff_corridor", f.agent.KnowledgeBase().MapName)
}

func TestHelloWithoutMesh(t *testing.T) {
	f := newFixture(t)
	hello := standardHello()
	hello.NavMesh = nil
	ack := f.hello(t, hello)

	assert.Equal(t, "error", ack.Status)
	assert.NotEmpty(t, ack.Error)
	assert.Zero(t, ack.Areas)
}

func TestHelloLoadsMeshAndClassesFromDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ff_disk.yaml"), []byte(`
areas:
  - {id: 1, center: {x: 0, y: 0, z: 0}, connections: [{to: 2, two_way: true}]}
  - {id: 2, center: {x: 100, y: 0, z: 0}, attributes: [crouch]}
`), 0o644))
	classFile := filepath.Join(dir, "classes.yaml")
	require.NoError(t, os.WriteFile(classFile, []byte(`
classes:
  - {id: 11, name: grunt, health: 100}
`), 0o644))

	opts := DefaultOptions()
	opts.MeshDir = dir
	opts.ClassFile = classFile
	a := New(opts)
	resp, err := a.HandleHello(envelope(t, ipc.TypeHello, ipc.HelloMessage{Map: "ff_disk", Team: model.TeamRed}))
	require.NoError(t, err)
	var ack ipc.AckMessage
	require.NoError(t, resp.Decode(&ack))

	assert.Equal(t, "ok", ack.Status)
	assert.Equal(t, 2, ack.Areas)
	area, ok := a.Graph().Node(2)
	require.True(t, ok)
	assert.True(t, area.Attrs.Has(nav.AttrCrouch))

	_, ok = a.KnowledgeBase().GetClassConfigByName("grunt")
	assert.True(t, ok)
	_, ok = a.KnowledgeBase().GetClassConfigByName("medic")
	assert.False(t, ok, "file replaces the default table")
}

func TestSnapshotBeforeHello(t *testing.T) {
	f := newFixture(t)
	_, err := f.agent.HandleSnapshot(envelope(t, ipc.TypeSnapshot, tickSnapshot(1, true)))
	assert.Error(t, err)
}

func TestSnapshotTicksBotsInIDOrder(t *testing.T) {
	f := newFixture(t)
	f.hello(t, standardHello())

	msg := f.snapshot(t, tickSnapshot(1, true))
	assert.Equal(t, uint64(1), msg.Tick)
	require.Len(t, msg.Intents, 2, "enemy bot is not ours")
	assert.Equal(t, uint32(3), msg.Intents[0].BotID)
	assert.Equal(t, uint32(7), msg.Intents[1].BotID)

	for _, in := range msg.Intents {
		assert.Equal(t, task.HLTCapturePoint.String(), in.Task)
		assert.Equal(t, task.SubTaskMoveToPosition.String(), in.SubTask)
		require.NotNil(t, in.Move)
		assert.Equal(t, nav.Vec3{X: 100}, *in.Move)
	}

	b, ok := f.agent.Bot(7)
	require.True(t, ok)
	h := b.Planner.GetCurrentHighLevelTask()
	require.NotNil(t, h)
	assert.Equal(t, 1, h.PointID)
}

func TestDeathInSnapshotAbortsTask(t *testing.T) {
	f := newFixture(t)
	f.hello(t, standardHello())
	f.snapshot(t, tickSnapshot(1, true))

	msg := f.snapshot(t, tickSnapshot(2, false))
	require.Len(t, msg.Intents, 2)
	assert.True(t, msg.Intents[1].Idle(), "dead bot does nothing")
	assert.False(t, msg.Intents[0].Idle())

	logs := f.sink.Logs()
	require.Len(t, logs, 1)
	assert.Equal(t, uint32(7), logs[0].BotID)
	assert.Equal(t, task.OutcomeAborted, logs[0].Outcome)
	assert.Equal(t, -1.0, logs[0].FinalScore)

	events := f.agent.RecentEvents()
	require.Len(t, events, 1)
	assert.Equal(t, EventBotDied, events[0].Kind)
}

func TestBotKilledMessage(t *testing.T) {
	f := newFixture(t)
	f.hello(t, standardHello())
	f.snapshot(t, tickSnapshot(1, true))

	resp, err := f.agent.HandleBotKilled(envelope(t, ipc.TypeBotKilled, ipc.BotKilledMessage{BotID: 3, Tick: 1}))
	require.NoError(t, err)
	assert.Nil(t, resp)
	require.Equal(t, 1, f.sink.Len())
	assert.Equal(t, task.OutcomeAborted, f.sink.Logs()[0].Outcome)

	b, _ := f.agent.Bot(3)
	assert.Nil(t, b.Planner.GetCurrentHighLevelTask())
	assert.False(t, b.Executor.Movement().Active())

	_, err = f.agent.HandleBotKilled(envelope(t, ipc.TypeBotKilled, ipc.BotKilledMessage{BotID: 99}))
	assert.Error(t, err)
}

func TestBotsJoiningMidSession(t *testing.T) {
	f := newFixture(t)
	hello := standardHello()
	hello.Bots = nil
	f.hello(t, hello)
	assert.Empty(t, f.agent.Bots())

	msg := f.snapshot(t, tickSnapshot(1, true))
	require.Len(t, msg.Intents, 2)
	assert.Len(t, f.agent.Bots(), 2)
}

func TestAgentOverConnection(t *testing.T) {
	f := newFixture(t)
	server, client := net.Pipe()
	defer client.Close()

	c := ipc.NewConnection(server, nil)
	f.agent.Register(c)
	done := make(chan struct{})
	go func() {
		c.ReadLoop()
		close(done)
	}()

	require.NoError(t, ipc.WriteEnvelope(client, envelope(t, ipc.TypeHello, standardHello())))
	resp, err := ipc.ReadEnvelope(client)
	require.NoError(t, err)
	assert.Equal(t, ipc.TypeAck, resp.Type)

	require.NoError(t, ipc.WriteEnvelope(client, envelope(t, ipc.TypeSnapshot, tickSnapshot(1, true))))
	resp, err = ipc.ReadEnvelope(client)
	require.NoError(t, err)
	require.Equal(t, ipc.TypeIntents, resp.Type)
	var msg ipc.IntentsMessage
	require.NoError(t, resp.Decode(&msg))
	assert.Len(t, msg.Intents, 2)

	require.NoError(t, client.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read loop did not exit")
	}
}
