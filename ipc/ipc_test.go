package ipc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	env, err := NewEnvelope(TypeBotKilled, BotKilledMessage{BotID: 7, Tick: 42})
	require.NoError(t, err)
	require.NoError(t, WriteEnvelope(&buf, env))

	assert.Equal(t, uint32(buf.Len()-4), binary.LittleEndian.Uint32(buf.Bytes()[:4]))

	got, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	assert.Equal(t, TypeBotKilled, got.Type)

	var msg BotKilledMessage
	require.NoError(t, got.Decode(&msg))
	assert.Equal(t, uint32(7), msg.BotID)
	assert.Equal(t, uint64(42), msg.Tick)
}

func TestReadEnvelopeRejectsBadLengths(t *testing.T) {
	for _, n := range []uint32{0, MaxFrameSize + 1} {
		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, n))
		_, err := ReadEnvelope(&buf)
		assert.ErrorIs(t, err, ErrFrameTooLarge, "length %d", n)
	}
}

func TestReadEnvelopeTruncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(10)))
	buf.WriteString(`{"ty`)
	_, err := ReadEnvelope(&buf)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrFrameTooLarge))
}

func TestHelloCarriesMesh(t *testing.T) {
	cost := 2.0
	hello := HelloMessage{
		Map:  "ff_2fort",
		Team: model.TeamBlue,
		NavMesh: &nav.MeshFile{Areas: []nav.MeshArea{
			{ID: 1, Attributes: []string{"crouch"}, Connections: []nav.MeshConnection{{To: 2, Type: nav.ConnJumpOneWay, Cost: &cost}}},
			{ID: 2, Center: nav.Vec3{X: 10}},
		}},
		Bots: []model.BotState{{ID: 3, Team: model.TeamBlue, Alive: true}},
	}
	var buf bytes.Buffer
	env, err := NewEnvelope(TypeHello, hello)
	require.NoError(t, err)
	require.NoError(t, WriteEnvelope(&buf, env))

	got, err := ReadEnvelope(&buf)
	require.NoError(t, err)
	var decoded HelloMessage
	require.NoError(t, got.Decode(&decoded))
	require.NotNil(t, decoded.NavMesh)
	require.Len(t, decoded.NavMesh.Areas, 2)
	conn := decoded.NavMesh.Areas[0].Connections[0]
	assert.Equal(t, nav.ConnJumpOneWay, conn.Type)
	require.NotNil(t, conn.Cost)
	assert.Equal(t, 2.0, *conn.Cost)
	assert.Equal(t, hello.Bots, decoded.Bots)
}

func TestConnectionReadLoop(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	calls := 0
	c := NewConnection(server, nil)
	c.RegisterHandler(TypeHello, func(env Envelope) (*Envelope, error) {
		calls++
		ack, err := NewEnvelope(TypeAck, AckMessage{Status: "ok"})
		return &ack, err
	})
	c.RegisterHandler(TypeBotKilled, func(env Envelope) (*Envelope, error) {
		calls++
		return nil, errors.New("boom")
	})

	done := make(chan struct{})
	go func() {
		c.ReadLoop()
		close(done)
	}()

	send := func(typ string, v any) {
		env, err := NewEnvelope(typ, v)
		require.NoError(t, err)
		require.NoError(t, WriteEnvelope(client, env))
	}

	// Unknown types and failing handlers produce no reply; the loop keeps going.
	send("mystery", struct{}{})
	send(TypeBotKilled, BotKilledMessage{BotID: 1})
	send(TypeHello, HelloMessage{Map: "ff_well"})

	resp, err := ReadEnvelope(client)
	require.NoError(t, err)
	assert.Equal(t, TypeAck, resp.Type)
	var ack AckMessage
	require.NoError(t, resp.Decode(&ack))
	assert.Equal(t, "ok", ack.Status)
	assert.Equal(t, 2, calls)

	require.NoError(t, client.Close())
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("read loop did not exit after close")
	}
}

func TestConnectionSend(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	c := NewConnection(server, nil)
	errc := make(chan error, 1)
	go func() { errc <- c.Send(TypeIntents, IntentsMessage{Tick: 9}) }()

	env, err := ReadEnvelope(client)
	require.NoError(t, err)
	require.NoError(t, <-errc)
	var msg IntentsMessage
	require.NoError(t, env.Decode(&msg))
	assert.Equal(t, uint64(9), msg.Tick)
}
