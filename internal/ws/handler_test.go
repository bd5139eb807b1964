package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/typerace-backend/internal/hub"
	wire "github.com/DoyleJ11/typerace-backend/pkg/types"
)

type fixedParagraph string

func (f fixedParagraph) Pick() string { return string(f) }

func newServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	return newServerWith(t, Options{OutboxSize: 16})
}

func newServerWith(t *testing.T, opts Options) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.NewHub(context.Background(), hub.Options{
		RoundDuration: time.Minute,
		Paragraphs:    fixedParagraph("one two three"),
	}, nil)
	srv := httptest.NewServer(Handler(h, opts, nil))
	t.Cleanup(func() {
		srv.Close()
		h.Inbox() <- hub.ShutdownHub{}
		<-h.Done()
	})
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func write(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, v))
}

func read(t *testing.T, conn *websocket.Conn) wire.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var m wire.ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &m))
	return m
}

func TestHandler_JoinStartAndScore(t *testing.T) {
	srv, _ := newServer(t)
	alice, bob := dial(t, srv), dial(t, srv)

	write(t, alice, map[string]string{"type": "join-game", "roomId": "R1", "name": "Alice", "participantId": "P1"})
	assert.Equal(t, wire.TypeParticipants, read(t, alice).Type)
	assert.Equal(t, "P1", read(t, alice).HostID)

	// Legacy discriminator from the first web client.
	write(t, bob, map[string]string{"type": "Join-game", "roomId": "r1", "name": "Bob", "playerId": "P2"})
	snap := read(t, bob)
	require.Equal(t, wire.TypeParticipants, snap.Type)
	assert.Len(t, snap.Participants, 2)
	read(t, bob) // host

	joined := read(t, alice)
	assert.Equal(t, wire.TypeParticipantJoined, joined.Type)
	assert.Equal(t, "P2", joined.ID)

	// Garbage and unknown types are dropped without a reply.
	require.NoError(t, alice.Write(context.Background(), websocket.MessageText, []byte("{not json")))
	write(t, alice, map[string]string{"type": "dance"})

	write(t, alice, map[string]string{"type": "start-game", "roomId": "r1"})
	assert.Equal(t, wire.TypeParticipants, read(t, alice).Type)
	started := read(t, alice)
	assert.Equal(t, wire.TypeRoundStarted, started.Type)
	assert.Equal(t, "one two three", started.Paragraph)

	read(t, bob)
	read(t, bob)
	write(t, bob, map[string]string{"type": "typed-update", "roomId": "r1", "participantId": "P2", "typed": "one two"})
	upd := read(t, alice)
	assert.Equal(t, wire.TypeScoreUpdated, upd.Type)
	require.NotNil(t, upd.Score)
	assert.Equal(t, 2, *upd.Score)
}

func TestHandler_CloseIsLeave(t *testing.T) {
	srv, h := newServer(t)
	alice, bob := dial(t, srv), dial(t, srv)

	write(t, alice, map[string]string{"type": "join-game", "roomId": "r1", "name": "Alice", "participantId": "P1"})
	read(t, alice)
	read(t, alice)
	write(t, bob, map[string]string{"type": "join-game", "roomId": "r1", "name": "Bob", "participantId": "P2"})
	read(t, bob)
	read(t, bob)
	read(t, alice) // participant-joined

	require.NoError(t, alice.Close(websocket.StatusNormalClosure, "bye"))

	left := read(t, bob)
	assert.Equal(t, wire.TypeParticipantLeft, left.Type)
	assert.Equal(t, "P1", left.ID)
	hc := read(t, bob)
	assert.Equal(t, wire.TypeHostChanged, hc.Type)
	assert.Equal(t, "P2", hc.HostID)

	v, err := h.Room(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Len(t, v.Participants, 1)
}

func TestHandler_SilentClientStaysConnected(t *testing.T) {
	srv, h := newServerWith(t, Options{PingInterval: 20 * time.Millisecond, WriteTimeout: 200 * time.Millisecond})
	alice, bob := dial(t, srv), dial(t, srv)
	// bob only writes; CloseRead keeps answering pings in the background.
	bob.CloseRead(context.Background())

	write(t, alice, map[string]string{"type": "join-game", "roomId": "r1", "name": "Alice", "participantId": "P1"})
	read(t, alice)
	read(t, alice)

	// alice says nothing for many ping intervals, then hears about bob.
	go func() {
		time.Sleep(300 * time.Millisecond)
		_ = wsjson.Write(context.Background(), bob, map[string]string{"type": "join-game", "roomId": "r1", "name": "Bob", "participantId": "P2"})
	}()
	joined := read(t, alice)
	assert.Equal(t, wire.TypeParticipantJoined, joined.Type)

	v, err := h.Room(context.Background(), "r1")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Len(t, v.Participants, 2)
}

func TestHandler_UnansweredPingIsLeave(t *testing.T) {
	srv, h := newServerWith(t, Options{PingInterval: 20 * time.Millisecond, WriteTimeout: 100 * time.Millisecond})
	alice := dial(t, srv)

	write(t, alice, map[string]string{"type": "join-game", "roomId": "r1", "name": "Alice", "participantId": "P1"})
	read(t, alice)
	read(t, alice)

	// Nothing reads alice's side any more, so pings go unanswered.
	require.Eventually(t, func() bool {
		v, err := h.Room(context.Background(), "r1")
		return err == nil && v == nil
	}, 2*time.Second, 20*time.Millisecond)
}

func TestClient_DropsWhenFull(t *testing.T) {
	c := &client{id: "c1", outbox: make(chan wire.ServerMessage, 1)}

	assert.True(t, c.Send(wire.RoundFinished()))
	assert.False(t, c.Send(wire.RoundFinished()))
	assert.True(t, c.closed)
	assert.False(t, c.Send(wire.RoundFinished()))
	c.Close() // second close is a no-op

	_, ok := <-c.outbox
	assert.True(t, ok, "buffered message still readable")
	_, ok = <-c.outbox
	assert.False(t, ok)
}
