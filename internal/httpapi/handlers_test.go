package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/typerace-backend/internal/engine"
	"github.com/DoyleJ11/typerace-backend/internal/hub"
	"github.com/DoyleJ11/typerace-backend/internal/session"
	"github.com/DoyleJ11/typerace-backend/internal/store"
	"github.com/DoyleJ11/typerace-backend/internal/ws"
	wire "github.com/DoyleJ11/typerace-backend/pkg/types"
)

type stubRooms struct {
	rooms map[string]*session.View
	calls int
	err   error
}

func (s *stubRooms) Room(_ context.Context, id string) (*session.View, error) {
	s.calls++
	return s.rooms[id], s.err
}

func (s *stubRooms) Stats(context.Context) (hub.Stats, error) {
	return hub.Stats{Rooms: len(s.rooms)}, s.err
}

type nopConn struct{ id string }

func (c nopConn) ID() string                 { return c.id }
func (nopConn) Send(wire.ServerMessage) bool { return true }
func (nopConn) Close()                       {}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode()
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, `^[a-z0-9]{6}$`, code)
}

func TestCreateRoom(t *testing.T) {
	rooms := &stubRooms{}
	rec := httptest.NewRecorder()
	CreateRoom(rooms, nil)(rec, httptest.NewRequest(http.MethodPost, "/rooms", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Len(t, body.Code, 6)
	assert.Equal(t, 1, rooms.calls)
}

func TestCreateRoom_HubDown(t *testing.T) {
	rooms := &stubRooms{err: errors.New("hub stopped")}
	rec := httptest.NewRecorder()
	CreateRoom(rooms, nil)(rec, httptest.NewRequest(http.MethodPost, "/rooms", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRoutes_RoomLifecycle(t *testing.T) {
	h := hub.NewHub(context.Background(), hub.Options{RoundDuration: time.Minute}, nil)
	t.Cleanup(func() {
		h.Inbox() <- hub.ShutdownHub{}
		<-h.Done()
	})
	mem := store.NewMemory()
	srv := httptest.NewServer(SetupRoutes(h, mem, ws.Options{}, nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/rooms/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	h.Inbox() <- hub.Inbound{Conn: nopConn{id: "c1"}, Msg: wire.ClientMessage{
		Type: wire.TypeJoinGame, RoomID: "abc123", ParticipantID: "P1", Name: "Alice",
	}}

	resp, err = http.Get(srv.URL + "/rooms/ABC123")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v session.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	assert.Equal(t, "P1", v.HostID)
	assert.Equal(t, session.StateNotStarted, v.State)
	assert.Equal(t, []wire.Participant{{ID: "P1", Name: "Alice"}}, v.Participants)

	health, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer health.Body.Close()
	var st hub.Stats
	require.NoError(t, json.NewDecoder(health.Body).Decode(&st))
	assert.Equal(t, hub.Stats{Rooms: 1, Connections: 1}, st)
}

func TestRoomResults(t *testing.T) {
	mem := store.NewMemory()
	roster := []wire.Participant{{ID: "P1", Name: "Alice", Score: 4}, {ID: "P2", Name: "Bob", Score: 1}}
	require.NoError(t, mem.SaveResult(context.Background(),
		engine.NewRoundResult("r1", "s1", 1, "a b c d", roster, time.Now())))

	h := hub.NewHub(context.Background(), hub.Options{RoundDuration: time.Minute}, nil)
	t.Cleanup(func() {
		h.Inbox() <- hub.ShutdownHub{}
		<-h.Done()
	})
	srv := httptest.NewServer(SetupRoutes(h, mem, ws.Options{}, nil))
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/rooms/r1/results")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []resultView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 1)
	require.NotNil(t, out[0].Winner)
	assert.Equal(t, "P1", out[0].Winner.ID)

	bad, err := http.Get(srv.URL + "/rooms/r1/results?limit=0")
	require.NoError(t, err)
	bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}
