package hub

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/typerace-backend/internal/engine"
	"github.com/DoyleJ11/typerace-backend/internal/session"
	"github.com/DoyleJ11/typerace-backend/pkg/types"
)

var (
	ErrNotJoined = errors.New("connection has not joined a room")
	ErrStopped   = errors.New("hub stopped")
)

type HubMsg interface{ isHubMsg() }

// Inbound is one decoded client command from a connection.
type Inbound struct {
	Conn session.Conn
	Msg  types.ClientMessage
}

// Disconnect is posted by the transport once a connection is gone.
type Disconnect struct {
	ConnID string
}

type RoundExpired struct {
	Key session.RoundKey
}

type GetRoom struct {
	RoomID string
	Reply  chan *session.View // nil when the room does not exist
}

type GetStats struct {
	Reply chan Stats
}

type ShutdownHub struct{}

func (Inbound) isHubMsg()      {}
func (Disconnect) isHubMsg()   {}
func (RoundExpired) isHubMsg() {}
func (GetRoom) isHubMsg()      {}
func (GetStats) isHubMsg()     {}
func (ShutdownHub) isHubMsg()  {}

type Stats struct {
	Rooms       int `json:"rooms"`
	Connections int `json:"connections"`
}

// ResultSink receives every finished round. Record is called from the hub
// loop and must not block.
type ResultSink interface {
	Record(engine.RoundResult)
}

type Options struct {
	RoundDuration   time.Duration
	MinParticipants int
	Paragraphs      session.ParagraphSource
	Results         ResultSink
	InboxSize       int
	Now             func() time.Time
}

type binding struct {
	roomID        string
	participantID string
}

// Hub is the single dispatch loop for every room in the process. Commands,
// disconnects and round timers are all handled one at a time in arrival order,
// so sessions and the registry need no locking.
type Hub struct {
	inbox    chan HubMsg
	rooms    *Registry
	bindings map[string]binding // connection id -> membership
	opts     Options
	log      *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewHub(parent context.Context, opts Options, log *zap.Logger) *Hub {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 256
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:    make(chan HubMsg, opts.InboxSize),
		bindings: make(map[string]binding),
		opts:     opts,
		log:      log.With(zap.String("component", "hub")),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	h.rooms = NewRegistry(h.newSession)
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Post delivers msg to the loop. It gives up when ctx or the hub is done.
func (h *Hub) Post(ctx context.Context, msg HubMsg) bool {
	select {
	case h.inbox <- msg:
		return true
	case <-ctx.Done():
		return false
	case <-h.ctx.Done():
		return false
	}
}

// Done is closed once the loop has exited and every session is closed.
func (h *Hub) Done() <-chan struct{} { return h.done }

func (h *Hub) Room(ctx context.Context, roomID string) (*session.View, error) {
	reply := make(chan *session.View, 1)
	if !h.Post(ctx, GetRoom{RoomID: roomID, Reply: reply}) {
		return nil, ErrStopped
	}
	select {
	case v := <-reply:
		return v, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-h.done:
		return nil, ErrStopped
	}
}

func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	if !h.Post(ctx, GetStats{Reply: reply}) {
		return Stats{}, ErrStopped
	}
	select {
	case st := <-reply:
		return st, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	case <-h.done:
		return Stats{}, ErrStopped
	}
}

func (h *Hub) loop() {
	defer close(h.done)
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Inbound:
				h.dispatch(msg.Conn, msg.Msg)

			case Disconnect:
				if b, ok := h.bindings[msg.ConnID]; ok {
					h.leave(msg.ConnID, b)
				}

			case RoundExpired:
				h.expire(msg.Key)

			case GetRoom:
				if s := h.rooms.Get(msg.RoomID); s != nil {
					v := s.View()
					msg.Reply <- &v
					break
				}
				msg.Reply <- nil

			case GetStats:
				msg.Reply <- Stats{Rooms: h.rooms.Len(), Connections: len(h.bindings)}

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) newSession(roomID, hostID string) *session.Session {
	return session.New(roomID, hostID, session.Options{
		RoundDuration:   h.opts.RoundDuration,
		MinParticipants: h.opts.MinParticipants,
		Paragraphs:      h.opts.Paragraphs,
		OnRoundExpired: func(k session.RoundKey) {
			h.Post(context.Background(), RoundExpired{Key: k})
		},
	})
}

func (h *Hub) dispatch(conn session.Conn, m types.ClientMessage) {
	if m.Type == types.TypeJoinGame {
		h.join(conn, m)
		return
	}

	// Membership comes from the connection, not from the ids a client claims.
	b, ok := h.bindings[conn.ID()]
	if !ok {
		if m.Type != types.TypeLeave {
			h.reject(conn, m.Type, ErrNotJoined)
		}
		return
	}
	s := h.rooms.Get(b.roomID)
	if s == nil {
		delete(h.bindings, conn.ID())
		h.reject(conn, m.Type, ErrNotJoined)
		return
	}

	var err error
	switch m.Type {
	case types.TypeStartGame:
		if err = s.StartRound(b.participantID); err == nil {
			h.log.Info("round started",
				zap.String("room", b.roomID),
				zap.Int("round", s.Round()),
				zap.Int("participants", s.Len()))
		}
	case types.TypeTypedUpdate:
		err = s.SubmitTyped(b.participantID, m.Typed)
	case types.TypeLeave:
		h.leave(conn.ID(), b)
	case types.TypeRequestRoster:
		s.RequestRoster(conn)
	}
	if err != nil {
		h.reject(conn, m.Type, err)
	}
}

func (h *Hub) join(conn session.Conn, m types.ClientMessage) {
	// A join that will be refused must not cost the connection its current room.
	if s := h.rooms.Get(m.RoomID); s != nil && s.State() == session.StateInProgress {
		h.reject(conn, m.Type, session.ErrRoundInProgress)
		return
	}

	if b, ok := h.bindings[conn.ID()]; ok && b != (binding{roomID: m.RoomID, participantID: m.ParticipantID}) {
		h.leave(conn.ID(), b)
	}

	s, created := h.rooms.FindOrCreate(m.RoomID, m.ParticipantID)
	if created {
		h.log.Info("session created", zap.String("room", m.RoomID), zap.String("host", m.ParticipantID))
	}

	res, err := s.Join(m.ParticipantID, m.Name, conn)
	if err != nil {
		h.reject(conn, m.Type, err)
		return
	}
	if res.Replaced != nil {
		delete(h.bindings, res.Replaced.ID())
		res.Replaced.Close()
	}
	h.bindings[conn.ID()] = binding{roomID: m.RoomID, participantID: m.ParticipantID}
}

func (h *Hub) leave(connID string, b binding) {
	delete(h.bindings, connID)
	s := h.rooms.Get(b.roomID)
	if s == nil {
		return
	}
	if s.Leave(b.participantID) {
		s.Close()
		h.rooms.Remove(b.roomID)
		h.log.Info("session destroyed", zap.String("room", b.roomID))
	}
}

func (h *Hub) expire(key session.RoundKey) {
	s := h.rooms.Get(key.RoomID)
	if s == nil || s.ID() != key.SessionID {
		h.log.Debug("stale round timer", zap.String("room", key.RoomID), zap.Int("round", key.Round))
		return
	}
	res, ok := s.FinishRound(key, h.opts.Now())
	if !ok {
		return
	}
	h.log.Info("round finished",
		zap.String("room", key.RoomID),
		zap.Int("round", key.Round),
		zap.String("winner", res.Winner.ID),
		zap.Int("score", res.Winner.Score))
	if h.opts.Results != nil {
		h.opts.Results.Record(res)
	}
}

func (h *Hub) reject(conn session.Conn, command string, err error) {
	h.log.Debug("command rejected",
		zap.String("conn", conn.ID()),
		zap.String("command", command),
		zap.Error(err))
	conn.Send(types.Rejected(command, err.Error()))
}

func (h *Hub) shutdown() {
	h.rooms.Each(func(s *session.Session) { s.Close() })
	h.rooms.Clear()
	clear(h.bindings)
	h.cancel()
}
