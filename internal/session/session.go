package session

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/DoyleJ11/typerace-backend/internal/engine"
	"github.com/DoyleJ11/typerace-backend/pkg/types"
)

var (
	ErrRoundInProgress       = errors.New("round in progress")
	ErrRoundNotActive        = errors.New("no round in progress")
	ErrNotHost               = errors.New("only the host can start a round")
	ErrNotEnoughParticipants = errors.New("not enough participants")
	ErrUnknownParticipant    = errors.New("unknown participant")
)

type State string

const (
	StateNotStarted State = "not-started"
	StateInProgress State = "in-progress"
	StateFinished   State = "finished"
)

// Conn is one participant's duplex link as seen by a session.
type Conn interface {
	ID() string
	// Send must not block. It reports false when the message was dropped.
	Send(msg types.ServerMessage) bool
	Close()
}

type ParagraphSource interface {
	Pick() string
}

// RoundKey identifies one round of one session instance. A timer fire whose
// key no longer matches the live session is stale.
type RoundKey struct {
	RoomID    string
	SessionID string
	Round     int
}

type Options struct {
	RoundDuration   time.Duration
	MinParticipants int
	Paragraphs      ParagraphSource
	// OnRoundExpired runs on the timer goroutine. It must only hand the key
	// back to whoever serializes access to the session.
	OnRoundExpired func(RoundKey)
}

type participant struct {
	id    string
	name  string
	score int
	conn  Conn
}

// Session is one room. It is not safe for concurrent use; the hub loop is its
// only caller.
type Session struct {
	id           string
	roomID       string
	hostID       string
	state        State
	paragraph    string
	round        int
	participants []*participant
	timer        *time.Timer
	opts         Options
}

type JoinResult struct {
	Rejoined bool
	// Replaced is the connection a rejoin took over from, if any.
	Replaced Conn
}

type View struct {
	RoomID       string              `json:"roomId"`
	SessionID    string              `json:"sessionId"`
	HostID       string              `json:"hostId"`
	State        State               `json:"state"`
	Round        int                 `json:"round"`
	Paragraph    string              `json:"paragraph,omitempty"`
	Participants []types.Participant `json:"participants"`
	Leader       *types.Participant  `json:"leader,omitempty"`
}

func New(roomID, hostID string, opts Options) *Session {
	if opts.MinParticipants < 1 {
		opts.MinParticipants = 1
	}
	if opts.Paragraphs == nil {
		opts.Paragraphs = engine.NewParagraphs(nil)
	}
	return &Session{
		id:     uuid.NewString(),
		roomID: roomID,
		hostID: hostID,
		state:  StateNotStarted,
		opts:   opts,
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) RoomID() string { return s.roomID }
func (s *Session) HostID() string { return s.hostID }
func (s *Session) State() State   { return s.state }
func (s *Session) Round() int     { return s.round }
func (s *Session) Len() int       { return len(s.participants) }

func (s *Session) Join(id, name string, conn Conn) (JoinResult, error) {
	if s.state == StateInProgress {
		return JoinResult{}, ErrRoundInProgress
	}

	if p := s.find(id); p != nil {
		res := JoinResult{Rejoined: true}
		if p.conn.ID() != conn.ID() {
			res.Replaced = p.conn
			p.conn = conn
		}
		s.sendSnapshot(conn)
		return res, nil
	}

	p := &participant{id: id, name: name, conn: conn}
	s.broadcast(types.ParticipantJoined(p.view()))
	s.participants = append(s.participants, p)
	s.sendSnapshot(conn)
	return JoinResult{}, nil
}

// Leave removes the participant and reports whether the session is now empty.
// An empty session must be dropped by its owner.
func (s *Session) Leave(id string) (empty bool) {
	i := slices.IndexFunc(s.participants, func(p *participant) bool { return p.id == id })
	if i < 0 {
		return len(s.participants) == 0
	}
	s.participants = slices.Delete(s.participants, i, i+1)
	if len(s.participants) == 0 {
		return true
	}

	s.broadcast(types.ParticipantLeft(id))
	if id == s.hostID {
		s.hostID = s.participants[0].id
		s.broadcast(types.HostChanged(s.hostID))
	}
	return false
}

func (s *Session) StartRound(requesterID string) error {
	if requesterID != s.hostID {
		return ErrNotHost
	}
	if s.state == StateInProgress {
		return ErrRoundInProgress
	}
	if len(s.participants) < s.opts.MinParticipants {
		return ErrNotEnoughParticipants
	}

	for _, p := range s.participants {
		p.score = 0
	}
	s.broadcast(types.ParticipantsSnapshot(s.roster()))

	s.paragraph = s.opts.Paragraphs.Pick()
	s.round++
	s.state = StateInProgress
	s.broadcast(types.RoundStarted(s.paragraph, s.opts.RoundDuration.Milliseconds()))

	key := RoundKey{RoomID: s.roomID, SessionID: s.id, Round: s.round}
	if s.opts.OnRoundExpired != nil {
		s.timer = time.AfterFunc(s.opts.RoundDuration, func() { s.opts.OnRoundExpired(key) })
	}
	return nil
}

// FinishRound ends the round named by key. Keys from an earlier round or
// another session instance are ignored.
func (s *Session) FinishRound(key RoundKey, at time.Time) (engine.RoundResult, bool) {
	if key.SessionID != s.id || key.Round != s.round || s.state != StateInProgress {
		return engine.RoundResult{}, false
	}
	s.timer = nil
	s.state = StateFinished

	roster := s.roster()
	s.broadcast(types.RoundFinished())
	s.broadcast(types.ParticipantsSnapshot(roster))
	return engine.NewRoundResult(s.roomID, s.id, s.round, s.paragraph, roster, at), true
}

func (s *Session) SubmitTyped(id, typed string) error {
	if s.state != StateInProgress {
		return ErrRoundNotActive
	}
	p := s.find(id)
	if p == nil {
		return ErrUnknownParticipant
	}
	p.score = engine.Score(s.paragraph, typed)
	s.broadcast(types.ScoreUpdated(p.id, p.score))
	return nil
}

func (s *Session) RequestRoster(conn Conn) {
	conn.Send(types.ParticipantsSnapshot(s.roster()))
}

func (s *Session) Winner() (types.Participant, bool) {
	return engine.Winner(s.roster())
}

func (s *Session) View() View {
	v := View{
		RoomID:       s.roomID,
		SessionID:    s.id,
		HostID:       s.hostID,
		State:        s.state,
		Round:        s.round,
		Paragraph:    s.paragraph,
		Participants: s.roster(),
	}
	if w, ok := s.Winner(); ok {
		v.Leader = &w
	}
	return v
}

// Close stops a pending round timer and closes every member connection.
func (s *Session) Close() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	for _, p := range s.participants {
		p.conn.Close()
	}
}

func (s *Session) find(id string) *participant {
	for _, p := range s.participants {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (s *Session) roster() []types.Participant {
	return lo.Map(s.participants, func(p *participant, _ int) types.Participant {
		return p.view()
	})
}

func (s *Session) sendSnapshot(conn Conn) {
	conn.Send(types.ParticipantsSnapshot(s.roster()))
	conn.Send(types.Host(s.hostID))
}

func (s *Session) broadcast(msg types.ServerMessage) {
	members := slices.Clone(s.participants)
	for _, p := range members {
		// A false return means the transport dropped the connection; its
		// disconnect comes back through the hub as a leave.
		p.conn.Send(msg)
	}
}

func (p *participant) view() types.Participant {
	return types.Participant{ID: p.id, Name: p.name, Score: p.score}
}
