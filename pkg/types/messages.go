package types

// Client -> Server
// join-game:
//   roomId: string
//   name: string
//   participantId: string
//
// start-game:
//   roomId: string
//
// typed-update:
//   roomId: string
//   participantId: string
//   typed: string
//
// leave:
//   roomId: string
//   participantId: string
//
// request-roster:
//   roomId: string

// Server -> Client
// participants:       { participants: Participant[] }
// participant-joined: { id, name, score }
// participant-left:   { id }
// host:               { hostId }   // sent to a joining connection only
// host-changed:       { hostId }
// score-updated:      { id, score }
// round-started:      { paragraph, durationMs }
// round-finished:     {}
// rejected:           { command, reason }   // sent to the requester only

const (
	TypeJoinGame      = "join-game"
	TypeStartGame     = "start-game"
	TypeTypedUpdate   = "typed-update"
	TypeLeave         = "leave"
	TypeRequestRoster = "request-roster"
)

const (
	TypeParticipants      = "participants"
	TypeParticipantJoined = "participant-joined"
	TypeParticipantLeft   = "participant-left"
	TypeHost              = "host"
	TypeHostChanged       = "host-changed"
	TypeScoreUpdated      = "score-updated"
	TypeRoundStarted      = "round-started"
	TypeRoundFinished     = "round-finished"
	TypeRejected          = "rejected"
)

type ClientMessage struct {
	Type          string `json:"type" validate:"required"`
	RoomID        string `json:"roomId,omitempty" validate:"required_if=Type join-game,max=64"`
	Name          string `json:"name,omitempty" validate:"required_if=Type join-game,max=64"`
	ParticipantID string `json:"participantId,omitempty" validate:"required_if=Type join-game,max=128"`
	Typed         string `json:"typed,omitempty"`

	// Older clients send playerId.
	PlayerID string `json:"playerId,omitempty"`
}

type ServerMessage struct {
	Type         string        `json:"type"`
	ID           string        `json:"id,omitempty"`
	Name         string        `json:"name,omitempty"`
	Score        *int          `json:"score,omitempty"`
	HostID       string        `json:"hostId,omitempty"`
	Participants []Participant `json:"participants,omitempty"`
	Paragraph    string        `json:"paragraph,omitempty"`
	DurationMS   int64         `json:"durationMs,omitempty"`
	Command      string        `json:"command,omitempty"`
	Reason       string        `json:"reason,omitempty"`
}

func ParticipantsSnapshot(list []Participant) ServerMessage {
	return ServerMessage{Type: TypeParticipants, Participants: list}
}

func ParticipantJoined(p Participant) ServerMessage {
	score := p.Score
	return ServerMessage{Type: TypeParticipantJoined, ID: p.ID, Name: p.Name, Score: &score}
}

func ParticipantLeft(id string) ServerMessage {
	return ServerMessage{Type: TypeParticipantLeft, ID: id}
}

func Host(hostID string) ServerMessage {
	return ServerMessage{Type: TypeHost, HostID: hostID}
}

func HostChanged(hostID string) ServerMessage {
	return ServerMessage{Type: TypeHostChanged, HostID: hostID}
}

func ScoreUpdated(id string, score int) ServerMessage {
	return ServerMessage{Type: TypeScoreUpdated, ID: id, Score: &score}
}

func RoundStarted(paragraph string, durationMS int64) ServerMessage {
	return ServerMessage{Type: TypeRoundStarted, Paragraph: paragraph, DurationMS: durationMS}
}

func RoundFinished() ServerMessage {
	return ServerMessage{Type: TypeRoundFinished}
}

func Rejected(command, reason string) ServerMessage {
	return ServerMessage{Type: TypeRejected, Command: command, Reason: reason}
}
