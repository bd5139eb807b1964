package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	wire "github.com/DoyleJ11/typerace-backend/pkg/types"
)

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

// Discriminators used by the first web client.
var legacyTypes = map[string]string{
	"Join-game":       wire.TypeJoinGame,
	"request-players": wire.TypeRequestRoster,
	"player-typing":   wire.TypeTypedUpdate,
}

var knownTypes = map[string]bool{
	wire.TypeJoinGame:      true,
	wire.TypeStartGame:     true,
	wire.TypeTypedUpdate:   true,
	wire.TypeLeave:         true,
	wire.TypeRequestRoster: true,
}

var validate = validator.New()

// Decode parses one inbound frame. Errors wrap ErrMalformed or ErrUnknownType
// so the transport can decide whether the drop is worth logging.
func Decode(data []byte) (wire.ClientMessage, error) {
	var m wire.ClientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return wire.ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if t, ok := legacyTypes[m.Type]; ok {
		m.Type = t
	}
	if m.Type == "" {
		return wire.ClientMessage{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	if !knownTypes[m.Type] {
		return wire.ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}

	if m.ParticipantID == "" {
		m.ParticipantID = m.PlayerID
	}
	m.PlayerID = ""
	m.RoomID = NormalizeRoomID(m.RoomID)
	m.Name = strings.TrimSpace(m.Name)

	if err := validate.Struct(m); err != nil {
		return wire.ClientMessage{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return m, nil
}

func NormalizeRoomID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
