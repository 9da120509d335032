package ws

import (
	"encoding/json"

	"github.com/Mr-incredible442/twins-followers/internal/models"
)

// Envelope is one client command: an action name plus its payload.
type Envelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Ack is the direct reply to one command. Exactly one of Data or Error
// is set.
type Ack struct {
	Action  string      `json:"action"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody carries the taxonomy kind alongside the message.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Event is a server-initiated broadcast.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func ack(action string, data interface{}) Ack {
	return Ack{Action: action, Success: true, Data: data}
}

func nack(action string, err error) Ack {
	return Ack{Action: action, Success: false, Error: &ErrorBody{
		Kind:    kindName(models.KindOf(err)),
		Message: err.Error(),
	}}
}

func kindName(k models.ErrorKind) string {
	switch k {
	case models.KindValidation:
		return "validation"
	case models.KindIllegalTransition:
		return "illegal-transition"
	case models.KindNotFound:
		return "not-found"
	case models.KindResourceExhausted:
		return "resource-exhausted"
	case models.KindCapacity:
		return "capacity"
	case models.KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Payload shapes for the client commands.

type createRoomPayload struct {
	Name       string `json:"name"`
	IsPrivate  bool   `json:"isPrivate"`
	Password   string `json:"password"`
	PlayerName string `json:"playerName"`
}

type joinRoomPayload struct {
	RoomID     string `json:"roomId"`
	Password   string `json:"password"`
	PlayerName string `json:"playerName"`
}

type discardCardPayload struct {
	Card models.Card `json:"card"`
}

type restoreStatePayload struct {
	PlayerName string `json:"playerName"`
}

type playerStatsPayload struct {
	PlayerName string `json:"playerName"`
}
