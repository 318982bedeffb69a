// internal/protocol/messages.go
package protocol

import (
	"encoding/json"
	"fmt"
)

// Inbound message kinds pushed by the game service.
const (
	MsgWelcome = "welcome"
	MsgState   = "state"
	MsgInfo    = "info"
)

// Outbound message kinds.
const (
	MsgJoin          = "join"
	MsgAction        = "action"
	MsgStart         = "start"
	MsgJoinWaitlist  = "join_waitlist"
	MsgLeaveWaitlist = "leave_waitlist"
)

// Action kinds accepted inside an "action" message.
const (
	ActionFold  = "fold"
	ActionCheck = "check"
	ActionCall  = "call"
	ActionRaise = "raise"
	ActionAllIn = "all_in"
)

// ServerMessage is the envelope for every inbound frame. Exactly one of the
// payload fields is populated depending on Type.
type ServerMessage struct {
	Type    string      `json:"type"`
	PID     string      `json:"pid,omitempty"`     // welcome
	State   *TableState `json:"state,omitempty"`   // state
	Message string      `json:"message,omitempty"` // info
}

// Decode parses an inbound frame. It returns an error for frames that do not
// form the expected envelope; callers drop those without touching held state.
func Decode(data []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode server frame: %w", err)
	}
	switch msg.Type {
	case MsgWelcome:
		if msg.PID == "" {
			return nil, fmt.Errorf("welcome frame missing pid")
		}
	case MsgState:
		if msg.State == nil {
			return nil, fmt.Errorf("state frame missing state object")
		}
	case MsgInfo:
		// free text, nothing to validate
	default:
		return nil, fmt.Errorf("unknown frame type %q", msg.Type)
	}
	return &msg, nil
}

// JoinMessage is the first frame sent after the channel opens. Token and PID
// are mutually exclusive: an authenticated join never requests pid reuse.
type JoinMessage struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
	PID   string `json:"pid,omitempty"`
}

// ActionMessage submits a betting action. Amount is meaningful for raise and
// call; the server ignores it otherwise.
type ActionMessage struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Amount int    `json:"amount,omitempty"`
}

// CommandMessage covers the payload-free commands: start, join_waitlist,
// leave_waitlist.
type CommandMessage struct {
	Type string `json:"type"`
}
