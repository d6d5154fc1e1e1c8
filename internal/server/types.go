// Package server defines the JSON wire protocol exchanged with clients and
// utility helpers that are reused across client and hub logic.
package server

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/Tyrowin/relaychat/internal/chat"
)

// Inbound event names.
const (
	eventJoinPublic     = "joinPublic"
	eventPublicMessage  = "publicMessage"
	eventCreatePrivate  = "createPrivate"
	eventJoinPrivate    = "joinPrivate"
	eventPrivateMessage = "privateMessage"
	eventLeavePrivate   = "leavePrivate"

	eventAck = "ack"
)

// Envelope is the frame format in both directions. Requests that carry an
// ID are answered with an "ack" envelope echoing it.
type Envelope struct {
	Event string          `json:"event"`
	ID    *int64          `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// outbound is the encoded form of an Envelope built by the server.
type outbound struct {
	Event string `json:"event"`
	ID    *int64 `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// JoinPublicRequest is the payload of joinPublic.
type JoinPublicRequest struct {
	Username string `json:"username"`
}

// PublicMessageRequest is the payload of publicMessage.
type PublicMessageRequest struct {
	Text string `json:"text"`
}

// CreatePrivateRequest is the payload of createPrivate.
type CreatePrivateRequest struct {
	RoomName string `json:"roomName"`
	Password string `json:"password"`
}

// JoinPrivateRequest is the payload of joinPrivate.
type JoinPrivateRequest struct {
	RoomID   string `json:"roomId"`
	Password string `json:"password"`
	Username string `json:"username"`
}

// PrivateMessageRequest is the payload of privateMessage.
type PrivateMessageRequest struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// LeavePrivateRequest is the payload of leavePrivate.
type LeavePrivateRequest struct {
	RoomID string `json:"roomId"`
}

// AckResponse answers createPrivate and joinPrivate.
type AckResponse struct {
	Success  bool   `json:"success"`
	RoomID   string `json:"roomId,omitempty"`
	RoomLink string `json:"roomLink,omitempty"`
	RoomName string `json:"roomName,omitempty"`
	Message  string `json:"message,omitempty"`
}

// BroadcastMessage is a payload queued on the hub for a set of connections.
type BroadcastMessage struct {
	Targets []chat.ConnectionID
	Payload []byte
}

// User-facing failure messages.
const (
	msgCreateRequired = "Room name and password are required."
	msgUsernameNeeded = "Username is required."
	msgRoomMissing    = "Room does not exist."
	msgBadPassword    = "Incorrect password."
	msgJoinFailed     = "Room does not exist or password is incorrect."
	msgInternal       = "Internal server error."
)

// encodeEvent renders a relay event as a wire envelope.
func encodeEvent(ev chat.Event) ([]byte, error) {
	return json.Marshal(outbound{Event: ev.Name, Data: ev.Data})
}

// encodeAck renders the reply to the request with the given id.
func encodeAck(id int64, resp AckResponse) ([]byte, error) {
	return json.Marshal(outbound{Event: eventAck, ID: &id, Data: resp})
}

// failureMessage maps a core error to the message shown to the caller.
func failureMessage(event string, err error, conceal bool) string {
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		if event == eventCreatePrivate {
			return msgCreateRequired
		}
		return msgUsernameNeeded
	case errors.Is(err, chat.ErrNotFound):
		if conceal {
			return msgJoinFailed
		}
		return msgRoomMissing
	case errors.Is(err, chat.ErrBadPassword):
		if conceal {
			return msgJoinFailed
		}
		return msgBadPassword
	default:
		return msgInternal
	}
}

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
