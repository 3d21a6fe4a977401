// Package proto holds the event names and JSON payloads exchanged with the
// chat server over the realtime transport.
package proto

import (
	"encoding/json"
	"time"
)

// Inbound events (server → client).
const (
	EventReceiveMessage = "receive_message"
	EventMessageUpdated = "message_updated"
	EventMessageDeleted = "message_deleted"
	EventOnlineUsers    = "online_users"
	EventCallAccepted   = "call_accepted"
)

// Events used in both directions. The payload differs per direction.
const (
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"
	EventCallUser   = "call_user"
	EventEndCall    = "end_call"
)

// Outbound events (client → server).
const (
	EventJoinChannel  = "join_channel"
	EventLeaveChannel = "leave_channel"
	EventSendMessage  = "send_message"
	EventAnswerCall   = "answer_call"
)

// Synthetic events produced by the transport itself, never sent on the wire.
const (
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

const (
	CallTypeVideo = "video"
	CallTypeAudio = "audio"
)

// Frame is one websocket frame on the wire.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Event is an inbound frame as delivered to transport subscribers.
type Event struct {
	Name string
	Data json.RawMessage
}

// UserSummary is the public projection of a user.
type UserSummary struct {
	ID       string `json:"_id" validate:"required"`
	Username string `json:"username"`
}

// MessagePayload is a chat message as serialized by the server.
type MessagePayload struct {
	ID        string      `json:"_id" validate:"required"`
	Channel   string      `json:"channel" validate:"required"`
	Sender    UserSummary `json:"sender"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	EditedAt  *time.Time  `json:"editedAt,omitempty"`
}

// ChannelPayload is a channel as serialized by the server.
type ChannelPayload struct {
	ID          string        `json:"_id" validate:"required"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Type        string        `json:"type,omitempty" validate:"omitempty,oneof=public private"`
	Members     []UserSummary `json:"members,omitempty"`
}

// TypingIn is the payload of inbound typing/stop_typing.
type TypingIn struct {
	UserID    string `json:"userId" validate:"required"`
	Username  string `json:"username"`
	ChannelID string `json:"channelId" validate:"required"`
}

// IncomingCall is the payload of an inbound call_user.
type IncomingCall struct {
	From     string          `json:"from" validate:"required"`
	Name     string          `json:"name"`
	Signal   json.RawMessage `json:"signal" validate:"required"`
	CallType string          `json:"callType,omitempty"`
}

// SendMessage is the payload of outbound send_message.
type SendMessage struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`
}

// CallUserOut is the payload of outbound call_user.
type CallUserOut struct {
	UserToCall string          `json:"userToCall"`
	SignalData json.RawMessage `json:"signalData"`
	From       string          `json:"from"`
	Name       string          `json:"name"`
	CallType   string          `json:"callType"`
}

// AnswerCall is the payload of outbound answer_call.
type AnswerCall struct {
	Signal json.RawMessage `json:"signal"`
	To     string          `json:"to"`
}

// EndCall is the payload of outbound end_call.
type EndCall struct {
	To string `json:"to"`
}
