package call

import (
	"context"
	"encoding/json"
)

// State is the call session lifecycle.
type State string

const (
	StateIdle            State = "idle"
	StateOutgoing        State = "outgoing"
	StateIncomingRinging State = "incoming_ringing"
	StateConnected       State = "connected"
	StateEnded           State = "ended"
)

// Kind is the media shape of a call.
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// ParseKind maps a wire callType onto a Kind. An empty value means video;
// anything other than "video" is treated as audio-only.
func ParseKind(s string) Kind {
	switch s {
	case "", string(KindVideo):
		return KindVideo
	default:
		return KindAudio
	}
}

// EndedText is the history line appended after a connected call.
func (k Kind) EndedText() string {
	if k == KindVideo {
		return "Video Call ended."
	}
	return "Voice Call ended."
}

// Signaler is the only surface the call package needs from the transport.
type Signaler interface {
	Emit(event string, payload any) error
}

// Constraints selects which local devices to open.
type Constraints struct {
	Audio bool
	Video bool
}

func constraintsFor(k Kind) Constraints {
	return Constraints{Audio: true, Video: k == KindVideo}
}

// MediaSource acquires local capture devices. It may prompt, block or fail.
type MediaSource interface {
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

type Stream interface {
	Tracks() []Track
}

// Track is one local capture track held by a session.
type Track interface {
	Kind() string // "audio" | "video"
	SetEnabled(on bool)
	Enabled() bool
	Stop()
}

// PeerFactory builds the peer connection for one call.
type PeerFactory interface {
	NewPeer(stream Stream) (Peer, error)
}

// Peer is a single peer connection. Offer and Answer return the complete
// local description as an opaque signaling payload.
type Peer interface {
	Offer(ctx context.Context) (json.RawMessage, error)
	Answer(ctx context.Context, offer json.RawMessage) (json.RawMessage, error)
	Accept(answer json.RawMessage) error
	OnFailed(fn func(error))
	Close() error
}

// IncomingCall is an inbound call_user as the manager sees it.
type IncomingCall struct {
	From   string
	Name   string
	Signal json.RawMessage
	Kind   Kind
}

// Status is a point-in-time snapshot of the current session.
type Status struct {
	SessionID  uint64 `json:"session_id,omitempty"`
	State      State  `json:"state"`
	Kind       Kind   `json:"kind,omitempty"`
	RemoteID   string `json:"remote_id,omitempty"`
	RemoteName string `json:"remote_name,omitempty"`
	Initiator  bool   `json:"initiator,omitempty"`
	AudioMuted bool   `json:"audio_muted,omitempty"`
	VideoOff   bool   `json:"video_off,omitempty"`
}

// Event is delivered to subscribers on every state change.
type Event struct {
	Status
	Err error `json:"-"`
}
