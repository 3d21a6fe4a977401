package chat

import (
	"time"

	"github.com/samber/lo"

	"github.com/petervdpas/goopchat/internal/proto"
)

// Visibility of a channel.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Message is a chat message mirrored from the server.
type Message struct {
	ID                string     `json:"id"`
	ChannelID         string     `json:"channel_id"`
	SenderID          string     `json:"sender_id"`
	SenderDisplayName string     `json:"sender_name"`
	Content           string     `json:"content"`
	CreatedAt         time.Time  `json:"created_at"`
	EditedAt          *time.Time `json:"edited_at,omitempty"`
}

// Before reports whether m sorts before o in a channel buffer.
func (m Message) Before(o Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.ID < o.ID
}

// Channel is a named message scope. Owned by the server.
type Channel struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Visibility  Visibility `json:"visibility"`
	MemberIDs   []string   `json:"member_ids,omitempty"`
}

// HasMember reports whether userID is in the member set.
func (c Channel) HasMember(userID string) bool {
	return lo.Contains(c.MemberIDs, userID)
}

// MessageFromWire converts a server payload.
func MessageFromWire(p proto.MessagePayload) Message {
	return Message{
		ID:                p.ID,
		ChannelID:         p.Channel,
		SenderID:          p.Sender.ID,
		SenderDisplayName: p.Sender.Username,
		Content:           p.Content,
		CreatedAt:         p.Timestamp,
		EditedAt:          p.EditedAt,
	}
}

// ChannelFromWire converts a server payload. Member ids are deduplicated.
func ChannelFromWire(p proto.ChannelPayload) Channel {
	vis := VisibilityPublic
	if p.Type == string(VisibilityPrivate) {
		vis = VisibilityPrivate
	}
	return Channel{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Visibility:  vis,
		MemberIDs: lo.Uniq(lo.Map(p.Members, func(u proto.UserSummary, _ int) string {
			return u.ID
		})),
	}
}
