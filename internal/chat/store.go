package chat

import (
	"context"
	"log"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/petervdpas/goopchat/internal/proto"
)

// DefaultPageSize is the number of messages requested per history page.
const DefaultPageSize = 50

// MessageAPI is the slice of the REST collaborator the store needs.
type MessageAPI interface {
	FetchMessages(ctx context.Context, channelID string, page, limit int) ([]Message, error)
	EditMessage(ctx context.Context, messageID, content string) error
	DeleteMessage(ctx context.Context, messageID string) error
}

// Emitter sends one event on the realtime transport.
type Emitter interface {
	Emit(event string, payload any) error
}

// Cursor tracks backward pagination for the active channel.
type Cursor struct {
	ChannelID string `json:"channel_id"`
	Page      int    `json:"page"` // last page merged, 0 before the initial load
	PageSize  int    `json:"page_size"`
	Exhausted bool   `json:"exhausted"`
}

// ChangeType describes what happened to the buffer.
type ChangeType string

const (
	ChangeReset  ChangeType = "reset"
	ChangeLoad   ChangeType = "load"
	ChangeInsert ChangeType = "insert"
	ChangeEdit   ChangeType = "edit"
	ChangeDelete ChangeType = "delete"
)

// Change is delivered to store subscribers after every applied mutation.
type Change struct {
	Type      ChangeType `json:"type"`
	ChannelID string     `json:"channel_id"`
	MessageID string     `json:"message_id,omitempty"`
	Count     int        `json:"count"` // buffer length after the change
}

// Store holds the ordered message window of the active channel.
//
// The buffer is always sorted by (CreatedAt, ID) with unique ids. Every
// fetch captures the epoch before suspending and is dropped when the epoch
// moved in the meantime.
type Store struct {
	api      MessageAPI
	emit     Emitter
	pageSize int
	now      func() time.Time

	mu        sync.RWMutex
	channelID string
	epoch     uint64
	messages  []Message
	cursor    Cursor
	pending   bool
	online    bool

	listenerMu sync.RWMutex
	listeners  []chan Change
}

// NewStore creates an empty store with no active channel.
func NewStore(api MessageAPI, emit Emitter, pageSize int) *Store {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Store{
		api:      api,
		emit:     emit,
		pageSize: pageSize,
		now:      time.Now,
		online:   true,
		cursor:   Cursor{PageSize: pageSize},
	}
}

// Reset switches the store to channelID (empty for none), discarding the
// buffer and any in-flight load. Returns the new epoch.
func (s *Store) Reset(channelID string) uint64 {
	s.mu.Lock()
	s.epoch++
	s.channelID = channelID
	s.messages = nil
	s.cursor = Cursor{ChannelID: channelID, PageSize: s.pageSize}
	s.pending = false
	epoch := s.epoch
	s.mu.Unlock()

	s.notify(Change{Type: ChangeReset, ChannelID: channelID})
	return epoch
}

// LoadInitial replaces the buffer with the newest page of channelID.
// Realtime inserts that land while the page is in flight are kept.
func (s *Store) LoadInitial(ctx context.Context, channelID string) error {
	if channelID == "" {
		return ErrNoActiveChannel
	}

	s.mu.Lock()
	if channelID != s.channelID {
		s.epoch++
		s.channelID = channelID
	}
	s.messages = nil
	s.cursor = Cursor{ChannelID: channelID, PageSize: s.pageSize}
	epoch := s.epoch
	s.mu.Unlock()

	return s.LoadNewest(ctx, epoch)
}

// LoadNewest fetches the newest page for the channel the store held at
// epoch, as returned by Reset. It returns ErrStale without fetching when the
// store has moved on, so a caller can never rebind it to an older channel.
// On failure the buffer is left empty.
func (s *Store) LoadNewest(ctx context.Context, epoch uint64) error {
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		return ErrStale
	}
	channelID := s.channelID
	if channelID == "" {
		s.mu.Unlock()
		return ErrNoActiveChannel
	}
	s.pending = true
	s.mu.Unlock()

	page, err := s.api.FetchMessages(ctx, channelID, 1, s.pageSize)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		log.Printf("CHAT: dropped initial page for %s (channel changed)", channelID)
		return ErrStale
	}
	s.pending = false
	if err != nil {
		s.messages = nil
		s.mu.Unlock()
		s.notify(Change{Type: ChangeReset, ChannelID: channelID})
		return &FetchError{ChannelID: channelID, Page: 1, Err: err}
	}
	s.messages = mergeMessages(normalize(page, channelID), s.messages)
	s.cursor.Page = 1
	s.cursor.Exhausted = len(page) < s.pageSize
	n := len(s.messages)
	s.mu.Unlock()

	log.Printf("CHAT: loaded %d messages for %s", len(page), channelID)
	s.notify(Change{Type: ChangeLoad, ChannelID: channelID, Count: n})
	return nil
}

// LoadOlder merges the next history page in front of the buffer.
// It returns nil without fetching when history is exhausted or another load
// is pending; duplicate triggers are dropped, not queued.
func (s *Store) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.channelID == "":
		s.mu.Unlock()
		return ErrNoActiveChannel
	case !s.online:
		s.mu.Unlock()
		return ErrDisconnected
	case s.pending || s.cursor.Exhausted || s.cursor.Page == 0:
		s.mu.Unlock()
		return nil
	}
	s.pending = true
	epoch := s.epoch
	channelID := s.channelID
	next := s.cursor.Page + 1
	s.mu.Unlock()

	page, err := s.api.FetchMessages(ctx, channelID, next, s.pageSize)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		log.Printf("CHAT: dropped page %d for %s (channel changed)", next, channelID)
		return ErrStale
	}
	s.pending = false
	if err != nil {
		s.mu.Unlock()
		return &FetchError{ChannelID: channelID, Page: next, Err: err}
	}
	s.messages = mergeMessages(normalize(page, channelID), s.messages)
	s.cursor.Page = next
	if len(page) < s.pageSize {
		s.cursor.Exhausted = true
	}
	n := len(s.messages)
	s.mu.Unlock()

	log.Printf("CHAT: page %d for %s: %d messages", next, channelID, len(page))
	s.notify(Change{Type: ChangeLoad, ChannelID: channelID, Count: n})
	return nil
}

// ApplyRealtimeInsert adds a pushed message. Messages for other channels
// and ids already buffered are ignored.
func (s *Store) ApplyRealtimeInsert(msg Message) bool {
	s.mu.Lock()
	if s.channelID == "" || msg.ChannelID != s.channelID {
		s.mu.Unlock()
		return false
	}
	if !s.insertLocked(msg) {
		s.mu.Unlock()
		return false
	}
	n := len(s.messages)
	s.mu.Unlock()

	s.notify(Change{Type: ChangeInsert, ChannelID: msg.ChannelID, MessageID: msg.ID, Count: n})
	return true
}

// insertLocked appends msg, or places it by binary search when it is older
// than the tail.
func (s *Store) insertLocked(msg Message) bool {
	if _, _, found := lo.FindIndexOf(s.messages, func(m Message) bool { return m.ID == msg.ID }); found {
		return false
	}
	n := len(s.messages)
	if n == 0 || !msg.Before(s.messages[n-1]) {
		s.messages = append(s.messages, msg)
		return true
	}
	i := sort.Search(n, func(i int) bool { return msg.Before(s.messages[i]) })
	s.messages = slices.Insert(s.messages, i, msg)
	return true
}

// ApplyEdit replaces the content of id. Absent ids are ignored.
func (s *Store) ApplyEdit(id, content string, editedAt time.Time) bool {
	s.mu.Lock()
	_, i, found := lo.FindIndexOf(s.messages, func(m Message) bool { return m.ID == id })
	if !found {
		s.mu.Unlock()
		return false
	}
	if editedAt.IsZero() {
		editedAt = s.now()
	}
	s.messages[i].Content = content
	s.messages[i].EditedAt = &editedAt
	channelID, n := s.channelID, len(s.messages)
	s.mu.Unlock()

	s.notify(Change{Type: ChangeEdit, ChannelID: channelID, MessageID: id, Count: n})
	return true
}

// ApplyDelete removes id. Absent ids are ignored.
func (s *Store) ApplyDelete(id string) bool {
	s.mu.Lock()
	_, i, found := lo.FindIndexOf(s.messages, func(m Message) bool { return m.ID == id })
	if !found {
		s.mu.Unlock()
		return false
	}
	s.messages = slices.Delete(s.messages, i, i+1)
	channelID, n := s.channelID, len(s.messages)
	s.mu.Unlock()

	s.notify(Change{Type: ChangeDelete, ChannelID: channelID, MessageID: id, Count: n})
	return true
}

// SendDraft emits a send request for the active channel. Nothing is added
// to the buffer; the message shows up when the server pushes it back.
func (s *Store) SendDraft(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyDraft
	}

	s.mu.RLock()
	channelID, online := s.channelID, s.online
	s.mu.RUnlock()

	if channelID == "" {
		return ErrNoActiveChannel
	}
	if !online {
		return ErrDisconnected
	}
	if err := s.emit.Emit(proto.EventSendMessage, proto.SendMessage{ChannelID: channelID, Content: content}); err != nil {
		return &MutationError{Op: "send", Err: err}
	}
	return nil
}

// RequestEdit asks the server to edit a message.
func (s *Store) RequestEdit(ctx context.Context, id, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyDraft
	}
	if err := s.api.EditMessage(ctx, id, content); err != nil {
		return &MutationError{Op: "edit", MessageID: id, Err: err}
	}
	return nil
}

// RequestDelete asks the server to delete a message.
func (s *Store) RequestDelete(ctx context.Context, id string) error {
	if err := s.api.DeleteMessage(ctx, id); err != nil {
		return &MutationError{Op: "delete", MessageID: id, Err: err}
	}
	return nil
}

// AppendLocal adds a message that never came from the server, such as a
// call history line. Returns false when no channel is active.
func (s *Store) AppendLocal(senderID, senderName, content string) (Message, bool) {
	s.mu.Lock()
	if s.channelID == "" {
		s.mu.Unlock()
		return Message{}, false
	}
	createdAt := s.now()
	if n := len(s.messages); n > 0 && s.messages[n-1].CreatedAt.After(createdAt) {
		createdAt = s.messages[n-1].CreatedAt
	}
	msg := Message{
		ID:                "local-" + uuid.NewString(),
		ChannelID:         s.channelID,
		SenderID:          senderID,
		SenderDisplayName: senderName,
		Content:           content,
		CreatedAt:         createdAt,
	}
	s.insertLocked(msg)
	n := len(s.messages)
	s.mu.Unlock()

	s.notify(Change{Type: ChangeInsert, ChannelID: msg.ChannelID, MessageID: msg.ID, Count: n})
	return msg, true
}

// SetOnline gates sends and history fetches. Loaded messages stay readable.
func (s *Store) SetOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
}

// Snapshot returns a copy of the buffer, oldest first.
func (s *Store) Snapshot() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Cursor returns the pagination state.
func (s *Store) Cursor() Cursor {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// ChannelID returns the active channel id, or "".
func (s *Store) ChannelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channelID
}

// Epoch returns the current epoch.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

// Loading reports whether a fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// Subscribe returns a channel that receives buffer changes.
func (s *Store) Subscribe() <-chan Change {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	ch := make(chan Change, 32)
	s.listeners = append(s.listeners, ch)
	return ch
}

// Unsubscribe removes a listener channel
func (s *Store) Unsubscribe(ch <-chan Change) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	for i, listener := range s.listeners {
		if listener == ch {
			close(listener)
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

func (s *Store) notify(c Change) {
	s.listenerMu.RLock()
	for _, listener := range s.listeners {
		select {
		case listener <- c:
		default:
		}
	}
	s.listenerMu.RUnlock()
}

// normalize keeps messages of channelID, sorted, first occurrence per id.
func normalize(page []Message, channelID string) []Message {
	out := lo.Filter(page, func(m Message, _ int) bool { return m.ChannelID == channelID })
	out = lo.UniqBy(out, func(m Message) string { return m.ID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// mergeMessages merges two sorted, unique slices. When an id is in both,
// the copy from cur wins since it may carry edits applied locally.
func mergeMessages(incoming, cur []Message) []Message {
	if len(cur) == 0 {
		return incoming
	}
	known := make(map[string]struct{}, len(cur))
	for _, m := range cur {
		known[m.ID] = struct{}{}
	}
	incoming = lo.Filter(incoming, func(m Message, _ int) bool {
		_, dup := known[m.ID]
		return !dup
	})

	out := make([]Message, 0, len(incoming)+len(cur))
	i, j := 0, 0
	for i < len(incoming) && j < len(cur) {
		if incoming[i].Before(cur[j]) {
			out = append(out, incoming[i])
			i++
		} else {
			out = append(out, cur[j])
			j++
		}
	}
	out = append(out, incoming[i:]...)
	return append(out, cur[j:]...)
}
