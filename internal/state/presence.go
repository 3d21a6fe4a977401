package state

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"
)

// DefaultTypingTTL bounds how long a typing entry survives without a
// matching stop_typing.
const DefaultTypingTTL = 10 * time.Second

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type typingEntry struct {
	name string
	seen time.Time
}

type Event struct {
	Type   string            `json:"type"` // "online" | "typing"
	Online []User            `json:"online,omitempty"`
	Typing map[string]string `json:"typing,omitempty"`
}

// Tracker holds the online set and the typing map of the active channel.
// Both are derived state, rebuilt from transport events.
type Tracker struct {
	mu        sync.Mutex
	online    map[string]User
	channelID string
	typing    map[string]typingEntry
	ttl       time.Duration
	now       func() time.Time
	listeners []chan Event
}

func NewTracker(ttl time.Duration) *Tracker {
	return &Tracker{
		online: map[string]User{},
		typing: map[string]typingEntry{},
		ttl:    ttl,
		now:    time.Now,
	}
}

// SetTTL changes the typing expiry. Zero disables expiry.
func (t *Tracker) SetTTL(ttl time.Duration) {
	t.mu.Lock()
	t.ttl = ttl
	t.mu.Unlock()
}

// OnPresenceSnapshot replaces the online set wholesale.
func (t *Tracker) OnPresenceSnapshot(users []User) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.online = lo.SliceToMap(users, func(u User) (string, User) { return u.ID, u })
	t.notifyListeners(Event{Type: "online", Online: t.onlineLocked()})
}

// OnTyping records userID as typing when channelID is the active channel.
func (t *Tracker) OnTyping(userID, name, channelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.channelID == "" || channelID != t.channelID {
		return false
	}
	t.typing[userID] = typingEntry{name: name, seen: t.now()}
	t.notifyListeners(Event{Type: "typing", Typing: t.typingLocked()})
	return true
}

// OnStopTyping removes userID when channelID is the active channel.
func (t *Tracker) OnStopTyping(userID, channelID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if channelID != t.channelID {
		return false
	}
	if _, ok := t.typing[userID]; !ok {
		return false
	}
	delete(t.typing, userID)
	t.notifyListeners(Event{Type: "typing", Typing: t.typingLocked()})
	return true
}

// OnChannelSwitch clears the typing map and makes channelID active.
func (t *Tracker) OnChannelSwitch(channelID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channelID = channelID
	hadTyping := len(t.typing) > 0
	t.typing = map[string]typingEntry{}
	if hadTyping {
		t.notifyListeners(Event{Type: "typing", Typing: map[string]string{}})
	}
}

// PruneStale drops typing entries older than the TTL.
func (t *Tracker) PruneStale(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.ttl <= 0 {
		return 0
	}
	cutoff := now.Add(-t.ttl)
	pruned := 0
	for id, e := range t.typing {
		if e.seen.Before(cutoff) {
			delete(t.typing, id)
			pruned++
		}
	}
	if pruned > 0 {
		log.Printf("PRESENCE: expired %d typing entries", pruned)
		t.notifyListeners(Event{Type: "typing", Typing: t.typingLocked()})
	}
	return pruned
}

// Online returns the online users sorted by username.
func (t *Tracker) Online() []User {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onlineLocked()
}

func (t *Tracker) IsOnline(userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.online[userID]
	return ok
}

// Typing returns userID → display name for the active channel. Expired
// entries are never reported, even before PruneStale runs.
func (t *Tracker) Typing() map[string]string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.typingLocked()
}

func (t *Tracker) ChannelID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channelID
}

func (t *Tracker) onlineLocked() []User {
	users := lo.Values(t.online)
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].ID < users[j].ID
	})
	return users
}

func (t *Tracker) typingLocked() map[string]string {
	var cutoff time.Time
	if t.ttl > 0 {
		cutoff = t.now().Add(-t.ttl)
	}
	out := make(map[string]string, len(t.typing))
	for id, e := range t.typing {
		if t.ttl > 0 && e.seen.Before(cutoff) {
			continue
		}
		out[id] = e.name
	}
	return out
}

func (t *Tracker) Subscribe() chan Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch := make(chan Event, 16)
	t.listeners = append(t.listeners, ch)
	return ch
}

func (t *Tracker) Unsubscribe(ch chan Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, listener := range t.listeners {
		if listener == ch {
			close(listener)
			t.listeners = append(t.listeners[:i], t.listeners[i+1:]...)
			return
		}
	}
}

func (t *Tracker) notifyListeners(evt Event) {
	for _, ch := range t.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}
