package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/petervdpas/goopchat/internal/api"
	"github.com/petervdpas/goopchat/internal/call"
	"github.com/petervdpas/goopchat/internal/chat"
	"github.com/petervdpas/goopchat/internal/identity"
	"github.com/petervdpas/goopchat/internal/metrics"
	"github.com/petervdpas/goopchat/internal/proto"
	"github.com/petervdpas/goopchat/internal/session"
	"github.com/petervdpas/goopchat/internal/state"
)

const pruneInterval = time.Second

var ErrUnknownChannel = errors.New("unknown channel")

// Transport is the realtime surface the Coordinator drives.
type Transport interface {
	Emit(event string, payload any) error
	JoinChannel(channelID string) error
	LeaveChannel(channelID string) error
	Subscribe() (<-chan proto.Event, func())
}

// API is the REST surface: message history and mutations for the store
// plus the channel directory.
type API interface {
	chat.MessageAPI
	ListChannels(ctx context.Context) ([]chat.Channel, error)
	CreateChannel(ctx context.Context, in api.CreateChannelRequest) (chat.Channel, error)
	JoinChannel(ctx context.Context, channelID string) (chat.Channel, error)
	LeaveChannel(ctx context.Context, channelID string) (chat.Channel, error)
	UpdateChannel(ctx context.Context, channelID, name, description string) (chat.Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	Search(ctx context.Context, query, channelID string) ([]chat.Message, error)
	Users(ctx context.Context) ([]proto.UserSummary, error)
}

// Cache persists the channel list across runs. *storage.DB satisfies it.
type Cache interface {
	ReplaceChannels(list []chat.Channel) error
	UpsertChannel(ch chat.Channel) error
	DeleteChannel(id string) error
	Channels() ([]chat.Channel, error)
	LastChannel() (string, error)
	SetLastChannel(id string) error
}

type Deps struct {
	Identity  identity.Identity
	Transport Transport
	API       API
	Cache     Cache // optional
	Calls     *call.Manager
	PageSize  int
	TypingTTL time.Duration
}

// Coordinator routes transport events to the store, the presence tracker
// and the call manager, and owns the channel directory.
type Coordinator struct {
	me    identity.Identity
	tr    Transport
	api   API
	cache Cache

	store    *chat.Store
	presence *state.Tracker
	sess     *session.Session
	calls    *call.Manager

	mu       sync.RWMutex
	channels []chat.Channel
	typingIn string // channel we last sent typing for
}

func NewCoordinator(d Deps) *Coordinator {
	store := chat.NewStore(d.API, d.Transport, d.PageSize)
	presence := state.NewTracker(d.TypingTTL)
	c := &Coordinator{
		me:       d.Identity,
		tr:       d.Transport,
		api:      d.API,
		cache:    d.Cache,
		store:    store,
		presence: presence,
		sess:     session.New(d.Transport, store, presence),
		calls:    d.Calls,
	}
	// Offline until the transport reports connect.
	c.sess.SetOnline(false)
	if c.calls != nil {
		c.calls.OnCallEnded(c.callEnded)
	}
	return c
}

// Run subscribes to the transport and serves its events until ctx is done.
func (c *Coordinator) Run(ctx context.Context) error {
	events, cancel := c.tr.Subscribe()
	defer cancel()
	return c.Serve(ctx, events)
}

// Serve applies events one at a time in delivery order and prunes expired
// typing entries in between.
func (c *Coordinator) Serve(ctx context.Context, events <-chan proto.Event) error {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-events:
			c.Handle(ctx, evt)
		case now := <-ticker.C:
			c.presence.PruneStale(now)
		}
	}
}

// Handle applies a single transport event.
func (c *Coordinator) Handle(ctx context.Context, evt proto.Event) {
	outcome := "applied"
	applied, err := c.route(ctx, evt)
	switch {
	case err != nil:
		outcome = "invalid"
		log.Printf("COORD: %s: %v", evt.Name, err)
	case !applied:
		outcome = "ignored"
	}
	metrics.EventsTotal.WithLabelValues(evt.Name, outcome).Inc()
}

func (c *Coordinator) route(ctx context.Context, evt proto.Event) (bool, error) {
	switch evt.Name {
	case proto.EventConnect:
		metrics.TransportConnected.Set(1)
		c.sess.SetOnline(true)
		// Pushes missed while offline are recovered by reloading the newest
		// page; later events queue behind it.
		if err := c.sess.Rejoin(ctx); err != nil {
			log.Printf("COORD: rejoin: %v", err)
		}
		return true, nil

	case proto.EventDisconnect:
		metrics.TransportConnected.Set(0)
		c.sess.SetOnline(false)
		c.mu.Lock()
		c.typingIn = ""
		c.mu.Unlock()
		return true, nil

	case proto.EventReceiveMessage:
		var p proto.MessagePayload
		if err := proto.Decode(evt.Data, &p); err != nil {
			return false, err
		}
		return c.store.ApplyRealtimeInsert(chat.MessageFromWire(p)), nil

	case proto.EventMessageUpdated:
		var p proto.MessagePayload
		if err := proto.Decode(evt.Data, &p); err != nil {
			return false, err
		}
		var editedAt time.Time
		if p.EditedAt != nil {
			editedAt = *p.EditedAt
		}
		return c.store.ApplyEdit(p.ID, p.Content, editedAt), nil

	case proto.EventMessageDeleted:
		var id string
		if err := proto.Decode(evt.Data, &id); err != nil {
			return false, err
		}
		return c.store.ApplyDelete(id), nil

	case proto.EventOnlineUsers:
		var users []proto.UserSummary
		if err := proto.Decode(evt.Data, &users); err != nil {
			return false, err
		}
		c.presence.OnPresenceSnapshot(lo.Map(users, func(u proto.UserSummary, _ int) state.User {
			return state.User{ID: u.ID, Username: u.Username}
		}))
		metrics.OnlineUsers.Set(float64(len(users)))
		return true, nil

	case proto.EventTyping, proto.EventStopTyping:
		var p proto.TypingIn
		if err := proto.Decode(evt.Data, &p); err != nil {
			return false, err
		}
		if p.UserID == c.me.UserID {
			return false, nil
		}
		if evt.Name == proto.EventTyping {
			return c.presence.OnTyping(p.UserID, p.Username, p.ChannelID), nil
		}
		return c.presence.OnStopTyping(p.UserID, p.ChannelID), nil

	case proto.EventCallUser:
		if c.calls == nil {
			return false, nil
		}
		var p proto.IncomingCall
		if err := proto.Decode(evt.Data, &p); err != nil {
			return false, err
		}
		err := c.calls.HandleIncoming(call.IncomingCall{
			From:   p.From,
			Name:   p.Name,
			Signal: p.Signal,
			Kind:   call.ParseKind(p.CallType),
		})
		if errors.Is(err, call.ErrBusy) {
			return false, nil
		}
		return err == nil, err

	case proto.EventCallAccepted:
		if c.calls == nil {
			return false, nil
		}
		if len(evt.Data) == 0 {
			return false, errors.New("empty signal")
		}
		err := c.calls.HandleAccepted(json.RawMessage(evt.Data))
		if errors.Is(err, call.ErrNoSession) {
			return false, nil
		}
		return err == nil, err

	case proto.EventEndCall:
		if c.calls == nil {
			return false, nil
		}
		return c.calls.HandleRemoteEnd(), nil
	}
	return false, nil
}

// callEnded writes the call history line into the active channel.
func (c *Coordinator) callEnded(kind call.Kind) {
	if _, ok := c.store.AppendLocal(c.me.UserID, c.me.DisplayName(), kind.EndedText()); !ok {
		log.Printf("COORD: %s (no active channel)", kind.EndedText())
	}
}

// ── Messages

func (c *Coordinator) Send(content string) error {
	if err := c.store.SendDraft(content); err != nil {
		return err
	}
	if err := c.SendTyping(false); err != nil {
		log.Printf("COORD: stop typing: %v", err)
	}
	return nil
}

func (c *Coordinator) LoadOlder(ctx context.Context) error {
	return c.store.LoadOlder(ctx)
}

func (c *Coordinator) Edit(ctx context.Context, messageID, content string) error {
	return c.store.RequestEdit(ctx, messageID, content)
}

func (c *Coordinator) Delete(ctx context.Context, messageID string) error {
	return c.store.RequestDelete(ctx, messageID)
}

// SendTyping tells the active channel whether we are typing. Repeated
// calls with the same value emit nothing.
func (c *Coordinator) SendTyping(typing bool) error {
	active, ok := c.sess.Active()
	if !ok {
		if typing {
			return chat.ErrNoActiveChannel
		}
		return nil
	}

	c.mu.Lock()
	if typing == (c.typingIn == active.ID) {
		c.mu.Unlock()
		return nil
	}
	if typing {
		c.typingIn = active.ID
	} else {
		c.typingIn = ""
	}
	c.mu.Unlock()

	event := proto.EventStopTyping
	if typing {
		event = proto.EventTyping
	}
	if err := c.tr.Emit(event, active.ID); err != nil {
		c.mu.Lock()
		c.typingIn = ""
		c.mu.Unlock()
		return fmt.Errorf("%s: %w", event, err)
	}
	return nil
}

// ── Calls

// StartCall rings userID. The display name comes from the presence set.
func (c *Coordinator) StartCall(ctx context.Context, userID string, kind call.Kind) error {
	if c.calls == nil {
		return call.ErrClosed
	}
	name := userID
	for _, u := range c.presence.Online() {
		if u.ID == userID && u.Username != "" {
			name = u.Username
			break
		}
	}
	return c.calls.StartCall(ctx, userID, name, kind)
}

// ── Accessors

func (c *Coordinator) Identity() identity.Identity { return c.me }
func (c *Coordinator) Store() *chat.Store           { return c.store }
func (c *Coordinator) Presence() *state.Tracker     { return c.presence }
func (c *Coordinator) Session() *session.Session    { return c.sess }
func (c *Coordinator) Calls() *call.Manager         { return c.calls }

// Active returns the read-through copy of the active channel.
func (c *Coordinator) Active() (chat.Channel, bool) {
	return c.sess.Active()
}

// FindChannel matches an id or, failing that, a case-insensitive name.
func (c *Coordinator) FindChannel(ref string) (chat.Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if ch, ok := lo.Find(c.channels, func(ch chat.Channel) bool { return ch.ID == ref }); ok {
		return ch, true
	}
	return lo.Find(c.channels, func(ch chat.Channel) bool {
		return strings.EqualFold(ch.Name, strings.TrimPrefix(ref, "#"))
	})
}
