// Package session owns the active channel: which channel the transport is
// subscribed to and the per-channel state that goes with it.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/petervdpas/goopchat/internal/chat"
	"github.com/petervdpas/goopchat/internal/state"
)

// Transport is the subscription surface a Session needs.
type Transport interface {
	JoinChannel(channelID string) error
	LeaveChannel(channelID string) error
}

// Session tracks the active channel. Switching tears down the previous
// channel's buffer, cursor and typing map before the next one loads.
type Session struct {
	tr       Transport
	store    *chat.Store
	presence *state.Tracker

	// opMu orders channel transitions. The transport subscription, the
	// store reset and the typing reset of one transition never interleave
	// with another's; page loads run after it is released.
	opMu sync.Mutex

	mu     sync.Mutex
	active *chat.Channel
	online bool
}

func New(tr Transport, store *chat.Store, presence *state.Tracker) *Session {
	return &Session{tr: tr, store: store, presence: presence, online: true}
}

// Switch makes ch the active channel and loads its newest page. The
// returned error is the initial load's; the switch itself always happens.
func (s *Session) Switch(ctx context.Context, ch chat.Channel) error {
	s.opMu.Lock()
	s.mu.Lock()
	prev := s.active
	cp := ch
	s.active = &cp
	online := s.online
	s.mu.Unlock()

	if prev != nil && prev.ID != ch.ID && online {
		if err := s.tr.LeaveChannel(prev.ID); err != nil {
			log.Printf("SESSION: leave %s: %v", prev.ID, err)
		}
	}

	epoch := s.store.Reset(ch.ID)
	s.presence.OnChannelSwitch(ch.ID)

	if online {
		if err := s.tr.JoinChannel(ch.ID); err != nil {
			log.Printf("SESSION: join %s: %v", ch.ID, err)
		}
	}
	s.opMu.Unlock()
	log.Printf("SESSION: active channel %s (%s)", ch.ID, ch.Name)

	if err := s.store.LoadNewest(ctx, epoch); err != nil {
		return fmt.Errorf("load %s: %w", ch.ID, err)
	}
	return nil
}

// Clear leaves the active channel, if any, and drops its state.
func (s *Session) Clear() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	prev := s.active
	s.active = nil
	online := s.online
	s.mu.Unlock()

	if prev != nil && online {
		if err := s.tr.LeaveChannel(prev.ID); err != nil {
			log.Printf("SESSION: leave %s: %v", prev.ID, err)
		}
	}
	s.store.Reset("")
	s.presence.OnChannelSwitch("")
	if prev != nil {
		log.Printf("SESSION: no active channel")
	}
}

// SetOnline gates sending and paging. Loaded messages stay readable.
func (s *Session) SetOnline(online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()
	s.store.SetOnline(online)
}

// Rejoin re-subscribes to the active channel after a reconnect and reloads
// its newest page, since pushes were missed while offline. A switch that
// lands while the page is in flight wins; the reload is dropped.
func (s *Session) Rejoin(ctx context.Context) error {
	s.opMu.Lock()
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == nil {
		s.opMu.Unlock()
		return nil
	}

	if err := s.tr.JoinChannel(active.ID); err != nil {
		s.opMu.Unlock()
		return fmt.Errorf("rejoin %s: %w", active.ID, err)
	}
	epoch := s.store.Reset(active.ID)
	s.opMu.Unlock()

	if err := s.store.LoadNewest(ctx, epoch); err != nil {
		if errors.Is(err, chat.ErrStale) {
			log.Printf("SESSION: reload of %s superseded", active.ID)
			return nil
		}
		return fmt.Errorf("reload %s: %w", active.ID, err)
	}
	return nil
}

// Active returns a copy of the active channel.
func (s *Session) Active() (chat.Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return chat.Channel{}, false
	}
	return *s.active, true
}

// Refresh replaces the read-through copy when ch is the active channel.
func (s *Session) Refresh(ch chat.Channel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.ID != ch.ID {
		return false
	}
	cp := ch
	s.active = &cp
	return true
}

func (s *Session) Store() *chat.Store       { return s.store }
func (s *Session) Presence() *state.Tracker { return s.presence }
