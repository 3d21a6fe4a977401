// Package call drives the single peer-to-peer call session: media
// acquisition, offer/answer exchange over the chat transport and teardown.
// Coupling to the rest of goopchat is via the Signaler interface only.
package call

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"sync"

	"github.com/petervdpas/goopchat/internal/metrics"
	"github.com/petervdpas/goopchat/internal/proto"
)

// Manager owns at most one call session and its state machine.
type Manager struct {
	sig      Signaler
	media    MediaSource
	peers    PeerFactory
	selfID   string
	selfName string

	mu      sync.Mutex
	sess    *Session
	nextID  uint64
	closed  bool
	onEnded func(Kind)

	listenerMu sync.Mutex
	listeners  []chan Event
}

// New creates a call Manager. selfID and selfName identify the local user in
// outbound call_user payloads.
func New(sig Signaler, media MediaSource, peers PeerFactory, selfID, selfName string) *Manager {
	return &Manager{
		sig:      sig,
		media:    media,
		peers:    peers,
		selfID:   selfID,
		selfName: selfName,
	}
}

// OnCallEnded registers the hook run after a call that reached Connected
// has ended.
func (m *Manager) OnCallEnded(fn func(Kind)) {
	m.mu.Lock()
	m.onEnded = fn
	m.mu.Unlock()
}

// StartCall places an outbound call to targetID.
func (m *Manager) StartCall(ctx context.Context, targetID, targetName string, kind Kind) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.sess != nil {
		m.mu.Unlock()
		return ErrBusy
	}
	s := m.openLocked(kind, targetID, targetName, true)
	s.state = StateOutgoing
	m.notify(Event{Status: s.status()})
	id := s.id
	m.mu.Unlock()

	log.Printf("CALL [%d]: calling %s (%s)", id, targetID, kind)

	stream, err := m.media.GetUserMedia(ctx, constraintsFor(kind))
	if err != nil {
		merr := &MediaAccessError{Kind: kind, Err: err}
		log.Printf("CALL [%d]: %v", id, merr)
		m.mu.Lock()
		if m.sess != nil && m.sess.id == id {
			m.sess = nil
			m.notify(Event{Status: Status{SessionID: id, State: StateIdle}, Err: merr})
		}
		m.mu.Unlock()
		return merr
	}
	if !m.with(id, func(s *Session) { s.stream = stream }) {
		stopStream(stream)
		return ErrStale
	}

	peer, err := m.peers.NewPeer(stream)
	if err != nil {
		return m.fail(id, &SignalingError{Op: "create peer", Err: err})
	}
	if !m.with(id, func(s *Session) { s.peer = peer }) {
		_ = peer.Close()
		return ErrStale
	}
	peer.OnFailed(func(err error) { m.peerFailed(id, err) })

	offer, err := peer.Offer(ctx)
	if err != nil {
		return m.fail(id, &SignalingError{Op: "create offer", Err: err})
	}
	if !m.with(id, func(s *Session) { s.local = offer }) {
		return ErrStale
	}

	if err := m.sig.Emit(proto.EventCallUser, proto.CallUserOut{
		UserToCall: targetID,
		SignalData: offer,
		From:       m.selfID,
		Name:       m.selfName,
		CallType:   string(kind),
	}); err != nil {
		return m.fail(id, &SignalingError{Op: "send call_user", Err: err})
	}
	if !m.with(id, func(s *Session) { s.signaled = true }) {
		// Hung up while the offer was on the wire.
		if err := m.sig.Emit(proto.EventEndCall, proto.EndCall{To: targetID}); err != nil {
			log.Printf("CALL [%d]: end_call to %s: %v", id, targetID, err)
		}
		return ErrStale
	}
	log.Printf("CALL [%d]: offer sent to %s", id, targetID)
	return nil
}

// HandleIncoming records an inbound call and starts ringing. A second call
// while one is in progress is refused with end_call back to its caller.
func (m *Manager) HandleIncoming(ic IncomingCall) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	if m.sess != nil {
		cur := m.sess.id
		m.mu.Unlock()
		log.Printf("CALL [%d]: busy, rejecting call from %s", cur, ic.From)
		if err := m.sig.Emit(proto.EventEndCall, proto.EndCall{To: ic.From}); err != nil {
			log.Printf("CALL: busy reply to %s: %v", ic.From, err)
		}
		return ErrBusy
	}
	s := m.openLocked(ic.Kind, ic.From, ic.Name, false)
	s.state = StateIncomingRinging
	s.inbound = ic.Signal
	s.signaled = true
	m.notify(Event{Status: s.status()})
	m.mu.Unlock()

	log.Printf("CALL [%d]: incoming %s call from %s", s.id, ic.Kind, ic.From)
	return nil
}

// Accept answers the ringing call.
func (m *Manager) Accept(ctx context.Context) error {
	m.mu.Lock()
	s := m.sess
	if s == nil || s.state != StateIncomingRinging || s.accepting {
		m.mu.Unlock()
		return ErrNoSession
	}
	s.accepting = true
	id, kind, offer, to := s.id, s.kind, s.inbound, s.remoteID
	m.mu.Unlock()

	stream, err := m.media.GetUserMedia(ctx, constraintsFor(kind))
	if err != nil {
		merr := &MediaAccessError{Kind: kind, Err: err}
		log.Printf("CALL [%d]: %v", id, merr)
		// The caller is not told; they time out or hang up.
		if s := m.detach(id); s != nil {
			m.finish(s, false, merr)
		}
		return merr
	}
	if !m.with(id, func(s *Session) { s.stream = stream }) {
		stopStream(stream)
		return ErrStale
	}

	peer, err := m.peers.NewPeer(stream)
	if err != nil {
		return m.fail(id, &SignalingError{Op: "create peer", Err: err})
	}
	if !m.with(id, func(s *Session) { s.peer = peer }) {
		_ = peer.Close()
		return ErrStale
	}
	peer.OnFailed(func(err error) { m.peerFailed(id, err) })

	answer, err := peer.Answer(ctx, offer)
	if err != nil {
		return m.fail(id, &SignalingError{Op: "answer offer", Err: err})
	}

	if !m.with(id, func(s *Session) { s.local = answer }) {
		return ErrStale
	}

	// The call only counts as connected once the caller has the answer.
	if err := m.sig.Emit(proto.EventAnswerCall, proto.AnswerCall{Signal: answer, To: to}); err != nil {
		return m.fail(id, &SignalingError{Op: "send answer_call", Err: err})
	}
	ok := m.with(id, func(s *Session) {
		s.state = StateConnected
		s.connected = true
		s.accepting = false
		m.notify(Event{Status: s.status()})
	})
	if !ok {
		return ErrStale
	}
	log.Printf("CALL [%d]: answered %s", id, to)
	return nil
}

// Decline refuses the ringing call.
func (m *Manager) Decline() error {
	m.mu.Lock()
	s := m.sess
	if s == nil || s.state != StateIncomingRinging {
		m.mu.Unlock()
		return ErrNoSession
	}
	m.sess = nil
	m.mu.Unlock()

	log.Printf("CALL [%d]: declined call from %s", s.id, s.remoteID)
	m.finish(s, true, nil)
	return nil
}

// HandleAccepted feeds the remote answer into the outgoing call.
func (m *Manager) HandleAccepted(signal json.RawMessage) error {
	m.mu.Lock()
	s := m.sess
	if s == nil {
		m.mu.Unlock()
		return &SignalingError{Op: "call_accepted", Err: ErrNoSession}
	}
	id := s.id
	if s.state != StateOutgoing || s.peer == nil || s.local == nil {
		m.mu.Unlock()
		return m.fail(id, &SignalingError{Op: "call_accepted", Err: fmt.Errorf("unexpected in state %s", s.state)})
	}
	peer := s.peer
	m.mu.Unlock()

	if err := peer.Accept(signal); err != nil {
		return m.fail(id, &SignalingError{Op: "call_accepted", Err: err})
	}

	ok := m.with(id, func(s *Session) {
		s.state = StateConnected
		s.connected = true
		m.notify(Event{Status: s.status()})
	})
	if !ok {
		return ErrStale
	}
	log.Printf("CALL [%d]: connected", id)
	return nil
}

// HandleRemoteEnd ends the current call because the other side did.
func (m *Manager) HandleRemoteEnd() bool {
	m.mu.Lock()
	s := m.sess
	m.sess = nil
	m.mu.Unlock()
	if s == nil {
		return false
	}
	log.Printf("CALL [%d]: ended by %s", s.id, s.remoteID)
	m.finish(s, false, nil)
	return true
}

// Hangup ends the current call locally.
func (m *Manager) Hangup() error {
	m.mu.Lock()
	s := m.sess
	m.sess = nil
	m.mu.Unlock()
	if s == nil {
		return ErrNoSession
	}
	log.Printf("CALL [%d]: hangup", s.id)
	m.finish(s, true, nil)
	return nil
}

// ToggleAudio flips local audio. Returns the new muted state.
func (m *Manager) ToggleAudio() (bool, error) {
	m.mu.Lock()
	s := m.sess
	if s == nil || s.stream == nil {
		m.mu.Unlock()
		return false, ErrNoSession
	}
	s.audioOn = !s.audioOn
	on, stream, id := s.audioOn, s.stream, s.id
	m.notify(Event{Status: s.status()})
	m.mu.Unlock()

	setKindEnabled(stream, "audio", on)
	log.Printf("CALL [%d]: audio muted=%v", id, !on)
	return !on, nil
}

// ToggleVideo flips local video. Returns the new disabled state.
func (m *Manager) ToggleVideo() (bool, error) {
	m.mu.Lock()
	s := m.sess
	if s == nil || s.stream == nil {
		m.mu.Unlock()
		return false, ErrNoSession
	}
	s.videoOn = !s.videoOn
	on, stream, id := s.videoOn, s.stream, s.id
	m.notify(Event{Status: s.status()})
	m.mu.Unlock()

	setKindEnabled(stream, "video", on)
	log.Printf("CALL [%d]: video disabled=%v", id, !on)
	return !on, nil
}

// Status returns the current session snapshot, or Idle.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil {
		return Status{State: StateIdle}
	}
	return m.sess.status()
}

// Close hangs up any active call and refuses new ones. Idempotent.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()
	_ = m.Hangup()
}

func (m *Manager) Subscribe() chan Event {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	ch := make(chan Event, 16)
	m.listeners = append(m.listeners, ch)
	return ch
}

func (m *Manager) Unsubscribe(ch chan Event) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	for i, l := range m.listeners {
		if l == ch {
			close(l)
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

func (m *Manager) notify(evt Event) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	for _, ch := range m.listeners {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (m *Manager) openLocked(kind Kind, remoteID, remoteName string, initiator bool) *Session {
	m.nextID++
	s := newSession(m.nextID, kind, remoteID, remoteName, initiator)
	m.sess = s
	return s
}

// with runs fn under the lock when id still names the live session.
func (m *Manager) with(id uint64, fn func(*Session)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil || m.sess.id != id {
		return false
	}
	fn(m.sess)
	return true
}

// detach removes the session id from the manager. Only the caller that
// gets a non-nil result may tear it down.
func (m *Manager) detach(id uint64) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess == nil || m.sess.id != id {
		return nil
	}
	s := m.sess
	m.sess = nil
	return s
}

// fail ends session id locally with err. A session that is already gone
// turns err into ErrStale.
func (m *Manager) fail(id uint64, err error) error {
	s := m.detach(id)
	if s == nil {
		return ErrStale
	}
	log.Printf("CALL [%d]: %v", id, err)
	m.finish(s, true, err)
	return err
}

func (m *Manager) peerFailed(id uint64, err error) {
	_ = m.fail(id, &SignalingError{Op: "peer connection", Err: err})
}

// finish runs teardown for a detached session: release media and peer,
// tell the remote side when the end is local, then report Ended and Idle.
func (m *Manager) finish(s *Session, local bool, cause error) {
	m.mu.Lock()
	stream, peer := s.stream, s.peer
	s.state = StateEnded
	ended := s.status()
	connected, kind := s.connected, s.kind
	hook := m.onEnded
	m.mu.Unlock()

	s.release(stream, peer)

	if local && s.signaled && s.remoteID != "" {
		if err := m.sig.Emit(proto.EventEndCall, proto.EndCall{To: s.remoteID}); err != nil {
			log.Printf("CALL [%d]: end_call to %s: %v", s.id, s.remoteID, err)
		}
	}

	metrics.CallsEnded.WithLabelValues(string(kind), strconv.FormatBool(connected)).Inc()
	m.notify(Event{Status: ended, Err: cause})
	if connected && hook != nil {
		hook(kind)
	}
	m.notify(Event{Status: Status{SessionID: s.id, State: StateIdle}})
}
