package call

import (
	"encoding/json"
	"log"
	"sync"
)

// Session is the one live call. All fields except the release guard are
// owned by Manager.mu.
type Session struct {
	id         uint64
	state      State
	kind       Kind
	remoteID   string
	remoteName string
	initiator  bool

	// signaled is set once the remote side knows about this call, so a
	// local end has someone to notify.
	signaled  bool
	connected bool
	accepting bool

	stream  Stream
	peer    Peer
	inbound json.RawMessage
	local   json.RawMessage

	audioOn bool
	videoOn bool

	releaseOnce sync.Once
}

func newSession(id uint64, kind Kind, remoteID, remoteName string, initiator bool) *Session {
	return &Session{
		id:         id,
		kind:       kind,
		remoteID:   remoteID,
		remoteName: remoteName,
		initiator:  initiator,
		audioOn:    true,
		videoOn:    kind == KindVideo,
	}
}

func (s *Session) status() Status {
	return Status{
		SessionID:  s.id,
		State:      s.state,
		Kind:       s.kind,
		RemoteID:   s.remoteID,
		RemoteName: s.remoteName,
		Initiator:  s.initiator,
		AudioMuted: !s.audioOn,
		VideoOff:   !s.videoOn,
	}
}

// release closes the peer and stops every local track. Safe to call more
// than once; only the first call does anything.
func (s *Session) release(stream Stream, peer Peer) {
	s.releaseOnce.Do(func() {
		if peer != nil {
			if err := peer.Close(); err != nil {
				log.Printf("CALL [%d]: peer close: %v", s.id, err)
			}
		}
		stopStream(stream)
		s.inbound = nil
		s.local = nil
	})
}

func stopStream(stream Stream) {
	if stream == nil {
		return
	}
	for _, t := range stream.Tracks() {
		t.Stop()
	}
}

func setKindEnabled(stream Stream, kind string, on bool) {
	if stream == nil {
		return
	}
	for _, t := range stream.Tracks() {
		if t.Kind() == kind {
			t.SetEnabled(on)
		}
	}
}
