package call

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

type emitted struct {
	event   string
	payload any
}

type fakeSignaler struct {
	mu    sync.Mutex
	sent  []emitted
	tried []string
	err   error
}

func (f *fakeSignaler) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tried = append(f.tried, event)
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, emitted{event, payload})
	return nil
}

func (f *fakeSignaler) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.sent))
	for _, e := range f.sent {
		out = append(out, e.event)
	}
	return out
}

// attempts lists every emitted event name, including failed ones.
func (f *fakeSignaler) attempts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tried...)
}

func (f *fakeSignaler) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeSignaler) last() emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeTrack struct {
	mu      sync.Mutex
	kind    string
	enabled bool
	stopped int
}

func (t *fakeTrack) Kind() string { return t.kind }

func (t *fakeTrack) SetEnabled(on bool) {
	t.mu.Lock()
	t.enabled = on
	t.mu.Unlock()
}

func (t *fakeTrack) Enabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enabled
}

func (t *fakeTrack) Stop() {
	t.mu.Lock()
	t.stopped++
	t.mu.Unlock()
}

func (t *fakeTrack) stopCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

type fakeStream []*fakeTrack

func (s fakeStream) Tracks() []Track {
	out := make([]Track, len(s))
	for i, t := range s {
		out[i] = t
	}
	return out
}

// fakeMedia hands out a fresh stream per request. When gate is set the
// request blocks until gate is closed.
type fakeMedia struct {
	mu      sync.Mutex
	err     error
	gate    chan struct{}
	started chan struct{}
	asked   []Constraints
	streams []fakeStream
}

func (f *fakeMedia) GetUserMedia(_ context.Context, c Constraints) (Stream, error) {
	f.mu.Lock()
	f.asked = append(f.asked, c)
	gate, started, err := f.gate, f.started, f.err
	f.mu.Unlock()
	if started != nil {
		close(started)
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	s := fakeStream{{kind: "audio", enabled: true}}
	if c.Video {
		s = append(s, &fakeTrack{kind: "video", enabled: true})
	}
	f.mu.Lock()
	f.streams = append(f.streams, s)
	f.mu.Unlock()
	return s, nil
}

type fakePeer struct {
	mu        sync.Mutex
	offerErr  error
	acceptErr error
	closed    int
	accepted  json.RawMessage
	answered  json.RawMessage
	onFailed  func(error)
}

func (p *fakePeer) Offer(context.Context) (json.RawMessage, error) {
	if p.offerErr != nil {
		return nil, p.offerErr
	}
	return json.RawMessage(`{"type":"offer","sdp":"o"}`), nil
}

func (p *fakePeer) Answer(_ context.Context, offer json.RawMessage) (json.RawMessage, error) {
	if len(offer) == 0 {
		return nil, errors.New("empty offer")
	}
	p.mu.Lock()
	p.answered = offer
	p.mu.Unlock()
	return json.RawMessage(`{"type":"answer","sdp":"a"}`), nil
}

func (p *fakePeer) Accept(answer json.RawMessage) error {
	if p.acceptErr != nil {
		return p.acceptErr
	}
	p.mu.Lock()
	p.accepted = answer
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) OnFailed(fn func(error)) {
	p.mu.Lock()
	p.onFailed = fn
	p.mu.Unlock()
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	p.closed++
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) closeCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *fakePeer) fail(err error) {
	p.mu.Lock()
	fn := p.onFailed
	p.mu.Unlock()
	fn(err)
}

type fakePeers struct {
	mu    sync.Mutex
	next  *fakePeer
	peers []*fakePeer
}

func (f *fakePeers) NewPeer(Stream) (Peer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.next
	if p == nil {
		p = &fakePeer{}
	}
	f.next = nil
	f.peers = append(f.peers, p)
	return p, nil
}

func (f *fakePeers) last() *fakePeer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.peers[len(f.peers)-1]
}

type rig struct {
	sig   *fakeSignaler
	media *fakeMedia
	peers *fakePeers
	m     *Manager
	ended []Kind
}

func newRig() *rig {
	r := &rig{sig: &fakeSignaler{}, media: &fakeMedia{}, peers: &fakePeers{}}
	r.m = New(r.sig, r.media, r.peers, "me", "Me")
	r.m.OnCallEnded(func(k Kind) { r.ended = append(r.ended, k) })
	return r
}

func allStopped(s fakeStream) bool {
	for _, t := range s {
		if t.stopCount() != 1 {
			return false
		}
	}
	return true
}
