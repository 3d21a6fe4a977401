package call

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v4"
)

// PeerConfig holds the ICE settings for every peer connection.
type PeerConfig struct {
	ICEServers          []string
	DisconnectedTimeout time.Duration
	FailedTimeout       time.Duration
	KeepAliveInterval   time.Duration
	// GatherTimeout caps the wait for ICE gathering before the description
	// is sent with whatever candidates are known.
	GatherTimeout time.Duration
}

// Pion is the production MediaSource and PeerFactory. Capture and the peer
// API share one codec setup so captured tracks negotiate cleanly.
type Pion struct {
	cfg    PeerConfig
	api    *webrtc.API
	codecs *codecs
}

func NewPion(cfg PeerConfig) (*Pion, error) {
	c, err := newCodecs()
	if err != nil {
		return nil, fmt.Errorf("codecs: %w", err)
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := c.populate(mediaEngine); err != nil {
		return nil, fmt.Errorf("media engine: %w", err)
	}

	interceptorRegistry := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, interceptorRegistry); err != nil {
		return nil, err
	}

	se := webrtc.SettingEngine{}
	if cfg.DisconnectedTimeout > 0 || cfg.FailedTimeout > 0 {
		se.SetICETimeouts(cfg.DisconnectedTimeout, cfg.FailedTimeout, cfg.KeepAliveInterval)
	}

	api := webrtc.NewAPI(
		webrtc.WithMediaEngine(mediaEngine),
		webrtc.WithInterceptorRegistry(interceptorRegistry),
		webrtc.WithSettingEngine(se),
	)
	return &Pion{cfg: cfg, api: api, codecs: c}, nil
}

func (p *Pion) GetUserMedia(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.codecs.capture(c)
}

// localTrack is a captured track that pion can send.
type localTrack interface {
	Track
	local() webrtc.TrackLocal
	bind(sender *webrtc.RTPSender)
}

func (p *Pion) NewPeer(stream Stream) (Peer, error) {
	var servers []webrtc.ICEServer
	if len(p.cfg.ICEServers) > 0 {
		servers = []webrtc.ICEServer{{URLs: p.cfg.ICEServers}}
	}
	pc, err := p.api.NewPeerConnection(webrtc.Configuration{ICEServers: servers})
	if err != nil {
		return nil, err
	}

	attached := 0
	if stream != nil {
		for _, t := range stream.Tracks() {
			lt, ok := t.(localTrack)
			if !ok {
				continue
			}
			sender, err := pc.AddTrack(lt.local())
			if err != nil {
				log.Printf("CALL: AddTrack(%s) error: %v", t.Kind(), err)
				continue
			}
			lt.bind(sender)
			attached++
		}
	}
	if attached == 0 {
		addRecvOnlyTransceivers(pc)
	}

	peer := &pionPeer{pc: pc, gatherTimeout: p.cfg.GatherTimeout}
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		log.Printf("CALL: peer connection %s", s)
		if s == webrtc.PeerConnectionStateFailed {
			peer.failed(errors.New("ice connection failed"))
		}
	})
	return peer, nil
}

type pionPeer struct {
	pc            *webrtc.PeerConnection
	gatherTimeout time.Duration

	mu       sync.Mutex
	onFailed func(error)
	done     bool
}

func (p *pionPeer) Offer(ctx context.Context) (json.RawMessage, error) {
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return nil, err
	}
	return p.complete(ctx, offer)
}

func (p *pionPeer) Answer(ctx context.Context, offer json.RawMessage) (json.RawMessage, error) {
	sd, err := parseDescription(offer, webrtc.SDPTypeOffer)
	if err != nil {
		return nil, err
	}
	if err := p.pc.SetRemoteDescription(sd); err != nil {
		return nil, fmt.Errorf("set remote offer: %w", err)
	}
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return nil, err
	}
	return p.complete(ctx, answer)
}

func (p *pionPeer) Accept(answer json.RawMessage) error {
	sd, err := parseDescription(answer, webrtc.SDPTypeAnswer)
	if err != nil {
		return err
	}
	if err := p.pc.SetRemoteDescription(sd); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	return nil
}

func (p *pionPeer) OnFailed(fn func(error)) {
	p.mu.Lock()
	p.onFailed = fn
	p.mu.Unlock()
}

func (p *pionPeer) Close() error {
	p.mu.Lock()
	p.done = true
	p.mu.Unlock()
	return p.pc.Close()
}

func (p *pionPeer) failed(err error) {
	p.mu.Lock()
	fn, done := p.onFailed, p.done
	p.mu.Unlock()
	if fn != nil && !done {
		go fn(err)
	}
}

// complete sets the local description and waits for ICE gathering so the
// payload carries every candidate (no trickle).
func (p *pionPeer) complete(ctx context.Context, desc webrtc.SessionDescription) (json.RawMessage, error) {
	gathered := webrtc.GatheringCompletePromise(p.pc)
	if err := p.pc.SetLocalDescription(desc); err != nil {
		return nil, fmt.Errorf("set local description: %w", err)
	}

	var timeout <-chan time.Time
	if p.gatherTimeout > 0 {
		t := time.NewTimer(p.gatherTimeout)
		defer t.Stop()
		timeout = t.C
	}
	select {
	case <-gathered:
	case <-timeout:
		log.Printf("CALL: ICE gathering timed out, sending partial candidates")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	local := p.pc.LocalDescription()
	if local == nil {
		return nil, errors.New("no local description")
	}
	return json.Marshal(local)
}

func parseDescription(raw json.RawMessage, want webrtc.SDPType) (webrtc.SessionDescription, error) {
	var sd webrtc.SessionDescription
	if len(raw) == 0 {
		return sd, errors.New("empty signal payload")
	}
	if err := json.Unmarshal(raw, &sd); err != nil {
		return sd, fmt.Errorf("decode signal: %w", err)
	}
	if sd.Type != want {
		return sd, fmt.Errorf("expected %s, got %s", want, sd.Type)
	}
	if sd.SDP == "" {
		return sd, errors.New("signal has no sdp")
	}
	return sd, nil
}

// addRecvOnlyTransceivers adds recvonly transceivers for video and audio so
// CreateOffer/CreateAnswer always produces valid m-lines with ICE credentials.
func addRecvOnlyTransceivers(pc *webrtc.PeerConnection) {
	for _, kind := range []webrtc.RTPCodecType{webrtc.RTPCodecTypeVideo, webrtc.RTPCodecTypeAudio} {
		if _, err := pc.AddTransceiverFromKind(kind, webrtc.RTPTransceiverInit{
			Direction: webrtc.RTPTransceiverDirectionRecvonly,
		}); err != nil {
			log.Printf("CALL: AddTransceiver(%s) error: %v", kind, err)
		}
	}
}
