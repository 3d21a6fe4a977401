//go:build linux

package call

import (
	"fmt"
	"log"
	"sync"

	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	"github.com/pion/mediadevices/pkg/codec/vpx"
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/frame"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
)

// codecs captures camera and microphone via pion/mediadevices (V4L2 and
// malgo on Linux) and encodes VP8 + Opus.
type codecs struct {
	selector *mediadevices.CodecSelector
}

func newCodecs() (*codecs, error) {
	vpxParams, err := vpx.NewVP8Params()
	if err != nil {
		return nil, err
	}
	vpxParams.BitRate = 1_000_000

	opusParams, err := opus.NewParams()
	if err != nil {
		return nil, err
	}

	return &codecs{selector: mediadevices.NewCodecSelector(
		mediadevices.WithVideoEncoders(&vpxParams),
		mediadevices.WithAudioEncoders(&opusParams),
	)}, nil
}

func (c *codecs) populate(me *webrtc.MediaEngine) error {
	c.selector.Populate(me)
	return nil
}

// capture opens the requested devices as one unit; a missing device fails
// the whole request.
func (c *codecs) capture(want Constraints) (Stream, error) {
	constraints := mediadevices.MediaStreamConstraints{Codec: c.selector}
	if want.Video {
		constraints.Video = func(mc *mediadevices.MediaTrackConstraints) {
			// Raw formats only. MJPEG nodes on some cameras yield frames
			// the VP8 encoder cannot consume.
			mc.FrameFormat = prop.FrameFormatOneOf{
				frame.FormatYUYV,
				frame.FormatI420,
				frame.FormatI444,
				frame.FormatRGBA,
			}
			mc.Width = prop.IntRanged{Max: 640}
			mc.Height = prop.IntRanged{Max: 480}
		}
	}
	if want.Audio {
		constraints.Audio = func(_ *mediadevices.MediaTrackConstraints) {}
	}

	ms, err := mediadevices.GetUserMedia(constraints)
	if err != nil {
		if len(mediadevices.EnumerateDevices()) == 0 {
			return nil, fmt.Errorf("no media devices found: %w", err)
		}
		return nil, err
	}

	var tracks []Track
	for _, t := range ms.GetTracks() {
		t.OnEnded(func(err error) {
			if err != nil {
				log.Printf("CALL: local track ended: %v", err)
			}
		})
		tracks = append(tracks, &deviceTrack{t: t, enabled: true})
	}
	log.Printf("CALL: local media captured, %d tracks", len(tracks))
	return deviceStream(tracks), nil
}

type deviceStream []Track

func (s deviceStream) Tracks() []Track { return s }

// deviceTrack adapts a mediadevices track. Disabling detaches it from its
// sender so nothing is transmitted; enabling re-attaches it.
type deviceTrack struct {
	t mediadevices.Track

	mu      sync.Mutex
	enabled bool
	sender  *webrtc.RTPSender
	stopped bool
}

func (d *deviceTrack) Kind() string { return d.t.Kind().String() }

func (d *deviceTrack) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

func (d *deviceTrack) SetEnabled(on bool) {
	d.mu.Lock()
	if d.enabled == on || d.stopped {
		d.mu.Unlock()
		return
	}
	d.enabled = on
	sender := d.sender
	d.mu.Unlock()

	if sender == nil {
		return
	}
	var next webrtc.TrackLocal
	if on {
		next = d.t
	}
	if err := sender.ReplaceTrack(next); err != nil {
		log.Printf("CALL: %s track enable=%v: %v", d.Kind(), on, err)
	}
}

func (d *deviceTrack) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.mu.Unlock()
	if err := d.t.Close(); err != nil {
		log.Printf("CALL: %s track close: %v", d.Kind(), err)
	}
}

func (d *deviceTrack) local() webrtc.TrackLocal { return d.t }

func (d *deviceTrack) bind(sender *webrtc.RTPSender) {
	d.mu.Lock()
	d.sender = sender
	d.mu.Unlock()
}
