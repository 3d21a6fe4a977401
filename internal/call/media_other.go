//go:build !linux

package call

import (
	"errors"

	"github.com/pion/webrtc/v4"
)

// codecs has no capture drivers off Linux; pion/mediadevices needs V4L2
// and malgo. Peers still negotiate with the default codec set.
type codecs struct{}

func newCodecs() (*codecs, error) { return &codecs{}, nil }

func (c *codecs) populate(me *webrtc.MediaEngine) error {
	return me.RegisterDefaultCodecs()
}

func (c *codecs) capture(Constraints) (Stream, error) {
	return nil, errors.New("local media capture is not supported on this platform")
}
