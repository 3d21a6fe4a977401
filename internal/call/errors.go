package call

import (
	"errors"
	"fmt"
)

var (
	ErrBusy      = errors.New("call: a call is already in progress")
	ErrNoSession = errors.New("call: no matching call session")
	ErrStale     = errors.New("call: session ended before completion")
	ErrClosed    = errors.New("call: manager closed")
)

// MediaAccessError means local devices could not be opened. It is terminal
// for the call attempt in progress.
type MediaAccessError struct {
	Kind Kind
	Err  error
}

func (e *MediaAccessError) Error() string {
	return fmt.Sprintf("call: %s media unavailable: %v", e.Kind, e.Err)
}

func (e *MediaAccessError) Unwrap() error { return e.Err }

// SignalingError covers malformed or out-of-order signaling and peer
// connection failure. It ends the session it occurred in.
type SignalingError struct {
	Op  string
	Err error
}

func (e *SignalingError) Error() string {
	return fmt.Sprintf("call: signaling %s: %v", e.Op, e.Err)
}

func (e *SignalingError) Unwrap() error { return e.Err }
