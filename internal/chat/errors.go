package chat

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyDraft      = errors.New("message is empty")
	ErrNoActiveChannel = errors.New("no active channel")
	ErrDisconnected    = errors.New("transport disconnected")
	// ErrStale is returned when a fetch completed after the active channel
	// changed. The result was discarded.
	ErrStale = errors.New("stale result discarded")
)

// FetchError is a failed history load. The cursor is left untouched so the
// load can be retried.
type FetchError struct {
	ChannelID string
	Page      int
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s page %d: %v", e.ChannelID, e.Page, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MutationError is a rejected send, edit or delete. It is never retried.
type MutationError struct {
	Op        string // "send", "edit" or "delete"
	MessageID string
	Err       error
}

func (e *MutationError) Error() string {
	if e.MessageID == "" {
		return fmt.Sprintf("%s message: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s message %s: %v", e.Op, e.MessageID, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }
