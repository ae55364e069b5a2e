package negotiator

import (
	"errors"
	"fmt"

	"github.com/leonardotrapani/mockroom/internal/audio"
)

// ErrClosed is returned by operations on a closed Negotiator.
var ErrClosed = errors.New("negotiator closed")

// ErrChannelNotOpen is returned when a control frame is sent before the
// control channel has opened.
var ErrChannelNotOpen = errors.New("control channel not open")

// MediaError is the capture failure type shared with the audio pipeline.
type MediaError = audio.MediaError

// CredentialError reports a failed ephemeral credential request.
type CredentialError struct {
	Status int
	Body   string
	Err    error
}

func (e *CredentialError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("session credential request failed: %v", e.Err)
	case e.Status != 0:
		return fmt.Sprintf("session credential request failed: status %d: %s", e.Status, e.Body)
	}
	return "session credential request failed"
}

func (e *CredentialError) Unwrap() error { return e.Err }

// NegotiationError reports a failed offer/answer exchange.
type NegotiationError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *NegotiationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("negotiation %s failed: status %d: %s", e.Op, e.Status, e.Body)
	}
	if e.Err != nil {
		return fmt.Sprintf("negotiation %s failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("negotiation %s failed", e.Op)
}

func (e *NegotiationError) Unwrap() error { return e.Err }
