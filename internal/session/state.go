package session

import (
	"errors"
	"fmt"

	"github.com/leonardotrapani/mockroom/internal/audio"
	"github.com/leonardotrapani/mockroom/internal/grading"
)

// ClosingLead is how many seconds before the end the wrap-up notice goes out.
const ClosingLead = 30

type ConnectionState string

const (
	Initializing ConnectionState = "initializing"
	Connecting   ConnectionState = "connecting"
	Connected    ConnectionState = "connected"
	Error        ConnectionState = "error"
	Closed       ConnectionState = "closed"
)

// Config describes one interview.
type Config struct {
	ID           string
	Introduction string
	Questions    []string
	DurationSec  int
}

func (c Config) Validate() error {
	if c.DurationSec <= 0 {
		return fmt.Errorf("session %q: duration must be positive, got %d", c.ID, c.DurationSec)
	}
	return nil
}

// DeviceSelection seeds capture and is not consulted after setup.
type DeviceSelection struct {
	Microphone string
	Camera     string
}

type Caption struct {
	Partial string
	Final   *string
}

// Snapshot is a copy of the session state record.
type Snapshot struct {
	SessionID       string
	Connection      ConnectionState
	Caption         Caption
	Feedback        *grading.Feedback
	Timer           int
	DurationSec     int
	Closing         bool
	AISpeaking      bool
	LocalSpeaking   bool
	AudioStatus     audio.Status
	LastError       string
	DevicesDisabled bool
	Active          bool
}

// Remaining returns the seconds left on the interview clock, never negative.
func (s Snapshot) Remaining() int {
	return max(s.DurationSec-s.Timer, 0)
}

// state is owned by the loop goroutine; every mutation goes through a method
// below so the rules live in one place.
type state struct {
	snap Snapshot
}

func newState(cfg Config) *state {
	return &state{snap: Snapshot{
		SessionID:   cfg.ID,
		Connection:  Initializing,
		DurationSec: cfg.DurationSec,
		AudioStatus: audio.StatusNoSource,
		Active:      true,
	}}
}

func (s *state) copy() Snapshot {
	out := s.snap
	if s.snap.Caption.Final != nil {
		f := *s.snap.Caption.Final
		out.Caption.Final = &f
	}
	if s.snap.Feedback != nil {
		fb := *s.snap.Feedback
		out.Feedback = &fb
	}
	return out
}

func (s *state) setConnection(c ConnectionState) bool {
	if !s.snap.Active || s.snap.Connection == c {
		return false
	}
	s.snap.Connection = c
	return true
}

// tick advances the clock; only counts while connected.
func (s *state) tick() bool {
	if !s.snap.Active || s.snap.Connection != Connected {
		return false
	}
	s.snap.Timer++
	return true
}

// closingDue reports whether the wrap-up notice is due and not yet delivered.
func (s *state) closingDue() bool {
	if s.snap.Closing || s.snap.Connection != Connected {
		return false
	}
	return s.snap.Timer >= s.snap.DurationSec-ClosingLead
}

// markClosing records a delivered wrap-up notice.
func (s *state) markClosing() {
	s.snap.Closing = true
}

func (s *state) partial(delta string) {
	s.snap.Caption.Partial += delta
}

func (s *state) final(text string) {
	s.snap.Caption.Partial = ""
	s.snap.Caption.Final = &text
}

func (s *state) feedback(fb grading.Feedback) {
	fb = fb.Clamped()
	s.snap.Feedback = &fb
}

func (s *state) fail(err error) {
	s.snap.LastError = err.Error()
	if s.snap.Active {
		s.snap.Connection = Error
	}
}

func (s *state) note(err error) {
	s.snap.LastError = err.Error()
}

func (s *state) disableDevices(err error) {
	s.snap.DevicesDisabled = true
	var merr *audio.MediaError
	if errors.As(err, &merr) {
		s.note(merr)
	} else {
		s.note(&audio.MediaError{Device: "camera", Err: err})
	}
}

func (s *state) end() {
	if s.snap.Connection != Error {
		s.snap.Connection = Closed
	}
	s.snap.AISpeaking = false
	s.snap.LocalSpeaking = false
	s.snap.Active = false
}
