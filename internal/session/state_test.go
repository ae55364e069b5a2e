package session

import (
	"testing"

	"github.com/leonardotrapani/mockroom/internal/grading"
)

func TestStateClosingDue(t *testing.T) {
	tests := []struct {
		name       string
		duration   int
		timer      int
		connection ConnectionState
		closing    bool
		want       bool
	}{
		{"before threshold", 300, 269, Connected, false, false},
		{"at threshold", 300, 270, Connected, false, true},
		{"past threshold", 300, 280, Connected, false, true},
		{"already closing", 300, 270, Connected, true, false},
		{"not connected", 300, 270, Connecting, false, false},
		{"short interview", 20, 0, Connected, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newState(Config{DurationSec: tt.duration})
			s.snap.Connection = tt.connection
			s.snap.Timer = tt.timer
			s.snap.Closing = tt.closing
			if got := s.closingDue(); got != tt.want {
				t.Errorf("closingDue() = %v, want %v", got, tt.want)
			}
			if !tt.want {
				return
			}
			if !s.closingDue() {
				t.Error("closingDue() cleared before the notice was delivered")
			}
			s.markClosing()
			if s.closingDue() {
				t.Error("closingDue() true after markClosing")
			}
		})
	}
}

func TestStateCaptions(t *testing.T) {
	s := newState(Config{DurationSec: 60})
	s.partial("hel")
	s.partial("lo")
	if s.snap.Caption.Partial != "hello" || s.snap.Caption.Final != nil {
		t.Fatalf("caption = %+v", s.snap.Caption)
	}
	s.final("hello there")
	if s.snap.Caption.Partial != "" || *s.snap.Caption.Final != "hello there" {
		t.Fatalf("caption = %+v", s.snap.Caption)
	}

	snap := s.copy()
	s.final("changed")
	if *snap.Caption.Final != "hello there" {
		t.Error("snapshot shares caption with state")
	}
}

func TestStateFeedbackClamped(t *testing.T) {
	s := newState(Config{DurationSec: 60})
	s.feedback(grading.Feedback{Score: 130, Feedback: "great"})
	if s.snap.Feedback.Score != 100 {
		t.Errorf("score = %d, want 100", s.snap.Feedback.Score)
	}
}

func TestStateEnd(t *testing.T) {
	s := newState(Config{DurationSec: 60})
	s.snap.Connection = Connected
	s.end()
	if s.snap.Connection != Closed || s.snap.Active {
		t.Errorf("after end = %+v", s.snap)
	}
	if s.setConnection(Connected) {
		t.Error("connection changed after end")
	}

	s = newState(Config{DurationSec: 60})
	s.fail(errString("boom"))
	s.end()
	if s.snap.Connection != Error {
		t.Errorf("error state overwritten: %s", s.snap.Connection)
	}
}

type errString string

func (e errString) Error() string { return string(e) }

func TestSnapshotRemaining(t *testing.T) {
	if got := (Snapshot{DurationSec: 300, Timer: 270}).Remaining(); got != 30 {
		t.Errorf("Remaining = %d", got)
	}
	if got := (Snapshot{DurationSec: 30, Timer: 45}).Remaining(); got != 0 {
		t.Errorf("Remaining = %d", got)
	}
}
