package tui

import (
	"strings"
	"testing"

	"github.com/leonardotrapani/mockroom/internal/audio"
	"github.com/leonardotrapani/mockroom/internal/grading"
	"github.com/leonardotrapani/mockroom/internal/session"
)

func strPtr(s string) *string { return &s }

func TestFormatClock(t *testing.T) {
	tests := []struct {
		sec  int
		want string
	}{
		{0, "00:00"},
		{59, "00:59"},
		{61, "01:01"},
		{600, "10:00"},
		{-5, "00:00"},
	}
	for _, tt := range tests {
		if got := FormatClock(tt.sec); got != tt.want {
			t.Errorf("FormatClock(%d) = %q, want %q", tt.sec, got, tt.want)
		}
	}
}

func TestRenderStatus(t *testing.T) {
	snap := session.Snapshot{
		Connection:  session.Connected,
		Timer:       75,
		DurationSec: 300,
		Closing:     true,
		AISpeaking:  true,
		AudioStatus: audio.StatusBlocked,
		Caption:     session.Caption{Final: strPtr("I led the migration"), Partial: "and then"},
		Feedback:    &grading.Feedback{Score: 82, Feedback: "Clear and structured"},
		LastError:   "transcription: protocol error",
		Active:      true,
	}

	out := RenderStatus("Backend interview", snap)
	for _, want := range []string{
		"Backend interview",
		"connected",
		"01:15 / 05:00",
		"remaining 03:45",
		"Wrapping up",
		"Interviewer: speaking",
		"You: quiet",
		"I led the migration",
		"and then",
		"82/100",
		"Clear and structured",
		"press i to enable audio",
		"transcription: protocol error",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("RenderStatus() missing %q in:\n%s", want, out)
		}
	}
}

func TestRenderStatusEmpty(t *testing.T) {
	snap := session.Snapshot{Connection: session.Connecting, DurationSec: 60, AudioStatus: audio.StatusNoSource, Active: true}
	out := RenderStatus("", snap)
	if !strings.Contains(out, "No captions yet") {
		t.Errorf("expected caption placeholder, got:\n%s", out)
	}
	for _, absent := range []string{"Score", "Wrapping up", "Error:", "Camera preview disabled"} {
		if strings.Contains(out, absent) {
			t.Errorf("unexpected %q in:\n%s", absent, out)
		}
	}
}

func TestRenderStatusDevicesDisabled(t *testing.T) {
	snap := session.Snapshot{Connection: session.Connected, DurationSec: 60, DevicesDisabled: true, Active: true}
	if out := RenderStatus("", snap); !strings.Contains(out, "Camera preview disabled") {
		t.Errorf("expected devices notice, got:\n%s", out)
	}
}
