package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/mockroom/internal/audio"
	"github.com/leonardotrapani/mockroom/internal/session"
)

// FormatClock renders seconds as mm:ss.
func FormatClock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

func statusDot(c session.ConnectionState) string {
	switch c {
	case session.Connected:
		return StyleSuccess.Render("●")
	case session.Error:
		return StyleError.Render("●")
	case session.Closed:
		return StyleMuted.Render("●")
	default:
		return StyleWarning.Render("●")
	}
}

func speakingLabel(who string, speaking bool, active string) string {
	if speaking {
		return StyleHighlight.Render(who + ": " + active)
	}
	return StyleMuted.Render(who + ": quiet")
}

// RenderStatus draws the interview screen for one snapshot.
func RenderStatus(title string, s session.Snapshot) string {
	var b strings.Builder

	if title != "" {
		b.WriteString(StyleHeader.Render(title))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "%s %s   %s / %s   remaining %s\n",
		statusDot(s.Connection),
		StyleLabel.Render(string(s.Connection)),
		FormatClock(s.Timer),
		FormatClock(s.DurationSec),
		FormatClock(s.Remaining()))

	if s.Closing {
		b.WriteString(StyleWarning.Render("Wrapping up: the interviewer is closing the interview"))
		b.WriteString("\n")
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		speakingLabel("Interviewer", s.AISpeaking, "speaking"),
		"   ",
		speakingLabel("You", s.LocalSpeaking, "speaking"),
	))
	b.WriteString("\n\n")

	b.WriteString(renderCaption(s.Caption))

	if s.Feedback != nil {
		body := fmt.Sprintf("%s %d/100\n%s", StyleLabel.Render("Score"), s.Feedback.Score, s.Feedback.Feedback)
		b.WriteString(StyleFeedbackBox.Render(body))
		b.WriteString("\n")
	}

	b.WriteString(renderDiagnostics(s))
	return b.String()
}

func renderCaption(c session.Caption) string {
	var lines []string
	if c.Final != nil && *c.Final != "" {
		lines = append(lines, *c.Final)
	}
	if c.Partial != "" {
		lines = append(lines, StyleSubtle.Render(c.Partial))
	}
	if len(lines) == 0 {
		return StyleMuted.Render("No captions yet") + "\n\n"
	}
	return StyleBox.Render(strings.Join(lines, "\n")) + "\n"
}

func renderDiagnostics(s session.Snapshot) string {
	var b strings.Builder

	audioLine := "Audio: " + string(s.AudioStatus)
	switch s.AudioStatus {
	case audio.StatusBlocked:
		b.WriteString(StyleWarning.Render(audioLine + " (press i to enable audio)"))
	case audio.StatusPlaying:
		b.WriteString(StyleSuccess.Render(audioLine))
	default:
		b.WriteString(StyleMuted.Render(audioLine))
	}
	b.WriteString("\n")

	if s.DevicesDisabled {
		b.WriteString(StyleWarning.Render("Camera preview disabled"))
		b.WriteString("\n")
	}
	if s.LastError != "" {
		b.WriteString(StyleError.Render("Error: " + s.LastError))
		b.WriteString("\n")
	}
	return b.String()
}
