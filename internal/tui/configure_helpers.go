package tui

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/leonardotrapani/mockroom/internal/config"
	"github.com/leonardotrapani/mockroom/internal/language"
)

func maskAPIKey(key string) string {
	if key == "" {
		return "(env)"
	}
	if len(key) <= 8 {
		return "***"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// parseQuestions splits a multi-line field into questions, one per line.
func parseQuestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if q := strings.TrimSpace(line); q != "" {
			out = append(out, q)
		}
	}
	return out
}

func formatQuestions(qs []string) string {
	return strings.Join(qs, "\n")
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if n <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

func validateVolume(s string) error {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return fmt.Errorf("must be a number")
	}
	if v < 0 || v > 1 {
		return fmt.Errorf("must be between 0 and 1")
	}
	return nil
}

func validateDuration(s string) error {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("use a duration like 30s or 1m")
	}
	if d <= 0 {
		return fmt.Errorf("must be greater than zero")
	}
	return nil
}

// validateOptionalURL accepts an empty value or an absolute URL with one of
// the given schemes.
func validateOptionalURL(schemes ...string) func(string) error {
	return func(s string) error {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			return fmt.Errorf("not a valid URL")
		}
		for _, scheme := range schemes {
			if u.Scheme == scheme {
				return nil
			}
		}
		return fmt.Errorf("scheme must be %s", strings.Join(schemes, " or "))
	}
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

func formatInterviewLabel(cfg *config.Config) string {
	title := cfg.Interview.Title
	if title == "" {
		title = cfg.Interview.ID
	}
	return fmt.Sprintf("Interview (%s, %d questions, %s)",
		title, len(cfg.Interview.Questions), FormatClock(cfg.Interview.DurationSec))
}

func formatCallLabel(cfg *config.Config) string {
	return fmt.Sprintf("Call (%s, model=%s)", cfg.Call.SignalingURL, cfg.Call.Model)
}

func formatTranscriptionLabel(cfg *config.Config) string {
	if !cfg.Transcription.Enabled {
		return "Captions (disabled)"
	}
	return fmt.Sprintf("Captions (enabled, %s)", language.Label(cfg.Transcription.Language))
}

func formatGradingLabel(cfg *config.Config) string {
	if !cfg.Grading.Enabled {
		return "Grading (disabled)"
	}
	return fmt.Sprintf("Grading (%s)", cfg.Grading.URL)
}

func formatServerLabel(cfg *config.Config) string {
	return fmt.Sprintf("Server (%s, key=%s)", cfg.Server.Addr, maskAPIKey(cfg.Server.APIKey))
}

func formatAudioLabel(cfg *config.Config) string {
	mic := cfg.Audio.Microphone
	if mic == "" {
		mic = "default"
	}
	return fmt.Sprintf("Audio (mic=%s, volume=%.2f)", mic, cfg.Audio.Volume)
}

func formatNotificationsLabel(cfg *config.Config) string {
	if !cfg.Notifications.Enabled {
		return "Notifications (disabled)"
	}
	return fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type)
}

// summary lists what will be written on save.
func summary(cfg *config.Config) string {
	lines := []string{
		formatInterviewLabel(cfg),
		formatCallLabel(cfg),
		formatTranscriptionLabel(cfg),
		formatGradingLabel(cfg),
		formatServerLabel(cfg),
		formatAudioLabel(cfg),
		formatNotificationsLabel(cfg),
	}
	return strings.Join(lines, "\n")
}

// languageOptions lists auto-detect first, then every caption language.
func languageOptions() []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption(language.Auto.Name, "")}
	for _, l := range language.List() {
		label := l.Name
		if l.NativeName != "" && l.NativeName != l.Name {
			label += " - " + l.NativeName
		}
		opts = append(opts, huh.NewOption(label+" ("+l.Code+")", l.Code))
	}
	return opts
}
