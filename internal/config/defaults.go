package config

import (
	"time"

	"github.com/leonardotrapani/mockroom/internal/realtime"
)

const defaultIntroduction = "You are a friendly but rigorous interviewer. Introduce yourself, " +
	"explain the format briefly, then ask the candidate the interview questions one at a time."

// DefaultConfig returns the initial configuration written by configure.
func DefaultConfig() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:        24000,
			Camera:            "/dev/video0",
			BufferSize:        3840,
			ChannelBufferSize: 32,
			EchoCancellation:  true,
			PreferWorklet:     true,
			Volume:            1,
		},
		Call: CallConfig{
			SignalingURL: "http://127.0.0.1:8787",
			Model:        "gpt-4o-realtime-preview",
			Timeout:      30 * time.Second,
		},
		Transcription: TranscriptionConfig{
			Enabled:    true,
			APIVersion: realtime.DefaultAPIVersion,
			Language:   realtime.DefaultLanguage,
		},
		Grading: GradingConfig{
			Enabled:    true,
			URL:        "http://127.0.0.1:8787",
			APIVersion: "2024-02-15-preview",
		},
		Interview: InterviewConfig{
			ID:           "general",
			Title:        "General interview",
			Introduction: defaultIntroduction,
			DurationSec:  600,
		},
		Server: ServerConfig{
			Addr:       "127.0.0.1:8787",
			APIVersion: "2025-04-01-preview",
			Voice:      "verse",
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Type:    "desktop",
		},
	}
}
