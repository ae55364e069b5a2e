package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/leonardotrapani/mockroom/internal/language"
)

func (c *Config) Validate() error {
	if c.Audio.SampleRate != 16000 && c.Audio.SampleRate != 24000 {
		return fmt.Errorf("invalid audio.sample_rate: %d (must be 16000 or 24000)", c.Audio.SampleRate)
	}
	if c.Audio.BufferSize <= 0 {
		return fmt.Errorf("invalid audio.buffer_size: %d", c.Audio.BufferSize)
	}
	if c.Audio.ChannelBufferSize <= 0 {
		return fmt.Errorf("invalid audio.channel_buffer_size: %d", c.Audio.ChannelBufferSize)
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("invalid audio.volume: %v (must be between 0 and 1)", c.Audio.Volume)
	}

	if err := validateURL("call.signaling_url", c.Call.SignalingURL, "http", "https"); err != nil {
		return err
	}
	if c.Call.WebRTCURL != "" {
		if err := validateURL("call.webrtc_url", c.Call.WebRTCURL, "http", "https"); err != nil {
			return err
		}
	}
	if c.Call.Model == "" {
		return fmt.Errorf("invalid call.model: empty")
	}
	for i, s := range c.Call.ICEServers {
		if !strings.HasPrefix(s, "stun:") && !strings.HasPrefix(s, "turn:") && !strings.HasPrefix(s, "turns:") {
			return fmt.Errorf("invalid call.ice_servers[%d]: %q (must start with stun:, turn: or turns:)", i, s)
		}
	}
	if c.Call.Timeout <= 0 {
		return fmt.Errorf("invalid call.timeout: %v", c.Call.Timeout)
	}

	if c.Transcription.Enabled && c.Transcription.WSURL != "" {
		if err := validateURL("transcription.ws_url", c.Transcription.WSURL, "ws", "wss"); err != nil {
			return err
		}
	}
	if !language.IsValidCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use ISO-639-1 codes like 'en', 'es', 'fr')", c.Transcription.Language)
	}

	if c.Grading.Enabled {
		if err := validateURL("grading.url", c.Grading.URL, "http", "https"); err != nil {
			return err
		}
	}

	if c.Interview.DurationSec <= 0 {
		return fmt.Errorf("invalid interview.duration_sec: %d", c.Interview.DurationSec)
	}
	if strings.TrimSpace(c.Interview.Introduction) == "" {
		return fmt.Errorf("invalid interview.introduction: empty")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("invalid server.addr: empty")
	}

	switch c.Notifications.Type {
	case "", "desktop", "log", "none":
	default:
		return fmt.Errorf("invalid notifications.type: %s (must be desktop, log or none)", c.Notifications.Type)
	}
	return nil
}

// ValidateServer checks what the companion server needs to reach Azure.
// Secrets may come from the environment, so it runs on resolved settings.
func (c *Config) ValidateServer() error {
	s := c.ToServerSettings()
	var missing []string
	if s.Endpoint == "" {
		missing = append(missing, "server.endpoint")
	}
	if s.APIKey == "" {
		missing = append(missing, "server.api_key")
	}
	if s.Deployment == "" {
		missing = append(missing, "server.deployment")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing server settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func validateURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("invalid %s: empty", field)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid %s: %q", field, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: scheme %q (must be %s)", field, u.Scheme, strings.Join(schemes, " or "))
}
