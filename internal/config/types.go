package config

import (
	"reflect"
	"time"

	"github.com/leonardotrapani/mockroom/internal/notify"
)

type Config struct {
	Audio         AudioConfig         `toml:"audio"`
	Call          CallConfig          `toml:"call"`
	Transcription TranscriptionConfig `toml:"transcription"`
	Grading       GradingConfig       `toml:"grading"`
	Interview     InterviewConfig     `toml:"interview"`
	Server        ServerConfig        `toml:"server"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type AudioConfig struct {
	SampleRate        int     `toml:"sample_rate"` // 16000 or 24000
	Microphone        string  `toml:"microphone"`
	Camera            string  `toml:"camera"`
	Speaker           string  `toml:"speaker"`
	BufferSize        int     `toml:"buffer_size"`
	ChannelBufferSize int     `toml:"channel_buffer_size"`
	EchoCancellation  bool    `toml:"echo_cancellation"`
	PreferWorklet     bool    `toml:"prefer_worklet"`
	Volume            float64 `toml:"volume"`
	MonitorLocal      bool    `toml:"monitor_local"`
}

// CallConfig configures the voice call to the interviewer.
type CallConfig struct {
	SignalingURL string        `toml:"signaling_url"` // base of POST /session
	WebRTCURL    string        `toml:"webrtc_url"`
	Model        string        `toml:"model"`
	ICEServers   []string      `toml:"ice_servers"`
	Timeout      time.Duration `toml:"timeout"`
}

// TranscriptionConfig configures the caption channel. Empty secrets fall back
// to the MOCKROOM_AOAI_* environment variables.
type TranscriptionConfig struct {
	Enabled    bool   `toml:"enabled"`
	Endpoint   string `toml:"endpoint"`
	Deployment string `toml:"deployment"`
	APIKey     string `toml:"api_key"`
	APIVersion string `toml:"api_version"`
	WSURL      string `toml:"ws_url"`
	Language   string `toml:"language"`
	Prompt     string `toml:"prompt"`
}

type GradingConfig struct {
	Enabled bool   `toml:"enabled"`
	URL     string `toml:"url"` // base of POST /grade

	// used by the companion server
	Endpoint   string `toml:"endpoint"`
	Deployment string `toml:"deployment"`
	APIKey     string `toml:"api_key"`
	APIVersion string `toml:"api_version"`
}

type InterviewConfig struct {
	ID           string   `toml:"id"`
	Title        string   `toml:"title"`
	Introduction string   `toml:"introduction"`
	Questions    []string `toml:"questions"`
	DurationSec  int      `toml:"duration_sec"`
}

// ServerConfig configures the companion server that mints realtime sessions.
type ServerConfig struct {
	Addr       string `toml:"addr"`
	Endpoint   string `toml:"endpoint"`
	APIKey     string `toml:"api_key"`
	APIVersion string `toml:"api_version"`
	Deployment string `toml:"deployment"`
	Voice      string `toml:"voice"`
}

type NotificationsConfig struct {
	Enabled  bool           `toml:"enabled"`
	Type     string         `toml:"type"` // "desktop", "log", "none"
	Messages MessagesConfig `toml:"messages"`
}

type MessageConfig struct {
	Title string `toml:"title"`
	Body  string `toml:"body"`
}

type MessagesConfig struct {
	CallConnected  MessageConfig `toml:"call_connected"`
	ClosingSoon    MessageConfig `toml:"closing_soon"`
	CallEnded      MessageConfig `toml:"call_ended"`
	CallFailed     MessageConfig `toml:"call_failed"`
	ConfigReloaded MessageConfig `toml:"config_reloaded"`
}

// Resolve merges user config with defaults from MessageDefs
func (m *MessagesConfig) Resolve() map[notify.MessageType]notify.Message {
	result := make(map[notify.MessageType]notify.Message)

	v := reflect.ValueOf(m).Elem()
	t := v.Type()
	tagToField := make(map[string]int)
	for i := 0; i < t.NumField(); i++ {
		tagToField[t.Field(i).Tag.Get("toml")] = i
	}

	for _, def := range notify.MessageDefs {
		msg := notify.Message{
			Title:   def.DefaultTitle,
			Body:    def.DefaultBody,
			IsError: def.IsError,
		}
		if idx, ok := tagToField[def.ConfigKey]; ok {
			userMsg := v.Field(idx).Interface().(MessageConfig)
			if userMsg.Title != "" {
				msg.Title = userMsg.Title
			}
			if userMsg.Body != "" {
				msg.Body = userMsg.Body
			}
		}
		result[def.Type] = msg
	}
	return result
}
