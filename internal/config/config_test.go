package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/leonardotrapani/mockroom/internal/notify"
	"github.com/leonardotrapani/mockroom/internal/testutil"
)

// createTestConfig returns a valid configuration for testing
func createTestConfig() *Config {
	c := DefaultConfig()
	c.Call.SignalingURL = "http://localhost:8787"
	c.Call.WebRTCURL = "https://eastus2.realtimeapi-preview.ai.azure.com/v1/realtimertc"
	c.Transcription.Endpoint = "https://example.openai.azure.com"
	c.Transcription.Deployment = "gpt-4o-transcribe"
	c.Transcription.APIKey = "test-key"
	c.Interview.Questions = []string{"Tell me about yourself.", "Design a URL shortener."}
	return c
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"16 kHz capture", func(c *Config) { c.Audio.SampleRate = 16000 }, ""},
		{"bad sample rate", func(c *Config) { c.Audio.SampleRate = 44100 }, "audio.sample_rate"},
		{"zero buffer", func(c *Config) { c.Audio.BufferSize = 0 }, "audio.buffer_size"},
		{"zero channel buffer", func(c *Config) { c.Audio.ChannelBufferSize = 0 }, "audio.channel_buffer_size"},
		{"volume too loud", func(c *Config) { c.Audio.Volume = 1.5 }, "audio.volume"},
		{"missing signaling url", func(c *Config) { c.Call.SignalingURL = "" }, "call.signaling_url"},
		{"signaling url scheme", func(c *Config) { c.Call.SignalingURL = "ftp://host" }, "call.signaling_url"},
		{"bad webrtc url", func(c *Config) { c.Call.WebRTCURL = "not a url" }, "call.webrtc_url"},
		{"empty model", func(c *Config) { c.Call.Model = "" }, "call.model"},
		{"bad ice server", func(c *Config) { c.Call.ICEServers = []string{"stun:ok:3478", "http://x"} }, "call.ice_servers[1]"},
		{"zero timeout", func(c *Config) { c.Call.Timeout = 0 }, "call.timeout"},
		{"ws url scheme", func(c *Config) { c.Transcription.WSURL = "https://host/realtime" }, "transcription.ws_url"},
		{"bad language", func(c *Config) { c.Transcription.Language = "english" }, "transcription.language"},
		{"grading url", func(c *Config) { c.Grading.URL = "" }, "grading.url"},
		{"grading disabled", func(c *Config) { c.Grading.Enabled = false; c.Grading.URL = "" }, ""},
		{"zero duration", func(c *Config) { c.Interview.DurationSec = 0 }, "interview.duration_sec"},
		{"empty introduction", func(c *Config) { c.Interview.Introduction = "  " }, "interview.introduction"},
		{"empty server addr", func(c *Config) { c.Server.Addr = "" }, "server.addr"},
		{"bad notification type", func(c *Config) { c.Notifications.Type = "email" }, "notifications.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := createTestConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig() invalid: %v", err)
	}
}

func TestConfig_LoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.toml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := testutil.CreateTempConfigFile(t, `
[interview]
id = "backend-senior"
duration_sec = 300
questions = ["How would you shard a user table?"]

[call]
timeout = "10s"
`)
		c, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile: %v", err)
		}
		if c.Interview.ID != "backend-senior" || c.Interview.DurationSec != 300 || len(c.Interview.Questions) != 1 {
			t.Errorf("interview = %+v", c.Interview)
		}
		if c.Call.Timeout != 10*time.Second {
			t.Errorf("call.timeout = %v", c.Call.Timeout)
		}
		if c.Audio.SampleRate != 24000 || c.Server.Voice != "verse" {
			t.Errorf("defaults lost: audio=%+v server=%+v", c.Audio, c.Server)
		}
	})

	t.Run("invalid toml", func(t *testing.T) {
		path := filepath.Join(dir, "broken.toml")
		os.WriteFile(path, []byte("[interview\nid = "), 0600)
		if _, err := LoadFile(path); err == nil || errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected parse error, got %v", err)
		}
	})
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	original := createTestConfig()
	original.Notifications.Messages.CallEnded = MessageConfig{Title: "Done", Body: "Nice work"}

	if err := SaveFile(path, original); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("config mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Call.Timeout != original.Call.Timeout {
		t.Errorf("timeout = %v, want %v", loaded.Call.Timeout, original.Call.Timeout)
	}
	if loaded.Transcription.APIKey != "test-key" || loaded.Interview.Questions[1] != "Design a URL shortener." {
		t.Errorf("round trip lost values: %+v", loaded)
	}
	if loaded.Notifications.Messages.CallEnded.Title != "Done" {
		t.Errorf("message override lost")
	}
}

func TestSaveDefaultConfigKeepsExisting(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := SaveDefaultConfig(); err != nil {
		t.Fatalf("SaveDefaultConfig: %v", err)
	}
	path, err := GetConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(path, filepath.Join("mockroom", "config.toml")) {
		t.Errorf("config path = %s", path)
	}

	custom := createTestConfig()
	custom.Interview.ID = "custom"
	if err := Save(custom); err != nil {
		t.Fatal(err)
	}
	if err := SaveDefaultConfig(); err != nil {
		t.Fatal(err)
	}
	c, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if c.Interview.ID != "custom" {
		t.Errorf("SaveDefaultConfig overwrote existing config")
	}
}

func TestConfig_ConversionMethods(t *testing.T) {
	c := createTestConfig()
	c.Audio.Microphone = "alsa_input.usb"
	c.Call.ICEServers = []string{"stun:stun.example.org:3478"}

	rec := c.ToRecordingConfig()
	if rec.SampleRate != 24000 || rec.Device != "alsa_input.usb" || !rec.Communication {
		t.Errorf("recording config = %+v", rec)
	}

	neg := c.ToNegotiatorConfig()
	if neg.Model != c.Call.Model || neg.SignalingURL != c.Call.SignalingURL || len(neg.ICEServers) != 1 {
		t.Errorf("negotiator config = %+v", neg)
	}
	if !strings.Contains(neg.Instructions, "1. Tell me about yourself.") || !strings.HasPrefix(neg.Instructions, c.Interview.Introduction) {
		t.Errorf("instructions = %q", neg.Instructions)
	}

	rt := c.ToRealtimeOptions()
	if rt.Deployment != "gpt-4o-transcribe" || rt.APIKey != "test-key" || !rt.PreferWorklet {
		t.Errorf("realtime options = %+v", rt)
	}

	sc := c.ToSessionConfig()
	if sc.DurationSec != 600 || len(sc.Questions) != 2 {
		t.Errorf("session config = %+v", sc)
	}
	sc.Questions[0] = "changed"
	if c.Interview.Questions[0] == "changed" {
		t.Error("session config shares questions with config")
	}

	opts := c.ToSessionOptions()
	if opts.Devices.Camera != "/dev/video0" || opts.Constraints.Device != "alsa_input.usb" {
		t.Errorf("session options = %+v", opts)
	}
}

func TestInstructionsWithoutQuestions(t *testing.T) {
	i := InterviewConfig{Introduction: "Hello"}
	if got := i.Instructions(); got != "Hello" {
		t.Errorf("Instructions() = %q", got)
	}
}

func TestConfig_ToServerSettings(t *testing.T) {
	t.Run("config wins over env", func(t *testing.T) {
		t.Setenv(EnvServerAPIKey, "env-key")
		c := createTestConfig()
		c.Server.APIKey = "file-key"
		c.Server.Endpoint = "https://res.openai.azure.com"
		if s := c.ToServerSettings(); s.APIKey != "file-key" {
			t.Errorf("APIKey = %q", s.APIKey)
		}
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(EnvServerEndpoint, "https://env.openai.azure.com")
		t.Setenv(EnvServerAPIKey, "env-key")
		t.Setenv(EnvServerDeployment, "gpt-4o-realtime-preview")
		t.Setenv(EnvGradingDeployment, "o4-mini")
		t.Setenv(EnvGradingAPIKey, "")
		t.Setenv(EnvGradingEndpoint, "")
		s := createTestConfig().ToServerSettings()
		if s.Endpoint != "https://env.openai.azure.com" || s.APIKey != "env-key" || s.Deployment != "gpt-4o-realtime-preview" {
			t.Errorf("settings = %+v", s)
		}
		if s.GradingDeployment != "o4-mini" || s.GradingAPIKey != "env-key" || s.GradingEndpoint != s.Endpoint {
			t.Errorf("grading settings = %+v", s)
		}
		if err := createTestConfig().ValidateServer(); err != nil {
			t.Errorf("ValidateServer: %v", err)
		}
	})

	t.Run("missing values", func(t *testing.T) {
		for _, env := range []string{EnvServerEndpoint, EnvServerAPIKey, EnvServerDeployment} {
			t.Setenv(env, "")
		}
		err := createTestConfig().ValidateServer()
		if err == nil || !strings.Contains(err.Error(), "server.endpoint") || !strings.Contains(err.Error(), "server.deployment") {
			t.Errorf("ValidateServer() = %v", err)
		}
	})
}

func TestToRealtimeOptionsLeavesSecretsToEnvironment(t *testing.T) {
	c := createTestConfig()
	c.Transcription.Endpoint = ""
	c.Transcription.APIKey = ""
	c.Transcription.Language = "pt_BR"
	rt := c.ToRealtimeOptions()
	if rt.Endpoint != "" || rt.APIKey != "" {
		t.Errorf("empty secrets should reach the realtime env fallback, got %+v", rt)
	}
	if rt.Language != "pt" {
		t.Errorf("Language = %q, want pt", rt.Language)
	}
}

func TestMessagesConfig_Resolve(t *testing.T) {
	m := MessagesConfig{ClosingSoon: MessageConfig{Body: "Half a minute left"}}
	resolved := m.Resolve()

	if len(resolved) != len(notify.MessageDefs) {
		t.Fatalf("resolved %d messages, want %d", len(resolved), len(notify.MessageDefs))
	}
	closing := resolved[notify.MsgClosingSoon]
	if closing.Body != "Half a minute left" || closing.Title != "Mockroom" {
		t.Errorf("closing message = %+v", closing)
	}
	if !resolved[notify.MsgCallFailed].IsError {
		t.Error("call failed should be an error message")
	}
}

func TestManagerReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveFile(path, createTestConfig()); err != nil {
		t.Fatal(err)
	}

	m, err := NewManagerForFile(path)
	if err != nil {
		t.Fatalf("NewManagerForFile: %v", err)
	}
	reloaded := make(chan *Config, 4)
	m.OnReload(func(c *Config) {
		select {
		case reloaded <- c:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := m.StartWatching(ctx); err != nil {
		t.Fatalf("StartWatching: %v", err)
	}
	defer m.Stop()

	updated := createTestConfig()
	updated.Server.Voice = "alloy"
	if err := SaveFile(path, updated); err != nil {
		t.Fatal(err)
	}

	// the write may surface as several events, the last one carries the new file
	deadline := time.After(5 * time.Second)
	for voice := ""; voice != "alloy"; {
		select {
		case c := <-reloaded:
			voice = c.Server.Voice
		case <-deadline:
			t.Fatal("config was not reloaded")
		}
	}
	if v := m.Settings().Voice; v != "alloy" {
		t.Errorf("Settings().Voice = %q", v)
	}
}

func TestManagerKeepsConfigOnInvalidReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := SaveFile(path, createTestConfig()); err != nil {
		t.Fatal(err)
	}
	m, err := NewManagerForFile(path)
	if err != nil {
		t.Fatal(err)
	}

	bad := createTestConfig()
	bad.Interview.DurationSec = -1
	if err := SaveFile(path, bad); err != nil {
		t.Fatal(err)
	}
	m.reloadConfig()

	if got := m.GetConfig().Interview.DurationSec; got != 600 {
		t.Errorf("duration after invalid reload = %d, want 600", got)
	}
}
