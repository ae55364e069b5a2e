package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/leonardotrapani/mockroom/internal/audio"
	"github.com/leonardotrapani/mockroom/internal/language"
	"github.com/leonardotrapani/mockroom/internal/negotiator"
	"github.com/leonardotrapani/mockroom/internal/realtime"
	"github.com/leonardotrapani/mockroom/internal/recording"
	"github.com/leonardotrapani/mockroom/internal/server"
	"github.com/leonardotrapani/mockroom/internal/session"
)

// Environment fallbacks for the companion server, named as the hosted
// deployment names them.
const (
	EnvServerEndpoint    = "AZURE_OPENAI_ENDPOINT"
	EnvServerAPIKey      = "AZURE_OPENAI_API_KEY"
	EnvServerAPIVersion  = "OPENAI_API_VERSION"
	EnvServerDeployment  = "AZURE_OPENAI_DEPLOYMENT_NAME"
	EnvServerVoice       = "AZURE_OPENAI_VOICE"
	EnvGradingEndpoint   = "AOAI_ENDPOINT"
	EnvGradingAPIKey     = "AOAI_KEY"
	EnvGradingDeployment = "AOAI_DEPLOYMENT_GRADE"
)

func (c *Config) ToRecordingConfig() recording.Config {
	return recording.Config{
		SampleRate:        c.Audio.SampleRate,
		Channels:          1,
		BufferSize:        c.Audio.BufferSize,
		Device:            c.Audio.Microphone,
		ChannelBufferSize: c.Audio.ChannelBufferSize,
		Communication:     c.Audio.EchoCancellation,
	}
}

func (c *Config) ToConstraints() audio.Constraints {
	return audio.Constraints{
		SampleRate:       c.Audio.SampleRate,
		Channels:         1,
		Device:           c.Audio.Microphone,
		EchoCancellation: c.Audio.EchoCancellation,
		NoiseSuppression: c.Audio.EchoCancellation,
		AutoGainControl:  c.Audio.EchoCancellation,
	}
}

func (c *Config) ToNegotiatorConfig() negotiator.Config {
	return negotiator.Config{
		SignalingURL: c.Call.SignalingURL,
		WebRTCURL:    c.Call.WebRTCURL,
		Model:        c.Call.Model,
		Instructions: c.Interview.Instructions(),
		ICEServers:   c.Call.ICEServers,
	}
}

func (c *Config) ToRealtimeOptions() realtime.Options {
	return realtime.Options{
		Endpoint:      c.Transcription.Endpoint,
		Deployment:    c.Transcription.Deployment,
		APIKey:        c.Transcription.APIKey,
		WSURL:         c.Transcription.WSURL,
		APIVersion:    c.Transcription.APIVersion,
		Prompt:        c.Transcription.Prompt,
		Language:      language.Normalize(c.Transcription.Language),
		PreferWorklet: c.Audio.PreferWorklet,
	}
}

func (c *Config) ToSessionConfig() session.Config {
	return session.Config{
		ID:           c.Interview.ID,
		Introduction: c.Interview.Introduction,
		Questions:    append([]string(nil), c.Interview.Questions...),
		DurationSec:  c.Interview.DurationSec,
	}
}

func (c *Config) ToSessionOptions() session.Options {
	return session.Options{
		Devices:      session.DeviceSelection{Microphone: c.Audio.Microphone, Camera: c.Audio.Camera},
		Constraints:  c.ToConstraints(),
		Volume:       c.Audio.Volume,
		MonitorLocal: c.Audio.MonitorLocal,
	}
}

// ToServerSettings resolves the companion server settings, falling back to
// the environment for anything left empty.
func (c *Config) ToServerSettings() server.Settings {
	s := server.Settings{
		Endpoint:   firstNonEmpty(c.Server.Endpoint, os.Getenv(EnvServerEndpoint)),
		APIKey:     firstNonEmpty(c.Server.APIKey, os.Getenv(EnvServerAPIKey)),
		APIVersion: firstNonEmpty(c.Server.APIVersion, os.Getenv(EnvServerAPIVersion)),
		Deployment: firstNonEmpty(c.Server.Deployment, os.Getenv(EnvServerDeployment)),
		Voice:      firstNonEmpty(c.Server.Voice, os.Getenv(EnvServerVoice)),
	}
	// grading shares the Azure resource unless configured separately
	s.GradingEndpoint = firstNonEmpty(c.Grading.Endpoint, os.Getenv(EnvGradingEndpoint), s.Endpoint)
	s.GradingAPIKey = firstNonEmpty(c.Grading.APIKey, os.Getenv(EnvGradingAPIKey), s.APIKey)
	s.GradingDeployment = firstNonEmpty(c.Grading.Deployment, os.Getenv(EnvGradingDeployment))
	s.GradingAPIVersion = c.Grading.APIVersion
	return s
}

// Instructions is the opening message for the interviewer: the introduction
// followed by the numbered questions.
func (i InterviewConfig) Instructions() string {
	if len(i.Questions) == 0 {
		return i.Introduction
	}
	var b strings.Builder
	b.WriteString(i.Introduction)
	b.WriteString("\n\nAsk these questions in order:\n")
	for n, q := range i.Questions {
		fmt.Fprintf(&b, "%d. %s\n", n+1, q)
	}
	return strings.TrimRight(b.String(), "\n")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
