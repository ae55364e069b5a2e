package realtime

import (
	"fmt"
	"strings"
)

// ConfigurationError lists every required setting that could not be resolved.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("transcription not configured: missing %s", strings.Join(e.Missing, ", "))
}

// ProtocolError reports a server error frame or a broken connection.
type ProtocolError struct {
	Code    string
	Message string
	Err     error
}

func (e *ProtocolError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Err != nil {
		if msg == "" {
			return fmt.Sprintf("transcription protocol error: %v", e.Err)
		}
		return fmt.Sprintf("transcription protocol error: %s: %v", msg, e.Err)
	}
	return "transcription protocol error: " + msg
}

func (e *ProtocolError) Unwrap() error { return e.Err }
