package audio

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoDevice is reported when no capture device is available.
var ErrNoDevice = errors.New("no capture device")

// MediaError reports a device permission or availability failure.
type MediaError struct {
	Device string // "microphone", "camera", "speaker"
	Err    error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s unavailable", e.Device)
	}
	return fmt.Sprintf("%s unavailable: %v", e.Device, e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

// Constraints describe the requested microphone capture.
type Constraints struct {
	SampleRate       int // 16000 or 24000
	Channels         int
	Device           string
	EchoCancellation bool
	NoiseSuppression bool
	AutoGainControl  bool
}

// DefaultConstraints mirror what the call and the transcription channel need.
func DefaultConstraints() Constraints {
	return Constraints{
		SampleRate:       24000,
		Channels:         1,
		EchoCancellation: true,
		NoiseSuppression: true,
		AutoGainControl:  true,
	}
}

// Track is a live capture. Only its owner may Stop it; consumers Subscribe to
// the Stream instead.
type Track interface {
	Stream() *Stream
	Stop() error
}

// Preview is a running camera preview.
type Preview interface {
	Stop() error
}

// MediaSource provides capture devices.
type MediaSource interface {
	OpenMicrophone(ctx context.Context, c Constraints) (Track, error)
	StartPreview(ctx context.Context, camera string) (Preview, error)
}
