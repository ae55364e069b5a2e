package session

import (
	"context"
	"errors"
	"sync"

	"github.com/leonardotrapani/mockroom/internal/audio"
)

var errMicReleased = errors.New("microphone released")

// sharedMic holds the one capture both the call and transcription read from.
// Only the loop calls Release, after both consumers have stopped.
type sharedMic struct {
	source      audio.MediaSource
	constraints audio.Constraints

	mu       sync.Mutex
	track    audio.Track
	released bool
}

func (m *sharedMic) Open(ctx context.Context) (*audio.Stream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.released {
		return nil, errMicReleased
	}
	if m.track != nil {
		return m.track.Stream(), nil
	}
	track, err := m.source.OpenMicrophone(ctx, m.constraints)
	if err != nil {
		return nil, err
	}
	m.track = track
	return track.Stream(), nil
}

func (m *sharedMic) Stream() *audio.Stream {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.track == nil {
		return nil
	}
	return m.track.Stream()
}

func (m *sharedMic) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	if m.track == nil {
		return nil
	}
	err := m.track.Stop()
	m.track = nil
	return err
}
