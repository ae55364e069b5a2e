package recording

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"sync"

	"github.com/leonardotrapani/mockroom/internal/audio"
)

// PipeWireSource opens capture devices through the PipeWire command line tools.
type PipeWireSource struct {
	// Base supplies buffering and format; constraints override the rest.
	Base Config
}

// NewPipeWireSource captures with base, or DefaultConfig when base is zero.
func NewPipeWireSource(base Config) *PipeWireSource {
	if base.SampleRate == 0 {
		base = DefaultConfig()
	}
	return &PipeWireSource{Base: base}
}

// OpenMicrophone starts pw-record and returns a track publishing mono float
// samples. Every failure is reported as an *audio.MediaError.
func (p *PipeWireSource) OpenMicrophone(ctx context.Context, c audio.Constraints) (audio.Track, error) {
	cfg := p.Base
	if cfg.SampleRate == 0 {
		cfg = DefaultConfig()
	}
	if c.SampleRate > 0 {
		cfg.SampleRate = c.SampleRate
	}
	if c.Channels > 0 {
		cfg.Channels = c.Channels
	}
	if c.Device != "" {
		cfg.Device = c.Device
	}
	cfg.Communication = c.EchoCancellation || c.NoiseSuppression || c.AutoGainControl

	if cfg.Communication && !HasEchoCancel(ctx) {
		log.Printf("Recording: echo-cancel filter not loaded, capturing unprocessed audio")
	}

	// the capture outlives the setup context; Stop ends it
	capture, err := StartCapture(context.WithoutCancel(ctx), cfg)
	if err != nil {
		return nil, &audio.MediaError{Device: "microphone", Err: err}
	}

	t := &MicTrack{
		capture:  capture,
		stream:   audio.NewStream("microphone", cfg.SampleRate),
		channels: cfg.Channels,
		done:     make(chan struct{}),
	}
	go t.pump()
	return t, nil
}

// MicTrack publishes a running capture as mono samples.
type MicTrack struct {
	capture  *Capture
	stream   *audio.Stream
	channels int
	once     sync.Once
	done     chan struct{}
}

func (t *MicTrack) Stream() *audio.Stream { return t.stream }

func (t *MicTrack) Stop() error {
	t.once.Do(func() {
		_ = t.capture.Stop()
		<-t.done
		t.stream.Close()
	})
	return nil
}

func (t *MicTrack) pump() {
	defer close(t.done)
	var dec f32Decoder
	for chunk := range t.capture.Chunks() {
		if samples := dec.decode(chunk, t.channels); len(samples) > 0 {
			t.stream.Publish(samples)
		}
	}
	if err := t.capture.Err(); err != nil {
		log.Printf("Recording: microphone stopped: %v", err)
	}
}

// f32Decoder turns little-endian f32 bytes into mono samples, carrying
// partial samples across reads.
type f32Decoder struct {
	carry []byte
}

func (d *f32Decoder) decode(data []byte, channels int) []float32 {
	if channels <= 0 {
		channels = 1
	}
	if len(d.carry) > 0 {
		data = append(d.carry, data...)
		d.carry = nil
	}
	frameBytes := 4 * channels
	whole := len(data) / frameBytes * frameBytes
	if rest := data[whole:]; len(rest) > 0 {
		d.carry = append([]byte(nil), rest...)
	}

	out := make([]float32, whole/frameBytes)
	for i := range out {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*4
			sum += math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))
		}
		out[i] = sum / float32(channels)
	}
	return out
}

// StartPreview shows the camera in an ffplay window. The preview is purely
// local and never enters the call.
func (p *PipeWireSource) StartPreview(ctx context.Context, camera string) (audio.Preview, error) {
	pv, err := startCameraPreview(ctx, camera)
	if err != nil {
		return nil, &audio.MediaError{Device: "camera", Err: fmt.Errorf("start preview: %w", err)}
	}
	return pv, nil
}
