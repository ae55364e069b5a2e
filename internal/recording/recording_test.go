package recording

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leonardotrapani/mockroom/internal/audio"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.SampleRate != 24000 || cfg.Channels != 1 || cfg.Device != "" {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
	if cfg.BufferSize%4 != 0 {
		t.Errorf("buffer size %d does not hold whole f32 samples", cfg.BufferSize)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"16k capture", func(c *Config) { c.SampleRate = 16000 }, false},
		{"unaligned buffer", func(c *Config) { c.BufferSize = 4097 }, false},
		{"zero rate", func(c *Config) { c.SampleRate = 0 }, true},
		{"negative rate", func(c *Config) { c.SampleRate = -1 }, true},
		{"zero channels", func(c *Config) { c.Channels = 0 }, true},
		{"zero buffer", func(c *Config) { c.BufferSize = 0 }, true},
		{"zero queue", func(c *Config) { c.ChannelBufferSize = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.validate(); (err != nil) != tt.wantErr {
				t.Errorf("validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPwRecordArgs(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want []string
	}{
		{
			name: "defaults",
			cfg:  DefaultConfig(),
			want: []string{"--format", "f32", "--rate", "24000", "--channels", "1", "-"},
		},
		{
			name: "device and echo cancel",
			cfg:  Config{SampleRate: 16000, Channels: 1, Device: "alsa_input.usb-headset", Communication: true},
			want: []string{
				"--format", "f32", "--rate", "16000", "--channels", "1",
				"--target", "alsa_input.usb-headset",
				"--media-role", "Communication",
				"-",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pwRecordArgs(tt.cfg)
			if len(got) != len(tt.want) {
				t.Fatalf("args = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("arg[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// fakeTools replaces PATH with a directory holding the given shell scripts.
func fakeTools(t *testing.T, scripts map[string]string) {
	t.Helper()
	dir := t.TempDir()
	for name, body := range scripts {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("PATH", dir)
}

func TestStartCaptureWithoutPipeWire(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := StartCapture(context.Background(), DefaultConfig()); err == nil {
		t.Fatal("expected an error without pw-record")
	}
}

func TestStartCaptureRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleRate = 0
	if _, err := StartCapture(context.Background(), cfg); err == nil {
		t.Fatal("expected a config error")
	}
}

func TestCaptureDeliversOutput(t *testing.T) {
	fakeTools(t, map[string]string{
		"pw-cli":    "exit 0",
		"pw-record": "printf 'abcdefghijklmnop'",
	})

	c, err := StartCapture(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	defer c.Stop()

	var got []byte
	timeout := time.After(5 * time.Second)
	for done := false; !done; {
		select {
		case chunk, ok := <-c.Chunks():
			if !ok {
				done = true
				break
			}
			got = append(got, chunk...)
		case <-timeout:
			t.Fatal("capture did not finish")
		}
	}
	if string(got) != "abcdefghijklmnop" {
		t.Errorf("read %q from pw-record", got)
	}
	if err := c.Err(); err != nil {
		t.Errorf("Err() after clean exit = %v", err)
	}
	if err := c.Stop(); err != nil {
		t.Errorf("second Stop: %v", err)
	}
}

func TestCaptureStop(t *testing.T) {
	fakeTools(t, map[string]string{
		"pw-cli":    "exit 0",
		"pw-record": "while :; do :; done",
	})

	c, err := StartCapture(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("StartCapture: %v", err)
	}
	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not end pw-record")
	}
	if _, ok := <-c.Chunks(); ok {
		t.Error("chunks still open after Stop")
	}
}

func TestCheckPipeWireAvailableCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	// result depends on the host; it must only return promptly
	done := make(chan struct{})
	go func() {
		_ = CheckPipeWireAvailable(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("CheckPipeWireAvailable did not honour the context")
	}
}

func f32bytes(samples ...float32) []byte {
	var b []byte
	for _, s := range samples {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(s))
	}
	return b
}

func TestF32DecoderCarriesPartialSamples(t *testing.T) {
	var d f32Decoder
	data := f32bytes(0.5, -0.25, 1)

	first := d.decode(data[:6], 1)
	if len(first) != 1 || first[0] != 0.5 {
		t.Fatalf("first read = %v", first)
	}
	second := d.decode(data[6:], 1)
	if len(second) != 2 || second[0] != -0.25 || second[1] != 1 {
		t.Fatalf("second read = %v", second)
	}
}

func TestF32DecoderDownmix(t *testing.T) {
	var d f32Decoder
	got := d.decode(f32bytes(1, 0, -0.5, -0.5), 2)
	if len(got) != 2 || got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("downmix = %v", got)
	}
}

func TestBuildPreviewArgs(t *testing.T) {
	args := buildPreviewArgs("")
	if args[len(args)-1] != defaultCamera {
		t.Errorf("expected default camera, got %v", args)
	}
	args = buildPreviewArgs("/dev/video2")
	if args[len(args)-1] != "/dev/video2" {
		t.Errorf("expected selected camera, got %v", args)
	}
}

func TestBuildPwPlayArgs(t *testing.T) {
	args := buildPwPlayArgs(8000, "")
	want := []string{"--format", "f32", "--rate", "8000", "--channels", "1", "--media-role", "Communication", "-"}
	if len(args) != len(want) {
		t.Fatalf("got %v", args)
	}
	for i := range want {
		if args[i] != want[i] {
			t.Errorf("arg[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

func TestPlayerCloseWithoutPlay(t *testing.T) {
	p := NewPlayer("")
	p.SetVolume(3)
	if v := math.Float64frombits(p.volume.Load()); v != 1 {
		t.Errorf("volume should clamp to 1, got %v", v)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := p.Play(context.Background(), nil); err == nil {
		t.Error("Play without a stream should fail")
	}
}

func TestPlayerResetsWhenSinkExits(t *testing.T) {
	fakeTools(t, map[string]string{"pw-play": "exit 0"})

	p := NewPlayer("")
	defer p.Close()
	stream := audio.NewStream("remote", 24000)
	defer stream.Close()

	if err := p.Play(context.Background(), stream); err != nil {
		t.Fatalf("Play: %v", err)
	}

	block := make([]float32, 4096)
	deadline := time.Now().Add(5 * time.Second)
	for p.isPlaying() {
		if time.Now().After(deadline) {
			t.Fatal("player still reports playing after pw-play exited")
		}
		stream.Publish(block)
		time.Sleep(5 * time.Millisecond)
	}

	if err := p.Play(context.Background(), stream); err != nil {
		t.Fatalf("Play after sink exit: %v", err)
	}
	if !p.isPlaying() {
		t.Error("second Play did not start a new sink")
	}
}
