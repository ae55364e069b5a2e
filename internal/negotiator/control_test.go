package negotiator

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/pion/webrtc/v3"
)

type fakeChannel struct {
	state webrtc.DataChannelState
	sent  []string
}

func (f *fakeChannel) ReadyState() webrtc.DataChannelState { return f.state }

func (f *fakeChannel) SendText(s string) error {
	f.sent = append(f.sent, s)
	return nil
}

func decodeFrame(t *testing.T, s string) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("invalid frame %q: %v", s, err)
	}
	return m
}

func TestControlGreet(t *testing.T) {
	ch := &fakeChannel{state: webrtc.DataChannelStateOpen}
	c := newControl(ch)

	if err := c.greet("Tell me about yourself."); err != nil {
		t.Fatalf("greet: %v", err)
	}
	if len(ch.sent) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(ch.sent))
	}

	first := decodeFrame(t, ch.sent[0])
	if first["type"] != "session.update" {
		t.Errorf("first frame type = %v", first["type"])
	}
	session, _ := first["session"].(map[string]any)
	if session["instructions"] != "Tell me about yourself." {
		t.Errorf("instructions = %v", session["instructions"])
	}

	second := decodeFrame(t, ch.sent[1])
	if second["type"] != "ai.start" || second["start_first"] != true {
		t.Errorf("second frame = %v", second)
	}
}

func TestControlWrapUpOnce(t *testing.T) {
	ch := &fakeChannel{state: webrtc.DataChannelStateOpen}
	c := newControl(ch)

	for i := 0; i < 3; i++ {
		if err := c.wrapUp(); err != nil {
			t.Fatalf("wrapUp #%d: %v", i, err)
		}
	}
	if len(ch.sent) != 1 {
		t.Fatalf("expected a single wrap-up frame, got %d", len(ch.sent))
	}
	frame := decodeFrame(t, ch.sent[0])
	session, _ := frame["session"].(map[string]any)
	if session["instructions"] != WrapUpInstructions {
		t.Errorf("instructions = %v", session["instructions"])
	}
}

func TestControlBeforeOpen(t *testing.T) {
	ch := &fakeChannel{state: webrtc.DataChannelStateConnecting}
	c := newControl(ch)
	if err := c.greet("hi"); !errors.Is(err, ErrChannelNotOpen) {
		t.Errorf("expected ErrChannelNotOpen, got %v", err)
	}
	if err := newControl(nil).wrapUp(); !errors.Is(err, ErrChannelNotOpen) {
		t.Errorf("expected ErrChannelNotOpen without a channel, got %v", err)
	}

	// a failed wrap-up may be retried once the channel opens
	ch.state = webrtc.DataChannelStateOpen
	if err := c.wrapUp(); err != nil || len(ch.sent) != 1 {
		t.Errorf("wrap-up after open: err=%v sent=%d", err, len(ch.sent))
	}
}

func TestParseControl(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Event
		ok   bool
	}{
		{"speaking", `{"type":"ai.speaking","value":true}`, AISpeaking{Value: true}, true},
		{"silent", `{"type":"ai.speaking","value":false}`, AISpeaking{Value: false}, true},
		{"no value", `{"type":"ai.speaking"}`, nil, false},
		{"other", `{"type":"response.done"}`, nil, false},
		{"malformed", `{"type":`, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseControl([]byte(tt.data))
			if ok != tt.ok || got != tt.want {
				t.Errorf("parseControl(%s) = %v, %v", tt.data, got, ok)
			}
		})
	}
}
