package negotiator

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/pion/webrtc/v3"
)

// WrapUpInstructions is sent once when the interview nears its end.
const WrapUpInstructions = "The interview is nearing its end. Please begin your closing remarks."

type controlChannel interface {
	ReadyState() webrtc.DataChannelState
	SendText(s string) error
}

type sessionUpdateFrame struct {
	Type    string `json:"type"`
	Session struct {
		Instructions string `json:"instructions"`
	} `json:"session"`
}

type aiStartFrame struct {
	Type       string `json:"type"`
	StartFirst bool   `json:"start_first"`
}

type inboundFrame struct {
	Type  string `json:"type"`
	Value *bool  `json:"value,omitempty"`
}

// control speaks the small JSON protocol of the call's side channel.
type control struct {
	mu         sync.Mutex
	ch         controlChannel
	wrapUpSent bool
}

func newControl(ch controlChannel) *control { return &control{ch: ch} }

func (c *control) send(v any) error {
	if c.ch == nil || c.ch.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.ch.SendText(string(data))
}

func instructions(text string) sessionUpdateFrame {
	f := sessionUpdateFrame{Type: "session.update"}
	f.Session.Instructions = text
	return f
}

// greet primes the interviewer and asks it to speak first.
func (c *control) greet(introduction string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.send(instructions(introduction)); err != nil {
		return err
	}
	return c.send(aiStartFrame{Type: "ai.start", StartFirst: true})
}

// wrapUp sends the closing instruction at most once.
func (c *control) wrapUp() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wrapUpSent {
		log.Printf("Negotiator: wrap-up already sent, ignoring")
		return nil
	}
	if err := c.send(instructions(WrapUpInstructions)); err != nil {
		return err
	}
	c.wrapUpSent = true
	return nil
}

// parseControl maps an inbound frame to an event. Unknown or malformed
// frames yield ok=false.
func parseControl(data []byte) (Event, bool) {
	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, false
	}
	if f.Type == "ai.speaking" && f.Value != nil {
		return AISpeaking{Value: *f.Value}, true
	}
	return nil, false
}
