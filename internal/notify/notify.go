package notify

import (
	"log"
	"os/exec"
)

type MessageType int

const (
	MsgCallConnected MessageType = iota
	MsgClosingSoon
	MsgCallEnded
	MsgCallFailed
	MsgConfigReloaded
)

type Message struct {
	Title   string
	Body    string
	IsError bool
}

// MessageDef ties a message to its config key and default text.
type MessageDef struct {
	Type         MessageType
	ConfigKey    string
	DefaultTitle string
	DefaultBody  string
	IsError      bool
}

var MessageDefs = []MessageDef{
	{MsgCallConnected, "call_connected", "Mockroom", "Interviewer connected", false},
	{MsgClosingSoon, "closing_soon", "Mockroom", "30 seconds left, time to wrap up", false},
	{MsgCallEnded, "call_ended", "Mockroom", "Interview ended", false},
	{MsgCallFailed, "call_failed", "Mockroom Error", "The call could not be completed", true},
	{MsgConfigReloaded, "config_reloaded", "Mockroom", "Configuration reloaded", false},
}

// DefaultMessages returns the built-in text for every message type.
func DefaultMessages() map[MessageType]Message {
	out := make(map[MessageType]Message, len(MessageDefs))
	for _, d := range MessageDefs {
		out[d.Type] = Message{Title: d.DefaultTitle, Body: d.DefaultBody, IsError: d.IsError}
	}
	return out
}

type Notifier interface {
	Send(mt MessageType)
	Error(msg string)
}

// New returns the notifier for kind ("desktop", "log", anything else is Nop).
// A nil messages map uses the defaults.
func New(kind string, messages map[MessageType]Message) Notifier {
	if messages == nil {
		messages = DefaultMessages()
	}
	switch kind {
	case "desktop":
		return Desktop{Messages: messages}
	case "log":
		return Log{Messages: messages}
	default:
		return Nop{}
	}
}

type Desktop struct {
	Messages map[MessageType]Message
}

func (d Desktop) Send(mt MessageType) {
	msg, ok := d.Messages[mt]
	if !ok {
		return
	}
	args := []string{"-a", "Mockroom"}
	if msg.IsError {
		args = append(args, "-u", "critical")
	}
	args = append(args, msg.Title, msg.Body)
	if err := exec.Command("notify-send", args...).Run(); err != nil {
		log.Printf("Failed to send notification: %v", err)
	}
}

func (Desktop) Error(msg string) {
	cmd := exec.Command("notify-send", "-a", "Mockroom", "-u", "critical", "Mockroom Error", msg)
	if err := cmd.Run(); err != nil {
		log.Printf("Failed to send error notification: %v", err)
	}
}

// Log writes notifications to the standard logger.
type Log struct {
	Messages map[MessageType]Message
}

func (l Log) Send(mt MessageType) {
	if msg, ok := l.Messages[mt]; ok {
		log.Printf("Notification: %s - %s", msg.Title, msg.Body)
	}
}

func (Log) Error(msg string) {
	log.Printf("Notification: Mockroom Error - %s", msg)
}

// Nop is a Notifier that does absolutely nothing.
// Useful in unit tests or headless builds.
type Nop struct{}

func (Nop) Send(MessageType) {}
func (Nop) Error(string)     {}
