package negotiator

import "github.com/leonardotrapani/mockroom/internal/audio"

// Event is delivered on Negotiator.Events.
type Event interface{ negotiatorEvent() }

// RemoteAudio carries the decoded audio of the interviewer.
type RemoteAudio struct {
	Stream *audio.Stream
}

// StateChanged reports a connectivity transition.
type StateChanged struct {
	State State
	ICE   string
}

// AISpeaking relays the interviewer's own speaking hint from the control channel.
type AISpeaking struct {
	Value bool
}

func (RemoteAudio) negotiatorEvent()  {}
func (StateChanged) negotiatorEvent() {}
func (AISpeaking) negotiatorEvent()   {}
