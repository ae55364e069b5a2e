package negotiator

import "github.com/pion/webrtc/v3"

// State is the call connectivity derived from ICE.
type State string

const (
	StateConnecting State = "connecting"
	StateConnected  State = "connected"
	StateClosed     State = "closed"
	StateError      State = "error"
)

// Terminal reports whether the call cannot recover from s.
func (s State) Terminal() bool { return s == StateClosed || s == StateError }

// MapICEState collapses ICE connection states onto call connectivity.
// Disconnected is treated as terminal.
func MapICEState(s webrtc.ICEConnectionState) State {
	switch s {
	case webrtc.ICEConnectionStateNew, webrtc.ICEConnectionStateChecking:
		return StateConnecting
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		return StateConnected
	case webrtc.ICEConnectionStateClosed, webrtc.ICEConnectionStateFailed, webrtc.ICEConnectionStateDisconnected:
		return StateClosed
	default:
		return StateError
	}
}
