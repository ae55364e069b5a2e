package realtime

import "github.com/google/uuid"

// outgoing

type sessionUpdate struct {
	Type    string        `json:"type"`
	EventID string        `json:"event_id,omitempty"`
	Session sessionConfig `json:"session"`
}

type sessionConfig struct {
	Modalities              []string            `json:"modalities"`
	Instructions            string              `json:"instructions"`
	Voice                   string              `json:"voice"`
	InputAudioFormat        string              `json:"input_audio_format"`
	OutputAudioFormat       string              `json:"output_audio_format"`
	InputAudioTranscription transcriptionConfig `json:"input_audio_transcription"`
	TurnDetection           turnDetection       `json:"turn_detection"`
	ToolChoice              string              `json:"tool_choice"`
	Temperature             float64             `json:"temperature"`
	MaxResponseOutputTokens string              `json:"max_response_output_tokens"`
}

type transcriptionConfig struct {
	Model    string `json:"model"`
	Language string `json:"language"`
}

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
}

type inputAudioAppend struct {
	Type  string `json:"type"`
	Audio string `json:"audio"`
}

func newSessionUpdate(r resolved) sessionUpdate {
	return sessionUpdate{
		Type:    "session.update",
		EventID: "evt_" + uuid.NewString(),
		Session: sessionConfig{
			Modalities:        []string{"text", "audio"},
			Instructions:      r.prompt,
			Voice:             "alloy",
			InputAudioFormat:  "pcm16",
			OutputAudioFormat: "pcm16",
			InputAudioTranscription: transcriptionConfig{
				Model:    r.deployment,
				Language: r.language,
			},
			TurnDetection: turnDetection{
				Type:              "server_vad",
				Threshold:         0.5,
				PrefixPaddingMs:   300,
				SilenceDurationMs: 500,
			},
			ToolChoice:              "none",
			Temperature:             0.1,
			MaxResponseOutputTokens: "inf",
		},
	}
}

// incoming

type serverEvent struct {
	Type       string       `json:"type"`
	EventID    string       `json:"event_id,omitempty"`
	ItemID     string       `json:"item_id,omitempty"`
	Delta      string       `json:"delta,omitempty"`
	Transcript string       `json:"transcript,omitempty"`
	Error      *serverError `json:"error,omitempty"`
	Session    *struct {
		ID string `json:"id"`
	} `json:"session,omitempty"`
}

type serverError struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type frameKind int

const (
	framePartial frameKind = iota
	frameFinal
	frameError
	frameInfo
)

// frameKinds is the complete set of recognised inbound message types.
var frameKinds = map[string]frameKind{
	"conversation.item.input_audio_transcription.delta":     framePartial,
	"response.audio_transcript.delta":                       framePartial,
	"conversation.item.input_audio_transcription.completed": frameFinal,
	"response.audio_transcript.done":                        frameFinal,
	"error":                                                 frameError,
	"conversation.item.input_audio_transcription.failed":    frameError,

	"session.created":                   frameInfo,
	"session.updated":                   frameInfo,
	"input_audio_buffer.speech_started": frameInfo,
	"input_audio_buffer.speech_stopped": frameInfo,
	"input_audio_buffer.committed":      frameInfo,
	"rate_limits.updated":               frameInfo,
	"response.created":                  frameInfo,
	"response.done":                     frameInfo,
	"response.audio.delta":              frameInfo,
	"response.audio.done":               frameInfo,
	"conversation.item.created":         frameInfo,
}

// EventType tags an Event.
type EventType string

const (
	EventPartial EventType = "partial"
	EventFinal   EventType = "final"
	EventError   EventType = "error"
)

// Event is a caption or error surfaced to the caller.
type Event struct {
	Type EventType
	Text string
	Err  error
}

// translate maps a parsed frame to the event it surfaces. handled is false
// for types outside frameKinds.
func translate(ev serverEvent) (out Event, surface bool, handled bool) {
	kind, ok := frameKinds[ev.Type]
	if !ok {
		return Event{}, false, false
	}
	switch kind {
	case framePartial:
		if ev.Delta == "" {
			return Event{}, false, true
		}
		return Event{Type: EventPartial, Text: ev.Delta}, true, true
	case frameFinal:
		if ev.Transcript == "" {
			return Event{}, false, true
		}
		return Event{Type: EventFinal, Text: ev.Transcript}, true, true
	case frameError:
		perr := &ProtocolError{Message: "unknown server error"}
		if ev.Error != nil {
			perr.Code = ev.Error.Code
			if ev.Error.Message != "" {
				perr.Message = ev.Error.Message
			}
		}
		return Event{Type: EventError, Err: perr}, true, true
	}
	return Event{}, false, true
}
