package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
)

const DefaultVoice = "verse"

type turnDetection struct {
	Type              string  `json:"type"`
	Threshold         float64 `json:"threshold"`
	SilenceDurationMs int     `json:"silence_duration_ms"`
	PrefixPaddingMs   int     `json:"prefix_padding_ms"`
	CreateResponse    bool    `json:"create_response"`
	InterruptResponse bool    `json:"interrupt_response"`
}

type mintRequest struct {
	Model             string        `json:"model"`
	Voice             string        `json:"voice"`
	OutputAudioFormat string        `json:"output_audio_format"`
	Modalities        []string      `json:"modalities"`
	TurnDetection     turnDetection `json:"turn_detection"`
	Temperature       float64       `json:"temperature"`
}

func newMintRequest(s Settings) mintRequest {
	voice := s.Voice
	if voice == "" {
		voice = DefaultVoice
	}
	return mintRequest{
		Model:             s.Deployment,
		Voice:             voice,
		OutputAudioFormat: "pcm16",
		Modalities:        []string{"audio", "text"},
		TurnDetection: turnDetection{
			Type:              "server_vad",
			Threshold:         0.5,
			SilenceDurationMs: 400,
			PrefixPaddingMs:   300,
			CreateResponse:    true,
			InterruptResponse: true,
		},
		Temperature: 0.7,
	}
}

func sessionsURL(endpoint, version string) string {
	return strings.TrimRight(endpoint, "/") + "/openai/realtimeapi/sessions?api-version=" + url.QueryEscape(version)
}

// sessionHandler mints ephemeral realtime credentials.
type sessionHandler struct {
	config  ConfigSource
	client  *http.Client
	metrics *Metrics
}

func (h *sessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed. Please use POST.")
		return
	}

	s := h.config.Settings()
	mint := newMintRequest(s)
	body, err := json.Marshal(mint)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Internal server error during session creation")
		return
	}

	target := sessionsURL(s.Endpoint, s.APIVersion)
	log.Printf("Server: minting session model=%s voice=%s", s.Deployment, mint.Voice)

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		log.Printf("Server: session request: %v", err)
		h.metrics.upstreamResult("session", "error")
		WriteError(w, http.StatusInternalServerError, "Internal server error during session creation")
		return
	}
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		log.Printf("Server: session mint failed: %v", err)
		h.metrics.upstreamResult("session", "error")
		WriteError(w, http.StatusInternalServerError, "Internal server error during session creation")
		return
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Printf("Server: session mint read: %v", err)
		h.metrics.upstreamResult("session", "error")
		WriteError(w, http.StatusInternalServerError, "Internal server error during session creation")
		return
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Printf("Server: upstream session error %d: %s", resp.StatusCode, data)
		h.metrics.upstreamResult("session", "rejected")
		WriteError(w, resp.StatusCode, string(data))
		return
	}

	if !json.Valid(data) {
		log.Printf("Server: upstream session payload is not JSON")
		h.metrics.upstreamResult("session", "error")
		WriteError(w, http.StatusInternalServerError, "Internal server error during session creation")
		return
	}
	h.metrics.upstreamResult("session", "ok")
	WriteJSON(w, http.StatusOK, json.RawMessage(data))
}
