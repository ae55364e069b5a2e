package negotiator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"

	"github.com/leonardotrapani/mockroom/internal/audio"
)

const (
	pcmuRate      = 8000
	packetSamples = pcmuRate / 50 // 20ms
	packetTime    = 20 * time.Millisecond
)

// DefaultICEServers are the public STUN servers used when none are configured.
func DefaultICEServers() []string {
	return []string{
		"stun:stun.l.google.com:19302",
		"stun:stun1.l.google.com:19302",
		"stun:stun2.l.google.com:19302",
		"stun:stun3.l.google.com:19302",
		"stun:stun4.l.google.com:19302",
	}
}

type Config struct {
	// SignalingURL is the base of the credential endpoint (POST {SignalingURL}/session).
	SignalingURL string
	// WebRTCURL is the provider's SDP negotiation endpoint.
	WebRTCURL string
	// Model is sent as the model query parameter of the SDP exchange.
	Model string
	// Instructions are sent once the control channel opens.
	Instructions string
	// ICEServers nil selects DefaultICEServers; an empty slice disables STUN.
	ICEServers  []string
	HTTPClient  *http.Client
	EventBuffer int
}

// Negotiator owns one peer connection to the AI voice endpoint. Close is the
// only release path, including after a failed Open.
type Negotiator struct {
	config Config
	client *http.Client

	events chan Event
	closed chan struct{}
	// emitMu lets Close close the events channel while callbacks are emitting.
	emitMu sync.RWMutex

	mu      sync.Mutex
	opened  bool
	isDone  bool
	pc      *webrtc.PeerConnection
	dc      *webrtc.DataChannel
	ctrl    *control
	remote  []*audio.Stream
	micStop func()

	closeOnce sync.Once
	wg        sync.WaitGroup
}

func New(config Config) *Negotiator {
	if config.ICEServers == nil {
		config.ICEServers = DefaultICEServers()
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 32
	}
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Negotiator{
		config: config,
		client: client,
		events: make(chan Event, config.EventBuffer),
		closed: make(chan struct{}),
		ctrl:   newControl(nil),
	}
}

// Events delivers remote audio, connectivity changes and control-channel hints.
// The channel is closed by Close.
func (n *Negotiator) Events() <-chan Event { return n.events }

func (n *Negotiator) RequestCredential(ctx context.Context) (string, error) {
	return RequestCredential(ctx, n.client, n.config.SignalingURL)
}

func (n *Negotiator) emit(ev Event) {
	n.emitMu.RLock()
	defer n.emitMu.RUnlock()
	select {
	case <-n.closed:
		return
	default:
	}
	select {
	case n.events <- ev:
	case <-n.closed:
	}
}

func newAPI() (*webrtc.API, error) {
	m := &webrtc.MediaEngine{}
	// PCMU only, so remote audio decodes without an external codec
	if err := m.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypePCMU, ClockRate: pcmuRate, Channels: 1},
		PayloadType:        0,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, err
	}
	return webrtc.NewAPI(webrtc.WithMediaEngine(m)), nil
}

// Open negotiates the call: peer connection, receive-only audio transceiver,
// the microphone as a send track, the control channel, then the offer/answer
// exchange authorised by credential.
func (n *Negotiator) Open(ctx context.Context, credential string, mic *audio.Stream) error {
	n.mu.Lock()
	if n.isDone {
		n.mu.Unlock()
		return ErrClosed
	}
	if n.opened {
		n.mu.Unlock()
		return fmt.Errorf("negotiator already opened")
	}
	n.opened = true
	n.mu.Unlock()

	if mic == nil {
		return &MediaError{Device: "microphone", Err: audio.ErrNoDevice}
	}

	api, err := newAPI()
	if err != nil {
		return &NegotiationError{Op: "media engine", Err: err}
	}
	var iceServers []webrtc.ICEServer
	if len(n.config.ICEServers) > 0 {
		iceServers = []webrtc.ICEServer{{URLs: n.config.ICEServers}}
	}
	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return &NegotiationError{Op: "peer connection", Err: err}
	}

	n.mu.Lock()
	if n.isDone {
		n.mu.Unlock()
		_ = pc.Close()
		return ErrClosed
	}
	n.pc = pc
	n.mu.Unlock()

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		log.Printf("Negotiator: ICE state %s", s)
		n.emit(StateChanged{State: MapICEState(s), ICE: s.String()})
	})
	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if track.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		n.receive(track)
	})

	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeAudio, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return &NegotiationError{Op: "add transceiver", Err: err}
	}

	local, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypePCMU, ClockRate: pcmuRate, Channels: 1},
		"audio", "mockroom-mic",
	)
	if err != nil {
		return &MediaError{Device: "microphone", Err: err}
	}
	if _, err := pc.AddTrack(local); err != nil {
		return &MediaError{Device: "microphone", Err: err}
	}
	n.sendMic(mic, local)

	ordered := true
	dc, err := pc.CreateDataChannel("realtime", &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return &NegotiationError{Op: "data channel", Err: err}
	}
	ctrl := newControl(dc)
	n.mu.Lock()
	n.dc = dc
	n.ctrl = ctrl
	n.mu.Unlock()

	dc.OnOpen(func() {
		if err := ctrl.greet(n.config.Instructions); err != nil {
			log.Printf("Negotiator: failed to send opening instructions: %v", err)
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if ev, ok := parseControl(msg.Data); ok {
			n.emit(ev)
		}
	})

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return &NegotiationError{Op: "create offer", Err: err}
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(offer); err != nil {
		return &NegotiationError{Op: "set local description", Err: err}
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		return &NegotiationError{Op: "ice gathering", Err: ctx.Err()}
	case <-n.closed:
		return ErrClosed
	}

	answer, err := n.exchange(ctx, credential, pc.LocalDescription().SDP)
	if err != nil {
		return err
	}
	if err := pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answer}); err != nil {
		return &NegotiationError{Op: "set remote description", Err: err}
	}
	return nil
}

func (n *Negotiator) exchange(ctx context.Context, credential, offer string) (string, error) {
	endpoint := n.config.WebRTCURL
	if n.config.Model != "" {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", &NegotiationError{Op: "sdp exchange", Err: err}
		}
		q := u.Query()
		q.Set("model", n.config.Model)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte(offer)))
	if err != nil {
		return "", &NegotiationError{Op: "sdp exchange", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/sdp")

	resp, err := n.client.Do(req)
	if err != nil {
		return "", &NegotiationError{Op: "sdp exchange", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &NegotiationError{Op: "sdp exchange", Err: fmt.Errorf("read answer: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &NegotiationError{Op: "sdp exchange", Status: resp.StatusCode, Body: truncate(string(body))}
	}
	return string(body), nil
}

// sendMic forwards microphone samples to the call as 20ms PCMU packets.
func (n *Negotiator) sendMic(mic *audio.Stream, track *webrtc.TrackLocalStaticSample) {
	blocks, cancel := mic.Subscribe(32)
	n.mu.Lock()
	if n.isDone {
		n.mu.Unlock()
		cancel()
		return
	}
	n.micStop = cancel
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		var pending []float32
		for block := range blocks {
			pending = append(pending, audio.Resample(block, mic.SampleRate(), pcmuRate)...)
			for len(pending) >= packetSamples {
				payload := audio.EncodePCMU(pending[:packetSamples])
				pending = pending[packetSamples:]
				if err := track.WriteSample(media.Sample{Data: payload, Duration: packetTime}); err != nil && !errors.Is(err, io.ErrClosedPipe) {
					log.Printf("Negotiator: write mic sample: %v", err)
				}
			}
		}
	}()
}

// receive decodes the remote PCMU track into a stream until it ends.
func (n *Negotiator) receive(track *webrtc.TrackRemote) {
	stream := audio.NewStream("remote-"+track.ID(), pcmuRate)
	n.mu.Lock()
	if n.isDone {
		n.mu.Unlock()
		stream.Close()
		return
	}
	n.remote = append(n.remote, stream)
	n.wg.Add(1)
	n.mu.Unlock()

	go func() {
		defer n.wg.Done()
		defer stream.Close()
		buf := make([]byte, 1500)
		for {
			nr, _, err := track.Read(buf)
			if err != nil {
				return
			}
			var pkt rtp.Packet
			if err := pkt.Unmarshal(buf[:nr]); err != nil {
				continue
			}
			stream.Publish(audio.DecodePCMU(pkt.Payload))
		}
	}()

	log.Printf("Negotiator: remote audio track %s (%s)", track.ID(), track.Codec().MimeType)
	n.emit(RemoteAudio{Stream: stream})
}

// SendWrapUp asks the interviewer to begin closing remarks. Only the first
// successful call sends anything.
func (n *Negotiator) SendWrapUp() error {
	n.mu.Lock()
	ctrl := n.ctrl
	done := n.isDone
	n.mu.Unlock()
	if done {
		return ErrClosed
	}
	return ctrl.wrapUp()
}

// Close releases the control channel, the peer connection and every remote
// stream. Safe to call repeatedly and concurrently with Open.
func (n *Negotiator) Close() error {
	var err error
	n.closeOnce.Do(func() {
		close(n.closed)

		n.mu.Lock()
		n.isDone = true
		dc, pc, remote, micStop := n.dc, n.pc, n.remote, n.micStop
		n.remote = nil
		n.mu.Unlock()

		if micStop != nil {
			micStop()
		}
		if dc != nil {
			_ = dc.Close()
		}
		if pc != nil {
			err = pc.Close()
		}
		for _, s := range remote {
			s.Close()
		}
		n.wg.Wait()

		n.emitMu.Lock()
		close(n.events)
		n.emitMu.Unlock()
	})
	return err
}
