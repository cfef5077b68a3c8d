// Copyright (c) 2023-2025 xAI Go SDK Authors
//
// Licensed under the Apache License, Version 2.0.

// Package voice implements the realtime voice WebSocket client: connection
// lifecycle, authenticated handshake, session negotiation, turn
// orchestration, fragmented-frame reassembly, per-event dispatch, and
// inline base64-to-PCM16 decoding.
package voice

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/xai-go/xai-sdk"
	"github.com/xai-go/xai-sdk/internal/bufferpool"
	"github.com/xai-go/xai-sdk/internal/logging"
	"github.com/xai-go/xai-sdk/internal/wsframe"
)

// State is one position in the voice session's state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateSessionReady
	StateTurnStarted
	StateTurnDone
	StateError
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateSessionReady:
		return "session_ready"
	case StateTurnStarted:
		return "turn_started"
	case StateTurnDone:
		return "turn_done"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	defaultURI                    = "wss://api.x.ai/v1/realtime"
	defaultNetworkTimeoutMillis   = 30000
	defaultReconnectTimeoutMillis = 5000
	defaultWSRxBufferSize         = 64 * 1024
	defaultMaxMessageSize         = 64 * 1024
	defaultPCMBufferBytes         = 64 * 1024
	defaultSampleRateHz           = 24000
)

// SessionConfig is the voice-turn negotiation payload sent as session.update.
type SessionConfig struct {
	Voice        string
	Instructions string
	SampleRateHz int
	ServerVAD    bool
}

// VoiceConfig configures a Session. Every tunable is an explicit field; there
// is no hidden global state (§6).
type VoiceConfig struct {
	// URI defaults to defaultURI when empty, so it is not required; APIKey
	// has no default and is required.
	URI    string
	APIKey string `validate:"required"`

	NetworkTimeoutMillis   int
	ReconnectTimeoutMillis int
	WSRxBufferSize         int
	MaxMessageSize         int
	PCMBufferBytes         int

	// PreferLargeMemoryPool mirrors the embedded original's preference for
	// placing the PCM buffer in external/slow RAM when available. The Go
	// runtime has no equivalent memory-region distinction; the field is
	// retained for configuration-surface parity and otherwise ignored.
	PreferLargeMemoryPool bool

	QueueTurnBeforeReady bool

	Session SessionConfig

	Logger logging.Logger
}

func (cfg VoiceConfig) withDefaults() VoiceConfig {
	if cfg.URI == "" {
		cfg.URI = defaultURI
	}
	if cfg.NetworkTimeoutMillis == 0 {
		cfg.NetworkTimeoutMillis = defaultNetworkTimeoutMillis
	}
	if cfg.ReconnectTimeoutMillis == 0 {
		cfg.ReconnectTimeoutMillis = defaultReconnectTimeoutMillis
	}
	if cfg.WSRxBufferSize == 0 {
		cfg.WSRxBufferSize = defaultWSRxBufferSize
	}
	if cfg.MaxMessageSize == 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if cfg.PCMBufferBytes == 0 {
		cfg.PCMBufferBytes = defaultPCMBufferBytes
	}
	if cfg.Session.SampleRateHz == 0 {
		cfg.Session.SampleRateHz = defaultSampleRateHz
	}
	return cfg
}

// Callbacks are invoked outside the Session's lock, to avoid reentrancy
// deadlock when a callback calls back into the Session (§4.F). Event-driven
// callbacks run on the read-loop goroutine; OnStateChange for transitions
// made by Connect, Disconnect, or SendTextTurn runs on the caller's goroutine.
type Callbacks struct {
	OnTranscriptDelta func(delta string)
	OnAudioDelta      func(samples []int16, sampleRate int)
	OnStateChange     func(old, new State)
	OnError           func(err error)
}

// Session is a single realtime voice connection. All public methods
// serialize through one mutex; callbacks run outside it.
type Session struct {
	cfg       VoiceConfig
	callbacks Callbacks
	logger    logging.Logger

	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	assembler    *wsframe.Assembler
	pcmPool      *bufferpool.Pool
	pcmSamples   []int16
	sessionReady bool
	inTurn       bool
	pendingTurn  *string

	done chan struct{}
}

// NewSession constructs a Session. Connect must be called before any turn
// may be sent.
func NewSession(cfg VoiceConfig, callbacks Callbacks) (*Session, error) {
	cfg = cfg.withDefaults()
	if cfg.APIKey == "" {
		return nil, xai.NewError(xai.KindInvalidArgument, "voice: api key is required", nil)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NoOp()
	}

	return &Session{
		cfg:       cfg,
		callbacks: callbacks,
		logger:    logger,
		state:     StateDisconnected,
		assembler: wsframe.New(cfg.MaxMessageSize, logger),
		pcmPool:   bufferpool.New(1, cfg.PCMBufferBytes),
		done:      make(chan struct{}),
	}, nil
}

// State returns the current state. It is safe for concurrent use.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setState records a state transition. Caller must hold s.mu. The returned
// func, when non-nil, fires OnStateChange and must be invoked by the caller
// only after releasing s.mu, to honor the no-callbacks-under-lock rule
// without reordering callbacks relative to the invoking goroutine's other
// work.
func (s *Session) setState(next State) func() {
	old := s.state
	s.state = next
	if old == next {
		return nil
	}
	cb := s.callbacks.OnStateChange
	if cb == nil {
		return nil
	}
	return func() { cb(old, next) }
}

// Connect dials the realtime endpoint, negotiates a session, and starts the
// background event-read loop. Connect blocks for the duration of the dial
// and the initial session.update send.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return xai.NewError(xai.KindInvalidArgument, "voice: session already connected", nil)
	}
	fire := s.setState(StateConnecting)
	s.mu.Unlock()
	invoke(fire)

	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+s.cfg.APIKey)
	headers.Set("Content-Type", "application/json")

	dialer := websocket.Dialer{
		HandshakeTimeout: time.Duration(s.cfg.NetworkTimeoutMillis) * time.Millisecond,
		ReadBufferSize:   s.cfg.WSRxBufferSize,
	}

	// The dial itself happens outside the lock: it is the long-blocking
	// network suspension point, and holding the lock across it would stall
	// every other public method for the duration of a slow handshake.
	conn, _, err := dialer.DialContext(ctx, s.cfg.URI, headers)
	if err != nil {
		s.mu.Lock()
		fire := s.setState(StateError)
		s.mu.Unlock()
		invoke(fire)
		return xai.NewError(xai.KindWSFailed, "voice: dial failed", err)
	}
	conn.SetReadLimit(int64(s.cfg.MaxMessageSize))

	s.mu.Lock()
	s.conn = conn
	s.assembler.Reset()
	s.done = make(chan struct{})
	done := s.done
	fire = s.setState(StateConnected)

	if err := s.sendLocked(buildSessionUpdate(s.cfg.Session)); err != nil {
		fireErr := s.setState(StateError)
		s.mu.Unlock()
		invoke(fire)
		invoke(fireErr)
		return xai.NewError(xai.KindWSFailed, "voice: sending session.update failed", err)
	}
	s.mu.Unlock()
	invoke(fire)

	go s.readLoop(conn, done)
	return nil
}

// invoke calls fire if non-nil. Used to run a deferred OnStateChange
// callback exactly once, always outside s.mu.
func invoke(fire func()) {
	if fire != nil {
		fire()
	}
}

// Disconnect tears down the WebSocket connection and resets all session
// state. It is idempotent.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	conn := s.conn
	done := s.done
	s.conn = nil
	s.assembler.Reset()
	s.sessionReady = false
	s.inTurn = false
	s.pendingTurn = nil
	fire := s.setState(StateDisconnected)
	s.mu.Unlock()
	invoke(fire)

	if conn == nil {
		return nil
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	err := conn.Close()
	select {
	case <-done:
	default:
		close(done)
	}
	return err
}

// SendTextTurn sends a user text turn. If the session is not yet ready and
// queueing is enabled, the turn is buffered and sent on SessionReady; if
// queueing is disabled, NotReady is returned. If a turn is already in
// progress, Busy is returned (§9 open question: the server's behavior on a
// second response.create before response.done is undocumented, so the
// client refuses locally rather than guessing).
func (s *Session) SendTextTurn(text string) error {
	s.mu.Lock()

	if s.inTurn {
		s.mu.Unlock()
		return xai.NewError(xai.KindBusy, "voice: a turn is already in progress", nil)
	}

	if !s.sessionReady {
		if !s.cfg.QueueTurnBeforeReady {
			s.mu.Unlock()
			return xai.NewError(xai.KindNotReady, "voice: session is not ready", nil)
		}
		s.pendingTurn = &text
		s.mu.Unlock()
		return nil
	}

	// A second turn issued after TurnDone observably passes back through
	// SessionReady before TurnStarted, per the state machine's transition
	// table; the first turn out of Connected already gets this hop from
	// onSessionUpdated, so only the TurnDone case needs it here.
	var fire func()
	if s.state == StateTurnDone {
		fire = s.setState(StateSessionReady)
	}
	err := s.issueTurnLocked(text)
	s.mu.Unlock()
	invoke(fire)
	return err
}

// issueTurnLocked emits the two wire messages for one text turn. Caller must
// hold s.mu.
func (s *Session) issueTurnLocked(text string) error {
	if err := s.sendLocked(buildConversationItemCreate(text)); err != nil {
		return xai.NewError(xai.KindWSFailed, "voice: sending conversation.item.create failed", err)
	}
	if err := s.sendLocked(buildResponseCreate()); err != nil {
		return xai.NewError(xai.KindWSFailed, "voice: sending response.create failed", err)
	}
	s.inTurn = true
	return nil
}

// sendLocked writes one text frame. Caller must hold s.mu.
func (s *Session) sendLocked(payload []byte) error {
	if s.conn == nil {
		return fmt.Errorf("no connection")
	}
	return s.conn.WriteMessage(websocket.TextMessage, payload)
}

// readLoop is the background event-read goroutine. It exits when the
// connection is closed or done is signaled.
func (s *Session) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		default:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(err)
			return
		}
		// Control frames (ping/pong/close) are handled by gorilla/websocket
		// internally before ReadMessage returns; binary messages are skipped
		// here, so only text frames are fed to the assembler, matching
		// §4.F's "only opcode 0x01 frames are fed to the assembler."
		if msgType != websocket.TextMessage {
			continue
		}

		// gorilla/websocket reassembles continuation frames before handing
		// back a message, so every call here already carries a complete
		// payload; it is still routed through the Frame Assembler (offset
		// 0, fin true) so the component sits on the live path, not just in
		// tests. With offset always 0, its orphan-drop path is not reached
		// from here.
		complete, payload := s.assembler.Feed(len(data), 0, data, true)
		if !complete {
			continue
		}

		msg := make([]byte, len(payload))
		copy(msg, payload)
		s.dispatch(msg)
	}
}

func (s *Session) handleDisconnect(err error) {
	s.mu.Lock()
	s.conn = nil
	s.assembler.Reset()
	s.sessionReady = false
	s.inTurn = false
	s.pendingTurn = nil
	fire := s.setState(StateDisconnected)
	s.mu.Unlock()
	invoke(fire)

	if cb := s.callbacks.OnError; cb != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		cb(xai.NewError(xai.KindWSFailed, "voice: connection closed", err))
	}
}

// wireEvent is the shape of every inbound realtime event; only the fields
// relevant to the dispatched type are populated on the wire.
type wireEvent struct {
	Type  string `json:"type"`
	Delta string `json:"delta"`
}

func (s *Session) dispatch(raw []byte) {
	var ev wireEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		s.emitError(xai.NewError(xai.KindParseFailed, "voice: json parse failed", err))
		return
	}

	switch ev.Type {
	case "ping":
		// discarded per §4.F

	case "session.updated":
		s.onSessionUpdated()

	case "response.created":
		s.onResponseCreated()

	case "response.output_audio_transcript.delta":
		if cb := s.callbacks.OnTranscriptDelta; cb != nil {
			cb(ev.Delta)
		}

	case "response.output_audio.delta":
		s.onAudioDelta(ev.Delta)

	case "response.output_audio_transcript.done", "response.output_audio.done":
		// no session-level action; deltas have already been delivered

	case "response.done":
		s.onResponseDone()

	default:
		s.logger.Debugf("voice: unrecognized event type %q", ev.Type)
	}
}

func (s *Session) onSessionUpdated() {
	s.mu.Lock()
	s.sessionReady = true
	fire := s.setState(StateSessionReady)
	pending := s.pendingTurn
	s.pendingTurn = nil
	var turnErr error
	if pending != nil {
		turnErr = s.issueTurnLocked(*pending)
	}
	s.mu.Unlock()
	invoke(fire)
	if turnErr != nil {
		s.emitError(turnErr)
	}
}

func (s *Session) onResponseCreated() {
	s.mu.Lock()
	fire := s.setState(StateTurnStarted)
	s.mu.Unlock()
	invoke(fire)
}

func (s *Session) onResponseDone() {
	s.mu.Lock()
	s.inTurn = false
	fire := s.setState(StateTurnDone)
	s.mu.Unlock()
	invoke(fire)
}

// onAudioDelta decodes base64 PCM16 into the session's reused PCM buffer and
// invokes the audio callback with a borrowed slice. The slice is invalid
// after the callback returns (§4.F).
func (s *Session) onAudioDelta(b64 string) {
	buf, ok := s.pcmPool.Acquire()
	if !ok {
		s.emitError(xai.NewError(xai.KindOutOfMemory, "voice: pcm buffer pool exhausted", nil))
		return
	}
	defer s.pcmPool.Release(buf)

	n, err := base64.StdEncoding.Decode(buf.Data, []byte(b64))
	if err != nil {
		s.emitError(xai.NewError(xai.KindParseFailed, "voice: base64 decode failed", err))
		return
	}
	if n%2 != 0 {
		s.emitError(xai.NewError(xai.KindParseFailed, "pcm16 odd bytecount", nil))
		return
	}

	sampleCount := n / 2
	if cap(s.pcmSamples) < sampleCount {
		s.pcmSamples = make([]int16, sampleCount)
	}
	samples := s.pcmSamples[:sampleCount]
	for i := 0; i < sampleCount; i++ {
		samples[i] = int16(uint16(buf.Data[2*i]) | uint16(buf.Data[2*i+1])<<8)
	}

	if cb := s.callbacks.OnAudioDelta; cb != nil {
		cb(samples, s.cfg.Session.SampleRateHz)
	}
}

func (s *Session) emitError(err error) {
	if cb := s.callbacks.OnError; cb != nil {
		cb(err)
	}
}

// buildSessionUpdate assembles the session.update wire message. Values are
// quoted via %q (Go string quoting, which coincides with JSON quoting for
// printable text); only outbound turn text (buildConversationItemCreate)
// needs the fixed quote-sanitization rule, since session fields are not
// free-form user text.
func buildSessionUpdate(cfg SessionConfig) []byte {
	turnDetection := "null"
	if cfg.ServerVAD {
		turnDetection = `{"type":"server_vad"}`
	}
	return []byte(fmt.Sprintf(
		`{"type":"session.update","session":{"voice":%q,"instructions":%q,"turn_detection":%s,"audio":{"input":{"format":{"type":"audio/pcm","rate":%d}},"output":{"format":{"type":"audio/pcm","rate":%d}}}}}`,
		cfg.Voice, cfg.Instructions, turnDetection, cfg.SampleRateHz, cfg.SampleRateHz,
	))
}

// buildConversationItemCreate assembles the conversation.item.create wire
// message for one text turn. text is sanitized by replacing ASCII
// double-quote with single-quote, per §4.F, to avoid JSON escaping in a
// bounded scratch buffer; callers requiring literal quotes must accept this
// substitution.
func buildConversationItemCreate(text string) []byte {
	sanitized := strings.ReplaceAll(text, `"`, `'`)
	return []byte(fmt.Sprintf(
		`{"type":"conversation.item.create","item":{"type":"message","role":"user","content":[{"type":"input_text","text":"%s"}]}}`,
		sanitized,
	))
}

func buildResponseCreate() []byte {
	return []byte(`{"type":"response.create"}`)
}
