package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-go/voice-lite/pkg/audio"
	"github.com/vango-go/voice-lite/pkg/core"
	"github.com/vango-go/voice-lite/pkg/live/protocol"
	"github.com/vango-go/voice-lite/pkg/media"
)

const (
	defaultConnectTimeout = 15 * time.Second

	// DefaultModel is the native-audio live model spoken to by default.
	DefaultModel = "gemini-2.5-flash-native-audio-preview-12-2025"
	// DefaultVoice is the prebuilt voice used when none is chosen.
	DefaultVoice = "Zephyr"

	systemPersona = "You are a real-time voice assistant in a live talk session. " +
		"You can process audio and camera frames as they arrive. " +
		"Keep responses human-like, natural, and concise. " +
		"If you see something through the camera, describe it or answer questions about it naturally."
)

// Config selects the session options. Immutable per connection attempt: a new
// value of any field requires a full reconnect.
type Config struct {
	Model     string
	VoiceName string
	UseCamera bool
	Facing    media.Facing
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = DefaultModel
	}
	if strings.TrimSpace(c.VoiceName) == "" {
		c.VoiceName = DefaultVoice
	}
	if c.Facing == "" {
		c.Facing = media.FacingFront
	}
	return c
}

// Conn is one duplex connection to the remote service.
type Conn interface {
	// Send transmits one outbound media payload. Best-effort: a failure on a
	// closing connection is for the caller to swallow; the connection's own
	// close path is the authority on session health.
	Send(payload audio.Media) error
	// Events yields demultiplexed inbound events. Closed after ClosedEvent.
	Events() <-chan Event
	Close() error
}

// Dialer opens connections. Swappable so the engine is testable with fakes.
type Dialer interface {
	Dial(ctx context.Context, cfg Config) (Conn, error)
}

// WebsocketDialer connects to the live service over a websocket.
type WebsocketDialer struct {
	// Endpoint is the service websocket URL. ws:// is only accepted for
	// loopback hosts.
	Endpoint string
	APIKey   string
	Dialer   *websocket.Dialer
	Logger   *slog.Logger
}

// Dial opens the connection, sends the setup frame, and waits for the
// service's setup acknowledgement.
func (d *WebsocketDialer) Dial(ctx context.Context, cfg Config) (Conn, error) {
	cfg = cfg.withDefaults()

	endpoint, err := d.secureEndpoint()
	if err != nil {
		return nil, err
	}

	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	dialCtx := ctx
	var cancel context.CancelFunc
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		dialCtx, cancel = context.WithTimeout(ctx, defaultConnectTimeout)
		defer cancel()
	}

	ws, _, err := dialer.DialContext(dialCtx, endpoint, nil)
	if err != nil {
		return nil, core.NewTransportError(fmt.Errorf("dial %s: %w", redactKey(endpoint), err))
	}

	setup := protocol.ClientSetup{
		Setup: protocol.Setup{
			Model: cfg.Model,
			GenerationConfig: protocol.GenerationConfig{
				ResponseModalities: []string{"AUDIO"},
				SpeechConfig: &protocol.SpeechConfig{
					VoiceConfig: &protocol.VoiceConfig{
						PrebuiltVoiceConfig: &protocol.PrebuiltVoiceConfig{VoiceName: cfg.VoiceName},
					},
				},
			},
			SystemInstruction:        &protocol.Content{Parts: []protocol.Part{{Text: systemPersona}}},
			InputAudioTranscription:  &protocol.TranscriptionConfig{},
			OutputAudioTranscription: &protocol.TranscriptionConfig{},
		},
	}
	if err := ws.WriteJSON(setup); err != nil {
		_ = ws.Close()
		return nil, core.NewTransportError(fmt.Errorf("send setup: %w", err))
	}

	_ = ws.SetReadDeadline(time.Now().Add(defaultConnectTimeout))
	_, payload, err := ws.ReadMessage()
	if err != nil {
		_ = ws.Close()
		return nil, core.NewTransportError(fmt.Errorf("read setup ack: %w", err))
	}
	_ = ws.SetReadDeadline(time.Time{})

	var first protocol.ServerMessage
	if err := json.Unmarshal(payload, &first); err != nil {
		_ = ws.Close()
		return nil, core.NewTransportError(fmt.Errorf("decode setup ack: %w", err))
	}
	if first.SetupComplete == nil {
		_ = ws.Close()
		return nil, core.NewTransportError(errors.New("service did not acknowledge setup"))
	}

	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	conn := &wsConn{
		ws:     ws,
		logger: logger,
		events: make(chan Event, 256),
		done:   make(chan struct{}),
	}
	go conn.readLoop()
	return conn, nil
}

// secureEndpoint enforces the secure-context precondition: wss always, ws only
// on local loopback.
func (d *WebsocketDialer) secureEndpoint() (string, error) {
	raw := strings.TrimSpace(d.Endpoint)
	if raw == "" {
		return "", core.NewInvalidRequestError("live endpoint must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", core.NewInvalidRequestError("invalid live endpoint URL")
	}
	switch strings.ToLower(u.Scheme) {
	case "wss":
	case "ws":
		if !isLoopbackHost(u.Hostname()) {
			return "", core.NewInsecureContextError("ws endpoint requires a loopback host; use wss")
		}
	default:
		return "", core.NewInvalidRequestError("live endpoint must use ws(s) scheme")
	}
	if d.APIKey != "" {
		q := u.Query()
		q.Set("key", d.APIKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func isLoopbackHost(host string) bool {
	switch strings.ToLower(host) {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

func redactKey(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "redacted")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type wsConn struct {
	ws     *websocket.Conn
	logger *slog.Logger

	events chan Event
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    atomic.Bool
}

func (c *wsConn) Send(payload audio.Media) error {
	if c.closed.Load() {
		return core.NewTransportError(errors.New("connection is closed"))
	}
	frame := protocol.ClientRealtimeInput{
		RealtimeInput: protocol.RealtimeInput{
			MediaChunks: []protocol.Blob{{MIMEType: payload.MIMEType, Data: payload.Data}},
		},
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteJSON(frame); err != nil {
		return core.NewTransportError(err)
	}
	return nil
}

func (c *wsConn) Events() <-chan Event {
	return c.events
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(2*time.Second))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
	<-c.done
	return nil
}

func (c *wsConn) readLoop() {
	defer close(c.done)
	defer close(c.events)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if c.closed.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.emit(ClosedEvent{})
				return
			}
			c.emit(ErrorEvent{Err: core.NewTransportError(err)})
			c.emit(ClosedEvent{})
			return
		}

		events, decodeErr := decodeServerFrame(data)
		if decodeErr != nil {
			c.logger.Warn("dropping undecodable live frame", "err", decodeErr)
			continue
		}
		for _, event := range events {
			c.emit(event)
		}
	}
}

func (c *wsConn) emit(event Event) {
	select {
	case c.events <- event:
	default:
		// Avoid deadlocking the read loop if the consumer stops draining.
	}
}

// decodeServerFrame demultiplexes one raw frame into typed events. A single
// serverContent frame may carry transcript fragments, audio, and an
// interruption at once; emission order matches handling order: transcripts,
// then audio, then interruption.
func decodeServerFrame(data []byte) ([]Event, error) {
	var msg protocol.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}
	content := msg.ServerContent
	if content == nil {
		return nil, nil
	}

	var events []Event
	if content.OutputTranscription != nil && content.OutputTranscription.Text != "" {
		events = append(events, TranscriptEvent{Role: RoleModel, Text: content.OutputTranscription.Text})
	}
	if content.InputTranscription != nil && content.InputTranscription.Text != "" {
		events = append(events, TranscriptEvent{Role: RoleUser, Text: content.InputTranscription.Text})
	}
	if content.ModelTurn != nil {
		for _, part := range content.ModelTurn.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				events = append(events, AudioChunkEvent{PCM: part.InlineData.Data})
			}
		}
	}
	if content.Interrupted {
		events = append(events, InterruptedEvent{})
	}
	return events, nil
}
