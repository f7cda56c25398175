package live

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-go/voice-lite/pkg/audio"
	"github.com/vango-go/voice-lite/pkg/core"
	"github.com/vango-go/voice-lite/pkg/media"
)

// State is the lifecycle phase of the engine's single session slot.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateActive     State = "active"
	StateClosed     State = "closed"
	StateError      State = "error"
)

// Callbacks are supplied by the presentation layer. Steady-state failures are
// pushed through these; they are never thrown back into caller code.
type Callbacks struct {
	OnTranscription func(text string, role Role)
	OnVolume        func(level float64)
	OnError         func(err error)
	OnClose         func()
}

// Options wires the engine's capabilities.
type Options struct {
	Dialer Dialer
	Source media.Source
	// NewSpeaker opens the playback device for one session. Nil disables
	// audible playback; scheduling still runs.
	NewSpeaker func() (media.Speaker, error)
	// NewClock supplies the output clock for one session. Nil uses a wall
	// clock anchored at connect time.
	NewClock  func() Clock
	Callbacks Callbacks
	Logger    *slog.Logger
}

// Engine owns the live-session lifecycle: it holds at most one session at a
// time, coordinates reconnects triggered by configuration changes or remote
// closure, and tears down every acquired resource on any exit path.
type Engine struct {
	dialer     Dialer
	source     media.Source
	newSpeaker func() (media.Speaker, error)
	newClock   func() Clock
	callbacks  Callbacks
	logger     *slog.Logger

	// opMu serializes connect/disconnect/reconfigure so overlapping user
	// actions cannot interleave two sessions.
	opMu sync.Mutex

	mu             sync.Mutex
	state          State
	lastErr        error
	cfg            Config
	sess           *session
	lastTranscript []TranscriptEntry

	micEnabled atomic.Bool
}

// session is the runtime bundle of one connection attempt: the connection
// handle, the acquired hardware tracks, the playback pipeline, and the
// context gating all periodic work. Exclusively owned by the engine.
type session struct {
	live      atomic.Bool
	ctx       context.Context
	cancel    context.CancelFunc
	conn      Conn
	audio     media.AudioTrack
	video     media.VideoTrack
	speaker   media.Speaker
	scheduler *Scheduler
	tx        *Aggregator
	closeOnce sync.Once
}

// NewEngine creates an idle engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Dialer == nil {
		return nil, core.NewInvalidRequestError("engine requires a dialer")
	}
	if opts.Source == nil {
		return nil, core.NewInvalidRequestError("engine requires a media source")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newClock := opts.NewClock
	if newClock == nil {
		newClock = NewWallClock
	}
	e := &Engine{
		dialer:     opts.Dialer,
		source:     opts.Source,
		newSpeaker: opts.NewSpeaker,
		newClock:   newClock,
		callbacks:  opts.Callbacks,
		logger:     logger,
		state:      StateIdle,
	}
	e.micEnabled.Store(true)
	return e, nil
}

// Connect starts a session with the given configuration, first fully
// disconnecting any prior one. Acquisition and connect failures reject the
// call so the caller can branch on the error kind; after a successful return
// the session is active and failures flow through the callbacks.
func (e *Engine) Connect(ctx context.Context, cfg Config) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	return e.connectLocked(ctx, cfg)
}

func (e *Engine) connectLocked(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()

	if prior := e.currentSession(); prior != nil {
		e.teardown(prior)
	}
	e.setState(StateConnecting, nil)
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	audioTrack, err := e.source.AcquireAudio(ctx)
	if err != nil {
		e.setState(StateError, err)
		return err
	}

	var videoTrack media.VideoTrack
	if cfg.UseCamera {
		videoTrack, err = e.source.AcquireVideo(ctx, cfg.Facing)
		if err != nil {
			_ = audioTrack.Close()
			e.setState(StateError, err)
			return err
		}
	}

	var speaker media.Speaker
	if e.newSpeaker != nil {
		speaker, err = e.newSpeaker()
		if err != nil {
			_ = audioTrack.Close()
			if videoTrack != nil {
				_ = videoTrack.Close()
			}
			err = core.NewAcquisitionError(err)
			e.setState(StateError, err)
			return err
		}
	}

	conn, err := e.dialer.Dial(ctx, cfg)
	if err != nil {
		_ = audioTrack.Close()
		if videoTrack != nil {
			_ = videoTrack.Close()
		}
		if speaker != nil {
			_ = speaker.Close()
		}
		e.setState(StateError, err)
		return err
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	sess := &session{
		ctx:       sessCtx,
		cancel:    cancel,
		conn:      conn,
		audio:     audioTrack,
		video:     videoTrack,
		speaker:   speaker,
		scheduler: NewScheduler(e.newClock(), speaker),
		tx:        NewAggregator(),
	}
	sess.live.Store(true)

	e.mu.Lock()
	e.sess = sess
	e.state = StateActive
	e.lastErr = nil
	e.mu.Unlock()

	go e.captureLoop(sess)
	go e.dispatchLoop(sess)
	if videoTrack != nil {
		go runFrameSampler(sessCtx, frameSamplerInterval, videoTrack.Frame, conn.Send, e.logger)
	}
	return nil
}

// Disconnect ends the session from any state and returns the accumulated
// transcript for the caller to persist. Idempotent: calling it twice, or
// before any Connect, is a no-op that returns the last transcript.
func (e *Engine) Disconnect() []TranscriptEntry {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	var entries []TranscriptEntry
	if sess := e.currentSession(); sess != nil {
		entries = e.teardown(sess)
	} else {
		e.mu.Lock()
		entries = e.lastTranscript
		e.mu.Unlock()
	}
	e.setState(StateClosed, nil)
	return entries
}

// SetCamera toggles camera capture. An active or connecting session is fully
// reconnected with the new configuration; otherwise the change applies to the
// next Connect.
func (e *Engine) SetCamera(ctx context.Context, on bool) error {
	return e.reconfigure(ctx, func(cfg *Config) bool {
		cfg.UseCamera = on
		return true
	})
}

// SwitchFacing flips between the front and back camera. Reconnects only when
// the camera is in use.
func (e *Engine) SwitchFacing(ctx context.Context) error {
	return e.reconfigure(ctx, func(cfg *Config) bool {
		if cfg.Facing == media.FacingFront {
			cfg.Facing = media.FacingBack
		} else {
			cfg.Facing = media.FacingFront
		}
		return cfg.UseCamera
	})
}

// SetVoice selects the synthesized voice. The voice is fixed per connection,
// so an in-flight session reconnects.
func (e *Engine) SetVoice(ctx context.Context, voiceName string) error {
	return e.reconfigure(ctx, func(cfg *Config) bool {
		cfg.VoiceName = voiceName
		return true
	})
}

// reconfigure applies a config mutation and reconnects when the mutation
// demands it and a session is in flight.
func (e *Engine) reconfigure(ctx context.Context, mutate func(*Config) bool) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	cfg := e.cfg.withDefaults()
	state := e.state
	e.mu.Unlock()

	needsReconnect := mutate(&cfg)

	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()

	if needsReconnect && (state == StateActive || state == StateConnecting) {
		return e.connectLocked(ctx, cfg)
	}
	return nil
}

// SetMicEnabled gates outbound audio without touching the connection. The
// volume meter keeps reporting so the UI stays live.
func (e *Engine) SetMicEnabled(on bool) {
	e.micEnabled.Store(on)
}

// State reports the lifecycle phase.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastError reports the error behind an error state, nil otherwise.
func (e *Engine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Config reports the configuration of the current or next session.
func (e *Engine) Config() Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.withDefaults()
}

// Transcript returns the transcript of the in-flight session, or the final
// transcript of the last one.
func (e *Engine) Transcript() []TranscriptEntry {
	e.mu.Lock()
	sess := e.sess
	last := e.lastTranscript
	e.mu.Unlock()
	if sess != nil {
		return sess.tx.Entries()
	}
	return last
}

func (e *Engine) currentSession() *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess
}

func (e *Engine) setState(state State, err error) {
	e.mu.Lock()
	e.state = state
	e.lastErr = err
	e.mu.Unlock()
}

// teardown releases every resource of one session exactly once. The liveness
// flag flips before anything is released so racing pipeline callbacks discard
// their deferred results instead of acting on a torn-down session.
func (e *Engine) teardown(sess *session) []TranscriptEntry {
	sess.closeOnce.Do(func() {
		sess.live.Store(false)
		sess.cancel()
		sess.scheduler.Interrupt()
		_ = sess.audio.Close()
		if sess.video != nil {
			_ = sess.video.Close()
		}
		_ = sess.conn.Close()
		if sess.speaker != nil {
			_ = sess.speaker.Close()
		}
	})
	entries := sess.tx.Entries()

	e.mu.Lock()
	if e.sess == sess {
		e.sess = nil
		e.lastTranscript = entries
	}
	e.mu.Unlock()
	return entries
}

// captureLoop feeds every captured block through the volume meter and the
// encoder, one send per block, in capture order.
func (e *Engine) captureLoop(sess *session) {
	for {
		select {
		case <-sess.ctx.Done():
			return
		case block, ok := <-sess.audio.Blocks():
			if !ok || !sess.live.Load() {
				return
			}
			if cb := e.callbacks.OnVolume; cb != nil {
				cb(audio.RMS(block))
			}
			if !e.micEnabled.Load() {
				continue
			}
			// Best-effort: a send failure on a closing connection is
			// swallowed; the connection's close path reports session health.
			_ = sess.conn.Send(audio.EncodeBlock(block))
		}
	}
}

// dispatchLoop routes inbound events: transcripts to the aggregator, audio to
// the playback scheduler, interruption to the barge-in flush, and terminal
// events to the owner.
func (e *Engine) dispatchLoop(sess *session) {
	for event := range sess.conn.Events() {
		if !sess.live.Load() {
			return
		}
		switch ev := event.(type) {
		case TranscriptEvent:
			sess.tx.Append(ev.Text, ev.Role)
			if cb := e.callbacks.OnTranscription; cb != nil {
				cb(ev.Text, ev.Role)
			}
		case AudioChunkEvent:
			if _, err := sess.scheduler.Enqueue(ev.PCM); err != nil {
				e.logger.Warn("dropping undecodable audio chunk", "err", err)
			}
		case InterruptedEvent:
			sess.scheduler.Interrupt()
		case ErrorEvent:
			e.handleRemoteError(sess, ev.Err)
		case ClosedEvent:
			e.handleRemoteClosed(sess)
			return
		}
	}
}

func (e *Engine) handleRemoteError(sess *session, err error) {
	if !sess.live.Load() {
		return
	}
	e.logger.Warn("live session error", "err", err)
	e.setState(StateError, err)
	if cb := e.callbacks.OnError; cb != nil {
		cb(err)
	}
}

// handleRemoteClosed finalizes a remote-initiated shutdown: resources are
// released, the transcript-so-far is preserved for the caller, and the owner
// is notified. A teardown we initiated ourselves is not re-reported.
func (e *Engine) handleRemoteClosed(sess *session) {
	if !sess.live.Load() {
		return
	}
	e.teardown(sess)
	e.mu.Lock()
	if e.state != StateError {
		e.state = StateClosed
	}
	e.mu.Unlock()
	if cb := e.callbacks.OnClose; cb != nil {
		cb()
	}
}
