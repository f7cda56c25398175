package media

import (
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoOutput owns the process-wide playback device. The oto context can only
// be created once per process, so one OtoOutput is shared across sessions and
// each session gets its own Speaker from it.
type OtoOutput struct {
	ctx *oto.Context
}

// NewOtoOutput opens the output device at PlaybackSampleRateHz mono.
func NewOtoOutput() (*OtoOutput, error) {
	// At 24kHz mono 16-bit: 4800 bytes = 100ms of audio. Smaller buffer means
	// lower latency at the cost of glitch headroom.
	opts := &oto.NewContextOptions{
		SampleRate:   PlaybackSampleRateHz,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   4800,
	}
	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, err
	}
	<-ready
	return &OtoOutput{ctx: ctx}, nil
}

// NewSpeaker creates a speaker for one session.
func (o *OtoOutput) NewSpeaker() (Speaker, error) {
	return &otoSpeaker{otoCtx: o.ctx, buf: make([]byte, 0, PlaybackSampleRateHz*4)}, nil
}

// otoSpeaker plays PCM16LE audio through the shared output device. The oto
// player pulls from an internal buffer via io.Reader; an empty buffer reads
// as silence, so Read never blocks the player.
type otoSpeaker struct {
	otoCtx *oto.Context

	mu      sync.Mutex
	player  *oto.Player
	buf     []byte
	playing bool
	closed  bool
}

// Write appends PCM bytes and starts the player on first write.
func (s *otoSpeaker) Write(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.buf = append(s.buf, pcm...)
	if !s.playing {
		s.playing = true
		s.player = s.otoCtx.NewPlayer(s)
		s.player.Play()
	}
	return nil
}

// Read implements io.Reader for the oto player. Underruns read as silence so
// the device keeps running between chunks.
func (s *otoSpeaker) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	for i := n; i < len(p); i++ {
		p[i] = 0
	}
	return len(p), nil
}

// Reset discards all buffered audio and stops the current player so the next
// Write starts fresh. Used for barge-in flushes.
func (s *otoSpeaker) Reset() {
	s.mu.Lock()
	s.buf = s.buf[:0]
	player := s.player
	s.player = nil
	s.playing = false
	s.mu.Unlock()

	if player == nil {
		return
	}
	// Pause first so stale audio stops immediately, then drop oto's internal
	// buffer before discarding the player.
	player.Pause()
	player.Reset()
	player.Close()
}

// Close stops playback.
func (s *otoSpeaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.buf = nil
	player := s.player
	s.player = nil
	s.mu.Unlock()

	if player != nil {
		player.Close()
	}
	return nil
}
