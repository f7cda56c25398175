package live

import (
	"sync"
	"time"

	"github.com/vango-go/voice-lite/pkg/audio"
	"github.com/vango-go/voice-lite/pkg/media"
)

// Clock is the monotonic output clock playback is scheduled against.
type Clock interface {
	Now() time.Duration
}

// NewWallClock returns a Clock anchored at the moment of creation.
func NewWallClock() Clock {
	return wallClock{start: time.Now()}
}

type wallClock struct {
	start time.Time
}

func (c wallClock) Now() time.Duration {
	return time.Since(c.start)
}

// PlaybackSource is one scheduled decoded-audio unit.
type PlaybackSource struct {
	Start    time.Duration
	Duration time.Duration
}

// Scheduler plays inbound synthesized-audio chunks gaplessly. Each chunk is
// scheduled at max(nextStart, now) and nextStart advances by the chunk's
// duration, so playback is back-to-back, in arrival order, and never
// overlapping even when decode completions interleave. Interrupt flushes
// everything in flight and resets the clock for barge-in.
type Scheduler struct {
	clock   Clock
	speaker media.Speaker

	mu   sync.Mutex
	next time.Duration
	open []PlaybackSource
}

// NewScheduler creates a scheduler over the given output clock and speaker.
func NewScheduler(clock Clock, speaker media.Speaker) *Scheduler {
	return &Scheduler{clock: clock, speaker: speaker}
}

// Enqueue schedules one PCM16LE chunk and returns its start time on the
// output clock. An undecodable chunk returns a playback decode error; the
// caller logs it and playback of later chunks continues unaffected.
func (s *Scheduler) Enqueue(pcm []byte) (time.Duration, error) {
	if err := audio.ValidatePCM16(pcm); err != nil {
		return 0, err
	}
	duration := audio.PCMDuration(pcm)

	s.mu.Lock()
	now := s.clock.Now()
	s.pruneLocked(now)
	if now > s.next {
		s.next = now
	}
	start := s.next
	s.next += duration
	s.open = append(s.open, PlaybackSource{Start: start, Duration: duration})
	speaker := s.speaker
	s.mu.Unlock()

	if speaker != nil {
		// The speaker consumes appended bytes continuously, which realizes the
		// back-to-back schedule computed above.
		return start, speaker.Write(pcm)
	}
	return start, nil
}

// Interrupt stops every scheduled unit immediately, clears the open set, and
// resets the scheduling clock so the next chunk starts at "now".
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	s.open = nil
	s.next = 0
	speaker := s.speaker
	s.mu.Unlock()

	if speaker != nil {
		speaker.Reset()
	}
}

// Open reports how many scheduled units have not yet finished.
func (s *Scheduler) Open() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.clock.Now())
	return len(s.open)
}

// NextStart exposes the scheduling clock. Monotonically non-decreasing except
// across an Interrupt, which resets it to zero.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *Scheduler) pruneLocked(now time.Duration) {
	kept := s.open[:0]
	for _, src := range s.open {
		if src.Start+src.Duration > now {
			kept = append(kept, src)
		}
	}
	s.open = kept
}
