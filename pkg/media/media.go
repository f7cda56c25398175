package media

import (
	"context"
	"image"
)

const (
	// CaptureSampleRateHz is the microphone capture rate.
	CaptureSampleRateHz = 16000
	// PlaybackSampleRateHz is the synthesized-audio output rate.
	PlaybackSampleRateHz = 24000
	// BlockSamples is the fixed capture window handed to the encoder and
	// volume meter, one block per capture callback.
	BlockSamples = 4096
)

// Facing selects which camera to acquire.
type Facing string

const (
	FacingFront Facing = "front"
	FacingBack  Facing = "back"
)

// Block is a fixed-size window of mono float32 samples in [-1, 1] at
// CaptureSampleRateHz. Blocks are transient: consumed synchronously by the
// encoder and volume meter, never retained.
type Block []float32

// AudioTrack is a live microphone stream.
type AudioTrack interface {
	// Blocks yields captured sample windows in capture order. The channel is
	// closed when the track is closed.
	Blocks() <-chan Block
	Close() error
}

// VideoTrack is a live camera stream that still frames can be pulled from.
type VideoTrack interface {
	// Frame captures the current frame. A transient failure (frame not ready)
	// is an error the caller may skip over.
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Source acquires live capture hardware. Implementations map platform
// permission denial to core.ErrPermissionDenied and any other device failure
// to an acquisition error.
type Source interface {
	AcquireAudio(ctx context.Context) (AudioTrack, error)
	AcquireVideo(ctx context.Context, facing Facing) (VideoTrack, error)
}

// Speaker is the playback output device. Write appends PCM16LE bytes at
// PlaybackSampleRateHz mono; Reset discards everything not yet played.
type Speaker interface {
	Write(pcm []byte) error
	Reset()
	Close() error
}
