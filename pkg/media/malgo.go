package media

import (
	"context"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/vango-go/voice-lite/pkg/core"
)

// MalgoSource acquires the default microphone through miniaudio.
type MalgoSource struct {
	initOnce sync.Once
	initErr  error
	ctx      *malgo.AllocatedContext

	// Camera capture is delegated; miniaudio is audio only.
	Camera Source
}

// NewMalgoSource creates a source backed by the platform's default capture
// device. camera supplies AcquireVideo; it may be nil when video is unused.
func NewMalgoSource(camera Source) *MalgoSource {
	return &MalgoSource{Camera: camera}
}

func (s *MalgoSource) init() error {
	s.initOnce.Do(func() {
		cfg := malgo.ContextConfig{}
		cfg.ThreadPriority = malgo.ThreadPriorityRealtime
		ctx, err := malgo.InitContext(nil, cfg, nil)
		if err != nil {
			s.initErr = core.NewAcquisitionError(err)
			return
		}
		s.ctx = ctx
	})
	return s.initErr
}

// AcquireAudio opens the default capture device at 16 kHz mono.
func (s *MalgoSource) AcquireAudio(ctx context.Context) (AudioTrack, error) {
	if err := s.init(); err != nil {
		return nil, err
	}

	track := &malgoTrack{
		blocks:  make(chan Block, 8),
		pending: make([]float32, 0, BlockSamples*2),
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatS16
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = CaptureSampleRateHz
	deviceConfig.PeriodSizeInMilliseconds = 20

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, input []byte, _ uint32) {
			track.push(input)
		},
	}

	device, err := malgo.InitDevice(s.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, mapDeviceError(err)
	}
	track.device = device
	if err := device.Start(); err != nil {
		device.Uninit()
		return nil, mapDeviceError(err)
	}
	return track, nil
}

// AcquireVideo delegates to the configured camera source.
func (s *MalgoSource) AcquireVideo(ctx context.Context, facing Facing) (VideoTrack, error) {
	if s.Camera == nil {
		return nil, core.NewAcquisitionError(errNoCamera)
	}
	return s.Camera.AcquireVideo(ctx, facing)
}

// Close releases the miniaudio context.
func (s *MalgoSource) Close() error {
	if s.ctx != nil {
		_ = s.ctx.Uninit()
		s.ctx.Free()
		s.ctx = nil
	}
	return nil
}

type noCameraError struct{}

func (noCameraError) Error() string { return "no camera source configured" }

var errNoCamera = noCameraError{}

// mapDeviceError distinguishes platform permission denial from other device
// failures so the engine can surface a dedicated remediation state.
func mapDeviceError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "access denied") || strings.Contains(msg, "permission") {
		return core.NewPermissionError(err.Error())
	}
	return core.NewAcquisitionError(err)
}

type malgoTrack struct {
	device *malgo.Device
	blocks chan Block

	mu      sync.Mutex
	pending []float32
	closed  bool
}

func (t *malgoTrack) Blocks() <-chan Block {
	return t.blocks
}

// push converts S16LE capture bytes to float32 and emits fixed-size blocks.
// Runs on the miniaudio realtime thread, so a full channel drops the block
// rather than blocking the device.
func (t *malgoTrack) push(input []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	for i := 0; i+1 < len(input); i += 2 {
		s := int16(uint16(input[i]) | uint16(input[i+1])<<8)
		t.pending = append(t.pending, float32(s)/32768.0)
	}
	for len(t.pending) >= BlockSamples {
		block := make(Block, BlockSamples)
		copy(block, t.pending[:BlockSamples])
		t.pending = t.pending[BlockSamples:]
		select {
		case t.blocks <- block:
		default:
		}
	}
}

func (t *malgoTrack) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if t.device != nil {
		_ = t.device.Stop()
		t.device.Uninit()
	}
	close(t.blocks)
	return nil
}
