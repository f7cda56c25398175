package live

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/vango-go/voice-lite/pkg/audio"
)

// frameSamplerInterval is the visual-context cadence. One frame per second is
// enough for the model to follow the camera.
const frameSamplerInterval = time.Second

// runFrameSampler periodically grabs a still frame, compresses it, and sends
// it as outbound media. A transient grab or compress failure skips the tick;
// it is never fatal. The loop stops when ctx is cancelled, which is tied to
// the session's liveness.
func runFrameSampler(ctx context.Context, interval time.Duration, grab func(context.Context) (image.Image, error), send func(audio.Media) error, logger *slog.Logger) {
	if interval <= 0 {
		interval = frameSamplerInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := grab(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Debug("skipping frame tick", "err", err)
			continue
		}
		payload, err := audio.CompressFrame(frame)
		if err != nil {
			logger.Debug("skipping frame tick", "err", err)
			continue
		}
		// Best-effort, like every outbound send.
		_ = send(payload)
	}
}
