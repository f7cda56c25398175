package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"runtime"
	"strings"

	"github.com/vango-go/voice-lite/pkg/core"
)

// FFmpegCamera grabs still frames from a camera device by invoking ffmpeg.
// Device names are platform specific; the defaults target the first (front)
// and second (back) camera of the platform's native capture backend.
type FFmpegCamera struct {
	// Path to the ffmpeg binary. Defaults to "ffmpeg" on PATH.
	Path string
	// FrontDevice and BackDevice override the per-facing device identifiers.
	FrontDevice string
	BackDevice  string
}

// AcquireAudio is not supported; ffmpeg is used for frames only.
func (c *FFmpegCamera) AcquireAudio(ctx context.Context) (AudioTrack, error) {
	return nil, core.NewAcquisitionError(fmt.Errorf("ffmpeg source captures video only"))
}

// AcquireVideo verifies the device is reachable by grabbing one frame, then
// returns a track that grabs a fresh frame on demand.
func (c *FFmpegCamera) AcquireVideo(ctx context.Context, facing Facing) (VideoTrack, error) {
	track := &ffmpegTrack{
		path:   c.path(),
		device: c.device(facing),
	}
	if _, err := track.Frame(ctx); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "permission") ||
			strings.Contains(strings.ToLower(err.Error()), "not authorized") {
			return nil, core.NewPermissionError(err.Error())
		}
		return nil, core.NewAcquisitionError(err)
	}
	return track, nil
}

func (c *FFmpegCamera) path() string {
	if strings.TrimSpace(c.Path) != "" {
		return c.Path
	}
	return "ffmpeg"
}

func (c *FFmpegCamera) device(facing Facing) string {
	switch facing {
	case FacingBack:
		if strings.TrimSpace(c.BackDevice) != "" {
			return c.BackDevice
		}
		return defaultDevice(1)
	default:
		if strings.TrimSpace(c.FrontDevice) != "" {
			return c.FrontDevice
		}
		return defaultDevice(0)
	}
}

func defaultDevice(index int) string {
	switch runtime.GOOS {
	case "darwin":
		return fmt.Sprintf("%d", index)
	case "windows":
		return fmt.Sprintf("video=%d", index)
	default:
		return fmt.Sprintf("/dev/video%d", index)
	}
}

func captureFormat() string {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation"
	case "windows":
		return "dshow"
	default:
		return "v4l2"
	}
}

type ffmpegTrack struct {
	path   string
	device string
}

// Frame grabs a single frame as JPEG on stdout and decodes it. Any failure is
// returned to the caller, which may treat it as a skippable tick.
func (t *ffmpegTrack) Frame(ctx context.Context) (image.Image, error) {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", captureFormat(),
		"-i", t.device,
		"-frames:v", "1",
		"-f", "image2",
		"-vcodec", "mjpeg",
		"-",
	}
	cmd := exec.CommandContext(ctx, t.path, args...)
	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(errBuf.String())
		if detail != "" {
			return nil, fmt.Errorf("ffmpeg frame grab: %s", detail)
		}
		return nil, fmt.Errorf("ffmpeg frame grab: %w", err)
	}
	img, err := jpeg.Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("decode grabbed frame: %w", err)
	}
	return img, nil
}

func (t *ffmpegTrack) Close() error { return nil }
