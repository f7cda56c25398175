package audio

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"
)

func TestCompressFrameHalvesResolution(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	payload, err := CompressFrame(frame)
	if err != nil {
		t.Fatalf("CompressFrame: %v", err)
	}
	if payload.MIMEType != MIMEJPEG {
		t.Fatalf("mime = %q, want %q", payload.MIMEType, MIMEJPEG)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(payload.Data))
	if err != nil {
		t.Fatalf("decode compressed frame: %v", err)
	}
	if cfg.Width != 960 || cfg.Height != 540 {
		t.Fatalf("compressed size = %dx%d, want 960x540", cfg.Width, cfg.Height)
	}
}

func TestCompressFrameAppliesFloor(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 800, 600))
	payload, err := CompressFrame(frame)
	if err != nil {
		t.Fatalf("CompressFrame: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(payload.Data))
	if err != nil {
		t.Fatalf("decode compressed frame: %v", err)
	}
	if cfg.Width != 640 || cfg.Height != 480 {
		t.Fatalf("compressed size = %dx%d, want 640x480 floor", cfg.Width, cfg.Height)
	}
}
