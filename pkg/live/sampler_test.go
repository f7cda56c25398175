package live

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/vango-go/voice-lite/pkg/audio"
)

func TestFrameSamplerSendsCompressedFrames(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	grab := func(context.Context) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 640, 480)), nil
	}

	var mu sync.Mutex
	var sent []audio.Media
	send := func(payload audio.Media) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, payload)
		if len(sent) == 2 {
			cancel()
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runFrameSampler(ctx, time.Millisecond, grab, send, discardLogger())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("sampler did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sent) < 2 {
		t.Fatalf("sent %d frames, want at least 2", len(sent))
	}
	for i, payload := range sent {
		if payload.MIMEType != audio.MIMEJPEG {
			t.Fatalf("frame %d mime = %q, want %q", i, payload.MIMEType, audio.MIMEJPEG)
		}
		if len(payload.Data) == 0 {
			t.Fatalf("frame %d has empty payload", i)
		}
	}
}

func TestFrameSamplerSkipsFailedGrabs(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	grabs, fails := 0, 0
	grab := func(context.Context) (image.Image, error) {
		mu.Lock()
		defer mu.Unlock()
		grabs++
		if grabs%2 == 1 {
			fails++
			return nil, errors.New("device busy")
		}
		return image.NewRGBA(image.Rect(0, 0, 640, 480)), nil
	}

	sent := 0
	send := func(audio.Media) error {
		mu.Lock()
		defer mu.Unlock()
		sent++
		if sent == 2 {
			cancel()
		}
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runFrameSampler(ctx, time.Millisecond, grab, send, discardLogger())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("sampler did not survive grab failures")
	}

	mu.Lock()
	defer mu.Unlock()
	if fails == 0 {
		t.Fatalf("test exercised no failed grabs")
	}
	if sent < 2 {
		t.Fatalf("sent %d frames despite recoverable failures, want at least 2", sent)
	}
}

func TestFrameSamplerStopsOnCancelDuringGrab(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	grab := func(ctx context.Context) (image.Image, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}
	send := func(audio.Media) error {
		t.Errorf("send called after cancellation")
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		runFrameSampler(ctx, time.Millisecond, grab, send, discardLogger())
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("sampler did not stop when the context died mid-grab")
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
