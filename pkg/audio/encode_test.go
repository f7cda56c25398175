package audio

import (
	"math"
	"testing"
	"time"
)

func TestEncodeBlockScalesAndClamps(t *testing.T) {
	block := []float32{0, 0.5, -0.5, 1.5, -1.5}
	payload := EncodeBlock(block)

	if payload.MIMEType != MIMEPCM16k {
		t.Fatalf("mime = %q, want %q", payload.MIMEType, MIMEPCM16k)
	}
	if len(payload.Data) != len(block)*2 {
		t.Fatalf("payload length = %d, want %d", len(payload.Data), len(block)*2)
	}

	samples := make([]int16, len(block))
	for i := range samples {
		samples[i] = int16(uint16(payload.Data[i*2]) | uint16(payload.Data[i*2+1])<<8)
	}
	if samples[0] != 0 {
		t.Fatalf("sample 0 = %d, want 0", samples[0])
	}
	if samples[1] != 16384 {
		t.Fatalf("sample 1 = %d, want 16384", samples[1])
	}
	if samples[2] != -16384 {
		t.Fatalf("sample 2 = %d, want -16384", samples[2])
	}
	if samples[3] != math.MaxInt16 {
		t.Fatalf("over-range sample = %d, want clamp to %d", samples[3], math.MaxInt16)
	}
	if samples[4] != math.MinInt16 {
		t.Fatalf("under-range sample = %d, want clamp to %d", samples[4], math.MinInt16)
	}
}

func TestRMS(t *testing.T) {
	if got := RMS(nil); got != 0 {
		t.Fatalf("RMS(nil) = %v, want 0", got)
	}
	if got := RMS([]float32{0.5, 0.5, 0.5, 0.5}); math.Abs(got-0.5) > 1e-9 {
		t.Fatalf("RMS(constant 0.5) = %v, want 0.5", got)
	}
	// Mixed signs contribute equally.
	if got := RMS([]float32{1, -1}); math.Abs(got-1) > 1e-9 {
		t.Fatalf("RMS(±1) = %v, want 1", got)
	}
}

func TestValidatePCM16(t *testing.T) {
	if err := ValidatePCM16(nil); err == nil {
		t.Fatalf("expected error for empty chunk")
	}
	if err := ValidatePCM16([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected error for odd-length chunk")
	}
	if err := ValidatePCM16([]byte{1, 2}); err != nil {
		t.Fatalf("unexpected error for whole-sample chunk: %v", err)
	}
}

func TestPCMDuration(t *testing.T) {
	// 24kHz mono PCM16 => 48000 bytes per second.
	if got := PCMDuration(make([]byte, 48000)); got != time.Second {
		t.Fatalf("PCMDuration(48000 bytes) = %v, want 1s", got)
	}
	if got := PCMDuration(make([]byte, 960)); got != 20*time.Millisecond {
		t.Fatalf("PCMDuration(960 bytes) = %v, want 20ms", got)
	}
}
