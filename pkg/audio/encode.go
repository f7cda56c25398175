package audio

import (
	"math"
	"time"

	"github.com/vango-go/voice-lite/pkg/core"
)

const (
	// MIMEPCM16k is the outbound capture payload type.
	MIMEPCM16k = "audio/pcm;rate=16000"
	// MIMEJPEG is the outbound frame payload type.
	MIMEJPEG = "image/jpeg"

	playbackSampleRateHz = 24000
	bytesPerSample       = 2
)

// Media is a transport-ready outbound payload. Data is raw bytes; the wire
// codec applies base64 text framing.
type Media struct {
	MIMEType string
	Data     []byte
}

// EncodeBlock converts one capture window of float samples in [-1, 1] into
// 16-bit signed little-endian PCM. Pure: one block in, one payload out, no
// buffering across calls.
func EncodeBlock(samples []float32) Media {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, sample := range samples {
		scaled := float64(sample) * 32768
		if scaled > math.MaxInt16 {
			scaled = math.MaxInt16
		} else if scaled < math.MinInt16 {
			scaled = math.MinInt16
		}
		s := int16(scaled)
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return Media{MIMEType: MIMEPCM16k, Data: out}
}

// RMS is the running loudness estimate of a capture window,
// sqrt(mean(sample^2)). Purely derived; cannot fail.
func RMS(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// ValidatePCM16 checks that a playback chunk is whole 16-bit samples.
func ValidatePCM16(pcm []byte) error {
	if len(pcm) == 0 {
		return core.NewPlaybackDecodeError("empty audio chunk")
	}
	if len(pcm)%bytesPerSample != 0 {
		return core.NewPlaybackDecodeError("audio chunk is not whole 16-bit samples")
	}
	return nil
}

// PCMDuration is the playback time of a PCM16LE chunk at 24 kHz mono.
func PCMDuration(pcm []byte) time.Duration {
	samples := len(pcm) / bytesPerSample
	return time.Duration(samples) * time.Second / playbackSampleRateHz
}
