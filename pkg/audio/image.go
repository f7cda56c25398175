package audio

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

const (
	// Frames are downscaled to half linear resolution before compression;
	// dimensions never drop below the floor.
	frameFloorWidth  = 640
	frameFloorHeight = 480

	frameJPEGQuality = 60
)

// CompressFrame downscales a captured frame to half resolution (floored at
// 640x480) and compresses it to JPEG for the 1 Hz visual-context stream.
func CompressFrame(img image.Image) (Media, error) {
	bounds := img.Bounds()
	w := bounds.Dx() / 2
	h := bounds.Dy() / 2
	if w < frameFloorWidth {
		w = frameFloorWidth
	}
	if h < frameFloorHeight {
		h = frameFloorHeight
	}

	scaled := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), img, bounds, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: frameJPEGQuality}); err != nil {
		return Media{}, fmt.Errorf("compress frame: %w", err)
	}
	return Media{MIMEType: MIMEJPEG, Data: buf.Bytes()}, nil
}
