// Package processing prepares images for transmission to vision models.
package processing

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// DefaultSendQuality is the JPEG quality used when re-encoding for the model.
const DefaultSendQuality = 85

// DecodeBytes decodes an image from byte data with WebP support.
func DecodeBytes(data []byte) (image.Image, string, error) {
	// Try standard image.Decode first
	reader := bytes.NewReader(data)
	if img, format, err := image.Decode(reader); err == nil {
		return img, format, nil
	}

	// Try WebP decode
	reader = bytes.NewReader(data)
	if img, err := webp.Decode(reader); err == nil {
		return img, "webp", nil
	}

	return nil, "", fmt.Errorf("image: unknown or unsupported format")
}

// Downscale shrinks an image so its long side is at most maxDim pixels.
// maxDim <= 0 or an already-small image returns the input untouched.
func Downscale(img image.Image, maxDim int) image.Image {
	if maxDim <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxDim && h <= maxDim {
		return img
	}
	if w >= h {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}

// Encode re-encodes an image in the given format (jpg, png or webp).
func Encode(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch strings.ToLower(format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(&buf, img); err != nil {
			return nil, err
		}
	case "webp":
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, err
		}
	default: // jpg
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// PrepareForModel downscales image bytes so the long side fits maxDim and
// re-encodes them as JPEG for transmission. Bytes that already fit are
// returned unchanged, so prep never inflates a small image.
func PrepareForModel(data []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		return data, nil
	}

	img, _, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() <= maxDim && b.Dy() <= maxDim {
		return data, nil
	}

	return Encode(Downscale(img, maxDim), "jpg", DefaultSendQuality)
}
