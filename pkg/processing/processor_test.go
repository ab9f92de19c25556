package processing

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// createTestImage creates a simple gradient image
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.Set(x, y, color.RGBA{r, g, 128, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeBytes(t *testing.T) {
	data := encodePNG(t, createTestImage(20, 10))

	img, format, err := DecodeBytes(data)
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if format != "png" {
		t.Errorf("expected png, got %q", format)
	}
	if img.Bounds().Dx() != 20 || img.Bounds().Dy() != 10 {
		t.Errorf("unexpected bounds: %v", img.Bounds())
	}

	if _, _, err := DecodeBytes([]byte("not an image")); err == nil {
		t.Error("expected error for garbage bytes")
	}
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxDim        int
		wantW, wantH  int
	}{
		{"landscape over limit", 800, 400, 200, 200, 100},
		{"portrait over limit", 400, 800, 200, 100, 200},
		{"already small", 100, 50, 200, 100, 50},
		{"zero disables", 800, 400, 0, 800, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := Downscale(createTestImage(tt.width, tt.height), tt.maxDim)
			b := img.Bounds()
			if b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, b.Dx(), b.Dy())
			}
		})
	}
}

func TestEncodeFormats(t *testing.T) {
	img := createTestImage(32, 32)

	for _, format := range []string{"jpg", "png", "webp"} {
		data, err := Encode(img, format, 85)
		if err != nil {
			t.Errorf("Encode(%s) failed: %v", format, err)
			continue
		}
		if len(data) == 0 {
			t.Errorf("Encode(%s) produced no bytes", format)
		}
	}
}

func TestPrepareForModel(t *testing.T) {
	big := encodePNG(t, createTestImage(600, 300))

	prepared, err := PrepareForModel(big, 150)
	if err != nil {
		t.Fatalf("PrepareForModel failed: %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(prepared))
	if err != nil {
		t.Fatalf("prepared bytes should be JPEG: %v", err)
	}
	if img.Bounds().Dx() != 150 || img.Bounds().Dy() != 75 {
		t.Errorf("expected 150x75, got %dx%d", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestPrepareForModelPassthrough(t *testing.T) {
	small := encodePNG(t, createTestImage(100, 80))

	prepared, err := PrepareForModel(small, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(prepared, small) {
		t.Error("small images should pass through unchanged")
	}

	// maxDim 0 skips prep entirely, even for undecodable bytes
	garbage := []byte("garbage")
	prepared, err = PrepareForModel(garbage, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(prepared, garbage) {
		t.Error("maxDim 0 should return input untouched")
	}
}

func TestPrepareForModelUndecodable(t *testing.T) {
	if _, err := PrepareForModel([]byte("garbage"), 100); err == nil {
		t.Error("expected error for undecodable bytes when prep is requested")
	}
}
