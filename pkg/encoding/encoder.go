// Package encoding turns raw image bytes into the base64 form embedded in
// chat completion requests.
package encoding

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/apex/log"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-describer/internal/utils"
)

// ErrFileNotFound reports that an image path did not resolve to a regular file.
var ErrFileNotFound = errors.New("image file not found")

// ImageInfo contains basic metadata decoded from image bytes.
type ImageInfo struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
	Size   int    `json:"size_bytes"`
}

// EncodeBytes encodes raw image bytes to a base64 string for API consumption.
func EncodeBytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// ReadFile reads raw image bytes from disk. It fails with ErrFileNotFound
// when the path does not resolve to a regular file.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("failed to stat image file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image file: %w", err)
	}

	return data, nil
}

// EncodeFile reads an image file and encodes its contents to base64.
func EncodeFile(path string) (string, error) {
	data, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	return EncodeBytes(data), nil
}

// Inspect decodes image dimensions and format for diagnostic logging. It is
// best-effort only: bytes that cannot be introspected still encode fine, so
// callers must not treat an error here as fatal.
func Inspect(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{Size: len(data)}, fmt.Errorf("failed to decode image config: %w", err)
	}

	return ImageInfo{
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
		Size:   len(data),
	}, nil
}

// LogInfo logs what Inspect can learn about the bytes without ever failing.
func LogInfo(name string, data []byte) {
	info, err := Inspect(data)
	if err != nil {
		log.WithField("image", name).Debugf("could not introspect image: %v", err)
		return
	}
	log.WithField("image", name).Debugf("image %dx%d format=%s size=%s",
		info.Width, info.Height, info.Format, utils.FormatFileSize(int64(info.Size)))
}
