package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetFileExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.jpg", "jpg"},
		{"photo.JPEG", "jpeg"},
		{"archive.tar.gz", "gz"},
		{"noext", ""},
	}

	for _, tt := range tests {
		if got := GetFileExtension(tt.filename); got != tt.want {
			t.Errorf("GetFileExtension(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}

func TestIsImageFile(t *testing.T) {
	imageFiles := []string{"a.jpg", "b.jpeg", "c.png", "d.webp", "e.BMP"}
	for _, name := range imageFiles {
		if !IsImageFile(name) {
			t.Errorf("%s should be recognized as an image", name)
		}
	}

	otherFiles := []string{"a.txt", "b.pdf", "c"}
	for _, name := range otherFiles {
		if IsImageFile(name) {
			t.Errorf("%s should not be recognized as an image", name)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "exists.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if !FileExists(path) {
		t.Error("existing file should be reported")
	}
	if FileExists(filepath.Join(dir, "missing.jpg")) {
		t.Error("missing file should not be reported")
	}
	if FileExists(dir) {
		t.Error("directory should not count as a file")
	}
	// Stat fails with ENOTDIR here, which must read as absent, not panic
	if FileExists(filepath.Join(path, "nested.jpg")) {
		t.Error("path through a regular file should not be reported")
	}
}

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		size int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}

	for _, tt := range tests {
		if got := FormatFileSize(tt.size); got != tt.want {
			t.Errorf("FormatFileSize(%d) = %q, want %q", tt.size, got, tt.want)
		}
	}
}
