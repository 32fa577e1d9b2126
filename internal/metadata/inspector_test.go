package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestInspectRejectsNonAudio(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	inspector := NewInspector(logger)

	path := filepath.Join(t.TempDir(), "garbage.m4a")
	if err := os.WriteFile(path, []byte("definitely not an mpeg-4 file"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := inspector.Inspect(path); err == nil {
		t.Error("expected error for non-audio file")
	}
	if _, err := inspector.Inspect(filepath.Join(t.TempDir(), "missing.m4a")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSniffImageMIME(t *testing.T) {
	testCases := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"JPEG", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "image/jpeg"},
		{"PNG", []byte{0x89, 0x50, 0x4E, 0x47}, "image/png"},
		{"GIF", []byte{0x47, 0x49, 0x46, 0x38}, "image/gif"},
		{"Unknown", []byte{0x00, 0x00, 0x00, 0x00}, "application/octet-stream"},
		{"Too short", []byte{0xFF}, "application/octet-stream"},
		{"Empty", []byte{}, "application/octet-stream"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := sniffImageMIME(tc.data); got != tc.expected {
				t.Errorf("sniffImageMIME() = %s, want %s", got, tc.expected)
			}
		})
	}
}
