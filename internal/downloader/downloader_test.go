package downloader

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

type fakeFetcher struct {
	body string
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (io.ReadCloser, error) {
	f.urls = append(f.urls, url)
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func newTestDownloader(t *testing.T, fetcher Fetcher, maxBytes int64) (*Downloader, string) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	dir := filepath.Join(t.TempDir(), "tmp")
	d, err := NewDownloader(fetcher, dir, maxBytes, logger)
	if err != nil {
		t.Fatalf("NewDownloader failed: %v", err)
	}
	return d, dir
}

func dirEntries(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir: %v", err)
	}
	return entries
}

func TestAcquireAndRelease(t *testing.T) {
	fetcher := &fakeFetcher{body: "m4a-payload"}
	d, dir := newTestDownloader(t, fetcher, 0)

	tmp, err := d.Acquire(context.Background(), "ABC123", "http://cdn.test/u1.mp4")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if fetcher.urls[0] != "http://cdn.test/u1.mp4" {
		t.Errorf("unexpected fetched url %s", fetcher.urls[0])
	}
	if filepath.Dir(tmp.Path) != dir {
		t.Errorf("temp file created outside temp dir: %s", tmp.Path)
	}
	if !strings.HasPrefix(filepath.Base(tmp.Path), "song_ABC123_") {
		t.Errorf("unexpected temp file name %s", tmp.Path)
	}
	if tmp.Size != int64(len("m4a-payload")) {
		t.Errorf("unexpected size %d", tmp.Size)
	}

	data, err := os.ReadFile(tmp.Path)
	if err != nil || string(data) != "m4a-payload" {
		t.Fatalf("unexpected file contents %q (%v)", data, err)
	}

	tmp.Release()
	tmp.Release()
	if len(dirEntries(t, dir)) != 0 {
		t.Error("expected temp dir to be empty after release")
	}
}

func TestAcquireUniquePerRequest(t *testing.T) {
	d, dir := newTestDownloader(t, &fakeFetcher{body: "x"}, 0)

	first, err := d.Acquire(context.Background(), "same-id", "u")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	second, err := d.Acquire(context.Background(), "same-id", "u")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if first.Path == second.Path {
		t.Fatal("expected distinct temp paths for the same song id")
	}

	first.Release()
	if _, err := os.Stat(second.Path); err != nil {
		t.Errorf("releasing one file must not affect the other: %v", err)
	}
	second.Release()
	if len(dirEntries(t, dir)) != 0 {
		t.Error("expected temp dir to be empty")
	}
}

func TestAcquireFetchFailure(t *testing.T) {
	fetchErr := errors.New("connection reset")
	d, dir := newTestDownloader(t, &fakeFetcher{err: fetchErr}, 0)

	if _, err := d.Acquire(context.Background(), "id", "u"); !errors.Is(err, fetchErr) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
	if len(dirEntries(t, dir)) != 0 {
		t.Error("expected no temp file after failed fetch")
	}
}

func TestAcquireSizeLimit(t *testing.T) {
	d, dir := newTestDownloader(t, &fakeFetcher{body: "0123456789"}, 4)

	if _, err := d.Acquire(context.Background(), "id", "u"); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	if len(dirEntries(t, dir)) != 0 {
		t.Error("expected partial file to be removed")
	}

	exact, _ := newTestDownloader(t, &fakeFetcher{body: "0123"}, 4)
	tmp, err := exact.Acquire(context.Background(), "id", "u")
	if err != nil {
		t.Fatalf("payload at the limit should succeed: %v", err)
	}
	tmp.Release()
}

func TestAcquireSanitizesSongID(t *testing.T) {
	d, dir := newTestDownloader(t, &fakeFetcher{body: "x"}, 0)

	tmp, err := d.Acquire(context.Background(), "../../etc/passwd", "u")
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer tmp.Release()

	if filepath.Dir(tmp.Path) != dir {
		t.Errorf("song id escaped the temp dir: %s", tmp.Path)
	}
}

func TestReleaseNil(t *testing.T) {
	var tmp *TempAudioFile
	tmp.Release()
}

func TestSanitizeFilename(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"Tum Hi Ho", "Tum Hi Ho"},
		{`AC/DC: "Live"`, "AC_DC_ _Live_"},
		{"  padded  ", "padded"},
		{"a\r\nb", "a__b"},
	}

	for _, tc := range testCases {
		if got := SanitizeFilename(tc.input); got != tc.expected {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
