package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ErrTooLarge is returned when a payload exceeds the configured size cap
var ErrTooLarge = errors.New("audio payload exceeds size limit")

// Fetcher opens a streamed asset download
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// Downloader streams upstream audio into per-request temp files
type Downloader struct {
	fetcher  Fetcher
	tempDir  string
	maxBytes int64
	logger   *logrus.Logger
}

// NewDownloader creates a new downloader instance. maxBytes <= 0 disables the
// size cap.
func NewDownloader(fetcher Fetcher, tempDir string, maxBytes int64, logger *logrus.Logger) (*Downloader, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}

	return &Downloader{
		fetcher:  fetcher,
		tempDir:  tempDir,
		maxBytes: maxBytes,
		logger:   logger,
	}, nil
}

// TempDir returns the directory temp audio files are created in
func (d *Downloader) TempDir() string {
	return d.tempDir
}

// TempAudioFile is a downloaded payload that lives for one request. It must be
// released once the response has been written.
type TempAudioFile struct {
	ID     string
	SongID string
	Path   string
	Size   int64

	logger  *logrus.Logger
	release sync.Once
}

// Acquire downloads url into a uniquely named temp file. On any failure the
// partial file is removed before returning.
func (d *Downloader) Acquire(ctx context.Context, songID, url string) (*TempAudioFile, error) {
	id := uuid.New().String()
	path := filepath.Join(d.tempDir, fmt.Sprintf("song_%s_%s.m4a", SanitizeFilename(songID), id))

	tmp := &TempAudioFile{
		ID:     id,
		SongID: songID,
		Path:   path,
		logger: d.logger,
	}

	log := d.logger.WithFields(logrus.Fields{
		"song_id":   songID,
		"file_path": path,
	})
	log.Debug("Acquiring temp audio file")

	start := time.Now()
	size, err := d.stream(ctx, url, path)
	if err != nil {
		tmp.Release()
		return nil, err
	}
	tmp.Size = size

	log.WithFields(logrus.Fields{
		"bytes":    size,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Info("Downloaded audio")

	return tmp, nil
}

func (d *Downloader) stream(ctx context.Context, url, path string) (int64, error) {
	body, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch audio: %w", err)
	}
	defer body.Close()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	var src io.Reader = body
	if d.maxBytes > 0 {
		// one extra byte tells an exact-size payload from an oversized one
		src = io.LimitReader(body, d.maxBytes+1)
	}

	size, copyErr := io.Copy(file, src)
	closeErr := file.Close()

	if copyErr != nil {
		return 0, fmt.Errorf("failed to write audio: %w", copyErr)
	}
	if closeErr != nil {
		return 0, fmt.Errorf("failed to close temp file: %w", closeErr)
	}
	if d.maxBytes > 0 && size > d.maxBytes {
		return 0, ErrTooLarge
	}
	return size, nil
}

// Release deletes the temp file. It is safe to call more than once; failures
// are logged and never returned.
func (t *TempAudioFile) Release() {
	if t == nil {
		return
	}
	t.release.Do(func() {
		err := os.Remove(t.Path)
		if err == nil || os.IsNotExist(err) {
			return
		}
		t.logger.WithError(err).WithField("file_path", t.Path).Error("Error removing temporary file")
	})
}

// SanitizeFilename removes characters that are unsafe in file names and
// Content-Disposition headers
func SanitizeFilename(filename string) string {
	invalid := []string{"/", "\\", ":", "*", "?", "\"", "<", ">", "|", "\x00", "\r", "\n"}
	result := filename
	for _, char := range invalid {
		result = strings.ReplaceAll(result, char, "_")
	}
	return strings.TrimSpace(result)
}
