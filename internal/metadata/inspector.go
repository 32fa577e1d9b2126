package metadata

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/abema/go-mp4"
	"github.com/dhowden/tag"
	"github.com/sirupsen/logrus"
)

// Summary describes the tags and container properties of an audio file
type Summary struct {
	Title     string        `json:"title"`
	Artist    string        `json:"artist"`
	Album     string        `json:"album"`
	HasCover  bool          `json:"hasCover"`
	CoverMIME string        `json:"coverMime,omitempty"`
	HasLyrics bool          `json:"hasLyrics"`
	Brand     string        `json:"brand,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Inspector reads back tags and container info from downloaded files
type Inspector struct {
	logger *logrus.Logger
}

// NewInspector creates a new inspector
func NewInspector(logger *logrus.Logger) *Inspector {
	return &Inspector{logger: logger}
}

// Inspect reads the tag atoms and movie header of an MPEG-4 file. A file
// whose tags cannot be read is an error; a missing duration is not.
func (i *Inspector) Inspect(filePath string) (*Summary, error) {
	startTime := time.Now()

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	summary := &Summary{
		Title:     metadata.Title(),
		Artist:    metadata.Artist(),
		Album:     metadata.Album(),
		HasLyrics: strings.TrimSpace(metadata.Lyrics()) != "",
	}

	if picture := metadata.Picture(); picture != nil && len(picture.Data) > 0 {
		summary.HasCover = true
		summary.CoverMIME = picture.MIMEType
		if summary.CoverMIME == "" {
			summary.CoverMIME = sniffImageMIME(picture.Data)
		}
	}

	if brand, duration, err := probeContainer(file); err != nil {
		i.logger.WithFields(logrus.Fields{
			"filePath": filePath,
			"error":    err.Error(),
		}).Debug("Failed to probe container, duration unknown")
	} else {
		summary.Brand = brand
		summary.Duration = duration
	}

	i.logger.WithFields(logrus.Fields{
		"filePath":       filePath,
		"title":          summary.Title,
		"artist":         summary.Artist,
		"album":          summary.Album,
		"hasCover":       summary.HasCover,
		"hasLyrics":      summary.HasLyrics,
		"duration":       summary.Duration,
		"processingTime": time.Since(startTime),
	}).Debug("Inspected audio file")

	return summary, nil
}

// probeContainer reads the major brand and movie duration
func probeContainer(r io.ReadSeeker) (string, time.Duration, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", 0, err
	}

	info, err := mp4.Probe(r)
	if err != nil {
		return "", 0, err
	}

	brand := strings.TrimSpace(string(info.MajorBrand[:]))
	if info.Timescale == 0 {
		return brand, 0, fmt.Errorf("invalid timescale")
	}
	secs := float64(info.Duration) / float64(info.Timescale)
	return brand, time.Duration(secs * float64(time.Second)), nil
}

// sniffImageMIME guesses MIME type from image data
func sniffImageMIME(data []byte) string {
	if len(data) < 4 {
		return "application/octet-stream"
	}

	if data[0] == 0xFF && data[1] == 0xD8 {
		return "image/jpeg"
	}
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return "image/png"
	}
	if data[0] == 0x47 && data[1] == 0x49 && data[2] == 0x46 {
		return "image/gif"
	}

	return "application/octet-stream"
}
