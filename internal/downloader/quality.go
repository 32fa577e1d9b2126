package downloader

import (
	"errors"
	"strings"

	"saavnrelay/pkg/models"
)

// Quality is a coarse bitrate tier requested by the caller
type Quality string

const (
	QualityLow    Quality = "low"
	QualityMedium Quality = "medium"
	QualityHigh   Quality = "high"
	// QualityFirst is what an explicitly empty tier resolves to: the first link
	QualityFirst Quality = "first"
)

var (
	// ErrNoDownloadURLs means the song record carries no usable link list
	ErrNoDownloadURLs = errors.New("no download URLs available")
	// ErrQualityUnavailable means the tier's index or link could not be read
	ErrQualityUnavailable = errors.New("failed to get download URL for specified quality")
)

// ParseQuality normalises a quality query parameter. An absent parameter
// yields "" (the caller's default applies); a present but empty one yields
// QualityFirst. Unknown tiers are kept verbatim and resolve to the first link
// in SelectURL.
func ParseQuality(raw string, present bool) Quality {
	if !present {
		return ""
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return QualityFirst
	}
	return Quality(raw)
}

// SelectURL picks the download link for a tier from a list ordered by
// ascending bitrate:
//
//	low    -> index 1, error when the list has a single entry
//	medium -> index 2 when present, otherwise index 0
//	high   -> last entry
//	other  -> index 0 (QualityFirst included)
func SelectURL(links models.LinkList, q Quality) (string, error) {
	if len(links) == 0 {
		return "", ErrNoDownloadURLs
	}

	idx := 0
	switch q {
	case QualityLow:
		idx = 1
	case QualityMedium:
		if len(links) > 2 {
			idx = 2
		}
	case QualityHigh:
		idx = len(links) - 1
	}

	if idx >= len(links) || links[idx].Link == "" {
		return "", ErrQualityUnavailable
	}
	return string(links[idx].Link), nil
}
