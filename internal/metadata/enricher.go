package metadata

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"saavnrelay/pkg/models"

	"github.com/Sorrow446/go-mp4tag"
	"github.com/sirupsen/logrus"
)

const maxCoverBytes = 10 << 20

// CoverFormat is the codec a cover image is embedded with
type CoverFormat int

const (
	CoverPNG CoverFormat = iota
	CoverJPEG
)

func (f CoverFormat) String() string {
	if f == CoverJPEG {
		return "jpeg"
	}
	return "png"
}

func (f CoverFormat) imageType() mp4tag.ImageType {
	if f == CoverJPEG {
		return mp4tag.ImageTypeJPEG
	}
	return mp4tag.ImageTypePNG
}

// CoverFormatForURL picks the codec from the URL's file extension. Only .jpg
// and .jpeg (any case) select JPEG.
func CoverFormatForURL(raw string) CoverFormat {
	p := raw
	if u, err := url.Parse(raw); err == nil && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".jpg", ".jpeg":
		return CoverJPEG
	default:
		return CoverPNG
	}
}

// AssetFetcher opens a streamed download of an asset URL
type AssetFetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// LyricsSource looks up lyrics for a song id. A false result means none.
type LyricsSource interface {
	Lyrics(ctx context.Context, songID string) (string, bool)
}

// tagFile is the subset of *mp4tag.MP4 the enricher needs
type tagFile interface {
	Write(tags *mp4tag.MP4Tags, delStrings []string) error
	Close() error
}

func openMP4(path string) (tagFile, error) {
	f, err := mp4tag.Open(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Enricher embeds title, artist, album, cover art and lyrics into a
// downloaded MPEG-4 audio file
type Enricher struct {
	assets AssetFetcher
	lyrics LyricsSource
	logger *logrus.Logger
	open   func(path string) (tagFile, error)
}

// NewEnricher creates a new metadata enricher
func NewEnricher(assets AssetFetcher, lyrics LyricsSource, logger *logrus.Logger) *Enricher {
	return &Enricher{
		assets: assets,
		lyrics: lyrics,
		logger: logger,
		open:   openMP4,
	}
}

// Enrich writes tags for song into the file at filePath in place. Cover art
// and lyrics are best-effort; only a container load or save failure is
// returned, as is a panic inside the tag writer.
func (e *Enricher) Enrich(ctx context.Context, filePath string, song *models.Song, songID string) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("tag writer panicked: %v", rec)
		}
	}()

	log := e.logger.WithFields(logrus.Fields{
		"song_id":   songID,
		"file_path": filePath,
	})

	f, err := e.open(filePath)
	if err != nil {
		return fmt.Errorf("failed to load mp4 container: %w", err)
	}
	defer f.Close()

	tags := &mp4tag.MP4Tags{
		Title:  song.Title(),
		Artist: song.PrimaryArtist(),
		Album:  song.AlbumTitle(),
	}

	if coverURL, ok := song.CoverURL(); ok {
		picture, err := e.fetchCover(ctx, coverURL)
		if err != nil {
			log.WithError(err).Error("Error adding cover art")
		} else {
			tags.Pictures = []*mp4tag.MP4Picture{picture}
		}
	}

	if lyrics, ok := e.lyrics.Lyrics(ctx, songID); ok {
		tags.Lyrics = lyrics
	}

	if err := f.Write(tags, []string{}); err != nil {
		return fmt.Errorf("failed to save tags: %w", err)
	}

	log.WithFields(logrus.Fields{
		"title":     tags.Title,
		"artist":    tags.Artist,
		"album":     tags.Album,
		"hasCover":  len(tags.Pictures) > 0,
		"hasLyrics": tags.Lyrics != "",
	}).Info("Metadata added")
	return nil
}

func (e *Enricher) fetchCover(ctx context.Context, coverURL string) (*mp4tag.MP4Picture, error) {
	body, err := e.assets.Fetch(ctx, coverURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxCoverBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read cover art: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("empty cover art response")
	}

	return &mp4tag.MP4Picture{
		Format: CoverFormatForURL(coverURL).imageType(),
		Data:   data,
	}, nil
}
