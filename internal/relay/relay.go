// Package relay implements the search and download pipelines behind the HTTP
// surface. Every call is request-scoped; nothing is shared between calls
// except the temp directory.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"saavnrelay/internal/downloader"
	"saavnrelay/internal/metadata"
	"saavnrelay/internal/saavn"
	"saavnrelay/pkg/models"

	"github.com/sirupsen/logrus"
)

// ContentType is the MIME type of every relayed download
const ContentType = "audio/mp4"

// Upstream is the metadata API the relay proxies
type Upstream interface {
	Search(ctx context.Context, query string) ([]json.RawMessage, error)
	Song(ctx context.Context, id string) (*models.Song, error)
}

// AudioStore acquires temp audio files
type AudioStore interface {
	Acquire(ctx context.Context, songID, url string) (*downloader.TempAudioFile, error)
}

// Enricher embeds metadata into a downloaded file
type Enricher interface {
	Enrich(ctx context.Context, filePath string, song *models.Song, songID string) error
}

// Inspector reads back a file's tags after enrichment
type Inspector interface {
	Inspect(filePath string) (*metadata.Summary, error)
}

// Service runs the relay pipelines
type Service struct {
	upstream       Upstream
	store          AudioStore
	enricher       Enricher
	inspector      Inspector
	defaultQuality downloader.Quality
	logger         *logrus.Logger
}

// Options wires a Service. Inspector is optional.
type Options struct {
	Upstream       Upstream
	Store          AudioStore
	Enricher       Enricher
	Inspector      Inspector
	DefaultQuality downloader.Quality
	Logger         *logrus.Logger
}

// NewService creates a new relay service
func NewService(opts Options) *Service {
	def := opts.DefaultQuality
	if def == "" {
		def = downloader.QualityLow
	}
	return &Service{
		upstream:       opts.Upstream,
		store:          opts.Store,
		enricher:       opts.Enricher,
		inspector:      opts.Inspector,
		defaultQuality: def,
		logger:         opts.Logger,
	}
}

// SearchResult is the reshaped search payload
type SearchResult struct {
	SongData []json.RawMessage `json:"song_data"`
	Count    int               `json:"count"`
}

// Search forwards query to the upstream search endpoint
func (s *Service) Search(ctx context.Context, query string) (*SearchResult, error) {
	if query == "" {
		return nil, ValidationError(MsgQueryRequired, nil)
	}

	s.logger.WithField("query", query).Info("Searching")

	songs, err := s.upstream.Search(ctx, query)
	if err != nil {
		return nil, UpstreamError(MsgUpstreamFailed, err)
	}
	if songs == nil {
		songs = []json.RawMessage{}
	}

	return &SearchResult{SongData: songs, Count: len(songs)}, nil
}

// Download is an enriched audio file ready to be sent. Release must be called
// once the response has been written.
type Download struct {
	File        *downloader.TempAudioFile
	Song        *models.Song
	Quality     downloader.Quality
	SourceURL   string
	Filename    string
	ContentType string
	Enriched    bool
	Summary     *metadata.Summary
}

// Release deletes the underlying temp file
func (d *Download) Release() {
	if d == nil {
		return
	}
	d.File.Release()
}

// Download runs the full pipeline for song id at the requested quality tier:
// fetch detail, select link, stream to a temp file, enrich. An empty quality
// means the configured default. Enrichment failures are logged and the
// unenriched file is returned.
func (s *Service) Download(ctx context.Context, id string, quality downloader.Quality) (*Download, error) {
	if id == "" {
		return nil, ValidationError(MsgSongIDRequired, nil)
	}
	if quality == "" {
		quality = s.defaultQuality
	}

	log := s.logger.WithFields(logrus.Fields{
		"song_id": id,
		"quality": quality,
	})
	log.Info("Fetching song details")

	song, err := s.upstream.Song(ctx, id)
	if err != nil {
		if errors.Is(err, saavn.ErrNoSong) {
			return nil, UpstreamError(MsgUpstreamMalformed, err)
		}
		return nil, UpstreamError(MsgUpstreamFailed, err)
	}

	sourceURL, err := downloader.SelectURL(song.DownloadURL, quality)
	switch {
	case errors.Is(err, downloader.ErrNoDownloadURLs):
		return nil, ValidationError(MsgNoDownloadURLs, err)
	case err != nil:
		log.WithError(err).Error("Error selecting download URL")
		return nil, ValidationError(MsgQualityUnavailable, err)
	}

	log = log.WithField("title", song.Title())
	log.Info("Downloading song")

	file, err := s.store.Acquire(ctx, id, sourceURL)
	if err != nil {
		return nil, UpstreamError(MsgUpstreamFailed, err)
	}

	handedOff := false
	defer func() {
		// covers error returns and panics between acquire and hand-off
		if !handedOff {
			file.Release()
		}
	}()

	dl := &Download{
		File:        file,
		Song:        song,
		Quality:     quality,
		SourceURL:   sourceURL,
		Filename:    AttachmentName(song),
		ContentType: ContentType,
	}

	start := time.Now()
	if err := s.enricher.Enrich(ctx, file.Path, song, id); err != nil {
		log.WithError(EnrichmentFailure(err)).Warn("Failed to add metadata to the file")
	} else {
		dl.Enriched = true
		log.WithField("duration", time.Since(start).Round(time.Millisecond)).Debug("Enrichment complete")
	}

	if s.inspector != nil {
		if summary, err := s.inspector.Inspect(file.Path); err == nil {
			dl.Summary = summary
		}
	}

	handedOff = true
	return dl, nil
}

// AttachmentName is the download file name for song
func AttachmentName(song *models.Song) string {
	name := downloader.SanitizeFilename(song.Title())
	if name == "" {
		name = "Unknown"
	}
	return name + ".m4a"
}
