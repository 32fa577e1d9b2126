// Package saavn is a thin client for the JioSaavn metadata API used by the relay.
package saavn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"saavnrelay/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	searchPath = "/search"
	songPath   = "/song"
	lyricsPath = "/get/lyrics"

	// upstream JSON envelopes are small; anything larger is not a song record
	maxEnvelopeBytes = 8 << 20
)

// ErrNoSong is returned when the song detail envelope carries no song
var ErrNoSong = errors.New("upstream returned no song for id")

// StatusError reports a non-2xx upstream response
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s returned status %d", e.URL, e.StatusCode)
}

// Options configures a Client
type Options struct {
	BaseURL         string
	RequestTimeout  time.Duration
	DownloadTimeout time.Duration
	UserAgent       string
	HTTPClient      *http.Client
}

// Client talks to the upstream search, song and lyrics endpoints
type Client struct {
	base            string
	requestTimeout  time.Duration
	downloadTimeout time.Duration
	userAgent       string
	http            *http.Client
	logger          *logrus.Logger
}

// NewClient creates a new upstream client
func NewClient(opts Options, logger *logrus.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}
	if opts.DownloadTimeout <= 0 {
		opts.DownloadTimeout = 2 * time.Minute
	}

	return &Client{
		base:            strings.TrimRight(opts.BaseURL, "/"),
		requestTimeout:  opts.RequestTimeout,
		downloadTimeout: opts.DownloadTimeout,
		userAgent:       opts.UserAgent,
		http:            httpClient,
		logger:          logger,
	}
}

// BaseURL returns the upstream API root
func (c *Client) BaseURL() string {
	return c.base
}

// Search returns the raw song summaries for a query. Items are passed through
// untouched; an envelope without data.songs.data yields an empty slice.
func (c *Client) Search(ctx context.Context, query string) ([]json.RawMessage, error) {
	body, err := c.getJSON(ctx, c.endpoint(searchPath, url.Values{"q": {query}}))
	if err != nil {
		return nil, err
	}

	results := make([]json.RawMessage, 0)
	list := gjson.GetBytes(body, "data.songs.data")
	if !list.IsArray() {
		c.logger.WithField("query", query).Debug("Search envelope has no song list")
		return results, nil
	}
	for _, item := range list.Array() {
		results = append(results, json.RawMessage(item.Raw))
	}
	return results, nil
}

// Song fetches the song detail record for id
func (c *Client) Song(ctx context.Context, id string) (*models.Song, error) {
	body, err := c.getJSON(ctx, c.endpoint(songPath, url.Values{"id": {id}}))
	if err != nil {
		return nil, err
	}

	first := gjson.GetBytes(body, "data.songs.0")
	if !first.Exists() || !first.IsObject() {
		return nil, ErrNoSong
	}

	var song models.Song
	if err := json.Unmarshal([]byte(first.Raw), &song); err != nil {
		return nil, fmt.Errorf("failed to decode song %s: %w", id, err)
	}
	return &song, nil
}

// Lyrics fetches lyrics for a song id. Absence is not an error: the boolean
// is false when the upstream has no lyrics or could not be reached.
func (c *Client) Lyrics(ctx context.Context, id string) (string, bool) {
	log := c.logger.WithField("song_id", id)

	body, err := c.getJSON(ctx, c.endpoint(lyricsPath, url.Values{"id": {id}}))
	if err != nil {
		log.WithError(err).Error("Error fetching lyrics")
		return "", false
	}

	if gjson.GetBytes(body, "status").String() == "Success" {
		if lyrics := gjson.GetBytes(body, "data.lyrics"); lyrics.Type == gjson.String && lyrics.Str != "" {
			return lyrics.Str, true
		}
	}

	log.Warn("Lyrics not available for the song")
	return "", false
}

// Fetch opens a streamed GET for an asset URL returned by the API (audio,
// cover art). The caller must close the returned body; the download timeout
// stays armed until then.
func (c *Client) Fetch(ctx context.Context, assetURL string) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)

	resp, err := c.do(ctx, assetURL)
	if err != nil {
		cancel()
		return nil, err
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

func (c *Client) getJSON(ctx context.Context, fullURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.do(ctx, fullURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream response: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("upstream %s returned invalid json", fullURL)
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, fullURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"url":      fullURL,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("Upstream request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{URL: fullURL, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	return c.base + path + "?" + query.Encode()
}

// cancelOnClose releases a request context once its body is closed
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
