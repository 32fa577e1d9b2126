package server

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"

	"saavnrelay/internal/downloader"

	"github.com/sirupsen/logrus"
)

// handleHome serves the landing page from the configured static dir.
func (ms *RelayServer) handleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		ms.respondWithError(w, r, http.StatusNotFound, "Not found", nil)
		return
	}
	http.ServeFile(w, r, filepath.Join(ms.config.Server.StaticDir, "index.html"))
}

// handleSearch relays a song search and re-wraps the results.
func (ms *RelayServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := ms.relay.Search(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		ms.respondWithRelayError(w, r, err)
		return
	}

	ms.respondJSON(w, http.StatusOK, map[string]interface{}{"songs": result})
}

// handleDownload relays a song download as an enriched m4a attachment. The
// temp file is released once the body has been written, on every path.
func (ms *RelayServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	quality := downloader.ParseQuality(query.Get("quality"), query.Has("quality"))

	dl, err := ms.relay.Download(r.Context(), query.Get("id"), quality)
	if err != nil {
		ms.respondWithRelayError(w, r, err)
		return
	}
	defer dl.Release()

	file, err := os.Open(dl.File.Path)
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error opening audio file", err)
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		ms.respondWithError(w, r, http.StatusInternalServerError, "Error reading file info", err)
		return
	}

	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", contentDisposition(dl.Filename))
	if dl.Summary != nil && dl.Summary.Duration > 0 {
		w.Header().Set("X-Audio-Duration", strconv.FormatFloat(dl.Summary.Duration.Seconds(), 'f', 0, 64))
	}

	ms.logger.WithFields(logrus.Fields{
		"song_id":  dl.File.SongID,
		"filename": dl.Filename,
		"quality":  dl.Quality,
		"enriched": dl.Enriched,
		"bytes":    stat.Size(),
	}).Info("Sending download")

	http.ServeContent(w, r, dl.Filename, stat.ModTime(), file)
}

// requireGET rejects everything but GET on API routes, HEAD included
func (ms *RelayServer) requireGET(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			ms.respondWithError(w, r, http.StatusMethodNotAllowed, "Method not allowed", nil)
			return
		}
		next(w, r)
	}
}

// contentDisposition builds an attachment header. Non-ASCII names also get an
// RFC 5987 filename* parameter.
func contentDisposition(filename string) string {
	header := fmt.Sprintf(`attachment; filename="%s"`, filename)
	for _, c := range filename {
		if c > 127 {
			return header + "; filename*=UTF-8''" + url.PathEscape(filename)
		}
	}
	return header
}
