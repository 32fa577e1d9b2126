package saavn

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	client := NewClient(Options{
		BaseURL:         upstream.URL + "/",
		RequestTimeout:  2 * time.Second,
		DownloadTimeout: 2 * time.Second,
		UserAgent:       "saavnrelay-test",
	}, logger)
	return client, upstream
}

func TestSearch(t *testing.T) {
	var gotQuery, gotAgent string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.Header.Get("User-Agent")
		w.Write([]byte(`{"status":"Success","data":{"songs":{"data":[{"id":"a","name":"One"},{"id":"b","name":"Two"}]}}}`))
	}))

	results, err := client.Search(context.Background(), "arijit singh")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != "arijit singh" {
		t.Errorf("expected query to be forwarded, got %q", gotQuery)
	}
	if gotAgent != "saavnrelay-test" {
		t.Errorf("expected user agent header, got %q", gotAgent)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if string(results[0]) != `{"id":"a","name":"One"}` {
		t.Errorf("expected raw passthrough, got %s", results[0])
	}
}

func TestSearchUnexpectedEnvelope(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"albums":[]}}`))
	}))

	results, err := client.Search(context.Background(), "x")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", results)
	}
}

func TestSearchUpstreamStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))

	_, err := client.Search(context.Background(), "x")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusBadGateway {
		t.Errorf("unexpected status %d", statusErr.StatusCode)
	}
}

func TestSong(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/song" || r.URL.Query().Get("id") != "ABC123" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		w.Write([]byte(`{"data":{"songs":[{"id":"ABC123","name":"Tum Hi Ho","album":{"name":"Aashiqui 2"},"download_url":[{"quality":"12kbps","link":"u0"}]}]}}`))
	}))

	song, err := client.Song(context.Background(), "ABC123")
	if err != nil {
		t.Fatalf("Song failed: %v", err)
	}
	if song.Name != "Tum Hi Ho" || song.AlbumTitle() != "Aashiqui 2" {
		t.Errorf("unexpected song %+v", song)
	}
	if len(song.DownloadURL) != 1 || song.DownloadURL[0].Link != "u0" {
		t.Errorf("unexpected download urls %+v", song.DownloadURL)
	}
}

func TestSongOddFieldShapes(t *testing.T) {
	payloads := []string{
		`{"data":{"songs":[{"id":"x","name":123,"artist_map":[],"download_url":[{"link":"u0"}]}]}}`,
		`{"data":{"songs":[{"id":"x","name":"Tum Hi Ho","artist_map":{"artists":["Arijit Singh"]},"image":"none"}]}}`,
	}

	for _, payload := range payloads {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		}))

		song, err := client.Song(context.Background(), "x")
		if err != nil {
			t.Errorf("payload %s: expected song, got %v", payload, err)
			continue
		}
		if song.Title() == "" || song.PrimaryArtist() == "" {
			t.Errorf("payload %s: expected defaults to apply, got %+v", payload, song)
		}
	}
}

func TestSongEmptyList(t *testing.T) {
	for _, payload := range []string{`{"data":{"songs":[]}}`, `{"data":{}}`, `{}`} {
		client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(payload))
		}))

		if _, err := client.Song(context.Background(), "x"); !errors.Is(err, ErrNoSong) {
			t.Errorf("payload %s: expected ErrNoSong, got %v", payload, err)
		}
	}
}

func TestSongInvalidJSON(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	}))

	if _, err := client.Song(context.Background(), "x"); err == nil {
		t.Fatal("expected error for invalid json")
	}
}

func TestLyrics(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantLyrics string
		wantOK     bool
	}{
		{"success", http.StatusOK, `{"status":"Success","data":{"lyrics":"line one<br>line two"}}`, "line one<br>line two", true},
		{"failure status", http.StatusOK, `{"status":"Failed","data":{"lyrics":"ignored"}}`, "", false},
		{"missing field", http.StatusOK, `{"status":"Success","data":{}}`, "", false},
		{"null data", http.StatusOK, `{"status":"Success","data":null}`, "", false},
		{"not found", http.StatusNotFound, `{"status":"Failed"}`, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/get/lyrics" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			lyrics, ok := client.Lyrics(context.Background(), "ABC123")
			if ok != tt.wantOK || lyrics != tt.wantLyrics {
				t.Errorf("Lyrics() = (%q, %v), want (%q, %v)", lyrics, ok, tt.wantLyrics, tt.wantOK)
			}
		})
	}
}

func TestLyricsTransportFailure(t *testing.T) {
	client, upstream := newTestClient(t, http.NotFoundHandler())
	upstream.Close()

	if lyrics, ok := client.Lyrics(context.Background(), "x"); ok || lyrics != "" {
		t.Errorf("expected absent lyrics on transport failure, got (%q, %v)", lyrics, ok)
	}
}

func TestFetch(t *testing.T) {
	client, upstream := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("audio-bytes"))
	}))

	body, err := client.Fetch(context.Background(), upstream.URL+"/audio.mp4")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	data, err := io.ReadAll(body)
	body.Close()
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("unexpected body %q", data)
	}

	if _, err := client.Fetch(context.Background(), upstream.URL+"/missing"); err == nil {
		t.Error("expected error for 404 asset")
	}
}
