package models

import (
	"bytes"
	"encoding/json"
)

// Song is a song record as returned by the upstream song detail endpoint.
// Every field decodes leniently: a value of the wrong shape reads as empty so
// the record still drives a download with default tags.
type Song struct {
	ID          Text      `json:"id"`
	Name        Text      `json:"name"`
	ArtistMap   ArtistMap `json:"artist_map"`
	Album       AlbumName `json:"album"`
	Image       LinkList  `json:"image"`        // ascending resolution
	DownloadURL LinkList  `json:"download_url"` // ascending bitrate
}

// Text is a JSON string field. Any other JSON value decodes to "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	*t = ""
	var s string
	if json.Unmarshal(data, &s) == nil {
		*t = Text(s)
	}
	return nil
}

// ArtistMap groups the artists credited on a song. Artists may be listed as
// objects with a name or as bare strings; anything else is dropped.
type ArtistMap struct {
	Artists []Artist `json:"artists"`
}

func (m *ArtistMap) UnmarshalJSON(data []byte) error {
	m.Artists = nil

	var obj struct {
		Artists []json.RawMessage `json:"artists"`
	}
	if json.Unmarshal(data, &obj) != nil {
		return nil
	}

	for _, raw := range obj.Artists {
		var name string
		if json.Unmarshal(raw, &name) == nil {
			if name != "" {
				m.Artists = append(m.Artists, Artist{Name: Text(name)})
			}
			continue
		}
		var artist Artist
		if isObject(raw) && json.Unmarshal(raw, &artist) == nil {
			m.Artists = append(m.Artists, artist)
		}
	}
	return nil
}

// Artist is a single credited artist
type Artist struct {
	ID   Text `json:"id"`
	Name Text `json:"name"`
}

// Link is a quality-labelled asset URL
type Link struct {
	Quality Text `json:"quality"`
	Link    Text `json:"link"`
}

// LinkList decodes a JSON array of links. Any other JSON value decodes to an
// empty list so a malformed upstream field reads as "no links"; an element
// that is not an object keeps its position as an empty link.
type LinkList []Link

func (l *LinkList) UnmarshalJSON(data []byte) error {
	*l = nil

	var raws []json.RawMessage
	if json.Unmarshal(data, &raws) != nil {
		return nil
	}

	links := make(LinkList, len(raws))
	for i, raw := range raws {
		if isObject(raw) {
			json.Unmarshal(raw, &links[i])
		}
	}
	*l = links
	return nil
}

func isObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// AlbumName accepts either a plain album string or an object with a name field
type AlbumName string

func (a *AlbumName) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = AlbumName(s)
	case '{':
		var obj struct {
			Name Text `json:"name"`
		}
		if json.Unmarshal(trimmed, &obj) == nil {
			*a = AlbumName(obj.Name)
		}
	default:
		*a = ""
	}
	return nil
}

// Title returns the song name, or "Unknown" when the upstream left it empty
func (s *Song) Title() string {
	if s.Name == "" {
		return "Unknown"
	}
	return string(s.Name)
}

// PrimaryArtist returns the first credited artist name, or "Unknown"
func (s *Song) PrimaryArtist() string {
	if len(s.ArtistMap.Artists) == 0 || s.ArtistMap.Artists[0].Name == "" {
		return "Unknown"
	}
	return string(s.ArtistMap.Artists[0].Name)
}

// AlbumTitle returns the normalised album name, or "Unknown"
func (s *Song) AlbumTitle() string {
	if s.Album == "" {
		return "Unknown"
	}
	return string(s.Album)
}

// CoverURL returns the highest resolution image link, if any
func (s *Song) CoverURL() (string, bool) {
	if len(s.Image) == 0 {
		return "", false
	}
	link := string(s.Image[len(s.Image)-1].Link)
	return link, link != ""
}
