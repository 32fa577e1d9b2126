package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abema/go-mp4"
)

// writeTestMP4 writes a minimal audio-only MPEG-4 file (ftyp, moov/mvhd, mdat)
// whose movie header carries duration.
func writeTestMP4(t *testing.T, duration time.Duration) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "song.m4a")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create fixture: %v", err)
	}
	defer f.Close()

	w := mp4.NewWriter(f)
	ctx := mp4.Context{}

	writeBox := func(boxType mp4.BoxType, box mp4.IImmutableBox, children func()) {
		if _, err := w.StartBox(&mp4.BoxInfo{Type: boxType}); err != nil {
			t.Fatalf("failed to start %s: %v", boxType, err)
		}
		if box != nil {
			if _, err := mp4.Marshal(w, box, ctx); err != nil {
				t.Fatalf("failed to marshal %s: %v", boxType, err)
			}
		}
		if children != nil {
			children()
		}
		if _, err := w.EndBox(); err != nil {
			t.Fatalf("failed to end %s: %v", boxType, err)
		}
	}

	writeBox(mp4.BoxTypeFtyp(), &mp4.Ftyp{
		MajorBrand:   [4]byte{'M', '4', 'A', ' '},
		MinorVersion: 0,
		CompatibleBrands: []mp4.CompatibleBrandElem{
			{CompatibleBrand: [4]byte{'M', '4', 'A', ' '}},
			{CompatibleBrand: [4]byte{'m', 'p', '4', '2'}},
			{CompatibleBrand: [4]byte{'i', 's', 'o', 'm'}},
		},
	}, nil)

	writeBox(mp4.BoxTypeMoov(), nil, func() {
		writeBox(mp4.BoxTypeMvhd(), &mp4.Mvhd{
			Timescale:   1000,
			DurationV0:  uint32(duration / time.Millisecond),
			Rate:        0x00010000,
			Volume:      0x0100,
			Matrix:      [9]int32{0x00010000, 0, 0, 0, 0x00010000, 0, 0, 0, 0x40000000},
			NextTrackID: 2,
		}, nil)
	})

	writeBox(mp4.BoxTypeMdat(), &mp4.Mdat{Data: []byte("not really aac frames")}, nil)

	return path
}
