package formatter

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcunha/tunelink/internal/shared"
	"github.com/mcunha/tunelink/internal/tasks"
	th "github.com/mcunha/tunelink/internal/testing"
)

func TestReadPlaylist(t *testing.T) {
	t.Run("detects the export header pair", func(t *testing.T) {
		input := strings.Join([]string{
			"Track Name,Artist Name(s),Album",
			"Daydream,Wallace,First Light",
			"Undertow,Mirela,Tides",
		}, "\n")

		p, err := ReadPlaylist(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ReadPlaylist() error = %v", err)
		}

		if len(p.Rows) != 2 {
			t.Fatalf("got %d rows, want 2", len(p.Rows))
		}
		if len(p.Requests) != 2 {
			t.Fatalf("got %d requests, want 2", len(p.Requests))
		}
		if p.Requests[0].Track != "Daydream" || p.Requests[0].Artist != "Wallace" {
			t.Errorf("requests[0] = %+v", p.Requests[0])
		}
		if p.Requests[1].Index != 1 {
			t.Errorf("requests[1].Index = %d, want 1", p.Requests[1].Index)
		}
	})

	t.Run("detects the portuguese header pair", func(t *testing.T) {
		input := "Música,Artista\nDaydream,Wallace\n"

		p, err := ReadPlaylist(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ReadPlaylist() error = %v", err)
		}
		if len(p.Requests) != 1 || p.Requests[0].Track != "Daydream" {
			t.Errorf("requests = %+v", p.Requests)
		}
	})

	t.Run("blank rows are kept but yield no request", func(t *testing.T) {
		input := strings.Join([]string{
			"Track Name,Artist Name(s)",
			"Daydream,Wallace",
			",Mirela",
			"Glasshouse,  ",
			"Lanterns,Priya",
		}, "\n")

		p, err := ReadPlaylist(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ReadPlaylist() error = %v", err)
		}

		if len(p.Rows) != 4 {
			t.Errorf("got %d rows, want all 4 kept", len(p.Rows))
		}
		if len(p.Requests) != 2 {
			t.Fatalf("got %d requests, want 2", len(p.Requests))
		}
		if p.Requests[1].Index != 3 {
			t.Errorf("requests[1].Index = %d, want the original row index 3", p.Requests[1].Index)
		}
	})

	t.Run("missing column pair is a validation error", func(t *testing.T) {
		input := "Title,Singer\nDaydream,Wallace\n"

		_, err := ReadPlaylist(strings.NewReader(input))
		if !errors.Is(err, shared.ErrMissingColumns) {
			t.Errorf("ReadPlaylist() error = %v, want %v", err, shared.ErrMissingColumns)
		}
	})

	t.Run("empty input is a validation error", func(t *testing.T) {
		_, err := ReadPlaylist(strings.NewReader(""))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("ReadPlaylist() error = %v, want %v", err, shared.ErrInvalidInput)
		}
	})

	t.Run("short rows are tolerated", func(t *testing.T) {
		input := "Album,Track Name,Artist Name(s)\nFirst Light,Daydream\n"

		p, err := ReadPlaylist(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ReadPlaylist() error = %v", err)
		}
		if len(p.Requests) != 0 {
			t.Errorf("requests = %+v, want none for a truncated row", p.Requests)
		}
	})
}

func TestWriteResults(t *testing.T) {
	playlist := func(t *testing.T) *Playlist {
		t.Helper()
		input := strings.Join([]string{
			"Track Name,Artist Name(s)",
			"Daydream,Wallace",
			",",
			"Undertow,Mirela",
		}, "\n")
		p, err := ReadPlaylist(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ReadPlaylist() error = %v", err)
		}
		return p
	}

	t.Run("appends the result columns aligned by row", func(t *testing.T) {
		p := playlist(t)
		results := []tasks.SearchResult{
			{Index: 0, YouTubeURL: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", Status: tasks.StatusFound},
			{Index: 2, Status: tasks.StatusError},
		}

		var buf strings.Builder
		if err := WriteResults(&buf, p, results); err != nil {
			t.Fatalf("WriteResults() error = %v", err)
		}

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		if len(lines) != 4 {
			t.Fatalf("got %d lines, want header plus 3 rows", len(lines))
		}
		if lines[0] != "Track Name,Artist Name(s),Link YouTube,Link 4shared,Status" {
			t.Errorf("header = %q", lines[0])
		}
		if !strings.HasSuffix(lines[1], ",https://www.youtube.com/watch?v=dQw4w9WgXcQ,,found") {
			t.Errorf("row 1 = %q", lines[1])
		}
		if !strings.HasSuffix(lines[2], ",,,not_found") {
			t.Errorf("blank row = %q, want the not_found default", lines[2])
		}
		if !strings.HasSuffix(lines[3], ",,,error") {
			t.Errorf("row 3 = %q", lines[3])
		}
	})

	t.Run("propagates writer failures", func(t *testing.T) {
		p := playlist(t)
		if err := WriteResults(&th.FWriter{}, p, nil); err == nil {
			t.Error("WriteResults() error = nil, want a write failure")
		}
	})
}

func TestPlaylistFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "playlist.csv")
	out := filepath.Join(dir, "playlist_links.csv")

	seed := "Track Name,Artist Name(s)\nDaydream,Wallace\n"
	if err := os.WriteFile(in, []byte(seed), 0644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	p, err := ReadPlaylistFile(in)
	if err != nil {
		t.Fatalf("ReadPlaylistFile() error = %v", err)
	}

	results := []tasks.SearchResult{{Index: 0, FourSharedURL: "https://www.4shared.com/file/a/s.html", Status: tasks.StatusFound}}
	if err := WriteResultsFile(out, p, results); err != nil {
		t.Fatalf("WriteResultsFile() error = %v", err)
	}
	th.AssertFileExists(t, out)

	if _, err := ReadPlaylistFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("ReadPlaylistFile() error = nil for a missing file")
	}
}
