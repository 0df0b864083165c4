// package formatter reads playlist tables from CSV and writes resolution
// results back out next to the original columns.
package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mcunha/tunelink/internal/shared"
	"github.com/mcunha/tunelink/internal/tasks"
)

// columnPairs are the accepted (track, artist) header pairs, tried in order.
var columnPairs = [][2]string{
	{"Track Name", "Artist Name(s)"},
	{"Música", "Artista"},
}

// resultColumns are appended to the input header on write.
var resultColumns = []string{"Link YouTube", "Link 4shared", "Status"}

// Playlist is one parsed input table. Rows holds every data row exactly as
// read; Requests holds only the searchable ones, each carrying the index of
// the row it came from.
type Playlist struct {
	Header   []string
	Rows     [][]string
	Requests []tasks.TrackRequest

	trackCol  int
	artistCol int
}

// ReadPlaylist parses a CSV table into a Playlist.
//
// The header must carry one of the accepted column pairs. Rows with a blank
// track or artist are kept in Rows but yield no request, so output rows stay
// aligned with the input.
func ReadPlaylist(r io.Reader) (*Playlist, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: input has no header row", shared.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	trackCol, artistCol, err := detectColumns(header)
	if err != nil {
		return nil, err
	}

	p := &Playlist{Header: header, trackCol: trackCol, artistCol: artistCol}
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV row: %w", err)
		}

		index := len(p.Rows)
		p.Rows = append(p.Rows, row)

		track := strings.TrimSpace(field(row, trackCol))
		artist := strings.TrimSpace(field(row, artistCol))
		if track == "" || artist == "" {
			continue
		}
		p.Requests = append(p.Requests, tasks.TrackRequest{
			Index:  index,
			Track:  track,
			Artist: artist,
		})
	}

	return p, nil
}

// ReadPlaylistFile parses the CSV file at path.
func ReadPlaylistFile(path string) (*Playlist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open playlist file: %w", err)
	}
	defer f.Close()

	return ReadPlaylist(f)
}

// detectColumns finds the first accepted header pair, matching trimmed
// header cells exactly.
func detectColumns(header []string) (trackCol, artistCol int, err error) {
	position := make(map[string]int, len(header))
	for i, cell := range header {
		position[strings.TrimSpace(cell)] = i
	}

	for _, pair := range columnPairs {
		t, okT := position[pair[0]]
		a, okA := position[pair[1]]
		if okT && okA {
			return t, a, nil
		}
	}

	return 0, 0, fmt.Errorf("%w: expected %q/%q or %q/%q",
		shared.ErrMissingColumns,
		columnPairs[0][0], columnPairs[0][1],
		columnPairs[1][0], columnPairs[1][1])
}

func field(row []string, col int) string {
	if col >= len(row) {
		return ""
	}
	return row[col]
}

// WriteResults writes the playlist back out with the Link YouTube,
// Link 4shared and Status columns appended. Rows that produced no result,
// blank rows included, default to not_found with empty links.
func WriteResults(w io.Writer, p *Playlist, results []tasks.SearchResult) error {
	byIndex := make(map[int]tasks.SearchResult, len(results))
	for _, res := range results {
		// an aborted run hands over zero-valued slots for tracks it never
		// reached; those rows fall back to the not_found default.
		if res.Status == "" {
			continue
		}
		byIndex[res.Index] = res
	}

	writer := csv.NewWriter(w)

	header := append(append([]string{}, p.Header...), resultColumns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for i, row := range p.Rows {
		youtube, fourshared := "", ""
		status := string(tasks.StatusNotFound)
		if res, ok := byIndex[i]; ok {
			youtube = res.YouTubeURL
			fourshared = res.FourSharedURL
			status = string(res.Status)
		}

		record := append(append([]string{}, row...), youtube, fourshared, status)
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}

	return nil
}

// WriteResultsFile writes the result table to the file at path.
func WriteResultsFile(path string, p *Playlist, results []tasks.SearchResult) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := WriteResults(f, p, results); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
