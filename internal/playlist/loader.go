package playlist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Year bounds (spec.md §3 Song invariant).
const (
	MinYear = 1900
	MaxYear = 2030
)

// Loader discovers, validates, and loads playlist JSON documents from a
// single well-known directory (spec.md §4.2).
type Loader struct {
	Dir string
}

// NewLoader returns a Loader rooted at dir.
func NewLoader(dir string) *Loader {
	return &Loader{Dir: dir}
}

// Validate checks a raw Document against spec.md §4.2's rules. It never
// treats an invalid playlist as fatal — callers surface errors in a
// listing; only valid playlists may be selected for a game.
func Validate(name string, songs []Song, songsPresent bool) (bool, []string) {
	var errs []string

	if strings.TrimSpace(name) == "" {
		errs = append(errs, "Missing or empty 'name' field")
	}

	if !songsPresent {
		errs = append(errs, "Missing or invalid 'songs' array")
		return false, errs
	}

	if len(songs) == 0 {
		errs = append(errs, "Playlist has no songs")
	}

	for i, s := range songs {
		if s.Year == 0 {
			errs = append(errs, fmt.Sprintf("Song %d: missing or invalid 'year' (must be integer)", i+1))
		} else if s.Year < MinYear || s.Year > MaxYear {
			errs = append(errs, fmt.Sprintf("Song %d: year %d out of range", i+1, s.Year))
		}
		if strings.TrimSpace(s.URI) == "" {
			errs = append(errs, fmt.Sprintf("Song %d: missing or invalid 'uri'", i+1))
		}
	}

	return len(errs) == 0, errs
}

// Discover scans Dir for *.json playlist files, validating each but
// never failing discovery on an invalid file — it appears in the
// listing with its error detail (spec.md §4.2).
func (l *Loader) Discover() ([]Playlist, error) {
	entries, err := os.ReadDir(l.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []Playlist
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(l.Dir, e.Name())
		pl := l.loadOne(path, e.Name())
		out = append(out, pl)
	}
	return out, nil
}

func (l *Loader) loadOne(path, filename string) Playlist {
	stem := strings.TrimSuffix(filename, ".json")

	raw, err := os.ReadFile(path)
	if err != nil {
		return Playlist{Path: path, Filename: filename, Name: stem, IsValid: false, Errors: []string{fmt.Sprintf("Read error: %v", err)}}
	}

	var doc struct {
		Name  string           `json:"name"`
		Songs *json.RawMessage `json:"songs"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Playlist{Path: path, Filename: filename, Name: stem, IsValid: false, Errors: []string{fmt.Sprintf("Invalid JSON: %v", err)}}
	}

	name := doc.Name
	if name == "" {
		name = stem
	}

	var songs []Song
	songsPresent := doc.Songs != nil
	if songsPresent {
		if err := json.Unmarshal(*doc.Songs, &songs); err != nil {
			return Playlist{Path: path, Filename: filename, Name: name, IsValid: false, Errors: []string{"Missing or invalid 'songs' array"}}
		}
	}

	valid, errs := Validate(doc.Name, songs, songsPresent)
	return Playlist{
		Name: name, Path: path, Filename: filename,
		Songs: songs, IsValid: valid, Errors: errs,
	}
}

// LoadAndValidate loads a single playlist file by path, returning the
// parsed document only if valid (spec.md §4.2).
func (l *Loader) LoadAndValidate(path string) (*Playlist, []string) {
	pl := l.loadOne(path, filepath.Base(path))
	if !pl.IsValid {
		return nil, pl.Errors
	}
	return &pl, nil
}

// MergePool unions the songs of the named valid playlists, de-
// duplicating by URI (spec.md §3). Unknown or invalid playlist names
// are skipped silently — selection UI is responsible for only offering
// valid playlists.
func MergePool(playlists []Playlist, selected []string) []Song {
	want := make(map[string]bool, len(selected))
	for _, s := range selected {
		want[s] = true
	}

	seen := make(map[string]bool)
	var pool []Song
	for _, pl := range playlists {
		if !pl.IsValid || !want[pl.Name] {
			continue
		}
		for _, song := range pl.Songs {
			key := song.PrimaryURI()
			if seen[key] {
				continue
			}
			seen[key] = true
			pool = append(pool, song)
		}
	}
	return pool
}
