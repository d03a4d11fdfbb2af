// Package playlist discovers, validates, and merges playlist JSON
// documents into the song pool a game draws from, grounded on
// original_source/custom_components/beatify/game/playlist.py.
package playlist

import "golang.org/x/text/language"

// Song is one track, matching the field set of spec.md §3's Song model
// and the JSON layout of spec.md §6.4.
type Song struct {
	Year            int               `json:"year"`
	URI             string            `json:"uri"`
	URIAppleMusic   string            `json:"uri_apple_music,omitempty"`
	URIYouTubeMusic string            `json:"uri_youtube_music,omitempty"`
	Title           string            `json:"title"`
	Artist          string            `json:"artist"`
	AlbumArt        string            `json:"album_art,omitempty"`
	FunFact         string            `json:"fun_fact,omitempty"`
	FunFactDE       string            `json:"fun_fact_de,omitempty"`
	FunFactES       string            `json:"fun_fact_es,omitempty"`
	AltArtists      []string          `json:"alt_artists,omitempty"`
	Movie           string            `json:"movie,omitempty"`
	MovieChoices    []string          `json:"movie_choices,omitempty"`
	ChartInfo       map[string]any    `json:"chart_info,omitempty"`
	Certifications  []string          `json:"certifications,omitempty"`
	Awards          []string          `json:"awards,omitempty"`
}

// supportedFunFactTags are the locales with a dedicated fun-fact
// translation; funFactMatcher resolves whatever BCP 47 tag a client
// sends (e.g. "de-DE", "es-MX") down to one of these before the
// fallback chain below runs, so near-miss locale strings still hit a
// translation instead of silently falling through to English.
var supportedFunFactTags = []language.Tag{language.English, language.German, language.Spanish}
var funFactMatcher = language.NewMatcher(supportedFunFactTags)

// FunFactFor resolves the localized fun fact with fallback chain
// `fun_fact_<lang>` -> `fun_fact` -> "" (spec.md §4.2).
func (s Song) FunFactFor(lang string) string {
	tag, _ := language.MatchStrings(funFactMatcher, lang)
	base, _ := tag.Base()

	switch base.String() {
	case "de":
		if s.FunFactDE != "" {
			return s.FunFactDE
		}
	case "es":
		if s.FunFactES != "" {
			return s.FunFactES
		}
	}
	return s.FunFact
}

// PrimaryURI is the URI used to de-duplicate songs across playlists and
// to mark a song played (spec.md §3 "duplicates (by URI) are de-
// duplicated").
func (s Song) PrimaryURI() string { return s.URI }

// Document is the raw shape of a playlist JSON file (spec.md §6.4).
type Document struct {
	Name  string `json:"name"`
	Songs []Song `json:"songs"`
}

// Playlist is a named, ordered, validated playlist (spec.md §3).
type Playlist struct {
	Name     string
	Path     string
	Filename string
	Songs    []Song
	IsValid  bool
	Errors   []string
}
