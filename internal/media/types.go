// Package media defines shared types for the funidl application.
package media

// ResultType identifies which variant of Result an extractor produced.
type ResultType int

const (
	Video ResultType = iota
	URL
	Playlist
)

func (r ResultType) String() string {
	switch r {
	case Video:
		return "video"
	case URL:
		return "url"
	case Playlist:
		return "playlist"
	default:
		return "unknown"
	}
}

// Result is what an extractor returns for a URL. Exactly one of
// Info, Ref or List is set, matching Type.
type Result struct {
	Type ResultType
	Info *Info
	Ref  *URLRef
	List *PlaylistInfo
}

// URLRef redirects extraction to another URL, optionally naming the
// extractor that must handle it.
type URLRef struct {
	URL       string `json:"url"`
	Extractor string `json:"ie_key,omitempty"`
	ID        string `json:"id,omitempty"`
	Title     string `json:"title,omitempty"`
}

// PlaylistInfo is an ordered collection of entries to extract.
type PlaylistInfo struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Entries []URLRef `json:"entries"`
}

// Info holds resolved metadata and playable formats for one video.
type Info struct {
	ID            string                `json:"id"`
	DisplayID     string                `json:"display_id,omitempty"`
	OldArchiveIDs []string              `json:"_old_archive_ids,omitempty"`
	Title         string                `json:"title"`
	Description   string                `json:"description,omitempty"`
	Duration      float64               `json:"duration,omitempty"`
	Episode       string                `json:"episode,omitempty"`
	EpisodeNumber *int                  `json:"episode_number,omitempty"`
	EpisodeID     string                `json:"episode_id,omitempty"`
	Season        string                `json:"season,omitempty"`
	SeasonNumber  *int                  `json:"season_number,omitempty"`
	SeasonID      string                `json:"season_id,omitempty"`
	Series        string                `json:"series,omitempty"`
	Formats       []Format              `json:"formats"`
	Thumbnails    []Thumbnail           `json:"thumbnails,omitempty"`
	Subtitles     map[string][]Subtitle `json:"subtitles,omitempty"`
	SortFields    []string              `json:"_format_sort_fields,omitempty"`
	Extractor     string                `json:"extractor_key,omitempty"`
	WebpageURL    string                `json:"webpage_url,omitempty"`
}

// Format is a single playable rendition.
type Format struct {
	FormatID           string  `json:"format_id"`
	URL                string  `json:"url"`
	Ext                string  `json:"ext,omitempty"`
	Protocol           string  `json:"protocol,omitempty"`
	Language           string  `json:"language,omitempty"`
	FormatNote         string  `json:"format_note,omitempty"`
	SourcePreference   int     `json:"source_preference"`
	LanguagePreference int     `json:"language_preference"`
	Width              int     `json:"width,omitempty"`
	Height             int     `json:"height,omitempty"`
	TBR                float64 `json:"tbr,omitempty"` // total bitrate, kbit/s
	VCodec             string  `json:"vcodec,omitempty"`
	ACodec             string  `json:"acodec,omitempty"`
}

// Subtitle is one subtitle track. Tracks are grouped by language key
// in Info.Subtitles.
type Subtitle struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// Thumbnail is a poster or still image.
type Thumbnail struct {
	URL string `json:"url"`
}

// ArchiveEntry represents a single record in the extraction archive.
type ArchiveEntry struct {
	ID          string // archive id, e.g. "funimation 210050"
	Title       string
	Series      string
	Season      string
	Episode     int
	ExtractedAt int64 // unix seconds
}
