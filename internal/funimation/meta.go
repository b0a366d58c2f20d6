package funimation

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/buger/jsonparser"

	"funidl/internal/extractor"
	"funidl/internal/hls"
	"funidl/internal/httputil"
	"funidl/internal/media"
)

var metaURLRe = regexp.MustCompile(`^https?://d33et77evd9bgg\.cloudfront\.net/data/v1/episodes/(?P<id>[^/?#&]+)\.json`)

// MetaExtractor extracts an episode from the static metadata endpoint
// and the playback API. It is the fallback when the title API or the
// player page cannot resolve an episode.
type MetaExtractor struct {
	s *Session
}

func (e *MetaExtractor) Key() string  { return KeyMeta }
func (e *MetaExtractor) Name() string { return "funimation:meta" }

func (e *MetaExtractor) Match(rawURL string) bool {
	return metaURLRe.MatchString(rawURL)
}

type playbackInfo struct {
	VenueVideoID  looseString `json:"venueVideoId"`
	AudioLanguage string      `json:"audioLanguage"`
	Version       string      `json:"version"`
	ManifestPath  string      `json:"manifestPath"`
	FileExt       string      `json:"fileExt"`
	Subtitles     []struct {
		FilePath     string  `json:"filePath"`
		LanguageCode *string `json:"languageCode"`
		ContentType  string  `json:"contentType"`
	} `json:"subtitles"`
}

func (p *playbackInfo) empty() bool {
	return p == nil || (p.ManifestPath == "" && p.VenueVideoID == "" && len(p.Subtitles) == 0)
}

type playbackResponse struct {
	Primary       *playbackInfo  `json:"primary"`
	Fallback      []playbackInfo `json:"fallback"`
	StatusCode    looseString    `json:"statusCode"`
	StatusMessage string         `json:"statusMessage"`
}

func (e *MetaExtractor) Extract(ctx context.Context, rawURL string) (*media.Result, error) {
	m := metaURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("not a metadata URL: %s", rawURL)
	}
	slug := m[metaURLRe.SubexpIndex("id")]
	if err := httputil.ValidateSlug(slug); err != nil {
		return nil, fmt.Errorf("invalid episode slug: %w", err)
	}

	if err := e.s.Login(ctx); err != nil {
		return nil, err
	}
	e.s.Region(ctx)

	e.s.log.Debug().Str("episode", slug).Msg("downloading episode metadata")
	meta, err := httputil.Get(ctx, e.s.client, fmt.Sprintf("%s/data/v1/episodes/%s.json", e.s.ep.Meta, slug))
	if err != nil {
		return nil, fmt.Errorf("downloading %s JSON: %w", slug, err)
	}

	episodeID := jsText(meta, "venueId")
	displayID := slug
	if displayID == "" {
		displayID = episodeID
	}

	playback, err := e.playback(ctx, jsText(meta, "id"))
	if err != nil {
		return nil, err
	}

	var infos []playbackInfo
	if playback.Primary.empty() {
		if playback.StatusMessage != "" {
			e.s.log.Warn().Msgf("%s said: Error %s - %s", e.Name(), playback.StatusCode, playback.StatusMessage)
		} else {
			e.s.log.Warn().Str("episode", slug).Msg("No sources found for format")
		}
	} else {
		infos = append(infos, *playback.Primary)
	}
	infos = append(infos, playback.Fallback...)

	info := &media.Info{
		ID:            episodeID,
		DisplayID:     displayID,
		Duration:      floatOrZero(meta, "duration"),
		Title:         jsText(meta, "name", "en"),
		Description:   jsText(meta, "synopsis", "en"),
		Episode:       jsText(meta, "name", "en"),
		EpisodeNumber: intOrNil(jsText(meta, "episodeNumber")),
		EpisodeID:     episodeID,
		Season:        jsText(meta, "season", "name", "en"),
		SeasonNumber:  intOrNil(jsText(meta, "season", "number")),
		SeasonID:      jsText(meta, "season", "id"),
		Series:        jsText(meta, "show", "name", "en"),
		Subtitles:     make(map[string][]media.Subtitle),
		SortFields:    []string{"lang", "source"},
	}

	for _, pi := range infos {
		info.Formats = append(info.Formats, e.formats(ctx, displayID, &pi)...)
		metaSubtitles(info.Subtitles, &pi)
	}

	info.Formats = e.localize(meta, info.Formats)

	jsonparser.ArrayEach(meta, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		if p := jsText(value, "path"); p != "" {
			info.Thumbnails = append(info.Thumbnails, media.Thumbnail{URL: p})
		}
	}, "images")

	if len(info.Formats) == 0 && (len(e.s.languages()) > 0 || len(e.s.versions()) > 0) {
		return nil, extractor.Expectedf(displayID, "There are no video formats matching the requested languages/versions")
	}
	info.Formats = extractor.RemoveDuplicateFormats(info.Formats)
	extractor.SortFormats(info.Formats, info.SortFields)

	return extractor.VideoResult(info), nil
}

// playback fetches playback manifests, authenticated when a token is
// available from login or the src_token cookie.
func (e *MetaExtractor) playback(ctx context.Context, id string) (*playbackResponse, error) {
	token := e.s.Token()
	if token == "" {
		token = httputil.Cookie(e.s.client, siteURL, "src_token")
	}

	target := httputil.BuildURL(e.s.ep.Playback, "v1", "play", "anonymous", id)
	if token != "" {
		target = httputil.BuildURL(e.s.ep.Playback, "v1", "play", id)
	}

	body, err := httputil.Do(ctx, e.s.client, httputil.Request{
		URL:    target + "?deviceType=web",
		Header: authHeader(token),
		Accept: []int{403},
	})
	if err != nil {
		return nil, fmt.Errorf("downloading playback info: %w", err)
	}

	var resp playbackResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing playback info: %w", err)
	}
	return &resp, nil
}

// formats converts one playback info into formats.
func (e *MetaExtractor) formats(ctx context.Context, displayID string, pi *playbackInfo) []media.Format {
	if pi.ManifestPath == "" {
		return nil
	}

	expID := pi.VenueVideoID.String()
	lang := pi.AudioLanguage
	version := extractor.Capitalize(pi.Version)
	formatName := fmt.Sprintf("%s %s (%s)", version, lang, expID)
	langPref, sourcePref := e.s.preferences()

	var current []media.Format
	if pi.FileExt == "m3u8" {
		e.s.log.Debug().Str("format", formatName).Msg("downloading m3u8 information")
		fs, err := hls.Formats(ctx, e.s.client, pi.ManifestPath, expID+"-hls")
		if err != nil {
			e.s.log.Warn().Err(err).Str("episode", displayID).Str("format", formatName).Msg("failed to download m3u8 information")
			return nil
		}
		current = fs
	} else {
		current = []media.Format{{
			FormatID: expID + "-" + pi.FileExt,
			URL:      pi.ManifestPath,
			Ext:      pi.FileExt,
		}}
	}

	for i := range current {
		current[i].Language = lang
		current[i].FormatNote = version
		current[i].SourcePreference = sourcePref(strings.ToLower(version))
		current[i].LanguagePreference = langPref(strings.ToLower(lang))
	}
	return current
}

// localize replaces audio language codes with their display names and
// applies the language/version arguments. Requested languages match
// either the code or the name.
func (e *MetaExtractor) localize(meta []byte, formats []media.Format) []media.Format {
	languages, versions := e.s.languages(), e.s.versions()
	langPref, _ := e.s.preferences()

	out := formats[:0]
	for _, f := range formats {
		code := strings.ToLower(f.Language)
		if name := languageName(meta, f.FormatNote, f.Language); name != "" {
			f.Language = name
		}
		name := strings.ToLower(f.Language)

		if len(versions) > 0 && !slices.Contains(versions, strings.ToLower(f.FormatNote)) {
			continue
		}
		if len(languages) > 0 {
			if !slices.Contains(languages, code) && !slices.Contains(languages, name) {
				continue
			}
			f.LanguagePreference = max(langPref(code), langPref(name))
		}
		out = append(out, f)
	}
	return out
}

// languageName looks up the English display name of an audio language
// code under videoOptions.languageByVersion.<version>.audioLanguages.
func languageName(meta []byte, version, code string) string {
	var name string
	jsonparser.ArrayEach(meta, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		if name == "" && jsText(value, "languageCode") == code {
			name = jsText(value, "name", "en")
		}
	}, "videoOptions", "languageByVersion", strings.ToLower(version), "audioLanguages")
	return name
}

// metaSubtitles collects a playback info's subtitle files.
func metaSubtitles(subs map[string][]media.Subtitle, pi *playbackInfo) {
	keyVersion := pi.Version
	if strings.EqualFold(keyVersion, "simulcast") {
		keyVersion = ""
	}
	for _, track := range pi.Subtitles {
		if track.FilePath == "" {
			continue
		}
		lang := "und"
		code := ""
		if track.LanguageCode != nil {
			lang, code = *track.LanguageCode, *track.LanguageCode
		}
		extractor.AddSubtitle(subs,
			extractor.JoinNonEmpty("_", lang, keyVersion, track.ContentType),
			media.Subtitle{
				URL:  track.FilePath,
				Name: extractor.JoinNonEmpty("-", pi.Version, code, track.ContentType),
			})
	}
}

func floatOrZero(data []byte, keys ...string) float64 {
	f, err := jsonparser.GetFloat(data, keys...)
	if err != nil {
		return 0
	}
	return f
}
