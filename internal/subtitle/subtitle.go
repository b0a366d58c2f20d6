// Package subtitle selects subtitle tracks from an info's subtitles map
// and saves them next to the info JSON.
package subtitle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"slices"
	"strings"

	"funidl/internal/httputil"
	"funidl/internal/media"
)

// Track is one subtitle together with the key it is filed under.
type Track struct {
	Key string
	media.Subtitle
}

// Language returns the language part of the key ("en" for "en_Uncut_CC").
func (t Track) Language() string {
	lang, _, _ := strings.Cut(t.Key, "_")
	return lang
}

// CC reports whether the track is a closed-caption track.
func (t Track) CC() bool {
	for _, part := range strings.Split(t.Key, "_")[1:] {
		if strings.EqualFold(part, "cc") {
			return true
		}
	}
	return false
}

// Flatten lists every track in key order.
func Flatten(subs map[string][]media.Subtitle) []Track {
	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var tracks []Track
	for _, k := range keys {
		for _, s := range subs[k] {
			tracks = append(tracks, Track{Key: k, Subtitle: s})
		}
	}
	return tracks
}

// Filter returns tracks matching the preferred language (case-insensitive).
// The language matches the key's language code exactly or appears in the
// track name.
func Filter(subs map[string][]media.Subtitle, language string) []Track {
	tracks := Flatten(subs)
	if language == "" {
		return tracks
	}

	lang := strings.ToLower(language)
	var matched []Track
	for _, t := range tracks {
		if strings.ToLower(t.Language()) == lang ||
			strings.Contains(strings.ToLower(t.Name), lang) {
			matched = append(matched, t)
		}
	}
	return matched
}

// BestMatch returns the best track for the language, preferring
// exact language-code matches over name matches and full subtitles
// over closed captions.
func BestMatch(subs map[string][]media.Subtitle, language string) *Track {
	filtered := Filter(subs, language)
	if len(filtered) == 0 {
		return nil
	}

	lang := strings.ToLower(language)
	rank := func(t Track) int {
		r := 0
		if strings.ToLower(t.Language()) == lang {
			r += 2
		}
		if !t.CC() {
			r++
		}
		return r
	}

	best := filtered[0]
	for _, t := range filtered[1:] {
		if rank(t) > rank(best) {
			best = t
		}
	}
	return &best
}

// Save downloads the track into dir as "<base>.<key>.<ext>" and returns
// the written path.
func Save(ctx context.Context, client *http.Client, t Track, dir, base string) (string, error) {
	ext := "vtt"
	if u, err := url.Parse(t.URL); err == nil {
		if e := strings.TrimPrefix(path.Ext(u.Path), "."); e != "" {
			ext = strings.ToLower(e)
		}
	}

	target, err := httputil.SafeDownloadPath(dir, fmt.Sprintf("%s.%s.%s", base, t.Key, ext))
	if err != nil {
		return "", err
	}

	data, err := httputil.Get(ctx, client, t.URL)
	if err != nil {
		return "", fmt.Errorf("downloading subtitle %s: %w", t.Key, err)
	}

	if err := os.WriteFile(target, data, 0644); err != nil {
		return "", fmt.Errorf("writing subtitle file: %w", err)
	}
	return target, nil
}
