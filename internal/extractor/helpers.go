package extractor

import (
	"cmp"
	"net/url"
	"path"
	"slices"
	"strings"
	"unicode"

	"funidl/internal/media"
)

// Qualities returns a preference function over ordered: the index of q
// in ordered, or -1 when absent. Later entries rank higher.
func Qualities(ordered []string) func(q string) int {
	return func(q string) int {
		if i := slices.Index(ordered, q); i >= 0 {
			return i
		}
		return -1
	}
}

// PreferenceOrder builds the list Qualities expects from a user
// preference list (most wanted first), falling back to defaults.
func PreferenceOrder(requested []string, defaults ...string) []string {
	src := requested
	if len(src) == 0 {
		src = defaults
	}
	out := slices.Clone(src)
	slices.Reverse(out)
	return out
}

// RemoveDuplicateFormats drops formats whose URL was already seen,
// keeping the first occurrence.
func RemoveDuplicateFormats(formats []media.Format) []media.Format {
	seen := make(map[string]bool, len(formats))
	out := formats[:0]
	for _, f := range formats {
		if seen[f.URL] {
			continue
		}
		seen[f.URL] = true
		out = append(out, f)
	}
	return out
}

// SortFormats orders formats worst to best by the named fields
// ("lang", "source"), then by height and bitrate.
func SortFormats(formats []media.Format, fields []string) {
	slices.SortStableFunc(formats, func(a, b media.Format) int {
		for _, field := range fields {
			var c int
			switch field {
			case "lang":
				c = cmp.Compare(a.LanguagePreference, b.LanguagePreference)
			case "source":
				c = cmp.Compare(a.SourcePreference, b.SourcePreference)
			}
			if c != 0 {
				return c
			}
		}
		if c := cmp.Compare(a.Height, b.Height); c != 0 {
			return c
		}
		return cmp.Compare(a.TBR, b.TBR)
	})
}

// JoinNonEmpty joins the non-empty parts with delim.
func JoinNonEmpty(delim string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, delim)
}

// ArchiveID returns the archive key for a video of the given extractor.
func ArchiveID(key, id string) string {
	return strings.ToLower(key) + " " + id
}

// AddSubtitle appends sub under lang unless an identical track is
// already present.
func AddSubtitle(subs map[string][]media.Subtitle, lang string, sub media.Subtitle) {
	if slices.Contains(subs[lang], sub) {
		return
	}
	subs[lang] = append(subs[lang], sub)
}

// OrderedRefs removes repeated URL results, keeping first occurrences.
func OrderedRefs(refs []media.URLRef) []media.URLRef {
	seen := make(map[media.URLRef]bool, len(refs))
	var out []media.URLRef
	for _, r := range refs {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// DetermineExt returns the lower-cased file extension of a URL's path,
// without the dot.
func DetermineExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(path.Ext(u.Path), "."))
}

// Capitalize upper-cases the first character and lower-cases the rest.
func Capitalize(s string) string {
	r := []rune(strings.ToLower(s))
	if len(r) == 0 {
		return s
	}
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// TitleCase upper-cases the first letter of each word and lower-cases
// the rest. Any non-letter separates words.
func TitleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
