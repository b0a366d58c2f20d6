// Package extractor defines the contract site extractors implement and
// the registry that dispatches URLs to them and follows redirections.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"funidl/internal/media"
)

// Extractor resolves a URL into a media result.
type Extractor interface {
	// Key identifies the extractor in URL results and archive ids.
	Key() string

	// Name is the human-readable name, e.g. "funimation:page".
	Name() string

	// Match reports whether this extractor handles the URL.
	Match(rawURL string) bool

	// Extract resolves the URL. It returns a video, a playlist, or a
	// URL result pointing at another extractor.
	Extract(ctx context.Context, rawURL string) (*media.Result, error)
}

// Error is an extraction failure. Expected errors describe conditions
// the user can act on (bad credentials, filters matching nothing) and
// are reported without the causal chain.
type Error struct {
	Msg      string
	VideoID  string
	Expected bool
	Cause    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.VideoID != "" {
		msg = e.VideoID + ": " + msg
	}
	if e.Cause != nil && !e.Expected {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// Expectedf returns an expected Error.
func Expectedf(videoID, format string, args ...any) error {
	return &Error{Msg: fmt.Sprintf(format, args...), VideoID: videoID, Expected: true}
}

// IsExpected reports whether err is, or wraps, an expected Error.
func IsExpected(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Expected
}

// Args holds per-extractor configuration arguments, keyed by extractor
// key and argument name. Values are lower-cased on insertion.
type Args map[string]map[string][]string

// Set stores the values of one argument.
func (a Args) Set(key, name string, values ...string) {
	if a[key] == nil {
		a[key] = make(map[string][]string)
	}
	var vs []string
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			vs = append(vs, v)
		}
	}
	a[key][name] = vs
}

// Get returns the values of an argument, or nil when unset.
func (a Args) Get(key, name string) []string {
	if a == nil {
		return nil
	}
	return a[key][name]
}

// Compat option names.
const (
	// CompatSeparateVersions restricts a player page to the experience
	// it was opened with instead of merging every language/version.
	CompatSeparateVersions = "separate-video-versions"
)

// Options are the user-facing knobs shared by all extractors.
type Options struct {
	Args   Args
	Compat []string
}

// HasCompat reports whether the named compat option is enabled.
func (o Options) HasCompat(name string) bool {
	return slices.Contains(o.Compat, name)
}
