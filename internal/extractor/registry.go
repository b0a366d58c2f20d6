package extractor

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"funidl/internal/media"
)

// maxRedirects bounds how many URL results Resolve follows.
const maxRedirects = 8

// Registry dispatches URLs to extractors in registration order.
type Registry struct {
	extractors []Extractor
	byKey      map[string]Extractor
	log        zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		byKey: make(map[string]Extractor),
		log:   log,
	}
}

// Register adds extractors. Earlier registrations win when several
// patterns match the same URL.
func (r *Registry) Register(extractors ...Extractor) {
	for _, e := range extractors {
		r.extractors = append(r.extractors, e)
		r.byKey[e.Key()] = e
	}
}

// Find returns the first extractor whose pattern matches the URL.
func (r *Registry) Find(rawURL string) (Extractor, bool) {
	for _, e := range r.extractors {
		if e.Match(rawURL) {
			return e, true
		}
	}
	return nil, false
}

// Lookup returns the extractor registered under key.
func (r *Registry) Lookup(key string) (Extractor, bool) {
	e, ok := r.byKey[key]
	return e, ok
}

// List returns the registered extractors in dispatch order.
func (r *Registry) List() []Extractor {
	return append([]Extractor(nil), r.extractors...)
}

// Resolve extracts rawURL and follows URL results until a video or a
// playlist is produced. Playlist entries are not resolved.
func (r *Registry) Resolve(ctx context.Context, rawURL string) (*media.Result, error) {
	return r.resolve(ctx, media.URLRef{URL: rawURL})
}

// ResolveRef is Resolve for a URL result, honouring its extractor key.
func (r *Registry) ResolveRef(ctx context.Context, ref media.URLRef) (*media.Result, error) {
	return r.resolve(ctx, ref)
}

func (r *Registry) resolve(ctx context.Context, ref media.URLRef) (*media.Result, error) {
	for hop := 0; hop <= maxRedirects; hop++ {
		e, err := r.pick(ref)
		if err != nil {
			return nil, err
		}

		r.log.Debug().Str("extractor", e.Name()).Str("url", ref.URL).Msg("extracting")

		res, err := e.Extract(ctx, ref.URL)
		if err != nil {
			return nil, fmt.Errorf("[%s] %w", e.Name(), err)
		}

		switch res.Type {
		case media.Video:
			if res.Info.Extractor == "" {
				res.Info.Extractor = e.Key()
			}
			if res.Info.WebpageURL == "" {
				res.Info.WebpageURL = ref.URL
			}
			return res, nil
		case media.Playlist:
			return res, nil
		case media.URL:
			r.log.Debug().Str("from", ref.URL).Str("to", res.Ref.URL).Str("extractor", res.Ref.Extractor).Msg("redirect")
			ref = *res.Ref
		default:
			return nil, fmt.Errorf("[%s] unknown result type %v", e.Name(), res.Type)
		}
	}
	return nil, fmt.Errorf("too many redirects resolving %s", ref.URL)
}

// pick selects the extractor for a URL result: the named one when the
// result carries a key, otherwise the first pattern match.
func (r *Registry) pick(ref media.URLRef) (Extractor, error) {
	if ref.Extractor != "" {
		e, ok := r.Lookup(ref.Extractor)
		if !ok {
			return nil, fmt.Errorf("unknown extractor %q for %s", ref.Extractor, ref.URL)
		}
		if !e.Match(ref.URL) {
			return nil, fmt.Errorf("extractor %q does not handle %s", ref.Extractor, ref.URL)
		}
		return e, nil
	}
	e, ok := r.Find(ref.URL)
	if !ok {
		return nil, Expectedf("", "unsupported URL: %s", ref.URL)
	}
	return e, nil
}

// URLResult builds a redirection result.
func URLResult(rawURL, key, id, title string) *media.Result {
	return &media.Result{
		Type: media.URL,
		Ref:  &media.URLRef{URL: rawURL, Extractor: key, ID: id, Title: title},
	}
}

// VideoResult wraps an info dict.
func VideoResult(info *media.Info) *media.Result {
	return &media.Result{Type: media.Video, Info: info}
}

// PlaylistResult wraps a playlist.
func PlaylistResult(id, title string, entries []media.URLRef) *media.Result {
	return &media.Result{
		Type: media.Playlist,
		List: &media.PlaylistInfo{ID: id, Title: title, Entries: entries},
	}
}
