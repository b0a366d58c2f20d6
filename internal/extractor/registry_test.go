package extractor

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"funidl/internal/media"
)

// stubExtractor matches URLs by prefix and returns a canned result.
type stubExtractor struct {
	key    string
	prefix string
	result func(rawURL string) (*media.Result, error)
}

func (s *stubExtractor) Key() string              { return s.key }
func (s *stubExtractor) Name() string             { return "stub:" + s.key }
func (s *stubExtractor) Match(rawURL string) bool { return strings.HasPrefix(rawURL, s.prefix) }
func (s *stubExtractor) Extract(_ context.Context, rawURL string) (*media.Result, error) {
	return s.result(rawURL)
}

func newTestRegistry() *Registry {
	r := NewRegistry(zerolog.Nop())
	r.Register(
		&stubExtractor{key: "Page", prefix: "https://site/page/", result: func(u string) (*media.Result, error) {
			return URLResult("https://site/player/1", "Player", "", ""), nil
		}},
		&stubExtractor{key: "Player", prefix: "https://site/player/", result: func(u string) (*media.Result, error) {
			return VideoResult(&media.Info{ID: "1", Title: "Episode"}), nil
		}},
		&stubExtractor{key: "Loop", prefix: "https://site/loop", result: func(u string) (*media.Result, error) {
			return URLResult("https://site/loop", "Loop", "", ""), nil
		}},
		&stubExtractor{key: "Broken", prefix: "https://site/broken", result: func(u string) (*media.Result, error) {
			return nil, Expectedf("x", "gone")
		}},
	)
	return r
}

func TestResolveFollowsRedirects(t *testing.T) {
	r := newTestRegistry()

	res, err := r.Resolve(context.Background(), "https://site/page/ep")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if res.Type != media.Video {
		t.Fatalf("type = %v, want video", res.Type)
	}
	if res.Info.Extractor != "Player" {
		t.Errorf("extractor = %q, want Player", res.Info.Extractor)
	}
	if res.Info.WebpageURL != "https://site/player/1" {
		t.Errorf("webpage url = %q", res.Info.WebpageURL)
	}
}

func TestResolveErrors(t *testing.T) {
	r := newTestRegistry()

	tests := []struct {
		name     string
		ref      media.URLRef
		expected bool
	}{
		{"unsupported", media.URLRef{URL: "https://other/x"}, true},
		{"unknown key", media.URLRef{URL: "https://site/player/1", Extractor: "Nope"}, false},
		{"key does not match", media.URLRef{URL: "https://site/page/x", Extractor: "Player"}, false},
		{"redirect loop", media.URLRef{URL: "https://site/loop"}, false},
		{"extractor error", media.URLRef{URL: "https://site/broken"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.ResolveRef(context.Background(), tt.ref)
			if err == nil {
				t.Fatal("expected error")
			}
			if IsExpected(err) != tt.expected {
				t.Errorf("IsExpected(%v) = %v, want %v", err, IsExpected(err), tt.expected)
			}
		})
	}
}

func TestFindOrder(t *testing.T) {
	r := NewRegistry(zerolog.Nop())
	first := &stubExtractor{key: "A", prefix: "https://site/"}
	second := &stubExtractor{key: "B", prefix: "https://site/x"}
	r.Register(first, second)

	e, ok := r.Find("https://site/x/1")
	if !ok || e.Key() != "A" {
		t.Errorf("Find() = %v, want first registered extractor", e)
	}
	if _, ok := r.Lookup("B"); !ok {
		t.Error("Lookup(B) failed")
	}
	if len(r.List()) != 2 {
		t.Errorf("List() len = %d, want 2", len(r.List()))
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	err := &Error{Msg: "failed", VideoID: "42", Cause: cause}
	if err.Error() != "42: failed: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should see the cause")
	}

	exp := &Error{Msg: "login failed", Expected: true, Cause: cause}
	if exp.Error() != "login failed" {
		t.Errorf("expected error should hide cause, got %q", exp.Error())
	}
}
