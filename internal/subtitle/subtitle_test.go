package subtitle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"funidl/internal/media"
)

var subs = map[string][]media.Subtitle{
	"en_Uncut":    {{URL: "https://example.com/en.vtt", Name: "Uncut English"}},
	"en_Uncut_CC": {{URL: "https://example.com/en-cc.vtt", Name: "Uncut English CC"}},
	"es":          {{URL: "https://example.com/es.srt", Name: "Simulcast Spanish"}},
	"und":         {{URL: "https://example.com/ja-en.vtt", Name: "Simulcast English"}},
}

func TestFilter(t *testing.T) {
	tests := []struct {
		lang     string
		expected int
	}{
		{"en", 3},
		{"english", 3},
		{"es", 1},
		{"spanish", 1},
		{"german", 0},
		{"", 4},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			got := Filter(subs, tt.lang)
			if len(got) != tt.expected {
				t.Errorf("Filter(%q) returned %d subs, want %d", tt.lang, len(got), tt.expected)
			}
		})
	}
}

func TestBestMatch(t *testing.T) {
	// Should prefer the full track over closed captions
	best := BestMatch(subs, "en")
	if best == nil {
		t.Fatal("BestMatch returned nil for en")
	}
	if best.Key != "en_Uncut" {
		t.Errorf("BestMatch preferred %q, want en_Uncut", best.Key)
	}

	// Name-only matches rank below language codes
	best = BestMatch(subs, "english")
	if best == nil {
		t.Fatal("BestMatch returned nil for english")
	}
	if best.Key != "en_Uncut" {
		t.Errorf("BestMatch preferred %q, want en_Uncut", best.Key)
	}

	best = BestMatch(subs, "spanish")
	if best == nil || best.URL != "https://example.com/es.srt" {
		t.Errorf("BestMatch(spanish) = %+v", best)
	}

	if best := BestMatch(subs, "japanese"); best != nil {
		t.Error("BestMatch should return nil for unmatched language")
	}
}

func TestTrack(t *testing.T) {
	tests := []struct {
		key  string
		lang string
		cc   bool
	}{
		{"en_Uncut_CC", "en", true},
		{"und_cc", "und", true},
		{"en_UNCUT_full", "en", false},
		{"cc", "cc", false},
	}
	for _, tt := range tests {
		tr := Track{Key: tt.key}
		if got := tr.Language(); got != tt.lang {
			t.Errorf("Track(%q).Language() = %q, want %q", tt.key, got, tt.lang)
		}
		if got := tr.CC(); got != tt.cc {
			t.Errorf("Track(%q).CC() = %v, want %v", tt.key, got, tt.cc)
		}
	}
}

func TestSave(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("WEBVTT\n"))
	}))
	defer ts.Close()

	dir := t.TempDir()
	tr := Track{Key: "en_Uncut", Subtitle: media.Subtitle{URL: ts.URL + "/subs/en.vtt?sig=1"}}

	path, err := Save(context.Background(), ts.Client(), tr, dir, "Role Play")
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if want := filepath.Join(dir, "Role Play.en_Uncut.vtt"); path != want {
		t.Errorf("Save() path = %q, want %q", path, want)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "WEBVTT\n" {
		t.Errorf("saved content = %q", data)
	}
}
