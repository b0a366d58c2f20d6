package funimation

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"funidl/internal/extractor"
)

const masterPlaylist = `#EXTM3U
#EXT-X-STREAM-INF:BANDWIDTH=1280000,RESOLUTION=1280x720,CODECS="avc1.64001f,mp4a.40.2"
720.m3u8
#EXT-X-STREAM-INF:BANDWIDTH=4500000,RESOLUTION=1920x1080,CODECS="avc1.640028,mp4a.40.2"
1080.m3u8
`

// fakeService emulates every Funimation endpoint on one TLS server.
type fakeService struct {
	t  *testing.T
	ts *httptest.Server

	mu       sync.Mutex
	requests []*http.Request
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{t: t}
	f.ts = httptest.NewTLSServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.ts.Close)
	return f
}

// session returns a Session whose endpoints all point at the fake.
func (f *fakeService) session(opts extractor.Options, mutate ...func(*Config)) *Session {
	client := f.ts.Client()
	jar, err := cookiejar.New(nil)
	if err != nil {
		f.t.Fatal(err)
	}
	client.Jar = jar

	cfg := Config{
		Client:  client,
		Log:     zerolog.Nop(),
		Options: opts,
		Endpoints: Endpoints{
			Site:     f.ts.URL,
			Geo:      f.ts.URL,
			TitleAPI: f.ts.URL,
			Legacy:   f.ts.URL,
			Meta:     f.ts.URL,
			Playback: f.ts.URL,
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	return NewSession(cfg)
}

// requested returns the recorded requests whose path starts with prefix.
func (f *fakeService) requested(prefix string) []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*http.Request
	for _, r := range f.requests {
		if strings.HasPrefix(r.URL.Path, prefix) {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeService) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(r.Context()))
	f.mu.Unlock()

	p := r.URL.Path
	switch {
	case p == "/geo/v1/region/check":
		io.WriteString(w, `{"region":"GB"}`)

	case p == "/api/auth/login/":
		r.ParseForm()
		if r.PostForm.Get("password") != "hunter2" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"Invalid login credentials"}`)
			return
		}
		io.WriteString(w, `{"token":"tok123","user":{"id":1}}`)

	case p == "/v1/shows/attack-on-titan-junior-high/episodes/broadcast-dub-preview":
		io.WriteString(w, `{"id":"broadcast-dub-preview","videoList":[{"id":210051},{"id":210052}]}`)

	case p == "/v1/shows/hacksign/episodes/no-videos":
		io.WriteString(w, `{"videoList":[]}`)

	case strings.HasPrefix(p, "/v1/shows/"):
		http.Error(w, `{"detail":"not found"}`, http.StatusNotFound)

	case p == "/v2/shows/sk8-the-infinity":
		io.WriteString(w, `{"id":1315000,"name":"SK8 the Infinity"}`)

	case p == "/api/funimation/episodes/":
		if r.URL.Query().Get("title_id") != "1315000" {
			http.Error(w, "bad title", http.StatusBadRequest)
			return
		}
		io.WriteString(w, `{"items":[
			{"mostRecentSvod":{"item":{"episodeSlug":"ep-2","episodeId":"2","episodeName":"Second","episodeOrder":2}}},
			{"mostRecentAvod":{"item":{"episodeSlug":"ep-1","episodeId":"1","episodeName":"First","episodeOrder":1}},
			 "mostRecentSvod":{"item":{"episodeSlug":"ep-1","episodeId":"1","episodeName":"First","episodeOrder":1}}},
			{"other":{"item":{"episodeSlug":"ignored"}}},
			{"mostRecentsvod":{"item":{"episodeSlug":"ep-0","episodeId":0,"episodeName":"Zero"}}}
		]}`)

	case strings.HasPrefix(p, "/player/"):
		data, err := os.ReadFile("testdata/player.html")
		if err != nil {
			f.t.Errorf("reading fixture: %v", err)
		}
		if strings.HasPrefix(p, "/player/999") {
			data, _ = os.ReadFile("testdata/player_missing.html")
		}
		w.Write(data)

	case p == "/api/showexperience/210051/":
		if len(r.URL.Query().Get("pinst_id")) != 8 {
			f.t.Errorf("pinst_id = %q, want 8 characters", r.URL.Query().Get("pinst_id"))
		}
		io.WriteString(w, `{"items":[
			{"src":"`+f.ts.URL+`/hls/210051/master.m3u8","videoType":"m3u8"},
			{"src":"https://cdn.example.com/210051.mp4","videoType":"mp4"},
			{"src":"https://cdn.example.com/210051.mp4"}
		]}`)

	case p == "/api/showexperience/210052/":
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"errors":[{"code":403,"detail":"Not available in your region"}]}`)

	case strings.HasPrefix(p, "/hls/"):
		io.WriteString(w, masterPlaylist)

	case p == "/data/v1/episodes/role-play.json":
		io.WriteString(w, `{
			"id": 1234, "venueId": 5678, "slug": "role-play",
			"name": {"en": "Role Play"}, "synopsis": {"en": "Tsukasa wakes up."},
			"episodeNumber": "2", "duration": 1420,
			"season": {"name": {"en": "Season 1"}, "number": 1, "id": 99},
			"show": {"name": {"en": ".hack//SIGN"}},
			"images": [{"path": "https://cdn.example.com/img.jpg"}, {"path": ""}],
			"videoOptions": {"languageByVersion": {
				"uncut": {"audioLanguages": [{"languageCode": "ja", "name": {"en": "Japanese"}}]},
				"simulcast": {"audioLanguages": [{"languageCode": "en", "name": {"en": "English"}}]}
			}}
		}`)

	case p == "/v1/play/anonymous/1234", p == "/v1/play/1234":
		io.WriteString(w, `{
			"primary": {"venueVideoId": 111, "audioLanguage": "ja", "version": "UNCUT",
				"manifestPath": "`+f.ts.URL+`/hls/111/master.m3u8", "fileExt": "m3u8",
				"subtitles": [{"filePath": "https://cdn.example.com/ja-en.vtt", "languageCode": "en", "contentType": "full"}]},
			"fallback": [{"venueVideoId": 112, "audioLanguage": "en", "version": "simulcast",
				"manifestPath": "https://cdn.example.com/112.mp4", "fileExt": "mp4",
				"subtitles": [{"filePath": "https://cdn.example.com/en-cc.vtt", "contentType": "cc"}]}]
		}`)

	case p == "/data/v1/episodes/locked.json":
		io.WriteString(w, `{"id": 77, "venueId": 78, "name": {"en": "Locked"}}`)

	case p == "/v1/play/anonymous/77":
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"statusCode": 403, "statusMessage": "Subscription required"}`)

	default:
		http.NotFound(w, r)
	}
}
