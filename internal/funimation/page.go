package funimation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/buger/jsonparser"

	"funidl/internal/extractor"
	"funidl/internal/httputil"
	"funidl/internal/media"
)

var pageURLRe = regexp.MustCompile(`^https?://(?:www\.)?funimation(?:\.com|now\.uk)/(?:(?P<lang>[^/]+)/)?(?:shows|v)/(?P<show>[^/]+)/(?P<episode>[^/?#&]+)`)

// PageExtractor resolves episode pages to the player page of the
// episode's first video.
type PageExtractor struct {
	s *Session
}

func (e *PageExtractor) Key() string  { return KeyPage }
func (e *PageExtractor) Name() string { return "funimation:page" }

func (e *PageExtractor) Match(rawURL string) bool {
	return pageURLRe.MatchString(rawURL)
}

func (e *PageExtractor) Extract(ctx context.Context, rawURL string) (*media.Result, error) {
	m := pageURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("not an episode page: %s", rawURL)
	}
	locale := m[pageURLRe.SubexpIndex("lang")]
	show := m[pageURLRe.SubexpIndex("show")]
	episode := m[pageURLRe.SubexpIndex("episode")]

	if err := httputil.ValidateSlug(show); err != nil {
		return nil, fmt.Errorf("invalid show: %w", err)
	}
	if err := httputil.ValidateSlug(episode); err != nil {
		return nil, fmt.Errorf("invalid episode: %w", err)
	}
	if err := e.s.Login(ctx); err != nil {
		return nil, err
	}
	if locale == "" {
		locale = e.s.locale
	}

	body, err := httputil.Do(ctx, e.s.client, httputil.Request{
		URL: httputil.BuildURL(e.s.ep.TitleAPI, "v1", "shows", show, "episodes", episode),
		Query: url.Values{
			"deviceType": {"web"},
			"region":     {e.s.Region(ctx)},
			"locale":     {locale},
		},
	})
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			e.s.log.Debug().Str("episode", episode).Msg("title API has no such episode, using metadata endpoint")
			return extractor.URLResult(metaRef(episode), KeyMeta, "", ""), nil
		}
		return nil, fmt.Errorf("looking up %s/%s: %w", show, episode, err)
	}

	videoID := firstVideoID(body)
	if videoID == "" {
		e.s.log.Warn().Str("episode", episode).Msg("episode has no videos, using metadata endpoint")
		return extractor.URLResult(metaRef(episode), KeyMeta, "", ""), nil
	}

	return extractor.URLResult(fmt.Sprintf("%s/player/%s?%s", siteURL, videoID, episode), KeyPlayer, "", ""), nil
}

// firstVideoID returns the first non-empty videoList[].id.
func firstVideoID(body []byte) string {
	var id string
	jsonparser.ArrayEach(body, func(value []byte, _ jsonparser.ValueType, _ int, _ error) {
		if id == "" {
			id = jsText(value, "id")
		}
	}, "videoList")
	return id
}
