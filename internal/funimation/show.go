package funimation

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"

	"github.com/buger/jsonparser"

	"funidl/internal/extractor"
	"funidl/internal/httputil"
	"funidl/internal/media"
)

var (
	showURLRe = regexp.MustCompile(`^(?P<url>https?://(?:www\.)?funimation(?:\.com|now\.uk)/(?P<locale>[^/]+)?/?shows/(?P<id>[^/?#&]+))/?(?:[?#]|$)`)

	// vodKeyRe selects the latest AVOD/SVOD item of an episode listing entry.
	vodKeyRe = regexp.MustCompile(`(?i)^mostRecent[AS]vod`)
)

// ShowExtractor lists a show's episodes as episode-page URL results.
type ShowExtractor struct {
	s *Session
}

func (e *ShowExtractor) Key() string  { return KeyShow }
func (e *ShowExtractor) Name() string { return "funimation:show" }

func (e *ShowExtractor) Match(rawURL string) bool {
	return showURLRe.MatchString(rawURL)
}

// vodItem is one episode of the listing.
type vodItem struct {
	slug  string
	id    string
	name  string
	order float64
}

func (e *ShowExtractor) Extract(ctx context.Context, rawURL string) (*media.Result, error) {
	m := showURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("not a show URL: %s", rawURL)
	}
	baseURL := m[showURLRe.SubexpIndex("url")]
	locale := m[showURLRe.SubexpIndex("locale")]
	displayID := m[showURLRe.SubexpIndex("id")]

	if err := httputil.ValidateSlug(displayID); err != nil {
		return nil, fmt.Errorf("invalid show: %w", err)
	}
	if err := e.s.Login(ctx); err != nil {
		return nil, err
	}
	if locale == "" {
		locale = e.s.locale
	}

	showInfo, err := httputil.Do(ctx, e.s.client, httputil.Request{
		URL: httputil.BuildURL(e.s.ep.TitleAPI, "v2", "shows", displayID),
		Query: url.Values{
			"region":     {e.s.Region(ctx)},
			"deviceType": {"web"},
			"locale":     {locale},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("downloading show %s: %w", displayID, err)
	}

	showID := jsText(showInfo, "id")
	if showID == "" {
		return nil, &extractor.Error{Msg: "show response has no id", VideoID: displayID}
	}
	title := jsText(showInfo, "name")

	items, err := httputil.Do(ctx, e.s.client, httputil.Request{
		URL: e.s.ep.Legacy + "/api/funimation/episodes/",
		Query: url.Values{
			"limit":    {"99999"},
			"title_id": {showID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("downloading episode list for %s: %w", displayID, err)
	}

	vods := parseVodItems(items)
	slices.SortStableFunc(vods, func(a, b vodItem) int {
		switch {
		case a.order < b.order:
			return -1
		case a.order > b.order:
			return 1
		}
		return 0
	})

	var entries []media.URLRef
	for _, v := range vods {
		if v.slug == "" {
			continue
		}
		entries = append(entries, media.URLRef{
			URL:       baseURL + "/" + v.slug,
			Extractor: KeyPage,
			ID:        v.id,
			Title:     v.name,
		})
	}

	e.s.log.Debug().Str("show", displayID).Int("episodes", len(entries)).Msg("listed show")
	return extractor.PlaylistResult(showID, title, extractor.OrderedRefs(entries)), nil
}

// parseVodItems collects items[].mostRecent{A,S}vod.item objects.
func parseVodItems(body []byte) []vodItem {
	var vods []vodItem
	jsonparser.ArrayEach(body, func(entry []byte, typ jsonparser.ValueType, _ int, _ error) {
		if typ != jsonparser.Object {
			return
		}
		jsonparser.ObjectEach(entry, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
			if vt != jsonparser.Object || !vodKeyRe.Match(key) {
				return nil
			}
			item, typ, _, err := jsonparser.Get(value, "item")
			if err != nil || typ != jsonparser.Object {
				return nil
			}
			v := vodItem{
				slug:  jsText(item, "episodeSlug"),
				id:    jsText(item, "episodeId"),
				name:  jsText(item, "episodeName"),
				order: -1,
			}
			if o, err := strconv.ParseFloat(jsText(item, "episodeOrder"), 64); err == nil {
				v.order = o
			}
			vods = append(vods, v)
			return nil
		})
	}, "items")
	return vods
}
