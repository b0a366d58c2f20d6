package funimation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"funidl/internal/extractor"
	"funidl/internal/hls"
	"funidl/internal/httputil"
	"funidl/internal/media"
)

var playerURLRe = regexp.MustCompile(`^https?://(?:www\.)?funimation\.com/player/(?P<id>\d+)\??(?P<episode_slug>[^/?#&]+)?`)

// PlayerExtractor extracts every language/version of an episode from
// its player page.
type PlayerExtractor struct {
	s *Session
}

func (e *PlayerExtractor) Key() string  { return KeyPlayer }
func (e *PlayerExtractor) Name() string { return "funimation" }

func (e *PlayerExtractor) Match(rawURL string) bool {
	return playerURLRe.MatchString(rawURL)
}

// showExperience is the showexperience API response.
type showExperience struct {
	Items []struct {
		Src       string `json:"src"`
		VideoType string `json:"videoType"`
	} `json:"items"`
	Errors []struct {
		Code   looseString `json:"code"`
		Detail string      `json:"detail"`
		Title  string      `json:"title"`
	} `json:"errors"`
}

// experienceResult is what one experience contributes to the info.
type experienceResult struct {
	thumbnail string
	duration  float64
	subtitles map[string][]media.Subtitle
	formats   []media.Format
}

func (e *PlayerExtractor) Extract(ctx context.Context, rawURL string) (*media.Result, error) {
	m := playerURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return nil, fmt.Errorf("not a player URL: %s", rawURL)
	}
	initialID := m[playerURLRe.SubexpIndex("id")]
	slug := m[playerURLRe.SubexpIndex("episode_slug")]
	if err := httputil.ValidateNumericID(initialID); err != nil {
		return nil, fmt.Errorf("invalid experience id: %w", err)
	}

	if err := e.s.Login(ctx); err != nil {
		return nil, err
	}

	e.s.log.Debug().Str("experience", initialID).Msg("downloading player webpage")
	page, err := e.playerPage(ctx, initialID, slug)
	if err != nil {
		return nil, fmt.Errorf("downloading player webpage for %s: %w", initialID, err)
	}

	episode, season, show, err := e.findEpisode(page, initialID)
	if err != nil {
		if slug == "" {
			return nil, &extractor.Error{Msg: "Unable to find episode information", VideoID: initialID, Cause: err}
		}
		e.s.log.Warn().Err(err).Str("experience", initialID).Msg("unable to find episode information, using metadata endpoint")
		if verr := httputil.ValidateSlug(slug); verr != nil {
			return nil, fmt.Errorf("invalid episode slug: %w", verr)
		}
		return extractor.URLResult(metaRef(slug), KeyMeta, "", ""), nil
	}

	episodeID := episode.EpisodePk.String()
	displayID := episode.Slug
	if displayID == "" {
		displayID = episodeID
	}

	languages, versions := e.s.languages(), e.s.versions()
	onlyInitial := e.s.opts.HasCompat(extractor.CompatSeparateVersions)

	var selected []experience
	for _, exp := range episode.experiences() {
		expID := exp.Data.ExperienceID.String()
		if onlyInitial && expID != initialID {
			continue
		}
		if len(languages) > 0 && !slices.Contains(languages, strings.ToLower(exp.Lang)) {
			continue
		}
		if len(versions) > 0 && !slices.Contains(versions, strings.ToLower(exp.Version)) {
			continue
		}
		selected = append(selected, exp)
	}

	results := make([]experienceResult, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.s.concurrency)
	for i, exp := range selected {
		g.Go(func() error {
			res, err := e.extractExperience(gctx, exp, episode, initialID, episodeID, displayID)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	info := &media.Info{
		ID:            episodeID,
		DisplayID:     displayID,
		OldArchiveIDs: []string{extractor.ArchiveID(KeyPlayer, initialID)},
		Title:         episode.EpisodeTitle.String(),
		Description:   episode.EpisodeSummary.String(),
		Episode:       episode.EpisodeTitle.String(),
		EpisodeNumber: episode.EpisodeID.Int(),
		EpisodeID:     episodeID,
		Season:        season.SeasonTitle.String(),
		SeasonNumber:  season.SeasonID.Int(),
		SeasonID:      season.SeasonPk.String(),
		Series:        show.ShowTitle.String(),
		Subtitles:     make(map[string][]media.Subtitle),
		SortFields:    []string{"lang", "source"},
	}

	for _, res := range results {
		if res.thumbnail != "" {
			info.Thumbnails = append(info.Thumbnails, media.Thumbnail{URL: res.thumbnail})
		}
		info.Duration = max(info.Duration, res.duration)
		for _, lang := range sortedKeys(res.subtitles) {
			for _, sub := range res.subtitles[lang] {
				extractor.AddSubtitle(info.Subtitles, lang, sub)
			}
		}
		info.Formats = append(info.Formats, res.formats...)
	}

	if len(info.Formats) == 0 && (len(languages) > 0 || len(versions) > 0) {
		return nil, extractor.Expectedf(displayID, "There are no video formats matching the requested languages/versions")
	}
	info.Formats = extractor.RemoveDuplicateFormats(info.Formats)
	extractor.SortFormats(info.Formats, info.SortFields)

	return extractor.VideoResult(info), nil
}

// extractExperience gathers thumbnail, subtitles and formats for one
// experience of the episode.
func (e *PlayerExtractor) extractExperience(ctx context.Context, exp experience, episode *episodeData, initialID, episodeID, displayID string) (experienceResult, error) {
	expID := exp.Data.ExperienceID.String()
	formatName := fmt.Sprintf("%s %s (%s)", exp.Version, exp.Lang, expID)
	log := e.s.log.With().Str("format", formatName).Logger()

	res := experienceResult{
		thumbnail: exp.Data.Poster,
		duration:  float64(exp.Data.Duration),
		subtitles: make(map[string][]media.Subtitle),
	}

	// The initial page already describes this episode; other
	// experiences may be served from a different page.
	subEpisode := episode
	if expID != initialID {
		subEpisode = e.episodeFromPlayer(ctx, expID, episodeID)
	}
	if subEpisode != nil {
		playerSubtitles(res.subtitles, subEpisode)
	}

	log.Debug().Msg("downloading showexperience JSON")
	body, err := httputil.Do(ctx, e.s.client, httputil.Request{
		URL:    httputil.BuildURL(e.s.ep.Site, "api", "showexperience", expID) + "/",
		Query:  url.Values{"pinst_id": {pinstID()}},
		Header: authHeader(e.s.Token()),
		Accept: []int{403},
	})
	if err != nil {
		return res, fmt.Errorf("downloading %s JSON: %w", formatName, err)
	}

	var page showExperience
	if err := json.Unmarshal(body, &page); err != nil {
		return res, fmt.Errorf("parsing %s JSON: %w", formatName, err)
	}

	if len(page.Items) == 0 {
		if len(page.Errors) > 0 {
			perr := page.Errors[0]
			detail := perr.Detail
			if detail == "" {
				detail = perr.Title
			}
			log.Warn().Msgf("%s said: Error %s - %s", e.Name(), perr.Code, detail)
		} else {
			log.Warn().Msg("No sources found for format")
		}
	}

	langPref, sourcePref := e.s.preferences()
	for _, src := range page.Items {
		if src.Src == "" {
			continue
		}
		srcType := src.VideoType
		if srcType == "" {
			srcType = extractor.DetermineExt(src.Src)
		}

		var current []media.Format
		if srcType == "m3u8" {
			current, err = hls.Formats(ctx, e.s.client, src.Src, expID+"-hls")
			if err != nil {
				log.Warn().Err(err).Msg("failed to download m3u8 information")
				continue
			}
		} else {
			current = []media.Format{{
				FormatID: expID + "-" + srcType,
				URL:      src.Src,
				Ext:      srcType,
			}}
		}

		for i := range current {
			current[i].Language = exp.Lang
			current[i].FormatNote = exp.Version
			current[i].SourcePreference = sourcePref(strings.ToLower(exp.Version))
			current[i].LanguagePreference = langPref(strings.ToLower(exp.Lang))
		}
		res.formats = append(res.formats, current...)
	}

	return res, nil
}

// playerPage downloads the player page for an experience.
func (e *PlayerExtractor) playerPage(ctx context.Context, experienceID, slug string) (string, error) {
	target := httputil.BuildURL(e.s.ep.Site, "player", experienceID)
	if slug != "" {
		target += "?" + url.PathEscape(slug)
	}
	return httputil.GetPage(ctx, e.s.client, target)
}

// findEpisode parses the player page and locates the episode owning
// experienceID.
func (e *PlayerExtractor) findEpisode(page, experienceID string) (*episodeData, *seasonData, *showData, error) {
	show, err := parseShow(page)
	if err != nil {
		return nil, nil, nil, err
	}
	episode, season, ok := show.findByExperience(experienceID)
	if !ok {
		return nil, nil, nil, fmt.Errorf("experience %s not listed in show data", experienceID)
	}
	return episode, season, show, nil
}

// episodeFromPlayer loads the player page of another experience and
// returns the episode with the given id. Failures are logged and yield nil.
func (e *PlayerExtractor) episodeFromPlayer(ctx context.Context, experienceID, episodeID string) *episodeData {
	if err := httputil.ValidateNumericID(experienceID); err != nil {
		e.s.log.Warn().Err(err).Msg("skipping player webpage")
		return nil
	}
	page, err := httputil.GetPage(ctx, e.s.client, httputil.BuildURL(e.s.ep.Site, "player", experienceID)+"/")
	if err != nil {
		e.s.log.Warn().Err(err).Str("experience", experienceID).Msg("unable to download player webpage")
		return nil
	}
	show, err := parseShow(page)
	if err != nil {
		e.s.log.Warn().Err(err).Str("experience", experienceID).Msg("unable to find episode information")
		return nil
	}
	episode, _, ok := show.findByEpisodeID(episodeID)
	if !ok {
		e.s.log.Warn().Str("experience", experienceID).Msg("unable to find episode information")
		return nil
	}
	return episode
}

// playerSubtitles collects the text tracks of every experience of the
// episode. Tracks are keyed by language, version (unless Simulcast)
// and type; "FULL" tracks carry no type.
func playerSubtitles(subs map[string][]media.Subtitle, episode *episodeData) {
	for _, exp := range episode.experiences() {
		for _, src := range exp.Data.Sources {
			for _, track := range src.TextTracks {
				if track.Src == "" {
					continue
				}
				subType := strings.ToUpper(track.Type)
				if subType == "FULL" {
					subType = ""
				}
				lang := "und"
				if track.Language != nil {
					lang = *track.Language
				}
				keyVersion := exp.Version
				if keyVersion == "Simulcast" {
					keyVersion = ""
				}
				extractor.AddSubtitle(subs,
					extractor.JoinNonEmpty("_", lang, keyVersion, subType),
					media.Subtitle{
						URL:  track.Src,
						Name: extractor.JoinNonEmpty(" ", exp.Version, track.Label, subType),
					})
			}
		}
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
