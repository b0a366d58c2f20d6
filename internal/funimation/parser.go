package funimation

import (
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"funidl/internal/extractor"
)

// showObjectRe finds the show data assignment in player page scripts.
var showObjectRe = regexp.MustCompile(`show\s*=\s*(\{.+?\})\s*;`)

// showData is the show object embedded in player pages.
type showData struct {
	ShowTitle looseString  `json:"showTitle"`
	Seasons   []seasonData `json:"seasons"`
}

type seasonData struct {
	SeasonTitle looseString   `json:"seasonTitle"`
	SeasonID    looseString   `json:"seasonId"`
	SeasonPk    looseString   `json:"seasonPk"`
	Episodes    []episodeData `json:"episodes"`
}

type episodeData struct {
	EpisodePk      looseString `json:"episodePk"`
	EpisodeTitle   looseString `json:"episodeTitle"`
	EpisodeSummary looseString `json:"episodeSummary"`
	EpisodeID      looseString `json:"episodeId"`
	Slug           string      `json:"slug"`

	// language -> alpha/format grouping -> version -> experience
	Languages map[string]map[string]map[string]experienceData `json:"languages"`
}

type experienceData struct {
	ExperienceID looseString `json:"experienceId"`
	Poster       string      `json:"poster"`
	Duration     looseFloat  `json:"duration"`
	Sources      []struct {
		TextTracks []textTrack `json:"textTracks"`
	} `json:"sources"`
}

type textTrack struct {
	Src      string  `json:"src"`
	Type     string  `json:"type"`
	Label    string  `json:"label"`
	Language *string `json:"language"`
}

// experience is one (language, version) rendition of an episode.
type experience struct {
	Lang    string
	Version string // title-cased, e.g. "Uncut"
	Data    experienceData
}

// experiences flattens the episode's language tree in key order.
func (ep *episodeData) experiences() []experience {
	var out []experience
	for _, lang := range slices.Sorted(maps.Keys(ep.Languages)) {
		groups := ep.Languages[lang]
		for _, group := range slices.Sorted(maps.Keys(groups)) {
			versions := groups[group]
			for _, version := range slices.Sorted(maps.Keys(versions)) {
				out = append(out, experience{
					Lang:    lang,
					Version: extractor.TitleCase(version),
					Data:    versions[version],
				})
			}
		}
	}
	return out
}

// parseShow extracts the show object from a player page.
func parseShow(html string) (*showData, error) {
	literal := findShowLiteral(html)
	if literal == "" {
		return nil, fmt.Errorf("show data not found in player page")
	}

	raw, err := jsToJSON(literal)
	if err != nil {
		return nil, err
	}

	var show showData
	if err := json.Unmarshal(raw, &show); err != nil {
		return nil, fmt.Errorf("decoding show data: %w", err)
	}
	return &show, nil
}

// findShowLiteral returns the show assignment from the page's inline
// scripts. Markup outside <script> is never searched.
func findShowLiteral(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var literal string
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if m := showObjectRe.FindStringSubmatch(s.Text()); m != nil {
			literal = m[1]
			return false
		}
		return true
	})
	return literal
}

// findByExperience returns the episode owning experienceID.
func (sh *showData) findByExperience(experienceID string) (*episodeData, *seasonData, bool) {
	for i := range sh.Seasons {
		season := &sh.Seasons[i]
		for j := range season.Episodes {
			ep := &season.Episodes[j]
			for _, exp := range ep.experiences() {
				if exp.Data.ExperienceID.String() == experienceID {
					return ep, season, true
				}
			}
		}
	}
	return nil, nil, false
}

// findByEpisodeID returns the episode whose primary key is episodeID.
func (sh *showData) findByEpisodeID(episodeID string) (*episodeData, *seasonData, bool) {
	for i := range sh.Seasons {
		season := &sh.Seasons[i]
		for j := range season.Episodes {
			if season.Episodes[j].EpisodePk.String() == episodeID {
				return &season.Episodes[j], season, true
			}
		}
	}
	return nil, nil, false
}
