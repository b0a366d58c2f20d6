// Package funimation implements extractors for Funimation show, episode,
// player and episode-metadata URLs.
//
// URLs flow show page -> episode page -> player page, with the episode
// metadata endpoint as a fallback whenever the title API or the player
// page cannot identify the episode.
package funimation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/url"
	"sync"

	"github.com/buger/jsonparser"
	"github.com/rs/zerolog"

	"funidl/internal/extractor"
	"funidl/internal/httputil"
)

// Extractor keys, used in URL results and archive ids.
const (
	KeyPlayer = "Funimation"
	KeyPage   = "FunimationPage"
	KeyShow   = "FunimationShow"
	KeyMeta   = "FunimationMeta"
)

// argsKey is the configuration-argument namespace shared by all
// Funimation extractors.
const argsKey = "funimation"

// Canonical hosts. URL results always point here so they match the
// extractor patterns; Endpoints decides where requests actually go.
const (
	siteURL = "https://www.funimation.com"
	metaURL = "https://d33et77evd9bgg.cloudfront.net"
)

// defaultRegion is used when neither cookies, configuration nor the geo
// service provide one.
const defaultRegion = "US"

// Endpoints are the service base URLs requests are sent to.
type Endpoints struct {
	Site     string // player pages and showexperience API
	Geo      string // geo-location check
	TitleAPI string // show and episode lookup
	Legacy   string // login and episode listings
	Meta     string // static episode metadata
	Playback string // playback manifests
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Site:     siteURL,
		Geo:      "https://geo-service.prd.funimationsvc.com",
		TitleAPI: "https://title-api.prd.funimationsvc.com",
		Legacy:   "https://prod-api-funimationnow.dadcdigital.com",
		Meta:     metaURL,
		Playback: "https://playback.prd.funimationsvc.com",
	}
}

// Config configures a Session.
type Config struct {
	Client    *http.Client
	Log       zerolog.Logger
	Options   extractor.Options
	Endpoints Endpoints

	// Region overrides geo-location when no region cookie is present.
	Region string
	// Locale is used when the URL carries none; "" means "en".
	Locale   string
	Username string
	Password string

	// Concurrency bounds parallel per-experience requests; <= 0 means 4.
	Concurrency int
}

// Session holds state shared by the Funimation extractors: the HTTP
// client with its cookie jar, the resolved region and the login token.
type Session struct {
	client      *http.Client
	log         zerolog.Logger
	opts        extractor.Options
	ep          Endpoints
	username    string
	password    string
	regionHint  string
	locale      string
	concurrency int

	mu     sync.Mutex
	region string
	token  string
}

// NewSession creates a Session.
func NewSession(cfg Config) *Session {
	if cfg.Client == nil {
		cfg.Client = httputil.NewClient(0)
	}
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Locale == "" {
		cfg.Locale = "en"
	}
	return &Session{
		client:      cfg.Client,
		log:         cfg.Log,
		opts:        cfg.Options,
		ep:          cfg.Endpoints,
		username:    cfg.Username,
		password:    cfg.Password,
		regionHint:  cfg.Region,
		locale:      cfg.Locale,
		concurrency: cfg.Concurrency,
	}
}

// Extractors returns every Funimation extractor bound to s, in dispatch order.
func (s *Session) Extractors() []extractor.Extractor {
	return []extractor.Extractor{
		&ShowExtractor{s: s},
		&PageExtractor{s: s},
		&PlayerExtractor{s: s},
		&MetaExtractor{s: s},
	}
}

// Region returns the catalogue region, resolving it on first use.
func (s *Session) Region(ctx context.Context) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.region != "" {
		return s.region
	}

	region := httputil.Cookie(s.client, siteURL, "region")
	if region == "" {
		region = httputil.Cookie(s.client, s.ep.Site, "region")
	}
	if region == "" {
		region = s.regionHint
	}
	if region == "" {
		s.log.Debug().Msg("checking geo-location")
		body, err := httputil.Get(ctx, s.client, s.ep.Geo+"/geo/v1/region/check")
		if err != nil {
			s.log.Warn().Err(err).Msg("unable to fetch geo-location information")
		} else {
			region = jsText(body, "region")
		}
	}
	if region == "" {
		region = defaultRegion
	}

	s.region = region
	return region
}

// Token returns the login token, or "" when not logged in.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Login obtains a token with the configured credentials. It is a no-op
// without credentials or when a token is already held.
func (s *Session) Login(ctx context.Context) error {
	if s.username == "" || s.password == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return nil
	}

	s.log.Info().Str("username", s.username).Msg("logging in")
	body, err := httputil.Do(ctx, s.client, httputil.Request{
		URL: s.ep.Legacy + "/api/auth/login/",
		Form: url.Values{
			"username": {s.username},
			"password": {s.password},
		},
	})
	if err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) && se.Code == http.StatusUnauthorized {
			msg := jsText(se.Body, "error")
			if msg == "" {
				msg = "invalid username or password"
			}
			return &extractor.Error{Msg: msg, Expected: true, Cause: err}
		}
		return fmt.Errorf("logging in: %w", err)
	}

	token, err := jsonparser.GetString(body, "token")
	if err != nil || token == "" {
		return fmt.Errorf("login response has no token")
	}
	s.token = token
	return nil
}

// authHeader returns the Authorization header for token, or nil.
func authHeader(token string) http.Header {
	if token == "" {
		return nil
	}
	return http.Header{"Authorization": {"Token " + token}}
}

func (s *Session) languages() []string {
	return s.opts.Args.Get(argsKey, "language")
}

func (s *Session) versions() []string {
	return s.opts.Args.Get(argsKey, "version")
}

// preferences returns the language and source preference functions.
func (s *Session) preferences() (lang, source func(string) int) {
	lang = extractor.Qualities(extractor.PreferenceOrder(s.languages(), ""))
	source = extractor.Qualities(extractor.PreferenceOrder(s.versions(), "uncut", "simulcast"))
	return lang, source
}

// metaRef redirects to the static metadata endpoint for an episode slug.
func metaRef(slug string) string {
	return fmt.Sprintf("%s/data/v1/episodes/%s.json", metaURL, slug)
}

const pinstAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// pinstID returns the random 8-character player instance id the
// showexperience API expects.
func pinstID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = pinstAlphabet[rand.IntN(len(pinstAlphabet))]
	}
	return string(b)
}
