// Package hls turns HLS master playlists into media formats.
package hls

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"

	"funidl/internal/httputil"
	"funidl/internal/media"
)

// Formats downloads the playlist at manifestURL and returns one format
// per variant stream. A media playlist yields a single format. Format
// ids are "<idPrefix>-<kbps>".
func Formats(ctx context.Context, client *http.Client, manifestURL, idPrefix string) ([]media.Format, error) {
	body, err := httputil.Get(ctx, client, manifestURL)
	if err != nil {
		return nil, fmt.Errorf("fetching playlist: %w", err)
	}
	return Parse(body, manifestURL, idPrefix)
}

// Parse converts playlist content fetched from manifestURL into formats.
func Parse(body []byte, manifestURL, idPrefix string) ([]media.Format, error) {
	base, err := url.Parse(manifestURL)
	if err != nil {
		return nil, fmt.Errorf("parsing playlist URL: %w", err)
	}

	playlist, listType, err := m3u8.DecodeFrom(bytes.NewReader(body), false)
	if err != nil {
		return nil, fmt.Errorf("decoding playlist: %w", err)
	}

	if listType == m3u8.MEDIA {
		return []media.Format{{
			FormatID: idPrefix,
			URL:      manifestURL,
			Ext:      "mp4",
			Protocol: "m3u8_native",
		}}, nil
	}

	master, ok := playlist.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, fmt.Errorf("unexpected playlist type %T", playlist)
	}

	var formats []media.Format
	for _, v := range master.Variants {
		if v == nil || v.URI == "" || v.Iframe {
			continue
		}
		ref, err := url.Parse(v.URI)
		if err != nil {
			continue
		}

		tbr := float64(v.Bandwidth) / 1000

		f := media.Format{
			FormatID: idPrefix,
			URL:      base.ResolveReference(ref).String(),
			Ext:      "mp4",
			Protocol: "m3u8_native",
			TBR:      tbr,
		}
		if tbr > 0 {
			f.FormatID = fmt.Sprintf("%s-%d", idPrefix, int(math.Round(tbr)))
		}
		f.Width, f.Height = parseResolution(v.Resolution)
		f.VCodec, f.ACodec = splitCodecs(v.Codecs)

		formats = append(formats, f)
	}

	return formats, nil
}

// parseResolution parses "1920x1080".
func parseResolution(s string) (int, int) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return width, height
}

// splitCodecs separates a CODECS attribute into video and audio codecs.
func splitCodecs(codecs string) (vcodec, acodec string) {
	for _, c := range strings.Split(codecs, ",") {
		c = strings.TrimSpace(c)
		switch {
		case c == "":
		case strings.HasPrefix(c, "avc"), strings.HasPrefix(c, "hvc"), strings.HasPrefix(c, "hev"),
			strings.HasPrefix(c, "vp"), strings.HasPrefix(c, "av01"):
			if vcodec == "" {
				vcodec = c
			}
		case strings.HasPrefix(c, "mp4a"), strings.HasPrefix(c, "ac-3"), strings.HasPrefix(c, "ec-3"),
			strings.HasPrefix(c, "opus"):
			if acodec == "" {
				acodec = c
			}
		}
	}
	return vcodec, acodec
}
