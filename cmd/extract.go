package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"funidl/internal/archive"
	"funidl/internal/extractor"
	"funidl/internal/httputil"
	"funidl/internal/media"
	"funidl/internal/subtitle"
)

var (
	flagFlat      bool
	flagWriteInfo string
	flagWriteSubs bool
)

func init() {
	rootCmd.Flags().BoolVar(&flagFlat, "flat", false, "List playlist entries without extracting them")
	rootCmd.Flags().StringVar(&flagWriteInfo, "write-info", "", "Write each episode's info JSON into this directory")
	rootCmd.Flags().BoolVar(&flagWriteSubs, "write-subs", false, "With --write-info, also save the preferred subtitle track")
}

// extractRun is the default command: funidl <url>...
func extractRun(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	reg, client, err := newRegistry()
	if err != nil {
		return err
	}

	var store *archive.Store
	if cfg.Archive {
		if store, err = openArchive(); err != nil {
			return err
		}
		defer store.Close()
	}

	r := &runner{reg: reg, client: client, store: store, out: cmd.OutOrStdout()}

	failed := 0
	for _, u := range args {
		if err := r.run(cmd.Context(), u); err != nil {
			failed++
			reportError(u, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d URLs failed", failed, len(args))
	}
	return nil
}

func openArchive() (*archive.Store, error) {
	path, err := cfg.ResolveArchivePath()
	if err != nil {
		return nil, err
	}
	store, err := archive.Open(path)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", path).Msg("opened archive")
	return store, nil
}

// reportError logs expected errors as plain messages and unexpected ones
// with their cause chain.
func reportError(u string, err error) {
	if extractor.IsExpected(err) {
		log.Error().Str("url", u).Msg(err.Error())
		return
	}
	log.Error().Err(err).Str("url", u).Msg("extraction failed")
}

// runner resolves URLs and writes their results.
type runner struct {
	reg    *extractor.Registry
	client *http.Client
	store  *archive.Store
	out    io.Writer
}

func (r *runner) run(ctx context.Context, rawURL string) error {
	res, err := r.reg.Resolve(ctx, rawURL)
	if err != nil {
		return err
	}
	return r.handle(ctx, res)
}

func (r *runner) handle(ctx context.Context, res *media.Result) error {
	switch res.Type {
	case media.Video:
		return r.video(ctx, res.Info)
	case media.Playlist:
		return r.playlist(ctx, res.List)
	default:
		return fmt.Errorf("unexpected %s result", res.Type)
	}
}

func (r *runner) playlist(ctx context.Context, pl *media.PlaylistInfo) error {
	log.Info().Str("playlist", pl.Title).Int("entries", len(pl.Entries)).Msg("resolving playlist")

	if flagFlat {
		if flagJSON {
			return writeJSON(r.out, pl)
		}
		fmt.Fprintf(r.out, "%s (%s)\n", pl.Title, pl.ID)
		for _, e := range pl.Entries {
			fmt.Fprintf(r.out, "  %s\t%s\n", e.URL, e.Title)
		}
		return nil
	}

	failed := 0
	for i, entry := range pl.Entries {
		log.Info().Msgf("Downloading item %d of %d", i+1, len(pl.Entries))
		res, err := r.reg.ResolveRef(ctx, entry)
		if err == nil {
			err = r.handle(ctx, res)
		}
		if err != nil {
			failed++
			reportError(entry.URL, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d playlist entries failed", failed, len(pl.Entries))
	}
	return nil
}

func (r *runner) video(ctx context.Context, info *media.Info) error {
	entry := archive.EntryFor(info)
	if r.store != nil {
		done, err := r.store.Has(ctx, append([]string{entry.ID}, info.OldArchiveIDs...)...)
		if err != nil {
			return err
		}
		if done {
			log.Info().Str("id", entry.ID).Msg("already recorded in the archive")
			return nil
		}
	}

	if flagJSON {
		if err := writeJSON(r.out, info); err != nil {
			return err
		}
	} else {
		printSummary(r.out, info, cfg.SubsLanguage)
	}

	if flagWriteInfo != "" {
		if err := writeInfo(ctx, r.client, info, flagWriteInfo); err != nil {
			return err
		}
	}

	if r.store != nil {
		if err := r.store.Record(ctx, entry, info.OldArchiveIDs...); err != nil {
			return err
		}
	}
	return nil
}

// printSummary writes a short human-readable description of info.
func printSummary(w io.Writer, info *media.Info, subLang string) {
	title := info.Title
	if info.Series != "" {
		title = info.Series + " - " + title
	}
	fmt.Fprintf(w, "%s [%s]\n", title, info.ID)
	if info.Season != "" {
		fmt.Fprintf(w, "  season:    %s\n", info.Season)
	}
	if info.EpisodeNumber != nil {
		fmt.Fprintf(w, "  episode:   %d\n", *info.EpisodeNumber)
	}
	if info.Duration > 0 {
		fmt.Fprintf(w, "  duration:  %.0fs\n", info.Duration)
	}
	fmt.Fprintf(w, "  formats:   %d\n", len(info.Formats))
	if n := len(info.Formats); n > 0 {
		best := info.Formats[n-1]
		fmt.Fprintf(w, "  best:      %s %s (%s)\n", best.FormatID, best.FormatNote, best.Language)
	}
	if best := subtitle.BestMatch(info.Subtitles, subLang); best != nil {
		fmt.Fprintf(w, "  subtitles: %s (%s)\n", best.Key, best.Name)
	}
}

// writeInfo saves info as "<title>.info.json" and, when requested, its
// preferred subtitle track downloaded through client.
func writeInfo(ctx context.Context, client *http.Client, info *media.Info, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	base := info.Title
	if info.Series != "" {
		base = info.Series + " - " + base
	}
	base = strings.TrimSpace(base)
	if base == "" {
		base = info.ID
	}
	// titles such as ".hack//SIGN" must not become directories
	base = httputil.SanitizeFilename(strings.ReplaceAll(base, "/", "_"))

	path, err := httputil.SafeDownloadPath(dir, base+".info.json")
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding info: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing info: %w", err)
	}
	log.Info().Str("file", path).Msg("wrote info JSON")

	if !flagWriteSubs {
		return nil
	}
	best := subtitle.BestMatch(info.Subtitles, cfg.SubsLanguage)
	if best == nil {
		log.Warn().Str("language", cfg.SubsLanguage).Msg("no subtitles match the preferred language")
		return nil
	}
	subPath, err := subtitle.Save(ctx, client, *best, dir, base)
	if err != nil {
		return err
	}
	log.Info().Str("file", subPath).Msg("wrote subtitles")
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
