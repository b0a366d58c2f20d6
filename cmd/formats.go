package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"funidl/internal/media"
	"funidl/internal/subtitle"
	"funidl/internal/ui"
)

var formatsCmd = &cobra.Command{
	Use:   "formats <url>",
	Short: "List the formats and subtitles of an episode",
	Args:  cobra.ExactArgs(1),
	RunE:  formatsRun,
}

func formatsRun(cmd *cobra.Command, args []string) error {
	reg, _, err := newRegistry()
	if err != nil {
		return err
	}

	res, err := reg.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if res.Type != media.Video {
		return fmt.Errorf("%s is a playlist; use the show command to pick an episode", args[0])
	}
	info := res.Info
	out := cmd.OutOrStdout()

	if flagJSON {
		return writeJSON(out, info.Formats)
	}

	fmt.Fprintf(out, "%s [%s]\n", info.Title, info.ID)
	if len(info.Formats) == 0 {
		fmt.Fprintln(out, "No formats found.")
	} else {
		fmt.Fprintln(out, ui.FormatsTable(info.Formats))
	}

	tracks := subtitle.Flatten(info.Subtitles)
	if len(tracks) == 0 {
		return nil
	}
	best := -1
	if b := subtitle.BestMatch(info.Subtitles, cfg.SubsLanguage); b != nil {
		for i, t := range tracks {
			if t.Key == b.Key && t.URL == b.URL {
				best = i
				break
			}
		}
	}
	fmt.Fprintln(out, ui.SubtitlesTable(tracks, best))
	return nil
}
