package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"funidl/internal/media"
	"funidl/internal/ui"
)

var showCmd = &cobra.Command{
	Use:   "show <url>",
	Short: "List a show's episodes and pick one to extract",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

func showRun(cmd *cobra.Command, args []string) error {
	reg, client, err := newRegistry()
	if err != nil {
		return err
	}

	res, err := reg.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if res.Type != media.Playlist {
		return fmt.Errorf("%s is not a show URL", args[0])
	}
	pl := res.List
	out := cmd.OutOrStdout()

	if len(pl.Entries) == 0 {
		fmt.Fprintln(out, "No episodes found.")
		return nil
	}

	// Without a terminal there is nobody to ask
	if flagJSON || !ui.Interactive() {
		if flagJSON {
			return writeJSON(out, pl)
		}
		for _, e := range pl.Entries {
			fmt.Fprintf(out, "%s\t%s\n", e.URL, e.Title)
		}
		return nil
	}

	items := make([]ui.Item, len(pl.Entries))
	for i, e := range pl.Entries {
		items[i] = ui.Item{Label: e.Title, Detail: e.URL}
		if e.Title == "" {
			items[i].Label = e.URL
		}
	}

	idx, err := ui.Select(pl.Title, items)
	if err != nil {
		return err
	}
	selected := pl.Entries[idx]
	log.Debug().Str("url", selected.URL).Msg("selected episode")

	r := &runner{reg: reg, client: client, out: out}
	if cfg.Archive {
		if r.store, err = openArchive(); err != nil {
			return err
		}
		defer r.store.Close()
	}

	episode, err := reg.ResolveRef(cmd.Context(), selected)
	if err != nil {
		return err
	}
	return r.handle(cmd.Context(), episode)
}
