package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"funidl/internal/archive"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the extraction archive",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived episodes",
	Args:  cobra.NoArgs,
	RunE:  archiveListRun,
}

var archiveRemoveCmd = &cobra.Command{
	Use:   "remove <archive id>...",
	Short: `Remove episodes from the archive, e.g. "funimation 210050"`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  archiveRemoveRun,
}

func init() {
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveRemoveCmd)
}

func archiveListRun(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if flagJSON {
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "The archive is empty.")
		return nil
	}
	for _, line := range archive.FormatForDisplay(entries) {
		fmt.Fprintln(out, line)
	}
	return nil
}

func archiveRemoveRun(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range args {
		removed, err := store.Remove(cmd.Context(), id)
		if err != nil {
			return err
		}
		if !removed {
			log.Warn().Str("id", id).Msg("not in the archive")
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
	}
	return nil
}
