package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"funidl/internal/extractor"
)

var extractorsCmd = &cobra.Command{
	Use:   "extractors",
	Short: "List the supported extractors in dispatch order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, _, err := newRegistry()
		if err != nil {
			return err
		}
		listExtractors(cmd.OutOrStdout(), reg)
		return nil
	},
}

func listExtractors(w io.Writer, reg *extractor.Registry) {
	for _, e := range reg.List() {
		fmt.Fprintf(w, "%s\t%s\n", e.Key(), e.Name())
	}
}
