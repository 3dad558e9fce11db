package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func newManCommand(root *cobra.Command) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "man",
		Short: "Write man pages for every command into a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			header := &doc.GenManHeader{
				Title:   "VIKING",
				Section: "1",
				Source:  "viking " + version,
			}
			if err := doc.GenManTree(root, header, out); err != nil {
				return fmt.Errorf("write man pages: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Directory to write the man pages into")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
