package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/torosent/viking/internal/config"
)

func newInitCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Print an example campaign document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := stdout.Write(config.Example())
			return err
		},
	}
}
