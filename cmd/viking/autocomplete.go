package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var completionFiles = map[string]string{
	"bash":       "viking.bash",
	"zsh":        "_viking",
	"fish":       "viking.fish",
	"powershell": "_viking.ps1",
}

func newAutocompleteCommand(root *cobra.Command) *cobra.Command {
	var out, shell string
	cmd := &cobra.Command{
		Use:   "autocomplete",
		Short: "Write a shell completion script into a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name, ok := completionFiles[shell]
			if !ok {
				return fmt.Errorf("unsupported shell %q: use bash, zsh, fish or powershell", shell)
			}
			if err := os.MkdirAll(out, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
			path := filepath.Join(out, name)

			var err error
			switch shell {
			case "bash":
				err = root.GenBashCompletionFileV2(path, true)
			case "zsh":
				err = root.GenZshCompletionFile(path)
			case "fish":
				err = root.GenFishCompletionFile(path, true)
			case "powershell":
				err = root.GenPowerShellCompletionFileWithDesc(path)
			}
			if err != nil {
				return fmt.Errorf("write %s completion: %w", shell, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Directory to write the completion script into")
	cmd.Flags().StringVarP(&shell, "shell", "s", "", "Shell: bash, zsh, fish or powershell")
	_ = cmd.MarkFlagRequired("out")
	_ = cmd.MarkFlagRequired("shell")
	_ = cmd.RegisterFlagCompletionFunc("shell", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"bash", "zsh", "fish", "powershell"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}
