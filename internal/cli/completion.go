package cli

import (
	"io"

	"github.com/spf13/cobra"
)

// completionGenerators writes the completion script of one shell.
var completionGenerators = map[string]func(w io.Writer) error{
	"bash":       func(w io.Writer) error { return rootCmd.GenBashCompletionV2(w, true) },
	"zsh":        func(w io.Writer) error { return rootCmd.GenZshCompletion(w) },
	"fish":       func(w io.Writer) error { return rootCmd.GenFishCompletion(w, true) },
	"powershell": func(w io.Writer) error { return rootCmd.GenPowerShellCompletionWithDesc(w) },
}

// completionCmd prints shell completion scripts. Workflow names complete
// dynamically for "run" and "workflows --plan".
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate a completion script for forge. Workflow names are completed
from the built-in workflows and the ones configured for the current directory.

  Bash:
    forge completion bash > /etc/bash_completion.d/forge

  Zsh:
    forge completion zsh > "${fpath[1]}/_forge"

  Fish:
    forge completion fish > ~/.config/fish/completions/forge.fish

  PowerShell:
    forge completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionGenerators[args[0]](cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}
