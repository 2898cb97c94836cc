// Package cli implements the forge command tree.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
)

// Global flag values accessible to all subcommands.
var (
	flagVerbose bool
	flagQuiet   bool
	flagConfig  string
	flagDir     string
	flagNoColor bool
)

// rootCmd is the base command for forge.
var rootCmd = &cobra.Command{
	Use:   "forge",
	Short: "Step workflows with supervised background actions",
	Long: `forge drives multi-step workflows from the terminal. Steps collect input,
run validation and start long-running commands as background actions whose
console output, progress and errors stay inspectable while they run.

Workflows are built in or declared in forge.toml and workflow files.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupGlobals,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) output (env: FORGE_VERBOSE)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress all output except errors (env: FORGE_QUIET)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to forge.toml config file")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "Override working directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output (env: FORGE_NO_COLOR, NO_COLOR)")
}

// setupGlobals applies environment fallbacks for the global flags, sets up
// logging and colors and changes into --dir.
func setupGlobals(cmd *cobra.Command, _ []string) error {
	flags := cmd.Root().PersistentFlags()
	if !flags.Changed("verbose") && os.Getenv("FORGE_VERBOSE") != "" {
		flagVerbose = true
	}
	if !flags.Changed("quiet") && os.Getenv("FORGE_QUIET") != "" {
		flagQuiet = true
	}
	if !flags.Changed("no-color") && (os.Getenv("NO_COLOR") != "" || os.Getenv("FORGE_NO_COLOR") != "") {
		flagNoColor = true
	}

	jsonFormat := os.Getenv("FORGE_LOG_FORMAT") == "json"
	logging.Setup(flagVerbose, flagQuiet, jsonFormat)
	if !flagVerbose && !flagQuiet {
		if err := logging.ApplyLevel(os.Getenv("FORGE_LOG_LEVEL")); err != nil {
			return fmt.Errorf("FORGE_LOG_LEVEL: %w", err)
		}
	}

	if flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}

	if flagDir != "" {
		if err := os.Chdir(flagDir); err != nil {
			return fmt.Errorf("changing directory to %s: %w", flagDir, err)
		}
	}
	return nil
}

// exitError carries a process exit code through cobra. Its message is
// printed unless it is empty.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string {
	if e.msg == "" {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.msg
}

// RootCommand returns the root command with every subcommand registered.
// Doc and completion generators walk it.
func RootCommand() *cobra.Command { return rootCmd }

// Execute runs the root command and returns the exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.msg != "" {
			fmt.Fprintln(os.Stderr, ee.msg)
		}
		return ee.code
	}
	fmt.Fprintln(os.Stderr, err)
	return 1
}

// isTerminal reports whether f is connected to a terminal.
func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
