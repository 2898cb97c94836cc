package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/forge/internal/config"
	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// configCmd is the parent "config" namespace command. It has no action of its
// own -- it groups debug and validate subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  "Inspect, validate, and debug forge configuration.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// configDebugCmd implements "forge config debug".
var configDebugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Show resolved configuration with source annotations",
	Long: `Display the fully-resolved configuration showing each value and
the source where it came from (cli flag, environment variable, config file,
workflow file, or default).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, _, err := loadAndResolveConfig()
		if err != nil {
			return err
		}
		printResolvedConfig(cmd.OutOrStdout(), resolved)
		return nil
	},
}

// configValidateCmd implements "forge config validate". Besides the engine
// settings it checks every configured workflow definition.
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and report issues",
	Long:  "Check the engine settings and all workflow definitions for errors and warnings.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, meta, err := loadAndResolveConfig()
		if err != nil {
			return err
		}
		result := config.Validate(resolved.Config, meta)
		workflows := workflow.ValidateConfigs(resolved.Config.Workflows)

		out := cmd.OutOrStdout()
		printValidationResult(out, result)
		errCount := len(result.Errors())
		for _, name := range sortedKeys(workflows) {
			wr := workflows[name]
			printWorkflowValidation(out, name, wr)
			errCount += len(wr.Errors)
		}
		if errCount > 0 {
			return fmt.Errorf("configuration has %d error(s)", errCount)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configDebugCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

// loadAndResolveConfig loads and resolves the configuration from all sources
// (file, env, workflow files). It returns the resolved config, the TOML
// metadata of forge.toml (nil when no file was found), and any loading error.
//
// When flagConfig is set, that path is used directly. Otherwise,
// config.FindConfigFile searches upward from the current directory.
// Workflow files are matched relative to the directory holding forge.toml,
// or the current directory when there is none.
func loadAndResolveConfig() (*config.ResolvedConfig, *toml.MetaData, error) {
	var (
		fileCfg *config.Config
		meta    *toml.MetaData
		cfgPath string
	)

	if flagConfig != "" {
		cfgPath = flagConfig
	} else {
		found, err := config.FindConfigFile(".")
		if err != nil {
			return nil, nil, fmt.Errorf("finding config file: %w", err)
		}
		cfgPath = found
	}
	if cfgPath != "" {
		fc, md, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return nil, nil, fmt.Errorf("loading config: %w", err)
		}
		fileCfg = fc
		meta = &md
	}

	resolved := config.Resolve(config.NewDefaults(), fileCfg, os.LookupEnv, nil)
	resolved.Path = cfgPath

	root := "."
	if cfgPath != "" {
		root = filepath.Dir(cfgPath)
	}
	sources, err := config.LoadWorkflowFiles(root, resolved.Config.Engine.WorkflowFiles)
	if err != nil {
		return nil, nil, err
	}
	for _, clash := range config.MergeWorkflowFiles(resolved, sources) {
		logging.New("config").Warn(clash)
	}
	return resolved, meta, nil
}

// ---- Lipgloss styles --------------------------------------------------------

// sourceStyle returns a lipgloss style for a given ConfigSource.
// When --no-color is active, lipgloss automatically strips ANSI because
// the root PersistentPreRunE sets the color profile to Ascii.
func sourceStyle(src config.ConfigSource) lipgloss.Style {
	switch src {
	case config.SourceFile:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12")) // bright blue
	case config.SourceWorkflowFile:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("14")) // bright cyan
	case config.SourceEnv:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11")) // bright yellow
	case config.SourceCLI:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9")) // bright red
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // bright green
	}
}

var (
	styleHeader   = lipgloss.NewStyle().Bold(true)
	styleSection  = lipgloss.NewStyle().Bold(true)
	styleErrorLbl = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)  // red
	styleWarnLbl  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true) // yellow
	styleSuccess  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))            // green
)

// ---- printResolvedConfig ----------------------------------------------------

const fieldWidth = 16 // column width for field names

func printHeading(out io.Writer, title string) {
	fmt.Fprintln(out, styleHeader.Render(title))
	fmt.Fprintln(out, strings.Repeat("=", len(title)))
	fmt.Fprintln(out)
}

// printResolvedConfig writes the formatted resolved configuration to out.
func printResolvedConfig(out io.Writer, rc *config.ResolvedConfig) {
	printHeading(out, "Configuration Debug")

	if rc.Path != "" {
		fmt.Fprintf(out, "Config file: %s\n", rc.Path)
	} else {
		fmt.Fprintln(out, "Config file: none found")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, styleSection.Render("[engine]"))
	e := rc.Config.Engine
	printField(out, "lock_timeout", fmtStr(e.LockTimeout), rc.Sources["engine.lock_timeout"])
	printField(out, "grace_delay", fmtStr(e.GraceDelay), rc.Sources["engine.grace_delay"])
	printField(out, "console_lines", fmt.Sprint(e.ConsoleLines), rc.Sources["engine.console_lines"])
	printField(out, "log_entries", fmt.Sprint(e.LogEntries), rc.Sources["engine.log_entries"])
	printField(out, "poll_interval", fmtStr(e.PollInterval), rc.Sources["engine.poll_interval"])
	printField(out, "workflow_files", fmtStr(e.WorkflowFiles), rc.Sources["engine.workflow_files"])
	fmt.Fprintln(out)

	for _, name := range sortedKeys(rc.Config.Workflows) {
		wf := rc.Config.Workflows[name]
		src := rc.Sources["workflows."+name]
		fmt.Fprintln(out, styleSection.Render(fmt.Sprintf("[workflows.%s]", name)))
		printField(out, "description", fmtStr(wf.Description), src)
		names := make([]string, len(wf.Steps))
		for i, s := range wf.Steps {
			names[i] = s.Name
		}
		printField(out, "steps", fmtSlice(names), src)
		fmt.Fprintln(out)
	}
}

// printField writes a single key = value (source: ...) line.
func printField(out io.Writer, name, value string, src config.ConfigSource) {
	if src == "" {
		src = config.SourceDefault
	}
	padded := fmt.Sprintf("  %-*s", fieldWidth, name)
	srcLabel := sourceStyle(src).Render(fmt.Sprintf("(source: %s)", src))
	fmt.Fprintf(out, "%s = %-32s %s\n", padded, value, srcLabel)
}

// fmtStr formats a string value for display (quoted).
func fmtStr(s string) string {
	return fmt.Sprintf("%q", s)
}

// fmtSlice formats a string slice for display.
func fmtSlice(ss []string) string {
	if len(ss) == 0 {
		return "[]"
	}
	quoted := make([]string, len(ss))
	for i, s := range ss {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ---- validation reports -----------------------------------------------------

// printValidationResult writes the engine validation report to out.
func printValidationResult(out io.Writer, result *config.ValidationResult) {
	printHeading(out, "Configuration Validation")

	errs := result.Errors()
	warns := result.Warnings()

	if len(errs) == 0 && len(warns) == 0 {
		fmt.Fprintln(out, styleSuccess.Render("No issues found."))
		fmt.Fprintln(out)
		return
	}

	if len(errs) > 0 {
		fmt.Fprintln(out, styleErrorLbl.Render("Errors:"))
		for _, issue := range errs {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	if len(warns) > 0 {
		fmt.Fprintln(out, styleWarnLbl.Render("Warnings:"))
		for _, issue := range warns {
			fmt.Fprintf(out, "  [%s] %s\n", issue.Field, issue.Message)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintf(out, "%d error(s), %d warning(s)\n\n", len(errs), len(warns))
}

// printWorkflowValidation writes the report of one workflow definition.
func printWorkflowValidation(out io.Writer, name string, wr *workflow.ValidationResult) {
	fmt.Fprintln(out, styleSection.Render(fmt.Sprintf("[workflows.%s]", name)))
	if len(wr.Errors) == 0 && len(wr.Warnings) == 0 {
		fmt.Fprintln(out, "  "+styleSuccess.Render("ok"))
		return
	}
	for _, issue := range wr.Errors {
		fmt.Fprintf(out, "  %s %s\n", styleErrorLbl.Render("error"), formatIssue(issue))
	}
	for _, issue := range wr.Warnings {
		fmt.Fprintf(out, "  %s %s\n", styleWarnLbl.Render("warning"), formatIssue(issue))
	}
}

func formatIssue(issue workflow.ValidationIssue) string {
	if issue.Step == "" {
		return fmt.Sprintf("[%s] %s", issue.Code, issue.Message)
	}
	return fmt.Sprintf("[%s] step %q: %s", issue.Code, issue.Step, issue.Message)
}
