package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
	"github.com/AbdelazizMoustafa10m/forge/internal/tui"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

var (
	runFlagSet  []string
	runFlagAuto bool
)

// runCmd implements "forge run <workflow>".
var runCmd = &cobra.Command{
	Use:   "run <workflow>",
	Short: "Run a workflow step by step",
	Long: `Run a built-in or configured workflow. Each step is shown as a form;
while a step's background action runs, its console is shown until the action
finishes and the workflow moves on.

Without a terminal, or with --auto, every step is answered with its default
values and the --set overrides, and console output is printed as it appears.

Examples:
  forge run batch
  forge run batch --auto --set items=alpha,beta --set delay=50ms
  forge run deploy --set target=staging`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: completeWorkflowNames,
	RunE:              runRun,
}

func init() {
	runCmd.Flags().StringArrayVar(&runFlagSet, "set", nil, "Set a field value (key=value, repeatable)")
	runCmd.Flags().BoolVar(&runFlagAuto, "auto", false, "Answer every step without prompting")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	values, err := parseAssignments("--set", runFlagSet)
	if err != nil {
		return err
	}

	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return err
	}
	eng := newEngine(resolved)
	defer func() { _ = eng.shutdown() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	interactive := !runFlagAuto && isTerminal(os.Stdin) && isTerminal(os.Stdout)
	if !interactive && !runFlagAuto {
		logging.New("run").Info("no terminal attached, answering steps automatically")
	}

	theme := tui.DefaultTheme()
	out := cmd.OutOrStdout()
	events := make(chan workflow.Event, 64)
	status := make(chan workflow.StatusEvent, 16)
	notices := &noticePrinter{w: cmd.ErrOrStderr(), theme: theme}

	wf, err := eng.workflows.Build(args[0], eng.actions,
		workflow.WithLogger(logging.New("workflow")),
		workflow.WithNotifier(notices),
		workflow.WithEventChannel(events),
		workflow.WithStatus(workflow.NewChannelStatus(status)),
		workflow.WithActionOptions(eng.actionOptions()...),
	)
	if err != nil {
		return err
	}

	r := &runner{
		wf:      wf,
		events:  events,
		theme:   theme,
		out:     out,
		values:  values,
		auto:    !interactive,
		notices: notices,
		prompt: func(ctx context.Context, fr *tui.FormRenderer) error {
			return fr.Run(ctx)
		},
		follow: tailFollower(out, eng.cfg.PollIntervalDuration()),
	}
	if interactive {
		r.follow = consoleFollower(theme, eng.cfg.PollIntervalDuration(), status)
	}
	return r.run(ctx)
}

// parseAssignments splits "key=value" flag values. The first '=' separates
// key and value; later ones belong to the value.
func parseAssignments(flag string, raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid %s value %q: expected key=value", flag, kv)
		}
		out[key] = value
	}
	return out, nil
}

// completeWorkflowNames completes the first argument with the names of the
// known workflows.
func completeWorkflowNames(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	var names []string
	for _, e := range newEngine(resolved).workflows.List() {
		names = append(names, e.Name+"\t"+e.Description)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
