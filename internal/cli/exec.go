package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/tui"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

var (
	execFlagShell    bool
	execFlagDir      string
	execFlagName     string
	execFlagTriggers []string
)

// execCmd implements "forge exec -- <command>".
var execCmd = &cobra.Command{
	Use:   "exec [flags] -- <command> [args...]",
	Short: "Run a command as a supervised background action",
	Long: `Run a single command as a background action. Its output is shown in the
console viewer (or printed line by line without a terminal) and forge exits
with the command's exit code.

Triggers answer prompts: whenever an output line contains MATCH, RESPONSE and
a newline are written to the command's stdin.

Examples:
  forge exec -- make test
  forge exec --shell -- 'for i in 1 2 3; do echo $i; sleep 1; done'
  forge exec --trigger 'Continue?=y' -- ./install.sh`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func init() {
	execCmd.Flags().BoolVar(&execFlagShell, "shell", false, "Run the command line through the shell")
	execCmd.Flags().StringVar(&execFlagDir, "workdir", "", "Working directory of the command")
	execCmd.Flags().StringVar(&execFlagName, "name", "", "Action name shown in the console")
	execCmd.Flags().StringArrayVar(&execFlagTriggers, "trigger", nil, "Answer output containing MATCH (MATCH=RESPONSE, repeatable)")
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	triggers, err := parseTriggers(execFlagTriggers)
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

	line := commandLine(args, execFlagShell)
	name := execFlagName
	if name == "" {
		name = "exec/" + args[0]
	}
	opts := append(eng.actionOptions(),
		action.WithName(name),
		action.WithBackground(true),
		action.WithTriggers(triggers...),
	)
	a, err := action.New(eng.actions, commandWork(line, execFlagDir, execFlagShell), opts...)
	if err != nil {
		return err
	}
	if err := a.Start(ctx); err != nil {
		return err
	}

	follow := tailFollower(cmd.OutOrStdout(), eng.cfg.PollIntervalDuration())
	if isTerminal(os.Stdout) {
		follow = consoleFollower(tui.DefaultTheme(), eng.cfg.PollIntervalDuration(), nil)
	}
	if _, err := follow(ctx, a, name); err != nil {
		return err
	}
	if a.IsRunning() {
		// The viewer was left while the command runs; there is nothing to
		// come back to once forge exits.
		_ = a.Stop()
		<-a.Done()
	}
	return execResult(a)
}

// commandWork runs line and waits for it. Its exit status is read from the
// action afterwards.
func commandWork(line, dir string, shell bool) action.WorkFunc {
	return func(ctx context.Context, a *action.BackgroundAction) error {
		a.ConsoleWrite("$ "+line, log.InfoLevel)
		if err := a.ProcessExec(line, dir, shell); err != nil {
			return err
		}
		a.ProcessWait(0)
		if code := a.ExitCode(); code != 0 {
			return &workflow.ExitError{Command: line, Code: code}
		}
		a.SetProgress(100)
		return nil
	}
}

// execResult maps the finished action to the command's exit status.
func execResult(a *action.BackgroundAction) error {
	if code := a.ExitCode(); code > 0 {
		return &exitError{code: code}
	}
	if msg := a.Err(); msg != "" {
		return fmt.Errorf("%s: %s", a.Name(), msg)
	}
	return nil
}

// commandLine joins args into one command line. Without --shell every
// argument is quoted so it survives splitting unchanged.
func commandLine(args []string, shell bool) string {
	if shell {
		return strings.Join(args, " ")
	}
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = workflow.ShellQuote(arg)
	}
	return strings.Join(quoted, " ")
}

func parseTriggers(raw []string) ([]action.Trigger, error) {
	triggers := make([]action.Trigger, 0, len(raw))
	for _, kv := range raw {
		match, response, ok := strings.Cut(kv, "=")
		if !ok || match == "" {
			return nil, fmt.Errorf("invalid --trigger value %q: expected MATCH=RESPONSE", kv)
		}
		triggers = append(triggers, action.Trigger{Match: match, Response: response})
	}
	return triggers, nil
}
