package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
	"github.com/AbdelazizMoustafa10m/forge/internal/workflow"
)

// workflowsFlags holds the flag values for the workflows command.
type workflowsFlags struct {
	Plan string
	JSON bool
	Set  []string
}

// workflowEntry is the JSON shape of one listed workflow.
type workflowEntry struct {
	Name        string                     `json:"name"`
	Description string                     `json:"description,omitempty"`
	Source      string                     `json:"source"`
	Valid       bool                       `json:"valid"`
	Errors      []workflow.ValidationIssue `json:"errors,omitempty"`
	Warnings    []workflow.ValidationIssue `json:"warnings,omitempty"`
}

// planStep is the JSON shape of one step of a plan.
type planStep struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Title     string `json:"title"`
	Kind      string `json:"kind"`
	Skippable bool   `json:"skippable,omitempty"`
	Redo      bool   `json:"redo,omitempty"`
	Visible   bool   `json:"visible"`
	Note      string `json:"note,omitempty"`
	Condition string `json:"condition,omitempty"`
}

// newWorkflowsCmd creates the "forge workflows" command.
func newWorkflowsCmd() *cobra.Command {
	var flags workflowsFlags

	cmd := &cobra.Command{
		Use:   "workflows",
		Short: "List available workflows or show the plan of one",
		Long: `List the built-in workflows and those configured in forge.toml or
workflow files, with the validation status of each definition.

With --plan, print the steps of one workflow without running it. --set
seeds workflow data so conditional steps show as they would for that input.`,
		Example: `  forge workflows
  forge workflows --json
  forge workflows --plan batch
  forge workflows --plan deploy --set target=production`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflows(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.Plan, "plan", "", "Show the step plan of the named workflow")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Output structured JSON to stdout")
	cmd.Flags().StringArrayVar(&flags.Set, "set", nil, "Seed workflow data for --plan (key=value, repeatable)")
	_ = cmd.RegisterFlagCompletionFunc("plan", completeWorkflowNames)
	return cmd
}

func init() {
	rootCmd.AddCommand(newWorkflowsCmd())
}

func runWorkflows(cmd *cobra.Command, flags workflowsFlags) error {
	resolved, _, err := loadAndResolveConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	eng := newEngine(resolved)
	out := cmd.OutOrStdout()

	if flags.Plan != "" {
		data, err := parseAssignments("--set", flags.Set)
		if err != nil {
			return err
		}
		wf, err := eng.workflows.Build(flags.Plan, eng.actions, workflow.WithLogger(logging.New("workflow")))
		if err != nil {
			return err
		}
		for k, v := range data {
			wf.Set(k, v)
		}
		if flags.JSON {
			return writeJSON(out, planSteps(wf))
		}
		styled := !flagNoColor && isTerminal(os.Stdout)
		pf := workflow.NewPlanFormatter(out, styled)
		pf.Write(pf.FormatPlan(wf))
		return nil
	}

	entries := listWorkflows(eng)
	if flags.JSON {
		return writeJSON(out, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "No workflows found.")
		return nil
	}
	fmt.Fprintln(out, workflowTable(entries))
	return nil
}

func listWorkflows(eng *engine) []workflowEntry {
	list := eng.workflows.List()
	entries := make([]workflowEntry, 0, len(list))
	for _, e := range list {
		entry := workflowEntry{Name: e.Name, Description: e.Description, Source: e.Source, Valid: true}
		if vr := eng.validation(e); vr != nil {
			entry.Valid = vr.IsValid()
			entry.Errors = vr.Errors
			entry.Warnings = vr.Warnings
		}
		entries = append(entries, entry)
	}
	return entries
}

func planSteps(wf *workflow.Workflow) []planStep {
	visible := make(map[int]bool)
	for _, i := range wf.VisibleSteps() {
		visible[i] = true
	}
	steps := wf.Steps()
	out := make([]planStep, len(steps))
	for i, s := range steps {
		out[i] = planStep{
			Index:     i,
			Name:      s.Name(),
			Title:     s.Title(),
			Kind:      s.Kind().String(),
			Skippable: s.Skippable(),
			Redo:      s.AllowRedo(),
			Visible:   visible[i],
			Note:      s.Note(),
			Condition: s.Condition(),
		}
	}
	return out
}

// workflowTable renders entries as a table with rounded borders.
func workflowTable(entries []workflowEntry) string {
	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := styleSuccess.Render("ok")
		switch {
		case !e.Valid:
			status = styleErrorLbl.Render(fmt.Sprintf("%d error(s)", len(e.Errors)))
		case len(e.Warnings) > 0:
			status = styleWarnLbl.Render(fmt.Sprintf("%d warning(s)", len(e.Warnings)))
		}
		rows = append(rows, []string{e.Name, e.Source, status, e.Description})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers("NAME", "SOURCE", "STATUS", "DESCRIPTION").
		Rows(rows...)
	return t.String()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
