package workflow

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// PlanFormatter renders the step plan of a workflow without running it.
// When styled is true, lipgloss ANSI styling is applied; when false, plain
// text is emitted.
type PlanFormatter struct {
	writer io.Writer
	styled bool
}

// NewPlanFormatter creates a PlanFormatter writing to w.
func NewPlanFormatter(w io.Writer, styled bool) *PlanFormatter {
	return &PlanFormatter{writer: w, styled: styled}
}

// Write writes s to the formatter's writer.
func (f *PlanFormatter) Write(s string) {
	fmt.Fprint(f.writer, s)
}

// FormatPlan formats the steps of wf in order. Each step lists its kind,
// its flags and the visibility condition, if any. Steps hidden under the
// workflow's current data are marked as such.
//
// The method returns the formatted string; it does not write to f.writer.
func (f *PlanFormatter) FormatPlan(wf *Workflow) string {
	steps := wf.Steps()
	if len(steps) == 0 {
		return "No steps defined.\n"
	}

	headerStyle := lipgloss.NewStyle()
	stepNameStyle := lipgloss.NewStyle()
	detailStyle := lipgloss.NewStyle()
	hiddenStyle := lipgloss.NewStyle()

	if f.styled {
		headerStyle = headerStyle.Bold(true).Foreground(lipgloss.Color("12"))
		stepNameStyle = stepNameStyle.Bold(true)
		detailStyle = detailStyle.Faint(true)
		hiddenStyle = hiddenStyle.Foreground(lipgloss.Color("11"))
	}

	var sb strings.Builder

	header := fmt.Sprintf("Workflow: %s", wf.Name())
	sb.WriteString(headerStyle.Render(header))
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", len(header)))
	sb.WriteString("\n")
	if desc := wf.Description(); desc != "" {
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	visible := make(map[int]bool, len(steps))
	for _, i := range wf.VisibleSteps() {
		visible[i] = true
	}
	for i, step := range steps {
		line := fmt.Sprintf("%s: %s", step.Name(), step.Title())
		fmt.Fprintf(&sb, "  %d. %s [%s]", i+1, stepNameStyle.Render(line), strings.Join(stepTags(step), ", "))
		if !visible[i] {
			sb.WriteString(" ")
			sb.WriteString(hiddenStyle.Render("(hidden)"))
		}
		sb.WriteString("\n")

		if note := step.Note(); note != "" {
			sb.WriteString(detailStyle.Render("     " + note))
			sb.WriteString("\n")
		}
		if cond := step.Condition(); cond != "" {
			sb.WriteString(detailStyle.Render("     visible if " + cond))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func stepTags(step Step) []string {
	tags := []string{step.Kind().String()}
	if step.Skippable() {
		tags = append(tags, "skippable")
	}
	if step.AllowRedo() {
		tags = append(tags, "redo")
	}
	return tags
}
