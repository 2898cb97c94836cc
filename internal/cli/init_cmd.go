package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AbdelazizMoustafa10m/forge/internal/config"
)

// Flag values for the init subcommand.
var (
	initFlagName     string
	initFlagWorkflow string
	initFlagForce    bool
)

// initCmd implements "forge init [template]". It never loads forge.toml, so
// it is safe to run in a fresh directory.
var initCmd = &cobra.Command{
	Use:   "init [template]",
	Short: "Create forge.toml and example workflows from a template",
	Long: `Initialize a directory by rendering an embedded template: a forge.toml
with an example workflow and a workflows/ directory with one more. Existing
files are preserved unless --force is supplied.

Examples:
  forge init                          # starter template in the current directory
  forge init --workflow deploy        # name the example workflow
  forge init starter --force          # overwrite existing files`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{config.DefaultTemplate},
	RunE:      runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initFlagName, "name", "n", "", "Project name (defaults to current directory name)")
	initCmd.Flags().StringVar(&initFlagWorkflow, "workflow", "", "Name of the example workflow in forge.toml")
	initCmd.Flags().BoolVar(&initFlagForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

// runInit is the RunE handler for the init command.
func runInit(cmd *cobra.Command, args []string) error {
	templateName := config.DefaultTemplate
	if len(args) > 0 {
		templateName = args[0]
	}
	if !config.TemplateExists(templateName) {
		available, listErr := config.ListTemplates()
		if listErr != nil {
			return fmt.Errorf("listing available templates: %w", listErr)
		}
		return fmt.Errorf("template %q not found; available templates: %s",
			templateName, strings.Join(available, ", "))
	}

	destDir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	projectName := initFlagName
	if projectName == "" {
		projectName = filepath.Base(destDir)
	}
	if initFlagWorkflow != "" && strings.ContainsAny(initFlagWorkflow, " .\"[]") {
		return fmt.Errorf("invalid workflow name %q: use letters, digits, '-' and '_'", initFlagWorkflow)
	}

	cfgPath := filepath.Join(destDir, config.ConfigFileName)
	if _, statErr := os.Stat(cfgPath); statErr == nil && !initFlagForce {
		return fmt.Errorf("%s already exists in %s; use --force to overwrite", config.ConfigFileName, destDir)
	}

	vars := config.TemplateVars{ProjectName: projectName, WorkflowName: initFlagWorkflow}
	created, err := config.RenderTemplate(templateName, destDir, vars, initFlagForce)
	if err != nil {
		return fmt.Errorf("rendering template %q: %w", templateName, err)
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Initialized %q from template %q\n\n", projectName, templateName)
	if len(created) > 0 {
		fmt.Fprintln(stderr, "Created files:")
		for _, f := range created {
			rel, relErr := filepath.Rel(destDir, f)
			if relErr != nil {
				rel = f
			}
			fmt.Fprintf(stderr, "  %s\n", rel)
		}
		fmt.Fprintln(stderr)
	}

	fmt.Fprintln(stderr, "Next steps:")
	fmt.Fprintln(stderr, "  1. forge workflows              # list the workflows")
	fmt.Fprintln(stderr, "  2. forge workflows --plan NAME  # inspect one")
	fmt.Fprintln(stderr, "  3. forge run NAME")
	return nil
}
