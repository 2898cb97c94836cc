package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testdataPath returns the absolute path to a file in the repo-root testdata/ directory.
func testdataPath(t *testing.T, name string) string {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	// internal/config -> repo root is ../../
	return filepath.Join(wd, "..", "..", "testdata", name)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// --- LoadFromFile tests ---

func TestLoadFromFile_ValidFull(t *testing.T) {
	t.Parallel()
	cfg, md, err := LoadFromFile(testdataPath(t, "valid-full.toml"))
	require.NoError(t, err)

	assert.Equal(t, "3s", cfg.Engine.LockTimeout)
	assert.Equal(t, "250ms", cfg.Engine.GraceDelay)
	assert.Equal(t, 2000, cfg.Engine.ConsoleLines)
	assert.Equal(t, 800, cfg.Engine.LogEntries)
	assert.Equal(t, "100ms", cfg.Engine.PollInterval)
	assert.Equal(t, "flows/*.toml", cfg.Engine.WorkflowFiles)

	require.Len(t, cfg.Workflows, 1)
	wf, ok := cfg.Workflows["deploy"]
	require.True(t, ok, "expected workflows.deploy to exist")
	assert.Equal(t, "Build and ship a release", wf.Description)
	require.Len(t, wf.Steps, 4)

	target := wf.Steps[0]
	assert.Equal(t, "target", target.Name)
	assert.Equal(t, "Target", target.Title)
	assert.Equal(t, "Where should ${app} go?", target.Text)
	require.Len(t, target.Fields, 1)
	assert.Equal(t, FieldConfig{
		Name:    "env",
		Label:   "Environment",
		Default: "staging",
		Options: []string{"staging", "production"},
	}, target.Fields[0])

	assert.Equal(t, "env=production", wf.Steps[1].VisibleIf)
	assert.True(t, wf.Steps[1].Skippable)

	ship := wf.Steps[2]
	assert.Equal(t, "./deploy.sh ${env}", ship.Command)
	assert.True(t, ship.Shell)
	assert.Equal(t, "scripts", ship.Dir)
	assert.True(t, ship.Background)
	assert.Equal(t, []TriggerConfig{{Match: "Continue?", Response: "yes"}}, ship.Triggers)

	assert.True(t, wf.Steps[3].AllowRedo)

	assert.Empty(t, md.Undecoded(), "expected no undecoded keys for valid-full.toml")
}

func TestLoadFromFile_PartialConfig(t *testing.T) {
	t.Parallel()
	cfg, _, err := LoadFromFile(testdataPath(t, "valid-partial.toml"))
	require.NoError(t, err)

	assert.Equal(t, "1s", cfg.Engine.GraceDelay)
	assert.Empty(t, cfg.Engine.LockTimeout, "unset keys stay zero until Resolve")
	assert.Empty(t, cfg.Workflows)
}

func TestLoadFromFile_UnknownKeys(t *testing.T) {
	t.Parallel()
	_, md, err := LoadFromFile(testdataPath(t, "unknown-keys.toml"))
	require.NoError(t, err)

	var keys []string
	for _, k := range md.Undecoded() {
		keys = append(keys, k.String())
	}
	assert.Contains(t, keys, "engine.lock_timout")
	assert.Contains(t, keys, "server")
}

func TestLoadFromFile_InvalidSyntax(t *testing.T) {
	t.Parallel()
	_, _, err := LoadFromFile(testdataPath(t, "invalid-syntax.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestLoadFromFile_Missing(t *testing.T) {
	t.Parallel()
	_, _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

// --- FindConfigFile tests ---

func TestFindConfigFile_InCurrentDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigFileName), "")

	got, err := FindConfigFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), got)
}

func TestFindConfigFile_WalksUp(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ConfigFileName), "")
	nested := filepath.Join(dir, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	got, err := FindConfigFile(nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), got)
}

func TestFindConfigFile_NotFound(t *testing.T) {
	t.Parallel()
	got, err := FindConfigFile(t.TempDir())
	require.NoError(t, err)
	// A forge.toml somewhere above the temp dir would make this flaky, but
	// temp dirs live outside any project.
	assert.Empty(t, got)
}

// --- LoadWorkflowFiles tests ---

func TestLoadWorkflowFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "workflows", "hello.toml"), `
description = "say hi"

[[steps]]
name = "greet"
command = "echo hi"
`)
	writeFile(t, filepath.Join(root, "workflows", "nested", "named.toml"), `
name = "custom-name"

[[steps]]
name = "only"
`)
	writeFile(t, filepath.Join(root, "workflows", "README.md"), "not a workflow")

	got, err := LoadWorkflowFiles(root, "workflows/**/*.toml")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "hello", got[0].Name)
	assert.Equal(t, filepath.Join(root, "workflows", "hello.toml"), got[0].Path)
	assert.Equal(t, "say hi", got[0].Workflow.Description)
	require.Len(t, got[0].Workflow.Steps, 1)
	assert.Equal(t, "echo hi", got[0].Workflow.Steps[0].Command)

	assert.Equal(t, "custom-name", got[1].Name)
	assert.Empty(t, got[1].Meta.Undecoded())
}

func TestLoadWorkflowFiles_MissingRootOrPattern(t *testing.T) {
	t.Parallel()

	got, err := LoadWorkflowFiles(filepath.Join(t.TempDir(), "missing"), DefaultWorkflowFiles)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = LoadWorkflowFiles(t.TempDir(), "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadWorkflowFiles_Errors(t *testing.T) {
	t.Parallel()

	_, err := LoadWorkflowFiles(t.TempDir(), "workflows/[*.toml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid workflow_files pattern")

	root := t.TempDir()
	writeFile(t, filepath.Join(root, "workflows", "broken.toml"), "[[steps\n")
	_, err = LoadWorkflowFiles(root, DefaultWorkflowFiles)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.toml")
}

func TestMergeWorkflowFiles(t *testing.T) {
	t.Parallel()

	file := &Config{Workflows: map[string]WorkflowConfig{
		"deploy": {Description: "from forge.toml"},
	}}
	rc := Resolve(NewDefaults(), file, noEnv, nil)

	clashes := MergeWorkflowFiles(rc, []WorkflowSource{
		{Name: "deploy", Path: "workflows/deploy.toml", Workflow: WorkflowConfig{Description: "from file"}},
		{Name: "hello", Path: "workflows/a/hello.toml", Workflow: WorkflowConfig{Description: "first"}},
		{Name: "hello", Path: "workflows/b/hello.toml", Workflow: WorkflowConfig{Description: "second"}},
	})

	assert.Equal(t, "from forge.toml", rc.Config.Workflows["deploy"].Description)
	assert.Equal(t, "first", rc.Config.Workflows["hello"].Description)
	assert.Equal(t, SourceFile, rc.Sources["workflows.deploy"])
	assert.Equal(t, SourceWorkflowFile, rc.Sources["workflows.hello"])
	require.Len(t, clashes, 2)
	assert.Contains(t, clashes[0], "shadowed by forge.toml")
	assert.Contains(t, clashes[1], "already defined by workflows/a/hello.toml")
}
