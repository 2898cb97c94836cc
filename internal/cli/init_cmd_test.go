package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbdelazizMoustafa10m/forge/internal/config"
)

func TestInitCmd_StarterTemplate(t *testing.T) {
	resetRootCmd(t)
	dir := t.TempDir()
	chdir(t, dir)

	_, stderr, code := captureOutput(t, "init", "--name", "widgets")
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, stderr, `Initialized "widgets" from template "starter"`)
	assert.Contains(t, stderr, "Created files:")
	assert.Contains(t, stderr, config.ConfigFileName)
	assert.Contains(t, stderr, filepath.Join("workflows", "hello.toml"))
	assert.Contains(t, stderr, "forge run NAME")

	data, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# forge configuration for widgets")
	assert.Contains(t, string(data), "[workflows.batch-demo]")
	assert.FileExists(t, filepath.Join(dir, "workflows", "hello.toml"))
}

func TestInitCmd_ProjectNameDefaultsToDirectory(t *testing.T) {
	resetRootCmd(t)
	dir := filepath.Join(t.TempDir(), "my-project")
	require.NoError(t, os.Mkdir(dir, 0o755))
	chdir(t, dir)

	_, stderr, code := captureOutput(t, "init")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stderr, `Initialized "my-project"`)
}

func TestInitCmd_WorkflowName(t *testing.T) {
	resetRootCmd(t)
	dir := t.TempDir()
	chdir(t, dir)

	_, stderr, code := captureOutput(t, "init", "--workflow", "deploy")
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[workflows.deploy]")
	assert.Contains(t, string(data), "[[workflows.deploy.steps]]")
	assert.NotContains(t, string(data), "batch-demo")
}

func TestInitCmd_RejectsInvalidWorkflowName(t *testing.T) {
	for _, name := range []string{"two words", "a.b", `q"uote`, "x[0]"} {
		t.Run(name, func(t *testing.T) {
			resetRootCmd(t)
			dir := t.TempDir()
			chdir(t, dir)

			_, stderr, code := captureOutput(t, "init", "--workflow", name)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, "invalid workflow name")
			assert.NoFileExists(t, filepath.Join(dir, config.ConfigFileName))
		})
	}
}

func TestInitCmd_ExistingConfigNeedsForce(t *testing.T) {
	resetRootCmd(t)
	dir := projectDir(t, "# mine\n")

	_, stderr, code := captureOutput(t, "init")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "already exists")
	assert.Contains(t, stderr, "--force")

	data, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Equal(t, "# mine\n", string(data))
}

func TestInitCmd_ForceOverwrites(t *testing.T) {
	resetRootCmd(t)
	dir := projectDir(t, "# mine\n")

	_, stderr, code := captureOutput(t, "init", "--force")
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(filepath.Join(dir, config.ConfigFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[engine]")
}

func TestInitCmd_UnknownTemplate(t *testing.T) {
	resetRootCmd(t)
	chdir(t, t.TempDir())

	_, stderr, code := captureOutput(t, "init", "nope")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `template "nope" not found`)
	assert.Contains(t, stderr, config.DefaultTemplate)
}

func TestInitCmd_GeneratedConfigValidates(t *testing.T) {
	resetRootCmd(t)
	chdir(t, t.TempDir())

	_, stderr, code := captureOutput(t, "init")
	require.Equal(t, 0, code, stderr)

	resetRootCmd(t)
	stdout, stderr, code := captureOutput(t, "config", "validate")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "[workflows.batch-demo]")
	assert.Contains(t, stdout, "[workflows.hello]")
}
