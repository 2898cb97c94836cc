package e2e_test

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// testProject is an isolated project directory with a freshly built forge
// binary.
type testProject struct {
	Dir        string
	BinaryPath string
	t          *testing.T
}

// newTestProject builds the forge binary into a fresh temp directory and
// returns a testProject ready for use.
func newTestProject(t *testing.T) *testProject {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping E2E test in short mode")
	}
	if runtime.GOOS == "windows" {
		t.Skip("E2E tests rely on sh and are not supported on Windows")
	}

	dir := t.TempDir()
	binary := filepath.Join(dir, "bin", "forge")
	build := exec.Command("go", "build", "-o", binary, "./cmd/forge")
	build.Dir = projectRoot()
	out, err := build.CombinedOutput()
	require.NoError(t, err, "building forge: %s", string(out))

	project := filepath.Join(dir, "project")
	require.NoError(t, os.MkdirAll(project, 0o755))
	return &testProject{Dir: project, BinaryPath: binary, t: t}
}

// projectRoot returns the repository root, two directories above this file.
func projectRoot() string {
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..")
}

// writeFile writes content to rel inside the project, creating directories.
func (tp *testProject) writeFile(rel, content string) {
	tp.t.Helper()
	path := filepath.Join(tp.Dir, filepath.FromSlash(rel))
	require.NoError(tp.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(tp.t, os.WriteFile(path, []byte(content), 0o644))
}

// writeConfig writes content to forge.toml in tp.Dir.
func (tp *testProject) writeConfig(content string) {
	tp.t.Helper()
	tp.writeFile("forge.toml", content)
}

// run creates an exec.Cmd for forge inside the project. Stdin is not a
// terminal, so workflows run in auto mode.
func (tp *testProject) run(args ...string) *exec.Cmd {
	cmd := exec.Command(tp.BinaryPath, args...)
	cmd.Dir = tp.Dir
	cmd.Env = append(os.Environ(),
		"NO_COLOR=1",
		"FORGE_LOG_FORMAT=json",
	)
	return cmd
}

// runExpectSuccess runs forge and asserts exit code 0. Returns combined
// stdout and stderr.
func (tp *testProject) runExpectSuccess(args ...string) string {
	tp.t.Helper()
	out, err := tp.run(args...).CombinedOutput()
	require.NoError(tp.t, err, "forge %v failed:\n%s", args, string(out))
	return string(out)
}

// runExpectFailure runs forge and asserts a non-zero exit code. Returns
// combined output and the exit code.
func (tp *testProject) runExpectFailure(args ...string) (string, int) {
	tp.t.Helper()
	out, err := tp.run(args...).CombinedOutput()
	require.Error(tp.t, err, "forge %v expected to fail but succeeded:\n%s", args, string(out))
	var exitErr *exec.ExitError
	require.True(tp.t, errors.As(err, &exitErr), "expected *exec.ExitError, got %T: %v", err, err)
	return string(out), exitErr.ExitCode()
}
