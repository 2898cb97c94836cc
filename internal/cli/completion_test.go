package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletionCmd_Shells(t *testing.T) {
	tests := []struct {
		shell string
		want  string
	}{
		{shell: "bash", want: "__start_forge"},
		{shell: "zsh", want: "#compdef forge"},
		{shell: "fish", want: "complete -c forge"},
		{shell: "powershell", want: "Register-ArgumentCompleter"},
	}
	for _, tt := range tests {
		t.Run(tt.shell, func(t *testing.T) {
			resetRootCmd(t)
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetArgs([]string{"completion", tt.shell})

			require.Equal(t, 0, Execute())
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestCompletionCmd_GeneratorForEveryValidArg(t *testing.T) {
	for _, shell := range completionCmd.ValidArgs {
		assert.Contains(t, completionGenerators, shell)
	}
	assert.Len(t, completionGenerators, len(completionCmd.ValidArgs))
}

func TestCompletionCmd_RejectsArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no shell", args: []string{"completion"}},
		{name: "unknown shell", args: []string{"completion", "tcsh"}},
		{name: "case sensitive", args: []string{"completion", "Bash"}},
		{name: "extra args", args: []string{"completion", "bash", "zsh"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetRootCmd(t)
			_, stderr, code := captureOutput(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.NotEmpty(t, stderr)
		})
	}
}

func TestCompletionCmd_HelpListsShells(t *testing.T) {
	for _, want := range []string{"forge completion bash", "_forge", "forge.fish", "Invoke-Expression"} {
		assert.Contains(t, completionCmd.Long, want)
	}
}
