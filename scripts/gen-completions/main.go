// Command gen-completions writes the completion scripts of every supported
// shell by running "forge completion <shell>" in-process.
//
// Usage:
//
//	go run ./scripts/gen-completions [output-dir]
//
// The default output directory is "completions".
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AbdelazizMoustafa10m/forge/internal/cli"
)

func main() {
	outDir := "completions"
	if len(os.Args) > 1 {
		outDir = os.Args[1]
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir %q: %v\n", outDir, err)
		os.Exit(1)
	}

	files := map[string]string{
		"bash":       "forge.bash",
		"zsh":        "_forge",
		"fish":       "forge.fish",
		"powershell": "forge.ps1",
	}
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		path := filepath.Join(outDir, files[shell])
		if err := writeCompletion(path, shell); err != nil {
			fmt.Fprintf(os.Stderr, "error generating %s completion: %v\n", shell, err)
			os.Exit(1)
		}
		fmt.Printf("Generated %s\n", path)
	}

	fmt.Printf("All completions written to %s/\n", outDir)
}

func writeCompletion(path, shell string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	root := cli.RootCommand()
	root.SetOut(f)
	root.SetArgs([]string{"completion", shell})
	if err := root.Execute(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
