package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
)

// benchTOML is a forge.toml fixture with one multi-step workflow.
const benchTOML = `
[engine]
lock_timeout = "2s"
grace_delay = "500ms"
console_lines = 1000
log_entries = 500

[workflows.batch]
description = "bench"

[[workflows.batch.steps]]
name = "input"
[[workflows.batch.steps.fields]]
name = "item"

[[workflows.batch.steps]]
name = "process"
command = "echo ${item}"

[[workflows.batch.steps]]
name = "done"
allow_redo = true
`

func writeBenchConfig(b *testing.B) string {
	b.Helper()
	path := filepath.Join(b.TempDir(), ConfigFileName)
	if err := os.WriteFile(path, []byte(benchTOML), 0o644); err != nil {
		b.Fatalf("writing config: %v", err)
	}
	return path
}

// BenchmarkLoadFromFile measures parsing a typical forge.toml.
func BenchmarkLoadFromFile(b *testing.B) {
	path := writeBenchConfig(b)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := LoadFromFile(path); err != nil {
			b.Fatalf("LoadFromFile: %v", err)
		}
	}
}

// BenchmarkResolveAndValidate measures the full layering plus validation
// pass the CLI performs on every command.
func BenchmarkResolveAndValidate(b *testing.B) {
	var cfg Config
	md, err := toml.Decode(benchTOML, &cfg)
	if err != nil {
		b.Fatalf("decode: %v", err)
	}
	env := func(string) (string, bool) { return "", false }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rc := Resolve(NewDefaults(), &cfg, env, nil)
		if vr := Validate(rc.Config, &md); vr.HasErrors() {
			b.Fatalf("unexpected errors: %v", vr.Issues)
		}
	}
}
