package main_test

import (
	"os/exec"
	"testing"
)

// BenchmarkBinaryStartup measures process launch to exit for "forge version".
// The binary is built once before the timer starts.
func BenchmarkBinaryStartup(b *testing.B) {
	binPath := buildForge(b)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if err := exec.Command(binPath, "version").Run(); err != nil {
			b.Fatalf("forge version failed: %v", err)
		}
	}
}

// BenchmarkBinaryWorkflows measures "forge workflows --json", which also
// resolves configuration and builds the workflow catalog.
func BenchmarkBinaryWorkflows(b *testing.B) {
	binPath := buildForge(b)
	dir := b.TempDir()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		cmd := exec.Command(binPath, "workflows", "--json")
		cmd.Dir = dir
		if err := cmd.Run(); err != nil {
			b.Fatalf("forge workflows failed: %v", err)
		}
	}
}
