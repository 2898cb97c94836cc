package workflow

import (
	"context"
	"fmt"
	"testing"

	"github.com/AbdelazizMoustafa10m/forge/internal/action"
	"github.com/AbdelazizMoustafa10m/forge/internal/logging"
)

func benchData() Data {
	d := Data{}
	for i := 0; i < 20; i++ {
		d[fmt.Sprintf("field_%d", i)] = fmt.Sprintf("value-%d", i)
	}
	d[ThreadFlagKey(2)] = true
	return d
}

// BenchmarkEncodeState measures encoding a typical form-sized data map.
func BenchmarkEncodeState(b *testing.B) {
	d := benchData()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := EncodeState(d); err != nil {
			b.Fatalf("EncodeState: %v", err)
		}
	}
}

// BenchmarkDecodeState measures decoding and checksum verification.
func BenchmarkDecodeState(b *testing.B) {
	encoded, err := EncodeState(benchData())
	if err != nil {
		b.Fatalf("EncodeState: %v", err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := DecodeState(encoded); err != nil {
			b.Fatalf("DecodeState: %v", err)
		}
	}
}

// BenchmarkPrepareNext measures one full request: restore from hidden
// fields, apply NEXT on a plain step and render the landed step.
func BenchmarkPrepareNext(b *testing.B) {
	reg := action.NewRegistry(action.WithRegistryLogger(logging.Discard()))
	wf := New("bench", reg, WithLogger(logging.Discard()))
	for i := 0; i < 5; i++ {
		wf.AddStep(NewStep(fmt.Sprintf("s%d", i), nil))
	}
	state, err := EncodeState(benchData())
	if err != nil {
		b.Fatalf("EncodeState: %v", err)
	}
	form := Submission{FieldCurrentStep: "0", FieldState: state, KeyNext: "", "item": "A"}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := wf.Prepare(ctx, form); err != nil {
			b.Fatalf("Prepare: %v", err)
		}
		if err := wf.AddDisplay(&recorder{}); err != nil {
			b.Fatalf("AddDisplay: %v", err)
		}
	}
}
