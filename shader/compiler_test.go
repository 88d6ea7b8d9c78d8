package shader

import (
	"errors"
	"testing"

	"github.com/gogpu/shaded/gpucore"
)

const triangleWGSL = `
@vertex
fn vs_main(@location(0) pos: vec3<f32>) -> @builtin(position) vec4<f32> {
    return vec4<f32>(pos, 1.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.5, 0.0, 1.0);
}
`

func TestNagaCompilerCompiles(t *testing.T) {
	c := NewNagaCompiler(0)

	words, err := c.Compile(gpucore.StageVertex, triangleWGSL, "vs_main")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(words) == 0 || words[0] != 0x07230203 {
		t.Fatalf("expected SPIR-V magic, got %v", words[:min(len(words), 1)])
	}

	// The pixel stage of the same file reuses the cached module.
	if _, err := c.Compile(gpucore.StagePixel, triangleWGSL, "fs_main"); err != nil {
		t.Fatalf("Compile pixel: %v", err)
	}
	s := c.CacheStats()
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", s)
	}
}

func TestNagaCompilerErrors(t *testing.T) {
	c := NewNagaCompiler(4)

	tests := []struct {
		name   string
		stage  gpucore.Stage
		source string
		entry  string
		want   error
	}{
		{"empty source", gpucore.StageVertex, "", "vs_main", ErrEmptySource},
		{"missing entry", gpucore.StageVertex, triangleWGSL, "main", ErrEntryPointNotFound},
		{"wrong stage", gpucore.StagePixel, triangleWGSL, "vs_main", ErrEntryPointNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Compile(tt.stage, tt.source, tt.entry)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestNagaCompilerMalformedSource(t *testing.T) {
	c := NewNagaCompiler(4)
	src := "@vertex fn vs_main( -> {"
	if _, err := c.Compile(gpucore.StageVertex, src, "vs_main"); err == nil {
		t.Fatal("expected malformed WGSL to fail")
	}
	if c.CacheStats().Len != 0 {
		t.Error("expected failed compile not to be cached")
	}
}

func TestCheckEntryPoint(t *testing.T) {
	if err := checkEntryPoint(gpucore.StageVertex, "@vertex\nfn   main() {}", "main"); err != nil {
		t.Errorf("expected multi-line attribute to match, got %v", err)
	}
	if err := checkEntryPoint(gpucore.StagePixel, "@fragment fn main2() {}", "main"); err == nil {
		t.Error("expected prefix name not to match")
	}
}
