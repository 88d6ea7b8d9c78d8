package shader

import (
	"errors"
	"fmt"
	"hash/fnv"
	"regexp"

	"github.com/gogpu/naga"

	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/internal/cache"
)

// DefaultModuleCacheSize is the number of compiled modules NagaCompiler keeps.
const DefaultModuleCacheSize = 64

// Compiler errors.
var (
	// ErrEmptySource is returned when there is no source text to compile.
	ErrEmptySource = errors.New("shader: empty source")

	// ErrEntryPointNotFound is returned when the source has no entry point
	// with the requested name for the requested stage.
	ErrEntryPointNotFound = errors.New("shader: entry point not found")
)

// Compiler turns stage source text into SPIR-V words.
type Compiler interface {
	Compile(stage gpucore.Stage, source, entryPoint string) ([]uint32, error)
}

// CompilerFunc adapts a function to the Compiler interface.
type CompilerFunc func(stage gpucore.Stage, source, entryPoint string) ([]uint32, error)

// Compile implements Compiler.
func (f CompilerFunc) Compile(stage gpucore.Stage, source, entryPoint string) ([]uint32, error) {
	return f(stage, source, entryPoint)
}

// NagaCompiler compiles WGSL with gogpu/naga.
//
// naga emits one module holding every entry point of the source, so modules
// are cached by source digest and shared between the vertex and pixel stages
// of a pass that live in the same file.
type NagaCompiler struct {
	modules *cache.Cache[uint64, []uint32]
}

// NewNagaCompiler creates a compiler caching up to cacheSize modules.
// cacheSize <= 0 selects DefaultModuleCacheSize.
func NewNagaCompiler(cacheSize int) *NagaCompiler {
	if cacheSize <= 0 {
		cacheSize = DefaultModuleCacheSize
	}
	return &NagaCompiler{modules: cache.New[uint64, []uint32](cacheSize)}
}

// Compile implements Compiler.
func (c *NagaCompiler) Compile(stage gpucore.Stage, source, entryPoint string) ([]uint32, error) {
	if source == "" {
		return nil, ErrEmptySource
	}
	if err := checkEntryPoint(stage, source, entryPoint); err != nil {
		return nil, err
	}
	return c.modules.GetOrCreate(digest(source), func() ([]uint32, error) {
		return CompileWGSL(source)
	})
}

// CacheStats reports module cache statistics.
func (c *NagaCompiler) CacheStats() cache.Stats {
	return c.modules.Stats()
}

// CompileWGSL compiles WGSL source to SPIR-V words.
func CompileWGSL(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, fmt.Errorf("shader: compile: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

var entryPointPattern = regexp.MustCompile(`@(vertex|fragment)\s+fn\s+([A-Za-z_][A-Za-z0-9_]*)`)

// checkEntryPoint verifies that source declares entryPoint for stage.
func checkEntryPoint(stage gpucore.Stage, source, entryPoint string) error {
	want := "vertex"
	if stage == gpucore.StagePixel {
		want = "fragment"
	}
	for _, m := range entryPointPattern.FindAllStringSubmatch(source, -1) {
		if m[1] == want && m[2] == entryPoint {
			return nil
		}
	}
	return fmt.Errorf("%w: @%s fn %s", ErrEntryPointNotFound, want, entryPoint)
}

func digest(source string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(source))
	return h.Sum64()
}
