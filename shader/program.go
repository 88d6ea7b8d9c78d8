package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/shaded/gpucore"
)

// Program errors.
var (
	// ErrNoDevice is returned when a Program has no device to create stages on.
	ErrNoDevice = errors.New("shader: no device")

	// ErrNoCompiler is returned when a Program has no compiler.
	ErrNoCompiler = errors.New("shader: no compiler")
)

// Program is one compiled shader stage.
//
// A Program is exclusively owned by the pipeline cache entry that created
// it; Destroy releases the device stage.
type Program struct {
	stage    gpucore.Stage
	dev      gpucore.Device
	compiler Compiler
	label    string

	// InputSignature is the vertex input layout the stage is created
	// against. Only meaningful for vertex stages; nil means no vertex input.
	InputSignature *gpucore.InputLayout

	id         gpucore.ShaderID
	entryPoint string
	lastErr    error
	compiles   int
}

// NewProgram creates an empty stage. Nothing is compiled until
// LoadFromMemory succeeds.
func NewProgram(dev gpucore.Device, compiler Compiler, stage gpucore.Stage, label string) *Program {
	return &Program{
		stage:    stage,
		dev:      dev,
		compiler: compiler,
		label:    label,
	}
}

// LoadFromMemory compiles source and replaces the current stage.
//
// On failure it returns false and the previously compiled stage, if any,
// stays in place. The failure is available from LastError.
func (p *Program) LoadFromMemory(source, entryPoint string) bool {
	p.compiles++
	id, err := p.build(source, entryPoint)
	if err != nil {
		p.lastErr = err
		return false
	}
	if p.id != gpucore.InvalidID {
		p.dev.DestroyShader(p.id)
	}
	p.id = id
	p.entryPoint = entryPoint
	p.lastErr = nil
	return true
}

func (p *Program) build(source, entryPoint string) (gpucore.ShaderID, error) {
	if p.dev == nil {
		return gpucore.InvalidID, ErrNoDevice
	}
	if p.compiler == nil {
		return gpucore.InvalidID, ErrNoCompiler
	}
	words, err := p.compiler.Compile(p.stage, source, entryPoint)
	if err != nil {
		return gpucore.InvalidID, err
	}
	var layout *gpucore.InputLayout
	if p.stage == gpucore.StageVertex {
		layout = p.InputSignature
	}
	id, err := p.dev.CreateShader(p.stage, words, entryPoint, layout, p.label)
	if err != nil {
		return gpucore.InvalidID, fmt.Errorf("shader: create %s stage %q: %w", p.stage, p.label, err)
	}
	return id, nil
}

// Bind binds the compiled stage. It does nothing if the stage never
// compiled.
func (p *Program) Bind() {
	if p.id == gpucore.InvalidID {
		return
	}
	p.dev.BindShader(p.id)
}

// Destroy releases the device stage. The Program can be loaded again.
func (p *Program) Destroy() {
	if p.id != gpucore.InvalidID && p.dev != nil {
		p.dev.DestroyShader(p.id)
	}
	p.id = gpucore.InvalidID
	p.entryPoint = ""
}

// Stage returns the stage the program compiles for.
func (p *Program) Stage() gpucore.Stage { return p.stage }

// ID returns the device stage, or gpucore.InvalidID if nothing compiled.
func (p *Program) ID() gpucore.ShaderID { return p.id }

// Compiled reports whether a stage is currently available for binding.
func (p *Program) Compiled() bool { return p.id != gpucore.InvalidID }

// EntryPoint returns the entry point of the current stage.
func (p *Program) EntryPoint() string { return p.entryPoint }

// LastError returns the error of the most recent LoadFromMemory, or nil if
// it succeeded.
func (p *Program) LastError() error { return p.lastErr }

// Compiles returns how many times LoadFromMemory was called.
func (p *Program) Compiles() int { return p.compiles }

// Label returns the debug label the stage is created with.
func (p *Program) Label() string { return p.label }
