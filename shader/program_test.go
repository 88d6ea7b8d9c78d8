package shader

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/backend/recorder"
	"github.com/gogpu/shaded/gpucore"
)

// fakeCompiler accepts any source that does not contain "error".
func fakeCompiler() Compiler {
	return CompilerFunc(func(_ gpucore.Stage, source, _ string) ([]uint32, error) {
		if strings.Contains(source, "error") {
			return nil, errors.New("syntax error")
		}
		return []uint32{0x07230203, 0x00010000, 0, 1, 0}, nil
	})
}

func TestProgramLoadFromMemory(t *testing.T) {
	dev := recorder.New()
	p := NewProgram(dev, fakeCompiler(), gpucore.StagePixel, "pass")

	if p.Compiled() {
		t.Fatal("new program should not be compiled")
	}
	if !p.LoadFromMemory("ok", "fs_main") {
		t.Fatalf("LoadFromMemory failed: %v", p.LastError())
	}
	if !p.Compiled() || p.EntryPoint() != "fs_main" {
		t.Errorf("expected compiled fs_main, got compiled=%v entry=%q", p.Compiled(), p.EntryPoint())
	}
	if dev.LiveShaders() != 1 {
		t.Errorf("expected 1 live shader, got %d", dev.LiveShaders())
	}
}

func TestProgramFailureKeepsPreviousStage(t *testing.T) {
	dev := recorder.New()
	p := NewProgram(dev, fakeCompiler(), gpucore.StageVertex, "pass")

	if !p.LoadFromMemory("ok", "vs_main") {
		t.Fatal("first load failed")
	}
	before := p.ID()

	if p.LoadFromMemory("error here", "vs_main") {
		t.Fatal("expected malformed source to fail")
	}
	if p.ID() != before {
		t.Errorf("expected stage #%d to stay bound, got #%d", before, p.ID())
	}
	if p.LastError() == nil {
		t.Error("expected LastError after failure")
	}

	// A later success replaces the old stage and clears the error.
	if !p.LoadFromMemory("ok again", "vs_main") {
		t.Fatal("reload failed")
	}
	if p.ID() == before {
		t.Error("expected a new stage after successful reload")
	}
	if p.LastError() != nil {
		t.Errorf("expected nil LastError, got %v", p.LastError())
	}
	if dev.LiveShaders() != 1 {
		t.Errorf("expected old stage to be released, live=%d", dev.LiveShaders())
	}
	if p.Compiles() != 3 {
		t.Errorf("expected 3 compiles, got %d", p.Compiles())
	}
}

func TestProgramVertexStageUsesInputSignature(t *testing.T) {
	dev := recorder.New()
	p := NewProgram(dev, fakeCompiler(), gpucore.StageVertex, "pass")
	p.InputSignature = gpucore.NewInputLayout(
		gpucore.InputElement{Semantic: "POSITION", Format: gputypes.VertexFormatFloat32x3},
	)
	if !p.LoadFromMemory("ok", "vs_main") {
		t.Fatal("load failed")
	}

	cmd := dev.Commands()[0].(recorder.CreateShaderCommand)
	if cmd.Layout != "POSITION0:float32x3" {
		t.Errorf("expected layout POSITION0:float32x3, got %q", cmd.Layout)
	}
}

func TestProgramBindAndDestroy(t *testing.T) {
	dev := recorder.New()
	p := NewProgram(dev, fakeCompiler(), gpucore.StagePixel, "pass")

	p.Bind() // not compiled: no-op
	if dev.Count(recorder.CmdBindShader) != 0 {
		t.Error("expected no bind for an uncompiled program")
	}

	p.LoadFromMemory("ok", "fs_main")
	p.Bind()
	if dev.Count(recorder.CmdBindShader) != 1 {
		t.Error("expected one bind")
	}

	p.Destroy()
	if p.Compiled() || dev.LiveShaders() != 0 {
		t.Errorf("expected destroyed program, compiled=%v live=%d", p.Compiled(), dev.LiveShaders())
	}
	p.Destroy() // idempotent
}

func TestProgramWithoutDevice(t *testing.T) {
	p := NewProgram(nil, fakeCompiler(), gpucore.StagePixel, "pass")
	if p.LoadFromMemory("ok", "fs_main") {
		t.Fatal("expected failure without a device")
	}
	if !errors.Is(p.LastError(), ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", p.LastError())
	}
}

func TestProgramWithoutCompiler(t *testing.T) {
	dev := recorder.New()
	p := NewProgram(dev, nil, gpucore.StageVertex, "pass")
	if p.LoadFromMemory("ok", "vs_main") {
		t.Fatal("expected failure without a compiler")
	}
	if !errors.Is(p.LastError(), ErrNoCompiler) {
		t.Errorf("expected ErrNoCompiler, got %v", p.LastError())
	}
	if dev.LiveShaders() != 0 {
		t.Errorf("expected no stage created, got %d", dev.LiveShaders())
	}
}

func TestProgramDeviceRejection(t *testing.T) {
	dev := recorder.New()
	bad := CompilerFunc(func(gpucore.Stage, string, string) ([]uint32, error) {
		return []uint32{1, 2, 3}, nil
	})
	p := NewProgram(dev, bad, gpucore.StagePixel, "pass")
	if p.LoadFromMemory("ok", "fs_main") {
		t.Fatal("expected device to reject non-SPIR-V words")
	}
	if !errors.Is(p.LastError(), recorder.ErrInvalidSPIRV) {
		t.Errorf("expected wrapped ErrInvalidSPIRV, got %v", p.LastError())
	}
}
