package shaded

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/shaded/backend/recorder"
	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/pipecache"
	"github.com/gogpu/shaded/pipeline"
	"github.com/gogpu/shaded/pipeline/geometry"
	"github.com/gogpu/shaded/project"
	"github.com/gogpu/shaded/shader"
)

type testSource map[string]string

func (s testSource) LoadProjectFile(path string) string {
	if text, ok := s[path]; ok {
		return text
	}
	return "ok"
}

func testCompiler() shader.Compiler {
	return shader.CompilerFunc(func(_ gpucore.Stage, source, _ string) ([]uint32, error) {
		if source == "" || strings.Contains(source, "error") {
			return nil, errors.New("syntax error")
		}
		return []uint32{0x07230203, 0x00010000, 0, 1, 0}, nil
	})
}

func newTestStore(t *testing.T, names ...string) *pipeline.Store {
	t.Helper()
	store := pipeline.NewStore()
	for _, name := range names {
		pass := &pipeline.ShaderPass{
			VSPath: name + ".wgsl", VSEntry: "vs_main",
			PSPath: name + ".wgsl", PSEntry: "fs_main",
			VSInputLayout: geometry.Layout(),
			Items: []*pipeline.Item{
				pipeline.NewGeometry(name+"Mesh", pipeline.NewGeometryItem(geometry.Cube(1))),
			},
		}
		if _, err := store.Add(pipeline.NewShaderPass(name, pass)); err != nil {
			t.Fatal(err)
		}
	}
	return store
}

func TestNewRequiresDevice(t *testing.T) {
	if _, err := New(nil, newTestStore(t), testSource{}); !errors.Is(err, ErrNilDevice) {
		t.Errorf("expected ErrNilDevice, got %v", err)
	}
}

func TestEngineRenderCompilesOnce(t *testing.T) {
	dev := recorder.New()
	eng, err := New(dev, newTestStore(t, "A", "B"), testSource{}, WithCompiler(testCompiler()))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	for i := 0; i < 5; i++ {
		if err := eng.Render(32, 32); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	s := eng.Stats()
	if s.Creations != 2 || s.Compiles != 4 {
		t.Errorf("expected each pass compiled once, got %+v", s)
	}
	if eng.Frames() != 5 || eng.Vars().FrameIndex() != 5 {
		t.Errorf("expected 5 frames, got %d (frame index %d)", eng.Frames(), eng.Vars().FrameIndex())
	}
	if dev.Count(recorder.CmdDraw) != 10 {
		t.Errorf("expected 2 draws per frame, got %d", dev.Count(recorder.CmdDraw))
	}
}

func TestEngineTimeFollowsClock(t *testing.T) {
	clock := pipecache.NewManualClock(time.Unix(100, 0))
	eng, err := New(recorder.New(), newTestStore(t, "A"), testSource{},
		WithCompiler(testCompiler()), WithClock(clock))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	clock.Advance(2 * time.Second)
	if err := eng.Render(8, 8); err != nil {
		t.Fatal(err)
	}
	if got := eng.Vars().Time(); got != 2 {
		t.Errorf("expected time 2s, got %v", got)
	}
}

func TestEngineThrottleOption(t *testing.T) {
	clock := pipecache.NewManualClock(time.Unix(0, 0))
	store := newTestStore(t, "A", "B")
	eng, err := New(recorder.New(), store, testSource{},
		WithCompiler(testCompiler()), WithClock(clock), WithThrottleInterval(time.Second))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	if err := eng.Render(8, 8); err != nil {
		t.Fatal(err)
	}
	b, _ := store.Find("B")
	if err := store.Move(b.Handle(), 0); err != nil {
		t.Fatal(err)
	}

	clock.Advance(600 * time.Millisecond)
	_ = eng.Render(8, 8)
	if got := eng.Cache().Items()[0].Name; got != "A" {
		t.Errorf("reorder should wait for the 1s interval, first pass is %s", got)
	}

	clock.Advance(600 * time.Millisecond)
	_ = eng.Render(8, 8)
	if got := eng.Cache().Items()[0].Name; got != "B" {
		t.Errorf("expected the reorder once the interval passed, first pass is %s", got)
	}
}

func TestEngineRecompileAndDiagnostics(t *testing.T) {
	src := testSource{}
	eng, err := New(recorder.New(), newTestStore(t, "A"), src, WithCompiler(testCompiler()))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()
	if err := eng.Render(8, 8); err != nil {
		t.Fatal(err)
	}

	src["A.wgsl"] = "error"
	if !eng.Recompile("A") {
		t.Fatal("expected A to be found")
	}
	if !eng.Diagnostics().HasErrors() {
		t.Error("expected a diagnostic after a failed recompile")
	}
	if err := eng.Render(8, 8); err != nil {
		t.Errorf("a failed compile must not fail the frame: %v", err)
	}

	delete(src, "A.wgsl")
	eng.Recompile("A")
	if eng.Diagnostics().Len() != 0 {
		t.Errorf("expected diagnostics cleared, got %v", eng.Diagnostics().Messages())
	}
	if eng.Recompile("Nope") {
		t.Error("expected unknown pass to report false")
	}
}

func TestEngineFlushCache(t *testing.T) {
	dev := recorder.New()
	eng, err := New(dev, newTestStore(t, "A", "B"), testSource{}, WithCompiler(testCompiler()))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	_ = eng.Render(8, 8)
	eng.FlushCache()
	if dev.LiveShaders() != 0 || eng.Cache().Len() != 0 {
		t.Errorf("expected an empty cache, live shaders=%d", dev.LiveShaders())
	}
	_ = eng.Render(8, 8)
	if eng.Cache().Len() != 2 {
		t.Errorf("expected the next frame to rebuild, got %d entries", eng.Cache().Len())
	}
}

func TestEngineClose(t *testing.T) {
	dev := recorder.New()
	eng, err := New(dev, newTestStore(t, "A"), testSource{}, WithCompiler(testCompiler()))
	if err != nil {
		t.Fatal(err)
	}
	_ = eng.Render(8, 8)

	eng.Close()
	eng.Close()

	if dev.LiveShaders() != 0 || dev.LiveRenderTargets() != 0 {
		t.Errorf("expected everything released, shaders=%d targets=%d", dev.LiveShaders(), dev.LiveRenderTargets())
	}
	if dev.Closed() {
		t.Error("a device passed to New belongs to the caller")
	}
	if err := eng.Render(8, 8); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if _, err := eng.Capture(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestOpenOwnsDevice(t *testing.T) {
	eng, err := Open(recorder.BackendName, newTestStore(t, "A"), testSource{}, WithCompiler(testCompiler()))
	if err != nil {
		t.Fatal(err)
	}
	rec, ok := eng.Device().(*recorder.Recorder)
	if !ok {
		t.Fatalf("expected a recorder, got %T", eng.Device())
	}
	eng.Close()
	if !rec.Closed() {
		t.Error("expected Close to close a device opened by name")
	}

	if _, err := Open("no-such-backend", newTestStore(t), testSource{}); err == nil {
		t.Error("expected an error for an unknown backend")
	}
}

func TestEngineCapture(t *testing.T) {
	eng, err := New(recorder.New(), newTestStore(t, "A"), testSource{},
		WithCompiler(testCompiler()),
		WithClearColor(gputypes.Color{G: 1, A: 1}),
		WithTargetFormat(gputypes.TextureFormatBGRA8Unorm),
	)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	if err := eng.Render(3, 2); err != nil {
		t.Fatal(err)
	}
	img, err := eng.Capture()
	if err != nil {
		t.Fatal(err)
	}
	if c := img.RGBAAt(2, 1); c.G != 255 || c.R != 0 {
		t.Errorf("expected green, got %v", c)
	}
}

func TestEngineRendersProjectManifest(t *testing.T) {
	proj, err := project.Open("project/testdata/simple")
	if err != nil {
		t.Fatal(err)
	}
	manifest, err := proj.LoadManifest(project.DefaultManifest)
	if err != nil {
		t.Fatal(err)
	}
	store, err := manifest.Build()
	if err != nil {
		t.Fatal(err)
	}

	dev := recorder.New()
	eng, err := New(dev, store, proj, WithCompiler(testCompiler()))
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()

	if err := eng.Render(64, 64); err != nil {
		t.Fatal(err)
	}
	if eng.Diagnostics().Len() != 0 {
		t.Errorf("unexpected diagnostics %v", eng.Diagnostics().Messages())
	}
	if eng.Cache().Len() != 2 {
		t.Errorf("expected both passes cached, got %d", eng.Cache().Len())
	}
	if got := dev.Count(recorder.CmdDraw); got != 3 {
		t.Errorf("expected Box, Ground and Fullscreen draws, got %d", got)
	}
}
