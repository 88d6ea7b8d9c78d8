package cli

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaded"
	"github.com/gogpu/shaded/backend/recorder"
	"github.com/gogpu/shaded/gpucore"
	"github.com/gogpu/shaded/shader"
)

var simpleProject = filepath.Join("..", "..", "project", "testdata", "simple")

func testCompiler() shader.Compiler {
	return shader.CompilerFunc(func(_ gpucore.Stage, source, _ string) ([]uint32, error) {
		if source == "" || strings.Contains(source, "error") {
			return nil, errors.New("syntax error")
		}
		return []uint32{0x07230203, 0x00010000, 0, 1, 0}, nil
	})
}

// execute runs the CLI on the recorder backend with the test compiler.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	opts := &RootOptions{compiler: testCompiler()}
	cmd := newRootCommand(opts)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(append([]string{"--backend", recorder.BackendName}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

// copyProject copies the simple project into a temporary directory.
func copyProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS(simpleProject)))
	return dir
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "shaded", cmd.Use)
	assert.Contains(t, cmd.Long, "shaded.toml")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"render", "trace", "check", "watch", "backends"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verbose := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verbose)
	assert.Equal(t, "v", verbose.Shorthand)
	assert.Equal(t, "false", verbose.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("backend"))
}

func TestCheckSimpleProject(t *testing.T) {
	out, err := execute(t, "check", simpleProject)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "check_simple", []byte(out))
}

func TestCheckReportsFailures(t *testing.T) {
	dir := copyProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaders", "post.wgsl"), []byte("error"), 0o600))

	out, err := execute(t, "check", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "ok     Simple")
	assert.Contains(t, out, "FAILED Post")
	assert.Contains(t, out, "syntax error")
	assert.Contains(t, out, "error [Post] Failed to compile the shader")
}

func TestCheckMissingProject(t *testing.T) {
	_, err := execute(t, "check", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderWritesImage(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frame.png")
	stdout, err := execute(t, "render", simpleProject, "--frames", "3", "--width", "16", "--height", "8", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "rendered 3 frame(s) at 16x8 on recorder")
	assert.Contains(t, stdout, "passes 2, compiles 4, failures 0")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestRenderImageFormats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.bmp", "b.tiff", "c.TIF"} {
		_, err := execute(t, "render", simpleProject, "--width", "4", "--height", "4", "--out", filepath.Join(dir, name))
		require.NoError(t, err, name)
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	_, err := execute(t, "render", simpleProject, "--out", filepath.Join(dir, "d.gif"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderInvalidFrames(t *testing.T) {
	_, err := execute(t, "render", simpleProject, "--frames", "0")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderUsesSettingsFile(t *testing.T) {
	dir := copyProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaded.toml"), []byte("width = 20\nheight = 10\n"), 0o600))

	out, err := execute(t, "render", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "at 20x10")

	cfg := filepath.Join(t.TempDir(), "other.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("width = 30\nheight = 15\n"), 0o600))
	out, err = execute(t, "--config", cfg, "render", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "at 30x15")
}

func TestRenderBadSettings(t *testing.T) {
	dir := copyProject(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "shaded.toml"), []byte("throttle = \"soon\"\n"), 0o600))

	_, err := execute(t, "render", dir)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRenderUnknownBackend(t *testing.T) {
	opts := &RootOptions{compiler: testCompiler()}
	cmd := newRootCommand(opts)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--backend", "no-such-backend", "render", simpleProject})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceOutput(t *testing.T) {
	out, err := execute(t, "trace", simpleProject, "--width", "8", "--height", "8")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	assert.True(t, strings.HasPrefix(lines[0], "CreateRenderTarget"), lines[0])
	assert.Equal(t, 3, strings.Count(out, "\nDraw "))
	assert.Contains(t, out, "SetBlendState")
}

func TestWatchStopsAfterDuration(t *testing.T) {
	out, err := execute(t, "watch", simpleProject, "--width", "8", "--height", "8",
		"--interval", "10ms", "--duration", "100ms")
	require.NoError(t, err)
	assert.Contains(t, out, "watching 2 shader file(s)")
	assert.Contains(t, out, "stopped after")
}

func TestBackendsListsRecorder(t *testing.T) {
	out, err := execute(t, "backends")
	require.NoError(t, err)
	assert.Contains(t, strings.Split(strings.TrimSpace(out), "\n"), recorder.BackendName)
}

func TestVerboseLogsToStderr(t *testing.T) {
	t.Cleanup(func() { shaded.SetLogger(nil) })
	out, err := execute(t, "--verbose", "render", simpleProject, "--width", "4", "--height", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "engine created")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad", errors.New("cause"))))

	err := WrapExitError(ExitFailure, "frame failed", errors.New("boom"))
	assert.Equal(t, "frame failed: boom", err.Error())
	assert.Equal(t, "no passes", NewExitError(ExitFailure, "no passes").Error())
}
