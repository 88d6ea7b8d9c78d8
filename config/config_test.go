package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/shaded/pipecache"
	"github.com/gogpu/shaded/watch"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "wgpu", cfg.Backend)
	assert.Equal(t, pipecache.DefaultThrottle, time.Duration(cfg.Throttle))
	assert.Equal(t, watch.DefaultDebounce, time.Duration(cfg.Watch.Debounce))
	assert.Equal(t, gputypes.Color{A: 1}, cfg.Color())
}

func TestLoadFull(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "full.toml"))
	require.NoError(t, err)

	assert.Equal(t, "recorder", cfg.Backend)
	assert.Equal(t, 250*time.Millisecond, time.Duration(cfg.Throttle))
	assert.Equal(t, [4]float64{0.25, 0.5, 0.75, 1}, cfg.ClearColor)
	assert.Equal(t, 16, cfg.CompileCacheSize)
	assert.Equal(t, 320, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
	assert.Equal(t, 40*time.Millisecond, time.Duration(cfg.Watch.Debounce))
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "partial.toml"))
	require.NoError(t, err)

	want := Default()
	want.Throttle = Duration(time.Second)
	assert.Equal(t, want, cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)

	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		invalid bool
	}{
		{"unknown key", "colour = 1\n", false},
		{"bad duration", "throttle = \"soon\"\n", false},
		{"wrong type", "width = \"wide\"\n", false},
		{"zero throttle", "throttle = \"0s\"\n", true},
		{"empty backend", "backend = \"\"\n", true},
		{"negative cache", "compile_cache_size = -1\n", true},
		{"zero width", "width = 0\n", true},
		{"negative debounce", "[watch]\ndebounce = \"-1s\"\n", true},
		{"color out of range", "clear_color = [0, 0, 2, 1]\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			if tt.invalid {
				assert.ErrorIs(t, err, ErrInvalid)
			}
		})
	}
}

func TestLoadOptionalReportsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte("width = -5\n"), 0o600))

	_, err := LoadOptional(path)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	cfg := Default()
	cfg.Backend = "recorder"
	cfg.Throttle = Duration(1500 * time.Millisecond)
	cfg.ClearColor = [4]float64{0.5, 0.25, 0, 1}
	cfg.Watch.Debounce = Duration(0)

	require.NoError(t, Save(path, cfg))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Regexp(t, `throttle = ['"]1.5s['"]`, string(data))

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestOptions(t *testing.T) {
	assert.Len(t, Default().Options(), 3)
}
