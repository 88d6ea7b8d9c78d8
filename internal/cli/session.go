package cli

import (
	"path/filepath"

	"github.com/gogpu/shaded"
	"github.com/gogpu/shaded/config"
	"github.com/gogpu/shaded/pipeline"
	"github.com/gogpu/shaded/project"
)

// session is an opened project with its settings and pipeline.
type session struct {
	cfg      config.Config
	loader   *project.Loader
	manifest *project.Manifest
	store    *pipeline.Store
	backend  string
}

// projectDir returns the directory argument or the working directory.
func projectDir(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// openSession loads settings and the manifest of the project in dir.
func openSession(opts *RootOptions, dir string) (*session, error) {
	loader, err := project.Open(dir)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open project", err)
	}

	var cfg config.Config
	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
	} else {
		cfg, err = config.LoadOptional(filepath.Join(loader.Dir(), config.DefaultFile))
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load settings", err)
	}

	manifest, err := loader.LoadManifest(project.DefaultManifest)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load manifest", err)
	}
	store, err := manifest.Build()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid manifest", err)
	}

	backend := cfg.Backend
	if opts.Backend != "" {
		backend = opts.Backend
	}
	return &session{cfg: cfg, loader: loader, manifest: manifest, store: store, backend: backend}, nil
}

// open creates an engine that owns a device of the session backend.
func (s *session) open(opts *RootOptions) (*shaded.Engine, error) {
	engineOpts := s.cfg.Options()
	if opts.compiler != nil {
		engineOpts = append(engineOpts, shaded.WithCompiler(opts.compiler))
	}
	eng, err := shaded.Open(s.backend, s.store, s.loader, engineOpts...)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open backend "+s.backend, err)
	}
	return eng, nil
}

// size returns the flag size, falling back to the settings.
func (s *session) size(width, height int) (int, int) {
	if width <= 0 {
		width = s.cfg.Width
	}
	if height <= 0 {
		height = s.cfg.Height
	}
	return width, height
}
