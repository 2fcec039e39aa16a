package stage

import (
	"fmt"

	"github.com/kingrea/mtprep/internal/artifact"
	"github.com/kingrea/mtprep/internal/command"
	"github.com/kingrea/mtprep/internal/config"
	"github.com/kingrea/mtprep/internal/logging"
)

// Context carries shared runtime dependencies into every stage.
type Context struct {
	Config *config.Config
	Store  *artifact.Store
	Logger *logging.Logger
	Runner command.Runner
}

// NewContext builds a Context with a manifest store rooted at the configured
// manifests directory.
func NewContext(cfg *config.Config, logger *logging.Logger, runner command.Runner) *Context {
	return &Context{
		Config: cfg,
		Store:  artifact.NewStore(cfg.ManifestsDir()),
		Logger: logger,
		Runner: runner,
	}
}

// WithRunner allows dependency injection of another command runner.
func (sc *Context) WithRunner(runner command.Runner) *Context {
	clone := *sc
	clone.Runner = runner
	return &clone
}

// Validate ensures the context carries what stages need.
func (sc *Context) Validate(stageID string) error {
	if sc == nil {
		return fmt.Errorf("%s: stage context is required", stageID)
	}
	if sc.Config == nil {
		return fmt.Errorf("%s: config is required", stageID)
	}
	if sc.Store == nil {
		return fmt.Errorf("%s: manifest store is required", stageID)
	}
	return nil
}
