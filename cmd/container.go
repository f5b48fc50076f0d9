package cmd

import (
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/compozy/changeset/internal/config"
	"github.com/compozy/changeset/internal/logging"
	"github.com/compozy/changeset/internal/release"
	"github.com/compozy/changeset/internal/releasestate"
	"github.com/compozy/changeset/internal/vcs"
)

// container holds every dependency the commands wire into the release,
// status, and verify pipelines, generalized from the teacher's
// cmd/container.go (which bundled fsRepo/gitRepo/ghRepo/cliffSvc/npmSvc) to
// this spec's afero.Fs / vcs.Adapter / releasestate.Store / zap.Logger set.
type container struct {
	cfg    *config.Config
	fs     afero.Fs
	vcs    vcs.Adapter
	state  *releasestate.Store
	logger *zap.Logger
}

// newContainer loads configuration and opens the repository at the current
// directory, the way the teacher's newContainer loads config and opens its
// git repository before any command runs.
func newContainer(verbose bool) (*container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	logger, err := logging.New(verbose)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	fs := afero.NewOsFs()

	adapter, err := vcs.Open(".")
	if err != nil {
		return nil, fmt.Errorf("opening repository: %w", err)
	}

	store := releasestate.New(fs, cfg.ChangesetDir)

	return &container{
		cfg:    cfg,
		fs:     fs,
		vcs:    adapter,
		state:  store,
		logger: logger,
	}, nil
}

// releaseContext adapts the container into the *release.Context the
// release/status/verify pipelines take, mirroring how the teacher's
// container hands gitRepo/fsRepo down to its orchestrators.
func (c *container) releaseContext() *release.Context {
	return &release.Context{
		FS:         c.fs,
		VCS:        c.vcs,
		StateStore: c.state,
		Logger:     c.logger,
	}
}
