package cmd

import (
	"fmt"

	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/workspace"
)

// discoverWorkspace runs discovery from the current directory, shared by
// every command that needs the package layout without running a full
// release or status pipeline.
func discoverWorkspace(c *container) (*domain.Workspace, error) {
	ws, err := workspace.Discover(c.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("discovering workspace: %w", err)
	}
	return ws, nil
}
