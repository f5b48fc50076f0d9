package changesetio

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/compozy/changeset/internal/domain"
)

// ReadDir reads every changeset file in dir (*.md, excluding README.md) and
// parses each, returning them sorted by path for deterministic ordering.
// A missing directory yields an empty slice, not an error: a project with
// no changeset directory yet has simply never run `init`.
func ReadDir(fs afero.Fs, dir string) ([]*domain.Changeset, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading changeset directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.EqualFold(name, "README.md") {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(name), ".md") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]*domain.Changeset, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		content, err := afero.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("reading changeset %s: %w", path, err)
		}
		cs, err := Parse(path, content)
		if err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, nil
}
