// Package changesetio parses and serializes changeset files: a YAML
// front-matter block (package-name -> bump map plus a few reserved keys)
// followed by a markdown summary body, grounded on
// NatoNathan-shipyard's internal/consignment package and paired with the
// adrg/frontmatter library that shipyard's stack favors for this split.
package changesetio

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/adrg/frontmatter"

	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/version"
)

// reservedKeys are front-matter keys that are not package names.
var reservedKeys = map[string]bool{
	"category":              true,
	"consumedForPrerelease": true,
	"graduate":              true,
}

// rawFrontmatter captures the three reserved keys structurally; remaining
// keys (package names) are recovered from a second, untyped pass since
// their key set is open-ended.
type rawFrontmatter struct {
	Category              string `yaml:"category"`
	ConsumedForPrerelease string `yaml:"consumedForPrerelease"`
	Graduate              bool   `yaml:"graduate"`
}

// Parse reads a changeset file's raw bytes into a domain.Changeset. path is
// recorded on the result for later compensation/deletion bookkeeping.
func Parse(path string, content []byte) (*domain.Changeset, error) {
	var typed rawFrontmatter
	var untyped map[string]any

	body, err := frontmatter.Parse(bytes.NewReader(content), &typed)
	if err != nil {
		return nil, fmt.Errorf("changeset %s: parsing front matter: %w", path, err)
	}
	if _, err := frontmatter.Parse(bytes.NewReader(content), &untyped); err != nil {
		return nil, fmt.Errorf("changeset %s: parsing front matter: %w", path, err)
	}

	category, err := domain.ParseCategory(typed.Category)
	if err != nil {
		return nil, fmt.Errorf("changeset %s: %w", path, err)
	}

	cs := &domain.Changeset{
		Path:                  path,
		Summary:               trimBody(body),
		Category:              category,
		ConsumedForPrerelease: typed.ConsumedForPrerelease,
		Graduate:              typed.Graduate,
	}

	names := make([]string, 0, len(untyped))
	for key := range untyped {
		if reservedKeys[key] {
			continue
		}
		names = append(names, key)
	}
	sort.Strings(names)

	for _, name := range names {
		raw, ok := untyped[name].(string)
		if !ok {
			return nil, fmt.Errorf("changeset %s: package %q has a non-string bump value", path, name)
		}
		bump, err := version.ParseBumpLevel(raw)
		if err != nil {
			return nil, fmt.Errorf("changeset %s: package %q: %w", path, name, err)
		}
		cs.Releases = append(cs.Releases, domain.PackageRelease{Name: name, Bump: bump})
	}

	if err := cs.Validate(); err != nil {
		return nil, err
	}
	return cs, nil
}

func trimBody(body []byte) string {
	s := string(body)
	for len(s) > 0 && (s[0] == '\n' || s[0] == '\r') {
		s = s[1:]
	}
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}
