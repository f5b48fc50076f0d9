package changesetio

import (
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/compozy/changeset/internal/domain"
)

// Serialize renders a changeset back to its on-disk form: a YAML
// front-matter block with deterministic key order (category,
// consumedForPrerelease, graduate, then packages sorted by name),
// followed by the summary body. Default-valued reserved fields are
// omitted, matching the file format's "omit defaults" contract.
func Serialize(cs *domain.Changeset) ([]byte, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	addPair := func(key string, value *yaml.Node) {
		keyNode := &yaml.Node{Kind: yaml.ScalarNode, Value: key}
		node.Content = append(node.Content, keyNode, value)
	}
	scalar := func(v string) *yaml.Node { return &yaml.Node{Kind: yaml.ScalarNode, Value: v} }
	boolScalar := func(v bool) *yaml.Node {
		s := "false"
		if v {
			s = "true"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: s}
	}

	if cs.Category != domain.DefaultCategory {
		addPair("category", scalar(cs.Category.String()))
	}
	if cs.ConsumedForPrerelease != "" {
		addPair("consumedForPrerelease", scalar(cs.ConsumedForPrerelease))
	}
	if cs.Graduate {
		addPair("graduate", boolScalar(true))
	}

	releases := make([]domain.PackageRelease, len(cs.Releases))
	copy(releases, cs.Releases)
	sort.Slice(releases, func(i, j int) bool { return releases[i].Name < releases[j].Name })
	for _, r := range releases {
		addPair(r.Name, scalar(r.Bump.String()))
	}

	yamlBytes, err := yaml.Marshal(node)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(yamlBytes)
	b.WriteString("---\n\n")
	b.WriteString(strings.TrimSpace(cs.Summary))
	b.WriteString("\n")

	return []byte(b.String()), nil
}
