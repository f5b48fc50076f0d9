package domain

// PrereleaseState maps package name to the prerelease identifier ("alpha",
// "beta", "rc", or a user-supplied lowercase alphanumeric+hyphen tag)
// currently in effect for that package. Persisted alongside the changeset
// directory; absent from disk iff empty (invariant 5).
type PrereleaseState map[string]string

// IsEmpty reports whether the state has no entries.
func (s PrereleaseState) IsEmpty() bool { return len(s) == 0 }

// Tag returns the persisted tag for name, and whether one is set.
func (s PrereleaseState) Tag(name string) (string, bool) {
	tag, ok := s[name]
	return tag, ok
}

// Clone returns an independent copy.
func (s PrereleaseState) Clone() PrereleaseState {
	out := make(PrereleaseState, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// GraduationState is the set of package names queued for 0.x -> 1.0.0
// promotion. Persisted as an ordered array; absent from disk iff empty.
type GraduationState struct {
	names []string
	set   map[string]bool
}

// NewGraduationState builds a GraduationState from an ordered list of names,
// de-duplicating while preserving first-appearance order.
func NewGraduationState(names []string) GraduationState {
	g := GraduationState{set: make(map[string]bool, len(names))}
	for _, n := range names {
		if !g.set[n] {
			g.set[n] = true
			g.names = append(g.names, n)
		}
	}
	return g
}

// Names returns the package names in persisted order.
func (g GraduationState) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// IsEmpty reports whether the state has no entries.
func (g GraduationState) IsEmpty() bool { return len(g.names) == 0 }

// Contains reports whether name is queued for graduation.
func (g GraduationState) Contains(name string) bool { return g.set[name] }

// Add returns a new GraduationState with name appended if not already present.
func (g GraduationState) Add(name string) GraduationState {
	return NewGraduationState(append(g.Names(), name))
}

// Remove returns a new GraduationState with name removed.
func (g GraduationState) Remove(name string) GraduationState {
	out := make([]string, 0, len(g.names))
	for _, n := range g.names {
		if n != name {
			out = append(out, n)
		}
	}
	return NewGraduationState(out)
}
