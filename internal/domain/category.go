package domain

import "fmt"

// Category is a changeset's change-category, matching the "keep a changelog"
// style sections the changelog adapter groups entries under.
type Category int

const (
	CategoryChanged Category = iota // default
	CategoryAdded
	CategoryFixed
	CategorySecurity
	CategoryDeprecated
	CategoryRemoved
)

// DefaultCategory is the category assumed when a changeset omits one.
const DefaultCategory = CategoryChanged

func (c Category) String() string {
	switch c {
	case CategoryAdded:
		return "added"
	case CategoryChanged:
		return "changed"
	case CategoryFixed:
		return "fixed"
	case CategorySecurity:
		return "security"
	case CategoryDeprecated:
		return "deprecated"
	case CategoryRemoved:
		return "removed"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Heading is the changelog section heading for this category.
func (c Category) Heading() string {
	switch c {
	case CategoryAdded:
		return "Added"
	case CategoryChanged:
		return "Changed"
	case CategoryFixed:
		return "Fixed"
	case CategorySecurity:
		return "Security"
	case CategoryDeprecated:
		return "Deprecated"
	case CategoryRemoved:
		return "Removed"
	default:
		return c.String()
	}
}

// ParseCategory parses the lowercase textual form used in changeset files.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "", "changed":
		return CategoryChanged, nil
	case "added":
		return CategoryAdded, nil
	case "fixed":
		return CategoryFixed, nil
	case "security":
		return CategorySecurity, nil
	case "deprecated":
		return CategoryDeprecated, nil
	case "removed":
		return CategoryRemoved, nil
	default:
		return 0, fmt.Errorf("invalid change category %q", s)
	}
}
