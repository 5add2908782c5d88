package naming

import (
	"fmt"
	"strings"
)

// Component is one segment of a hierarchical name
type Component struct {
	ID   string
	Kind string
}

// String renders the component in stringified-name syntax ("id" or "id.kind")
func (c Component) String() string {
	id := escape(c.ID)
	if c.Kind == "" {
		return id
	}
	return id + "." + escape(c.Kind)
}

// Name is an ordered sequence of components, resolved relative to a context
type Name []Component

// NewName builds a name from plain identifiers with empty kinds
func NewName(ids ...string) Name {
	name := make(Name, len(ids))
	for i, id := range ids {
		name[i] = Component{ID: id}
	}
	return name
}

// String renders the name as "a/b.kind/c"
func (n Name) String() string {
	parts := make([]string, len(n))
	for i, c := range n {
		parts[i] = c.String()
	}
	return strings.Join(parts, "/")
}

// Validate rejects empty names and components with an empty id
func (n Name) Validate() error {
	if len(n) == 0 {
		return fmt.Errorf("empty name")
	}
	for i, c := range n {
		if c.ID == "" && c.Kind == "" {
			return fmt.Errorf("name component %d is empty", i)
		}
	}
	return nil
}

// First returns the leading component id, or "" for an empty name
func (n Name) First() string {
	if len(n) == 0 {
		return ""
	}
	return n[0].ID
}

// ParseName parses the stringified form produced by Name.String. A backslash
// escapes '/', '.' and '\'.
func ParseName(s string) (Name, error) {
	if s == "" {
		return nil, fmt.Errorf("empty name")
	}

	var (
		name    Name
		current strings.Builder
		id      string
		inKind  bool
		escaped bool
	)

	flush := func() {
		if inKind {
			name = append(name, Component{ID: id, Kind: current.String()})
		} else {
			name = append(name, Component{ID: current.String()})
		}
		current.Reset()
		id = ""
		inKind = false
	}

	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '/':
			flush()
		case r == '.' && !inKind:
			id = current.String()
			current.Reset()
			inKind = true
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		return nil, fmt.Errorf("dangling escape in %q", s)
	}
	flush()

	if err := name.Validate(); err != nil {
		return nil, fmt.Errorf("invalid name %q: %w", s, err)
	}
	return name, nil
}

func escape(s string) string {
	if !strings.ContainsAny(s, `/.\`) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r == '/' || r == '.' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// BindingType distinguishes object bindings from sub-context bindings
type BindingType string

const (
	BindingObject  BindingType = "object"
	BindingContext BindingType = "context"
)

// Binding is one entry of a naming context
type Binding struct {
	Name Name
	Type BindingType
}
