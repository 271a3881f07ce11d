// Package classes keeps the set of class labels defined in a session and
// maps them to the integer indices used by the export formats.
//
// With the default OrderSorted the index of a class is its position in the
// lexicographically sorted member set, recomputed from the current members.
// Registering a name that sorts before existing ones shifts their indices, so
// an index stored earlier may resolve to a different name later. OrderInsertion
// freezes each index at first registration instead.
package classes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/menta2k/roi-annotator/pkg/types"
)

// Ordering selects how indices are derived from the member set.
type Ordering int

const (
	// OrderSorted derives indices from the sorted member set.
	OrderSorted Ordering = iota
	// OrderInsertion assigns indices in registration order and never reorders.
	OrderInsertion
)

// String returns the config spelling of o.
func (o Ordering) String() string {
	switch o {
	case OrderInsertion:
		return "insertion"
	default:
		return "sorted"
	}
}

// ParseOrdering parses "sorted" or "insertion".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sorted":
		return OrderSorted, nil
	case "insertion":
		return OrderInsertion, nil
	default:
		return OrderSorted, fmt.Errorf("unknown class ordering: %s", s)
	}
}

// Registry is an ordered set of class names.
type Registry struct {
	ordering Ordering
	members  map[string]struct{}
	inserted []string
	sorted   []string // cache, nil when stale
}

// New creates an empty registry with sorted ordering
func New() *Registry {
	return NewWithOrdering(OrderSorted)
}

// NewWithOrdering creates an empty registry with the given ordering
func NewWithOrdering(ordering Ordering) *Registry {
	return &Registry{
		ordering: ordering,
		members:  make(map[string]struct{}),
	}
}

// Ordering reports the registry's ordering mode.
func (r *Registry) Ordering() Ordering {
	return r.ordering
}

// Register adds name if it is not already present.
func (r *Registry) Register(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("register %q: %w", name, types.ErrInvalidClassName)
	}
	if _, ok := r.members[name]; ok {
		return nil
	}
	r.members[name] = struct{}{}
	r.inserted = append(r.inserted, name)
	r.sorted = nil
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.members[name]
	return ok
}

// Len returns the number of registered classes.
func (r *Registry) Len() int {
	return len(r.inserted)
}

// IndexOf returns the current index of name.
func (r *Registry) IndexOf(name string) (int, error) {
	if !r.Has(name) {
		return -1, fmt.Errorf("class %q: %w", name, types.ErrUnknownClass)
	}
	for i, n := range r.order() {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("class %q: %w", name, types.ErrUnknownClass)
}

// NameAt returns the class at index.
func (r *Registry) NameAt(index int) (string, error) {
	names := r.order()
	if index < 0 || index >= len(names) {
		return "", fmt.Errorf("class index %d (size %d): %w", index, len(names), types.ErrIndexOutOfRange)
	}
	return names[index], nil
}

// Names returns a copy of the class names in index order.
func (r *Registry) Names() []string {
	names := r.order()
	out := make([]string, len(names))
	copy(out, names)
	return out
}

func (r *Registry) order() []string {
	if r.ordering == OrderInsertion {
		return r.inserted
	}
	if r.sorted == nil {
		r.sorted = make([]string, len(r.inserted))
		copy(r.sorted, r.inserted)
		sort.Strings(r.sorted)
	}
	return r.sorted
}
