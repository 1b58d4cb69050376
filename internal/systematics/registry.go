// Package systematics is the catalog of named systematic variations and of
// the groups they belong to. The static table is fixed at compile time;
// campaigns may declare additional variations by name, which are appended
// after DynamicOffset. A Registry is immutable once constructed and safe for
// concurrent reads.
package systematics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownSystematic is returned for names or IDs that are not registered.
	ErrUnknownSystematic = errors.New("unknown systematic")
	// ErrDuplicateSystematic is returned when a dynamic name is declared twice
	// or shadows a static name.
	ErrDuplicateSystematic = errors.New("duplicate systematic")
)

// Registry resolves systematic names and IDs.
type Registry struct {
	variations []Variation
	byName     map[string]int
	byID       map[ID]int
	families   map[string][]ID
}

// New builds a registry from the static table plus the given name-declared
// variations, in declaration order.
func New(dynamic ...string) (*Registry, error) {
	r := &Registry{
		variations: make([]Variation, 0, len(staticTable)+len(dynamic)),
		byName:     make(map[string]int, len(staticTable)+len(dynamic)),
		byID:       make(map[ID]int, len(staticTable)+len(dynamic)),
		families:   make(map[string][]ID),
	}
	for _, v := range staticTable {
		r.insert(v)
	}
	for i, name := range dynamic {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("dynamic systematic #%d has an empty name", i)
		}
		if _, ok := r.byName[name]; ok {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSystematic, name)
		}
		r.insert(Variation{
			ID:          DynamicOffset + ID(i),
			Name:        name,
			Kind:        dynamicKind(name),
			FamilyIndex: -1,
		})
	}
	return r, nil
}

// Default returns a registry holding only the static table.
func Default() *Registry {
	r, err := New()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) insert(v Variation) {
	idx := len(r.variations)
	r.variations = append(r.variations, v)
	r.byName[v.Name] = idx
	r.byID[v.ID] = idx
	if v.Family != "" {
		r.families[v.Family] = append(r.families[v.Family], v.ID)
	}
}

// Resolve maps a name to its ID. Unknown names are an error: silently
// dropping a requested variation would bias every result derived from it.
func (r *Registry) Resolve(name string) (ID, error) {
	idx, ok := r.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSystematic, name)
	}
	return r.variations[idx].ID, nil
}

// NameOf maps an ID to its name.
func (r *Registry) NameOf(id ID) (string, error) {
	v, ok := r.Lookup(id)
	if !ok {
		return "", fmt.Errorf("%w: id %d", ErrUnknownSystematic, id)
	}
	return v.Name, nil
}

// Lookup returns the variation with the given ID.
func (r *Registry) Lookup(id ID) (Variation, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return Variation{}, false
	}
	return r.variations[idx], true
}

// GroupsOf returns the group bitmask of a variation, 0 for unknown IDs.
func (r *Registry) GroupsOf(id ID) Group {
	v, _ := r.Lookup(id)
	return v.Groups
}

// MembersOf returns the IDs whose groups intersect g, in registry order.
func (r *Registry) MembersOf(g Group) []ID {
	var out []ID
	for _, v := range r.variations {
		if v.Groups&g != 0 {
			out = append(out, v.ID)
		}
	}
	return out
}

// Family returns the ordered components of a breakdown family, identified by
// its head variation (e.g. "btagSF_up").
func (r *Registry) Family(head string) ([]ID, error) {
	ids, ok := r.families[head]
	if !ok {
		return nil, fmt.Errorf("%w: no breakdown family %q", ErrUnknownSystematic, head)
	}
	out := make([]ID, len(ids))
	copy(out, ids)
	return out, nil
}

// Families returns the names of all breakdown families, sorted.
func (r *Registry) Families() []string {
	out := make([]string, 0, len(r.families))
	for head := range r.families {
		out = append(out, head)
	}
	sort.Strings(out)
	return out
}

// Partner returns the opposite shift of an up/down paired variation.
func (r *Registry) Partner(id ID) (ID, bool) {
	v, ok := r.Lookup(id)
	if !ok {
		return 0, false
	}
	var other string
	switch {
	case strings.HasSuffix(v.Name, "_up"):
		other = strings.TrimSuffix(v.Name, "_up") + "_down"
	case strings.HasSuffix(v.Name, "_down"):
		other = strings.TrimSuffix(v.Name, "_down") + "_up"
	default:
		return 0, false
	}
	pid, err := r.Resolve(other)
	if err != nil {
		return 0, false
	}
	return pid, true
}

// All returns every variation in registry order.
func (r *Registry) All() []Variation {
	out := make([]Variation, len(r.variations))
	copy(out, r.variations)
	return out
}
