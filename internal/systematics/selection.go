package systematics

import (
	"errors"
	"sort"
)

// Selection is the set of variations a campaign runs: every variation whose
// groups intersect the requested groups plus those requested by name.
type Selection struct {
	registry *Registry
	groups   Group
	explicit map[ID]struct{}
}

// Select resolves the requested groups and names. All unknown names are
// reported together.
func (r *Registry) Select(groups Group, names ...string) (*Selection, error) {
	s := &Selection{
		registry: r,
		groups:   groups,
		explicit: make(map[ID]struct{}, len(names)),
	}
	var errs []error
	for _, name := range names {
		id, err := r.Resolve(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.explicit[id] = struct{}{}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// Groups returns the requested group mask.
func (s *Selection) Groups() Group { return s.groups }

// IsSelected reports whether id is part of the campaign.
func (s *Selection) IsSelected(id ID) bool {
	if _, ok := s.explicit[id]; ok {
		return true
	}
	return s.registry.GroupsOf(id)&s.groups != 0
}

// IDs returns the selected IDs in registry order: static variations by ID,
// then name-declared variations in declaration order.
func (s *Selection) IDs() []ID {
	var out []ID
	for _, v := range s.registry.variations {
		if s.IsSelected(v.ID) {
			out = append(out, v.ID)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Variations returns the selected variations in registry order.
func (s *Selection) Variations() []Variation {
	ids := s.IDs()
	out := make([]Variation, 0, len(ids))
	for _, id := range ids {
		v, _ := s.registry.Lookup(id)
		out = append(out, v)
	}
	return out
}
