package auth

import "sort"

// PermissionSet is an unordered, deduplicated set of grants.
// Members are keyed by their canonical "METHOD@resource" string and compared
// by equality only; a stored string that is not a well-formed grant is kept
// as is and simply never matches a request.
//
// Use NewPermissionSet or PermissionSetFromStrings; the nil set is empty and
// read-only.
type PermissionSet map[string]struct{}

// NewPermissionSet creates a set holding the given grants
func NewPermissionSet(grants ...Grant) PermissionSet {
	s := make(PermissionSet, len(grants))
	for _, g := range grants {
		s.Add(g)
	}
	return s
}

// PermissionSetFromStrings creates a set from serialized grants, verbatim
func PermissionSetFromStrings(grants []string) PermissionSet {
	s := make(PermissionSet, len(grants))
	for _, g := range grants {
		s[g] = struct{}{}
	}
	return s
}

// Add inserts a grant
func (s PermissionSet) Add(g Grant) {
	s[g.String()] = struct{}{}
}

// Contains reports whether the grant is a member
func (s PermissionSet) Contains(g Grant) bool {
	return s.containsString(g.String())
}

func (s PermissionSet) containsString(grant string) bool {
	_, ok := s[grant]
	return ok
}

// Len returns the number of grants
func (s PermissionSet) Len() int {
	return len(s)
}

// IsEmpty reports whether the set holds no grants
func (s PermissionSet) IsEmpty() bool {
	return len(s) == 0
}

// Intersects reports whether the two sets share at least one grant
func (s PermissionSet) Intersects(other PermissionSet) bool {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	for g := range small {
		if large.containsString(g) {
			return true
		}
	}
	return false
}

// Union returns a new set with the members of both sets
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	out := make(PermissionSet, len(s)+len(other))
	for g := range s {
		out[g] = struct{}{}
	}
	for g := range other {
		out[g] = struct{}{}
	}
	return out
}

// Equal reports whether both sets hold exactly the same grants
func (s PermissionSet) Equal(other PermissionSet) bool {
	if len(s) != len(other) {
		return false
	}
	for g := range s {
		if !other.containsString(g) {
			return false
		}
	}
	return true
}

// Strings returns the serialized grants in sorted order
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(s))
	for g := range s {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// Grants returns the well-formed members as typed grants, sorted.
// Members that do not parse are skipped.
func (s PermissionSet) Grants() []Grant {
	out := make([]Grant, 0, len(s))
	for _, raw := range s.Strings() {
		g, err := ParseGrant(raw)
		if err != nil {
			continue
		}
		out = append(out, g)
	}
	return out
}
