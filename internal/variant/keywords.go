package variant

import (
	"encoding/json"
	"slices"
	"strings"
)

// Keywords is an unordered set of keyword tokens as listed by a keep-list entry.
// Order carries no meaning; duplicates are not expected.
type Keywords []string

// String renders the keywords space separated, in their stored order.
func (k Keywords) String() string {
	return strings.Join(k, " ")
}

// Matches reports whether a and b hold exactly the same keywords, regardless of order.
// A count mismatch is rejected before any element is compared, and two empty sets match.
func Matches(a, b Keywords) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}

	// Multiset removal scan on a local copy: each keyword of b must consume
	// one occurrence from a.
	remaining := make(map[string]int, len(a))
	for _, k := range a {
		remaining[k]++
	}
	for _, k := range b {
		n := remaining[k]
		if n == 0 {
			return false
		}
		remaining[k] = n - 1
	}
	return true
}

// KeywordSet is the mutable set of shader keywords enabled on one compiled variant.
// The zero value is an empty set ready to use.
type KeywordSet struct {
	set map[string]struct{}
}

// NewKeywordSet returns a set with the given keywords enabled.
func NewKeywordSet(keywords ...string) KeywordSet {
	s := KeywordSet{}
	for _, k := range keywords {
		s.Enable(k)
	}
	return s
}

// IsEnabled reports whether keyword is enabled.
func (s KeywordSet) IsEnabled(keyword string) bool {
	_, ok := s.set[keyword]
	return ok
}

// Enable adds keyword to the set. Empty keywords are ignored.
func (s *KeywordSet) Enable(keyword string) {
	if keyword == "" {
		return
	}
	if s.set == nil {
		s.set = make(map[string]struct{})
	}
	s.set[keyword] = struct{}{}
}

// Disable removes keyword from the set.
func (s *KeywordSet) Disable(keyword string) {
	delete(s.set, keyword)
}

// Len returns the number of enabled keywords.
func (s KeywordSet) Len() int {
	return len(s.set)
}

// Keywords returns the enabled keywords sorted, as a value detached from the set.
func (s KeywordSet) Keywords() Keywords {
	out := make(Keywords, 0, len(s.set))
	for k := range s.set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy of the set.
func (s KeywordSet) Clone() KeywordSet {
	return NewKeywordSet(s.Keywords()...)
}

// MarshalJSON encodes the set as a sorted array of keywords.
func (s KeywordSet) MarshalJSON() ([]byte, error) {
	return json.Marshal([]string(s.Keywords()))
}

// UnmarshalJSON decodes an array of keywords.
func (s *KeywordSet) UnmarshalJSON(data []byte) error {
	var keywords []string
	if err := json.Unmarshal(data, &keywords); err != nil {
		return err
	}
	*s = NewKeywordSet(keywords...)
	return nil
}
