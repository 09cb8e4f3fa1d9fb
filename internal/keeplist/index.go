package keeplist

import (
	"slices"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/sigtrap/shaderstrip/internal/variant"
)

// Index maps shader GUID -> pass type -> the keyword sets allowed to survive.
// It is built during Initialize and read-only afterwards; concurrent readers
// need no locking once building is done.
type Index struct {
	shaders  map[string]*shaderEntry
	variants int
}

type shaderEntry struct {
	shader variant.Shader
	passes map[variant.PassType]*PassEntries
}

// PassEntries holds the keep-list entries of one (shader, pass) pair.
// Entries are bucketed by a murmur3 fingerprint of their sorted keywords so a
// lookup only runs the exact set comparison against likely candidates.
// A nil *PassEntries is a valid, empty value.
type PassEntries struct {
	sets    []variant.Keywords
	buckets map[uint64][]int
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{shaders: make(map[string]*shaderEntry)}
}

// Add records keywords as allowed for (shader, pass). Exact duplicates are
// stored once. It reports whether the entry was new.
func (ix *Index) Add(shader variant.Shader, pass variant.PassType, keywords variant.Keywords) bool {
	key := guidKey(shader.GUID)

	se, ok := ix.shaders[key]
	if !ok {
		se = &shaderEntry{shader: shader, passes: make(map[variant.PassType]*PassEntries)}
		ix.shaders[key] = se
	}

	pe, ok := se.passes[pass]
	if !ok {
		pe = &PassEntries{buckets: make(map[uint64][]int)}
		se.passes[pass] = pe
	}

	if pe.Contains(keywords) {
		return false
	}

	fp := fingerprint(keywords)
	pe.buckets[fp] = append(pe.buckets[fp], len(pe.sets))
	pe.sets = append(pe.sets, slices.Clone(keywords))
	ix.variants++
	return true
}

// Merge adds every entry of other into ix.
func (ix *Index) Merge(other *Index) {
	if other == nil {
		return
	}
	for _, se := range other.shaders {
		for pass, pe := range se.passes {
			for _, k := range pe.sets {
				ix.Add(se.shader, pass, k)
			}
		}
	}
}

// Empty reports whether the index holds no entries at all.
func (ix *Index) Empty() bool {
	return ix == nil || len(ix.shaders) == 0
}

// Len returns the number of indexed shaders.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.shaders)
}

// Variants returns the total number of indexed keyword sets.
func (ix *Index) Variants() int {
	if ix == nil {
		return 0
	}
	return ix.variants
}

// HasShader reports whether guid has any entries.
func (ix *Index) HasShader(guid string) bool {
	if ix == nil {
		return false
	}
	_, ok := ix.shaders[guidKey(guid)]
	return ok
}

// Pass returns the entries for (guid, pass). Absent shaders or passes yield
// (nil, false); the nil value behaves as an empty entry list.
func (ix *Index) Pass(guid string, pass variant.PassType) (*PassEntries, bool) {
	if ix == nil {
		return nil, false
	}
	se, ok := ix.shaders[guidKey(guid)]
	if !ok {
		return nil, false
	}
	pe, ok := se.passes[pass]
	return pe, ok
}

// Shaders returns the indexed shaders ordered by name, then GUID.
func (ix *Index) Shaders() []variant.Shader {
	if ix == nil {
		return nil
	}
	out := make([]variant.Shader, 0, len(ix.shaders))
	for _, se := range ix.shaders {
		out = append(out, se.shader)
	}
	slices.SortFunc(out, func(a, b variant.Shader) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.GUID, b.GUID)
	})
	return out
}

// Passes returns the pass types indexed for guid in ascending order.
func (ix *Index) Passes(guid string) []variant.PassType {
	if ix == nil {
		return nil
	}
	se, ok := ix.shaders[guidKey(guid)]
	if !ok {
		return nil
	}
	out := make([]variant.PassType, 0, len(se.passes))
	for p := range se.passes {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Contains reports whether keywords exactly matches one of the entries.
func (pe *PassEntries) Contains(keywords variant.Keywords) bool {
	if pe == nil {
		return false
	}
	for _, i := range pe.buckets[fingerprint(keywords)] {
		if variant.Matches(pe.sets[i], keywords) {
			return true
		}
	}
	return false
}

// Len returns the number of entries.
func (pe *PassEntries) Len() int {
	if pe == nil {
		return 0
	}
	return len(pe.sets)
}

// Sets returns a copy of the entries in insertion order.
func (pe *PassEntries) Sets() []variant.Keywords {
	if pe == nil {
		return nil
	}
	out := make([]variant.Keywords, len(pe.sets))
	for i, k := range pe.sets {
		out[i] = slices.Clone(k)
	}
	return out
}

// String renders the entries separated by " | ", for log lines.
func (pe *PassEntries) String() string {
	var b strings.Builder
	for i, k := range pe.Sets() {
		if i > 0 {
			b.WriteString(" | ")
		}
		b.WriteString(k.String())
	}
	return b.String()
}

// fingerprint hashes the sorted keywords, making it independent of order.
// Collisions are harmless: Contains always confirms with variant.Matches.
func fingerprint(keywords variant.Keywords) uint64 {
	sorted := slices.Clone(keywords)
	slices.Sort(sorted)
	return murmur3.Sum64([]byte(strings.Join(sorted, "\x00")))
}

func guidKey(guid string) string {
	return strings.ToLower(strings.TrimSpace(guid))
}
