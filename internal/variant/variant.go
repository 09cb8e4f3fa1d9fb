// Package variant defines the data handled by the stripping pipeline: shader
// identities, pass kinds, per-variant keyword state and the keyword-set
// equality used to match variants against a keep-list.
package variant

import "strings"

// HiddenPrefix marks shaders that are not meant to be picked by users
// (engine and package internals are usually named this way).
const HiddenPrefix = "Hidden/"

// Shader identifies a shader asset.
type Shader struct {
	// GUID is the asset identity; it is the key used by keep-list indices.
	GUID string `json:"guid"`

	// Name is the shader's declared name, e.g. "Standard" or "Hidden/Internal-Flare".
	Name string `json:"name"`

	// Path is the project-relative asset path. Built-in shaders have none.
	Path string `json:"path,omitempty"`
}

// IsBuiltin reports whether the shader ships with the engine rather than the project.
func (s Shader) IsBuiltin() bool {
	return s.Path == ""
}

// IsHidden reports whether the shader follows the hidden naming convention.
func (s Shader) IsHidden() bool {
	return strings.HasPrefix(s.Name, HiddenPrefix)
}

// Variant is one compiled combination of keywords and platform defines.
type Variant struct {
	Keywords KeywordSet  `json:"keywords"`
	Platform PlatformSet `json:"platform"`
}

// List is the variant list of one (shader, pass) compiler invocation.
// Rules shorten it in place.
type List []Variant

// RemoveAt deletes the variant at index i, preserving the order of the rest.
func (l *List) RemoveAt(i int) {
	s := *l
	copy(s[i:], s[i+1:])
	s[len(s)-1] = Variant{}
	*l = s[:len(s)-1]
}

// Clear removes every variant.
func (l *List) Clear() {
	clear(*l)
	*l = (*l)[:0]
}
