// Package assets resolves the shader references found in keep-list documents.
//
// The host build driver exports the project's shader assets (GUID, name, path)
// once per build; a reference that cannot be resolved against that export is
// treated as a built-in shader.
package assets

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/sigtrap/shaderstrip/internal/variant"
)

// Resolver maps a shader GUID to the project asset it refers to.
type Resolver interface {
	// Resolve returns the shader and true, or false when the GUID does not
	// name a project asset (built-in shaders, deleted assets).
	Resolve(guid string) (variant.Shader, bool)
}

// Compile-time check.
var _ Resolver = (*Catalog)(nil)

// Catalog is an in-memory Resolver. It is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	byGUID map[string]variant.Shader
}

// catalogFile is the on-disk export format.
type catalogFile struct {
	Shaders []variant.Shader `json:"shaders"`
}

// NewCatalog returns a catalog holding the given shaders.
func NewCatalog(shaders ...variant.Shader) *Catalog {
	c := &Catalog{byGUID: make(map[string]variant.Shader, len(shaders))}
	c.Add(shaders...)
	return c
}

// LoadCatalog reads a JSON export of the form {"shaders":[{"guid","name","path"}]}.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shader catalog %s: %w", path, err)
	}

	var f catalogFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("invalid shader catalog %s: %w", path, err)
	}

	return NewCatalog(f.Shaders...), nil
}

// Add registers shaders. Entries without a path are built-ins and are skipped,
// so they keep resolving as unknown.
func (c *Catalog) Add(shaders ...variant.Shader) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range shaders {
		if s.IsBuiltin() || s.GUID == "" {
			continue
		}
		c.byGUID[normalizeGUID(s.GUID)] = s
	}
}

// Resolve implements Resolver.
func (c *Catalog) Resolve(guid string) (variant.Shader, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.byGUID[normalizeGUID(guid)]
	return s, ok
}

// Len returns the number of resolvable shaders.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byGUID)
}

// normalizeGUID lowercases the hex form so exports and documents agree.
func normalizeGUID(guid string) string {
	return strings.ToLower(strings.TrimSpace(guid))
}
