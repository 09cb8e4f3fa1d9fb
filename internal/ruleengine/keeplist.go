package ruleengine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/sigtrap/shaderstrip/internal/assets"
	"github.com/sigtrap/shaderstrip/internal/keeplist"
	"github.com/sigtrap/shaderstrip/internal/match"
	"github.com/sigtrap/shaderstrip/internal/validation"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

// KeepListConfig configures a KeepList rule.
type KeepListConfig struct {
	// Collections are keep-list documents. Relative paths are resolved
	// against ProjectDir.
	Collections []string
	// StripHidden also strips unlisted shaders named "Hidden/...".
	StripHidden bool
	// Ignore exempts shaders whose name matches any pattern.
	Ignore     []match.Pattern
	ProjectDir string
	Resolver   assets.Resolver
}

// KeepList strips every variant of project shaders that is not listed in one
// of its keep-list documents. Built-in shaders are never touched.
type KeepList struct {
	Base
	cfg    KeepListConfig
	logger *slog.Logger

	index  *keeplist.Index
	ignore match.Set
}

// Compile-time check.
var _ Rule = (*KeepList)(nil)

// NewKeepList creates the rule. Documents are only read by Initialize.
func NewKeepList(base Base, cfg KeepListConfig, logger *slog.Logger) *KeepList {
	validation.AssertPresent(cfg.Resolver, "shader resolver")
	if logger == nil {
		logger = slog.Default()
	}
	return &KeepList{Base: base, cfg: cfg, logger: logger.With("rule", base.Name())}
}

func (k *KeepList) Kind() Kind { return KindKeepList }

func (k *KeepList) Capabilities() Capability {
	return CheckShader | CheckPass | CheckVariants
}

func (k *KeepList) Description() string {
	return "Strips ALL (non-built-in) shaders not in selected keep-list collections."
}

func (k *KeepList) Help() string {
	help := "Will NOT strip Hidden shaders."
	if k.cfg.StripHidden {
		help = "WILL strip Hidden shaders."
	}
	return help + " Will NOT strip built-in shaders. Use other rules to remove these."
}

// Index returns the index built by the last successful Initialize.
func (k *KeepList) Index() *keeplist.Index {
	return k.index
}

// Initialize parses every collection into a fresh index. A parse error or an
// unreadable document fails the whole rule; nothing of a partial load is kept.
func (k *KeepList) Initialize(ctx context.Context) error {
	ignore, err := match.CompileAll(k.cfg.Ignore)
	if err != nil {
		return &ConfigError{Rule: k.Name(), Err: fmt.Errorf("invalid ignore pattern: %w", err)}
	}

	index := keeplist.NewIndex()
	for _, c := range k.cfg.Collections {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := c
		if !filepath.IsAbs(path) && k.cfg.ProjectDir != "" {
			path = filepath.Join(k.cfg.ProjectDir, path)
		}

		doc, err := keeplist.LoadFile(path, k.cfg.Resolver)
		if err != nil {
			var pe *keeplist.ParseError
			if errors.As(err, &pe) {
				return err
			}
			if errors.Is(err, fs.ErrNotExist) {
				err = fmt.Errorf("keep-list document not found: %w", err)
			}
			return &ConfigError{Rule: k.Name(), Document: path, Err: err}
		}

		k.logger.Info("parsed keep-list collection",
			"document", path,
			"shaders", doc.Len(),
			"variants", doc.Variants(),
		)
		index.Merge(doc)
	}

	k.index = index
	k.ignore = ignore

	if k.logger.Enabled(ctx, slog.LevelDebug) {
		k.dump(ctx)
	}
	if index.Empty() {
		k.logger.Warn("keep-list index is empty, rule will not strip anything")
	}
	return nil
}

// dump logs the index one pass per line.
func (k *KeepList) dump(ctx context.Context) {
	for _, s := range k.index.Shaders() {
		for _, p := range k.index.Passes(s.GUID) {
			pe, _ := k.index.Pass(s.GUID, p)
			k.logger.DebugContext(ctx, "keep-list entry",
				"shader", s.Name,
				"pass", p.String(),
				"pass_code", int(p),
				"variants", pe.Len(),
				"keywords", pe.String(),
			)
		}
	}
}

// Strip applies the keep-list policy. The checks run in a fixed order: an
// empty index, a built-in shader or an ignored name leave the list untouched;
// an unlisted pass or shader loses everything (hidden shaders excepted unless
// StripHidden); otherwise each variant must match a listed keyword set exactly.
func (k *KeepList) Strip(rec Recorder, snip Snippet, list *variant.List) {
	if k.index.Empty() {
		return
	}
	if snip.Shader.IsBuiltin() {
		return
	}
	if _, ok := k.ignore.Any(snip.Shader.Name); ok {
		return
	}

	if !k.index.HasShader(snip.Shader.GUID) {
		if k.cfg.StripHidden || !snip.Shader.IsHidden() {
			removeWhole(rec, k.Name(), snip, list)
		}
		return
	}

	entries, ok := k.index.Pass(snip.Shader.GUID, snip.Pass)
	if !ok {
		removeWhole(rec, k.Name(), snip, list)
		return
	}

	// Reverse order keeps the remaining indices stable while removing.
	count := len(*list)
	for i := count - 1; i >= 0; i-- {
		if entries.Contains((*list)[i].Keywords.Keywords()) {
			continue
		}
		rec.Record(Removal{Rule: k.Name(), Snippet: snip, Index: i, Count: count})
		list.RemoveAt(i)
	}
}
