// Package keeplist reads keep-list documents (serialized shader variant
// collections) and indexes the variants they list.
//
// The documents are indentation-significant YAML as written by the engine, with
// long keyword lists wrapped onto continuation lines. Rather than depending on
// a full YAML decoder (engine headers and tags are not standard YAML), the
// parser classifies lines on its own:
//
//	m_Shaders:
//	- first: {fileID: 4800000, guid: 0123456789abcdef0123456789abcdef, type: 3}
//	  second:
//	    variants:
//	    - keywords: DIRECTIONAL SHADOWS_SCREEN
//	        _EMISSION
//	      passType: 4
//
// Shaders whose GUID does not resolve to a project asset are built-ins and are
// left out of the index.
package keeplist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sigtrap/shaderstrip/internal/assets"
	"github.com/sigtrap/shaderstrip/internal/variant"
)

const (
	shadersMarker = "m_Shaders"

	keyFirst    = "first"
	keyGUID     = "guid"
	keyVariants = "variants"
	keyPassType = "passType"
	keyKeywords = "keywords"
)

// ParseError reports a malformed keep-list document. Parsing stops at the first
// one: a partially indexed keep-list would strip variants that should survive.
type ParseError struct {
	Document string
	Line     int
	Msg      string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("keeplist: %s:%d: %s", e.Document, e.Line, e.Msg)
}

// LoadFile opens and parses the document at path.
func LoadFile(path string, res assets.Resolver) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open keep-list %s: %w", path, err)
	}
	defer f.Close()

	return Parse(path, f, res)
}

// Parse reads one document. name is only used in error messages.
func Parse(name string, r io.Reader, res assets.Resolver) (*Index, error) {
	physical, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read keep-list %s: %w", name, err)
	}

	ix := NewIndex()

	start := -1
	for i, l := range physical {
		if hasKey(l, shadersMarker) {
			start = i
			break
		}
	}
	if start < 0 {
		return ix, nil
	}

	p := &parser{name: name, lines: joinContinuations(physical, start), res: res, ix: ix}
	if err := p.run(); err != nil {
		return nil, err
	}
	return ix, nil
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		out = append(out, sc.Text())
	}
	return out, sc.Err()
}

type parser struct {
	name  string
	lines []line
	res   assets.Resolver
	ix    *Index
}

// record accumulates the fields of one variant entry.
type record struct {
	line        int
	pass        variant.PassType
	keywords    variant.Keywords
	hasKeywords bool
}

func (p *parser) run() error {
	for i := 0; i < len(p.lines); {
		if !hasKey(p.lines[i].text, keyFirst) {
			i++
			continue
		}

		next, err := p.shader(i)
		if err != nil {
			return err
		}
		i = next
	}
	return nil
}

// shader consumes the block opened by the "first:" line at i and returns the
// index of the first line after it.
func (p *parser) shader(i int) (int, error) {
	guid := scalarValue(p.lines[i].text, keyGUID)

	// Walk to the variants marker, picking up a nested "guid:" field on the way.
	j := i + 1
	for ; j < len(p.lines); j++ {
		t := p.lines[j].text
		if hasKey(t, keyFirst) {
			// Next shader began without a variants block.
			return j, nil
		}
		if guid == "" && hasKey(t, keyGUID) {
			guid = scalarValue(t, keyGUID)
		}
		if hasKey(t, keyVariants) {
			break
		}
	}
	if j >= len(p.lines) {
		return j, nil
	}
	if v := scalarValue(p.lines[j].text, keyVariants); v != "" {
		// Inline value such as "variants: []".
		return j + 1, nil
	}
	j++

	if guid == "" {
		return j, &ParseError{Document: p.name, Line: p.lines[i].num, Msg: "shader entry without guid"}
	}
	shader, resolved := p.res.Resolve(guid)

	if j >= len(p.lines) || !isNewEntry(p.lines[j].text) {
		return j, nil
	}
	blockIndent := p.lines[j].indent

	var rec *record
	for ; j < len(p.lines); j++ {
		l := p.lines[j]

		// Any indentation change ends this shader's variant list.
		if l.indent != blockIndent {
			break
		}

		if isNewEntry(l.text) {
			if err := p.commit(rec, shader, resolved); err != nil {
				return j, err
			}
			rec = &record{line: l.num}
		}

		if hasKey(l.text, keyPassType) {
			raw := scalarValue(l.text, keyPassType)
			code, err := strconv.Atoi(raw)
			if err != nil {
				return j, &ParseError{Document: p.name, Line: l.num, Msg: fmt.Sprintf("invalid passType %q", raw)}
			}
			rec.pass = variant.PassType(code)
		}
		if kw, ok := keywordsValue(l.text, keyKeywords); ok {
			rec.keywords = kw
			rec.hasKeywords = true
		}
	}

	if err := p.commit(rec, shader, resolved); err != nil {
		return j, err
	}
	return j, nil
}

// commit validates rec and adds it to the index when its shader resolved.
// A nil rec (no entry seen yet) is a no-op.
func (p *parser) commit(rec *record, shader variant.Shader, resolved bool) error {
	if rec == nil {
		return nil
	}
	if !rec.hasKeywords {
		return &ParseError{Document: p.name, Line: rec.line, Msg: "variant entry without keywords"}
	}
	if !resolved {
		return nil
	}
	p.ix.Add(shader, rec.pass, rec.keywords)
	return nil
}
