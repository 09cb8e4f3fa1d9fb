package variant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// PassType identifies the kind of rendering pass a compiled snippet belongs to.
// The numeric codes match the engine's serialized values (the keep-list stores
// them as plain integers).
type PassType int

const (
	PassNormal                               PassType = 0
	PassVertex                               PassType = 1
	PassVertexLM                             PassType = 2
	PassForwardBase                          PassType = 4
	PassForwardAdd                           PassType = 5
	PassLightPrePassBase                     PassType = 6
	PassLightPrePassFinal                    PassType = 7
	PassShadowCaster                         PassType = 8
	PassDeferred                             PassType = 10
	PassMeta                                 PassType = 11
	PassMotionVectors                        PassType = 12
	PassScriptableRenderPipeline             PassType = 13
	PassScriptableRenderPipelineDefaultUnlit PassType = 14
)

var passNames = map[PassType]string{
	PassNormal:                               "Normal",
	PassVertex:                               "Vertex",
	PassVertexLM:                             "VertexLM",
	PassForwardBase:                          "ForwardBase",
	PassForwardAdd:                           "ForwardAdd",
	PassLightPrePassBase:                     "LightPrePassBase",
	PassLightPrePassFinal:                    "LightPrePassFinal",
	PassShadowCaster:                         "ShadowCaster",
	PassDeferred:                             "Deferred",
	PassMeta:                                 "Meta",
	PassMotionVectors:                        "MotionVectors",
	PassScriptableRenderPipeline:             "ScriptableRenderPipeline",
	PassScriptableRenderPipelineDefaultUnlit: "ScriptableRenderPipelineDefaultUnlit",
}

var passByName = func() map[string]PassType {
	m := make(map[string]PassType, len(passNames))
	for p, n := range passNames {
		m[n] = p
	}
	return m
}()

// String returns the pass name, or the numeric code for values the engine
// added after this table was written.
func (p PassType) String() string {
	if n, ok := passNames[p]; ok {
		return n
	}
	return strconv.Itoa(int(p))
}

// ParsePassType accepts either a pass name ("ShadowCaster") or its integer code ("8").
func ParsePassType(s string) (PassType, error) {
	if p, ok := passByName[s]; ok {
		return p, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("unknown pass type %q", s)
	}
	return PassType(n), nil
}

// MarshalText implements encoding.TextMarshaler.
func (p PassType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PassType) UnmarshalText(text []byte) error {
	v, err := ParsePassType(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// UnmarshalJSON accepts both the string form and a bare integer code, since
// host drivers forward whatever their compiler callback hands them.
func (p *PassType) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '"' {
		var n int
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("invalid pass type %s: %w", data, err)
		}
		*p = PassType(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}
