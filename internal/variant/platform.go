package variant

import (
	"encoding/json"
	"fmt"
	"math/bits"
)

// BuiltinDefine is a platform-level define the engine sets per compiled variant
// (quality tiers, encoding choices, API capabilities).
type BuiltinDefine uint8

const (
	UnityNoDXT5nm BuiltinDefine = iota
	UnityNoRGBM
	UnityUseNativeHDR
	UnityEnableReflectionBuffers
	UnityFramebufferFetchAvailable
	UnityEnableNativeShadowLookups
	UnityMetalShadowsUsePointFiltering
	UnityNoCubemapArray
	UnityNoScreenspaceShadows
	UnityUseDitherMaskForAlphablendedShadows
	UnityPBSUseBRDF1
	UnityPBSUseBRDF2
	UnityPBSUseBRDF3
	UnityNoFullStandardShader
	ShaderAPIDesktop
	UnityHardwareTier1
	UnityHardwareTier2
	UnityHardwareTier3
	UnityColorspaceGamma
	UnityLightProbeProxyVolume
	UnityHalfPrecisionFragmentShaderRegisters
	UnityLightmapDLDREncoding
	UnityLightmapRGBMEncoding
	UnityLightmapFullHDR

	builtinDefineCount
)

var builtinDefineNames = [builtinDefineCount]string{
	UnityNoDXT5nm:                             "UNITY_NO_DXT5nm",
	UnityNoRGBM:                               "UNITY_NO_RGBM",
	UnityUseNativeHDR:                         "UNITY_USE_NATIVE_HDR",
	UnityEnableReflectionBuffers:              "UNITY_ENABLE_REFLECTION_BUFFERS",
	UnityFramebufferFetchAvailable:            "UNITY_FRAMEBUFFER_FETCH_AVAILABLE",
	UnityEnableNativeShadowLookups:            "UNITY_ENABLE_NATIVE_SHADOW_LOOKUPS",
	UnityMetalShadowsUsePointFiltering:        "UNITY_METAL_SHADOWS_USE_POINT_FILTERING",
	UnityNoCubemapArray:                       "UNITY_NO_CUBEMAP_ARRAY",
	UnityNoScreenspaceShadows:                 "UNITY_NO_SCREENSPACE_SHADOWS",
	UnityUseDitherMaskForAlphablendedShadows:  "UNITY_USE_DITHER_MASK_FOR_ALPHABLENDED_SHADOWS",
	UnityPBSUseBRDF1:                          "UNITY_PBS_USE_BRDF1",
	UnityPBSUseBRDF2:                          "UNITY_PBS_USE_BRDF2",
	UnityPBSUseBRDF3:                          "UNITY_PBS_USE_BRDF3",
	UnityNoFullStandardShader:                 "UNITY_NO_FULL_STANDARD_SHADER",
	ShaderAPIDesktop:                          "SHADER_API_DESKTOP",
	UnityHardwareTier1:                        "UNITY_HARDWARE_TIER1",
	UnityHardwareTier2:                        "UNITY_HARDWARE_TIER2",
	UnityHardwareTier3:                        "UNITY_HARDWARE_TIER3",
	UnityColorspaceGamma:                      "UNITY_COLORSPACE_GAMMA",
	UnityLightProbeProxyVolume:                "UNITY_LIGHT_PROBE_PROXY_VOLUME",
	UnityHalfPrecisionFragmentShaderRegisters: "UNITY_HALF_PRECISION_FRAGMENT_SHADER_REGISTERS",
	UnityLightmapDLDREncoding:                 "UNITY_LIGHTMAP_DLDR_ENCODING",
	UnityLightmapRGBMEncoding:                 "UNITY_LIGHTMAP_RGBM_ENCODING",
	UnityLightmapFullHDR:                      "UNITY_LIGHTMAP_FULL_HDR",
}

// Valid reports whether d names a known define.
func (d BuiltinDefine) Valid() bool {
	return d < builtinDefineCount
}

func (d BuiltinDefine) String() string {
	if d < builtinDefineCount {
		return builtinDefineNames[d]
	}
	return fmt.Sprintf("BuiltinDefine(%d)", uint8(d))
}

// ParseBuiltinDefine looks a define up by its engine name.
func ParseBuiltinDefine(name string) (BuiltinDefine, error) {
	for i, n := range builtinDefineNames {
		if n == name {
			return BuiltinDefine(i), nil
		}
	}
	return 0, fmt.Errorf("unknown builtin define %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (d BuiltinDefine) MarshalText() ([]byte, error) {
	if d >= builtinDefineCount {
		return nil, fmt.Errorf("builtin define %d out of range", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *BuiltinDefine) UnmarshalText(text []byte) error {
	v, err := ParseBuiltinDefine(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// PlatformSet is the set of builtin defines enabled on a variant.
type PlatformSet uint64

// NewPlatformSet returns a set with the given defines enabled.
func NewPlatformSet(defines ...BuiltinDefine) PlatformSet {
	var s PlatformSet
	for _, d := range defines {
		s.Enable(d)
	}
	return s
}

func (s PlatformSet) IsEnabled(d BuiltinDefine) bool {
	return s&(1<<d) != 0
}

func (s *PlatformSet) Enable(d BuiltinDefine) {
	*s |= 1 << d
}

func (s *PlatformSet) Disable(d BuiltinDefine) {
	*s &^= 1 << d
}

// Len returns the number of enabled defines.
func (s PlatformSet) Len() int {
	return bits.OnesCount64(uint64(s))
}

// Defines lists the enabled defines in ascending order.
func (s PlatformSet) Defines() []BuiltinDefine {
	out := make([]BuiltinDefine, 0, s.Len())
	for d := BuiltinDefine(0); d < builtinDefineCount; d++ {
		if s.IsEnabled(d) {
			out = append(out, d)
		}
	}
	return out
}

// MarshalJSON encodes the set as an array of define names.
func (s PlatformSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Defines())
}

// UnmarshalJSON decodes an array of define names.
func (s *PlatformSet) UnmarshalJSON(data []byte) error {
	var defines []BuiltinDefine
	if err := json.Unmarshal(data, &defines); err != nil {
		return err
	}
	*s = NewPlatformSet(defines...)
	return nil
}
