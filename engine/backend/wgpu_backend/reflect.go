package wgpu_backend

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrMissingEntryPoint is returned when a shader lacks an @vertex or @fragment function.
	ErrMissingEntryPoint = errors.New("shader entry point not found")

	// ErrUnsupportedVertexType is returned when a vertex input field has no vertex format.
	ErrUnsupportedVertexType = errors.New("unsupported vertex attribute type")

	// ErrUnsupportedBinding is returned for any resource other than one uniform buffer at
	// @group(0) @binding(0).
	ErrUnsupportedBinding = errors.New("unsupported shader binding")
)

var (
	blockCommentRegex = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRegex  = regexp.MustCompile(`//[^\n]*`)
	structRegex       = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	locationRegex     = regexp.MustCompile(`@location\((\d+)\)`)
	builtinRegex      = regexp.MustCompile(`@builtin\(\w+\)`)
	fieldRegex        = regexp.MustCompile(`(?:@\w+\([^)]*\)\s*)*(\w+)\s*:\s*(.+)`)
	vertexEntryRegex  = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	fragEntryRegex    = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
	bindingRegex      = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)
)

type vertexFormat struct {
	format wgpu.VertexFormat
	size   uint64
}

var vertexFormats = map[string]vertexFormat{
	"f32":       {wgpu.VertexFormatFloat32, 4},
	"vec2f":     {wgpu.VertexFormatFloat32x2, 8},
	"vec2<f32>": {wgpu.VertexFormatFloat32x2, 8},
	"vec3f":     {wgpu.VertexFormatFloat32x3, 12},
	"vec3<f32>": {wgpu.VertexFormatFloat32x3, 12},
	"vec4f":     {wgpu.VertexFormatFloat32x4, 16},
	"vec4<f32>": {wgpu.VertexFormatFloat32x4, 16},
	"i32":       {wgpu.VertexFormatSint32, 4},
	"vec2i":     {wgpu.VertexFormatSint32x2, 8},
	"vec2<i32>": {wgpu.VertexFormatSint32x2, 8},
	"vec3i":     {wgpu.VertexFormatSint32x3, 12},
	"vec3<i32>": {wgpu.VertexFormatSint32x3, 12},
	"vec4i":     {wgpu.VertexFormatSint32x4, 16},
	"vec4<i32>": {wgpu.VertexFormatSint32x4, 16},
	"u32":       {wgpu.VertexFormatUint32, 4},
	"vec2u":     {wgpu.VertexFormatUint32x2, 8},
	"vec2<u32>": {wgpu.VertexFormatUint32x2, 8},
	"vec3u":     {wgpu.VertexFormatUint32x3, 12},
	"vec3<u32>": {wgpu.VertexFormatUint32x3, 12},
	"vec4u":     {wgpu.VertexFormatUint32x4, 16},
	"vec4<u32>": {wgpu.VertexFormatUint32x4, 16},
}

// shaderReflection is what the backend needs to know about a WGSL module to build pipelines for it.
type shaderReflection struct {
	vertexEntry   string
	fragmentEntry string

	// vertexLayout is nil when the vertex stage takes no @location inputs.
	vertexLayout *wgpu.VertexBufferLayout

	// uniforms reports a var<uniform> at @group(0) @binding(0).
	uniforms bool
}

// reflectShader extracts entry points, the vertex buffer layout and the uniform binding from
// WGSL source.
//
// Parameters:
//   - source: the WGSL source
//
// Returns:
//   - shaderReflection: the reflected interface
//   - error: ErrMissingEntryPoint, ErrUnsupportedVertexType or ErrUnsupportedBinding
func reflectShader(source string) (shaderReflection, error) {
	var r shaderReflection
	cleaned := lineCommentRegex.ReplaceAllString(blockCommentRegex.ReplaceAllString(source, ""), "")

	m := vertexEntryRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return r, fmt.Errorf("%w: @vertex", ErrMissingEntryPoint)
	}
	r.vertexEntry = m[1]
	m = fragEntryRegex.FindStringSubmatch(cleaned)
	if m == nil {
		return r, fmt.Errorf("%w: @fragment", ErrMissingEntryPoint)
	}
	r.fragmentEntry = m[1]

	for _, s := range structRegex.FindAllStringSubmatch(cleaned, -1) {
		fields, isInput := vertexInputFields(s[2])
		if !isInput {
			continue
		}
		layout, err := vertexLayout(s[1], fields)
		if err != nil {
			return r, err
		}
		r.vertexLayout = &layout
		break
	}

	for _, b := range bindingRegex.FindAllStringSubmatch(cleaned, -1) {
		group, _ := strconv.Atoi(b[1])
		binding, _ := strconv.Atoi(b[2])
		if group != 0 || binding != 0 || strings.TrimSpace(b[3]) != "uniform" {
			return r, fmt.Errorf("%w: %s at @group(%d) @binding(%d)", ErrUnsupportedBinding, b[4], group, binding)
		}
		r.uniforms = true
	}
	return r, nil
}

type vertexField struct {
	name     string
	typeName string
	location uint32
}

// vertexInputFields parses a struct body and reports whether it is a vertex input: at least one
// @location field and no @builtin field.
func vertexInputFields(body string) ([]vertexField, bool) {
	var fields []vertexField
	for _, part := range splitTopLevel(body) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if builtinRegex.MatchString(part) {
			return nil, false
		}
		loc := locationRegex.FindStringSubmatch(part)
		fm := fieldRegex.FindStringSubmatch(part)
		if loc == nil || fm == nil {
			continue
		}
		n, _ := strconv.ParseUint(loc[1], 10, 32)
		fields = append(fields, vertexField{name: fm[1], typeName: strings.TrimSpace(fm[2]), location: uint32(n)})
	}
	return fields, len(fields) > 0
}

// vertexLayout packs fields tightly in declaration order.
func vertexLayout(structName string, fields []vertexField) (wgpu.VertexBufferLayout, error) {
	attrs := make([]wgpu.VertexAttribute, 0, len(fields))
	var offset uint64
	for _, f := range fields {
		vf, ok := vertexFormats[f.typeName]
		if !ok {
			return wgpu.VertexBufferLayout{}, fmt.Errorf("%w: %s.%s is %s", ErrUnsupportedVertexType, structName, f.name, f.typeName)
		}
		attrs = append(attrs, wgpu.VertexAttribute{
			Format:         vf.format,
			Offset:         offset,
			ShaderLocation: f.location,
		})
		offset += vf.size
	}
	return wgpu.VertexBufferLayout{
		ArrayStride: offset,
		StepMode:    wgpu.VertexStepModeVertex,
		Attributes:  attrs,
	}, nil
}

// splitTopLevel splits at commas outside angle brackets, so array<T, N> stays whole.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			if depth > 0 {
				depth--
			}
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}
