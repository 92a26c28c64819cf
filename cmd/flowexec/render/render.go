// Package render implements the Template Renderer: resolving {{dotted.path}}
// placeholders inside a parameter map's top-level string values against a
// context snapshot (spec.md §4.1).
package render

import (
	"regexp"
	"strings"

	"github.com/lyzr/flowexec/cmd/flowexec/value"
	"github.com/tidwall/gjson"
)

// placeholderPattern matches "{{ optional-space segments optional-space }}"
// where a segment is one or more of [A-Za-z0-9_], separated by '.'.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_]+(?:\.[A-Za-z0-9_]+)*)\s*\}\}`)

// Render resolves placeholders in every top-level string value of params
// against the context snapshot. Non-string values pass through unchanged;
// nested maps/lists are not recursed into (the renderer is shallow by
// design, per spec.md §4.1/§9).
func Render(params map[string]interface{}, ctx map[string]value.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		if s, ok := v.(string); ok {
			out[k] = renderString(s, ctx)
			continue
		}
		out[k] = v
	}
	return out
}

func renderString(s string, ctx map[string]value.Value) string {
	return placeholderPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		path := groups[1]

		resolved, ok := resolvePath(path, ctx)
		if !ok {
			return match // leave the placeholder literal, byte-for-byte
		}
		return resolved.String()
	})
}

// resolvePath walks ctx segment by segment. At each step the current value
// must be a map containing the next key; otherwise resolution fails.
func resolvePath(path string, ctx map[string]value.Value) (value.Value, bool) {
	segments := strings.Split(path, ".")

	current, ok := ctx[segments[0]]
	if !ok {
		return value.Value{}, false
	}

	for _, seg := range segments[1:] {
		m, ok := current.AsMap()
		if !ok {
			return value.Value{}, false
		}
		current, ok = m[seg]
		if !ok {
			return value.Value{}, false
		}
	}

	return current, true
}

// ExtractField reads a dotted field path out of a node output map using
// gjson, for handlers (e.g. IfNode) that need to pull a single value out of
// an upstream node's output rather than render a whole parameter map.
func ExtractField(output map[string]value.Value, field string) (value.Value, bool) {
	v, ok := resolvePath(field, output)
	if ok {
		return v, true
	}

	// Fall back to gjson over the JSON projection, so dotted/bracketed
	// paths into nested structured output (e.g. "items.0.name") resolve
	// the same way the renderer's JSON-producing siblings would expect.
	plain := value.Map(output)
	data, err := plain.MarshalJSON()
	if err != nil {
		return value.Value{}, false
	}
	result := gjson.GetBytes(data, field)
	if !result.Exists() {
		return value.Value{}, false
	}
	return value.FromAny(result.Value()), true
}
