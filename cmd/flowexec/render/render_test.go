package render

import (
	"testing"

	"github.com/lyzr/flowexec/cmd/flowexec/value"
	"github.com/stretchr/testify/assert"
)

func TestRender_ResolvesFlatAndNestedPaths(t *testing.T) {
	ctx := map[string]value.Value{
		"tenant_id": value.String("t1"),
		"fetch": value.Map(map[string]value.Value{
			"answer": value.String("08:00-17:00"),
		}),
		"input": value.Map(map[string]value.Value{
			"query": value.String("jam buka"),
		}),
	}

	params := map[string]interface{}{
		"query":     "{{input.query}}",
		"tenant_id": "{{tenant_id}}",
		"message":   "{{fetch.answer}}",
	}

	out := Render(params, ctx)
	assert.Equal(t, "jam buka", out["query"])
	assert.Equal(t, "t1", out["tenant_id"])
	assert.Equal(t, "08:00-17:00", out["message"])
}

func TestRender_UnresolvedPlaceholderLeftLiteral(t *testing.T) {
	ctx := map[string]value.Value{"tenant_id": value.String("t1")}
	out := Render(map[string]interface{}{"x": "{{missing.path}}"}, ctx)
	assert.Equal(t, "{{missing.path}}", out["x"])
}

func TestRender_MultiplePlaceholdersInOneString(t *testing.T) {
	ctx := map[string]value.Value{
		"user_id":   value.String("u1"),
		"tenant_id": value.String("t1"),
	}
	out := Render(map[string]interface{}{"greeting": "{{user_id}}@{{tenant_id}}"}, ctx)
	assert.Equal(t, "u1@t1", out["greeting"])
}

func TestRender_NonStringValuesPassThrough(t *testing.T) {
	ctx := map[string]value.Value{}
	nested := map[string]interface{}{"a": 1}
	out := Render(map[string]interface{}{"n": 42, "b": true, "m": nested}, ctx)
	assert.Equal(t, 42, out["n"])
	assert.Equal(t, true, out["b"])
	assert.Equal(t, nested, out["m"]) // not recursed into
}

func TestRender_NumericAndBoolStringification(t *testing.T) {
	ctx := map[string]value.Value{
		"score": value.Number(0.82),
		"flag":  value.Bool(true),
	}
	out := Render(map[string]interface{}{"a": "{{score}}", "b": "{{flag}}"}, ctx)
	assert.Equal(t, "0.82", out["a"])
	assert.Equal(t, "true", out["b"])
}

func TestExtractField_DirectAndNestedPaths(t *testing.T) {
	output := map[string]value.Value{
		"score": value.Number(0.82),
	}
	v, ok := ExtractField(output, "score")
	assert.True(t, ok)
	n, _ := v.AsNumber()
	assert.Equal(t, 0.82, n)

	_, ok = ExtractField(output, "missing")
	assert.False(t, ok)
}
