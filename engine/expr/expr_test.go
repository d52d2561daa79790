package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLiterals(t *testing.T) {
	e, err := Parse("true")
	require.NoError(t, err)
	assert.Equal(t, Literal{Value: true}, e)

	e, err = Parse("false")
	require.NoError(t, err)
	assert.Equal(t, Literal{Value: false}, e)
}

func TestParseBareField(t *testing.T) {
	e, err := Parse("user_verified")
	require.NoError(t, err)
	assert.Equal(t, FieldRef{Path: "user_verified"}, e)

	e, err = Parse("api_response.status")
	require.NoError(t, err)
	assert.Equal(t, FieldRef{Path: "api_response.status"}, e)
}

func TestParseBinaryComparison(t *testing.T) {
	e, err := Parse("age > 18")
	require.NoError(t, err)
	cmp, ok := e.(BinaryCmp)
	require.True(t, ok)
	assert.Equal(t, "age", cmp.Left.Path)
	assert.Equal(t, OpGt, cmp.Op)
	assert.Equal(t, Literal{Value: float64(18)}, cmp.Right)
}

func TestParseQuotedStringOperand(t *testing.T) {
	e, err := Parse("status == 'active'")
	require.NoError(t, err)
	cmp := e.(BinaryCmp)
	assert.Equal(t, Literal{Value: "active"}, cmp.Right)

	e, err = Parse(`status != "blocked"`)
	require.NoError(t, err)
	cmp = e.(BinaryCmp)
	assert.Equal(t, OpNeq, cmp.Op)
	assert.Equal(t, Literal{Value: "blocked"}, cmp.Right)
}

func TestParseFieldToFieldComparison(t *testing.T) {
	e, err := Parse("attempts >= max_attempts")
	require.NoError(t, err)
	cmp := e.(BinaryCmp)
	assert.Equal(t, FieldRef{Path: "max_attempts"}, cmp.Right)
}

func TestParseLengthShorthand(t *testing.T) {
	e, err := Parse("pan_number.length == 10")
	require.NoError(t, err)
	assert.Equal(t, LengthCmp{Field: "pan_number", Op: OpEq, N: 10}, e)

	// con trim() intermedio
	e, err = Parse("pan_number.trim().length == 10")
	require.NoError(t, err)
	assert.Equal(t, LengthCmp{Field: "pan_number", Op: OpEq, N: 10}, e)
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "   ", "1 +", "a b c", "== 5"} {
		_, err := Parse(bad)
		assert.Error(t, err, "expected parse error for %q", bad)
	}
}

func TestEvaluateNumericComparison(t *testing.T) {
	data := map[string]any{"age": "21"}
	assert.True(t, Eval("age > 18", data))

	data["age"] = "18"
	assert.False(t, Eval("age > 18", data))
	assert.True(t, Eval("age >= 18", data))

	data["age"] = float64(17)
	assert.False(t, Eval("age >= 18", data))
}

func TestEvaluateMissingFieldIsFalse(t *testing.T) {
	data := map[string]any{}
	assert.False(t, Eval("age > 18", data))
	assert.False(t, Eval("age == 18", data))
	assert.False(t, Eval("user_verified", data))
}

func TestEvaluateLooseEquality(t *testing.T) {
	// números que llegan como strings comparan como números
	assert.True(t, Eval("retries == 3", map[string]any{"retries": "3"}))
	assert.True(t, Eval("score == 1.5", map[string]any{"score": 1.5}))
	assert.True(t, Eval("flag == 'yes'", map[string]any{"flag": "yes"}))
	assert.False(t, Eval("flag == 'yes'", map[string]any{"flag": "no"}))

	// "0" y 0 son el mismo valor bajo coerción
	assert.True(t, Eval("count == 0", map[string]any{"count": "0"}))
}

func TestEvaluateBareFieldTruthiness(t *testing.T) {
	assert.True(t, Eval("verified", map[string]any{"verified": true}))
	assert.True(t, Eval("verified", map[string]any{"verified": "yes"}))
	assert.False(t, Eval("verified", map[string]any{"verified": false}))
	assert.False(t, Eval("verified", map[string]any{"verified": ""}))
	assert.False(t, Eval("verified", map[string]any{"verified": "false"}))
	assert.False(t, Eval("verified", map[string]any{"verified": "0"}))
	assert.False(t, Eval("verified", map[string]any{"verified": 0}))
}

func TestEvaluateDottedPath(t *testing.T) {
	data := map[string]any{
		"api_response": map[string]any{
			"status": "ok",
			"score":  float64(720),
		},
	}
	assert.True(t, Eval("api_response.status == 'ok'", data))
	assert.True(t, Eval("api_response.score >= 700", data))
	assert.False(t, Eval("api_response.missing == 'ok'", data))
}

func TestEvaluateLengthShorthand(t *testing.T) {
	assert.True(t, Eval("pan_number.length == 10", map[string]any{"pan_number": "ABCDE1234F"}))
	assert.False(t, Eval("pan_number.length == 10", map[string]any{"pan_number": "short"}))

	// la longitud se mide sobre el valor ya recortado
	assert.True(t, Eval("pan_number.trim().length == 10", map[string]any{"pan_number": "  ABCDE1234F  "}))

	// campo ausente cuenta como longitud cero
	assert.True(t, Eval("pan_number.length == 0", map[string]any{}))
}

func TestEvaluateMalformedIsFalse(t *testing.T) {
	assert.False(t, Eval("not a valid expr!!", map[string]any{"age": "21"}))
	assert.False(t, Eval("", map[string]any{}))
}

func TestEvaluateNonNumericOrderingIsFalse(t *testing.T) {
	// orden relacional exige operandos numéricos
	assert.False(t, Eval("name > 18", map[string]any{"name": "Alice"}))
}
