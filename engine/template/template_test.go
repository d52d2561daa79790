package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderPlainVariables(t *testing.T) {
	data := map[string]any{"name": "Priya", "city": "Lima"}

	assert.Equal(t, "Hi Priya!", Render("Hi {{name}}!", data))
	assert.Equal(t, "Hi Priya from Lima", Render("Hi {{ name }} from {{ city }}", data))
}

func TestRenderWithoutSpansIsUntouched(t *testing.T) {
	assert.Equal(t, "plain text", Render("plain text", map[string]any{"name": "x"}))
	assert.Equal(t, "", Render("", nil))
}

func TestRenderUndefinedKeyStaysInPlace(t *testing.T) {
	data := map[string]any{"name": "Priya"}
	assert.Equal(t, "Hi Priya, your id is {{user_id}}", Render("Hi {{name}}, your id is {{user_id}}", data))
}

func TestRenderDottedPath(t *testing.T) {
	data := map[string]any{
		"api_response": map[string]any{"score": float64(720)},
	}
	assert.Equal(t, "Score: 720", Render("Score: {{api_response.score}}", data))
}

func TestRenderNumericValues(t *testing.T) {
	assert.Equal(t, "You are 21", Render("You are {{age}}", map[string]any{"age": 21}))
	assert.Equal(t, "You are 21", Render("You are {{age}}", map[string]any{"age": "21"}))
}

func TestRenderTernaryOnBareField(t *testing.T) {
	tmpl := "Status: {{verified ? 'OK' : 'Pending'}}"

	assert.Equal(t, "Status: OK", Render(tmpl, map[string]any{"verified": true}))
	assert.Equal(t, "Status: Pending", Render(tmpl, map[string]any{"verified": false}))
	assert.Equal(t, "Status: Pending", Render(tmpl, map[string]any{"verified": "0"}))
	assert.Equal(t, "Status: Pending", Render(tmpl, map[string]any{}))
}

func TestRenderTernaryOnComparison(t *testing.T) {
	tmpl := "You are {{age >= 18 ? 'an adult' : 'a minor'}}"

	assert.Equal(t, "You are an adult", Render(tmpl, map[string]any{"age": "21"}))
	assert.Equal(t, "You are a minor", Render(tmpl, map[string]any{"age": "15"}))
}

func TestRenderMixedSpans(t *testing.T) {
	tmpl := "Hi {{name}}, verification {{verified ? 'passed' : 'failed'}}"
	data := map[string]any{"name": "Raj", "verified": true}

	assert.Equal(t, "Hi Raj, verification passed", Render(tmpl, data))
}

func TestRenderMalformedTernaryStaysInPlace(t *testing.T) {
	tmpl := "{{verified ? yes : no}}"
	assert.Equal(t, tmpl, Render(tmpl, map[string]any{"verified": true}))
}
