package prompts_test

import (
	"testing"

	"github.com/effective-security/funagent/pkg/llms"
	"github.com/effective-security/funagent/pkg/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrounding(t *testing.T) {
	t.Parallel()

	tool := "Weather for Paris:\n" + `{"temperature_f": 60, "condition": "Overcast", "summary": "Pleasant & calm"}`
	msg, err := prompts.Grounding().FormatMessage(llms.RoleUser, map[string]any{
		"user": `what's the "weather" in Paris?`,
		"tool": tool,
	})
	require.NoError(t, err)

	exp := `User asked: "what's the "weather" in Paris?"

Tool returned:
Weather for Paris:
{"temperature_f": 60, "condition": "Overcast", "summary": "Pleasant & calm"}

Reply to the user naturally in plain English. No JSON or code.`
	assert.Equal(t, llms.RoleUser, msg.Role)
	assert.Equal(t, exp, msg.Content)

	_, err = prompts.Grounding().Format(map[string]any{"user": "hi"})
	assert.ErrorIs(t, err, prompts.ErrMissingVariable)
	assert.Contains(t, err.Error(), `"tool"`)

	assert.NoError(t, prompts.Grounding().Validate())
}

func TestGrounding_Verbatim(t *testing.T) {
	t.Parallel()

	p := prompts.Grounding()
	assert.Equal(t, prompts.FormatJinja2, p.Syntax)

	tool := "59°F & <overcast> {{ user }} {% if %}\n" + `{"summary": "say \"hi\""}` + "\n"
	out, err := p.Format(map[string]any{
		"user": "weather in Paris?",
		"tool": tool,
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Tool returned:\n"+tool+"\n")
	assert.Contains(t, out, `User asked: "weather in Paris?"`)

	p = p.WithFormat(prompts.FormatGoTemplate)
	assert.Equal(t, prompts.FormatGoTemplate, p.Syntax)
	assert.Equal(t, prompts.FormatJinja2, prompts.Grounding().Syntax)
}

func TestGoTemplate(t *testing.T) {
	t.Parallel()

	p := prompts.NewPromptTemplate(`Hello {{ .name | upper }}, {{ .count }} tools`, []string{"name", "count"}).
		WithFormat(prompts.FormatGoTemplate)
	out, err := p.Format(map[string]any{"name": "paris", "count": 7})
	require.NoError(t, err)
	assert.Equal(t, "Hello PARIS, 7 tools", out)
	assert.NoError(t, p.Validate())

	_, err = prompts.RenderTemplate(`{{ .missing }}`, prompts.FormatGoTemplate, map[string]any{})
	assert.Error(t, err)

	_, err = prompts.RenderTemplate(`{{ .broken `, prompts.FormatGoTemplate, nil)
	assert.Error(t, err)
}

func TestRenderTemplate(t *testing.T) {
	t.Parallel()

	out, err := prompts.RenderTemplate(`{{ city }} is {{ feel }}`, prompts.FormatJinja2, map[string]any{
		"city": "Rome",
		"feel": "warm",
	})
	require.NoError(t, err)
	assert.Equal(t, "Rome is warm", out)

	_, err = prompts.RenderTemplate(`{{ city }}`, "mustache", nil)
	assert.EqualError(t, err, `unsupported template format: "mustache"`)

	err = prompts.NewPromptTemplate("hi", nil).WithFormat("mustache").Validate()
	assert.EqualError(t, err, `unsupported template format: "mustache"`)
}

func TestPersona(t *testing.T) {
	assert.Contains(t, prompts.Persona, "cheerful weekend assistant")
	assert.Contains(t, prompts.Persona, "Keep replies short and warm.")
}
