package prompts

import (
	"slices"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/pkg/llms"
	"github.com/nikolalohinski/gonja"
)

// TemplateFormat is the syntax of a prompt template.
type TemplateFormat string

const (
	// FormatJinja2 renders with gonja
	FormatJinja2 TemplateFormat = "jinja2"
	// FormatGoTemplate renders with text/template and the sprig functions
	FormatGoTemplate TemplateFormat = "go-template"
)

// ErrMissingVariable is returned when a declared input variable has no value.
var ErrMissingVariable = errors.New("missing input variable")

// Persona is the system message of every conversation.
const Persona = "You are a cheerful weekend assistant. " +
	"When you receive tool data, present it naturally in plain English, no JSON, no code. " +
	"For trivia, show the question and all options clearly, then reveal the answer. " +
	"For jokes, just say the joke. " +
	"For weather, give a friendly summary. " +
	"Keep replies short and warm."

// GroundingTemplate wraps the tool text with the user question.
const GroundingTemplate = `User asked: "{{ user | safe }}"

Tool returned:
{{ tool | safe }}

Reply to the user naturally in plain English. No JSON or code.`

// PromptTemplate is a template with declared input variables.
type PromptTemplate struct {
	Template       string
	Syntax         TemplateFormat
	InputVariables []string
}

// NewPromptTemplate returns a jinja2 template.
func NewPromptTemplate(tmpl string, inputVariables []string) PromptTemplate {
	return PromptTemplate{
		Template:       tmpl,
		Syntax:         FormatJinja2,
		InputVariables: inputVariables,
	}
}

// Grounding returns the template of the grounding prompt.
func Grounding() PromptTemplate {
	return NewPromptTemplate(GroundingTemplate, []string{"user", "tool"})
}

// WithFormat returns a copy of the template with the format.
func (p PromptTemplate) WithFormat(format TemplateFormat) PromptTemplate {
	p.Syntax = format
	return p
}

// Format renders the template.
func (p PromptTemplate) Format(values map[string]any) (string, error) {
	for _, name := range p.InputVariables {
		if _, ok := values[name]; !ok {
			return "", errors.WithMessagef(ErrMissingVariable, "%q", name)
		}
	}
	return RenderTemplate(p.Template, p.Syntax, values)
}

// FormatMessage renders the template as a message with the role.
func (p PromptTemplate) FormatMessage(role llms.Role, values map[string]any) (llms.Message, error) {
	text, err := p.Format(values)
	if err != nil {
		return llms.Message{}, err
	}
	return llms.Message{Role: role, Content: text}, nil
}

// Validate checks the template parses in its format.
func (p PromptTemplate) Validate() error {
	if !slices.Contains([]TemplateFormat{FormatJinja2, FormatGoTemplate}, p.Syntax) {
		return errors.Newf("unsupported template format: %q", p.Syntax)
	}
	values := make(map[string]any, len(p.InputVariables))
	for _, name := range p.InputVariables {
		values[name] = name
	}
	_, err := RenderTemplate(p.Template, p.Syntax, values)
	return err
}

// RenderTemplate renders the template text in the format.
func RenderTemplate(tmpl string, format TemplateFormat, values map[string]any) (string, error) {
	switch format {
	case FormatJinja2, "":
		return renderJinja2(tmpl, values)
	case FormatGoTemplate:
		return renderGoTemplate(tmpl, values)
	}
	return "", errors.Newf("unsupported template format: %q", format)
}

func renderJinja2(tmpl string, values map[string]any) (string, error) {
	tpl, err := gonja.FromString(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}
	out, err := tpl.Execute(values)
	if err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return out, nil
}

func renderGoTemplate(tmpl string, values map[string]any) (string, error) {
	tpl, err := template.New("prompt").
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(tmpl)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse template")
	}
	var sb strings.Builder
	if err = tpl.Execute(&sb, values); err != nil {
		return "", errors.Wrap(err, "failed to render template")
	}
	return sb.String(), nil
}
