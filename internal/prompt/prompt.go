// Package prompt renders the named prompt templates sent to the prompt
// execution engine.
package prompt

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

const (
	// Dashboard asks the engine to describe a dashboard for raw business data.
	Dashboard = "generateDashboardPrompt"
	// Insights asks the engine for actionable insights about an uploaded file.
	Insights = "getBusinessInsightsPrompt"
)

// ErrUnknownTemplate is returned when rendering a name that was never registered.
var ErrUnknownTemplate = errors.New("unknown prompt template")

//go:embed templates/*.tmpl
var templateFS embed.FS

// Renderer holds parsed prompt templates keyed by name.
type Renderer struct {
	templates map[string]*template.Template
}

var defaultRenderer = mustLoad()

// Render executes the built-in template name with data.
func Render(name string, data any) (string, error) {
	return defaultRenderer.Render(name, data)
}

// Names lists the built-in template names.
func Names() []string {
	return defaultRenderer.Names()
}

// NewRenderer parses the given sources, keyed by template name. Placeholders
// are substituted verbatim; a placeholder with no matching field fails the
// render instead of producing "<no value>".
func NewRenderer(sources map[string]string) (*Renderer, error) {
	r := &Renderer{templates: make(map[string]*template.Template, len(sources))}
	for name, src := range sources {
		tmpl, err := template.New(name).Option("missingkey=error").Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parse prompt template %s: %w", name, err)
		}
		r.templates[name] = tmpl
	}
	return r, nil
}

// Render executes template name with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	tmpl, ok := r.templates[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render prompt template %s: %w", name, err)
	}
	return buf.String(), nil
}

// Names lists the registered template names in sorted order.
func (r *Renderer) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func mustLoad() *Renderer {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		panic(err)
	}

	sources := make(map[string]string, len(entries))
	for _, e := range entries {
		b, err := templateFS.ReadFile("templates/" + e.Name())
		if err != nil {
			panic(err)
		}
		sources[strings.TrimSuffix(e.Name(), ".tmpl")] = string(b)
	}

	r, err := NewRenderer(sources)
	if err != nil {
		panic(err)
	}
	return r
}
