// Package prompts owns the prompt templates for the planning, coding and
// refinement calls, rendered through Twig-style templates so projects can
// swap wording without recompiling.
package prompts

import (
	"embed"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tyler-sommer/stick"

	"github.com/XiaoConstantine/exemplar-go/pkg/errors"
)

//go:embed templates/*.twig
var builtin embed.FS

// Template tags used by the pipeline stages.
const (
	TagPlanner = "planner"
	TagCoder   = "coder"
	TagRefine  = "refine"
)

// Provider renders named prompt templates with per-call context variables.
type Provider struct {
	env       *stick.Env
	templates map[string]string
	vars      map[string]interface{}
}

type Option func(*Provider) error

// WithFS loads every *.twig file found under dir in the supplied FS,
// overriding any built-in template with the same tag.
func WithFS(fsys fs.FS, dir string) Option {
	return func(p *Provider) error {
		return loadDir(p, fsys, dir)
	}
}

// WithTemplates injects an in-memory template map.
func WithTemplates(m map[string]string) Option {
	return func(p *Provider) error {
		for k, v := range m {
			p.templates[k] = v
		}
		return nil
	}
}

// WithVar adds a variable available to every template.
func WithVar(key string, value interface{}) Option {
	return func(p *Provider) error {
		p.vars[key] = value
		return nil
	}
}

// NewProvider builds a provider seeded with the built-in templates.
func NewProvider(opts ...Option) (*Provider, error) {
	p := &Provider{
		env:       stick.New(nil),
		templates: make(map[string]string),
		vars:      make(map[string]interface{}),
	}
	if err := loadDir(p, builtin, "templates"); err != nil {
		return nil, err
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func loadDir(p *Provider, fsys fs.FS, dir string) error {
	return fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".twig") {
			return nil
		}
		content, readErr := fs.ReadFile(fsys, path)
		if readErr != nil {
			return errors.Wrap(readErr, errors.InvalidInput, "failed to read prompt template")
		}
		tag := strings.TrimSuffix(filepath.Base(path), ".twig")
		p.templates[tag] = string(content)
		return nil
	})
}

// AddTemplate updates or inserts one template.
func (p *Provider) AddTemplate(tag, tpl string) { p.templates[tag] = tpl }

// Render executes the tagged template against the given context variables.
func (p *Provider) Render(tag string, ctx map[string]interface{}) (string, error) {
	tpl, ok := p.templates[tag]
	if !ok {
		return "", errors.WithFields(
			errors.New(errors.InvalidInput, "prompt template not found"),
			errors.Fields{"tag": tag})
	}

	templateCtx := make(map[string]stick.Value, len(ctx)+len(p.vars)+1)
	for k, v := range p.vars {
		templateCtx[k] = v
	}
	for k, v := range ctx {
		templateCtx[k] = v
	}
	templateCtx["tag"] = tag

	var out strings.Builder
	if err := p.env.Execute(tpl, &out, templateCtx); err != nil {
		return "", errors.WithFields(
			errors.Wrap(err, errors.InvalidInput, "prompt template execution failed"),
			errors.Fields{"tag": tag})
	}
	return out.String(), nil
}
