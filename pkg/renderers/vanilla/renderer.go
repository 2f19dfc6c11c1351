package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-autoquote/pkg/render"
	rendertemplate "github.com/goliatone/go-autoquote/pkg/render/template"
	gotemplate "github.com/goliatone/go-autoquote/pkg/render/template/gotemplate"
	"github.com/goliatone/go-autoquote/pkg/submit"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	assetsPath       string
	classes          ChromeClasses
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithAssetsPath sets the URL prefix the stylesheet and script are served
// under.
func WithAssetsPath(path string) Option {
	return func(cfg *config) {
		cfg.assetsPath = strings.TrimRight(strings.TrimSpace(path), "/")
	}
}

func WithChromeClasses(classes ChromeClasses) Option {
	return func(cfg *config) {
		cfg.classes = classes
	}
}

// Renderer draws wizard screens as server-rendered HTML pages.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
	assets    string
	classes   map[string]string
}

var (
	_ render.Renderer       = (*Renderer)(nil)
	_ render.SubmitRenderer = (*Renderer)(nil)
)

func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS(), assetsPath: "/assets"}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := gotemplate.New(
			gotemplate.WithFS(cfg.templateFS),
			gotemplate.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{
		templates: renderer,
		assets:    cfg.assetsPath,
		classes:   cfg.classes.resolve(),
	}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// Render draws the current step, or the terminal screen once the wizard is
// done.
func (r *Renderer) Render(_ context.Context, view wizard.ViewModel, options render.RenderOptions) ([]byte, error) {
	name := "step"
	if view.Terminal {
		name = "done"
	}
	return r.execute(name, map[string]any{
		"title":   view.Title,
		"view":    view,
		"options": optionsData(options),
	})
}

// RenderSubmit draws a page holding form as hidden inputs that submits
// itself on load. A submit button is shown when scripts are disabled.
func (r *Renderer) RenderSubmit(_ context.Context, form submit.Form, options render.RenderOptions) ([]byte, error) {
	if strings.TrimSpace(form.Action) == "" {
		return nil, fmt.Errorf("vanilla renderer: submit form has no action")
	}
	if form.ID == "" {
		form.ID = "autoquote-submit"
	}
	return r.execute("submit", map[string]any{
		"title":   "Submitting your quote",
		"form":    form,
		"options": optionsData(options),
	})
}

func (r *Renderer) execute(name string, data map[string]any) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	data["classes"] = r.classes
	data["assets"] = map[string]string{
		"stylesheet": r.assets + "/" + StylesheetName,
		"script":     r.assets + "/" + ScriptName,
	}
	result, err := r.templates.RenderTemplate(name, data)
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render %s: %w", name, err)
	}
	return []byte(result), nil
}
