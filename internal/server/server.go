// Package server serves the quote wizard over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/goliatone/go-autoquote/components/vehicles"
	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/render"
	"github.com/goliatone/go-autoquote/pkg/renderers/vanilla"
	"github.com/goliatone/go-autoquote/pkg/submit"
	"github.com/goliatone/go-autoquote/pkg/vinfill"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

const (
	DefaultBasePath   = "/quote"
	DefaultAssetsPath = "/assets"
	DefaultCookieName = "autoquote_session"
	DefaultIdle       = 30 * time.Minute
	DefaultSelectWait = 10 * time.Second

	// StepField carries the id of the step a form was rendered for.
	StepField = "_step"
)

type Options struct {
	BasePath   string
	AssetsPath string
	CookieName string
	Idle       time.Duration
	SelectWait time.Duration
	MinYear    int
	Years      []int

	Definition *wizard.Definition
	Source     cascade.Source
	Decoder    vinfill.Decoder
	Submitter  *submit.Submitter
	HTML       *vanilla.Renderer
	Logger     *slog.Logger
}

type Option func(*Options)

func WithBasePath(path string) Option {
	return func(o *Options) {
		if path = strings.TrimSpace(path); path != "" {
			o.BasePath = path
		}
	}
}

func WithAssetsPath(path string) Option {
	return func(o *Options) {
		if path = strings.TrimSpace(path); path != "" {
			o.AssetsPath = path
		}
	}
}

func WithCookieName(name string) Option {
	return func(o *Options) {
		if name = strings.TrimSpace(name); name != "" {
			o.CookieName = name
		}
	}
}

// WithIdle sets how long an untouched session survives.
func WithIdle(idle time.Duration) Option {
	return func(o *Options) {
		if idle > 0 {
			o.Idle = idle
		}
	}
}

// WithSelectWait bounds how long a cascade change waits for its fetch
// before answering with the loading state.
func WithSelectWait(wait time.Duration) Option {
	return func(o *Options) {
		if wait > 0 {
			o.SelectWait = wait
		}
	}
}

func WithMinYear(year int) Option {
	return func(o *Options) {
		if year > 0 {
			o.MinYear = year
		}
	}
}

// WithYears fixes the year options instead of deriving them from MinYear
// and the clock.
func WithYears(years []int) Option {
	return func(o *Options) {
		o.Years = append([]int(nil), years...)
	}
}

func WithDefinition(def wizard.Definition) Option {
	return func(o *Options) {
		o.Definition = &def
	}
}

func WithDecoder(decoder vinfill.Decoder) Option {
	return func(o *Options) {
		o.Decoder = decoder
	}
}

func WithSubmitter(submitter *submit.Submitter) Option {
	return func(o *Options) {
		if submitter != nil {
			o.Submitter = submitter
		}
	}
}

func WithHTMLRenderer(renderer *vanilla.Renderer) Option {
	return func(o *Options) {
		if renderer != nil {
			o.HTML = renderer
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

type Server struct {
	opts      Options
	years     []int
	sessions  *SessionStore
	renderers *render.Registry
	filler    *vinfill.Filler
	router    chi.Router
}

// New wires the wizard routes, the vehicles lookup component and the
// static assets. source feeds every cascading selector.
func New(source cascade.Source, options ...Option) (*Server, error) {
	if source == nil {
		return nil, errors.New("server: lookup source is required")
	}
	opts := Options{
		BasePath:   DefaultBasePath,
		AssetsPath: DefaultAssetsPath,
		CookieName: DefaultCookieName,
		Idle:       DefaultIdle,
		SelectWait: DefaultSelectWait,
		MinYear:    cascade.DefaultMinYear,
		Source:     source,
		Logger:     slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&opts)
	}
	opts.BasePath = "/" + strings.Trim(opts.BasePath, "/")
	opts.AssetsPath = "/" + strings.Trim(opts.AssetsPath, "/")

	if opts.Definition == nil {
		def, err := wizard.DefaultDefinition()
		if err != nil {
			return nil, err
		}
		opts.Definition = &def
	}
	if opts.Submitter == nil {
		opts.Submitter = submit.NewSubmitter(submit.NewForm("quote", "", ""), submit.WithLogger(opts.Logger))
	}
	if opts.HTML == nil {
		html, err := vanilla.New(vanilla.WithAssetsPath(opts.AssetsPath))
		if err != nil {
			return nil, fmt.Errorf("server: %w", err)
		}
		opts.HTML = html
	}

	years := opts.Years
	if len(years) == 0 {
		years = cascade.YearOptions(time.Now(), opts.MinYear)
	}

	renderers := render.NewRegistry()
	if err := renderers.Register(opts.HTML); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	if err := renderers.Register(render.JSON{}); err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s := &Server{
		opts:      opts,
		years:     years,
		renderers: renderers,
	}
	if opts.Decoder != nil {
		s.filler = vinfill.New(opts.Decoder, vinfill.WithLogger(opts.Logger))
	}
	s.sessions = NewSessionStore(opts.Idle, s.newSession, opts.Logger)

	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler is the root handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Sessions() *SessionStore {
	return s.sessions
}

// Run prunes idle sessions until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.sessions.Janitor(ctx, s.opts.Idle/2)
}

func (s *Server) newSession() (*wizard.Sequencer, func() *cascade.Selector) {
	seq := wizard.NewSequencer(*s.opts.Definition,
		wizard.WithYears(s.years),
		wizard.WithLogger(s.opts.Logger),
	)
	return seq, func() *cascade.Selector {
		return cascade.New(s.opts.Source,
			cascade.WithYears(s.years),
			cascade.WithLogger(s.opts.Logger),
		)
	}
}

func (s *Server) routes() error {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		Recover(s.opts.Logger),
		Logger(s.opts.Logger),
		OTel("autoquote"),
	)

	r.Get("/healthz", s.handleHealth)

	assets := http.FileServer(http.FS(vanilla.AssetsFS()))
	r.Handle(s.opts.AssetsPath+"/*", http.StripPrefix(s.opts.AssetsPath, assets))

	base := s.opts.BasePath
	r.Get(base, s.handleShow)
	r.Post(base, s.handleSubmit)
	r.Get(base+"/view", s.handleView)
	r.Post(base+"/resize", s.handleResize)
	r.Post(base+"/vehicles/{index}/select", s.handleSelect)
	r.Post(base+"/vehicles/{index}/vin", s.handleVIN)

	if _, err := vehicles.RegisterRoutes(r, "",
		vehicles.WithLookup(s.opts.Source),
		vehicles.WithDecoder(s.opts.Decoder),
		vehicles.WithMinYear(s.opts.MinYear),
		vehicles.WithLogger(s.opts.Logger),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	s.router = r
	return nil
}
