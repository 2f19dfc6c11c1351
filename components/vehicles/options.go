package vehicles

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/goliatone/go-autoquote/pkg/vpic"
)

// Lookup answers option lists. *lookup.Cache satisfies it.
type Lookup interface {
	Makes(ctx context.Context, year int) ([]string, error)
	Models(ctx context.Context, makeName string, year int) ([]string, error)
}

// Decoder resolves a VIN. *vpic.Client satisfies it.
type Decoder interface {
	DecodeVIN(ctx context.Context, vin string) (vpic.Decoded, error)
}

type GuardFunc func(r *http.Request) error

type Options struct {
	RoutePath string
	YearParam string
	MakeParam string
	VINParam  string
	MinYear   int
	Timeout   time.Duration
	Guard     GuardFunc
	Logger    *slog.Logger

	Lookup  Lookup
	Decoder Decoder
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		RoutePath: "/api/vehicles",
		YearParam: "year",
		MakeParam: "make",
		VINParam:  "vin",
		MinYear:   1981,
		Timeout:   10 * time.Second,
	}
}

func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	if opts.RoutePath == "" {
		opts.RoutePath = "/api/vehicles"
	}
	if opts.YearParam == "" {
		opts.YearParam = "year"
	}
	if opts.MakeParam == "" {
		opts.MakeParam = "make"
	}
	if opts.VINParam == "" {
		opts.VINParam = "vin"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

func WithRoutePath(path string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.RoutePath = path
	}
}

func WithYearParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.YearParam = name
	}
}

func WithMakeParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MakeParam = name
	}
}

func WithVINParam(name string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.VINParam = name
	}
}

// WithMinYear rejects earlier years with 400. Zero disables the check.
func WithMinYear(year int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.MinYear = year
	}
}

// WithTimeout bounds each catalog call made on behalf of a request.
func WithTimeout(timeout time.Duration) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Timeout = timeout
	}
}

func WithGuard(guard GuardFunc) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Guard = guard
	}
}

func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Logger = logger
	}
}

func WithLookup(lookup Lookup) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Lookup = lookup
	}
}

func WithDecoder(decoder Decoder) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Decoder = decoder
	}
}
