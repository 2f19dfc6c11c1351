package vpic

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL     = "https://vpic.nhtsa.dot.gov/api/vehicles"
	DefaultVehicleType = "passenger car"
	DefaultTimeout     = 15 * time.Second
	DefaultUserAgent   = "go-autoquote/1.0 (+quote wizard lookups)"
)

type Options struct {
	BaseURL     string
	VehicleType string
	UserAgent   string
	HTTPClient  *http.Client
	Limiter     *rate.Limiter
	Logger      *slog.Logger
}

type OptionFn func(*Options)

func DefaultOptions() Options {
	return Options{
		BaseURL:     DefaultBaseURL,
		VehicleType: DefaultVehicleType,
		UserAgent:   DefaultUserAgent,
	}
}

// NewOptions applies overrides on top of DefaultOptions and fills any field
// left blank so the client never issues a request against an empty base URL.
func NewOptions(fns ...OptionFn) Options {
	opts := DefaultOptions()
	for _, fn := range fns {
		if fn == nil {
			continue
		}
		fn(&opts)
	}
	opts.BaseURL = strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.VehicleType = strings.TrimSpace(opts.VehicleType)
	if opts.VehicleType == "" {
		opts.VehicleType = DefaultVehicleType
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = NewHTTPClient(DefaultTimeout)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return opts
}

// NewHTTPClient returns a client whose transport is instrumented with
// OpenTelemetry. A zero timeout leaves requests unbounded.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func WithBaseURL(url string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.BaseURL = url
	}
}

func WithVehicleType(vehicleType string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.VehicleType = vehicleType
	}
}

func WithUserAgent(agent string) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.UserAgent = agent
	}
}

func WithHTTPClient(client *http.Client) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.HTTPClient = client
	}
}

// WithLimiter throttles outbound catalog requests. Requests wait for a token
// and fail only when the context is cancelled first.
func WithLimiter(limiter *rate.Limiter) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		o.Limiter = limiter
	}
}

// WithRate is a convenience over WithLimiter. A non-positive rate disables
// throttling.
func WithRate(perSecond float64, burst int) OptionFn {
	return func(o *Options) {
		if o == nil {
			return
		}
		if perSecond <= 0 {
			o.Limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		o.Limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
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
