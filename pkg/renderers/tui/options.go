package tui

import (
	"log/slog"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/submit"
	"github.com/goliatone/go-autoquote/pkg/vinfill"
)

// OutputFormat controls how the flattened quote is serialized.
type OutputFormat string

const (
	// OutputFormatJSON emits a JSON object of flat keys.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits one "key: value" line per field.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme captures the prefixes used when printing messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

func defaultTheme() Theme {
	return Theme{InfoPrefix: "", ErrorPrefix: "! "}
}

type Option func(*Runner)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

func WithOutputFormat(format OutputFormat) Option {
	return func(r *Runner) {
		if format != "" {
			r.outputFormat = format
		}
	}
}

func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithSelectorOptions applies options to every cascading selector the
// runner creates, one per vehicle.
func WithSelectorOptions(options ...cascade.Option) Option {
	return func(r *Runner) {
		r.selectorOptions = append(r.selectorOptions, options...)
	}
}

// WithFiller enables VIN autofill.
func WithFiller(filler *vinfill.Filler) Option {
	return func(r *Runner) {
		r.filler = filler
	}
}

// WithSubmitter replaces the default submitter, which posts nowhere.
func WithSubmitter(submitter *submit.Submitter) Option {
	return func(r *Runner) {
		if submitter != nil {
			r.submitter = submitter
		}
	}
}

// WithMaxAttempts bounds how often a step is re-prompted after failing
// validation. Zero means no bound.
func WithMaxAttempts(n int) Option {
	return func(r *Runner) {
		r.maxAttempts = n
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}
