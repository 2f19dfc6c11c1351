// Package vinfill decodes a VIN and drives a cascading selector to the
// decoded year, make and model, one control at a time.
package vinfill

import (
	"context"
	"log/slog"
	"strings"

	"github.com/goliatone/go-autoquote/pkg/vpic"
)

// Decoder resolves a VIN. *vpic.Client satisfies it.
type Decoder interface {
	DecodeVIN(ctx context.Context, vin string) (vpic.Decoded, error)
}

// Target is the subset of *cascade.Selector the filler drives.
type Target interface {
	SelectYear(ctx context.Context, year int) (<-chan struct{}, error)
	SelectMake(ctx context.Context, makeName string) (<-chan struct{}, error)
	SelectModel(model string) error
	AwaitMake(ctx context.Context) error
	AwaitModel(ctx context.Context) error
}

// Result records what a fill applied. Decoded is zero when no decode
// happened.
type Result struct {
	Decoded vpic.Decoded `json:"decoded"`
	Year    bool         `json:"year"`
	Make    bool         `json:"make"`
	Model   bool         `json:"model"`
}

// Applied reports whether any control was set.
func (r Result) Applied() bool {
	return r.Year || r.Make || r.Model
}

type Filler struct {
	decoder Decoder
	logger  *slog.Logger
}

type Option func(*Filler)

func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

func New(decoder Decoder, options ...Option) *Filler {
	f := &Filler{decoder: decoder, logger: slog.Default()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	return f
}

// Fill decodes vin and applies year, make and model in order, waiting for
// each dependent fetch before setting the next control. Input that is not
// exactly 17 characters is ignored. Failures end the fill silently; the
// returned Result says how far it got.
func (f *Filler) Fill(ctx context.Context, target Target, vin string) Result {
	var result Result

	vin = strings.TrimSpace(vin)
	if len(vin) != vpic.VINLength || f.decoder == nil || target == nil {
		return result
	}

	decoded, err := f.decoder.DecodeVIN(ctx, vin)
	if err != nil {
		f.logger.DebugContext(ctx, "vinfill: decode failed", "vin", vin, "error", err)
		return result
	}
	result.Decoded = decoded

	if decoded.Year > 0 {
		if _, err := target.SelectYear(ctx, decoded.Year); err != nil {
			f.stop(ctx, "year", err)
			return result
		}
		result.Year = true
	}

	if decoded.Make != "" {
		if err := target.AwaitMake(ctx); err != nil {
			f.stop(ctx, "make", err)
			return result
		}
		if _, err := target.SelectMake(ctx, decoded.Make); err != nil {
			f.stop(ctx, "make", err)
			return result
		}
		result.Make = true
	}

	if decoded.Model != "" {
		if err := target.AwaitModel(ctx); err != nil {
			f.stop(ctx, "model", err)
			return result
		}
		if err := target.SelectModel(decoded.Model); err != nil {
			f.stop(ctx, "model", err)
			return result
		}
		result.Model = true
	}

	return result
}

func (f *Filler) stop(ctx context.Context, control string, err error) {
	f.logger.DebugContext(ctx, "vinfill: stopped", "control", control, "error", err)
}
