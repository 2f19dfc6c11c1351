package vehicles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"
)

type HTTPError interface {
	error
	StatusCode() int
}

type StatusError struct {
	Code int
	Err  error
}

func (e StatusError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return http.StatusText(e.Code)
}

func (e StatusError) Unwrap() error { return e.Err }

func (e StatusError) StatusCode() int {
	if e.Code <= 0 {
		return http.StatusInternalServerError
	}
	return e.Code
}

// Option is one entry of a select list.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type optionsResponse struct {
	Data []Option `json:"data"`
}

// Endpoint names, relative to the component route.
const (
	EndpointMakes  = "makes"
	EndpointModels = "models"
	EndpointDecode = "decode"
)

func Handler(fns ...OptionFn) http.Handler {
	return NewHandler(fns...)
}

// errDegraded marks a lookup that failed upstream. It answers with empty
// data that must not be cached.
var errDegraded = errors.New("vehicles: lookup degraded")

func NewHandler(fns ...OptionFn) http.Handler {
	return HandlerWithOptions(NewOptions(fns...))
}

// HandlerWithOptions serves all three endpoints, dispatching on the last
// path segment.
func HandlerWithOptions(opts Options) http.Handler {
	opts = NewOptions(func(o *Options) { *o = opts })
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", http.MethodGet+", "+http.MethodHead)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		if opts.Guard != nil {
			if err := opts.Guard(r); err != nil {
				writeError(w, err, http.StatusForbidden)
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()

		var (
			data []Option
			err  error
		)
		switch path.Base(r.URL.Path) {
		case EndpointMakes:
			data, err = makes(ctx, r, opts)
		case EndpointModels:
			data, err = models(ctx, r, opts)
		case EndpointDecode:
			data, err = decode(ctx, r, opts)
		default:
			http.NotFound(w, r)
			return
		}
		degraded := errors.Is(err, errDegraded)
		if err != nil && !degraded {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		if data == nil {
			data = []Option{}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if degraded {
			w.Header().Set("Cache-Control", "no-store")
		} else {
			w.Header().Set("Cache-Control", "private, max-age=300")
		}
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return
		}
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(true)
		_ = enc.Encode(optionsResponse{Data: data})
	})
}

func makes(ctx context.Context, r *http.Request, opts Options) ([]Option, error) {
	year, err := parseYear(r.URL.Query().Get(opts.YearParam), opts.MinYear)
	if err != nil {
		return nil, err
	}
	if opts.Lookup == nil {
		return nil, StatusError{Code: http.StatusServiceUnavailable, Err: errors.New("vehicles: lookup not configured")}
	}
	names, err := opts.Lookup.Makes(ctx, year)
	if err != nil {
		opts.Logger.Debug("vehicles: makes lookup failed", "year", year, "error", err)
		return nil, errDegraded
	}
	return toOptions(names), nil
}

func models(ctx context.Context, r *http.Request, opts Options) ([]Option, error) {
	query := r.URL.Query()
	year, err := parseYear(query.Get(opts.YearParam), opts.MinYear)
	if err != nil {
		return nil, err
	}
	makeName := strings.TrimSpace(query.Get(opts.MakeParam))
	if makeName == "" {
		return nil, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("vehicles: %s is required", opts.MakeParam)}
	}
	if opts.Lookup == nil {
		return nil, StatusError{Code: http.StatusServiceUnavailable, Err: errors.New("vehicles: lookup not configured")}
	}
	names, err := opts.Lookup.Models(ctx, makeName, year)
	if err != nil {
		opts.Logger.Debug("vehicles: models lookup failed", "year", year, "make", makeName, "error", err)
		return nil, errDegraded
	}
	return toOptions(names), nil
}

func decode(ctx context.Context, r *http.Request, opts Options) ([]Option, error) {
	vin := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get(opts.VINParam)))
	if len(vin) != 17 {
		return nil, StatusError{Code: http.StatusBadRequest, Err: errors.New("vehicles: vin must be 17 characters")}
	}
	if opts.Decoder == nil {
		return nil, StatusError{Code: http.StatusServiceUnavailable, Err: errors.New("vehicles: decoder not configured")}
	}
	decoded, err := opts.Decoder.DecodeVIN(ctx, vin)
	if err != nil {
		opts.Logger.Debug("vehicles: vin decode failed", "error", err)
		return nil, errDegraded
	}

	var out []Option
	if decoded.Year > 0 {
		out = append(out, Option{Value: strconv.Itoa(decoded.Year), Label: "year"})
	}
	if decoded.Make != "" {
		out = append(out, Option{Value: decoded.Make, Label: "make"})
	}
	if decoded.Model != "" {
		out = append(out, Option{Value: decoded.Model, Label: "model"})
	}
	return out, nil
}

func parseYear(raw string, minYear int) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("vehicles: invalid year %q", raw)}
	}
	maxYear := time.Now().Year() + 1
	if (minYear > 0 && year < minYear) || year > maxYear {
		return 0, StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf("vehicles: year %d out of range", year)}
	}
	return year, nil
}

func toOptions(names []string) []Option {
	out := make([]Option, 0, len(names))
	for _, name := range names {
		out = append(out, Option{Value: name, Label: name})
	}
	return out
}

func writeError(w http.ResponseWriter, err error, fallback int) {
	code := fallback
	var httpErr HTTPError
	if errors.As(err, &httpErr) && httpErr != nil {
		code = httpErr.StatusCode()
	}
	http.Error(w, http.StatusText(code), code)
}
