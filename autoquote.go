// Package autoquote is the quick start surface of the module: the default
// wizard, a cached vPIC lookup, HTML rendering and flattening, without
// importing the individual packages.
package autoquote

import (
	"context"
	"io/fs"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/flatten"
	"github.com/goliatone/go-autoquote/pkg/lookup"
	"github.com/goliatone/go-autoquote/pkg/quote"
	"github.com/goliatone/go-autoquote/pkg/render"
	"github.com/goliatone/go-autoquote/pkg/renderers/vanilla"
	"github.com/goliatone/go-autoquote/pkg/vpic"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

// Record is the aggregate quote.
type Record = quote.Record

// ViewModel describes one wizard screen.
type ViewModel = wizard.ViewModel

// Snapshot is the state of one vehicle's year, make and model controls.
type Snapshot = cascade.Snapshot

// RenderOptions carries the form action and hidden fields of a page.
type RenderOptions = render.RenderOptions

// NewSequencer starts the built-in five step quote wizard.
func NewSequencer(options ...wizard.Option) (*wizard.Sequencer, error) {
	def, err := wizard.DefaultDefinition()
	if err != nil {
		return nil, err
	}
	return wizard.NewSequencer(def, options...), nil
}

// NewLookup returns a vPIC client and an in-memory lookup cache over it.
// The cache feeds cascading selectors; the client decodes VINs.
func NewLookup(options ...vpic.OptionFn) (*vpic.Client, *lookup.Cache) {
	client := vpic.New(options...)
	return client, lookup.New(client, lookup.WithVehicleType(client.VehicleType()))
}

// RenderHTML draws the current screen of seq with the built-in templates.
// snapshots may be nil.
func RenderHTML(ctx context.Context, seq *wizard.Sequencer, snapshots map[int]Snapshot, options RenderOptions) ([]byte, error) {
	renderer, err := vanilla.New()
	if err != nil {
		return nil, err
	}
	return renderer.Render(ctx, seq.View(snapshots), options)
}

// Flatten turns record into the form fields a submission posts.
func Flatten(record Record) (map[string]string, error) {
	flat, err := flatten.Flatten(record.Map(), "")
	if err != nil {
		return nil, err
	}
	return flatten.Strings(flat), nil
}

// EmbeddedTemplates exposes the built-in page templates so callers can
// extend them.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the stylesheet and script the pages link to.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(autoquote.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
