package render

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-autoquote/pkg/wizard"
)

// JSON encodes the view model as-is. Browser code polls it to redraw
// cascading selects without a page load.
type JSON struct {
	Indent bool
}

func (JSON) Name() string { return "json" }

func (JSON) ContentType() string { return "application/json" }

func (j JSON) Render(_ context.Context, view wizard.ViewModel, _ RenderOptions) ([]byte, error) {
	var (
		out []byte
		err error
	)
	if j.Indent {
		out, err = json.MarshalIndent(view, "", "  ")
	} else {
		out, err = json.Marshal(view)
	}
	if err != nil {
		return nil, fmt.Errorf("render: encode view: %w", err)
	}
	return out, nil
}
