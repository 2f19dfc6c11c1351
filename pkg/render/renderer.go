package render

import (
	"context"

	"github.com/goliatone/go-autoquote/pkg/submit"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

// Renderer converts a wizard screen into a byte representation.
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, view wizard.ViewModel, options RenderOptions) ([]byte, error)
}

// SubmitRenderer draws the page that hands a materialized form to the
// backend.
type SubmitRenderer interface {
	RenderSubmit(ctx context.Context, form submit.Form, options RenderOptions) ([]byte, error)
}
