package render_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-autoquote/pkg/render"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

type stubRenderer struct {
	name        string
	contentType string
}

func (s stubRenderer) Name() string        { return s.name }
func (s stubRenderer) ContentType() string { return s.contentType }
func (s stubRenderer) Render(context.Context, wizard.ViewModel, render.RenderOptions) ([]byte, error) {
	return []byte(s.name), nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := render.NewRegistry()
	reg.MustRegister(stubRenderer{name: "html", contentType: "text/html; charset=utf-8"})
	reg.MustRegister(render.JSON{})

	if err := reg.Register(render.JSON{}); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if err := reg.Register(nil); err == nil {
		t.Fatalf("expected nil renderer to fail")
	}
	if _, err := reg.Get("pdf"); err == nil {
		t.Fatalf("expected unknown renderer to fail")
	}
	if diff := cmp.Diff([]string{"html", "json"}, reg.List()); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
	if !reg.Has("json") {
		t.Fatalf("expected json renderer")
	}
}

func TestRegistry_Negotiate(t *testing.T) {
	reg := render.NewRegistry()
	if _, err := reg.Negotiate("text/html"); err == nil {
		t.Fatalf("expected empty registry to fail")
	}
	reg.MustRegister(stubRenderer{name: "html", contentType: "text/html; charset=utf-8"})
	reg.MustRegister(render.JSON{})

	cases := map[string]string{
		"application/json":                  "json",
		"text/html,application/xhtml+xml":   "html",
		"application/xml;q=0.9, */*;q=0.8":  "html",
		"":                                  "html",
		"application/json; charset=utf-8":   "json",
		"image/png, application/json;q=0.5": "json",
	}
	for accept, want := range cases {
		got, err := reg.Negotiate(accept)
		if err != nil {
			t.Fatalf("negotiate %q: %v", accept, err)
		}
		if got.Name() != want {
			t.Fatalf("negotiate %q: expected %s, got %s", accept, want, got.Name())
		}
	}
}

func TestJSON_RendersViewModel(t *testing.T) {
	vm := wizard.ViewModel{Title: "Auto Insurance Quote Form", Step: "personal", Index: 0, Total: 5, Progress: "Step 1 of 5"}
	out, err := render.JSON{}.Render(context.Background(), vm, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var decoded wizard.ViewModel
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(vm, decoded); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
}
