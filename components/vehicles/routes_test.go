package vehicles

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goliatone/go-autoquote/pkg/lookup"
	"github.com/goliatone/go-autoquote/pkg/testsupport"
	"github.com/goliatone/go-autoquote/pkg/vpic"
)

func TestMountPath_JoinsBasePath(t *testing.T) {
	if got := MountPath("/quote"); got != "/quote/api/vehicles" {
		t.Fatalf("unexpected mount path: %q", got)
	}
	if got := MountPath("quote"); got != "/quote/api/vehicles" {
		t.Fatalf("unexpected mount path: %q", got)
	}
	if got := MountPath("/quote/", WithRoutePath("lookup/")); got != "/quote/lookup" {
		t.Fatalf("unexpected mount path: %q", got)
	}
}

func TestRegisterRoutes_RegistersEndpoints(t *testing.T) {
	fake := testsupport.NewFakeVPIC(t, testsupport.SampleCatalog())
	client := vpic.New(vpic.WithBaseURL(fake.URL()))

	mux := http.NewServeMux()
	component := New(WithLookup(lookup.New(client)), WithDecoder(client))
	root, err := component.RegisterRoutes(mux, "/quote")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if root != "/quote/api/vehicles" {
		t.Fatalf("unexpected root: %q", root)
	}

	for _, target := range []string{
		root + "/makes?year=2019",
		root + "/models?year=2019&make=FORD",
		root + "/decode?vin=1FTFW1E50LFA00001",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", target, rec.Code)
		}
	}

	if _, err := RegisterRoutes(nil, "/"); err == nil {
		t.Fatalf("expected missing mux error")
	}
}
