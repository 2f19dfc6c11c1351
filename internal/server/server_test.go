package server_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-autoquote/internal/server"
	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/lookup"
	"github.com/goliatone/go-autoquote/pkg/submit"
	"github.com/goliatone/go-autoquote/pkg/testsupport"
	"github.com/goliatone/go-autoquote/pkg/vpic"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

const fordVIN = "1FTFW1E50LFA00001"

type recordingPublisher struct {
	mu    sync.Mutex
	calls []map[string]string
}

func (p *recordingPublisher) Publish(_ context.Context, flat map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, flat)
	return nil
}

type harness struct {
	t      *testing.T
	srv    *httptest.Server
	client *http.Client
	pub    *recordingPublisher
	vpic   *testsupport.FakeVPIC
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := testsupport.NewFakeVPIC(t, testsupport.SampleCatalog())
	client := vpic.New(vpic.WithBaseURL(fake.URL()))
	cache := lookup.New(client, lookup.WithVehicleType(client.VehicleType()))

	pub := &recordingPublisher{}
	submitter := submit.NewSubmitter(
		submit.NewForm("quote", "https://forms.example.com/quote", "post"),
		submit.WithPublisher(pub),
	)
	s, err := server.New(cache,
		server.WithDecoder(client),
		server.WithSubmitter(submitter),
		server.WithYears([]int{2020, 2019}),
	)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		t:   t,
		srv: ts,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		pub:  pub,
		vpic: fake,
	}
}

func (h *harness) do(method, path string, form url.Values, accept string) (*http.Response, string) {
	h.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, h.srv.URL+path, body)
	require.NoError(h.t, err)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	res, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(h.t, err)
	return res, string(data)
}

func (h *harness) snapshot(path string, form url.Values) (int, cascade.Snapshot) {
	h.t.Helper()
	res, body := h.do(http.MethodPost, path, form, "application/json")
	var snap cascade.Snapshot
	if res.StatusCode == http.StatusOK {
		require.NoError(h.t, json.Unmarshal([]byte(body), &snap), body)
	}
	return res.StatusCode, snap
}

func (h *harness) view() wizard.ViewModel {
	h.t.Helper()
	res, body := h.do(http.MethodGet, "/quote/view", nil, "")
	require.Equal(h.t, http.StatusOK, res.StatusCode)
	var vm wizard.ViewModel
	require.NoError(h.t, json.Unmarshal([]byte(body), &vm))
	return vm
}

func (h *harness) submitStep(values url.Values) {
	h.t.Helper()
	res, body := h.do(http.MethodPost, "/quote", values, "")
	require.Equal(h.t, http.StatusSeeOther, res.StatusCode, body)
	require.Equal(h.t, "/quote", res.Header.Get("Location"))
}

func personal() url.Values {
	return url.Values{
		"_step":      {"personal"},
		"first_name": {"Jane"},
		"last_name":  {"Doe"},
		"email":      {"jane@example.com"},
		"phone":      {"5551234567"},
		"dob":        {"1990-04-01"},
		"address":    {"1 Main St"},
		"city":       {"Austin"},
		"state":      {"TX"},
		"zip":        {"78701"},
	}
}

func vehicles() url.Values {
	return url.Values{
		"_step":            {"vehicles"},
		"vehicle_count":    {"1"},
		"vehicles.0.year":  {"2020"},
		"vehicles.0.make":  {"FORD"},
		"vehicles.0.model": {"F-150"},
	}
}

func drivers() url.Values {
	return url.Values{
		"_step":            {"drivers"},
		"driver_count":     {"1"},
		"drivers.0.first":  {"Jane"},
		"drivers.0.last":   {"Doe"},
		"drivers.0.dob":    {"1990-04-01"},
		"drivers.0.course": {"on"},
	}
}

func insurance() url.Values {
	return url.Values{
		"_step":                  {"insurance"},
		"limits":                 {"50/100/50"},
		"company":                {"Acme Mutual"},
		"time_with_company":      {"1-3"},
		"premium":                {"120.50"},
		"frequency":              {"monthly"},
		"coverages.0.type":       {"full"},
		"coverages.0.deductible": {"500"},
	}
}

func TestServer_CompletesQuote(t *testing.T) {
	h := newHarness(t)

	res, body := h.do(http.MethodGet, "/quote", nil, "text/html")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, "Step 1 of 5")
	assert.NotEmpty(t, res.Cookies())

	bad := personal()
	bad.Set("phone", "555")
	res, body = h.do(http.MethodPost, "/quote", bad, "")
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, body, "must be 10 digits")

	h.submitStep(personal())
	assert.Equal(t, "Step 2 of 5", h.view().Progress)

	status, snap := h.snapshot("/quote/vehicles/0/select", url.Values{"field": {"year"}, "value": {"2020"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"BMW", "FORD", "HONDA", "TOYOTA"}, snap.Make.Options)
	assert.Equal(t, cascade.StateReady, snap.Make.State)

	status, snap = h.snapshot("/quote/vehicles/0/select", url.Values{"field": {"make"}, "value": {"ford"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "FORD", snap.Make.Value)
	assert.Equal(t, []string{"Escape", "F-150", "Mustang"}, snap.Model.Options)

	status, snap = h.snapshot("/quote/vehicles/0/select", url.Values{"field": {"model"}, "value": {"F-150"}})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "F-150", snap.Model.Value)

	vm := h.view()
	for _, field := range vm.Groups[0].Items[0].Fields {
		if field.Name == "vehicles.0.model" {
			assert.Equal(t, "F-150", field.Value)
			assert.False(t, field.Disabled)
		}
	}

	h.submitStep(vehicles())
	h.submitStep(drivers())
	h.submitStep(insurance())
	assert.True(t, h.view().Last)

	res, body = h.do(http.MethodPost, "/quote", url.Values{"_step": {"review"}}, "text/html")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `action="https://forms.example.com/quote"`)
	assert.Contains(t, body, `name="vehicles0_make" value="FORD"`)
	assert.Contains(t, body, "<noscript>")

	require.Len(t, h.pub.calls, 1)
	assert.Equal(t, "F-150", h.pub.calls[0]["vehicles0_model"])

	res, body = h.do(http.MethodGet, "/quote", nil, "text/html")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Thank you!")

	res, _ = h.do(http.MethodPost, "/quote", url.Values{"_step": {"review"}}, "")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Len(t, h.pub.calls, 1, "a finished quote is never submitted twice")
}

func TestServer_StaleStepIsIgnored(t *testing.T) {
	h := newHarness(t)

	res, _ := h.do(http.MethodPost, "/quote", vehicles(), "")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
	assert.Equal(t, "personal", h.view().Step)
}

func TestServer_SelectErrors(t *testing.T) {
	h := newHarness(t)

	status, _ := h.snapshot("/quote/vehicles/0/select", url.Values{"field": {"year"}, "value": {"2020"}})
	assert.Equal(t, http.StatusConflict, status, "personal step has no selectors")

	h.submitStep(personal())

	cases := []struct {
		name   string
		path   string
		form   url.Values
		status int
	}{
		{"index past count", "/quote/vehicles/3/select", url.Values{"field": {"year"}, "value": {"2020"}}, http.StatusNotFound},
		{"bad index", "/quote/vehicles/x/select", url.Values{"field": {"year"}, "value": {"2020"}}, http.StatusBadRequest},
		{"unknown field", "/quote/vehicles/0/select", url.Values{"field": {"trim"}, "value": {"XL"}}, http.StatusBadRequest},
		{"make before year", "/quote/vehicles/0/select", url.Values{"field": {"make"}, "value": {"FORD"}}, http.StatusConflict},
		{"year not offered", "/quote/vehicles/0/select", url.Values{"field": {"year"}, "value": {"1975"}}, http.StatusUnprocessableEntity},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := h.snapshot(tc.path, tc.form)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestServer_VINAutofill(t *testing.T) {
	h := newHarness(t)
	h.submitStep(personal())

	res, body := h.do(http.MethodPost, "/quote/vehicles/0/vin", url.Values{"vin": {fordVIN}}, "application/json")
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var payload struct {
		Year  cascade.Control `json:"year"`
		Make  cascade.Control `json:"make"`
		Model cascade.Control `json:"model"`
		Fill  struct {
			Year  bool `json:"year"`
			Make  bool `json:"make"`
			Model bool `json:"model"`
		} `json:"fill"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, "2020", payload.Year.Value)
	assert.Equal(t, "FORD", payload.Make.Value)
	assert.Equal(t, "F-150", payload.Model.Value)
	assert.True(t, payload.Fill.Model)
}

func TestServer_ResizeResetsSelectors(t *testing.T) {
	h := newHarness(t)
	h.submitStep(personal())

	status, _ := h.snapshot("/quote/vehicles/0/select", url.Values{"field": {"year"}, "value": {"2020"}})
	require.Equal(t, http.StatusOK, status)

	res, body := h.do(http.MethodPost, "/quote/resize", url.Values{"group": {"vehicles"}, "count": {"2"}}, "application/json")
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	var vm wizard.ViewModel
	require.NoError(t, json.Unmarshal([]byte(body), &vm))
	require.Len(t, vm.Groups[0].Items, 2)
	for _, item := range vm.Groups[0].Items {
		for _, field := range item.Fields {
			assert.Empty(t, field.Value, field.Name)
		}
	}

	res, _ = h.do(http.MethodPost, "/quote/resize", url.Values{"group": {"vehicles"}, "count": {"9"}}, "application/json")
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = h.do(http.MethodPost, "/quote/resize", url.Values{"group": {"vehicles"}, "count": {"1"}}, "")
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
}

func TestServer_Endpoints(t *testing.T) {
	h := newHarness(t)

	res, body := h.do(http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"status":"ok"`)

	res, body = h.do(http.MethodGet, "/assets/autoquote.js", nil, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "/resize")

	res, body = h.do(http.MethodGet, "/api/vehicles/makes?year=2019", nil, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"data":[{"value":"FORD","label":"FORD"},{"value":"KIA","label":"KIA"}]}`, body)

	res, body = h.do(http.MethodGet, "/quote/view", nil, "")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `"progress":"Step 1 of 5"`)
}
