package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Catalog seeds the fake vPIC server. Make and model lists are served
// verbatim (duplicates and ordering included) so callers can assert on the
// normalisation done downstream.
type Catalog struct {
	Makes  map[int][]string
	Models map[string][]string // keyed by ModelsKey(year, make)
	VINs   map[string]VIN

	// AltMakeKey serves make names under "Make_Name" instead of "MakeName".
	AltMakeKey bool
	// OmitResults drops the Results list from every response.
	OmitResults bool
	// FailStatus maps a request kind ("makes", "models", "decode") to a
	// status code returned instead of a payload.
	FailStatus map[string]int
}

// VIN is a canned decode result.
type VIN struct {
	ModelYear string
	Make      string
	Model     string
}

// ModelsKey builds the Catalog.Models key for year and make.
func ModelsKey(year int, makeName string) string {
	return strconv.Itoa(year) + "|" + strings.ToUpper(strings.TrimSpace(makeName))
}

// FakeVPIC is an httptest server mimicking the subset of the vPIC API the
// client consumes. It counts calls per kind and can hold requests until the
// test releases them.
type FakeVPIC struct {
	Server *httptest.Server

	mu      sync.Mutex
	catalog Catalog
	calls   map[string]int
	holds   map[string]chan struct{}
}

// NewFakeVPIC starts a server for catalog and registers cleanup on t.
func NewFakeVPIC(t testing.TB, catalog Catalog) *FakeVPIC {
	t.Helper()

	f := &FakeVPIC{
		catalog: catalog,
		calls:   make(map[string]int),
		holds:   make(map[string]chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /GetMakesForVehicleModelYear/{year}", f.handleMakes)
	mux.HandleFunc("GET /GetModelsForMakeYear/make/{make}/modelyear/{year}", f.handleModels)
	mux.HandleFunc("GET /DecodeVinValuesExtended/{vin}", f.handleDecode)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(func() {
		f.releaseAll()
		f.Server.Close()
	})
	return f
}

// URL is the base URL to hand to vpic.WithBaseURL.
func (f *FakeVPIC) URL() string {
	return f.Server.URL
}

// Calls reports how many requests of kind were served.
func (f *FakeVPIC) Calls(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

// Hold blocks requests whose hold key matches until the returned release
// function runs. Keys are "makes:{year}", "models:{year}:{MAKE}" and
// "decode:{VIN}".
func (f *FakeVPIC) Hold(key string) (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.holds[key] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.holds[key] == gate {
				delete(f.holds, key)
				close(gate)
			}
		})
	}
}

func (f *FakeVPIC) releaseAll() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, gate := range f.holds {
		close(gate)
		delete(f.holds, key)
	}
}

func (f *FakeVPIC) begin(kind, holdKey string) (int, bool) {
	f.mu.Lock()
	f.calls[kind]++
	gate := f.holds[holdKey]
	status := f.catalog.FailStatus[kind]
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	return status, status != 0
}

func (f *FakeVPIC) handleMakes(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		http.Error(w, "bad year", http.StatusBadRequest)
		return
	}
	if status, failed := f.begin("makes", "makes:"+strconv.Itoa(year)); failed {
		http.Error(w, http.StatusText(status), status)
		return
	}

	key := "MakeName"
	if f.catalog.AltMakeKey {
		key = "Make_Name"
	}
	results := make([]map[string]any, 0)
	for i, name := range f.catalog.Makes[year] {
		results = append(results, map[string]any{"MakeId": i + 1, key: name})
	}
	f.write(w, results)
}

func (f *FakeVPIC) handleModels(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.PathValue("year"))
	if err != nil {
		http.Error(w, "bad year", http.StatusBadRequest)
		return
	}
	makeName := r.PathValue("make")
	key := ModelsKey(year, makeName)
	if status, failed := f.begin("models", "models:"+strconv.Itoa(year)+":"+strings.ToUpper(makeName)); failed {
		http.Error(w, http.StatusText(status), status)
		return
	}

	results := make([]map[string]any, 0)
	for i, name := range f.catalog.Models[key] {
		results = append(results, map[string]any{"Model_ID": i + 1, "Make_Name": makeName, "Model_Name": name})
	}
	f.write(w, results)
}

func (f *FakeVPIC) handleDecode(w http.ResponseWriter, r *http.Request) {
	vin := strings.ToUpper(r.PathValue("vin"))
	if status, failed := f.begin("decode", "decode:"+vin); failed {
		http.Error(w, http.StatusText(status), status)
		return
	}

	results := make([]map[string]any, 0)
	if entry, ok := f.catalog.VINs[vin]; ok {
		results = append(results, map[string]any{
			"VIN":       vin,
			"ModelYear": entry.ModelYear,
			"Make":      entry.Make,
			"Model":     entry.Model,
		})
	}
	f.write(w, results)
}

func (f *FakeVPIC) write(w http.ResponseWriter, results []map[string]any) {
	payload := map[string]any{
		"Count":          len(results),
		"Message":        "Response returned successfully",
		"SearchCriteria": nil,
	}
	if !f.catalog.OmitResults {
		payload["Results"] = results
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(payload)
}

// SampleCatalog is the catalog most package tests share.
func SampleCatalog() Catalog {
	return Catalog{
		Makes: map[int][]string{
			2020: {"TOYOTA", "FORD", "HONDA", "FORD", " ", "BMW"},
			2019: {"FORD", "KIA"},
		},
		Models: map[string][]string{
			ModelsKey(2020, "FORD"):   {"Mustang", "F-150", "Escape", "F-150"},
			ModelsKey(2020, "TOYOTA"): {"Camry", "Corolla"},
			ModelsKey(2019, "FORD"):   {"Fiesta"},
			ModelsKey(2019, "KIA"):    {"Soul", "Forte"},
		},
		VINs: map[string]VIN{
			"1FTFW1E50LFA00001": {ModelYear: "2020", Make: "FORD", Model: "F-150"},
			"5XYZU3LB0EG000002": {ModelYear: "", Make: "", Model: ""},
		},
	}
}
