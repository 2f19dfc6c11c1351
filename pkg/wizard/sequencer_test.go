package wizard_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/quote"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

func TestSequencer_ProgressAdvancesOneStepAtATime(t *testing.T) {
	seq := newSequencer(t)
	if got := seq.View(nil).Progress; got != "Step 1 of 5" {
		t.Fatalf("expected first step, got %q", got)
	}

	submissions := []map[string]string{
		personalValues(),
		vehicleValues(1),
		driverValues(),
		insuranceValues(1),
	}
	for n, values := range submissions {
		if err := seq.Submit(values); err != nil {
			t.Fatalf("submit step %d: %v", n, err)
		}
		want := wizard.Progress(n+1, 5)
		if got := seq.View(nil).Progress; got != want {
			t.Fatalf("after step %d expected %q, got %q", n, want, got)
		}
	}

	if !seq.View(nil).Last {
		t.Fatalf("expected review to be the last step")
	}
	if err := seq.Submit(nil); err != nil {
		t.Fatalf("submit review: %v", err)
	}
	if !seq.Done() {
		t.Fatalf("expected terminal state")
	}
	vm := seq.View(nil)
	if !vm.Terminal || vm.Title != "Thank you!" || vm.Message != "Your information has been submitted." {
		t.Fatalf("unexpected terminal view %+v", vm)
	}

	if err := seq.Submit(personalValues()); !errors.Is(err, wizard.ErrCompleted) {
		t.Fatalf("expected ErrCompleted, got %v", err)
	}
	if err := seq.Resize("drivers", 2); !errors.Is(err, wizard.ErrCompleted) {
		t.Fatalf("expected ErrCompleted on resize, got %v", err)
	}
	if seq.Index() != 5 {
		t.Fatalf("expected index to stay at 5, got %d", seq.Index())
	}
}

func TestSequencer_BuildsRecord(t *testing.T) {
	seq := newSequencer(t)
	advanceTo(t, seq, "review", 2)

	want := quote.Record{
		Personal: quote.Personal{
			FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Phone: "5551234567",
			DOB: "1990-04-01", Address: "1 Main St", City: "Austin", State: "TX", Zip: "78701",
		},
		Vehicles: []quote.Vehicle{
			{Year: 2020, Make: "Ford", Model: "F-150"},
			{Year: 2020, Make: "Ford", Model: "F-150"},
		},
		Drivers: []quote.Driver{{First: "Jane", Last: "Doe", DOB: "1990-04-01", Course: true}},
		Insurance: quote.Insurance{
			Limits: "50/100/50", Company: "Acme Mutual", TimeWithCompany: "1-3", Premium: 120.5, Frequency: "monthly",
			Coverages: []quote.Coverage{{Type: "full", Deductible: 500}, {Type: "full", Deductible: 500}},
		},
	}
	if diff := cmp.Diff(want, seq.Record()); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	vm := seq.View(nil)
	found := false
	for _, item := range vm.Summary {
		if item.Key == "vehicles1_make" && item.Value == "Ford" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected review summary to list vehicles1_make, got %+v", vm.Summary)
	}
}

func TestSequencer_ValidationKeepsStep(t *testing.T) {
	seq := newSequencer(t)
	values := personalValues()
	values["phone"] = "555"
	delete(values, "city")

	err := seq.Submit(values)
	var verr *wizard.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]string{"phone": "must be 10 digits", "city": "required"}
	if diff := cmp.Diff(want, verr.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if seq.Index() != 0 {
		t.Fatalf("expected to stay on step 0, got %d", seq.Index())
	}

	vm := seq.View(nil)
	for _, field := range vm.Fields {
		switch field.Name {
		case "phone":
			if field.Value != "555" || field.Error != "must be 10 digits" {
				t.Fatalf("expected phone to keep value and error, got %+v", field)
			}
		case "first_name":
			if field.Value != "Jane" {
				t.Fatalf("expected entered value to survive, got %+v", field)
			}
		}
	}
	if issues := verr.Issues(); len(issues) != 2 || issues[0].Path != "city" {
		t.Fatalf("unexpected issues %+v", issues)
	}
}

func TestSequencer_GroupItemsAreValidated(t *testing.T) {
	seq := newSequencer(t)
	advanceTo(t, seq, "vehicles", 1)

	values := vehicleValues(2)
	delete(values, "vehicles.1.model")
	values["vehicles.0.vin"] = "TOO-SHORT"

	var verr *wizard.ValidationError
	if err := seq.Submit(values); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]string{
		"vehicles.1.model": "required",
		"vehicles.0.vin":   "must be 17 letters or digits",
	}
	if diff := cmp.Diff(want, verr.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if got := seq.Count("vehicles"); got != 2 {
		t.Fatalf("expected submitted count to stick, got %d", got)
	}
}

func TestSequencer_RejectsCountOutOfRange(t *testing.T) {
	seq := newSequencer(t)
	advanceTo(t, seq, "vehicles", 1)

	var verr *wizard.ValidationError
	if err := seq.Submit(vehicleValues(6)); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := verr.Errors["vehicle_count"]; !ok {
		t.Fatalf("expected vehicle_count error, got %+v", verr.Errors)
	}
}

func TestSequencer_PrefillsPrimaryDriver(t *testing.T) {
	seq := newSequencer(t)
	advanceTo(t, seq, "drivers", 1)

	want := map[string]string{
		"drivers.0.first": "Jane",
		"drivers.0.last":  "Doe",
		"drivers.0.dob":   "1990-04-01",
	}
	if diff := cmp.Diff(want, seq.Draft()); diff != "" {
		t.Fatalf("draft mismatch (-want +got):\n%s", diff)
	}
}

func TestSequencer_ResizeDiscardsValues(t *testing.T) {
	seq := newSequencer(t)
	advanceTo(t, seq, "drivers", 1)

	values := driverValues()
	values["drivers.0.dob"] = "yesterday"
	if err := seq.Submit(values); err == nil {
		t.Fatalf("expected validation failure")
	}

	if err := seq.Resize("drivers", 3); err != nil {
		t.Fatalf("resize: %v", err)
	}
	if len(seq.Draft()) != 0 || len(seq.Errors()) != 0 {
		t.Fatalf("expected drafts and errors discarded, got %v %v", seq.Draft(), seq.Errors())
	}

	vm := seq.View(nil)
	group := vm.Groups[0]
	if group.Count != 3 || len(group.Items) != 3 {
		t.Fatalf("expected 3 fieldsets, got %d/%d", group.Count, len(group.Items))
	}
	for _, item := range group.Items {
		for _, field := range item.Fields {
			if field.Value != "" || field.Checked {
				t.Fatalf("expected empty field, got %+v", field)
			}
		}
	}
}

func TestSequencer_ResizeErrors(t *testing.T) {
	seq := newSequencer(t)
	advanceTo(t, seq, "vehicles", 1)

	if err := seq.Resize("drivers", 2); !errors.Is(err, wizard.ErrUnknownGroup) {
		t.Fatalf("expected ErrUnknownGroup, got %v", err)
	}
	if err := seq.Resize("vehicles", 0); !errors.Is(err, wizard.ErrCountOutOfRange) {
		t.Fatalf("expected ErrCountOutOfRange, got %v", err)
	}

	advanceTo(t, seq, "insurance", 1)
	if err := seq.Resize("coverages", 2); !errors.Is(err, wizard.ErrCountOutOfRange) {
		t.Fatalf("expected derived count to be fixed, got %v", err)
	}
}

func TestSequencer_CoveragesFollowVehicles(t *testing.T) {
	seq := newSequencer(t)
	advanceTo(t, seq, "insurance", 3)

	vm := seq.View(nil)
	if len(vm.Groups) != 1 {
		t.Fatalf("expected one group, got %d", len(vm.Groups))
	}
	group := vm.Groups[0]
	if !group.Fixed || group.Count != 3 || len(group.CountOptions) != 0 {
		t.Fatalf("unexpected coverage group %+v", group)
	}
}

func TestSequencer_ViewUsesCascadeSnapshots(t *testing.T) {
	seq := newSequencer(t)
	advanceTo(t, seq, "vehicles", 1)

	vm := seq.View(nil)
	fields := vm.Groups[0].Items[0].Fields
	byName := map[string]wizard.FieldView{}
	for _, f := range fields {
		byName[f.Name] = f
	}
	if year := byName["vehicles.0.year"]; len(year.Options) != 3 || year.Disabled {
		t.Fatalf("expected enabled year with configured options, got %+v", year)
	}
	if mk := byName["vehicles.0.make"]; !mk.Disabled || mk.State != string(cascade.StateEmpty) || mk.Placeholder != "Select Make" {
		t.Fatalf("expected empty disabled make, got %+v", mk)
	}

	snap := cascade.Initial([]int{2021, 2020, 2019})
	snap.Year.Value = "2020"
	snap.Make = cascade.Control{Name: "make", State: cascade.StateReady, Placeholder: "Select Make", Options: []string{"FORD", "KIA"}, Value: "FORD"}
	snap.Model = cascade.Control{Name: "model", State: cascade.StateLoading, Disabled: true, Placeholder: "Loading...", Options: []string{}}

	vm = seq.View(map[int]cascade.Snapshot{0: snap})
	fields = vm.Groups[0].Items[0].Fields
	for _, f := range fields {
		byName[f.Name] = f
	}
	if mk := byName["vehicles.0.make"]; mk.Disabled || mk.Value != "FORD" || len(mk.Options) != 2 {
		t.Fatalf("expected ready make from snapshot, got %+v", mk)
	}
	if model := byName["vehicles.0.model"]; !model.Disabled || model.Placeholder != "Loading..." {
		t.Fatalf("expected loading model from snapshot, got %+v", model)
	}
}

func TestValidate_ChecksEachGroupItem(t *testing.T) {
	def := wizard.MustDefaultDefinition()
	step, _ := def.Step(1)

	values := vehicleValues(2)
	delete(values, "vehicles.1.make")
	_, err := wizard.Validate(step, values, map[string]int{"vehicles": 2})
	var verr *wizard.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if diff := cmp.Diff(map[string]string{"vehicles.1.make": "required"}, verr.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	flat, err := wizard.Validate(step, vehicleValues(1), nil)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if flat["vehicle_count"] != 1 || flat["vehicles.0.model"] != "F-150" {
		t.Fatalf("unexpected values %+v", flat)
	}
}
