package wizard_test

import (
	"strconv"
	"testing"

	"github.com/goliatone/go-autoquote/pkg/wizard"
)

func newSequencer(t testing.TB) *wizard.Sequencer {
	t.Helper()
	def, err := wizard.DefaultDefinition()
	if err != nil {
		t.Fatalf("default definition: %v", err)
	}
	return wizard.NewSequencer(def, wizard.WithYears([]int{2021, 2020, 2019}))
}

func personalValues() map[string]string {
	return map[string]string{
		"first_name": "Jane",
		"last_name":  "Doe",
		"email":      "jane@example.com",
		"phone":      "5551234567",
		"dob":        "1990-04-01",
		"address":    "1 Main St",
		"city":       "Austin",
		"state":      "TX",
		"zip":        "78701",
	}
}

func vehicleValues(count int) map[string]string {
	values := map[string]string{"vehicle_count": strconv.Itoa(count)}
	for i := 0; i < count; i++ {
		values[wizard.ItemPath("vehicles", i, "year")] = "2020"
		values[wizard.ItemPath("vehicles", i, "make")] = "Ford"
		values[wizard.ItemPath("vehicles", i, "model")] = "F-150"
	}
	return values
}

func driverValues() map[string]string {
	return map[string]string{
		"driver_count":     "1",
		"drivers.0.first":  "Jane",
		"drivers.0.last":   "Doe",
		"drivers.0.dob":    "1990-04-01",
		"drivers.0.course": "on",
	}
}

func insuranceValues(vehicles int) map[string]string {
	values := map[string]string{
		"limits":            "50/100/50",
		"company":           "Acme Mutual",
		"time_with_company": "1-3",
		"premium":           "120.50",
		"frequency":         "monthly",
	}
	for i := 0; i < vehicles; i++ {
		values[wizard.ItemPath("coverages", i, "type")] = "full"
		values[wizard.ItemPath("coverages", i, "deductible")] = "500"
	}
	return values
}

// advanceTo submits valid values until the sequencer shows step id.
func advanceTo(t testing.TB, seq *wizard.Sequencer, id string, vehicles int) {
	t.Helper()
	for {
		step, ok := seq.Current()
		if !ok {
			t.Fatalf("wizard finished before reaching %q", id)
		}
		if step.ID == id {
			return
		}
		var values map[string]string
		switch step.ID {
		case "personal":
			values = personalValues()
		case "vehicles":
			values = vehicleValues(vehicles)
		case "drivers":
			values = driverValues()
		case "insurance":
			values = insuranceValues(vehicles)
		default:
			values = map[string]string{}
		}
		if err := seq.Submit(values); err != nil {
			t.Fatalf("submit %s: %v", step.ID, err)
		}
	}
}
