package wizard_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"

	"github.com/goliatone/go-autoquote/pkg/wizard"
)

const bddVehicles = 2

// SequencerBDDTestContext holds the state of one scenario.
type SequencerBDDTestContext struct {
	t         *testing.T
	seq       *wizard.Sequencer
	lastError error
}

func (ctx *SequencerBDDTestContext) aNewQuoteWizard() error {
	def, err := wizard.DefaultDefinition()
	if err != nil {
		return err
	}
	ctx.seq = wizard.NewSequencer(def, wizard.WithYears([]int{2021, 2020, 2019}))
	ctx.lastError = nil
	return nil
}

func (ctx *SequencerBDDTestContext) valuesFor(step string) map[string]string {
	switch step {
	case "personal":
		return personalValues()
	case "vehicles":
		return vehicleValues(bddVehicles)
	case "drivers":
		return driverValues()
	case "insurance":
		return insuranceValues(bddVehicles)
	}
	return map[string]string{}
}

func (ctx *SequencerBDDTestContext) theWizardHasReachedTheStep(id string) error {
	for {
		step, ok := ctx.seq.Current()
		if !ok {
			return fmt.Errorf("wizard finished before reaching %q", id)
		}
		if step.ID == id {
			return nil
		}
		if err := ctx.seq.Submit(ctx.valuesFor(step.ID)); err != nil {
			return fmt.Errorf("submit %s: %w", step.ID, err)
		}
	}
}

func (ctx *SequencerBDDTestContext) iSubmitTheStep(id string) error {
	step, ok := ctx.seq.Current()
	if !ok || step.ID != id {
		return fmt.Errorf("expected to be on %q", id)
	}
	return ctx.seq.Submit(ctx.valuesFor(id))
}

func (ctx *SequencerBDDTestContext) iSubmitTheVehiclesStepWithVehicles(count int) error {
	return ctx.seq.Submit(vehicleValues(count))
}

func (ctx *SequencerBDDTestContext) iSubmitThePersonalStepWithPhone(phone string) error {
	values := personalValues()
	values["phone"] = phone
	ctx.lastError = ctx.seq.Submit(values)
	return nil
}

func (ctx *SequencerBDDTestContext) theProgressShouldRead(want string) error {
	if got := ctx.seq.View(nil).Progress; got != want {
		return fmt.Errorf("expected progress %q, got %q", want, got)
	}
	return nil
}

func (ctx *SequencerBDDTestContext) theTerminalScreenShouldBeShown() error {
	vm := ctx.seq.View(nil)
	if !vm.Terminal {
		return fmt.Errorf("expected terminal screen, got step %q", vm.Step)
	}
	if vm.Title != "Thank you!" {
		return fmt.Errorf("unexpected terminal title %q", vm.Title)
	}
	return nil
}

func (ctx *SequencerBDDTestContext) submittingAgainShouldReportTheQuoteAsCompleted() error {
	if err := ctx.seq.Submit(nil); !errors.Is(err, wizard.ErrCompleted) {
		return fmt.Errorf("expected ErrCompleted, got %v", err)
	}
	if !ctx.seq.View(nil).Terminal {
		return fmt.Errorf("expected to remain on the terminal screen")
	}
	return nil
}

func (ctx *SequencerBDDTestContext) theFieldShouldReport(path, message string) error {
	var verr *wizard.ValidationError
	if !errors.As(ctx.lastError, &verr) {
		return fmt.Errorf("expected validation error, got %v", ctx.lastError)
	}
	if got := verr.Errors[path]; got != message {
		return fmt.Errorf("expected %s to report %q, got %q", path, message, got)
	}
	return nil
}

func (ctx *SequencerBDDTestContext) theFieldShouldShow(path, value string) error {
	vm := ctx.seq.View(nil)
	for _, group := range vm.Groups {
		for _, item := range group.Items {
			for _, field := range item.Fields {
				if field.Name == path {
					if field.Value != value {
						return fmt.Errorf("expected %s to show %q, got %q", path, value, field.Value)
					}
					return nil
				}
			}
		}
	}
	for _, field := range vm.Fields {
		if field.Name == path {
			if field.Value != value {
				return fmt.Errorf("expected %s to show %q, got %q", path, value, field.Value)
			}
			return nil
		}
	}
	return fmt.Errorf("field %s not rendered", path)
}

func (ctx *SequencerBDDTestContext) iChangeTheCountTo(group string, count int) error {
	return ctx.seq.Resize(group, count)
}

func (ctx *SequencerBDDTestContext) emptyFieldsetsShouldBeRendered(count int, group string) error {
	vm := ctx.seq.View(nil)
	for _, g := range vm.Groups {
		if g.Name != group {
			continue
		}
		if len(g.Items) != count {
			return fmt.Errorf("expected %d %s fieldsets, got %d", count, group, len(g.Items))
		}
		for _, item := range g.Items {
			for _, field := range item.Fields {
				if field.Value != "" {
					return fmt.Errorf("expected %s to be empty, got %q", field.Name, field.Value)
				}
			}
		}
		return nil
	}
	return fmt.Errorf("group %s not rendered", group)
}

func TestSequencerFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: func(sc *godog.ScenarioContext) {
			ctx := &SequencerBDDTestContext{t: t}

			sc.Step(`^a new quote wizard$`, ctx.aNewQuoteWizard)
			sc.Step(`^the wizard has reached the "([^"]*)" step$`, ctx.theWizardHasReachedTheStep)

			sc.Step(`^I submit the (personal|drivers|insurance|review) step$`, ctx.iSubmitTheStep)
			sc.Step(`^I submit the vehicles step with (\d+) vehicles$`, ctx.iSubmitTheVehiclesStepWithVehicles)
			sc.Step(`^I submit the personal step with phone "([^"]*)"$`, ctx.iSubmitThePersonalStepWithPhone)
			sc.Step(`^I change the "([^"]*)" count to (\d+)$`, ctx.iChangeTheCountTo)

			sc.Step(`^the progress should read "([^"]*)"$`, ctx.theProgressShouldRead)
			sc.Step(`^the terminal screen should be shown$`, ctx.theTerminalScreenShouldBeShown)
			sc.Step(`^submitting again should report the quote as completed$`, ctx.submittingAgainShouldReportTheQuoteAsCompleted)
			sc.Step(`^the field "([^"]*)" should report "([^"]*)"$`, ctx.theFieldShouldReport)
			sc.Step(`^the field "([^"]*)" should show "([^"]*)"$`, ctx.theFieldShouldShow)
			sc.Step(`^(\d+) empty "([^"]*)" fieldsets should be rendered$`, ctx.emptyFieldsetsShouldBeRendered)
		},
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
