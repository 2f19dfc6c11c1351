package wizard

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/quote"
	"github.com/goliatone/go-autoquote/pkg/validation"
)

// Sequencer is the linear step state machine. Its state is the current step
// index plus the aggregate record; reaching past the last step is terminal.
// A Sequencer is not safe for concurrent use.
type Sequencer struct {
	def    Definition
	years  []int
	logger *slog.Logger

	index  int
	record quote.Record
	counts map[string]int
	draft  map[string]string
	errors map[string]string
}

type Option func(*Sequencer)

// WithYears sets the year options shown before a selector reports its own.
func WithYears(years []int) Option {
	return func(s *Sequencer) {
		s.years = append([]int(nil), years...)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sequencer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewSequencer(def Definition, options ...Option) *Sequencer {
	s := &Sequencer{
		def:    def,
		years:  cascade.YearOptions(time.Now(), cascade.DefaultMinYear),
		logger: slog.Default(),
		counts: make(map[string]int),
		draft:  make(map[string]string),
		errors: make(map[string]string),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	s.enter()
	return s
}

func (s *Sequencer) Definition() Definition { return s.def }

// Index is the 0-based current step; it equals Total() once done.
func (s *Sequencer) Index() int { return s.index }

func (s *Sequencer) Total() int { return len(s.def.Steps) }

// Done reports whether the final step has been submitted.
func (s *Sequencer) Done() bool { return s.index >= len(s.def.Steps) }

// Current returns the step being shown.
func (s *Sequencer) Current() (Step, bool) { return s.def.Step(s.index) }

// Record returns a copy of the aggregate record.
func (s *Sequencer) Record() quote.Record { return s.record.Clone() }

// Draft returns a copy of the values shown on the current step: prefilled
// values, or what was last submitted if it failed validation.
func (s *Sequencer) Draft() map[string]string {
	return copyStrings(s.draft)
}

// Errors returns a copy of the current step's validation errors.
func (s *Sequencer) Errors() map[string]string {
	return copyStrings(s.errors)
}

// Count reports how many items group renders on the current step.
func (s *Sequencer) Count(group string) int {
	step, ok := s.Current()
	if !ok {
		return 0
	}
	g, ok := step.Group(group)
	if !ok {
		return 0
	}
	return groupCount(g, s.counts, s.record)
}

// Submit validates values (flat dotted form names) against the current step.
// On success the step's section of the record is replaced and the sequencer
// advances; submitting the last step makes it terminal. On failure it stays
// put and returns a *ValidationError.
func (s *Sequencer) Submit(values map[string]string) error {
	step, ok := s.Current()
	if !ok {
		return ErrCompleted
	}

	for _, g := range step.Groups {
		if g.CountField == "" {
			continue
		}
		raw, present := values[g.CountField]
		if !present {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || !countAllowed(g, n) {
			return &ValidationError{Step: step.ID, Errors: map[string]string{g.CountField: "is not an allowed option"}}
		}
		s.counts[g.Name] = n
	}

	counts := make(map[string]int, len(step.Groups))
	for _, g := range step.Groups {
		counts[g.Name] = groupCount(g, s.counts, s.record)
	}
	flat, err := Validate(step, values, counts)
	if err != nil {
		s.draft = copyStrings(values)
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.errors = copyStrings(verr.Errors)
			s.logger.Debug("wizard: step rejected", "step", step.ID, "errors", len(verr.Errors))
		}
		return err
	}

	nested, err := Expand(flat)
	if err != nil {
		return fmt.Errorf("wizard: step %q: %w", step.ID, err)
	}
	for name, n := range counts {
		padList(nested, name, n)
	}
	if err := s.record.Merge(step.ID, nested); err != nil {
		return err
	}

	s.logger.Debug("wizard: step accepted", "step", step.ID, "index", s.index)
	s.index++
	s.enter()
	return nil
}

// Resize sets the item count of a group on the current step. Everything
// entered for that group is discarded, prefilled values included, so the
// step renders exactly count empty fieldsets.
func (s *Sequencer) Resize(group string, count int) error {
	step, ok := s.Current()
	if !ok {
		return ErrCompleted
	}
	g, ok := step.Group(group)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownGroup, group)
	}
	if g.CountFrom != "" || !countAllowed(g, count) {
		return fmt.Errorf("%w: %s=%d", ErrCountOutOfRange, group, count)
	}
	s.counts[g.Name] = count

	prefix := g.Name + "."
	for key := range s.draft {
		if strings.HasPrefix(key, prefix) || key == g.CountField {
			delete(s.draft, key)
		}
	}
	for key := range s.errors {
		if strings.HasPrefix(key, prefix) || key == g.CountField {
			delete(s.errors, key)
		}
	}
	return nil
}

// Validate checks values (flat dotted form names) against step and returns
// the typed values keyed by path. counts gives the number of items each group
// renders; a missing entry means one. Failures come back as *ValidationError.
func Validate(step Step, values map[string]string, counts map[string]int) (map[string]any, error) {
	flat := make(map[string]any)
	errs := make(map[string]string)
	check := func(path string, field Field) {
		res := validation.Check(field.Rule(), values[path])
		if !res.OK() {
			errs[path] = res.Message
			return
		}
		if res.Value != nil {
			flat[path] = res.Value
		}
	}

	for _, field := range step.Fields {
		check(field.Name, field)
	}
	for _, g := range step.Groups {
		n, ok := counts[g.Name]
		if !ok {
			n = 1
		}
		if g.CountField != "" {
			flat[g.CountField] = n
		}
		for i := 0; i < n; i++ {
			for _, field := range g.Fields {
				check(ItemPath(g.Name, i, field.Name), field)
			}
		}
	}

	if len(errs) > 0 {
		return nil, &ValidationError{Step: step.ID, Errors: errs}
	}
	return flat, nil
}

// View projects the current position into a view model. cascades carries
// the selector state of each item of the cascading group, by item index.
func (s *Sequencer) View(cascades map[int]cascade.Snapshot) ViewModel {
	return View(s.def, s.index, s.record, ViewOptions{
		Values:   s.draft,
		Errors:   s.errors,
		Counts:   s.counts,
		Cascades: cascades,
		Years:    s.years,
	})
}

// enter resets per-step state and applies group prefills.
func (s *Sequencer) enter() {
	s.draft = make(map[string]string)
	s.errors = make(map[string]string)

	step, ok := s.Current()
	if !ok {
		return
	}
	for _, g := range step.Groups {
		if g.Prefill != PrefillPrimary {
			continue
		}
		primary := s.record.PrimaryDriver().Map()
		for _, field := range g.Fields {
			if value, ok := primary[field.Name]; ok {
				if text, _ := value.(string); text != "" {
					s.draft[ItemPath(g.Name, 0, field.Name)] = text
				}
			}
		}
	}
}

func groupCount(g Group, counts map[string]int, record quote.Record) int {
	if g.CountFrom != "" {
		items, _ := record.Map()[g.CountFrom].([]any)
		return len(items)
	}
	if n, ok := counts[g.Name]; ok {
		return n
	}
	if g.Default > 0 {
		return g.Default
	}
	if g.Min > 0 {
		return g.Min
	}
	return 1
}

func countAllowed(g Group, n int) bool {
	if n < 0 || n < g.Min {
		return false
	}
	if g.Max > 0 && n > g.Max {
		return false
	}
	return true
}

// padList makes nested[name] a list of exactly n items so positions line up
// with the rendered fieldsets even when an item had no values.
func padList(nested map[string]any, name string, n int) {
	items, _ := nested[name].([]any)
	for len(items) < n {
		items = append(items, map[string]any{})
	}
	for i, item := range items {
		if item == nil {
			items[i] = map[string]any{}
		}
	}
	if items == nil {
		items = []any{}
	}
	nested[name] = items
}

func copyStrings(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
