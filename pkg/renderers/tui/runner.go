package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/flatten"
	"github.com/goliatone/go-autoquote/pkg/submit"
	"github.com/goliatone/go-autoquote/pkg/validation"
	"github.com/goliatone/go-autoquote/pkg/vinfill"
	"github.com/goliatone/go-autoquote/pkg/wizard"
)

const noneOption = "(none)"

// Runner walks a Sequencer in the terminal: one prompt per field, a count
// prompt per repeated group, and a cascading selector per vehicle.
type Runner struct {
	seq             *wizard.Sequencer
	source          cascade.Source
	driver          PromptDriver
	outputFormat    OutputFormat
	theme           Theme
	selectorOptions []cascade.Option
	filler          *vinfill.Filler
	submitter       *submit.Submitter
	maxAttempts     int
	logger          *slog.Logger

	selectors map[int]*cascade.Selector
}

// New builds a runner over seq. source feeds the make and model lists.
func New(seq *wizard.Sequencer, source cascade.Source, options ...Option) *Runner {
	r := &Runner{
		seq:          seq,
		source:       source,
		outputFormat: OutputFormatJSON,
		theme:        defaultTheme(),
		logger:       slog.Default(),
		selectors:    make(map[int]*cascade.Selector),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	if r.submitter == nil {
		r.submitter = submit.NewSubmitter(submit.NewForm("quote", "", ""), submit.WithLogger(r.logger))
	}
	return r
}

// ContentType reports the serialization format Run produces.
func (r *Runner) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Run prompts every remaining step, re-prompting a step until it passes
// validation, then flattens the record and returns it serialized.
func (r *Runner) Run(ctx context.Context) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if r.seq == nil {
		return nil, errors.New("tui: sequencer is nil")
	}

	attempts, lastIndex := 0, -1
	for !r.seq.Done() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if index := r.seq.Index(); index != lastIndex {
			attempts, lastIndex = 0, index
		}
		attempts++
		if r.maxAttempts > 0 && attempts > r.maxAttempts {
			return nil, ErrTooManyAttempts
		}

		values, err := r.promptStep(ctx)
		if err != nil {
			return nil, err
		}

		err = r.seq.Submit(values)
		var verr *wizard.ValidationError
		switch {
		case err == nil:
		case errors.As(err, &verr):
			for _, issue := range verr.Issues() {
				if err := r.say(ctx, r.theme.ErrorPrefix+issue.Path+": "+issue.Message); err != nil {
					return nil, err
				}
			}
		default:
			return nil, err
		}
	}

	sub, err := r.submitter.Submit(ctx, r.seq.Record())
	if err != nil {
		return nil, err
	}
	done := r.seq.View(nil)
	if err := r.say(ctx, done.Title+" "+done.Message); err != nil {
		return nil, err
	}
	return r.serialize(sub.Flat)
}

func (r *Runner) promptStep(ctx context.Context) (map[string]string, error) {
	step, ok := r.seq.Current()
	if !ok {
		return nil, wizard.ErrCompleted
	}
	vm := r.seq.View(r.snapshots())
	if err := r.say(ctx, r.theme.InfoPrefix+vm.Progress+" - "+vm.StepTitle); err != nil {
		return nil, err
	}
	if vm.Description != "" {
		if err := r.say(ctx, vm.Description); err != nil {
			return nil, err
		}
	}

	values := make(map[string]string)
	if vm.Last {
		for _, item := range vm.Summary {
			if err := r.say(ctx, "  "+item.Key+": "+item.Value); err != nil {
				return nil, err
			}
		}
		confirmed, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Submit your quote request?", Default: true})
		if err != nil {
			return nil, err
		}
		if !confirmed {
			return nil, ErrAborted
		}
		return values, nil
	}

	for i, field := range step.Fields {
		value, err := r.promptField(ctx, field, vm.Fields[i], vm.Fields[i].Label)
		if err != nil {
			return nil, err
		}
		values[field.Name] = value
	}

	for j, g := range step.Groups {
		if g.CountField != "" {
			count, err := r.promptCount(ctx, vm.Groups[j])
			if err != nil {
				return nil, err
			}
			if count != vm.Groups[j].Count {
				if err := r.seq.Resize(g.Name, count); err != nil {
					return nil, err
				}
				r.resetSelectors()
				vm = r.seq.View(r.snapshots())
			}
			values[g.CountField] = strconv.Itoa(count)
		}

		for _, item := range vm.Groups[j].Items {
			for k, field := range g.Fields {
				fv := item.Fields[k]
				message := item.Label + ": " + fv.Label

				var (
					value string
					err   error
				)
				if field.Cascade != "" || field.Autofill != "" {
					value, err = r.promptVehicleField(ctx, item.Index, field, fv, message)
				} else {
					value, err = r.promptField(ctx, field, fv, message)
				}
				if err != nil {
					return nil, err
				}
				values[fv.Name] = value
			}
		}
	}
	return values, nil
}

func (r *Runner) promptField(ctx context.Context, field wizard.Field, fv wizard.FieldView, message string) (string, error) {
	switch {
	case fv.Type == "checkbox":
		checked, err := r.driver.Confirm(ctx, ConfirmConfig{Message: message, Default: fv.Checked, Help: fv.Error})
		if err != nil {
			return "", err
		}
		if checked {
			return "on", nil
		}
		return "", nil

	case len(fv.Options) > 0:
		labels := make([]string, 0, len(fv.Options)+1)
		values := make([]string, 0, len(fv.Options)+1)
		if !fv.Required {
			labels = append(labels, noneOption)
			values = append(values, "")
		}
		for _, option := range fv.Options {
			labels = append(labels, option.Label)
			values = append(values, option.Value)
		}
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      message,
			Options:      labels,
			DefaultIndex: indexOf(values, fv.Value),
			Help:         fv.Error,
		})
		if err != nil {
			return "", err
		}
		if idx < 0 || idx >= len(values) {
			return "", nil
		}
		return values[idx], nil
	}

	rule := field.Rule()
	return r.driver.Input(ctx, InputConfig{
		Message: message,
		Default: fv.Value,
		Help:    fv.Error,
		Validator: func(raw string) error {
			if res := validation.Check(rule, raw); !res.OK() {
				return errors.New(res.Message)
			}
			return nil
		},
	})
}

func (r *Runner) promptCount(ctx context.Context, group wizard.GroupView) (int, error) {
	if len(group.CountOptions) == 0 {
		return group.Count, nil
	}
	labels := make([]string, 0, len(group.CountOptions))
	current := 0
	for i, n := range group.CountOptions {
		labels = append(labels, strconv.Itoa(n))
		if n == group.Count {
			current = i
		}
	}
	idx, err := r.driver.Select(ctx, SelectConfig{Message: group.CountLabel, Options: labels, DefaultIndex: current})
	if err != nil {
		return 0, err
	}
	if idx < 0 || idx >= len(group.CountOptions) {
		return group.Count, nil
	}
	return group.CountOptions[idx], nil
}

// promptVehicleField drives the selector of vehicle index. Make and model
// prompts wait for their fetch to settle and offer only what it loaded.
func (r *Runner) promptVehicleField(ctx context.Context, index int, field wizard.Field, fv wizard.FieldView, message string) (string, error) {
	sel := r.selector(index)

	if field.Autofill == "vin" {
		vin, err := r.promptField(ctx, field, fv, message)
		if err != nil {
			return "", err
		}
		if vin != "" && r.filler != nil {
			res := r.filler.Fill(ctx, sel, vin)
			if res.Applied() {
				year, makeName, model := sel.Selection()
				if err := r.say(ctx, fmt.Sprintf("Decoded VIN: %d %s %s", year, makeName, model)); err != nil {
					return "", err
				}
			}
		}
		return vin, nil
	}

	var control cascade.Control
	switch field.Cascade {
	case cascade.FieldYear:
		control = sel.Snapshot().Year
	case cascade.FieldMake:
		if err := sel.AwaitMake(ctx); err != nil {
			return "", err
		}
		control = sel.Snapshot().Make
	case cascade.FieldModel:
		if err := sel.AwaitModel(ctx); err != nil {
			return "", err
		}
		control = sel.Snapshot().Model
	default:
		return r.promptField(ctx, field, fv, message)
	}

	if len(control.Options) == 0 {
		if err := r.say(ctx, r.theme.ErrorPrefix+message+": "+control.Placeholder); err != nil {
			return "", err
		}
		return "", nil
	}

	def := indexOf(control.Options, control.Value)
	if def < 0 {
		def = indexOf(control.Options, fv.Value)
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message,
		Options:      control.Options,
		DefaultIndex: def,
		Help:         fv.Error,
		PageSize:     12,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(control.Options) {
		return "", nil
	}
	chosen := control.Options[idx]
	if chosen == control.Value {
		return chosen, nil
	}

	switch field.Cascade {
	case cascade.FieldYear:
		year, err := strconv.Atoi(chosen)
		if err != nil {
			return "", fmt.Errorf("tui: year option %q: %w", chosen, err)
		}
		if _, err := sel.SelectYear(ctx, year); err != nil {
			return "", err
		}
	case cascade.FieldMake:
		if _, err := sel.SelectMake(ctx, chosen); err != nil {
			return "", err
		}
	case cascade.FieldModel:
		if err := sel.SelectModel(chosen); err != nil {
			return "", err
		}
	}
	return chosen, nil
}

func (r *Runner) selector(index int) *cascade.Selector {
	if sel, ok := r.selectors[index]; ok {
		return sel
	}
	options := append([]cascade.Option{cascade.WithLogger(r.logger)}, r.selectorOptions...)
	sel := cascade.New(r.source, options...)
	r.selectors[index] = sel
	return sel
}

func (r *Runner) resetSelectors() {
	for _, sel := range r.selectors {
		sel.Reset()
	}
	r.selectors = make(map[int]*cascade.Selector)
}

func (r *Runner) snapshots() map[int]cascade.Snapshot {
	if len(r.selectors) == 0 {
		return nil
	}
	out := make(map[int]cascade.Snapshot, len(r.selectors))
	for index, sel := range r.selectors {
		out[index] = sel.Snapshot()
	}
	return out
}

func (r *Runner) say(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, msg)
}

func (r *Runner) serialize(flat map[string]string) ([]byte, error) {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		values := url.Values{}
		for key, value := range flat {
			values.Set(key, value)
		}
		return []byte(values.Encode()), nil
	case OutputFormatPrettyText:
		var b strings.Builder
		for _, key := range flatten.Keys(flat) {
			fmt.Fprintf(&b, "%s: %s\n", key, flat[key])
		}
		return []byte(b.String()), nil
	default:
		out, err := json.MarshalIndent(flat, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("tui: encode quote: %w", err)
		}
		return out, nil
	}
}
