package wizard

import (
	"fmt"
	"strconv"

	"github.com/goliatone/go-autoquote/pkg/cascade"
	"github.com/goliatone/go-autoquote/pkg/flatten"
	"github.com/goliatone/go-autoquote/pkg/quote"
)

// ViewModel is everything a front-end needs to draw one screen. It holds
// only plain data and serializes to JSON.
type ViewModel struct {
	Title       string            `json:"title"`
	Step        string            `json:"step,omitempty"`
	StepTitle   string            `json:"step_title,omitempty"`
	Description string            `json:"description,omitempty"`
	Index       int               `json:"index"`
	Total       int               `json:"total"`
	Progress    string            `json:"progress,omitempty"`
	Last        bool              `json:"last,omitempty"`
	Terminal    bool              `json:"terminal"`
	Message     string            `json:"message,omitempty"`
	Fields      []FieldView       `json:"fields,omitempty"`
	Groups      []GroupView       `json:"groups,omitempty"`
	Errors      map[string]string `json:"errors,omitempty"`
	Summary     []SummaryItem     `json:"summary,omitempty"`
}

type FieldView struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Kind        string   `json:"kind,omitempty"`
	Required    bool     `json:"required,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Pattern     string   `json:"pattern,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	MaxLength   int      `json:"max_length,omitempty"`
	Value       string   `json:"value,omitempty"`
	Checked     bool     `json:"checked,omitempty"`
	Error       string   `json:"error,omitempty"`
	Options     []Option `json:"options,omitempty"`
	Disabled    bool     `json:"disabled,omitempty"`
	State       string   `json:"state,omitempty"`
	Cascade     string   `json:"cascade,omitempty"`
	Autofill    string   `json:"autofill,omitempty"`
}

type GroupView struct {
	Name         string     `json:"name"`
	Label        string     `json:"label"`
	CountField   string     `json:"count_field,omitempty"`
	CountLabel   string     `json:"count_label,omitempty"`
	CountOptions []int      `json:"count_options,omitempty"`
	Count        int        `json:"count"`
	Fixed        bool       `json:"fixed,omitempty"`
	Items        []ItemView `json:"items"`
}

type ItemView struct {
	Index  int         `json:"index"`
	Label  string      `json:"label"`
	Fields []FieldView `json:"fields"`
}

// SummaryItem is one flattened record entry shown on the review step.
type SummaryItem struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ViewOptions carries the per-screen state that is not part of the record.
type ViewOptions struct {
	Values   map[string]string
	Errors   map[string]string
	Counts   map[string]int
	Cascades map[int]cascade.Snapshot
	Years    []int
}

// View is a pure projection of (definition, step index, record) plus the
// transient screen state in opts. An index past the last step yields the
// terminal screen.
func View(def Definition, index int, record quote.Record, opts ViewOptions) ViewModel {
	total := len(def.Steps)
	step, ok := def.Step(index)
	if !ok {
		return ViewModel{
			Title:    def.Done.Title,
			Index:    total,
			Total:    total,
			Terminal: true,
			Message:  def.Done.Message,
		}
	}

	vm := ViewModel{
		Title:       def.Title,
		Step:        step.ID,
		StepTitle:   step.Title,
		Description: step.Description,
		Index:       index,
		Total:       total,
		Progress:    Progress(index, total),
		Last:        index == total-1,
	}
	if len(opts.Errors) > 0 {
		vm.Errors = copyStrings(opts.Errors)
	}

	for _, field := range step.Fields {
		vm.Fields = append(vm.Fields, fieldView(field, field.Name, opts, nil))
	}
	for _, g := range step.Groups {
		vm.Groups = append(vm.Groups, groupView(g, record, opts))
	}
	if vm.Last {
		vm.Summary = summarize(record)
	}
	return vm
}

// Progress is the "Step N of M" caption for a 0-based index.
func Progress(index, total int) string {
	return fmt.Sprintf("Step %d of %d", index+1, total)
}

func groupView(g Group, record quote.Record, opts ViewOptions) GroupView {
	count := groupCount(g, opts.Counts, record)
	gv := GroupView{
		Name:       g.Name,
		Label:      g.Label,
		CountField: g.CountField,
		CountLabel: g.CountLabel,
		Count:      count,
		Fixed:      g.CountFrom != "",
		Items:      make([]ItemView, 0, count),
	}
	if !gv.Fixed {
		low, high := g.Min, g.Max
		if low < 1 {
			low = 1
		}
		if high < low {
			high = low
		}
		for n := low; n <= high; n++ {
			gv.CountOptions = append(gv.CountOptions, n)
		}
	}

	for i := 0; i < count; i++ {
		item := ItemView{Index: i, Label: g.Label + " " + strconv.Itoa(i+1)}
		var snap *cascade.Snapshot
		if s, ok := opts.Cascades[i]; ok {
			snap = &s
		}
		for _, field := range g.Fields {
			item.Fields = append(item.Fields, fieldView(field, ItemPath(g.Name, i, field.Name), opts, snap))
		}
		gv.Items = append(gv.Items, item)
	}
	return gv
}

func fieldView(field Field, path string, opts ViewOptions, snap *cascade.Snapshot) FieldView {
	fv := FieldView{
		Name:        path,
		Label:       field.Label,
		Type:        field.Type,
		Kind:        field.Kind,
		Required:    field.Required,
		Placeholder: field.Placeholder,
		Pattern:     field.Pattern,
		Min:         field.Min,
		Max:         field.Max,
		MaxLength:   field.MaxLength,
		Value:       opts.Values[path],
		Error:       opts.Errors[path],
		Options:     append([]Option(nil), field.Options...),
		Cascade:     field.Cascade,
		Autofill:    field.Autofill,
	}
	if fv.Placeholder == "" {
		fv.Placeholder = field.Label
	}
	if field.Type == "checkbox" {
		fv.Checked = isChecked(fv.Value)
	}
	if field.Cascade != "" {
		applyCascade(&fv, field.Cascade, opts.Years, snap)
	}
	return fv
}

func applyCascade(fv *FieldView, role string, years []int, snap *cascade.Snapshot) {
	state := cascade.Initial(years)
	if snap != nil {
		state = *snap
	}
	var control cascade.Control
	switch role {
	case cascade.FieldYear:
		control = state.Year
	case cascade.FieldMake:
		control = state.Make
	case cascade.FieldModel:
		control = state.Model
	default:
		return
	}

	fv.Options = make([]Option, 0, len(control.Options))
	for _, option := range control.Options {
		fv.Options = append(fv.Options, Option{Value: option, Label: option})
	}
	fv.Disabled = control.Disabled
	fv.State = string(control.State)
	fv.Placeholder = control.Placeholder
	if control.Value != "" {
		fv.Value = control.Value
	}
}

func summarize(record quote.Record) []SummaryItem {
	flat, err := flatten.Flatten(record.Map(), "")
	if err != nil {
		return nil
	}
	values := flatten.Strings(flat)
	out := make([]SummaryItem, 0, len(values))
	for _, key := range flatten.Keys(values) {
		out = append(out, SummaryItem{Key: key, Value: values[key]})
	}
	return out
}

func isChecked(value string) bool {
	switch value {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
