package submit

import (
	"net/http"
	"sort"
	"strings"
)

// Field is one input of the target form. Dynamic fields were appended by a
// previous materialization and are replaced on the next one.
type Field struct {
	Name    string `json:"name"`
	Value   string `json:"value"`
	Dynamic bool   `json:"dynamic,omitempty"`
}

// Form models the element the flattened quote is posted through.
type Form struct {
	ID     string  `json:"id"`
	Action string  `json:"action"`
	Method string  `json:"method"`
	Fields []Field `json:"fields"`
}

// NewForm returns an empty form posting to action. An empty method means POST.
func NewForm(id, action, method string) Form {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodPost
	}
	return Form{ID: id, Action: action, Method: method}
}

// Materialize returns a copy of form carrying one field per flat entry.
// Dynamic fields from a previous call are dropped first; static fields whose
// name matches a flat key take the new value in place; the remaining keys are
// appended as dynamic fields in sorted order.
func Materialize(form Form, flat map[string]string) Form {
	out := form
	out.Fields = make([]Field, 0, len(form.Fields)+len(flat))

	used := make(map[string]struct{}, len(flat))
	for _, field := range form.Fields {
		if field.Dynamic {
			continue
		}
		if value, ok := flat[field.Name]; ok {
			field.Value = value
			used[field.Name] = struct{}{}
		}
		out.Fields = append(out.Fields, field)
	}

	names := make([]string, 0, len(flat))
	for name := range flat {
		if _, ok := used[name]; ok || strings.TrimSpace(name) == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		out.Fields = append(out.Fields, Field{Name: name, Value: flat[name], Dynamic: true})
	}
	return out
}

// Values returns the form fields as a name/value map.
func (f Form) Values() map[string]string {
	out := make(map[string]string, len(f.Fields))
	for _, field := range f.Fields {
		out[field.Name] = field.Value
	}
	return out
}

// WithHidden returns a copy of form with the given static hidden fields set,
// replacing fields of the same name.
func (f Form) WithHidden(fields ...HiddenField) Form {
	base := make(map[string]string)
	for _, field := range f.Fields {
		if !field.Dynamic {
			base[field.Name] = field.Value
		}
	}
	merged := MergeHiddenFields(base, fields...)

	out := f
	out.Fields = nil
	for _, hidden := range SortedHiddenFields(merged) {
		out.Fields = append(out.Fields, Field{Name: hidden.Name, Value: hidden.Value})
	}
	for _, field := range f.Fields {
		if field.Dynamic {
			out.Fields = append(out.Fields, field)
		}
	}
	return out
}
