package wizard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-autoquote/pkg/validation"
)

var (
	// ErrCompleted is returned by any transition after the final step.
	ErrCompleted = errors.New("wizard: quote already submitted")
	// ErrUnknownGroup is returned when resizing a group the current step
	// does not have.
	ErrUnknownGroup = errors.New("wizard: unknown group")
	// ErrCountOutOfRange is returned when a group count is outside its
	// bounds or the group's count is derived.
	ErrCountOutOfRange = errors.New("wizard: count out of range")
)

// ValidationError lists the fields of a step that failed validation, keyed
// by dotted field path.
type ValidationError struct {
	Step   string
	Errors map[string]string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	keys := sortedKeys(e.Errors)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+" "+e.Errors[key])
	}
	return fmt.Sprintf("wizard: step %q is invalid: %s", e.Step, strings.Join(parts, "; "))
}

// Issues returns the errors in path order.
func (e *ValidationError) Issues() []validation.Issue {
	if e == nil {
		return nil
	}
	out := make([]validation.Issue, 0, len(e.Errors))
	for _, path := range sortedKeys(e.Errors) {
		field := path
		if idx := strings.LastIndex(path, "."); idx >= 0 {
			field = path[idx+1:]
		}
		out = append(out, validation.Issue{Path: path, Field: field, Message: e.Errors[path]})
	}
	return out
}
