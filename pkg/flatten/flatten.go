// Package flatten turns nested records into single-level key/value pairs
// suitable for a plain form backend.
//
// Object keys are joined with an underscore and list indexes are appended
// directly to the list's key:
//
//	{"a": 1, "b": [{"c": 2}], "tags": ["x"]}  =>  {"a": 1, "b0_c": 2, "tags0": "x"}
package flatten

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strconv"
)

// Separator joins an object key to its parent key.
const Separator = "_"

// CollisionError reports two distinct paths that flatten to the same key.
type CollisionError struct {
	Key    string
	First  string
	Second string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("flatten: %q and %q both flatten to key %q", e.First, e.Second, e.Key)
}

// ErrScalarRoot is returned when a scalar is flattened without a prefix.
var ErrScalarRoot = errors.New("flatten: scalar value needs a prefix")

// Flatten walks value (maps with string keys, slices and arrays, nested
// arbitrarily) and returns the flat form, with every key prefixed by prefix.
// Nil values and empty containers produce no keys. Other values, structs
// included, are kept as-is. Keys are visited in sorted order, so the result
// and any collision reported are deterministic.
func Flatten(value any, prefix string) (map[string]any, error) {
	w := &walker{
		out:     make(map[string]any),
		origins: make(map[string]string),
	}
	rv, ok := indirect(reflect.ValueOf(value))
	if !ok {
		return w.out, nil
	}
	if !isContainer(rv) && prefix == "" {
		return nil, ErrScalarRoot
	}
	if err := w.walk(rv, prefix, prefix); err != nil {
		return nil, err
	}
	return w.out, nil
}

type walker struct {
	out     map[string]any
	origins map[string]string
}

func (w *walker) walk(rv reflect.Value, key, path string) error {
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return w.emit(key, path, rv.Interface())
		}
		names := make([]string, 0, rv.Len())
		values := make(map[string]reflect.Value, rv.Len())
		for _, k := range rv.MapKeys() {
			name := k.String()
			names = append(names, name)
			values[name] = rv.MapIndex(k)
		}
		sort.Strings(names)
		for _, name := range names {
			child, ok := indirect(values[name])
			if !ok {
				continue
			}
			if err := w.walk(child, join(key, name), joinPath(path, name)); err != nil {
				return err
			}
		}
		return nil

	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return w.emit(key, path, rv.Interface())
		}
		for i := 0; i < rv.Len(); i++ {
			child, ok := indirect(rv.Index(i))
			if !ok {
				continue
			}
			index := strconv.Itoa(i)
			if err := w.walk(child, key+index, joinPath(path, index)); err != nil {
				return err
			}
		}
		return nil
	}
	return w.emit(key, path, rv.Interface())
}

func (w *walker) emit(key, path string, value any) error {
	if first, exists := w.origins[key]; exists {
		return &CollisionError{Key: key, First: first, Second: path}
	}
	w.origins[key] = path
	w.out[key] = value
	return nil
}

// indirect unwraps interfaces and pointers; ok is false for nil.
func indirect(rv reflect.Value) (reflect.Value, bool) {
	for rv.IsValid() && (rv.Kind() == reflect.Interface || rv.Kind() == reflect.Pointer) {
		if rv.IsNil() {
			return reflect.Value{}, false
		}
		rv = rv.Elem()
	}
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	if (rv.Kind() == reflect.Map || rv.Kind() == reflect.Slice) && rv.IsNil() {
		return reflect.Value{}, false
	}
	return rv, true
}

func isContainer(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Map:
		return rv.Type().Key().Kind() == reflect.String
	case reflect.Slice, reflect.Array:
		return rv.Type().Elem().Kind() != reflect.Uint8
	}
	return false
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + Separator + name
}

func joinPath(path, segment string) string {
	if path == "" {
		return segment
	}
	return path + "." + segment
}

// Strings renders flat values as form field strings.
func Strings(flat map[string]any) map[string]string {
	out := make(map[string]string, len(flat))
	for key, value := range flat {
		out[key] = String(value)
	}
	return out
}

// String renders a single scalar the way a form would submit it.
func String(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case []byte:
		return string(typed)
	case fmt.Stringer:
		return typed.String()
	}
	return fmt.Sprint(value)
}

// Keys returns the keys of flat in sorted order.
func Keys[V any](flat map[string]V) []string {
	keys := make([]string, 0, len(flat))
	for key := range flat {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
