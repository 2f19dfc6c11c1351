package wizard

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Expand turns flat dotted form names ("vehicles.0.year") into nested maps
// and slices. Numeric segments index slices, which are grown as needed.
func Expand(flat map[string]any) (map[string]any, error) {
	root := make(map[string]any, len(flat))
	for _, path := range sortedKeys(flat) {
		if err := SetPath(root, path, flat[path]); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// GetPath resolves a dotted path into root.
func GetPath(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	var current any = root
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

// SetPath writes value at a dotted path, creating intermediate maps and
// slices.
func SetPath(root map[string]any, path string, value any) error {
	if root == nil {
		return fmt.Errorf("wizard: root map is nil")
	}
	segments := strings.Split(path, ".")
	for _, segment := range segments {
		if segment == "" {
			return fmt.Errorf("wizard: empty segment in path %q", path)
		}
	}
	_, err := setIn(root, segments, value, path)
	return err
}

// setIn returns the container after writing, since growing a slice may
// reallocate it and the parent must store the new header.
func setIn(node any, segments []string, value any, path string) (any, error) {
	segment := segments[0]
	last := len(segments) == 1

	if idx, err := strconv.Atoi(segment); err == nil {
		if idx < 0 {
			return nil, fmt.Errorf("wizard: negative index in path %q", path)
		}
		list, ok := node.([]any)
		if node != nil && !ok {
			return nil, fmt.Errorf("wizard: path %q indexes a non-list", path)
		}
		if len(list) <= idx {
			list = append(list, make([]any, idx+1-len(list))...)
		}
		if last {
			list[idx] = value
			return list, nil
		}
		child, err := setIn(list[idx], segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		list[idx] = child
		return list, nil
	}

	m, ok := node.(map[string]any)
	if node != nil && !ok {
		return nil, fmt.Errorf("wizard: path %q descends into a scalar", path)
	}
	if m == nil {
		m = make(map[string]any)
	}
	if last {
		m[segment] = value
		return m, nil
	}
	child, err := setIn(m[segment], segments[1:], value, path)
	if err != nil {
		return nil, err
	}
	m[segment] = child
	return m, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
