package flatten_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-autoquote/pkg/flatten"
)

func TestFlatten_ObjectsAndLists(t *testing.T) {
	got, err := flatten.Flatten(map[string]any{
		"a": 1,
		"b": []any{map[string]any{"c": 2}},
	}, "")
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"a": 1, "b0_c": 2}, got); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_DeepNesting(t *testing.T) {
	input := map[string]any{
		"personal": map[string]any{"first_name": "Jane"},
		"vehicles": []map[string]any{
			{"year": 2020, "make": "Ford"},
			{"year": 2019, "make": "Kia"},
		},
		"tags":  []string{"x", "y"},
		"grid":  [][]int{{1, 2}, {3}},
		"empty": map[string]any{},
		"none":  nil,
		"list":  []any{nil, "kept"},
	}
	got, err := flatten.Flatten(input, "quote")
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	want := map[string]any{
		"quote_personal_first_name": "Jane",
		"quote_vehicles0_year":      2020,
		"quote_vehicles0_make":      "Ford",
		"quote_vehicles1_year":      2019,
		"quote_vehicles1_make":      "Kia",
		"quote_tags0":               "x",
		"quote_tags1":               "y",
		"quote_grid00":              1,
		"quote_grid01":              2,
		"quote_grid10":              3,
		"quote_list1":               "kept",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}

func TestFlatten_Idempotent(t *testing.T) {
	input := map[string]any{
		"a": 1,
		"b": []any{map[string]any{"c": 2, "d": []any{"x"}}},
	}
	once, err := flatten.Flatten(input, "")
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	again, err := flatten.Flatten(input, "")
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if diff := cmp.Diff(once, again); diff != "" {
		t.Fatalf("repeat flatten differs (-first +second):\n%s", diff)
	}
	twice, err := flatten.Flatten(once, "")
	if err != nil {
		t.Fatalf("flatten of flat output: %v", err)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Fatalf("flatten is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestFlatten_RejectsCollisions(t *testing.T) {
	_, err := flatten.Flatten(map[string]any{
		"b0_c": "literal",
		"b":    []any{map[string]any{"c": 2}},
	}, "")

	var collision *flatten.CollisionError
	if !errors.As(err, &collision) {
		t.Fatalf("expected CollisionError, got %v", err)
	}
	if collision.Key != "b0_c" || collision.First != "b.0.c" || collision.Second != "b0_c" {
		t.Fatalf("unexpected collision %+v", collision)
	}
}

func TestFlatten_ScalarRoot(t *testing.T) {
	if _, err := flatten.Flatten(42, ""); !errors.Is(err, flatten.ErrScalarRoot) {
		t.Fatalf("expected ErrScalarRoot, got %v", err)
	}
	got, err := flatten.Flatten(42, "answer")
	if err != nil {
		t.Fatalf("flatten: %v", err)
	}
	if diff := cmp.Diff(map[string]any{"answer": 42}, got); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
	if got, err := flatten.Flatten(nil, ""); err != nil || len(got) != 0 {
		t.Fatalf("expected empty result for nil, got %v %v", got, err)
	}
}

func TestStrings(t *testing.T) {
	got := flatten.Strings(map[string]any{
		"year":    2020,
		"premium": 120.5,
		"course":  true,
		"make":    "Ford",
	})
	want := map[string]string{"year": "2020", "premium": "120.5", "course": "true", "make": "Ford"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("strings mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"course", "make", "premium", "year"}, flatten.Keys(got)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}
