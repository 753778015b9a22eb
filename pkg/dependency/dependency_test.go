package dependency_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/pkg/dependency"
	"github.com/goliatone/go-xsdform/pkg/form"
	"github.com/goliatone/go-xsdform/pkg/rules"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

func parse(t *testing.T, src string) rules.RuleSet {
	t.Helper()
	set, err := rules.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return set
}

func TestLevels(t *testing.T) {
	t.Parallel()
	set := parse(t, `{"rules": {
		"C": {"r": {"condition": {"operator": "AND", "conditions": [
			{"field_path": "A", "values": ["1"]},
			{"field_path": "B", "is_not_empty": true}
		]}, "action": "show_if_value"}},
		"B": {"r": {"condition": {"field_path": "A", "values": ["x"]}, "action": "enable_if_value"}},
		"D": {"r": {"condition": {"field_path": "Unknown", "values": ["x"]}, "action": "hide"}},
		"Section": {"r": {"condition": {"field_path": "A", "values": ["x"]}, "action": "show_if_value"}},
		"E": {"r": {"condition": null, "action": "set_value", "value": "1"}}
	}}`)

	levels, err := dependency.Build([]string{"E", "D", "C", "B", "A", "A"}, set).Levels()
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	want := [][]string{{"A", "D", "E"}, {"B"}, {"C"}}
	if diff := cmp.Diff(want, levels); diff != "" {
		t.Fatalf("levels mismatch (-want +got):\n%s", diff)
	}
}

func TestLevels_Complete(t *testing.T) {
	t.Parallel()
	set := parse(t, `{"rules": {
		"F3": {"r": {"condition": {"field_path": "F1", "values": ["x"]}, "action": "hide"}},
		"F4": {"r": {"condition": {"operator": "OR", "conditions": [
			{"field_path": "F3", "values": ["x"]}, {"field_path": "F2", "values": ["x"]}
		]}, "action": "hide"}},
		"F2": {"r": {"condition": {"field_path": "F1", "values": ["x"]}, "action": "hide"}}
	}}`)
	g := dependency.Build([]string{"F1", "F2", "F3", "F4", "F5"}, set)
	levels, err := g.Levels()
	if err != nil {
		t.Fatalf("levels: %v", err)
	}

	position := make(map[string]int)
	var flat []string
	for i, level := range levels {
		for _, f := range level {
			if _, dup := position[f]; dup {
				t.Fatalf("%s appears in more than one level", f)
			}
			position[f] = i
			flat = append(flat, f)
		}
	}
	if len(flat) != len(g.Fields()) {
		t.Fatalf("levels cover %d fields, want %d", len(flat), len(g.Fields()))
	}
	for _, f := range g.Fields() {
		for _, dep := range g.Dependencies(f) {
			if position[dep] >= position[f] {
				t.Fatalf("%s (level %d) depends on %s (level %d)", f, position[f], dep, position[dep])
			}
		}
	}
}

func TestLevels_Cycle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		rules string
		want  map[string][]string
	}{
		{
			name: "mutual",
			rules: `{"rules": {
				"A": {"r": {"condition": {"field_path": "B", "values": ["x"]}, "action": "hide"}},
				"B": {"r": {"condition": {"field_path": "A", "values": ["x"]}, "action": "hide"}},
				"C": {"r": {"condition": {"field_path": "A", "values": ["x"]}, "action": "hide"}}
			}}`,
			want: map[string][]string{"A": {"B"}, "B": {"A"}, "C": {"A"}},
		},
		{
			name:  "self",
			rules: `{"rules": {"A": {"r": {"condition": {"field_path": "A", "values": ["x"]}, "action": "hide"}}}}`,
			want:  map[string][]string{"A": {"A"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			levels, err := dependency.Build([]string{"A", "B", "C"}, parse(t, tt.rules)).Levels()
			if levels != nil {
				t.Fatalf("expected no partial levels, got %v", levels)
			}
			var cycle *dependency.CycleError
			if !errors.As(err, &cycle) || !errors.Is(err, dependency.ErrCycle) {
				t.Fatalf("expected CycleError, got %v", err)
			}
			if diff := cmp.Diff(tt.want, cycle.Stuck); diff != "" {
				t.Fatalf("stuck mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLevels_FromTree(t *testing.T) {
	t.Parallel()
	set, err := rules.Parse(testsupport.MessageRulesJSON())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	tree := form.New(testsupport.MustModel(t), form.WithLogger(testsupport.Logger()))

	levels, err := dependency.Levels(tree, set)
	if err != nil {
		t.Fatalf("levels: %v", err)
	}
	if len(levels) != 2 {
		t.Fatalf("expected two levels, got %v", levels)
	}
	if diff := cmp.Diff([]string{"Message.Body.Amount", "Message.Body.Details"}, levels[1]); diff != "" {
		t.Fatalf("second level mismatch (-want +got):\n%s", diff)
	}
	for _, f := range levels[0] {
		if f == "Message.Body.Extra.Comment" {
			t.Fatalf("fields of inactive optional sections are not in the tree")
		}
	}
}
