package rules_test

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/pkg/rules"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

func TestParse_PreservesDeclarationOrder(t *testing.T) {
	t.Parallel()
	src := `{"rules": {
		"Z.last": {"b": {"action": "hide"}, "a": {"action": "hide"}},
		"A.first": {"only": {"condition": null, "action": "set_value", "value": 5}}
	}}`
	set, err := rules.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	var got []string
	for _, r := range set.Rules {
		got = append(got, r.Target+"/"+r.Name)
	}
	if diff := cmp.Diff([]string{"Z.last/b", "Z.last/a", "A.first/only"}, got); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
	if v, _ := set.Rules[2].Param("value"); v != "5" {
		t.Fatalf("numeric literal should stringify, got %q", v)
	}
	if set.Rules[2].Condition != nil {
		t.Fatalf("null condition should decode to nil")
	}
}

func TestParse_Conditions(t *testing.T) {
	t.Parallel()
	src := `
rules:
  T:
    grouped:
      action: show_if_value
      condition:
        operator: or
        conditions:
          - field_path: A
            values: [X, 1]
          - field_path: B
            operator: ">="
            value: 10
          - permission_key: admin
    single:
      action: enable_if_value
      condition:
        field_path: C
        is_not_empty: false
    empty:
      action: hide
      condition: {}
`
	set, err := rules.Parse([]byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	grouped := set.Rules[0].Condition
	if !grouped.Any() || len(grouped.Predicates) != 3 {
		t.Fatalf("unexpected grouped condition %+v", grouped)
	}
	if diff := cmp.Diff([]string{"X", "1"}, grouped.Predicates[0].Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if p := grouped.Predicates[1]; p.Compare != ">=" || p.Value == nil || *p.Value != "10" {
		t.Fatalf("unexpected comparison predicate %+v", p)
	}
	if diff := cmp.Diff([]string{"A", "B"}, grouped.Triggers()); diff != "" {
		t.Fatalf("triggers mismatch (-want +got):\n%s", diff)
	}

	single := set.Rules[1].Condition
	if single.Any() || single.Predicates[0].IsNotEmpty == nil || *single.Predicates[0].IsNotEmpty {
		t.Fatalf("unexpected single condition %+v", single)
	}
	if set.Rules[2].Condition != nil {
		t.Fatalf("empty condition should behave as no condition")
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()
	if _, err := rules.Parse([]byte(" ")); !errors.Is(err, rules.ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
	if _, err := rules.Parse([]byte(`["x"]`)); !errors.Is(err, rules.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if _, err := rules.Parse([]byte(`{"rules": {"T": {"r": {"value": 1}}}}`)); !errors.Is(err, rules.ErrMalformed) {
		t.Fatalf("expected ErrMalformed for missing action, got %v", err)
	}
	set, err := rules.Parse([]byte(`{"other": 1}`))
	if err != nil || set.Len() != 0 {
		t.Fatalf("document without rules should be empty, got %d, %v", set.Len(), err)
	}
}

func TestLoadOrEmptyAndResolve(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"rules/R_1.json":        {Data: testsupport.MessageRulesJSON()},
		"rules/R_1_CHG_01.json": {Data: []byte(`{"rules": {}}`)},
		"rules/broken.json":     {Data: []byte(`{`)},
	}

	if got := rules.Resolve(fsys, "rules/R_1.json", "CHG.01."); got != "rules/R_1_CHG_01.json" {
		t.Fatalf("expected process specific file, got %q", got)
	}
	if got := rules.Resolve(fsys, "rules/R_1.json", "ZZZ.99."); got != "rules/R_1.json" {
		t.Fatalf("expected fallback, got %q", got)
	}

	if set := rules.LoadOrEmpty(fsys, "rules/R_1.json", nil); set.Len() != 4 {
		t.Fatalf("expected 4 rules, got %d", set.Len())
	}
	if set := rules.LoadOrEmpty(fsys, "rules/broken.json", nil); set.Len() != 0 {
		t.Fatalf("broken file should degrade to empty set")
	}
	if set := rules.LoadOrEmpty(fsys, "rules/missing.json", nil); set.Len() != 0 {
		t.Fatalf("missing file should degrade to empty set")
	}

	names, err := rules.List(fsys, "rules")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"R_1", "R_1_CHG_01", "broken"}, names); diff != "" {
		t.Fatalf("list mismatch (-want +got):\n%s", diff)
	}
}
