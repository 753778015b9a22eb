package rules

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Action names understood by the engine.
const (
	ActionSetValue                    = "set_value"
	ActionSetValueFromImport          = "set_value_from_import"
	ActionSetChoicesFromProcessMatrix = "set_choices_from_process_matrix"
	ActionHide                        = "hide"
	ActionShowIfValue                 = "show_if_value"
	ActionShowIfPermission            = "show_if_permission"
	ActionShowIfSectionExists         = "show_if_section_exists"
	ActionForbidIfValue               = "forbid_if_value"
	ActionRequireIfValue              = "require_if_value"
	ActionEnableIfValue               = "enable_if_value"
	ActionAllowMultipleIfValue        = "allow_multiple_if_value"
	ActionFilterValues                = "filter_values"
	ActionDataGeneration              = "data_generation"
)

var knownActions = map[string]bool{
	ActionSetValue: true, ActionSetValueFromImport: true, ActionSetChoicesFromProcessMatrix: true,
	ActionHide: true, ActionShowIfValue: true, ActionShowIfPermission: true,
	ActionShowIfSectionExists: true, ActionForbidIfValue: true, ActionRequireIfValue: true,
	ActionEnableIfValue: true, ActionAllowMultipleIfValue: true, ActionFilterValues: true,
	ActionDataGeneration: true,
}

// KnownAction reports whether name is part of the action catalog.
func KnownAction(name string) bool { return knownActions[name] }

// Actions lists the catalog sorted by name.
func Actions() []string {
	out := make([]string, 0, len(knownActions))
	for name := range knownActions {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// visibilityActions decide whether their target is shown.
var visibilityActions = map[string]bool{
	ActionHide: true, ActionShowIfValue: true, ActionShowIfPermission: true,
	ActionShowIfSectionExists: true, ActionForbidIfValue: true, ActionRequireIfValue: true,
}

// Operators accepted by numeric predicates.
var compareOperators = map[string]func(a, b float64) bool{
	"==": func(a, b float64) bool { return a == b },
	"!=": func(a, b float64) bool { return a != b },
	"<":  func(a, b float64) bool { return a < b },
	"<=": func(a, b float64) bool { return a <= b },
	">":  func(a, b float64) bool { return a > b },
	">=": func(a, b float64) bool { return a >= b },
}

// Predicate is one atomic test of a condition. Exactly one family of fields
// is meaningful: FieldPath with Values, NotValues, Compare or IsNotEmpty;
// PermissionKey; or SectionPath.
type Predicate struct {
	FieldPath     string   `json:"field_path,omitempty"`
	Values        []string `json:"values,omitempty"`
	NotValues     []string `json:"not_values,omitempty"`
	Compare       string   `json:"operator,omitempty"`
	Value         *string  `json:"value,omitempty"`
	IsNotEmpty    *bool    `json:"is_not_empty,omitempty"`
	PermissionKey string   `json:"permission_key,omitempty"`
	SectionPath   string   `json:"section_path,omitempty"`

	hasValues    bool
	hasNotValues bool
}

// Condition combines predicates with AND or OR.
type Condition struct {
	Operator   string      `json:"operator"`
	Predicates []Predicate `json:"conditions"`
}

// Any reports whether the predicates are OR-ed.
func (c *Condition) Any() bool {
	return strings.EqualFold(c.Operator, "OR")
}

// Triggers lists the field paths the condition reads, in order, without
// duplicates.
func (c *Condition) Triggers() []string {
	if c == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, p := range c.Predicates {
		if p.FieldPath == "" || seen[p.FieldPath] {
			continue
		}
		seen[p.FieldPath] = true
		out = append(out, p.FieldPath)
	}
	return out
}

// Rule is one named rule acting on a target path.
type Rule struct {
	Target    string         `json:"target"`
	Name      string         `json:"name"`
	Condition *Condition     `json:"condition,omitempty"`
	Action    string         `json:"action"`
	Params    map[string]any `json:"params,omitempty"`
}

// Param returns a parameter as a string. Numbers and booleans are formatted.
func (r Rule) Param(key string) (string, bool) {
	v, ok := r.Params[key]
	if !ok || v == nil {
		return "", false
	}
	return stringify(v), true
}

// BoolParam returns a boolean parameter or def when absent.
func (r Rule) BoolParam(key string, def bool) bool {
	v, ok := r.Params[key]
	if !ok || v == nil {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return def
		}
		return parsed
	}
	return def
}

// FloatParam returns a numeric parameter or def when absent or malformed.
func (r Rule) FloatParam(key string, def float64) float64 {
	raw, ok := r.Param(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return f
}

// ListParam returns a list parameter as strings.
func (r Rule) ListParam(key string) []string {
	items, ok := r.Params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, stringify(item))
	}
	return out
}

// MapParam returns a nested mapping parameter.
func (r Rule) MapParam(key string) map[string]any {
	m, _ := r.Params[key].(map[string]any)
	return m
}

// RuleSet is an ordered list of rules. Declaration order is evaluation order.
type RuleSet struct {
	Rules []Rule
}

// Len returns the number of rules.
func (s RuleSet) Len() int { return len(s.Rules) }

// ForTarget returns the rules acting on path in declaration order.
func (s RuleSet) ForTarget(path string) []Rule {
	var out []Rule
	for _, r := range s.Rules {
		if r.Target == path {
			out = append(out, r)
		}
	}
	return out
}

// Targets lists distinct target paths in declaration order.
func (s RuleSet) Targets() []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range s.Rules {
		if !seen[r.Target] {
			seen[r.Target] = true
			out = append(out, r.Target)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}
