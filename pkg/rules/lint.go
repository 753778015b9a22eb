package rules

import (
	"fmt"

	"github.com/agnivade/levenshtein"

	"github.com/goliatone/go-xsdform/pkg/model"
)

// Issue describes a rule that refers to something the form does not have.
type Issue struct {
	Target     string `json:"target"`
	Rule       string `json:"rule"`
	Path       string `json:"path,omitempty"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion,omitempty"`
}

func (i Issue) String() string {
	msg := fmt.Sprintf("%s/%s: %s", i.Target, i.Rule, i.Message)
	if i.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", i.Suggestion)
	}
	return msg
}

// Lint reports unknown actions and paths that are not part of m. Such rules
// stay inert at runtime; Lint only makes them visible.
func Lint(set RuleSet, m *model.FormModel) []Issue {
	known := knownPaths(m)
	var issues []Issue
	check := func(r Rule, path, what string) {
		if path == "" || known[path] {
			return
		}
		issues = append(issues, Issue{
			Target:     r.Target,
			Rule:       r.Name,
			Path:       path,
			Message:    fmt.Sprintf("unknown %s path %q", what, path),
			Suggestion: suggest(path, known),
		})
	}
	for _, r := range set.Rules {
		if !KnownAction(r.Action) {
			issues = append(issues, Issue{
				Target:     r.Target,
				Rule:       r.Name,
				Message:    fmt.Sprintf("unknown action %q", r.Action),
				Suggestion: suggestFrom(r.Action, Actions()),
			})
		}
		check(r, r.Target, "target")
		if r.Condition == nil {
			continue
		}
		for _, p := range r.Condition.Predicates {
			check(r, p.FieldPath, "trigger")
			check(r, p.SectionPath, "section")
		}
	}
	return issues
}

// ControlledSections lists section paths targeted by visibility actions.
// Trees seed these with an inactive instance so rules decide their state.
func ControlledSections(set RuleSet, m *model.FormModel) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range set.Rules {
		if !visibilityActions[r.Action] || seen[r.Target] {
			continue
		}
		if _, ok := m.Section(r.Target); ok && r.Target != m.Root.Path {
			seen[r.Target] = true
			out = append(out, r.Target)
		}
	}
	return out
}

func knownPaths(m *model.FormModel) map[string]bool {
	known := make(map[string]bool)
	for _, s := range m.Sections() {
		known[s.Path] = true
	}
	for _, f := range m.Fields() {
		known[f.Path] = true
	}
	return known
}

func suggest(path string, known map[string]bool) string {
	candidates := make([]string, 0, len(known))
	for k := range known {
		candidates = append(candidates, k)
	}
	return suggestFrom(path, sortedStrings(candidates))
}

func suggestFrom(word string, candidates []string) string {
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(word, c)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	limit := len(word) / 3
	if limit < 3 {
		limit = 3
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}
