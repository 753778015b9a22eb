package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyDocument is returned for blank rule documents.
	ErrEmptyDocument = errors.New("rules: document is empty")
	// ErrMalformed is returned when the document does not have the rule
	// document shape.
	ErrMalformed = errors.New("rules: malformed document")
)

// Parse decodes a rule document. JSON and YAML are both accepted; the
// declared order of targets and rules is preserved.
func Parse(data []byte) (RuleSet, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return RuleSet{}, ErrEmptyDocument
	}
	if trimmed := bytes.TrimSpace(data); trimmed[0] == '{' || trimmed[0] == '[' {
		// JSON forbids raw tabs inside strings, so they are only whitespace
		// here; YAML rejects them as indentation.
		data = bytes.ReplaceAll(data, []byte("\t"), []byte("  "))
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return RuleSet{}, fmt.Errorf("rules: parse: %w", err)
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return RuleSet{}, fmt.Errorf("%w: top level must be a mapping", ErrMalformed)
	}
	rulesNode := mappingValue(doc.Content[0], "rules")
	if rulesNode == nil || isNull(rulesNode) {
		return RuleSet{}, nil
	}
	if rulesNode.Kind != yaml.MappingNode {
		return RuleSet{}, fmt.Errorf("%w: \"rules\" must be a mapping", ErrMalformed)
	}

	var set RuleSet
	for i := 0; i+1 < len(rulesNode.Content); i += 2 {
		target := rulesNode.Content[i].Value
		defs := rulesNode.Content[i+1]
		if defs.Kind != yaml.MappingNode {
			return RuleSet{}, fmt.Errorf("%w: rules for %q must be a mapping", ErrMalformed, target)
		}
		for j := 0; j+1 < len(defs.Content); j += 2 {
			rule, err := parseRule(target, defs.Content[j].Value, defs.Content[j+1])
			if err != nil {
				return RuleSet{}, err
			}
			set.Rules = append(set.Rules, rule)
		}
	}
	return set, nil
}

func parseRule(target, name string, n *yaml.Node) (Rule, error) {
	if n.Kind != yaml.MappingNode {
		return Rule{}, fmt.Errorf("%w: rule %s/%s must be a mapping", ErrMalformed, target, name)
	}
	rule := Rule{Target: target, Name: name, Params: make(map[string]any)}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i].Value, n.Content[i+1]
		switch key {
		case "condition":
			cond, err := parseCondition(val)
			if err != nil {
				return Rule{}, fmt.Errorf("rules: %s/%s: %w", target, name, err)
			}
			rule.Condition = cond
		case "action":
			rule.Action = strings.TrimSpace(val.Value)
		default:
			var v any
			if err := val.Decode(&v); err != nil {
				return Rule{}, fmt.Errorf("rules: %s/%s: param %q: %w", target, name, key, err)
			}
			rule.Params[key] = normalize(v)
		}
	}
	if rule.Action == "" {
		return Rule{}, fmt.Errorf("%w: rule %s/%s has no action", ErrMalformed, target, name)
	}
	return rule, nil
}

func parseCondition(n *yaml.Node) (*Condition, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: condition must be a mapping or null", ErrMalformed)
	}
	var raw map[string]any
	if err := n.Decode(&raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	raw = normalize(raw).(map[string]any)

	cond := &Condition{Operator: "AND"}
	list, grouped := raw["conditions"].([]any)
	if !grouped {
		cond.Predicates = []Predicate{parsePredicate(raw)}
		return cond, nil
	}
	if op, ok := raw["operator"].(string); ok && op != "" {
		cond.Operator = strings.ToUpper(op)
	}
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: condition entries must be mappings", ErrMalformed)
		}
		cond.Predicates = append(cond.Predicates, parsePredicate(m))
	}
	return cond, nil
}

func parsePredicate(m map[string]any) Predicate {
	var p Predicate
	p.FieldPath, _ = m["field_path"].(string)
	p.PermissionKey, _ = m["permission_key"].(string)
	p.SectionPath, _ = m["section_path"].(string)
	if v, ok := m["values"]; ok {
		p.hasValues = true
		p.Values = stringList(v)
	}
	if v, ok := m["not_values"]; ok {
		p.hasNotValues = true
		p.NotValues = stringList(v)
	}
	if op, ok := m["operator"].(string); ok && !strings.EqualFold(op, "AND") && !strings.EqualFold(op, "OR") {
		p.Compare = op
	}
	if v, ok := m["value"]; ok && v != nil {
		s := stringify(v)
		p.Value = &s
	}
	if v, ok := m["is_not_empty"].(bool); ok {
		p.IsNotEmpty = &v
	}
	return p
}

func stringList(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if v == nil {
			return []string{}
		}
		return []string{stringify(v)}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, stringify(item))
	}
	return out
}

// normalize turns yaml's map[any]any leftovers into map[string]any.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[stringify(k)] = normalize(item)
		}
		return out
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
		return t
	}
	return v
}

func mappingValue(n *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Tag == "!!null" || (n.Kind == yaml.ScalarNode && n.Value == "" && n.Style == 0)
}

// Load reads and parses a rule document from fsys.
func Load(fsys fs.FS, name string) (RuleSet, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return RuleSet{}, fmt.Errorf("rules: read %s: %w", name, err)
	}
	set, err := Parse(data)
	if err != nil {
		return RuleSet{}, fmt.Errorf("rules: %s: %w", name, err)
	}
	return set, nil
}

// LoadFile reads a rule document from the local filesystem.
func LoadFile(filename string) (RuleSet, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return RuleSet{}, fmt.Errorf("rules: read %s: %w", filename, err)
	}
	return Parse(data)
}

// LoadOrEmpty loads a rule document and degrades to an empty rule set when
// the file is missing or malformed, so the form stays usable without rules.
func LoadOrEmpty(fsys fs.FS, name string, logger *slog.Logger) RuleSet {
	if logger == nil {
		logger = slog.Default()
	}
	if name == "" {
		return RuleSet{}
	}
	set, err := Load(fsys, name)
	if err != nil {
		logger.Warn("rules unavailable, continuing without rules", "file", name, "error", err)
		return RuleSet{}
	}
	logger.Info("rules loaded", "file", name, "rules", set.Len())
	return set
}

// Resolve picks the process-specific variant of a rule file when it exists.
// "R_1.json" with process "CHG.01." resolves to "R_1_CHG_01.json".
func Resolve(fsys fs.FS, defaultName, process string) string {
	process = strings.Trim(strings.ReplaceAll(strings.TrimSpace(process), ".", "_"), "_")
	if process == "" {
		return defaultName
	}
	ext := path.Ext(defaultName)
	specific := strings.TrimSuffix(defaultName, ext) + "_" + process + ext
	if _, err := fs.Stat(fsys, specific); err == nil {
		return specific
	}
	return defaultName
}

// List returns the names (without extension) of the rule documents in dir,
// sorted.
func List(fsys fs.FS, dir string) ([]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("rules: list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch ext := path.Ext(e.Name()); ext {
		case ".json", ".yaml", ".yml":
			out = append(out, strings.TrimSuffix(e.Name(), ext))
		}
	}
	sort.Strings(out)
	return out, nil
}
