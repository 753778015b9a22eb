package rules

import (
	"log/slog"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-xsdform/pkg/form"
)

const (
	initialBucket = "__initial__"
	// maxCascadeDepth bounds nested trigger evaluation started by rule writes.
	maxCascadeDepth = 64
)

// CodeRegistry supplies process-specific result codes.
type CodeRegistry interface {
	ValidCodes(process string) []string
	ErrorCode(process string, rnd *rand.Rand) string
}

// NamedGenerator produces a value from a generator name and its parameters.
type NamedGenerator interface {
	Generate(name string, params map[string]any) (string, bool)
}

// Engine evaluates a rule set against a form tree. It subscribes to the tree
// and re-evaluates dependent rules synchronously after every value write.
type Engine struct {
	tree           *form.Tree
	set            RuleSet
	index          map[string][]int
	initialApplied bool
	importCtx      map[string]string
	depth          int
	unsubscribe    func()

	permissions map[string]bool
	config      map[string]string
	processInfo map[string]string
	messageInfo map[string]string
	codes       CodeRegistry
	generators  NamedGenerator
	rnd         *rand.Rand
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPermissions feeds permission_key predicates.
func WithPermissions(perms map[string]bool) Option {
	return func(e *Engine) { e.permissions = perms }
}

// WithConfigValues feeds "config:KEY" value sources.
func WithConfigValues(values map[string]string) Option {
	return func(e *Engine) { e.config = values }
}

// WithProcessInfo feeds "process.KEY" value sources.
func WithProcessInfo(info map[string]string) Option {
	return func(e *Engine) { e.processInfo = info }
}

// WithMessageInfo feeds "message.KEY" value sources.
func WithMessageInfo(info map[string]string) Option {
	return func(e *Engine) { e.messageInfo = info }
}

// WithCodeRegistry wires the process/result code registry.
func WithCodeRegistry(codes CodeRegistry) Option {
	return func(e *Engine) { e.codes = codes }
}

// WithGenerators wires named generators used by data_generation rules.
func WithGenerators(g NamedGenerator) Option {
	return func(e *Engine) { e.generators = g }
}

// WithRand sets the random source for probability gating and code picks.
func WithRand(rnd *rand.Rand) Option {
	return func(e *Engine) {
		if rnd != nil {
			e.rnd = rnd
		}
	}
}

// New indexes set, subscribes to tree and applies every rule once.
func New(tree *form.Tree, set RuleSet, opts ...Option) *Engine {
	e := &Engine{
		tree:   tree,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.set = set
	e.index = buildIndex(set)
	e.unsubscribe = tree.Subscribe(e.onChange)
	e.lint()
	e.logger.Info("rule engine ready", "rules", set.Len(), "triggers", len(e.index)-boolToInt(len(e.index[initialBucket]) > 0))
	e.ApplyAll()
	return e
}

// Close detaches the engine from the tree.
func (e *Engine) Close() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// Rules returns the active rule set.
func (e *Engine) Rules() RuleSet { return e.set }

// Triggers lists the indexed trigger paths.
func (e *Engine) Triggers() []string {
	out := make([]string, 0, len(e.index))
	for path := range e.index {
		if path != initialBucket {
			out = append(out, path)
		}
	}
	return sortedStrings(out)
}

// Reload replaces the rule set, re-indexes it and applies every rule again,
// conditionless ones included.
func (e *Engine) Reload(set RuleSet) {
	e.set = set
	e.index = buildIndex(set)
	e.initialApplied = false
	e.lint()
	e.logger.Info("rules reloaded", "rules", set.Len())
	e.ApplyAll()
}

func (e *Engine) lint() {
	for _, issue := range Lint(e.set, e.tree.Model()) {
		e.logger.Warn("inert rule", "issue", issue.String())
	}
}

func buildIndex(set RuleSet) map[string][]int {
	index := make(map[string][]int)
	for i, r := range set.Rules {
		if r.Condition == nil {
			index[initialBucket] = append(index[initialBucket], i)
			continue
		}
		for _, trigger := range r.Condition.Triggers() {
			index[trigger] = append(index[trigger], i)
		}
	}
	return index
}

// ApplyAll evaluates every rule against the current state. Conditionless
// rules run only on the first call after construction or reload, so calling
// ApplyAll repeatedly reaches a fixpoint.
func (e *Engine) ApplyAll() {
	e.logger.Debug("applying all rules")
	if !e.initialApplied {
		e.initialApplied = true
		for _, i := range e.index[initialBucket] {
			r := e.set.Rules[i]
			if r.Action == ActionSetValueFromImport || r.Action == ActionDataGeneration {
				continue
			}
			e.execute(r, true, nil)
		}
	}
	for _, r := range e.set.Rules {
		if r.Condition == nil || r.Action == ActionSetValueFromImport {
			continue
		}
		e.execute(r, e.evaluate(r.Condition, nil), nil)
	}
}

// EvaluateForTrigger re-evaluates the rules whose condition reads path.
func (e *Engine) EvaluateForTrigger(path string) {
	path = form.StripIndices(path)
	indices := e.index[path]
	if len(indices) == 0 {
		return
	}
	if e.depth >= maxCascadeDepth {
		e.logger.Warn("rule cascade depth exceeded, skipping", "trigger", path, "depth", e.depth)
		return
	}
	e.depth++
	defer func() { e.depth-- }()

	e.logger.Debug("trigger changed", "path", path, "rules", len(indices))
	for _, i := range indices {
		r := e.set.Rules[i]
		if r.Action == ActionSetValueFromImport {
			continue
		}
		e.execute(r, e.evaluate(r.Condition, nil), nil)
	}
}

// ApplyImportRules runs only set_value_from_import rules against an import
// context. The context is dropped when the call returns.
func (e *Engine) ApplyImportRules(ctx map[string]string) {
	e.logger.Info("applying import rules", "keys", len(ctx))
	e.importCtx = ctx
	defer func() { e.importCtx = nil }()
	for _, r := range e.set.Rules {
		if r.Action == ActionSetValueFromImport {
			e.execute(r, true, nil)
		}
	}
}

func (e *Engine) onChange(c form.Change) {
	switch c.Kind {
	case form.ValueChanged:
		if c.Origin == form.Clear {
			return
		}
		e.EvaluateForTrigger(c.Slot.Def().Path)
	case form.InstanceAdded:
		e.applySubtree(c.Instance)
	case form.TreeReset:
		e.initialApplied = false
		e.ApplyAll()
	}
}

// applySubtree runs the rules that target paths inside a new instance,
// scoped to that instance.
func (e *Engine) applySubtree(inst *form.Instance) {
	prefix := inst.Def().Path + "."
	for _, r := range e.set.Rules {
		if !strings.HasPrefix(r.Target, prefix) || r.Action == ActionSetValueFromImport {
			continue
		}
		if r.Condition == nil {
			if r.Action != ActionDataGeneration {
				e.execute(r, true, inst)
			}
			continue
		}
		e.execute(r, e.evaluate(r.Condition, inst), inst)
	}
}

func (e *Engine) evaluate(c *Condition, scope *form.Instance) bool {
	if c == nil {
		return true
	}
	results := make([]bool, 0, len(c.Predicates))
	for _, p := range c.Predicates {
		if res, ok := e.predicate(p, scope); ok {
			results = append(results, res)
		}
	}
	if c.Any() {
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	}
	for _, r := range results {
		if !r {
			return false
		}
	}
	return true
}

// predicate evaluates one atomic test. The second result is false when the
// predicate carries nothing to test and must be ignored.
func (e *Engine) predicate(p Predicate, scope *form.Instance) (bool, bool) {
	if p.FieldPath == "" {
		switch {
		case p.PermissionKey != "":
			allowed, _ := lookupFold(e.permissions, p.PermissionKey)
			return allowed, true
		case p.SectionPath != "":
			return e.sectionActive(p.SectionPath), true
		}
		return false, false
	}

	value, ok := e.tree.ValueNear(p.FieldPath, scope)
	if !ok {
		return false, true
	}
	switch {
	case p.hasValues || len(p.Values) > 0:
		return contains(p.Values, value), true
	case p.hasNotValues || len(p.NotValues) > 0:
		return !contains(p.NotValues, value), true
	case p.Compare != "" && p.Value != nil:
		op, known := compareOperators[p.Compare]
		if !known {
			e.logger.Warn("unknown comparison operator", "operator", p.Compare, "field", p.FieldPath)
			return false, true
		}
		a, errA := strconv.ParseFloat(strings.TrimSpace(value), 64)
		b, errB := strconv.ParseFloat(strings.TrimSpace(*p.Value), 64)
		if errA != nil || errB != nil {
			return false, true
		}
		return op(a, b), true
	case p.IsNotEmpty != nil:
		return (strings.TrimSpace(value) != "") == *p.IsNotEmpty, true
	}
	return false, false
}

func (e *Engine) sectionActive(path string) bool {
	for _, g := range e.tree.Groups(form.StripIndices(path)) {
		for _, inst := range g.Instances() {
			if inst.Active() {
				return true
			}
		}
	}
	return false
}

// lookupFold tries key as given, then lower-cased. Config loaders fold map
// keys to lower case.
func lookupFold[V any](m map[string]V, key string) (V, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	v, ok := m[strings.ToLower(key)]
	return v, ok
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
