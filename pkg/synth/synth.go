// Package synth fills a form tree with generated data in dependency order.
//
// Phase 1 walks the dependency levels and fills every enabled, empty slot of
// each field, letting the rule engine react to every write before moving on.
// Phase 2 repeatedly sweeps the whole tree to fill slots revealed by those
// reactions, until a sweep fills nothing or the pass limit is reached.
package synth

import (
	"log/slog"

	"github.com/goliatone/go-xsdform/pkg/dependency"
	"github.com/goliatone/go-xsdform/pkg/form"
	"github.com/goliatone/go-xsdform/pkg/model"
	"github.com/goliatone/go-xsdform/pkg/rules"
)

// DefaultMaxPasses bounds the mop-up phase.
const DefaultMaxPasses = 10

// Generator produces a value for a field, or false to leave it empty.
// choices is the slot's currently allowed list, nil for free text.
type Generator interface {
	Generate(def *model.FieldDef, set rules.RuleSet, choices []string) (string, bool)
}

// resetter is implemented by generators that keep per-run state.
type resetter interface {
	Reset()
}

// Report summarises one synthesis run.
type Report struct {
	Levels     [][]string `json:"levels"`
	Phase1     int        `json:"phase1"`
	Phase2     int        `json:"phase2"`
	Passes     int        `json:"passes"`
	CapReached bool       `json:"capReached"`
}

// Filled is the total number of slots written.
func (r Report) Filled() int { return r.Phase1 + r.Phase2 }

// Synthesizer populates a tree. It holds no state between runs.
type Synthesizer struct {
	tree      *form.Tree
	set       rules.RuleSet
	gen       Generator
	maxPasses int
	yield     func()
	logger    *slog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Synthesizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxPasses overrides DefaultMaxPasses. Values below one are ignored.
func WithMaxPasses(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.maxPasses = n
		}
	}
}

// WithYield installs a hook called after every write, for hosts that need
// to refresh between fields.
func WithYield(fn func()) Option {
	return func(s *Synthesizer) { s.yield = fn }
}

// New creates a Synthesizer over tree. set is the rule set the generator
// consults for hints; the engine reacting to writes is attached to the tree
// separately.
func New(tree *form.Tree, set rules.RuleSet, gen Generator, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		tree:      tree,
		set:       set,
		gen:       gen,
		maxPasses: DefaultMaxPasses,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run levels the fields and fills the tree. A dependency cycle aborts the
// run before anything is written. Reaching the pass limit only logs a
// warning.
func (s *Synthesizer) Run() (Report, error) {
	levels, err := dependency.Levels(s.tree, s.set)
	if err != nil {
		s.logger.Warn("synthesis aborted", "error", err)
		return Report{}, err
	}
	if r, ok := s.gen.(resetter); ok {
		r.Reset()
	}

	report := Report{Levels: levels}
	for i, level := range levels {
		for _, path := range level {
			for _, slot := range s.tree.Slots(path) {
				if s.fill(slot) {
					report.Phase1++
				}
			}
		}
		s.logger.Debug("synthesis level done", "level", i, "fields", len(level))
	}

	for report.Passes < s.maxPasses {
		report.Passes++
		filled := 0
		for _, slot := range s.tree.AllSlots() {
			if s.fill(slot) {
				filled++
			}
		}
		report.Phase2 += filled
		if filled == 0 {
			break
		}
		if report.Passes == s.maxPasses {
			report.CapReached = true
			s.logger.Warn("synthesis pass limit reached", "passes", report.Passes, "last_filled", filled)
		}
	}

	s.logger.Info("synthesis finished", "levels", len(levels), "phase1", report.Phase1, "phase2", report.Phase2, "passes", report.Passes)
	return report, nil
}

// fill generates and writes one slot if it is still enabled, visible, live
// and empty. It reports whether a value was written.
func (s *Synthesizer) fill(slot *form.Slot) bool {
	if !slot.Enabled() || !slot.Empty() || !s.tree.Collectable(slot) {
		return false
	}
	v, ok := s.gen.Generate(slot.Def(), s.set, slot.Choices())
	if !ok {
		return false
	}
	changed, err := s.tree.SetValue(slot, v, form.SynthesisWrite)
	if err != nil {
		s.logger.Warn("synthesis write failed", "address", slot.Address(), "error", err)
		return false
	}
	if changed && s.yield != nil {
		s.yield()
	}
	return changed
}
