package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/goliatone/go-xsdform/pkg/collect"
	"github.com/goliatone/go-xsdform/pkg/dependency"
	"github.com/goliatone/go-xsdform/pkg/form"
	"github.com/goliatone/go-xsdform/pkg/generate"
	"github.com/goliatone/go-xsdform/pkg/importctx"
	"github.com/goliatone/go-xsdform/pkg/model"
	"github.com/goliatone/go-xsdform/pkg/rules"
	"github.com/goliatone/go-xsdform/pkg/synth"
)

// ErrNoPresetStore is returned by preset operations on a session opened
// without a store.
var ErrNoPresetStore = errors.New("orchestrator: no preset store configured")

// timestampLayout is second precision without a zone.
const timestampLayout = "2006-01-02T15:04:05"

// Session is one open form: a tree seeded from a model, the rule engine
// bound to it and the helpers that read and write it. A Session is not safe
// for concurrent use.
type Session struct {
	o   *Orchestrator
	req Request

	model      model.FormModel
	set        rules.RuleSet
	rulesFile  string
	controlled []string

	rnd       *rand.Rand
	gen       *generate.Default
	tree      *form.Tree
	engine    *rules.Engine
	collector *collect.Collector
	logger    *slog.Logger
}

func (o *Orchestrator) newSession(m model.FormModel, set rules.RuleSet, req Request) *Session {
	seed := o.seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Session{
		o:         o,
		req:       req,
		model:     m,
		rulesFile: req.RulesFile,
		rnd:       rand.New(rand.NewSource(seed)),
		logger:    o.logger.With("root", m.Root.Name),
	}
	s.gen = generate.New(
		generate.WithRand(s.rnd),
		generate.WithClock(o.now),
		generate.WithOperators(o.operators),
		generate.WithCodeRegistry(o.codes),
		generate.WithLogger(o.logger),
	)
	s.build(set)
	s.stamp()
	s.logger.Info("session opened", "rules", set.Len(), "message_code", req.MessageCode)
	return s
}

// build seeds a fresh tree for set and binds a new engine to it.
func (s *Session) build(set rules.RuleSet) {
	if s.engine != nil {
		s.engine.Close()
	}
	s.set = set
	s.controlled = rules.ControlledSections(set, &s.model)
	s.tree = form.New(s.model,
		form.WithLogger(s.logger),
		form.WithControlledSections(s.controlled...),
	)
	s.engine = rules.New(s.tree, set,
		rules.WithLogger(s.logger),
		rules.WithPermissions(s.o.permissions),
		rules.WithConfigValues(s.o.config),
		rules.WithProcessInfo(s.req.ProcessInfo),
		rules.WithMessageInfo(s.req.MessageInfo),
		rules.WithCodeRegistry(s.o.codes),
		rules.WithGenerators(s.gen.Catalog()),
		rules.WithRand(s.rnd),
	)
	s.collector = collect.New(s.tree, collect.WithLogger(s.logger))
}

// Model returns the form model the session was built from.
func (s *Session) Model() *model.FormModel { return &s.model }

// Tree returns the live form tree. It is replaced when a rule reload changes
// which sections rules control, so do not hold on to it across reloads.
func (s *Session) Tree() *form.Tree { return s.tree }

// Rules returns the active rule set.
func (s *Session) Rules() rules.RuleSet { return s.set }

// RulesFile names the rule document the active set was read from, if any.
func (s *Session) RulesFile() string { return s.rulesFile }

// Close detaches the rule engine from the tree.
func (s *Session) Close() {
	if s.engine != nil {
		s.engine.Close()
	}
}

// SetValue writes a value manually at a slot address.
func (s *Session) SetValue(address, value string) (bool, error) {
	return s.tree.SetValueAt(address, value, form.Manual)
}

// ApplyImport extracts the import context from a source document and runs
// the import rules. When the business process has its own rule document the
// session switches to it first.
func (s *Session) ApplyImport(ctx context.Context, raw []byte) (importctx.Context, error) {
	if err := ctx.Err(); err != nil {
		return importctx.Context{}, err
	}
	ic, err := importctx.Extract(raw, importctx.WithLogger(s.logger))
	if err != nil {
		return importctx.Context{}, fmt.Errorf("orchestrator: import: %w", err)
	}

	if s.o.rulesFS != nil && s.req.RulesFile != "" && ic.BusinessProcess != "" {
		name := rules.Resolve(s.o.rulesFS, s.req.RulesFile, ic.BusinessProcess)
		if name != s.rulesFile {
			s.logger.Info("switching to process rules", "process", ic.BusinessProcess, "file", name)
			if err := s.reload(rules.LoadOrEmpty(s.o.rulesFS, name, s.logger)); err != nil {
				return ic, err
			}
			s.rulesFile = name
		}
	}

	s.engine.ApplyImportRules(ic.Values())
	return ic, nil
}

// Synthesize clears every editable value, re-applies the rules and fills the
// form with generated data. A dependency cycle aborts before anything is
// generated.
func (s *Session) Synthesize() (synth.Report, error) {
	cleared := s.tree.ClearEnabled()
	s.engine.ApplyAll()
	s.logger.Debug("cleared before synthesis", "slots", cleared)

	report, err := synth.New(s.tree, s.set, s.gen,
		synth.WithLogger(s.logger),
		synth.WithMaxPasses(s.o.maxPasses),
	).Run()
	if err != nil {
		return report, fmt.Errorf("orchestrator: synthesize: %w", err)
	}
	return report, nil
}

// Levels returns the dependency levels of the present fields.
func (s *Session) Levels() ([][]string, error) {
	return dependency.Levels(s.tree, s.set)
}

// Validate lists every problem that would block collection.
func (s *Session) Validate() []collect.Issue {
	return s.collector.Validate()
}

// Values validates and collects the form into nested data.
func (s *Session) Values() (map[string]any, error) {
	return s.collector.Values()
}

// Clear resets the form to its seeded state and stamps the timestamp again.
func (s *Session) Clear() {
	s.tree.Reset()
	s.stamp()
}

// ClearGenerated blanks every value not locked by a rule and returns how
// many slots changed.
func (s *Session) ClearGenerated() int {
	n := s.tree.ClearEnabled()
	s.engine.ApplyAll()
	return n
}

// ReloadRules swaps the active rule set. Values survive the reload.
func (s *Session) ReloadRules(set rules.RuleSet) error {
	if err := s.reload(set); err != nil {
		return err
	}
	s.rulesFile = ""
	return nil
}

func (s *Session) reload(set rules.RuleSet) error {
	if slices.Equal(rules.ControlledSections(set, &s.model), s.controlled) {
		s.set = set
		s.engine.Reload(set)
		return nil
	}

	// Controlled sections are fixed when a tree is seeded, so carry the
	// values over to a new one.
	data := s.collector.Collect()
	s.build(set)
	if _, err := s.collector.Populate(data); err != nil {
		return fmt.Errorf("orchestrator: reload rules: %w", err)
	}
	s.engine.ApplyAll()
	return nil
}

// Presets lists the saved presets of the session's message code.
func (s *Session) Presets(ctx context.Context) ([]string, error) {
	if s.o.presets == nil {
		return nil, ErrNoPresetStore
	}
	return s.o.presets.List(ctx, s.req.MessageCode)
}

// SavePreset stores the current form data under name. Invalid or partial
// forms may be saved.
func (s *Session) SavePreset(ctx context.Context, name string) error {
	if s.o.presets == nil {
		return ErrNoPresetStore
	}
	if err := s.o.presets.Save(ctx, s.req.MessageCode, name, s.collector.Collect()); err != nil {
		return fmt.Errorf("orchestrator: save preset: %w", err)
	}
	s.logger.Info("preset saved", "name", name)
	return nil
}

// LoadPreset resets the form and fills it from a saved preset.
func (s *Session) LoadPreset(ctx context.Context, name string) (int, error) {
	if s.o.presets == nil {
		return 0, ErrNoPresetStore
	}
	data, err := s.o.presets.Load(ctx, s.req.MessageCode, name)
	if err != nil {
		return 0, fmt.Errorf("orchestrator: load preset: %w", err)
	}
	s.tree.Reset()
	written, err := s.collector.Populate(data)
	if err != nil {
		return written, fmt.Errorf("orchestrator: load preset %q: %w", name, err)
	}
	s.engine.ApplyAll()
	s.stamp()
	s.logger.Info("preset loaded", "name", name, "written", written)
	return written, nil
}

// DeletePreset removes a saved preset.
func (s *Session) DeletePreset(ctx context.Context, name string) error {
	if s.o.presets == nil {
		return ErrNoPresetStore
	}
	return s.o.presets.Delete(ctx, s.req.MessageCode, name)
}

// RenamePreset renames a saved preset.
func (s *Session) RenamePreset(ctx context.Context, oldName, newName string) error {
	if s.o.presets == nil {
		return ErrNoPresetStore
	}
	return s.o.presets.Rename(ctx, s.req.MessageCode, oldName, newName)
}

func (s *Session) stamp() {
	if s.o.timestampField == "" {
		return
	}
	now := s.o.now().Format(timestampLayout)
	if _, err := s.tree.SetFieldValueByName(s.o.timestampField, now, form.Manual); err != nil {
		if errors.Is(err, form.ErrUnknownPath) {
			s.logger.Debug("no timestamp field in form", "field", s.o.timestampField)
			return
		}
		s.logger.Warn("timestamp not written", "field", s.o.timestampField, "error", err)
	}
}
