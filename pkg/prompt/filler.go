package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goliatone/go-xsdform/pkg/dependency"
	"github.com/goliatone/go-xsdform/pkg/form"
	"github.com/goliatone/go-xsdform/pkg/rules"
)

// SkipOption is offered first by selects of optional fields.
const SkipOption = "(skip)"

// Report summarises a fill run.
type Report struct {
	Asked   int
	Written int
}

// Filler asks for every editable, visible, empty slot. Fields are visited
// in dependency-level order, then one pass over the whole tree picks up
// slots revealed by earlier answers.
type Filler struct {
	tree   *form.Tree
	set    rules.RuleSet
	driver Driver
	logger *slog.Logger
}

// Option configures a Filler.
type Option func(*Filler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Filler) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFiller creates a Filler.
func NewFiller(tree *form.Tree, set rules.RuleSet, driver Driver, opts ...Option) *Filler {
	f := &Filler{tree: tree, set: set, driver: driver, logger: slog.Default()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run prompts until every eligible slot has been offered once. A cycle in
// the rules is reported before anything is asked.
func (f *Filler) Run(ctx context.Context) (Report, error) {
	levels, err := dependency.Levels(f.tree, f.set)
	if err != nil {
		return Report{}, err
	}
	var report Report
	asked := make(map[string]bool)

	visit := func(slots []*form.Slot) error {
		for _, slot := range slots {
			if err := ctx.Err(); err != nil {
				return err
			}
			if asked[slot.Address()] || !slot.Empty() || !f.tree.Editable(slot) {
				continue
			}
			asked[slot.Address()] = true
			report.Asked++
			wrote, err := f.ask(ctx, slot)
			if err != nil {
				return err
			}
			if wrote {
				report.Written++
			}
		}
		return nil
	}

	for _, level := range levels {
		for _, path := range level {
			if err := visit(f.tree.Slots(path)); err != nil {
				return report, err
			}
		}
	}
	if err := visit(f.tree.AllSlots()); err != nil {
		return report, err
	}
	f.logger.Info("interactive fill finished", "asked", report.Asked, "written", report.Written)
	return report, nil
}

func (f *Filler) ask(ctx context.Context, slot *form.Slot) (bool, error) {
	def := slot.Def()
	message := fmt.Sprintf("%s (%s)", def.Label, slot.Address())
	if slot.Required() {
		message += " *"
	}

	var answer string
	if options := f.options(slot); options != nil {
		idx, err := f.driver.Select(ctx, SelectConfig{
			Key:     slot.Address(),
			Message: message,
			Options: options,
			Help:    def.Documentation,
		})
		if err != nil {
			return false, err
		}
		if idx >= 0 && idx < len(options) && options[idx] != SkipOption {
			answer = options[idx]
		}
	} else {
		text, err := f.driver.Input(ctx, InputConfig{
			Key:       slot.Address(),
			Message:   message,
			Help:      def.Documentation,
			Validator: validator(slot),
		})
		if err != nil {
			return false, err
		}
		answer = text
	}
	if answer == "" {
		return false, nil
	}

	changed, err := f.tree.SetValue(slot, answer, form.Manual)
	if errors.Is(err, form.ErrSlotDisabled) {
		f.logger.Warn("slot locked before the answer was written", "address", slot.Address())
		return false, nil
	}
	return changed, err
}

func (f *Filler) options(slot *form.Slot) []string {
	choices := slot.Choices()
	if choices == nil && slot.Def().BaseType == "boolean" {
		choices = []string{"true", "false"}
	}
	if choices == nil {
		return nil
	}
	if !slot.Required() {
		choices = append([]string{SkipOption}, choices...)
	}
	return choices
}

func validator(slot *form.Slot) func(string) error {
	return func(s string) error {
		if s == "" {
			if slot.Required() {
				return errors.New("value is required")
			}
			return nil
		}
		if typ := slot.Def().Type; typ != nil {
			return typ.Validate(s)
		}
		return nil
	}
}
