package rules

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-xsdform/pkg/form"
)

// DefaultSuccessCode is offered when no registry is wired.
const DefaultSuccessCode = "CA0001"

// execute dispatches one rule. Later rules on the same target overwrite the
// effect of earlier ones.
func (e *Engine) execute(r Rule, met bool, scope *form.Instance) {
	target, ok := e.tree.Target(r.Target, scope)
	if !ok {
		e.logger.Debug("rule target not in form", "target", r.Target, "rule", r.Name)
		return
	}
	e.logger.Debug("executing rule", "target", r.Target, "rule", r.Name, "action", r.Action, "met", met)

	switch r.Action {
	case ActionSetValue:
		if met {
			e.setValue(target, r)
		}
	case ActionSetValueFromImport:
		e.setValueFromImport(target, r)
	case ActionSetChoicesFromProcessMatrix:
		if met {
			process, _ := r.Param("process_type")
			target.SetChoices(e.validCodes(process))
		}
	case ActionHide:
		target.Show(false)
	case ActionShowIfValue, ActionShowIfPermission, ActionShowIfSectionExists:
		if !met {
			target.Clear()
		}
		target.Show(met)
	case ActionForbidIfValue:
		if met {
			target.Clear()
		}
		target.Show(!met)
	case ActionRequireIfValue:
		target.Show(met)
		target.SetRequired(met)
		if !met {
			target.Clear()
		}
		target.SetEnabled(met)
	case ActionEnableIfValue:
		if !met {
			target.Clear()
		}
		target.SetEnabled(met)
	case ActionAllowMultipleIfValue:
		target.SetAllowMultiple(met)
	case ActionFilterValues:
		if met {
			target.SetFilteredChoices(r.ListParam("values"))
		} else {
			target.SetFilteredChoices(nil)
		}
	case ActionDataGeneration:
		if met {
			e.generate(target, r)
		}
	default:
		e.logger.Warn("unknown rule action", "action", r.Action, "target", r.Target, "rule", r.Name)
	}
}

func (e *Engine) setValue(target form.Target, r Rule) {
	if field, ok := target.(*form.FieldTarget); ok {
		raw, present := r.Params["value"]
		if !present {
			e.logger.Warn("set_value rule without value", "target", r.Target, "rule", r.Name)
			return
		}
		value, generated, ok := e.resolveValue(raw)
		if !ok {
			return
		}
		for _, slot := range field.Slots() {
			// Generated values are stable once written.
			if generated && !slot.Empty() {
				continue
			}
			if _, err := e.tree.SetValue(slot, value, form.RuleEngineWrite); err != nil {
				e.logger.Warn("set_value write failed", "address", slot.Address(), "error", err)
			}
		}
	}
	target.SetEnabled(false)
}

func (e *Engine) setValueFromImport(target form.Target, r Rule) {
	if e.importCtx == nil {
		e.logger.Warn("set_value_from_import without an import context", "target", r.Target, "rule", r.Name)
		return
	}
	source, _ := r.Param("source_path")
	value, ok := e.importCtx[source]
	if !ok {
		return
	}
	e.logger.Info("import value applied", "source", source, "target", r.Target)
	if field, isField := target.(*form.FieldTarget); isField {
		for _, slot := range field.Slots() {
			if _, err := e.tree.SetValue(slot, value, form.ImportWrite); err != nil {
				e.logger.Warn("import write failed", "address", slot.Address(), "error", err)
			}
		}
	}
	if r.BoolParam("lock_field", true) {
		target.SetEnabled(false)
	}
}

func (e *Engine) generate(target form.Target, r Rule) {
	field, ok := target.(*form.FieldTarget)
	if !ok {
		return
	}
	name, _ := r.Param("generator")
	params := r.MapParam("params")
	probability := r.FloatParam("probability", 1)
	if e.rnd.Float64() >= probability {
		e.logger.Debug("generation skipped by probability", "target", r.Target, "probability", probability)
		return
	}

	var value string
	switch {
	case name == "error_code_for_process":
		process, _ := params["process_type"].(string)
		value = e.errorCode(process)
	case e.generators != nil:
		v, ok := e.generators.Generate(name, params)
		if !ok {
			e.logger.Warn("unknown generator", "generator", name, "target", r.Target)
			return
		}
		value = v
	default:
		e.logger.Warn("no generators wired", "generator", name, "target", r.Target)
		return
	}
	if value == "" {
		return
	}
	for _, slot := range field.Slots() {
		if !slot.Empty() {
			continue
		}
		e.logger.Info("conditional generation", "address", slot.Address(), "generator", name)
		_, _ = e.tree.SetValue(slot, value, form.RuleEngineWrite)
	}
}

// resolveValue turns a set_value source into a value. The second result
// reports a generated (non-deterministic) value; the third is false when the
// source cannot be resolved and the write must be skipped.
func (e *Engine) resolveValue(raw any) (string, bool, bool) {
	s, isString := raw.(string)
	if !isString {
		return stringify(raw), false, true
	}
	switch {
	case strings.HasPrefix(s, "config:"):
		key := strings.TrimPrefix(s, "config:")
		v, ok := lookupFold(e.config, key)
		if !ok {
			e.logger.Warn("config value not found", "key", key)
		}
		return v, false, ok
	case strings.HasPrefix(s, "generate:"):
		parts := strings.SplitN(s, ":", 3)
		switch {
		case parts[1] == "uuid":
			return uuid.NewString(), true, true
		case parts[1] == "error_code_for_process" && len(parts) == 3:
			return e.errorCode(parts[2]), true, true
		}
		e.logger.Error("malformed generator source", "source", s)
		return "", false, false
	case strings.HasPrefix(s, "process."):
		return e.lookupInfo("process", e.processInfo, strings.TrimPrefix(s, "process."))
	case strings.HasPrefix(s, "message."):
		return e.lookupInfo("message", e.messageInfo, strings.TrimPrefix(s, "message."))
	}
	return s, false, true
}

func (e *Engine) lookupInfo(kind string, info map[string]string, key string) (string, bool, bool) {
	v, ok := info[key]
	if !ok {
		e.logger.Warn(kind+" info key not found", "key", key)
	}
	return v, false, ok
}

func (e *Engine) validCodes(process string) []string {
	if e.codes == nil {
		return []string{DefaultSuccessCode}
	}
	return e.codes.ValidCodes(process)
}

func (e *Engine) errorCode(process string) string {
	if e.codes == nil || process == "" {
		return "CE999"
	}
	return e.codes.ErrorCode(process, e.rnd)
}

func sortedStrings(in []string) []string {
	sort.Strings(in)
	return in
}
