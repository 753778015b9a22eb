package generate

import (
	"log/slog"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-xsdform/pkg/model"
	"github.com/goliatone/go-xsdform/pkg/registry"
	"github.com/goliatone/go-xsdform/pkg/rules"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

// Default is the heuristic value generator. It is not safe for concurrent
// use because it shares one random source and per-run address state.
type Default struct {
	rnd       *rand.Rand
	now       func() time.Time
	operators *registry.Operators
	codes     rules.CodeRegistry
	logger    *slog.Logger
	funcs     map[string]Func
	extra     map[string]Func
	addresses map[string]*addressState
}

// New creates a Default generator.
func New(opts ...Option) *Default {
	d := &Default{
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		logger:    slog.Default(),
		extra:     make(map[string]Func),
		addresses: make(map[string]*addressState),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.funcs = d.catalog()
	for name, fn := range d.extra {
		d.funcs[name] = fn
	}
	return d
}

// Reset forgets the per-group address decisions so a new population run
// starts from scratch.
func (d *Default) Reset() {
	d.addresses = make(map[string]*addressState)
}

// Generate returns a value for def, or false when the field should stay
// empty. choices is the slot's current allowed list, nil for free text.
func (d *Default) Generate(def *model.FieldDef, set rules.RuleSet, choices []string) (string, bool) {
	targeted := set.ForTarget(def.Path)
	for _, r := range targeted {
		if r.Action == rules.ActionSetValue {
			return "", false
		}
	}
	for _, r := range targeted {
		if r.Action != rules.ActionDataGeneration || r.Condition != nil {
			continue
		}
		if v, handled := d.fromHint(def, r); handled {
			return v, v != ""
		}
	}

	if v, ok := d.pick(choices); ok {
		return v, true
	}
	if v, ok := d.pick(def.Enumerations); ok {
		return v, true
	}
	if v, handled := d.heuristic(def); handled {
		return v, v != ""
	}
	if v, ok := d.byBaseType(def); ok {
		return v, true
	}
	if p := def.Pattern(); p != "" {
		v, err := FromPattern(d.rnd, p)
		if err != nil {
			d.logger.Warn("pattern generation failed, using generic string", "field", def.Path, "error", err)
			return d.randomString(8, 16), true
		}
		return v, true
	}
	return d.genericString(def), true
}

// fromHint applies a conditionless data_generation rule. handled is false
// when the named generator is unknown and the default path should run.
func (d *Default) fromHint(def *model.FieldDef, r rules.Rule) (string, bool) {
	name, _ := r.Param("generator")
	fn, ok := d.funcs[name]
	if !ok {
		d.logger.Warn("unknown generator in rules", "generator", name, "field", def.Path)
		return "", false
	}
	probability := r.FloatParam("probability", 1)
	if roll := d.rnd.Float64(); roll >= probability {
		d.logger.Debug("generation skipped by probability", "field", def.Path, "probability", probability, "roll", roll)
		return "", true
	}
	d.logger.Debug("using rule generator", "field", def.Path, "generator", name)
	return fn(r.MapParam("params")), true
}

func (d *Default) pick(options []string) (string, bool) {
	var valid []string
	for _, o := range options {
		if o != "" {
			valid = append(valid, o)
		}
	}
	if len(valid) == 0 {
		return "", false
	}
	return valid[d.rnd.Intn(len(valid))], true
}

// heuristic matches well-known type and field names. handled with an empty
// value means the field must stay empty.
func (d *Default) heuristic(def *model.FieldDef) (string, bool) {
	switch def.TypeName {
	case "CountryIsoCodeType":
		return "PL", true
	case "KrsType":
		return d.krs(), true
	case "GlobalTaxIdentificationType":
		return d.globalTaxID(), true
	case "UuidType":
		return d.uuid(), true
	}

	name := strings.ToLower(def.Name)
	switch {
	case strings.Contains(name, "nip"):
		return d.nip(), true
	case strings.Contains(name, "pesel"):
		return d.pesel(), true
	case strings.Contains(name, "meteringpointcode"), strings.Contains(name, "ppecode"):
		return d.ppe(), true
	case name == "customkseuseridentifier":
		return d.customKSEUserID(), true
	}
	if addressFields[name] {
		return d.address(def, name), true
	}
	switch {
	case strings.Contains(name, "cityname"):
		return d.city(), true
	case strings.Contains(name, "postalcode"):
		return d.postalCode(), true
	case strings.Contains(name, "recipientname"):
		return d.fullName(), true
	case strings.Contains(name, "dsoemailaddress"):
		return d.email(), true
	case strings.Contains(name, "dsophonenumber"):
		return d.phone(), true
	case strings.Contains(name, "firstname"):
		return d.oneOf(firstNames), true
	case strings.Contains(name, "lastname"):
		return d.oneOf(lastNames), true
	case strings.Contains(name, "companyname"):
		return d.companyName(), true
	}
	return "", false
}

func (d *Default) byBaseType(def *model.FieldDef) (string, bool) {
	base := def.BaseType
	switch {
	case schema.IsInteger(base):
		return d.integer(def), true
	case schema.IsNumeric(base):
		return d.decimal(def), true
	}
	switch base {
	case schema.BuiltinDate:
		return d.pastDate(5 * 365), true
	case schema.BuiltinDateTime:
		return d.dateTime(), true
	case schema.BuiltinTime:
		return d.now().Format("15:04:05"), true
	case schema.BuiltinGYear:
		return strconv.Itoa(d.now().Year()), true
	case schema.BuiltinBoolean:
		return d.boolean(), true
	}
	return "", false
}

// integerDefaults are the ranges used when a field declares no bounds. They
// stay inside the value space of each builtin.
var integerDefaults = map[string][2]int64{
	schema.BuiltinPositiveInteger:    {1, 10000},
	schema.BuiltinNegativeInteger:    {-10000, -1},
	schema.BuiltinNonPositiveInteger: {-10000, 0},
	schema.BuiltinByte:               {0, 127},
	schema.BuiltinUnsignedByte:       {0, 255},
}

const integerSpread = 10000

func (d *Default) integer(def *model.FieldDef) string {
	lo, hi := int64(0), int64(integerSpread)
	if r, ok := integerDefaults[def.BaseType]; ok {
		lo, hi = r[0], r[1]
	}
	minSet, maxSet := false, false
	if v, ok := intBound(def, model.ValidationRuleMinInclusive); ok {
		lo, minSet = v, true
	} else if v, ok := intBound(def, model.ValidationRuleMinExclusive); ok && v < math.MaxInt64 {
		lo, minSet = v+1, true
	}
	if v, ok := intBound(def, model.ValidationRuleMaxInclusive); ok {
		hi, maxSet = v, true
	} else if v, ok := intBound(def, model.ValidationRuleMaxExclusive); ok && v > math.MinInt64 {
		hi, maxSet = v-1, true
	}
	if lo > hi {
		switch {
		case minSet && !maxSet:
			hi = saturatingAdd(lo, integerSpread)
		case maxSet && !minSet:
			lo = saturatingAdd(hi, -integerSpread)
		default:
			lo, hi = hi, lo
		}
	}
	return strconv.FormatInt(d.between(lo, hi), 10)
}

// between picks a value in [lo, hi] without overflowing on wide ranges.
func (d *Default) between(lo, hi int64) int64 {
	span := uint64(hi) - uint64(lo)
	if span >= math.MaxInt64 {
		return int64(uint64(lo) + uint64(d.rnd.Int63()))
	}
	return lo + d.rnd.Int63n(int64(span)+1)
}

func saturatingAdd(v, delta int64) int64 {
	switch {
	case delta > 0 && v > math.MaxInt64-delta:
		return math.MaxInt64
	case delta < 0 && v < math.MinInt64-delta:
		return math.MinInt64
	}
	return v + delta
}

func (d *Default) decimal(def *model.FieldDef) string {
	lo, hi := 0.0, 1000.0
	if v, ok := floatBound(def, model.ValidationRuleMinInclusive); ok {
		lo = v
	}
	if v, ok := floatBound(def, model.ValidationRuleMaxInclusive); ok {
		hi = v
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	digits := 2
	if v, ok := def.IntRestriction(model.ValidationRuleFractionDigits); ok {
		digits = v
	}
	v := lo + (hi-lo)*d.rnd.Float64()
	out := strconv.FormatFloat(v, 'f', digits, 64)
	if rounded, err := strconv.ParseFloat(out, 64); err == nil && rounded > hi {
		out = strconv.FormatFloat(hi, 'f', digits, 64)
	}
	return out
}

func (d *Default) genericString(def *model.FieldDef) string {
	lo, hi := 1, 10
	if v, ok := def.IntRestriction(model.ValidationRuleMinLength); ok {
		lo = v
	}
	if v, ok := def.IntRestriction(model.ValidationRuleMaxLength); ok {
		hi = v
	}
	if v, ok := def.IntRestriction(model.ValidationRuleLength); ok {
		lo, hi = v, v
	}
	if lo > hi {
		lo = hi
	}
	return d.randomString(lo, hi)
}

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func (d *Default) randomString(lo, hi int) string {
	n := lo
	if hi > lo {
		n += d.rnd.Intn(hi - lo + 1)
	}
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[d.rnd.Intn(len(alphabet))]
	}
	return string(b)
}

func intBound(def *model.FieldDef, kind string) (int64, bool) {
	raw, ok := def.Restriction(kind)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	return v, err == nil
}

func floatBound(def *model.FieldDef, kind string) (float64, bool) {
	raw, ok := def.Restriction(kind)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	return v, err == nil
}
