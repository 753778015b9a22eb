package schema

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Builtin type names understood by the compiler. Prefixed forms such as
// "xs:string" are accepted and normalised.
const (
	BuiltinString             = "string"
	BuiltinNormalizedString   = "normalizedString"
	BuiltinToken              = "token"
	BuiltinBoolean            = "boolean"
	BuiltinDecimal            = "decimal"
	BuiltinFloat              = "float"
	BuiltinDouble             = "double"
	BuiltinInteger            = "integer"
	BuiltinLong               = "long"
	BuiltinInt                = "int"
	BuiltinShort              = "short"
	BuiltinByte               = "byte"
	BuiltinNonNegativeInteger = "nonNegativeInteger"
	BuiltinPositiveInteger    = "positiveInteger"
	BuiltinNonPositiveInteger = "nonPositiveInteger"
	BuiltinNegativeInteger    = "negativeInteger"
	BuiltinUnsignedLong       = "unsignedLong"
	BuiltinUnsignedInt        = "unsignedInt"
	BuiltinUnsignedShort      = "unsignedShort"
	BuiltinUnsignedByte       = "unsignedByte"
	BuiltinDate               = "date"
	BuiltinDateTime           = "dateTime"
	BuiltinTime               = "time"
	BuiltinGYear              = "gYear"
	BuiltinAnyURI             = "anyURI"
)

// ErrInvalidValue is wrapped by every error returned from SimpleType.Validate.
var ErrInvalidValue = errors.New("schema: invalid value")

var builtinNames = map[string]struct{}{
	BuiltinString: {}, BuiltinNormalizedString: {}, BuiltinToken: {}, BuiltinBoolean: {},
	BuiltinDecimal: {}, BuiltinFloat: {}, BuiltinDouble: {}, BuiltinInteger: {},
	BuiltinLong: {}, BuiltinInt: {}, BuiltinShort: {}, BuiltinByte: {},
	BuiltinNonNegativeInteger: {}, BuiltinPositiveInteger: {}, BuiltinNonPositiveInteger: {},
	BuiltinNegativeInteger: {}, BuiltinUnsignedLong: {}, BuiltinUnsignedInt: {},
	BuiltinUnsignedShort: {}, BuiltinUnsignedByte: {}, BuiltinDate: {}, BuiltinDateTime: {},
	BuiltinTime: {}, BuiltinGYear: {}, BuiltinAnyURI: {},
}

var (
	integerLexical  = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalLexical  = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
	dateLexical     = regexp.MustCompile(`^(-?[0-9]{4,}-[0-9]{2}-[0-9]{2})(Z|[+-][0-9]{2}:[0-9]{2})?$`)
	dateTimeLexical = regexp.MustCompile(`^(-?[0-9]{4,}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2})(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})?$`)
	timeLexical     = regexp.MustCompile(`^([0-9]{2}:[0-9]{2}:[0-9]{2})(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})?$`)
	gYearLexical    = regexp.MustCompile(`^-?[0-9]{4,}(Z|[+-][0-9]{2}:[0-9]{2})?$`)
)

// NormalizeBuiltin strips a namespace prefix and reports whether the name is a
// known builtin type.
func NormalizeBuiltin(name string) (string, bool) {
	name = strings.TrimSpace(name)
	if idx := strings.LastIndex(name, ":"); idx >= 0 {
		name = name[idx+1:]
	}
	_, ok := builtinNames[name]
	return name, ok
}

// IsNumeric reports whether the builtin is decimal, floating point, or an
// integer type.
func IsNumeric(builtin string) bool {
	switch builtin {
	case BuiltinDecimal, BuiltinFloat, BuiltinDouble:
		return true
	}
	return IsInteger(builtin)
}

// IsInteger reports whether the builtin derives from xs:integer.
func IsInteger(builtin string) bool {
	switch builtin {
	case BuiltinInteger, BuiltinLong, BuiltinInt, BuiltinShort, BuiltinByte,
		BuiltinNonNegativeInteger, BuiltinPositiveInteger, BuiltinNonPositiveInteger,
		BuiltinNegativeInteger, BuiltinUnsignedLong, BuiltinUnsignedInt,
		BuiltinUnsignedShort, BuiltinUnsignedByte:
		return true
	}
	return false
}

type compiledPattern struct {
	source string
	re     *regexp.Regexp
}

// CompilePattern translates an XSD pattern into an anchored Go expression.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, fmt.Errorf("schema: invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

func (t *SimpleType) compiledPatterns() ([]compiledPattern, error) {
	if len(t.patterns) == len(t.Facets.Patterns) {
		return t.patterns, nil
	}
	out := make([]compiledPattern, 0, len(t.Facets.Patterns))
	for _, p := range t.Facets.Patterns {
		re, err := CompilePattern(p)
		if err != nil {
			return nil, err
		}
		out = append(out, compiledPattern{source: p, re: re})
	}
	t.patterns = out
	return out, nil
}

// Validate checks the lexical form of value against the primitive type and
// every facet along the derivation chain.
func (t *SimpleType) Validate(value string) error {
	if t == nil {
		return nil
	}
	primitive := t.Primitive()
	if primitive != BuiltinString && primitive != BuiltinNormalizedString {
		value = strings.TrimSpace(value)
	}
	if err := checkLexical(primitive, value); err != nil {
		return err
	}

	facets := t.Effective()
	if err := checkFacets(primitive, facets, value); err != nil {
		return err
	}

	for cur := t; cur != nil; cur = cur.Base {
		patterns, err := cur.compiledPatterns()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if len(patterns) == 0 {
			continue
		}
		matched := false
		for _, p := range patterns {
			if p.re.MatchString(value) {
				matched = true
				break
			}
		}
		if !matched {
			return fmt.Errorf("%w: %q does not match pattern %q", ErrInvalidValue, value, patterns[0].source)
		}
	}
	return nil
}

func checkLexical(primitive, value string) error {
	invalid := func(kind string) error {
		return fmt.Errorf("%w: %q is not a valid %s", ErrInvalidValue, value, kind)
	}
	switch {
	case IsInteger(primitive):
		if !integerLexical.MatchString(value) {
			return invalid(primitive)
		}
		return checkIntegerRange(primitive, value)
	case primitive == BuiltinDecimal:
		if !decimalLexical.MatchString(value) {
			return invalid(primitive)
		}
	case primitive == BuiltinFloat || primitive == BuiltinDouble:
		switch value {
		case "INF", "-INF", "NaN":
			return nil
		}
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return invalid(primitive)
		}
	case primitive == BuiltinBoolean:
		switch value {
		case "true", "false", "1", "0":
		default:
			return invalid(primitive)
		}
	case primitive == BuiltinDate:
		m := dateLexical.FindStringSubmatch(value)
		if m == nil {
			return invalid(primitive)
		}
		if _, err := time.Parse("2006-01-02", m[1]); err != nil {
			return invalid(primitive)
		}
	case primitive == BuiltinDateTime:
		m := dateTimeLexical.FindStringSubmatch(value)
		if m == nil {
			return invalid(primitive)
		}
		if _, err := time.Parse("2006-01-02T15:04:05", m[1]); err != nil {
			return invalid(primitive)
		}
	case primitive == BuiltinTime:
		m := timeLexical.FindStringSubmatch(value)
		if m == nil {
			return invalid(primitive)
		}
		if _, err := time.Parse("15:04:05", m[1]); err != nil {
			return invalid(primitive)
		}
	case primitive == BuiltinGYear:
		if !gYearLexical.MatchString(value) {
			return invalid(primitive)
		}
	case primitive == BuiltinAnyURI:
		if _, err := url.Parse(value); err != nil {
			return invalid(primitive)
		}
	case primitive == BuiltinToken:
		if value != strings.Join(strings.Fields(value), " ") {
			return invalid(primitive)
		}
	}
	return nil
}

func checkIntegerRange(primitive, value string) error {
	out := func() error {
		return fmt.Errorf("%w: %q is out of range for %s", ErrInvalidValue, value, primitive)
	}
	bits := map[string]int{
		BuiltinLong: 64, BuiltinInt: 32, BuiltinShort: 16, BuiltinByte: 8,
		BuiltinUnsignedLong: 64, BuiltinUnsignedInt: 32, BuiltinUnsignedShort: 16, BuiltinUnsignedByte: 8,
	}
	trimmed := strings.TrimPrefix(value, "+")
	negative := strings.HasPrefix(trimmed, "-")
	zero := strings.Trim(strings.TrimPrefix(trimmed, "-"), "0") == ""
	switch primitive {
	case BuiltinLong, BuiltinInt, BuiltinShort, BuiltinByte:
		if _, err := strconv.ParseInt(trimmed, 10, bits[primitive]); err != nil {
			return out()
		}
	case BuiltinUnsignedLong, BuiltinUnsignedInt, BuiltinUnsignedShort, BuiltinUnsignedByte:
		if negative && !zero {
			return out()
		}
		if !negative {
			if _, err := strconv.ParseUint(trimmed, 10, bits[primitive]); err != nil {
				return out()
			}
		}
	case BuiltinNonNegativeInteger:
		if negative && !zero {
			return out()
		}
	case BuiltinPositiveInteger:
		if negative || zero {
			return out()
		}
	case BuiltinNonPositiveInteger:
		if !negative && !zero {
			return out()
		}
	case BuiltinNegativeInteger:
		if !negative || zero {
			return out()
		}
	}
	return nil
}

func checkFacets(primitive string, f Facets, value string) error {
	length := utf8.RuneCountInString(value)
	if f.Length != nil && length != *f.Length {
		return fmt.Errorf("%w: length %d, want %d", ErrInvalidValue, length, *f.Length)
	}
	if f.MinLength != nil && length < *f.MinLength {
		return fmt.Errorf("%w: length %d is below minLength %d", ErrInvalidValue, length, *f.MinLength)
	}
	if f.MaxLength != nil && length > *f.MaxLength {
		return fmt.Errorf("%w: length %d exceeds maxLength %d", ErrInvalidValue, length, *f.MaxLength)
	}
	if len(f.Enumeration) > 0 {
		found := false
		for _, allowed := range f.Enumeration {
			if allowed == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %q is not one of the enumerated values", ErrInvalidValue, value)
		}
	}

	bounds := []struct {
		facet string
		limit *string
		ok    func(cmp int) bool
	}{
		{"minInclusive", f.MinInclusive, func(c int) bool { return c >= 0 }},
		{"maxInclusive", f.MaxInclusive, func(c int) bool { return c <= 0 }},
		{"minExclusive", f.MinExclusive, func(c int) bool { return c > 0 }},
		{"maxExclusive", f.MaxExclusive, func(c int) bool { return c < 0 }},
	}
	for _, b := range bounds {
		if b.limit == nil {
			continue
		}
		c, err := compareValues(primitive, value, *b.limit)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if !b.ok(c) {
			return fmt.Errorf("%w: %q violates %s %s", ErrInvalidValue, value, b.facet, *b.limit)
		}
	}

	if f.TotalDigits != nil {
		if n := countDigits(value); n > *f.TotalDigits {
			return fmt.Errorf("%w: %d digits exceed totalDigits %d", ErrInvalidValue, n, *f.TotalDigits)
		}
	}
	if f.FractionDigits != nil {
		if n := countFractionDigits(value); n > *f.FractionDigits {
			return fmt.Errorf("%w: %d fraction digits exceed fractionDigits %d", ErrInvalidValue, n, *f.FractionDigits)
		}
	}
	return nil
}

// compareValues orders two lexical values of the same primitive type.
func compareValues(primitive, a, b string) (int, error) {
	if IsNumeric(primitive) {
		x, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return 0, fmt.Errorf("compare %q: %w", a, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
		if err != nil {
			return 0, fmt.Errorf("compare bound %q: %w", b, err)
		}
		switch {
		case x < y:
			return -1, nil
		case x > y:
			return 1, nil
		case math.IsNaN(x) || math.IsNaN(y):
			return 0, fmt.Errorf("compare %q: NaN is unordered", a)
		}
		return 0, nil
	}
	return strings.Compare(a, b), nil
}

func countDigits(value string) int {
	value = strings.TrimLeft(strings.TrimLeft(value, "+-"), "0")
	if idx := strings.IndexByte(value, '.'); idx >= 0 {
		value = value[:idx] + strings.TrimRight(value[idx+1:], "0")
	}
	n := 0
	for _, r := range value {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func countFractionDigits(value string) int {
	idx := strings.IndexByte(value, '.')
	if idx < 0 {
		return 0
	}
	return len(strings.TrimRight(value[idx+1:], "0"))
}
