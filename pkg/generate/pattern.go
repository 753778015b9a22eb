package generate

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp/syntax"
	"strings"

	"github.com/goliatone/go-xsdform/pkg/schema"
)

// ErrPatternMismatch is returned when a generated value does not satisfy the
// pattern it was generated from.
var ErrPatternMismatch = errors.New("generate: value does not match pattern")

// maxExtraRepeat bounds open repetitions such as * and +.
const maxExtraRepeat = 3

// FromPattern returns a random string matching pattern.
func FromPattern(rnd *rand.Rand, pattern string) (string, error) {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return "", fmt.Errorf("generate: parse pattern %q: %w", pattern, err)
	}
	var b strings.Builder
	if err := emit(&b, re.Simplify(), rnd); err != nil {
		return "", err
	}
	out := b.String()
	check, err := schema.CompilePattern(pattern)
	if err != nil {
		return "", err
	}
	if !check.MatchString(out) {
		return "", fmt.Errorf("%w: %q from %q", ErrPatternMismatch, out, pattern)
	}
	return out, nil
}

func emit(b *strings.Builder, re *syntax.Regexp, rnd *rand.Rand) error {
	switch re.Op {
	case syntax.OpNoMatch:
		return fmt.Errorf("generate: pattern cannot match anything")
	case syntax.OpEmptyMatch, syntax.OpBeginLine, syntax.OpEndLine,
		syntax.OpBeginText, syntax.OpEndText, syntax.OpWordBoundary, syntax.OpNoWordBoundary:
		return nil
	case syntax.OpLiteral:
		for _, r := range re.Rune {
			b.WriteRune(r)
		}
		return nil
	case syntax.OpCharClass:
		r, ok := pickRune(re.Rune, rnd)
		if !ok {
			return fmt.Errorf("generate: empty character class")
		}
		b.WriteRune(r)
		return nil
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		b.WriteByte(alphabet[rnd.Intn(len(alphabet))])
		return nil
	case syntax.OpCapture:
		return emit(b, re.Sub[0], rnd)
	case syntax.OpStar:
		return repeat(b, re.Sub[0], rnd, 0, maxExtraRepeat)
	case syntax.OpPlus:
		return repeat(b, re.Sub[0], rnd, 1, 1+maxExtraRepeat)
	case syntax.OpQuest:
		return repeat(b, re.Sub[0], rnd, 0, 1)
	case syntax.OpRepeat:
		hi := re.Max
		if hi < 0 {
			hi = re.Min + maxExtraRepeat
		}
		return repeat(b, re.Sub[0], rnd, re.Min, hi)
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			if err := emit(b, sub, rnd); err != nil {
				return err
			}
		}
		return nil
	case syntax.OpAlternate:
		return emit(b, re.Sub[rnd.Intn(len(re.Sub))], rnd)
	}
	return fmt.Errorf("generate: unsupported pattern construct %v", re.Op)
}

func repeat(b *strings.Builder, re *syntax.Regexp, rnd *rand.Rand, lo, hi int) error {
	n := lo
	if hi > lo {
		n += rnd.Intn(hi - lo + 1)
	}
	for i := 0; i < n; i++ {
		if err := emit(b, re, rnd); err != nil {
			return err
		}
	}
	return nil
}

// pickRune chooses uniformly from a class given as lo-hi pairs, preferring
// printable ASCII so that negated classes stay readable.
func pickRune(ranges []rune, rnd *rand.Rand) (rune, bool) {
	if len(ranges) < 2 {
		return 0, false
	}
	clipped := clip(ranges, '!', '~')
	if len(clipped) == 0 {
		clipped = clip(ranges, ranges[0], ranges[0]+0xff)
	}
	total := 0
	for i := 0; i < len(clipped); i += 2 {
		total += int(clipped[i+1]-clipped[i]) + 1
	}
	n := rnd.Intn(total)
	for i := 0; i < len(clipped); i += 2 {
		size := int(clipped[i+1]-clipped[i]) + 1
		if n < size {
			return clipped[i] + rune(n), true
		}
		n -= size
	}
	return clipped[0], true
}

func clip(ranges []rune, lo, hi rune) []rune {
	var out []rune
	for i := 0; i+1 < len(ranges); i += 2 {
		a, z := max(ranges[i], lo), min(ranges[i+1], hi)
		if a <= z {
			out = append(out, a, z)
		}
	}
	return out
}
