package generate_test

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-xsdform/pkg/generate"
	"github.com/goliatone/go-xsdform/pkg/model"
	"github.com/goliatone/go-xsdform/pkg/registry"
	"github.com/goliatone/go-xsdform/pkg/rules"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func newGenerator(opts ...generate.Option) *generate.Default {
	base := []generate.Option{
		generate.WithRand(testsupport.Rand(7)),
		generate.WithClock(func() time.Time { return fixedNow }),
		generate.WithLogger(testsupport.Logger()),
	}
	return generate.New(append(base, opts...)...)
}

func field(t *testing.T, m model.FormModel, path string) *model.FieldDef {
	t.Helper()
	f, ok := m.Field(path)
	if !ok {
		t.Fatalf("field %s not in model", path)
	}
	return f
}

func TestDefault_ValuesSatisfyTypes(t *testing.T) {
	t.Parallel()
	m := testsupport.MustModel(t)
	g := newGenerator()

	for i := 0; i < 20; i++ {
		for _, f := range m.Fields() {
			v, ok := g.Generate(f, rules.RuleSet{}, nil)
			if !ok {
				t.Fatalf("%s: expected a value", f.Path)
			}
			if err := f.Type.Validate(v); err != nil {
				t.Fatalf("%s: generated %q is invalid: %v", f.Path, v, err)
			}
		}
	}
}

func TestDefault_Heuristics(t *testing.T) {
	t.Parallel()
	m := testsupport.MustModel(t)
	g := newGenerator()

	id, _ := g.Generate(field(t, m, "Message.Header.MessageId"), rules.RuleSet{}, nil)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("UuidType should produce a UUID, got %q", id)
	}

	stamp, _ := g.Generate(field(t, m, "Message.Header.MessageTimestamp"), rules.RuleSet{}, nil)
	if stamp != "2026-03-14T09:26:53" {
		t.Fatalf("unexpected timestamp %q", stamp)
	}

	amount, _ := g.Generate(field(t, m, "Message.Body.Amount"), rules.RuleSet{}, nil)
	if dot := strings.IndexByte(amount, '.'); dot < 0 || len(amount)-dot-1 != 2 {
		t.Fatalf("decimal should carry two fraction digits, got %q", amount)
	}

	reason, _ := g.Generate(field(t, m, "Message.Body.Reason"), rules.RuleSet{}, []string{"", "A02"})
	if reason != "A02" {
		t.Fatalf("allowed choices should win over enumerations, got %q", reason)
	}
}

func TestDefault_RuleHints(t *testing.T) {
	t.Parallel()
	m := testsupport.MustModel(t)
	details := field(t, m, "Message.Body.Details")
	set, err := rules.Parse([]byte(`{"rules": {
		"Message.Body.Details": {
			"data_generation": {"condition": null, "action": "data_generation", "generator": "generate_nip"}
		},
		"Message.Body.Amount": {
			"data_generation": {"condition": null, "action": "data_generation", "generator": "generate_nip", "probability": 0}
		},
		"Message.Header.SenderId": {
			"fixed": {"condition": null, "action": "set_value", "value": "X"}
		},
		"Message.Body.Point.Code": {
			"data_generation": {"condition": null, "action": "data_generation", "generator": "no_such_generator"}
		}
	}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	g := newGenerator()

	nip, ok := g.Generate(details, set, nil)
	if !ok || !validNIP(nip) {
		t.Fatalf("expected a valid NIP from the rule hint, got %q", nip)
	}
	if _, ok := g.Generate(field(t, m, "Message.Body.Amount"), set, nil); ok {
		t.Fatalf("probability 0 must leave the field empty")
	}
	if _, ok := g.Generate(field(t, m, "Message.Header.SenderId"), set, nil); ok {
		t.Fatalf("fields owned by set_value must not be generated")
	}
	if v, ok := g.Generate(field(t, m, "Message.Body.Point.Code"), set, nil); !ok || v == "" {
		t.Fatalf("unknown generator should fall back to the default path")
	}
}

func TestFromPattern(t *testing.T) {
	t.Parallel()
	patterns := []string{
		`[A-Z]{3}\.[0-9]{2}\.`,
		`C[AE][0-9]{3,4}`,
		`(\d{2})([0-9A-Z\-]{14})`,
		`[^0-9]+x?`,
		`(PL|DE)[0-9]{2,}`,
		`\d{2}-\d{3}`,
	}
	rnd := testsupport.Rand(11)
	for _, p := range patterns {
		for i := 0; i < 25; i++ {
			v, err := generate.FromPattern(rnd, p)
			if err != nil {
				t.Fatalf("pattern %q: %v", p, err)
			}
			if v == "" {
				t.Fatalf("pattern %q produced an empty value", p)
			}
		}
	}

	if _, err := generate.FromPattern(rnd, `[a-`); err == nil {
		t.Fatalf("expected an error for an invalid pattern")
	}
}

func TestCatalog(t *testing.T) {
	t.Parallel()
	ops, err := registry.LoadOperators(strings.NewReader("EIC;Name\n10XPL-OSD-A;A\n"), registry.WithLogger(testsupport.Logger()))
	if err != nil {
		t.Fatalf("operators: %v", err)
	}
	g := newGenerator(
		generate.WithOperators(ops),
		generate.WithCodeRegistry(codes{"CA0001", "CE010"}),
		generate.WithNamed("constant", func(map[string]any) string { return "c" }),
	)
	catalog := g.Catalog()

	checks := map[string]func(string) bool{
		"generate_nip":                 validNIP,
		"generate_pesel":               validPESEL,
		"generate_ppe":                 validPPE,
		"generate_operator_identifier": func(v string) bool { return v == "10XPL-OSD-A" },
		"generate_custom_kse_user_id":  func(v string) bool { return strings.HasPrefix(v, "10XPL-OSD-AUKSE") && len(v) == len("10XPL-OSD-AUKSE")+11 },
		"generate_postal_code":         func(v string) bool { return len(v) == 6 && v[2] == '-' },
		"generate_dso_phone_number":    func(v string) bool { return strings.HasPrefix(v, "+48") && len(v) == 12 },
		"generate_teryt_code":          func(v string) bool { return len(v) == 5 },
		"generate_boolean":             func(v string) bool { return v == "true" || v == "false" },
		"constant":                     func(v string) bool { return v == "c" },
		"generate_latitude_pl": func(v string) bool {
			f, err := strconv.ParseFloat(v, 64)
			return err == nil && f >= 49 && f <= 54.9
		},
	}
	for name, check := range checks {
		v, ok := catalog.Generate(name, nil)
		if !ok || !check(v) {
			t.Fatalf("%s produced %q", name, v)
		}
	}

	code, _ := catalog.Generate("error_code_for_process", map[string]any{"process_type": "CHG.01."})
	if code != "CE010" {
		t.Fatalf("expected the only error code, got %q", code)
	}
	future, _ := catalog.Generate("generate_future_date", map[string]any{"days": 0})
	if future != "2026-03-15" {
		t.Fatalf("zero-day window should give tomorrow, got %q", future)
	}
	if _, ok := catalog.Generate("missing", nil); ok {
		t.Fatalf("unknown generator should report false")
	}
}

func TestDefault_AddressConsistency(t *testing.T) {
	t.Parallel()
	s := testsupport.MustCompileYAML(t, `
elements:
  - name: Address
    complexType:
      sequence:
        - name: StreetName
          minOccurs: 0
        - name: PlotNumber
          minOccurs: 0
        - name: IsStreetSeparationPresent
          type: boolean
`)
	m, err := model.Build(s, "Address")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for seed := int64(0); seed < 20; seed++ {
		g := generate.New(generate.WithRand(rand.New(rand.NewSource(seed))), generate.WithLogger(testsupport.Logger()))
		street, hasStreet := g.Generate(field(t, m, "Address.StreetName"), rules.RuleSet{}, nil)
		_, hasPlot := g.Generate(field(t, m, "Address.PlotNumber"), rules.RuleSet{}, nil)
		separation, _ := g.Generate(field(t, m, "Address.IsStreetSeparationPresent"), rules.RuleSet{}, nil)
		if hasStreet == hasPlot {
			t.Fatalf("seed %d: exactly one of street %q and plot should be set", seed, street)
		}
		if (separation == "true") != hasStreet {
			t.Fatalf("seed %d: separation %q disagrees with street choice", seed, separation)
		}
	}
}

func TestDefault_IntegerRanges(t *testing.T) {
	t.Parallel()
	s := testsupport.MustCompileYAML(t, `
simpleTypes:
  - name: Wide
    base: long
    facets:
      minInclusive: "-9223372036854775808"
      maxInclusive: "9223372036854775807"
  - name: Floor
    base: int
    facets:
      minInclusive: "20000"
  - name: Ceiling
    base: integer
    facets:
      maxExclusive: "-50000"
elements:
  - name: Counts
    complexType:
      sequence:
        - name: Neg
          type: negativeInteger
        - name: NonPos
          type: nonPositiveInteger
        - name: Small
          type: byte
        - name: Tiny
          type: unsignedByte
        - name: Full
          type: Wide
        - name: Above
          type: Floor
        - name: Below
          type: Ceiling
`)
	m, err := model.Build(s, "Counts")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for seed := int64(0); seed < 50; seed++ {
		g := generate.New(generate.WithRand(rand.New(rand.NewSource(seed))), generate.WithLogger(testsupport.Logger()))
		for _, f := range m.Fields() {
			v, ok := g.Generate(f, rules.RuleSet{}, nil)
			if !ok {
				t.Fatalf("seed %d: %s: expected a value", seed, f.Path)
			}
			if err := f.Type.Validate(v); err != nil {
				t.Fatalf("seed %d: %s: generated %q is invalid: %v", seed, f.Path, v, err)
			}
		}
	}
}

type codes []string

func (c codes) ValidCodes(string) []string          { return c }
func (c codes) ErrorCode(string, *rand.Rand) string { return "" }

func digitsOf(v string) []int {
	out := make([]int, 0, len(v))
	for _, r := range v {
		if r < '0' || r > '9' {
			return nil
		}
		out = append(out, int(r-'0'))
	}
	return out
}

func validNIP(v string) bool {
	d := digitsOf(v)
	if len(d) != 10 {
		return false
	}
	weights := []int{6, 5, 7, 2, 3, 4, 5, 6, 7}
	sum := 0
	for i, w := range weights {
		sum += d[i] * w
	}
	return sum%11 == d[9]
}

func validPESEL(v string) bool {
	d := digitsOf(v)
	if len(d) != 11 {
		return false
	}
	weights := []int{1, 3, 7, 9, 1, 3, 7, 9, 1, 3}
	sum := 0
	for i, w := range weights {
		sum += d[i] * w
	}
	return (10-sum%10)%10 == d[10]
}

func validPPE(v string) bool {
	d := digitsOf(v)
	if len(d) != 18 || !strings.HasPrefix(v, "590") {
		return false
	}
	sum := 0
	for i := 0; i < 17; i++ {
		digit := d[16-i]
		if i%2 == 0 {
			digit *= 3
		}
		sum += digit
	}
	return (10-sum%10)%10 == d[17]
}
