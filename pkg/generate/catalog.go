package generate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-xsdform/pkg/registry"
)

// Func is a named generator. params come from the rule that names it.
type Func func(params map[string]any) string

var (
	nipWeights   = []int{6, 5, 7, 2, 3, 4, 5, 6, 7}
	peselWeights = []int{1, 3, 7, 9, 1, 3, 7, 9, 1, 3}

	ppeCompanyPrefixes = []string{
		"2438", "3106", "3224", "3641", "3801", "5069", "5435", "5701",
		"5711", "5815", "6815", "5088", "4619", "5045", "5324",
	}
	taxCountries = []string{"DE", "FR", "PL", "CZ", "ES", "IT", "GB", "NL", "AT", "BE"}
)

const (
	fallbackNIP      = "1234567890"
	fallbackOperator = "19X-BRAK-DANYCH-0"
	fallbackKSEEIC   = "19XOPERATOR-PL-0"
)

func (d *Default) catalog() map[string]Func {
	noParams := func(fn func() string) Func {
		return func(map[string]any) string { return fn() }
	}
	return map[string]Func{
		"generate_future_date": func(p map[string]any) string {
			return d.futureDate(intParam(p, "days", 90))
		},
		"generate_past_date": func(p map[string]any) string {
			return d.pastDate(intParam(p, "days", 2*365))
		},
		"business_sentence":            noParams(d.businessSentence),
		"generate_nip":                 noParams(d.nip),
		"generate_pesel":               noParams(d.pesel),
		"generate_krs":                 noParams(d.krs),
		"generate_global_tax_id":       noParams(d.globalTaxID),
		"generate_custom_kse_user_id":  noParams(d.customKSEUserID),
		"generate_ppe":                 noParams(d.ppe),
		"generate_operator_identifier": noParams(d.operatorIdentifier),
		"generate_uuid":                noParams(d.uuid),
		"generate_latitude_pl":         noParams(d.latitude),
		"generate_longitude_pl":        noParams(d.longitude),
		"generate_teryt_code":          noParams(func() string { return d.digits(5) }),
		"generate_city":                noParams(d.city),
		"generate_postal_code":         noParams(d.postalCode),
		"generate_street_name":         noParams(d.streetName),
		"generate_building_number":     noParams(d.buildingNumber),
		"generate_apartment_number":    noParams(d.apartmentNumber),
		"generate_full_name":           noParams(d.fullName),
		"generate_email":               noParams(d.email),
		"generate_dso_phone_number":    noParams(d.phone),
		"generate_first_name":          noParams(func() string { return d.oneOf(firstNames) }),
		"generate_last_name":           noParams(func() string { return d.oneOf(lastNames) }),
		"generate_company_name":        noParams(d.companyName),
		"generate_plot_number":         noParams(d.plotNumber),
		"generate_date":                noParams(func() string { return d.pastDate(5 * 365) }),
		"generate_datetime":            noParams(d.dateTime),
		"generate_boolean":             noParams(d.boolean),
		"error_code_for_process": func(p map[string]any) string {
			process, _ := p["process_type"].(string)
			return d.errorCode(process)
		},
	}
}

// Named runs a generator from the catalog.
func (d *Default) Named(name string, params map[string]any) (string, bool) {
	fn, ok := d.funcs[name]
	if !ok {
		return "", false
	}
	return fn(params), true
}

// Names lists the catalog, sorted.
func (d *Default) Names() []string {
	out := make([]string, 0, len(d.funcs))
	for name := range d.funcs {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Catalog exposes the named generators to the rule engine.
func (d *Default) Catalog() Catalog {
	return Catalog{d: d}
}

// Catalog adapts Default to rules.NamedGenerator.
type Catalog struct {
	d *Default
}

// Generate runs the named generator.
func (c Catalog) Generate(name string, params map[string]any) (string, bool) {
	return c.d.Named(name, params)
}

func (d *Default) digits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + d.rnd.Intn(10))
	}
	return string(b)
}

func (d *Default) oneOf(list []string) string {
	return list[d.rnd.Intn(len(list))]
}

func (d *Default) uuid() string { return uuid.NewString() }

func (d *Default) boolean() string {
	if d.rnd.Intn(2) == 0 {
		return "true"
	}
	return "false"
}

// nip builds a ten digit tax number whose last digit is the weighted mod 11
// checksum. Drafts whose checksum is 10 are rejected.
func (d *Default) nip() string {
	for attempt := 0; attempt < 100; attempt++ {
		digits := make([]int, 9)
		digits[0] = 1 + d.rnd.Intn(9)
		for i := 1; i < 9; i++ {
			digits[i] = d.rnd.Intn(10)
		}
		sum := 0
		for i, w := range nipWeights {
			sum += digits[i] * w
		}
		if check := sum % 11; check != 10 {
			return joinDigits(append(digits, check))
		}
	}
	d.logger.Warn("nip generation gave up, using fallback")
	return fallbackNIP
}

func (d *Default) pesel() string {
	digits := make([]int, 10)
	sum := 0
	for i := range digits {
		digits[i] = d.rnd.Intn(10)
		sum += digits[i] * peselWeights[i]
	}
	return joinDigits(append(digits, (10-sum%10)%10))
}

// ppe builds an 18 digit metering point code: 590, a company prefix, ten
// location digits and a GS1 check digit.
func (d *Default) ppe() string {
	payload := "590" + d.oneOf(ppeCompanyPrefixes) + d.digits(10)
	sum := 0
	for i := 0; i < len(payload); i++ {
		digit := int(payload[len(payload)-1-i] - '0')
		if i%2 == 0 {
			digit *= 3
		}
		sum += digit
	}
	return payload + strconv.Itoa((10-sum%10)%10)
}

func (d *Default) krs() string { return d.digits(10) }

func (d *Default) globalTaxID() string {
	return d.oneOf(taxCountries) + d.digits(8+d.rnd.Intn(5))
}

func (d *Default) operatorIdentifier() string {
	if eic, ok := d.operators.Random(d.rnd); ok {
		return eic
	}
	d.logger.Warn("operator dictionary empty, using placeholder EIC")
	return fallbackOperator
}

func (d *Default) customKSEUserID() string {
	eic, ok := d.operators.Random(d.rnd)
	if !ok {
		eic = fallbackKSEEIC
	}
	return eic + "UKSE" + d.digits(11)
}

func (d *Default) errorCode(process string) string {
	if process == "" || d.codes == nil {
		d.logger.Warn("no process for error code, using fallback", "process", process)
		return registry.FallbackErrorCode
	}
	var errorCodes []string
	for _, code := range d.codes.ValidCodes(process) {
		if strings.HasPrefix(code, "CE") {
			errorCodes = append(errorCodes, code)
		}
	}
	if len(errorCodes) == 0 {
		return registry.FallbackErrorCode
	}
	return d.oneOf(errorCodes)
}

func (d *Default) latitude() string  { return d.coordinate(49.0, 54.9) }
func (d *Default) longitude() string { return d.coordinate(14.1, 24.1) }

func (d *Default) coordinate(lo, hi float64) string {
	return strconv.FormatFloat(lo+(hi-lo)*d.rnd.Float64(), 'f', 6, 64)
}

func (d *Default) today() time.Time {
	now := d.now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

func (d *Default) futureDate(days int) string {
	days = max(days, 0)
	start := d.today().AddDate(0, 0, 1)
	return start.AddDate(0, 0, d.rnd.Intn(days+1)).Format(time.DateOnly)
}

func (d *Default) pastDate(days int) string {
	days = max(days, 0)
	end := d.today().AddDate(0, 0, -1)
	return end.AddDate(0, 0, -d.rnd.Intn(days+1)).Format(time.DateOnly)
}

func (d *Default) dateTime() string {
	return d.now().Truncate(time.Second).Format("2006-01-02T15:04:05")
}

func (d *Default) city() string       { return d.oneOf(cities) }
func (d *Default) streetName() string { return d.oneOf(streets) }

func (d *Default) postalCode() string {
	return d.digits(2) + "-" + d.digits(3)
}

func (d *Default) buildingNumber() string {
	n := strconv.Itoa(1 + d.rnd.Intn(200))
	if d.rnd.Intn(5) == 0 {
		n += string(rune('A' + d.rnd.Intn(4)))
	}
	return n
}

func (d *Default) apartmentNumber() string { return strconv.Itoa(1 + d.rnd.Intn(150)) }

func (d *Default) fullName() string {
	return d.oneOf(firstNames) + " " + d.oneOf(lastNames)
}

func (d *Default) email() string {
	return fmt.Sprintf("%s.%s@%s", asciiLower(d.oneOf(firstNames)), asciiLower(d.oneOf(lastNames)), d.oneOf(mailDomains))
}

func (d *Default) phone() string { return "+48" + d.digits(9) }

func (d *Default) companyName() string {
	return d.oneOf(lastNames) + " " + d.oneOf(companySuffixes)
}

func (d *Default) businessSentence() string {
	s := d.oneOf(businessVerbs) + " " + d.oneOf(businessAdjectives) + " " + d.oneOf(businessNouns)
	return strings.ToUpper(s[:1]) + s[1:] + "."
}

func (d *Default) plotNumber() string {
	return fmt.Sprintf("działka nr %d/%d", 1+d.rnd.Intn(500), 1+d.rnd.Intn(20))
}

func joinDigits(digits []int) string {
	var b strings.Builder
	for _, v := range digits {
		b.WriteByte(byte('0' + v))
	}
	return b.String()
}

func intParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}
