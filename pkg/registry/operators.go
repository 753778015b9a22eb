package registry

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
)

// Operator is one row of the operator dictionary.
type Operator struct {
	EIC  string `json:"eic"`
	Name string `json:"name"`
}

// Operators is the market operator dictionary.
type Operators struct {
	list  []Operator
	byEIC map[string]int
}

// Option configures a loader.
type Option func(*loadConfig)

type loadConfig struct {
	logger *slog.Logger
}

// WithLogger sets the logger used while loading.
func WithLogger(logger *slog.Logger) Option {
	return func(c *loadConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func newLoadConfig(opts []Option) loadConfig {
	cfg := loadConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// LoadOperators reads a semicolon separated dictionary with at least the
// EIC and Name columns.
func LoadOperators(r io.Reader, opts ...Option) (*Operators, error) {
	cfg := newLoadConfig(opts)
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("registry: read operators: %w", err)
	}
	data, encoding, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	t, err := readTable(data, 0)
	if err != nil {
		return nil, err
	}
	if err := t.require("EIC", "Name"); err != nil {
		return nil, err
	}

	ops := &Operators{byEIC: make(map[string]int, len(t.rows))}
	for _, row := range t.rows {
		eic := t.cell(row, "EIC")
		if eic == "" {
			continue
		}
		if _, dup := ops.byEIC[eic]; dup {
			continue
		}
		ops.byEIC[eic] = len(ops.list)
		ops.list = append(ops.list, Operator{EIC: eic, Name: t.cell(row, "Name")})
	}
	cfg.logger.Info("operators loaded", "count", len(ops.list), "encoding", encoding)
	return ops, nil
}

// LoadOperatorsFile opens path and calls LoadOperators.
func LoadOperatorsFile(path string, opts ...Option) (*Operators, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("registry: open operators: %w", err)
	}
	defer f.Close()
	return LoadOperators(f, opts...)
}

// Len reports the number of operators.
func (o *Operators) Len() int {
	if o == nil {
		return 0
	}
	return len(o.list)
}

// All returns the operators in file order.
func (o *Operators) All() []Operator {
	if o == nil {
		return nil
	}
	return append([]Operator(nil), o.list...)
}

// Lookup finds an operator by EIC code.
func (o *Operators) Lookup(eic string) (Operator, bool) {
	if o == nil {
		return Operator{}, false
	}
	i, ok := o.byEIC[eic]
	if !ok {
		return Operator{}, false
	}
	return o.list[i], true
}

// Random picks an EIC code. It reports false when the dictionary is empty.
func (o *Operators) Random(rnd *rand.Rand) (string, bool) {
	if o.Len() == 0 {
		return "", false
	}
	return o.list[rnd.Intn(len(o.list))].EIC, true
}
