package generate

import (
	"log/slog"
	"math/rand"
	"time"

	"github.com/goliatone/go-xsdform/pkg/registry"
	"github.com/goliatone/go-xsdform/pkg/rules"
)

// Option configures a Default generator.
type Option func(*Default)

// WithRand sets the random source. Tests pass a seeded source.
func WithRand(rnd *rand.Rand) Option {
	return func(d *Default) {
		if rnd != nil {
			d.rnd = rnd
		}
	}
}

// WithClock sets the time source used for dates.
func WithClock(now func() time.Time) Option {
	return func(d *Default) {
		if now != nil {
			d.now = now
		}
	}
}

// WithOperators wires the operator dictionary used for EIC codes.
func WithOperators(ops *registry.Operators) Option {
	return func(d *Default) { d.operators = ops }
}

// WithCodeRegistry wires the process matrix used for result codes.
func WithCodeRegistry(codes rules.CodeRegistry) Option {
	return func(d *Default) { d.codes = codes }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Default) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithNamed registers or overrides a named generator.
func WithNamed(name string, fn Func) Option {
	return func(d *Default) {
		if fn != nil {
			d.extra[name] = fn
		}
	}
}
