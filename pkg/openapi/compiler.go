package openapi

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/goliatone/go-xsdform/pkg/schema"
)

// ErrNoComponents is returned when a document declares no component schemas.
var ErrNoComponents = errors.New("openapi: document has no component schemas")

// Compiler turns an OpenAPI document into a schema definition.
type Compiler interface {
	Definition(ctx context.Context, doc schema.Document) (schema.Definition, error)
}

// Options configures a Compiler implementation.
type Options struct {
	// Validate runs document validation before conversion.
	Validate bool

	// Roots limits the global elements to the named components. Empty means
	// every object component.
	Roots []string

	// ElementFormDefault is copied into the definition. Defaults to
	// "qualified".
	ElementFormDefault string

	Logger *slog.Logger
}

// Option mutates Options during construction.
type Option func(*Options)

// WithValidation toggles document validation.
func WithValidation(enabled bool) Option {
	return func(opts *Options) {
		opts.Validate = enabled
	}
}

// WithRoots restricts global elements to the named components.
func WithRoots(names ...string) Option {
	return func(opts *Options) {
		opts.Roots = append(opts.Roots, names...)
	}
}

// WithElementFormDefault sets how local elements are qualified.
func WithElementFormDefault(form string) Option {
	return func(opts *Options) {
		opts.ElementFormDefault = form
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *Options) {
		if logger != nil {
			opts.Logger = logger
		}
	}
}

// NewOptions applies Option functions over the defaults.
func NewOptions(options ...Option) Options {
	cfg := Options{
		Validate:           true,
		ElementFormDefault: "qualified",
		Logger:             slog.Default(),
	}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Compile converts doc with c and compiles the result.
func Compile(ctx context.Context, c Compiler, doc schema.Document) (*schema.Schema, error) {
	def, err := c.Definition(ctx, doc)
	if err != nil {
		return nil, err
	}
	return schema.Compile(def)
}

// Detect reports whether raw looks like an OpenAPI or Swagger document.
func Detect(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '{' {
		return gjson.GetBytes(trimmed, "openapi").Exists() || gjson.GetBytes(trimmed, "swagger").Exists()
	}
	for _, line := range strings.Split(string(trimmed), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "openapi:") || strings.HasPrefix(line, "swagger:") {
			return true
		}
	}
	return false
}
