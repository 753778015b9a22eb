package model

import (
	"github.com/goliatone/go-xsdform/internal/model"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

// Builder converts a compiled schema into a form model rooted at one global
// element.
type Builder interface {
	Build(s *schema.Schema, root string) (FormModel, error)
}

// BuilderOption configures the builder behaviour.
type BuilderOption func(*builderOptions)

type builderOptions struct {
	labeler           func(string) string
	omitDocumentation bool
}

// WithLabeler overrides the default label generation function.
func WithLabeler(labeler func(string) string) BuilderOption {
	return func(opts *builderOptions) {
		opts.labeler = labeler
	}
}

// WithoutDocumentation drops schema annotations from the produced model.
func WithoutDocumentation() BuilderOption {
	return func(opts *builderOptions) {
		opts.omitDocumentation = true
	}
}

// NewBuilder returns a Builder backed by the internal implementation.
func NewBuilder(options ...BuilderOption) Builder {
	cfg := builderOptions{}
	for _, opt := range options {
		opt(&cfg)
	}

	internalOpts := model.Options{OmitDocumentation: cfg.omitDocumentation}
	if cfg.labeler != nil {
		internalOpts.Labeler = cfg.labeler
	}

	return model.New(internalOpts)
}

// Build is a shortcut for NewBuilder().Build.
func Build(s *schema.Schema, root string) (FormModel, error) {
	return NewBuilder().Build(s, root)
}
