// Package collect validates a form tree and turns it into the nested data
// map handed to the serializer. It also loads such a map back into a tree.
package collect

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/goliatone/go-xsdform/pkg/form"
)

var (
	// ErrInvalid is wrapped by ValidationError.
	ErrInvalid = errors.New("collect: form has invalid fields")
	// ErrShape is returned when populate data does not follow the model.
	ErrShape = errors.New("collect: data does not match the form model")
)

// Issue is one invalid slot.
type Issue struct {
	Path    string `json:"path"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every invalid slot. The first issue is the one a
// host should focus.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Path+": "+issue.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalid.Error(), strings.Join(parts, "; "))
}

// Unwrap allows errors.Is(err, ErrInvalid).
func (e *ValidationError) Unwrap() error { return ErrInvalid }

// First returns the issue to focus.
func (e *ValidationError) First() Issue {
	if len(e.Issues) == 0 {
		return Issue{}
	}
	return e.Issues[0]
}

// Collector reads and writes a form tree as nested data.
type Collector struct {
	tree   *form.Tree
	logger *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Collector) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Collector over tree.
func New(tree *form.Tree, opts ...Option) *Collector {
	c := &Collector{tree: tree, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Values validates the tree and collects it. On failure the data is nil and
// the error is a *ValidationError.
func (c *Collector) Values() (map[string]any, error) {
	if issues := c.Validate(); len(issues) > 0 {
		c.logger.Warn("form validation failed", "invalid", len(issues), "first", issues[0].Path)
		return nil, &ValidationError{Issues: issues}
	}
	return c.Collect(), nil
}
