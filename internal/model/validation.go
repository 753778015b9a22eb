package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goliatone/go-xsdform/pkg/schema"
)

var (
	// ErrSchemaMissing is returned when Build receives a nil schema.
	ErrSchemaMissing = errors.New("model builder: schema is required")
	// ErrRootMissing is returned when the requested root element is unknown.
	ErrRootMissing = errors.New("model builder: root element not found")
	// ErrRootNotComplex is returned when the root element carries text only.
	ErrRootNotComplex = errors.New("model builder: root element must have complex content")
)

func validateRoot(s *schema.Schema, root string) (*schema.Element, error) {
	if s == nil {
		return nil, ErrSchemaMissing
	}
	if err := s.Check(); err != nil {
		return nil, fmt.Errorf("model builder: %w", err)
	}
	root = strings.TrimSpace(root)
	if root == "" {
		if len(s.Elements) == 0 {
			return nil, ErrRootMissing
		}
		root = s.Elements[0].Name
	}
	el, ok := s.Element(root)
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrRootMissing, root, strings.Join(s.ElementNames(), ", "))
	}
	if _, ok := el.Complex(); !ok {
		return nil, fmt.Errorf("%w: %q", ErrRootNotComplex, root)
	}
	return el, nil
}
