package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-xsdform/pkg/model"
)

// Transformer mutates a FormModel after it is built and before a form tree is
// seeded from it.
type Transformer interface {
	Transform(ctx context.Context, form *model.FormModel) error
}

// TransformerFunc adapts plain functions to the Transformer interface.
type TransformerFunc func(ctx context.Context, form *model.FormModel) error

// Transform executes the wrapped function when non-nil.
func (fn TransformerFunc) Transform(ctx context.Context, form *model.FormModel) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, form)
}

// OverlayTransformer applies declarative label and documentation overrides
// loaded from a JSON or YAML document:
//
//	sections:
//	  Message.Body: {label: "Notification"}
//	fields:
//	  Message.Body.Reason:
//	    label: "Reason code"
//	    documentation: "Why the notification is sent."
//	    required: true
type OverlayTransformer struct {
	document overlayDocument
}

type overlayDocument struct {
	Sections map[string]overlayPatch `yaml:"sections"`
	Fields   map[string]overlayPatch `yaml:"fields"`
}

type overlayPatch struct {
	Label         string `yaml:"label"`
	Documentation string `yaml:"documentation"`
	Required      *bool  `yaml:"required"`
}

// NewOverlayTransformer constructs a transformer from raw JSON or YAML bytes.
func NewOverlayTransformer(data []byte) (*OverlayTransformer, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("overlay transformer: document is empty")
	}
	var document overlayDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, fmt.Errorf("overlay transformer: parse document: %w", err)
	}
	return &OverlayTransformer{document: document}, nil
}

// NewOverlayTransformerFromFS loads an overlay document from fsys.
func NewOverlayTransformerFromFS(fsys fs.FS, path string) (*OverlayTransformer, error) {
	if fsys == nil {
		return nil, errors.New("overlay transformer: filesystem is nil")
	}
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("overlay transformer: path is required")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("overlay transformer: read %s: %w", path, err)
	}
	return NewOverlayTransformer(data)
}

// Transform applies the patches. Unknown paths are an error so a stale
// overlay is noticed.
func (t *OverlayTransformer) Transform(ctx context.Context, form *model.FormModel) error {
	if form == nil {
		return errors.New("overlay transformer: form model is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for path, patch := range t.document.Sections {
		section, ok := form.Section(path)
		if !ok {
			return fmt.Errorf("overlay transformer: section %q not found", path)
		}
		patch.apply(&section.Label, &section.Documentation)
	}
	for path, patch := range t.document.Fields {
		field, ok := form.Field(path)
		if !ok {
			return fmt.Errorf("overlay transformer: field %q not found", path)
		}
		patch.apply(&field.Label, &field.Documentation)
		if patch.Required != nil {
			field.Required = *patch.Required
		}
	}
	return nil
}

func (p overlayPatch) apply(label, documentation *string) {
	if p.Label != "" {
		*label = p.Label
	}
	if p.Documentation != "" {
		*documentation = p.Documentation
	}
}
