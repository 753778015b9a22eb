// Package preset stores named snapshots of collected form data, keyed by
// message code. A preset is the nested map produced by the collector and is
// loaded back into a tree by populating it.
package preset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a preset does not exist.
	ErrNotFound = errors.New("preset: not found")
	// ErrExists is returned when renaming onto an existing preset.
	ErrExists = errors.New("preset: already exists")
	// ErrInvalidKey is returned for empty message codes or preset names.
	ErrInvalidKey = errors.New("preset: message code and name are required")
)

// Preset is the stored document.
type Preset struct {
	Name string         `json:"name"`
	Data map[string]any `json:"data"`
}

// Store persists presets.
type Store interface {
	// List returns preset names for a message code, sorted.
	List(ctx context.Context, messageCode string) ([]string, error)
	Load(ctx context.Context, messageCode, name string) (map[string]any, error)
	// Save creates or replaces a preset.
	Save(ctx context.Context, messageCode, name string, data map[string]any) error
	Delete(ctx context.Context, messageCode, name string) error
	// Rename moves a preset and rewrites its stored name.
	Rename(ctx context.Context, messageCode, oldName, newName string) error
}

func checkKey(messageCode string, names ...string) error {
	if strings.TrimSpace(messageCode) == "" {
		return ErrInvalidKey
	}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return ErrInvalidKey
		}
	}
	return nil
}

func encode(name string, data map[string]any) ([]byte, error) {
	raw, err := json.MarshalIndent(Preset{Name: name, Data: data}, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("preset: encode %q: %w", name, err)
	}
	return raw, nil
}

func decode(name string, raw []byte) (map[string]any, error) {
	var p Preset
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("preset: decode %q: %w", name, err)
	}
	if p.Data == nil {
		p.Data = map[string]any{}
	}
	return p.Data, nil
}
