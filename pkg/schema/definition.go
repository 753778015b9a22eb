package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Definition is the serialisable form of a schema. It is decoded from JSON or
// YAML and turned into a Schema by Compile.
type Definition struct {
	TargetNamespace    string            `json:"targetNamespace" yaml:"targetNamespace"`
	ElementFormDefault string            `json:"elementFormDefault" yaml:"elementFormDefault"`
	Namespaces         map[string]string `json:"namespaces" yaml:"namespaces"`
	Elements           []ElementDef      `json:"elements" yaml:"elements"`
	SimpleTypes        []SimpleTypeDef   `json:"simpleTypes" yaml:"simpleTypes"`
	ComplexTypes       []ComplexTypeDef  `json:"complexTypes" yaml:"complexTypes"`
}

// ElementDef declares an element by type reference or inline anonymous type.
type ElementDef struct {
	Name        string          `json:"name" yaml:"name"`
	Type        string          `json:"type,omitempty" yaml:"type,omitempty"`
	MinOccurs   *int            `json:"minOccurs,omitempty" yaml:"minOccurs,omitempty"`
	MaxOccurs   *Occurs         `json:"maxOccurs,omitempty" yaml:"maxOccurs,omitempty"`
	SimpleType  *SimpleTypeDef  `json:"simpleType,omitempty" yaml:"simpleType,omitempty"`
	ComplexType *ComplexTypeDef `json:"complexType,omitempty" yaml:"complexType,omitempty"`
	Doc         string          `json:"documentation,omitempty" yaml:"documentation,omitempty"`
}

// SimpleTypeDef declares a restriction of a builtin or named simple type.
type SimpleTypeDef struct {
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	Base   string `json:"base" yaml:"base"`
	Facets Facets `json:"facets" yaml:"facets"`
}

// ComplexTypeDef declares a sequence of elements plus attributes, or simple
// content extended with attributes.
type ComplexTypeDef struct {
	Name          string         `json:"name,omitempty" yaml:"name,omitempty"`
	Sequence      []ElementDef   `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Attributes    []AttributeDef `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	SimpleContent string         `json:"simpleContent,omitempty" yaml:"simpleContent,omitempty"`
}

// AttributeDef declares an attribute; Use is "required" or "optional".
type AttributeDef struct {
	Name       string         `json:"name" yaml:"name"`
	Type       string         `json:"type,omitempty" yaml:"type,omitempty"`
	Use        string         `json:"use,omitempty" yaml:"use,omitempty"`
	SimpleType *SimpleTypeDef `json:"simpleType,omitempty" yaml:"simpleType,omitempty"`
	Doc        string         `json:"documentation,omitempty" yaml:"documentation,omitempty"`
}

// Occurs is a maxOccurs value that accepts integers or "unbounded".
type Occurs int

func parseOccurs(raw string) (Occurs, error) {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, "unbounded") {
		return Occurs(Unbounded), nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("schema: invalid maxOccurs %q", raw)
	}
	return Occurs(n), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Occurs) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	v, err := parseOccurs(raw)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (o *Occurs) UnmarshalYAML(node *yaml.Node) error {
	v, err := parseOccurs(node.Value)
	if err != nil {
		return err
	}
	*o = v
	return nil
}

// MarshalJSON implements json.Marshaler.
func (o Occurs) MarshalJSON() ([]byte, error) {
	if int(o) == Unbounded {
		return []byte(`"unbounded"`), nil
	}
	return []byte(strconv.Itoa(int(o))), nil
}

// DecodeDefinition parses a JSON or YAML schema definition.
func DecodeDefinition(data []byte, source string) (Definition, error) {
	var def Definition
	if len(strings.TrimSpace(string(data))) == 0 {
		return Definition{}, fmt.Errorf("schema: definition %s is empty", source)
	}
	if err := json.Unmarshal(data, &def); err == nil {
		return def, nil
	}
	def = Definition{}
	if err := yaml.Unmarshal(data, &def); err != nil {
		return Definition{}, fmt.Errorf("schema: parse %s: %w", source, err)
	}
	return def, nil
}
