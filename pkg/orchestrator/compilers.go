package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	pkgopenapi "github.com/goliatone/go-xsdform/pkg/openapi"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

const (
	// FormatDefinition names the native YAML/JSON schema definition format.
	FormatDefinition = "definition"
	// FormatOpenAPI names OpenAPI 3 documents compiled from component schemas.
	FormatOpenAPI = "openapi"
)

// SchemaCompiler turns a loaded document into a compiled schema.
type SchemaCompiler interface {
	Name() string
	Detect(doc schema.Document) bool
	Compile(ctx context.Context, doc schema.Document) (*schema.Schema, error)
}

// CompilerRegistry stores schema compilers by name.
type CompilerRegistry struct {
	mu        sync.RWMutex
	compilers map[string]SchemaCompiler
}

// NewCompilerRegistry creates an empty compiler registry.
func NewCompilerRegistry() *CompilerRegistry {
	return &CompilerRegistry{
		compilers: make(map[string]SchemaCompiler),
	}
}

// Register adds a compiler by its Name(). Duplicate names return an error.
func (r *CompilerRegistry) Register(c SchemaCompiler) error {
	if c == nil {
		return fmt.Errorf("orchestrator: compiler is required")
	}
	name := normalizeFormat(c.Name())
	if name == "" {
		return fmt.Errorf("orchestrator: compiler name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.compilers[name]; exists {
		return fmt.Errorf("orchestrator: compiler %q already registered", name)
	}
	r.compilers[name] = c
	return nil
}

// MustRegister panics when Register fails.
func (r *CompilerRegistry) MustRegister(c SchemaCompiler) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Get returns the compiler registered under name.
func (r *CompilerRegistry) Get(name string) (SchemaCompiler, error) {
	key := normalizeFormat(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.compilers[key]
	if !ok {
		return nil, fmt.Errorf("orchestrator: compiler %q not found", name)
	}
	return c, nil
}

// List returns the registered names in sorted order.
func (r *CompilerRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.compilers))
	for name := range r.compilers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Detect returns every compiler that claims doc, ordered by name.
func (r *CompilerRegistry) Detect(doc schema.Document) []SchemaCompiler {
	var matches []SchemaCompiler
	for _, name := range r.List() {
		c, err := r.Get(name)
		if err != nil {
			continue
		}
		if c.Detect(doc) {
			matches = append(matches, c)
		}
	}
	return matches
}

// Resolve picks the compiler for doc. An explicit format wins; otherwise
// detection must match exactly one compiler, falling back to fallback when
// nothing matches.
func (r *CompilerRegistry) Resolve(doc schema.Document, format, fallback string) (SchemaCompiler, error) {
	if strings.TrimSpace(format) != "" {
		return r.Get(format)
	}
	matches := r.Detect(doc)
	switch len(matches) {
	case 0:
		if fallback == "" {
			return nil, fmt.Errorf("orchestrator: unable to detect format of %s", doc.Location())
		}
		return r.Get(fallback)
	case 1:
		return matches[0], nil
	default:
		names := make([]string, 0, len(matches))
		for _, c := range matches {
			names = append(names, c.Name())
		}
		return nil, fmt.Errorf("orchestrator: multiple compilers matched %s (%s), specify format", doc.Location(), strings.Join(names, ", "))
	}
}

// DefinitionCompiler compiles native schema definition documents.
type DefinitionCompiler struct{}

func (DefinitionCompiler) Name() string { return FormatDefinition }

// Detect claims every document that is not OpenAPI.
func (DefinitionCompiler) Detect(doc schema.Document) bool {
	return !pkgopenapi.Detect(doc.Raw())
}

func (DefinitionCompiler) Compile(ctx context.Context, doc schema.Document) (*schema.Schema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return schema.CompileDocument(doc)
}

// OpenAPICompiler adapts a pkgopenapi.Compiler to the registry.
type OpenAPICompiler struct {
	Compiler pkgopenapi.Compiler
}

func (OpenAPICompiler) Name() string { return FormatOpenAPI }

func (OpenAPICompiler) Detect(doc schema.Document) bool {
	return pkgopenapi.Detect(doc.Raw())
}

func (c OpenAPICompiler) Compile(ctx context.Context, doc schema.Document) (*schema.Schema, error) {
	if c.Compiler == nil {
		return nil, fmt.Errorf("orchestrator: openapi compiler is nil")
	}
	return pkgopenapi.Compile(ctx, c.Compiler, doc)
}

func normalizeFormat(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
