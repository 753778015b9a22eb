// Package xsdform builds interactive, rule-governed forms from message
// schemas. The root package re-exports the common entry points so callers
// can start with a single import.
package xsdform

import (
	"context"

	internalLoader "github.com/goliatone/go-xsdform/internal/loader"
	internalParser "github.com/goliatone/go-xsdform/internal/openapi/parser"
	"github.com/goliatone/go-xsdform/pkg/model"
	pkgopenapi "github.com/goliatone/go-xsdform/pkg/openapi"
	"github.com/goliatone/go-xsdform/pkg/orchestrator"
	"github.com/goliatone/go-xsdform/pkg/rules"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

// Session aliases orchestrator.Session.
type Session = orchestrator.Session

// Request aliases orchestrator.Request.
type Request = orchestrator.Request

// NewLoader constructs a loader using the internal implementation while
// keeping the concrete type hidden from consumers.
func NewLoader(options ...schema.LoaderOption) schema.Loader {
	cfg := schema.NewLoaderOptions(options...)
	return internalLoader.New(cfg)
}

// NewOpenAPICompiler constructs an OpenAPI compiler backed by the internal
// implementation.
func NewOpenAPICompiler(options ...pkgopenapi.Option) pkgopenapi.Compiler {
	cfg := pkgopenapi.NewOptions(options...)
	return internalParser.New(cfg)
}

// NewOrchestrator exposes the orchestrator constructor from the top-level
// module.
func NewOrchestrator(options ...orchestrator.Option) *orchestrator.Orchestrator {
	return orchestrator.New(options...)
}

// CompileSource loads src and compiles it, detecting OpenAPI documents.
func CompileSource(ctx context.Context, src schema.Source, options ...schema.LoaderOption) (*schema.Schema, error) {
	doc, err := NewLoader(options...).Load(ctx, src)
	if err != nil {
		return nil, err
	}
	if pkgopenapi.Detect(doc.Raw()) {
		return pkgopenapi.Compile(ctx, NewOpenAPICompiler(), doc)
	}
	return schema.CompileDocument(doc)
}

// BuildModel compiles src and builds the form model rooted at root.
func BuildModel(ctx context.Context, src schema.Source, root string, options ...schema.LoaderOption) (model.FormModel, error) {
	s, err := CompileSource(ctx, src, options...)
	if err != nil {
		return model.FormModel{}, err
	}
	return model.Build(s, root)
}

// NewSession opens a form session for src with the given rule set.
func NewSession(ctx context.Context, src schema.Source, root string, set rules.RuleSet, options ...orchestrator.Option) (*Session, error) {
	return orchestrator.New(options...).Open(ctx, orchestrator.Request{
		Source: src,
		Root:   root,
		Rules:  &set,
	})
}
