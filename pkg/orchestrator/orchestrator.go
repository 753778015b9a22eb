package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	internalLoader "github.com/goliatone/go-xsdform/internal/loader"
	internalParser "github.com/goliatone/go-xsdform/internal/openapi/parser"
	"github.com/goliatone/go-xsdform/pkg/model"
	pkgopenapi "github.com/goliatone/go-xsdform/pkg/openapi"
	"github.com/goliatone/go-xsdform/pkg/preset"
	"github.com/goliatone/go-xsdform/pkg/registry"
	"github.com/goliatone/go-xsdform/pkg/rules"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

const (
	defaultMaxPasses      = 10
	defaultTimestampField = "MessageTimestamp"
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLoader injects a custom document loader.
func WithLoader(loader schema.Loader) Option {
	return func(o *Orchestrator) {
		o.loader = loader
	}
}

// WithCompilerRegistry replaces the compiler registry. The built-in
// definition and OpenAPI compilers are only registered on the default one.
func WithCompilerRegistry(registry *CompilerRegistry) Option {
	return func(o *Orchestrator) {
		o.compilers = registry
	}
}

// WithDefaultFormat names the compiler used when detection matches nothing.
func WithDefaultFormat(name string) Option {
	return func(o *Orchestrator) {
		o.defaultFormat = name
	}
}

// WithOpenAPIOptions configures the built-in OpenAPI compiler.
func WithOpenAPIOptions(options ...pkgopenapi.Option) Option {
	return func(o *Orchestrator) {
		o.openapiOptions = append(o.openapiOptions, options...)
	}
}

// WithModelBuilder injects a custom form model builder.
func WithModelBuilder(builder model.Builder) Option {
	return func(o *Orchestrator) {
		o.builder = builder
	}
}

// WithSchemaTransformer registers a Transformer that can mutate form models
// after building but before the form tree is seeded.
func WithSchemaTransformer(t Transformer) Option {
	return func(o *Orchestrator) {
		o.transformer = t
	}
}

// WithLogger sets the logger shared by every session component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithPermissions feeds permission_key predicates.
func WithPermissions(perms map[string]bool) Option {
	return func(o *Orchestrator) {
		o.permissions = perms
	}
}

// WithConfigValues feeds "config:KEY" value sources.
func WithConfigValues(values map[string]string) Option {
	return func(o *Orchestrator) {
		o.config = values
	}
}

// WithCodeRegistry wires the process/result code registry.
func WithCodeRegistry(codes rules.CodeRegistry) Option {
	return func(o *Orchestrator) {
		o.codes = codes
	}
}

// WithOperators wires the operator registry used by generators.
func WithOperators(ops *registry.Operators) Option {
	return func(o *Orchestrator) {
		o.operators = ops
	}
}

// WithPresetStore enables preset operations.
func WithPresetStore(store preset.Store) Option {
	return func(o *Orchestrator) {
		o.presets = store
	}
}

// WithMaxPasses bounds the synthesizer mop-up phase.
func WithMaxPasses(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxPasses = n
		}
	}
}

// WithSeed makes generation and probability gating reproducible. Zero keeps
// a time-based seed.
func WithSeed(seed int64) Option {
	return func(o *Orchestrator) {
		o.seed = seed
	}
}

// WithClock overrides the time source used for timestamps and dates.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// WithTimestampField names the field stamped with the current time when a
// session opens, is cleared, or loads a preset. Empty disables stamping.
func WithTimestampField(name string) Option {
	return func(o *Orchestrator) {
		o.timestampField = name
	}
}

// WithSchemaFS backs fs-kind schema sources for the default loader.
func WithSchemaFS(fsys fs.FS) Option {
	return func(o *Orchestrator) {
		o.schemaFS = fsys
	}
}

// WithRulesFS supplies the filesystem that rule documents are read from.
func WithRulesFS(fsys fs.FS) Option {
	return func(o *Orchestrator) {
		o.rulesFS = fsys
	}
}

// Orchestrator builds sessions from schema documents. It applies defaults
// for every collaborator while remaining open to dependency injection.
type Orchestrator struct {
	loader         schema.Loader
	compilers      *CompilerRegistry
	defaultFormat  string
	openapiOptions []pkgopenapi.Option
	builder        model.Builder
	transformer    Transformer
	logger         *slog.Logger

	permissions    map[string]bool
	config         map[string]string
	codes          rules.CodeRegistry
	operators      *registry.Operators
	presets        preset.Store
	maxPasses      int
	seed           int64
	now            func() time.Time
	timestampField string
	schemaFS       fs.FS
	rulesFS        fs.FS
}

// New constructs an Orchestrator applying any provided options.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		defaultFormat:  FormatDefinition,
		maxPasses:      defaultMaxPasses,
		now:            time.Now,
		timestampField: defaultTimestampField,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	o.applyDefaults()
	return o
}

func (o *Orchestrator) applyDefaults() {
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.loader == nil {
		o.loader = internalLoader.New(schema.NewLoaderOptions(schema.WithFileSystem(o.schemaFS)))
	}
	if o.compilers == nil {
		o.compilers = NewCompilerRegistry()
		o.compilers.MustRegister(DefinitionCompiler{})
		opts := append([]pkgopenapi.Option{pkgopenapi.WithLogger(o.logger)}, o.openapiOptions...)
		o.compilers.MustRegister(OpenAPICompiler{Compiler: internalParser.New(pkgopenapi.NewOptions(opts...))})
	}
	if o.builder == nil {
		o.builder = model.NewBuilder()
	}
}

// Request describes the inputs required to open a form session.
type Request struct {
	// Source identifies where the schema document lives. Optional when
	// Document is supplied.
	Source schema.Source

	// Document bypasses the loader when the payload is already in memory.
	Document *schema.Document

	// Format forces a compiler instead of detecting one.
	Format string

	// Root selects the global element. Empty selects the first one.
	Root string

	// Rules is used as is when set. Otherwise RulesFile is read from the
	// rules filesystem; a missing file degrades to no rules.
	Rules     *rules.RuleSet
	RulesFile string

	// MessageCode scopes presets.
	MessageCode string

	ProcessInfo map[string]string
	MessageInfo map[string]string
}

// Model loads, compiles and builds the form model for req.
func (o *Orchestrator) Model(ctx context.Context, req Request) (model.FormModel, error) {
	if err := ctx.Err(); err != nil {
		return model.FormModel{}, err
	}

	doc, err := o.document(ctx, req)
	if err != nil {
		return model.FormModel{}, err
	}
	compiler, err := o.compilers.Resolve(doc, req.Format, o.defaultFormat)
	if err != nil {
		return model.FormModel{}, err
	}
	compiled, err := compiler.Compile(ctx, doc)
	if err != nil {
		return model.FormModel{}, fmt.Errorf("orchestrator: compile %s: %w", doc.Location(), err)
	}
	o.logger.Info("schema compiled", "source", doc.Location(), "format", compiler.Name(), "elements", len(compiled.ElementNames()))

	form, err := o.builder.Build(compiled, req.Root)
	if err != nil {
		return model.FormModel{}, fmt.Errorf("orchestrator: build model: %w", err)
	}
	if o.transformer != nil {
		if err := o.transformer.Transform(ctx, &form); err != nil {
			return model.FormModel{}, fmt.Errorf("orchestrator: transform model: %w", err)
		}
	}
	return form, nil
}

// Open builds the form model for req and starts a session on it.
func (o *Orchestrator) Open(ctx context.Context, req Request) (*Session, error) {
	form, err := o.Model(ctx, req)
	if err != nil {
		return nil, err
	}
	set := o.ruleSet(req)
	return o.newSession(form, set, req), nil
}

// NewSession starts a session on an already built model.
func (o *Orchestrator) NewSession(form model.FormModel, set rules.RuleSet, req Request) *Session {
	return o.newSession(form, set, req)
}

func (o *Orchestrator) document(ctx context.Context, req Request) (schema.Document, error) {
	if req.Document != nil {
		return *req.Document, nil
	}
	if req.Source == nil {
		return schema.Document{}, errors.New("orchestrator: source or document is required")
	}
	if o.loader == nil {
		return schema.Document{}, errors.New("orchestrator: loader is nil")
	}
	doc, err := o.loader.Load(ctx, req.Source)
	if err != nil {
		return schema.Document{}, fmt.Errorf("orchestrator: load document: %w", err)
	}
	return doc, nil
}

func (o *Orchestrator) ruleSet(req Request) rules.RuleSet {
	switch {
	case req.Rules != nil:
		return *req.Rules
	case req.RulesFile != "" && o.rulesFS != nil:
		return rules.LoadOrEmpty(o.rulesFS, req.RulesFile, o.logger)
	case req.RulesFile != "":
		o.logger.Warn("rules file requested without a rules filesystem", "file", req.RulesFile)
	}
	return rules.RuleSet{}
}
