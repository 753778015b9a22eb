package orchestrator_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/pkg/orchestrator"
	"github.com/goliatone/go-xsdform/pkg/schema"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

type fakeCompiler struct {
	name   string
	claims bool
}

func (f fakeCompiler) Name() string                { return f.name }
func (f fakeCompiler) Detect(schema.Document) bool { return f.claims }
func (f fakeCompiler) Compile(context.Context, schema.Document) (*schema.Schema, error) {
	return nil, nil
}

func TestCompilerRegistry_Register(t *testing.T) {
	t.Parallel()
	r := orchestrator.NewCompilerRegistry()
	r.MustRegister(fakeCompiler{name: "B"})
	r.MustRegister(fakeCompiler{name: "a"})

	if err := r.Register(fakeCompiler{name: " b "}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if err := r.Register(fakeCompiler{name: "  "}); err == nil {
		t.Fatalf("expected empty name error")
	}
	if err := r.Register(nil); err == nil {
		t.Fatalf("expected nil compiler error")
	}
	if diff := cmp.Diff([]string{"a", "b"}, r.List()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.Get("A"); err != nil {
		t.Fatalf("lookup should ignore case: %v", err)
	}
}

func TestCompilerRegistry_Resolve(t *testing.T) {
	t.Parallel()
	doc := schema.MustNewDocument(schema.SourceFromFile("message.yaml"), testsupport.MessageSchemaYAML())

	cases := []struct {
		name      string
		compilers []orchestrator.SchemaCompiler
		format    string
		fallback  string
		want      string
		wantErr   string
	}{
		{
			name:      "single match",
			compilers: []orchestrator.SchemaCompiler{fakeCompiler{name: "x", claims: true}, fakeCompiler{name: "y"}},
			want:      "x",
		},
		{
			name:      "explicit format wins",
			compilers: []orchestrator.SchemaCompiler{fakeCompiler{name: "x", claims: true}, fakeCompiler{name: "y"}},
			format:    "y",
			want:      "y",
		},
		{
			name:      "fallback when nothing matches",
			compilers: []orchestrator.SchemaCompiler{fakeCompiler{name: "x"}, fakeCompiler{name: "y"}},
			fallback:  "y",
			want:      "y",
		},
		{
			name:      "no match and no fallback",
			compilers: []orchestrator.SchemaCompiler{fakeCompiler{name: "x"}},
			wantErr:   "unable to detect",
		},
		{
			name:      "ambiguous",
			compilers: []orchestrator.SchemaCompiler{fakeCompiler{name: "x", claims: true}, fakeCompiler{name: "y", claims: true}},
			wantErr:   "multiple compilers matched message.yaml (x, y)",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			r := orchestrator.NewCompilerRegistry()
			for _, c := range tc.compilers {
				r.MustRegister(c)
			}
			got, err := r.Resolve(doc, tc.format, tc.fallback)
			if tc.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
					t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got.Name() != tc.want {
				t.Fatalf("resolved %q, want %q", got.Name(), tc.want)
			}
		})
	}
}

func TestBuiltinCompilers_Detect(t *testing.T) {
	t.Parallel()
	definition := schema.MustNewDocument(schema.SourceFromFile("message.yaml"), testsupport.MessageSchemaYAML())
	openapi := schema.MustNewDocument(schema.SourceFromFile("api.json"), []byte(`{"openapi":"3.0.3","components":{}}`))

	if !(orchestrator.DefinitionCompiler{}).Detect(definition) || (orchestrator.DefinitionCompiler{}).Detect(openapi) {
		t.Fatalf("definition compiler detection is wrong")
	}
	if (orchestrator.OpenAPICompiler{}).Detect(definition) || !(orchestrator.OpenAPICompiler{}).Detect(openapi) {
		t.Fatalf("openapi compiler detection is wrong")
	}
	if _, err := (orchestrator.OpenAPICompiler{}).Compile(context.Background(), openapi); err == nil {
		t.Fatalf("expected error for a compiler without a backend")
	}
}
