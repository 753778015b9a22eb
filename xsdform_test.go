package xsdform_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-xsdform"
	"github.com/goliatone/go-xsdform/pkg/orchestrator"
	"github.com/goliatone/go-xsdform/pkg/rules"
	"github.com/goliatone/go-xsdform/pkg/schema"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

func writeSchema(t *testing.T) schema.Source {
	t.Helper()
	path := filepath.Join(t.TempDir(), "message.yaml")
	if err := os.WriteFile(path, testsupport.MessageSchemaYAML(), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	return schema.SourceFromFile(path)
}

func TestBuildModel(t *testing.T) {
	t.Parallel()
	m, err := xsdform.BuildModel(context.Background(), writeSchema(t), testsupport.MessageRoot)
	if err != nil {
		t.Fatalf("build model: %v", err)
	}
	if _, ok := m.Field("Message.Body.Point.Code"); !ok {
		t.Fatalf("expected Point.Code in the model")
	}
}

func TestCompileSource_OpenAPI(t *testing.T) {
	t.Parallel()
	s, err := xsdform.CompileSource(context.Background(), schema.SourceFromFile("internal/openapi/parser/testdata/message.yaml"))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, ok := s.Element("Message"); !ok {
		t.Fatalf("expected a Message element, got %v", s.ElementNames())
	}
}

func TestNewSession(t *testing.T) {
	t.Parallel()
	set, err := rules.Parse(testsupport.MessageRulesJSON())
	if err != nil {
		t.Fatalf("parse rules: %v", err)
	}
	s, err := xsdform.NewSession(context.Background(), writeSchema(t), testsupport.MessageRoot, set,
		orchestrator.WithLogger(testsupport.Logger()),
		orchestrator.WithSeed(3),
	)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	defer s.Close()

	if s.Rules().Len() != set.Len() {
		t.Fatalf("session rules = %d, want %d", s.Rules().Len(), set.Len())
	}
	if _, err := s.Synthesize(); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if _, err := s.Values(); err != nil {
		t.Fatalf("values: %v", err)
	}
}
