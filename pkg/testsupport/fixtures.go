package testsupport

import (
	"context"
	"embed"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	pkgmodel "github.com/goliatone/go-xsdform/pkg/model"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

//go:embed testdata/*
var fixtures embed.FS

// MessageRoot is the root element of the bundled message fixture.
const MessageRoot = "Message"

// MessageSchemaYAML returns the raw YAML definition of the message fixture.
func MessageSchemaYAML() []byte {
	return mustRead("testdata/message.yaml")
}

// MessageRulesJSON returns the rule document that accompanies the message
// fixture.
func MessageRulesJSON() []byte {
	return mustRead("testdata/message_rules.json")
}

// MessageSchema compiles the bundled fixture without requiring testing.T so
// it can be used from setup code and examples.
func MessageSchema() (*schema.Schema, error) {
	doc, err := schema.NewDocument(schema.SourceFromFS("testdata/message.yaml"), MessageSchemaYAML())
	if err != nil {
		return nil, err
	}
	return schema.CompileDocument(doc)
}

// MustMessageSchema compiles the message fixture or fails the test.
func MustMessageSchema(t testing.TB) *schema.Schema {
	t.Helper()

	s, err := MessageSchema()
	if err != nil {
		t.Fatalf("compile message schema: %v", err)
	}
	return s
}

// MustModel builds the form model for the message fixture.
func MustModel(t testing.TB) pkgmodel.FormModel {
	t.Helper()

	m, err := pkgmodel.Build(MustMessageSchema(t), MessageRoot)
	if err != nil {
		t.Fatalf("build model: %v", err)
	}
	return m
}

// MustCompileYAML compiles an inline YAML definition.
func MustCompileYAML(t testing.TB, src string) *schema.Schema {
	t.Helper()

	def, err := schema.DecodeDefinition([]byte(src), "inline")
	if err != nil {
		t.Fatalf("decode definition: %v", err)
	}
	s, err := schema.Compile(def)
	if err != nil {
		t.Fatalf("compile definition: %v", err)
	}
	return s
}

// Rand returns a deterministic random source for generator tests.
func Rand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Logger returns a logger that discards everything, keeping test output
// readable.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WriteGolden writes arbitrary data to a golden file when UPDATE_GOLDENS is set.
func WriteGolden(t *testing.T, path string, value any) {
	t.Helper()

	if os.Getenv("UPDATE_GOLDENS") == "" {
		return
	}
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
}

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// Context returns a background context for tests.
func Context() context.Context {
	return context.Background()
}

func mustRead(name string) []byte {
	data, err := fixtures.ReadFile(name)
	if err != nil {
		panic("testsupport: " + err.Error())
	}
	return data
}
