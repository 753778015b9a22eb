package orchestrator_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/pkg/model"
	pkgopenapi "github.com/goliatone/go-xsdform/pkg/openapi"
	"github.com/goliatone/go-xsdform/pkg/orchestrator"
	"github.com/goliatone/go-xsdform/pkg/schema"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

const openapiFixture = "../../internal/openapi/parser/testdata/message.yaml"

func TestOrchestrator_ModelFromSchemaFS(t *testing.T) {
	t.Parallel()
	o := orchestrator.New(
		orchestrator.WithLogger(testsupport.Logger()),
		orchestrator.WithSchemaFS(fstest.MapFS{"schemas/message.yaml": {Data: testsupport.MessageSchemaYAML()}}),
	)

	got, err := o.Model(context.Background(), orchestrator.Request{
		Source: schema.SourceFromFS("schemas/message.yaml"),
		Root:   testsupport.MessageRoot,
	})
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if diff := cmp.Diff(testsupport.MustModel(t), got, cmp.Comparer(func(a, b model.TypeValidator) bool { return true })); diff != "" {
		t.Fatalf("model mismatch (-want +got):\n%s", diff)
	}
}

func TestOrchestrator_OpenAPISession(t *testing.T) {
	t.Parallel()
	o := orchestrator.New(
		orchestrator.WithLogger(testsupport.Logger()),
		orchestrator.WithClock(func() time.Time { return fixedNow }),
		orchestrator.WithOpenAPIOptions(pkgopenapi.WithValidation(false)),
	)

	s, err := o.Open(context.Background(), orchestrator.Request{
		Source: schema.SourceFromFile(openapiFixture),
		Root:   "Message",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	if _, ok := s.Model().Field("Message.Body.Point.Quantity"); !ok {
		t.Fatalf("array items should become a repeated section")
	}
	if got := value(t, s, "Message.Header.MessageTimestamp"); got != "2026-03-04T05:06:07" {
		t.Fatalf("timestamp = %q", got)
	}
	if _, err := s.Synthesize(); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
}

func TestOrchestrator_ExplicitFormat(t *testing.T) {
	t.Parallel()
	raw, err := os.ReadFile(openapiFixture)
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	doc := schema.MustNewDocument(schema.SourceFromFile(openapiFixture), raw)
	o := orchestrator.New(orchestrator.WithLogger(testsupport.Logger()))

	_, err = o.Model(context.Background(), orchestrator.Request{Document: &doc, Format: orchestrator.FormatDefinition})
	if err == nil {
		t.Fatalf("an OpenAPI document is not a schema definition")
	}
	if _, err := o.Model(context.Background(), orchestrator.Request{Document: &doc, Format: "xsd"}); err == nil || !strings.Contains(err.Error(), `"xsd" not found`) {
		t.Fatalf("expected unknown compiler error, got %v", err)
	}
}

func TestOrchestrator_Errors(t *testing.T) {
	t.Parallel()
	o := orchestrator.New(orchestrator.WithLogger(testsupport.Logger()))

	if _, err := o.Open(context.Background(), orchestrator.Request{}); err == nil {
		t.Fatalf("expected error without source or document")
	}
	if _, err := o.Open(context.Background(), orchestrator.Request{Document: messageDocument(), Root: "Missing"}); err == nil {
		t.Fatalf("expected error for an unknown root")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := o.Open(ctx, orchestrator.Request{Document: messageDocument()}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestOrchestrator_TransformerRuns(t *testing.T) {
	t.Parallel()
	o := orchestrator.New(
		orchestrator.WithLogger(testsupport.Logger()),
		orchestrator.WithSchemaTransformer(orchestrator.TransformerFunc(func(_ context.Context, form *model.FormModel) error {
			form.Root.Label = "Notification"
			return nil
		})),
	)

	got, err := o.Model(context.Background(), orchestrator.Request{Document: messageDocument()})
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if got.Root.Label != "Notification" {
		t.Fatalf("transformer did not run, label = %q", got.Root.Label)
	}

	failing := orchestrator.New(
		orchestrator.WithLogger(testsupport.Logger()),
		orchestrator.WithSchemaTransformer(orchestrator.TransformerFunc(func(context.Context, *model.FormModel) error {
			return errors.New("boom")
		})),
	)
	if _, err := failing.Model(context.Background(), orchestrator.Request{Document: messageDocument()}); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected transformer error, got %v", err)
	}
}
