package orchestrator_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/pkg/orchestrator"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

func TestCatalog(t *testing.T) {
	t.Parallel()
	c := orchestrator.NewCatalog(
		orchestrator.Message{Process: "chg_01", Name: "notification", Code: "CHG.01.1", Schema: "schemas/message.yaml", Root: "Message", RulesDir: "rules"},
		orchestrator.Message{Process: "chg_01", Name: "confirmation", Code: "CHG.01.2", Schema: "https://example.com/c.yaml", Rules: "confirm.yaml"},
		orchestrator.Message{Process: "end_02", Name: "notification", Code: "END.02.1"},
	)

	if diff := cmp.Diff([]string{"chg_01", "end_02"}, c.Processes()); diff != "" {
		t.Fatalf("processes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"confirmation", "notification"}, c.Messages("CHG_01")); diff != "" {
		t.Fatalf("messages mismatch (-want +got):\n%s", diff)
	}

	msg, err := c.Lookup("CHG_01", "Notification")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	req, err := msg.Request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.RulesFile != "rules/CHG.01.1.json" || req.Source.Kind() != schema.SourceKindFile || req.MessageCode != "CHG.01.1" {
		t.Fatalf("unexpected request %+v", req)
	}

	remote, _ := c.Lookup("chg_01", "confirmation")
	req, err = remote.Request()
	if err != nil {
		t.Fatalf("remote request: %v", err)
	}
	if req.Source.Kind() != schema.SourceKindURL || req.RulesFile != "confirm.yaml" {
		t.Fatalf("unexpected remote request %+v", req)
	}

	if _, err := c.Lookup("chg_01", "missing"); !errors.Is(err, orchestrator.ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
	empty, _ := c.Lookup("end_02", "notification")
	if _, err := empty.Request(); err == nil {
		t.Fatalf("expected error for a message without schema")
	}
}

func TestMessage_RulesFileWithoutCode(t *testing.T) {
	t.Parallel()
	if got := (orchestrator.Message{RulesDir: "rules"}).RulesFile(); got != "" {
		t.Fatalf("rules file = %q", got)
	}
}
