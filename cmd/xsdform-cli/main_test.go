package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-xsdform/internal/config"
	"github.com/goliatone/go-xsdform/pkg/testsupport"
)

func TestBuildRequest_RulesFallBackToEmpty(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	broken := filepath.Join(dir, "broken.json")
	if err := os.WriteFile(broken, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.json"), broken} {
		req, err := buildRequest(config.Config{}, "", "", "message.yaml", "Message", path, testsupport.Logger())
		if err != nil {
			t.Fatalf("%s: build request: %v", path, err)
		}
		if req.Rules == nil || req.Rules.Len() != 0 {
			t.Fatalf("%s: expected an empty rule set, got %+v", path, req.Rules)
		}
	}
}

func TestBuildRequest_LoadsRules(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, testsupport.MessageRulesJSON(), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	req, err := buildRequest(config.Config{}, "", "", "message.yaml", "", path, testsupport.Logger())
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if req.Rules == nil || req.Rules.Len() != 4 {
		t.Fatalf("expected the 4 fixture rules, got %+v", req.Rules)
	}
	if req.Source == nil || req.Source.Location() != "message.yaml" {
		t.Fatalf("unexpected source %v", req.Source)
	}
}

func TestBuildRequest_RequiresSchema(t *testing.T) {
	t.Parallel()
	if _, err := buildRequest(config.Config{}, "", "", "", "", "", testsupport.Logger()); err == nil {
		t.Fatalf("expected an error without a schema")
	}
}
