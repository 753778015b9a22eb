package config_test

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-xsdform/internal/config"
)

const sample = `
permissions:
  can_edit_amount: true
values:
  SCHEMA_VERSION: "1.2"
processes:
  chg_01:
    code: CHG.01.
    info:
      code: CHG.01.
    messages:
      Notification:
        code: CHG.01.1
        schema: schemas/message.yaml
        root: Message
        rules_dir: rules/chg_01
        info:
          sender: OSD
registries:
  operators: data/operators.csv
presets:
  dsn: presets.db
synthesis:
  max_passes: 4
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xsdform.yaml")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := config.Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Permissions["can_edit_amount"] {
		t.Fatalf("permission not loaded: %v", cfg.Permissions)
	}
	if cfg.Values["schema_version"] != "1.2" {
		t.Fatalf("values are expected with folded keys: %v", cfg.Values)
	}
	if cfg.Synthesis.MaxPasses != 4 || cfg.Presets.DSN != "presets.db" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Session.TimestampField != "MessageTimestamp" || cfg.Rules.Dir != "rules" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}

	process, message, err := cfg.Message("CHG_01", "Notification")
	if err != nil {
		t.Fatalf("message: %v", err)
	}
	want := config.Message{
		Code:     "CHG.01.1",
		Schema:   "schemas/message.yaml",
		Root:     "Message",
		RulesDir: "rules/chg_01",
		Info:     map[string]string{"sender": "OSD"},
	}
	if diff := cmp.Diff(want, message); diff != "" {
		t.Fatalf("message mismatch (-want +got):\n%s", diff)
	}
	if process.Code != "CHG.01." {
		t.Fatalf("unexpected process %+v", process)
	}
	if _, _, err := cfg.Message("chg_01", "Missing"); !errors.Is(err, config.ErrUnknownMessage) {
		t.Fatalf("expected ErrUnknownMessage, got %v", err)
	}
	if diff := cmp.Diff([]string{"notification"}, cfg.MessageNames("chg_01")); diff != "" {
		t.Fatalf("message names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("XSDFORM_SYNTHESIS_MAX_PASSES", "7")
	cfg, err := config.Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Synthesis.MaxPasses != 7 {
		t.Fatalf("expected env override, got %d", cfg.Synthesis.MaxPasses)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.Synthesis.MaxPasses != 10 {
		t.Fatalf("expected default passes, got %d", cfg.Synthesis.MaxPasses)
	}
}

func TestParseBootstrapFrom(t *testing.T) {
	t.Parallel()
	b, err := config.ParseBootstrapFrom(map[string]string{"XSDFORM_CONFIG": "a.yaml", "XSDFORM_LOG_FORMAT": "json"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := config.Bootstrap{ConfigFile: "a.yaml", LogLevel: "info", LogFormat: "json"}
	if diff := cmp.Diff(want, b); diff != "" {
		t.Fatalf("bootstrap mismatch (-want +got):\n%s", diff)
	}
}

func TestNewLogger(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	logger := config.NewLogger("warn", "json", &buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"msg":"shown"`) {
		t.Fatalf("unexpected log output %q", out)
	}
	if config.ParseLevel("nope") != slog.LevelInfo {
		t.Fatalf("unknown level should be info")
	}
}

func TestConfig_Catalog(t *testing.T) {
	cfg, err := config.Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	catalog := cfg.Catalog()
	if diff := cmp.Diff([]string{"chg_01"}, catalog.Processes()); diff != "" {
		t.Fatalf("processes mismatch (-want +got):\n%s", diff)
	}
	msg, err := catalog.Lookup("CHG_01", "Notification")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got := msg.RulesFile(); got != "rules/chg_01/CHG.01.1.json" {
		t.Fatalf("rules file = %q", got)
	}
	if msg.ProcessInfo["code"] != "CHG.01." || msg.MessageInfo["code"] != "CHG.01.1" || msg.MessageInfo["sender"] != "OSD" {
		t.Fatalf("unexpected info: %v %v", msg.ProcessInfo, msg.MessageInfo)
	}
	req, err := msg.Request()
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if req.Root != "Message" || req.MessageCode != "CHG.01.1" || req.Source.Location() != "schemas/message.yaml" {
		t.Fatalf("unexpected request: %+v", req)
	}
}
