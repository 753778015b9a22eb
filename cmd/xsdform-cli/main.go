package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-xsdform/internal/config"
	"github.com/goliatone/go-xsdform/internal/loader"
	"github.com/goliatone/go-xsdform/pkg/collect"
	"github.com/goliatone/go-xsdform/pkg/orchestrator"
	"github.com/goliatone/go-xsdform/pkg/preset"
	"github.com/goliatone/go-xsdform/pkg/prompt"
	"github.com/goliatone/go-xsdform/pkg/registry"
	"github.com/goliatone/go-xsdform/pkg/rules"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

func main() {
	configPath := flag.String("config", "", "configuration file (defaults to $XSDFORM_CONFIG)")
	process := flag.String("process", "", "configured process name")
	message := flag.String("message", "", "configured message name")
	schemaPath := flag.String("schema", "", "schema document path or URL, overrides the configured one")
	root := flag.String("root", "", "root element (first global element if empty)")
	rulesPath := flag.String("rules", "", "rule document, overrides the configured one")
	importPath := flag.String("import", "", "JSON envelope to prefill from")
	presetName := flag.String("preset", "", "preset to load before running the command")
	savePreset := flag.String("save-preset", "", "save the form as a preset after the command")
	command := flag.String("command", "synthesize", "levels, synthesize, validate or fill")
	output := flag.String("output", "", "output file (stdout if empty)")
	seed := flag.Int64("seed", 0, "random seed, overrides the configured one")
	flag.Parse()

	ctx := context.Background()

	boot, err := config.ParseBootstrap()
	if err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}
	logger := config.NewLogger(boot.LogLevel, boot.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	if *configPath == "" {
		*configPath = boot.ConfigFile
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	req, err := buildRequest(cfg, *process, *message, *schemaPath, *root, *rulesPath, logger)
	if err != nil {
		log.Fatalf("Invalid request: %v", err)
	}

	options := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithPermissions(cfg.Permissions),
		orchestrator.WithConfigValues(cfg.Values),
		orchestrator.WithMaxPasses(cfg.Synthesis.MaxPasses),
		orchestrator.WithSeed(cfg.Synthesis.Seed),
		orchestrator.WithTimestampField(cfg.Session.TimestampField),
		orchestrator.WithRulesFS(os.DirFS(".")),
		orchestrator.WithLoader(loader.New(schema.NewLoaderOptions(schema.WithHTTPFallback(30 * time.Second)))),
	}
	if *seed != 0 {
		options = append(options, orchestrator.WithSeed(*seed))
	}
	registryOptions, err := loadRegistries(cfg.Registries, logger)
	if err != nil {
		log.Fatalf("Failed to load registries: %v", err)
	}
	options = append(options, registryOptions...)

	store, closeStore, err := openPresets(ctx, cfg.Presets, logger)
	if err != nil {
		log.Fatalf("Failed to open preset store: %v", err)
	}
	defer closeStore()
	options = append(options, orchestrator.WithPresetStore(store))

	session, err := orchestrator.New(options...).Open(ctx, req)
	if err != nil {
		log.Fatalf("Failed to open form: %v", err)
	}
	defer session.Close()

	if *importPath != "" {
		raw, err := os.ReadFile(*importPath)
		if err != nil {
			log.Fatalf("Failed to read import: %v", err)
		}
		if _, err := session.ApplyImport(ctx, raw); err != nil {
			log.Fatalf("Failed to apply import: %v", err)
		}
	}
	if *presetName != "" {
		if _, err := session.LoadPreset(ctx, *presetName); err != nil {
			log.Fatalf("Failed to load preset: %v", err)
		}
	}

	result, failed, err := run(ctx, session, *command, logger)
	if err != nil {
		log.Fatalf("Command %s failed: %v", *command, err)
	}

	if *savePreset != "" {
		if err := session.SavePreset(ctx, *savePreset); err != nil {
			log.Fatalf("Failed to save preset: %v", err)
		}
	}

	payload, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode output: %v", err)
	}
	if *output != "" {
		if err := os.WriteFile(*output, append(payload, '\n'), 0o644); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		fmt.Printf("Output written to %s\n", *output)
	} else {
		fmt.Println(string(payload))
	}
	if failed {
		os.Exit(1)
	}
}

// run executes command and returns the value to print. failed reports a
// form that did not validate.
func run(ctx context.Context, session *orchestrator.Session, command string, logger *slog.Logger) (any, bool, error) {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "levels":
		levels, err := session.Levels()
		return levels, false, err
	case "validate":
		issues := session.Validate()
		return issues, len(issues) > 0, nil
	case "synthesize":
		report, err := session.Synthesize()
		if err != nil {
			return nil, false, err
		}
		logger.Info("synthesized", "filled", report.Filled(), "passes", report.Passes, "cap_reached", report.CapReached)
		return values(session)
	case "fill":
		filler := prompt.NewFiller(session.Tree(), session.Rules(), prompt.NewSurveyDriver(), prompt.WithLogger(logger))
		report, err := filler.Run(ctx)
		if err != nil {
			return nil, false, err
		}
		logger.Info("form filled", "asked", report.Asked, "written", report.Written)
		return values(session)
	}
	return nil, false, fmt.Errorf("unknown command %q", command)
}

func values(session *orchestrator.Session) (any, bool, error) {
	data, err := session.Values()
	var verr *collect.ValidationError
	if errors.As(err, &verr) {
		return verr.Issues, true, nil
	}
	return data, false, err
}

func buildRequest(cfg config.Config, process, message, schemaPath, root, rulesPath string, logger *slog.Logger) (orchestrator.Request, error) {
	var req orchestrator.Request
	switch {
	case process != "" || message != "":
		msg, err := cfg.Catalog().Lookup(process, message)
		if err != nil {
			return req, err
		}
		if schemaPath != "" {
			msg.Schema = schemaPath
		}
		if req, err = msg.Request(); err != nil {
			return req, err
		}
	case schemaPath != "":
		src, err := schema.ParseSource(schemaPath)
		if err != nil {
			return req, err
		}
		req.Source = src
	default:
		return req, errors.New("a schema or a configured process and message is required")
	}
	if root != "" {
		req.Root = root
	}
	if rulesPath != "" {
		set := rules.LoadOrEmpty(os.DirFS(filepath.Dir(rulesPath)), filepath.Base(rulesPath), logger)
		req.Rules = &set
	}
	return req, nil
}

func loadRegistries(cfg config.Registries, logger *slog.Logger) ([]orchestrator.Option, error) {
	var options []orchestrator.Option
	if cfg.Operators != "" {
		ops, err := registry.LoadOperatorsFile(cfg.Operators, registry.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithOperators(ops))
	}
	if cfg.Matrix != "" {
		matrix, err := registry.LoadMatrixFile(cfg.Matrix, registry.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithCodeRegistry(matrix))
	}
	return options, nil
}

func openPresets(ctx context.Context, cfg config.Presets, logger *slog.Logger) (preset.Store, func(), error) {
	if cfg.DSN == "" {
		return preset.NewMemoryStore(), func() {}, nil
	}
	store, err := preset.OpenSQLite(ctx, cfg.DSN, preset.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing preset store", "error", err)
		}
	}, nil
}
