package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goliatone/go-xsdform"
	"github.com/goliatone/go-xsdform/pkg/schema"
)

func main() {
	var (
		schemaPath = flag.String("schema", "pkg/testsupport/testdata/message.yaml", "schema definition or OpenAPI document")
		root       = flag.String("root", "Message", "root element to snapshot")
		outputPath = flag.String("output", "internal/model/testdata/message_formmodel.golden.json", "output path for the serialized form model")
	)
	flag.Parse()

	form, err := xsdform.BuildModel(context.Background(), schema.SourceFromFile(*schemaPath), *root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build form model: %v\n", err)
		os.Exit(1)
	}

	payload, err := json.MarshalIndent(form, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to encode form model: %v\n", err)
		os.Exit(1)
	}
	if err := os.MkdirAll(filepath.Dir(*outputPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create output directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*outputPath, append(payload, '\n'), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Form model written to %s\n", *outputPath)
}
