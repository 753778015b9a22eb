package schema

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Source identifies where a document originated so loaders can read files,
// fs.FS entries, or URLs through one contract. Rule and schema documents share
// it.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindFS   SourceKind = "fs"
	SourceKindURL  SourceKind = "url"
)

type source struct {
	kind     SourceKind
	location string
}

func (s source) Kind() SourceKind { return s.kind }
func (s source) Location() string { return s.location }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return source{kind: SourceKindFile, location: filepath.Clean(path)}
}

// SourceFromFS returns a Source identifying a resource inside an fs.FS.
func SourceFromFS(name string) Source {
	return source{kind: SourceKindFS, location: name}
}

// SourceFromURL returns a URL Source. It panics on malformed input so
// configuration mistakes surface early; use ParseSource for user input.
func SourceFromURL(raw string) Source {
	src, err := urlSource(raw)
	if err != nil {
		panic(err.Error())
	}
	return src
}

// ParseSource maps a CLI or config value to a Source: http(s) URLs become URL
// sources, "fs:" prefixed names become fs.FS sources, anything else a file.
func ParseSource(raw string) (Source, error) {
	value := strings.TrimSpace(raw)
	switch {
	case value == "":
		return nil, errors.New("schema: empty source")
	case strings.HasPrefix(value, "http://"), strings.HasPrefix(value, "https://"):
		return urlSource(value)
	case strings.HasPrefix(value, "fs:"):
		return SourceFromFS(strings.TrimPrefix(value, "fs:")), nil
	}
	return SourceFromFile(value), nil
}

func urlSource(raw string) (Source, error) {
	if raw == "" {
		return nil, errors.New("schema: empty URL source")
	}
	if _, err := url.ParseRequestURI(raw); err != nil {
		return nil, fmt.Errorf("schema: invalid URL %q: %w", raw, err)
	}
	return source{kind: SourceKindURL, location: raw}, nil
}
