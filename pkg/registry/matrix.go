package registry

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"sort"
	"strings"
)

const (
	// SuccessCode is always allowed, whatever the process.
	SuccessCode = "CA0001"
	// FallbackErrorCode is used when a process has no error codes.
	FallbackErrorCode = "CE999"

	matrixCodeColumn    = "Kod błędu"
	matrixProcessPrefix = "UNK"
	matrixMetaLines     = 2
)

// ProcessMatrix maps business processes to the result codes they allow.
type ProcessMatrix struct {
	codes  map[string][]string
	logger *slog.Logger
}

// LoadMatrix reads the validation matrix export. The first two lines carry
// metadata; the header row names the code column and one column per
// process, and an "x" marks an allowed code.
func LoadMatrix(r io.Reader, opts ...Option) (*ProcessMatrix, error) {
	cfg := newLoadConfig(opts)
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("registry: read matrix: %w", err)
	}
	data, _, err := decodeText(raw)
	if err != nil {
		return nil, err
	}
	t, err := readTable(data, matrixMetaLines)
	if err != nil {
		return nil, err
	}
	if err := t.require(matrixCodeColumn); err != nil {
		return nil, err
	}

	var processes []string
	for _, h := range t.header {
		if strings.HasPrefix(h, matrixProcessPrefix) {
			processes = append(processes, h)
		}
	}

	m := &ProcessMatrix{codes: make(map[string][]string), logger: cfg.logger}
	for _, row := range t.rows {
		code := t.cell(row, matrixCodeColumn)
		if !strings.HasPrefix(code, "CE") {
			continue
		}
		for _, column := range processes {
			if t.cell(row, column) == "x" {
				name := processName(column)
				m.codes[name] = append(m.codes[name], code)
			}
		}
	}
	for name := range m.codes {
		sort.Strings(m.codes[name])
	}
	cfg.logger.Info("process matrix loaded", "processes", len(m.codes))
	return m, nil
}

// LoadMatrixFile opens path and calls LoadMatrix.
func LoadMatrixFile(path string, opts ...Option) (*ProcessMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("registry: open matrix: %w", err)
	}
	defer f.Close()
	return LoadMatrix(f, opts...)
}

func processName(column string) string {
	return strings.TrimSpace(strings.ReplaceAll(column, matrixProcessPrefix+" ", ""))
}

// Processes lists the known process names, sorted.
func (m *ProcessMatrix) Processes() []string {
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.codes))
	for name := range m.codes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ValidCodes returns the success code followed by the sorted error codes
// allowed for process. Unknown processes only allow the success code.
func (m *ProcessMatrix) ValidCodes(process string) []string {
	process = strings.TrimSpace(process)
	if process == "" {
		return []string{SuccessCode}
	}
	codes, ok := m.lookup(process)
	if !ok {
		m.log().Warn("process not in validation matrix", "process", process)
		return []string{SuccessCode}
	}
	return append([]string{SuccessCode}, codes...)
}

// ErrorCode picks one error code allowed for process, or FallbackErrorCode.
func (m *ProcessMatrix) ErrorCode(process string, rnd *rand.Rand) string {
	codes, ok := m.lookup(strings.TrimSpace(process))
	if !ok || len(codes) == 0 {
		return FallbackErrorCode
	}
	return codes[rnd.Intn(len(codes))]
}

func (m *ProcessMatrix) lookup(process string) ([]string, bool) {
	if m == nil {
		return nil, false
	}
	codes, ok := m.codes[process]
	return codes, ok
}

func (m *ProcessMatrix) log() *slog.Logger {
	if m == nil || m.logger == nil {
		return slog.Default()
	}
	return m.logger
}
