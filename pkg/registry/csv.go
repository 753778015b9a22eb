package registry

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	// ErrHeaders is returned when a dictionary lacks a required column.
	ErrHeaders = errors.New("registry: missing required CSV headers")
	// ErrEmpty is returned for an input without a header row.
	ErrEmpty = errors.New("registry: empty CSV input")
)

// decodeText returns data as UTF-8. A leading byte order mark is dropped;
// input that is not valid UTF-8 is read as windows-1250, the encoding the
// dictionaries are exported in.
func decodeText(data []byte) ([]byte, string, error) {
	if utf8.Valid(data) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return nil, "", fmt.Errorf("registry: decode utf-8: %w", err)
		}
		return out, "utf-8", nil
	}
	out, err := charmap.Windows1250.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("registry: decode windows-1250: %w", err)
	}
	return out, "windows-1250", nil
}

// table is a header-indexed view over semicolon separated records.
type table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func readTable(data []byte, skip int) (*table, error) {
	for i := 0; i < skip; i++ {
		nl := bytes.IndexByte(data, '\n')
		if nl < 0 {
			return nil, ErrEmpty
		}
		data = data[nl+1:]
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("registry: read header: %w", err)
	}
	t := &table{header: header, index: make(map[string]int, len(header))}
	for i, h := range header {
		h = strings.TrimSpace(h)
		t.header[i] = h
		if _, dup := t.index[h]; !dup {
			t.index[h] = i
		}
	}
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("registry: read row: %w", err)
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func (t *table) require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrHeaders, strings.Join(missing, ", "))
	}
	return nil
}

func (t *table) cell(row []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
