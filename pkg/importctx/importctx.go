// Package importctx extracts the identifiers a response form needs from an
// imported message envelope. The result feeds the import rules of a rule
// engine.
package importctx

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// Keys of the extracted context, as referenced by import rules.
const (
	KeyMessageID         = "message_id"
	KeyBusinessProcess   = "business_process"
	KeyMeteringPointCode = "metering_point_code"
)

// Default envelope paths, in gjson syntax.
const (
	DefaultMessageIDPath     = "CsireMessageId"
	DefaultProcessTypePath   = "ProcessType"
	DefaultMeteringPointPath = "Body.MeteringPointData.MeteringPointCode"
)

var (
	// ErrInvalidJSON is returned when the envelope is not a JSON object.
	ErrInvalidJSON = errors.New("importctx: envelope is not valid JSON")
	// ErrMarkupPayload is returned for envelopes that only carry an encoded
	// markup payload. Those are not parsed.
	ErrMarkupPayload = errors.New("importctx: envelope carries an encoded markup payload")
)

// Context is the data taken from an envelope. Missing items stay empty.
type Context struct {
	MessageID         string `json:"message_id,omitempty"`
	BusinessProcess   string `json:"business_process,omitempty"`
	MeteringPointCode string `json:"metering_point_code,omitempty"`
}

// Values returns the non-empty items keyed for import rules.
func (c Context) Values() map[string]string {
	out := make(map[string]string, 3)
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put(KeyMessageID, c.MessageID)
	put(KeyBusinessProcess, c.BusinessProcess)
	put(KeyMeteringPointCode, c.MeteringPointCode)
	return out
}

type config struct {
	logger        *slog.Logger
	messageID     string
	processType   string
	meteringPoint string
}

// Option configures Extract.
type Option func(*config)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPaths overrides the gjson paths of the three items. Empty arguments
// keep the defaults.
func WithPaths(messageID, processType, meteringPoint string) Option {
	return func(c *config) {
		if messageID != "" {
			c.messageID = messageID
		}
		if processType != "" {
			c.processType = processType
		}
		if meteringPoint != "" {
			c.meteringPoint = meteringPoint
		}
	}
}

// Extract reads a JSON envelope. The business process is derived from the
// first two dotted parts of the process type: "CHG.01.02" gives "CHG.01.".
func Extract(raw []byte, opts ...Option) (Context, error) {
	cfg := config{
		logger:        slog.Default(),
		messageID:     DefaultMessageIDPath,
		processType:   DefaultProcessTypePath,
		meteringPoint: DefaultMeteringPointPath,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if !gjson.ValidBytes(raw) {
		return Context{}, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(raw)
	if !doc.IsObject() {
		return Context{}, ErrInvalidJSON
	}
	if doc.Get("payload").Exists() {
		return Context{}, ErrMarkupPayload
	}

	var out Context
	if id := doc.Get(cfg.messageID); id.Type == gjson.String && id.Str != "" {
		out.MessageID = id.Str
	} else {
		cfg.logger.Warn("import envelope has no message id", "path", cfg.messageID)
	}

	process := doc.Get(cfg.processType)
	switch {
	case process.Type != gjson.String:
		cfg.logger.Warn("import envelope has no process type", "path", cfg.processType)
	default:
		if bp, ok := BusinessProcess(process.Str); ok {
			out.BusinessProcess = bp
		} else {
			cfg.logger.Warn("cannot derive business process", "process_type", process.Str)
		}
	}

	if code := doc.Get(cfg.meteringPoint); code.Exists() && code.String() != "" {
		out.MeteringPointCode = code.String()
	} else {
		cfg.logger.Warn("import envelope has no metering point code", "path", cfg.meteringPoint)
	}

	cfg.logger.Info("import context extracted",
		"message_id", out.MessageID,
		"business_process", out.BusinessProcess,
		"metering_point_code", out.MeteringPointCode,
	)
	return out, nil
}

// BusinessProcess derives "AAA.NN." from a process type with at least two
// dotted parts.
func BusinessProcess(processType string) (string, bool) {
	parts := strings.Split(strings.Trim(processType, "."), ".")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "." + parts[1] + ".", true
}
