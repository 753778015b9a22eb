package orchestrator

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/goliatone/go-xsdform/pkg/schema"
)

// ErrUnknownMessage is returned when a catalog has no entry for a
// process/message pair.
var ErrUnknownMessage = errors.New("orchestrator: unknown process or message")

// Message describes one configured message type of a business process.
type Message struct {
	Process string
	Name    string
	Code    string
	Schema  string
	Root    string
	// RulesDir and Rules locate the default rule document. Rules defaults to
	// the message code with a .json extension.
	RulesDir    string
	Rules       string
	ProcessInfo map[string]string
	MessageInfo map[string]string
}

// RulesFile returns the slash-separated rule document path.
func (m Message) RulesFile() string {
	name := m.Rules
	if name == "" {
		if m.Code == "" {
			return ""
		}
		name = m.Code + ".json"
	}
	if m.RulesDir == "" {
		return name
	}
	return path.Join(m.RulesDir, name)
}

// Request builds the session request for m. Schema paths carrying a URL
// scheme are fetched, other paths are read from disk.
func (m Message) Request() (Request, error) {
	if strings.TrimSpace(m.Schema) == "" {
		return Request{}, fmt.Errorf("orchestrator: message %s/%s has no schema", m.Process, m.Name)
	}
	src, err := schema.ParseSource(m.Schema)
	if err != nil {
		return Request{}, fmt.Errorf("orchestrator: message %s/%s: %w", m.Process, m.Name, err)
	}
	return Request{
		Source:      src,
		Root:        m.Root,
		RulesFile:   m.RulesFile(),
		MessageCode: m.Code,
		ProcessInfo: m.ProcessInfo,
		MessageInfo: m.MessageInfo,
	}, nil
}

// Catalog indexes configured messages by process and message name. Lookups
// are case-insensitive.
type Catalog struct {
	messages map[string]Message
}

// NewCatalog indexes messages. A later entry replaces an earlier one with the
// same process and name.
func NewCatalog(messages ...Message) *Catalog {
	c := &Catalog{messages: make(map[string]Message, len(messages))}
	for _, m := range messages {
		c.messages[catalogKey(m.Process, m.Name)] = m
	}
	return c
}

// Lookup returns the message configured under process and name.
func (c *Catalog) Lookup(process, name string) (Message, error) {
	m, ok := c.messages[catalogKey(process, name)]
	if !ok {
		return Message{}, fmt.Errorf("%w: %s/%s", ErrUnknownMessage, process, name)
	}
	return m, nil
}

// Processes returns the configured process names, sorted.
func (c *Catalog) Processes() []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range c.messages {
		if !seen[m.Process] {
			seen[m.Process] = true
			out = append(out, m.Process)
		}
	}
	sort.Strings(out)
	return out
}

// Messages returns the message names configured for process, sorted.
func (c *Catalog) Messages(process string) []string {
	var out []string
	for _, m := range c.messages {
		if strings.EqualFold(m.Process, process) {
			out = append(out, m.Name)
		}
	}
	sort.Strings(out)
	return out
}

func catalogKey(process, name string) string {
	return strings.ToLower(process) + "\x00" + strings.ToLower(name)
}
