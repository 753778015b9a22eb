// Package config loads the runtime configuration: bootstrap settings from
// the environment, then the configuration file through viper.
package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"

	"github.com/goliatone/go-xsdform/pkg/orchestrator"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "XSDFORM"

// ErrUnknownMessage is returned when a process or message is not configured.
var ErrUnknownMessage = errors.New("config: unknown process or message")

// Bootstrap is read from the environment before the config file.
type Bootstrap struct {
	ConfigFile string `env:"XSDFORM_CONFIG"`
	LogLevel   string `env:"XSDFORM_LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"XSDFORM_LOG_FORMAT" envDefault:"text"`
}

// ParseBootstrap reads Bootstrap from the process environment.
func ParseBootstrap() (Bootstrap, error) {
	var b Bootstrap
	if err := env.Parse(&b); err != nil {
		return Bootstrap{}, fmt.Errorf("parse env: %w", err)
	}
	return b, nil
}

// ParseBootstrapFrom reads Bootstrap from the given variables only.
func ParseBootstrapFrom(vars map[string]string) (Bootstrap, error) {
	var b Bootstrap
	if err := env.ParseWithOptions(&b, env.Options{Environment: vars}); err != nil {
		return Bootstrap{}, fmt.Errorf("parse env: %w", err)
	}
	return b, nil
}

// Config is the file configuration. Map keys are folded to lower case by
// the loader.
type Config struct {
	Permissions map[string]bool    `mapstructure:"permissions"`
	Values      map[string]string  `mapstructure:"values"`
	Processes   map[string]Process `mapstructure:"processes"`
	Registries  Registries         `mapstructure:"registries"`
	Presets     Presets            `mapstructure:"presets"`
	Synthesis   Synthesis          `mapstructure:"synthesis"`
	Rules       Rules              `mapstructure:"rules"`
	Session     Session            `mapstructure:"session"`
}

// Process groups the messages of one business process. Process and message
// keys must not contain dots; the dotted process code goes in Code.
type Process struct {
	Code     string             `mapstructure:"code"`
	Info     map[string]string  `mapstructure:"info"`
	Messages map[string]Message `mapstructure:"messages"`
}

// Message points at the schema and rules of one message type.
type Message struct {
	Code     string            `mapstructure:"code"`
	Schema   string            `mapstructure:"schema"`
	Root     string            `mapstructure:"root"`
	RulesDir string            `mapstructure:"rules_dir"`
	Rules    string            `mapstructure:"rules"`
	Info     map[string]string `mapstructure:"info"`
}

// Registries locates the reference CSV files.
type Registries struct {
	Operators string `mapstructure:"operators"`
	Matrix    string `mapstructure:"matrix"`
}

// Presets configures preset storage. An empty DSN keeps presets in memory.
type Presets struct {
	DSN string `mapstructure:"dsn"`
}

// Synthesis tunes the data synthesizer.
type Synthesis struct {
	MaxPasses int   `mapstructure:"max_passes"`
	Seed      int64 `mapstructure:"seed"`
}

// Rules locates rule documents.
type Rules struct {
	Dir     string `mapstructure:"dir"`
	Default string `mapstructure:"default"`
}

// Session tunes form sessions.
type Session struct {
	// TimestampField names the field stamped with the current time when a
	// form is built or a preset is loaded. Empty disables stamping.
	TimestampField string `mapstructure:"timestamp_field"`
}

// Load reads path (YAML, TOML or JSON by extension) with environment
// overrides. An empty path yields the defaults plus overrides.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetDefault("synthesis.max_passes", 10)
	v.SetDefault("synthesis.seed", 0)
	v.SetDefault("rules.dir", "rules")
	v.SetDefault("rules.default", "")
	v.SetDefault("presets.dsn", "")
	v.SetDefault("registries.operators", "")
	v.SetDefault("registries.matrix", "")
	v.SetDefault("session.timestamp_field", "MessageTimestamp")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.Synthesis.MaxPasses <= 0 {
		c.Synthesis.MaxPasses = 10
	}
	return c, nil
}

// Message resolves a configured process/message pair. Lookups ignore case.
func (c Config) Message(process, message string) (Process, Message, error) {
	p, ok := c.Processes[strings.ToLower(process)]
	if !ok {
		return Process{}, Message{}, fmt.Errorf("%w: process %q", ErrUnknownMessage, process)
	}
	m, ok := p.Messages[strings.ToLower(message)]
	if !ok {
		return Process{}, Message{}, fmt.Errorf("%w: message %q in %q", ErrUnknownMessage, message, process)
	}
	return p, m, nil
}

// ProcessNames lists configured processes, sorted.
func (c Config) ProcessNames() []string {
	return sortedKeys(c.Processes)
}

// MessageNames lists the messages of a process, sorted.
func (c Config) MessageNames(process string) []string {
	return sortedKeys(c.Processes[strings.ToLower(process)].Messages)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Catalog converts the configured processes into a session catalog. Message
// rule locations fall back to the rules section.
func (c Config) Catalog() *orchestrator.Catalog {
	var messages []orchestrator.Message
	for pname, p := range c.Processes {
		for mname, m := range p.Messages {
			dir := m.RulesDir
			if dir == "" {
				dir = c.Rules.Dir
			}
			file := m.Rules
			if file == "" {
				file = c.Rules.Default
			}
			messages = append(messages, orchestrator.Message{
				Process:     pname,
				Name:        mname,
				Code:        m.Code,
				Schema:      m.Schema,
				Root:        m.Root,
				RulesDir:    dir,
				Rules:       file,
				ProcessInfo: withCode(p.Info, p.Code),
				MessageInfo: withCode(m.Info, m.Code),
			})
		}
	}
	return orchestrator.NewCatalog(messages...)
}

// withCode copies info and adds "code" unless already set.
func withCode(info map[string]string, code string) map[string]string {
	out := make(map[string]string, len(info)+1)
	for k, v := range info {
		out[k] = v
	}
	if _, ok := out["code"]; !ok && code != "" {
		out["code"] = code
	}
	return out
}
