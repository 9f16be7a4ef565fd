package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
)

const (
	backendEmulator = "emulator"
	backendNative   = "native"
)

// Config drives one ireerun invocation.
type Config struct {
	Backend  string   `toml:"backend" json:"backend" validate:"oneof=emulator native" jsonschema:"enum=emulator,enum=native,default=emulator"`
	Driver   string   `toml:"driver" json:"driver" validate:"required" jsonschema:"default=local-sync"`
	Modules  []string `toml:"modules" json:"modules,omitempty" validate:"dive,required" jsonschema:"description=Bytecode module files appended in order"`
	Calls    []string `toml:"calls" json:"calls,omitempty" validate:"dive,required,contains=." jsonschema:"description=Functions to call as module.function"`
	LogLevel string   `toml:"log_level" json:"log_level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=warn"`
	Trace    bool     `toml:"trace" json:"trace,omitempty" jsonschema:"description=Enable VM execution tracing"`
	Trim     bool     `toml:"trim" json:"trim,omitempty" jsonschema:"description=Trim the session after all calls"`
}

var validate = validator.New()

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Backend:  backendEmulator,
		Driver:   "local-sync",
		LogLevel: "warn",
	}
}

// LoadConfig overlays the keys defined in the TOML file at path onto the
// defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw Config
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown keys %v", undecoded)
	}

	if meta.IsDefined("backend") {
		cfg.Backend = strings.TrimSpace(raw.Backend)
	}
	if meta.IsDefined("driver") {
		cfg.Driver = strings.TrimSpace(raw.Driver)
	}
	if meta.IsDefined("modules") {
		cfg.Modules = raw.Modules
	}
	if meta.IsDefined("calls") {
		cfg.Calls = raw.Calls
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("trace") {
		cfg.Trace = raw.Trace
	}
	if meta.IsDefined("trim") {
		cfg.Trim = raw.Trim
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

// Schema returns the JSON schema of the config file.
func Schema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(&Config{})

	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return out, nil
}

// splitList parses a comma-separated flag value.
func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
