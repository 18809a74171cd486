package config

import (
	"fmt"
	"strings"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
)

// validOutputs are the accepted output modes.
var validOutputs = map[string]bool{
	"auto":     true,
	"text":     true,
	"markdown": true,
	"json":     true,
	"csv":      true,
}

// validLogLevels are the accepted log levels.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the resolved configuration and its selected target.
func (c *Config) Validate() error {
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q (debug, info, warn, error)", c.LogLevel)
	}
	if !validOutputs[strings.ToLower(c.Output)] {
		return fmt.Errorf("invalid output %q (auto, text, markdown, json, csv)", c.Output)
	}
	if c.Target == nil {
		return fmt.Errorf("no target selected")
	}
	if err := ValidateTarget(c.Target); err != nil {
		return fmt.Errorf("target %q: %w", c.TargetName, err)
	}
	return nil
}

// ValidateTarget checks one target against the adapter registry.
func ValidateTarget(t *core.TargetConfig) error {
	if t.Type == "" {
		return fmt.Errorf("adapter is required")
	}
	if !adapter.IsRegistered(t.Type) {
		return fmt.Errorf("unknown adapter %q (registered: %s)",
			t.Type, strings.Join(adapter.Available(), ", "))
	}
	if t.Port < 0 || t.Port > 65535 {
		return fmt.Errorf("invalid port %d", t.Port)
	}
	if t.Type == "postgres" && t.Database == "" {
		return fmt.Errorf("postgres target requires a database name")
	}
	return nil
}
