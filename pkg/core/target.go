package core

import (
	"fmt"
	"strings"
)

// TargetConfig holds everything needed to reach one database target.
//
// Embedded engines (duckdb, sqlite) use Path; server engines (postgres) use
// Host/Port/Database. Options carry driver DSN options verbatim; Params carry
// adapter-specific session parameters and are decoded by each adapter.
type TargetConfig struct {
	Type     string            `koanf:"adapter"`
	Path     string            `koanf:"path"`
	Host     string            `koanf:"host"`
	Port     int               `koanf:"port"`
	Database string            `koanf:"database"`
	Schema   string            `koanf:"schema"`
	User     string            `koanf:"user"`
	Password string            `koanf:"password"`
	Options  map[string]string `koanf:"options"`
	Params   map[string]any    `koanf:"params"`
}

// InMemory reports whether the target is an in-memory embedded database.
func (c *TargetConfig) InMemory() bool {
	return c.Path == "" || c.Path == ":memory:"
}

// String returns a loggable description without credentials.
func (c *TargetConfig) String() string {
	var b strings.Builder
	b.WriteString(c.Type)
	switch {
	case c.Host != "":
		fmt.Fprintf(&b, "://%s", c.Host)
		if c.Port != 0 {
			fmt.Fprintf(&b, ":%d", c.Port)
		}
		if c.Database != "" {
			fmt.Fprintf(&b, "/%s", c.Database)
		}
	case c.InMemory():
		b.WriteString("://:memory:")
	default:
		fmt.Fprintf(&b, "://%s", c.Path)
	}
	return b.String()
}
