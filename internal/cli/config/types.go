// Package config loads mallard's layered configuration. Precedence from
// lowest to highest: built-in defaults, mallard.yaml, MALLARD_ environment
// variables, explicitly set CLI flags.
package config

import "github.com/mallardhq/mallard/pkg/core"

// Default configuration values.
const (
	DefaultTargetName    = "dev"
	DefaultMigrationsDir = "migrations"
	DefaultSeedsDir      = "seeds"
	DefaultStateFile     = ".mallard/state.db"
	DefaultLogLevel      = "info"
	// DefaultOutput auto-detects: a TTY renders styled text, a pipe
	// renders markdown.
	DefaultOutput = "auto"
)

// Config holds the resolved CLI configuration with one selected target.
type Config struct {
	DefaultTarget string                        `koanf:"default_target"`
	MigrationsDir string                        `koanf:"migrations_dir"`
	SeedsDir      string                        `koanf:"seeds_dir"`
	StatePath     string                        `koanf:"state_path"`
	LogLevel      string                        `koanf:"log_level"`
	Output        string                        `koanf:"output"`
	Targets       map[string]*core.TargetConfig `koanf:"targets"`

	// ProjectRoot is the directory the config file was found in, or the
	// working directory without one. Relative paths resolve against it.
	ProjectRoot string `koanf:"-"`
	// TargetName is the selected target's key in Targets.
	TargetName string `koanf:"-"`
	// Target is the selected, normalized target.
	Target *core.TargetConfig `koanf:"-"`
}

// TargetConfig is an alias so command code can avoid importing pkg/core.
type TargetConfig = core.TargetConfig
