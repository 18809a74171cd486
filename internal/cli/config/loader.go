package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/mallardhq/mallard/pkg/core"
)

// loggerKey stores the logger in the command context. root.go and the
// commands package share it through LoggerKey.
type loggerKey struct{}

// envPrefix namespaces mallard environment variables. Double underscores
// nest: MALLARD_TARGETS__DEV__ADAPTER sets targets.dev.adapter.
const envPrefix = "MALLARD_"

// maxUpwardSearchLevels limits how far up the tree the config search walks.
const maxUpwardSearchLevels = 10

// configFileNames are the recognized config file names, in priority order.
var configFileNames = []string{"mallard.yaml", "mallard.yml"}

var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config
)

// ResetConfig clears loader state. Used by tests.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// configFileIn returns the config file inside dir, or empty.
func configFileIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findProjectRoot searches upward from the working directory for a config
// file; without one the working directory is the root.
func findProjectRoot() string {
	cwd, err := os.Getwd()
	if err != nil || cwd == "" {
		return "."
	}
	dir := cwd
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if configFileIn(dir) != "" {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return cwd
}

// resolvePathRelativeTo resolves path against baseDir unless it is empty or
// already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// Load resolves the configuration and selects a target. An empty cfgFile
// searches upward for mallard.yaml; an empty targetName selects
// default_target. Flags override only when explicitly set.
func Load(cfgFile, targetName string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	// Paths given as flags are relative to the working directory, not the
	// project root; pin them down before resolution.
	flagPaths := map[string]string{}
	if flags != nil {
		for flagName, key := range map[string]string{
			"migrations-dir": "migrations_dir",
			"seeds-dir":      "seeds_dir",
			"state":          "state_path",
		} {
			if !flags.Changed(flagName) {
				continue
			}
			if v, _ := flags.GetString(flagName); v != "" {
				abs, err := filepath.Abs(v)
				if err != nil {
					abs = filepath.Clean(v)
				}
				flagPaths[key] = abs
			}
		}
	}

	projectRoot := ""
	if cfgFile != "" {
		abs, err := filepath.Abs(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("config file not found: %s", cfgFile)
		}
		cfgFile = abs
		projectRoot = filepath.Dir(abs)
	} else {
		projectRoot = findProjectRoot()
		cfgFile = configFileIn(projectRoot)
	}

	if err := k.Load(confmap.Provider(map[string]interface{}{
		"default_target": DefaultTargetName,
		"migrations_dir": DefaultMigrationsDir,
		"seeds_dir":      DefaultSeedsDir,
		"state_path":     DefaultStateFile,
		"log_level":      DefaultLogLevel,
		"output":         DefaultOutput,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			key := strings.ReplaceAll(f.Name, "-", "_")
			if key == "state" {
				key = "state_path"
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	cfg.ProjectRoot = projectRoot
	for key, abs := range flagPaths {
		switch key {
		case "migrations_dir":
			cfg.MigrationsDir = abs
		case "seeds_dir":
			cfg.SeedsDir = abs
		case "state_path":
			cfg.StatePath = abs
		}
	}
	if _, ok := flagPaths["migrations_dir"]; !ok {
		cfg.MigrationsDir = resolvePathRelativeTo(cfg.MigrationsDir, projectRoot)
	}
	if _, ok := flagPaths["seeds_dir"]; !ok {
		cfg.SeedsDir = resolvePathRelativeTo(cfg.SeedsDir, projectRoot)
	}
	if _, ok := flagPaths["state_path"]; !ok {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}

	if err := cfg.selectTarget(targetName); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	currentConfig = &cfg
	return &cfg, nil
}

// selectTarget picks and normalizes the named target.
func (c *Config) selectTarget(targetName string) error {
	name := targetName
	if name == "" {
		name = c.DefaultTarget
	}
	if len(c.Targets) == 0 {
		return fmt.Errorf("no targets defined; run \"mallard init\" to create a config")
	}
	target, ok := c.Targets[name]
	if !ok || target == nil {
		return fmt.Errorf("target %q is not defined (known targets: %s)",
			name, strings.Join(c.TargetNames(), ", "))
	}

	c.TargetName = name
	c.Target = target
	normalizeTarget(c.Target, c.ProjectRoot)
	expandTargetEnvVars(c.Target)
	return nil
}

// TargetNames lists the configured target names, sorted.
func (c *Config) TargetNames() []string {
	names := make([]string, 0, len(c.Targets))
	for name := range c.Targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// normalizeTarget reconciles field aliases and anchors file paths. Embedded
// engines accept database: as an alias for path:, and their relative paths
// resolve against the project root so commands work from subdirectories.
func normalizeTarget(t *core.TargetConfig, projectRoot string) {
	t.Type = strings.ToLower(t.Type)

	if isEmbedded(t.Type) {
		if t.Path == "" && t.Database != "" {
			t.Path = t.Database
			t.Database = ""
		}
		if t.Path != "" && t.Path != ":memory:" {
			t.Path = resolvePathRelativeTo(t.Path, projectRoot)
		}
	}
}

// isEmbedded reports whether the adapter runs in-process on a local file.
func isEmbedded(adapterType string) bool {
	return adapterType == "duckdb" || adapterType == "sqlite"
}

// GetConfigFileUsed returns the config file path in use, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration from the last Load.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key the logger is stored under, letting the
// commands package read it without importing the cli root.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from a command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// envVarRe matches ${VAR} expansion sites.
var envVarRe = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars substitutes ${VAR} with the environment value, leaving
// unknown variables untouched.
func expandEnvVars(s string) string {
	return envVarRe.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val := os.Getenv(name); val != "" {
			return val
		}
		return match
	})
}

// expandTargetEnvVars expands ${VAR} in fields that commonly hold secrets.
func expandTargetEnvVars(t *core.TargetConfig) {
	if t == nil {
		return
	}
	t.User = expandEnvVars(t.User)
	t.Password = expandEnvVars(t.Password)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
	t.Path = expandEnvVars(t.Path)
	for key, value := range t.Options {
		t.Options[key] = expandEnvVars(value)
	}
}
