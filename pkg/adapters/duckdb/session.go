package duckdb

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/mallardhq/mallard/pkg/ddl"
)

// applySessionParams configures the freshly opened connection from the
// target's params map: extensions first, then secrets (which may need an
// extension, e.g. httpfs for s3), then plain settings.
func (a *Adapter) applySessionParams(ctx context.Context, raw map[string]any) error {
	params, err := parseParams(raw)
	if err != nil {
		return err
	}

	if err := a.installExtensions(ctx, params.Extensions); err != nil {
		return err
	}
	if err := a.createSecrets(ctx, params.Secrets); err != nil {
		return err
	}
	return a.applySettings(ctx, params.Settings)
}

// installExtensions runs INSTALL + LOAD for each configured extension.
func (a *Adapter) installExtensions(ctx context.Context, extensions []string) error {
	for _, ext := range extensions {
		if err := ddl.ValidateIdentifier(ext, 0); err != nil {
			return fmt.Errorf("invalid extension name %q: %w", ext, err)
		}

		a.Logger.Debug("loading duckdb extension", slog.String("extension", ext))

		if _, err := a.Exec(ctx, "INSTALL "+ext); err != nil {
			return fmt.Errorf("failed to install extension %s: %w", ext, err)
		}
		if _, err := a.Exec(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}
	return nil
}

// createSecrets issues CREATE SECRET for each configured secret.
func (a *Adapter) createSecrets(ctx context.Context, secrets []SecretConfig) error {
	for i, secret := range secrets {
		if secret.Type == "" {
			return fmt.Errorf("secret %d: type is required", i)
		}

		a.Logger.Debug("creating duckdb secret",
			slog.String("type", secret.Type),
			slog.String("provider", secret.Provider))

		if _, err := a.Exec(ctx, buildCreateSecretSQL(secret)); err != nil {
			return fmt.Errorf("failed to create %s secret: %w", secret.Type, err)
		}
	}
	return nil
}

// applySettings runs SET name = value for each configured setting, in
// sorted key order so application is deterministic.
func (a *Adapter) applySettings(ctx context.Context, settings map[string]string) error {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := ddl.ValidateIdentifier(key, 0); err != nil {
			return fmt.Errorf("invalid setting name %q: %w", key, err)
		}

		stmt := fmt.Sprintf("SET %s = %s", key, a.dialect.QuoteLiteral(settings[key]))
		if _, err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", key, err)
		}
	}
	return nil
}

// buildCreateSecretSQL renders a CREATE SECRET statement. TYPE, PROVIDER,
// and USE_SSL are bare tokens; everything else is a quoted string.
func buildCreateSecretSQL(cfg SecretConfig) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("TYPE %s", cfg.Type))

	if cfg.Provider != "" {
		parts = append(parts, fmt.Sprintf("PROVIDER %s", cfg.Provider))
	}
	if cfg.Region != "" {
		parts = append(parts, fmt.Sprintf("REGION %s", quoteSecretValue(cfg.Region)))
	}
	if scope := buildScopeClause(cfg.Scope); scope != "" {
		parts = append(parts, scope)
	}
	if cfg.KeyID != "" {
		parts = append(parts, fmt.Sprintf("KEY_ID %s", quoteSecretValue(cfg.KeyID)))
	}
	if cfg.Secret != "" {
		parts = append(parts, fmt.Sprintf("SECRET %s", quoteSecretValue(cfg.Secret)))
	}
	if cfg.Endpoint != "" {
		parts = append(parts, fmt.Sprintf("ENDPOINT %s", quoteSecretValue(cfg.Endpoint)))
	}
	if cfg.URLStyle != "" {
		parts = append(parts, fmt.Sprintf("URL_STYLE %s", quoteSecretValue(cfg.URLStyle)))
	}
	if cfg.UseSSL != nil {
		parts = append(parts, fmt.Sprintf("USE_SSL %t", *cfg.UseSSL))
	}

	return "CREATE SECRET (\n    " + strings.Join(parts, ",\n    ") + "\n)"
}

// buildScopeClause renders the SCOPE entry. A single path renders bare,
// multiple paths render as a parenthesized list.
func buildScopeClause(scope any) string {
	switch s := scope.(type) {
	case nil:
		return ""
	case string:
		return fmt.Sprintf("SCOPE %s", quoteSecretValue(s))
	case []string:
		if len(s) == 0 {
			return ""
		}
		quoted := make([]string, len(s))
		for i, v := range s {
			quoted[i] = quoteSecretValue(v)
		}
		return fmt.Sprintf("SCOPE (%s)", strings.Join(quoted, ", "))
	case []any:
		if len(s) == 0 {
			return ""
		}
		quoted := make([]string, len(s))
		for i, v := range s {
			quoted[i] = quoteSecretValue(fmt.Sprintf("%v", v))
		}
		return fmt.Sprintf("SCOPE (%s)", strings.Join(quoted, ", "))
	default:
		return fmt.Sprintf("SCOPE %s", quoteSecretValue(fmt.Sprintf("%v", s)))
	}
}

func quoteSecretValue(v string) string {
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}
