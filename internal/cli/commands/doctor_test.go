package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mallardhq/mallard/pkg/core"
)

func TestCalculateHealthScore(t *testing.T) {
	tests := []struct {
		name       string
		checks     []HealthCheck
		migrations int
		want       int
	}{
		{
			name: "no checks",
			want: 100,
		},
		{
			name:   "all passing",
			checks: []HealthCheck{{Status: "pass"}, {Status: "pass"}},
			want:   100,
		},
		{
			name:   "warnings subtract the base penalty",
			checks: []HealthCheck{{Status: "warn", IssueCount: 2}},
			want:   90,
		},
		{
			name:   "errors count double",
			checks: []HealthCheck{{Status: "error", IssueCount: 1}},
			want:   90,
		},
		{
			name:       "large projects shrink the penalty",
			checks:     []HealthCheck{{Status: "warn", IssueCount: 2}},
			migrations: 60,
			want:       96,
		},
		{
			name:   "score clamps at zero",
			checks: []HealthCheck{{Status: "error", IssueCount: 50}},
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateHealthScore(tt.checks, tt.migrations))
		})
	}
}

func TestGenerateRecommendations(t *testing.T) {
	checks := []HealthCheck{
		{RuleID: "CF01", Status: "pass"},
		{RuleID: "TG01", Status: "warn", IssueCount: 1},
		{RuleID: "MG02", Status: "warn", IssueCount: 3},
	}

	recs := generateRecommendations(checks)
	assert.Len(t, recs, 2)
	assert.Contains(t, recs[0], "unreachable targets")
	assert.Contains(t, recs[1], "migrate up")
}

func TestGenerateRecommendationsDeduplicates(t *testing.T) {
	checks := []HealthCheck{
		{RuleID: "TG01", Status: "warn", IssueCount: 1},
		{RuleID: "TG01", Status: "error", IssueCount: 2},
	}

	recs := generateRecommendations(checks)
	assert.Len(t, recs, 1)
}

func TestConfiguredExtensions(t *testing.T) {
	tests := []struct {
		name   string
		target *core.TargetConfig
		want   []string
	}{
		{
			name:   "yaml list",
			target: &core.TargetConfig{Type: "duckdb", Params: map[string]any{"extensions": []any{"httpfs", "spatial"}}},
			want:   []string{"httpfs", "spatial"},
		},
		{
			name:   "string slice",
			target: &core.TargetConfig{Type: "duckdb", Params: map[string]any{"extensions": []string{"json"}}},
			want:   []string{"json"},
		},
		{
			name:   "non-duckdb target ignored",
			target: &core.TargetConfig{Type: "postgres", Params: map[string]any{"extensions": []any{"httpfs"}}},
		},
		{
			name:   "no params",
			target: &core.TargetConfig{Type: "duckdb"},
		},
		{
			name:   "non-string entries skipped",
			target: &core.TargetConfig{Type: "duckdb", Params: map[string]any{"extensions": []any{"httpfs", 7}}},
			want:   []string{"httpfs"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, configuredExtensions(tt.target))
		})
	}
}
