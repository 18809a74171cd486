package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mallardhq/mallard/pkg/adapter"
	"github.com/mallardhq/mallard/pkg/core"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		config   core.TargetConfig
		expected string
	}{
		{
			name: "basic connection",
			config: core.TargetConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "testdb",
				User:     "user",
				Password: "pass",
			},
			expected: "host=localhost port=5432 dbname=testdb sslmode=disable user=user password=pass",
		},
		{
			name: "with custom sslmode",
			config: core.TargetConfig{
				Host:     "prod.example.com",
				Port:     5432,
				Database: "proddb",
				User:     "admin",
				Options:  map[string]string{"sslmode": "require"},
			},
			expected: "host=prod.example.com port=5432 dbname=proddb sslmode=require user=admin",
		},
		{
			name: "defaults",
			config: core.TargetConfig{
				Database: "mydb",
			},
			expected: "host=localhost port=5432 dbname=mydb sslmode=disable",
		},
		{
			name: "custom port",
			config: core.TargetConfig{
				Host:     "db.example.com",
				Port:     5433,
				Database: "analytics",
				User:     "analyst",
			},
			expected: "host=db.example.com port=5433 dbname=analytics sslmode=disable user=analyst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, buildDSN(&tt.config))
		})
	}
}

func TestMaintenanceDSN(t *testing.T) {
	cfg := core.TargetConfig{
		Host:     "db.example.com",
		Port:     5433,
		Database: "analytics",
		User:     "analyst",
	}

	dsn := maintenanceDSN(&cfg)
	assert.Equal(t, "host=db.example.com port=5433 dbname=postgres sslmode=disable user=analyst", dsn)
	assert.Equal(t, "analytics", cfg.Database, "original config must not be mutated")
}

func TestSanitizeColumnName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"name", "name"},
		{"my column", "my_column"},
		{"my-field", "my_field"},
		{"customer_id", "customer_id"},
		{"UPPERCASE", "UPPERCASE"},
		{"2nd_place", "_2nd_place"},
		{"", "_"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeColumnName(tt.input))
		})
	}
}

func TestNew(t *testing.T) {
	adp := New(nil)

	assert.NotNil(t, adp, "New() should return non-nil adapter")
	assert.Nil(t, adp.DB, "DB should be nil before Connect")
	assert.False(t, adp.IsConnected(), "should not be connected initially")
	assert.Equal(t, "postgres", adp.Dialect().Name)

	// Verify interface compliance
	var _ adapter.Adapter = (*Adapter)(nil)
	var _ adapter.Adapter = adp
}

func TestAdapter_NotConnected(t *testing.T) {
	tests := []struct {
		name      string
		operation func(ctx context.Context, adp *Adapter) error
	}{
		{
			name: "exec without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Exec(ctx, "SELECT 1")
				return err
			},
		},
		{
			name: "query without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.Query(ctx, "SELECT 1")
				return err
			},
		},
		{
			name: "table exists without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				_, err := adp.TableExists(ctx, "users")
				return err
			},
		},
		{
			name: "load csv without connect",
			operation: func(ctx context.Context, adp *Adapter) error {
				return adp.LoadCSV(ctx, "test", "/tmp/test.csv")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			err := tt.operation(ctx, adp)
			require.Error(t, err)

			var notConnected *adapter.NotConnectedError
			assert.ErrorAs(t, err, &notConnected)
		})
	}
}

func TestAdapter_Registry(t *testing.T) {
	assert.True(t, adapter.IsRegistered("postgres"), "postgres adapter should be registered")

	factory, ok := adapter.Get("postgres")
	require.True(t, ok, "should be able to get postgres factory")

	adp := factory(nil)
	assert.NotNil(t, adp)

	pg, ok := adp.(*Adapter)
	assert.True(t, ok, "factory should return *Adapter")
	assert.Equal(t, "postgres", pg.Dialect().Name)
}

func TestAdapter_Close(t *testing.T) {
	// Close should not error even without connection
	adp := New(nil)
	assert.NoError(t, adp.Close())
}

func TestResolveTable(t *testing.T) {
	tests := []struct {
		name       string
		cfgSchema  string
		table      string
		wantSchema string
		wantName   string
	}{
		{"unqualified default schema", "", "users", "public", "users"},
		{"unqualified configured schema", "analytics", "users", "analytics", "users"},
		{"qualified overrides config", "analytics", "audit.events", "audit", "events"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := New(nil)
			if tt.cfgSchema != "" {
				adp.Cfg = &core.TargetConfig{Schema: tt.cfgSchema}
			}

			schema, name := adp.resolveTable(tt.table)
			assert.Equal(t, tt.wantSchema, schema)
			assert.Equal(t, tt.wantName, name)
		})
	}
}
