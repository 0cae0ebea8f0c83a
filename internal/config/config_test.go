package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sc-provisioner/internal/datastore"
	"sc-provisioner/internal/provisioning"
)

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"SCP_STORE_TYPE", "SCP_DEFAULT_TYPE", "SCP_MATCH_POLICY", "LOG_LEVEL", "SCP_PROVIDER"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	c, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "postgresql", c.StoreType)
	assert.Equal(t, "Equipment", c.DefaultType)
	assert.Equal(t, "payroll", c.ServiceCodeType)
	assert.Equal(t, provisioning.MatchFull, c.Policy())
	assert.Equal(t, logrus.InfoLevel, c.LogrusLogLevel())
	assert.Empty(t, c.Provider)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SCP_STORE_TYPE", "sqlite")
	t.Setenv("SCP_SQLITE_PATH", "/tmp/x.db")
	t.Setenv("SCP_PROVIDER", "Acme")
	t.Setenv("SCP_VERBOSE_NAMES", "true")
	t.Setenv("SCP_MATCH_POLICY", "natural-key")
	t.Setenv("LOG_LEVEL", "debug")

	c, err := Load(noEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, "Acme", c.Provider)
	assert.True(t, c.VerboseNames)
	assert.Equal(t, provisioning.MatchNaturalKey, c.Policy())
	assert.Equal(t, logrus.DebugLevel, c.Logger().GetLevel())
	assert.Equal(t, datastore.Config{Type: datastore.SQLiteStore, SQLitePath: "/tmp/x.db"}, c.GetDataStoreConfig())
}

func TestLoad_RejectsUnknownMatchPolicy(t *testing.T) {
	t.Setenv("SCP_MATCH_POLICY", "fuzzy")

	_, err := Load(noEnvFile(t))
	require.Error(t, err)
}

func TestLoad_ReadsEnvFile(t *testing.T) {
	t.Setenv("SCP_PROVIDER", "")
	os.Unsetenv("SCP_PROVIDER")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SCP_PROVIDER=FromFile\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("SCP_PROVIDER") })

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "FromFile", c.Provider)
}

func TestGetDataStoreConfig_Aliases(t *testing.T) {
	tests := []struct {
		storeType string
		want      datastore.Type
	}{
		{"postgresql", datastore.PostgreSQLStore},
		{"postgres", datastore.PostgreSQLStore},
		{"db", datastore.PostgreSQLStore},
		{"SQLite", datastore.SQLiteStore},
		{"memory", datastore.MemoryStore},
		{"unknown", datastore.PostgreSQLStore},
	}

	for _, tt := range tests {
		t.Run(tt.storeType, func(t *testing.T) {
			c := &Config{StoreType: tt.storeType}
			assert.Equal(t, tt.want, c.GetDataStoreConfig().Type)
		})
	}
	assert.True(t, (&Config{StoreType: "memory"}).IsMemoryMode())
}

func TestLogrusLogLevel(t *testing.T) {
	tests := map[string]logrus.Level{
		"silent":  logrus.PanicLevel,
		"error":   logrus.ErrorLevel,
		"warn":    logrus.WarnLevel,
		"info":    logrus.InfoLevel,
		"debug":   logrus.DebugLevel,
		"verbose": logrus.ErrorLevel,
	}
	for level, want := range tests {
		assert.Equal(t, want, (&Config{LogLevel: level}).LogrusLogLevel(), level)
	}
}
