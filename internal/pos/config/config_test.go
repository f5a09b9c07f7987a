package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gartstein/pdv/internal/pos/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
GRPC_PORT: 50051
HTTP_PORT: 8080
DB_HOST: db
DB_PORT: 5432
DB_PASSWORD: from-file
DB_CONNECT_TIMEOUT: 5s
KAFKA_BROKERS: [k1:9092, k2:9092]
JWT_SECRET: file-secret
`)
	t.Setenv("DB_PASSWORD", "from-env")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, db.DriverPostgres, cfg.DBDriver)
	assert.Equal(t, "from-env", cfg.DBPassword)
	assert.Equal(t, "file-secret", cfg.JWTSecret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)

	dbCfg := cfg.Database()
	assert.Equal(t, "db", dbCfg.Host)
	assert.Equal(t, 5*time.Second, dbCfg.ConnectTimeout)
}

func TestLoadFromEnvPath(t *testing.T) {
	path := writeConfig(t, "DB_DRIVER: sqlite\nDB_PATH: /tmp/pdv.db\nJWT_SECRET: s\n")
	t.Setenv("POS_CONFIG", path)
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, db.DriverSQLite, cfg.DBDriver)
	assert.Equal(t, "env-secret", cfg.JWTSecret)
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"UnknownDriver", "DB_DRIVER: mysql\nJWT_SECRET: s\n"},
		{"SQLiteWithoutPath", "DB_DRIVER: sqlite\nJWT_SECRET: s\n"},
		{"MissingSecret", "DB_DRIVER: postgres\n"},
		{"BadTimeout", "JWT_SECRET: s\nDB_CONNECT_TIMEOUT: soon\n"},
		{"BadYAML", "GRPC_PORT: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestShippedConfig(t *testing.T) {
	cfg, err := LoadFile("config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, "pos.sales", cfg.Topic)
}
