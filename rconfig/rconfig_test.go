package rconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relorm/relorm/logger"
)

func TestParseValidConfig(t *testing.T) {
	data := []byte(`
driver = "sqlite"
dsn = "file:test.db"
log_level = "debug"

[pool]
max_open_conns = 4
max_idle_conns = 2
conn_lifetime = "30s"
`)
	cfg, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Driver)
	assert.Equal(t, "file:test.db", cfg.DSN)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.Pool.MaxOpenConns)
	assert.Equal(t, 2, cfg.Pool.MaxIdleConns)
	assert.Equal(t, 30*time.Second, cfg.Pool.ConnLifetime)
}

func TestParseMissingRequiredFieldsErrors(t *testing.T) {
	_, err := Parse([]byte(`driver = "sqlite"`))
	assert.Error(t, err, "dsn is required")
}

func TestParseRejectsUnknownDriver(t *testing.T) {
	_, err := Parse([]byte(`
driver = "mysql"
dsn = "whatever"
`))
	assert.Error(t, err)
}

func TestParseRejectsUnknownLogLevel(t *testing.T) {
	_, err := Parse([]byte(`
driver = "sqlite"
dsn = "file:test.db"
log_level = "verbose"
`))
	assert.Error(t, err)
}

func TestParseEmptyLogLevelIsValid(t *testing.T) {
	cfg, err := Parse([]byte(`
driver = "postgres"
dsn = "postgres://localhost/db"
`))
	require.NoError(t, err)
	assert.Empty(t, cfg.LogLevel)
}

func TestParseRejectsMalformedTOML(t *testing.T) {
	_, err := Parse([]byte(`not = valid = toml`))
	assert.Error(t, err)
}

func TestParseRejectsNegativePoolSizes(t *testing.T) {
	_, err := Parse([]byte(`
driver = "sqlite"
dsn = "file:test.db"

[pool]
max_open_conns = -1
`))
	assert.Error(t, err)
}

func TestLoadReadsFileFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "relorm.toml")
	content := "driver = \"sqlite\"\ndsn = \"file:test.db\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Driver)
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load("/nonexistent/path/relorm.toml")
	assert.Error(t, err)
}

func TestConfigDriverConfigProjectsDSN(t *testing.T) {
	cfg := &Config{DSN: "file:test.db"}
	assert.Equal(t, "file:test.db", cfg.DriverConfig().DSN)
}

func TestConfigParsedLogLevelMapping(t *testing.T) {
	cases := map[string]logger.LogLevel{
		"none":  logger.LevelNone,
		"error": logger.LevelError,
		"warn":  logger.LevelWarn,
		"info":  logger.LevelInfo,
		"debug": logger.LevelDebug,
		"":      logger.LevelWarn,
	}
	for raw, want := range cases {
		cfg := &Config{LogLevel: raw}
		assert.Equal(t, want, cfg.ParsedLogLevel(), "log_level=%q", raw)
	}
}
