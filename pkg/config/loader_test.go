package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadConfigMergesEnvironmentOverBase(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
server:
  port: ":8080"
db:
  host: localhost
  port: 5432
`)
	writeFile(t, dir, "production.yaml", `
db:
  host: db.internal
`)

	merged, err := LoadConfig("production", dir)
	require.NoError(t, err)

	db := merged["db"].(map[string]interface{})
	assert.Equal(t, "db.internal", db["host"])
	assert.Equal(t, 5432, db["port"])
	assert.Equal(t, ":8080", merged["server"].(map[string]interface{})["port"])
}

func TestLoadConfigSubstitutesSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
jwt:
  secret: "${JWT_SIGNING_KEY}"
`)
	writeFile(t, dir, "secrets.env", "# comment\nJWT_SIGNING_KEY='s3cret'\n")

	merged, err := LoadConfig("local", dir)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", merged["jwt"].(map[string]interface{})["secret"])
}

func TestLoadConfigFallsBackToProcessEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
mq:
  url: "${HABITWEB_TEST_MQ}"
`)
	t.Setenv("HABITWEB_TEST_MQ", "amqp://guest@localhost")

	merged, err := LoadConfig("", dir)
	require.NoError(t, err)
	assert.Equal(t, "amqp://guest@localhost", merged["mq"].(map[string]interface{})["url"])
}

func TestLoadConfigMissingBase(t *testing.T) {
	_, err := LoadConfig("local", t.TempDir())
	require.Error(t, err)
}

func TestDecodeIntoStruct(t *testing.T) {
	var out struct {
		DB DBConfig `yaml:"db"`
	}
	err := Decode(map[string]interface{}{
		"db": map[string]interface{}{"host": "h", "port": 1},
	}, &out)
	require.NoError(t, err)
	assert.Equal(t, DBConfig{Host: "h", Port: 1}, out.DB)
}

func TestOverrideDBFromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "envhost")
	t.Setenv("DB_PORT", "not-a-number")
	cfg := DBConfig{Host: "h", Port: 5432}
	OverrideDBFromEnv(&cfg)
	assert.Equal(t, "envhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
}
