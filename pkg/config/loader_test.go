package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

const baseYAML = `
server:
  port: ":9090"
db:
  host: db.internal
  port: 5432
  user: mailvault
  password: ${DB_PASSWORD}
  name: mailvault
mq:
  url: amqp://guest:guest@mq:5672/
jwt:
  secret: base-secret
agent:
  base_url: http://agent:8090
`

func TestLoadBaseOnly(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", baseYAML)

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.MQ.URL)
	assert.Equal(t, "base-secret", cfg.JWT.Secret)
}

func TestLoadEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", baseYAML)
	writeConfigFile(t, dir, "staging.yaml", `
db:
  host: staging-db
jwt:
  secret: staging-secret
`)

	cfg, err := Load("staging", dir)
	require.NoError(t, err)

	// Overlay wins for keys it sets, base survives for the rest.
	assert.Equal(t, "staging-db", cfg.DB.Host)
	assert.Equal(t, "staging-secret", cfg.JWT.Secret)
	assert.Equal(t, ":9090", cfg.Server.Port)
	assert.Equal(t, "mailvault", cfg.DB.Name)
}

func TestLoadMissingEnvFileIsFine(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", baseYAML)

	_, err := Load("nonexistent", dir)
	assert.NoError(t, err)
}

func TestLoadSecretsSubstitution(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", baseYAML)
	writeConfigFile(t, dir, "secrets.env", `
# comment line
DB_PASSWORD=s3cret
`)

	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.DB.Password)
}

func TestLoadEnvVariableOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", baseYAML)

	t.Setenv("DB_HOST", "env-db")
	t.Setenv("JWT_SECRET", "env-secret")

	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, "env-db", cfg.DB.Host)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "base.yaml", "db:\n  host: x\n")

	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Agent.TimeoutSeconds)
	assert.InDelta(t, 0.25, cfg.Search.KeywordWeight, 1e-9)
	assert.InDelta(t, 0.35, cfg.Search.BM25Weight, 1e-9)
	assert.InDelta(t, 0.40, cfg.Search.VectorWeight, 1e-9)
}

func TestLoadMissingBaseFails(t *testing.T) {
	_, err := Load("", t.TempDir())
	assert.Error(t, err)
}
