package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}

func TestLoadConfig_FileAndDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
server:
  address: ":9090"
database:
  driver: memory
jwt:
  secret: file-secret
  expiration: 30m
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "fitflow", cfg.Database.Name)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, 30*time.Minute, cfg.JWT.Expiration)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 4*1024*1024, cfg.Cache.TemplateCacheSize)
	assert.False(t, cfg.S3.Enabled())
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
jwt:
  secret: file-secret
`)
	t.Setenv("JWT_SECRET", "env-secret")
	t.Setenv("S3_BUCKET_NAME", "exports")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.S3.Enabled())
}

func TestLoadConfig_DotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, ".env", "JWT_SECRET=dotenv-secret\nDATABASE_DRIVER=memory\n")
	// godotenv never overrides variables that are already set; t.Setenv
	// restores the previous state once the test is done.
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_DRIVER", "")
	require.NoError(t, os.Unsetenv("JWT_SECRET"))
	require.NoError(t, os.Unsetenv("DATABASE_DRIVER"))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "dotenv-secret", cfg.JWT.Secret)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
}

func TestLoadConfig_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
database:
  driver: postgres
jwt:
  secret: s
`)
	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "unknown database driver")

	missingSecret := t.TempDir()
	t.Setenv("JWT_SECRET", "")
	_, err = LoadConfig(missingSecret)
	assert.ErrorContains(t, err, "jwt.secret")
}
