package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("VETCLINIC_JWT_SECRET", "test-secret")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "redis", cfg.Broker.Kind)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.Interval)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 30*time.Second, cfg.ServerTimeout())
}

func TestLoadConfigFileAndSecrets(t *testing.T) {
	dir := t.TempDir()
	yaml := `
server:
  port: 9090
database:
  driver: memory
  password: from-file
broker:
  kind: none
jwt:
  secret: file-secret
sweep:
  interval: 1h
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))
	t.Setenv("VETCLINIC_DATABASE_PASSWORD", "from-env")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "none", cfg.Broker.Kind)
	assert.Equal(t, "file-secret", cfg.JWT.Secret)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, time.Hour, cfg.Sweep.Interval)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Database: DatabaseConfig{Driver: "postgres"},
		Broker:   BrokerConfig{Kind: "redis"},
		Sweep:    SweepConfig{Interval: time.Hour},
	}
	assert.Error(t, cfg.Validate(), "missing jwt secret")

	cfg.JWT.Secret = "s"
	assert.NoError(t, cfg.Validate())

	cfg.Broker.Kind = "kafka"
	assert.Error(t, cfg.Validate())

	cfg.Broker.Kind = "inprocess"
	assert.Error(t, cfg.Validate(), "inprocess without workers")
	cfg.Server.RunWorkers = true
	assert.NoError(t, cfg.Validate())

	cfg.Broker.Kind = "none"
	cfg.Database.Driver = "mongo"
	assert.Error(t, cfg.Validate())
}

func TestDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "vet", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=vet sslmode=disable", c.DSN())
}
