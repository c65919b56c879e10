package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[llm]
provider = "openai"
model = "gpt-4o-mini"
`))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sparql", cfg.Graph.Provider)
	assert.Equal(t, 30, cfg.Graph.TimeoutSeconds)
	assert.Equal(t, "ts", cfg.Telemetry.TimestampColumn)
	assert.Equal(t, 300, cfg.Registry.SensorTTLSeconds)
	assert.Equal(t, 80, cfg.Registry.FuzzyThreshold)
	assert.Equal(t, "artifacts", cfg.Artifacts.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadOverridesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
[server]
port = "9000"

[graph]
provider = "cypher"
uri = "bolt://memgraph:7687"

[registry]
fuzzy_threshold = 90

[telemetry]
host = "db"
port = 5432
database = "telemetry"
user = "sensoria"
password = "secret"
sslmode = "disable"
`))
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "cypher", cfg.Graph.Provider)
	assert.Equal(t, 90, cfg.Registry.FuzzyThreshold)
	assert.Equal(t,
		"host=db port=5432 user=sensoria password=secret dbname=telemetry sslmode=disable",
		cfg.Telemetry.DSN())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoadMalformedTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "not = [valid"))
	assert.Error(t, err)
}
