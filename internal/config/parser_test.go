package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestParseConfigValidDocument(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
name: "demo"
stages:
  - name: build
    agent: build-agent
  - name: review
    agent: review-agent
    depends_on: [build]
`)

	cfg, err := ParseConfig(path)
	require.NoError(t, err)
	require.Equal(t, "demo", cfg.Name)
	require.Len(t, cfg.Stages, 2)
	require.Equal(t, "review", cfg.Stages[1].Name)
	require.Equal(t, []string{"build"}, cfg.Stages[1].DependsOn)
}

func TestParseConfigMissingFileReturnsParseError(t *testing.T) {
	_, err := ParseConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestParseConfigRejectsMissingStages(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
name: "demo"
`)

	_, err := ParseConfig(path)
	require.Error(t, err)
}

func TestParseConfigRejectsBadVersion(t *testing.T) {
	path := writeConfig(t, `version: "not-a-version"
name: "demo"
stages:
  - name: build
    agent: build-agent
`)

	_, err := ParseConfig(path)
	require.Error(t, err)
}

func TestParseConfigRejectsInvalidStageName(t *testing.T) {
	path := writeConfig(t, `version: "1.0"
name: "demo"
stages:
  - name: "bad name!"
    agent: build-agent
`)

	_, err := ParseConfig(path)
	require.Error(t, err)
}
