package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	configinfra "github.com/agentpipeline/agentpipeline/internal/infrastructure/config"
	"github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
)

func testAppContext() *AppContext {
	return &AppContext{
		Logger:       logging.NewNoOpLogger(),
		ConfigLoader: configinfra.NewYAMLLoader(logging.NewNoOpLogger()),
	}
}

func writeTestConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "pipeline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestValidateCommandAcceptsWellFormedConfig(t *testing.T) {
	path := writeTestConfig(t, `version: "1.0"
name: demo
stages:
  - name: build
    agent: build-agent
`)

	root := &rootFlags{configPath: path}
	cmd := newValidateCmd(root, testAppContext())
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "valid")
}

func TestValidateCommandRejectsMissingConfigFlag(t *testing.T) {
	root := &rootFlags{}
	cmd := newValidateCmd(root, testAppContext())

	err := cmd.Execute()
	require.Error(t, err)
}

func TestValidateCommandRejectsDependencyCycle(t *testing.T) {
	path := writeTestConfig(t, `version: "1.0"
name: demo
stages:
  - name: a
    agent: agent-a
    depends_on: [b]
  - name: b
    agent: agent-b
    depends_on: [a]
`)

	root := &rootFlags{configPath: path}
	cmd := newValidateCmd(root, testAppContext())

	err := cmd.Execute()
	require.Error(t, err)
}
