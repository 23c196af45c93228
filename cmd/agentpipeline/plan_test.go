package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlanCommandPrintsExecutionGroups(t *testing.T) {
	path := writeTestConfig(t, `version: "1.0"
name: demo
stages:
  - name: build
    agent: build-agent
  - name: review
    agent: review-agent
    depends_on: [build]
`)

	root := &rootFlags{configPath: path}
	cmd := newPlanCmd(root, testAppContext())
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)

	require.NoError(t, cmd.Execute())

	output := buf.String()
	require.Contains(t, output, "demo")
	require.Contains(t, output, "build")
	require.Contains(t, output, "review")
}

func TestPlanCommandRejectsMissingConfigFlag(t *testing.T) {
	root := &rootFlags{}
	cmd := newPlanCmd(root, testAppContext())

	require.Error(t, cmd.Execute())
}
