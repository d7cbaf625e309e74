package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrig/agentrig/internal/resource"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agentrig.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_MissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "cost-estimator", cfg.Project)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ParsesModules(t *testing.T) {
	path := writeConfig(t, `
project: demo
region: eu-central-1
modules:
  - name: runtime
    resources:
      - type: role
        name: execution
        spec:
          service: lambda.amazonaws.com
      - type: endpoint
        name: agent
        dependsOn: [role]
        spec:
          roleArn: ref://demo-runtime-execution/arn
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.Project)
	assert.Equal(t, "eu-central-1", cfg.Region)
	assert.Equal(t, ".agentrig", cfg.StateDir)
	assert.Equal(t, []string{"runtime"}, cfg.ModuleNames())

	m, err := cfg.Module("runtime")
	require.NoError(t, err)
	descriptors := cfg.Descriptors(m)
	require.Len(t, descriptors, 2)
	assert.Equal(t, "demo-runtime-execution", descriptors[0].Key)
	assert.Equal(t, "demo-runtime-agent", descriptors[1].Key)
	assert.Equal(t, []resource.Type{resource.TypeRole}, descriptors[1].DependsOn)
	assert.Equal(t, "ref://demo-runtime-execution/arn", descriptors[1].Spec["roleArn"])
}

func TestLoad_RejectsUnknownType(t *testing.T) {
	path := writeConfig(t, `
modules:
  - name: runtime
    resources:
      - type: volcano
        name: boom
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource type")
}

func TestLoad_RejectsDuplicateKeys(t *testing.T) {
	path := writeConfig(t, `
project: demo
modules:
  - name: runtime
    resources:
      - type: role
        name: execution
      - type: role
        name: execution
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate resource key")
}

func TestLoad_RejectsDuplicateModules(t *testing.T) {
	path := writeConfig(t, `
modules:
  - name: runtime
    resources:
      - type: role
        name: a
  - name: runtime
    resources:
      - type: role
        name: b
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate module")
}

func TestLoad_RejectsUnknownDependency(t *testing.T) {
	path := writeConfig(t, `
modules:
  - name: runtime
    resources:
      - type: endpoint
        name: agent
        dependsOn: [volcano]
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown type")
}

func TestLoad_RejectsEmptyConfig(t *testing.T) {
	path := writeConfig(t, "project: demo\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no modules")
}

func TestModule_UnknownName(t *testing.T) {
	cfg := Default()
	_, err := cfg.Module("nope")
	require.Error(t, err)
}

func TestStatePath(t *testing.T) {
	cfg := &Config{StateDir: ".agentrig"}
	assert.Equal(t, filepath.Join(".agentrig", "runtime.state.json"), cfg.StatePath("runtime"))
}

func TestDefault_IsValidAndOrdered(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []string{"identity", "runtime", "gateway", "memory"}, cfg.ModuleNames())

	// Every module's resource set must form a valid descriptor list with
	// the default keys minted from project-module-name.
	m, err := cfg.Module("gateway")
	require.NoError(t, err)
	descriptors := cfg.Descriptors(m)
	require.Len(t, descriptors, 1)
	assert.Equal(t, "cost-estimator-gateway-main", descriptors[0].Key)
	assert.Equal(t, "ref://cost-estimator-runtime-agent/arn", descriptors[0].Spec["functionArn"])
}
