package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrig/agentrig/internal/resource"
)

func createdRecord(t resource.Type, id string, meta map[string]string) *resource.Record {
	return &resource.Record{Type: t, Status: resource.StatusCreated, ExternalID: id, Metadata: meta}
}

func TestResolveRefs_ExternalID(t *testing.T) {
	records := map[string]*resource.Record{
		"demo-runtime-execution": createdRecord(resource.TypeRole, "arn:aws:iam::1:role/demo", nil),
	}

	spec := map[string]any{"roleArn": "ref://demo-runtime-execution/id"}
	resolved, err := ResolveRefs(spec, records)
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:iam::1:role/demo", resolved["roleArn"])
}

func TestResolveRefs_MetadataField(t *testing.T) {
	records := map[string]*resource.Record{
		"demo-identity-inbound": createdRecord(resource.TypeAuthorizer, "pool-1", map[string]string{
			"issuer":   "https://example.test/pool-1",
			"clientId": "abc123",
		}),
	}

	spec := map[string]any{
		"issuer":   "ref://demo-identity-inbound/issuer",
		"audience": []any{"ref://demo-identity-inbound/clientId"},
		"nested":   map[string]any{"plain": "untouched"},
	}
	resolved, err := ResolveRefs(spec, records)
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/pool-1", resolved["issuer"])
	assert.Equal(t, []any{"abc123"}, resolved["audience"])
	assert.Equal(t, map[string]any{"plain": "untouched"}, resolved["nested"])
}

func TestResolveRefs_NotCreatedTarget(t *testing.T) {
	records := map[string]*resource.Record{
		"demo-runtime-execution": {Type: resource.TypeRole, Status: resource.StatusFailed},
	}

	_, err := ResolveRefs(map[string]any{"roleArn": "ref://demo-runtime-execution/id"}, records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not CREATED")
}

func TestResolveRefs_MissingField(t *testing.T) {
	records := map[string]*resource.Record{
		"demo-runtime-execution": createdRecord(resource.TypeRole, "arn", nil),
	}

	_, err := ResolveRefs(map[string]any{"x": "ref://demo-runtime-execution/secret"}, records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did not capture")
}

func TestResolveRefs_NilSpec(t *testing.T) {
	resolved, err := ResolveRefs(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestExtractRefs(t *testing.T) {
	spec := map[string]any{
		"a": "ref://k1/arn",
		"b": map[string]any{"c": "ref://k2/id"},
		"d": []any{"ref://k3", "plain"},
		"e": 42,
	}
	refs := extractRefs(spec)
	assert.ElementsMatch(t, []string{"ref://k1/arn", "ref://k2/id", "ref://k3"}, refs)
}

func TestRefKeyAndField(t *testing.T) {
	assert.Equal(t, "demo-runtime-agent", refKey("ref://demo-runtime-agent/arn"))
	assert.Equal(t, "arn", refField("ref://demo-runtime-agent/arn"))
	assert.Equal(t, "demo-runtime-agent", refKey("ref://demo-runtime-agent"))
	assert.Equal(t, "", refField("ref://demo-runtime-agent"))
}
