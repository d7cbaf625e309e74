package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentrig/agentrig/internal/resource"
)

func descriptorChain() []*resource.Descriptor {
	return []*resource.Descriptor{
		{
			Type:      resource.TypeEndpoint,
			Key:       "demo-runtime-agent",
			DependsOn: []resource.Type{resource.TypeRole, resource.TypeAuthorizer},
		},
		{Type: resource.TypeRole, Key: "demo-runtime-execution"},
		{Type: resource.TypeAuthorizer, Key: "demo-identity-inbound"},
	}
}

func indexOf(order []resource.Type, t resource.Type) int {
	for i, o := range order {
		if o == t {
			return i
		}
	}
	return -1
}

func TestNewGraph_TopologicalOrder(t *testing.T) {
	g, err := NewGraph(descriptorChain())
	require.NoError(t, err)

	order := g.TopologicalOrder()
	require.Len(t, order, 3)

	posRole := indexOf(order, resource.TypeRole)
	posAuth := indexOf(order, resource.TypeAuthorizer)
	posEndpoint := indexOf(order, resource.TypeEndpoint)

	assert.Less(t, posRole, posEndpoint, "role should come before endpoint")
	assert.Less(t, posAuth, posEndpoint, "authorizer should come before endpoint")
}

func TestNewGraph_TeardownOrderIsReversed(t *testing.T) {
	g, err := NewGraph(descriptorChain())
	require.NoError(t, err)

	order := g.TopologicalOrder()
	teardown := g.TeardownOrder()
	require.Len(t, teardown, len(order))
	for i := range order {
		assert.Equal(t, order[i], teardown[len(order)-1-i])
	}
}

func TestNewGraph_ImplicitRefEdge(t *testing.T) {
	descriptors := []*resource.Descriptor{
		{
			Type: resource.TypeGateway,
			Key:  "demo-gateway-main",
			Spec: map[string]any{
				"functionArn": "ref://demo-runtime-agent/arn",
			},
		},
		{Type: resource.TypeEndpoint, Key: "demo-runtime-agent"},
	}

	g, err := NewGraph(descriptors)
	require.NoError(t, err)

	order := g.TopologicalOrder()
	assert.Less(t, indexOf(order, resource.TypeEndpoint), indexOf(order, resource.TypeGateway))
	assert.Contains(t, g.Dependencies(resource.TypeGateway), resource.TypeEndpoint)
}

func TestNewGraph_CycleRejected(t *testing.T) {
	descriptors := []*resource.Descriptor{
		{Type: resource.TypeRole, Key: "a", DependsOn: []resource.Type{resource.TypeEndpoint}},
		{Type: resource.TypeEndpoint, Key: "b", DependsOn: []resource.Type{resource.TypeRole}},
	}

	_, err := NewGraph(descriptors)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestNewGraph_UnknownDependencyRejected(t *testing.T) {
	descriptors := []*resource.Descriptor{
		{Type: resource.TypeRole, Key: "a", DependsOn: []resource.Type{"volcano"}},
	}

	_, err := NewGraph(descriptors)
	require.Error(t, err)
}

func TestNewGraph_CrossModuleDependencyKept(t *testing.T) {
	// The authorizer lives in another module; no ordering edge, but still
	// a prerequisite the runner must verify.
	descriptors := []*resource.Descriptor{
		{Type: resource.TypeEndpoint, Key: "demo-runtime-agent", DependsOn: []resource.Type{resource.TypeAuthorizer}},
	}

	g, err := NewGraph(descriptors)
	require.NoError(t, err)
	assert.Contains(t, g.Dependencies(resource.TypeEndpoint), resource.TypeAuthorizer)
}

func TestGraph_SortRespectsOrder(t *testing.T) {
	descriptors := descriptorChain()
	g, err := NewGraph(descriptors)
	require.NoError(t, err)

	sorted := g.Sort(descriptors)
	require.Len(t, sorted, 3)
	assert.Equal(t, resource.TypeEndpoint, sorted[2].Type)
}
