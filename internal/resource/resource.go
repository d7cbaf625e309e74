package resource

import "fmt"

// Type identifies a kind of provisionable resource.
type Type string

const (
	TypeRole        Type = "role"
	TypeAuthorizer  Type = "authorizer"
	TypeEndpoint    Type = "endpoint"
	TypeGateway     Type = "gateway"
	TypeMemoryStore Type = "memory-store"
)

// KnownTypes lists every resource type an adapter exists for.
var KnownTypes = []Type{TypeRole, TypeAuthorizer, TypeEndpoint, TypeGateway, TypeMemoryStore}

// IsKnown reports whether t names a supported resource type.
func IsKnown(t Type) bool {
	for _, k := range KnownTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Descriptor is the static definition of one provisionable unit.
// Key is a deterministic identifier derived from project, module and logical
// name; it doubles as the external resource name so re-invocations find the
// same remote resource.
type Descriptor struct {
	Type      Type           `yaml:"type"`
	Key       string         `yaml:"key"`
	DependsOn []Type         `yaml:"dependsOn"`
	Spec      map[string]any `yaml:"spec"`
}

// Key derives a deterministic resource key from its parts.
func Key(project, module, name string) string {
	return fmt.Sprintf("%s-%s-%s", project, module, name)
}

// Handle is the opaque result of a successful create: the remote system's
// identifier plus whatever metadata the adapter captured (ARNs, endpoints,
// client secrets). The orchestrator core never interprets the metadata.
type Handle struct {
	ID       string
	Metadata map[string]string
}
