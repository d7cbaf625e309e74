// Package config loads the project configuration: which modules exist, in
// what order they are set up, and which resources each one provisions.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/agentrig/agentrig/internal/resource"
)

// DefaultFileName is looked up in the working directory when no --config
// flag is given.
const DefaultFileName = "agentrig.yaml"

// Config is the top-level project configuration. Module declaration order is
// the setup order; teardown across modules runs in the reverse of it.
type Config struct {
	Project  string   `yaml:"project"`
	Region   string   `yaml:"region"`
	StateDir string   `yaml:"stateDir"`
	Modules  []Module `yaml:"modules"`
}

// Module groups the resources one tutorial stage provisions and owns one
// state file.
type Module struct {
	Name      string     `yaml:"name"`
	Resources []Resource `yaml:"resources"`
}

// Resource is one provisionable entry of a module.
type Resource struct {
	Type      resource.Type   `yaml:"type"`
	Name      string          `yaml:"name"`
	DependsOn []resource.Type `yaml:"dependsOn"`
	Spec      map[string]any  `yaml:"spec"`
}

// Load reads and validates a configuration file. A missing path falls back
// to the built-in default project.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Project == "" {
		c.Project = "agentrig"
	}
	if c.StateDir == "" {
		c.StateDir = ".agentrig"
	}
}

// Validate rejects unknown resource types, duplicate keys and empty modules.
func (c *Config) Validate() error {
	if len(c.Modules) == 0 {
		return fmt.Errorf("no modules declared")
	}
	seenModules := make(map[string]bool)
	seenKeys := make(map[string]bool)
	for _, m := range c.Modules {
		if m.Name == "" {
			return fmt.Errorf("module with empty name")
		}
		if seenModules[m.Name] {
			return fmt.Errorf("duplicate module %q", m.Name)
		}
		seenModules[m.Name] = true
		for _, r := range m.Resources {
			if !resource.IsKnown(r.Type) {
				return fmt.Errorf("module %q: unknown resource type %q", m.Name, r.Type)
			}
			if r.Name == "" {
				return fmt.Errorf("module %q: resource of type %q has no name", m.Name, r.Type)
			}
			key := resource.Key(c.Project, m.Name, r.Name)
			if seenKeys[key] {
				return fmt.Errorf("duplicate resource key %q", key)
			}
			seenKeys[key] = true
			for _, dep := range r.DependsOn {
				if !resource.IsKnown(dep) {
					return fmt.Errorf("module %q: resource %q depends on unknown type %q", m.Name, r.Name, dep)
				}
			}
		}
	}
	return nil
}

// Module returns the named module.
func (c *Config) Module(name string) (*Module, error) {
	for i := range c.Modules {
		if c.Modules[i].Name == name {
			return &c.Modules[i], nil
		}
	}
	return nil, fmt.Errorf("module %q is not declared in the configuration", name)
}

// ModuleNames returns module names in declared (setup) order.
func (c *Config) ModuleNames() []string {
	names := make([]string, len(c.Modules))
	for i, m := range c.Modules {
		names[i] = m.Name
	}
	return names
}

// Descriptors expands a module's resource entries into descriptors with
// deterministic keys.
func (c *Config) Descriptors(m *Module) []*resource.Descriptor {
	out := make([]*resource.Descriptor, 0, len(m.Resources))
	for _, r := range m.Resources {
		out = append(out, &resource.Descriptor{
			Type:      r.Type,
			Key:       resource.Key(c.Project, m.Name, r.Name),
			DependsOn: r.DependsOn,
			Spec:      r.Spec,
		})
	}
	return out
}

// StatePath returns the state file path for a module.
func (c *Config) StatePath(module string) string {
	return filepath.Join(c.StateDir, module+".state.json")
}

// Default returns the built-in project: the four tutorial stages with their
// resource chain. Later specs embed earlier external identifiers through
// ref:// values, which also pins the cross-module setup order.
func Default() *Config {
	const project = "cost-estimator"
	key := func(module, name string) string { return resource.Key(project, module, name) }
	ref := func(module, name, field string) string {
		return fmt.Sprintf("ref://%s/%s", key(module, name), field)
	}

	return &Config{
		Project:  project,
		StateDir: ".agentrig",
		Modules: []Module{
			{
				Name: "identity",
				Resources: []Resource{
					{
						Type: resource.TypeAuthorizer,
						Name: "inbound",
						Spec: map[string]any{
							"scope": "invoke",
						},
					},
				},
			},
			{
				Name: "runtime",
				Resources: []Resource{
					{
						Type: resource.TypeRole,
						Name: "execution",
						Spec: map[string]any{
							"service": "lambda.amazonaws.com",
						},
					},
					{
						Type:      resource.TypeEndpoint,
						Name:      "agent",
						DependsOn: []resource.Type{resource.TypeRole, resource.TypeAuthorizer},
						Spec: map[string]any{
							"roleArn": ref("runtime", "execution", "arn"),
							"handler": "bootstrap",
							"runtime": "provided.al2023",
						},
					},
				},
			},
			{
				Name: "gateway",
				Resources: []Resource{
					{
						Type:      resource.TypeGateway,
						Name:      "main",
						DependsOn: []resource.Type{resource.TypeEndpoint, resource.TypeAuthorizer},
						Spec: map[string]any{
							"functionArn": ref("runtime", "agent", "arn"),
							"issuer":      ref("identity", "inbound", "issuer"),
							"audience":    ref("identity", "inbound", "clientId"),
						},
					},
				},
			},
			{
				Name: "memory",
				Resources: []Resource{
					{
						Type: resource.TypeMemoryStore,
						Name: "conversations",
						Spec: map[string]any{
							"ttlDays": 90,
						},
					},
				},
			},
		},
	}
}
