package cli

import (
	"context"
	"fmt"

	"github.com/agentrig/agentrig/internal/config"
	"github.com/agentrig/agentrig/internal/logging"
	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
	"github.com/agentrig/agentrig/internal/state"
	awsprovider "github.com/agentrig/agentrig/providers/aws"
)

func loadConfig() (*config.Config, error) {
	return config.Load(flagConfig)
}

// selectModules resolves the optional module argument into the list of
// modules to operate on, in declared order.
func selectModules(cfg *config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		return cfg.ModuleNames(), nil
	}
	if _, err := cfg.Module(args[0]); err != nil {
		return nil, err
	}
	return []string{args[0]}, nil
}

// reverse returns a reversed copy; teardown across modules runs in the
// inverse of the setup order.
func reverse(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[len(names)-1-i] = n
	}
	return out
}

func openStore(cfg *config.Config, module string) (*state.Store, error) {
	store := state.NewStore(cfg.StatePath(module), module)
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

// externalRecords collects records from every module's state file except the
// one being operated on, so cross-module ref:// values and prerequisites
// resolve.
func externalRecords(cfg *config.Config, exclude string) (map[string]*resource.Record, error) {
	out := make(map[string]*resource.Record)
	for _, name := range cfg.ModuleNames() {
		if name == exclude {
			continue
		}
		store, err := openStore(cfg, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load state of module %s: %w", name, err)
		}
		for k, v := range store.Records() {
			out[k] = v
		}
	}
	return out, nil
}

// newRegistry builds the adapter registry against the real AWS APIs.
func newRegistry(ctx context.Context, cfg *config.Config) (*provider.Registry, error) {
	reg := provider.NewRegistry()
	p, err := awsprovider.New(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	p.Register(reg)
	return reg, nil
}

// warnLeftoverState logs modules whose state files still hold records after
// a partial teardown.
func warnLeftoverState(cfg *config.Config, modules []string) {
	for _, name := range modules {
		store, err := openStore(cfg, name)
		if err != nil {
			continue
		}
		if !store.Empty() {
			logging.Warn("module still has recorded resources", "module", name, "count", len(store.Records()))
		}
	}
}
