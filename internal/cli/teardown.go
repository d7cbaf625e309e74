package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentrig/agentrig/internal/engine"
)

var teardownCmd = &cobra.Command{
	Use:     "teardown [module]",
	Aliases: []string{"clean"},
	Short:   "Delete a module's resources in reverse dependency order",
	Long: `Deletes every recorded resource of one module, or of every module in
reverse declared order when no module is given. Resources already gone are
tolerated; individual failures are collected so independent resources are
still removed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTeardown,
}

func runTeardown(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	modules, err := selectModules(cfg, args)
	if err != nil {
		return err
	}
	// Later modules depend on earlier ones, so teardown runs in the
	// reverse of the setup order.
	modules = reverse(modules)

	registry, err := newRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	failed := false
	for _, name := range modules {
		mod, err := cfg.Module(name)
		if err != nil {
			return err
		}
		descriptors := cfg.Descriptors(mod)

		graph, err := engine.NewGraph(descriptors)
		if err != nil {
			return err
		}

		store, err := openStore(cfg, name)
		if err != nil {
			return err
		}
		if store.Empty() {
			continue
		}
		if err := store.Lock(); err != nil {
			return err
		}

		fmt.Printf("Tearing down module %s...\n", name)
		coordinator := engine.NewCoordinator(store, registry, graph)
		report, tdErr := coordinator.Teardown(ctx)
		renderTeardownReport(report)
		store.Unlock()

		if tdErr != nil {
			return fmt.Errorf("teardown of module %s aborted: %w", name, tdErr)
		}
		if report.Failed() {
			failed = true
		}
	}

	if failed {
		warnLeftoverState(cfg, modules)
		return fmt.Errorf("teardown finished with failures; re-run to retry the remaining resources")
	}
	fmt.Println("\nTeardown complete.")
	return nil
}
