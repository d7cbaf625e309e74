package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentrig/agentrig/internal/engine"
)

var (
	setupForceKeys []string
	setupForceAll  bool
)

var setupCmd = &cobra.Command{
	Use:     "setup [module]",
	Aliases: []string{"prepare"},
	Short:   "Provision a module's resources (idempotent)",
	Long: `Runs the provisioning steps of one module, or of every module in declared
order when no module is given. Steps already completed are skipped, so
re-running after a failure resumes at the failed step.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSetup,
}

func init() {
	setupCmd.Flags().StringArrayVar(&setupForceKeys, "force", nil, "Discard and recreate the resource with this key (repeatable)")
	setupCmd.Flags().BoolVar(&setupForceAll, "force-all", false, "Discard and recreate every resource")
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	modules, err := selectModules(cfg, args)
	if err != nil {
		return err
	}
	registry, err := newRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	forceKeys := make(map[string]bool, len(setupForceKeys))
	for _, k := range setupForceKeys {
		forceKeys[k] = true
	}

	for _, name := range modules {
		mod, err := cfg.Module(name)
		if err != nil {
			return err
		}
		descriptors := cfg.Descriptors(mod)
		if len(descriptors) == 0 {
			continue
		}

		graph, err := engine.NewGraph(descriptors)
		if err != nil {
			return err
		}

		store, err := openStore(cfg, name)
		if err != nil {
			return err
		}
		if err := store.Lock(); err != nil {
			return err
		}

		external, err := externalRecords(cfg, name)
		if err != nil {
			store.Unlock()
			return err
		}

		runner := engine.NewRunner(store, registry, graph)
		runner.ForceKeys = forceKeys
		runner.ForceAll = setupForceAll
		runner.External = external

		fmt.Printf("Setting up module %s...\n", name)
		result, runErr := runner.Run(ctx, graph.Sort(descriptors))
		renderRunResult(result)
		store.Unlock()

		if runErr != nil {
			return fmt.Errorf("setup of module %s stopped: %w", name, runErr)
		}
	}

	fmt.Println("\nSetup complete.")
	return nil
}
